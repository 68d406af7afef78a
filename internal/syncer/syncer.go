// Package syncer keeps a project store in sync with the server: it feeds
// change events into the store and refetches the full list whenever the
// feed (re)subscribes, covering anything missed while disconnected.
package syncer

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"wisp/internal/progress"
	"wisp/internal/realtime"
	"wisp/internal/store"
)

// Feed delivers change events until ctx is done.
type Feed interface {
	Run(ctx context.Context, handler func(store.ChangeEvent)) error
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithEmitter sets where progress events go.
func WithEmitter(e progress.Emitter) Option {
	return func(s *Syncer) { s.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// Syncer glues a store, a fetcher and a change feed.
type Syncer struct {
	store   *store.Store
	fetcher store.Fetcher
	emitter progress.Emitter
	logger  *slog.Logger
	metrics *Metrics

	refreshCh chan struct{}

	mu        sync.RWMutex
	status    realtime.Status
	statusErr error
}

// New creates a syncer for st loading rows through f.
func New(st *store.Store, f store.Fetcher, opts ...Option) *Syncer {
	s := &Syncer{
		store:     st,
		fetcher:   f,
		emitter:   progress.Discard,
		logger:    slog.Default(),
		refreshCh: make(chan struct{}, 1),
		status:    realtime.StatusDisconnected,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns the synced store.
func (s *Syncer) Store() *store.Store { return s.store }

// Status returns the last feed status and the error that caused it, if any.
func (s *Syncer) Status() (realtime.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.statusErr
}

// Run loads the list once, then runs feed until it stops or ctx is done.
// Every subscribed status reported through HandleStatus triggers another
// refresh.
func (s *Syncer) Run(ctx context.Context, feed Feed) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.RequestRefresh()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return feed.Run(ctx, s.apply)
	})
	g.Go(func() error {
		s.refreshLoop(ctx)
		return nil
	})
	return g.Wait()
}

// HandleStatus records a feed status transition. Wire it as the realtime
// client's status callback.
func (s *Syncer) HandleStatus(st realtime.Status, err error) {
	s.mu.Lock()
	prev := s.status
	s.status = st
	s.statusErr = err
	s.mu.Unlock()

	s.metrics.setConnected(st == realtime.StatusSubscribed)
	if st == realtime.StatusDisconnected && prev != realtime.StatusDisconnected {
		s.metrics.reconnect()
	}

	ev := progress.Event{Kind: progress.KindConnection, Message: st.String(), Status: progress.StatusRunning, Err: err}
	switch st {
	case realtime.StatusSubscribed:
		ev.Status = progress.StatusDone
		s.RequestRefresh()
	case realtime.StatusDisconnected:
		if err != nil {
			ev.Status = progress.StatusError
		}
	case realtime.StatusClosed:
		ev.Status = progress.StatusAborted
	}
	s.emitter.Emit(ev)
}

// RequestRefresh schedules a background refresh. Requests made while one
// is already queued are coalesced.
func (s *Syncer) RequestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Refresh refetches the list now and reports the result.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.emitter.Emit(progress.Event{Kind: progress.KindRefresh, Message: "refreshing", Status: progress.StatusRunning})
	err := s.store.Refresh(ctx, s.fetcher)
	if err != nil {
		s.logger.Warn("refresh failed", "error", err)
		s.emitter.Emit(progress.Event{Kind: progress.KindRefresh, Message: "refresh failed", Status: progress.StatusError, Err: err})
		return err
	}
	s.logger.Debug("refreshed", "projects", s.store.Len())
	s.emitter.Emit(progress.Event{Kind: progress.KindRefresh, Message: "refreshed", Status: progress.StatusDone})
	return nil
}

func (s *Syncer) refreshLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refreshCh:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *Syncer) apply(ev store.ChangeEvent) {
	outcome := s.store.Apply(ev)
	s.logger.Debug("change applied", "type", ev.Type, "id", ev.Key(), "outcome", outcome.String())
	s.emitter.Emit(progress.Event{
		Kind:    progress.KindChange,
		Message: string(ev.Type) + " " + ev.Key(),
		Status:  progress.StatusDone,
		Metadata: map[string]string{
			"id":      ev.Key(),
			"type":    string(ev.Type),
			"outcome": outcome.String(),
		},
	})
}
