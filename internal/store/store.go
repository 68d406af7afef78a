// Package store keeps the client-side list of projects in sync with the
// server. It merges three sources of truth: change-feed events, full list
// refreshes, and optimistic local mutations.
//
// Ordering: projects are held newest first by created_at. Records without
// created_at sort last.
//
// Versioning: a record's version is its last_updated (else created_at). An
// event carrying an older version than the held record is dropped, so
// out-of-order delivery can't roll a record back.
//
// Refresh races: a refresh journals feed events that arrive while the fetch
// is in flight and replays them over the fetched rows, so an event the
// snapshot missed is not lost. A refresh superseded by a newer one is
// discarded.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"wisp/internal/project"
)

// maxTombstones bounds the ids remembered as deleted between refreshes.
// A refresh clears them all.
const maxTombstones = 1024

// Fetcher loads the full project list from the server.
type Fetcher interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
}

// Rollback undoes an optimistic mutation. It is a no-op once the server has
// written the record since the mutation, or when called a second time.
type Rollback func()

// RefreshToken identifies one refresh started with BeginRefresh.
type RefreshToken struct {
	gen uint64
}

// Snapshot is a consistent view of the store for rendering.
type Snapshot struct {
	Projects   []project.Project
	Loading    bool
	Err        error
	Generation uint64
}

type pendingKind int

const (
	pendingAdd pendingKind = iota
	pendingUpdate
	pendingRemove
)

// pendingOp is an optimistic mutation the server hasn't confirmed yet.
type pendingOp struct {
	seq  uint64
	kind pendingKind
	prev *project.Project // record before the mutation; nil if absent
	rec  project.Project  // record after the mutation (add/update)
}

// Option configures a Store.
type Option func(*Store)

// WithOnChange sets the callback invoked after every state change.
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store is the ordered, keyed project cache. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	projects   []project.Project
	tombstones map[string]time.Time // id -> commit time of its delete
	pending    map[string]pendingOp
	seq        uint64

	loading    bool
	err        error
	generation uint64
	journaling bool
	journal    []ChangeEvent

	onChange func()
	metrics  *Metrics
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tombstones: make(map[string]time.Time),
		pending:    make(map[string]pendingOp),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetOnChange replaces the change callback.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Projects returns a copy of the held projects, newest first.
func (s *Store) Projects() []project.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.projects)
}

// Get returns the project with the given id.
func (s *Store) Get(id string) (project.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.projects[i].Clone(), true
	}
	return project.Project{}, false
}

// Len returns the number of held projects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// Loading reports whether a refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error of the last failed refresh, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// SetError records an error for display without touching the list.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns the list and its status together.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Projects:   cloneAll(s.projects),
		Loading:    s.loading,
		Err:        s.err,
		Generation: s.generation,
	}
}

// Apply merges one change-feed event.
func (s *Store) Apply(e ChangeEvent) Outcome {
	s.mu.Lock()
	if s.journaling {
		s.journal = append(s.journal, e)
	}
	o := s.applyLocked(e)
	n := len(s.projects)
	s.mu.Unlock()

	s.metrics.observeEvent(e.Type, o)
	if o != OutcomeIgnored && o != OutcomeStale {
		s.metrics.setProjects(n)
		s.notify()
	}
	return o
}

// Replace swaps the whole list for rows, e.g. after an out-of-band fetch.
// Any refresh still in flight is superseded.
func (s *Store) Replace(rows []project.Project) {
	s.mu.Lock()
	s.generation++
	s.journaling = false
	s.journal = nil
	s.loading = false
	s.replaceAllLocked(rows)
	n := len(s.projects)
	s.mu.Unlock()

	s.metrics.setProjects(n)
	s.notify()
}

// BeginRefresh marks the start of a full fetch. Feed events applied until
// the matching CompleteRefresh are replayed over the fetched rows.
func (s *Store) BeginRefresh() RefreshToken {
	s.mu.Lock()
	s.generation++
	s.journaling = true
	s.journal = nil
	s.loading = true
	tok := RefreshToken{gen: s.generation}
	s.mu.Unlock()

	s.notify()
	return tok
}

// CompleteRefresh finishes the refresh identified by tok. It reports false
// when a newer refresh (or Replace) superseded tok; the rows are dropped.
// On fetchErr the current list is kept and the error recorded.
func (s *Store) CompleteRefresh(tok RefreshToken, rows []project.Project, fetchErr error) bool {
	s.mu.Lock()
	if tok.gen != s.generation {
		s.mu.Unlock()
		s.metrics.observeRefresh("superseded")
		return false
	}
	journal := s.journal
	s.journaling = false
	s.journal = nil
	s.loading = false

	if fetchErr != nil {
		s.err = fetchErr
		s.mu.Unlock()
		s.metrics.observeRefresh("error")
		s.notify()
		return true
	}

	s.err = nil
	s.replaceAllLocked(rows)
	for _, e := range journal {
		s.applyLocked(e)
	}
	n := len(s.projects)
	s.mu.Unlock()

	s.metrics.observeRefresh("ok")
	s.metrics.setProjects(n)
	s.notify()
	return true
}

// Refresh refetches the full list through f and reconciles it.
func (s *Store) Refresh(ctx context.Context, f Fetcher) error {
	tok := s.BeginRefresh()
	rows, err := f.ListProjects(ctx)
	s.CompleteRefresh(tok, rows, err)
	return err
}

// OptimisticAdd shows p before the server confirms it.
func (s *Store) OptimisticAdd(p project.Project) Rollback {
	s.mu.Lock()
	var prev *project.Project
	if i := s.indexLocked(p.ID); i >= 0 {
		old := s.projects[i]
		prev = &old
		s.removeAtLocked(i)
	}
	delete(s.tombstones, p.ID)
	rec := p.Clone()
	s.insertLocked(rec)
	seq := s.track(p.ID, pendingAdd, prev, rec)
	s.mu.Unlock()

	s.notify()
	return s.rollback(p.ID, seq)
}

// OptimisticUpdate applies pt to the record with id before the server
// confirms it. Unknown ids are a no-op.
func (s *Store) OptimisticUpdate(id string, pt project.Patch) Rollback {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return func() {}
	}
	old := s.projects[i]
	rec := pt.Apply(old)
	s.projects[i] = rec
	seq := s.track(id, pendingUpdate, &old, rec)
	s.mu.Unlock()

	s.notify()
	return s.rollback(id, seq)
}

// OptimisticRemove hides the record with id before the server confirms the
// delete. Inserts and updates for id from the feed stay hidden until the
// delete is confirmed or rolled back; a rollback shows the newest of them.
func (s *Store) OptimisticRemove(id string) Rollback {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return func() {}
	}
	old := s.projects[i]
	s.removeAtLocked(i)
	s.tombstones[id] = time.Now()
	s.pruneTombstonesLocked()
	seq := s.track(id, pendingRemove, &old, project.Project{})
	s.mu.Unlock()

	s.notify()
	return s.rollback(id, seq)
}

// ResolvePlaceholder swaps an optimistic placeholder for the server's row.
// If the feed already delivered the row, the newer version wins.
func (s *Store) ResolvePlaceholder(tmpID string, p project.Project) {
	s.mu.Lock()
	delete(s.pending, tmpID)
	if i := s.indexLocked(tmpID); i >= 0 {
		s.removeAtLocked(i)
	}
	s.upsertLocked(p.Clone())
	n := len(s.projects)
	s.mu.Unlock()

	s.metrics.setProjects(n)
	s.notify()
}

func (s *Store) track(id string, kind pendingKind, prev *project.Project, rec project.Project) uint64 {
	s.seq++
	s.pending[id] = pendingOp{seq: s.seq, kind: kind, prev: prev, rec: rec}
	return s.seq
}

func (s *Store) rollback(id string, seq uint64) Rollback {
	return func() {
		s.mu.Lock()
		op, ok := s.pending[id]
		if !ok || op.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		switch op.kind {
		case pendingAdd:
			if i := s.indexLocked(id); i >= 0 {
				s.removeAtLocked(i)
			}
			if op.prev != nil {
				s.insertLocked(*op.prev)
			}
		case pendingUpdate:
			if i := s.indexLocked(id); i >= 0 && op.prev != nil {
				s.projects[i] = *op.prev
			}
		case pendingRemove:
			delete(s.tombstones, id)
			if s.indexLocked(id) < 0 && op.prev != nil {
				s.insertLocked(*op.prev)
			}
		}
		n := len(s.projects)
		s.mu.Unlock()

		s.metrics.setProjects(n)
		s.notify()
	}
}

// applyLocked merges e. Caller holds s.mu.
func (s *Store) applyLocked(e ChangeEvent) Outcome {
	key := e.Key()
	if key == "" {
		return OutcomeIgnored
	}
	switch e.Type {
	case EventInsert, EventUpdate:
		if e.Record.ID == "" {
			return OutcomeIgnored
		}
		if op, ok := s.pending[key]; ok && op.kind == pendingRemove {
			// The row stays hidden until the delete lands or is rolled
			// back; a rollback restores the latest server state.
			if op.prev == nil || !e.Record.Version().Before(op.prev.Version()) {
				latest := e.Record.Clone()
				op.prev = &latest
				s.pending[key] = op
			}
			return OutcomeIgnored
		}
		if deletedAt, dead := s.tombstones[key]; dead {
			// A deleted record only comes back through a change committed
			// after the delete.
			if e.CommitTimestamp.IsZero() || !e.CommitTimestamp.After(deletedAt) {
				return OutcomeIgnored
			}
			delete(s.tombstones, key)
		}
		// Server truth supersedes any optimistic state for this id.
		delete(s.pending, key)
		return s.upsertLocked(e.Record.Clone())
	case EventDelete:
		s.tombstones[key] = e.CommitTimestamp
		s.pruneTombstonesLocked()
		delete(s.pending, key)
		i := s.indexLocked(key)
		if i < 0 {
			return OutcomeIgnored
		}
		s.removeAtLocked(i)
		return OutcomeRemoved
	}
	return OutcomeIgnored
}

// upsertLocked inserts rec or replaces the held record with the same id
// (or the placeholder with the same project_id) unless rec is older.
func (s *Store) upsertLocked(rec project.Project) Outcome {
	i := s.indexLocked(rec.ID)
	if i < 0 {
		if j := s.placeholderIndexLocked(rec.ProjectID); j >= 0 {
			delete(s.pending, s.projects[j].ID)
			s.removeAtLocked(j)
		}
		s.insertLocked(rec)
		return OutcomeInserted
	}
	held := s.projects[i]
	if rec.Version().Before(held.Version()) {
		return OutcomeStale
	}
	if rec.Created().Equal(held.Created()) {
		s.projects[i] = rec
	} else {
		s.removeAtLocked(i)
		s.insertLocked(rec)
	}
	return OutcomeUpdated
}

// insertLocked places rec before the first record created earlier than it.
func (s *Store) insertLocked(rec project.Project) {
	created := rec.Created()
	at := len(s.projects)
	for i, p := range s.projects {
		if p.Created().Before(created) {
			at = i
			break
		}
	}
	s.projects = append(s.projects, project.Project{})
	copy(s.projects[at+1:], s.projects[at:])
	s.projects[at] = rec
}

func (s *Store) removeAtLocked(i int) {
	s.projects = append(s.projects[:i], s.projects[i+1:]...)
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) placeholderIndexLocked(projectID string) int {
	if projectID == "" {
		return -1
	}
	for i := range s.projects {
		if s.projects[i].ProjectID == projectID && project.IsPlaceholder(s.projects[i].ID) {
			return i
		}
	}
	return -1
}

// replaceAllLocked installs rows as the new list. Unconfirmed optimistic
// adds and removes are re-applied on top so an in-flight create or delete
// doesn't flicker.
func (s *Store) replaceAllLocked(rows []project.Project) {
	list := cloneAll(rows)
	project.SortByCreatedDesc(list)
	s.projects = dedupe(list)
	s.tombstones = make(map[string]time.Time)

	for id, op := range s.pending {
		switch op.kind {
		case pendingAdd:
			if s.indexLocked(id) >= 0 {
				continue
			}
			if project.IsPlaceholder(id) && s.hasProjectIDLocked(op.rec.ProjectID) {
				// Server row already present under its real id.
				delete(s.pending, id)
				continue
			}
			s.insertLocked(op.rec)
		case pendingRemove:
			s.tombstones[id] = time.Now()
			if i := s.indexLocked(id); i >= 0 {
				if op.prev == nil || !s.projects[i].Version().Before(op.prev.Version()) {
					latest := s.projects[i]
					op.prev = &latest
					s.pending[id] = op
				}
				s.removeAtLocked(i)
			}
		case pendingUpdate:
			delete(s.pending, id)
		}
	}
}

// pruneTombstonesLocked drops the oldest tombstones beyond maxTombstones.
// Tombstones of deletes still in flight are kept.
func (s *Store) pruneTombstonesLocked() {
	if len(s.tombstones) <= maxTombstones {
		return
	}
	type entry struct {
		id string
		at time.Time
	}
	var old []entry
	for id, at := range s.tombstones {
		if op, ok := s.pending[id]; ok && op.kind == pendingRemove {
			continue
		}
		old = append(old, entry{id, at})
	}
	sort.Slice(old, func(i, j int) bool { return old[i].at.Before(old[j].at) })
	for _, e := range old {
		if len(s.tombstones) <= maxTombstones {
			break
		}
		delete(s.tombstones, e.id)
	}
}

func (s *Store) hasProjectIDLocked(projectID string) bool {
	if projectID == "" {
		return false
	}
	for i := range s.projects {
		if s.projects[i].ProjectID == projectID {
			return true
		}
	}
	return false
}

// notify calls onChange without the lock held so the callback may read the
// store.
func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func cloneAll(ps []project.Project) []project.Project {
	if ps == nil {
		return nil
	}
	out := make([]project.Project, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// dedupe keeps the first occurrence of each id in an already-sorted list.
func dedupe(ps []project.Project) []project.Project {
	seen := make(map[string]bool, len(ps))
	out := ps[:0]
	for _, p := range ps {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
