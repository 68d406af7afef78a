// Package bootstrap assembles the clients shared by wisp and wispctl from
// the config file and the local session.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"wisp/internal/api"
	"wisp/internal/backend"
	"wisp/internal/config"
	"wisp/internal/logging"
	"wisp/internal/progress"
	"wisp/internal/realtime"
	"wisp/internal/state"
	"wisp/internal/store"
	"wisp/internal/syncer"
	"wisp/internal/telemetry"
)

// ErrNotSignedIn is returned by RequireSession when no token is stored.
var ErrNotSignedIn = errors.New("not signed in; run `wispctl login` first")

// Options controls Open.
type Options struct {
	ConfigPath string
	Service    string
	// LogFile sends JSON logs to <state dir>/logs/<Service>.log instead of
	// LogWriter.
	LogFile   bool
	LogWriter io.Writer
	// LogLevel overrides the configured level when set.
	LogLevel string
}

// Env holds everything a command needs.
type Env struct {
	Config    config.Config
	Logger    *slog.Logger
	Sessions  *state.Store
	Session   state.Session
	Backend   *backend.Client
	API       *api.Client
	Store     *store.Store
	Registry  *prometheus.Registry
	Telemetry *telemetry.Provider

	closers []io.Closer
}

// Open loads config and session and builds the clients.
func Open(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	sessions, err := state.NewStore()
	if err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}

	levelName := cfg.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	lc := logging.Config{Level: level, Writer: opts.LogWriter, Service: opts.Service}
	if opts.LogFile {
		lc.File = filepath.Join(sessions.BaseDir(), "logs", opts.Service+".log")
	}
	logger, logCloser, err := logging.New(lc)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		closers:  []io.Closer{logCloser},
	}

	env.Session, err = sessions.Load()
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	env.Telemetry, err = telemetry.Setup(ctx, opts.Service)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		env.Telemetry = &telemetry.Provider{}
	}

	env.Backend = backend.New(cfg.BackendURL, cfg.AnonKey,
		backend.WithLogger(logger),
		backend.WithAccessToken(env.Session.AccessToken),
	)
	env.API = api.New(api.Options{
		BaseURL:   cfg.APIBaseURL,
		Dev:       cfg.Dev,
		DevOrigin: cfg.DevOrigin,
	}, api.WithLogger(logger))

	env.Registry = prometheus.NewRegistry()
	env.Registry.MustRegister(collectors.NewGoCollector())
	env.Store = store.New(store.WithMetrics(store.NewMetrics(env.Registry)))

	logger.Debug("bootstrap complete",
		"config", cfg.Path,
		"signed_in", env.Session.SignedIn(),
		"tracing", env.Telemetry.Enabled())
	return env, nil
}

// RequireSession fails unless a user is signed in.
func (e *Env) RequireSession() (state.Session, error) {
	if !e.Session.SignedIn() {
		return state.Session{}, ErrNotSignedIn
	}
	return e.Session, nil
}

// NewSyncer builds the syncer and its realtime feed. Call it once per Env;
// it registers metrics on e.Registry.
func (e *Env) NewSyncer(emitter progress.Emitter) (*syncer.Syncer, *realtime.Client) {
	if emitter == nil {
		emitter = progress.Discard
	}
	s := syncer.New(e.Store, e.Backend,
		syncer.WithEmitter(emitter),
		syncer.WithLogger(e.Logger),
		syncer.WithMetrics(syncer.NewMetrics(e.Registry)),
	)

	filter := realtime.ChangeFilter{Table: backend.ProjectsTable}
	if e.Session.UserID != "" {
		filter.Filter = "user_id=eq." + e.Session.UserID
	}
	feed := realtime.New(realtime.Config{
		URL:               e.Config.BackendURL,
		APIKey:            e.Config.AnonKey,
		Token:             e.Backend.AccessToken,
		Channel:           e.Config.Realtime.Channel,
		Filter:            filter,
		HeartbeatInterval: e.Config.Realtime.HeartbeatInterval,
		JoinTimeout:       e.Config.Realtime.JoinTimeout,
		Logger:            e.Logger,
		OnStatus:          s.HandleStatus,
	})
	e.closers = append(e.closers, feed)
	return s, feed
}

// Close flushes telemetry and closes the feed and the log file.
func (e *Env) Close() error {
	var errs []error
	if e.Telemetry != nil {
		errs = append(errs, e.Telemetry.Shutdown(context.Background()))
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}
