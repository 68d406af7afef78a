// Package statusserver exposes the synced project list, feed status and
// prometheus metrics over HTTP for `wispctl watch`.
package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wisp/internal/project"
	"wisp/internal/store"
)

// DefaultPort is the default status server port.
const DefaultPort = 9877

// PortEnv overrides DefaultPort.
const PortEnv = "WISP_STATUS_PORT"

// StatusFunc reports the change feed status and its last error.
type StatusFunc func() (string, error)

// Server serves read-only views of a store.
type Server struct {
	store    *store.Store
	status   StatusFunc
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	addr     string
	server   *http.Server
	listener net.Listener
}

// Addr resolves the listen address: addr if non-empty, else the port
// from WISP_STATUS_PORT, else DefaultPort.
func Addr(addr string) string {
	if addr != "" {
		return addr
	}
	port := DefaultPort
	if portStr := os.Getenv(PortEnv); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil && p > 0 && p < 65536 {
			port = p
		}
	}
	return fmt.Sprintf("127.0.0.1:%d", port)
}

// New creates a server for st. status and gatherer may be nil.
func New(st *store.Store, status StatusFunc, gatherer prometheus.Gatherer, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    st,
		status:   status,
		gatherer: gatherer,
		logger:   logger,
		addr:     Addr(addr),
	}
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/projects", s.handleProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}", s.handleProject).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Start listens and serves in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server listen: %w", err)
	}
	s.listener = ln
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()
	s.logger.Info("status server listening", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ListenAddr returns the bound address once started.
func (s *Server) ListenAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

type statusResponse struct {
	Feed     string `json:"feed"`
	FeedErr  string `json:"feed_error,omitempty"`
	Loading  bool   `json:"loading"`
	Err      string `json:"error,omitempty"`
	Projects int    `json:"projects"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	resp := statusResponse{Loading: snap.Loading, Projects: len(snap.Projects), Feed: "unknown"}
	if snap.Err != nil {
		resp.Err = snap.Err.Error()
	}
	if s.status != nil {
		feed, err := s.status()
		resp.Feed = feed
		if err != nil {
			resp.FeedErr = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	ps := s.store.Projects()
	if ps == nil {
		ps = []project.Project{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.store.Get(id)
	if !ok {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
