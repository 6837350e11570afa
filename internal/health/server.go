package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves /health, /ready and /live beside the stdio MCP transport,
// plus /metrics when a gatherer is configured.
type Server struct {
	checker    *Checker
	logger     *zap.Logger
	httpServer *http.Server
	handler    http.Handler
	gathering  bool
	ready      atomic.Bool
}

// NewServer creates a new health HTTP server bound to bindAddr
// (127.0.0.1 when empty). A nil gatherer disables /metrics.
func NewServer(checker *Checker, logger *zap.Logger, port int, bindAddr string, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		checker:   checker,
		logger:    logger.Named("health"),
		gathering: gatherer != nil,
	}

	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", getOnly(s.handleHealth))
	mux.HandleFunc("/ready", getOnly(s.handleReady))
	mux.HandleFunc("/live", getOnly(s.handleLive))

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorLog: zap.NewStdLog(s.logger),
		}))
	}
	s.handler = mux

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bindAddr, port),
		Handler:           mux,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	return s
}

// Handler returns the routing handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetReady flips the /ready answer.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Health server listening",
		zap.String("addr", s.httpServer.Addr),
		zap.Bool("metrics", s.gathering),
	)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("health server: %w", err)
}

// Shutdown stops accepting connections and waits for in-flight probes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.logger.Info("Stopping health server")
	return s.httpServer.Shutdown(ctx)
}

// Response is the /health body.
type Response struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// HTTPStatus maps an overall status to the /health response code. Only
// unhealthy answers 503.
func HTTPStatus(status Status) int {
	if status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// handleHealth runs the credential and backend checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*ProbeTimeout)
	defer cancel()

	status, checks := s.checker.CheckAll(ctx)
	s.writeJSON(w, HTTPStatus(status), Response{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// handleReady answers 503 until the MCP server has started and after it
// begins shutting down.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
