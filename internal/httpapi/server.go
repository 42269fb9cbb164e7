// Package httpapi exposes the SpeakUp analysis core over HTTP.
//
// The API is consumed by the mobile presentation layer: session lifecycle
// (start, stop, cancel, live snapshot, audio upload), drill control, the
// progress summary, recordings, goals, and achievement unlock notifications.
// Operational endpoints (/healthz, /readyz, /metrics) live on the same mux.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/app"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/config"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/health"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/observe"
)

// Server is the HTTP front of the analysis core.
type Server struct {
	app     *app.App
	cfg     config.ServerConfig
	metrics *observe.Metrics
	srv     *http.Server
}

// New assembles the full route table and wraps it in the observability
// middleware. The checkers feed the /readyz endpoint.
func New(cfg config.ServerConfig, a *app.App, metrics *observe.Metrics, checkers ...health.Checker) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	s := &Server{app: a, cfg: cfg, metrics: metrics}

	mux := http.NewServeMux()

	// Session lifecycle.
	mux.HandleFunc("POST /v1/sessions", s.handleStartSession)
	mux.HandleFunc("POST /v1/sessions/current/stop", s.handleStopSession)
	mux.HandleFunc("POST /v1/sessions/current/cancel", s.handleCancelSession)
	mux.HandleFunc("POST /v1/sessions/current/audio", s.handleSessionAudio)
	mux.HandleFunc("GET /v1/sessions/current/live", s.handleLive)

	// Progress and history.
	mux.HandleFunc("GET /v1/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/recordings", s.handleRecordings)
	mux.HandleFunc("POST /v1/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /v1/goals", s.handleListGoals)
	mux.HandleFunc("GET /v1/achievements", s.handleAchievements)
	mux.HandleFunc("GET /v1/achievements/unlocks", s.handleUnlocks)
	mux.HandleFunc("POST /v1/achievements/unlocks/ack", s.handleAcknowledgeUnlocks)

	// Operational endpoints.
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the assembled handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves HTTP until ctx is cancelled, then drains connections within
// the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
