// Package handlers is the scheduler shell: a thin HTTP surface with a
// manual-trigger endpoint, a run-history endpoint, and a daily UTC timer.
// Trigger calls acknowledge immediately; the work runs asynchronously and
// its outcome is only observable via the run history.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Trigger is the unit of work the shell schedules.
type Trigger interface {
	RunDaily(ctx context.Context) error
}

// runTimeout bounds one full daily cycle.
const runTimeout = 2 * time.Hour

// Server hosts the admin HTTP surface and the daily timer.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	trigger    Trigger
	runs       *RunLog
	hourUTC    int

	timerCancel context.CancelFunc
}

func NewServer(port int, secret string, hourUTC int, trigger Trigger, logger *zap.Logger) *Server {
	s := &Server{
		logger:  logger.Named("server"),
		trigger: trigger,
		runs:    NewRunLog(),
		hourUTC: hourUTC,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(sharedSecretMiddleware(secret))
		r.Post("/trigger", s.handleTrigger)
		r.Get("/runs", s.handleRuns)
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleTrigger(w http.ResponseWriter, _ *http.Request) {
	id := s.launch("manual trigger")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "accepted",
		"run":    id,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.runs.Recent())
}

// launch starts one run in the background and returns its run id.
func (s *Server) launch(reason string) string {
	id := s.runs.Start(reason)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		s.logger.Info("run started", zap.String("run", id), zap.String("reason", reason))
		err := s.trigger.RunDaily(ctx)
		s.runs.Finish(id, err)
		if err != nil {
			s.logger.Error("run failed", zap.String("run", id), zap.Error(err))
			return
		}
		s.logger.Info("run succeeded", zap.String("run", id))
	}()
	return id
}

// Start runs the HTTP server and the daily timer until Stop is called.
func (s *Server) Start() error {
	var timerCtx context.Context
	timerCtx, s.timerCancel = context.WithCancel(context.Background())
	go s.runTimer(timerCtx)

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// runTimer fires once daily at the configured UTC hour.
func (s *Server) runTimer(ctx context.Context) {
	for {
		wait := untilNext(time.Now().UTC(), s.hourUTC)
		s.logger.Info("next scheduled run", zap.Duration("in", wait))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			s.launch("scheduled")
		}
	}
}

func untilNext(now time.Time, hourUTC int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// Stop gracefully shuts down the HTTP server and the timer.
func (s *Server) Stop() {
	s.logger.Info("shutting down server...")
	if s.timerCancel != nil {
		s.timerCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.logger.Info("server stopped")
}
