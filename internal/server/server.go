// Package server exposes read-only snapshots of the monitoring loop
// for the dashboard, plus health and Prometheus endpoints. It never
// mutates monitor state.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"usage-alerts/internal/monitor"
	"usage-alerts/internal/rules"
)

// Options tune the HTTP listener.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the snapshot API.
type Server struct {
	mon    *monitor.Monitor
	logger zerolog.Logger
	http   *http.Server
}

// New constructs the server around a monitoring session.
func New(opts Options, mon *monitor.Monitor, logger zerolog.Logger) *Server {
	s := &Server{
		mon:    mon,
		logger: logger.With().Str("component", "server").Logger(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/trends", s.handleTrends).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/alerts", s.handleAlerts).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/records", s.handleRecords).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.mon.Latest()
	if snap == nil {
		s.respondNoData(w)
		return
	}
	s.respondJSON(w, map[string]any{
		"taken_at":   snap.TakenAt,
		"statistics": snap.Statistics,
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	snap := s.mon.Latest()
	if snap == nil {
		s.respondNoData(w)
		return
	}
	s.respondJSON(w, map[string]any{
		"taken_at": snap.TakenAt,
		"buckets":  snap.Buckets,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snap := s.mon.Latest()
	if snap == nil {
		s.respondNoData(w)
		return
	}

	alerts := snap.Alerts
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.respondError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if limit < len(alerts) {
			alerts = alerts[:limit]
		}
	}
	if alerts == nil {
		alerts = []rules.AlertEvent{}
	}
	s.respondJSON(w, map[string]any{
		"taken_at": snap.TakenAt,
		"alerts":   alerts,
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	snap := s.mon.Latest()
	if snap == nil {
		s.respondNoData(w)
		return
	}
	s.respondJSON(w, map[string]any{
		"taken_at": snap.TakenAt,
		"records":  snap.Records,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]any{
		"status": "ok",
		"ready":  s.mon.Latest() != nil,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) respondNoData(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "no data available"})
}

func (s *Server) respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
