// Package api serves the operational HTTP surface: probes, Prometheus
// metrics and the usage statistics readout. It never touches the chat
// transport; everything user-facing goes through the bot.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rondo/internal/analytics"
	"rondo/internal/health"
	"rondo/internal/log"
)

// Server is the ops endpoint set bound to one listener.
type Server struct {
	httpServer *http.Server
}

// New wires the router. analyticsStore may be nil, which disables /stats.
func New(listen string, manager *health.Manager, analyticsStore *analytics.Store) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/healthz", manager.ServeHealth)
	r.Get("/readyz", manager.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	if analyticsStore != nil {
		r.Get("/stats", serveStats(analyticsStore))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              listen,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger := log.WithComponent("api")
	logger.Info().Str("addr", s.httpServer.Addr).Msg("ops server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func serveStats(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			http.Error(w, `{"error":"stats unavailable"}`, http.StatusInternalServerError)
			return
		}
		detailed, err := store.DetailedStats(r.Context())
		if err != nil {
			http.Error(w, `{"error":"stats unavailable"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			analytics.Stats
			Detailed analytics.DetailedStats `json:"detailed"`
		}{stats, detailed})
	}
}
