// Package api exposes the administrative HTTP surface over the backup
// engine.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/api/handler"
	mw "github.com/edvin/backupd/internal/api/middleware"
	"github.com/edvin/backupd/internal/backup"
)

type Server struct {
	router chi.Router
	logger zerolog.Logger
	engine *backup.Engine
	// pool is nil when running on the in-memory stores.
	pool *pgxpool.Pool
}

func NewServer(logger zerolog.Logger, engine *backup.Engine, pool *pgxpool.Pool) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		engine: engine,
		pool:   pool,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		admin := handler.NewAdmin(s.engine)
		r.Get("/stats", admin.Stats)
		r.Post("/cleanup", admin.Cleanup)
		r.Get("/export/report", admin.ExportReport)

		b := handler.NewBackup(s.engine)
		r.Get("/backups", b.List)
		r.Post("/backups", b.Create)
		r.Get("/backups/{id}", b.Get)
		r.Delete("/backups/{id}", b.Delete)
		r.Get("/backups/{id}/verify", b.Verify)
		r.Post("/backups/{id}/restore", b.Restore)

		sched := handler.NewSchedule(s.engine)
		r.Get("/schedules", sched.List)
		r.Post("/schedules", sched.Create)
		r.Get("/schedules/{id}", sched.Get)
		r.Put("/schedules/{id}", sched.Update)
		r.Delete("/schedules/{id}", sched.Delete)

		rp := handler.NewRestorePoint(s.engine)
		r.Get("/restore-points", rp.List)
		r.Post("/restore-points", rp.Create)
		r.Get("/restore-points/{id}", rp.Get)
		r.Delete("/restore-points/{id}", rp.Delete)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["db"] = err.Error()
			healthy = false
		} else {
			checks["db"] = "ok"
		}
	} else {
		checks["store"] = "memory"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
