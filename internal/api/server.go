// Package api serves the worker's admin endpoints: job status, manual
// enqueueing, health and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/commercepulse/internal/api/handlers"
	"github.com/dvloznov/commercepulse/internal/api/middleware"
	"github.com/dvloznov/commercepulse/internal/jobs"
)

// Deps are the collaborators of the admin router.
type Deps struct {
	Jobs      jobs.JobStore
	Publisher jobs.Publisher
	LiveDir   string
	Gatherer  prometheus.Gatherer
	Log       zerolog.Logger
}

// NewRouter builds the admin HTTP handler.
func NewRouter(deps Deps) http.Handler {
	jobsHandler := handlers.NewJobsHandler(deps.Jobs, deps.Publisher, deps.LiveDir, deps.Log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
	mux.HandleFunc("POST /api/ingest", jobsHandler.EnqueueFile)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return middleware.Recovery(deps.Log)(
		middleware.RequestID(
			middleware.Logger(deps.Log)(mux),
		),
	)
}

// NewServer wraps the router in an http.Server with the usual timeouts.
func NewServer(addr string, deps Deps) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
