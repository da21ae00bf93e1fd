package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/commercepulse/internal/api/middleware"
	"github.com/dvloznov/commercepulse/internal/ingest"
	"github.com/dvloznov/commercepulse/internal/jobs"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	liveDir   string
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler. Only files directly inside
// liveDir can be enqueued.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, liveDir string, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		liveDir:   liveDir,
		log:       log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Path:   query.Get("path"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// EnqueueFile handles POST /api/ingest
func (h *JobsHandler) EnqueueFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		middleware.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}
	if !strings.HasSuffix(req.Path, ingest.LiveFileExt) {
		middleware.WriteError(w, http.StatusBadRequest, "path must be a .jsonl file")
		return
	}
	path, err := h.livePath(req.Path)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.IngestFileJob{Path: path}
	published, err := h.publisher.PublishIngestFile(r.Context(), job)
	if err != nil {
		h.log.Error().Err(err).Str("path", path).Msg("Failed to enqueue file")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue file")
		return
	}
	if !published {
		middleware.WriteError(w, http.StatusConflict, "File is already queued")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("path", job.Path).Msg("Enqueued file via API")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

var errOutsideLiveDir = errors.New("path must name a file in the live events directory")

// livePath checks that p is a file directly inside the live directory and
// returns it joined onto that directory, the form the watcher publishes.
func (h *JobsHandler) livePath(p string) (string, error) {
	if h.liveDir == "" {
		return "", errOutsideLiveDir
	}
	dir, err := filepath.Abs(h.liveDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel != filepath.Base(rel) || rel == "." || rel == ".." {
		return "", errOutsideLiveDir
	}
	return filepath.Join(h.liveDir, rel), nil
}
