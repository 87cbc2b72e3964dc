package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/interfaces"
)

// JobHandler exposes the persisted job registry for inspection.
type JobHandler struct {
	jobs   interfaces.JobStorage
	logger arbor.ILogger
}

func NewJobHandler(jobs interfaces.JobStorage, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// ListJobsHandler returns all jobs, newest first.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// GetJobHandler returns a single job by ID from /jobs/{id}.
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
