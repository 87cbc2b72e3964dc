package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/models"
)

// Submitter accepts a post URL and returns the queued job, or a
// validation error for unacceptable input.
type Submitter interface {
	Submit(url string) (*models.ExtractionJob, error)
}

// ExtractHandler serves POST /extract-media.
type ExtractHandler struct {
	dispatcher Submitter
	logger     arbor.ILogger
}

func NewExtractHandler(dispatcher Submitter, logger arbor.ILogger) *ExtractHandler {
	return &ExtractHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type extractRequest struct {
	URL string `json:"url"`
}

// ExtractMediaHandler validates the submitted URL and queues an
// extraction job. Responds 202 with the job, 400 when the URL is
// rejected, or 503 with the failed job when the queue cannot admit it.
func (h *ExtractHandler) ExtractMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	job, err := h.dispatcher.Submit(req.URL)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			WriteError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Failed to queue extraction job")
		if job != nil {
			// Admission failed but the job was persisted in Failed state;
			// hand the caller its handle instead of hiding it behind a 500.
			WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "rejected",
				"error":  err.Error(),
				"job_id": job.ID,
				"job":    job,
			})
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to queue extraction job")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
		"job_id": job.ID,
		"job":    job,
	})
}
