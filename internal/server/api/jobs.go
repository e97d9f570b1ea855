package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/curator/internal/jobs"
)

type scrapeRequest struct {
	SourceID *int64 `json:"source_id"`
}

type jobAccepted struct {
	JobID string `json:"job_id"`
}

// StartScrape queues a scrape of one source, or all sources when no
// source_id is given.
func (h *Handler) StartScrape(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req scrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.SourceID != nil && *req.SourceID <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid source_id")
		return
	}

	id, err := h.jobs.StartScrape(r.Context(), req.SourceID)
	switch {
	case errors.Is(err, jobs.ErrSourceNotFound):
		writeError(w, r, http.StatusNotFound, "source not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to start scrape job")
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	log.Info().Str("job_id", id).Msg("Scrape job accepted")
	writeJSON(w, r, http.StatusAccepted, jobAccepted{JobID: id})
}

// StartRescore queues a rescore of every article.
func (h *Handler) StartRescore(w http.ResponseWriter, r *http.Request) {
	id, err := h.jobs.StartRescoreAll(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to start rescore job")
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	hlog.FromRequest(r).Info().Str("job_id", id).Msg("Rescore job accepted")
	writeJSON(w, r, http.StatusAccepted, jobAccepted{JobID: id})
}

// ListJobs returns every known job, newest first.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	list := h.jobs.Jobs()
	if list == nil {
		list = []jobs.Status{}
	}
	writeJSON(w, r, http.StatusOK, list)
}

// GetJob returns the status of one job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	status, ok := h.jobs.Status(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// CancelJob requests cancellation of a scrape job.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.jobs.Cancel(id)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, jobs.ErrJobNotCancelable):
		writeError(w, r, http.StatusConflict, "job cannot be canceled")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("job_id", id).Msg("Failed to cancel job")
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	hlog.FromRequest(r).Info().Str("job_id", id).Msg("Cancellation requested")
	status, _ := h.jobs.Status(id)
	writeJSON(w, r, http.StatusAccepted, status)
}
