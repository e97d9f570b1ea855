// Package api implements the JSON endpoints for sources, articles, categories,
// settings and jobs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/curator/internal/jobs"
	"reddot-watch/curator/internal/models"
	"reddot-watch/curator/internal/storage"
)

const maxBodyBytes = 1 << 20

// Store is the persistence used by the handlers.
type Store interface {
	ListSources(ctx context.Context) ([]models.Source, error)
	GetSource(ctx context.Context, id int64) (*models.Source, error)
	CreateSource(ctx context.Context, source *models.Source) error
	UpdateSource(ctx context.Context, source *models.Source) error
	DeleteSource(ctx context.Context, id int64) error

	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]models.Article, error)
	MarkArticleRead(ctx context.Context, id int64, read bool) error
	ListCategories(ctx context.Context) ([]models.Category, error)

	GetInterestProfile(ctx context.Context) (string, error)
	SetInterestProfile(ctx context.Context, profile string) error
}

// JobController starts, inspects and cancels background jobs.
type JobController interface {
	StartScrape(ctx context.Context, sourceID *int64) (string, error)
	StartRescoreAll(ctx context.Context) (string, error)
	Status(id string) (jobs.Status, bool)
	Jobs() []jobs.Status
	Cancel(id string) error
}

// PageFetcher downloads a source home page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// SelectorSuggester proposes an article link selector for a home page.
type SelectorSuggester interface {
	SuggestSelector(ctx context.Context, page string) string
}

// Handler holds dependencies for the API handlers.
// Loggers are taken from the request context.
type Handler struct {
	store     Store
	jobs      JobController
	pages     PageFetcher
	suggester SelectorSuggester
}

// NewHandler creates a new handler instance.
func NewHandler(store Store, jobs JobController, pages PageFetcher, suggester SelectorSuggester) *Handler {
	return &Handler{store: store, jobs: jobs, pages: pages, suggester: suggester}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sources", h.ListSources)
	mux.HandleFunc("POST /v1/sources", h.CreateSource)
	mux.HandleFunc("GET /v1/sources/{id}", h.GetSource)
	mux.HandleFunc("PUT /v1/sources/{id}", h.UpdateSource)
	mux.HandleFunc("DELETE /v1/sources/{id}", h.DeleteSource)
	mux.HandleFunc("POST /v1/sources/{id}/suggest-selector", h.SuggestSelector)

	mux.HandleFunc("GET /v1/articles", h.ListArticles)
	mux.HandleFunc("GET /v1/articles/{id}", h.GetArticle)
	mux.HandleFunc("PUT /v1/articles/{id}/read", h.MarkArticleRead)
	mux.HandleFunc("GET /v1/categories", h.ListCategories)

	mux.HandleFunc("GET /v1/settings/interest-profile", h.GetInterestProfile)
	mux.HandleFunc("PUT /v1/settings/interest-profile", h.SetInterestProfile)

	mux.HandleFunc("GET /v1/jobs", h.ListJobs)
	mux.HandleFunc("POST /v1/jobs/scrape", h.StartScrape)
	mux.HandleFunc("POST /v1/jobs/rescore", h.StartRescore)
	mux.HandleFunc("GET /v1/jobs/{id}", h.GetJob)
	mux.HandleFunc("POST /v1/jobs/{id}/cancel", h.CancelJob)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Error: message})
}

// writeStoreError maps repository errors to status codes and logs the unexpected ones.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, what+" not found")
	case errors.Is(err, storage.ErrDuplicateURL):
		writeError(w, r, http.StatusConflict, "a source with this URL already exists")
	default:
		hlog.FromRequest(r).Error().Err(err).Str("resource", what).Msg("Storage error")
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}
