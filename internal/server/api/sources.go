package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/curator/internal/models"
)

type sourceRequest struct {
	Name        *string           `json:"name"`
	URL         *string           `json:"url"`
	ScraperType *string           `json:"scraper_type"`
	Config      map[string]string `json:"config"`
}

// apply copies the present fields onto src and validates the result.
func (req sourceRequest) apply(src *models.Source) string {
	if req.Name != nil {
		src.Name = strings.TrimSpace(*req.Name)
	}
	if req.URL != nil {
		src.URL = strings.TrimSpace(*req.URL)
	}
	if req.ScraperType != nil {
		t, err := models.ParseScraperType(*req.ScraperType)
		if err != nil {
			return err.Error()
		}
		src.ScraperType = t
	}
	if req.Config != nil {
		src.Config = models.SourceConfig{}
		for k, v := range req.Config {
			src.Config[k] = strings.TrimSpace(v)
		}
	}

	if src.Name == "" {
		return "name is required"
	}
	if !validHTTPURL(src.URL) {
		return "url must be an absolute http(s) URL"
	}
	return ""
}

func validHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ListSources returns every source.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListSources(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "sources")
		return
	}
	if sources == nil {
		sources = []models.Source{}
	}
	writeJSON(w, r, http.StatusOK, sources)
}

// CreateSource adds a source.
func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	src := models.NewSource("", "")
	if msg := req.apply(src); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.CreateSource(r.Context(), src); err != nil {
		writeStoreError(w, r, err, "source")
		return
	}
	hlog.FromRequest(r).Info().Int64("source_id", src.ID).Str("url", src.URL).Msg("Source created")
	writeJSON(w, r, http.StatusCreated, src)
}

// GetSource returns one source.
func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid source id")
		return
	}
	src, err := h.store.GetSource(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "source")
		return
	}
	writeJSON(w, r, http.StatusOK, src)
}

// UpdateSource changes the fields present in the body.
func (h *Handler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid source id")
		return
	}

	var req sourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	src, err := h.store.GetSource(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "source")
		return
	}
	if msg := req.apply(src); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.UpdateSource(r.Context(), src); err != nil {
		writeStoreError(w, r, err, "source")
		return
	}
	writeJSON(w, r, http.StatusOK, src)
}

// DeleteSource removes a source; its articles stay.
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid source id")
		return
	}
	if err := h.store.DeleteSource(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "source")
		return
	}
	hlog.FromRequest(r).Info().Int64("source_id", id).Msg("Source deleted")
	w.WriteHeader(http.StatusNoContent)
}

type selectorResponse struct {
	Selector string         `json:"selector"`
	Applied  bool           `json:"applied"`
	Source   *models.Source `json:"source,omitempty"`
}

// SuggestSelector asks the completion service for an article link selector
// for the source home page. With ?apply=true the selector is saved.
func (h *Handler) SuggestSelector(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid source id")
		return
	}

	apply := false
	if raw := r.URL.Query().Get("apply"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid 'apply' parameter")
			return
		}
		apply = parsed
	}

	src, err := h.store.GetSource(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "source")
		return
	}

	page, err := h.pages.FetchPage(r.Context(), src.URL)
	if err != nil {
		log.Warn().Err(err).Str("url", src.URL).Msg("Failed to fetch source home page")
		writeError(w, r, http.StatusBadGateway, "could not fetch the source home page")
		return
	}

	selector := h.suggester.SuggestSelector(r.Context(), page)
	if selector == "" {
		writeError(w, r, http.StatusBadGateway, "no selector could be suggested")
		return
	}

	resp := selectorResponse{Selector: selector}
	if apply {
		if src.Config == nil {
			src.Config = models.SourceConfig{}
		}
		src.Config[models.ConfigArticleLinkSelector] = selector
		if err := h.store.UpdateSource(r.Context(), src); err != nil {
			writeStoreError(w, r, err, "source")
			return
		}
		resp.Applied = true
		resp.Source = src
	}

	log.Info().Int64("source_id", id).Str("selector", selector).Bool("applied", apply).Msg("Selector suggested")
	writeJSON(w, r, http.StatusOK, resp)
}
