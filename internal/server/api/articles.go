package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/curator/internal/models"
	"reddot-watch/curator/internal/server/pagination"
	"reddot-watch/curator/internal/storage"
)

const (
	defaultArticleLimit = 50
	maxArticleLimit     = 200
)

type articlePage struct {
	Items      []models.Article `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// parseArticleFilter builds a storage filter from the query string.
func parseArticleFilter(r *http.Request) (storage.ArticleFilter, string) {
	q := r.URL.Query()
	filter := storage.ArticleFilter{Limit: defaultArticleLimit}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, "invalid 'limit' parameter"
		}
		filter.Limit = min(limit, maxArticleLimit)
	}

	if raw := q.Get("cursor"); raw != "" {
		cursor, err := pagination.Decode(raw)
		if err != nil {
			return filter, "invalid 'cursor' parameter"
		}
		filter.CursorCreatedAt = &cursor.CreatedAt
		filter.CursorID = &cursor.ID
	}

	filter.Category = strings.TrimSpace(q.Get("category"))

	if raw := q.Get("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, "invalid 'unread' parameter"
		}
		filter.UnreadOnly = unread
	}

	if raw := q.Get("min_score"); raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil || score < 0 || score > 100 {
			return filter, "invalid 'min_score' parameter"
		}
		filter.MinScore = &score
	}

	if raw := q.Get("source_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, "invalid 'source_id' parameter"
		}
		filter.SourceID = &id
	}

	return filter, ""
}

// ListArticles returns a page of articles, newest first, without their
// original content.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	filter, msg := parseArticleFilter(r)
	if msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	pageSize := filter.Limit
	filter.Limit = pageSize + 1

	articles, err := h.store.ListArticles(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err, "articles")
		return
	}

	page := articlePage{Items: []models.Article{}}
	if len(articles) > pageSize {
		articles = articles[:pageSize]
		last := articles[len(articles)-1]
		page.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	for _, a := range articles {
		a.OriginalContent = ""
		page.Items = append(page.Items, a)
	}

	log.Debug().Int("count", len(page.Items)).Bool("has_more", page.NextCursor != "").Msg("Articles listed")
	writeJSON(w, r, http.StatusOK, page)
}

// GetArticle returns one article with its original content.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid article id")
		return
	}
	article, err := h.store.GetArticle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "article")
		return
	}
	writeJSON(w, r, http.StatusOK, article)
}

type readRequest struct {
	Read *bool `json:"read"`
}

// MarkArticleRead sets the read flag. An empty body marks the article read.
func (h *Handler) MarkArticleRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid article id")
		return
	}

	var req readRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	read := true
	if req.Read != nil {
		read = *req.Read
	}

	if err := h.store.MarkArticleRead(r.Context(), id, read); err != nil {
		writeStoreError(w, r, err, "article")
		return
	}

	article, err := h.store.GetArticle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "article")
		return
	}
	writeJSON(w, r, http.StatusOK, article)
}

// ListCategories returns every category.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "categories")
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, r, http.StatusOK, categories)
}
