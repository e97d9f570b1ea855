package jobs

import (
	"context"
	"time"

	"reddot-watch/curator/internal/extract"
	"reddot-watch/curator/internal/models"
)

// Store is the persistence the orchestrator needs. Lookups report a missing
// row with storage.ErrNotFound and CreateArticle reports an existing URL with
// storage.ErrDuplicateURL.
type Store interface {
	ListSources(ctx context.Context) ([]models.Source, error)
	GetSource(ctx context.Context, id int64) (*models.Source, error)
	MarkSourceScraped(ctx context.Context, id int64, at time.Time) error

	GetArticleByURL(ctx context.Context, url string) (*models.Article, error)
	CreateArticle(ctx context.Context, article *models.Article) error
	UpdateArticleSummary(ctx context.Context, id int64, summary string) error
	UpdateArticleInterestScore(ctx context.Context, id int64, score int) error
	LinkCategoriesToArticle(ctx context.Context, articleID int64, names []string) error
	ListArticlesForScoring(ctx context.Context) ([]models.Article, error)

	GetInterestProfile(ctx context.Context) (string, error)
}

// LinkDiscoverer returns candidate article URLs for a source, or none on failure.
type LinkDiscoverer interface {
	DiscoverLinks(ctx context.Context, src models.Source) []string
}

// ArticleFetcher returns the extracted article, or nil on failure.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, url string) *extract.Content
}

// Enricher runs the completion-backed steps. Failures yield ("", nil) and 0.
type Enricher interface {
	SummarizeAndCategorize(ctx context.Context, text string) (string, []string)
	ScoreInterest(ctx context.Context, text, profile string) int
}
