package scrape

import (
	"context"

	"github.com/rs/zerolog/log"

	"reddot-watch/curator/internal/extract"
)

// Fetcher downloads article pages and extracts their content.
type Fetcher struct {
	client    *Client
	extractor *extract.Extractor
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *Client, extractor *extract.Extractor) *Fetcher {
	return &Fetcher{client: client, extractor: extractor}
}

// FetchArticle returns nil when the page cannot be fetched or carries no
// usable text.
func (f *Fetcher) FetchArticle(ctx context.Context, url string) *extract.Content {
	page, err := f.client.FetchPage(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to fetch article")
		return nil
	}

	content := f.extractor.Extract(page)
	if content.Text == "" {
		log.Warn().Str("url", url).Msg("Article has no extractable text")
		return nil
	}
	return &content
}
