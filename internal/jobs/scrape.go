package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"reddot-watch/curator/internal/models"
	"reddot-watch/curator/internal/storage"
)

// scrape runs the pipeline over sources: discover every link first so the
// total is known, then fetch, store and enrich articles source by source.
func (o *Orchestrator) scrape(ctx context.Context, id string, sources []models.Source, logger zerolog.Logger) error {
	o.registry.Update(id, func(s *Status) {
		s.Status = StateInProgress
		s.TotalSources = len(sources)
		s.Message = fmt.Sprintf("Discovering article links in %d sources", len(sources))
	})

	links, total := o.prescan(ctx, id, sources, logger)
	if o.registry.CancelRequested(id) {
		return errCanceled
	}

	o.registry.Update(id, func(s *Status) {
		s.TotalArticles = total
		s.Message = fmt.Sprintf("Found %d candidate articles in %d sources", total, len(sources))
	})
	logger.Info().Int("total_sources", len(sources)).Int("total_articles", total).Msg("Link discovery finished")

	progress := newTracker(o.registry, id, total, o.now)
	profile := &jobProfile{store: o.store}

	for i, src := range sources {
		if o.registry.CancelRequested(id) {
			return errCanceled
		}

		srcLogger := logger.With().Int64("source_id", src.ID).Str("source", src.Name).Logger()
		o.registry.Update(id, func(s *Status) {
			s.Message = fmt.Sprintf("Scraping %s (%d of %d sources)", src.Name, i+1, len(sources))
		})

		for j, url := range links[i] {
			if o.registry.CancelRequested(id) {
				return errCanceled
			}

			outcome, err := o.processArticle(ctx, src, url, profile, srcLogger)
			if errors.Is(err, storage.ErrSourceGone) {
				// Nothing more can be stored for this source; count the rest as failed.
				srcLogger.Warn().Int("remaining", len(links[i])-j).Msg("Source was deleted, skipping its remaining links")
				for range links[i][j:] {
					progress.Report(OutcomeFailed)
				}
				break
			}
			if err != nil {
				return err
			}
			progress.Report(outcome)
		}

		err := o.store.MarkSourceScraped(ctx, src.ID, o.now())
		if errors.Is(err, storage.ErrNotFound) {
			srcLogger.Warn().Msg("Source was deleted during the scrape")
		} else if err != nil {
			return fmt.Errorf("mark source %d scraped: %w", src.ID, err)
		}

		o.registry.Update(id, func(s *Status) { s.ProcessedSources++ })
		srcLogger.Debug().Int("links", len(links[i])).Msg("Source done")
	}
	return nil
}

// prescan collects each source's links in discovery order. A URL found more
// than once is kept only where it was first seen.
func (o *Orchestrator) prescan(ctx context.Context, id string, sources []models.Source, logger zerolog.Logger) ([][]string, int) {
	links := make([][]string, len(sources))
	seen := make(map[string]struct{})
	total := 0

	for i, src := range sources {
		if o.registry.CancelRequested(id) {
			break
		}
		for _, url := range o.discoverer.DiscoverLinks(ctx, src) {
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			links[i] = append(links[i], url)
			total++
		}
		logger.Debug().Int64("source_id", src.ID).Int("links", len(links[i])).Msg("Discovered links")
	}
	return links, total
}

// processArticle handles one candidate URL. Per-article problems become an
// Outcome; an error means storage itself is failing and the job must stop.
func (o *Orchestrator) processArticle(ctx context.Context, src models.Source, url string, profile *jobProfile, logger zerolog.Logger) (Outcome, error) {
	_, err := o.store.GetArticleByURL(ctx, url)
	if err == nil {
		logger.Debug().Str("url", url).Msg("Article already stored")
		return OutcomeSkipped, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("look up article %s: %w", url, err)
	}

	content := o.fetcher.FetchArticle(ctx, url)
	if content == nil {
		return OutcomeFailed, nil
	}

	article := models.NewArticle(src.ID, url, content.Title, content.Text)
	if err := o.store.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, storage.ErrDuplicateURL) {
			logger.Debug().Str("url", url).Msg("Article stored concurrently by another job")
			return OutcomeSkipped, nil
		}
		return 0, fmt.Errorf("create article %s: %w", url, err)
	}

	summary, categories := o.enricher.SummarizeAndCategorize(ctx, content.Text)
	if summary != "" {
		if err := o.store.UpdateArticleSummary(ctx, article.ID, summary); err != nil {
			return 0, fmt.Errorf("store summary of article %d: %w", article.ID, err)
		}
	}
	if len(categories) > 0 {
		if err := o.store.LinkCategoriesToArticle(ctx, article.ID, categories); err != nil {
			return 0, fmt.Errorf("link categories of article %d: %w", article.ID, err)
		}
	}

	interests, err := profile.get(ctx)
	if err != nil {
		return 0, err
	}
	score := o.enricher.ScoreInterest(ctx, content.Text, interests)
	if err := o.store.UpdateArticleInterestScore(ctx, article.ID, score); err != nil {
		return 0, fmt.Errorf("store score of article %d: %w", article.ID, err)
	}

	logger.Info().
		Int64("article_id", article.ID).
		Str("url", url).
		Int("categories", len(categories)).
		Int("score", score).
		Msg("Article stored")
	return OutcomeCreated, nil
}

// jobProfile reads the interest profile the first time a job needs it and
// keeps it for the rest of that job only.
type jobProfile struct {
	store  Store
	value  string
	loaded bool
}

func (p *jobProfile) get(ctx context.Context) (string, error) {
	if p.loaded {
		return p.value, nil
	}
	value, err := p.store.GetInterestProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("read interest profile: %w", err)
	}
	p.value, p.loaded = value, true
	return value, nil
}
