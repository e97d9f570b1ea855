package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"reddot-watch/curator/internal/storage"
)

// rescore overwrites the interest score of every stored article. It cannot be
// canceled but stops early if the orchestrator shuts down, leaving the
// remaining scores untouched.
func (o *Orchestrator) rescore(ctx context.Context, id string, logger zerolog.Logger) error {
	articles, err := o.store.ListArticlesForScoring(ctx)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}
	profile, err := o.store.GetInterestProfile(ctx)
	if err != nil {
		return fmt.Errorf("read interest profile: %w", err)
	}

	total := len(articles)
	o.registry.Update(id, func(s *Status) {
		s.Status = StateInProgress
		s.TotalArticles = total
		s.Message = fmt.Sprintf("Rescoring %d articles", total)
	})
	logger.Info().Int("total_articles", total).Msg("Rescoring started")

	started := o.now()
	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rescoring interrupted: %w", err)
		}

		score := o.enricher.ScoreInterest(ctx, article.OriginalContent, profile)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rescoring interrupted: %w", err)
		}

		err := o.store.UpdateArticleInterestScore(ctx, article.ID, score)
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Int64("article_id", article.ID).Msg("Article deleted during rescoring")
		} else if err != nil {
			return fmt.Errorf("store score of article %d: %w", article.ID, err)
		}

		done := i + 1
		elapsed := o.now().Sub(started)
		o.registry.Update(id, func(s *Status) {
			s.ProcessedArticles = done
			s.Progress = percent(done, total)
			s.ETASeconds = eta(elapsed, done, total)
			s.Message = fmt.Sprintf("Rescored %d of %d articles", done, total)
		})

		if done%o.yieldEvery == 0 {
			o.yield()
		}
	}
	return nil
}
