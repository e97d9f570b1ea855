package jobs

import (
	"fmt"
	"math"
	"time"

	"reddot-watch/curator/internal/metrics"
)

// Outcome is what happened to one candidate article.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return metrics.OutcomeCreated
	case OutcomeSkipped:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}

// Reporter receives one call per article that leaves the per-article loop.
type Reporter interface {
	Report(outcome Outcome)
}

// tracker turns reports into progress, ETA and counters on a registry record.
// Elapsed time is measured from its creation, after link discovery.
type tracker struct {
	registry *Registry
	id       string
	total    int
	started  time.Time
	now      func() time.Time
}

var _ Reporter = (*tracker)(nil)

func newTracker(registry *Registry, id string, total int, now func() time.Time) *tracker {
	return &tracker{registry: registry, id: id, total: total, started: now(), now: now}
}

func (t *tracker) Report(outcome Outcome) {
	elapsed := t.now().Sub(t.started)

	t.registry.Update(t.id, func(s *Status) {
		s.ProcessedArticles++
		switch outcome {
		case OutcomeCreated:
			s.NewArticles++
		case OutcomeSkipped:
			s.SkippedArticles++
		case OutcomeFailed:
			s.FailedArticles++
		}
		s.Progress = percent(s.ProcessedArticles, t.total)
		s.ETASeconds = eta(elapsed, s.ProcessedArticles, t.total)
		s.Message = fmt.Sprintf("Processed %d of %d articles", s.ProcessedArticles, t.total)
	})

	metrics.ArticlesTotal.WithLabelValues(outcome.String()).Inc()
}

// percent is floor(done/total*100), or 0 when there is nothing to do.
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

// eta extrapolates the average time per item to the remaining items.
// It returns -1 until at least one item is done.
func eta(elapsed time.Duration, done, total int) int64 {
	if done <= 0 {
		return -1
	}
	remaining := total - done
	if remaining <= 0 {
		return 0
	}
	perItem := elapsed.Seconds() / float64(done)
	return int64(math.Round(perItem * float64(remaining)))
}
