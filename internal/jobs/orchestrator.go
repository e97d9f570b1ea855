package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reddot-watch/curator/internal/metrics"
	"reddot-watch/curator/internal/models"
	"reddot-watch/curator/internal/storage"
)

const defaultYieldEvery = 10

// errCanceled ends a job that observed a cancellation request.
var errCanceled = errors.New("canceled by request")

// Options tunes an Orchestrator.
type Options struct {
	// RescoreYieldEvery is how many articles a rescore job handles between
	// explicit yields to the scheduler.
	RescoreYieldEvery int
}

// Orchestrator starts jobs in the background and owns their status records.
type Orchestrator struct {
	store      Store
	discoverer LinkDiscoverer
	fetcher    ArticleFetcher
	enricher   Enricher
	registry   *Registry

	yieldEvery int
	yield      func()
	now        func() time.Time
	newID      func() string

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu   sync.Mutex
	done map[string]chan struct{}
}

// New creates an Orchestrator. Jobs run until they finish or Shutdown is called.
func New(store Store, discoverer LinkDiscoverer, fetcher ArticleFetcher, enricher Enricher, registry *Registry, opts Options) *Orchestrator {
	if opts.RescoreYieldEvery <= 0 {
		opts.RescoreYieldEvery = defaultYieldEvery
	}
	ctx, stop := context.WithCancel(context.Background())

	return &Orchestrator{
		store:      store,
		discoverer: discoverer,
		fetcher:    fetcher,
		enricher:   enricher,
		registry:   registry,
		yieldEvery: opts.RescoreYieldEvery,
		yield:      runtime.Gosched,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		ctx:        ctx,
		stop:       stop,
		done:       make(map[string]chan struct{}),
	}
}

// StartScrape registers a scrape job for one source, or for all sources when
// sourceID is nil, and returns its id without waiting. An unknown source is
// reported as ErrSourceNotFound and no job is created.
func (o *Orchestrator) StartScrape(ctx context.Context, sourceID *int64) (string, error) {
	var scope []models.Source
	if sourceID != nil {
		src, err := o.store.GetSource(ctx, *sourceID)
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: %d", ErrSourceNotFound, *sourceID)
		}
		if err != nil {
			return "", fmt.Errorf("resolve source %d: %w", *sourceID, err)
		}
		scope = []models.Source{*src}
	}

	id := o.launch(TypeScrape, func(ctx context.Context, id string, logger zerolog.Logger) error {
		sources := scope
		if sources == nil {
			var err error
			if sources, err = o.store.ListSources(ctx); err != nil {
				return fmt.Errorf("list sources: %w", err)
			}
		}
		return o.scrape(ctx, id, sources, logger)
	})
	return id, nil
}

// StartRescoreAll registers a job that re-scores every stored article against
// the current interest profile.
func (o *Orchestrator) StartRescoreAll(ctx context.Context) (string, error) {
	return o.launch(TypeRescore, o.rescore), nil
}

// Status returns a snapshot of a job's status.
func (o *Orchestrator) Status(id string) (Status, bool) {
	return o.registry.Get(id)
}

// Jobs returns snapshots of every known job.
func (o *Orchestrator) Jobs() []Status {
	return o.registry.List()
}

// Cancel asks a running scrape job to stop at its next checkpoint.
func (o *Orchestrator) Cancel(id string) error {
	return o.registry.RequestCancel(id)
}

// Await blocks until the job has finished or ctx is done.
func (o *Orchestrator) Await(ctx context.Context, id string) (Status, error) {
	o.mu.Lock()
	done, ok := o.done[id]
	o.mu.Unlock()
	if !ok {
		return Status{}, ErrJobNotFound
	}

	select {
	case <-done:
		status, _ := o.registry.Get(id)
		return status, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Shutdown requests cancellation of every running scrape job, aborts in-flight
// requests and waits for all jobs to finish or ctx to expire. Jobs cut short
// this way end as canceled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	for _, id := range o.registry.active(TypeScrape) {
		_ = o.registry.RequestCancel(id)
	}
	o.stop()

	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

type jobFunc func(ctx context.Context, id string, logger zerolog.Logger) error

// launch registers a pending job and runs fn in its own goroutine. The job
// context is the orchestrator's, not the caller's, so a job outlives the
// request that started it.
func (o *Orchestrator) launch(jobType Type, fn jobFunc) string {
	id := o.newID()
	o.registry.Register(newStatus(id, jobType, o.now()))

	done := make(chan struct{})
	o.mu.Lock()
	o.done[id] = done
	o.mu.Unlock()

	logger := log.With().Str("job_id", id).Str("job_type", string(jobType)).Logger()
	logger.Info().Msg("Job registered")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(done)
		o.execute(id, jobType, fn, logger)
	}()
	return id
}

// execute runs fn and records the terminal state. Any error seen after
// Shutdown has stopped the base context counts as a cancellation.
func (o *Orchestrator) execute(id string, jobType Type, fn jobFunc, logger zerolog.Logger) {
	// A request can land after the last checkpoint; it must not outlive the job.
	defer o.registry.ClearCancel(id)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Job panicked")
			o.finish(id, jobType, StateFailed, fmt.Sprintf("job panicked: %v", r), logger)
		}
	}()

	err := fn(o.ctx, id, logger)
	switch {
	case err == nil:
		status, _ := o.registry.Get(id)
		o.finish(id, jobType, StateCompleted, completionMessage(status), logger)
	case o.ctx.Err() != nil:
		logger.Info().Err(err).Msg("Job interrupted by shutdown")
		o.finish(id, jobType, StateCanceled, "Canceled by shutdown", logger)
	case errors.Is(err, errCanceled):
		o.finish(id, jobType, StateCanceled, "Canceled by request", logger)
	default:
		logger.Error().Err(err).Msg("Job failed")
		o.finish(id, jobType, StateFailed, err.Error(), logger)
	}
}

func (o *Orchestrator) finish(id string, jobType Type, state State, message string, logger zerolog.Logger) {
	finishedAt := o.now()
	o.registry.Update(id, func(s *Status) {
		s.Status = state
		s.Message = message
		s.FinishedAt = &finishedAt
		if state == StateCompleted {
			s.Progress = 100
			s.ETASeconds = 0
		}
	})
	metrics.JobsTotal.WithLabelValues(string(jobType), string(state)).Inc()

	status, _ := o.registry.Get(id)
	logger.Info().
		Str("status", string(status.Status)).
		Int("processed_articles", status.ProcessedArticles).
		Int("new_articles", status.NewArticles).
		Int("skipped_articles", status.SkippedArticles).
		Int("failed_articles", status.FailedArticles).
		Dur("duration", finishedAt.Sub(status.StartedAt)).
		Msg("Job finished")
}

func completionMessage(s Status) string {
	if s.Type == TypeRescore {
		return fmt.Sprintf("Rescored %d articles", s.ProcessedArticles)
	}
	return fmt.Sprintf("Completed: %d new, %d skipped, %d failed",
		s.NewArticles, s.SkippedArticles, s.FailedArticles)
}
