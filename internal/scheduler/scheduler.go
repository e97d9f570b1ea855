// Package scheduler starts scrape-all jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"reddot-watch/curator/internal/jobs"
)

// JobStarter is the part of the orchestrator the scheduler drives.
type JobStarter interface {
	StartScrape(ctx context.Context, sourceID *int64) (string, error)
	Status(id string) (jobs.Status, bool)
}

// Scheduler triggers a scrape of all sources on every tick of a 5-field cron
// expression. A tick is skipped while the job of the previous tick still runs.
type Scheduler struct {
	cron    *cron.Cron
	starter JobStarter
	spec    string

	mu      sync.Mutex
	lastJob string
}

// New validates spec and creates a stopped Scheduler.
func New(spec string, starter JobStarter) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid scrape schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		starter: starter,
		spec:    spec,
	}
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("schedule scrape: %w", err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	log.Info().Str("schedule", s.spec).Msg("Starting scrape scheduler")
	s.cron.Start()
}

// Stop halts the schedule and waits for a trigger in progress to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Scrape scheduler stopped")
}

func (s *Scheduler) trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastJob != "" {
		if status, ok := s.starter.Status(s.lastJob); ok && !status.Status.Terminal() {
			log.Info().Str("job_id", s.lastJob).Msg("Previous scheduled scrape still running, skipping tick")
			return
		}
	}

	id, err := s.starter.StartScrape(context.Background(), nil)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled scrape failed to start")
		return
	}
	s.lastJob = id
	log.Info().Str("job_id", id).Msg("Scheduled scrape started")
}
