// Package jobs runs scrape and rescore jobs in the background and tracks their
// progress in a process-wide registry.
package jobs

import (
	"errors"
	"time"
)

var (
	// ErrSourceNotFound is returned when a scrape targets an unknown source.
	ErrSourceNotFound = errors.New("source not found")
	// ErrJobNotFound is returned for an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCancelable is returned when the job has finished or its type
	// does not support cancellation.
	ErrJobNotCancelable = errors.New("job cannot be canceled")
)

// State is the lifecycle state of a job.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCanceled   State = "canceled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

// Type tells scrape jobs from rescore jobs.
type Type string

const (
	TypeScrape  Type = "scrape"
	TypeRescore Type = "rescore"
)

// Status is the progress record of one job. Callers only ever see copies.
type Status struct {
	ID                string     `json:"id"`
	Type              Type       `json:"type"`
	Status            State      `json:"status"`
	Progress          int        `json:"progress"`
	Message           string     `json:"message"`
	TotalSources      int        `json:"total_sources"`
	ProcessedSources  int        `json:"processed_sources"`
	TotalArticles     int        `json:"total_articles"`
	ProcessedArticles int        `json:"processed_articles"`
	SkippedArticles   int        `json:"skipped_articles"`
	FailedArticles    int        `json:"failed_articles"`
	NewArticles       int        `json:"new_articles"`
	ETASeconds        int64      `json:"eta_seconds"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
}

func newStatus(id string, jobType Type, now time.Time) Status {
	return Status{
		ID:         id,
		Type:       jobType,
		Status:     StatePending,
		Message:    "Queued",
		ETASeconds: -1,
		StartedAt:  now,
	}
}
