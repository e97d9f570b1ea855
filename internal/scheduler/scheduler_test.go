package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/curator/internal/jobs"
)

type fakeStarter struct {
	started  []string
	statuses map[string]jobs.State
	err      error
}

func (f *fakeStarter) StartScrape(_ context.Context, sourceID *int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if sourceID != nil {
		return "", errors.New("scheduled scrapes cover all sources")
	}
	id := fmt.Sprintf("job-%d", len(f.started)+1)
	f.started = append(f.started, id)
	f.statuses[id] = jobs.StateInProgress
	return id, nil
}

func (f *fakeStarter) Status(id string) (jobs.Status, bool) {
	state, ok := f.statuses[id]
	return jobs.Status{ID: id, Status: state}, ok
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New("every now and then", &fakeStarter{})
	assert.Error(t, err)

	s, err := New("*/15 * * * *", &fakeStarter{})
	require.NoError(t, err)
	s.Start()
	s.Stop()

	_, err = New("@hourly", &fakeStarter{})
	assert.NoError(t, err)
}

func TestTriggerSkipsWhilePreviousRuns(t *testing.T) {
	starter := &fakeStarter{statuses: map[string]jobs.State{}}
	s, err := New("@daily", starter)
	require.NoError(t, err)

	s.trigger()
	s.trigger()
	assert.Equal(t, []string{"job-1"}, starter.started)

	starter.statuses["job-1"] = jobs.StateCompleted
	s.trigger()
	assert.Equal(t, []string{"job-1", "job-2"}, starter.started)
}

func TestTriggerStartError(t *testing.T) {
	starter := &fakeStarter{statuses: map[string]jobs.State{}, err: errors.New("db locked")}
	s, err := New("@daily", starter)
	require.NoError(t, err)

	s.trigger()
	assert.Empty(t, starter.started)
	assert.Empty(t, s.lastJob)
}
