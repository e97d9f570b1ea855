package jobs

import (
	"sort"
	"sync"
)

// Registry maps job ids to status records and holds the set of ids with a
// pending cancellation request. Records live until the process exits.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*Status
	cancels map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:    make(map[string]*Status),
		cancels: make(map[string]struct{}),
	}
}

// Register adds a new record.
func (r *Registry) Register(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := status
	r.jobs[status.ID] = &s
}

// Update applies fn to the record of id. Records in a terminal state are never changed.
func (r *Registry) Update(id string, fn func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.jobs[id]
	if !ok || s.Status.Terminal() {
		return
	}
	fn(s)
}

// Get returns a copy of the record of id.
func (r *Registry) Get(id string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.jobs[id]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// List returns copies of every record, most recently started first.
func (r *Registry) List() []Status {
	r.mu.RLock()
	out := make([]Status, 0, len(r.jobs))
	for _, s := range r.jobs {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// RequestCancel records a cancellation request. Only pending or running scrape
// jobs accept one.
func (r *Registry) RequestCancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if s.Type != TypeScrape || s.Status.Terminal() {
		return ErrJobNotCancelable
	}
	r.cancels[id] = struct{}{}
	return nil
}

// CancelRequested reports whether a cancellation request for id is pending.
func (r *Registry) CancelRequested(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cancels[id]
	return ok
}

// ClearCancel drops a pending cancellation request.
func (r *Registry) ClearCancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, id)
}

// active returns the ids of jobs that have not finished.
func (r *Registry) active(jobType Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, s := range r.jobs {
		if s.Type == jobType && !s.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}
