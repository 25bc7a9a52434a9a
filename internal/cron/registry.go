package cron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Summary carries per-outcome row counts from one job execution.
type Summary map[string]int

// Job is a recurring unit of work run by the scheduler.
type Job interface {
	Run(ctx context.Context) (Summary, error)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) (Summary, error)

func (f JobFunc) Run(ctx context.Context) (Summary, error) { return f(ctx) }

// Entry is a registered job and its cadence.
type Entry struct {
	Name     string
	Interval time.Duration
	Job      Job
}

// Registry tracks named jobs. It is owned by the composition root and handed
// to the Service that runs them.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register adds a recurring job. Names must be unique.
func (r *Registry) Register(name string, interval time.Duration, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	if job == nil {
		return fmt.Errorf("job %s: job required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, Entry{Name: name, Interval: interval, Job: job})
	return nil
}

// Entries returns the registered jobs in the order they were added.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx], true
}
