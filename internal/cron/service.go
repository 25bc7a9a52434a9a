package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
	"github.com/angelmondragon/packdrop-engine/pkg/metrics"
)

var (
	// ErrJobSkipped is returned by RunOnce when the tick did not execute.
	ErrJobSkipped = errors.New("job skipped")
	// ErrJobNotFound is returned by RunOnce for an unknown job name.
	ErrJobNotFound = errors.New("job not registered")
)

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.SchedulerMetrics
	// Locks is optional; without it jobs are only serialized within this process.
	Locks LockFactory
}

type jobState struct {
	running sync.Mutex
	lock    Lock
}

// Service runs every registered job on its own interval.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.SchedulerMetrics
	locks    LockFactory

	mu     sync.Mutex
	states map[string]*jobState
	wg     sync.WaitGroup
}

// NewService builds a scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		metrics:  params.Metrics,
		locks:    params.Locks,
		states:   map[string]*jobState{},
	}, nil
}

// Run starts one loop per registered job and blocks until ctx is canceled.
// In-flight executions finish before Run returns; no new ticks start.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entries := s.registry.Entries()
	if len(entries) == 0 {
		s.logg.Warn(ctx, "scheduler started with no jobs")
	}
	for _, entry := range entries {
		s.wg.Add(1)
		go s.loop(ctx, entry)
	}
	<-ctx.Done()
	s.logg.Info(ctx, "scheduler stopping; waiting for in-flight jobs")
	s.wg.Wait()
	s.logg.Info(ctx, "scheduler stopped")
	return ctx.Err()
}

// RunOnce executes a single tick of the named job using the same guards as
// the scheduled loop.
func (s *Service) RunOnce(ctx context.Context, name string) (Summary, error) {
	entry, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.tick(ctx, entry)
}

func (s *Service) loop(ctx context.Context, entry Entry) {
	defer s.wg.Done()
	_, _ = s.tick(ctx, entry)

	ticker := time.NewTicker(entry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			_, _ = s.tick(ctx, entry)
		}
	}
}

func (s *Service) state(name string) *jobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[name]
	if !ok {
		state = &jobState{}
		if s.locks != nil {
			state.lock = s.locks(name)
		}
		s.states[name] = state
	}
	return state
}

func (s *Service) tick(ctx context.Context, entry Entry) (Summary, error) {
	jobCtx := s.logg.WithJob(ctx, entry.Name)
	state := s.state(entry.Name)

	if !state.running.TryLock() {
		return nil, s.skip(jobCtx, entry.Name, metrics.SkipOverlap)
	}
	defer state.running.Unlock()

	if state.lock != nil {
		acquired, err := state.lock.Acquire(jobCtx)
		if err != nil {
			s.logg.Error(jobCtx, "job lock acquire failed", err)
			s.metrics.IncFailure(entry.Name)
			return nil, err
		}
		if !acquired {
			return nil, s.skip(jobCtx, entry.Name, metrics.SkipLockHeld)
		}
		defer func() {
			if err := state.lock.Release(context.WithoutCancel(jobCtx)); err != nil {
				s.logg.Error(jobCtx, "job lock release failed", err)
			}
		}()
	}

	s.logg.Debug(jobCtx, "job start")
	start := time.Now()
	summary, err := s.execute(context.WithoutCancel(jobCtx), entry.Job)
	duration := time.Since(start)
	s.metrics.ObserveDuration(entry.Name, duration)
	s.metrics.AddRows(entry.Name, summary)

	fields := map[string]any{"duration_ms": duration.Milliseconds()}
	for outcome, n := range summary {
		fields[outcome] = n
	}
	if err != nil {
		for k, v := range pkgerrors.Dump(err).Fields() {
			fields[k] = v
		}
		s.logg.Error(s.logg.WithFields(jobCtx, fields), "job failed", err)
		s.metrics.IncFailure(entry.Name)
		return summary, err
	}
	s.logg.Info(s.logg.WithFields(jobCtx, fields), "job completed")
	s.metrics.IncSuccess(entry.Name)
	return summary, nil
}

func (s *Service) execute(ctx context.Context, job Job) (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}

func (s *Service) skip(ctx context.Context, job, reason string) error {
	s.logg.Info(s.logg.WithField(ctx, "skip_reason", reason), "job tick skipped")
	s.metrics.IncSkipped(job, reason)
	return fmt.Errorf("%w: %s", ErrJobSkipped, reason)
}
