package scheduler

import (
	"time"

	"igmp-stats/pkg/common_errors"
	"igmp-stats/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
)

const DEFAULT_STOP_TIMEOUT = 5 * time.Second

// Scheduler runs a task immediately on Start and then again every period.
// The next execution is never earlier than one period after the previous
// execution began; an execution that overruns its period is followed by the
// next one right away, without a burst of catch-up runs.
//
// Executions are serialized across runs: after Stop returns (or Reschedule
// swaps runs) the old run never begins another execution, and an execution of
// the old run that is still finishing delays the first execution of the new
// run instead of overlapping it.
type Scheduler struct {
	name string
	task func()

	// StopTimeout bounds how long Stop waits for the run goroutine to exit.
	StopTimeout time.Duration

	mu      syncutils.Mutex
	current *run

	// held for the duration of one execution
	execMu syncutils.Mutex
}

type run struct {
	period time.Duration
	quit   chan struct{}
	done   chan struct{}
}

// NewScheduler returns a stopped scheduler. task is wrapped with
// SafeRecurring.
func NewScheduler(name string, task Task) *Scheduler {
	return &Scheduler{
		name:        name,
		task:        SafeRecurring(name, task),
		StopTimeout: DEFAULT_STOP_TIMEOUT,
	}
}

func (s *Scheduler) Start(period time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if period <= 0 {
		return common_errors.ErrInvalidPeriod
	}
	if s.current != nil {
		return common_errors.ErrInvalidStateTransition
	}
	s.startLocked(period)
	return nil
}

// Stop cancels the running schedule. It is a no-op on a stopped scheduler and
// reports whether a run was cancelled.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// Reschedule replaces the running schedule (if any) with one at period. The
// new schedule executes immediately.
func (s *Scheduler) Reschedule(period time.Duration) error {
	if period <= 0 {
		return common_errors.ErrInvalidPeriod
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.startLocked(period)
	return nil
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Period returns the active period, or false when stopped.
func (s *Scheduler) Period() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, false
	}
	return s.current.period, true
}

func (s *Scheduler) startLocked(period time.Duration) {
	r := &run{
		period: period,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.current = r
	go s.loop(r)
	log.Debug().Str("task", s.name).Dur("period", period).Msg("schedule started")
}

func (s *Scheduler) stopLocked() bool {
	r := s.current
	if r == nil {
		return false
	}
	s.current = nil
	close(r.quit)
	timer := time.NewTimer(s.StopTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		// the run has been told to quit and will not start another execution
		log.Warn().Str("task", s.name).Dur("timeout", s.StopTimeout).
			Msg("schedule did not stop in time; continuing")
	}
	log.Debug().Str("task", s.name).Dur("period", r.period).Msg("schedule stopped")
	return true
}

func (s *Scheduler) loop(r *run) {
	defer close(r.done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-r.quit:
			return
		case <-timer.C:
		}
		began, ok := s.execute(r)
		if !ok {
			return
		}
		timer.Reset(time.Until(began.Add(r.period)))
	}
}

// execute runs the task once unless r was cancelled meanwhile.
func (s *Scheduler) execute(r *run) (time.Time, bool) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	select {
	case <-r.quit:
		return time.Time{}, false
	default:
	}
	began := time.Now()
	s.task()
	return began, true
}
