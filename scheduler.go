package arbor

import (
	"errors"
	"time"
)

// FinishReason says why growth stopped for good.
type FinishReason uint8

const (
	FinishNone     FinishReason = iota // still growing
	FinishBudget                       // a growth tick overran the time budget
	FinishCapacity                     // the skeleton could not take another tick
	FinishError                        // a growth or mesh step failed
)

// String returns the reason's name.
func (r FinishReason) String() string {
	switch r {
	case FinishNone:
		return "none"
	case FinishBudget:
		return "budget"
	case FinishCapacity:
		return "capacity"
	case FinishError:
		return "error"
	default:
		return "unknown"
	}
}

// Scheduler decides once per frame whether growth work runs, and time-boxes
// it. Work runs on every Period-th frame while growing. A run that takes
// longer than Budget, or fails, stops growth permanently; the run itself is
// never interrupted.
type Scheduler struct {
	// Period is the number of frames between growth ticks.
	Period int
	// Budget is the wall-clock limit for one tick. Zero disables the check.
	Budget time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	frame        int
	growing      bool
	reason       FinishReason
	runs         int
	lastDuration time.Duration
	onFinished   func(FinishReason)
}

// NewScheduler creates a scheduler in the growing state.
func NewScheduler(cfg ScheduleConfig) *Scheduler {
	return &Scheduler{
		Period:  cfg.Period,
		Budget:  cfg.Budget,
		Clock:   time.Now,
		growing: true,
	}
}

// OnFinished registers fn to be called once, the first time growth stops.
func (s *Scheduler) OnFinished(fn func(FinishReason)) {
	s.onFinished = fn
}

// Tick records the frame number and runs work if this is a growth frame.
// It reports whether work ran, and returns work's error, if any.
func (s *Scheduler) Tick(frame int, work func() error) (bool, error) {
	s.frame = frame
	if !s.growing || s.Period <= 0 || frame%s.Period != 0 {
		return false, nil
	}

	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	start := clock()
	err := work()
	s.lastDuration = clock().Sub(start)
	s.runs++

	switch {
	case errors.Is(err, ErrCapacityExceeded):
		s.finish(FinishCapacity)
	case err != nil:
		s.finish(FinishError)
	case s.Budget > 0 && s.lastDuration > s.Budget:
		s.finish(FinishBudget)
	}
	return true, err
}

func (s *Scheduler) finish(r FinishReason) {
	if !s.growing {
		return
	}
	s.growing = false
	s.reason = r
	if s.onFinished != nil {
		s.onFinished(r)
	}
}

// Growing reports whether growth ticks still run.
func (s *Scheduler) Growing() bool {
	return s.growing
}

// Reason returns why growth stopped, or FinishNone.
func (s *Scheduler) Reason() FinishReason {
	return s.reason
}

// Frame returns the last frame number passed to Tick.
func (s *Scheduler) Frame() int {
	return s.frame
}

// Runs returns how many times work has run.
func (s *Scheduler) Runs() int {
	return s.runs
}

// LastDuration returns the wall-clock time of the most recent run.
func (s *Scheduler) LastDuration() time.Duration {
	return s.lastDuration
}
