package services

import (
	"sync"
	"time"
)

// Scheduler holds at most one deferred callback.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	at    time.Time
	gen   uint64
	now   func() time.Time
}

// NewScheduler creates an empty scheduler.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// Arm replaces any pending callback with fn, due at the given time.
// A time already in the past fires on its own goroutine as soon as possible,
// never on the caller's goroutine.
func (s *Scheduler) Arm(at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen
	s.at = at

	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen {
			// cancelled or re-armed after this timer had already fired
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.at = time.Time{}
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending callback, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// pending reports when the armed callback is due.
func (s *Scheduler) pending() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at, s.timer != nil
}

func (s *Scheduler) stopLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.at = time.Time{}
	s.gen++
}
