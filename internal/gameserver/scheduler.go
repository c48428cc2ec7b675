package gameserver

import (
	"sync"
	"time"
)

// Scheduler runs deferred work keyed by name. Scheduling a key that is
// already pending replaces the pending callback.
type Scheduler interface {
	Schedule(key string, d time.Duration, fn func())
	Cancel(key string)
	Stop()
}

type pendingTimer struct {
	timer *time.Timer
}

// TimerScheduler is a Scheduler backed by time.AfterFunc.
// It is safe for concurrent use. Callbacks run on their own goroutine.
type TimerScheduler struct {
	mu      sync.Mutex
	pending map[string]*pendingTimer
	stopped bool
}

// NewTimerScheduler creates an empty TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{pending: make(map[string]*pendingTimer)}
}

// Schedule arranges for fn to run after d unless key is cancelled or
// rescheduled first.
//
// Precondition: fn must not be nil.
// Postcondition: at most one callback is pending for key.
func (s *TimerScheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
	}
	p := &pendingTimer{}
	p.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		current := s.pending[key] == p
		if current {
			delete(s.pending, key)
		}
		s.mu.Unlock()
		if current {
			fn()
		}
	})
	s.pending[key] = p
}

// Cancel drops the pending callback for key, if any.
//
// Postcondition: a callback for key that has not started will not run.
func (s *TimerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Stop cancels every pending callback and rejects further scheduling.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending returns the number of callbacks waiting to fire.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
