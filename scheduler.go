package renderloop

import (
	"math"
	"sync"
	"time"
)

// Deadline is the remaining-time oracle passed to each idle slice.
// Implementations must be safe to query repeatedly.
type Deadline interface {
	// TimeRemaining reports the budget left in the current slice.
	// Values <= 0 mean the slice is exhausted.
	TimeRemaining() time.Duration
}

// DeadlineFunc adapts a plain function to the [Deadline] interface.
type DeadlineFunc func() time.Duration

// TimeRemaining implements [Deadline].
func (f DeadlineFunc) TimeRemaining() time.Duration { return f() }

var (
	// Unlimited is a [Deadline] reporting an effectively infinite budget,
	// draining the whole queue in one slice.
	Unlimited Deadline = DeadlineFunc(func() time.Duration { return math.MaxInt64 })

	// Expired is a [Deadline] reporting zero remaining time. A slice
	// driven with it processes exactly one unit before yielding, forcing
	// repeated re-registration.
	Expired Deadline = DeadlineFunc(func() time.Duration { return 0 })
)

// IdleScheduler is the host-provided idle-callback primitive. The work
// loop registers interest via RequestIdle and is invoked with a time
// budget at the host's discretion.
//
// The work loop maintains at most one outstanding registration per root,
// and re-registers from within the callback when work remains, so
// implementations need not handle overlapping registrations from a single
// root.
type IdleScheduler interface {
	// RequestIdle registers fn to be invoked with a [Deadline] when the
	// host next has idle time. fn must be invoked at most once per
	// registration.
	RequestIdle(fn func(Deadline))
}

// TimerScheduler is the default [IdleScheduler]: each registration is
// granted a fixed real-time budget on a background goroutine, after an
// optional delay. It approximates a host idle loop for standalone use;
// embedders with a real host idle primitive should inject their own
// [IdleScheduler] via [WithScheduler].
type TimerScheduler struct {
	// Budget is the real-time budget granted to each slice.
	// Defaults to 5ms if zero.
	Budget time.Duration

	// Delay postpones each slice, yielding to foreground work.
	Delay time.Duration
}

var _ IdleScheduler = (*TimerScheduler)(nil)

// RequestIdle implements [IdleScheduler].
func (s *TimerScheduler) RequestIdle(fn func(Deadline)) {
	budget := s.Budget
	if budget <= 0 {
		budget = 5 * time.Millisecond
	}
	delay := s.Delay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		start := time.Now()
		fn(DeadlineFunc(func() time.Duration {
			return budget - time.Since(start)
		}))
	}()
}

// ManualScheduler is an [IdleScheduler] driven explicitly by the caller,
// for tests and for hosts that want full control over when idle time is
// granted. The zero value is ready to use.
type ManualScheduler struct {
	mu sync.Mutex
	cb func(Deadline)
}

var _ IdleScheduler = (*ManualScheduler)(nil)

// RequestIdle implements [IdleScheduler].
func (s *ManualScheduler) RequestIdle(fn func(Deadline)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = fn
}

// Pending reports whether a registration is outstanding.
func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb != nil
}

// Idle grants one slice with the given deadline, invoking the pending
// callback if any. The registration is consumed before the callback runs,
// so re-registration from within the callback is observed by the next
// call. Returns false if no registration was pending.
func (s *ManualScheduler) Idle(d Deadline) bool {
	s.mu.Lock()
	cb := s.cb
	s.cb = nil
	s.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(d)
	return true
}

// Drain grants [Unlimited] slices until no registration remains, and
// returns the number of slices granted.
func (s *ManualScheduler) Drain() int {
	var n int
	for s.Idle(Unlimited) {
		n++
	}
	return n
}
