package renderloop

import (
	"sync/atomic"
	"time"
)

// ExpirationTime is a totally ordered deadline value used to order and
// coalesce scheduled work, expressed in milliseconds of logical time.
// Smaller values are more urgent and commit sooner under default
// scheduling.
type ExpirationTime int64

// Priority classifies the urgency of a render request. The priority class
// maps a logical "now" to an [ExpirationTime] via [ComputeExpiration].
type Priority int

const (
	// PrioritySync is the default for unscoped renders: commit as soon as
	// the host grants idle time, ahead of any deferred work enqueued at
	// the same tick.
	PrioritySync Priority = iota

	// PriorityBatch stamps work created inside an explicit batch scope.
	PriorityBatch

	// PriorityIdle is for work that may wait until the queue is otherwise
	// empty.
	PriorityIdle
)

// String returns a human-readable representation of the priority class.
func (p Priority) String() string {
	switch p {
	case PrioritySync:
		return "Sync"
	case PriorityBatch:
		return "Batch"
	case PriorityIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// timeout returns the scheduling slack granted to the priority class, in
// milliseconds of logical time.
func (p Priority) timeout() ExpirationTime {
	switch p {
	case PriorityBatch:
		return 100
	case PriorityIdle:
		return 500
	default:
		return 0
	}
}

// ComputeExpiration converts a logical "now" plus a priority class into an
// [ExpirationTime].
//
// The function is pure: two calls at the same logical now with the same
// priority class return equal values, which is what allows two same-tick
// updates targeting the same root to coalesce. Calls at different now
// values return distinct, strictly ordered values, which is what allows
// batches created milliseconds apart to remain independently committable.
func ComputeExpiration(now ExpirationTime, p Priority) ExpirationTime {
	return now + p.timeout()
}

// Clock is the host-provided time source for expiration stamping. Now
// must be monotonically non-decreasing.
type Clock interface {
	// Now returns the current logical time, in milliseconds.
	Now() ExpirationTime
}

// monotonicClock measures milliseconds elapsed since a fixed anchor,
// established once at construction. Using an anchor rather than wall time
// keeps Now monotonic across wall-clock adjustments.
type monotonicClock struct {
	anchor time.Time
}

// NewClock returns the default [Clock], reporting milliseconds elapsed
// since its creation.
func NewClock() Clock {
	return &monotonicClock{anchor: time.Now()}
}

func (c *monotonicClock) Now() ExpirationTime {
	return ExpirationTime(time.Since(c.anchor) / time.Millisecond)
}

// ManualClock is a [Clock] advanced explicitly by the caller. It is
// intended for tests and for hosts that maintain their own logical time.
// The zero value is ready to use, starting at 0.
type ManualClock struct {
	now atomic.Int64
}

var _ Clock = (*ManualClock)(nil)

// Now returns the current logical time.
func (c *ManualClock) Now() ExpirationTime {
	return ExpirationTime(c.now.Load())
}

// Advance moves the clock forward by d milliseconds.
// Negative values are ignored.
func (c *ManualClock) Advance(d ExpirationTime) {
	if d > 0 {
		c.now.Add(int64(d))
	}
}

// Set moves the clock to an absolute time. Attempts to move backwards are
// ignored, preserving monotonicity.
func (c *ManualClock) Set(t ExpirationTime) {
	for {
		cur := c.now.Load()
		if int64(t) <= cur {
			return
		}
		if c.now.CompareAndSwap(cur, int64(t)) {
			return
		}
	}
}
