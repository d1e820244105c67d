package renderloop

import "sync/atomic"

// RootState represents the current lifecycle state of a [Root].
//
// State Machine:
//
//	RootActive (0) → RootClosing (1)    [Unmount()]
//	RootClosing (1) → RootUnmounted (2) [terminal update committed]
//	RootUnmounted (2) → (terminal)
//
// Transitions only ever move forward; RootUnmounted is terminal.
type RootState uint32

const (
	// RootActive indicates the root accepts new render work.
	RootActive RootState = iota
	// RootClosing indicates Unmount has been requested but the terminal
	// clear update has not yet committed. New work is rejected.
	RootClosing
	// RootUnmounted indicates the terminal clear update has committed and
	// the container has been released.
	RootUnmounted
)

// String returns a human-readable representation of the state.
func (s RootState) String() string {
	switch s {
	case RootActive:
		return "Active"
	case RootClosing:
		return "Closing"
	case RootUnmounted:
		return "Unmounted"
	default:
		return "Unknown"
	}
}

// rootStateMachine is a lock-free forward-only state machine.
type rootStateMachine struct {
	v atomic.Uint32
}

// Load returns the current state atomically.
func (s *rootStateMachine) Load() RootState {
	return RootState(s.v.Load())
}

// TryTransition attempts to atomically transition from one state to
// another. Returns true if the transition was taken.
func (s *rootStateMachine) TryTransition(from, to RootState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
