package renderloop

import "sync"

// WorkState represents the lifecycle state of a [Work] handle.
// A handle starts in [WorkPending] and transitions to [WorkCommitted]
// exactly once. The transition is irreversible.
type WorkState int

const (
	// WorkPending indicates the associated update has not yet been
	// applied to the host container.
	WorkPending WorkState = iota

	// WorkCommitted indicates the associated update has been applied to
	// the host container.
	WorkCommitted
)

// String returns a human-readable representation of the state.
func (s WorkState) String() string {
	switch s {
	case WorkPending:
		return "Pending"
	case WorkCommitted:
		return "Committed"
	default:
		return "Unknown"
	}
}

// Work is a promise-like handle returned by every render call. It settles
// exactly once, when the associated update is committed to the host
// container — never before, never speculatively.
//
// Work is an explicit state machine with a queued continuation list,
// deliberately not built on channels or any native promise machinery, so
// that the "synchronous if already committed" rule of [Work.Then] is an
// explicit branch rather than incidental scheduling timing.
type Work struct {
	mu        sync.Mutex
	state     WorkState
	callbacks []func()
	done      chan struct{}
}

func newWork() *Work {
	return &Work{done: make(chan struct{})}
}

// State returns the current [WorkState].
func (w *Work) State() WorkState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Then registers a continuation to run when the work commits.
//
// If the work has already committed, fn is invoked synchronously, before
// Then returns. Otherwise fn is appended to the continuation queue and
// invoked exactly once at commit time, in registration order. This
// asymmetry is deliberate: callers can tell, from their own side effects,
// whether their update landed before or after registering the callback.
//
// A nil fn is ignored.
func (w *Work) Then(fn func()) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	if w.state == WorkCommitted {
		w.mu.Unlock()
		fn()
		return
	}
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// Done returns a channel that is closed once the work commits.
// If the work has already committed, the returned channel is closed.
func (w *Work) Done() <-chan struct{} {
	return w.done
}

// commit transitions Pending -> Committed and runs queued continuations
// in registration order. Idempotent. Continuations run outside the lock
// so they may interact with the handle (and the root) reentrantly.
func (w *Work) commit() {
	w.mu.Lock()
	if w.state == WorkCommitted {
		w.mu.Unlock()
		return
	}
	w.state = WorkCommitted
	callbacks := w.callbacks
	w.callbacks = nil
	close(w.done)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
