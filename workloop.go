package renderloop

import (
	"container/heap"

	"github.com/petermattis/goid"
)

// enterFlush acquires the flush lock, failing fast if the calling
// goroutine already holds it (a continuation attempting a nested
// synchronous flush would otherwise self-deadlock).
func (r *Root) enterFlush() error {
	gid := goid.Get()
	if r.flushGID.Load() == gid {
		return ErrReentrantFlush
	}
	r.flushMu.Lock()
	r.flushGID.Store(gid)
	return nil
}

func (r *Root) exitFlush() {
	r.flushGID.Store(0)
	r.flushMu.Unlock()
}

// scheduleLocked registers interest with the host idle primitive, if work
// is pending and no registration is outstanding. Idempotent. Caller must
// hold r.mu.
func (r *Root) scheduleLocked() {
	if r.scheduled || len(r.queue) == 0 {
		return
	}
	r.scheduled = true
	r.scheduler.RequestIdle(r.onIdleSlice)
}

// onIdleSlice is the idle-callback entry point. It repeatedly takes the
// most urgent eligible pending update and performs its render step
// (applying unscoped updates, pre-rendering batched ones), checking the
// deadline after each whole unit. Exhausting the budget with work
// remaining re-registers for a future slice; an empty queue deregisters.
func (r *Root) onIdleSlice(d Deadline) {
	if err := r.enterFlush(); err != nil {
		// host granted idle time from within an active flush; drop the
		// slice — the flush re-registers on completion if work remains
		r.mu.Lock()
		r.scheduled = false
		r.mu.Unlock()
		return
	}
	defer r.exitFlush()

	r.metrics.addIdleSlice()
	r.mu.Lock()
	r.scheduled = false
	r.mu.Unlock()
	if d == nil {
		d = Unlimited
	}

	var units int
	for {
		r.mu.Lock()
		e := r.takeNextLocked(nil)
		r.mu.Unlock()
		if e == nil {
			r.log.Debug().Str("root", r.id).Int("units", units).Log("idle slice drained queue")
			return
		}
		var err error
		if e.batch != nil {
			err = r.prerenderBatch(e)
		} else {
			err = r.commitUpdate(e)
		}
		units++
		if err != nil {
			// terminal for the failing update; remaining work waits for
			// the next slice
			r.reportIdleError(err)
			break
		}
		if d.TimeRemaining() <= 0 {
			r.metrics.addYield()
			r.log.Debug().Str("root", r.id).Int("units", units).Log("idle slice budget exhausted")
			break
		}
	}

	r.mu.Lock()
	r.scheduleLocked()
	r.mu.Unlock()
}

// takeNextLocked removes and returns the most urgent eligible pending
// update matching pred (nil matches all), or nil if none. Superseded and
// stale entries encountered on the way are discarded; their handles were
// adopted when they were superseded. Caller must hold r.mu.
func (r *Root) takeNextLocked(pred func(*pendingUpdate) bool) *pendingUpdate {
	if pred == nil {
		for len(r.queue) > 0 {
			e := heap.Pop(&r.queue).(*pendingUpdate)
			if e.superseded {
				continue
			}
			if e.batch != nil && e.batch.live != e {
				continue // batch committed or invalidated out-of-band
			}
			return e
		}
		return nil
	}
	best := -1
	for i, e := range r.queue {
		if e.superseded || !pred(e) {
			continue
		}
		if best == -1 || before(e, r.queue[best]) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	return heap.Remove(&r.queue, best).(*pendingUpdate)
}

// renderStep invokes the opaque reconciliation operation, converting
// failures (including recovered panics) into typed errors.
func (r *Root) renderStep(prev Tree, desc Description) (next Tree, err error) {
	defer func() {
		if v := recover(); v != nil {
			next = nil
			err = &PanicError{Value: v}
		}
	}()
	r.metrics.addRenderStep()
	next, err = r.renderer.Render(prev, desc)
	if err != nil {
		err = &RenderError{Cause: err}
	}
	return
}

// applyStep pushes next through the host commit adapter. hydrate requests
// reuse of existing container markup; valid only for a root's first
// commit, and only when the renderer implements [Hydrator]. A hydration
// mismatch is recoverable: logged as a warning, then applied fresh.
func (r *Root) applyStep(next Tree, hydrate bool) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	if hydrate {
		if h, ok := r.renderer.(Hydrator); ok {
			herr := h.Hydrate(r.container, next)
			if herr == nil {
				return nil
			}
			r.log.Warning().Err(herr).Str("root", r.id).Log("hydration mismatch, discarding existing markup")
		}
	}
	if err := r.renderer.Apply(r.container, next); err != nil {
		return &HostError{Cause: err}
	}
	return nil
}

// commitUpdate runs the render step for an unscoped update, applies the
// result to the container, and resolves the update's handles. The update
// is consumed either way; a failure is terminal for it, and the container
// is left unchanged.
func (r *Root) commitUpdate(e *pendingUpdate) error {
	r.mu.Lock()
	prev := r.currentTree
	hydrate := r.hydrate
	r.mu.Unlock()

	var next Tree
	if !e.terminal {
		var err error
		next, err = r.renderStep(prev, e.desc)
		if err != nil {
			return err
		}
	}
	if err := r.applyStep(next, hydrate && !e.terminal); err != nil {
		return err
	}

	r.mu.Lock()
	r.currentTree = next
	r.gen++
	r.hydrate = false
	if e.terminal {
		r.queue = nil // everything remaining was superseded by the unmount
	}
	r.mu.Unlock()
	r.metrics.addCommit()

	if e.terminal {
		r.state.TryTransition(RootClosing, RootUnmounted)
		r.log.Debug().Str("root", r.id).Log("root unmounted")
	}

	e.resolve()
	return nil
}

// prerenderBatch runs the render step for a batch-tagged update during an
// idle slice, caching the result on the batch. Nothing is applied: only
// an explicit [Batch.Commit] ever commits a batch's content, which then
// reuses the cached result if the batch's inputs are unchanged.
func (r *Root) prerenderBatch(e *pendingUpdate) error {
	b := e.batch
	r.mu.Lock()
	if b.live != e {
		r.mu.Unlock()
		return nil // superseded or invalidated since it was taken
	}
	prev := r.currentTree
	gen := r.gen
	r.mu.Unlock()

	next, err := r.renderStep(prev, e.desc)

	r.mu.Lock()
	defer r.mu.Unlock()
	if b.live != e {
		return nil // raced with a newer render on the batch; discard
	}
	if err != nil {
		b.live = nil // terminal for this update; the batch remains usable
		b.cache = batchCache{}
		b.failed = err // remembered until the next Commit surfaces it
		return err
	}
	e.prerender = true
	b.cache = batchCache{tree: next, seq: e.seq, gen: gen, valid: true}
	return nil
}

// reportIdleError surfaces a failure from the idle path, where no caller
// is available to return it to.
func (r *Root) reportIdleError(err error) {
	r.log.Err().Err(err).Str("root", r.id).Log("idle flush aborted")
	if r.onRenderError != nil {
		r.onRenderError(err)
	}
}
