package renderloop

import "container/heap"

// batchCache holds a render result computed ahead of commit, keyed by the
// inputs that produced it: the seq of the batch's live update and the
// root's apply generation (standing in for the previous tree's identity).
// Commit reuses the result only when both are unchanged.
type batchCache struct {
	tree  Tree
	seq   uint64
	gen   uint64
	valid bool
}

// Batch is a named, isolated scheduling scope. Pending updates placed
// inside a batch receive an expiration fixed at the batch's creation
// time, and only an explicit [Batch.Commit] ever applies the batch's
// content to the container — the idle loop never commits it implicitly,
// regardless of expiration ordering.
//
// Two batches' Commit calls may occur in either order relative to each
// other and to their nominal expiration times; the expiration only
// coalesces near-simultaneous creations.
type Batch struct {
	id         string
	expiration ExpirationTime
	root       *Root
	handle     *Work

	// guarded by root.mu
	live      *pendingUpdate
	cache     batchCache
	failed    error // pre-render failure awaiting the next Commit
	committed bool
	resolved  bool
	invalid   bool
}

// ID returns the batch's unique identifier.
func (b *Batch) ID() string { return b.id }

// Expiration returns the batch's expiration time, fixed at creation.
func (b *Batch) Expiration() ExpirationTime { return b.expiration }

// Committed reports whether the batch's content has been committed and no
// new work has been added since.
func (b *Batch) Committed() bool {
	b.root.mu.Lock()
	defer b.root.mu.Unlock()
	return b.committed
}

// Render enqueues a pending update scoped to this batch, stamped with the
// batch's fixed expiration, and returns a [Work] handle that settles when
// the batch's content is committed.
//
// Successive Render calls on the same batch accumulate in order, and the
// most recent supersedes the rest: earlier updates perform no render
// step, and their handles settle at the batch commit.
func (b *Batch) Render(desc Description) (*Work, error) {
	r := b.root
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.invalid || r.state.Load() != RootActive {
		return nil, ErrRootUnmounted
	}
	w := newWork()
	r.seq++
	e := &pendingUpdate{
		desc:       desc,
		batch:      b,
		work:       w,
		seq:        r.seq,
		expiration: b.expiration,
		index:      -1,
	}
	if old := b.live; old != nil {
		// batch renders share the batch's fixed expiration, so the newer
		// one always supersedes
		e.adopt(old)
		r.metrics.addSuperseded()
	}
	b.live = e
	b.cache = batchCache{}
	b.failed = nil
	b.committed = false
	heap.Push(&r.queue, e)
	r.scheduleLocked()
	return w, nil
}

// Commit synchronously forces exactly this batch's work to completion,
// independent of other batches' expiration ordering and of the idle
// loop's schedule. Updates belonging to other batches, or to the root's
// unscoped queue, are untouched.
//
// If the batch's pending update already completed its render step during
// an earlier idle slice, and nothing changed since (no newer render on
// the batch, no intervening commit to the root), the already-computed
// result is applied directly without rerunning the render step. Commit is
// idempotent: once committed, further calls are no-ops until new work is
// added.
//
// A render or apply failure aborts the commit, leaves the container
// unchanged, and is terminal for the failing update; the batch and root
// remain usable. If the update's render step already failed during an
// idle pre-render, the next Commit returns that error instead of
// succeeding as empty. Calling Commit from within a [Work] continuation
// running inside an active flush returns [ErrReentrantFlush].
func (b *Batch) Commit() error {
	r := b.root
	if err := r.enterFlush(); err != nil {
		return err
	}
	defer r.exitFlush()
	defer r.reschedule()

	r.mu.Lock()
	if b.invalid || r.state.Load() != RootActive {
		r.mu.Unlock()
		return ErrRootUnmounted
	}
	e := b.live
	if e == nil {
		if err := b.failed; err != nil {
			// the update's render step failed during an idle pre-render;
			// surface it here, once, where a caller can see it
			b.failed = nil
			r.mu.Unlock()
			return err
		}
		// nothing pending: either never rendered, or already committed
		first := !b.resolved
		b.committed = true
		b.resolved = true
		r.mu.Unlock()
		if first {
			b.handle.commit()
		}
		return nil
	}
	if e.index >= 0 {
		heap.Remove(&r.queue, e.index)
	}
	prev := r.currentTree
	hydrate := r.hydrate
	cache := b.cache
	useCache := cache.valid && cache.seq == e.seq && cache.gen == r.gen
	r.mu.Unlock()

	var next Tree
	if useCache {
		next = cache.tree
		r.metrics.addCacheHit()
	} else {
		var err error
		next, err = r.renderStep(prev, e.desc)
		if err != nil {
			r.dropBatchUpdate(b, e)
			return err
		}
	}
	if err := r.applyStep(next, hydrate); err != nil {
		r.dropBatchUpdate(b, e)
		return err
	}

	r.mu.Lock()
	r.currentTree = next
	r.gen++
	r.hydrate = false
	if b.live == e {
		b.live = nil
		b.cache = batchCache{}
		b.committed = true
	}
	// else: a Render landed while the render/apply phase ran unlocked; it
	// replaced live and stays pending for the next Commit
	first := !b.resolved
	b.resolved = true
	r.mu.Unlock()
	r.metrics.addCommit()
	r.log.Debug().Str("root", r.id).Str("batch", b.id).Log("batch committed")

	e.resolve()
	if first {
		b.handle.commit()
	}
	return nil
}

// Then registers a continuation on the batch's aggregate handle, which
// settles once the batch's content is committed to the host container.
// See [Work.Then] for the synchronous-resolution rule.
func (b *Batch) Then(fn func()) {
	b.handle.Then(fn)
}

// dropBatchUpdate discards a failed batch update. Terminal for the
// update; the batch itself remains usable.
func (r *Root) dropBatchUpdate(b *Batch, e *pendingUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.live == e {
		b.live = nil
		b.cache = batchCache{}
	}
}
