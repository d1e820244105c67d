package renderloop

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
)

// Root is the persistent per-container scheduler state: the current
// committed tree, the queue of pending updates, and the work loop that
// drains it. Create one Root per host container via [CreateRoot].
//
// A Root exclusively owns its queue and committed tree. Batches are owned
// by the Root that created them but are independently addressable and
// committable by the caller.
type Root struct {
	// Prevent copying
	_ [0]func()

	id            string
	container     Container
	renderer      Renderer
	scheduler     IdleScheduler
	clock         Clock
	log           *logiface.Logger[logiface.Event]
	onRenderError func(error)
	metrics       *metrics

	state rootStateMachine

	// flushMu serializes flushes (idle slices and forced commits), making
	// mutual exclusion over the container structural. flushGID records the
	// goroutine holding it, for reentrancy detection.
	flushMu  sync.Mutex
	flushGID atomic.Int64

	mu          sync.Mutex
	queue       updateHeap
	batches     []*Batch
	currentTree Tree
	gen         uint64 // incremented on every host apply
	seq         uint64
	hydrate     bool
	scheduled   bool
}

// CreateRoot creates the scheduler state for a host container. The
// renderer is the external reconciliation/commit collaborator and must be
// non-nil; the container is opaque and merely passed through to it.
func CreateRoot(container Container, renderer Renderer, opts ...RootOption) (*Root, error) {
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	cfg, err := resolveRootOptions(opts)
	if err != nil {
		return nil, err
	}
	r := &Root{
		id:            uuid.NewString(),
		container:     container,
		renderer:      renderer,
		scheduler:     cfg.scheduler,
		clock:         cfg.clock,
		log:           cfg.logger,
		onRenderError: cfg.onRenderError,
		hydrate:       cfg.hydrate,
	}
	if cfg.metricsOn {
		r.metrics = &metrics{}
	}
	r.log.Debug().Str("root", r.id).Log("root created")
	return r, nil
}

// Render enqueues an unscoped pending update for the given description,
// stamped with a default (most urgent) expiration, and returns a [Work]
// handle that settles when the update is committed to the container.
//
// A newer unscoped update with an equal-or-earlier expiration supersedes
// older pending unscoped updates: the superseded updates perform no
// render step, and their handles settle at the superseding commit.
func (r *Root) Render(desc Description) (*Work, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Load() != RootActive {
		return nil, ErrRootUnmounted
	}
	w := newWork()
	r.seq++
	e := &pendingUpdate{
		desc:       desc,
		work:       w,
		seq:        r.seq,
		expiration: ComputeExpiration(r.clock.Now(), PrioritySync),
		index:      -1,
	}
	for _, old := range r.queue {
		if old.batch == nil && !old.superseded && !old.terminal && e.expiration <= old.expiration {
			e.adopt(old)
			r.metrics.addSuperseded()
		}
	}
	heap.Push(&r.queue, e)
	r.scheduleLocked()
	return w, nil
}

// Unmount enqueues a terminal update whose render step yields an empty
// tree, invalidating all prior non-committed updates for this root,
// batched or not. It flows through the same scheduling path as Render;
// the returned handle settles when the container has been cleared.
//
// The root stops accepting new work immediately; further Render,
// CreateBatch, and batch operations fail with [ErrRootUnmounted].
func (r *Root) Unmount() (*Work, error) {
	if !r.state.TryTransition(RootActive, RootClosing) {
		return nil, ErrRootUnmounted
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	w := newWork()
	r.seq++
	e := &pendingUpdate{
		work:       w,
		seq:        r.seq,
		expiration: ComputeExpiration(r.clock.Now(), PrioritySync),
		index:      -1,
		terminal:   true,
	}
	for _, old := range r.queue {
		if !old.superseded {
			e.adopt(old)
			r.metrics.addSuperseded()
		}
	}
	for _, b := range r.batches {
		b.invalid = true
		if old := b.live; old != nil {
			if old.prerender {
				// not in the queue anymore; adopt directly
				e.adopt(old)
				r.metrics.addSuperseded()
			}
			b.live = nil
		}
		b.cache = batchCache{}
		if !b.resolved {
			b.resolved = true
			e.adopted = append(e.adopted, b.handle)
		}
	}
	heap.Push(&r.queue, e)
	r.scheduleLocked()
	return w, nil
}

// CreateBatch allocates a new [Batch] stamped with the current batch
// expiration. No work is enqueued until [Batch.Render] is called.
func (r *Root) CreateBatch() (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Load() != RootActive {
		return nil, ErrRootUnmounted
	}
	b := &Batch{
		id:         uuid.NewString(),
		expiration: ComputeExpiration(r.clock.Now(), PriorityBatch),
		root:       r,
		handle:     newWork(),
	}
	r.batches = append(r.batches, b)
	return b, nil
}

// FlushSync synchronously drains the root's unscoped pending updates
// (including a pending unmount), bypassing the idle gate and ignoring
// deadlines. Batched updates are untouched; only [Batch.Commit] applies a
// batch's content.
//
// The first failing update aborts the flush and its error is returned;
// already-committed prior updates stay committed.
func (r *Root) FlushSync() error {
	if err := r.enterFlush(); err != nil {
		return err
	}
	defer r.exitFlush()
	defer r.reschedule()
	for {
		r.mu.Lock()
		e := r.takeNextLocked(func(e *pendingUpdate) bool { return e.batch == nil })
		r.mu.Unlock()
		if e == nil {
			return nil
		}
		if err := r.commitUpdate(e); err != nil {
			return err
		}
	}
}

// reschedule re-registers with the idle primitive if eligible work
// remains, repairing a registration consumed while a flush was active.
func (r *Root) reschedule() {
	r.mu.Lock()
	r.scheduleLocked()
	r.mu.Unlock()
}

// State returns the current [RootState].
func (r *Root) State() RootState {
	return r.state.Load()
}

// CurrentTree returns the most recently committed tree, or nil if nothing
// has been committed (or the root has been unmounted).
func (r *Root) CurrentTree() Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTree
}

// Metrics returns a snapshot of the root's counters. Zero-valued unless
// the root was created with [WithMetrics].
func (r *Root) Metrics() MetricsSnapshot {
	return r.metrics.snapshot()
}
