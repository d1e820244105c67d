// Package renderloop provides an incremental, interruptible rendering
// scheduler, coordinating units of pending render work against a single
// shared host container, with promise-like handles to observe and force
// completion deterministically.
//
// # Architecture
//
// The scheduler is built around a [Root] per host container. A Root owns
// the committed tree, an expiration-ordered queue of pending updates, and
// the cooperative work loop that drains it. Callers enqueue work via
// [Root.Render], or carve out an isolated scheduling scope via
// [Root.CreateBatch] and [Batch.Render], and receive a [Work] handle that
// settles exactly once, when (and only when) the corresponding tree has
// been applied to the container.
//
// Reconciliation and container mutation are external collaborators,
// injected as a [Renderer]. The scheduler never mutates the container
// itself; every mutation flows through [Renderer.Apply].
//
// # Execution Model
//
// Progress is driven by a host-provided idle-callback primitive, the
// [IdleScheduler]. The work loop registers at most one outstanding idle
// callback; on each invocation it receives a [Deadline] (a remaining-time
// oracle) and processes pending updates, most urgent first, checking the
// deadline after each whole unit. A slice may stop between units but never
// mid-unit. When the budget is exhausted with work remaining, the loop
// re-registers; when the queue empties, it deregisters.
//
// Forced flushes ([Batch.Commit], [Root.FlushSync], and the unmount path)
// bypass the idle gate and run to completion or error, without deadline
// checks. A render step already completed during an idle slice is not
// redone by a subsequent forced commit, provided its inputs are unchanged.
//
// Update priority ordering within the queue:
//  1. Lower expiration time first (more urgent)
//  2. Ties broken by insertion order
//  3. A newer update with an equal-or-earlier expiration supersedes older
//     pending updates in the same scope (unscoped queue, or one batch)
//
// # Batches
//
// A [Batch] is an isolated scheduling scope with a fixed expiration time
// stamped at creation. Idle slices may run the render step for a batch's
// pending update ahead of time, but only an explicit [Batch.Commit] ever
// applies a batch's content to the container. Two batches commit in
// whichever order their Commit calls occur, independent of their nominal
// expiration times and of the unscoped queue.
//
// # Thread Safety
//
// The design assumes a single cooperative stream of control, but all
// exported methods are safe for concurrent use; forced flushes serialize
// against each other and against idle slices. Calling [Batch.Commit] or
// [Root.FlushSync] from within a [Work] continuation executing inside an
// active flush fails fast with [ErrReentrantFlush] rather than
// deadlocking.
//
// # Usage
//
//	sched := new(renderloop.ManualScheduler)
//	root, err := renderloop.CreateRoot(container, renderer,
//	    renderloop.WithScheduler(sched),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	work, err := root.Render(description)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	work.Then(func() {
//	    fmt.Println("committed")
//	})
//
//	sched.Drain() // host grants idle time
//
// # Error Types
//
// Failures are terminal for the specific update that produced them; the
// root and other pending or batched updates remain usable. See
// [RenderError] (reconciliation rejected the description), [HostError]
// (the container mutation boundary rejected the result), and [PanicError]
// (a recovered panic from either step). Hydration mismatches are
// recoverable: they are logged as warnings and the container is rendered
// fresh.
package renderloop
