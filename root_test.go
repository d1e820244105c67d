package renderloop

import (
	"errors"
	"testing"
)

func TestCreateRootNilRenderer(t *testing.T) {
	_, err := CreateRoot(new(testContainer), nil)
	if !errors.Is(err, ErrNilRenderer) {
		t.Fatalf("expected ErrNilRenderer, got %v", err)
	}
}

func TestRenderCommitsOnIdleDrain(t *testing.T) {
	env := newTestEnv(t)

	w, err := env.root.Render("Hi")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// before any idle slice runs, nothing has touched the container
	if got := env.container.Content(); got != "" {
		t.Fatalf("container mutated before idle slice: %q", got)
	}
	if w.State() != WorkPending {
		t.Fatalf("work committed before idle slice: %v", w.State())
	}

	env.sched.Drain()

	if got := env.container.Content(); got != "Hi" {
		t.Errorf("container content = %q, want %q", got, "Hi")
	}
	if w.State() != WorkCommitted {
		t.Errorf("work not committed after drain: %v", w.State())
	}

	// synchronous-resolution law
	var fired bool
	w.Then(func() { fired = true })
	if !fired {
		t.Error("Then after commit did not fire synchronously")
	}
}

func TestRenderSameTickSupersedes(t *testing.T) {
	env := newTestEnv(t)

	w1, _ := env.root.Render("first")
	w2, _ := env.root.Render("second")

	env.sched.Drain()

	if n := env.renderer.renders.Load(); n != 1 {
		t.Errorf("render steps = %d, want 1 (superseded update must not re-render)", n)
	}
	if got := env.container.Content(); got != "second" {
		t.Errorf("container content = %q, want %q", got, "second")
	}
	// both handles settle at the superseding commit
	if w1.State() != WorkCommitted || w2.State() != WorkCommitted {
		t.Errorf("handles: %v, %v, want both Committed", w1.State(), w2.State())
	}
	if got := env.root.Metrics().Superseded; got != 1 {
		t.Errorf("superseded counter = %d, want 1", got)
	}
}

func TestRenderDistinctTicksBothCommit(t *testing.T) {
	env := newTestEnv(t)

	env.root.Render("first")
	env.clock.Advance(1)
	env.root.Render("second")

	env.sched.Drain()

	// the later update has a strictly later expiration: no supersession,
	// both process in order, newest content wins
	if n := env.renderer.renders.Load(); n != 2 {
		t.Errorf("render steps = %d, want 2", n)
	}
	if got := env.container.Content(); got != "second" {
		t.Errorf("container content = %q, want %q", got, "second")
	}
}

func TestFlushSyncBypassesIdleGate(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.root.Render("now")
	if err := env.root.FlushSync(); err != nil {
		t.Fatalf("FlushSync failed: %v", err)
	}
	if got := env.container.Content(); got != "now" {
		t.Errorf("container content = %q, want %q", got, "now")
	}
	if w.State() != WorkCommitted {
		t.Error("work not committed by FlushSync")
	}
}

func TestUnmountClearsContainer(t *testing.T) {
	env := newTestEnv(t)

	env.root.Render("content")
	env.sched.Drain()
	if env.container.Content() != "content" {
		t.Fatal("setup commit failed")
	}

	w, err := env.root.Unmount()
	if err != nil {
		t.Fatalf("Unmount failed: %v", err)
	}
	if env.root.State() != RootClosing {
		t.Fatalf("state = %v, want Closing", env.root.State())
	}

	env.sched.Drain()

	if got := env.container.Content(); got != "" {
		t.Errorf("container content after unmount drain = %q, want empty", got)
	}
	if env.root.State() != RootUnmounted {
		t.Errorf("state = %v, want Unmounted", env.root.State())
	}
	if w.State() != WorkCommitted {
		t.Error("unmount handle not committed")
	}
	if env.root.CurrentTree() != nil {
		t.Error("current tree not cleared")
	}

	if _, err := env.root.Render("again"); !errors.Is(err, ErrRootUnmounted) {
		t.Errorf("Render after unmount: got %v, want ErrRootUnmounted", err)
	}
	if _, err := env.root.CreateBatch(); !errors.Is(err, ErrRootUnmounted) {
		t.Errorf("CreateBatch after unmount: got %v, want ErrRootUnmounted", err)
	}
	if _, err := env.root.Unmount(); !errors.Is(err, ErrRootUnmounted) {
		t.Errorf("second Unmount: got %v, want ErrRootUnmounted", err)
	}
}

func TestUnmountInvalidatesPendingUpdates(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.root.Render("never lands")
	uw, _ := env.root.Unmount()
	env.sched.Drain()

	// the superseded update performed no render step, and its handle
	// settled at the unmount commit
	if n := env.renderer.renders.Load(); n != 0 {
		t.Errorf("render steps = %d, want 0", n)
	}
	if w.State() != WorkCommitted || uw.State() != WorkCommitted {
		t.Errorf("handles: %v, %v, want both Committed", w.State(), uw.State())
	}
	if env.container.Content() != "" {
		t.Errorf("container content = %q, want empty", env.container.Content())
	}
}

func TestIdleRenderErrorIsTerminalForUpdate(t *testing.T) {
	var reported []error
	env := newTestEnv(t, WithOnRenderError(func(err error) {
		reported = append(reported, err)
	}))

	env.root.Render("good")
	env.sched.Drain()

	env.clock.Advance(1)
	env.root.Render(nil) // rejected by the renderer
	env.sched.Drain()

	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	var rerr *RenderError
	if !errors.As(reported[0], &rerr) {
		t.Errorf("expected *RenderError, got %T", reported[0])
	}
	if !errors.Is(reported[0], errUnrenderable) {
		t.Error("cause chain broken")
	}
	// prior committed content stays committed
	if got := env.container.Content(); got != "good" {
		t.Errorf("container content = %q, want %q", got, "good")
	}

	// the root remains usable
	env.clock.Advance(1)
	env.root.Render("recovered")
	env.sched.Drain()
	if got := env.container.Content(); got != "recovered" {
		t.Errorf("container content = %q, want %q", got, "recovered")
	}
}

func TestIdleErrorAbortsSliceRemainingWorkSurvives(t *testing.T) {
	var reported int
	env := newTestEnv(t, WithOnRenderError(func(error) { reported++ }))

	env.root.Render(nil) // most urgent, fails
	env.clock.Advance(1)
	env.root.Render("later") // strictly later expiration, survives

	// first slice aborts on the failure; the loop re-registers and the
	// remaining update lands on the next slice
	slices := env.sched.Drain()
	if slices < 2 {
		t.Errorf("expected at least 2 slices, got %d", slices)
	}
	if reported != 1 {
		t.Errorf("reported %d errors, want 1", reported)
	}
	if got := env.container.Content(); got != "later" {
		t.Errorf("container content = %q, want %q", got, "later")
	}
}

func TestFlushSyncPropagatesHostError(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.applyErr = errors.New("structurally invalid")

	env.root.Render("x")
	err := env.root.FlushSync()
	var herr *HostError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HostError, got %v", err)
	}
	if env.container.Content() != "" {
		t.Error("container mutated despite host rejection")
	}

	// terminal for that update only; a later update commits fine
	env.renderer.applyErr = nil
	env.clock.Advance(1)
	env.root.Render("y")
	if err := env.root.FlushSync(); err != nil {
		t.Fatalf("FlushSync after recovery failed: %v", err)
	}
	if got := env.container.Content(); got != "y" {
		t.Errorf("container content = %q, want %q", got, "y")
	}
}

func TestFlushSyncReentrantFromContinuation(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.root.Render("a")
	var got error
	w.Then(func() {
		got = env.root.FlushSync()
	})
	if err := env.root.FlushSync(); err != nil {
		t.Fatalf("outer FlushSync failed: %v", err)
	}
	if !errors.Is(got, ErrReentrantFlush) {
		t.Errorf("nested FlushSync: got %v, want ErrReentrantFlush", got)
	}
}

func TestRenderPanicIsRecovered(t *testing.T) {
	env := &testEnv{
		sched:     new(ManualScheduler),
		clock:     new(ManualClock),
		container: new(testContainer),
	}
	boom := errors.New("boom")
	root, err := CreateRoot(env.container, panicRenderer{err: boom},
		WithScheduler(env.sched), WithClock(env.clock))
	if err != nil {
		t.Fatal(err)
	}

	root.Render("x")
	ferr := root.FlushSync()
	var perr *PanicError
	if !errors.As(ferr, &perr) {
		t.Fatalf("expected *PanicError, got %v", ferr)
	}
	if !errors.Is(ferr, boom) {
		t.Error("panic cause chain broken")
	}
}

type panicRenderer struct{ err error }

func (p panicRenderer) Render(prev Tree, desc Description) (Tree, error) { panic(p.err) }
func (p panicRenderer) Apply(container Container, next Tree) error      { return nil }

func TestRootStateString(t *testing.T) {
	cases := map[RootState]string{
		RootActive:    "Active",
		RootClosing:   "Closing",
		RootUnmounted: "Unmounted",
		RootState(9):  "Unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("RootState(%d).String() = %q, want %q", uint32(s), got, want)
		}
	}
}
