package renderloop

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// errUnrenderable marks descriptions the test renderer rejects.
var errUnrenderable = errors.New("unrenderable node type")

// testContainer is a minimal stand-in for a host container: a mutable
// text slot.
type testContainer struct {
	mu      sync.Mutex
	content string
}

func (c *testContainer) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

func (c *testContainer) set(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = s
}

// countRenderer renders descriptions to their string form, counting
// render and apply steps. A nil description is rejected as unrenderable.
type countRenderer struct {
	renders  atomic.Int64
	applies  atomic.Int64
	applyErr error // returned by Apply when set
}

func (r *countRenderer) Render(prev Tree, desc Description) (Tree, error) {
	r.renders.Add(1)
	if desc == nil {
		return nil, errUnrenderable
	}
	return fmt.Sprint(desc), nil
}

func (r *countRenderer) Apply(container Container, next Tree) error {
	r.applies.Add(1)
	if r.applyErr != nil {
		return r.applyErr
	}
	c := container.(*testContainer)
	if next == nil {
		c.set("")
		return nil
	}
	c.set(next.(string))
	return nil
}

// hydrateRenderer wraps countRenderer with a Hydrate capability.
type hydrateRenderer struct {
	countRenderer
	hydrates   atomic.Int64
	hydrateErr error // mismatch when set
}

func (r *hydrateRenderer) Hydrate(container Container, next Tree) error {
	r.hydrates.Add(1)
	if r.hydrateErr != nil {
		return r.hydrateErr
	}
	container.(*testContainer).set(next.(string))
	return nil
}

// testEnv bundles a root with deterministic collaborators.
type testEnv struct {
	root      *Root
	sched     *ManualScheduler
	clock     *ManualClock
	renderer  *countRenderer
	container *testContainer
}

func newTestEnv(t *testing.T, opts ...RootOption) *testEnv {
	t.Helper()
	env := &testEnv{
		sched:     new(ManualScheduler),
		clock:     new(ManualClock),
		renderer:  new(countRenderer),
		container: new(testContainer),
	}
	opts = append([]RootOption{
		WithScheduler(env.sched),
		WithClock(env.clock),
		WithMetrics(true),
	}, opts...)
	root, err := CreateRoot(env.container, env.renderer, opts...)
	if err != nil {
		t.Fatalf("CreateRoot failed: %v", err)
	}
	env.root = root
	return env
}
