package renderloop

// Tree is the committed host-tree state produced by reconciliation.
// It is opaque to the scheduler; a nil Tree denotes an empty container.
type Tree = any

// Description is a caller-supplied description of the desired tree.
// It is opaque to the scheduler and interpreted only by the [Renderer].
type Description = any

// Container is the externally owned mutable target that rendered output
// is ultimately applied to. The scheduler treats it as an opaque
// reference and never mutates it directly.
type Container = any

// Renderer is the external collaborator that performs the opaque
// reconciliation step and owns the only call boundary permitted to mutate
// the host container.
//
// Both methods are invoked from at most one goroutine at a time (flushes
// are serialized), and must not retain references to their arguments
// beyond the call.
type Renderer interface {
	// Render produces the next tree state from the previous committed
	// tree and a description. prev is nil on the first render and after
	// an unmount. Any error is fatal for the enclosing update; no retry
	// occurs.
	Render(prev Tree, desc Description) (Tree, error)

	// Apply commits next to the container, replacing its content
	// wholesale. A nil next clears the container. An error is treated as
	// a host rejection, fatal for the enclosing update.
	Apply(container Container, next Tree) error
}

// Hydrator is an optional capability of a [Renderer]: reconciling against
// pre-existing container markup instead of replacing it outright.
//
// When a root is created with [WithHydrate] and its renderer implements
// Hydrator, the first commit calls Hydrate instead of [Renderer.Apply].
// An error reports a hydration mismatch: it is logged as a warning, the
// existing markup is discarded, and the tree is applied fresh.
type Hydrator interface {
	Hydrate(container Container, next Tree) error
}
