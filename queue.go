package renderloop

// pendingUpdate is a queue entry: one render request stamped with an
// expiration time and, when scoped, tagged with its batch. Batched and
// unscoped updates share a single physical queue; isolation is expressed
// by the tag plus the stable comparator, preserving single-container
// mutual exclusion without separate queues.
//
// All fields except work/adopted contents are guarded by Root.mu.
type pendingUpdate struct {
	desc       Description
	batch      *Batch // nil = unscoped, ASAP scheduling
	work       *Work
	adopted    []*Work // handles of updates this one superseded
	seq        uint64
	expiration ExpirationTime
	index      int // heap index, -1 when not queued
	superseded bool
	terminal   bool // unmount: render step yields an empty tree
	prerender  bool // batch entry whose render step ran during an idle slice
}

// adopt takes over responsibility for resolving old's handles. Called
// when this update supersedes old within the same scope: old performs no
// render step, and its handles settle when this update commits.
func (e *pendingUpdate) adopt(old *pendingUpdate) {
	old.superseded = true
	e.adopted = append(e.adopted, old.adopted...)
	old.adopted = nil
	if old.work != nil {
		e.adopted = append(e.adopted, old.work)
	}
}

// resolve settles adopted handles (oldest first) and then the update's
// own handle. Must be called after the host apply, never before.
func (e *pendingUpdate) resolve() {
	for _, w := range e.adopted {
		w.commit()
	}
	if e.work != nil {
		e.work.commit()
	}
}

// updateHeap is a min-heap of pending updates ordered by expiration time,
// ties broken by insertion order. Implements heap.Interface.
type updateHeap []*pendingUpdate

func (h updateHeap) Len() int { return len(h) }

func (h updateHeap) Less(i, j int) bool {
	if h[i].expiration != h[j].expiration {
		return h[i].expiration < h[j].expiration
	}
	return h[i].seq < h[j].seq
}

func (h updateHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *updateHeap) Push(x any) {
	e := x.(*pendingUpdate)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *updateHeap) Pop() any {
	old := *h
	n := len(old) - 1
	e := old[n]
	old[n] = nil // allow GC of the entry's references
	e.index = -1
	*h = old[:n]
	return e
}

// before reports whether a orders ahead of b under the queue comparator.
func before(a, b *pendingUpdate) bool {
	if a.expiration != b.expiration {
		return a.expiration < b.expiration
	}
	return a.seq < b.seq
}
