package renderloop

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of a root's counters, returned
// by [Root.Metrics]. All counters are cumulative since root creation.
type MetricsSnapshot struct {
	// RenderSteps counts invocations of the reconciliation step,
	// including batch pre-renders during idle slices.
	RenderSteps uint64

	// Commits counts successful applications to the host container.
	Commits uint64

	// IdleSlices counts idle-callback invocations that reached the loop.
	IdleSlices uint64

	// Yields counts slices that stopped with work remaining because the
	// deadline was exhausted.
	Yields uint64

	// Superseded counts pending updates that were superseded by newer
	// work and discarded without a render step.
	Superseded uint64

	// CacheHits counts forced commits that reused a render result
	// computed earlier by an idle slice.
	CacheHits uint64
}

// metrics tracks runtime statistics for a root. All methods are nil-safe
// and thread-safe; a nil receiver (metrics disabled) is a no-op.
type metrics struct {
	renderSteps atomic.Uint64
	commits     atomic.Uint64
	idleSlices  atomic.Uint64
	yields      atomic.Uint64
	superseded  atomic.Uint64
	cacheHits   atomic.Uint64
}

func (m *metrics) addRenderStep() {
	if m != nil {
		m.renderSteps.Add(1)
	}
}

func (m *metrics) addCommit() {
	if m != nil {
		m.commits.Add(1)
	}
}

func (m *metrics) addIdleSlice() {
	if m != nil {
		m.idleSlices.Add(1)
	}
}

func (m *metrics) addYield() {
	if m != nil {
		m.yields.Add(1)
	}
}

func (m *metrics) addSuperseded() {
	if m != nil {
		m.superseded.Add(1)
	}
}

func (m *metrics) addCacheHit() {
	if m != nil {
		m.cacheHits.Add(1)
	}
}

func (m *metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		RenderSteps: m.renderSteps.Load(),
		Commits:     m.commits.Load(),
		IdleSlices:  m.idleSlices.Load(),
		Yields:      m.yields.Load(),
		Superseded:  m.superseded.Load(),
		CacheHits:   m.cacheHits.Load(),
	}
}
