package subsetsum

import (
	"math"

	"github.com/hupe1980/sidongo/internal/history"
	"github.com/hupe1980/sidongo/internal/sumset"
)

// FastManager keeps every current subset sum in a hash set. A push
// costs O(|S|); a pop undoes it exactly via the rollback log.
//
// Invariant: sums = { Σ e : e over every nonempty subset of elements },
// so sums.Len() == 2^len(elements) - 1.
type FastManager struct {
	elements []uint64
	sums     *sumset.Set
	hist     *history.Stack

	// total is the sum of all elements, i.e. the largest stored sum.
	// Used to reject pushes that would wrap uint64.
	total uint64

	// scratch is the reused snapshot buffer for the two-pass push.
	scratch []uint64
}

var _ Manager = (*FastManager)(nil)

// NewFast creates an empty fast manager.
func NewFast() *FastManager {
	return &FastManager{
		elements: make([]uint64, 0, 64),
		sums:     sumset.New(),
		hist:     history.New(),
	}
}

// Mode implements Manager.
func (m *FastManager) Mode() Mode { return ModeFast }

// TryPush implements Manager.
//
// The new sums are {v} ∪ {v+s : s ∈ sums}. Those cannot clash with
// each other (v+sᵢ = v+sⱼ forces sᵢ = sⱼ, and v+s = v is impossible
// for s > 0), so the only possible failure is a clash with an existing
// sum. All checks run before any mutation, which keeps the collision
// path allocation-free and the operation atomic.
//
// A v for which v+total would wrap uint64 is rejected as if it
// collided: wrapped sums could mask genuine collisions.
func (m *FastManager) TryPush(v uint64) (bool, error) {
	if v > math.MaxUint64-m.total {
		return false, nil
	}

	if m.sums.Contains(v) {
		return false, nil
	}

	m.scratch = m.sums.AppendTo(m.scratch[:0])

	for _, s := range m.scratch {
		if m.sums.Contains(v + s) {
			return false, nil
		}
	}

	m.hist.PushFrame()

	m.sums.Add(v)
	m.hist.Record(v)

	for _, s := range m.scratch {
		ns := v + s
		m.sums.Add(ns)
		m.hist.Record(ns)
	}

	m.elements = append(m.elements, v)
	m.total += v

	return true, nil
}

// Pop implements Manager.
func (m *FastManager) Pop() {
	if len(m.elements) == 0 {
		return
	}

	for _, s := range m.hist.PopFrame() {
		m.sums.Remove(s)
	}

	last := len(m.elements) - 1
	m.total -= m.elements[last]
	m.elements = m.elements[:last]
}

// Len implements Manager.
func (m *FastManager) Len() int { return len(m.elements) }

// At implements Manager.
func (m *FastManager) At(i int) uint64 {
	if i < 0 || i >= len(m.elements) {
		return 0
	}
	return m.elements[i]
}

// Snapshot implements Manager.
func (m *FastManager) Snapshot(dst []uint64) []uint64 {
	return append(dst, m.elements...)
}

// Reset implements Manager.
func (m *FastManager) Reset() {
	m.elements = m.elements[:0]
	m.sums.Clear()
	m.hist.Reset()
	m.total = 0
}

// SumCount returns the number of tracked subset sums. Exposed for
// invariant checks: it must equal 2^Len() - 1.
func (m *FastManager) SumCount() int {
	return m.sums.Len()
}
