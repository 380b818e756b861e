package store

import (
	"context"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sidongo/search"
)

// MemoryStore is an in-memory Store for tests and throwaway runs.
// Thread-safe for concurrent readers and writers.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[int]search.Result
	optimal map[int][][]uint64
	seen    map[int]map[string]struct{} // dedup keys per n
	solved  *roaring.Bitmap             // n values with an optimal record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[int]search.Result),
		optimal: make(map[int][][]uint64),
		seen:    make(map[int]map[string]struct{}),
		solved:  roaring.New(),
	}
}

// HasOptimal implements Store.
func (m *MemoryStore) HasOptimal(_ context.Context, n int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.solved.Contains(uint32(n)), nil
}

// BestBound implements Store.
func (m *MemoryStore) BestBound(_ context.Context, n int) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[n]
	if !ok || r.MaxValue == 0 {
		return 0, false, nil
	}
	return r.MaxValue, true, nil
}

// SaveResult implements Store.
func (m *MemoryStore) SaveResult(_ context.Context, result *search.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveResultLocked(result)
	return nil
}

func (m *MemoryStore) saveResultLocked(result *search.Result) {
	r := *result
	r.Set = append([]uint64(nil), result.Set...)
	m.results[r.N] = r

	if r.Status == search.StatusOptimal {
		m.solved.Add(uint32(r.N))
	}
}

// SaveOptimalSets implements Store.
func (m *MemoryStore) SaveOptimalSets(_ context.Context, n int, sets [][]uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveOptimalSetsLocked(n, sets)
	return nil
}

func (m *MemoryStore) saveOptimalSetsLocked(n int, sets [][]uint64) {
	seen := m.seen[n]
	if seen == nil {
		seen = make(map[string]struct{})
		m.seen[n] = seen
	}

	for _, set := range sets {
		key := SetKey(set)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.optimal[n] = append(m.optimal[n], append([]uint64(nil), set...))
	}
}

// Result implements Store.
func (m *MemoryStore) Result(_ context.Context, n int) (*search.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[n]
	if !ok {
		return nil, ErrNotFound
	}
	r.Set = append([]uint64(nil), r.Set...)
	return &r, nil
}

// OptimalSets implements Store.
func (m *MemoryStore) OptimalSets(_ context.Context, n int) ([][]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sets, ok := m.optimal[n]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([][]uint64, len(sets))
	for i, set := range sets {
		out[i] = append([]uint64(nil), set...)
	}
	return out, nil
}

// LastN implements Store.
func (m *MemoryStore) LastN(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.solved.IsEmpty() {
		return 0, nil
	}
	return int(m.solved.Maximum()), nil
}

// Results implements Store.
func (m *MemoryStore) Results(_ context.Context) ([]search.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]search.Result, 0, len(m.results))
	for _, r := range m.results {
		r.Set = append([]uint64(nil), r.Set...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].N < out[j].N })
	return out, nil
}

// Stats implements Store.
func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	s.TotalResults = len(m.results)
	for _, r := range m.results {
		if r.Status == search.StatusOptimal {
			s.OptimalResults++
			if r.N > s.MaxNSolved {
				s.MaxNSolved = r.N
			}
		}
		s.TotalComputationTime += r.ComputationTime
	}
	return s, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
