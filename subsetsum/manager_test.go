package subsetsum

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastManager(t *testing.T) {
	t.Run("SumCoverage", func(t *testing.T) {
		m := NewFast()

		for i, v := range []uint64{1, 2, 4, 8, 16} {
			ok, err := m.TryPush(v)
			require.NoError(t, err)
			require.True(t, ok)

			// |S| = 2^|E| - 1 after every successful push.
			assert.Equal(t, (1<<(i+1))-1, m.SumCount())
		}
		assert.Equal(t, 5, m.Len())
	})

	t.Run("CollisionDetection", func(t *testing.T) {
		m := NewFast()

		mustPush(t, m, 1)
		mustPush(t, m, 2)

		// 3 = 1+2 collides.
		ok, err := m.TryPush(3)
		require.NoError(t, err)
		assert.False(t, ok)

		// 4 is clean: sums {1,2,3,4,5,6,7}.
		mustPush(t, m, 4)

		// Everything in [5, 7] now collides with an existing sum.
		for v := uint64(5); v <= 7; v++ {
			ok, err := m.TryPush(v)
			require.NoError(t, err)
			assert.False(t, ok, "v=%d", v)
		}
	})

	t.Run("PushPopSymmetry", func(t *testing.T) {
		m := NewFast()
		mustPush(t, m, 1)
		mustPush(t, m, 2)

		before := m.Snapshot(nil)
		sumsBefore := m.SumCount()

		mustPush(t, m, 4)
		m.Pop()

		// Bit-identical restore.
		assert.Equal(t, before, m.Snapshot(nil))
		assert.Equal(t, sumsBefore, m.SumCount())

		// The popped value can be pushed again.
		mustPush(t, m, 4)
		assert.Equal(t, 3, m.Len())
	})

	t.Run("RollbackIdempotence", func(t *testing.T) {
		m := NewFast()
		mustPush(t, m, 1)
		mustPush(t, m, 2)

		before := m.Snapshot(nil)
		sumsBefore := m.SumCount()

		// A failing push leaves no trace, twice in a row.
		for i := 0; i < 2; i++ {
			ok, err := m.TryPush(3)
			require.NoError(t, err)
			require.False(t, ok)
			assert.Equal(t, before, m.Snapshot(nil))
			assert.Equal(t, sumsBefore, m.SumCount())
		}
	})

	t.Run("OverflowGuard", func(t *testing.T) {
		m := NewFast()
		mustPush(t, m, 2)

		// 2 + MaxUint64-1 would wrap: rejected as if it collided.
		ok, err := m.TryPush(math.MaxUint64 - 1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, m.Len())

		// MaxUint64-2 is the largest admissible value.
		mustPush(t, m, math.MaxUint64-2)
	})

	t.Run("PopEmptyIsNoop", func(t *testing.T) {
		m := NewFast()
		m.Pop()
		assert.Equal(t, 0, m.Len())
	})

	t.Run("Reset", func(t *testing.T) {
		m := NewFast()
		mustPush(t, m, 1)
		mustPush(t, m, 2)

		m.Reset()
		assert.Equal(t, 0, m.Len())
		assert.Equal(t, 0, m.SumCount())

		// 3 no longer collides after the reset.
		mustPush(t, m, 3)
	})

	t.Run("AtAndSnapshot", func(t *testing.T) {
		m := NewFast()
		mustPush(t, m, 1)
		mustPush(t, m, 2)
		mustPush(t, m, 4)

		assert.Equal(t, uint64(1), m.At(0))
		assert.Equal(t, uint64(4), m.At(2))
		assert.Equal(t, uint64(0), m.At(3))
		assert.Equal(t, uint64(0), m.At(-1))
		assert.Equal(t, []uint64{1, 2, 4}, m.Snapshot(nil))
	})
}

func TestIterativeManager(t *testing.T) {
	t.Run("CollisionDetection", func(t *testing.T) {
		m := NewIterative()

		mustPush(t, m, 1)
		mustPush(t, m, 2)

		ok, err := m.TryPush(3)
		require.NoError(t, err)
		assert.False(t, ok)

		mustPush(t, m, 4)

		for v := uint64(5); v <= 7; v++ {
			ok, err := m.TryPush(v)
			require.NoError(t, err)
			assert.False(t, ok, "v=%d", v)
		}
	})

	t.Run("DisjointPairCollision", func(t *testing.T) {
		// {3, 5}, candidate 2: the subsets {2, 3} and {5} have equal
		// sums, so the disjoint-pair test must reject 2.
		m := NewIterative()
		mustPush(t, m, 3)
		mustPush(t, m, 5)

		ok, err := m.TryPush(2)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("MatchesFastManager", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))

		for trial := 0; trial < 50; trial++ {
			fast := NewFast()
			iter := NewIterative()

			for step := 0; step < 12; step++ {
				v := uint64(rng.Intn(40)) + 1

				okFast, err := fast.TryPush(v)
				require.NoError(t, err)
				okIter, err := iter.TryPush(v)
				require.NoError(t, err)

				require.Equal(t, okFast, okIter,
					"trial=%d step=%d v=%d elements=%v", trial, step, v, fast.Snapshot(nil))

				if okFast && rng.Intn(3) == 0 {
					fast.Pop()
					iter.Pop()
				}
			}

			require.Equal(t, fast.Snapshot(nil), iter.Snapshot(nil))
		}
	})

	t.Run("TooManyElements", func(t *testing.T) {
		// Seed 63 elements directly; running TryPush's 4^n check at
		// this size is infeasible, and exactly that is the point of
		// the hard refusal.
		m := NewIterative()
		for i := 0; i < 63; i++ {
			m.elements = append(m.elements, uint64(1)<<uint(i))
		}

		ok, err := m.TryPush(3)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrSequenceTooLong)
		assert.Equal(t, 63, m.Len())
	})

	t.Run("PopEmptyIsNoop", func(t *testing.T) {
		m := NewIterative()
		m.Pop()
		assert.Equal(t, 0, m.Len())
	})
}

func TestNew(t *testing.T) {
	assert.Equal(t, ModeFast, New(ModeFast).Mode())
	assert.Equal(t, ModeFast, New(ModeAuto).Mode())
	assert.Equal(t, ModeIterative, New(ModeIterative).Mode())
}

func TestIsSidonSet(t *testing.T) {
	tests := []struct {
		name string
		set  []uint64
		want bool
	}{
		{"empty", nil, true},
		{"single", []uint64{1}, true},
		{"powers of two", []uint64{1, 2, 4, 8}, true},
		{"conway-guy style", []uint64{6, 9, 11, 12, 13}, true},
		{"sum collision", []uint64{1, 2, 3}, false},
		{"subset equals element", []uint64{1, 2, 5, 11, 13}, false},
		{"duplicate element", []uint64{5, 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSidonSet(tt.set))
		})
	}
}

func mustPush(t *testing.T, m Manager, v uint64) {
	t.Helper()
	ok, err := m.TryPush(v)
	require.NoError(t, err)
	require.True(t, ok, "push %d", v)
}
