package sumset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	t.Run("AddContainsRemove", func(t *testing.T) {
		s := New()

		assert.True(t, s.Add(42))
		assert.True(t, s.Contains(42))
		assert.Equal(t, 1, s.Len())

		// Duplicate add must not mutate.
		assert.False(t, s.Add(42))
		assert.Equal(t, 1, s.Len())

		assert.True(t, s.Remove(42))
		assert.False(t, s.Contains(42))
		assert.Equal(t, 0, s.Len())

		// Removing an absent value reports false.
		assert.False(t, s.Remove(42))
	})

	t.Run("GrowthKeepsMembership", func(t *testing.T) {
		s := NewWithBuckets(minBucketCount)

		const count = 10_000
		for i := uint64(1); i <= count; i++ {
			require.True(t, s.Add(i*2654435761))
		}
		require.Equal(t, count, s.Len())

		for i := uint64(1); i <= count; i++ {
			assert.True(t, s.Contains(i*2654435761))
		}
		assert.False(t, s.Contains(1))
	})

	t.Run("ClearRecyclesNodes", func(t *testing.T) {
		s := New()

		for i := uint64(1); i <= 100; i++ {
			s.Add(i)
		}
		s.Clear()

		assert.Equal(t, 0, s.Len())
		for i := uint64(1); i <= 100; i++ {
			assert.False(t, s.Contains(i))
		}

		// The set is fully usable after Clear.
		assert.True(t, s.Add(7))
		assert.True(t, s.Contains(7))
	})

	t.Run("AppendTo", func(t *testing.T) {
		s := New()
		want := []uint64{3, 1, 4, 15, 92}
		for _, v := range want {
			s.Add(v)
		}

		got := s.AppendTo(nil)
		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
		assert.Equal(t, want, got)

		// Appends after existing content.
		got = s.AppendTo([]uint64{99})
		assert.Len(t, got, 6)
		assert.Equal(t, uint64(99), got[0])
	})

	t.Run("MinimumBucketCount", func(t *testing.T) {
		s := NewWithBuckets(1)
		assert.GreaterOrEqual(t, len(s.buckets), minBucketCount)
	})

	t.Run("ExtremeValues", func(t *testing.T) {
		s := New()
		assert.True(t, s.Add(0))
		assert.True(t, s.Add(^uint64(0)))
		assert.True(t, s.Contains(0))
		assert.True(t, s.Contains(^uint64(0)))
	})
}

func TestMix64(t *testing.T) {
	// Sequential keys must spread over the low bits after mixing;
	// clustering on a few slots would wreck the chain lengths.
	seen := make(map[uint64]struct{})
	for i := uint64(0); i < 4096; i++ {
		h := mix64(i) & 4095
		seen[h] = struct{}{}
	}
	// Expect a healthy spread over 4096 slots.
	assert.Greater(t, len(seen), 2048)
}

func BenchmarkAddRemove(b *testing.B) {
	s := New()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		v := uint64(i)*2654435761 + 1
		s.Add(v)
		s.Remove(v)
	}
}
