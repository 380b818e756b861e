package search

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sidongo/subsetsum"
)

func solve(t *testing.T, cfg Config) Result {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	result, err := s.Solve()
	require.NoError(t, err)
	return result
}

func TestSolve(t *testing.T) {
	t.Run("N1", func(t *testing.T) {
		result := solve(t, Config{N: 1})

		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, []uint64{1}, result.Set)
		assert.Equal(t, uint64(1), result.MaxValue)
		assert.Equal(t, uint64(0), result.NodesExplored)
	})

	t.Run("N2", func(t *testing.T) {
		result := solve(t, Config{N: 2})

		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, []uint64{1, 2}, result.Set)
		assert.Equal(t, uint64(2), result.MaxValue)
	})

	t.Run("N3", func(t *testing.T) {
		result := solve(t, Config{N: 3})

		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, []uint64{1, 2, 4}, result.Set)
		assert.Equal(t, uint64(4), result.MaxValue)
	})

	t.Run("N4", func(t *testing.T) {
		result := solve(t, Config{N: 4})

		// {1, 2, 4, 8} is found first, but {3, 5, 6, 7} also has 15
		// distinct subset sums and a smaller maximum.
		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, []uint64{3, 5, 6, 7}, result.Set)
		assert.Equal(t, uint64(7), result.MaxValue)
	})

	t.Run("N5", func(t *testing.T) {
		result := solve(t, Config{N: 5})

		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, uint64(13), result.MaxValue)
		assert.Len(t, result.Set, 5)
		assert.True(t, subsetsum.IsSidonSet(result.Set))
	})

	t.Run("IterativeModeAgrees", func(t *testing.T) {
		fast := solve(t, Config{N: 4, Mode: subsetsum.ModeFast})
		iter := solve(t, Config{N: 4, Mode: subsetsum.ModeIterative})

		assert.Equal(t, fast.MaxValue, iter.MaxValue)
		assert.Equal(t, fast.Set, iter.Set)
	})

	t.Run("FirstOnly", func(t *testing.T) {
		result := solve(t, Config{N: 4, FirstOnly: true})

		// The search stops at the lexicographically first completion,
		// even though the optimum for N=4 has maximum 7.
		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, []uint64{1, 2, 4, 8}, result.Set)
	})

	t.Run("BoundTooTight", func(t *testing.T) {
		// No 3-element set fits under a bound of 4.
		result := solve(t, Config{N: 3, InitialBound: 4})

		assert.Equal(t, StatusNoSolution, result.Status)
		assert.Empty(t, result.Set)
		assert.Equal(t, uint64(0), result.MaxValue)
	})

	t.Run("Interrupted", func(t *testing.T) {
		var stop atomic.Bool
		stop.Store(true)

		result := solve(t, Config{N: 20, Stop: &stop})

		assert.Equal(t, StatusInterrupted, result.Status)
		assert.Empty(t, result.Set)
		assert.Equal(t, uint64(0), result.MaxValue)
	})

	t.Run("InterruptedByTimer", func(t *testing.T) {
		var stop atomic.Bool
		timer := time.AfterFunc(time.Millisecond, func() { stop.Store(true) })
		defer timer.Stop()

		// N=22 is far too hard to finish; the flag must end it.
		result := solve(t, Config{N: 22, Stop: &stop, Mode: subsetsum.ModeFast})

		assert.Equal(t, StatusInterrupted, result.Status)
		assert.Empty(t, result.Set)
	})

	t.Run("Monotonicity", func(t *testing.T) {
		var (
			lastBest  uint64
			lastNodes uint64
			solutions int
		)

		cfg := Config{
			N:           6,
			LogInterval: time.Nanosecond,
			OnSolution: func(_ int, max uint64, set []uint64) {
				if solutions > 0 {
					assert.Less(t, max, lastBest)
				}
				lastBest = max
				solutions++
				assert.True(t, subsetsum.IsSidonSet(set))
			},
			OnProgress: func(stats Stats) {
				assert.GreaterOrEqual(t, stats.NodesExplored, lastNodes)
				lastNodes = stats.NodesExplored
			},
		}

		result := solve(t, cfg)
		assert.Equal(t, StatusOptimal, result.Status)
		assert.Positive(t, solutions)
		assert.Equal(t, lastBest, result.MaxValue)
	})

	t.Run("Callbacks", func(t *testing.T) {
		var solutionSets [][]uint64

		cfg := Config{
			N: 4,
			OnSolution: func(n int, max uint64, set []uint64) {
				assert.Equal(t, 4, n)
				solutionSets = append(solutionSets, set)
			},
		}

		result := solve(t, cfg)
		require.NotEmpty(t, solutionSets)
		assert.Equal(t, result.Set, solutionSets[len(solutionSets)-1])
	})
}

func TestSolveAll(t *testing.T) {
	t.Run("N5EnumeratesAllOptima", func(t *testing.T) {
		s, err := New(Config{N: 5})
		require.NoError(t, err)

		result, sets, err := s.SolveAll()
		require.NoError(t, err)

		assert.Equal(t, StatusOptimal, result.Status)
		assert.Equal(t, uint64(13), result.MaxValue)
		require.NotEmpty(t, sets)

		seen := make(map[string]struct{})
		for _, set := range sets {
			require.Len(t, set, 5)
			assert.True(t, subsetsum.IsSidonSet(set), "set %v", set)

			var max uint64
			for _, v := range set {
				if v > max {
					max = v
				}
			}
			assert.Equal(t, uint64(13), max)

			key := setString(set)
			_, dup := seen[key]
			assert.False(t, dup, "duplicate set %v", set)
			seen[key] = struct{}{}
		}

		// The best set of the result is among the enumerated optima.
		_, ok := seen[setString(result.Set)]
		assert.True(t, ok)
	})

	t.Run("N4Completeness", func(t *testing.T) {
		s, err := New(Config{N: 4})
		require.NoError(t, err)

		result, sets, err := s.SolveAll()
		require.NoError(t, err)
		require.Equal(t, uint64(7), result.MaxValue)

		// Brute force every 4-subset of 1..7: the enumeration must
		// return exactly the valid sets attaining the optimum.
		var want [][]uint64
		for a := uint64(1); a <= 7; a++ {
			for b := a + 1; b <= 7; b++ {
				for c := b + 1; c <= 7; c++ {
					for d := c + 1; d <= 7; d++ {
						set := []uint64{a, b, c, d}
						if d == 7 && subsetsum.IsSidonSet(set) {
							want = append(want, set)
						}
					}
				}
			}
		}

		assert.Equal(t, want, sets)
	})

	t.Run("LexicographicOrder", func(t *testing.T) {
		s, err := New(Config{N: 4})
		require.NoError(t, err)

		_, sets, err := s.SolveAll()
		require.NoError(t, err)

		for i := 1; i < len(sets); i++ {
			assert.True(t, lexLess(sets[i-1], sets[i]),
				"sets out of order: %v before %v", sets[i-1], sets[i])
		}
	})

	t.Run("N1", func(t *testing.T) {
		s, err := New(Config{N: 1})
		require.NoError(t, err)

		result, sets, err := s.SolveAll()
		require.NoError(t, err)

		assert.Equal(t, uint64(1), result.MaxValue)
		assert.Equal(t, [][]uint64{{1}}, sets)
	})
}

func TestNew(t *testing.T) {
	t.Run("RejectsInvalidN", func(t *testing.T) {
		_, err := New(Config{N: 0})
		assert.Error(t, err)

		_, err = New(Config{N: -3})
		assert.Error(t, err)
	})

	t.Run("RejectsNPast62", func(t *testing.T) {
		_, err := New(Config{N: 63})
		assert.ErrorIs(t, err, subsetsum.ErrSequenceTooLong)
	})

	t.Run("DowngradesFastModeForLargeN", func(t *testing.T) {
		s, err := New(Config{N: 30, Mode: subsetsum.ModeFast})
		require.NoError(t, err)
		assert.Equal(t, subsetsum.ModeIterative, s.mgr.Mode())
	})

	t.Run("AutoMode", func(t *testing.T) {
		s, err := New(Config{N: 10})
		require.NoError(t, err)
		assert.Equal(t, subsetsum.ModeFast, s.mgr.Mode())

		s, err = New(Config{N: 25})
		require.NoError(t, err)
		assert.Equal(t, subsetsum.ModeIterative, s.mgr.Mode())
	})
}

func TestInitialBound(t *testing.T) {
	assert.Equal(t, uint64(1), InitialBound(0))
	assert.Equal(t, uint64(2), InitialBound(1))
	assert.Equal(t, uint64(3), InitialBound(2))
	assert.Equal(t, uint64(17), InitialBound(5))
	assert.Equal(t, uint64(1<<19+1), InitialBound(20))
}

func setString(set []uint64) string {
	return fmt.Sprintf("%v", set)
}

func lexLess(a, b []uint64) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
