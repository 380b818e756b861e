package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sidongo/search"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		dir := t.TempDir()

		s, err := OpenLocal(dir, nil)
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, s.SaveResult(ctx, optimalResult(3, 4, []uint64{1, 2, 4})))
		require.NoError(t, s.SaveOptimalSets(ctx, 3, [][]uint64{{1, 2, 4}, {2, 3, 4}}))

		r, err := s.Result(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 4}, r.Set)

		sets, err := s.OptimalSets(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, sets, 2)
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		dir := t.TempDir()

		s, err := OpenLocal(dir, nil)
		require.NoError(t, err)

		for n := 1; n <= 4; n++ {
			require.NoError(t, s.SaveResult(ctx, optimalResult(n, uint64(n), []uint64{uint64(n)})))
		}
		require.NoError(t, s.SaveOptimalSets(ctx, 4, [][]uint64{{1, 2, 4, 8}}))
		require.NoError(t, s.Close())

		s2, err := OpenLocal(dir, nil)
		require.NoError(t, err)
		defer s2.Close()

		last, err := s2.LastN(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, last)

		r, err := s2.Result(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), r.MaxValue)

		sets, err := s2.OptimalSets(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, [][]uint64{{1, 2, 4, 8}}, sets)
	})

	t.Run("JournalReplayWithoutClose", func(t *testing.T) {
		// Simulate a crash: write entries, reopen without Close. The
		// flushed journal must replay.
		dir := t.TempDir()

		s, err := OpenLocal(dir, nil)
		require.NoError(t, err)

		require.NoError(t, s.SaveResult(ctx, optimalResult(5, 13, []uint64{6, 9, 11, 12, 13})))
		// No Close: drop the handle with only journal flushes done.

		s2, err := OpenLocal(dir, nil)
		require.NoError(t, err)
		defer s2.Close()

		has, err := s2.HasOptimal(ctx, 5)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("CompactionAfterManyWrites", func(t *testing.T) {
		dir := t.TempDir()

		s, err := OpenLocal(dir, nil)
		require.NoError(t, err)

		// Cross the snapshot threshold once, leaving further entries
		// in the journal for Close to fold in.
		for n := 1; n <= 3*localSnapshotEvery/2; n++ {
			require.NoError(t, s.SaveResult(ctx, optimalResult(n, uint64(n), []uint64{uint64(n)})))
		}
		require.NoError(t, s.Close())

		assert.FileExists(t, filepath.Join(dir, localSnapshotName))

		s2, err := OpenLocal(dir, nil)
		require.NoError(t, err)
		defer s2.Close()

		stats, err := s2.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3*localSnapshotEvery/2, stats.TotalResults)
	})

	t.Run("NonOptimalStatusPreserved", func(t *testing.T) {
		dir := t.TempDir()

		s, err := OpenLocal(dir, nil)
		require.NoError(t, err)

		r := optimalResult(9, 0, nil)
		r.Status = search.StatusInterrupted
		require.NoError(t, s.SaveResult(ctx, r))
		require.NoError(t, s.Close())

		s2, err := OpenLocal(dir, nil)
		require.NoError(t, err)
		defer s2.Close()

		got, err := s2.Result(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, search.StatusInterrupted, got.Status)

		has, err := s2.HasOptimal(ctx, 9)
		require.NoError(t, err)
		assert.False(t, has)
	})
}
