package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	t.Run("PushRecordPop", func(t *testing.T) {
		s := New()

		s.PushFrame()
		s.Record(1)
		s.Record(2)
		s.PushFrame()
		s.Record(10)

		require.Equal(t, 2, s.Depth())

		assert.Equal(t, []uint64{10}, s.PopFrame())
		assert.Equal(t, []uint64{1, 2}, s.PopFrame())
		assert.Equal(t, 0, s.Depth())
	})

	t.Run("PopEmpty", func(t *testing.T) {
		s := New()
		assert.Nil(t, s.PopFrame())
	})

	t.Run("FrameReuse", func(t *testing.T) {
		s := New()

		s.PushFrame()
		for i := uint64(0); i < 1000; i++ {
			s.Record(i)
		}
		require.Len(t, s.PopFrame(), 1000)

		// The recycled frame starts empty.
		s.PushFrame()
		s.Record(7)
		assert.Equal(t, []uint64{7}, s.PopFrame())
	})

	t.Run("Reset", func(t *testing.T) {
		s := New()

		s.PushFrame()
		s.Record(1)
		s.PushFrame()
		s.Record(2)
		s.Reset()

		assert.Equal(t, 0, s.Depth())

		s.PushFrame()
		s.Record(3)
		assert.Equal(t, []uint64{3}, s.PopFrame())
	})

	t.Run("DeepStack", func(t *testing.T) {
		s := New()
		for i := uint64(0); i < 200; i++ {
			s.PushFrame()
			s.Record(i)
		}
		require.Equal(t, 200, s.Depth())
		for i := uint64(199); ; i-- {
			assert.Equal(t, []uint64{i}, s.PopFrame())
			if i == 0 {
				break
			}
		}
	})
}
