package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	type record struct {
		N   int      `json:"n"`
		Set []uint64 `json:"set"`
	}

	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(record{N: 3, Set: []uint64{1, 2, 4}})
	require.NoError(t, err)

	var got record
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, record{N: 3, Set: []uint64{1, 2, 4}}, got)
}

func TestByNameUnknown(t *testing.T) {
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestMustMarshal(t *testing.T) {
	assert.NotPanics(t, func() {
		data := MustMarshal(nil, map[string]int{"n": 1})
		assert.NotEmpty(t, data)
	})
}
