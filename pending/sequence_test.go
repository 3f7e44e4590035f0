package pending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleybovich/amqpmux/pending"
)

func TestSequenceFIFOOrder(t *testing.T) {
	seq := pending.New[string]()
	seq.Push("a")
	seq.Push("b")
	seq.Push("c")

	v, ok := seq.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = seq.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = seq.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", v)

	_, ok = seq.Pop()
	assert.False(t, ok)
}

func TestSequencePushReturnsUniqueRequestIDs(t *testing.T) {
	seq := pending.New[int]()
	id1 := seq.Push(1)
	id2 := seq.Push(2)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, seq.Len())
}

func TestSequenceClearIsIdempotent(t *testing.T) {
	seq := pending.New[int]()
	seq.Push(1)
	seq.Push(2)
	seq.Clear()
	assert.Equal(t, 0, seq.Len())
	seq.Clear()
	assert.Equal(t, 0, seq.Len())
}
