package trace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleybovich/amqpmux/config"
	"github.com/aleybovich/amqpmux/trace"
	"github.com/aleybovich/amqpmux/wire"
)

func TestNoneRecorderIsNoop(t *testing.T) {
	rec, err := trace.New(config.TraceConfig{Type: config.TraceStorageNone})
	require.NoError(t, err)
	rec.Record(1, wire.Frame{Type: wire.FrameMethod})
	assert.Empty(t, rec.Recent(1))
}

func TestMemoryRecorderBoundsPerChannel(t *testing.T) {
	rec, err := trace.New(config.TraceConfig{Type: config.TraceStorageMemory, PerChannelLimit: 3})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		rec.Record(1, wire.Frame{Type: wire.FrameMethod, Channel: 1, Payload: []byte{byte(i)}})
	}

	recent := rec.Recent(1)
	require.Len(t, recent, 3)
	assert.Equal(t, []byte{2}, recent[0].Payload)
	assert.Equal(t, []byte{4}, recent[2].Payload)
}

func TestMemoryRecorderChannelCloseTrailEndsWithClose(t *testing.T) {
	rec, err := trace.New(config.TraceConfig{Type: config.TraceStorageMemory})
	require.NoError(t, err)

	rec.Record(1, wire.Frame{Type: wire.FrameMethod, Channel: 1, Payload: []byte("declare")})
	rec.Record(1, wire.Frame{Type: wire.FrameMethod, Channel: 1, Payload: []byte("close")})

	recent := rec.Recent(1)
	require.NotEmpty(t, recent)
	assert.Equal(t, []byte("close"), recent[len(recent)-1].Payload)
}

func TestBuntDBRecorderRoundTrip(t *testing.T) {
	rec, err := trace.New(config.TraceConfig{Type: config.TraceStorageBuntDB, BuntDBPath: ":memory:", PerChannelLimit: 2})
	require.NoError(t, err)
	defer rec.Close()

	rec.Record(5, wire.Frame{Type: wire.FrameMethod, Channel: 5, Payload: []byte("a")})
	rec.Record(5, wire.Frame{Type: wire.FrameMethod, Channel: 5, Payload: []byte("b")})
	rec.Record(5, wire.Frame{Type: wire.FrameMethod, Channel: 5, Payload: []byte("c")})

	recent := rec.Recent(5)
	require.Len(t, recent, 2)
	assert.Equal(t, []byte("b"), recent[0].Payload)
	assert.Equal(t, []byte("c"), recent[1].Payload)
}
