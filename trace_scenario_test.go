package amqpmux

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleybovich/amqpmux/config"
	"github.com/aleybovich/amqpmux/trace"
	"github.com/aleybovich/amqpmux/wire"
)

// Seventh scenario [ADDED]: after a broker-initiated channel close, the
// trace recorder's trail for that channel ends with the Channel.Close
// method frame, and the two entries carry distinguishable payloads
// rather than the bare type octet.
func TestTraceRecorderTrailEndsWithClose(t *testing.T) {
	rec, err := trace.New(config.TraceConfig{Type: config.TraceStorageMemory, PerChannelLimit: 8})
	require.NoError(t, err)

	fd := newTestFakeDriver()
	conn, err := NewConnection(fd, WithTraceRecorder(rec))
	require.NoError(t, err)

	ch, err := NewChannel(conn, 1)
	require.NoError(t, err)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	q := NewQueue(ch, "a")
	require.NoError(t, q.Declare(false, false, false, false, false, nil, nil))

	closeArgs := encodeChannelClose(406, "PRECONDITION_FAILED", 50, 10)
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelClose, closeArgs))

	trail := rec.Recent(1)
	require.Len(t, trail, 4) // Channel.Open, Channel.OpenOk, Queue.Declare, Channel.Close

	last := trail[len(trail)-1]
	require.GreaterOrEqual(t, len(last.Payload), 4)
	assert.Equal(t, wire.FrameMethod, last.Type)
	assert.Equal(t, wire.ClassChannel, binary.BigEndian.Uint16(last.Payload[0:2]))
	assert.Equal(t, wire.MethodChannelClose, binary.BigEndian.Uint16(last.Payload[2:4]))
	assert.Equal(t, closeArgs, last.Payload[4:])

	first := trail[0]
	assert.NotEqual(t, last.Payload, first.Payload)
}
