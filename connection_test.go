package amqpmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleybovich/amqpmux/amqperror"
	"github.com/aleybovich/amqpmux/wire"
)

func TestConnectionOpeningHandshake(t *testing.T) {
	fd := newTestFakeDriver()
	conn, err := NewConnection(fd)
	require.NoError(t, err)

	opened := false
	require.NoError(t, conn.Open(func(any) { opened = true }))
	require.Len(t, fd.Written, 1)
	assert.Equal(t, wire.ProtocolHeader[:], fd.Written[0])

	startArgs := encodeConnectionStartTest()
	fd.Deliver(methodFrame(0, wire.ClassConnection, wire.MethodConnectionStart, startArgs))
	require.Len(t, fd.Written, 2, "Connection.StartOk must follow Start")

	tune := connectionTune{ChannelMax: 2047, FrameMax: 131072, Heartbeat: 60}
	fd.Deliver(methodFrame(0, wire.ClassConnection, wire.MethodConnectionTune, encodeConnectionTuneOk(tune)))
	require.Len(t, fd.Written, 4, "TuneOk and Open must follow Tune")
	assert.EqualValues(t, 2047, conn.ChannelMax())

	fd.Deliver(methodFrame(0, wire.ClassConnection, wire.MethodConnectionOpenOk, nil))
	assert.True(t, conn.IsOpen())
	assert.True(t, opened)
}

func encodeConnectionStartTest() []byte {
	args := []byte{0, 9} // version-major, version-minor
	args = append(args, 0, 0, 0, 0)     // empty server-properties table
	args = append(args, 0, 0, 0, 5)     // mechanisms long-string length 5
	args = append(args, []byte("PLAIN")...)
	args = append(args, 0, 0, 0, 5) // locales long-string length 5
	args = append(args, []byte("en_US")...)
	return args
}

func TestChannelOutOfBoundsConstruction(t *testing.T) {
	fd := newTestFakeDriver()
	conn, err := NewConnection(fd)
	require.NoError(t, err)

	conn.channelMax = 10
	_, err = NewChannel(conn, 11)
	require.Error(t, err)
	var bounds *amqpError.ChannelOutOfBounds
	require.ErrorAs(t, err, &bounds)
	assert.EqualValues(t, 11, bounds.ChannelID)
	assert.EqualValues(t, 10, bounds.ChannelMax)
}

func TestResetStateIdempotentAndClearsSequences(t *testing.T) {
	ch, fd := newTestChannel(t)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	q := NewQueue(ch, "x")
	require.NoError(t, q.Declare(false, false, false, false, false, nil, nil))
	ch.mu.Lock()
	ch.flowIsActive = false
	ch.mu.Unlock()

	ch.handleConnectionInterruption()
	assert.True(t, ch.FlowIsActive())
	assert.Equal(t, 0, ch.queuesAwaitingDeclareOk.Len())

	ch.handleConnectionInterruption()
	assert.True(t, ch.FlowIsActive())
	assert.Equal(t, 0, ch.queuesAwaitingDeclareOk.Len())
}
