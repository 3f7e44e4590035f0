package amqpmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleybovich/amqpmux/wire"
)

func newTestChannel(t *testing.T) (*Channel, *testFakeDriver) {
	t.Helper()
	fd := newTestFakeDriver()
	conn, err := NewConnection(fd)
	require.NoError(t, err)
	ch, err := NewChannel(conn, 1)
	require.NoError(t, err)
	return ch, fd
}

func methodFrame(channel uint16, classID, methodID uint16, args []byte) Frame {
	return Frame{Kind: FrameKindMethod, Channel: channel, Method: &MethodFrame{ClassID: classID, MethodID: methodID, Args: args}}
}

// Scenario 1: Channel open.
func TestChannelOpenScenario(t *testing.T) {
	ch, fd := newTestChannel(t)
	assert.Equal(t, StatusNew, ch.Status())

	fired := 0
	require.NoError(t, ch.Open(func(arg any) { fired++ }))
	assert.Equal(t, StatusOpening, ch.Status())

	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	assert.Equal(t, StatusOpened, ch.Status())
	assert.Equal(t, 1, fired)
}

func encodeQueueDeclareOkArgsForTest(name string, messages, consumers uint32) []byte {
	return append(append(append([]byte{byte(len(name))}, []byte(name)...),
		byteU32(messages)...), byteU32(consumers)...)
}

func byteU32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// Scenario 2: Queue declare correlation.
func TestQueueDeclareCorrelation(t *testing.T) {
	ch, fd := newTestChannel(t)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	a := NewQueue(ch, "")
	b := NewQueue(ch, "")
	require.NoError(t, a.Declare(false, false, false, false, false, nil, nil))
	require.NoError(t, b.Declare(false, false, false, false, false, nil, nil))

	fd.Deliver(methodFrame(1, wire.ClassQueue, wire.MethodQueueDeclareOk, encodeQueueDeclareOkArgsForTest("amq.gen-1", 0, 0)))
	fd.Deliver(methodFrame(1, wire.ClassQueue, wire.MethodQueueDeclareOk, encodeQueueDeclareOkArgsForTest("amq.gen-2", 0, 0)))

	assert.Equal(t, "amq.gen-1", a.Name)
	assert.Equal(t, "amq.gen-2", b.Name)
}

// Scenario 3: Broker-initiated channel close with pending declares.
func TestBrokerInitiatedChannelClose(t *testing.T) {
	ch, fd := newTestChannel(t)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	q := NewQueue(ch, "a")
	require.NoError(t, q.Declare(false, false, false, false, false, nil, nil))
	q2 := NewQueue(ch, "b")
	require.NoError(t, q2.Declare(false, false, false, false, false, nil, nil))

	var gotReason CloseReason
	ch.On("error", func(arg any) { gotReason = arg.(CloseReason) })

	closeArgs := encodeChannelClose(406, "PRECONDITION_FAILED", 50, 10)
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelClose, closeArgs))

	assert.Equal(t, uint16(406), gotReason.ReplyCode)
	assert.Equal(t, "PRECONDITION_FAILED", gotReason.ReplyText)
	assert.Equal(t, uint16(50), gotReason.ClassID)
	assert.Equal(t, uint16(10), gotReason.MethodID)

	assert.Equal(t, 0, ch.queuesAwaitingDeclareOk.Len())
	assert.Equal(t, StatusClosed, ch.Status())

	_, stillThere := ch.conn.channel(1)
	assert.False(t, stillThere)
}

// Scenario 4: Flow control.
func TestFlowControl(t *testing.T) {
	ch, fd := newTestChannel(t)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	var got any
	ch.On("flow", func(arg any) { got = arg })

	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelFlow, encodeChannelFlow(false)))

	assert.False(t, ch.FlowIsActive())
	assert.Equal(t, false, got)
}

// Scenario 5: Transaction.
func TestTransactionSelectThenCommit(t *testing.T) {
	ch, fd := newTestChannel(t)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	var order []string
	require.NoError(t, ch.TxSelect(func(any) { order = append(order, "select") }))
	fd.Deliver(methodFrame(1, wire.ClassTx, wire.MethodTxSelectOk, nil))

	require.NoError(t, ch.TxCommit(func(any) { order = append(order, "commit") }))
	fd.Deliver(methodFrame(1, wire.ClassTx, wire.MethodTxCommitOk, nil))

	assert.Equal(t, []string{"select", "commit"}, order)
}

// Scenario 6: Content reassembly.
func TestContentReassembly(t *testing.T) {
	ch, fd := newTestChannel(t)
	require.NoError(t, ch.Open(nil))
	fd.Deliver(methodFrame(1, wire.ClassChannel, wire.MethodChannelOpenOk, nil))

	consumer := NewConsumer(ch, "ct", false, false, nil)
	ch.consumers["ct"] = consumer

	var got Delivery
	consumer.On("delivery", func(arg any) { got = arg.(Delivery) })

	deliverArgs := append(append([]byte{2}, []byte("ct")...), []byte{
		0, 0, 0, 0, 0, 0, 0, 7, // delivery tag 7
		0,                    // redelivered false
		1, 'e',               // exchange "e"
		2, 'r', 'k',          // routing key "rk"
	}...)
	fd.Deliver(methodFrame(1, wire.ClassBasic, wire.MethodBasicDeliver, deliverArgs))

	headerPayload := wire.Encoder{}.EncodeHeader(1, wire.ClassBasic, 11, EncodeProperties(Properties{}))
	wf, _, err := decodeTestFrame(headerPayload)
	require.NoError(t, err)
	fr, err := DecodeFrame(wf)
	require.NoError(t, err)
	fd.Deliver(fr)

	fd.Deliver(Frame{Kind: FrameKindBody, Channel: 1, Body: []byte("hello ")})
	fd.Deliver(Frame{Kind: FrameKindBody, Channel: 1, Body: []byte("world")})

	assert.Equal(t, "hello world", string(got.Body))
	assert.Equal(t, uint64(7), got.DeliveryTag)
}

func decodeTestFrame(raw []byte) (wire.Frame, bool, error) {
	d := wire.NewDecoder(0)
	d.Feed(raw)
	fr, ok, err := d.TryDecode()
	if fr == nil {
		return wire.Frame{}, ok, err
	}
	return *fr, ok, err
}
