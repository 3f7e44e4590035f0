package amqpmux

import (
	"sync"

	"github.com/aleybovich/amqpmux/amqperror"
	"github.com/aleybovich/amqpmux/callback"
	"github.com/aleybovich/amqpmux/config"
	"github.com/aleybovich/amqpmux/pending"
	"github.com/aleybovich/amqpmux/trace"
	"github.com/aleybovich/amqpmux/wire"
)

var sharedDispatcher = channelHandlers()

// contentState is the channel's inbound content-assembly state (§4.4).
type contentState int

const (
	contentIdle contentState = iota
	contentAwaitingHeader
	contentAwaitingBody
)

type deliveryKind int

const (
	deliveryKindDeliver deliveryKind = iota
	deliveryKindGetOk
	deliveryKindReturn
)

// Delivery is what a consumer's or Get caller's callback receives once
// content assembly completes.
type Delivery struct {
	Kind         deliveryKind
	ConsumerTag  string
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
	ReplyCode    uint16
	ReplyText    string
	Properties   Properties
	Body         []byte
}

type pendingContent struct {
	kind       deliveryKind
	args       DeliverArgs
	getOk      GetOkArgs
	ret        ReturnArgs
	classID    uint16
	bodySize   uint64
	body       []byte
	properties Properties
}

// queueWait pairs a Queue awaiting a broker reply with the caller's
// completion callback.
type queueWait struct {
	queue *Queue
	cb    callback.Func
}

type exchangeWait struct {
	exchange *Exchange
	cb       callback.Func
}

type consumeWait struct {
	consumer *Consumer
	cb       callback.Func
}

type cancelWait struct {
	consumerTag string
	cb          callback.Func
}

type getWait struct {
	queue *Queue
	cb    callback.Func
}

// Channel is the per-channel multiplexing core: lifecycle, flow control,
// transactions, QoS, content assembly, and the FIFO awaiting-sequences
// that correlate broker replies to the caller that issued the request
// (§3, §4.4).
type Channel struct {
	entity

	id   uint16
	conn *Connection

	flowIsActive bool

	exchanges map[string]*Exchange
	queues    map[string]*Queue
	consumers map[string]*Consumer

	queuesAwaitingDeclareOk   *pending.Sequence[queueWait]
	queuesAwaitingDeleteOk    *pending.Sequence[queueWait]
	queuesAwaitingBindOk      *pending.Sequence[queueWait]
	queuesAwaitingUnbindOk    *pending.Sequence[queueWait]
	queuesAwaitingPurgeOk     *pending.Sequence[queueWait]
	queuesAwaitingConsumeOk   *pending.Sequence[consumeWait]
	queuesAwaitingCancelOk    *pending.Sequence[cancelWait]
	queuesAwaitingGetResponse *pending.Sequence[getWait]

	exchangesAwaitingDeclareOk *pending.Sequence[exchangeWait]
	exchangesAwaitingDeleteOk  *pending.Sequence[exchangeWait]
	exchangesAwaitingBindOk    *pending.Sequence[exchangeWait]
	exchangesAwaitingUnbindOk  *pending.Sequence[exchangeWait]

	contentState   contentState
	content        *pendingContent

	trace trace.Recorder

	// locker is held around each push onto an awaiting-sequence and
	// released before the matching frame is sent, so it does not cover
	// the push-then-send pair. NewChannel installs a no-op lock and the
	// package offers no way to replace it.
	locker sync.Locker
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// NewChannel constructs a Channel bound to conn under id, validating the
// id against the connection's negotiated channel_max (§3).
func NewChannel(conn *Connection, id uint16) (*Channel, error) {
	if conn == nil {
		return nil, &amqpError.NilArgument{What: "conn"}
	}
	max := conn.ChannelMax()
	if max == 0 {
		max = config.DefaultChannelMax
	}
	if uint32(id) > max {
		return nil, &amqpError.ChannelOutOfBounds{ChannelID: id, ChannelMax: max}
	}

	ch := &Channel{
		entity:       newEntity(),
		id:           id,
		conn:         conn,
		flowIsActive: true,
		exchanges:    make(map[string]*Exchange),
		queues:       make(map[string]*Queue),
		consumers:    make(map[string]*Consumer),
		locker:       noopLocker{},
		trace:        trace.Recorder(nil),
	}
	ch.resetSequences()
	if conn.traceRecorder != nil {
		ch.trace = conn.traceRecorder
	} else {
		ch.trace = noopTrace{}
	}
	return ch, nil
}

type noopTrace struct{}

func (noopTrace) Record(uint16, wire.Frame)  {}
func (noopTrace) Recent(uint16) []wire.Frame { return nil }
func (noopTrace) Close() error                { return nil }

func (ch *Channel) resetSequences() {
	ch.queuesAwaitingDeclareOk = pending.New[queueWait]()
	ch.queuesAwaitingDeleteOk = pending.New[queueWait]()
	ch.queuesAwaitingBindOk = pending.New[queueWait]()
	ch.queuesAwaitingUnbindOk = pending.New[queueWait]()
	ch.queuesAwaitingPurgeOk = pending.New[queueWait]()
	ch.queuesAwaitingConsumeOk = pending.New[consumeWait]()
	ch.queuesAwaitingCancelOk = pending.New[cancelWait]()
	ch.queuesAwaitingGetResponse = pending.New[getWait]()
	ch.exchangesAwaitingDeclareOk = pending.New[exchangeWait]()
	ch.exchangesAwaitingDeleteOk = pending.New[exchangeWait]()
	ch.exchangesAwaitingBindOk = pending.New[exchangeWait]()
	ch.exchangesAwaitingUnbindOk = pending.New[exchangeWait]()
}

// ID returns the channel's id.
func (ch *Channel) ID() uint16 { return ch.id }

// FlowIsActive reports whether the broker currently permits this
// channel to publish content.
func (ch *Channel) FlowIsActive() bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.flowIsActive
}

func (ch *Channel) sendMethod(classID, methodID uint16, args []byte) error {
	if ch.trace != nil {
		ch.trace.Record(ch.id, wire.Frame{
			Type:    wire.FrameMethod,
			Channel: ch.id,
			Payload: encodeMethodPayload(classID, methodID, args),
		})
	}
	return ch.conn.sendMethod(ch.id, classID, methodID, args)
}

// Open sends Channel.Open and registers cb to fire once on OpenOk.
func (ch *Channel) Open(cb callback.Func) error {
	ch.setStatus(StatusOpening)
	ch.Once("open", cb)
	ch.conn.registerChannel(ch)
	return ch.sendMethod(wire.ClassChannel, wire.MethodChannelOpen, encodeChannelOpen())
}

func (ch *Channel) handleOpenOk(mf *MethodFrame) error {
	ch.setStatus(StatusOpened)
	ch.fireOnce("open", mf)
	return nil
}

// Close sends Channel.Close and registers cb to fire once on CloseOk.
func (ch *Channel) Close(replyCode uint16, replyText string, classID, methodID uint16, cb callback.Func) error {
	ch.setStatus(StatusClosing)
	ch.Once("close", cb)
	return ch.sendMethod(wire.ClassChannel, wire.MethodChannelClose, encodeChannelClose(replyCode, replyText, classID, methodID))
}

func (ch *Channel) handleCloseOk(mf *MethodFrame) error {
	ch.fireOnce("close", mf)
	ch.handleConnectionInterruption()
	ch.conn.unregisterChannel(ch.id)
	return nil
}

// handleClose processes a broker-initiated Channel.Close (§4.4, §7.3):
// fires :error once with the decoded reason, replies with CloseOk,
// resets state, and unregisters from the connection.
func (ch *Channel) handleClose(mf *MethodFrame) error {
	reason, err := decodeClose(mf.Args)
	if err != nil {
		return err
	}
	ch.fireOnce("error", reason)
	if err := ch.sendMethod(wire.ClassChannel, wire.MethodChannelCloseOk, nil); err != nil {
		return err
	}
	ch.handleConnectionInterruption()
	ch.conn.unregisterChannel(ch.id)
	return nil
}

// Flow sends Channel.Flow(active) and registers cb to fire once on
// FlowOk — the caller-initiated direction of flow control.
func (ch *Channel) Flow(active bool, cb callback.Func) error {
	ch.Once("flow", cb)
	return ch.sendMethod(wire.ClassChannel, wire.MethodChannelFlow, encodeChannelFlow(active))
}

func (ch *Channel) handleFlowOk(mf *MethodFrame) error {
	active, err := decodeChannelFlow(mf.Args)
	if err != nil {
		return err
	}
	ch.fireOnce("flow", active)
	return nil
}

// handleFlow processes a broker-initiated Channel.Flow request: updates
// flow_is_active, fires the (fire-and-keep) :flow callback, and replies
// with FlowOk.
func (ch *Channel) handleFlow(mf *MethodFrame) error {
	active, err := decodeChannelFlow(mf.Args)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	ch.flowIsActive = active
	ch.mu.Unlock()
	ch.fire("flow", active)
	return ch.sendMethod(wire.ClassChannel, wire.MethodChannelFlowOk, encodeChannelFlow(active))
}

// Qos sends Basic.Qos and registers cb to fire once on QosOk.
func (ch *Channel) Qos(prefetchSize uint32, prefetchCount uint16, global bool, cb callback.Func) error {
	ch.Once("qos", cb)
	return ch.sendMethod(wire.ClassBasic, wire.MethodBasicQos, encodeBasicQos(prefetchSize, prefetchCount, global))
}

func (ch *Channel) handleBasicQosOk(mf *MethodFrame) error {
	ch.fireOnce("qos", mf)
	return nil
}

// Recover sends Basic.Recover and registers cb to fire once on RecoverOk.
func (ch *Channel) Recover(requeue bool, cb callback.Func) error {
	ch.Once("recover", cb)
	return ch.sendMethod(wire.ClassBasic, wire.MethodBasicRecover, encodeBasicRecover(requeue))
}

func (ch *Channel) handleBasicRecoverOk(mf *MethodFrame) error {
	ch.fireOnce("recover", mf)
	return nil
}

// TxSelect sends Tx.Select and registers cb to fire once on TxSelectOk.
func (ch *Channel) TxSelect(cb callback.Func) error {
	ch.Once("tx_select", cb)
	return ch.sendMethod(wire.ClassTx, wire.MethodTxSelect, nil)
}

func (ch *Channel) handleTxSelectOk(mf *MethodFrame) error {
	ch.fireOnce("tx_select", mf)
	return nil
}

// TxCommit sends Tx.Commit and registers cb to fire once on TxCommitOk.
func (ch *Channel) TxCommit(cb callback.Func) error {
	ch.Once("tx_commit", cb)
	return ch.sendMethod(wire.ClassTx, wire.MethodTxCommit, nil)
}

func (ch *Channel) handleTxCommitOk(mf *MethodFrame) error {
	ch.fireOnce("tx_commit", mf)
	return nil
}

// TxRollback sends Tx.Rollback and registers cb to fire once on
// TxRollbackOk.
func (ch *Channel) TxRollback(cb callback.Func) error {
	ch.Once("tx_rollback", cb)
	return ch.sendMethod(wire.ClassTx, wire.MethodTxRollback, nil)
}

func (ch *Channel) handleTxRollbackOk(mf *MethodFrame) error {
	ch.fireOnce("tx_rollback", mf)
	return nil
}

// Acknowledge sends Basic.Ack. There is no broker reply to await.
func (ch *Channel) Acknowledge(deliveryTag uint64, multiple bool) error {
	return ch.sendMethod(wire.ClassBasic, wire.MethodBasicAck, encodeBasicAck(deliveryTag, multiple))
}

// Reject sends Basic.Reject. There is no broker reply to await.
func (ch *Channel) Reject(deliveryTag uint64, requeue bool) error {
	return ch.sendMethod(wire.ClassBasic, wire.MethodBasicReject, encodeBasicReject(deliveryTag, requeue))
}

func (ch *Channel) handleBasicAck(mf *MethodFrame) error {
	tag, multiple, err := decodeBasicAckNack(mf.Args)
	if err != nil {
		return err
	}
	ch.fire("ack", struct {
		DeliveryTag uint64
		Multiple    bool
	}{tag, multiple})
	return nil
}

func (ch *Channel) handleBasicNack(mf *MethodFrame) error {
	tag, multiple, err := decodeBasicAckNack(mf.Args)
	if err != nil {
		return err
	}
	ch.fire("nack", struct {
		DeliveryTag uint64
		Multiple    bool
	}{tag, multiple})
	return nil
}

func (ch *Channel) handleBasicCancelOk(mf *MethodFrame) error {
	tag, err := decodeConsumerTag(mf.Args)
	if err != nil {
		return err
	}
	wait, ok := ch.queuesAwaitingCancelOk.Pop()
	delete(ch.consumers, tag)
	if ok && wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}

// handleBasicCancel processes a broker-initiated Basic.Cancel (spec §3's
// second consumer-cancellation vector, alongside caller-initiated
// Cancel/CancelOk): fires the consumer's :cancel callback and removes it
// from the channel's consumer table. There is no awaiting-sequence entry
// to pop — this arrives unsolicited, never in reply to a client request.
func (ch *Channel) handleBasicCancel(mf *MethodFrame) error {
	tag, _, err := decodeBasicCancel(mf.Args)
	if err != nil {
		return err
	}
	consumer, ok := ch.consumers[tag]
	delete(ch.consumers, tag)
	if ok {
		consumer.fire("cancel", tag)
	}
	return nil
}

func (ch *Channel) handleBasicReturn(mf *MethodFrame) error {
	ra, err := decodeBasicReturn(mf.Args)
	if err != nil {
		return err
	}
	ch.contentState = contentAwaitingHeader
	ch.content = &pendingContent{kind: deliveryKindReturn, ret: ra, classID: wire.ClassBasic}
	return nil
}

func (ch *Channel) handleBasicDeliver(mf *MethodFrame) error {
	d, err := decodeBasicDeliver(mf.Args)
	if err != nil {
		return err
	}
	ch.contentState = contentAwaitingHeader
	ch.content = &pendingContent{kind: deliveryKindDeliver, args: d, classID: wire.ClassBasic}
	return nil
}

func (ch *Channel) handleBasicGetOk(mf *MethodFrame) error {
	g, err := decodeBasicGetOk(mf.Args)
	if err != nil {
		return err
	}
	ch.contentState = contentAwaitingHeader
	ch.content = &pendingContent{kind: deliveryKindGetOk, getOk: g, classID: wire.ClassBasic}
	return nil
}

func (ch *Channel) handleBasicGetEmpty(mf *MethodFrame) error {
	wait, ok := ch.queuesAwaitingGetResponse.Pop()
	if ok && wait.cb != nil {
		wait.cb(nil)
	}
	return nil
}

// handleContentHeader processes an inbound content-header frame for the
// channel's in-progress delivery.
func (ch *Channel) handleContentHeader(h *HeaderFrame) error {
	if ch.contentState != contentAwaitingHeader {
		return ch.protocolViolation("header frame while not awaiting one")
	}
	props, err := DecodeProperties(h.RawProps)
	if err != nil {
		return err
	}
	ch.content.properties = props
	ch.content.bodySize = h.BodySize
	if h.BodySize == 0 {
		return ch.completeContent()
	}
	ch.contentState = contentAwaitingBody
	return nil
}

// handleContentBody processes an inbound content-body frame, completing
// the delivery once the accumulated body reaches the announced size.
func (ch *Channel) handleContentBody(body []byte) error {
	if ch.contentState != contentAwaitingBody {
		return ch.protocolViolation("body frame while not awaiting one")
	}
	ch.content.body = append(ch.content.body, body...)
	if uint64(len(ch.content.body)) >= ch.content.bodySize {
		return ch.completeContent()
	}
	return nil
}

func (ch *Channel) completeContent() error {
	c := ch.content
	ch.content = nil
	ch.contentState = contentIdle

	del := Delivery{Kind: c.kind, Properties: c.properties, Body: c.body}
	switch c.kind {
	case deliveryKindDeliver:
		del.ConsumerTag = c.args.ConsumerTag
		del.DeliveryTag = c.args.DeliveryTag
		del.Redelivered = c.args.Redelivered
		del.Exchange = c.args.Exchange
		del.RoutingKey = c.args.RoutingKey
		if consumer, ok := ch.consumers[c.args.ConsumerTag]; ok {
			consumer.fire("delivery", del)
		}
	case deliveryKindGetOk:
		del.DeliveryTag = c.getOk.DeliveryTag
		del.Redelivered = c.getOk.Redelivered
		del.Exchange = c.getOk.Exchange
		del.RoutingKey = c.getOk.RoutingKey
		del.MessageCount = c.getOk.MessageCount
		wait, ok := ch.queuesAwaitingGetResponse.Pop()
		if ok && wait.cb != nil {
			wait.cb(del)
		}
	case deliveryKindReturn:
		del.ReplyCode = c.ret.ReplyCode
		del.ReplyText = c.ret.ReplyText
		del.Exchange = c.ret.Exchange
		del.RoutingKey = c.ret.RoutingKey
		ch.fire("return", del)
	}
	return nil
}

func (ch *Channel) protocolViolation(reason string) error {
	_ = ch.Close(uint16(amqpError.UnexpectedFrame), reason, 0, 0, nil)
	return &wire.UnexpectedContentFrame{Channel: ch.id, State: reason}
}

// handleConnectionInterruption is the shared reset invoked on any
// transition to closed: by CloseOk, broker-initiated Close, or
// connection loss (§4.4).
//
//  1. Resets flow_is_active to true.
//  2. Clears every awaiting-* sequence.
//  3. Empties the callback registry.
func (ch *Channel) handleConnectionInterruption() {
	ch.mu.Lock()
	ch.flowIsActive = true
	ch.status = StatusClosed
	ch.mu.Unlock()

	ch.resetSequences()
	ch.contentState = contentIdle
	ch.content = nil
	ch.callback.Clear()
}

// dispatchMethod routes a decoded method frame through the shared
// dispatch table, recording the frame's real class-id/method-id/args
// payload (not just its type octet) so a trace trail can tell one
// method apart from another.
func (ch *Channel) dispatchMethod(mf *MethodFrame) error {
	if ch.trace != nil {
		ch.trace.Record(ch.id, wire.Frame{
			Type:    wire.FrameMethod,
			Channel: ch.id,
			Payload: encodeMethodPayload(mf.ClassID, mf.MethodID, mf.Args),
		})
	}
	if ch.contentState != contentIdle {
		return ch.protocolViolation("method frame while content assembly in progress")
	}
	return sharedDispatcher.dispatch(ch, mf)
}
