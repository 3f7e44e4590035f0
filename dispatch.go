package amqpmux

import (
	"fmt"
	"sync"

	"github.com/aleybovich/amqpmux/wire"
)

// methodKey is the (class-id, method-id) pair a dispatcher routes on.
type methodKey struct {
	ClassID  uint16
	MethodID uint16
}

// methodHandler processes one decoded method frame for a channel. It is
// registered statically per (class, method) — there is no per-call
// reflection or lookup-by-name (§4.3).
type methodHandler func(ch *Channel, mf *MethodFrame) error

// dispatcher is the static method-dispatch table (§4.3): register once
// at construction time, then route every inbound method frame by its
// (class-id, method-id) pair to the handler that knows how to decode
// and act on that method's arguments.
type dispatcher struct {
	mu       sync.RWMutex
	handlers map[methodKey]methodHandler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[methodKey]methodHandler)}
}

// register binds a (class, method) pair to h. Registering the same pair
// twice replaces the previous handler — used only at init time, never
// once a dispatcher is live.
func (d *dispatcher) register(classID, methodID uint16, h methodHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[methodKey{classID, methodID}] = h
}

// dispatch routes mf to its registered handler. wire.UnknownMethod is
// returned for a (class, method) pair with no registration, matching
// the frame decoder's own error type for an analogous wire-level gap.
func (d *dispatcher) dispatch(ch *Channel, mf *MethodFrame) error {
	d.mu.RLock()
	h, ok := d.handlers[methodKey{mf.ClassID, mf.MethodID}]
	d.mu.RUnlock()
	if !ok {
		return &wire.UnknownMethod{ClassID: mf.ClassID, MethodID: mf.MethodID}
	}
	return h(ch, mf)
}

// channelHandlers returns the populated default dispatch table for every
// method a Channel may receive from the broker side of the wire (§3,
// §4.4). It is built once and shared by every Channel instance since
// handlers close only over their (ch, mf) arguments.
func channelHandlers() *dispatcher {
	d := newDispatcher()

	d.register(wire.ClassChannel, wire.MethodChannelOpenOk, (*Channel).handleOpenOk)
	d.register(wire.ClassChannel, wire.MethodChannelFlow, (*Channel).handleFlow)
	d.register(wire.ClassChannel, wire.MethodChannelFlowOk, (*Channel).handleFlowOk)
	d.register(wire.ClassChannel, wire.MethodChannelClose, (*Channel).handleClose)
	d.register(wire.ClassChannel, wire.MethodChannelCloseOk, (*Channel).handleCloseOk)

	d.register(wire.ClassExchange, wire.MethodExchangeDeclareOk, (*Channel).handleExchangeDeclareOk)
	d.register(wire.ClassExchange, wire.MethodExchangeDeleteOk, (*Channel).handleExchangeDeleteOk)
	d.register(wire.ClassExchange, wire.MethodExchangeBindOk, (*Channel).handleExchangeBindOk)
	d.register(wire.ClassExchange, wire.MethodExchangeUnbindOk, (*Channel).handleExchangeUnbindOk)

	d.register(wire.ClassQueue, wire.MethodQueueDeclareOk, (*Channel).handleQueueDeclareOk)
	d.register(wire.ClassQueue, wire.MethodQueueBindOk, (*Channel).handleQueueBindOk)
	d.register(wire.ClassQueue, wire.MethodQueueUnbindOk, (*Channel).handleQueueUnbindOk)
	d.register(wire.ClassQueue, wire.MethodQueuePurgeOk, (*Channel).handleQueuePurgeOk)
	d.register(wire.ClassQueue, wire.MethodQueueDeleteOk, (*Channel).handleQueueDeleteOk)

	d.register(wire.ClassBasic, wire.MethodBasicQosOk, (*Channel).handleBasicQosOk)
	d.register(wire.ClassBasic, wire.MethodBasicConsumeOk, (*Channel).handleBasicConsumeOk)
	d.register(wire.ClassBasic, wire.MethodBasicCancel, (*Channel).handleBasicCancel)
	d.register(wire.ClassBasic, wire.MethodBasicCancelOk, (*Channel).handleBasicCancelOk)
	d.register(wire.ClassBasic, wire.MethodBasicReturn, (*Channel).handleBasicReturn)
	d.register(wire.ClassBasic, wire.MethodBasicDeliver, (*Channel).handleBasicDeliver)
	d.register(wire.ClassBasic, wire.MethodBasicGetOk, (*Channel).handleBasicGetOk)
	d.register(wire.ClassBasic, wire.MethodBasicGetEmpty, (*Channel).handleBasicGetEmpty)
	d.register(wire.ClassBasic, wire.MethodBasicAck, (*Channel).handleBasicAck)
	d.register(wire.ClassBasic, wire.MethodBasicNack, (*Channel).handleBasicNack)
	d.register(wire.ClassBasic, wire.MethodBasicRecoverOk, (*Channel).handleBasicRecoverOk)

	d.register(wire.ClassTx, wire.MethodTxSelectOk, (*Channel).handleTxSelectOk)
	d.register(wire.ClassTx, wire.MethodTxCommitOk, (*Channel).handleTxCommitOk)
	d.register(wire.ClassTx, wire.MethodTxRollbackOk, (*Channel).handleTxRollbackOk)

	return d
}

func unexpectedMethod(mf *MethodFrame) error {
	return fmt.Errorf("unexpected method class=%d method=%d for current channel state", mf.ClassID, mf.MethodID)
}
