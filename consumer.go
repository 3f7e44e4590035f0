package amqpmux

import (
	"github.com/aleybovich/amqpmux/callback"
	"github.com/aleybovich/amqpmux/wire"
)

// Consumer is the implicit entity identified by a consumer-tag inside a
// queue's subscription (§3). It is created on ConsumeOk and cancelled
// either by the caller (Basic.Cancel → CancelOk) or by the broker
// (Basic.Cancel, unsolicited).
type Consumer struct {
	entity

	channel *Channel

	Tag       string
	NoAck     bool
	Exclusive bool
	Arguments map[string]any
}

// NewConsumer constructs a Consumer bound to ch. Tag may be empty,
// letting the broker assign one in ConsumeOk.
func NewConsumer(ch *Channel, tag string, noAck, exclusive bool, args map[string]any) *Consumer {
	return &Consumer{entity: newEntity(), channel: ch, Tag: tag, NoAck: noAck, Exclusive: exclusive, Arguments: args}
}

// Cancel issues Basic.Cancel for this consumer, pushing onto the
// channel's awaiting-cancel-ok sequence.
func (c *Consumer) Cancel(noWait bool, cb callback.Func) error {
	c.channel.locker.Lock()
	c.channel.queuesAwaitingCancelOk.Push(cancelWait{consumerTag: c.Tag, cb: cb})
	c.channel.locker.Unlock()
	return c.channel.sendMethod(wire.ClassBasic, wire.MethodBasicCancel, encodeBasicCancel(c.Tag, noWait))
}
