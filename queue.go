package amqpmux

import (
	"github.com/aleybovich/amqpmux/callback"
	"github.com/aleybovich/amqpmux/wire"
)

// Queue is a client-side handle for a broker queue: created locally,
// declared, optionally bound/unbound, consumed, purged and deleted
// (§3, §4.5). Name may be empty until DeclareOk assigns a broker-
// generated name.
type Queue struct {
	entity

	channel *Channel

	Name       string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	Arguments  map[string]any
}

// NewQueue constructs a Queue bound to ch, not yet declared.
func NewQueue(ch *Channel, name string) *Queue {
	return &Queue{entity: newEntity(), channel: ch, Name: name}
}

// Declare pushes the queue onto the channel's awaiting-declare sequence,
// records cb, and transmits Queue.Declare.
func (q *Queue) Declare(passive, durable, exclusive, autoDelete, noWait bool, args map[string]any, cb callback.Func) error {
	q.channel.locker.Lock()
	q.channel.queuesAwaitingDeclareOk.Push(queueWait{queue: q, cb: cb})
	q.channel.locker.Unlock()

	q.Passive, q.Durable, q.Exclusive, q.AutoDelete, q.Arguments = passive, durable, exclusive, autoDelete, args

	encoded, err := encodeQueueDeclare(QueueDeclareArgs{
		Name: q.Name, Passive: passive, Durable: durable, Exclusive: exclusive,
		AutoDelete: autoDelete, NoWait: noWait, Arguments: args,
	})
	if err != nil {
		return err
	}
	return q.channel.sendMethod(wire.ClassQueue, wire.MethodQueueDeclare, encoded)
}

func (ch *Channel) handleQueueDeclareOk(mf *MethodFrame) error {
	ok, err := decodeQueueDeclareOk(mf.Args)
	if err != nil {
		return err
	}
	wait, popped := ch.queuesAwaitingDeclareOk.Pop()
	if !popped {
		return nil
	}
	if wait.queue != nil {
		wait.queue.Name = ok.Name
		ch.queues[ok.Name] = wait.queue
	}
	if wait.cb != nil {
		wait.cb(ok)
	}
	return nil
}

// Bind pushes the queue onto the channel's awaiting-bind sequence,
// records cb, and transmits Queue.Bind.
func (q *Queue) Bind(exchange, routingKey string, noWait bool, args map[string]any, cb callback.Func) error {
	q.channel.locker.Lock()
	q.channel.queuesAwaitingBindOk.Push(queueWait{queue: q, cb: cb})
	q.channel.locker.Unlock()
	encoded, err := encodeQueueBind(q.Name, exchange, routingKey, noWait, args)
	if err != nil {
		return err
	}
	return q.channel.sendMethod(wire.ClassQueue, wire.MethodQueueBind, encoded)
}

func (ch *Channel) handleQueueBindOk(mf *MethodFrame) error {
	wait, ok := ch.queuesAwaitingBindOk.Pop()
	if ok && wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}

// Unbind pushes the queue onto the channel's awaiting-unbind sequence,
// records cb, and transmits Queue.Unbind.
func (q *Queue) Unbind(exchange, routingKey string, args map[string]any, cb callback.Func) error {
	q.channel.locker.Lock()
	q.channel.queuesAwaitingUnbindOk.Push(queueWait{queue: q, cb: cb})
	q.channel.locker.Unlock()
	encoded, err := encodeQueueUnbind(q.Name, exchange, routingKey, args)
	if err != nil {
		return err
	}
	return q.channel.sendMethod(wire.ClassQueue, wire.MethodQueueUnbind, encoded)
}

func (ch *Channel) handleQueueUnbindOk(mf *MethodFrame) error {
	wait, ok := ch.queuesAwaitingUnbindOk.Pop()
	if ok && wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}

// Purge pushes the queue onto the channel's awaiting-purge sequence,
// records cb, and transmits Queue.Purge.
func (q *Queue) Purge(noWait bool, cb callback.Func) error {
	q.channel.locker.Lock()
	q.channel.queuesAwaitingPurgeOk.Push(queueWait{queue: q, cb: cb})
	q.channel.locker.Unlock()
	return q.channel.sendMethod(wire.ClassQueue, wire.MethodQueuePurge, encodeQueuePurge(q.Name, noWait))
}

func (ch *Channel) handleQueuePurgeOk(mf *MethodFrame) error {
	count, err := decodeMessageCountOk(mf.Args)
	if err != nil {
		return err
	}
	wait, ok := ch.queuesAwaitingPurgeOk.Pop()
	if ok && wait.cb != nil {
		wait.cb(count)
	}
	return nil
}

// Delete pushes the queue onto the channel's awaiting-delete sequence,
// records cb, and transmits Queue.Delete.
func (q *Queue) Delete(ifUnused, ifEmpty, noWait bool, cb callback.Func) error {
	q.channel.locker.Lock()
	q.channel.queuesAwaitingDeleteOk.Push(queueWait{queue: q, cb: cb})
	q.channel.locker.Unlock()
	return q.channel.sendMethod(wire.ClassQueue, wire.MethodQueueDelete, encodeQueueDelete(q.Name, ifUnused, ifEmpty, noWait))
}

func (ch *Channel) handleQueueDeleteOk(mf *MethodFrame) error {
	count, err := decodeMessageCountOk(mf.Args)
	if err != nil {
		return err
	}
	wait, ok := ch.queuesAwaitingDeleteOk.Pop()
	if ok {
		if wait.queue != nil {
			delete(ch.queues, wait.queue.Name)
		}
		if wait.cb != nil {
			wait.cb(count)
		}
	}
	return nil
}

// Get issues a one-shot Basic.Get against this queue, pushing onto the
// channel's awaiting-get-response sequence. cb receives a Delivery on a
// hit or nil on Basic.GetEmpty.
func (q *Queue) Get(noAck bool, cb callback.Func) error {
	q.channel.locker.Lock()
	q.channel.queuesAwaitingGetResponse.Push(getWait{queue: q, cb: cb})
	q.channel.locker.Unlock()
	return q.channel.sendMethod(wire.ClassBasic, wire.MethodBasicGet, encodeBasicGet(q.Name, noAck))
}

// Consume issues Basic.Consume against this queue, pushing a new
// Consumer onto the channel's awaiting-consume-ok sequence.
func (q *Queue) Consume(consumerTag string, noLocal, noAck, exclusive, noWait bool, args map[string]any, deliveryCb callback.Func, confirmCb callback.Func) (*Consumer, error) {
	consumer := NewConsumer(q.channel, consumerTag, noAck, exclusive, args)
	if deliveryCb != nil {
		consumer.On("delivery", deliveryCb)
	}

	q.channel.locker.Lock()
	q.channel.queuesAwaitingConsumeOk.Push(consumeWait{consumer: consumer, cb: confirmCb})
	q.channel.locker.Unlock()

	encoded, err := encodeBasicConsume(q.Name, consumerTag, noLocal, noAck, exclusive, noWait, args)
	if err != nil {
		return nil, err
	}
	if err := q.channel.sendMethod(wire.ClassBasic, wire.MethodBasicConsume, encoded); err != nil {
		return nil, err
	}
	return consumer, nil
}

func (ch *Channel) handleBasicConsumeOk(mf *MethodFrame) error {
	tag, err := decodeConsumerTag(mf.Args)
	if err != nil {
		return err
	}
	wait, ok := ch.queuesAwaitingConsumeOk.Pop()
	if !ok {
		return nil
	}
	if wait.consumer != nil {
		wait.consumer.Tag = tag
		ch.consumers[tag] = wait.consumer
	}
	if wait.cb != nil {
		wait.cb(tag)
	}
	return nil
}

// Publish sends Basic.Publish followed by the content header and body
// frames for payload.
func (ch *Channel) Publish(exchange, routingKey string, mandatory, immediate bool, props Properties, payload []byte) error {
	args := encodeBasicPublish(exchange, routingKey, mandatory, immediate)
	if err := ch.sendMethod(wire.ClassBasic, wire.MethodBasicPublish, args); err != nil {
		return err
	}
	return ch.conn.SendContent(ch.id, wire.ClassBasic, uint64(len(payload)), EncodeProperties(props), payload)
}
