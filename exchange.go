package amqpmux

import (
	"github.com/aleybovich/amqpmux/callback"
	"github.com/aleybovich/amqpmux/wire"
)

// Exchange is a client-side handle for a broker exchange: created
// locally, declared against the broker, optionally deleted (§3, §4.5).
// An unnamed Exchange (Name == "") refers to the default exchange.
type Exchange struct {
	entity

	channel *Channel

	Name       string
	Type       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	Arguments  map[string]any
}

// NewExchange constructs an Exchange bound to ch, not yet declared.
func NewExchange(ch *Channel, name, kind string) *Exchange {
	return &Exchange{entity: newEntity(), channel: ch, Name: name, Type: kind}
}

// Declare pushes the exchange onto the channel's awaiting-declare
// sequence, records cb, and transmits Exchange.Declare (§4.5).
func (e *Exchange) Declare(passive, durable, autoDelete, internal, noWait bool, args map[string]any, cb callback.Func) error {
	e.channel.locker.Lock()
	e.channel.exchangesAwaitingDeclareOk.Push(exchangeWait{exchange: e, cb: cb})
	e.channel.locker.Unlock()

	e.Durable = durable
	e.AutoDelete = autoDelete
	e.Internal = internal
	e.Arguments = args

	encoded, err := encodeExchangeDeclare(ExchangeDeclareArgs{
		Name: e.Name, Type: e.Type, Passive: passive, Durable: durable,
		AutoDelete: autoDelete, Internal: internal, NoWait: noWait, Arguments: args,
	})
	if err != nil {
		return err
	}
	return e.channel.sendMethod(wire.ClassExchange, wire.MethodExchangeDeclare, encoded)
}

func (ch *Channel) handleExchangeDeclareOk(mf *MethodFrame) error {
	wait, ok := ch.exchangesAwaitingDeclareOk.Pop()
	if !ok {
		return nil
	}
	if wait.exchange != nil {
		ch.exchanges[wait.exchange.Name] = wait.exchange
	}
	if wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}

// Delete pushes the exchange onto the channel's awaiting-delete
// sequence, records cb, and transmits Exchange.Delete.
func (e *Exchange) Delete(ifUnused, noWait bool, cb callback.Func) error {
	e.channel.locker.Lock()
	e.channel.exchangesAwaitingDeleteOk.Push(exchangeWait{exchange: e, cb: cb})
	e.channel.locker.Unlock()
	return e.channel.sendMethod(wire.ClassExchange, wire.MethodExchangeDelete, encodeExchangeDelete(e.Name, ifUnused, noWait))
}

func (ch *Channel) handleExchangeDeleteOk(mf *MethodFrame) error {
	wait, ok := ch.exchangesAwaitingDeleteOk.Pop()
	if !ok {
		return nil
	}
	if wait.exchange != nil {
		delete(ch.exchanges, wait.exchange.Name)
	}
	if wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}

// Bind binds this exchange to source under routingKey (exchange-to-
// exchange binding, a common broker extension this core exposes since
// it is wire-compatible with the base Exchange class).
func (e *Exchange) Bind(source, routingKey string, noWait bool, args map[string]any, cb callback.Func) error {
	e.channel.locker.Lock()
	e.channel.exchangesAwaitingBindOk.Push(exchangeWait{exchange: e, cb: cb})
	e.channel.locker.Unlock()
	encoded, err := encodeExchangeBindUnbind(e.Name, source, routingKey, noWait, args)
	if err != nil {
		return err
	}
	return e.channel.sendMethod(wire.ClassExchange, wire.MethodExchangeBind, encoded)
}

func (ch *Channel) handleExchangeBindOk(mf *MethodFrame) error {
	wait, ok := ch.exchangesAwaitingBindOk.Pop()
	if ok && wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}

// Unbind removes a previously-established exchange-to-exchange binding.
func (e *Exchange) Unbind(source, routingKey string, noWait bool, args map[string]any, cb callback.Func) error {
	e.channel.locker.Lock()
	e.channel.exchangesAwaitingUnbindOk.Push(exchangeWait{exchange: e, cb: cb})
	e.channel.locker.Unlock()
	encoded, err := encodeExchangeBindUnbind(e.Name, source, routingKey, noWait, args)
	if err != nil {
		return err
	}
	return e.channel.sendMethod(wire.ClassExchange, wire.MethodExchangeUnbind, encoded)
}

func (ch *Channel) handleExchangeUnbindOk(mf *MethodFrame) error {
	wait, ok := ch.exchangesAwaitingUnbindOk.Pop()
	if ok && wait.cb != nil {
		wait.cb(mf)
	}
	return nil
}
