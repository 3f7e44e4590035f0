package amqpmux

import (
	"bytes"
	"encoding/binary"

	"github.com/aleybovich/amqpmux/wire"
)

// This file holds the per-method argument encoders and decoders: thin,
// boring field-by-field (de)serializers the dispatcher handlers and the
// public operations call into. None of it does I/O — callers pass the
// already-sliced argument bytes of a decoded MethodFrame, or get back
// the bytes to hand to Connection.sendMethod.

func writeBool(w *bytes.Buffer, v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

func writeU16(w *bytes.Buffer, v uint16) { binary.Write(w, binary.BigEndian, v) }
func writeU32(w *bytes.Buffer, v uint32) { binary.Write(w, binary.BigEndian, v) }
func writeU64(w *bytes.Buffer, v uint64) { binary.Write(w, binary.BigEndian, v) }

func readU16(r *bytes.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
func readU32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
func readU64(r *bytes.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// --- Channel class ---

func encodeChannelOpen() []byte {
	var w bytes.Buffer
	wire.WriteShortString(&w, "") // reserved-1
	return w.Bytes()
}

func encodeChannelFlow(active bool) []byte {
	var w bytes.Buffer
	writeBool(&w, active)
	return w.Bytes()
}

func decodeChannelFlow(args []byte) (active bool, err error) {
	return readBool(argReader(args))
}

func encodeChannelClose(replyCode uint16, replyText string, classID, methodID uint16) []byte {
	var w bytes.Buffer
	writeU16(&w, replyCode)
	wire.WriteShortString(&w, replyText)
	writeU16(&w, classID)
	writeU16(&w, methodID)
	return w.Bytes()
}

// CloseReason is the decoded argument set of a broker-initiated
// Channel.Close or Connection.Close.
type CloseReason struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func decodeClose(args []byte) (CloseReason, error) {
	r := argReader(args)
	var cr CloseReason
	var err error
	if cr.ReplyCode, err = readU16(r); err != nil {
		return cr, err
	}
	if cr.ReplyText, err = wire.ReadShortString(r); err != nil {
		return cr, err
	}
	if cr.ClassID, err = readU16(r); err != nil {
		return cr, err
	}
	if cr.MethodID, err = readU16(r); err != nil {
		return cr, err
	}
	return cr, nil
}

// --- Exchange class ---

// ExchangeDeclareArgs carries Exchange.Declare's parameters.
type ExchangeDeclareArgs struct {
	Name       string
	Type       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Arguments  map[string]any
}

func encodeExchangeDeclare(a ExchangeDeclareArgs) ([]byte, error) {
	var w bytes.Buffer
	writeU16(&w, 0) // reserved ticket
	wire.WriteShortString(&w, a.Name)
	wire.WriteShortString(&w, a.Type)
	var flags byte
	if a.Passive {
		flags |= 1 << 0
	}
	if a.Durable {
		flags |= 1 << 1
	}
	if a.AutoDelete {
		flags |= 1 << 2
	}
	if a.Internal {
		flags |= 1 << 3
	}
	if a.NoWait {
		flags |= 1 << 4
	}
	w.WriteByte(flags)
	if err := wire.WriteTable(&w, a.Arguments); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func encodeExchangeDelete(name string, ifUnused, noWait bool) []byte {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, name)
	var flags byte
	if ifUnused {
		flags |= 1 << 0
	}
	if noWait {
		flags |= 1 << 1
	}
	w.WriteByte(flags)
	return w.Bytes()
}

func encodeExchangeBindUnbind(destination, source, routingKey string, noWait bool, args map[string]any) ([]byte, error) {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, destination)
	wire.WriteShortString(&w, source)
	wire.WriteShortString(&w, routingKey)
	writeBool(&w, noWait)
	if err := wire.WriteTable(&w, args); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// --- Queue class ---

// QueueDeclareArgs carries Queue.Declare's parameters.
type QueueDeclareArgs struct {
	Name       string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	NoWait     bool
	Arguments  map[string]any
}

func encodeQueueDeclare(a QueueDeclareArgs) ([]byte, error) {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, a.Name)
	var flags byte
	if a.Passive {
		flags |= 1 << 0
	}
	if a.Durable {
		flags |= 1 << 1
	}
	if a.Exclusive {
		flags |= 1 << 2
	}
	if a.AutoDelete {
		flags |= 1 << 3
	}
	if a.NoWait {
		flags |= 1 << 4
	}
	w.WriteByte(flags)
	if err := wire.WriteTable(&w, a.Arguments); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// QueueDeclareOk is the broker's reply to Queue.Declare.
type QueueDeclareOk struct {
	Name          string
	MessageCount  uint32
	ConsumerCount uint32
}

func decodeQueueDeclareOk(args []byte) (QueueDeclareOk, error) {
	r := argReader(args)
	var ok QueueDeclareOk
	var err error
	if ok.Name, err = wire.ReadShortString(r); err != nil {
		return ok, err
	}
	if ok.MessageCount, err = readU32(r); err != nil {
		return ok, err
	}
	if ok.ConsumerCount, err = readU32(r); err != nil {
		return ok, err
	}
	return ok, nil
}

func encodeQueueBind(queue, exchange, routingKey string, noWait bool, args map[string]any) ([]byte, error) {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, queue)
	wire.WriteShortString(&w, exchange)
	wire.WriteShortString(&w, routingKey)
	writeBool(&w, noWait)
	if err := wire.WriteTable(&w, args); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func encodeQueueUnbind(queue, exchange, routingKey string, args map[string]any) ([]byte, error) {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, queue)
	wire.WriteShortString(&w, exchange)
	wire.WriteShortString(&w, routingKey)
	if err := wire.WriteTable(&w, args); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func encodeQueuePurge(queue string, noWait bool) []byte {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, queue)
	writeBool(&w, noWait)
	return w.Bytes()
}

func decodeMessageCountOk(args []byte) (uint32, error) {
	return readU32(argReader(args))
}

func encodeQueueDelete(queue string, ifUnused, ifEmpty, noWait bool) []byte {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, queue)
	var flags byte
	if ifUnused {
		flags |= 1 << 0
	}
	if ifEmpty {
		flags |= 1 << 1
	}
	if noWait {
		flags |= 1 << 2
	}
	w.WriteByte(flags)
	return w.Bytes()
}

// --- Basic class ---

func encodeBasicQos(prefetchSize uint32, prefetchCount uint16, global bool) []byte {
	var w bytes.Buffer
	writeU32(&w, prefetchSize)
	writeU16(&w, prefetchCount)
	writeBool(&w, global)
	return w.Bytes()
}

func encodeBasicConsume(queue, consumerTag string, noLocal, noAck, exclusive, noWait bool, args map[string]any) ([]byte, error) {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, queue)
	wire.WriteShortString(&w, consumerTag)
	var flags byte
	if noLocal {
		flags |= 1 << 0
	}
	if noAck {
		flags |= 1 << 1
	}
	if exclusive {
		flags |= 1 << 2
	}
	if noWait {
		flags |= 1 << 3
	}
	w.WriteByte(flags)
	if err := wire.WriteTable(&w, args); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func decodeConsumerTag(args []byte) (string, error) {
	return wire.ReadShortString(argReader(args))
}

func encodeBasicCancel(consumerTag string, noWait bool) []byte {
	var w bytes.Buffer
	wire.WriteShortString(&w, consumerTag)
	writeBool(&w, noWait)
	return w.Bytes()
}

// decodeBasicCancel decodes a broker-initiated Basic.Cancel: the same
// consumer-tag/no-wait layout as the caller-initiated form.
func decodeBasicCancel(args []byte) (consumerTag string, noWait bool, err error) {
	r := argReader(args)
	if consumerTag, err = wire.ReadShortString(r); err != nil {
		return
	}
	noWait, err = readBool(r)
	return
}

func encodeBasicPublish(exchange, routingKey string, mandatory, immediate bool) []byte {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, exchange)
	wire.WriteShortString(&w, routingKey)
	var flags byte
	if mandatory {
		flags |= 1 << 0
	}
	if immediate {
		flags |= 1 << 1
	}
	w.WriteByte(flags)
	return w.Bytes()
}

// DeliverArgs is the decoded argument set of Basic.Deliver.
type DeliverArgs struct {
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

func decodeBasicDeliver(args []byte) (DeliverArgs, error) {
	r := argReader(args)
	var d DeliverArgs
	var err error
	if d.ConsumerTag, err = wire.ReadShortString(r); err != nil {
		return d, err
	}
	if d.DeliveryTag, err = readU64(r); err != nil {
		return d, err
	}
	if d.Redelivered, err = readBool(r); err != nil {
		return d, err
	}
	if d.Exchange, err = wire.ReadShortString(r); err != nil {
		return d, err
	}
	if d.RoutingKey, err = wire.ReadShortString(r); err != nil {
		return d, err
	}
	return d, nil
}

func encodeBasicGet(queue string, noAck bool) []byte {
	var w bytes.Buffer
	writeU16(&w, 0)
	wire.WriteShortString(&w, queue)
	writeBool(&w, noAck)
	return w.Bytes()
}

// GetOkArgs is the decoded argument set of Basic.GetOk.
type GetOkArgs struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

func decodeBasicGetOk(args []byte) (GetOkArgs, error) {
	r := argReader(args)
	var g GetOkArgs
	var err error
	if g.DeliveryTag, err = readU64(r); err != nil {
		return g, err
	}
	if g.Redelivered, err = readBool(r); err != nil {
		return g, err
	}
	if g.Exchange, err = wire.ReadShortString(r); err != nil {
		return g, err
	}
	if g.RoutingKey, err = wire.ReadShortString(r); err != nil {
		return g, err
	}
	if g.MessageCount, err = readU32(r); err != nil {
		return g, err
	}
	return g, nil
}

// ReturnArgs is the decoded argument set of Basic.Return.
type ReturnArgs struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func decodeBasicReturn(args []byte) (ReturnArgs, error) {
	r := argReader(args)
	var ra ReturnArgs
	var err error
	if ra.ReplyCode, err = readU16(r); err != nil {
		return ra, err
	}
	if ra.ReplyText, err = wire.ReadShortString(r); err != nil {
		return ra, err
	}
	if ra.Exchange, err = wire.ReadShortString(r); err != nil {
		return ra, err
	}
	if ra.RoutingKey, err = wire.ReadShortString(r); err != nil {
		return ra, err
	}
	return ra, nil
}

func encodeBasicAck(deliveryTag uint64, multiple bool) []byte {
	var w bytes.Buffer
	writeU64(&w, deliveryTag)
	writeBool(&w, multiple)
	return w.Bytes()
}

func encodeBasicReject(deliveryTag uint64, requeue bool) []byte {
	var w bytes.Buffer
	writeU64(&w, deliveryTag)
	writeBool(&w, requeue)
	return w.Bytes()
}

func encodeBasicNack(deliveryTag uint64, multiple, requeue bool) []byte {
	var w bytes.Buffer
	writeU64(&w, deliveryTag)
	var flags byte
	if multiple {
		flags |= 1 << 0
	}
	if requeue {
		flags |= 1 << 1
	}
	w.WriteByte(flags)
	return w.Bytes()
}

func decodeBasicAckNack(args []byte) (deliveryTag uint64, multiple bool, err error) {
	r := argReader(args)
	if deliveryTag, err = readU64(r); err != nil {
		return
	}
	multiple, err = readBool(r)
	return
}

func encodeBasicRecover(requeue bool) []byte {
	var w bytes.Buffer
	writeBool(&w, requeue)
	return w.Bytes()
}
