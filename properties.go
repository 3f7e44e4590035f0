package amqpmux

import (
	"bytes"
	"encoding/binary"

	"github.com/aleybovich/amqpmux/wire"
)

// Basic property-flag bits, bit-exact to AMQP 0.9.1's basic.properties
// flag word (high bit first).
const (
	flagContentType     uint16 = 1 << 15
	flagContentEncoding uint16 = 1 << 14
	flagHeaders         uint16 = 1 << 13
	flagDeliveryMode    uint16 = 1 << 12
	flagPriority        uint16 = 1 << 11
	flagCorrelationID   uint16 = 1 << 10
	flagReplyTo         uint16 = 1 << 9
	flagExpiration      uint16 = 1 << 8
	flagMessageID       uint16 = 1 << 7
	flagTimestamp       uint16 = 1 << 6
	flagType            uint16 = 1 << 5
	flagUserID          uint16 = 1 << 4
	flagAppID           uint16 = 1 << 3
)

// Properties is the Basic content-header property set carried alongside
// a published or delivered message.
type Properties struct {
	ContentType     string
	ContentEncoding string
	Headers         map[string]any
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       int64
	Type            string
	UserID          string
	AppID           string
}

// EncodeProperties serializes p into the flags+values payload that
// follows the body-size field of a content-header frame.
func EncodeProperties(p Properties) []byte {
	var flags uint16
	var vals bytes.Buffer

	if p.ContentType != "" {
		flags |= flagContentType
		wire.WriteShortString(&vals, p.ContentType)
	}
	if p.ContentEncoding != "" {
		flags |= flagContentEncoding
		wire.WriteShortString(&vals, p.ContentEncoding)
	}
	if len(p.Headers) > 0 {
		flags |= flagHeaders
		_ = wire.WriteTable(&vals, p.Headers)
	}
	if p.DeliveryMode != 0 {
		flags |= flagDeliveryMode
		vals.WriteByte(p.DeliveryMode)
	}
	if p.Priority != 0 {
		flags |= flagPriority
		vals.WriteByte(p.Priority)
	}
	if p.CorrelationID != "" {
		flags |= flagCorrelationID
		wire.WriteShortString(&vals, p.CorrelationID)
	}
	if p.ReplyTo != "" {
		flags |= flagReplyTo
		wire.WriteShortString(&vals, p.ReplyTo)
	}
	if p.Expiration != "" {
		flags |= flagExpiration
		wire.WriteShortString(&vals, p.Expiration)
	}
	if p.MessageID != "" {
		flags |= flagMessageID
		wire.WriteShortString(&vals, p.MessageID)
	}
	if p.Timestamp != 0 {
		flags |= flagTimestamp
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(p.Timestamp))
		vals.Write(buf[:])
	}
	if p.Type != "" {
		flags |= flagType
		wire.WriteShortString(&vals, p.Type)
	}
	if p.UserID != "" {
		flags |= flagUserID
		wire.WriteShortString(&vals, p.UserID)
	}
	if p.AppID != "" {
		flags |= flagAppID
		wire.WriteShortString(&vals, p.AppID)
	}

	var out bytes.Buffer
	var flagBuf [2]byte
	binary.BigEndian.PutUint16(flagBuf[:], flags)
	out.Write(flagBuf[:])
	out.Write(vals.Bytes())
	return out.Bytes()
}

// DecodeProperties parses the flags+values payload of a content-header
// frame back into a Properties value.
func DecodeProperties(raw []byte) (Properties, error) {
	r := bytes.NewReader(raw)
	var flagBuf [2]byte
	if _, err := r.Read(flagBuf[:]); err != nil {
		return Properties{}, &wire.MalformedFrame{Reason: "content-header properties shorter than flag word"}
	}
	flags := binary.BigEndian.Uint16(flagBuf[:])

	var p Properties
	var err error

	if flags&flagContentType != 0 {
		if p.ContentType, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagContentEncoding != 0 {
		if p.ContentEncoding, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagHeaders != 0 {
		if p.Headers, err = wire.ReadTable(r); err != nil {
			return p, err
		}
	}
	if flags&flagDeliveryMode != 0 {
		b, err := r.ReadByte()
		if err != nil {
			return p, err
		}
		p.DeliveryMode = b
	}
	if flags&flagPriority != 0 {
		b, err := r.ReadByte()
		if err != nil {
			return p, err
		}
		p.Priority = b
	}
	if flags&flagCorrelationID != 0 {
		if p.CorrelationID, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagReplyTo != 0 {
		if p.ReplyTo, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagExpiration != 0 {
		if p.Expiration, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagMessageID != 0 {
		if p.MessageID, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagTimestamp != 0 {
		var buf [8]byte
		if _, err := r.Read(buf[:]); err != nil {
			return p, err
		}
		p.Timestamp = int64(binary.BigEndian.Uint64(buf[:]))
	}
	if flags&flagType != 0 {
		if p.Type, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagUserID != 0 {
		if p.UserID, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}
	if flags&flagAppID != 0 {
		if p.AppID, err = wire.ReadShortString(r); err != nil {
			return p, err
		}
	}

	return p, nil
}
