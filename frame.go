package amqpmux

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aleybovich/amqpmux/wire"
)

// FrameKind is the decoded variant tag of a Frame (§3).
type FrameKind int

const (
	FrameKindMethod FrameKind = iota
	FrameKindHeader
	FrameKindBody
	FrameKindHeartbeat
)

// MethodFrame is a decoded method: the (class-id, method-id) pair plus
// its still-raw argument bytes — the method-specific decode happens in
// the handler the dispatcher routes to, since only that handler knows
// the argument layout.
type MethodFrame struct {
	ClassID  uint16
	MethodID uint16
	Args     []byte
}

// HeaderFrame is a decoded content-header: the class the content belongs
// to, the total body size the following Body frames must sum to, and the
// still-raw property flags/values.
type HeaderFrame struct {
	ClassID    uint16
	BodySize   uint64
	RawProps   []byte
}

// Frame is the decoded, typed variant over method/header/body/heartbeat
// (§3). It is what the method dispatcher and Channel's content-assembly
// state machine operate on — one level up from wire.Frame, which only
// knows about raw payload bytes.
type Frame struct {
	Kind    FrameKind
	Channel uint16
	Method  *MethodFrame
	Header  *HeaderFrame
	Body    []byte
}

// DecodeFrame lifts a wire.Frame into the typed Frame variant, parsing
// the class-id/method-id or body-size/weight prefix every method/header
// frame carries (§4.1).
func DecodeFrame(wf wire.Frame) (Frame, error) {
	switch wf.Type {
	case wire.FrameMethod:
		if len(wf.Payload) < 4 {
			return Frame{}, &wire.MalformedFrame{Reason: "method frame payload shorter than class/method prefix"}
		}
		classID := binary.BigEndian.Uint16(wf.Payload[0:2])
		methodID := binary.BigEndian.Uint16(wf.Payload[2:4])
		return Frame{
			Kind:    FrameKindMethod,
			Channel: wf.Channel,
			Method:  &MethodFrame{ClassID: classID, MethodID: methodID, Args: wf.Payload[4:]},
		}, nil

	case wire.FrameHeader:
		if len(wf.Payload) < 12 {
			return Frame{}, &wire.MalformedFrame{Reason: "header frame payload shorter than class/weight/body-size prefix"}
		}
		classID := binary.BigEndian.Uint16(wf.Payload[0:2])
		bodySize := binary.BigEndian.Uint64(wf.Payload[4:12])
		return Frame{
			Kind:    FrameKindHeader,
			Channel: wf.Channel,
			Header:  &HeaderFrame{ClassID: classID, BodySize: bodySize, RawProps: wf.Payload[12:]},
		}, nil

	case wire.FrameBody:
		return Frame{Kind: FrameKindBody, Channel: wf.Channel, Body: wf.Payload}, nil

	case wire.FrameHeartbeat:
		return Frame{Kind: FrameKindHeartbeat, Channel: wf.Channel}, nil

	default:
		return Frame{}, &wire.MalformedFrame{Reason: fmt.Sprintf("unknown frame type octet %d", wf.Type)}
	}
}

// argReader wraps a method's raw argument bytes for field-by-field
// decoding with the wire package's table/string helpers.
func argReader(args []byte) *bytes.Reader { return bytes.NewReader(args) }

// encodeMethodPayload rebuilds the class-id/method-id prefixed payload
// DecodeFrame parses a method frame out of, the layout a trace.Recorder
// stores frames in so a trail entry can be told apart from any other.
func encodeMethodPayload(classID, methodID uint16, args []byte) []byte {
	payload := make([]byte, 4+len(args))
	binary.BigEndian.PutUint16(payload[0:2], classID)
	binary.BigEndian.PutUint16(payload[2:4], methodID)
	copy(payload[4:], args)
	return payload
}
