package wire

import "fmt"

// Frame type octets, bit-exact to AMQP 0.9.1 (grounded on the teacher's
// const.go FrameMethod/FrameHeader/FrameBody/FrameHeartbeat).
const (
	FrameMethod    byte = 1
	FrameHeader    byte = 2
	FrameBody      byte = 3
	FrameHeartbeat byte = 8

	// FrameEnd is the sentinel octet every frame must end with.
	FrameEnd byte = 0xCE

	// frameHeaderSize is the fixed prefix every frame starts with.
	frameHeaderSize = 7 // 1 (type) + 2 (channel) + 4 (payload length)
)

// ProtocolHeader is the 8-byte preamble sent once, by the client, at the
// start of every AMQP 0.9.1 connection.
var ProtocolHeader = [8]byte{'A', 'M', 'Q', 'P', 0x00, 0x00, 0x09, 0x01}

// Frame is a decoded AMQP frame. Payload holds the raw frame payload:
// class-id, method-id and arguments for a method frame; the content-header
// fields for a header frame; a raw chunk for a body frame. Heartbeat
// frames carry an empty payload.
type Frame struct {
	Type    byte
	Channel uint16
	Payload []byte
}

// MalformedFrame is raised when the frame-end sentinel is wrong or the
// declared payload length exceeds the negotiated frame_max.
type MalformedFrame struct {
	Reason string
}

func (e *MalformedFrame) Error() string { return fmt.Sprintf("malformed frame: %s", e.Reason) }

// UnknownMethod is raised by the method dispatcher (not the codec) when
// no handler is registered for a decoded (class, method) pair.
type UnknownMethod struct {
	ClassID  uint16
	MethodID uint16
}

func (e *UnknownMethod) Error() string {
	return fmt.Sprintf("unknown method class=%d method=%d", e.ClassID, e.MethodID)
}

// UnexpectedContentFrame is raised by channel content assembly (§4.4) when
// a method frame arrives while content reassembly is already in progress,
// or a header/body frame arrives while idle.
type UnexpectedContentFrame struct {
	Channel uint16
	State   string
}

func (e *UnexpectedContentFrame) Error() string {
	return fmt.Sprintf("unexpected frame on channel %d while in content state %q", e.Channel, e.State)
}
