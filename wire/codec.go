package wire

import (
	"bytes"
	"encoding/binary"
)

// Decoder accumulates bytes handed to it by the Driver and yields decoded
// frames as soon as enough bytes are buffered. A short read is never an
// error (§4.1) — Feed simply buffers and TryDecode reports ok=false.
type Decoder struct {
	buf      bytes.Buffer
	frameMax uint32 // 0 means "not yet negotiated", no limit enforced
}

// NewDecoder builds a Decoder. frameMax enforces §4.1's MalformedFrame
// check once the connection has negotiated a non-zero frame_max.
func NewDecoder(frameMax uint32) *Decoder {
	return &Decoder{frameMax: frameMax}
}

// SetFrameMax updates the negotiated frame_max, e.g. after Connection.Tune.
func (d *Decoder) SetFrameMax(frameMax uint32) { d.frameMax = frameMax }

// Feed appends newly-arrived transport bytes to the internal buffer.
func (d *Decoder) Feed(data []byte) { d.buf.Write(data) }

// TryDecode attempts to decode a single frame from the buffered bytes.
// ok is false when fewer bytes are buffered than the next frame needs;
// this is not an error. err is non-nil only for a genuine MalformedFrame.
func (d *Decoder) TryDecode() (fr *Frame, ok bool, err error) {
	avail := d.buf.Bytes()
	if len(avail) < frameHeaderSize {
		return nil, false, nil
	}

	payloadLen := binary.BigEndian.Uint32(avail[3:7])
	if d.frameMax > 0 && payloadLen > d.frameMax {
		return nil, false, &MalformedFrame{Reason: "payload length exceeds negotiated frame_max"}
	}

	total := frameHeaderSize + int(payloadLen) + 1 // +1 for the frame-end sentinel
	if len(avail) < total {
		return nil, false, nil
	}

	frameType := avail[0]
	channel := binary.BigEndian.Uint16(avail[1:3])
	payload := make([]byte, payloadLen)
	copy(payload, avail[frameHeaderSize:frameHeaderSize+int(payloadLen)])
	end := avail[total-1]

	// Consume exactly `total` bytes regardless of outcome: a bad
	// frame-end sentinel still occupied that many bytes on the wire.
	d.buf.Next(total)

	if end != FrameEnd {
		return nil, false, &MalformedFrame{Reason: "frame-end octet is not 0xCE"}
	}

	return &Frame{Type: frameType, Channel: channel, Payload: payload}, true, nil
}

// Encoder serializes outbound frames. It holds no state of its own; the
// frame_max is supplied by the caller because only Channel/Connection
// know the negotiated body-chunk size at the point of encoding.
type Encoder struct{}

// EncodeMethod serializes a method frame: class-id, method-id, then the
// already-encoded method arguments.
func (Encoder) EncodeMethod(channel uint16, classID, methodID uint16, args []byte) []byte {
	payload := make([]byte, 4+len(args))
	binary.BigEndian.PutUint16(payload[0:2], classID)
	binary.BigEndian.PutUint16(payload[2:4], methodID)
	copy(payload[4:], args)
	return encodeFrame(FrameMethod, channel, payload)
}

// EncodeHeader serializes a content-header frame: class-id, weight (always
// 0), body-size, then the already-encoded property flags/values.
func (Encoder) EncodeHeader(channel uint16, classID uint16, bodySize uint64, props []byte) []byte {
	payload := make([]byte, 2+2+8+len(props))
	binary.BigEndian.PutUint16(payload[0:2], classID)
	binary.BigEndian.PutUint16(payload[2:4], 0) // weight, unused
	binary.BigEndian.PutUint64(payload[4:12], bodySize)
	copy(payload[12:], props)
	return encodeFrame(FrameHeader, channel, payload)
}

// EncodeBody splits body into zero-or-more content-body frames no larger
// than maxPayload bytes each, per §3's ceil(body-size / max-payload)
// invariant. maxPayload <= 0 means "one frame, unbounded".
func (Encoder) EncodeBody(channel uint16, body []byte, maxPayload int) [][]byte {
	if len(body) == 0 {
		return nil
	}
	if maxPayload <= 0 {
		return [][]byte{encodeFrame(FrameBody, channel, body)}
	}
	var frames [][]byte
	for off := 0; off < len(body); off += maxPayload {
		end := off + maxPayload
		if end > len(body) {
			end = len(body)
		}
		frames = append(frames, encodeFrame(FrameBody, channel, body[off:end]))
	}
	return frames
}

// EncodeHeartbeat serializes the zero-payload heartbeat frame on channel 0.
func (Encoder) EncodeHeartbeat() []byte {
	return encodeFrame(FrameHeartbeat, 0, nil)
}

func encodeFrame(frameType byte, channel uint16, payload []byte) []byte {
	out := make([]byte, frameHeaderSize+len(payload)+1)
	out[0] = frameType
	binary.BigEndian.PutUint16(out[1:3], channel)
	binary.BigEndian.PutUint32(out[3:7], uint32(len(payload)))
	copy(out[frameHeaderSize:], payload)
	out[len(out)-1] = FrameEnd
	return out
}
