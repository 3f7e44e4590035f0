package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleybovich/amqpmux/wire"
)

func TestCodecRoundTripMethodFrame(t *testing.T) {
	enc := wire.Encoder{}
	args := []byte{0x00, 0x01, 0x02}
	raw := enc.EncodeMethod(3, wire.ClassQueue, wire.MethodQueueDeclare, args)

	dec := wire.NewDecoder(0)
	dec.Feed(raw)

	fr, ok, err := dec.TryDecode()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire.FrameMethod, fr.Type)
	assert.Equal(t, uint16(3), fr.Channel)
	assert.Equal(t, args, fr.Payload[4:])
}

func TestCodecShortReadYieldsNoFrame(t *testing.T) {
	enc := wire.Encoder{}
	raw := enc.EncodeMethod(1, wire.ClassChannel, wire.MethodChannelOpen, nil)

	dec := wire.NewDecoder(0)
	dec.Feed(raw[:len(raw)-2])

	_, ok, err := dec.TryDecode()
	assert.NoError(t, err)
	assert.False(t, ok)

	dec.Feed(raw[len(raw)-2:])
	fr, ok, err := dec.TryDecode()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(1), fr.Channel)
}

func TestCodecMalformedFrameEnd(t *testing.T) {
	enc := wire.Encoder{}
	raw := enc.EncodeMethod(1, wire.ClassChannel, wire.MethodChannelOpen, nil)
	raw[len(raw)-1] = 0x00

	dec := wire.NewDecoder(0)
	dec.Feed(raw)

	_, _, err := dec.TryDecode()
	require.Error(t, err)
	var malformed *wire.MalformedFrame
	assert.ErrorAs(t, err, &malformed)
}

func TestCodecFrameExceedsFrameMax(t *testing.T) {
	enc := wire.Encoder{}
	raw := enc.EncodeMethod(1, wire.ClassBasic, wire.MethodBasicPublish, make([]byte, 64))

	dec := wire.NewDecoder(32)
	dec.Feed(raw)

	_, _, err := dec.TryDecode()
	require.Error(t, err)
}

func TestCodecBodySplitsOnMaxPayload(t *testing.T) {
	enc := wire.Encoder{}
	body := bytes.Repeat([]byte{'a'}, 25)
	frames := enc.EncodeBody(1, body, 10)
	require.Len(t, frames, 3) // ceil(25/10) = 3

	dec := wire.NewDecoder(0)
	var reassembled []byte
	for _, f := range frames {
		dec.Feed(f)
		fr, ok, err := dec.TryDecode()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, wire.FrameBody, fr.Type)
		reassembled = append(reassembled, fr.Payload...)
	}
	assert.Equal(t, body, reassembled)
}

func TestTableRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := map[string]any{
		"str":  "hello",
		"flag": true,
		"num":  int32(42),
		"nested": map[string]any{
			"inner": int64(7),
		},
	}
	require.NoError(t, wire.WriteTable(&buf, in))

	r := bytes.NewReader(buf.Bytes())
	out, err := wire.ReadTable(r)
	require.NoError(t, err)
	assert.Equal(t, in["str"], out["str"])
	assert.Equal(t, in["flag"], out["flag"])
	assert.Equal(t, in["num"], out["num"])
	assert.Equal(t, in["nested"], out["nested"])
}

func TestShortStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	wire.WriteShortString(&buf, "amq.gen-1")
	r := bytes.NewReader(buf.Bytes())
	s, err := wire.ReadShortString(r)
	require.NoError(t, err)
	assert.Equal(t, "amq.gen-1", s)
}

func TestTopicMatches(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"#", "any.thing.at.all", true},
		{"", "", true},
		{"", "x", false},
		{"stock.*", "stock.nyse", true},
		{"stock.*", "stock.nyse.open", false},
		{"stock.#", "stock.nyse.open", true},
		{"*.orange.*", "quick.orange.rabbit", true},
		{"lazy.#", "lazy.pink.rabbit", true},
		{"lazy.#", "lazy", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, wire.TopicMatches(c.pattern, c.key), "pattern=%q key=%q", c.pattern, c.key)
	}
}
