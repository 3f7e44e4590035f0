package amqpmux

import (
	"bytes"

	"github.com/aleybovich/amqpmux/config"
	"github.com/aleybovich/amqpmux/wire"
)

// connectionStart is the decoded argument set of Connection.Start.
type connectionStart struct {
	VersionMajor    uint8
	VersionMinor    uint8
	ServerProps     map[string]any
	Mechanisms      string
	Locales         string
}

func decodeConnectionStart(args []byte) (connectionStart, error) {
	r := argReader(args)
	var s connectionStart
	var err error
	if s.VersionMajor, err = r.ReadByte(); err != nil {
		return s, err
	}
	if s.VersionMinor, err = r.ReadByte(); err != nil {
		return s, err
	}
	if s.ServerProps, err = wire.ReadTable(r); err != nil {
		return s, err
	}
	if s.Mechanisms, err = wire.ReadLongString(r); err != nil {
		return s, err
	}
	if s.Locales, err = wire.ReadLongString(r); err != nil {
		return s, err
	}
	return s, nil
}

// encodeConnectionStartOk encodes Connection.StartOk. config.AuthModePlain
// selects the PLAIN mechanism with a username/password response;
// AuthModeNone selects "ANONYMOUS" with an empty response.
func encodeConnectionStartOk(cc config.ClientConfig) []byte {
	var w bytes.Buffer
	_ = wire.WriteTable(&w, cc.ClientProperties)
	mechanism := "PLAIN"
	if cc.AuthMode != config.AuthModePlain {
		mechanism = "ANONYMOUS"
	}
	wire.WriteShortString(&w, mechanism)
	wire.WriteLongString(&w, saslPlainResponse(cc))
	locale := cc.Locale
	if locale == "" {
		locale = "en_US"
	}
	wire.WriteShortString(&w, locale)
	return w.Bytes()
}

// saslPlainResponse builds the "\0username\0password" PLAIN response
// blob RFC 4616 and the AMQP spec require.
func saslPlainResponse(cc config.ClientConfig) string {
	if cc.AuthMode != config.AuthModePlain {
		return ""
	}
	return "\x00" + cc.Credentials.Username + "\x00" + cc.Credentials.Password
}

// connectionTune is the decoded/encoded argument set shared by
// Connection.Tune and Connection.TuneOk.
type connectionTune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func decodeConnectionTune(args []byte) (connectionTune, error) {
	r := argReader(args)
	var t connectionTune
	var err error
	if t.ChannelMax, err = readU16(r); err != nil {
		return t, err
	}
	if t.FrameMax, err = readU32(r); err != nil {
		return t, err
	}
	if t.Heartbeat, err = readU16(r); err != nil {
		return t, err
	}
	return t, nil
}

func encodeConnectionTuneOk(t connectionTune) []byte {
	var w bytes.Buffer
	writeU16(&w, t.ChannelMax)
	writeU32(&w, t.FrameMax)
	writeU16(&w, t.Heartbeat)
	return w.Bytes()
}

func encodeConnectionOpen(vhost string) []byte {
	var w bytes.Buffer
	if vhost == "" {
		vhost = "/"
	}
	wire.WriteShortString(&w, vhost)
	wire.WriteShortString(&w, "") // reserved-1 capabilities
	w.WriteByte(0)                // reserved-2 insist
	return w.Bytes()
}
