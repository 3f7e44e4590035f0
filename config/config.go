// Package config holds the functional-options configuration surface for
// a Connection, grounded on the teacher's own config package shape
// (config.go / auth_config.go / logging_config.go / storage_config.go)
// but repurposed from broker vhost presets to client handshake tuning.
package config

// Defaults from §6: the fallback channel_max when the broker advertises
// 0 or the connection is not yet open, the default QoS, and the default
// caller-initiated close reason.
const (
	DefaultChannelMax        = 65536
	DefaultFrameMax   uint32 = 131072
	DefaultHeartbeat         = 60 // seconds, used until Connection.Tune arrives

	DefaultPrefetchSize  = 0
	DefaultPrefetchCount = 32
	DefaultQosGlobal     = false

	DefaultCloseReplyCode = 200
	DefaultCloseReplyText = "Goodbye"
)

// ClientConfig carries the settings a Connection uses during the opening
// handshake (§4.6): the client-properties table, locale and SASL choice
// sent in Connection.StartOk and the vhost sent in Connection.Open.
// ChannelMax, FrameMax and Heartbeat are not sent to the broker:
// Connection.TuneOk echoes the values the broker proposed in
// Connection.Tune.
type ClientConfig struct {
	ChannelMax uint32
	FrameMax   uint32
	Heartbeat  uint16

	VHost            string
	ClientProperties map[string]any
	Locale           string

	// AuthMode and Credentials select and fill in the SASL mechanism and
	// response sent in Connection.StartOk. AuthModeNone (the zero value)
	// sends "ANONYMOUS" with an empty response, valid only against a
	// broker advertising that mechanism.
	AuthMode    AuthMode
	Credentials Credentials
}

// DefaultClientConfig returns the default ClientConfig.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ChannelMax: DefaultChannelMax,
		FrameMax:   DefaultFrameMax,
		Heartbeat:  DefaultHeartbeat,
		VHost:      "/",
		Locale:     "en_US",
		ClientProperties: map[string]any{
			"product": "amqpmux",
		},
	}
}
