package config

// AuthMode defines which SASL mechanism the client offers in
// Connection.StartOk. The handshake itself — which mechanisms the
// broker advertises, and how the response blob is assembled — is the
// connection's job; AuthMode only selects which assembly it runs.
type AuthMode int

const (
	// AuthModeNone selects the "ANONYMOUS" mechanism with an empty
	// response, valid only against a broker advertising it.
	AuthModeNone AuthMode = iota
	// AuthModePlain sends a PLAIN response: "\x00" + username + "\x00" + password.
	AuthModePlain
)

// Credentials holds the PLAIN username/password pair used to build the
// Connection.StartOk response when AuthMode is AuthModePlain.
type Credentials struct {
	Username string
	Password string
}
