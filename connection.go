package amqpmux

import (
	"fmt"
	"sync"

	"github.com/aleybovich/amqpmux/amqperror"
	"github.com/aleybovich/amqpmux/callback"
	"github.com/aleybovich/amqpmux/config"
	"github.com/aleybovich/amqpmux/logger"
	"github.com/aleybovich/amqpmux/trace"
	"github.com/aleybovich/amqpmux/wire"
)

// ConnectionOption configures a Connection at construction time,
// following the teacher's functional-options pattern for config.
type ConnectionOption func(*Connection)

// WithClientConfig overrides the negotiated defaults a Connection opens
// with.
func WithClientConfig(cc config.ClientConfig) ConnectionOption {
	return func(c *Connection) { c.clientConfig = cc }
}

// WithLogger installs a custom logger.Logger; the default is a
// production zap logger (logger.NewZapLogger).
func WithLogger(l logger.Logger) ConnectionOption {
	return func(c *Connection) { c.logger = l }
}

// WithNilLogger silences all logging, for tests and embedders that want
// to own their own diagnostics instead of amqpmux's.
func WithNilLogger() ConnectionOption {
	return func(c *Connection) { c.logger = &logger.NilLogger{} }
}

// WithTraceRecorder installs a frame trace recorder (the optional
// seventh component, SPEC_FULL §2); the default records nothing.
func WithTraceRecorder(r trace.Recorder) ConnectionOption {
	return func(c *Connection) { c.traceRecorder = r }
}

// WithCredentials selects PLAIN SASL and installs the username/password
// sent in Connection.StartOk.
func WithCredentials(username, password string) ConnectionOption {
	return func(c *Connection) {
		c.clientConfig.AuthMode = config.AuthModePlain
		c.clientConfig.Credentials = config.Credentials{Username: username, Password: password}
	}
}

// Connection drives the AMQP opening handshake and owns the channel
// table (§3, §4.6). It is the injected collaborator a Channel uses for
// outbound frame transmission; all I/O ultimately flows through the
// Driver supplied at construction.
type Connection struct {
	entity

	driver Driver
	decoder *wire.Decoder
	encoder wire.Encoder

	clientConfig config.ClientConfig
	logger       logger.Logger

	mu              sync.RWMutex
	channels        map[uint16]*Channel
	channelMax      uint32
	frameMax        uint32
	heartbeat       uint16
	serverProps     map[string]any
	open            bool

	traceRecorder trace.Recorder
}

// NewConnection constructs a Connection bound to driver, wiring its
// OnFrame/OnDisconnect callbacks to the dispatch pipeline.
func NewConnection(driver Driver, opts ...ConnectionOption) (*Connection, error) {
	if driver == nil {
		return nil, &amqpError.NilArgument{What: "driver"}
	}

	conn := &Connection{
		entity:       newEntity(),
		driver:       driver,
		decoder:      wire.NewDecoder(config.DefaultFrameMax),
		clientConfig: config.DefaultClientConfig(),
		logger:       logger.NewZapLogger(),
		channels:     make(map[uint16]*Channel),
		channelMax:   config.DefaultChannelMax,
		frameMax:     config.DefaultFrameMax,
		heartbeat:    config.DefaultHeartbeat,
	}
	for _, opt := range opts {
		opt(conn)
	}
	if conn.traceRecorder == nil {
		conn.traceRecorder = noopTrace{}
	}

	driver.OnFrame(conn.handleWireFrame)
	driver.OnDisconnect(conn.handleDisconnect)

	return conn, nil
}

// ChannelMax returns the negotiated channel_max, falling back to the
// protocol default when the broker has not yet reported one.
func (c *Connection) ChannelMax() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.channelMax == 0 {
		return config.DefaultChannelMax
	}
	return c.channelMax
}

// Open initiates the handshake by writing the protocol header. The
// remaining Start/StartOk/Tune/TuneOk/Open/OpenOk exchange proceeds
// through handleWireFrame as the broker's frames arrive.
func (c *Connection) Open(cb callback.Func) error {
	c.setStatus(StatusOpening)
	c.Once("open", cb)
	return c.driver.Write(wire.ProtocolHeader[:])
}

// IsOpen reports whether the opening handshake has completed.
func (c *Connection) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Channels returns the connection's live channel-id → Channel mapping.
// The returned map is a snapshot copy, safe to range over concurrently.
func (c *Connection) Channels() map[uint16]*Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint16]*Channel, len(c.channels))
	for k, v := range c.channels {
		out[k] = v
	}
	return out
}

func (c *Connection) registerChannel(ch *Channel) {
	c.mu.Lock()
	c.channels[ch.id] = ch
	c.mu.Unlock()
}

func (c *Connection) unregisterChannel(id uint16) {
	c.mu.Lock()
	delete(c.channels, id)
	c.mu.Unlock()
}

func (c *Connection) channel(id uint16) (*Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.channels[id]
	return ch, ok
}

// sendMethod encodes and writes a method frame on behalf of a Channel
// (or channel 0, for connection-scoped methods).
func (c *Connection) sendMethod(channelID, classID, methodID uint16, args []byte) error {
	return c.driver.Write(c.encoder.EncodeMethod(channelID, classID, methodID, args))
}

// SendContent encodes and writes a content-header frame followed by its
// body frames, split at the negotiated frame_max.
func (c *Connection) SendContent(channelID uint16, classID uint16, bodySize uint64, props []byte, body []byte) error {
	if err := c.driver.Write(c.encoder.EncodeHeader(channelID, classID, bodySize, props)); err != nil {
		return err
	}
	maxPayload := int(c.frameMax)
	if maxPayload <= 0 {
		maxPayload = int(config.DefaultFrameMax)
	}
	for _, chunk := range c.encoder.EncodeBody(channelID, body, maxPayload) {
		if err := c.driver.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect sends Connection.Close and tears down every channel once
// CloseOk arrives.
func (c *Connection) Disconnect(cb callback.Func) error {
	c.setStatus(StatusClosing)
	c.Once("close", cb)
	args := encodeChannelClose(config.DefaultCloseReplyCode, config.DefaultCloseReplyText, 0, 0)
	return c.sendMethod(0, wire.ClassConnection, wire.MethodConnectionClose, args)
}

// handleWireFrame is the Driver.OnFrame callback: it routes an already
// decoded frame to the connection or the owning channel. Raw transport
// bytes go through Feed instead.
func (c *Connection) handleWireFrame(fr Frame) {
	if fr.Kind == FrameKindMethod && fr.Channel == 0 {
		if err := c.dispatchConnectionMethod(fr.Method); err != nil {
			if isFatalFrameError(err) {
				c.fatalProtocolError(err)
				return
			}
			c.logger.Err("connection-level dispatch error: %v", err)
		}
		return
	}

	ch, ok := c.channel(fr.Channel)
	if !ok {
		c.logger.Warn("frame for unknown channel %d, kind=%d", fr.Channel, fr.Kind)
		return
	}

	var err error
	switch fr.Kind {
	case FrameKindMethod:
		err = ch.dispatchMethod(fr.Method)
	case FrameKindHeader:
		err = ch.handleContentHeader(fr.Header)
	case FrameKindBody:
		err = ch.handleContentBody(fr.Body)
	case FrameKindHeartbeat:
		// heartbeat scheduling is out of scope; framing only.
	}
	if err != nil {
		if isFatalFrameError(err) {
			c.fatalProtocolError(err)
			return
		}
		c.logger.Err("channel %d frame handling error: %v", fr.Channel, err)
	}
}

// Feed hands raw transport bytes to the frame decoder and dispatches
// every complete frame it yields. A Driver implementation that delivers
// raw bytes (rather than pre-decoded frames) calls this from its read
// loop instead of constructing Frame values itself. A fatal framing
// error (§7.2) is escalated to Connection.Close + teardown here too,
// since it can surface from the decoder/lifter before a Frame ever
// reaches handleWireFrame.
func (c *Connection) Feed(data []byte) error {
	c.decoder.Feed(data)
	for {
		wf, ok, err := c.decoder.TryDecode()
		if err != nil {
			if isFatalFrameError(err) {
				c.fatalProtocolError(err)
				return nil
			}
			return err
		}
		if !ok {
			return nil
		}
		fr, err := DecodeFrame(*wf)
		if err != nil {
			if isFatalFrameError(err) {
				c.fatalProtocolError(err)
				return nil
			}
			return err
		}
		c.handleWireFrame(fr)
	}
}

// isFatalFrameError reports whether err is one of the three protocol
// framing errors §7.2 names as connection-fatal.
func isFatalFrameError(err error) bool {
	switch err.(type) {
	case *wire.MalformedFrame, *wire.UnknownMethod, *wire.UnexpectedContentFrame:
		return true
	default:
		return false
	}
}

// fatalProtocolError escalates a connection-fatal framing error (§7.2):
// send Connection.Close with reply code 505 and tear down every
// channel, mirroring the broker-initiated close path
// handleConnectionClose already drives.
func (c *Connection) fatalProtocolError(err error) {
	c.logger.Err("fatal protocol error, closing connection: %v", err)
	args := encodeChannelClose(uint16(amqpError.UnexpectedFrame), err.Error(), 0, 0)
	if werr := c.sendMethod(0, wire.ClassConnection, wire.MethodConnectionClose, args); werr != nil {
		c.logger.Err("failed to send Connection.Close after protocol error: %v", werr)
	}
	c.fireOnce("error", err)
	c.handleDisconnect(err)
}

func (c *Connection) handleDisconnect(err error) {
	c.fire("disconnect", err)
	c.mu.RLock()
	channels := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.RUnlock()
	for _, ch := range channels {
		ch.handleConnectionInterruption()
	}
	c.mu.Lock()
	c.channels = make(map[uint16]*Channel)
	c.open = false
	c.mu.Unlock()
}

// dispatchConnectionMethod handles the connection-scoped (channel 0)
// method classes: the opening handshake and Connection.Close.
func (c *Connection) dispatchConnectionMethod(mf *MethodFrame) error {
	if mf.ClassID != wire.ClassConnection {
		return fmt.Errorf("unexpected class %d on channel 0", mf.ClassID)
	}
	switch mf.MethodID {
	case wire.MethodConnectionStart:
		return c.handleStart(mf)
	case wire.MethodConnectionTune:
		return c.handleTune(mf)
	case wire.MethodConnectionOpenOk:
		return c.handleConnectionOpenOk(mf)
	case wire.MethodConnectionClose:
		return c.handleConnectionClose(mf)
	case wire.MethodConnectionCloseOk:
		return c.handleConnectionCloseOk(mf)
	default:
		return &wire.UnknownMethod{ClassID: mf.ClassID, MethodID: mf.MethodID}
	}
}

func (c *Connection) handleStart(mf *MethodFrame) error {
	start, err := decodeConnectionStart(mf.Args)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.serverProps = start.ServerProps
	c.mu.Unlock()

	startOk := encodeConnectionStartOk(c.clientConfig)
	return c.sendMethod(0, wire.ClassConnection, wire.MethodConnectionStartOk, startOk)
}

func (c *Connection) handleTune(mf *MethodFrame) error {
	tune, err := decodeConnectionTune(mf.Args)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if tune.ChannelMax != 0 {
		c.channelMax = uint32(tune.ChannelMax)
	}
	if tune.FrameMax != 0 {
		c.frameMax = tune.FrameMax
		c.decoder.SetFrameMax(tune.FrameMax)
	}
	c.heartbeat = tune.Heartbeat
	c.mu.Unlock()

	tuneOk := encodeConnectionTuneOk(tune)
	if err := c.sendMethod(0, wire.ClassConnection, wire.MethodConnectionTuneOk, tuneOk); err != nil {
		return err
	}
	return c.sendMethod(0, wire.ClassConnection, wire.MethodConnectionOpen, encodeConnectionOpen(c.clientConfig.VHost))
}

func (c *Connection) handleConnectionOpenOk(mf *MethodFrame) error {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	c.setStatus(StatusOpened)
	c.fireOnce("open", mf)
	return nil
}

func (c *Connection) handleConnectionClose(mf *MethodFrame) error {
	reason, err := decodeClose(mf.Args)
	if err != nil {
		return err
	}
	c.fireOnce("error", reason)
	if err := c.sendMethod(0, wire.ClassConnection, wire.MethodConnectionCloseOk, nil); err != nil {
		return err
	}
	c.handleDisconnect(nil)
	return nil
}

func (c *Connection) handleConnectionCloseOk(mf *MethodFrame) error {
	c.fireOnce("close", mf)
	c.handleDisconnect(nil)
	return nil
}
