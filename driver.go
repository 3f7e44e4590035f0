package amqpmux

import "time"

// Driver is the injected collaborator a transport/event-loop integration
// supplies (§6). amqpmux ships no implementation — wiring a real socket
// and a real scheduler to this interface is exactly the "I/O integration
// layer" spec.md places out of scope. Tests exercise Connection/Channel
// against the in-memory fake in the drivertest package instead.
type Driver interface {
	// Write hands an already-encoded frame to the transport. It must
	// not block waiting for a reply — AMQP replies arrive later, through
	// OnFrame.
	Write(frame []byte) error

	// OnFrame registers the callback invoked once per decoded frame.
	// Only one callback may be registered; a second call replaces it.
	OnFrame(func(Frame))

	// OnDisconnect registers the callback invoked when the transport is
	// lost, with the triggering error (nil for a graceful close).
	OnDisconnect(func(error))

	// Defer schedules fn to run on the driver's event-loop thread at the
	// next opportunity, never synchronously. Connection and Channel do
	// not call it; they run on whatever goroutine invokes the OnFrame
	// callback or their public methods.
	Defer(fn func())

	// AddPeriodic schedules fn to run every interval until the driver is
	// torn down. amqpmux does not call it: it schedules no heartbeats and
	// performs no timer bookkeeping of its own (§1 Non-goals).
	AddPeriodic(interval time.Duration, fn func())
}
