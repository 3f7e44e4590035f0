// Package drivertest provides an in-memory fake of the amqpmux.Driver
// interface for exercising Connection/Channel without a real transport
// or event loop, grounded on the teacher's own pattern of driving
// protocol tests directly against in-memory buffers rather than real
// sockets.
package drivertest

import (
	"sync"
	"time"

	"github.com/aleybovich/amqpmux"
)

// FakeDriver is a Driver whose Write calls are captured for assertions
// and whose Defer runs its callback synchronously and immediately —
// appropriate for single-threaded test harnesses that drive the event
// loop themselves by calling Deliver.
type FakeDriver struct {
	mu sync.Mutex

	Written      [][]byte
	onFrame      func(amqpmux.Frame)
	onDisconnect func(error)

	periodics []periodic
}

type periodic struct {
	interval time.Duration
	fn       func()
}

var _ amqpmux.Driver = (*FakeDriver)(nil)

// NewFakeDriver returns an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Write records frame for later inspection via Written.
func (f *FakeDriver) Write(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.Written = append(f.Written, cp)
	return nil
}

// OnFrame registers the frame-arrival callback.
func (f *FakeDriver) OnFrame(fn func(amqpmux.Frame)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = fn
}

// OnDisconnect registers the disconnect callback.
func (f *FakeDriver) OnDisconnect(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = fn
}

// Defer runs fn immediately and synchronously. Tests that need to
// observe re-entrancy should not rely on this ordering beyond "runs
// before Defer returns".
func (f *FakeDriver) Defer(fn func()) { fn() }

// AddPeriodic records the registration; FakeDriver never fires it on
// its own — tests call Tick to simulate timer ticks deterministically.
func (f *FakeDriver) AddPeriodic(interval time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periodics = append(f.periodics, periodic{interval, fn})
}

// Tick fires every registered periodic callback once, regardless of its
// configured interval — tests control simulated time explicitly.
func (f *FakeDriver) Tick() {
	f.mu.Lock()
	fns := make([]func(), len(f.periodics))
	for i, p := range f.periodics {
		fns[i] = p.fn
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Deliver invokes the registered OnFrame callback with fr, simulating
// an inbound frame arriving from the transport.
func (f *FakeDriver) Deliver(fr amqpmux.Frame) {
	f.mu.Lock()
	cb := f.onFrame
	f.mu.Unlock()
	if cb != nil {
		cb(fr)
	}
}

// Disconnect invokes the registered OnDisconnect callback with err.
func (f *FakeDriver) Disconnect(err error) {
	f.mu.Lock()
	cb := f.onDisconnect
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// LastWritten returns the most recently written frame, or nil if none.
func (f *FakeDriver) LastWritten() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Written) == 0 {
		return nil
	}
	return f.Written[len(f.Written)-1]
}
