package amqpmux

import (
	"sync"
	"time"
)

// testFakeDriver is an in-package copy of drivertest.FakeDriver, needed
// here because these white-box tests reach into unexported fields of
// Connection/Channel and so cannot live in an external test package —
// importing drivertest from package amqpmux creates an import cycle
// (drivertest imports amqpmux).
type testFakeDriver struct {
	mu sync.Mutex

	Written      [][]byte
	onFrame      func(Frame)
	onDisconnect func(error)

	periodics []testPeriodic
}

type testPeriodic struct {
	interval time.Duration
	fn       func()
}

var _ Driver = (*testFakeDriver)(nil)

func newTestFakeDriver() *testFakeDriver {
	return &testFakeDriver{}
}

func (f *testFakeDriver) Write(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.Written = append(f.Written, cp)
	return nil
}

func (f *testFakeDriver) OnFrame(fn func(Frame)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = fn
}

func (f *testFakeDriver) OnDisconnect(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = fn
}

func (f *testFakeDriver) Defer(fn func()) { fn() }

func (f *testFakeDriver) AddPeriodic(interval time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periodics = append(f.periodics, testPeriodic{interval, fn})
}

func (f *testFakeDriver) Tick() {
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

func (f *testFakeDriver) Deliver(fr Frame) {
	f.mu.Lock()
	cb := f.onFrame
	f.mu.Unlock()
	if cb != nil {
		cb(fr)
	}
}

func (f *testFakeDriver) Disconnect(err error) {
	f.mu.Lock()
	cb := f.onDisconnect
	f.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (f *testFakeDriver) LastWritten() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Written) == 0 {
		return nil
	}
	return f.Written[len(f.Written)-1]
}
