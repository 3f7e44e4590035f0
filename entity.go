package amqpmux

import (
	"sync"

	"github.com/aleybovich/amqpmux/callback"
)

// Status is the lifecycle tag shared by Connection, Channel, Queue,
// Exchange and Consumer (§4.2).
type Status int

const (
	StatusNew Status = iota
	StatusOpening
	StatusOpened
	StatusClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusOpening:
		return "opening"
	case StatusOpened:
		return "opened"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// entity is the base embedded by every protocol object. It carries the
// status tag and the named-callback registry every entity exposes for
// application-level hooks (e.g. "on close", "on flow"), fired either
// repeatedly (registered with On) or exactly once (registered with Once)
// per §4.2's tagged-variant design.
type entity struct {
	mu       sync.RWMutex
	status   Status
	callback *callback.Registry
}

func newEntity() entity {
	return entity{status: StatusNew, callback: callback.NewRegistry()}
}

func (e *entity) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *entity) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// On registers fn under name, invoked every time the name fires.
func (e *entity) On(name string, fn callback.Func) {
	e.callback.Define(name, fn)
}

// Once registers fn under name, invoked at most once: the registry
// drops it the first time the name fires.
func (e *entity) Once(name string, fn callback.Func) {
	e.callback.DefineOnce(name, fn)
}

func (e *entity) fire(name string, arg any) {
	e.callback.Exec(name, arg)
}

func (e *entity) fireOnce(name string, arg any) {
	e.callback.ExecOnce(name, arg)
}
