// Package pending implements the FIFO awaiting-sequences that correlate
// an asynchronous broker reply to the caller that issued the request
// (§3, §4.4, §8). AMQP guarantees per-channel, per-method-class reply
// ordering, so the head of a sequence at arrival time is always the next
// entity to receive that reply.
package pending

import (
	"sync"

	"github.com/google/uuid"
)

// Entry is one outstanding request. RequestID has no protocol meaning —
// it exists purely so log lines about concurrently in-flight requests on
// the same channel can be correlated (grounded on moby-moby's use of
// google/uuid for exactly this kind of local correlation id).
type Entry[T any] struct {
	RequestID uuid.UUID
	Value     T
}

// Sequence is a FIFO of outstanding requests of a single method class,
// e.g. a channel's queues_awaiting_declare_ok.
type Sequence[T any] struct {
	mu    sync.Mutex
	items []Entry[T]
}

// New returns an empty Sequence.
func New[T any]() *Sequence[T] {
	return &Sequence[T]{}
}

// Push appends value to the tail and returns the RequestID assigned to
// it. Callers must push before transmitting the corresponding frame —
// the Design Notes call this pairing out explicitly, since the
// dispatcher could in principle run between the two in a multi-threaded
// embedding (§4.4, §9).
func (s *Sequence[T]) Push(value T) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.items = append(s.items, Entry[T]{RequestID: id, Value: value})
	return id
}

// Pop removes and returns the head of the sequence. ok is false if the
// sequence is empty — an unsolicited broker reply with nothing pending.
func (s *Sequence[T]) Pop() (value T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return value, false
	}
	head := s.items[0]
	s.items = s.items[1:]
	return head.Value, true
}

// Len reports the number of outstanding entries.
func (s *Sequence[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear discards every outstanding entry without resolving it — the
// redesign decision recorded in DESIGN.md for broker-initiated close and
// connection interruption (§4.4, §7, §9).
func (s *Sequence[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
