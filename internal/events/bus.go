// bus.go - Synchronous fan-out of protocol events to subscribers.
//
// Components emit into a Bus; every subscriber sees every event in emission
// order, stamped with a sequence number and an ID. Handlers run on the
// emitting goroutine while the bus lock is held, so they must be quick and
// must never emit themselves.

package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"depositprotocol/internal/protocol"
)

// Envelope wraps an event with delivery metadata.
type Envelope struct {
	ID    uuid.UUID          `json:"id"`
	Seq   uint64             `json:"seq"`
	Time  time.Time          `json:"time"`
	Kind  protocol.EventKind `json:"kind"`
	Event protocol.Event     `json:"event"`
}

// Handler consumes envelopes.
type Handler func(Envelope)

// Bus is a protocol.Emitter that fans out to subscribed handlers.
type Bus struct {
	mu       sync.Mutex
	seq      uint64
	nextID   int
	handlers map[int]Handler
	order    []int
	now      func() time.Time
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[int]Handler),
		now:      time.Now,
	}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit stamps ev and delivers it to every handler in subscription order.
func (b *Bus) Emit(ev protocol.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	env := Envelope{
		ID:    uuid.New(),
		Seq:   b.seq,
		Time:  b.now().UTC(),
		Kind:  ev.Kind(),
		Event: ev,
	}
	for _, id := range b.order {
		b.handlers[id](env)
	}
}

// Seq returns the sequence number of the last emitted event.
func (b *Bus) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
