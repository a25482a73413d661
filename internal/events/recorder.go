package events

import (
	"sync"

	"depositprotocol/internal/protocol"
)

// Recorder keeps every event it sees. It is both an Emitter, for wiring a
// component directly, and a Handler source, for subscribing to a Bus.
type Recorder struct {
	mu   sync.Mutex
	envs []Envelope
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records ev without delivery metadata.
func (r *Recorder) Emit(ev protocol.Event) {
	r.Handle(Envelope{Kind: ev.Kind(), Event: ev})
}

// Handle records env.
func (r *Recorder) Handle(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

// Envelopes returns a copy of everything recorded.
func (r *Recorder) Envelopes() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.envs))
	copy(out, r.envs)
	return out
}

// Events returns the recorded events without envelopes.
func (r *Recorder) Events() []protocol.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Event, len(r.envs))
	for i, env := range r.envs {
		out[i] = env.Event
	}
	return out
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []protocol.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.EventKind, len(r.envs))
	for i, env := range r.envs {
		out[i] = env.Kind
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = nil
}
