package verifier

import (
	"sync"

	"depositprotocol/internal/protocol"
)

// Mock is the capability-flag verifier. Anyone holding it may flip the flag.
type Mock struct {
	mu      sync.RWMutex
	address protocol.Address
	valid   bool
	emitter protocol.Emitter
}

// NewMock returns a verifier whose Verify answers valid.
func NewMock(valid bool, emitter protocol.Emitter) *Mock {
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}
	return &Mock{
		address: protocol.RandomAddress(),
		valid:   valid,
		emitter: emitter,
	}
}

// Address returns the verifier's handle.
func (m *Mock) Address() protocol.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.address
}

// Verify ignores proof and returns the current flag.
func (m *Mock) Verify(proof []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valid
}

// Valid returns the current flag.
func (m *Mock) Valid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valid
}

// SetValid forces all later Verify calls to return flag.
func (m *Mock) SetValid(flag bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = flag
	m.emitter.Emit(protocol.ValidityChanged{Source: m.address, Valid: flag})
}

// Restore overwrites handle and flag without emitting. Snapshot loading only.
func (m *Mock) Restore(address protocol.Address, valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.address = address
	m.valid = valid
}
