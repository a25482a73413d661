// governance.go - Single-governor access control and the global pause switch.
//
// The controller has two states, Active and Paused, and exactly one governor.
// Every administrative call is checked against the current governor; a
// rotation takes effect immediately with no acceptance step, so a mistaken
// SetGovernor hands authority away for good.

package governance

import (
	"sync"

	"depositprotocol/internal/protocol"
)

// Controller administers one ledger.
type Controller struct {
	mu       sync.RWMutex
	address  protocol.Address
	governor protocol.Address
	paused   bool
	ledger   protocol.Address
	emitter  protocol.Emitter
}

// New returns an Active controller governed by founder. A nil emitter
// discards events.
func New(founder protocol.Address, emitter protocol.Emitter) *Controller {
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}
	return &Controller{
		address:  protocol.RandomAddress(),
		governor: founder,
		emitter:  emitter,
	}
}

// Address returns the controller's handle.
func (c *Controller) Address() protocol.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

// Governor returns the current governor.
func (c *Controller) Governor() protocol.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.governor
}

// IsGovernor reports whether id holds administrative authority.
func (c *Controller) IsGovernor(id protocol.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return id == c.governor
}

// IsPaused reports whether the protocol is Paused.
func (c *Controller) IsPaused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Ledger returns the handle of the administered ledger.
func (c *Controller) Ledger() protocol.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger
}

// Pause moves the protocol to Paused. Pausing while Paused succeeds without
// emitting anything.
func (c *Controller) Pause(caller protocol.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.governor {
		return protocol.ErrNotGovernor
	}
	if c.paused {
		return nil
	}
	c.paused = true
	c.emitter.Emit(protocol.Paused{Source: c.address, By: caller})
	return nil
}

// Unpause moves the protocol back to Active. Unpausing while Active succeeds
// without emitting anything.
func (c *Controller) Unpause(caller protocol.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.governor {
		return protocol.ErrNotGovernor
	}
	if !c.paused {
		return nil
	}
	c.paused = false
	c.emitter.Emit(protocol.Unpaused{Source: c.address, By: caller})
	return nil
}

// SetGovernor hands authority to next, effective immediately. The zero
// address is refused.
func (c *Controller) SetGovernor(caller, next protocol.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.governor {
		return protocol.ErrNotGovernor
	}
	if next.IsZero() {
		return protocol.ErrZeroAddress
	}
	prev := c.governor
	c.governor = next
	c.emitter.Emit(protocol.GovernorChanged{Source: c.address, Previous: prev, Governor: next})
	return nil
}

// SetLedger rebinds the ledger this controller administers.
func (c *Controller) SetLedger(caller, ledger protocol.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller != c.governor {
		return protocol.ErrNotGovernor
	}
	c.ledger = ledger
	c.emitter.Emit(protocol.LedgerChanged{Source: c.address, Ledger: ledger})
	return nil
}

// State is the persisted form of a controller.
type State struct {
	Address  protocol.Address `json:"address"`
	Governor protocol.Address `json:"governor"`
	Paused   bool             `json:"paused"`
	Ledger   protocol.Address `json:"ledger"`
}

// State returns a consistent copy of the controller's fields.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{Address: c.address, Governor: c.governor, Paused: c.paused, Ledger: c.ledger}
}

// Restore overwrites all fields without authorization or events. Snapshot
// loading only.
func (c *Controller) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = s.Address
	c.governor = s.Governor
	c.paused = s.Paused
	c.ledger = s.Ledger
}
