// events.go - Typed notifications emitted by mutating operations.

package protocol

import "math/big"

// EventKind names an event type on the wire and in metrics.
type EventKind string

const (
	KindRatioUpdated    EventKind = "ratio_updated"
	KindValidityChanged EventKind = "validity_changed"
	KindPaused          EventKind = "paused"
	KindUnpaused        EventKind = "unpaused"
	KindGovernorChanged EventKind = "governor_changed"
	KindLedgerChanged   EventKind = "ledger_changed"
	KindTransfer        EventKind = "transfer"
	KindApproval        EventKind = "approval"
	KindVerifierChanged EventKind = "verifier_changed"
)

// Event is a state-change notification. Source is the address of the
// emitting component.
type Event interface {
	Kind() EventKind
	Origin() Address
}

// Emitter receives events from components. Components emit while holding
// their own lock, so per-component emission order is application order.
// Emit must not fail and must not call back into any component.
type Emitter interface {
	Emit(Event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// RatioUpdated is emitted by the reserve oracle.
type RatioUpdated struct {
	Source Address  `json:"source"`
	Ratio  *big.Int `json:"ratio"`
}

func (e RatioUpdated) Kind() EventKind { return KindRatioUpdated }
func (e RatioUpdated) Origin() Address { return e.Source }

// ValidityChanged is emitted when the stand-in verifier's flag is forced.
type ValidityChanged struct {
	Source Address `json:"source"`
	Valid  bool    `json:"valid"`
}

func (e ValidityChanged) Kind() EventKind { return KindValidityChanged }
func (e ValidityChanged) Origin() Address { return e.Source }

// Paused is emitted on the Active -> Paused transition.
type Paused struct {
	Source Address `json:"source"`
	By     Address `json:"by"`
}

func (e Paused) Kind() EventKind { return KindPaused }
func (e Paused) Origin() Address { return e.Source }

// Unpaused is emitted on the Paused -> Active transition.
type Unpaused struct {
	Source Address `json:"source"`
	By     Address `json:"by"`
}

func (e Unpaused) Kind() EventKind { return KindUnpaused }
func (e Unpaused) Origin() Address { return e.Source }

// GovernorChanged is emitted when administrative authority moves.
type GovernorChanged struct {
	Source   Address `json:"source"`
	Previous Address `json:"previous"`
	Governor Address `json:"governor"`
}

func (e GovernorChanged) Kind() EventKind { return KindGovernorChanged }
func (e GovernorChanged) Origin() Address { return e.Source }

// LedgerChanged is emitted when the controller is re-pointed at a ledger.
type LedgerChanged struct {
	Source Address `json:"source"`
	Ledger Address `json:"ledger"`
}

func (e LedgerChanged) Kind() EventKind { return KindLedgerChanged }
func (e LedgerChanged) Origin() Address { return e.Source }

// Transfer covers mints (From is zero), burns (To is zero) and moves.
type Transfer struct {
	Source Address  `json:"source"`
	From   Address  `json:"from"`
	To     Address  `json:"to"`
	Amount *big.Int `json:"amount"`
}

func (e Transfer) Kind() EventKind { return KindTransfer }
func (e Transfer) Origin() Address { return e.Source }

// IsMint reports whether the transfer created supply.
func (e Transfer) IsMint() bool { return e.From.IsZero() }

// IsBurn reports whether the transfer destroyed supply.
func (e Transfer) IsBurn() bool { return e.To.IsZero() }

// Approval is emitted when an allowance is set.
type Approval struct {
	Source  Address  `json:"source"`
	Owner   Address  `json:"owner"`
	Spender Address  `json:"spender"`
	Amount  *big.Int `json:"amount"`
}

func (e Approval) Kind() EventKind { return KindApproval }
func (e Approval) Origin() Address { return e.Source }

// VerifierChanged is emitted when the ledger is bound to a new verifier.
type VerifierChanged struct {
	Source   Address `json:"source"`
	Previous Address `json:"previous"`
	Verifier Address `json:"verifier"`
}

func (e VerifierChanged) Kind() EventKind { return KindVerifierChanged }
func (e VerifierChanged) Origin() Address { return e.Source }
