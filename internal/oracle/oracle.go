// oracle.go - Reserve ratio feed consulted by the ledger before minting.
//
// The oracle stores one fixed-point ratio where protocol.Scale means 100%
// backing. It starts at zero, so minting is refused until the first update.
// There is no access control here; restricting who may publish a ratio is a
// policy to wrap around the oracle, not a property of it.

package oracle

import (
	"math/big"
	"sync"

	"depositprotocol/internal/protocol"
)

// ReserveOracle holds the current reserve ratio.
type ReserveOracle struct {
	mu      sync.RWMutex
	address protocol.Address
	ratio   *big.Int
	emitter protocol.Emitter
}

// New creates an oracle with a zero ratio. A nil emitter discards events.
func New(emitter protocol.Emitter) *ReserveOracle {
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}
	return &ReserveOracle{
		address: protocol.RandomAddress(),
		ratio:   new(big.Int),
		emitter: emitter,
	}
}

// Address returns the oracle's handle.
func (o *ReserveOracle) Address() protocol.Address {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.address
}

// Ratio returns a copy of the stored ratio.
func (o *ReserveOracle) Ratio() *big.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return new(big.Int).Set(o.ratio)
}

// Healthy reports whether the stored ratio is at or above KAPPA.
func (o *ReserveOracle) Healthy() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return protocol.MeetsKappa(o.ratio)
}

// SetRatio replaces the stored ratio. Zero (or a nil/negative value) fails
// with ErrInvalidRatio, the current value with ErrNoOpUpdate.
func (o *ReserveOracle) SetRatio(ratio *big.Int) error {
	if ratio == nil || ratio.Sign() <= 0 {
		return protocol.ErrInvalidRatio
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if ratio.Cmp(o.ratio) == 0 {
		return protocol.ErrNoOpUpdate
	}
	o.ratio = new(big.Int).Set(ratio)
	o.emitter.Emit(protocol.RatioUpdated{Source: o.address, Ratio: new(big.Int).Set(ratio)})
	return nil
}

// Restore overwrites the handle and ratio without validation or events.
// Only snapshot loading calls it.
func (o *ReserveOracle) Restore(address protocol.Address, ratio *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.address = address
	o.ratio = protocol.Clone(ratio)
}
