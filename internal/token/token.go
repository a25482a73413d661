// token.go - Reserve-backed fungible token with a three-way mint gate.
//
// The ledger keeps balances and total supply and owns no notion of authority.
// Pause state and governor checks come from an Authority, solvency from a
// ReserveSource and eligibility from a ProofVerifier. Each operation runs
// under the ledger lock from first check to last write, so it either applies
// fully or not at all.

package token

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
	"sync"

	"depositprotocol/internal/protocol"
)

// Authority answers pause and authorization questions for the ledger.
type Authority interface {
	IsPaused() bool
	IsGovernor(id protocol.Address) bool
}

// ReserveSource reports the current reserve ratio.
type ReserveSource interface {
	Ratio() *big.Int
}

// ProofVerifier decides mint eligibility from opaque proof bytes.
type ProofVerifier interface {
	Address() protocol.Address
	Verify(proof []byte) bool
}

// Decimals of the token, matching protocol.Decimals.
const Decimals = protocol.Decimals

// Ledger is the deposit token.
type Ledger struct {
	mu         sync.RWMutex
	address    protocol.Address
	name       string
	symbol     string
	authority  Authority
	reserve    ReserveSource
	verifier   ProofVerifier
	supply     *big.Int
	balances   map[protocol.Address]*big.Int
	allowances map[protocol.Address]map[protocol.Address]*big.Int
	emitter    protocol.Emitter
}

// New builds a ledger bound to its three collaborators. A nil emitter
// discards events.
func New(name, symbol string, verifier ProofVerifier, reserve ReserveSource, authority Authority, emitter protocol.Emitter) (*Ledger, error) {
	if verifier == nil || reserve == nil || authority == nil {
		return nil, errors.New("token: verifier, reserve and authority are required")
	}
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}
	return &Ledger{
		address:    protocol.RandomAddress(),
		name:       name,
		symbol:     symbol,
		authority:  authority,
		reserve:    reserve,
		verifier:   verifier,
		supply:     new(big.Int),
		balances:   make(map[protocol.Address]*big.Int),
		allowances: make(map[protocol.Address]map[protocol.Address]*big.Int),
		emitter:    emitter,
	}, nil
}

// Address returns the ledger's handle.
func (l *Ledger) Address() protocol.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.address
}

func (l *Ledger) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.name
}

func (l *Ledger) Symbol() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.symbol
}

func (l *Ledger) Decimals() uint8 { return Decimals }

// TotalSupply returns a copy of the outstanding supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply)
}

// BalanceOf returns a copy of owner's balance (zero if unknown).
func (l *Ledger) BalanceOf(owner protocol.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return protocol.Clone(l.balances[owner])
}

// Allowance returns how much spender may move out of owner's balance.
func (l *Ledger) Allowance(owner, spender protocol.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return protocol.Clone(l.allowances[owner][spender])
}

// Verifier returns the currently bound verifier.
func (l *Ledger) Verifier() ProofVerifier {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verifier
}

// Holder is one non-zero balance.
type Holder struct {
	Address protocol.Address `json:"address"`
	Balance *big.Int         `json:"balance"`
}

// Holders returns every non-zero balance ordered by address.
func (l *Ledger) Holders() []Holder {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.holdersLocked()
}

func (l *Ledger) holdersLocked() []Holder {
	out := make([]Holder, 0, len(l.balances))
	for addr, bal := range l.balances {
		if bal.Sign() > 0 {
			out = append(out, Holder{Address: addr, Balance: new(big.Int).Set(bal)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Mint credits amount to to after the admission gate, checked in order:
// protocol not paused, reserve ratio at or above KAPPA, proof accepted.
func (l *Ledger) Mint(to protocol.Address, amount *big.Int, proof []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.authority.IsPaused() {
		return protocol.ErrProtocolPaused
	}
	if err := protocol.ValidateAmount(amount); err != nil {
		return err
	}
	if to.IsZero() {
		return protocol.ErrZeroAddress
	}
	if !protocol.MeetsKappa(l.reserve.Ratio()) {
		return protocol.ErrInsufficientReserve
	}
	if !l.verifier.Verify(proof) {
		return protocol.ErrInvalidProof
	}

	l.credit(to, amount)
	l.supply.Add(l.supply, amount)
	l.emitter.Emit(protocol.Transfer{Source: l.address, From: protocol.ZeroAddress, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Redeem burns amount from caller's own balance.
func (l *Ledger) Redeem(caller protocol.Address, amount *big.Int) error {
	if err := protocol.ValidateAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balanceLocked(caller).Cmp(amount) < 0 {
		return protocol.ErrInsufficientBalance
	}
	l.debit(caller, amount)
	l.supply.Sub(l.supply, amount)
	l.emitter.Emit(protocol.Transfer{Source: l.address, From: caller, To: protocol.ZeroAddress, Amount: new(big.Int).Set(amount)})
	return nil
}

// Transfer moves amount from caller to to.
func (l *Ledger) Transfer(caller, to protocol.Address, amount *big.Int) error {
	if err := protocol.ValidateAmount(amount); err != nil {
		return err
	}
	if to.IsZero() {
		return protocol.ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(caller, to, amount)
}

// Approve sets spender's allowance over caller's balance. Zero clears it.
func (l *Ledger) Approve(caller, spender protocol.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return protocol.ErrInvalidAmount
	}
	if spender.IsZero() {
		return protocol.ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.Sign() == 0 {
		delete(l.allowances[caller], spender)
	} else {
		if l.allowances[caller] == nil {
			l.allowances[caller] = make(map[protocol.Address]*big.Int)
		}
		l.allowances[caller][spender] = new(big.Int).Set(amount)
	}
	l.emitter.Emit(protocol.Approval{Source: l.address, Owner: caller, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// TransferFrom moves amount from from to to, spending caller's allowance.
func (l *Ledger) TransferFrom(caller, from, to protocol.Address, amount *big.Int) error {
	if err := protocol.ValidateAmount(amount); err != nil {
		return err
	}
	if to.IsZero() {
		return protocol.ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := protocol.Clone(l.allowances[from][caller])
	if allowed.Cmp(amount) < 0 {
		return protocol.ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	remaining := allowed.Sub(allowed, amount)
	if remaining.Sign() == 0 {
		delete(l.allowances[from], caller)
	} else {
		l.allowances[from][caller] = remaining
	}
	return nil
}

// SetVerifier rebinds the proof verifier. Only the governor may call it.
func (l *Ledger) SetVerifier(caller protocol.Address, next ProofVerifier) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.authority.IsGovernor(caller) {
		return protocol.ErrNotGovernor
	}
	if next == nil {
		return errors.New("token: verifier is required")
	}
	prev := l.verifier.Address()
	l.verifier = next
	l.emitter.Emit(protocol.VerifierChanged{Source: l.address, Previous: prev, Verifier: next.Address()})
	return nil
}

func (l *Ledger) move(from, to protocol.Address, amount *big.Int) error {
	if l.balanceLocked(from).Cmp(amount) < 0 {
		return protocol.ErrInsufficientBalance
	}
	l.debit(from, amount)
	l.credit(to, amount)
	l.emitter.Emit(protocol.Transfer{Source: l.address, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) balanceLocked(owner protocol.Address) *big.Int {
	if bal, ok := l.balances[owner]; ok {
		return bal
	}
	return new(big.Int)
}

func (l *Ledger) credit(owner protocol.Address, amount *big.Int) {
	bal, ok := l.balances[owner]
	if !ok {
		bal = new(big.Int)
		l.balances[owner] = bal
	}
	bal.Add(bal, amount)
}

func (l *Ledger) debit(owner protocol.Address, amount *big.Int) {
	bal := l.balances[owner]
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(l.balances, owner)
	}
}
