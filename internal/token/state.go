package token

import (
	"fmt"
	"math/big"

	"depositprotocol/internal/protocol"
)

// Allowance is one owner/spender grant in State.
type Allowance struct {
	Owner   protocol.Address `json:"owner"`
	Spender protocol.Address `json:"spender"`
	Amount  *big.Int         `json:"amount"`
}

// State is the persisted form of a ledger. The verifier binding is not part
// of it; restoring wires whichever verifier the ledger was built with.
type State struct {
	Address     protocol.Address `json:"address"`
	Name        string           `json:"name"`
	Symbol      string           `json:"symbol"`
	TotalSupply *big.Int         `json:"total_supply"`
	Holders     []Holder         `json:"holders"`
	Allowances  []Allowance      `json:"allowances,omitempty"`
}

// State returns a consistent copy of the ledger's accounting.
func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var allowances []Allowance
	for owner, grants := range l.allowances {
		for spender, amount := range grants {
			allowances = append(allowances, Allowance{Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
		}
	}
	return State{
		Address:     l.address,
		Name:        l.name,
		Symbol:      l.symbol,
		TotalSupply: new(big.Int).Set(l.supply),
		Holders:     l.holdersLocked(),
		Allowances:  allowances,
	}
}

// Restore replaces the ledger's accounting with s. It refuses a state whose
// balances do not sum to its total supply, and emits nothing.
func (l *Ledger) Restore(s State) error {
	sum := new(big.Int)
	balances := make(map[protocol.Address]*big.Int, len(s.Holders))
	for _, h := range s.Holders {
		if h.Balance == nil || h.Balance.Sign() < 0 {
			return fmt.Errorf("restore ledger: negative balance for %s", h.Address)
		}
		if h.Balance.Sign() == 0 {
			continue
		}
		if _, dup := balances[h.Address]; dup {
			return fmt.Errorf("restore ledger: duplicate holder %s", h.Address)
		}
		balances[h.Address] = new(big.Int).Set(h.Balance)
		sum.Add(sum, h.Balance)
	}
	if sum.Cmp(protocol.Clone(s.TotalSupply)) != 0 {
		return fmt.Errorf("restore ledger: balances sum to %s, supply is %s", sum, protocol.Clone(s.TotalSupply))
	}

	allowances := make(map[protocol.Address]map[protocol.Address]*big.Int)
	for _, a := range s.Allowances {
		if a.Amount == nil || a.Amount.Sign() <= 0 {
			continue
		}
		if allowances[a.Owner] == nil {
			allowances[a.Owner] = make(map[protocol.Address]*big.Int)
		}
		allowances[a.Owner][a.Spender] = new(big.Int).Set(a.Amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.address = s.Address
	l.name = s.Name
	l.symbol = s.Symbol
	l.supply = sum
	l.balances = balances
	l.allowances = allowances
	return nil
}
