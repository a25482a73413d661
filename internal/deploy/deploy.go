// Package deploy builds the four protocol components in dependency order and
// wires their references.
package deploy

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"depositprotocol/internal/governance"
	"depositprotocol/internal/oracle"
	"depositprotocol/internal/protocol"
	"depositprotocol/internal/token"
	"depositprotocol/internal/verifier"
)

// Options controls a deployment. Zero values fall back to the defaults of
// the reference deployment: a Mock verifier that accepts, a fully backed
// reserve and the dUSD metadata.
type Options struct {
	Name    string
	Symbol  string
	Founder protocol.Address
	// InitialRatio is applied after wiring. Nil means Kappa; a zero ratio
	// leaves the oracle at its constructed value of 0.
	InitialRatio *big.Int
	// Verifier overrides the default Mock.
	Verifier token.ProofVerifier
}

const (
	DefaultName   = "Deposit USD"
	DefaultSymbol = "dUSD"
)

// Stack is a deployed and wired protocol.
type Stack struct {
	Verifier   token.ProofVerifier
	Oracle     *oracle.ReserveOracle
	Governance *governance.Controller
	Token      *token.Ledger
}

// Deploy constructs verifier and oracle, then governance with founder as
// governor, then the token bound to all three, then points governance at the
// token and finally sets the initial ratio.
func Deploy(opts Options, emitter protocol.Emitter) (*Stack, error) {
	if opts.Founder.IsZero() {
		return nil, fmt.Errorf("deploy: founder: %w", protocol.ErrZeroAddress)
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Symbol == "" {
		opts.Symbol = DefaultSymbol
	}

	v := opts.Verifier
	if v == nil {
		v = verifier.NewMock(true, emitter)
	}
	o := oracle.New(emitter)
	g := governance.New(opts.Founder, emitter)

	l, err := token.New(opts.Name, opts.Symbol, v, o, g, emitter)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if err := g.SetLedger(opts.Founder, l.Address()); err != nil {
		return nil, fmt.Errorf("deploy: bind ledger: %w", err)
	}

	ratio := opts.InitialRatio
	if ratio == nil {
		ratio = protocol.Kappa
	}
	if ratio.Sign() < 0 {
		return nil, fmt.Errorf("deploy: initial ratio: %w", protocol.ErrInvalidRatio)
	}
	if ratio.Sign() > 0 {
		if err := o.SetRatio(ratio); err != nil {
			return nil, fmt.Errorf("deploy: initial ratio: %w", err)
		}
	}

	return &Stack{Verifier: v, Oracle: o, Governance: g, Token: l}, nil
}

// AddressBook lists the deployed component handles.
type AddressBook struct {
	Verifier             protocol.Address `json:"Verifier"`
	ReserveOracle        protocol.Address `json:"ReserveOracle"`
	GovernanceController protocol.Address `json:"GovernanceController"`
	DepositToken         protocol.Address `json:"DepositToken"`
}

// AddressBook returns the current handles. The verifier entry follows
// SetVerifier.
func (s *Stack) AddressBook() AddressBook {
	return AddressBook{
		Verifier:             s.Token.Verifier().Address(),
		ReserveOracle:        s.Oracle.Address(),
		GovernanceController: s.Governance.Address(),
		DepositToken:         s.Token.Address(),
	}
}

// Mock returns the stack's verifier when it is the capability-flag Mock.
func (s *Stack) Mock() (*verifier.Mock, bool) {
	m, ok := s.Token.Verifier().(*verifier.Mock)
	return m, ok
}

// WriteAddressBook writes the address book to path as indented JSON.
func (s *Stack) WriteAddressBook(path string) error {
	data, err := json.MarshalIndent(s.AddressBook(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write address book: %w", err)
	}
	return nil
}

// ReadAddressBook loads a book written by WriteAddressBook.
func ReadAddressBook(path string) (AddressBook, error) {
	var book AddressBook
	data, err := os.ReadFile(path)
	if err != nil {
		return book, err
	}
	if err := json.Unmarshal(data, &book); err != nil {
		return book, fmt.Errorf("read address book %s: %w", path, err)
	}
	return book, nil
}
