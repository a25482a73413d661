// Package store persists a deployed stack as a single JSON snapshot.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"depositprotocol/internal/deploy"
	"depositprotocol/internal/governance"
	"depositprotocol/internal/protocol"
	"depositprotocol/internal/token"
)

// Version of the snapshot layout.
const Version = 1

// OracleState is the persisted reserve oracle.
type OracleState struct {
	Address protocol.Address `json:"address"`
	Ratio   *big.Int         `json:"ratio"`
}

// VerifierState is the persisted verifier binding. Valid is only set for
// the capability-flag Mock; other verifiers keep their own state.
type VerifierState struct {
	Address protocol.Address `json:"address"`
	Valid   *bool            `json:"valid,omitempty"`
}

// Snapshot is the full accounting and control state of a stack.
type Snapshot struct {
	Version    int              `json:"version"`
	SavedAt    time.Time        `json:"saved_at"`
	Token      token.State      `json:"token"`
	Oracle     OracleState      `json:"oracle"`
	Governance governance.State `json:"governance"`
	Verifier   VerifierState    `json:"verifier"`
}

// Capture reads every component of s. Each component is read under its own
// lock, so callers that need a cross-component consistent view must stop
// writers first.
func Capture(s *deploy.Stack) *Snapshot {
	snap := &Snapshot{
		Version:    Version,
		SavedAt:    time.Now().UTC(),
		Token:      s.Token.State(),
		Oracle:     OracleState{Address: s.Oracle.Address(), Ratio: s.Oracle.Ratio()},
		Governance: s.Governance.State(),
		Verifier:   VerifierState{Address: s.Token.Verifier().Address()},
	}
	if m, ok := s.Mock(); ok {
		valid := m.Valid()
		snap.Verifier.Valid = &valid
	}
	return snap
}

// Validate checks the snapshot's internal consistency.
func (snap *Snapshot) Validate() error {
	if snap.Version != Version {
		return fmt.Errorf("snapshot: unsupported version %d", snap.Version)
	}
	if snap.Governance.Governor.IsZero() {
		return fmt.Errorf("snapshot: governor: %w", protocol.ErrZeroAddress)
	}
	if snap.Governance.Ledger != snap.Token.Address {
		return fmt.Errorf("snapshot: governance bound to %s, token is %s", snap.Governance.Ledger, snap.Token.Address)
	}
	if snap.Oracle.Ratio != nil && snap.Oracle.Ratio.Sign() < 0 {
		return fmt.Errorf("snapshot: %w", protocol.ErrInvalidRatio)
	}
	return nil
}

// Apply restores snap into s. The token is restored first since it carries
// the only check that can fail; on error s is left untouched.
func (snap *Snapshot) Apply(s *deploy.Stack) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := s.Token.Restore(snap.Token); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	s.Oracle.Restore(snap.Oracle.Address, snap.Oracle.Ratio)
	s.Governance.Restore(snap.Governance)
	if m, ok := s.Mock(); ok && snap.Verifier.Valid != nil {
		m.Restore(snap.Verifier.Address, *snap.Verifier.Valid)
	}
	return nil
}

// SaveToFile writes the snapshot as indented JSON. The file is replaced
// atomically.
func (snap *Snapshot) SaveToFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ErrNoSnapshot is returned by LoadFromFile when path does not exist.
var ErrNoSnapshot = errors.New("no snapshot")

// LoadFromFile reads a snapshot written by SaveToFile.
func LoadFromFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
