// circuit.go - Eligibility circuit and its native counterpart.
//
// A credential is a field-element secret s bound to a holder address h by the
// commitment cm = MiMC(s, h). The circuit proves knowledge of s for public
// (cm, h) without revealing it.

package verifier

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"

	"depositprotocol/internal/protocol"
)

// Curve is the proving curve for eligibility proofs.
var Curve = ecc.BN254

// EligibilityCircuit proves cm == MiMC(secret, holder).
type EligibilityCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Holder     frontend.Variable `gnark:",public"`

	Secret frontend.Variable
}

// Define implements frontend.Circuit.
func (c *EligibilityCircuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hasher.Write(c.Secret, c.Holder)
	api.AssertIsEqual(c.Commitment, hasher.Sum())
	return nil
}

// Compile builds the constraint system for EligibilityCircuit.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit EligibilityCircuit
	ccs, err := frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("compile eligibility circuit: %w", err)
	}
	return ccs, nil
}

// Credential is the holder-side secret material for one attestation.
type Credential struct {
	Holder     protocol.Address
	Secret     fr.Element
	Commitment []byte
}

// NewCredential draws a random secret for holder and computes its commitment.
func NewCredential(holder protocol.Address) (*Credential, error) {
	var secret fr.Element
	if _, err := secret.SetRandom(); err != nil {
		return nil, fmt.Errorf("draw credential secret: %w", err)
	}
	return &Credential{
		Holder:     holder,
		Secret:     secret,
		Commitment: Commit(secret, holder),
	}, nil
}

// Commit computes MiMC(secret, holder) natively, matching the circuit.
func Commit(secret fr.Element, holder protocol.Address) []byte {
	h := holderElement(holder)
	sb := secret.Bytes()
	hb := h.Bytes()

	hasher := mimcNative.NewMiMC()
	hasher.Write(sb[:])
	hasher.Write(hb[:])
	return hasher.Sum(nil)
}

func holderElement(holder protocol.Address) fr.Element {
	var e fr.Element
	e.SetBytes(holder[:])
	return e
}

func holderInt(holder protocol.Address) *big.Int {
	return new(big.Int).SetBytes(holder[:])
}
