// groth16.go - Proof envelopes, the prover and the Groth16 verifier.

package verifier

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/fxamacker/cbor/v2"

	"depositprotocol/internal/protocol"
)

// Envelope is the byte format handed to Verify: a serialized Groth16 proof
// and the public inputs it was produced for.
type Envelope struct {
	Proof      []byte `cbor:"1,keyasint"`
	Commitment []byte `cbor:"2,keyasint"`
	Holder     []byte `cbor:"3,keyasint"`
}

// EncodeEnvelope serializes env as CBOR.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return cbor.Marshal(env)
}

// DecodeEnvelope parses CBOR proof bytes.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode proof envelope: %w", err)
	}
	if len(env.Proof) == 0 || len(env.Commitment) == 0 || len(env.Holder) != protocol.AddressLength {
		return Envelope{}, fmt.Errorf("decode proof envelope: missing fields")
	}
	return env, nil
}

// Prover produces eligibility proofs for credentials.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
}

// NewProver wraps a compiled circuit and its proving key.
func NewProver(ccs constraint.ConstraintSystem, pk groth16.ProvingKey) *Prover {
	return &Prover{ccs: ccs, pk: pk}
}

// Setup compiles the circuit and runs an in-memory key setup.
func Setup() (*Prover, groth16.VerifyingKey, error) {
	ccs, err := Compile()
	if err != nil {
		return nil, nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return NewProver(ccs, pk), vk, nil
}

// SetupFromFiles is Setup with keys cached at pkPath and vkPath.
func SetupFromFiles(pkPath, vkPath string) (*Prover, groth16.VerifyingKey, error) {
	ccs, err := Compile()
	if err != nil {
		return nil, nil, err
	}
	pk, vk, err := SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		return nil, nil, err
	}
	return NewProver(ccs, pk), vk, nil
}

// Prove builds the proof envelope for cred.
func (p *Prover) Prove(cred *Credential) ([]byte, error) {
	assignment := &EligibilityCircuit{
		Commitment: new(big.Int).SetBytes(cred.Commitment),
		Holder:     holderInt(cred.Holder),
		Secret:     cred.Secret.BigInt(new(big.Int)),
	}
	w, err := frontend.NewWitness(assignment, Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return EncodeEnvelope(Envelope{
		Proof:      buf.Bytes(),
		Commitment: cred.Commitment,
		Holder:     cred.Holder.Bytes(),
	})
}

// Groth16 accepts proofs for commitments an issuer has attested.
type Groth16 struct {
	mu       sync.RWMutex
	address  protocol.Address
	vk       groth16.VerifyingKey
	attested map[string]struct{}
}

// NewGroth16 returns a verifier over vk with no attested commitments.
func NewGroth16(vk groth16.VerifyingKey) *Groth16 {
	return &Groth16{
		address:  protocol.RandomAddress(),
		vk:       vk,
		attested: make(map[string]struct{}),
	}
}

// Address returns the verifier's handle.
func (g *Groth16) Address() protocol.Address {
	return g.address
}

// Attest registers a credential commitment as eligible.
func (g *Groth16) Attest(commitment []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attested[hex.EncodeToString(commitment)] = struct{}{}
}

// Revoke removes a commitment; proofs against it stop verifying.
func (g *Groth16) Revoke(commitment []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attested, hex.EncodeToString(commitment))
}

// IsAttested reports whether commitment is registered.
func (g *Groth16) IsAttested(commitment []byte) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.attested[hex.EncodeToString(commitment)]
	return ok
}

// Verify decodes the envelope, checks the commitment is attested and runs
// Groth16 verification against the public inputs.
func (g *Groth16) Verify(proof []byte) bool {
	env, err := DecodeEnvelope(proof)
	if err != nil {
		return false
	}
	if !g.IsAttested(env.Commitment) {
		return false
	}

	var holder protocol.Address
	copy(holder[:], env.Holder)
	public := &EligibilityCircuit{
		Commitment: new(big.Int).SetBytes(env.Commitment),
		Holder:     holderInt(holder),
	}
	w, err := frontend.NewWitness(public, Curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}

	p := groth16.NewProof(Curve)
	if _, err := p.ReadFrom(bytes.NewReader(env.Proof)); err != nil {
		return false
	}
	return groth16.Verify(p, g.vk, w) == nil
}
