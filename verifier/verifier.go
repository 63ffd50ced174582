// Package verifier checks state transition proofs against the verifying
// keys registered for each circuit. Proofs travel as the raw encoding of
// the three Groth16 group elements (A in G1, B in G2, C in G1) plus the
// ordered public signals.
package verifier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"

	"github.com/vocdoni/zkgames/types"
)

const (
	g1Size = bn254.SizeOfG1AffineUncompressed
	g2Size = bn254.SizeOfG2AffineUncompressed
	// ProofSize is the size of an encoded proof: A | B | C.
	ProofSize = 2*g1Size + g2Size
)

var (
	// ErrProofVerificationFailed is returned when a proof does not verify
	// against the registered key, including malformed proofs and public
	// signals that do not match the key.
	ErrProofVerificationFailed = errors.New("proof verification failed")
	// ErrKeyNotRegistered is returned when a circuit has no verifying key.
	ErrKeyNotRegistered = errors.New("verifying key not registered")
	// ErrKeyAlreadyRegistered is returned on a second registration of the
	// same circuit.
	ErrKeyAlreadyRegistered = errors.New("verifying key already registered")
)

// EncodeProof returns the raw A | B | C encoding of a BN254 Groth16 proof.
func EncodeProof(proof groth16.Proof) ([]byte, error) {
	p, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}
	if len(p.Commitments) > 0 {
		return nil, fmt.Errorf("proofs with commitments are not supported")
	}
	buf := make([]byte, 0, ProofSize)
	a := p.Ar.RawBytes()
	b := p.Bs.RawBytes()
	cc := p.Krs.RawBytes()
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	buf = append(buf, cc[:]...)
	return buf, nil
}

// DecodeProof parses the raw A | B | C encoding. Points are checked to be
// on the curve and in the right subgroup.
func DecodeProof(data []byte) (groth16.Proof, error) {
	if len(data) != ProofSize {
		return nil, fmt.Errorf("invalid proof size %d, expected %d", len(data), ProofSize)
	}
	p := new(groth16_bn254.Proof)
	if _, err := p.Ar.SetBytes(data[:g1Size]); err != nil {
		return nil, fmt.Errorf("invalid proof point A: %w", err)
	}
	if _, err := p.Bs.SetBytes(data[g1Size : g1Size+g2Size]); err != nil {
		return nil, fmt.Errorf("invalid proof point B: %w", err)
	}
	if _, err := p.Krs.SetBytes(data[g1Size+g2Size:]); err != nil {
		return nil, fmt.Errorf("invalid proof point C: %w", err)
	}
	return p, nil
}

// PublicSignals returns the public part of a witness as ordered signals.
func PublicSignals(w witness.Witness) ([]*big.Int, error) {
	public, err := w.Public()
	if err != nil {
		return nil, err
	}
	vector, ok := public.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", public.Vector())
	}
	signals := make([]*big.Int, len(vector))
	for i := range vector {
		signals[i] = vector[i].BigInt(new(big.Int))
	}
	return signals, nil
}

// PublicWitness builds a public witness from ordered signals. Every signal
// must be a canonical scalar field element.
func PublicWitness(signals []*big.Int) (witness.Witness, error) {
	field := ecc.BN254.ScalarField()
	values := make(chan any, len(signals))
	for i, s := range signals {
		if s == nil || s.Sign() < 0 || s.Cmp(field) >= 0 {
			close(values)
			return nil, fmt.Errorf("public signal %d is not a field element", i)
		}
		values <- s
	}
	close(values)
	w, err := witness.New(field)
	if err != nil {
		return nil, err
	}
	if err := w.Fill(len(signals), 0, values); err != nil {
		return nil, err
	}
	return w, nil
}

// VerifyProof verifies p against vk. The number of public signals must
// match the key.
func VerifyProof(vk groth16.VerifyingKey, p *types.Proof) error {
	if p == nil {
		return fmt.Errorf("%w: nil proof", ErrProofVerificationFailed)
	}
	if n := vk.NbPublicWitness(); len(p.PublicSignals) != n {
		return fmt.Errorf("%w: expected %d public signals, got %d",
			ErrProofVerificationFailed, n, len(p.PublicSignals))
	}
	proof, err := DecodeProof(p.Proof)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	publicWitness, err := PublicWitness(p.Signals())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	return nil
}
