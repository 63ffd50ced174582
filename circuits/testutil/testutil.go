// Package testutil holds helpers shared by the tests of the games and the
// API.
package testutil

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

// GenerateAccount generates a new ECDSA account and returns the private key
// and its address.
func GenerateAccount() (*ecdsa.PrivateKey, common.Address, error) {
	privKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, common.Address{}, err
	}
	return privKey, crypto.PubkeyToAddress(privKey.PublicKey), nil
}

// UnprovenProof returns a proof carrying the public signals of the
// assignment and no Groth16 proof. It only passes a verifier that accepts
// every proof, such as AcceptAll.
func UnprovenProof(id types.CircuitID, assignment frontend.Circuit) (*types.Proof, error) {
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, fmt.Errorf("public witness of %s: %w", id, err)
	}
	signals, err := verifier.PublicSignals(w)
	if err != nil {
		return nil, err
	}
	return &types.Proof{
		Circuit:       id,
		PublicSignals: types.SliceFromBigInts(signals),
	}, nil
}

// AcceptAll is a verifier that accepts every proof of a known circuit.
type AcceptAll struct{}

// Verify implements session.Verifier.
func (AcceptAll) Verify(p *types.Proof) error {
	if !p.Circuit.Valid() {
		return fmt.Errorf("%w: unknown circuit", verifier.ErrProofVerificationFailed)
	}
	return nil
}
