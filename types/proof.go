package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// Proof is the wire representation of a state transition proof: the raw
// Groth16 proof (A in G1, B in G2, C in G1) and the ordered public signals
// of the circuit that produced it.
type Proof struct {
	Circuit       CircuitID `json:"circuit" cbor:"1,keyasint"`
	Proof         HexBytes  `json:"proof" cbor:"2,keyasint"`
	PublicSignals []*BigInt `json:"publicSignals" cbor:"3,keyasint"`
}

// Signals returns the public signals as *big.Int values.
func (p *Proof) Signals() []*big.Int {
	return BigIntSlice(p.PublicSignals)
}

// Signal returns the public signal at index i.
func (p *Proof) Signal(i int) (*big.Int, error) {
	if i < 0 || i >= len(p.PublicSignals) || p.PublicSignals[i] == nil {
		return nil, fmt.Errorf("missing public signal %d", i)
	}
	return p.PublicSignals[i].MathBigInt(), nil
}

// Digest identifies the transition of the proof: the circuit and its public
// signals, each one length prefixed. The proof bytes are not part of it.
func (p *Proof) Digest() []byte {
	data := []byte(p.Circuit.String())
	for _, s := range p.Signals() {
		b := s.Bytes()
		data = append(data, byte(len(b)))
		data = append(data, b...)
	}
	return crypto.Keccak256(data)
}
