// Package commitment implements the binding and hiding commitments used to
// keep per-player game state private. A commitment is the MiMC hash over the
// BN254 scalar field of the committed values followed by a random salt. The
// very same hash is recomputed inside the circuits with gnark's std MiMC
// gadget, so commitments computed here can be opened in zero knowledge.
package commitment

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/vocdoni/zkgames/util"
)

// SaltSize is the size in bytes of the salts generated by NewSalt. With 31
// bytes a salt is always a canonical field element.
const SaltSize = 31

// Hash returns the MiMC hash of the given values, each one reduced into the
// scalar field and written as a 32-byte big-endian block.
func Hash(values ...*big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	for _, v := range values {
		if _, err := h.Write(FieldBytes(v)); err != nil {
			// FieldBytes always returns a canonical block
			panic(err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// Commit returns the commitment to values with the given salt, that is,
// Hash(values..., salt). Callers must use a fresh salt for every commitment.
func Commit(values []*big.Int, salt *big.Int) *big.Int {
	return Hash(append(append([]*big.Int{}, values...), salt)...)
}

// CommitInts is a helper of Commit for small integer values.
func CommitInts(salt *big.Int, values ...int64) *big.Int {
	return Commit(Ints(values...), salt)
}

// NewSalt returns a random salt suitable for a commitment.
func NewSalt() *big.Int {
	return new(big.Int).SetBytes(util.RandomBytes(SaltSize))
}

// FieldBytes returns the 32-byte big-endian representation of v reduced into
// the BN254 scalar field.
func FieldBytes(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	var e fr.Element
	e.SetBigInt(util.BigToFF(v))
	b := e.Bytes()
	return b[:]
}

// Ints converts a list of integers into field values.
func Ints(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

// Opening holds the values and the salt of a commitment. It is the private
// witness a participant keeps for every hidden state field.
type Opening struct {
	Values []*big.Int
	Salt   *big.Int
}

// NewOpening returns an opening for the given values with a fresh salt.
func NewOpening(values ...*big.Int) *Opening {
	return &Opening{Values: values, Salt: NewSalt()}
}

// Commitment computes the commitment of the opening.
func (o *Opening) Commitment() *big.Int {
	return Commit(o.Values, o.Salt)
}

// Verify reports whether the opening matches the given commitment.
func (o *Opening) Verify(c *big.Int) bool {
	if o == nil || o.Salt == nil || c == nil {
		return false
	}
	return o.Commitment().Cmp(util.BigToFF(c)) == 0
}
