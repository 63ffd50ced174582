// Package randomness implements the commit-reveal protocol that gives both
// participants of a session a shared seed none of them could bias alone.
// Every value derived from the shared seed is a pure function of the seed
// and public counters.
package randomness

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/util"
)

// MaxSeedSize is the largest seed accepted on reveal.
const MaxSeedSize = 64

var (
	ErrAlreadyCommitted = errors.New("seed already committed")
	ErrNotCommitted     = errors.New("seed not committed")
	ErrAlreadyRevealed  = errors.New("seed already revealed")
	ErrNotRevealed      = errors.New("seed not revealed")
	ErrSeedMismatch     = errors.New("seed does not match its commitment")
	ErrInvalidSeed      = errors.New("invalid seed")
)

// SeedState is the lifecycle state of a participant seed.
type SeedState uint8

const (
	Uncommitted SeedState = iota
	Committed
	Revealed
)

func (s SeedState) String() string {
	switch s {
	case Uncommitted:
		return "uncommitted"
	case Committed:
		return "committed"
	case Revealed:
		return "revealed"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Seed holds the commitment and, once revealed, the value of a participant
// seed.
type Seed struct {
	State SeedState      `json:"state" cbor:"0,keyasint"`
	Hash  types.HexBytes `json:"hash,omitempty" cbor:"1,keyasint,omitempty"`
	Value types.HexBytes `json:"value,omitempty" cbor:"2,keyasint,omitempty"`
}

// HashSeed returns the commitment of a seed.
func HashSeed(seed []byte) []byte {
	h := sha256.Sum256(seed)
	return h[:]
}

// Commit stores the seed commitment. It can only be called once.
func (s *Seed) Commit(hash []byte) error {
	if s.State != Uncommitted {
		return ErrAlreadyCommitted
	}
	if len(hash) != sha256.Size {
		return fmt.Errorf("%w: commitment must be %d bytes", ErrInvalidSeed, sha256.Size)
	}
	s.Hash = bytes.Clone(hash)
	s.State = Committed
	return nil
}

// Reveal checks the seed against the stored commitment and stores it.
func (s *Seed) Reveal(seed []byte) error {
	switch s.State {
	case Uncommitted:
		return ErrNotCommitted
	case Revealed:
		return ErrAlreadyRevealed
	}
	if len(seed) == 0 || len(seed) > MaxSeedSize {
		return fmt.Errorf("%w: size %d", ErrInvalidSeed, len(seed))
	}
	if !bytes.Equal(HashSeed(seed), s.Hash) {
		return ErrSeedMismatch
	}
	s.Value = bytes.Clone(seed)
	s.State = Revealed
	return nil
}

// SharedSeed combines the revealed seeds in slot order. Every seed is
// prefixed with its length, so different splits of the same bytes give
// different shared seeds. The result does not depend on the order the seeds
// were revealed in.
func SharedSeed(seeds ...*Seed) ([]byte, error) {
	if len(seeds) == 0 {
		return nil, ErrNotRevealed
	}
	h := sha256.New()
	for i, s := range seeds {
		if s == nil || s.State != Revealed {
			return nil, fmt.Errorf("%w: slot %d", ErrNotRevealed, i)
		}
		h.Write([]byte{byte(len(s.Value))})
		h.Write(s.Value)
	}
	return h.Sum(nil), nil
}

// StartingSlot returns the slot (0 or 1) that acts first, given by the
// parity of the last byte of the hashed shared seed.
func StartingSlot(shared []byte) int {
	h := sha256.Sum256(shared)
	return int(h[len(h)-1] % 2)
}

// Derive returns a field element derived from the shared seed, a domain
// separator and a public counter.
func Derive(shared []byte, domain string, counter uint64) *big.Int {
	d := sha256.Sum256([]byte(domain))
	out, err := poseidon.Hash([]*big.Int{
		util.BigToFF(new(big.Int).SetBytes(shared)),
		util.BigToFF(new(big.Int).SetBytes(d[:])),
		new(big.Int).SetUint64(counter),
	})
	if err != nil {
		// inputs are always reduced into the field
		panic(fmt.Sprintf("poseidon: %v", err))
	}
	return out
}

// Intn returns a derived integer in [0, n).
func Intn(shared []byte, domain string, counter uint64, n int) int {
	if n <= 0 {
		panic("randomness: invalid argument to Intn")
	}
	r := Derive(shared, domain, counter)
	return int(r.Mod(r, big.NewInt(int64(n))).Int64())
}

// Permutation returns a Fisher-Yates permutation of [0, n) derived from the
// shared seed and domain.
func Permutation(shared []byte, domain string, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := Intn(shared, domain, uint64(i), i+1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}
