// Package state keeps the set of consumed one-time identifiers of a session
// (collected items, drawn deck leaves) in an arbo sparse Merkle tree, so the
// session can expose a single root and inclusion proofs for it.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	// MaxLevels is the depth of the consumed identifier tree.
	MaxLevels = 64
	// MaxKeyLen is ceil(MaxLevels/8)
	MaxKeyLen = (MaxLevels + 7) / 8
	// maxID is the largest identifier that fits in a key.
	maxID = 1<<48 - 1
)

// hashFunc is the hash function used in the tree.
var hashFunc = arbo.HashMiMC_BN254{}

// consumedValue is the leaf value of every consumed identifier.
var consumedValue = []byte{1}

// ErrConsumed is returned when an identifier is consumed twice.
var ErrConsumed = errors.New("identifier already consumed")

// Kind is the namespace of a consumed identifier.
type Kind uint8

const (
	// KindItem is an arena item id, shared by both participants.
	KindItem Kind = iota + 1
	// KindDeckLeaf is a deck leaf index of a participant.
	KindDeckLeaf
	// KindCard is a card nullifier of a participant, truncated to the
	// identifier size.
	KindCard
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindDeckLeaf:
		return "deck"
	case KindCard:
		return "card"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind returns the kind of a name returned by String.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{KindItem, KindDeckLeaf, KindCard} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown identifier kind %q", name)
}

// Key builds the tree key of an identifier: kind, participant slot and the
// identifier as a 48 bit little-endian integer.
func Key(kind Kind, slot int, id uint64) ([]byte, error) {
	if slot < 0 || slot > 0xff {
		return nil, fmt.Errorf("invalid slot %d", slot)
	}
	if id > maxID {
		return nil, fmt.Errorf("identifier %d too large", id)
	}
	key := make([]byte, MaxKeyLen)
	binary.LittleEndian.PutUint64(key, id<<16)
	key[0] = byte(kind)
	key[1] = byte(slot)
	return key, nil
}

// ConsumedSet is the consumed identifier tree of a session.
type ConsumedSet struct {
	tree   *arbo.Tree
	prefix []byte
}

// Open creates or opens the consumed set stored in database under prefix.
func Open(database db.Database, prefix []byte) (*ConsumedSet, error) {
	pdb := prefixeddb.NewPrefixedDatabase(database, prefix)
	tree, err := arbo.NewTree(arbo.Config{
		Database: pdb, MaxLevels: MaxLevels,
		HashFunction: hashFunc,
	})
	if err != nil {
		return nil, err
	}
	return &ConsumedSet{
		tree:   tree,
		prefix: prefix,
	}, nil
}

// Has reports whether key was consumed.
func (c *ConsumedSet) Has(key []byte) (bool, error) {
	if _, _, err := c.tree.Get(key); err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Consume adds keys to the set and commits them.
func (c *ConsumedSet) Consume(keys ...[]byte) error {
	for _, k := range keys {
		if err := c.check(k); err != nil {
			return err
		}
		if err := c.tree.Add(k, consumedValue); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeWithTx adds keys to the set through wTx, a write transaction over
// the root database (not prefixed). Nothing is visible until wTx is
// committed. It returns the new root.
func (c *ConsumedSet) ConsumeWithTx(wTx db.WriteTx, keys ...[]byte) (*big.Int, error) {
	ptx := prefixeddb.NewPrefixedWriteTx(wTx, c.prefix)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[string(k)] {
			return nil, fmt.Errorf("%w: %x", ErrConsumed, k)
		}
		seen[string(k)] = true
		if err := c.check(k); err != nil {
			return nil, err
		}
		if err := c.tree.AddWithTx(ptx, k, consumedValue); err != nil {
			return nil, err
		}
	}
	root, err := c.tree.RootWithTx(ptx)
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

func (c *ConsumedSet) check(key []byte) error {
	consumed, err := c.Has(key)
	if err != nil {
		return err
	}
	if consumed {
		return fmt.Errorf("%w: %x", ErrConsumed, key)
	}
	return nil
}

// Root returns the root of the set.
func (c *ConsumedSet) Root() (*big.Int, error) {
	root, err := c.tree.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// Count returns the number of consumed identifiers.
func (c *ConsumedSet) Count() (int, error) {
	return c.tree.GetNLeafs()
}

// Proof is an inclusion (or non inclusion) proof of an identifier.
type Proof struct {
	Root      []byte `json:"root"`
	Key       []byte `json:"key"`
	Value     []byte `json:"value"`
	Siblings  []byte `json:"siblings"`
	Existence bool   `json:"existence"`
}

// GenProof returns the proof of key against the current root.
func (c *ConsumedSet) GenProof(key []byte) (*Proof, error) {
	root, err := c.tree.Root()
	if err != nil {
		return nil, err
	}
	leafK, leafV, packedSiblings, existence, err := c.tree.GenProof(key)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Root:      root,
		Key:       leafK,
		Value:     leafV,
		Siblings:  packedSiblings,
		Existence: existence,
	}, nil
}

// VerifyProof checks that p proves the inclusion of its key.
func VerifyProof(p *Proof) bool {
	if p == nil || !p.Existence {
		return false
	}
	valid, err := arbo.CheckProof(hashFunc, p.Key, p.Value, p.Root, p.Siblings)
	if err != nil {
		return false
	}
	return valid
}
