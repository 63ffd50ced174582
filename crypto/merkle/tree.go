// Package merkle implements fixed-depth binary Merkle trees hashed with the
// same MiMC used by the circuits. Trees are stored as an arena of levels
// addressed by index, and proofs expose explicit sibling and direction
// arrays, which is the layout the in-circuit verifier consumes.
package merkle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/zkgames/crypto/commitment"
)

// ErrIndexOutOfRange is returned when a leaf index is outside the tree.
var ErrIndexOutOfRange = errors.New("leaf index out of range")

// Tree is a fixed-depth binary Merkle tree. levels[0] holds the leaves and
// levels[depth] the root.
type Tree struct {
	depth  int
	levels [][]*big.Int
}

// Proof is an inclusion proof of a leaf. Directions[i] is 0 when the node at
// level i is a left child and 1 when it is a right child, so the directions
// are the little-endian bits of the leaf index.
type Proof struct {
	Leaf       *big.Int
	Index      int
	Siblings   []*big.Int
	Directions []uint8
}

// HashNode returns the parent of two nodes.
func HashNode(left, right *big.Int) *big.Int {
	return commitment.Hash(left, right)
}

// New builds a tree of the given depth. Missing leaves are padded with
// zero.
func New(depth int, leaves []*big.Int) (*Tree, error) {
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("invalid tree depth %d", depth)
	}
	size := 1 << depth
	if len(leaves) > size {
		return nil, fmt.Errorf("too many leaves: %d > %d", len(leaves), size)
	}
	level := make([]*big.Int, size)
	for i := range level {
		if i < len(leaves) && leaves[i] != nil {
			level[i] = new(big.Int).Set(leaves[i])
		} else {
			level[i] = new(big.Int)
		}
	}
	t := &Tree{depth: depth, levels: [][]*big.Int{level}}
	for d := 0; d < depth; d++ {
		prev := t.levels[d]
		up := make([]*big.Int, len(prev)/2)
		for i := range up {
			up[i] = HashNode(prev[2*i], prev[2*i+1])
		}
		t.levels = append(t.levels, up)
	}
	return t, nil
}

// Depth returns the depth of the tree.
func (t *Tree) Depth() int {
	return t.depth
}

// Size returns the number of leaves of the tree.
func (t *Tree) Size() int {
	return len(t.levels[0])
}

// Root returns the root of the tree.
func (t *Tree) Root() *big.Int {
	return new(big.Int).Set(t.levels[t.depth][0])
}

// Leaf returns the leaf at the given index.
func (t *Tree) Leaf(index int) (*big.Int, error) {
	if index < 0 || index >= t.Size() {
		return nil, ErrIndexOutOfRange
	}
	return new(big.Int).Set(t.levels[0][index]), nil
}

// Proof returns the inclusion proof of the leaf at the given index.
func (t *Tree) Proof(index int) (*Proof, error) {
	if index < 0 || index >= t.Size() {
		return nil, ErrIndexOutOfRange
	}
	p := &Proof{
		Leaf:       new(big.Int).Set(t.levels[0][index]),
		Index:      index,
		Siblings:   make([]*big.Int, t.depth),
		Directions: make([]uint8, t.depth),
	}
	idx := index
	for d := 0; d < t.depth; d++ {
		p.Siblings[d] = new(big.Int).Set(t.levels[d][idx^1])
		p.Directions[d] = uint8(idx & 1)
		idx >>= 1
	}
	return p, nil
}

// ComputeRoot recomputes the root from the proof path.
func (p *Proof) ComputeRoot() *big.Int {
	node := p.Leaf
	for d, sibling := range p.Siblings {
		if p.Directions[d] == 0 {
			node = HashNode(node, sibling)
		} else {
			node = HashNode(sibling, node)
		}
	}
	return node
}

// Verify recomputes the root and compares it with the expected one. It also
// checks that the directions encode the claimed index.
func (p *Proof) Verify(root *big.Int) bool {
	if p == nil || p.Leaf == nil || root == nil || len(p.Siblings) != len(p.Directions) {
		return false
	}
	index := 0
	for d, dir := range p.Directions {
		if dir > 1 {
			return false
		}
		index |= int(dir) << d
	}
	if index != p.Index {
		return false
	}
	return p.ComputeRoot().Cmp(root) == 0
}
