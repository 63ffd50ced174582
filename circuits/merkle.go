package circuits

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/crypto/merkle"
)

// VerifyMerklePath returns 1 if the leaf is included in the root through the
// siblings and directions provided. A direction 0 means the node is the left
// child at that level.
func VerifyMerklePath(api frontend.API, root, leaf frontend.Variable, siblings, directions []frontend.Variable) (frontend.Variable, error) {
	node := leaf
	for i := range siblings {
		api.AssertIsBoolean(directions[i])
		left := api.Select(directions[i], siblings[i], node)
		right := api.Select(directions[i], node, siblings[i])
		var err error
		if node, err = Hash(api, left, right); err != nil {
			return nil, err
		}
	}
	return IsEqual(api, node, root), nil
}

// VerifyMerkleIndex returns 1 if the leaf is included in the root at the
// index provided. The directions are the bits of the index.
func VerifyMerkleIndex(api frontend.API, root, leaf, index frontend.Variable, siblings []frontend.Variable) (frontend.Variable, error) {
	return VerifyMerklePath(api, root, leaf, siblings, api.ToBinary(index, len(siblings)))
}

// MerkleSiblings returns the siblings of a native proof as circuit
// variables, padded to depth.
func MerkleSiblings(proof *merkle.Proof, depth int) []frontend.Variable {
	siblings := make([]frontend.Variable, depth)
	for i := range siblings {
		if i < len(proof.Siblings) {
			siblings[i] = new(big.Int).Set(proof.Siblings[i])
		} else {
			siblings[i] = 0
		}
	}
	return siblings
}
