package collect

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

func testItems() []Item {
	return []Item{
		{ID: 0, Type: circuits.ItemHealth, Position: [3]int64{10, 10, 10}},
		{ID: 3, Type: circuits.ItemShield, Position: [3]int64{50, 50, 50}},
		{ID: 7, Type: circuits.ItemAmmo, Position: [3]int64{100, 100, 100}},
		{ID: 9, Type: circuits.ItemWeapon, Position: [3]int64{500, 0, 500}},
	}
}

func pickup(itemID, health int64, position [3]int64) *Inputs {
	return &Inputs{
		Position:      position,
		PositionSalt:  commitment.NewSalt(),
		OldHealth:     health,
		OldHealthSalt: commitment.NewSalt(),
		NewHealthSalt: commitment.NewSalt(),
		Items:         testItems(),
		ItemID:        itemID,
		PickupRadius:  5,
	}
}

func TestCollectProof(t *testing.T) {
	c := qt.New(t)
	assignment, err := pickup(7, 80, [3]int64{103, 104, 100}).Witness()
	c.Assert(err, qt.IsNil)

	assert := test.NewAssert(t)
	assert.ProverSucceeded(CircuitPlaceholder(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestCollectHealthEffects(t *testing.T) {
	c := qt.New(t)
	field := ecc.BN254.ScalarField()
	for _, tc := range []struct {
		item, health, expected int64
		position               [3]int64
	}{
		{item: 0, health: 50, expected: 75, position: [3]int64{10, 10, 10}},
		{item: 0, health: 90, expected: 100, position: [3]int64{10, 10, 10}},
		{item: 0, health: 130, expected: 130, position: [3]int64{10, 10, 10}},
		{item: 3, health: 90, expected: 140, position: [3]int64{50, 50, 50}},
		{item: 3, health: 120, expected: 150, position: [3]int64{50, 50, 50}},
		{item: 7, health: 20, expected: 20, position: [3]int64{100, 100, 100}},
		{item: 9, health: 20, expected: 20, position: [3]int64{500, 0, 500}},
	} {
		in := pickup(tc.item, tc.health, tc.position)
		assignment, err := in.Witness()
		c.Assert(err, qt.IsNil)
		c.Assert(assignment.NewHealth, qt.Equals, tc.expected, qt.Commentf("item %d", tc.item))
		c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNil, qt.Commentf("item %d", tc.item))
	}
}

func TestCollectRejected(t *testing.T) {
	c := qt.New(t)
	field := ecc.BN254.ScalarField()

	// out of reach, one unit beyond the inclusive radius
	_, err := pickup(7, 80, [3]int64{106, 100, 100}).Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)
	_, err = pickup(7, 80, [3]int64{105, 100, 100}).Witness()
	c.Assert(err, qt.IsNil)

	// item not spawned
	_, err = pickup(5, 80, [3]int64{0, 0, 0}).Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)

	// lying about the item type
	in := pickup(7, 80, [3]int64{100, 100, 100})
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	assignment.ItemType = circuits.ItemHealth
	assignment.NewHealth = 100
	assignment.NewHealthCommitment = commitment.CommitInts(in.NewHealthSalt, 100)
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNotNil)

	// claiming more health than the item gives
	in = pickup(0, 50, [3]int64{10, 10, 10})
	assignment, err = in.Witness()
	c.Assert(err, qt.IsNil)
	assignment.NewHealth = 100
	assignment.NewHealthCommitment = commitment.CommitInts(in.NewHealthSalt, 100)
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNotNil)
}

func TestItemsTree(t *testing.T) {
	c := qt.New(t)
	tree, err := ItemsTree(testItems())
	c.Assert(err, qt.IsNil)
	leaf, err := tree.Leaf(7)
	c.Assert(err, qt.IsNil)
	c.Assert(leaf.Cmp(testItems()[2].Leaf()), qt.Equals, 0)
	empty, err := tree.Leaf(8)
	c.Assert(err, qt.IsNil)
	c.Assert(empty.Cmp(big.NewInt(0)), qt.Equals, 0)

	_, err = ItemsTree(append(testItems(), Item{ID: 7}))
	c.Assert(err, qt.IsNotNil)
	_, err = ItemsTree([]Item{{ID: 16}})
	c.Assert(err, qt.IsNotNil)
}
