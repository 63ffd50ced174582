// Package collect implements the circuit that picks up an arena item. The
// item must be a leaf of the public items tree at the index given by its id,
// the player must stand within the pickup radius, and health packs and
// shields update the committed health.
package collect

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
	"github.com/vocdoni/zkgames/crypto/merkle"
)

const distanceBits = 2*circuits.CoordBits + 2

type Circuit struct {
	PositionCommitment  frontend.Variable `gnark:",public"`
	OldHealthCommitment frontend.Variable `gnark:",public"`
	NewHealthCommitment frontend.Variable `gnark:",public"`
	ItemsRoot           frontend.Variable `gnark:",public"`
	ItemID              frontend.Variable `gnark:",public"`
	ItemType            frontend.Variable `gnark:",public"`
	PickupRadius        frontend.Variable `gnark:",public"`

	Position      [3]frontend.Variable
	PositionSalt  frontend.Variable
	OldHealth     frontend.Variable
	OldHealthSalt frontend.Variable
	NewHealth     frontend.Variable
	NewHealthSalt frontend.Variable
	ItemPosition  [3]frontend.Variable
	ItemSiblings  [circuits.ItemsDepth]frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	if err := c.checkOpenings(api, v); err != nil {
		return err
	}
	if err := c.checkItem(api, v); err != nil {
		return err
	}
	c.checkHealth(api, v)
	updated, err := circuits.Commit(api, c.NewHealthSalt, c.NewHealth)
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewHealthCommitment)
	v.Assert()
	return nil
}

func (c *Circuit) checkOpenings(api frontend.API, v *circuits.Validity) error {
	position, err := circuits.Commit(api, c.PositionSalt, c.Position[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(position, c.PositionCommitment)
	health, err := circuits.Commit(api, c.OldHealthSalt, c.OldHealth)
	if err != nil {
		return err
	}
	v.AndEqual(health, c.OldHealthCommitment)
	return nil
}

func (c *Circuit) checkItem(api frontend.API, v *circuits.Validity) error {
	leaf, err := circuits.Hash(api, c.ItemID, c.ItemType,
		c.ItemPosition[0], c.ItemPosition[1], c.ItemPosition[2])
	if err != nil {
		return err
	}
	included, err := circuits.VerifyMerkleIndex(api, c.ItemsRoot, leaf, c.ItemID, c.ItemSiblings[:])
	if err != nil {
		return err
	}
	v.And(included)
	v.And(circuits.LessThan(api, c.ItemType, circuits.NumItemTypes, circuits.StatBits))
	for i := range c.Position {
		v.And(circuits.RangeCheck(api, c.Position[i], 0, circuits.ArenaSize, circuits.CoordBits))
		v.And(circuits.RangeCheck(api, c.ItemPosition[i], 0, circuits.ArenaSize, circuits.CoordBits))
	}
	v.And(circuits.LessOrEqual(api, c.PickupRadius, circuits.ArenaSize, circuits.CoordBits))
	dist := circuits.SquaredDistance(api, c.Position[:], c.ItemPosition[:])
	v.And(circuits.LessOrEqual(api, dist, api.Mul(c.PickupRadius, c.PickupRadius), distanceBits))
	return nil
}

// checkHealth applies the health effect of the item. Health packs and
// shields raise the health up to their cap, a health already over the cap
// is kept, any other item leaves it unchanged.
func (c *Circuit) checkHealth(api frontend.API, v *circuits.Validity) {
	v.And(circuits.RangeCheck(api, c.OldHealth, 1, circuits.MaxShieldedHealth, circuits.StatBits))
	isHealth := circuits.IsEqual(api, c.ItemType, circuits.ItemHealth)
	isShield := circuits.IsEqual(api, c.ItemType, circuits.ItemShield)
	bonus := api.Add(api.Mul(isHealth, circuits.HealthPackBonus), api.Mul(isShield, circuits.ShieldBonus))
	limit := api.Add(api.Mul(isHealth, circuits.MaxHealth), api.Mul(isShield, circuits.MaxShieldedHealth))
	raised := circuits.Min(api, api.Add(c.OldHealth, bonus), limit, circuits.StatBits)
	overCap := circuits.LessOrEqual(api, limit, c.OldHealth, circuits.StatBits)
	healed := api.Select(overCap, c.OldHealth, raised)
	expected := api.Select(api.Add(isHealth, isShield), healed, c.OldHealth)
	v.AndEqual(c.NewHealth, expected)
}

// Item is an arena item: a leaf of the items tree at index ID.
type Item struct {
	ID       int64    `json:"id" cbor:"0,keyasint"`
	Type     int64    `json:"type" cbor:"1,keyasint"`
	Position [3]int64 `json:"position" cbor:"2,keyasint"`
}

// Leaf returns the items tree leaf of the item.
func (it Item) Leaf() *big.Int {
	return commitment.Hash(commitment.Ints(it.ID, it.Type, it.Position[0], it.Position[1], it.Position[2])...)
}

// ItemsTree builds the items tree. Every item is placed at the index of its
// id, missing items are zero leaves.
func ItemsTree(items []Item) (*merkle.Tree, error) {
	leaves := make([]*big.Int, 1<<circuits.ItemsDepth)
	for _, it := range items {
		if it.ID < 0 || it.ID >= int64(len(leaves)) {
			return nil, fmt.Errorf("item id %d out of range", it.ID)
		}
		if leaves[it.ID] != nil {
			return nil, fmt.Errorf("duplicated item id %d", it.ID)
		}
		leaves[it.ID] = it.Leaf()
	}
	return merkle.New(circuits.ItemsDepth, leaves)
}

// ApplyItem returns the health after collecting an item of the given type.
func ApplyItem(health, itemType int64) int64 {
	var bonus, limit int64
	switch itemType {
	case circuits.ItemHealth:
		bonus, limit = circuits.HealthPackBonus, circuits.MaxHealth
	case circuits.ItemShield:
		bonus, limit = circuits.ShieldBonus, circuits.MaxShieldedHealth
	default:
		return health
	}
	if health >= limit {
		return health
	}
	return min(health+bonus, limit)
}

// Inputs are the native inputs of an item pickup.
type Inputs struct {
	Position      [3]int64
	PositionSalt  *big.Int
	OldHealth     int64
	OldHealthSalt *big.Int
	NewHealthSalt *big.Int
	Items         []Item
	ItemID        int64
	PickupRadius  int64
}

// Witness checks the pickup natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.PositionSalt == nil || in.OldHealthSalt == nil || in.NewHealthSalt == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	var item *Item
	for i := range in.Items {
		if in.Items[i].ID == in.ItemID {
			item = &in.Items[i]
		}
	}
	if item == nil {
		return nil, circuits.Unsatisfiable("item %d not in the items tree", in.ItemID)
	}
	if item.Type < 0 || item.Type >= circuits.NumItemTypes {
		return nil, circuits.Unsatisfiable("invalid item type %d", item.Type)
	}
	if !circuits.InRange(in.OldHealth, 1, circuits.MaxShieldedHealth) {
		return nil, circuits.Unsatisfiable("invalid health %d", in.OldHealth)
	}
	if !circuits.InRange(in.PickupRadius, 0, circuits.ArenaSize) {
		return nil, circuits.Unsatisfiable("invalid pickup radius %d", in.PickupRadius)
	}
	for i := range in.Position {
		if !circuits.InRange(in.Position[i], 0, circuits.ArenaSize) ||
			!circuits.InRange(item.Position[i], 0, circuits.ArenaSize) {
			return nil, circuits.Unsatisfiable("coordinate out of the arena")
		}
	}
	if circuits.SquaredDistanceInt(in.Position, item.Position) > in.PickupRadius*in.PickupRadius {
		return nil, circuits.Unsatisfiable("item %d out of reach", in.ItemID)
	}
	tree, err := ItemsTree(in.Items)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	proof, err := tree.Proof(int(in.ItemID))
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	newHealth := ApplyItem(in.OldHealth, item.Type)
	assignment := &Circuit{
		PositionCommitment:  commitment.CommitInts(in.PositionSalt, in.Position[:]...),
		OldHealthCommitment: commitment.CommitInts(in.OldHealthSalt, in.OldHealth),
		NewHealthCommitment: commitment.CommitInts(in.NewHealthSalt, newHealth),
		ItemsRoot:           tree.Root(),
		ItemID:              item.ID,
		ItemType:            item.Type,
		PickupRadius:        in.PickupRadius,
		Position:            [3]frontend.Variable{in.Position[0], in.Position[1], in.Position[2]},
		PositionSalt:        in.PositionSalt,
		OldHealth:           in.OldHealth,
		OldHealthSalt:       in.OldHealthSalt,
		NewHealth:           newHealth,
		NewHealthSalt:       in.NewHealthSalt,
		ItemPosition:        [3]frontend.Variable{item.Position[0], item.Position[1], item.Position[2]},
	}
	copy(assignment.ItemSiblings[:], circuits.MerkleSiblings(proof, circuits.ItemsDepth))
	return assignment, nil
}
