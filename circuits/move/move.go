// Package move implements the circuit that moves a player between two
// committed positions. The squared length of the step is bounded by the
// squared maximum distance, the bound being inclusive.
package move

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

// distanceBits bounds the squared distances compared by the circuit.
const distanceBits = 2*circuits.CoordBits + 2

type Circuit struct {
	OldCommitment frontend.Variable `gnark:",public"`
	NewCommitment frontend.Variable `gnark:",public"`
	MaxDistance   frontend.Variable `gnark:",public"`

	OldPosition [3]frontend.Variable
	OldSalt     frontend.Variable
	NewPosition [3]frontend.Variable
	NewSalt     frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	old, err := circuits.Commit(api, c.OldSalt, c.OldPosition[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(old, c.OldCommitment)
	for i := range c.NewPosition {
		v.And(circuits.RangeCheck(api, c.OldPosition[i], 0, circuits.ArenaSize, circuits.CoordBits))
		v.And(circuits.RangeCheck(api, c.NewPosition[i], 0, circuits.ArenaSize, circuits.CoordBits))
	}
	v.And(circuits.LessOrEqual(api, c.MaxDistance, circuits.ArenaSize*2, circuits.CoordBits))
	dist := circuits.SquaredDistance(api, c.OldPosition[:], c.NewPosition[:])
	v.And(circuits.LessOrEqual(api, dist, api.Mul(c.MaxDistance, c.MaxDistance), distanceBits))
	updated, err := circuits.Commit(api, c.NewSalt, c.NewPosition[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewCommitment)
	v.Assert()
	return nil
}

// Inputs are the native inputs of a move.
type Inputs struct {
	OldPosition [3]int64
	OldSalt     *big.Int
	NewPosition [3]int64
	NewSalt     *big.Int
	MaxDistance int64
}

// OldCommitment returns the commitment of the current position.
func (in *Inputs) OldCommitment() *big.Int {
	return commitment.CommitInts(in.OldSalt, in.OldPosition[:]...)
}

// NewCommitment returns the commitment of the destination.
func (in *Inputs) NewCommitment() *big.Int {
	return commitment.CommitInts(in.NewSalt, in.NewPosition[:]...)
}

// Witness checks the move natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.OldSalt == nil || in.NewSalt == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	if !circuits.InRange(in.MaxDistance, 0, circuits.ArenaSize*2) {
		return nil, circuits.Unsatisfiable("invalid max distance %d", in.MaxDistance)
	}
	for i := range in.NewPosition {
		if !circuits.InRange(in.OldPosition[i], 0, circuits.ArenaSize) ||
			!circuits.InRange(in.NewPosition[i], 0, circuits.ArenaSize) {
			return nil, circuits.Unsatisfiable("position out of the arena")
		}
	}
	if d := circuits.SquaredDistanceInt(in.OldPosition, in.NewPosition); d > in.MaxDistance*in.MaxDistance {
		return nil, circuits.Unsatisfiable("step too long: %d > %d", d, in.MaxDistance*in.MaxDistance)
	}
	return &Circuit{
		OldCommitment: in.OldCommitment(),
		NewCommitment: in.NewCommitment(),
		MaxDistance:   in.MaxDistance,
		OldPosition:   [3]frontend.Variable{in.OldPosition[0], in.OldPosition[1], in.OldPosition[2]},
		OldSalt:       in.OldSalt,
		NewPosition:   [3]frontend.Variable{in.NewPosition[0], in.NewPosition[1], in.NewPosition[2]},
		NewSalt:       in.NewSalt,
	}, nil
}
