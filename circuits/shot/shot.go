// Package shot implements the hit detection answered by the target of a
// shot. The target proves whether its committed position is within the hit
// radius of the public aim point, without revealing the position.
package shot

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

const distanceBits = 2*circuits.CoordBits + 2

type Circuit struct {
	TargetCommitment frontend.Variable `gnark:",public"`
	AimX             frontend.Variable `gnark:",public"`
	AimY             frontend.Variable `gnark:",public"`
	AimZ             frontend.Variable `gnark:",public"`
	Radius           frontend.Variable `gnark:",public"`
	Hit              frontend.Variable `gnark:",public"`

	Position [3]frontend.Variable
	Salt     frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	target, err := circuits.Commit(api, c.Salt, c.Position[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(target, c.TargetCommitment)
	aim := []frontend.Variable{c.AimX, c.AimY, c.AimZ}
	for i := range aim {
		v.And(circuits.RangeCheck(api, aim[i], 0, circuits.ArenaSize, circuits.CoordBits))
		v.And(circuits.RangeCheck(api, c.Position[i], 0, circuits.ArenaSize, circuits.CoordBits))
	}
	v.And(circuits.LessOrEqual(api, c.Radius, circuits.ArenaSize, circuits.CoordBits))
	dist := circuits.SquaredDistance(api, c.Position[:], aim)
	hit := circuits.LessOrEqual(api, dist, api.Mul(c.Radius, c.Radius), distanceBits)
	v.AndEqual(hit, c.Hit)
	v.Assert()
	return nil
}

// Inputs are the native inputs of a hit detection.
type Inputs struct {
	Position [3]int64
	Salt     *big.Int
	Aim      [3]int64
	Radius   int64
}

// Hit reports whether the position is within the radius of the aim point.
func (in *Inputs) Hit() bool {
	return circuits.SquaredDistanceInt(in.Position, in.Aim) <= in.Radius*in.Radius
}

// Witness checks the inputs natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.Salt == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	for i := range in.Aim {
		if !circuits.InRange(in.Aim[i], 0, circuits.ArenaSize) ||
			!circuits.InRange(in.Position[i], 0, circuits.ArenaSize) {
			return nil, circuits.Unsatisfiable("coordinate out of the arena")
		}
	}
	if !circuits.InRange(in.Radius, 0, circuits.ArenaSize) {
		return nil, circuits.Unsatisfiable("invalid radius %d", in.Radius)
	}
	return &Circuit{
		TargetCommitment: commitment.CommitInts(in.Salt, in.Position[:]...),
		AimX:             in.Aim[0],
		AimY:             in.Aim[1],
		AimZ:             in.Aim[2],
		Radius:           in.Radius,
		Hit:              circuits.BoolToBigInt(in.Hit()),
		Position:         [3]frontend.Variable{in.Position[0], in.Position[1], in.Position[2]},
		Salt:             in.Salt,
	}, nil
}
