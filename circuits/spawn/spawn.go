// Package spawn implements the circuit that places a player in the arena.
// The player commits to a private position inside its spawn zone and to a
// full health value.
package spawn

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

type Circuit struct {
	PositionCommitment frontend.Variable `gnark:",public"`
	HealthCommitment   frontend.Variable `gnark:",public"`
	ZoneMinX           frontend.Variable `gnark:",public"`
	ZoneMaxX           frontend.Variable `gnark:",public"`

	Position     [3]frontend.Variable
	PositionSalt frontend.Variable
	Health       frontend.Variable
	HealthSalt   frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	c.checkZone(api, v)
	if err := c.checkCommitments(api, v); err != nil {
		return err
	}
	v.Assert()
	return nil
}

func (c *Circuit) checkZone(api frontend.API, v *circuits.Validity) {
	v.And(circuits.LessOrEqual(api, c.ZoneMaxX, circuits.ArenaSize, circuits.CoordBits))
	v.And(circuits.RangeCheck(api, c.Position[0], c.ZoneMinX, c.ZoneMaxX, circuits.CoordBits))
	v.And(circuits.RangeCheck(api, c.Position[1], 0, circuits.ArenaSize, circuits.CoordBits))
	v.And(circuits.RangeCheck(api, c.Position[2], 0, circuits.ArenaSize, circuits.CoordBits))
	v.AndEqual(c.Health, circuits.MaxHealth)
}

func (c *Circuit) checkCommitments(api frontend.API, v *circuits.Validity) error {
	position, err := circuits.Commit(api, c.PositionSalt, c.Position[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(position, c.PositionCommitment)
	health, err := circuits.Commit(api, c.HealthSalt, c.Health)
	if err != nil {
		return err
	}
	v.AndEqual(health, c.HealthCommitment)
	return nil
}

// Inputs are the native inputs of a spawn.
type Inputs struct {
	ZoneMinX     int64
	ZoneMaxX     int64
	Position     [3]int64
	PositionSalt *big.Int
	HealthSalt   *big.Int
}

// PositionCommitment returns the commitment of the spawn position.
func (in *Inputs) PositionCommitment() *big.Int {
	return commitment.CommitInts(in.PositionSalt, in.Position[:]...)
}

// HealthCommitment returns the commitment of the spawn health.
func (in *Inputs) HealthCommitment() *big.Int {
	return commitment.CommitInts(in.HealthSalt, circuits.MaxHealth)
}

// Witness checks the spawn natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.PositionSalt == nil || in.HealthSalt == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	if in.ZoneMinX < 0 || in.ZoneMinX > in.ZoneMaxX || in.ZoneMaxX > circuits.ArenaSize {
		return nil, circuits.Unsatisfiable("invalid spawn zone [%d, %d]", in.ZoneMinX, in.ZoneMaxX)
	}
	if !circuits.InRange(in.Position[0], in.ZoneMinX, in.ZoneMaxX) ||
		!circuits.InRange(in.Position[1], 0, circuits.ArenaSize) ||
		!circuits.InRange(in.Position[2], 0, circuits.ArenaSize) {
		return nil, circuits.Unsatisfiable("position %v out of the spawn zone", in.Position)
	}
	return &Circuit{
		PositionCommitment: in.PositionCommitment(),
		HealthCommitment:   in.HealthCommitment(),
		ZoneMinX:           in.ZoneMinX,
		ZoneMaxX:           in.ZoneMaxX,
		Position:           [3]frontend.Variable{in.Position[0], in.Position[1], in.Position[2]},
		PositionSalt:       in.PositionSalt,
		Health:             circuits.MaxHealth,
		HealthSalt:         in.HealthSalt,
	}, nil
}
