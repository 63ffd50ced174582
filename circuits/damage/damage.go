// Package damage implements the circuit that applies damage to a committed
// health value. Health never underflows: the new health is clamped at zero
// and the death flag is public.
package damage

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

type Circuit struct {
	OldCommitment frontend.Variable `gnark:",public"`
	NewCommitment frontend.Variable `gnark:",public"`
	Damage        frontend.Variable `gnark:",public"`
	IsDead        frontend.Variable `gnark:",public"`

	OldHealth frontend.Variable
	OldSalt   frontend.Variable
	NewHealth frontend.Variable
	NewSalt   frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	old, err := circuits.Commit(api, c.OldSalt, c.OldHealth)
	if err != nil {
		return err
	}
	v.AndEqual(old, c.OldCommitment)
	v.And(circuits.RangeCheck(api, c.OldHealth, 0, circuits.MaxShieldedHealth, circuits.StatBits))
	v.And(circuits.RangeCheck(api, c.Damage, 0, 1<<circuits.StatBits-1, circuits.StatBits))
	expected := circuits.ClampedSub(api, c.OldHealth, c.Damage, circuits.StatBits)
	v.AndEqual(c.NewHealth, expected)
	v.AndEqual(c.IsDead, api.IsZero(c.NewHealth))
	updated, err := circuits.Commit(api, c.NewSalt, c.NewHealth)
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewCommitment)
	v.Assert()
	return nil
}

// Apply returns the health left after the damage and whether it is zero.
func Apply(health, damage int64) (int64, bool) {
	if damage >= health {
		return 0, true
	}
	return health - damage, false
}

// Inputs are the native inputs of a damage transition.
type Inputs struct {
	OldHealth int64
	OldSalt   *big.Int
	NewSalt   *big.Int
	Damage    int64
}

// NewHealth returns the health after the damage.
func (in *Inputs) NewHealth() int64 {
	h, _ := Apply(in.OldHealth, in.Damage)
	return h
}

// Witness checks the inputs natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.OldSalt == nil || in.NewSalt == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	if !circuits.InRange(in.OldHealth, 0, circuits.MaxShieldedHealth) {
		return nil, circuits.Unsatisfiable("invalid health %d", in.OldHealth)
	}
	if !circuits.InRange(in.Damage, 0, 1<<circuits.StatBits-1) {
		return nil, circuits.Unsatisfiable("invalid damage %d", in.Damage)
	}
	health, dead := Apply(in.OldHealth, in.Damage)
	return &Circuit{
		OldCommitment: commitment.CommitInts(in.OldSalt, in.OldHealth),
		NewCommitment: commitment.CommitInts(in.NewSalt, health),
		Damage:        in.Damage,
		IsDead:        circuits.BoolToBigInt(dead),
		OldHealth:     in.OldHealth,
		OldSalt:       in.OldSalt,
		NewHealth:     health,
		NewSalt:       in.NewSalt,
	}, nil
}
