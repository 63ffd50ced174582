// Package battle implements the defender side of a duel attack. The
// defender opens its committed field card privately and proves the outcome
// of the public attack value against the card defense: a greater attack
// destroys the defender, an equal attack destroys both cards and a smaller
// attack destroys nothing and damages the attacker by the difference.
package battle

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/circuits/summon"
)

type Circuit struct {
	OldFieldCommitment frontend.Variable `gnark:",public"`
	NewFieldCommitment frontend.Variable `gnark:",public"`
	AttackerAttack     frontend.Variable `gnark:",public"`
	AttackerDestroyed  frontend.Variable `gnark:",public"`
	DefenderDestroyed  frontend.Variable `gnark:",public"`
	Damage             frontend.Variable `gnark:",public"`

	CardID       frontend.Variable
	Attack       frontend.Variable
	Defense      frontend.Variable
	OldFieldSalt frontend.Variable
	NewFieldSalt frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	old, err := circuits.Commit(api, c.OldFieldSalt, c.CardID, c.Attack, c.Defense)
	if err != nil {
		return err
	}
	v.AndEqual(old, c.OldFieldCommitment)
	v.And(circuits.RangeCheck(api, c.CardID, 1, circuits.CatalogSize, circuits.StatBits))
	v.And(circuits.RangeCheck(api, c.AttackerAttack, 0, 1<<circuits.StatBits-1, circuits.StatBits))
	v.And(circuits.RangeCheck(api, c.Defense, 0, 1<<circuits.StatBits-1, circuits.StatBits))

	lt, eq, gt := circuits.Comparator(api, c.AttackerAttack, c.Defense, circuits.StatBits)
	v.AndEqual(c.DefenderDestroyed, api.Add(gt, eq))
	v.AndEqual(c.AttackerDestroyed, eq)
	v.AndEqual(c.Damage, api.Mul(lt, api.Sub(c.Defense, c.AttackerAttack)))

	keep := api.Sub(1, c.DefenderDestroyed)
	updated, err := circuits.Commit(api, c.NewFieldSalt,
		api.Mul(keep, c.CardID), api.Mul(keep, c.Attack), api.Mul(keep, c.Defense))
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewFieldCommitment)
	v.Assert()
	return nil
}

// Outcome is the result of an attack against a defending card.
type Outcome struct {
	AttackerDestroyed bool
	DefenderDestroyed bool
	Damage            int64
}

// Resolve returns the outcome of an attack. Ties destroy both cards.
func Resolve(attack, defense int64) Outcome {
	switch {
	case attack > defense:
		return Outcome{DefenderDestroyed: true}
	case attack == defense:
		return Outcome{AttackerDestroyed: true, DefenderDestroyed: true}
	default:
		return Outcome{Damage: defense - attack}
	}
}

// Inputs are the native inputs of the defender.
type Inputs struct {
	Card           summon.Card
	OldFieldSalt   *big.Int
	NewFieldSalt   *big.Int
	AttackerAttack int64
}

// Outcome returns the outcome of the attack.
func (in *Inputs) Outcome() Outcome {
	return Resolve(in.AttackerAttack, in.Card.Defense)
}

// NewField returns the defender card after the attack, the zero card if it
// was destroyed.
func (in *Inputs) NewField() summon.Card {
	if in.Outcome().DefenderDestroyed {
		return summon.Card{}
	}
	return in.Card
}

// Witness checks the battle natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.OldFieldSalt == nil || in.NewFieldSalt == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	if !circuits.InRange(in.Card.ID, 1, circuits.CatalogSize) {
		return nil, circuits.Unsatisfiable("no card on the field")
	}
	if !circuits.InRange(in.AttackerAttack, 0, 1<<circuits.StatBits-1) ||
		!circuits.InRange(in.Card.Defense, 0, 1<<circuits.StatBits-1) {
		return nil, circuits.Unsatisfiable("stats out of range")
	}
	out := in.Outcome()
	return &Circuit{
		OldFieldCommitment: in.Card.FieldCommitment(in.OldFieldSalt),
		NewFieldCommitment: in.NewField().FieldCommitment(in.NewFieldSalt),
		AttackerAttack:     in.AttackerAttack,
		AttackerDestroyed:  circuits.BoolToBigInt(out.AttackerDestroyed),
		DefenderDestroyed:  circuits.BoolToBigInt(out.DefenderDestroyed),
		Damage:             out.Damage,
		CardID:             in.Card.ID,
		Attack:             in.Card.Attack,
		Defense:            in.Card.Defense,
		OldFieldSalt:       in.OldFieldSalt,
		NewFieldSalt:       in.NewFieldSalt,
	}, nil
}
