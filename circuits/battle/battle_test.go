package battle

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/circuits/summon"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

var defender = summon.Card{ID: 2, Attack: 1500, Defense: 1200}

func battleInputs(attack int64) *Inputs {
	return &Inputs{
		Card:           defender,
		OldFieldSalt:   commitment.NewSalt(),
		NewFieldSalt:   commitment.NewSalt(),
		AttackerAttack: attack,
	}
}

func TestBattleProof(t *testing.T) {
	c := qt.New(t)
	assignment, err := battleInputs(1000).Witness()
	c.Assert(err, qt.IsNil)
	c.Assert(assignment.Damage, qt.Equals, int64(200))

	assert := test.NewAssert(t)
	assert.ProverSucceeded(CircuitPlaceholder(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestBattleOutcomes(t *testing.T) {
	c := qt.New(t)
	field := ecc.BN254.ScalarField()
	for _, tc := range []struct {
		attack int64
		out    Outcome
	}{
		{attack: 1500, out: Outcome{DefenderDestroyed: true}},
		{attack: 1200, out: Outcome{AttackerDestroyed: true, DefenderDestroyed: true}},
		{attack: 1199, out: Outcome{Damage: 1}},
		{attack: 0, out: Outcome{Damage: 1200}},
	} {
		in := battleInputs(tc.attack)
		c.Assert(in.Outcome(), qt.Equals, tc.out)
		assignment, err := in.Witness()
		c.Assert(err, qt.IsNil)
		c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNil, qt.Commentf("attack %d", tc.attack))
		if tc.out.DefenderDestroyed {
			c.Assert(assignment.NewFieldCommitment.(*big.Int).Cmp(summon.EmptyField(in.NewFieldSalt)), qt.Equals, 0)
		}
	}
}

func TestBattleTieIsConsistent(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 5; i++ {
		c.Assert(Resolve(800, 800), qt.Equals, Outcome{AttackerDestroyed: true, DefenderDestroyed: true})
	}
	// the defender cannot keep its card on a tie
	in := battleInputs(1200)
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	assignment.DefenderDestroyed = 0
	assignment.NewFieldCommitment = defender.FieldCommitment(in.NewFieldSalt)
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestBattleEmptyField(t *testing.T) {
	c := qt.New(t)
	in := battleInputs(100)
	in.Card = summon.Card{}
	_, err := in.Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)
}
