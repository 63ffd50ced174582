package damage

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

func TestDamageSequence(t *testing.T) {
	c := qt.New(t)
	assert := test.NewAssert(t)
	salt0, salt1, salt2 := commitment.NewSalt(), commitment.NewSalt(), commitment.NewSalt()

	// 100 - 40 = 60, alive
	first := &Inputs{OldHealth: 100, OldSalt: salt0, NewSalt: salt1, Damage: 40}
	c.Assert(first.NewHealth(), qt.Equals, int64(60))
	assignment, err := first.Witness()
	c.Assert(err, qt.IsNil)
	c.Assert(assignment.IsDead.(*big.Int).Int64(), qt.Equals, int64(0))
	assert.ProverSucceeded(CircuitPlaceholder(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	// 60 - 90 clamps to 0, dead
	second := &Inputs{OldHealth: 60, OldSalt: salt1, NewSalt: salt2, Damage: 90}
	c.Assert(second.NewHealth(), qt.Equals, int64(0))
	next, err := second.Witness()
	c.Assert(err, qt.IsNil)
	c.Assert(next.OldCommitment.(*big.Int).Cmp(assignment.NewCommitment.(*big.Int)), qt.Equals, 0)
	c.Assert(next.IsDead.(*big.Int).Int64(), qt.Equals, int64(1))
	c.Assert(next.NewCommitment.(*big.Int).Cmp(commitment.CommitInts(salt2, 0)), qt.Equals, 0)
	assert.ProverSucceeded(CircuitPlaceholder(), next,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestDamageCannotUnderflow(t *testing.T) {
	c := qt.New(t)
	field := ecc.BN254.ScalarField()
	in := &Inputs{OldHealth: 60, OldSalt: commitment.NewSalt(), NewSalt: commitment.NewSalt(), Damage: 90}
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)

	// -30 instead of the clamped 0
	negative := new(big.Int).Sub(field, big.NewInt(30))
	assignment.NewHealth = negative
	assignment.NewCommitment = commitment.Commit([]*big.Int{negative}, in.NewSalt)
	assignment.IsDead = 0
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNotNil)

	// hiding a death
	assignment, err = in.Witness()
	c.Assert(err, qt.IsNil)
	assignment.IsDead = 0
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNotNil)
}

func TestDamageInvalidHealth(t *testing.T) {
	c := qt.New(t)
	_, err := (&Inputs{OldHealth: 151, OldSalt: big.NewInt(1), NewSalt: big.NewInt(2), Damage: 1}).Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)
}
