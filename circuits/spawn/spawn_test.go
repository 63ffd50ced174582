package spawn

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

func validInputs() *Inputs {
	return &Inputs{
		ZoneMinX:     0,
		ZoneMaxX:     500,
		Position:     [3]int64{500, 10, 1000},
		PositionSalt: commitment.NewSalt(),
		HealthSalt:   commitment.NewSalt(),
	}
}

func TestSpawnProof(t *testing.T) {
	c := qt.New(t)
	assignment, err := validInputs().Witness()
	c.Assert(err, qt.IsNil)

	assert := test.NewAssert(t)
	assert.ProverSucceeded(CircuitPlaceholder(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestSpawnOutsideZone(t *testing.T) {
	c := qt.New(t)
	in := validInputs()
	in.Position[0] = 501
	_, err := in.Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)

	in = validInputs()
	in.ZoneMaxX = 1001
	_, err = in.Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)

	// a forged assignment is rejected by the circuit itself
	in = validInputs()
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	in.Position[0] = 600
	assignment.Position[0] = 600
	assignment.PositionCommitment = in.PositionCommitment()
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestSpawnHealthIsFull(t *testing.T) {
	c := qt.New(t)
	in := validInputs()
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	assignment.Health = 150
	assignment.HealthCommitment = commitment.CommitInts(in.HealthSalt, 150)
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}
