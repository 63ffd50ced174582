package move

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

func inputs(from, to [3]int64, max int64) *Inputs {
	return &Inputs{
		OldPosition: from,
		OldSalt:     commitment.NewSalt(),
		NewPosition: to,
		NewSalt:     commitment.NewSalt(),
		MaxDistance: max,
	}
}

func TestMoveProof(t *testing.T) {
	c := qt.New(t)
	assignment, err := inputs([3]int64{100, 100, 100}, [3]int64{103, 104, 100}, 10).Witness()
	c.Assert(err, qt.IsNil)

	assert := test.NewAssert(t)
	assert.ProverSucceeded(CircuitPlaceholder(), assignment,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestMoveInclusiveBound(t *testing.T) {
	c := qt.New(t)
	field := ecc.BN254.ScalarField()

	// 3-4-0 step of length exactly 5
	assignment, err := inputs([3]int64{0, 0, 0}, [3]int64{3, 4, 0}, 5).Witness()
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNil)

	// one unit further is rejected natively and by the circuit
	in := inputs([3]int64{0, 0, 0}, [3]int64{3, 5, 0}, 5)
	_, err = in.Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)

	assignment.NewPosition[1] = 5
	assignment.NewCommitment = in.NewCommitment()
	assignment.NewSalt = in.NewSalt
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, field), qt.IsNotNil)
}

func TestMoveOutOfArena(t *testing.T) {
	c := qt.New(t)
	_, err := inputs([3]int64{999, 0, 0}, [3]int64{1001, 0, 0}, 10).Witness()
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)
}

func TestMoveStaleCommitment(t *testing.T) {
	c := qt.New(t)
	in := inputs([3]int64{10, 10, 10}, [3]int64{11, 10, 10}, 2)
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	// a commitment to another position does not open
	assignment.OldCommitment = commitment.CommitInts(in.OldSalt, 10, 10, 11)
	c.Assert(test.IsSolved(CircuitPlaceholder(), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}
