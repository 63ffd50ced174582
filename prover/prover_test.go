package prover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark/logger"
	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/circuits/arenawin"
	"github.com/vocdoni/zkgames/circuits/move"
	"github.com/vocdoni/zkgames/crypto/commitment"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

func TestMain(m *testing.M) {
	logger.Set(zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.WarnLevel))
	dir, err := os.MkdirTemp("", "zkgames-prover")
	if err != nil {
		panic(err)
	}
	circuits.BaseDir = dir
	code := m.Run()
	if err := os.RemoveAll(dir); err != nil {
		panic(err)
	}
	os.Exit(code)
}

func TestPlaceholders(t *testing.T) {
	c := qt.New(t)
	for _, id := range types.AllCircuits() {
		p, err := Placeholder(id)
		c.Assert(err, qt.IsNil, qt.Commentf("circuit %s", id))
		c.Assert(p, qt.IsNotNil)
	}
	_, err := Placeholder(types.CircuitUnknown)
	c.Assert(err, qt.IsNotNil)
}

func TestProveAndVerify(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	p := New(false)
	c.Assert(p.Setup(ctx, types.CircuitArenaWin, types.CircuitMove), qt.IsNil)

	in := &arenawin.Inputs{KillsA: 3, KillsB: 1, KillLimit: 3, Rounds: 12, RoundLimit: 50}
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	proof, err := p.Prove(ctx, types.CircuitArenaWin, assignment)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Circuit, qt.Equals, types.CircuitArenaWin)
	c.Assert(proof.Proof, qt.HasLen, verifier.ProofSize)
	c.Assert(proof.PublicSignals, qt.HasLen, 7)
	c.Assert(proof.PublicSignals[5].MathBigInt().Int64(), qt.Equals, int64(1))
	c.Assert(p.Verify(proof), qt.IsNil)

	// a tampered signal does not verify
	proof.PublicSignals[5] = types.NewInt(2)
	c.Assert(p.Verify(proof), qt.ErrorIs, verifier.ErrProofVerificationFailed)

	mv := &move.Inputs{
		OldPosition: [3]int64{10, 10, 10},
		OldSalt:     commitment.NewSalt(),
		NewPosition: [3]int64{13, 14, 10},
		NewSalt:     commitment.NewSalt(),
		MaxDistance: 5,
	}
	moveAssignment, err := mv.Witness()
	c.Assert(err, qt.IsNil)
	moveProof, err := p.Prove(ctx, types.CircuitMove, moveAssignment)
	c.Assert(err, qt.IsNil)
	c.Assert(moveProof.PublicSignals[0].EqualBig(mv.OldCommitment()), qt.IsTrue)
	c.Assert(moveProof.PublicSignals[1].EqualBig(mv.NewCommitment()), qt.IsTrue)
	c.Assert(p.Verify(moveProof), qt.IsNil)
}

func TestProveErrors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	p := New(false)

	in := &arenawin.Inputs{KillsA: 0, KillsB: 5, KillLimit: 5, Rounds: 3, RoundLimit: 50}
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	_, err = p.Prove(ctx, types.CircuitArenaWin, assignment)
	c.Assert(err, qt.ErrorIs, ErrCircuitArtifactMissing)
	_, err = p.VerifyingKey(types.CircuitArenaWin)
	c.Assert(err, qt.ErrorIs, ErrCircuitArtifactMissing)

	// with setup allowed the keys are generated on demand
	p = New(true)
	assignment.Winner = 1
	_, err = p.Prove(ctx, types.CircuitArenaWin, assignment)
	c.Assert(err, qt.ErrorIs, circuits.ErrWitnessUnsatisfiable)
	c.Assert(p.Has(types.CircuitArenaWin), qt.IsTrue)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assignment.Winner = 2
	_, err = p.Prove(cancelled, types.CircuitArenaWin, assignment)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

func TestCircuitKeysRoundTrip(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	p := New(false)
	c.Assert(p.Setup(ctx, types.CircuitArenaWin), qt.IsNil)
	keys, err := p.CircuitKeys(types.CircuitArenaWin)
	c.Assert(err, qt.IsNil)
	c.Assert(keys.ConstraintSystemHash, qt.HasLen, 32)
	c.Assert(keys.ProvingKeyHash, qt.HasLen, 32)

	registry, err := verifier.NewRegistry(storage.New(metadb.NewTest(t)))
	c.Assert(err, qt.IsNil)
	c.Assert(registry.Register(types.CircuitArenaWin, keys), qt.IsNil)

	// a new prover restored from the registered keys
	restored := New(false)
	c.Assert(restored.LoadKeys(ctx, types.CircuitArenaWin, keys), qt.IsNil)
	in := &arenawin.Inputs{KillsA: 2, KillsB: 2, KillLimit: 5, Rounds: 50, RoundLimit: 50}
	assignment, err := in.Witness()
	c.Assert(err, qt.IsNil)
	proof, err := restored.Prove(ctx, types.CircuitArenaWin, assignment)
	c.Assert(err, qt.IsNil)
	c.Assert(registry.Verify(proof), qt.IsNil)

	// missing cache entries
	err = New(false).LoadKeys(ctx, types.CircuitArenaWin, &storage.CircuitKeys{
		VerifyingKey:         keys.VerifyingKey,
		ConstraintSystemHash: make([]byte, 32),
		ProvingKeyHash:       keys.ProvingKeyHash,
	})
	c.Assert(err, qt.ErrorIs, ErrCircuitArtifactMissing)
}

func TestExport(t *testing.T) {
	c := qt.New(t)
	p := New(false)
	c.Assert(p.Export(types.CircuitArenaWin, t.TempDir()), qt.ErrorIs, ErrCircuitArtifactMissing)
	c.Assert(p.Setup(context.Background(), types.CircuitArenaWin), qt.IsNil)
	dir := t.TempDir()
	c.Assert(p.Export(types.CircuitArenaWin, dir), qt.IsNil)
	for _, ext := range []string{".ccs", ".pk", ".vk"} {
		info, err := os.Stat(filepath.Join(dir, "arenawin"+ext))
		c.Assert(err, qt.IsNil)
		c.Assert(info.Size() > 0, qt.IsTrue)
	}
}
