package session

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
)

const testGame types.GameKind = "counter"

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	errBadProof = errors.New("proof verification failed")
)

// fakeVerifier accepts every proof except the ones with a 0xff proof byte.
type fakeVerifier struct{}

func (fakeVerifier) Verify(p *types.Proof) error {
	if len(p.Proof) > 0 && p.Proof[0] == 0xff {
		return errBadProof
	}
	return nil
}

// counterRules is a minimal game: the active player moves its "c"
// commitment with CircuitMove proofs whose third signal is an item to
// consume, until the "limit" option of moves is reached.
type counterRules struct{}

func (counterRules) Game() types.GameKind { return testGame }

func (counterRules) Init(s *Session) error {
	s.SetDefaultOption("limit", 3)
	if s.Option("limit") <= 0 {
		return InvalidAction("limit must be positive")
	}
	return nil
}

func (counterRules) Setup(s *Session, slot int, setup map[string]*types.BigInt) error {
	c, ok := setup["c"]
	if !ok || c == nil {
		return InvalidAction("missing commitment c")
	}
	s.Participant(slot).SetCommitment("c", c.MathBigInt())
	return nil
}

func (counterRules) Ready(s *Session, slot int) bool {
	return s.Participant(slot).Commitment("c") != nil
}

func (counterRules) Start(s *Session) error {
	s.Stage = "play"
	return nil
}

func (counterRules) Stale(s *Session, slot int, p *types.Proof) error {
	return CheckRefs(s.Participant(slot), p, Ref{Signal: 0, Field: "c"})
}

func (counterRules) Allowed(s *Session, slot int, circuit types.CircuitID) error {
	if circuit != types.CircuitMove || slot != s.Turn {
		return PhaseViolation("%s by slot %d", circuit, slot)
	}
	return nil
}

func (counterRules) ApplyProof(s *Session, slot int, p *types.Proof) ([]Identifier, error) {
	signals, err := Signals(p, 3)
	if err != nil {
		return nil, err
	}
	player := s.Participant(slot)
	if err := CheckCommitment(player, "c", signals[0]); err != nil {
		return nil, err
	}
	item, err := Int("item", signals[2], 1000)
	if err != nil {
		return nil, err
	}
	player.SetCommitment("c", signals[1])
	if s.AddCounter("moves", 1) >= s.Option("limit") {
		s.Finish(slot, "limit")
		return []Identifier{{Kind: state.KindItem, ID: uint64(item)}}, nil
	}
	s.Turn = Other(slot)
	return []Identifier{{Kind: state.KindItem, ID: uint64(item)}}, nil
}

func (counterRules) ApplyAction(s *Session, slot int, a *Action) error {
	if a.Type != "pass" {
		return InvalidAction("unknown action %q", a.Type)
	}
	if slot != s.Turn {
		return PhaseViolation("not your turn")
	}
	s.Turn = Other(slot)
	return nil
}

func (counterRules) Awaiting(s *Session) []int {
	return []int{s.Turn}
}

func newTestMachine(t *testing.T) *Machine {
	return NewMachine(storage.New(metadb.NewTest(t)), fakeVerifier{}, time.Minute, counterRules{})
}

func setup(c int64) map[string]*types.BigInt {
	return map[string]*types.BigInt{"c": types.NewInt(c)}
}

func moveProof(oldC, newC, item int64) *types.Proof {
	return &types.Proof{
		Circuit:       types.CircuitMove,
		Proof:         []byte{1},
		PublicSignals: []*types.BigInt{types.NewInt(oldC), types.NewInt(newC), types.NewInt(item)},
	}
}

// startSession plays a session up to the in progress phase and returns it
// together with the address of the active player and its opponent.
func startSession(c *qt.C, m *Machine) (*Session, common.Address, common.Address) {
	s, err := m.Create(alice, testGame, nil)
	c.Assert(err, qt.IsNil)
	_, err = m.Join(s.ID, bob)
	c.Assert(err, qt.IsNil)

	seedA, seedB := []byte("alice seed"), []byte("bob seed")
	_, err = m.Commit(s.ID, alice, randomness.HashSeed(seedA), setup(10))
	c.Assert(err, qt.IsNil)
	_, err = m.Commit(s.ID, bob, randomness.HashSeed(seedB), setup(20))
	c.Assert(err, qt.IsNil)
	_, err = m.Reveal(s.ID, alice, seedA)
	c.Assert(err, qt.IsNil)
	s, err = m.Reveal(s.ID, bob, seedB)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseInProgress)

	if s.Turn == 0 {
		return s, alice, bob
	}
	return s, bob, alice
}

func TestLifecycle(t *testing.T) {
	c := qt.New(t)
	m := newTestMachine(t)

	_, err := m.Create(alice, "chess", nil)
	c.Assert(err, qt.ErrorIs, ErrUnknownGame)

	s, err := m.Create(alice, testGame, map[string]int64{"limit": 2})
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseCreated)
	c.Assert(s.Option("limit"), qt.Equals, int64(2))

	// commits before the second player joins are rejected
	_, err = m.Commit(s.ID, alice, randomness.HashSeed([]byte("a")), setup(10))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	_, err = m.Join(s.ID, alice)
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)
	s, err = m.Join(s.ID, bob)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseCommit)
	_, err = m.Join(s.ID, carol)
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	_, err = m.Commit(s.ID, carol, randomness.HashSeed([]byte("c")), setup(1))
	c.Assert(err, qt.ErrorIs, ErrNotParticipant)
	_, err = m.Commit(s.ID, alice, []byte{1, 2, 3}, setup(10))
	c.Assert(err, qt.ErrorIs, ErrInvalidAction)
	_, err = m.Commit(s.ID, alice, randomness.HashSeed([]byte("a")), nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidAction)
	// rejected transitions leave no trace
	stored, err := m.Session(s.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Participants[0].Seed.State, qt.Equals, randomness.Uncommitted)

	s, err = m.Commit(s.ID, alice, randomness.HashSeed([]byte("a")), setup(10))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseCommit)
	c.Assert(s.Awaiting, qt.DeepEquals, []int{1})
	_, err = m.Commit(s.ID, alice, randomness.HashSeed([]byte("a")), setup(10))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	// reveals are only accepted once both committed
	_, err = m.Reveal(s.ID, alice, []byte("a"))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	s, err = m.Commit(s.ID, bob, randomness.HashSeed([]byte("b")), setup(20))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseReveal)

	_, err = m.Reveal(s.ID, bob, []byte("not b"))
	c.Assert(err, qt.ErrorIs, ErrCommitmentMismatch)
	s, err = m.Reveal(s.ID, bob, []byte("b"))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseReveal)
	c.Assert(s.Awaiting, qt.DeepEquals, []int{0})
	_, err = m.Reveal(s.ID, bob, []byte("b"))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	s, err = m.Reveal(s.ID, alice, []byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseInProgress)
	c.Assert(s.Stage, qt.Equals, "play")

	a := randomness.Seed{}
	c.Assert(a.Commit(randomness.HashSeed([]byte("a"))), qt.IsNil)
	c.Assert(a.Reveal([]byte("a")), qt.IsNil)
	b := randomness.Seed{}
	c.Assert(b.Commit(randomness.HashSeed([]byte("b"))), qt.IsNil)
	c.Assert(b.Reveal([]byte("b")), qt.IsNil)
	shared, err := randomness.SharedSeed(&a, &b)
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(s.SharedSeed), qt.DeepEquals, shared)
	c.Assert(s.Turn, qt.Equals, randomness.StartingSlot(shared))
	c.Assert(s.Awaiting, qt.DeepEquals, []int{s.Turn})
	c.Assert(s.Sequence, qt.Equals, uint64(5))
}

func TestSubmitProof(t *testing.T) {
	c := qt.New(t)
	m := newTestMachine(t)
	s, active, waiting := startSession(c, m)
	slot := s.Turn
	oldC := int64(10 + 10*slot)

	_, err := m.SubmitProof(s.ID, waiting, moveProof(30-oldC, 1, 1))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)
	_, err = m.SubmitProof(s.ID, carol, moveProof(oldC, 1, 1))
	c.Assert(err, qt.ErrorIs, ErrNotParticipant)

	bad := moveProof(oldC, 1, 1)
	bad.Proof = []byte{0xff}
	_, err = m.SubmitProof(s.ID, active, bad)
	c.Assert(err, qt.ErrorIs, errBadProof)

	_, err = m.SubmitProof(s.ID, active, moveProof(oldC+1, 1, 1))
	c.Assert(err, qt.ErrorIs, ErrCommitmentMismatch)
	short := moveProof(oldC, 1, 1)
	short.PublicSignals = short.PublicSignals[:2]
	_, err = m.SubmitProof(s.ID, active, short)
	c.Assert(err, qt.ErrorIs, ErrParameterMismatch)

	after, err := m.SubmitProof(s.ID, active, moveProof(oldC, 111, 7))
	c.Assert(err, qt.IsNil)
	c.Assert(after.Turn, qt.Equals, Other(slot))
	c.Assert(after.Participant(slot).Commitment("c").Int64(), qt.Equals, int64(111))
	c.Assert(after.Sequence, qt.Equals, s.Sequence+1)
	c.Assert(after.ConsumedRoot, qt.IsNotNil)

	// replaying the same transition references a stale commitment, out
	// of turn or not
	_, err = m.SubmitProof(s.ID, active, moveProof(oldC, 111, 7))
	c.Assert(err, qt.ErrorIs, ErrCommitmentMismatch)
	_, err = m.SubmitProof(s.ID, active, moveProof(oldC, 112, 9))
	c.Assert(err, qt.ErrorIs, ErrCommitmentMismatch)
	_, err = m.SubmitAction(s.ID, waiting, NewAction("pass", nil))
	c.Assert(err, qt.IsNil)
	_, err = m.SubmitProof(s.ID, active, moveProof(oldC, 111, 7))
	c.Assert(err, qt.ErrorIs, ErrCommitmentMismatch)
	_, err = m.SubmitProof(s.ID, active, moveProof(oldC, 111, 8))
	c.Assert(err, qt.ErrorIs, ErrCommitmentMismatch)

	// the item was consumed by the first move
	_, err = m.SubmitProof(s.ID, active, moveProof(111, 222, 7))
	c.Assert(err, qt.ErrorIs, ErrResourceAlreadyConsumed)
	stored, err := m.Session(s.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Participant(slot).Commitment("c").Int64(), qt.Equals, int64(111))
	c.Assert(stored.Counter("moves"), qt.Equals, int64(1))

	proof, err := m.ConsumedProof(s.ID, Identifier{Kind: state.KindItem, ID: 7})
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Existence, qt.IsTrue)
	c.Assert(state.VerifyProof(proof), qt.IsTrue)
	c.Assert(arbo.BytesToBigInt(proof.Root).Cmp(stored.ConsumedRoot.MathBigInt()), qt.Equals, 0)
	proof, err = m.ConsumedProof(s.ID, Identifier{Kind: state.KindItem, ID: 8})
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Existence, qt.IsFalse)
}

func TestFinishAndForfeit(t *testing.T) {
	c := qt.New(t)
	m := newTestMachine(t)

	s, active, waiting := startSession(c, m)
	_, err := m.SubmitAction(s.ID, active, NewAction("jump", nil))
	c.Assert(err, qt.ErrorIs, ErrInvalidAction)
	s, err = m.SubmitAction(s.ID, waiting, NewAction(ActionForfeit, nil))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseComplete)
	c.Assert(s.Outcome, qt.DeepEquals, &Outcome{Winner: s.Turn, Reason: "forfeit"})

	_, err = m.SubmitAction(s.ID, active, NewAction("pass", nil))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)
	_, err = m.SubmitProof(s.ID, active, moveProof(1, 2, 3))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	s, active, waiting = startSession(c, m)
	first := s.Turn
	commitments := map[common.Address]int64{alice: 10, bob: 20}
	for i, addr := range []common.Address{active, waiting, active} {
		s, err = m.SubmitProof(s.ID, addr, moveProof(commitments[addr], int64(100+i), int64(i)))
		c.Assert(err, qt.IsNil)
		commitments[addr] = int64(100 + i)
	}
	c.Assert(s.Phase, qt.Equals, PhaseComplete)
	c.Assert(s.Outcome.Winner, qt.Equals, first)
	c.Assert(s.Awaiting, qt.HasLen, 0)
}

func TestExpireInactive(t *testing.T) {
	c := qt.New(t)
	m := newTestMachine(t)
	start := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return start }

	created, err := m.Create(alice, testGame, nil)
	c.Assert(err, qt.IsNil)
	committing, err := m.Create(alice, testGame, nil)
	c.Assert(err, qt.IsNil)
	_, err = m.Join(committing.ID, bob)
	c.Assert(err, qt.IsNil)
	_, err = m.Commit(committing.ID, bob, randomness.HashSeed([]byte("b")), setup(1))
	c.Assert(err, qt.IsNil)
	playing, active, _ := startSession(c, m)

	expired, err := m.ExpireInactive(start.Add(30 * time.Second))
	c.Assert(err, qt.IsNil)
	c.Assert(expired, qt.HasLen, 0)

	expired, err = m.ExpireInactive(start.Add(2 * time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(expired, qt.HasLen, 3)

	s, err := m.Session(created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseTimedOut)
	c.Assert(s.Outcome.Winner, qt.Equals, Draw)

	// alice never committed
	s, err = m.Session(committing.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseTimedOut)
	c.Assert(s.Outcome, qt.DeepEquals, &Outcome{Winner: 1, Reason: "timeout"})

	// the active player stalled
	s, err = m.Session(playing.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, PhaseTimedOut)
	c.Assert(s.Outcome.Winner, qt.Equals, Other(playing.Turn))

	_, err = m.SubmitProof(playing.ID, active, moveProof(10, 11, 1))
	c.Assert(err, qt.ErrorIs, ErrPhaseViolation)

	expired, err = m.ExpireInactive(start.Add(time.Hour))
	c.Assert(err, qt.IsNil)
	c.Assert(expired, qt.HasLen, 0)
}
