package session

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zkgames/types"
)

func TestPhaseText(t *testing.T) {
	c := qt.New(t)
	for phase := PhaseCreated; phase <= PhaseTimedOut; phase++ {
		data, err := json.Marshal(phase)
		c.Assert(err, qt.IsNil)
		var decoded Phase
		c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
		c.Assert(decoded, qt.Equals, phase)
	}
	c.Assert(PhaseInProgress.String(), qt.Equals, "inProgress")
	c.Assert(Phase(42).String(), qt.Equals, "phase(42)")

	var p Phase
	c.Assert(p.UnmarshalText([]byte("TIMEDOUT")), qt.IsNil)
	c.Assert(p, qt.Equals, PhaseTimedOut)
	c.Assert(p.UnmarshalText([]byte("paused")), qt.ErrorMatches, `unknown phase "paused"`)

	c.Assert(PhaseComplete.Terminal(), qt.IsTrue)
	c.Assert(PhaseTimedOut.Terminal(), qt.IsTrue)
	c.Assert(PhaseReveal.Terminal(), qt.IsFalse)
}

func TestClone(t *testing.T) {
	c := qt.New(t)
	alice := common.HexToAddress("0xa11ce")
	s := &Session{
		ID:           types.NewSessionID(),
		Game:         types.GameArena,
		Phase:        PhaseInProgress,
		Participants: []*Participant{{Address: alice}, {Address: common.HexToAddress("0xb0b")}},
	}
	s.Participants[0].SetCommitment("position", big.NewInt(99))
	s.Participants[0].SetCounter("kills", 1)
	s.SetParam("itemsRoot", big.NewInt(7))
	s.SetDefaultOption("killTarget", 3)

	clone, err := s.Clone()
	c.Assert(err, qt.IsNil)
	c.Assert(clone.ID, qt.Equals, s.ID)
	c.Assert(clone.Phase, qt.Equals, PhaseInProgress)
	c.Assert(clone.Participants[0].Commitment("position").Int64(), qt.Equals, int64(99))

	// the clone is independent of the original
	clone.Participants[0].AddCounter("kills", 1)
	clone.SetParam("itemsRoot", big.NewInt(8))
	clone.Options["killTarget"] = 5
	c.Assert(s.Participants[0].Counter("kills"), qt.Equals, int64(1))
	c.Assert(s.Param("itemsRoot").Int64(), qt.Equals, int64(7))
	c.Assert(s.Option("killTarget"), qt.Equals, int64(3))

	slot, err := clone.Slot(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(slot, qt.Equals, 0)
	_, err = clone.Slot(common.HexToAddress("0xca201"))
	c.Assert(err, qt.ErrorIs, ErrNotParticipant)
	c.Assert(clone.Participant(2), qt.IsNil)
	c.Assert(Other(0), qt.Equals, 1)

	clone.Finish(Draw, "agreement")
	c.Assert(clone.Phase, qt.Equals, PhaseComplete)
	c.Assert(clone.Awaiting, qt.IsNil)
	c.Assert(clone.Outcome, qt.DeepEquals, &Outcome{Winner: Draw, Reason: "agreement"})
}
