// Package session implements the authoritative state machine of a game
// session. A session holds the per-participant commitments of the hidden
// state and the public accumulators, and only changes through transitions
// whose proofs verify and whose public signals match the stored state.
package session

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/types"
)

// NumParticipants is the number of participants of every session.
const NumParticipants = 2

// Draw is the Outcome.Winner of a drawn session.
const Draw = -1

// Phase is the lifecycle stage of a session.
type Phase uint8

const (
	// PhaseCreated waits for the second participant.
	PhaseCreated Phase = iota
	// PhaseCommit waits for the randomness commitments and game setup.
	PhaseCommit
	// PhaseReveal waits for the randomness seeds.
	PhaseReveal
	// PhaseInProgress is the game itself, further divided in stages.
	PhaseInProgress
	// PhaseComplete is terminal, the session has an outcome.
	PhaseComplete
	// PhaseTimedOut is terminal, the session expired.
	PhaseTimedOut
)

var phaseNames = map[Phase]string{
	PhaseCreated:    "created",
	PhaseCommit:     "commit",
	PhaseReveal:     "reveal",
	PhaseInProgress: "inProgress",
	PhaseComplete:   "complete",
	PhaseTimedOut:   "timedOut",
}

// String returns the phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseTimedOut
}

// MarshalText encodes the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(data []byte) error {
	for phase, name := range phaseNames {
		if strings.EqualFold(name, string(data)) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", data)
}

// Participant is a player of the session.
type Participant struct {
	Address common.Address  `json:"address" cbor:"0,keyasint"`
	Seed    randomness.Seed `json:"seed" cbor:"1,keyasint"`
	// Commitments maps each hidden state field to its current commitment.
	Commitments map[string]*types.BigInt `json:"commitments" cbor:"2,keyasint"`
	// Counters are the public accumulators of the participant.
	Counters map[string]int64 `json:"counters" cbor:"3,keyasint"`
	// Params are the public parameters of the participant (deck root,
	// spawn zone).
	Params map[string]*types.BigInt `json:"params" cbor:"4,keyasint"`
	// LastProof is the digest of the last proof accepted from the
	// participant.
	LastProof types.HexBytes `json:"lastProof,omitempty" cbor:"5,keyasint,omitempty"`
}

// Commitment returns the commitment of field, nil if unset.
func (p *Participant) Commitment(field string) *big.Int {
	if c, ok := p.Commitments[field]; ok && c != nil {
		return c.MathBigInt()
	}
	return nil
}

// SetCommitment replaces the commitment of field.
func (p *Participant) SetCommitment(field string, c *big.Int) {
	if p.Commitments == nil {
		p.Commitments = make(map[string]*types.BigInt)
	}
	p.Commitments[field] = types.FromBigInt(c)
}

// Counter returns a public accumulator, zero if unset.
func (p *Participant) Counter(name string) int64 {
	return p.Counters[name]
}

// SetCounter sets a public accumulator.
func (p *Participant) SetCounter(name string, v int64) {
	if p.Counters == nil {
		p.Counters = make(map[string]int64)
	}
	p.Counters[name] = v
}

// AddCounter adds delta to a public accumulator and returns the new value.
func (p *Participant) AddCounter(name string, delta int64) int64 {
	p.SetCounter(name, p.Counter(name)+delta)
	return p.Counters[name]
}

// Param returns a public parameter of the participant, nil if unset.
func (p *Participant) Param(name string) *big.Int {
	if v, ok := p.Params[name]; ok && v != nil {
		return v.MathBigInt()
	}
	return nil
}

// SetParam sets a public parameter of the participant.
func (p *Participant) SetParam(name string, v *big.Int) {
	if p.Params == nil {
		p.Params = make(map[string]*types.BigInt)
	}
	p.Params[name] = types.FromBigInt(v)
}

// Outcome is the result of a finished session.
type Outcome struct {
	// Winner is the slot of the winner or Draw.
	Winner int    `json:"winner" cbor:"0,keyasint"`
	Reason string `json:"reason" cbor:"1,keyasint"`
}

// Session is the state of a game session.
type Session struct {
	ID    types.SessionID `json:"id" cbor:"0,keyasint"`
	Game  types.GameKind  `json:"game" cbor:"1,keyasint"`
	Phase Phase           `json:"phase" cbor:"2,keyasint"`
	// Stage is the game specific substate while the phase is in progress.
	Stage string `json:"stage,omitempty" cbor:"3,keyasint,omitempty"`
	// Turn is the slot of the active participant.
	Turn int `json:"turn" cbor:"4,keyasint"`
	// Awaiting are the slots the session is waiting on.
	Awaiting     []int                    `json:"awaiting" cbor:"5,keyasint"`
	Participants []*Participant           `json:"participants" cbor:"6,keyasint"`
	Options      map[string]int64         `json:"options" cbor:"7,keyasint"`
	Params       map[string]*types.BigInt `json:"params" cbor:"8,keyasint"`
	Counters     map[string]int64         `json:"counters" cbor:"9,keyasint"`
	SharedSeed   types.HexBytes           `json:"sharedSeed,omitempty" cbor:"10,keyasint,omitempty"`
	// ConsumedRoot is the root of the consumed identifier tree.
	ConsumedRoot *types.BigInt `json:"consumedRoot,omitempty" cbor:"11,keyasint,omitempty"`
	Outcome      *Outcome      `json:"outcome,omitempty" cbor:"12,keyasint,omitempty"`
	// Sequence counts the accepted transitions. Signed requests include it
	// so they cannot be replayed.
	Sequence  uint64 `json:"sequence" cbor:"13,keyasint"`
	CreatedAt int64  `json:"createdAt" cbor:"14,keyasint"`
	UpdatedAt int64  `json:"updatedAt" cbor:"15,keyasint"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() (*Session, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, err
	}
	clone := &Session{}
	if err := cbor.Unmarshal(data, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// Slot returns the slot of addr.
func (s *Session) Slot(addr common.Address) (int, error) {
	for i, p := range s.Participants {
		if p != nil && p.Address == addr {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotParticipant, addr.Hex())
}

// Participant returns the participant at slot.
func (s *Session) Participant(slot int) *Participant {
	if slot < 0 || slot >= len(s.Participants) {
		return nil
	}
	return s.Participants[slot]
}

// Other returns the opponent slot.
func Other(slot int) int {
	return 1 - slot
}

// Option returns a session option, zero if unset.
func (s *Session) Option(name string) int64 {
	return s.Options[name]
}

// SetDefaultOption sets an option if it was not provided.
func (s *Session) SetDefaultOption(name string, v int64) {
	if s.Options == nil {
		s.Options = make(map[string]int64)
	}
	if _, ok := s.Options[name]; !ok {
		s.Options[name] = v
	}
}

// Param returns a public parameter of the session, nil if unset.
func (s *Session) Param(name string) *big.Int {
	if v, ok := s.Params[name]; ok && v != nil {
		return v.MathBigInt()
	}
	return nil
}

// SetParam sets a public parameter of the session.
func (s *Session) SetParam(name string, v *big.Int) {
	if s.Params == nil {
		s.Params = make(map[string]*types.BigInt)
	}
	s.Params[name] = types.FromBigInt(v)
}

// DeleteParam removes a public parameter of the session.
func (s *Session) DeleteParam(name string) {
	delete(s.Params, name)
}

// Counter returns a public accumulator of the session.
func (s *Session) Counter(name string) int64 {
	return s.Counters[name]
}

// SetCounter sets a public accumulator of the session.
func (s *Session) SetCounter(name string, v int64) {
	if s.Counters == nil {
		s.Counters = make(map[string]int64)
	}
	s.Counters[name] = v
}

// AddCounter adds delta to a public accumulator and returns the new value.
func (s *Session) AddCounter(name string, delta int64) int64 {
	s.SetCounter(name, s.Counter(name)+delta)
	return s.Counters[name]
}

// Finish completes the session. winner is a slot or Draw.
func (s *Session) Finish(winner int, reason string) {
	s.Phase = PhaseComplete
	s.Stage = ""
	s.Awaiting = nil
	s.Outcome = &Outcome{Winner: winner, Reason: reason}
}
