package session

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// Rules are the game specific part of the state machine. Every method
// receives a copy of the session that is discarded if an error is
// returned, so implementations can mutate it freely.
type Rules interface {
	// Game returns the game the rules implement.
	Game() types.GameKind
	// Init validates the options of a new session and fills the defaults.
	Init(s *Session) error
	// Setup applies the public setup of a participant, submitted together
	// with its randomness commitment.
	Setup(s *Session, slot int, setup map[string]*types.BigInt) error
	// Ready reports whether the participant setup is complete.
	Ready(s *Session, slot int) bool
	// Start is called once the shared seed is known, to derive the public
	// layout and the first stage.
	Start(s *Session) error
	// Stale checks the commitments referenced by a proof of slot against
	// the stored ones and returns an ErrCommitmentMismatch error if they
	// were already replaced. It runs before Allowed.
	Stale(s *Session, slot int, p *types.Proof) error
	// Allowed checks that the circuit can be submitted by slot in the
	// current stage. It must return an ErrPhaseViolation error otherwise.
	Allowed(s *Session, slot int, circuit types.CircuitID) error
	// ApplyProof applies a verified proof and returns the identifiers it
	// consumes.
	ApplyProof(s *Session, slot int, p *types.Proof) ([]Identifier, error)
	// ApplyAction applies a public action.
	ApplyAction(s *Session, slot int, a *Action) error
	// Awaiting returns the slots the session is waiting on.
	Awaiting(s *Session) []int
}

// Identifier is a one-time resource consumed by a transition.
type Identifier struct {
	Kind state.Kind
	Slot int
	ID   uint64
}

// Key returns the consumed set key of the identifier.
func (id Identifier) Key() ([]byte, error) {
	return state.Key(id.Kind, id.Slot, id.ID)
}

// ActionForfeit is handled by the machine for every game: the caller
// concedes and the opponent wins.
const ActionForfeit = "forfeit"

// Action is a public (proof-less) action.
type Action struct {
	Type string                   `json:"type"`
	Args map[string]*types.BigInt `json:"args,omitempty"`
}

// NewAction returns an action with integer arguments.
func NewAction(typ string, args map[string]int64) *Action {
	a := &Action{Type: typ}
	for k, v := range args {
		a.Set(k, big.NewInt(v))
	}
	return a
}

// Set sets an argument.
func (a *Action) Set(name string, v *big.Int) *Action {
	if a.Args == nil {
		a.Args = make(map[string]*types.BigInt)
	}
	a.Args[name] = types.FromBigInt(v)
	return a
}

// Big returns an argument.
func (a *Action) Big(name string) (*big.Int, error) {
	v, ok := a.Args[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: missing argument %q", ErrInvalidAction, name)
	}
	return v.MathBigInt(), nil
}

// Int returns an argument that must fit in an int64.
func (a *Action) Int(name string) (int64, error) {
	v, err := a.Big(name)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: argument %q out of range", ErrInvalidAction, name)
	}
	return v.Int64(), nil
}
