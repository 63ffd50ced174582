// Package deadmansdraw implements the push-your-luck card game. On its turn a
// player draws cards from its committed deck, adding their ranks to the turn
// score, until it banks the turn or draws a suit twice and busts, losing the
// turn score. The drawn suits stay private behind the suit mask commitment,
// the ranks are public.
package deadmansdraw

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/circuits/bust"
	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// StageDraw is the only stage: the active player draws or banks.
const StageDraw = "draw"

// ActionBank ends the turn keeping the turn score.
const ActionBank = "bank"

// Setup fields submitted with the randomness commitment.
const (
	SetupDeck = "deck"
	SetupKey  = "key"
)

// Session options and their defaults.
const (
	OptionWinScore = "winScore"
	OptionMaxBusts = "maxBusts"

	DefaultWinScore = 60
	DefaultMaxBusts = 3
)

const (
	mask = "mask"

	deckRoot = "deck"
	keyHash  = "key"

	score = "score"
	busts = "busts"
	drawn = "drawn"

	turnScore = "turnScore"
	turnCards = "turnCards"
	turns     = "turns"
)

const nullifierMask = 1<<48 - 1

// DrawOrder returns the order a player draws the leaves of its deck.
func DrawOrder(shared []byte, slot int) []int {
	return randomness.Permutation(shared, fmt.Sprintf("deadmansdraw/deck/%d", slot), circuits.DeadMansDeckSize)
}

// Rules are the dead man's draw rules.
type Rules struct{}

// New returns the dead man's draw rules.
func New() *Rules {
	return &Rules{}
}

func (*Rules) Game() types.GameKind {
	return types.GameDeadMansDraw
}

func (*Rules) Init(s *session.Session) error {
	s.SetDefaultOption(OptionWinScore, DefaultWinScore)
	s.SetDefaultOption(OptionMaxBusts, DefaultMaxBusts)
	if w := s.Option(OptionWinScore); w <= 0 {
		return session.InvalidAction("invalid win score %d", w)
	}
	if b := s.Option(OptionMaxBusts); b <= 0 {
		return session.InvalidAction("invalid max busts %d", b)
	}
	return nil
}

// Setup stores the deck root and the hash of the nullifier key.
func (*Rules) Setup(s *session.Session, slot int, setup map[string]*types.BigInt) error {
	values := make(map[string]*big.Int, 2)
	for _, name := range []string{SetupDeck, SetupKey} {
		v, ok := setup[name]
		if !ok || v == nil {
			return session.InvalidAction("missing setup %q", name)
		}
		values[name] = v.MathBigInt()
	}
	if len(setup) != len(values) {
		return session.InvalidAction("unexpected setup fields")
	}
	p := s.Participant(slot)
	p.SetParam(deckRoot, values[SetupDeck])
	p.SetParam(keyHash, values[SetupKey])
	return nil
}

func (*Rules) Ready(s *session.Session, slot int) bool {
	return s.Participant(slot).Param(deckRoot) != nil
}

func (*Rules) Start(s *session.Session) error {
	for _, p := range s.Participants {
		p.SetCounter(score, 0)
		p.SetCounter(busts, 0)
		p.SetCounter(drawn, 0)
	}
	s.Stage = StageDraw
	startTurn(s)
	return nil
}

func (*Rules) Stale(s *session.Session, slot int, p *types.Proof) error {
	if p.Circuit != types.CircuitBust {
		return nil
	}
	return session.CheckRefs(s.Participant(slot), p, session.Ref{Signal: 3, Field: mask})
}

func (*Rules) Allowed(s *session.Session, slot int, circuit types.CircuitID) error {
	if s.Stage != StageDraw || slot != s.Turn || circuit != types.CircuitBust {
		return session.PhaseViolation("%s proof from slot %d not allowed in stage %s", circuit, slot, s.Stage)
	}
	return nil
}

func (*Rules) ApplyProof(s *session.Session, slot int, p *types.Proof) ([]session.Identifier, error) {
	signals, err := session.Signals(p, 8)
	if err != nil {
		return nil, err
	}
	player := s.Participant(slot)
	if err := session.CheckParam(deckRoot, player.Param(deckRoot), signals[0]); err != nil {
		return nil, err
	}
	if err := session.CheckParam(keyHash, player.Param(keyHash), signals[1]); err != nil {
		return nil, err
	}
	order := DrawOrder(s.SharedSeed, slot)
	next := player.Counter(drawn)
	if next >= int64(len(order)) {
		return nil, session.PhaseViolation("deck exhausted")
	}
	leaf := int64(order[next])
	if err := session.CheckInt("leafIndex", leaf, signals[2]); err != nil {
		return nil, err
	}
	if err := session.CheckCommitment(player, mask, signals[3]); err != nil {
		return nil, err
	}
	rank, err := session.Int("rank", signals[5], circuits.DeadMansRanks)
	if err != nil {
		return nil, err
	}
	if rank < 1 {
		return nil, fmt.Errorf("%w: rank out of range", session.ErrParameterMismatch)
	}
	busted, err := session.Bool("isBust", signals[6])
	if err != nil {
		return nil, err
	}
	nullifier := new(big.Int).And(signals[7], big.NewInt(nullifierMask))
	consumed := []session.Identifier{
		{Kind: state.KindDeckLeaf, Slot: slot, ID: uint64(leaf)},
		{Kind: state.KindCard, Slot: slot, ID: nullifier.Uint64()},
	}
	player.AddCounter(drawn, 1)
	if busted {
		if player.AddCounter(busts, 1) >= s.Option(OptionMaxBusts) {
			finish(s)
			return consumed, nil
		}
		endTurn(s)
		return consumed, nil
	}
	s.AddCounter(turnScore, rank)
	s.AddCounter(turnCards, 1)
	player.SetCommitment(mask, signals[4])
	if player.Counter(drawn) >= circuits.DeadMansDeckSize {
		bank(s)
	}
	return consumed, nil
}

func (*Rules) ApplyAction(s *session.Session, slot int, a *session.Action) error {
	if slot != s.Turn {
		return session.PhaseViolation("%s out of turn", a.Type)
	}
	switch a.Type {
	case ActionBank:
		if s.Counter(turnCards) == 0 {
			return session.PhaseViolation("nothing to bank, draw first")
		}
		bank(s)
	default:
		return session.InvalidAction("unknown dead man's draw action %q", a.Type)
	}
	return nil
}

func (*Rules) Awaiting(s *session.Session) []int {
	return []int{s.Turn}
}

// bank adds the turn score of the active player and ends its turn.
func bank(s *session.Session) {
	if s.Participant(s.Turn).AddCounter(score, s.Counter(turnScore)) >= s.Option(OptionWinScore) {
		finish(s)
		return
	}
	endTurn(s)
}

// endTurn passes the turn to the opponent, or back to the active player
// once the opponent deck is exhausted.
func endTurn(s *session.Session) {
	s.AddCounter(turns, 1)
	next := session.Other(s.Turn)
	switch {
	case s.Participant(next).Counter(drawn) < circuits.DeadMansDeckSize:
		s.Turn = next
	case s.Participant(s.Turn).Counter(drawn) >= circuits.DeadMansDeckSize:
		finish(s)
		return
	}
	startTurn(s)
}

// startTurn resets the turn score and the suit masks.
func startTurn(s *session.Session) {
	s.SetCounter(turnScore, 0)
	s.SetCounter(turnCards, 0)
	for _, p := range s.Participants {
		p.SetCommitment(mask, bust.EmptyMaskCommitment())
	}
}

// finish ends the game. A player reaching the win score wins, then a player
// whose opponent busted out, then the higher score. Equal scores draw.
func finish(s *session.Session) {
	win, limit := s.Option(OptionWinScore), s.Option(OptionMaxBusts)
	p0, p1 := s.Participant(0), s.Participant(1)
	switch {
	case p0.Counter(score) >= win:
		s.Finish(0, "score")
	case p1.Counter(score) >= win:
		s.Finish(1, "score")
	case p1.Counter(busts) >= limit:
		s.Finish(0, "busts")
	case p0.Counter(busts) >= limit:
		s.Finish(1, "busts")
	case p0.Counter(score) > p1.Counter(score):
		s.Finish(0, "exhausted")
	case p1.Counter(score) > p0.Counter(score):
		s.Finish(1, "exhausted")
	default:
		s.Finish(session.Draw, "exhausted")
	}
}
