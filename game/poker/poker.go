// Package poker implements a heads-up five card showdown played over up to
// four betting streets. Hands are dealt privately and committed during the
// session setup; the betting is public and the showdown proof reveals only
// the hand ranks and the winner. There are no community cards.
package poker

import (
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/types"
)

// Stages of a hand.
const (
	StagePreflop  = "preflop"
	StageFlop     = "flop"
	StageTurn     = "turn"
	StageRiver    = "river"
	StageShowdown = "showdown"
)

// streets are the betting stages in order.
var streets = []string{StagePreflop, StageFlop, StageTurn, StageRiver}

// Betting actions.
const (
	ActionFold  = "fold"
	ActionCheck = "check"
	ActionCall  = "call"
	ActionBet   = "bet"
	ActionRaise = "raise"
	ActionAllIn = "all-in"
)

// SetupHand is the hand commitment submitted with the randomness
// commitment.
const SetupHand = "hand"

// Session options and their defaults.
const (
	OptionAnte    = "ante"
	OptionStack   = "stack"
	OptionStreets = "streets"

	DefaultAnte    = 10
	DefaultStack   = 1000
	DefaultStreets = 4
)

const (
	hand = "hand"

	stack      = "stack"
	bet        = "bet"
	pot        = "pot"
	actions    = "actions"
	lastRaise  = "lastRaise"
	lastAction = "lastAction"
	street     = "street"
	opener     = "opener"
)

// action codes stored in the lastAction counter
var actionCodes = map[string]int64{
	ActionFold:  1,
	ActionCheck: 2,
	ActionCall:  3,
	ActionBet:   4,
	ActionRaise: 5,
	ActionAllIn: 6,
}

// Rules are the poker rules.
type Rules struct{}

// New returns the poker rules.
func New() *Rules {
	return &Rules{}
}

func (*Rules) Game() types.GameKind {
	return types.GamePoker
}

func (*Rules) Init(s *session.Session) error {
	s.SetDefaultOption(OptionAnte, DefaultAnte)
	s.SetDefaultOption(OptionStack, DefaultStack)
	s.SetDefaultOption(OptionStreets, DefaultStreets)
	ante, st := s.Option(OptionAnte), s.Option(OptionStack)
	if ante < 0 || st <= ante {
		return session.InvalidAction("invalid ante %d for stack %d", ante, st)
	}
	if n := s.Option(OptionStreets); n < 1 || n > int64(len(streets)) {
		return session.InvalidAction("streets must be in [1, %d], got %d", len(streets), n)
	}
	return nil
}

func (*Rules) Setup(s *session.Session, slot int, setup map[string]*types.BigInt) error {
	c, ok := setup[SetupHand]
	if !ok || c == nil || len(setup) != 1 {
		return session.InvalidAction("setup must hold only the hand commitment")
	}
	s.Participant(slot).SetCommitment(hand, c.MathBigInt())
	return nil
}

func (*Rules) Ready(s *session.Session, slot int) bool {
	return s.Participant(slot).Commitment(hand) != nil
}

// Start collects the antes. The starting slot opens every street.
func (*Rules) Start(s *session.Session) error {
	ante := s.Option(OptionAnte)
	for _, p := range s.Participants {
		p.SetCounter(stack, s.Option(OptionStack)-ante)
	}
	s.SetCounter(pot, ante*int64(len(s.Participants)))
	s.SetCounter(street, 0)
	s.SetCounter(opener, int64(s.Turn))
	resetRound(s)
	s.Stage = streets[0]
	return nil
}

// resetRound clears the bets and the action history of a betting round.
func resetRound(s *session.Session) {
	for _, p := range s.Participants {
		p.SetCounter(bet, 0)
	}
	s.SetCounter(actions, 0)
	s.SetCounter(lastRaise, 0)
	s.SetCounter(lastAction, 0)
}

// nextStreet closes a betting round. The hand goes to showdown after the
// last street or once a player is all-in.
func nextStreet(s *session.Session) {
	refundExcess(s)
	resetRound(s)
	next := s.AddCounter(street, 1)
	allIn := s.Participant(0).Counter(stack) == 0 || s.Participant(1).Counter(stack) == 0
	if next >= s.Option(OptionStreets) || allIn {
		s.Stage = StageShowdown
		return
	}
	s.Stage = streets[next]
	s.Turn = int(s.Counter(opener))
}

func betting(stage string) bool {
	for _, st := range streets {
		if st == stage {
			return true
		}
	}
	return false
}

func (*Rules) Stale(s *session.Session, _ int, p *types.Proof) error {
	if p.Circuit != types.CircuitShowdown {
		return nil
	}
	for slot, participant := range s.Participants {
		if err := session.CheckRefs(participant, p, session.Ref{Signal: slot, Field: hand}); err != nil {
			return err
		}
	}
	return nil
}

func (*Rules) Allowed(s *session.Session, slot int, circuit types.CircuitID) error {
	if s.Stage != StageShowdown || circuit != types.CircuitShowdown {
		return session.PhaseViolation("%s proof not allowed in stage %s", circuit, s.Stage)
	}
	return nil
}

// ApplyProof settles the showdown. Both hand commitments must be the
// committed ones; the pot goes to the winner or is split on a draw, the odd
// chip going to slot 0.
func (*Rules) ApplyProof(s *session.Session, _ int, p *types.Proof) ([]session.Identifier, error) {
	signals, err := session.Signals(p, 5)
	if err != nil {
		return nil, err
	}
	for slot := range s.Participants {
		if err := session.CheckCommitment(s.Participant(slot), hand, signals[slot]); err != nil {
			return nil, err
		}
	}
	if _, err := session.Int("rankA", signals[2], 9); err != nil {
		return nil, err
	}
	if _, err := session.Int("rankB", signals[3], 9); err != nil {
		return nil, err
	}
	winner, err := session.Int("winner", signals[4], 2)
	if err != nil {
		return nil, err
	}
	total := s.Counter(pot)
	s.SetCounter(pot, 0)
	if winner == 0 {
		half := total / 2
		s.Participant(0).AddCounter(stack, total-half)
		s.Participant(1).AddCounter(stack, half)
		s.Finish(session.Draw, "showdown")
		return nil, nil
	}
	s.Participant(int(winner)-1).AddCounter(stack, total)
	s.Finish(int(winner)-1, "showdown")
	return nil, nil
}

func (*Rules) ApplyAction(s *session.Session, slot int, a *session.Action) error {
	if !betting(s.Stage) {
		return session.PhaseViolation("cannot %s in stage %s", a.Type, s.Stage)
	}
	if slot != s.Turn {
		return session.PhaseViolation("%s out of turn", a.Type)
	}
	code, ok := actionCodes[a.Type]
	if !ok {
		return session.InvalidAction("unknown poker action %q", a.Type)
	}
	player, opponent := s.Participant(slot), s.Participant(session.Other(slot))
	playerBet, opponentBet := player.Counter(bet), opponent.Counter(bet)
	playerStack := player.Counter(stack)

	// put moves chips from the stack of the player to the pot
	put := func(amount int64) {
		player.AddCounter(stack, -amount)
		player.AddCounter(bet, amount)
		s.AddCounter(pot, amount)
	}

	switch a.Type {
	case ActionFold:
		opponent.AddCounter(stack, s.Counter(pot))
		s.SetCounter(pot, 0)
		s.Finish(session.Other(slot), "fold")
		return nil
	case ActionCheck:
		if opponentBet > playerBet {
			return session.InvalidAction("cannot check facing a bet of %d", opponentBet)
		}
	case ActionCall:
		amount := opponentBet - playerBet
		if amount <= 0 {
			return session.InvalidAction("nothing to call, check instead")
		}
		if amount > playerStack {
			return session.InvalidAction("not enough chips to call %d", amount)
		}
		put(amount)
	case ActionBet:
		amount, err := a.Int("amount")
		if err != nil {
			return err
		}
		if opponentBet > 0 || playerBet > 0 {
			return session.InvalidAction("cannot bet after a bet, raise instead")
		}
		if amount <= 0 || amount > playerStack {
			return session.InvalidAction("invalid bet %d", amount)
		}
		put(amount)
		s.SetCounter(lastRaise, amount)
	case ActionRaise:
		amount, err := a.Int("amount")
		if err != nil {
			return err
		}
		if opponentBet <= playerBet {
			return session.InvalidAction("nothing to raise, bet instead")
		}
		minTotal := opponentBet + max(s.Counter(lastRaise), opponentBet)
		if amount <= opponentBet || amount < minTotal || amount > playerStack+playerBet {
			return session.InvalidAction("raise to %d out of [%d, %d]", amount, minTotal, playerStack+playerBet)
		}
		put(amount - playerBet)
		s.SetCounter(lastRaise, amount-opponentBet)
	case ActionAllIn:
		if playerStack == 0 {
			return session.InvalidAction("already all-in")
		}
		put(playerStack)
	}
	s.SetCounter(lastAction, code)
	s.AddCounter(actions, 1)
	if roundComplete(s) {
		nextStreet(s)
		return nil
	}
	s.Turn = session.Other(slot)
	return nil
}

// roundComplete reports whether the betting round is over: both players
// acted, the bets are equal and the last action closes the round. A player
// that goes all-in for less than the opponent bet also closes it.
func roundComplete(s *session.Session) bool {
	if s.Counter(actions) < 2 {
		return false
	}
	a, b := s.Participant(0), s.Participant(1)
	last := s.Counter(lastAction)
	if a.Counter(bet) != b.Counter(bet) {
		if last != actionCodes[ActionAllIn] {
			return false
		}
		allIn := s.Participant(s.Turn)
		return allIn.Counter(bet) < s.Participant(session.Other(s.Turn)).Counter(bet)
	}
	if a.Counter(stack) == 0 || b.Counter(stack) == 0 {
		return true
	}
	switch last {
	case actionCodes[ActionCall], actionCodes[ActionAllIn]:
		return true
	case actionCodes[ActionCheck]:
		return a.Counter(bet) == 0 && b.Counter(bet) == 0
	}
	return false
}

// refundExcess returns the part of the higher bet the opponent could not
// match.
func refundExcess(s *session.Session) {
	a, b := s.Participant(0), s.Participant(1)
	high, low := a, b
	if b.Counter(bet) > a.Counter(bet) {
		high, low = b, a
	}
	excess := high.Counter(bet) - low.Counter(bet)
	if excess == 0 {
		return
	}
	high.AddCounter(bet, -excess)
	high.AddCounter(stack, excess)
	s.AddCounter(pot, -excess)
}

func (*Rules) Awaiting(s *session.Session) []int {
	if s.Stage == StageShowdown {
		return []int{0, 1}
	}
	return []int{s.Turn}
}
