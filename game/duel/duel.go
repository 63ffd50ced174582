// Package duel implements the rules of the card duel. Decks, hands and the
// monster on the field are private behind commitments, life points and the
// card catalog are public. Every turn goes through a draw, a main and a
// battle stage; an attack against a defended field is answered by the
// defender with a battle proof.
package duel

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/circuits/draw"
	"github.com/vocdoni/zkgames/circuits/summon"
	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// Stages of a turn.
const (
	StageDraw   = "draw"
	StageMain   = "main"
	StageBattle = "battle"
	// StageBlock waits for the battle proof of the defender.
	StageBlock = "block"
)

// Public actions.
const (
	ActionSkipDraw = "skip-draw"
	ActionEndMain  = "end-main"
	ActionAttack   = "attack"
	ActionEndTurn  = "end-turn"
)

// Setup fields submitted with the randomness commitment.
const (
	SetupDeck      = "deck"
	SetupHandSalt  = "handSalt"
	SetupFieldSalt = "fieldSalt"
)

// Session options and their defaults.
const (
	OptionLifePoints = "lifePoints"
	OptionDeckSize   = "deckSize"

	DefaultLifePoints = 8000
	DefaultDeckSize   = 1 << circuits.DeckDepth
)

const (
	hand  = "hand"
	field = "field"

	deckRoot    = "deck"
	catalogRoot = "catalog"
	attack      = "attack"
	emptyField  = "attackerEmptyField"

	lifePoints = "lifePoints"
	drawn      = "drawn"
	occupied   = "fieldOccupied"
	turns      = "turns"
)

// DefaultCatalog returns the catalog of the duel: a card for every id.
func DefaultCatalog() []summon.Card {
	cards := make([]summon.Card, circuits.CatalogSize)
	for i := range cards {
		id := int64(i + 1)
		cards[i] = summon.Card{
			ID:      id,
			Attack:  100 * ((id*7)%25 + 5),
			Defense: 100 * ((id*11)%25 + 3),
		}
	}
	return cards
}

// DrawOrder returns the order a player draws the leaves of its deck.
func DrawOrder(shared []byte, slot int, deckSize int) []int {
	return randomness.Permutation(shared, fmt.Sprintf("duel/deck/%d", slot), deckSize)
}

// Rules are the duel rules over a card catalog.
type Rules struct {
	catalog *summon.Catalog
}

// New returns the duel rules over the default catalog.
func New() (*Rules, error) {
	return NewWithCatalog(DefaultCatalog())
}

// NewWithCatalog returns the duel rules over the given cards.
func NewWithCatalog(cards []summon.Card) (*Rules, error) {
	catalog, err := summon.NewCatalog(cards)
	if err != nil {
		return nil, err
	}
	return &Rules{catalog: catalog}, nil
}

// Catalog returns the catalog of the duel.
func (r *Rules) Catalog() *summon.Catalog {
	return r.catalog
}

func (*Rules) Game() types.GameKind {
	return types.GameDuel
}

func (r *Rules) Init(s *session.Session) error {
	s.SetDefaultOption(OptionLifePoints, DefaultLifePoints)
	s.SetDefaultOption(OptionDeckSize, DefaultDeckSize)
	if lp := s.Option(OptionLifePoints); lp <= 0 {
		return session.InvalidAction("invalid life points %d", lp)
	}
	if n := s.Option(OptionDeckSize); !circuits.InRange(n, 1, DefaultDeckSize) {
		return session.InvalidAction("invalid deck size %d", n)
	}
	s.SetParam(catalogRoot, r.catalog.Root())
	return nil
}

// Setup stores the deck root and derives the empty hand and field
// commitments from the salts.
func (*Rules) Setup(s *session.Session, slot int, setup map[string]*types.BigInt) error {
	values := make(map[string]*big.Int, 3)
	for _, name := range []string{SetupDeck, SetupHandSalt, SetupFieldSalt} {
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
	p.SetCommitment(hand, draw.Hand{}.Commitment(values[SetupHandSalt]))
	p.SetCommitment(field, summon.EmptyField(values[SetupFieldSalt]))
	return nil
}

func (*Rules) Ready(s *session.Session, slot int) bool {
	return s.Participant(slot).Param(deckRoot) != nil
}

func (*Rules) Start(s *session.Session) error {
	for _, p := range s.Participants {
		p.SetCounter(lifePoints, s.Option(OptionLifePoints))
		p.SetCounter(drawn, 0)
		p.SetCounter(occupied, 0)
	}
	startTurn(s)
	return nil
}

func (*Rules) Stale(s *session.Session, slot int, p *types.Proof) error {
	player := s.Participant(slot)
	switch p.Circuit {
	case types.CircuitDraw:
		return session.CheckRefs(player, p, session.Ref{Signal: 2, Field: hand})
	case types.CircuitSummon:
		return session.CheckRefs(player, p,
			session.Ref{Signal: 0, Field: hand}, session.Ref{Signal: 2, Field: field})
	case types.CircuitBattle:
		return session.CheckRefs(player, p, session.Ref{Signal: 0, Field: field})
	}
	return nil
}

func (*Rules) Allowed(s *session.Session, slot int, circuit types.CircuitID) error {
	ok := false
	switch s.Stage {
	case StageDraw:
		ok = slot == s.Turn && circuit == types.CircuitDraw
	case StageMain:
		ok = slot == s.Turn && circuit == types.CircuitSummon
	case StageBlock:
		ok = slot == session.Other(s.Turn) && circuit == types.CircuitBattle
	}
	if !ok {
		return session.PhaseViolation("%s proof from slot %d not allowed in stage %s", circuit, slot, s.Stage)
	}
	return nil
}

func (r *Rules) ApplyProof(s *session.Session, slot int, p *types.Proof) ([]session.Identifier, error) {
	switch p.Circuit {
	case types.CircuitDraw:
		return r.draw(s, slot, p)
	case types.CircuitSummon:
		return nil, r.summon(s, slot, p)
	case types.CircuitBattle:
		return nil, r.battle(s, slot, p)
	}
	return nil, session.PhaseViolation("%s is not a duel circuit", p.Circuit)
}

func (*Rules) draw(s *session.Session, slot int, p *types.Proof) ([]session.Identifier, error) {
	signals, err := session.Signals(p, 4)
	if err != nil {
		return nil, err
	}
	player := s.Participant(slot)
	if err := session.CheckParam(deckRoot, player.Param(deckRoot), signals[0]); err != nil {
		return nil, err
	}
	order := DrawOrder(s.SharedSeed, slot, int(s.Option(OptionDeckSize)))
	next := player.Counter(drawn)
	if next >= int64(len(order)) {
		return nil, session.PhaseViolation("deck exhausted")
	}
	leaf := int64(order[next])
	if err := session.CheckInt("leafIndex", leaf, signals[1]); err != nil {
		return nil, err
	}
	if err := session.CheckCommitment(player, hand, signals[2]); err != nil {
		return nil, err
	}
	player.SetCommitment(hand, signals[3])
	player.AddCounter(drawn, 1)
	s.Stage = StageMain
	return []session.Identifier{{Kind: state.KindDeckLeaf, Slot: slot, ID: uint64(leaf)}}, nil
}

func (*Rules) summon(s *session.Session, slot int, p *types.Proof) error {
	signals, err := session.Signals(p, 5)
	if err != nil {
		return err
	}
	player := s.Participant(slot)
	if player.Counter(occupied) != 0 {
		return session.PhaseViolation("field is not empty")
	}
	if err := session.CheckCommitment(player, hand, signals[0]); err != nil {
		return err
	}
	if err := session.CheckCommitment(player, field, signals[2]); err != nil {
		return err
	}
	if err := session.CheckParam(catalogRoot, s.Param(catalogRoot), signals[4]); err != nil {
		return err
	}
	player.SetCommitment(hand, signals[1])
	player.SetCommitment(field, signals[3])
	player.SetCounter(occupied, 1)
	return nil
}

func (*Rules) battle(s *session.Session, slot int, p *types.Proof) error {
	signals, err := session.Signals(p, 6)
	if err != nil {
		return err
	}
	defender := s.Participant(slot)
	attacker := s.Participant(s.Turn)
	if err := session.CheckCommitment(defender, field, signals[0]); err != nil {
		return err
	}
	if err := session.CheckParam(attack, s.Param(attack), signals[2]); err != nil {
		return err
	}
	attackerDestroyed, err := session.Bool("attackerDestroyed", signals[3])
	if err != nil {
		return err
	}
	defenderDestroyed, err := session.Bool("defenderDestroyed", signals[4])
	if err != nil {
		return err
	}
	dmg, err := session.Int("damage", signals[5], 1<<circuits.StatBits-1)
	if err != nil {
		return err
	}
	defender.SetCommitment(field, signals[1])
	if defenderDestroyed {
		defender.SetCounter(occupied, 0)
	}
	if attackerDestroyed {
		attacker.SetCommitment(field, s.Param(emptyField))
		attacker.SetCounter(occupied, 0)
	}
	s.DeleteParam(attack)
	s.DeleteParam(emptyField)
	if attacker.AddCounter(lifePoints, -dmg) <= 0 {
		s.Finish(slot, "lifePoints")
		return nil
	}
	endTurn(s)
	return nil
}

func (r *Rules) ApplyAction(s *session.Session, slot int, a *session.Action) error {
	if slot != s.Turn {
		return session.PhaseViolation("%s out of turn", a.Type)
	}
	switch a.Type {
	case ActionSkipDraw:
		if s.Stage != StageDraw {
			return session.PhaseViolation("cannot skip the draw in stage %s", s.Stage)
		}
		s.Stage = StageMain
	case ActionEndMain:
		if s.Stage != StageMain {
			return session.PhaseViolation("cannot end the main stage in stage %s", s.Stage)
		}
		s.Stage = StageBattle
	case ActionEndTurn:
		if s.Stage != StageMain && s.Stage != StageBattle {
			return session.PhaseViolation("cannot end the turn in stage %s", s.Stage)
		}
		endTurn(s)
	case ActionAttack:
		if s.Stage != StageBattle {
			return session.PhaseViolation("cannot attack in stage %s", s.Stage)
		}
		return r.attack(s, slot, a)
	default:
		return session.InvalidAction("unknown duel action %q", a.Type)
	}
	return nil
}

// attack opens the field of the attacker. The opening is checked against
// the stored commitment and the catalog.
func (r *Rules) attack(s *session.Session, slot int, a *session.Action) error {
	attacker := s.Participant(slot)
	if attacker.Counter(occupied) == 0 {
		return session.InvalidAction("no card on the field")
	}
	var card summon.Card
	var err error
	if card.ID, err = a.Int("cardId"); err != nil {
		return err
	}
	if card.Attack, err = a.Int("attack"); err != nil {
		return err
	}
	if card.Defense, err = a.Int("defense"); err != nil {
		return err
	}
	salt, err := a.Big("salt")
	if err != nil {
		return err
	}
	if listed, ok := r.catalog.Card(card.ID); !ok || listed != card {
		return session.InvalidAction("card %d is not in the catalog", card.ID)
	}
	if err := session.CheckCommitment(attacker, field, card.FieldCommitment(salt)); err != nil {
		return err
	}
	defender := s.Participant(session.Other(slot))
	if defender.Counter(occupied) == 0 {
		if defender.AddCounter(lifePoints, -card.Attack) <= 0 {
			s.Finish(slot, "lifePoints")
			return nil
		}
		endTurn(s)
		return nil
	}
	newSalt, err := a.Big("emptySalt")
	if err != nil {
		return err
	}
	s.SetParam(attack, big.NewInt(card.Attack))
	s.SetParam(emptyField, summon.EmptyField(newSalt))
	s.Stage = StageBlock
	return nil
}

func (*Rules) Awaiting(s *session.Session) []int {
	if s.Stage == StageBlock {
		return []int{session.Other(s.Turn)}
	}
	return []int{s.Turn}
}

func endTurn(s *session.Session) {
	s.Turn = session.Other(s.Turn)
	s.AddCounter(turns, 1)
	startTurn(s)
}

// startTurn opens the turn of the active player with a draw, or with the
// main stage once its deck is exhausted.
func startTurn(s *session.Session) {
	if s.Participant(s.Turn).Counter(drawn) >= s.Option(OptionDeckSize) {
		s.Stage = StageMain
		return
	}
	s.Stage = StageDraw
}
