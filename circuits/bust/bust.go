// Package bust implements the draw of dead man's draw: a card is taken from
// a committed deck and checked against the committed set of suits already
// drawn in the turn. Drawing a suit twice busts. The rank of the card is
// public, its suit stays behind the suit mask commitment.
package bust

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
	"github.com/vocdoni/zkgames/crypto/merkle"
)

type Circuit struct {
	DeckRoot          frontend.Variable `gnark:",public"`
	KeyHash           frontend.Variable `gnark:",public"`
	LeafIndex         frontend.Variable `gnark:",public"`
	OldMaskCommitment frontend.Variable `gnark:",public"`
	NewMaskCommitment frontend.Variable `gnark:",public"`
	Rank              frontend.Variable `gnark:",public"`
	IsBust            frontend.Variable `gnark:",public"`
	Nullifier         frontend.Variable `gnark:",public"`

	Suit         frontend.Variable
	CardSalt     frontend.Variable
	DeckSiblings [circuits.DeadMansDeckDepth]frontend.Variable
	Key          frontend.Variable
	OldMask      frontend.Variable
	OldMaskSalt  frontend.Variable
	NewMaskSalt  frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	v.And(circuits.RangeCheck(api, c.Suit, 0, circuits.DeadMansSuits-1, circuits.StatBits))
	v.And(circuits.RangeCheck(api, c.Rank, 1, circuits.DeadMansRanks, circuits.StatBits))
	card := api.Sub(api.Add(api.Mul(c.Suit, circuits.DeadMansRanks), c.Rank), 1)
	if err := c.checkCard(api, v, card); err != nil {
		return err
	}
	if err := c.checkMask(api, v); err != nil {
		return err
	}
	v.Assert()
	return nil
}

func (c *Circuit) checkCard(api frontend.API, v *circuits.Validity, card frontend.Variable) error {
	leaf, err := circuits.Hash(api, card, c.CardSalt)
	if err != nil {
		return err
	}
	included, err := circuits.VerifyMerkleIndex(api, c.DeckRoot, leaf, c.LeafIndex, c.DeckSiblings[:])
	if err != nil {
		return err
	}
	v.And(included)
	keyHash, err := circuits.Hash(api, c.Key)
	if err != nil {
		return err
	}
	v.AndEqual(keyHash, c.KeyHash)
	nullifier, err := circuits.Hash(api, card, c.Key)
	if err != nil {
		return err
	}
	v.AndEqual(nullifier, c.Nullifier)
	return nil
}

func (c *Circuit) checkMask(api frontend.API, v *circuits.Validity) error {
	old, err := circuits.Commit(api, c.OldMaskSalt, c.OldMask)
	if err != nil {
		return err
	}
	v.AndEqual(old, c.OldMaskCommitment)
	seen, _ := circuits.SelectByIndex(api, api.ToBinary(c.OldMask, circuits.DeadMansSuits), c.Suit)
	v.AndEqual(c.IsBust, seen)
	weights := make([]frontend.Variable, circuits.DeadMansSuits)
	for i := range weights {
		weights[i] = 1 << i
	}
	bit, _ := circuits.SelectByIndex(api, weights, c.Suit)
	newMask := api.Add(c.OldMask, api.Mul(api.Sub(1, seen), bit))
	updated, err := circuits.Commit(api, c.NewMaskSalt, newMask)
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewMaskCommitment)
	return nil
}

// Card is a card of the deck.
type Card struct {
	Suit int64
	Rank int64
}

// ID returns the card id, suit*DeadMansRanks + rank - 1.
func (c Card) ID() int64 {
	return c.Suit*circuits.DeadMansRanks + c.Rank - 1
}

// Valid reports whether the suit and rank are in range.
func (c Card) Valid() bool {
	return circuits.InRange(c.Suit, 0, circuits.DeadMansSuits-1) &&
		circuits.InRange(c.Rank, 1, circuits.DeadMansRanks)
}

// StandardCards returns every card once, in id order.
func StandardCards() []Card {
	cards := make([]Card, 0, circuits.DeadMansDeckSize)
	for suit := int64(0); suit < circuits.DeadMansSuits; suit++ {
		for rank := int64(1); rank <= circuits.DeadMansRanks; rank++ {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	return cards
}

// Deck is the private deck of a player. Leaf i holds Cards[i] salted with
// Salts[i].
type Deck struct {
	Cards []Card
	Salts []*big.Int
}

// NewDeck returns a deck of the given cards with fresh salts.
func NewDeck(cards ...Card) (*Deck, error) {
	if len(cards) == 0 || len(cards) > 1<<circuits.DeadMansDeckDepth {
		return nil, fmt.Errorf("invalid deck size %d", len(cards))
	}
	d := &Deck{Cards: cards, Salts: make([]*big.Int, len(cards))}
	for i, card := range cards {
		if !card.Valid() {
			return nil, fmt.Errorf("invalid card %+v", card)
		}
		d.Salts[i] = commitment.NewSalt()
	}
	return d, nil
}

// Leaf returns the deck tree leaf of a card.
func Leaf(card Card, salt *big.Int) *big.Int {
	return commitment.Hash(big.NewInt(card.ID()), salt)
}

// Tree builds the deck tree.
func (d *Deck) Tree() (*merkle.Tree, error) {
	leaves := make([]*big.Int, len(d.Cards))
	for i := range d.Cards {
		leaves[i] = Leaf(d.Cards[i], d.Salts[i])
	}
	return merkle.New(circuits.DeadMansDeckDepth, leaves)
}

// Root returns the deck tree root.
func (d *Deck) Root() (*big.Int, error) {
	t, err := d.Tree()
	if err != nil {
		return nil, err
	}
	return t.Root(), nil
}

// KeyHash returns the public hash of a nullifier key.
func KeyHash(key *big.Int) *big.Int {
	return commitment.Hash(key)
}

// Nullifier returns the nullifier of a card under key. A deck drawn without
// repeating a nullifier holds every card at most once.
func Nullifier(card Card, key *big.Int) *big.Int {
	return commitment.Hash(big.NewInt(card.ID()), key)
}

// Mask is the set of suits drawn in a turn, bit i for suit i.
type Mask uint8

// Has reports whether suit is in the mask.
func (m Mask) Has(suit int64) bool {
	return m&(1<<suit) != 0
}

// With returns the mask with suit added.
func (m Mask) With(suit int64) Mask {
	return m | 1<<suit
}

// Commitment returns the commitment of the mask.
func (m Mask) Commitment(salt *big.Int) *big.Int {
	return commitment.CommitInts(salt, int64(m))
}

// EmptyMaskCommitment is the mask every turn starts with, committed with a
// zero salt.
func EmptyMaskCommitment() *big.Int {
	return Mask(0).Commitment(big.NewInt(0))
}

// Inputs are the native inputs of a draw. A nil OldMaskSalt is the zero salt
// of the empty mask a turn starts with.
type Inputs struct {
	Deck        *Deck
	Key         *big.Int
	LeafIndex   int
	OldMask     Mask
	OldMaskSalt *big.Int
	NewMaskSalt *big.Int
}

// Card returns the drawn card.
func (in *Inputs) Card() Card {
	return in.Deck.Cards[in.LeafIndex]
}

// Bust reports whether the drawn suit was already drawn in the turn.
func (in *Inputs) Bust() bool {
	return in.OldMask.Has(in.Card().Suit)
}

// NewMask returns the mask after the draw, unchanged on a bust.
func (in *Inputs) NewMask() Mask {
	return in.OldMask.With(in.Card().Suit)
}

// Witness checks the draw natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.Deck == nil || in.Key == nil || in.NewMaskSalt == nil {
		return nil, circuits.Unsatisfiable("missing deck, key or salt")
	}
	if in.LeafIndex < 0 || in.LeafIndex >= len(in.Deck.Cards) {
		return nil, circuits.Unsatisfiable("card %d not in the deck", in.LeafIndex)
	}
	if in.OldMask >= 1<<circuits.DeadMansSuits {
		return nil, circuits.Unsatisfiable("invalid suit mask %b", in.OldMask)
	}
	oldSalt := in.OldMaskSalt
	if oldSalt == nil {
		oldSalt = big.NewInt(0)
	}
	tree, err := in.Deck.Tree()
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	proof, err := tree.Proof(in.LeafIndex)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	card := in.Card()
	assignment := &Circuit{
		DeckRoot:          tree.Root(),
		KeyHash:           KeyHash(in.Key),
		LeafIndex:         in.LeafIndex,
		OldMaskCommitment: in.OldMask.Commitment(oldSalt),
		NewMaskCommitment: in.NewMask().Commitment(in.NewMaskSalt),
		Rank:              card.Rank,
		IsBust:            circuits.BoolToBigInt(in.Bust()),
		Nullifier:         Nullifier(card, in.Key),
		Suit:              card.Suit,
		CardSalt:          in.Deck.Salts[in.LeafIndex],
		Key:               in.Key,
		OldMask:           int64(in.OldMask),
		OldMaskSalt:       oldSalt,
		NewMaskSalt:       in.NewMaskSalt,
	}
	copy(assignment.DeckSiblings[:], circuits.MerkleSiblings(proof, circuits.DeadMansDeckDepth))
	return assignment, nil
}
