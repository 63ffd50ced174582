// Package draw implements the circuit that draws a card from a committed
// deck into an empty slot of a committed hand. The deck is a tree of salted
// card leaves, so the deck contents stay hidden while the drawn leaf index
// is public.
package draw

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
	LeafIndex         frontend.Variable `gnark:",public"`
	OldHandCommitment frontend.Variable `gnark:",public"`
	NewHandCommitment frontend.Variable `gnark:",public"`

	CardID       frontend.Variable
	CardSalt     frontend.Variable
	DeckSiblings [circuits.DeckDepth]frontend.Variable
	Slot         frontend.Variable
	OldHand      [circuits.HandSize]frontend.Variable
	OldHandSalt  frontend.Variable
	NewHand      [circuits.HandSize]frontend.Variable
	NewHandSalt  frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	if err := c.checkCard(api, v); err != nil {
		return err
	}
	if err := c.checkHand(api, v); err != nil {
		return err
	}
	v.Assert()
	return nil
}

func (c *Circuit) checkCard(api frontend.API, v *circuits.Validity) error {
	leaf, err := circuits.Hash(api, c.CardID, c.CardSalt)
	if err != nil {
		return err
	}
	included, err := circuits.VerifyMerkleIndex(api, c.DeckRoot, leaf, c.LeafIndex, c.DeckSiblings[:])
	if err != nil {
		return err
	}
	v.And(included)
	v.And(circuits.RangeCheck(api, c.CardID, 1, circuits.CatalogSize, circuits.StatBits))
	return nil
}

func (c *Circuit) checkHand(api frontend.API, v *circuits.Validity) error {
	old, err := circuits.Commit(api, c.OldHandSalt, c.OldHand[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(old, c.OldHandCommitment)
	current, found := circuits.SelectByIndex(api, c.OldHand[:], c.Slot)
	v.And(found)
	v.And(api.IsZero(current))
	for i := range c.NewHand {
		expected := api.Select(circuits.IsEqual(api, c.Slot, i), c.CardID, c.OldHand[i])
		v.AndEqual(c.NewHand[i], expected)
	}
	updated, err := circuits.Commit(api, c.NewHandSalt, c.NewHand[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewHandCommitment)
	return nil
}

// Deck is the private deck of a duel player. Leaf i holds Cards[i] salted
// with Salts[i].
type Deck struct {
	Cards []int64
	Salts []*big.Int
}

// NewDeck returns a deck of the given cards with fresh salts.
func NewDeck(cards ...int64) (*Deck, error) {
	if len(cards) == 0 || len(cards) > 1<<circuits.DeckDepth {
		return nil, fmt.Errorf("invalid deck size %d", len(cards))
	}
	d := &Deck{Cards: cards, Salts: make([]*big.Int, len(cards))}
	for i, card := range cards {
		if !circuits.InRange(card, 1, circuits.CatalogSize) {
			return nil, fmt.Errorf("invalid card id %d", card)
		}
		d.Salts[i] = commitment.NewSalt()
	}
	return d, nil
}

// Leaf returns the deck tree leaf of a card.
func Leaf(card int64, salt *big.Int) *big.Int {
	return commitment.Hash(big.NewInt(card), salt)
}

// Tree builds the deck tree.
func (d *Deck) Tree() (*merkle.Tree, error) {
	leaves := make([]*big.Int, len(d.Cards))
	for i := range d.Cards {
		leaves[i] = Leaf(d.Cards[i], d.Salts[i])
	}
	return merkle.New(circuits.DeckDepth, leaves)
}

// Root returns the deck tree root.
func (d *Deck) Root() (*big.Int, error) {
	t, err := d.Tree()
	if err != nil {
		return nil, err
	}
	return t.Root(), nil
}

// Hand is the content of the hand slots, 0 meaning an empty slot.
type Hand [circuits.HandSize]int64

// Commitment returns the commitment of the hand.
func (h Hand) Commitment(salt *big.Int) *big.Int {
	return commitment.CommitInts(salt, h[:]...)
}

// EmptySlot returns the first empty slot of the hand, or -1 if full.
func (h Hand) EmptySlot() int {
	for i, card := range h {
		if card == 0 {
			return i
		}
	}
	return -1
}

// Inputs are the native inputs of a draw.
type Inputs struct {
	Deck        *Deck
	LeafIndex   int
	Slot        int
	OldHand     Hand
	OldHandSalt *big.Int
	NewHandSalt *big.Int
}

// NewHand returns the hand after the draw.
func (in *Inputs) NewHand() Hand {
	h := in.OldHand
	if in.Deck != nil && in.LeafIndex >= 0 && in.LeafIndex < len(in.Deck.Cards) && in.Slot >= 0 && in.Slot < len(h) {
		h[in.Slot] = in.Deck.Cards[in.LeafIndex]
	}
	return h
}

// Witness checks the draw natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.Deck == nil || in.OldHandSalt == nil || in.NewHandSalt == nil {
		return nil, circuits.Unsatisfiable("missing deck or salt")
	}
	if in.LeafIndex < 0 || in.LeafIndex >= len(in.Deck.Cards) {
		return nil, circuits.Unsatisfiable("card %d not in the deck", in.LeafIndex)
	}
	if in.Slot < 0 || in.Slot >= circuits.HandSize {
		return nil, circuits.Unsatisfiable("invalid hand slot %d", in.Slot)
	}
	if in.OldHand[in.Slot] != 0 {
		return nil, circuits.Unsatisfiable("hand slot %d is not empty", in.Slot)
	}
	tree, err := in.Deck.Tree()
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	proof, err := tree.Proof(in.LeafIndex)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	newHand := in.NewHand()
	assignment := &Circuit{
		DeckRoot:          tree.Root(),
		LeafIndex:         in.LeafIndex,
		OldHandCommitment: in.OldHand.Commitment(in.OldHandSalt),
		NewHandCommitment: newHand.Commitment(in.NewHandSalt),
		CardID:            in.Deck.Cards[in.LeafIndex],
		CardSalt:          in.Deck.Salts[in.LeafIndex],
		Slot:              in.Slot,
		OldHandSalt:       in.OldHandSalt,
		NewHandSalt:       in.NewHandSalt,
	}
	copy(assignment.DeckSiblings[:], circuits.MerkleSiblings(proof, circuits.DeckDepth))
	for i := range newHand {
		assignment.OldHand[i] = in.OldHand[i]
		assignment.NewHand[i] = newHand[i]
	}
	return assignment, nil
}
