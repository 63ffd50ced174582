// Package summon implements the circuit that moves a card from a hand slot
// to the empty field of a duel player. The card stats are taken from the
// public card catalog, whose leaf i holds the stats of card id i.
package summon

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
	"github.com/vocdoni/zkgames/crypto/merkle"
)

type Circuit struct {
	OldHandCommitment  frontend.Variable `gnark:",public"`
	NewHandCommitment  frontend.Variable `gnark:",public"`
	OldFieldCommitment frontend.Variable `gnark:",public"`
	NewFieldCommitment frontend.Variable `gnark:",public"`
	CatalogRoot        frontend.Variable `gnark:",public"`

	Hand            [circuits.HandSize]frontend.Variable
	OldHandSalt     frontend.Variable
	NewHandSalt     frontend.Variable
	Slot            frontend.Variable
	CardID          frontend.Variable
	Attack          frontend.Variable
	Defense         frontend.Variable
	CatalogSiblings [circuits.CatalogDepth]frontend.Variable
	OldFieldSalt    frontend.Variable
	NewFieldSalt    frontend.Variable
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	if err := c.checkHand(api, v); err != nil {
		return err
	}
	if err := c.checkCatalog(api, v); err != nil {
		return err
	}
	if err := c.checkField(api, v); err != nil {
		return err
	}
	v.Assert()
	return nil
}

func (c *Circuit) checkHand(api frontend.API, v *circuits.Validity) error {
	old, err := circuits.Commit(api, c.OldHandSalt, c.Hand[:]...)
	if err != nil {
		return err
	}
	v.AndEqual(old, c.OldHandCommitment)
	card, found := circuits.SelectByIndex(api, c.Hand[:], c.Slot)
	v.And(found)
	v.AndEqual(card, c.CardID)
	v.And(circuits.RangeCheck(api, c.CardID, 1, circuits.CatalogSize, circuits.StatBits))
	hand := make([]frontend.Variable, len(c.Hand))
	for i := range c.Hand {
		hand[i] = api.Select(circuits.IsEqual(api, c.Slot, i), 0, c.Hand[i])
	}
	updated, err := circuits.Commit(api, c.NewHandSalt, hand...)
	if err != nil {
		return err
	}
	v.AndEqual(updated, c.NewHandCommitment)
	return nil
}

func (c *Circuit) checkCatalog(api frontend.API, v *circuits.Validity) error {
	leaf, err := circuits.Hash(api, c.CardID, c.Attack, c.Defense)
	if err != nil {
		return err
	}
	included, err := circuits.VerifyMerkleIndex(api, c.CatalogRoot, leaf, c.CardID, c.CatalogSiblings[:])
	if err != nil {
		return err
	}
	v.And(included)
	return nil
}

func (c *Circuit) checkField(api frontend.API, v *circuits.Validity) error {
	empty, err := circuits.Commit(api, c.OldFieldSalt, 0, 0, 0)
	if err != nil {
		return err
	}
	v.AndEqual(empty, c.OldFieldCommitment)
	field, err := circuits.Commit(api, c.NewFieldSalt, c.CardID, c.Attack, c.Defense)
	if err != nil {
		return err
	}
	v.AndEqual(field, c.NewFieldCommitment)
	return nil
}

// Card is a catalog entry.
type Card struct {
	ID      int64 `json:"id" cbor:"0,keyasint"`
	Attack  int64 `json:"attack" cbor:"1,keyasint"`
	Defense int64 `json:"defense" cbor:"2,keyasint"`
}

// Leaf returns the catalog tree leaf of the card.
func (c Card) Leaf() *big.Int {
	return commitment.Hash(commitment.Ints(c.ID, c.Attack, c.Defense)...)
}

// FieldCommitment returns the commitment of a field holding the card. The
// zero Card is the empty field.
func (c Card) FieldCommitment(salt *big.Int) *big.Int {
	return commitment.CommitInts(salt, c.ID, c.Attack, c.Defense)
}

// EmptyField returns the commitment of an empty field.
func EmptyField(salt *big.Int) *big.Int {
	return Card{}.FieldCommitment(salt)
}

// Catalog is the public set of cards of a duel.
type Catalog struct {
	cards map[int64]Card
	tree  *merkle.Tree
}

// NewCatalog builds the catalog tree. Card ids must be in [1, CatalogSize]
// and stats must fit in StatBits.
func NewCatalog(cards []Card) (*Catalog, error) {
	cat := &Catalog{cards: make(map[int64]Card, len(cards))}
	leaves := make([]*big.Int, 1<<circuits.CatalogDepth)
	for _, card := range cards {
		if !circuits.InRange(card.ID, 1, circuits.CatalogSize) {
			return nil, fmt.Errorf("invalid card id %d", card.ID)
		}
		if !circuits.InRange(card.Attack, 0, 1<<circuits.StatBits-1) ||
			!circuits.InRange(card.Defense, 0, 1<<circuits.StatBits-1) {
			return nil, fmt.Errorf("invalid stats for card %d", card.ID)
		}
		if _, ok := cat.cards[card.ID]; ok {
			return nil, fmt.Errorf("duplicated card id %d", card.ID)
		}
		cat.cards[card.ID] = card
		leaves[card.ID] = card.Leaf()
	}
	tree, err := merkle.New(circuits.CatalogDepth, leaves)
	if err != nil {
		return nil, err
	}
	cat.tree = tree
	return cat, nil
}

// Root returns the catalog root.
func (cat *Catalog) Root() *big.Int {
	return cat.tree.Root()
}

// Card returns the card with the given id.
func (cat *Catalog) Card(id int64) (Card, bool) {
	card, ok := cat.cards[id]
	return card, ok
}

// Proof returns the inclusion proof of a card.
func (cat *Catalog) Proof(id int64) (*merkle.Proof, error) {
	return cat.tree.Proof(int(id))
}

// Inputs are the native inputs of a summon.
type Inputs struct {
	Catalog      *Catalog
	Hand         [circuits.HandSize]int64
	Slot         int
	OldHandSalt  *big.Int
	NewHandSalt  *big.Int
	OldFieldSalt *big.Int
	NewFieldSalt *big.Int
}

// NewHand returns the hand after the summon.
func (in *Inputs) NewHand() [circuits.HandSize]int64 {
	h := in.Hand
	if in.Slot >= 0 && in.Slot < len(h) {
		h[in.Slot] = 0
	}
	return h
}

// Witness checks the summon natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.Catalog == nil || in.OldHandSalt == nil || in.NewHandSalt == nil ||
		in.OldFieldSalt == nil || in.NewFieldSalt == nil {
		return nil, circuits.Unsatisfiable("missing catalog or salt")
	}
	if in.Slot < 0 || in.Slot >= circuits.HandSize {
		return nil, circuits.Unsatisfiable("invalid hand slot %d", in.Slot)
	}
	card, ok := in.Catalog.Card(in.Hand[in.Slot])
	if !ok {
		return nil, circuits.Unsatisfiable("hand slot %d holds no catalog card", in.Slot)
	}
	proof, err := in.Catalog.Proof(card.ID)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	newHand := in.NewHand()
	assignment := &Circuit{
		OldHandCommitment:  commitment.CommitInts(in.OldHandSalt, in.Hand[:]...),
		NewHandCommitment:  commitment.CommitInts(in.NewHandSalt, newHand[:]...),
		OldFieldCommitment: EmptyField(in.OldFieldSalt),
		NewFieldCommitment: card.FieldCommitment(in.NewFieldSalt),
		CatalogRoot:        in.Catalog.Root(),
		OldHandSalt:        in.OldHandSalt,
		NewHandSalt:        in.NewHandSalt,
		Slot:               in.Slot,
		CardID:             card.ID,
		Attack:             card.Attack,
		Defense:            card.Defense,
		OldFieldSalt:       in.OldFieldSalt,
		NewFieldSalt:       in.NewFieldSalt,
	}
	for i := range in.Hand {
		assignment.Hand[i] = in.Hand[i]
	}
	copy(assignment.CatalogSiblings[:], circuits.MerkleSiblings(proof, circuits.CatalogDepth))
	return assignment, nil
}
