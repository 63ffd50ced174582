package showdown

import (
	"fmt"
	"math/big"

	"github.com/paulhankin/poker"
	"github.com/vocdoni/zkgames/circuits"
	"github.com/vocdoni/zkgames/crypto/commitment"
)

// Category is the ranking of a five card hand.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"high card", "pair", "two pair", "three of a kind", "straight",
	"flush", "full house", "four of a kind", "straight flush", "royal flush",
}

func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return fmt.Sprintf("unknown(%d)", int(c))
	}
	return categoryNames[c]
}

const (
	numRanks = 13
	// scores are category<<categoryShift + tiebreak
	categoryShift = 52
	quadShift     = 39
	tripShift     = 26
	pairShift     = 13
	scoreBits     = 56
)

// Hand is a five card poker hand. Cards are numbered 0..51, the suit is
// card/13 and the rank is card%13 with 0 the deuce and 12 the ace.
type Hand [circuits.PokerHandSize]int

// Suit returns the suit of a card.
func Suit(card int) int { return card / numRanks }

// Rank returns the rank of a card.
func Rank(card int) int { return card % numRanks }

// Validate checks the cards are in range and distinct.
func (h Hand) Validate() error {
	seen := map[int]bool{}
	for _, card := range h {
		if card < 0 || card >= circuits.PokerDeckSize {
			return fmt.Errorf("invalid card %d", card)
		}
		if seen[card] {
			return fmt.Errorf("duplicated card %d", card)
		}
		seen[card] = true
	}
	return nil
}

// Commitment returns the commitment of the hand.
func (h Hand) Commitment(salt *big.Int) *big.Int {
	values := make([]*big.Int, len(h))
	for i, card := range h {
		values[i] = big.NewInt(int64(card))
	}
	return commitment.Commit(values, salt)
}

// Evaluate returns the category of the hand and its score. A higher score
// is a better hand and equal scores are equivalent hands. Straights are
// ranked by their top card, with the wheel (A-2-3-4-5) the lowest; every
// other hand is ranked by its groups of equal rank and then by its kickers.
func Evaluate(h Hand) (Category, uint64, error) {
	if err := h.Validate(); err != nil {
		return 0, 0, err
	}
	var counts [numRanks]int
	flush := true
	for _, card := range h {
		counts[Rank(card)]++
		if Suit(card) != Suit(h[0]) {
			flush = false
		}
	}
	var groups uint64
	pairs, trips, quads := 0, 0, 0
	for r, n := range counts {
		switch n {
		case 1:
			groups |= 1 << r
		case 2:
			pairs++
			groups |= 1 << (pairShift + r)
		case 3:
			trips++
			groups |= 1 << (tripShift + r)
		case 4:
			quads++
			groups |= 1 << (quadShift + r)
		}
	}
	straightHigh := 0
	for s := 0; s+4 < numRanks; s++ {
		if counts[s] == 1 && counts[s+1] == 1 && counts[s+2] == 1 && counts[s+3] == 1 && counts[s+4] == 1 {
			straightHigh = s + 2
		}
	}
	if counts[12] == 1 && counts[0] == 1 && counts[1] == 1 && counts[2] == 1 && counts[3] == 1 {
		straightHigh = 1
	}
	straight := straightHigh > 0

	var cat Category
	switch {
	case straight && flush && straightHigh == numRanks-3:
		cat = RoyalFlush
	case straight && flush:
		cat = StraightFlush
	case quads == 1:
		cat = FourOfAKind
	case trips == 1 && pairs == 1:
		cat = FullHouse
	case flush:
		cat = Flush
	case straight:
		cat = Straight
	case trips == 1:
		cat = ThreeOfAKind
	case pairs == 2:
		cat = TwoPair
	case pairs == 1:
		cat = OnePair
	default:
		cat = HighCard
	}
	tiebreak := groups
	if straight {
		tiebreak = uint64(straightHigh)
	}
	return cat, uint64(cat)<<categoryShift + tiebreak, nil
}

// Compare returns the winner of two hands: 1 if a is better, 2 if b is
// better and 0 when they are equivalent.
func Compare(a, b Hand) (int, error) {
	_, sa, err := Evaluate(a)
	if err != nil {
		return 0, err
	}
	_, sb, err := Evaluate(b)
	if err != nil {
		return 0, err
	}
	switch {
	case sa > sb:
		return 1, nil
	case sb > sa:
		return 2, nil
	}
	return 0, nil
}

// PokerCards converts the hand to the card representation of the poker
// evaluation library, where the ace has rank 1.
func (h Hand) PokerCards() ([]poker.Card, error) {
	cards := make([]poker.Card, len(h))
	for i, card := range h {
		rank := Rank(card) + 2
		if Rank(card) == numRanks-1 {
			rank = 1
		}
		c, err := poker.MakeCard(poker.Suit(Suit(card)), poker.Rank(rank))
		if err != nil {
			return nil, fmt.Errorf("invalid card %d: %w", card, err)
		}
		cards[i] = c
	}
	return cards, nil
}

// Describe returns a human readable description of the hand.
func (h Hand) Describe() (string, error) {
	cards, err := h.PokerCards()
	if err != nil {
		return "", err
	}
	return poker.Describe(cards)
}
