// Package showdown implements the poker showdown. Both committed five card
// hands are opened privately, ranked inside the circuit and compared, so
// only the categories and the winner become public.
package showdown

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
)

// HandWitness is the private opening of a hand. Suits and ranks are hints
// bound to the cards by card == suit*13 + rank.
type HandWitness struct {
	Cards [circuits.PokerHandSize]frontend.Variable
	Suits [circuits.PokerHandSize]frontend.Variable
	Ranks [circuits.PokerHandSize]frontend.Variable
	Salt  frontend.Variable
}

type Circuit struct {
	HandCommitmentA frontend.Variable `gnark:",public"`
	HandCommitmentB frontend.Variable `gnark:",public"`
	RankA           frontend.Variable `gnark:",public"`
	RankB           frontend.Variable `gnark:",public"`
	Winner          frontend.Variable `gnark:",public"`

	HandA HandWitness
	HandB HandWitness
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	for _, h := range []struct {
		hand       *HandWitness
		commitment frontend.Variable
	}{{&c.HandA, c.HandCommitmentA}, {&c.HandB, c.HandCommitmentB}} {
		opened, err := circuits.Commit(api, h.hand.Salt, h.hand.Cards[:]...)
		if err != nil {
			return err
		}
		v.AndEqual(opened, h.commitment)
		checkCards(api, v, h.hand)
	}
	all := append(append([]frontend.Variable{}, c.HandA.Cards[:]...), c.HandB.Cards[:]...)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			v.And(api.Sub(1, circuits.IsEqual(api, all[i], all[j])))
		}
	}
	catA, scoreA := evaluate(api, &c.HandA)
	catB, scoreB := evaluate(api, &c.HandB)
	v.AndEqual(c.RankA, catA)
	v.AndEqual(c.RankB, catB)
	lt, _, gt := circuits.Comparator(api, scoreA, scoreB, scoreBits)
	v.AndEqual(c.Winner, api.Add(gt, api.Mul(lt, 2)))
	v.Assert()
	return nil
}

// checkCards binds every card to its suit and rank hints, which bounds the
// card to [0, 51].
func checkCards(api frontend.API, v *circuits.Validity, h *HandWitness) {
	for i := range h.Cards {
		api.ToBinary(h.Suits[i], 2)
		api.ToBinary(h.Ranks[i], 4)
		v.And(circuits.LessOrEqual(api, h.Ranks[i], numRanks-1, 4))
		v.AndEqual(h.Cards[i], api.Add(api.Mul(h.Suits[i], numRanks), h.Ranks[i]))
	}
}

// evaluate returns the category and the score of a hand, as Evaluate does.
func evaluate(api frontend.API, h *HandWitness) (frontend.Variable, frontend.Variable) {
	var single, pair, trip, quad [numRanks]frontend.Variable
	for r := 0; r < numRanks; r++ {
		count := frontend.Variable(0)
		for i := range h.Ranks {
			count = api.Add(count, circuits.IsEqual(api, h.Ranks[i], r))
		}
		single[r] = circuits.IsEqual(api, count, 1)
		pair[r] = circuits.IsEqual(api, count, 2)
		trip[r] = circuits.IsEqual(api, count, 3)
		quad[r] = circuits.IsEqual(api, count, 4)
	}
	flush := frontend.Variable(1)
	for i := 1; i < len(h.Suits); i++ {
		flush = api.Mul(flush, circuits.IsEqual(api, h.Suits[0], h.Suits[i]))
	}
	// straights: one window of five consecutive single ranks, or the wheel
	straight := frontend.Variable(0)
	straightHigh := frontend.Variable(0)
	broadway := frontend.Variable(0)
	for s := 0; s+4 < numRanks; s++ {
		window := single[s]
		for k := 1; k < 5; k++ {
			window = api.Mul(window, single[s+k])
		}
		straight = api.Add(straight, window)
		straightHigh = api.Add(straightHigh, api.Mul(window, s+2))
		broadway = window
	}
	wheel := api.Mul(single[numRanks-1], api.Mul(api.Mul(single[0], single[1]), api.Mul(single[2], single[3])))
	straight = api.Add(straight, wheel)
	straightHigh = api.Add(straightHigh, wheel)

	nPairs, nTrips, nQuads := frontend.Variable(0), frontend.Variable(0), frontend.Variable(0)
	groups := frontend.Variable(0)
	for r := 0; r < numRanks; r++ {
		nPairs = api.Add(nPairs, pair[r])
		nTrips = api.Add(nTrips, trip[r])
		nQuads = api.Add(nQuads, quad[r])
		weight := api.Add(
			api.Add(api.Mul(quad[r], pow2(quadShift)), api.Mul(trip[r], pow2(tripShift))),
			api.Add(api.Mul(pair[r], pow2(pairShift)), single[r]))
		groups = api.Add(groups, api.Mul(weight, pow2(r)))
	}

	straightFlush := api.Mul(flush, straight)
	royal := api.Mul(flush, broadway)
	fullHouse := api.Mul(nTrips, nPairs)
	category := api.Add(
		api.Mul(royal, int(RoyalFlush)),
		api.Mul(api.Sub(straightFlush, royal), int(StraightFlush)),
		api.Mul(nQuads, int(FourOfAKind)),
		api.Mul(fullHouse, int(FullHouse)),
		api.Mul(api.Sub(flush, straightFlush), int(Flush)),
		api.Mul(api.Sub(straight, straightFlush), int(Straight)),
		api.Mul(api.Sub(nTrips, fullHouse), int(ThreeOfAKind)),
		api.Mul(circuits.IsEqual(api, nPairs, 2), int(TwoPair)),
		api.Sub(circuits.IsEqual(api, nPairs, 1), fullHouse),
	)
	tiebreak := api.Select(straight, straightHigh, groups)
	score := api.Add(api.Mul(category, pow2(categoryShift)), tiebreak)
	return category, score
}

func pow2(n int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(n))
}

// Inputs are the native inputs of a showdown.
type Inputs struct {
	HandA Hand
	SaltA *big.Int
	HandB Hand
	SaltB *big.Int
}

// Witness ranks both hands natively and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	if in.SaltA == nil || in.SaltB == nil {
		return nil, circuits.Unsatisfiable("missing salt")
	}
	seen := map[int]bool{}
	for _, card := range append(in.HandA[:], in.HandB[:]...) {
		if seen[card] {
			return nil, circuits.Unsatisfiable("card %d dealt twice", card)
		}
		seen[card] = true
	}
	catA, _, err := Evaluate(in.HandA)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	catB, _, err := Evaluate(in.HandB)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	winner, err := Compare(in.HandA, in.HandB)
	if err != nil {
		return nil, circuits.Unsatisfiable("%v", err)
	}
	return &Circuit{
		HandCommitmentA: in.HandA.Commitment(in.SaltA),
		HandCommitmentB: in.HandB.Commitment(in.SaltB),
		RankA:           int(catA),
		RankB:           int(catB),
		Winner:          winner,
		HandA:           handWitness(in.HandA, in.SaltA),
		HandB:           handWitness(in.HandB, in.SaltB),
	}, nil
}

func handWitness(h Hand, salt *big.Int) HandWitness {
	w := HandWitness{Salt: salt}
	for i, card := range h {
		w.Cards[i] = card
		w.Suits[i] = Suit(card)
		w.Ranks[i] = Rank(card)
	}
	return w
}
