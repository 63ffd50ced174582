// Package arenawin implements the win condition of an arena match. The
// match ends when any player reaches the kill limit or the round limit is
// reached; the player with more kills wins and equal kills are a draw.
package arenawin

import (
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/zkgames/circuits"
)

type Circuit struct {
	KillsA     frontend.Variable `gnark:",public"`
	KillsB     frontend.Variable `gnark:",public"`
	KillLimit  frontend.Variable `gnark:",public"`
	Rounds     frontend.Variable `gnark:",public"`
	RoundLimit frontend.Variable `gnark:",public"`
	Winner     frontend.Variable `gnark:",public"`
	Reason     frontend.Variable `gnark:",public"`
}

// CircuitPlaceholder returns an empty circuit used to compile it.
func CircuitPlaceholder() *Circuit {
	return &Circuit{}
}

// Define declares the circuit's constraints
func (c *Circuit) Define(api frontend.API) error {
	v := circuits.NewValidity(api)
	aDone := circuits.LessOrEqual(api, c.KillLimit, c.KillsA, circuits.StatBits)
	bDone := circuits.LessOrEqual(api, c.KillLimit, c.KillsB, circuits.StatBits)
	byKills := api.Sub(api.Add(aDone, bDone), api.Mul(aDone, bDone))
	byRounds := circuits.LessOrEqual(api, c.RoundLimit, c.Rounds, circuits.StatBits)
	v.And(api.Sub(api.Add(byKills, byRounds), api.Mul(byKills, byRounds)))

	lt, _, gt := circuits.Comparator(api, c.KillsA, c.KillsB, circuits.StatBits)
	v.AndEqual(c.Winner, api.Add(gt, api.Mul(lt, 2)))
	v.AndEqual(c.Reason, api.Mul(api.Sub(1, byKills), circuits.WinReasonRounds))
	v.Assert()
	return nil
}

// Result is the outcome of a finished match.
type Result struct {
	Winner int64
	Reason int64
}

// Evaluate returns the result of the match, or false if it is not over.
func Evaluate(killsA, killsB, killLimit, rounds, roundLimit int64) (Result, bool) {
	byKills := killsA >= killLimit || killsB >= killLimit
	if !byKills && rounds < roundLimit {
		return Result{}, false
	}
	r := Result{Reason: circuits.WinReasonKills}
	if !byKills {
		r.Reason = circuits.WinReasonRounds
	}
	switch {
	case killsA > killsB:
		r.Winner = 1
	case killsB > killsA:
		r.Winner = 2
	}
	return r, true
}

// Inputs are the public counters of the match.
type Inputs struct {
	KillsA     int64
	KillsB     int64
	KillLimit  int64
	Rounds     int64
	RoundLimit int64
}

// Witness checks that the match is over and returns the circuit assignment.
func (in *Inputs) Witness() (*Circuit, error) {
	for _, x := range []int64{in.KillsA, in.KillsB, in.KillLimit, in.Rounds, in.RoundLimit} {
		if !circuits.InRange(x, 0, 1<<circuits.StatBits-1) {
			return nil, circuits.Unsatisfiable("counter %d out of range", x)
		}
	}
	r, over := Evaluate(in.KillsA, in.KillsB, in.KillLimit, in.Rounds, in.RoundLimit)
	if !over {
		return nil, circuits.Unsatisfiable("match not over")
	}
	return &Circuit{
		KillsA:     in.KillsA,
		KillsB:     in.KillsB,
		KillLimit:  in.KillLimit,
		Rounds:     in.Rounds,
		RoundLimit: in.RoundLimit,
		Winner:     r.Winner,
		Reason:     r.Reason,
	}, nil
}
