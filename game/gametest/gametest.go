// Package gametest drives sessions through their opening phases in the
// tests of the games.
package gametest

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/types"
)

// Player is a participant of a test session.
type Player struct {
	Address common.Address
	Seed    []byte
}

// Players returns two players with fixed addresses and the given seeds.
func Players(seedA, seedB string) [2]Player {
	return [2]Player{
		{Address: common.HexToAddress("0x000000000000000000000000000000000000a11c"), Seed: []byte(seedA)},
		{Address: common.HexToAddress("0x0000000000000000000000000000000000000b0b"), Seed: []byte(seedB)},
	}
}

// Start creates a session of game, joins the second player and plays the
// commit and reveal phases with the given setups.
func Start(m *session.Machine, game types.GameKind, options map[string]int64,
	players [2]Player, setups [2]map[string]*types.BigInt,
) (*session.Session, error) {
	s, err := m.Create(players[0].Address, game, options)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if _, err := m.Join(s.ID, players[1].Address); err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	for i, p := range players {
		if _, err := m.Commit(s.ID, p.Address, randomness.HashSeed(p.Seed), setups[i]); err != nil {
			return nil, fmt.Errorf("commit %d: %w", i, err)
		}
	}
	for i, p := range players {
		if s, err = m.Reveal(s.ID, p.Address, p.Seed); err != nil {
			return nil, fmt.Errorf("reveal %d: %w", i, err)
		}
	}
	if s.Phase != session.PhaseInProgress {
		return nil, fmt.Errorf("unexpected phase %s", s.Phase)
	}
	return s, nil
}
