package types

import (
	"fmt"
	"strings"
)

// CircuitID identifies one of the state transition circuits. The set is
// closed: every id has its own public signal layout and verifying key.
type CircuitID uint8

const (
	CircuitUnknown CircuitID = iota
	CircuitSpawn
	CircuitMove
	CircuitShot
	CircuitDamage
	CircuitCollect
	CircuitArenaWin
	CircuitDraw
	CircuitSummon
	CircuitBattle
	CircuitShowdown
	CircuitBust
)

var circuitNames = map[CircuitID]string{
	CircuitSpawn:    "spawn",
	CircuitMove:     "move",
	CircuitShot:     "shot",
	CircuitDamage:   "damage",
	CircuitCollect:  "collect",
	CircuitArenaWin: "arenawin",
	CircuitDraw:     "draw",
	CircuitSummon:   "summon",
	CircuitBattle:   "battle",
	CircuitShowdown: "showdown",
	CircuitBust:     "bust",
}

// AllCircuits returns every known circuit id in declaration order.
func AllCircuits() []CircuitID {
	ids := make([]CircuitID, 0, len(circuitNames))
	for id := CircuitSpawn; id <= CircuitBust; id++ {
		ids = append(ids, id)
	}
	return ids
}

// String returns the circuit name.
func (c CircuitID) String() string {
	if name, ok := circuitNames[c]; ok {
		return name
	}
	return fmt.Sprintf("circuit(%d)", uint8(c))
}

// Valid reports whether c is a known circuit.
func (c CircuitID) Valid() bool {
	_, ok := circuitNames[c]
	return ok
}

// MarshalText encodes the circuit as its name.
func (c CircuitID) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown circuit %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a circuit name.
func (c *CircuitID) UnmarshalText(data []byte) error {
	id, err := ParseCircuitID(string(data))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

// ParseCircuitID returns the circuit id for the given name.
func ParseCircuitID(name string) (CircuitID, error) {
	for id, n := range circuitNames {
		if n == strings.ToLower(name) {
			return id, nil
		}
	}
	return CircuitUnknown, fmt.Errorf("unknown circuit %q", name)
}

// GameKind identifies the rules a session is played with.
type GameKind string

const (
	GameArena GameKind = "arena"
	GameDuel  GameKind = "duel"
	GamePoker GameKind = "poker"
	// GameDeadMansDraw is the push-your-luck card game.
	GameDeadMansDraw GameKind = "deadmansdraw"
)

// Valid reports whether g is a known game.
func (g GameKind) Valid() bool {
	switch g {
	case GameArena, GameDuel, GamePoker, GameDeadMansDraw:
		return true
	}
	return false
}
