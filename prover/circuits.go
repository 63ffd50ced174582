package prover

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"github.com/vocdoni/zkgames/circuits/arenawin"
	"github.com/vocdoni/zkgames/circuits/battle"
	"github.com/vocdoni/zkgames/circuits/bust"
	"github.com/vocdoni/zkgames/circuits/collect"
	"github.com/vocdoni/zkgames/circuits/damage"
	"github.com/vocdoni/zkgames/circuits/draw"
	"github.com/vocdoni/zkgames/circuits/move"
	"github.com/vocdoni/zkgames/circuits/shot"
	"github.com/vocdoni/zkgames/circuits/showdown"
	"github.com/vocdoni/zkgames/circuits/spawn"
	"github.com/vocdoni/zkgames/circuits/summon"
	"github.com/vocdoni/zkgames/types"
)

// Placeholder returns the circuit definition used to compile id.
func Placeholder(id types.CircuitID) (frontend.Circuit, error) {
	switch id {
	case types.CircuitSpawn:
		return spawn.CircuitPlaceholder(), nil
	case types.CircuitMove:
		return move.CircuitPlaceholder(), nil
	case types.CircuitShot:
		return shot.CircuitPlaceholder(), nil
	case types.CircuitDamage:
		return damage.CircuitPlaceholder(), nil
	case types.CircuitCollect:
		return collect.CircuitPlaceholder(), nil
	case types.CircuitArenaWin:
		return arenawin.CircuitPlaceholder(), nil
	case types.CircuitDraw:
		return draw.CircuitPlaceholder(), nil
	case types.CircuitSummon:
		return summon.CircuitPlaceholder(), nil
	case types.CircuitBattle:
		return battle.CircuitPlaceholder(), nil
	case types.CircuitShowdown:
		return showdown.CircuitPlaceholder(), nil
	case types.CircuitBust:
		return bust.CircuitPlaceholder(), nil
	default:
		return nil, fmt.Errorf("unknown circuit %d", uint8(id))
	}
}
