package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// SignedRequest wraps the payload of every state changing request with the
// Ethereum signature of its signing message, see SignedMessage. Address is
// the claimed signer, it must match the recovered one.
type SignedRequest[T any] struct {
	Payload   T              `json:"payload"`
	Address   common.Address `json:"address"`
	Signature types.HexBytes `json:"signature"`
}

// NewSession is the payload of a session creation request. Nonce makes the
// signature of two otherwise equal requests differ.
type NewSession struct {
	Game    types.GameKind   `json:"game"`
	Options map[string]int64 `json:"options,omitempty"`
	Nonce   uint64           `json:"nonce"`
}

// Join is the payload of a join request.
type Join struct{}

// Commit is the payload of a commit request: the hash of the randomness
// seed and the public game setup (initial commitments, deck root).
type Commit struct {
	SeedHash types.HexBytes           `json:"seedHash"`
	Setup    map[string]*types.BigInt `json:"setup,omitempty"`
}

// Reveal is the payload of a reveal request.
type Reveal struct {
	Seed types.HexBytes `json:"seed"`
}

// Games is the response of the games endpoint.
type Games struct {
	Games []types.GameKind `json:"games"`
}

// CircuitInfo describes a circuit with a registered verifying key.
type CircuitInfo struct {
	Circuit       types.CircuitID `json:"circuit"`
	PublicSignals int             `json:"publicSignals"`
}

// Circuits is the response of the circuits endpoint.
type Circuits struct {
	Circuits []CircuitInfo `json:"circuits"`
}

// Session is the response of every session endpoint.
type Session = session.Session

// ConsumedProof is the inclusion proof of a consumed identifier against the
// consumed root of the session.
type ConsumedProof = state.Proof
