package api

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/zkgames/crypto/ethereum"
	"github.com/vocdoni/zkgames/types"
)

// Signing actions, part of the signed message of each request type.
const (
	ActionCreate = "create"
	ActionJoin   = "join"
	ActionCommit = "commit"
	ActionReveal = "reveal"
	ActionProof  = "proof"
	ActionAction = "action"
)

// SignedMessage returns the message a participant signs for a request: the
// action, the session id, the session sequence the request is built upon
// and the keccak256 hash of the JSON encoded payload. Session creation uses
// the zero session id and sequence.
func SignedMessage(action string, id types.SessionID, sequence uint64, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("zkgames:%s:%s:%d:%x", action, id, sequence, ethereum.HashRaw(data))), nil
}

// Sign returns the signed request of payload.
func Sign[T any](keys *ethereum.SignKeys, action string, id types.SessionID, sequence uint64, payload T) (*SignedRequest[T], error) {
	msg, err := SignedMessage(action, id, sequence, payload)
	if err != nil {
		return nil, err
	}
	signature, err := keys.SignEthereum(msg)
	if err != nil {
		return nil, err
	}
	return &SignedRequest[T]{Payload: payload, Address: keys.Address(), Signature: signature}, nil
}

// Signer recovers the address that signed the request and checks it is the
// claimed one. A signature over another sequence recovers a different
// address and fails here.
func (r *SignedRequest[T]) Signer(action string, id types.SessionID, sequence uint64) (common.Address, error) {
	msg, err := SignedMessage(action, id, sequence, r.Payload)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := ethereum.AddrFromSignature(msg, r.Signature)
	if err != nil {
		return common.Address{}, err
	}
	if addr != r.Address {
		return common.Address{}, fmt.Errorf("signer %s does not match address %s", addr.Hex(), r.Address.Hex())
	}
	return addr, nil
}
