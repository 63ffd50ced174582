package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vocdoni/zkgames/api"
	"github.com/vocdoni/zkgames/crypto/ethereum"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// APIError is an error response of the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (code %d, status %d)", e.Message, e.Code, e.Status)
}

// decode unmarshals a 200 response into out, or returns the APIError of any
// other status.
func decode(data []byte, status int, out any) error {
	if status != http.StatusOK {
		apiErr := &APIError{Status: status}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == 0 {
			return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *HTTPclient) get(out any, urlPath ...string) error {
	data, status, err := c.Request(HTTPGET, nil, nil, urlPath...)
	if err != nil {
		return err
	}
	return decode(data, status, out)
}

func sessionPath(endpoint string, id types.SessionID) string {
	return api.EndpointWithParam(endpoint, api.SessionURLParam, id.String())
}

// Games returns the games served by the node.
func (c *HTTPclient) Games() ([]types.GameKind, error) {
	resp := &api.Games{}
	if err := c.get(resp, api.GamesEndpoint); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// Circuits returns the circuits with a registered verifying key.
func (c *HTTPclient) Circuits() ([]api.CircuitInfo, error) {
	resp := &api.Circuits{}
	if err := c.get(resp, api.CircuitsEndpoint); err != nil {
		return nil, err
	}
	return resp.Circuits, nil
}

// Session returns the current state of a session.
func (c *HTTPclient) Session(id types.SessionID) (*api.Session, error) {
	s := &api.Session{}
	if err := c.get(s, sessionPath(api.SessionEndpoint, id)); err != nil {
		return nil, err
	}
	return s, nil
}

// ConsumedProof returns the proof of a one-time identifier of a session.
func (c *HTTPclient) ConsumedProof(id types.SessionID, kind state.Kind, slot int, ident uint64) (*api.ConsumedProof, error) {
	path := sessionPath(api.ConsumedEndpoint, id)
	path = api.EndpointWithParam(path, api.KindURLParam, kind.String())
	path = api.EndpointWithParam(path, api.SlotURLParam, strconv.Itoa(slot))
	path = api.EndpointWithParam(path, api.IdentifierURLParam, strconv.FormatUint(ident, 10))
	proof := &api.ConsumedProof{}
	if err := c.get(proof, path); err != nil {
		return nil, err
	}
	return proof, nil
}

// CreateSession creates a session of game with the signer in slot 0.
func (c *HTTPclient) CreateSession(keys *ethereum.SignKeys, game types.GameKind, options map[string]int64, nonce uint64) (*api.Session, error) {
	req, err := api.Sign(keys, api.ActionCreate, types.SessionID{}, 0,
		api.NewSession{Game: game, Options: options, Nonce: nonce})
	if err != nil {
		return nil, err
	}
	data, status, err := c.Request(HTTPPOST, req, nil, api.SessionsEndpoint)
	if err != nil {
		return nil, err
	}
	s := &api.Session{}
	if err := decode(data, status, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Join takes the free slot of a session.
func (c *HTTPclient) Join(keys *ethereum.SignKeys, id types.SessionID) (*api.Session, error) {
	return signedPost(c, keys, api.ActionJoin, id, api.JoinEndpoint, api.Join{})
}

// Commit sends the randomness commitment and the game setup.
func (c *HTTPclient) Commit(keys *ethereum.SignKeys, id types.SessionID, seedHash []byte, setup map[string]*types.BigInt) (*api.Session, error) {
	return signedPost(c, keys, api.ActionCommit, id, api.CommitEndpoint, api.Commit{SeedHash: seedHash, Setup: setup})
}

// Reveal sends the randomness seed.
func (c *HTTPclient) Reveal(keys *ethereum.SignKeys, id types.SessionID, seed []byte) (*api.Session, error) {
	return signedPost(c, keys, api.ActionReveal, id, api.RevealEndpoint, api.Reveal{Seed: seed})
}

// SubmitProof sends a state transition proof.
func (c *HTTPclient) SubmitProof(keys *ethereum.SignKeys, id types.SessionID, proof *types.Proof) (*api.Session, error) {
	return signedPost(c, keys, api.ActionProof, id, api.ProofsEndpoint, *proof)
}

// SubmitAction sends a public action.
func (c *HTTPclient) SubmitAction(keys *ethereum.SignKeys, id types.SessionID, action *session.Action) (*api.Session, error) {
	return signedPost(c, keys, api.ActionAction, id, api.ActionsEndpoint, *action)
}

// signedPost signs payload over the current sequence of the session and
// posts it to endpoint.
func signedPost[T any](c *HTTPclient, keys *ethereum.SignKeys, action string, id types.SessionID, endpoint string, payload T) (*api.Session, error) {
	current, err := c.Session(id)
	if err != nil {
		return nil, err
	}
	req, err := api.Sign(keys, action, id, current.Sequence, payload)
	if err != nil {
		return nil, err
	}
	data, status, err := c.Request(HTTPPOST, req, nil, sessionPath(endpoint, id))
	if err != nil {
		return nil, err
	}
	s := &api.Session{}
	if err := decode(data, status, s); err != nil {
		return nil, err
	}
	return s, nil
}
