package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/types"
)

// newSession creates a new game session with the signer in slot 0
// POST /sessions
func (a *API) newSession(w http.ResponseWriter, r *http.Request) {
	req := &SignedRequest[NewSession]{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	creator, err := req.Signer(ActionCreate, types.SessionID{}, 0)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	s, err := a.machine.Create(creator, req.Payload.Game, req.Payload.Options)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, s)
}

// session returns the session state
// GET /sessions/{sessionId}
func (a *API) session(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	s, err := a.machine.Session(id)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, s)
}

// join takes the free participant slot of the session
// POST /sessions/{sessionId}/join
func (a *API) join(w http.ResponseWriter, r *http.Request) {
	id, addr, _, ok := signedSessionRequest[Join](a, w, r, ActionJoin)
	if !ok {
		return
	}
	s, err := a.machine.Join(id, addr)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, s)
}

// commit registers the randomness commitment and game setup of the signer
// POST /sessions/{sessionId}/commit
func (a *API) commit(w http.ResponseWriter, r *http.Request) {
	id, addr, req, ok := signedSessionRequest[Commit](a, w, r, ActionCommit)
	if !ok {
		return
	}
	s, err := a.machine.Commit(id, addr, req.SeedHash, req.Setup)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, s)
}

// reveal opens the randomness commitment of the signer
// POST /sessions/{sessionId}/reveal
func (a *API) reveal(w http.ResponseWriter, r *http.Request) {
	id, addr, req, ok := signedSessionRequest[Reveal](a, w, r, ActionReveal)
	if !ok {
		return
	}
	s, err := a.machine.Reveal(id, addr, req.Seed)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, s)
}

// submitProof applies a state transition proof
// POST /sessions/{sessionId}/proofs
func (a *API) submitProof(w http.ResponseWriter, r *http.Request) {
	id, addr, proof, ok := signedSessionRequest[types.Proof](a, w, r, ActionProof)
	if !ok {
		return
	}
	s, err := a.machine.SubmitProof(id, addr, proof)
	if err != nil {
		writeProofError(w, id, proof.Circuit, err)
		return
	}
	httpWriteJSON(w, s)
}

// submitAction applies a public action
// POST /sessions/{sessionId}/actions
func (a *API) submitAction(w http.ResponseWriter, r *http.Request) {
	id, addr, action, ok := signedSessionRequest[session.Action](a, w, r, ActionAction)
	if !ok {
		return
	}
	s, err := a.machine.SubmitAction(id, addr, action)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, s)
}

// consumedProof returns the proof of a one-time identifier against the
// consumed root of the session
// GET /sessions/{sessionId}/consumed/{kind}/{slot}/{identifier}
func (a *API) consumedProof(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	kind, err := state.ParseKind(chi.URLParam(r, KindURLParam))
	if err != nil {
		ErrMalformedURLParameter.WithErr(err).Write(w)
		return
	}
	slot, err := strconv.Atoi(chi.URLParam(r, SlotURLParam))
	if err != nil {
		ErrMalformedURLParameter.Withf("invalid slot: %v", err).Write(w)
		return
	}
	ident, err := strconv.ParseUint(chi.URLParam(r, IdentifierURLParam), 10, 64)
	if err != nil {
		ErrMalformedURLParameter.Withf("invalid identifier: %v", err).Write(w)
		return
	}
	proof, err := a.machine.ConsumedProof(id, session.Identifier{Kind: kind, Slot: slot, ID: ident})
	if err != nil {
		writeMachineError(w, err)
		return
	}
	httpWriteJSON(w, proof)
}

// games lists the games the engine has rules for
// GET /games
func (a *API) games(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &Games{Games: a.machine.Games()})
}

// circuits lists the circuits with a registered verifying key
// GET /circuits
func (a *API) circuits(w http.ResponseWriter, r *http.Request) {
	resp := &Circuits{Circuits: []CircuitInfo{}}
	for _, id := range a.registry.Circuits() {
		vk, err := a.registry.VerifyingKey(id)
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		resp.Circuits = append(resp.Circuits, CircuitInfo{Circuit: id, PublicSignals: vk.NbPublicWitness()})
	}
	httpWriteJSON(w, resp)
}

// sessionID parses the session id URL parameter, writing the error response
// if it is malformed.
func sessionID(w http.ResponseWriter, r *http.Request) (types.SessionID, bool) {
	id, err := types.ParseSessionID(chi.URLParam(r, SessionURLParam))
	if err != nil {
		ErrMalformedSessionID.WithErr(err).Write(w)
		return types.SessionID{}, false
	}
	return id, true
}

// signedSessionRequest decodes a signed request for the session in the URL
// and recovers its signer. The signature must cover the current sequence of
// the session.
func signedSessionRequest[T any](a *API, w http.ResponseWriter, r *http.Request, action string) (types.SessionID, common.Address, *T, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return id, common.Address{}, nil, false
	}
	req := &SignedRequest[T]{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return id, common.Address{}, nil, false
	}
	s, err := a.machine.Session(id)
	if err != nil {
		writeMachineError(w, err)
		return id, common.Address{}, nil, false
	}
	addr, err := req.Signer(action, id, s.Sequence)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return id, common.Address{}, nil, false
	}
	return id, addr, &req.Payload, true
}
