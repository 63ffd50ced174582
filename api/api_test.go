package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zkgames/api"
	"github.com/vocdoni/zkgames/api/client"
	"github.com/vocdoni/zkgames/circuits/testutil"
	"github.com/vocdoni/zkgames/crypto/ethereum"
	"github.com/vocdoni/zkgames/game/poker"
	"github.com/vocdoni/zkgames/randomness"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/state"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

func newTestAPI(t *testing.T) *client.HTTPclient {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	registry, err := verifier.NewRegistry(stg)
	c.Assert(err, qt.IsNil)
	a, err := api.NewRouter(&api.APIConfig{
		Storage:  stg,
		Machine:  session.NewMachine(stg, testutil.AcceptAll{}, time.Minute, poker.New()),
		Registry: registry,
	})
	c.Assert(err, qt.IsNil)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	cli, err := client.New(srv.URL)
	c.Assert(err, qt.IsNil)
	cli.SetRetries(1)
	return cli
}

func newKeys(c *qt.C) *ethereum.SignKeys {
	keys := ethereum.NewSignKeys()
	c.Assert(keys.Generate(), qt.IsNil)
	return keys
}

func assertAPIError(c *qt.C, err error, code int) {
	c.Helper()
	var apiErr *client.APIError
	c.Assert(errors.As(err, &apiErr), qt.IsTrue, qt.Commentf("unexpected error %v", err))
	c.Assert(apiErr.Code, qt.Equals, code, qt.Commentf("%v", apiErr))
}

// assertRejected checks the uniform answer to a rejected proof.
func assertRejected(c *qt.C, err error) {
	c.Helper()
	var apiErr *client.APIError
	c.Assert(errors.As(err, &apiErr), qt.IsTrue, qt.Commentf("unexpected error %v", err))
	c.Assert(apiErr, qt.DeepEquals, &client.APIError{
		Status:  http.StatusBadRequest,
		Code:    api.ErrTransitionRejected.Code,
		Message: "proof verification failed",
	})
}

func TestNewRouterConfig(t *testing.T) {
	c := qt.New(t)
	_, err := api.NewRouter(nil)
	c.Assert(err, qt.ErrorMatches, "missing API configuration")
	_, err = api.NewRouter(&api.APIConfig{Storage: storage.New(metadb.NewTest(t))})
	c.Assert(err, qt.ErrorMatches, "missing session machine")
}

func TestSessionFlow(t *testing.T) {
	c := qt.New(t)
	cli := newTestAPI(t)
	alice, bob, carol := newKeys(c), newKeys(c), newKeys(c)

	games, err := cli.Games()
	c.Assert(err, qt.IsNil)
	c.Assert(games, qt.DeepEquals, []types.GameKind{types.GamePoker})
	circuits, err := cli.Circuits()
	c.Assert(err, qt.IsNil)
	c.Assert(circuits, qt.HasLen, 0)

	_, err = cli.CreateSession(alice, types.GameArena, nil, 1)
	assertAPIError(c, err, api.ErrUnknownGame.Code)

	s, err := cli.CreateSession(alice, types.GamePoker, map[string]int64{poker.OptionAnte: 5}, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, session.PhaseCreated)
	c.Assert(s.Participants[0].Address, qt.Equals, alice.Address())
	c.Assert(s.Options[poker.OptionStack], qt.Equals, int64(poker.DefaultStack))

	s, err = cli.Join(bob, s.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, session.PhaseCommit)
	_, err = cli.Join(carol, s.ID)
	assertAPIError(c, err, api.ErrPhaseViolation.Code)

	seeds := map[*ethereum.SignKeys][]byte{alice: []byte("alice seed"), bob: []byte("bob seed")}
	for _, keys := range []*ethereum.SignKeys{alice, bob} {
		setup := map[string]*types.BigInt{poker.SetupHand: types.NewInt(42)}
		s, err = cli.Commit(keys, s.ID, randomness.HashSeed(seeds[keys]), setup)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(s.Phase, qt.Equals, session.PhaseReveal)

	_, err = cli.Reveal(alice, s.ID, []byte("not alice seed"))
	assertAPIError(c, err, api.ErrCommitmentMismatch.Code)
	for _, keys := range []*ethereum.SignKeys{bob, alice} {
		s, err = cli.Reveal(keys, s.ID, seeds[keys])
		c.Assert(err, qt.IsNil)
	}
	c.Assert(s.Phase, qt.Equals, session.PhaseInProgress)
	c.Assert(s.Stage, qt.Equals, poker.StagePreflop)
	c.Assert(s.Counters["pot"], qt.Equals, int64(10))

	players := []*ethereum.SignKeys{alice, bob}
	turn, waiting := players[s.Turn], players[session.Other(s.Turn)]

	_, err = cli.SubmitAction(carol, s.ID, session.NewAction(poker.ActionCheck, nil))
	assertAPIError(c, err, api.ErrNotParticipant.Code)
	_, err = cli.SubmitAction(waiting, s.ID, session.NewAction(poker.ActionCheck, nil))
	assertAPIError(c, err, api.ErrPhaseViolation.Code)
	_, err = cli.SubmitAction(turn, s.ID, session.NewAction(poker.ActionBet, map[string]int64{"amount": 5000}))
	assertAPIError(c, err, api.ErrInvalidAction.Code)
	// proofs out of stage and proofs opening other commitments get the
	// same answer
	_, err = cli.SubmitProof(turn, s.ID, &types.Proof{Circuit: types.CircuitShowdown})
	assertRejected(c, err)
	stale := &types.Proof{Circuit: types.CircuitShowdown, Proof: []byte{1}}
	for _, v := range []int64{41, 42, 1, 2, 1} {
		stale.PublicSignals = append(stale.PublicSignals, types.NewInt(v))
	}
	_, err = cli.SubmitProof(turn, s.ID, stale)
	assertRejected(c, err)

	proof, err := cli.ConsumedProof(s.ID, state.KindItem, 0, 7)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Existence, qt.IsFalse)

	s, err = cli.SubmitAction(turn, s.ID, session.NewAction(session.ActionForfeit, nil))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Phase, qt.Equals, session.PhaseComplete)
	c.Assert(s.Outcome, qt.DeepEquals, &session.Outcome{Winner: session.Other(s.Turn), Reason: "forfeit"})

	got, err := cli.Session(s.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Sequence, qt.Equals, s.Sequence)
	c.Assert(got.Outcome, qt.DeepEquals, s.Outcome)
}

func TestSignatures(t *testing.T) {
	c := qt.New(t)
	cli := newTestAPI(t)
	alice, bob := newKeys(c), newKeys(c)

	s, err := cli.CreateSession(alice, types.GamePoker, nil, 7)
	c.Assert(err, qt.IsNil)
	path := api.EndpointWithParam(api.JoinEndpoint, api.SessionURLParam, s.ID.String())

	// signed over a sequence the session is not at
	stale, err := api.Sign(bob, api.ActionJoin, s.ID, s.Sequence+1, api.Join{})
	c.Assert(err, qt.IsNil)
	data, status, err := cli.Request(client.HTTPPOST, stale, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(string(data), qt.Contains, `"code":40005`)

	// signed by alice, claimed by bob
	forged, err := api.Sign(alice, api.ActionJoin, s.ID, s.Sequence, api.Join{})
	c.Assert(err, qt.IsNil)
	forged.Address = bob.Address()
	_, status, err = cli.Request(client.HTTPPOST, forged, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	valid, err := api.Sign(bob, api.ActionJoin, s.ID, s.Sequence, api.Join{})
	c.Assert(err, qt.IsNil)
	_, status, err = cli.Request(client.HTTPPOST, valid, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK)

	// the same signature cannot be used again once the sequence moved
	_, status, err = cli.Request(client.HTTPPOST, valid, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	msg, err := api.SignedMessage(api.ActionJoin, s.ID, 3, api.Join{})
	c.Assert(err, qt.IsNil)
	c.Assert(strings.HasPrefix(string(msg), "zkgames:join:"+s.ID.String()+":3:"), qt.IsTrue)
}

func TestLookupErrors(t *testing.T) {
	c := qt.New(t)
	cli := newTestAPI(t)

	_, err := cli.Session(types.NewSessionID())
	assertAPIError(c, err, api.ErrSessionNotFound.Code)

	data, status, err := cli.Request(client.HTTPGET, nil, nil, "sessions", "not-a-session")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(string(data), qt.Contains, `"code":40008`)

	s, err := cli.CreateSession(newKeys(c), types.GamePoker, nil, 1)
	c.Assert(err, qt.IsNil)
	_, status, err = cli.Request(client.HTTPGET, nil, nil, "sessions", s.ID.String(), "consumed", "gold", "0", "1")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	_, status, err = cli.Request(client.HTTPPOST, map[string]int{"payload": 1}, nil, api.SessionsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	data, status, err = cli.Request(client.HTTPGET, nil, nil, api.MetricsEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(string(data), qt.Contains, "zkgames_session_created_total")
}

func TestErrorMarshal(t *testing.T) {
	c := qt.New(t)
	rec := httptest.NewRecorder()
	apiErr := api.ErrTransitionRejected.Withf("circuit %s", types.CircuitMove)
	c.Assert(errors.Is(apiErr, api.ErrTransitionRejected.Err), qt.IsTrue)
	apiErr.Write(rec)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")
	c.Assert(rec.Header().Get("X-Content-Type-Options"), qt.Equals, "nosniff")
	c.Assert(rec.Body.String(), qt.Equals, `{"error":"proof verification failed: circuit move","code":40017}`+"\n")
}
