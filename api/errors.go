package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/zkgames/log"
	"github.com/vocdoni/zkgames/session"
	"github.com/vocdoni/zkgames/storage"
	"github.com/vocdoni/zkgames/types"
	"github.com/vocdoni/zkgames/verifier"
)

// Error is an API error response: a unique code, the HTTP status it is sent
// with and the error message.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// errorResponse is the body of an error response, e.g.
// {"error":"session not found","code":40009}.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// MarshalJSON encodes the message and the code. The HTTP status is not part
// of the body.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorResponse{Error: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

func (e Error) Unwrap() error {
	return e.Err
}

// Write sends the error as a JSON response.
func (e Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		log.Warnw("failed to write error response", "error", err)
		return
	}
	log.Debugw("api error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
}

func (e Error) with(detail string) Error {
	return Error{Err: fmt.Errorf("%w: %s", e.Err, detail), Code: e.Code, HTTPstatus: e.HTTPstatus}
}

// Withf returns a copy of the error with the formatted detail appended.
func (e Error) Withf(format string, args ...any) Error {
	return e.with(fmt.Sprintf(format, args...))
}

// WithErr returns a copy of the error with err appended.
func (e Error) WithErr(err error) Error {
	return e.with(err.Error())
}

// rejections are the machine errors a proof submission answers with
// ErrTransitionRejected.
var rejections = []error{
	session.ErrPhaseViolation,
	session.ErrCommitmentMismatch,
	session.ErrResourceAlreadyConsumed,
	session.ErrParameterMismatch,
	verifier.ErrProofVerificationFailed,
}

// writeProofError answers a rejected proof. Every rejection gets the same
// response with no detail, the reason is only logged.
func writeProofError(w http.ResponseWriter, id types.SessionID, circuit types.CircuitID, err error) {
	for _, rejection := range rejections {
		if errors.Is(err, rejection) {
			log.Debugw("proof rejected", "session", id.String(), "circuit", circuit.String(), "reason", err.Error())
			ErrTransitionRejected.Write(w)
			return
		}
	}
	writeMachineError(w, err)
}

// writeMachineError maps the session machine errors to the API errors.
func writeMachineError(w http.ResponseWriter, err error) {
	var apiErr Error
	switch {
	case errors.Is(err, storage.ErrNotFound):
		apiErr = ErrSessionNotFound
	case errors.Is(err, session.ErrPhaseViolation):
		apiErr = ErrPhaseViolation
	case errors.Is(err, session.ErrCommitmentMismatch):
		apiErr = ErrCommitmentMismatch
	case errors.Is(err, session.ErrResourceAlreadyConsumed):
		apiErr = ErrResourceConsumed
	case errors.Is(err, session.ErrParameterMismatch):
		apiErr = ErrParameterMismatch
	case errors.Is(err, session.ErrNotParticipant):
		apiErr = ErrNotParticipant
	case errors.Is(err, session.ErrInvalidAction):
		apiErr = ErrInvalidAction
	case errors.Is(err, session.ErrUnknownGame):
		apiErr = ErrUnknownGame
	case errors.Is(err, verifier.ErrProofVerificationFailed):
		apiErr = ErrTransitionRejected
	case errors.Is(err, verifier.ErrKeyNotRegistered):
		apiErr = ErrCircuitNotRegistered
	default:
		apiErr = ErrGenericInternalServerError
	}
	apiErr.WithErr(err).Write(w)
}
