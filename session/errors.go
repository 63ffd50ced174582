package session

import "errors"

var (
	// ErrPhaseViolation is returned for actions that are not legal in the
	// current phase, stage or turn of the session.
	ErrPhaseViolation = errors.New("phase violation")
	// ErrCommitmentMismatch is returned when a transition references a
	// state that is not the one stored for the participant (stale,
	// replayed or tampered).
	ErrCommitmentMismatch = errors.New("commitment mismatch")
	// ErrResourceAlreadyConsumed is returned when a one-time identifier
	// (item, deck leaf) is used twice.
	ErrResourceAlreadyConsumed = errors.New("resource already consumed")
	// ErrParameterMismatch is returned when the public parameters of a
	// transition differ from the ones expected by the session.
	ErrParameterMismatch = errors.New("parameter mismatch")
	// ErrNotParticipant is returned when the caller is not a participant.
	ErrNotParticipant = errors.New("not a participant")
	// ErrInvalidAction is returned for malformed or illegal public actions.
	ErrInvalidAction = errors.New("invalid action")
	// ErrUnknownGame is returned for sessions of a game without rules.
	ErrUnknownGame = errors.New("unknown game")
)
