package api

import "strings"

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint serves the prometheus metrics
	MetricsEndpoint = "/metrics"
	// GamesEndpoint lists the games with rules loaded
	GamesEndpoint = "/games"
	// CircuitsEndpoint lists the circuits with a registered verifying key
	CircuitsEndpoint = "/circuits"

	// SessionsEndpoint is the endpoint for creating a new game session
	SessionsEndpoint = "/sessions"
	// SessionURLParam is the session id path parameter
	SessionURLParam = "sessionId"
	// SessionEndpoint is the endpoint to get the session state
	SessionEndpoint = "/sessions/{" + SessionURLParam + "}"
	// JoinEndpoint takes the second participant slot
	JoinEndpoint = SessionEndpoint + "/join"
	// CommitEndpoint receives the randomness commitment and the game setup
	CommitEndpoint = SessionEndpoint + "/commit"
	// RevealEndpoint receives the randomness seed
	RevealEndpoint = SessionEndpoint + "/reveal"
	// ProofsEndpoint receives the state transition proofs
	ProofsEndpoint = SessionEndpoint + "/proofs"
	// ActionsEndpoint receives the public actions
	ActionsEndpoint = SessionEndpoint + "/actions"

	// KindURLParam, SlotURLParam and IdentifierURLParam address a one-time
	// identifier of the session.
	KindURLParam       = "kind"
	SlotURLParam       = "slot"
	IdentifierURLParam = "identifier"
	// ConsumedEndpoint returns the inclusion proof of a consumed identifier
	ConsumedEndpoint = SessionEndpoint + "/consumed/{" + KindURLParam + "}/{" + SlotURLParam + "}/{" + IdentifierURLParam + "}"
)

// EndpointWithParam replaces a path parameter of an endpoint, used by the
// clients to build the request paths.
func EndpointWithParam(endpoint, param, value string) string {
	return strings.Replace(endpoint, "{"+param+"}", value, 1)
}
