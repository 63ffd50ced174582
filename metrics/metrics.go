// Package metrics holds the prometheus collectors of the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zkgames"

var (
	// ProveDuration is the time spent generating proofs, by circuit.
	ProveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "prover",
		Name:      "prove_duration_seconds",
		Help:      "Duration of proof generation in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"circuit"})

	// ProveFailures counts failed proof generations, by circuit.
	ProveFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prover",
		Name:      "prove_failures_total",
		Help:      "Total number of failed proof generations",
	}, []string{"circuit"})

	// VerifyDuration is the time spent verifying proofs, by circuit.
	VerifyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "verifier",
		Name:      "verify_duration_seconds",
		Help:      "Duration of proof verification in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	}, []string{"circuit"})

	// Transitions counts the submitted transitions by game, action and
	// result (accepted or rejected).
	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Total number of submitted session transitions",
	}, []string{"game", "action", "result"})

	// SessionsCreated counts created sessions by game.
	SessionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "created_total",
		Help:      "Total number of created sessions",
	}, []string{"game"})

	// SessionsFinished counts finished sessions by game and final phase.
	SessionsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "finished_total",
		Help:      "Total number of completed or timed out sessions",
	}, []string{"game", "phase"})
)

func init() {
	prometheus.MustRegister(
		ProveDuration,
		ProveFailures,
		VerifyDuration,
		Transitions,
		SessionsCreated,
		SessionsFinished,
	)
}

// Result returns the label of a transition outcome.
func Result(err error) string {
	if err != nil {
		return "rejected"
	}
	return "accepted"
}
