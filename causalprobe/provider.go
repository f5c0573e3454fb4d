// Package causalprobe draws the per-round intervention δ and queries
// each agent twice (baseline and perturbed) to form the atomic causal
// response Δy (spec.md §4.3). Agent transport itself is out of
// scope; this package only depends on the AgentResponseProvider
// interface.
package causalprobe

import (
	"context"
	"errors"
)

// AgentID identifies a participating agent.
type AgentID string

// ResponseOutcome is the closed set of outcomes an
// AgentResponseProvider must report (spec.md §6).
type ResponseOutcome int

const (
	// OutcomeOK means Value holds a valid numeric response.
	OutcomeOK ResponseOutcome = iota
	// OutcomeUnavailable triggers probe-level retry.
	OutcomeUnavailable
	// OutcomeMalformed causes agent demotion for the round.
	OutcomeMalformed
)

// NumericResponse is the result of one query to one agent.
type NumericResponse struct {
	Outcome ResponseOutcome
	Value   float64
}

var (
	// ErrUnavailable signals a transient provider failure, eligible
	// for probe-level retry.
	ErrUnavailable = errors.New("causalprobe: agent unavailable")
	// ErrMalformed signals the provider could not extract a numeric
	// value from the agent's reply.
	ErrMalformed = errors.New("causalprobe: malformed agent response")
)

// AgentResponseProvider is the sole external collaborator this
// package depends on. It is responsible for transport,
// transport-level retries, and extracting a single real number from
// whatever the underlying language model returned.
type AgentResponseProvider interface {
	Query(ctx context.Context, agent AgentID, prompt string) (NumericResponse, error)
}
