// Package commitreveal implements the two-phase commit-reveal
// protocol binding each agent's response before disclosure
// (spec.md §4.5). A Coordinator instance is single-threaded
// cooperative: ingress of SubmitCommitment/SubmitReveal is expected
// to be serialized by the caller (typically the Round Driver), and
// neither call blocks.
package commitreveal

import (
	"crypto/sha256"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/logging"
)

// State is the coordinator's position in the
// Commitment -> Reveal -> Completed | Failed state machine.
type State int

const (
	StateCommitment State = iota
	StateReveal
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCommitment:
		return "Commitment"
	case StateReveal:
		return "Reveal"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Commitment C_i (spec.md §3).
type Commitment struct {
	AgentID   causalprobe.AgentID
	Hash      [32]byte
	Nonce     [32]byte
	Timestamp time.Time
}

// Reveal is the pre-image opened against a prior Commitment.
type Reveal struct {
	AgentID   causalprobe.AgentID
	Data      ResponseData
	Nonce     [32]byte
	Timestamp time.Time
}

// VerificationResult is produced for every stored reveal once the
// coordinator transitions to Completed.
type VerificationResult struct {
	AgentID AgentID
	Valid   bool
}

// AgentID is re-exported for package ergonomics.
type AgentID = causalprobe.AgentID

// Hash computes H(data ‖ nonce) = SHA-256(serialize(data) ‖ nonce),
// the commitment hash function of spec.md §4.5.
func Hash(data ResponseData, nonce [32]byte) [32]byte {
	h := sha256.New()
	h.Write(data.Serialize())
	h.Write(nonce[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Coordinator drives one round's commit-reveal protocol.
type Coordinator struct {
	participating map[AgentID]struct{}
	state         State

	commitDeadline time.Time
	revealDeadline time.Time
	revealWindow   time.Duration
	malThreshold   float64

	commitments map[AgentID]Commitment
	reveals     map[AgentID]Reveal

	log logging.Logger
}

// New constructs a Coordinator for the given participating set. now
// is the coordinator's creation time; commitDeadline is an absolute
// deadline (t_c); revealWindow is Δ_r, the duration of the reveal
// phase once it opens. malThreshold is the participation floor
// (default 0.80) below which a round fails for QuorumNotReached.
func New(participating []AgentID, now time.Time, commitDeadline time.Time, revealWindow time.Duration, malThreshold float64, log logging.Logger) *Coordinator {
	set := make(map[AgentID]struct{}, len(participating))
	for _, a := range participating {
		set[a] = struct{}{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Coordinator{
		participating:  set,
		state:          StateCommitment,
		commitDeadline: commitDeadline,
		revealWindow:   revealWindow,
		malThreshold:   malThreshold,
		commitments:    make(map[AgentID]Commitment),
		reveals:        make(map[AgentID]Reveal),
		log:            log,
	}
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State { return c.state }

// SubmitCommitment accepts a commitment during the Commitment phase.
// When every participating agent has committed, the coordinator
// transitions to Reveal with deadline now + revealWindow.
func (c *Coordinator) SubmitCommitment(commitment Commitment, now time.Time) error {
	if c.state != StateCommitment {
		return ErrWrongState
	}
	if now.After(c.commitDeadline) {
		return ErrCommitmentExpired
	}
	if _, ok := c.participating[commitment.AgentID]; !ok {
		return ErrUnknownAgent
	}
	if _, exists := c.commitments[commitment.AgentID]; exists {
		return ErrCommitmentAlreadyExists
	}

	c.commitments[commitment.AgentID] = commitment
	c.log.Debug("commit accepted", "agent", commitment.AgentID, "count", len(c.commitments), "total", len(c.participating))

	if len(c.commitments) == len(c.participating) {
		c.revealDeadline = now.Add(c.revealWindow)
		c.state = StateReveal
		c.log.Info("commitment phase complete, entering reveal", "deadline", c.revealDeadline)
	}
	return nil
}

// SubmitReveal accepts a reveal during the Reveal phase. It is
// accepted only if an unopened commitment exists for the agent and
// the reveal's hash/nonce/timestamp match it.
func (c *Coordinator) SubmitReveal(reveal Reveal, now time.Time) error {
	if c.state != StateReveal {
		return ErrWrongState
	}
	if now.After(c.revealDeadline) {
		return ErrTimeout
	}

	commitment, ok := c.commitments[reveal.AgentID]
	if !ok {
		return ErrNoCommitment
	}
	if _, already := c.reveals[reveal.AgentID]; already {
		return ErrAlreadyRevealed
	}

	if reveal.Nonce != commitment.Nonce {
		return ErrRevealMismatch
	}
	if reveal.Timestamp.Before(commitment.Timestamp) {
		return ErrRevealMismatch
	}
	if Hash(reveal.Data, reveal.Nonce) != commitment.Hash {
		return ErrRevealMismatch
	}

	c.reveals[reveal.AgentID] = reveal
	c.log.Debug("reveal accepted", "agent", reveal.AgentID, "count", len(c.reveals), "total", len(c.commitments))

	if len(c.reveals) == len(c.commitments) {
		c.state = StateCompleted
		c.log.Info("reveal phase complete")
	}
	return nil
}

// CheckTimeouts transitions the coordinator to Failed if a deadline
// has passed without the required phase completing. It is a no-op if
// the coordinator is already Completed or Failed.
func (c *Coordinator) CheckTimeouts(now time.Time) error {
	switch c.state {
	case StateCommitment:
		if now.After(c.commitDeadline) {
			floor := c.malThreshold * float64(len(c.participating))
			if float64(len(c.commitments)) < floor {
				c.state = StateFailed
				c.log.Warn("commit phase timed out below participation floor", "commits", len(c.commitments), "floor", floor)
				return ErrQuorumNotReached
			}
			c.state = StateFailed
			return ErrTimeout
		}
	case StateReveal:
		if now.After(c.revealDeadline) {
			c.state = StateFailed
			c.log.Warn("reveal phase timed out", "reveals", len(c.reveals), "commitments", len(c.commitments))
			return ErrTimeout
		}
	}
	return nil
}

// VerifiedResponses returns the response data of every agent whose
// reveal was accepted, once the coordinator has reached Completed.
// Returns ErrWrongState otherwise.
func (c *Coordinator) VerifiedResponses() (map[AgentID]ResponseData, error) {
	if c.state != StateCompleted {
		return nil, ErrWrongState
	}
	out := make(map[AgentID]ResponseData, len(c.reveals))
	for agent, reveal := range c.reveals {
		out[agent] = reveal.Data
	}
	return out, nil
}

// Commitments returns a read-only snapshot of all stored
// commitments, shared between the Coordinator and the
// Malicious-Behavior Detector (spec.md §3's ownership model).
func (c *Coordinator) Commitments() map[AgentID]Commitment {
	out := make(map[AgentID]Commitment, len(c.commitments))
	for k, v := range c.commitments {
		out[k] = v
	}
	return out
}

// Reveals returns a read-only snapshot of all stored reveals.
func (c *Coordinator) Reveals() map[AgentID]Reveal {
	out := make(map[AgentID]Reveal, len(c.reveals))
	for k, v := range c.reveals {
		out[k] = v
	}
	return out
}

// Participating reports the full participating set for this round.
func (c *Coordinator) Participating() []AgentID {
	out := make([]AgentID, 0, len(c.participating))
	for a := range c.participating {
		out = append(out, a)
	}
	return out
}
