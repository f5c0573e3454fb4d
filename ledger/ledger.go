// Package ledger defines the Consensus Record emitted exactly once
// per round and the external Ledger Sink / Reputation Store
// collaborators the core hands it to (spec.md §3, §6). Both
// collaborators are abstract: on-chain submission, durable storage,
// and explorer formatting live entirely outside this module.
package ledger

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/commitreveal"
	"github.com/logos-42/MultiAgentOracle-sub000/fingerprint"
	"github.com/logos-42/MultiAgentOracle-sub000/fixedpoint"
	"github.com/logos-42/MultiAgentOracle-sub000/reputation"
	"github.com/logos-42/MultiAgentOracle-sub000/zkproof"
)

// Sentinel errors (spec.md §7).
var (
	ErrSinkUnavailable = errors.New("ledger: sink unavailable")
	ErrRecordNotFound  = errors.New("ledger: record not found")
)

// Ack is the Ledger Sink's acknowledgement of a successfully
// submitted Consensus Record.
type Ack struct {
	ConsensusID []byte
	Accepted    bool
}

// ConsensusRecord Y is created exactly once per round and is
// immutable thereafter (spec.md §3).
type ConsensusRecord struct {
	RoundID               string
	ScenarioID            string
	Delta                 []float64
	ParticipatingAgents   []causalprobe.AgentID
	ValidAgents           []causalprobe.AgentID
	Outliers              []causalprobe.AgentID
	ConsensusValue        float64
	ConsensusSimilarity   float64
	ClusterQuality        float64
	Proofs                map[causalprobe.AgentID]zkproof.Proof
	CommitRevealTranscript [32]byte
	Timestamp             time.Time
}

// LedgerEncoded is the normative on-ledger encoding of a
// ConsensusRecord (spec.md §6): every real-valued field scaled to a
// fixed-point i64, proofs digested to a single 32-byte hash, and each
// participant's spectral fingerprint packed into the normative
// 16-slot layout of spec.md §4.1.
type LedgerEncoded struct {
	ConsensusID          []byte
	ScenarioID            string
	Delta                 []int64
	ValidAgents           []string
	Outliers              []string
	ConsensusValue        int64
	ConsensusSimilarity   int64
	ClusterQuality        int64
	ProofDigest           [32]byte
	Timestamp             int64
	FingerprintSlots      map[string]fixedpoint.FingerprintSlots
}

// Encode converts r into its normative ledger representation using
// the deployment-wide fixed-point scale. fingerprints supplies each
// participating agent's assembled CausalFingerprint so its spectral
// features can be packed onto the 16-slot ledger layout (spec.md
// §4.1); eigenCount is the deployment's K, used to locate the four
// summary slots at K..K+3. fingerprints may be nil, in which case
// FingerprintSlots is empty — callers that never persist fingerprints
// (e.g. tests exercising only the scalar fields) are unaffected.
func Encode(r ConsensusRecord, fingerprints map[causalprobe.AgentID]fingerprint.CausalFingerprint, eigenCount int, scale int64) (LedgerEncoded, error) {
	delta := make([]int64, len(r.Delta))
	for i, v := range r.Delta {
		scaled, err := fixedpoint.Encode(v, scale)
		if err != nil {
			return LedgerEncoded{}, err
		}
		delta[i] = scaled
	}
	consensusValue, err := fixedpoint.Encode(r.ConsensusValue, scale)
	if err != nil {
		return LedgerEncoded{}, err
	}
	consensusSimilarity, err := fixedpoint.Encode(r.ConsensusSimilarity, scale)
	if err != nil {
		return LedgerEncoded{}, err
	}
	clusterQuality, err := fixedpoint.Encode(r.ClusterQuality, scale)
	if err != nil {
		return LedgerEncoded{}, err
	}

	valid := make([]string, len(r.ValidAgents))
	for i, a := range r.ValidAgents {
		valid[i] = string(a)
	}
	outliers := make([]string, len(r.Outliers))
	for i, a := range r.Outliers {
		outliers[i] = string(a)
	}

	slots := make(map[string]fixedpoint.FingerprintSlots, len(fingerprints))
	for agent, fp := range fingerprints {
		sf := fp.SpectralFeatures
		s, err := fixedpoint.EncodeFingerprintSlots(sf.Eigenvalues, sf.SpectralRadius, sf.Trace, sf.EffectiveRank, sf.SpectralEntropy, eigenCount, scale)
		if err != nil {
			return LedgerEncoded{}, err
		}
		slots[string(agent)] = s
	}

	return LedgerEncoded{
		ConsensusID:         consensusID(r),
		ScenarioID:          r.ScenarioID,
		Delta:               delta,
		ValidAgents:         valid,
		Outliers:            outliers,
		ConsensusValue:      consensusValue,
		ConsensusSimilarity: consensusSimilarity,
		ClusterQuality:      clusterQuality,
		ProofDigest:         proofDigest(r.Proofs),
		Timestamp:           r.Timestamp.Unix(),
		FingerprintSlots:    slots,
	}, nil
}

func consensusID(r ConsensusRecord) []byte {
	h := sha256.New()
	h.Write([]byte(r.RoundID))
	h.Write([]byte(r.ScenarioID))
	h.Write(r.CommitRevealTranscript[:])
	return h.Sum(nil)
}

// proofDigest computes the SHA-256 over the concatenation of every
// agent's full serialized proof bytes (commitment, nonce, and both
// Okamoto responses — not just the commitment), ordered by agent ID
// so the digest is independent of map iteration order and binds the
// whole of each π_i (spec.md §6: "SHA-256 over concatenated π_i").
func proofDigest(proofs map[causalprobe.AgentID]zkproof.Proof) [32]byte {
	agents := make([]causalprobe.AgentID, 0, len(proofs))
	for a := range proofs {
		agents = append(agents, a)
	}
	sortAgents(agents)

	h := sha256.New()
	for _, a := range agents {
		h.Write(proofs[a].Bytes())
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func sortAgents(agents []causalprobe.AgentID) {
	for i := 1; i < len(agents); i++ {
		for j := i; j > 0 && agents[j-1] > agents[j]; j-- {
			agents[j-1], agents[j] = agents[j], agents[j-1]
		}
	}
}

// TranscriptDigest computes the commit-reveal transcript digest
// field of the Consensus Record: SHA-256 over every agent's
// commitment hash, ordered by agent ID. Reveal payloads are not
// hashed.
func TranscriptDigest(commitments map[causalprobe.AgentID]commitreveal.Commitment) [32]byte {
	agents := make([]causalprobe.AgentID, 0, len(commitments))
	for a := range commitments {
		agents = append(agents, a)
	}
	sortAgents(agents)

	h := sha256.New()
	for _, a := range agents {
		c := commitments[a]
		h.Write(c.Hash[:])
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// Sink is the external, abstract Ledger Sink collaborator (spec.md
// §6). A submitted record is either acknowledged or returns a
// retryable error; the core never blocks on sink durability.
type Sink interface {
	Record(ctx context.Context, record ConsensusRecord) (Ack, error)
}

// Store is the external, abstract Reputation Store collaborator
// (spec.md §6): durable backing for reputation.Record across process
// restarts.
type Store interface {
	LoadAll(ctx context.Context) (map[causalprobe.AgentID]reputation.Record, error)
	Save(ctx context.Context, record reputation.Record) error
	Delete(ctx context.Context, agent causalprobe.AgentID) error
	LoadHistory(ctx context.Context, agent causalprobe.AgentID, start, end time.Time) ([]reputation.UpdateEntry, error)
}
