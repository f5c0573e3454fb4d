// Package detector implements the Malicious-Behavior Detector: Sybil,
// collusion, homogeneity, timing-anomaly and logical-inconsistency
// detection rules that run alongside the Commit-Reveal Coordinator
// and Consensus Clusterer (spec.md §4.7).
package detector

import (
	"math/bits"
	"sort"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/clusterer"
	"github.com/logos-42/MultiAgentOracle-sub000/commitreveal"
	"github.com/logos-42/MultiAgentOracle-sub000/fingerprint"
	"github.com/montanaflynn/stats"
)

// BehaviorKind is the closed set of malicious-behavior
// classifications the detector can emit.
type BehaviorKind int

const (
	HashMismatch BehaviorKind = iota
	DuplicateOrTimeout
	TimingAnomaly
	SybilAttack
	Collusion
	ModelHomogeneityIndividual
	ModelHomogeneityPair
	ModelHomogeneityCohort
	LogicalInconsistency
)

func (k BehaviorKind) String() string {
	switch k {
	case HashMismatch:
		return "hash_mismatch"
	case DuplicateOrTimeout:
		return "duplicate_or_timeout"
	case TimingAnomaly:
		return "timing_anomaly"
	case SybilAttack:
		return "sybil_attack"
	case Collusion:
		return "collusion"
	case ModelHomogeneityIndividual:
		return "model_homogeneity_individual"
	case ModelHomogeneityPair:
		return "model_homogeneity_pair"
	case ModelHomogeneityCohort:
		return "model_homogeneity_cohort"
	case LogicalInconsistency:
		return "logical_inconsistency"
	default:
		return "unknown"
	}
}

// BasePenalty maps each behavior kind to the base reputation penalty
// its confidence is multiplied against (spec.md §4.7: "Confidence is
// multiplied by a per-kind base penalty to yield the reputation
// delta").
func (k BehaviorKind) BasePenalty() float64 {
	switch k {
	case HashMismatch:
		return 200
	case Collusion:
		return 150
	case SybilAttack:
		return 100
	case DuplicateOrTimeout:
		return 50
	case TimingAnomaly:
		return 40
	case ModelHomogeneityCohort, ModelHomogeneityPair, ModelHomogeneityIndividual:
		return 30
	case LogicalInconsistency:
		return 20
	default:
		return 0
	}
}

// MaliciousNodeRecord is one detection event (spec.md §3/§4.7).
type MaliciousNodeRecord struct {
	AgentID    causalprobe.AgentID
	Behavior   BehaviorKind
	Confidence float64
	Evidence   string
}

// Config is the subset of deployment parameters the detector needs.
type Config struct {
	TimingZThreshold        float64
	MinSpectralEntropy      float64
	MaxSpectralEntropy      float64
	HomogeneityThreshold    float64
	MinModelDiversity       int
	CollusionHashSimilarity float64
	CollusionTimeWindow     time.Duration
	CosineThreshold         float64 // τ, shared with clusterer
}

// AgentMeta supplies the out-of-band identity metadata §4.7's Sybil
// and model-homogeneity rules require: an opaque external network
// identifier, and a model-equivalence-class label. Neither is
// invented by the detector; both are supplied by whatever constructs
// the round (spec.md §9's open question on model-diversity sourcing).
type AgentMeta struct {
	ExternalNetworkID string
	ModelClass        string
	ResponseTimes     []float64 // historical response latencies, seconds
}

// Detect runs every rule of spec.md §4.7 and returns the union of
// emitted records. clusterResult and fingerprints may be the zero
// value / nil if the round never reached clustering (e.g. it failed
// earlier); rules that depend on them are simply skipped.
func Detect(
	commitments map[causalprobe.AgentID]commitreveal.Commitment,
	reveals map[causalprobe.AgentID]commitreveal.Reveal,
	hashMismatches map[causalprobe.AgentID]bool,
	timedOut map[causalprobe.AgentID]bool,
	responseTimesNow map[causalprobe.AgentID]float64,
	meta map[causalprobe.AgentID]AgentMeta,
	fingerprints map[causalprobe.AgentID]fingerprint.CausalFingerprint,
	clusterResult *clusterer.Result,
	cfg Config,
) []MaliciousNodeRecord {
	var records []MaliciousNodeRecord

	records = append(records, detectHashMismatch(hashMismatches)...)
	records = append(records, detectDuplicateOrTimeout(timedOut)...)
	records = append(records, detectTimingAnomaly(responseTimesNow, meta, cfg)...)
	records = append(records, detectSybil(meta)...)
	records = append(records, detectCollusion(commitments, cfg)...)
	records = append(records, detectModelHomogeneity(fingerprints, meta, cfg)...)
	if clusterResult != nil {
		records = append(records, detectLogicalInconsistency(fingerprints, *clusterResult)...)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].AgentID != records[j].AgentID {
			return records[i].AgentID < records[j].AgentID
		}
		return records[i].Behavior < records[j].Behavior
	})
	return records
}

func detectHashMismatch(hashMismatches map[causalprobe.AgentID]bool) []MaliciousNodeRecord {
	var out []MaliciousNodeRecord
	for agent, mismatched := range hashMismatches {
		if mismatched {
			out = append(out, MaliciousNodeRecord{agent, HashMismatch, 1.0, "reveal hash did not match commitment"})
		}
	}
	return out
}

func detectDuplicateOrTimeout(timedOut map[causalprobe.AgentID]bool) []MaliciousNodeRecord {
	var out []MaliciousNodeRecord
	for agent, late := range timedOut {
		if late {
			out = append(out, MaliciousNodeRecord{agent, DuplicateOrTimeout, 0.5, "missed commit or reveal deadline"})
		}
	}
	return out
}

// detectTimingAnomaly flags an agent whose current response time
// deviates from its own historical mean by more than Z_threshold
// standard deviations, requiring at least 10 historical samples.
func detectTimingAnomaly(now map[causalprobe.AgentID]float64, meta map[causalprobe.AgentID]AgentMeta, cfg Config) []MaliciousNodeRecord {
	var out []MaliciousNodeRecord
	for agent, t := range now {
		m, ok := meta[agent]
		if !ok || len(m.ResponseTimes) < 10 {
			continue
		}
		mean, err := stats.Mean(m.ResponseTimes)
		if err != nil {
			continue
		}
		sd, err := stats.StandardDeviationPopulation(m.ResponseTimes)
		if err != nil || sd == 0 {
			continue
		}
		z := absF((t - mean) / sd)
		if z > cfg.TimingZThreshold {
			confidence := clamp01(0.9 * (z / (z + cfg.TimingZThreshold)))
			out = append(out, MaliciousNodeRecord{agent, TimingAnomaly, confidence, "response time Z-score exceeded threshold"})
		}
	}
	return out
}

// detectSybil flags agents that share an external network identifier
// with more than one other agent. Confidence scales as count/5,
// clamped to 1.0, and one record is emitted per involved agent.
func detectSybil(meta map[causalprobe.AgentID]AgentMeta) []MaliciousNodeRecord {
	groups := make(map[string][]causalprobe.AgentID)
	for agent, m := range meta {
		if m.ExternalNetworkID == "" {
			continue
		}
		groups[m.ExternalNetworkID] = append(groups[m.ExternalNetworkID], agent)
	}

	var out []MaliciousNodeRecord
	for _, members := range groups {
		if len(members) <= 2 {
			continue
		}
		confidence := clamp01(float64(len(members)) / 5.0)
		for _, agent := range members {
			out = append(out, MaliciousNodeRecord{agent, SybilAttack, confidence, "shares external network identifier with >2 agents"})
		}
	}
	return out
}

// detectCollusion flags pairs of commitments whose hashes are
// Hamming-similar above threshold and whose timestamps differ by less
// than the collusion time window.
func detectCollusion(commitments map[causalprobe.AgentID]commitreveal.Commitment, cfg Config) []MaliciousNodeRecord {
	agents := sortedCommitAgents(commitments)
	var out []MaliciousNodeRecord
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			ci, cj := commitments[agents[i]], commitments[agents[j]]
			sim := hashSimilarity(ci.Hash, cj.Hash)
			dt := ci.Timestamp.Sub(cj.Timestamp)
			if dt < 0 {
				dt = -dt
			}
			if sim > cfg.CollusionHashSimilarity && dt < cfg.CollusionTimeWindow {
				out = append(out,
					MaliciousNodeRecord{agents[i], Collusion, sim, "commitment hash colludes with " + string(agents[j])},
					MaliciousNodeRecord{agents[j], Collusion, sim, "commitment hash colludes with " + string(agents[i])},
				)
			}
		}
	}
	return out
}

func hashSimilarity(a, b [32]byte) float64 {
	diffBits := 0
	for i := range a {
		diffBits += bits.OnesCount8(a[i] ^ b[i])
	}
	return 1.0 - float64(diffBits)/float64(8*len(a))
}

// detectModelHomogeneity implements the three-part rule of spec.md
// §4.7(vi): per-agent entropy-range flags, pairwise eigenvalue-vector
// similarity flags, and a cohort-level diversity flag.
func detectModelHomogeneity(fps map[causalprobe.AgentID]fingerprint.CausalFingerprint, meta map[causalprobe.AgentID]AgentMeta, cfg Config) []MaliciousNodeRecord {
	var out []MaliciousNodeRecord
	agents := sortedFingerprintAgents(fps)

	for _, agent := range agents {
		entropy := fps[agent].SpectralFeatures.SpectralEntropy
		if entropy < cfg.MinSpectralEntropy || entropy > cfg.MaxSpectralEntropy {
			out = append(out, MaliciousNodeRecord{agent, ModelHomogeneityIndividual, 1.0, "spectral entropy outside configured range"})
		}
	}

	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			sim := clusterer.CosineSimilarity(fps[agents[i]].SpectralFeatures.Eigenvalues, fps[agents[j]].SpectralFeatures.Eigenvalues)
			if sim > cfg.HomogeneityThreshold {
				out = append(out,
					MaliciousNodeRecord{agents[i], ModelHomogeneityPair, sim, "eigenvalue vector homogeneous with " + string(agents[j])},
					MaliciousNodeRecord{agents[j], ModelHomogeneityPair, sim, "eigenvalue vector homogeneous with " + string(agents[i])},
				)
			}
		}
	}

	if len(agents) > 0 {
		classes := make(map[string]struct{})
		for _, agent := range agents {
			if m, ok := meta[agent]; ok && m.ModelClass != "" {
				classes[m.ModelClass] = struct{}{}
			}
		}
		if len(classes) < cfg.MinModelDiversity {
			out = append(out, MaliciousNodeRecord{"", ModelHomogeneityCohort, 1.0, "cohort model-diversity below minimum"})
		}
	}

	return out
}

// detectLogicalInconsistency flags an agent marked as an outlier by
// the clusterer whose cosine similarity to the centroid is negative.
func detectLogicalInconsistency(fps map[causalprobe.AgentID]fingerprint.CausalFingerprint, result clusterer.Result) []MaliciousNodeRecord {
	if len(result.ValidAgents) == 0 {
		return nil
	}
	centroid := make([]float64, len(fps[result.ValidAgents[0]].DeltaResponse))
	for _, a := range result.ValidAgents {
		dy := fps[a].DeltaResponse
		for i := 0; i < len(centroid) && i < len(dy); i++ {
			centroid[i] += dy[i] / float64(len(result.ValidAgents))
		}
	}

	var out []MaliciousNodeRecord
	for _, agent := range result.Outliers {
		sim := clusterer.CosineSimilarity(fps[agent].DeltaResponse, centroid)
		if sim < 0 {
			out = append(out, MaliciousNodeRecord{agent, LogicalInconsistency, clamp01(-sim), "outlier with negative similarity to consensus centroid"})
		}
	}
	return out
}

// ExcludedFromValid reports whether any record for agent carries a
// hash-mismatch, collusion, or Sybil kind. spec.md §4.7 says
// hash-mismatch/collusion force exclusion from valid_agents regardless
// of the clusterer's outcome; scenario #6 extends the same treatment
// to Sybil agents ("excluded from valid_agents even if their Δy
// vectors are mutually consistent").
func ExcludedFromValid(records []MaliciousNodeRecord, agent causalprobe.AgentID) bool {
	for _, r := range records {
		if r.AgentID == agent && (r.Behavior == HashMismatch || r.Behavior == Collusion || r.Behavior == SybilAttack) {
			return true
		}
	}
	return false
}

func sortedCommitAgents(m map[causalprobe.AgentID]commitreveal.Commitment) []causalprobe.AgentID {
	out := make([]causalprobe.AgentID, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedFingerprintAgents(m map[causalprobe.AgentID]fingerprint.CausalFingerprint) []causalprobe.AgentID {
	out := make([]causalprobe.AgentID, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
