// Package round implements the Round Driver: the state machine that
// orchestrates one full consensus round across every other package,
// from intervention sampling through ledger submission
// (spec.md §4.10, §5).
package round

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/clusterer"
	"github.com/logos-42/MultiAgentOracle-sub000/commitreveal"
	"github.com/logos-42/MultiAgentOracle-sub000/config"
	"github.com/logos-42/MultiAgentOracle-sub000/detector"
	"github.com/logos-42/MultiAgentOracle-sub000/fingerprint"
	"github.com/logos-42/MultiAgentOracle-sub000/ledger"
	"github.com/logos-42/MultiAgentOracle-sub000/logging"
	"github.com/logos-42/MultiAgentOracle-sub000/metrics"
	"github.com/logos-42/MultiAgentOracle-sub000/reputation"
	"github.com/logos-42/MultiAgentOracle-sub000/zkproof"
)

// Phase is the Round Driver's position in its state machine
// (spec.md §4.10): Idle -> Probing -> Committing -> Revealing ->
// Aggregating -> Detecting -> Binding -> Updating -> Finalised, or
// Failed from any of the suspending phases.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseCommitting
	PhaseRevealing
	PhaseAggregating
	PhaseDetecting
	PhaseBinding
	PhaseUpdating
	PhaseFinalised
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseProbing:
		return "Probing"
	case PhaseCommitting:
		return "Committing"
	case PhaseRevealing:
		return "Revealing"
	case PhaseAggregating:
		return "Aggregating"
	case PhaseDetecting:
		return "Detecting"
	case PhaseBinding:
		return "Binding"
	case PhaseUpdating:
		return "Updating"
	case PhaseFinalised:
		return "Finalised"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

var (
	// ErrNoAgents is returned when a round is started with an empty
	// agent registry.
	ErrNoAgents = errors.New("round: no participating agents")
)

// AgentRegistry is the convenience binding of agent identity to the
// out-of-band metadata the Malicious-Behavior Detector needs
// (spec.md §9's open question on model-diversity sourcing). It is
// supplied by whatever constructs the Round Driver, never invented by
// the consensus algorithms themselves.
type AgentRegistry map[causalprobe.AgentID]detector.AgentMeta

// Agents returns the registry's agent IDs in no particular order.
func (r AgentRegistry) Agents() []causalprobe.AgentID {
	out := make([]causalprobe.AgentID, 0, len(r))
	for a := range r {
		out = append(out, a)
	}
	return out
}

// RoundOutcome carries whatever partial data a round accumulated,
// whether it finished normally or failed (spec.md §5: "RoundOutcome
// carrying partial data on failure").
type RoundOutcome struct {
	RoundID        string
	Phase          Phase
	ConsensusRecord ledger.ConsensusRecord
	// LedgerEncoded is the normative fixed-point/digest encoding of
	// ConsensusRecord (spec.md §6), including the spectral fingerprint
	// of every agent whose reveal was accepted, packed into the 16-slot
	// layout of §4.1.
	// Zero-valued if encoding never ran, e.g. on a Failed outcome.
	LedgerEncoded    ledger.LedgerEncoded
	MaliciousRecords []detector.MaliciousNodeRecord
	Err            error
}

// CommitFunc produces the nonce and the commitment hash for one
// agent's response. Supplying this as a function keeps the
// Round Driver independent of how a particular agent binds its nonce
// (local simulation vs. a remote signer).
type CommitFunc func(agent causalprobe.AgentID, data commitreveal.ResponseData) (nonce [32]byte, hash [32]byte)

// PrivateInputsFunc supplies the ZK Proof Binder's private inputs for
// one agent's fingerprint, since the flattened history/covariance/
// eigenvector material lives inside the Spectral Analyzer's
// intermediate state, not in the public CausalFingerprint.
type PrivateInputsFunc func(agent causalprobe.AgentID, history [][]float64, fp fingerprint.CausalFingerprint) zkproof.PrivateInputs

// Driver orchestrates one consensus round end to end.
type Driver struct {
	provider  causalprobe.AgentResponseProvider
	sink      ledger.Sink
	reputation *reputation.Updater
	registry  AgentRegistry
	cfg       config.Parameters
	log       logging.Logger
	metrics   *metrics.Metrics

	histories map[causalprobe.AgentID]*fingerprint.HistoryWindow
}

// New constructs a Driver. m may be nil to disable metrics emission.
func New(
	provider causalprobe.AgentResponseProvider,
	sink ledger.Sink,
	rep *reputation.Updater,
	registry AgentRegistry,
	cfg config.Parameters,
	log logging.Logger,
	m *metrics.Metrics,
) *Driver {
	if log == nil {
		log = logging.Default()
	}
	histories := make(map[causalprobe.AgentID]*fingerprint.HistoryWindow, len(registry))
	for agent := range registry {
		histories[agent] = fingerprint.NewHistoryWindow(cfg.HistoryWindow)
	}
	return &Driver{
		provider:   provider,
		sink:       sink,
		reputation: rep,
		registry:   registry,
		cfg:        cfg,
		log:        log,
		metrics:    m,
		histories:  histories,
	}
}

// RunRound drives one full round for scenario, using priorDigest as
// the public seed for intervention sampling (spec.md §4.3: "seed <-
// hash of prior Consensus Record"). commitFn and privFn plug in the
// per-agent commit and ZK private-input material; mode selects the
// Causal Probe's missing-response fallback behavior.
func (d *Driver) RunRound(
	ctx context.Context,
	roundID string,
	scenario causalprobe.Scenario,
	priorDigest []byte,
	mode causalprobe.Mode,
	commitFn CommitFunc,
	privFn PrivateInputsFunc,
	now time.Time,
) RoundOutcome {
	outcome := RoundOutcome{RoundID: roundID, Phase: PhaseIdle}
	agents := d.registry.Agents()
	if len(agents) == 0 {
		outcome.Phase = PhaseFailed
		outcome.Err = ErrNoAgents
		d.recordFailure("no_agents")
		return outcome
	}

	delta := causalprobe.SampleIntervention(priorDigest, d.cfg.Dimensionality, d.cfg.InterventionBound)

	outcome.Phase = PhaseProbing
	probe := causalprobe.New(d.provider, mode, d.log)
	pairs := d.retryProbe(ctx, probe, scenario, delta, agents)

	outcome.Phase = PhaseCommitting
	coordinator := commitreveal.New(agents, now, now.Add(d.cfg.CommitDeadline), d.cfg.RevealDeadline, d.cfg.MaliciousThreshold, d.log)

	responseData := make(map[causalprobe.AgentID]commitreveal.ResponseData, len(pairs))
	for _, p := range pairs {
		responseData[p.Agent] = commitreveal.ResponseData{BasePrediction: p.Baseline, DeltaResponse: deltaYOf(p, delta)}
	}
	for _, agent := range agents {
		data := responseData[agent]
		nonce, hash := commitFn(agent, data)
		err := coordinator.SubmitCommitment(commitreveal.Commitment{AgentID: agent, Hash: hash, Nonce: nonce, Timestamp: now}, now)
		if err != nil {
			d.log.Warn("round: commitment rejected", "agent", agent, "err", err)
		}
	}

	if err := coordinator.CheckTimeouts(now); err != nil && coordinator.State() == commitreveal.StateFailed {
		outcome.Phase = PhaseFailed
		outcome.Err = fmt.Errorf("commit phase: %w", err)
		d.recordFailure("commit_quorum")
		return outcome
	}

	outcome.Phase = PhaseRevealing
	revealTime := now.Add(time.Millisecond)
	hashMismatches := make(map[causalprobe.AgentID]bool)
	for _, agent := range agents {
		data := responseData[agent]
		commitment := coordinator.Commitments()[agent]
		err := coordinator.SubmitReveal(commitreveal.Reveal{AgentID: agent, Data: data, Nonce: commitment.Nonce, Timestamp: revealTime}, revealTime)
		if errors.Is(err, commitreveal.ErrRevealMismatch) {
			hashMismatches[agent] = true
		} else if err != nil {
			d.log.Warn("round: reveal rejected", "agent", agent, "err", err)
		} else if d.metrics != nil {
			d.metrics.RevealLatency.Observe(revealTime.Sub(commitment.Timestamp).Seconds())
		}
	}

	if err := coordinator.CheckTimeouts(revealTime); err != nil && coordinator.State() == commitreveal.StateFailed {
		outcome.Phase = PhaseFailed
		outcome.Err = fmt.Errorf("reveal phase: %w", err)
		d.recordFailure("reveal_quorum")
		return outcome
	}

	verified, err := coordinator.VerifiedResponses()
	if err != nil {
		outcome.Phase = PhaseFailed
		outcome.Err = fmt.Errorf("round: coordinator did not complete: %w", err)
		d.recordFailure("coordinator_incomplete")
		return outcome
	}

	outcome.Phase = PhaseAggregating
	fingerprints := make(map[causalprobe.AgentID]fingerprint.CausalFingerprint, len(verified))
	for agent, data := range verified {
		history := d.histories[agent]
		if history == nil {
			history = fingerprint.NewHistoryWindow(d.cfg.HistoryWindow)
			d.histories[agent] = history
		}
		pair := pairFor(pairs, agent)
		fp := fingerprint.Assemble(agent, pair, delta, history.Snapshot(), d.cfg.EigenCount, confidenceFor(pair), now)
		fp.DeltaResponse = data.DeltaResponse
		history.Append(fp.DeltaResponse)
		fingerprints[agent] = fp
	}

	clusterResult := clusterer.Cluster(fingerprints, clusterer.Config{CosineThreshold: d.cfg.CosineThreshold, MinValidAgents: d.cfg.MinValidAgents})
	if d.metrics != nil {
		d.metrics.ClusterQuality.Observe(clusterResult.ClusterQuality)
	}

	outcome.Phase = PhaseDetecting
	timedOut := make(map[causalprobe.AgentID]bool)
	for _, agent := range agents {
		if _, ok := verified[agent]; !ok {
			timedOut[agent] = true
		}
	}
	respTimes := map[causalprobe.AgentID]float64{}
	malicious := detector.Detect(
		coordinator.Commitments(), coordinator.Reveals(), hashMismatches, timedOut,
		respTimes, map[causalprobe.AgentID]detector.AgentMeta(d.registry), fingerprints, &clusterResult,
		detector.Config{
			TimingZThreshold:        d.cfg.TimingZThreshold,
			MinSpectralEntropy:      d.cfg.MinSpectralEntropy,
			MaxSpectralEntropy:      d.cfg.MaxSpectralEntropy,
			HomogeneityThreshold:    d.cfg.HomogeneityThreshold,
			MinModelDiversity:       d.cfg.MinModelDiversity,
			CollusionHashSimilarity: d.cfg.CollusionHashSimilarity,
			CollusionTimeWindow:     d.cfg.CollusionTimeWindow,
			CosineThreshold:         d.cfg.CosineThreshold,
		},
	)
	if d.metrics != nil {
		for _, r := range malicious {
			d.metrics.MaliciousFlagged.WithLabelValues(r.Behavior.String()).Inc()
		}
	}

	// spec.md §4.7: "any agent with a hash-mismatch or collusion record
	// is excluded from valid_agents regardless of §4.6's clustering
	// outcome" (scenario #6 extends the same treatment to Sybil
	// agents). Enforce that here, before any proof, ledger, or
	// reputation consequence is derived from valid_agents.
	clusterResult.ValidAgents, clusterResult.Outliers = excludeMalicious(clusterResult.ValidAgents, clusterResult.Outliers, malicious)

	outcome.Phase = PhaseBinding
	proofs := make(map[causalprobe.AgentID]zkproof.Proof, len(clusterResult.ValidAgents))
	for _, agent := range clusterResult.ValidAgents {
		fp := fingerprints[agent]
		pub := zkproof.PublicInputs{
			Delta:                    delta,
			DeltaY:                   fp.DeltaResponse,
			ClaimedEigenvalues:       truncate(fp.SpectralFeatures.Eigenvalues, d.cfg.EigenCountClaimed),
			SpectralRadius:           fp.SpectralFeatures.SpectralRadius,
			SpectralEntropy:          fp.SpectralFeatures.SpectralEntropy,
			CosineSimilarityToGlobal: clusterResult.ConsensusSimilarity,
		}
		priv := privFn(agent, d.histories[agent].Snapshot(), fp)
		proof, err := zkproof.GenerateProof(priv, pub)
		if err != nil {
			d.log.Warn("round: proof generation failed", "agent", agent, "err", err)
			continue
		}
		proofs[agent] = proof
	}

	outcome.Phase = PhaseUpdating
	if d.reputation != nil {
		d.applyReputation(agents, fingerprints, clusterResult, malicious, now)
	}

	record := ledger.ConsensusRecord{
		RoundID:                roundID,
		ScenarioID:             scenario.ID,
		Delta:                  delta,
		ParticipatingAgents:    agents,
		ValidAgents:            clusterResult.ValidAgents,
		Outliers:               clusterResult.Outliers,
		ConsensusValue:         clusterResult.ConsensusValue,
		ConsensusSimilarity:    clusterResult.ConsensusSimilarity,
		ClusterQuality:         clusterResult.ClusterQuality,
		Proofs:                 proofs,
		CommitRevealTranscript: ledger.TranscriptDigest(coordinator.Commitments()),
		Timestamp:              now,
	}

	if d.sink != nil {
		if _, err := d.sink.Record(ctx, record); err != nil {
			d.log.Warn("round: ledger sink did not acknowledge, finalising locally", "round", roundID, "err", err)
		}
	}

	encoded, err := ledger.Encode(record, fingerprints, d.cfg.EigenCount, d.cfg.Scale)
	if err != nil {
		d.log.Warn("round: ledger encoding failed, finalising without it", "round", roundID, "err", err)
	}

	outcome.Phase = PhaseFinalised
	outcome.ConsensusRecord = record
	outcome.LedgerEncoded = encoded
	outcome.MaliciousRecords = malicious
	if d.metrics != nil {
		d.metrics.RoundsFinalized.Inc()
	}
	return outcome
}

// retryProbe runs the Causal Probe, then re-probes degraded agents up
// to MaxRetries more times. Since causalprobe.Probe.Run reports
// degraded agents rather than erroring, a "retry" here simply
// re-probes the agents still marked Degraded after the previous
// attempt. Attempts run back to back with no delay or backoff between
// them, and every degraded agent is re-probed whatever the cause
// (unavailable and malformed responses alike).
func (d *Driver) retryProbe(ctx context.Context, probe *causalprobe.Probe, scenario causalprobe.Scenario, delta []float64, agents []causalprobe.AgentID) []causalprobe.Pair {
	pairs := probe.Run(ctx, scenario, delta, agents)
	attempt := 0
	for attempt < d.cfg.MaxRetries {
		degraded := degradedAgents(pairs)
		if len(degraded) == 0 {
			break
		}
		attempt++
		retried := probe.Run(ctx, scenario, delta, degraded)
		pairs = mergeRetried(pairs, retried)
	}
	return pairs
}

func degradedAgents(pairs []causalprobe.Pair) []causalprobe.AgentID {
	var out []causalprobe.AgentID
	for _, p := range pairs {
		if p.Degraded {
			out = append(out, p.Agent)
		}
	}
	return out
}

func mergeRetried(pairs []causalprobe.Pair, retried []causalprobe.Pair) []causalprobe.Pair {
	byAgent := make(map[causalprobe.AgentID]causalprobe.Pair, len(retried))
	for _, r := range retried {
		byAgent[r.Agent] = r
	}
	out := make([]causalprobe.Pair, len(pairs))
	for i, p := range pairs {
		if r, ok := byAgent[p.Agent]; ok {
			out[i] = r
		} else {
			out[i] = p
		}
	}
	return out
}

func pairFor(pairs []causalprobe.Pair, agent causalprobe.AgentID) causalprobe.Pair {
	for _, p := range pairs {
		if p.Agent == agent {
			return p
		}
	}
	return causalprobe.Pair{Agent: agent}
}

func deltaYOf(pair causalprobe.Pair, delta []float64) []float64 {
	scalar := pair.Perturbed - pair.Baseline
	out := make([]float64, len(delta))
	for i := range out {
		out[i] = scalar
	}
	return out
}

func confidenceFor(pair causalprobe.Pair) float64 {
	if pair.Degraded {
		return 0.3
	}
	return 0.9
}

// excludeMalicious moves every agent detector.ExcludedFromValid flags
// (hash mismatch, collusion, or Sybil) out of valid and into outliers,
// preserving the sorted-by-agent-id order both slices already carry
// so the partition stays a deterministic function of the input set.
func excludeMalicious(valid, outliers []causalprobe.AgentID, malicious []detector.MaliciousNodeRecord) (newValid, newOutliers []causalprobe.AgentID) {
	var excluded []causalprobe.AgentID
	for _, agent := range valid {
		if detector.ExcludedFromValid(malicious, agent) {
			excluded = append(excluded, agent)
			continue
		}
		newValid = append(newValid, agent)
	}
	if len(excluded) == 0 {
		return valid, outliers
	}
	newOutliers = append(append([]causalprobe.AgentID(nil), outliers...), excluded...)
	sort.Slice(newOutliers, func(i, j int) bool { return newOutliers[i] < newOutliers[j] })
	return newValid, newOutliers
}

func truncate(v []float64, k int) []float64 {
	if k > len(v) {
		k = len(v)
	}
	out := make([]float64, k)
	copy(out, v[:k])
	return out
}

func (d *Driver) applyReputation(
	agents []causalprobe.AgentID,
	fingerprints map[causalprobe.AgentID]fingerprint.CausalFingerprint,
	result clusterer.Result,
	malicious []detector.MaliciousNodeRecord,
	now time.Time,
) {
	validSet := make(map[causalprobe.AgentID]struct{}, len(result.ValidAgents))
	for _, a := range result.ValidAgents {
		validSet[a] = struct{}{}
	}
	centroid := centroidFor(result.ValidAgents, fingerprints)

	for _, agent := range agents {
		if _, err := d.reputation.Get(agent); err != nil {
			if err := d.reputation.Register(agent, now); err != nil {
				d.log.Warn("round: registering agent failed", "agent", agent, "err", err)
				continue
			}
		}
		fp, hasFP := fingerprints[agent]
		if hasFP {
			_, isValid := validSet[agent]
			isOutlier := !isValid
			sim := clusterer.CosineSimilarity(fp.DeltaResponse, centroid)
			if err := d.reputation.ApplyLogicalConsistency(agent, sim, isOutlier, now); err != nil {
				d.log.Warn("round: applying logical consistency failed", "agent", agent, "err", err)
			}
			if err := d.reputation.ApplySpectralConsistency(agent, fp.SpectralFeatures.SpectralEntropy, now); err != nil {
				d.log.Warn("round: applying spectral consistency failed", "agent", agent, "err", err)
			}
			if err := d.reputation.UpdateGlobalFingerprint(agent, fp.SpectralFeatures); err != nil {
				d.log.Warn("round: updating global fingerprint failed", "agent", agent, "err", err)
			}
		}
	}

	for _, rec := range malicious {
		if rec.AgentID == "" {
			continue
		}
		severity := severityFor(rec)
		if err := d.reputation.ApplyPenalty(rec.AgentID, severity, now); err != nil {
			d.log.Warn("round: applying penalty failed", "agent", rec.AgentID, "err", err)
		}
	}
}

func severityFor(rec detector.MaliciousNodeRecord) reputation.Severity {
	switch rec.Behavior {
	case detector.HashMismatch, detector.Collusion:
		return reputation.Malicious
	case detector.SybilAttack:
		return reputation.Severe
	case detector.TimingAnomaly, detector.ModelHomogeneityCohort, detector.ModelHomogeneityPair, detector.ModelHomogeneityIndividual:
		return reputation.Moderate
	default:
		return reputation.Minor
	}
}

func centroidFor(validAgents []causalprobe.AgentID, fps map[causalprobe.AgentID]fingerprint.CausalFingerprint) []float64 {
	if len(validAgents) == 0 {
		return nil
	}
	d := len(fps[validAgents[0]].DeltaResponse)
	centroid := make([]float64, d)
	for _, a := range validAgents {
		dy := fps[a].DeltaResponse
		for i := 0; i < d && i < len(dy); i++ {
			centroid[i] += dy[i] / float64(len(validAgents))
		}
	}
	return centroid
}

func (d *Driver) recordFailure(reason string) {
	if d.metrics != nil {
		d.metrics.RoundsFailed.WithLabelValues(reason).Inc()
	}
}

// DigestConsensusRecord computes the public seed for the next round:
// SHA-256 over the prior round's RoundID and commit-reveal transcript
// digest. The other record fields (consensus value, agent lists,
// proofs) are not hashed.
func DigestConsensusRecord(r ledger.ConsensusRecord) []byte {
	h := sha256.New()
	h.Write([]byte(r.RoundID))
	h.Write(r.CommitRevealTranscript[:])
	sum := h.Sum(nil)
	return sum
}
