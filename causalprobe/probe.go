package causalprobe

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/logos-42/MultiAgentOracle-sub000/logging"
)

// Scenario is one round's causal query: a baseline prompt and a
// perturbed-prompt template, plus a ground-truth hint used only in
// test mode (spec.md §4.3).
type Scenario struct {
	ID                      string
	BaselinePrompt          string
	PerturbedPromptTemplate func(delta []float64) string
	GroundTruthHint         float64
}

// Mode selects how the probe recovers from a missing/unparseable
// response: TestMode substitutes GroundTruthHint, ProductionMode
// substitutes the agent's own base prediction for a failed perturbed
// query and 0 for a failed baseline query.
type Mode int

const (
	ProductionMode Mode = iota
	TestMode
)

// Pair is one agent's (f(x), f(x+δ)) result for the round, alongside
// whether that agent was demoted for this round.
type Pair struct {
	Agent     AgentID
	Baseline  float64
	Perturbed float64
	Degraded  bool
}

// Probe draws interventions and gathers response pairs for a set of
// agents. It calls the provider exactly twice per agent, strictly
// sequentially for a single agent, and places no ordering requirement
// across different agents.
type Probe struct {
	provider AgentResponseProvider
	mode     Mode
	log      logging.Logger
}

// New constructs a Probe bound to provider, operating in the given
// Mode.
func New(provider AgentResponseProvider, mode Mode, log logging.Logger) *Probe {
	if log == nil {
		log = logging.Default()
	}
	return &Probe{provider: provider, mode: mode, log: log}
}

// SampleIntervention draws D values uniformly from [-a, +a] using seed
// as the sole source of randomness, so δ is reproducible to auditors
// (spec.md §4.3: "seed ← hash of prior Consensus Record").
func SampleIntervention(seed []byte, d int, bound float64) []float64 {
	delta := make([]float64, d)
	counter := uint64(0)
	for i := 0; i < d; i++ {
		h := sha256.New()
		h.Write(seed)
		var ctrBytes [8]byte
		binary.LittleEndian.PutUint64(ctrBytes[:], counter)
		h.Write(ctrBytes[:])
		digest := h.Sum(nil)
		counter++

		// Use the first 8 bytes of the digest as a uniform uint64,
		// map to [0,1], then to [-bound, +bound].
		u := binary.LittleEndian.Uint64(digest[:8])
		frac := float64(u) / math.MaxUint64
		delta[i] = bound * (2*frac - 1)
	}
	return delta
}

// Run queries every agent in order, producing one Pair per agent.
// Each agent's two queries (baseline, then perturbed) are strictly
// sequential; agents may be queried concurrently relative to each
// other by the caller — Run itself makes no concurrency guarantee
// either way, matching spec.md §4.3's "MUST NOT rely on any ordering
// guarantee between different agents."
func (p *Probe) Run(ctx context.Context, scenario Scenario, delta []float64, agents []AgentID) []Pair {
	pairs := make([]Pair, 0, len(agents))
	for _, agent := range agents {
		pairs = append(pairs, p.queryOne(ctx, scenario, delta, agent))
	}
	return pairs
}

func (p *Probe) queryOne(ctx context.Context, scenario Scenario, delta []float64, agent AgentID) Pair {
	baseResp, baseErr := p.provider.Query(ctx, agent, scenario.BaselinePrompt)
	perturbedPrompt := scenario.PerturbedPromptTemplate(delta)
	perturbedResp, perturbedErr := p.provider.Query(ctx, agent, perturbedPrompt)

	pair := Pair{Agent: agent}

	baseOK := baseErr == nil && baseResp.Outcome == OutcomeOK
	perturbedOK := perturbedErr == nil && perturbedResp.Outcome == OutcomeOK

	if baseOK {
		pair.Baseline = baseResp.Value
	} else {
		pair.Baseline = p.fallback(scenario)
		pair.Degraded = true
		p.log.Warn("causal probe: baseline response degraded", "agent", agent, "scenario", scenario.ID, "err", fmt.Sprint(baseErr))
	}

	if perturbedOK {
		pair.Perturbed = perturbedResp.Value
	} else {
		// Production mode falls back to the agent's own base
		// prediction; test mode falls back to the ground truth hint.
		if p.mode == TestMode {
			pair.Perturbed = scenario.GroundTruthHint
		} else {
			pair.Perturbed = pair.Baseline
		}
		pair.Degraded = true
		p.log.Warn("causal probe: perturbed response degraded", "agent", agent, "scenario", scenario.ID, "err", fmt.Sprint(perturbedErr))
	}

	return pair
}

func (p *Probe) fallback(scenario Scenario) float64 {
	if p.mode == TestMode {
		return scenario.GroundTruthHint
	}
	return 0
}
