// Command cfceround drives a single in-memory consensus round against
// a fake agent provider, the way the teacher's demo binaries exercise
// a full pipeline without a live backend. It is not an operator CLI:
// no flags, no experiment harness, no result files.
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/rand"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/commitreveal"
	"github.com/logos-42/MultiAgentOracle-sub000/config"
	"github.com/logos-42/MultiAgentOracle-sub000/fingerprint"
	"github.com/logos-42/MultiAgentOracle-sub000/ledger"
	"github.com/logos-42/MultiAgentOracle-sub000/logging"
	"github.com/logos-42/MultiAgentOracle-sub000/metrics"
	"github.com/logos-42/MultiAgentOracle-sub000/reputation"
	"github.com/logos-42/MultiAgentOracle-sub000/round"
	"github.com/logos-42/MultiAgentOracle-sub000/zkproof"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeProvider simulates four agents answering a causal query, three
// in rough agreement and one adversarial outlier.
type fakeProvider struct {
	rng *rand.Rand
}

func (p *fakeProvider) Query(ctx context.Context, agent causalprobe.AgentID, prompt string) (causalprobe.NumericResponse, error) {
	base := map[causalprobe.AgentID]float64{"agent-a": 100, "agent-b": 101, "agent-c": 99, "agent-d": -50}[agent]
	if len(prompt) > 0 && prompt[:1] == "p" {
		base += map[causalprobe.AgentID]float64{"agent-a": 3, "agent-b": 3.2, "agent-c": 2.8, "agent-d": -9}[agent]
	}
	return causalprobe.NumericResponse{Outcome: causalprobe.OutcomeOK, Value: base}, nil
}

// consoleSink prints every finalised consensus record, standing in
// for on-chain submission and explorer URLs.
type consoleSink struct{}

func (consoleSink) Record(ctx context.Context, record ledger.ConsensusRecord) (ledger.Ack, error) {
	fmt.Printf("ledger: round=%s consensus_value=%.4f valid=%v outliers=%v\n",
		record.RoundID, record.ConsensusValue, record.ValidAgents, record.Outliers)
	return ledger.Ack{Accepted: true}, nil
}

func main() {
	log := logging.New("info")
	cfg := config.DefaultParameters()
	cfg.Dimensionality = 3

	registry := round.AgentRegistry{
		"agent-a": {ModelClass: "gpt", ExternalNetworkID: "net-a"},
		"agent-b": {ModelClass: "claude", ExternalNetworkID: "net-b"},
		"agent-c": {ModelClass: "llama", ExternalNetworkID: "net-c"},
		"agent-d": {ModelClass: "llama", ExternalNetworkID: "net-d"},
	}

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		log.Error("metrics registration failed", "err", err)
		return
	}
	onDelta := func(op string, delta float64) { m.CreditDeltas.WithLabelValues(op).Observe(delta) }

	rep := reputation.New(cfg, log, onDelta)
	driver := round.New(&fakeProvider{rng: rand.New(rand.NewSource(1))}, consoleSink{}, rep, registry, cfg, log, m)

	scenario := causalprobe.Scenario{
		ID:                      "demo-scenario-1",
		BaselinePrompt:          "baseline prompt",
		PerturbedPromptTemplate: func(delta []float64) string { return "perturbed prompt" },
		GroundTruthHint:         0,
	}

	commitFn := func(agent causalprobe.AgentID, data commitreveal.ResponseData) ([32]byte, [32]byte) {
		var nonce [32]byte
		h := sha256.Sum256([]byte(agent))
		copy(nonce[:], h[:])
		return nonce, commitreveal.Hash(data, nonce)
	}
	privFn := func(agent causalprobe.AgentID, history [][]float64, fp fingerprint.CausalFingerprint) zkproof.PrivateInputs {
		flattened := make([]float64, 0, len(history)*3)
		for _, row := range history {
			flattened = append(flattened, row...)
		}
		return zkproof.PrivateInputs{FlattenedHistory: flattened}
	}

	roundID := uuid.NewString()
	outcome := driver.RunRound(context.Background(), roundID, scenario, []byte("genesis-seed"), causalprobe.ProductionMode, commitFn, privFn, time.Now())

	fmt.Printf("round finished in phase %s\n", outcome.Phase)
	for _, r := range outcome.MaliciousRecords {
		fmt.Printf("flagged: agent=%s behavior=%s confidence=%.2f evidence=%q\n", r.AgentID, r.Behavior, r.Confidence, r.Evidence)
	}
}
