package fingerprint

import (
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/spectral"
)

// Assemble is a pure function combining one agent's response pair,
// the round's public intervention, and its response history snapshot
// into a CausalFingerprint (spec.md §4.4). history should already
// include, or will have appended, the new Δy depending on caller
// convention; Assemble appends the newly computed Δy to a copy of
// history before running the Spectral Analyzer, matching "Spectral
// features are obtained ... on history_snapshot extended with the new
// Δy."
func Assemble(agentID causalprobe.AgentID, pair causalprobe.Pair, delta []float64, history [][]float64, eigenCount int, confidence float64, now time.Time) CausalFingerprint {
	deltaY := computeDeltaY(pair, delta)

	extended := make([][]float64, len(history), len(history)+1)
	copy(extended, history)
	extended = append(extended, deltaY)

	features := spectral.Analyze(extended, eigenCount, now)

	return CausalFingerprint{
		AgentID:          agentID,
		BasePrediction:   pair.Baseline,
		DeltaResponse:    deltaY,
		SpectralFeatures: features,
		Perturbation:     delta,
		Confidence:       clampConfidence(confidence),
		RoundTimestamp:   now,
	}
}

// computeDeltaY broadcasts the scalar Δy = f(x+δ) - f(x) to a
// D-vector when the scenario is scalar (len(delta) > 1 but the agent
// returned a single pair of numbers).
func computeDeltaY(pair causalprobe.Pair, delta []float64) []float64 {
	scalarDelta := pair.Perturbed - pair.Baseline
	out := make([]float64, len(delta))
	for i := range out {
		out[i] = scalarDelta
	}
	return out
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
