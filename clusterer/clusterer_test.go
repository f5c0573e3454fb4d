package clusterer

import (
	"testing"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/fingerprint"
	"github.com/stretchr/testify/require"
)

func fp(base float64, delta []float64, confidence float64) fingerprint.CausalFingerprint {
	return fingerprint.CausalFingerprint{
		BasePrediction: base,
		DeltaResponse:  delta,
		Confidence:     confidence,
		RoundTimestamp: time.Now(),
	}
}

func TestTwoHonestOneOutlier(t *testing.T) {
	fps := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"A": fp(100, []float64{1.0, 2.0, 3.0, 0.0, 0.0}, 0.9),
		"B": fp(101, []float64{1.1, 2.1, 3.1, 0.0, 0.0}, 0.9),
		"C": fp(50, []float64{-5, -10, -15, 0, 0}, 0.9),
	}
	res := Cluster(fps, Config{CosineThreshold: 0.85, MinValidAgents: 3})

	require.ElementsMatch(t, []causalprobe.AgentID{"A", "B"}, res.ValidAgents)
	require.ElementsMatch(t, []causalprobe.AgentID{"C"}, res.Outliers)
	require.GreaterOrEqual(t, res.ConsensusValue, 100.0)
	require.LessOrEqual(t, res.ConsensusValue, 101.0)
	require.GreaterOrEqual(t, res.ConsensusSimilarity, 0.99)
}

func TestBelowMinValidAgents(t *testing.T) {
	fps := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"A": fp(100, []float64{1, 2, 3}, 0.9),
		"B": fp(101, []float64{1, 2, 3}, 0.9),
	}
	res := Cluster(fps, Config{CosineThreshold: 0.85, MinValidAgents: 3})
	require.Equal(t, 0.0, res.ConsensusValue)
	require.Empty(t, res.ValidAgents)
	require.Len(t, res.Outliers, 2)
}

func TestPartitionIsDisjointAndComplete(t *testing.T) {
	fps := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"A": fp(1, []float64{1, 0}, 0.5),
		"B": fp(2, []float64{1, 0}, 0.5),
		"C": fp(3, []float64{0, 1}, 0.5),
		"D": fp(4, []float64{0, 1}, 0.5),
	}
	res := Cluster(fps, Config{CosineThreshold: 0.85, MinValidAgents: 2})

	seen := make(map[causalprobe.AgentID]bool)
	for _, a := range res.ValidAgents {
		require.False(t, seen[a])
		seen[a] = true
	}
	for _, a := range res.Outliers {
		require.False(t, seen[a])
		seen[a] = true
	}
	require.Len(t, seen, 4)
}

func TestOrderingIndependence(t *testing.T) {
	fpsBase := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"A": fp(100, []float64{1.0, 2.0, 3.0}, 0.9),
		"B": fp(101, []float64{1.1, 2.1, 3.1}, 0.8),
		"C": fp(50, []float64{-5, -10, -15}, 0.3),
		"D": fp(99, []float64{0.9, 1.9, 2.9}, 0.95),
	}
	cfg := Config{CosineThreshold: 0.85, MinValidAgents: 3}
	res1 := Cluster(fpsBase, cfg)

	// Construct the same map via a different insertion order — Go
	// maps already have random iteration order, so repeated calls
	// already exercise this, but we also build a second map via a
	// permuted literal to be explicit.
	fpsPermuted := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"D": fpsBase["D"],
		"C": fpsBase["C"],
		"B": fpsBase["B"],
		"A": fpsBase["A"],
	}
	res2 := Cluster(fpsPermuted, cfg)

	require.Equal(t, res1.ValidAgents, res2.ValidAgents)
	require.Equal(t, res1.Outliers, res2.Outliers)
	require.InDelta(t, res1.ConsensusValue, res2.ConsensusValue, 1e-12)
}

func TestCosineSimilarityDegenerateCase(t *testing.T) {
	require.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	require.Equal(t, 0.0, CosineSimilarity([]float64{1, 1}, []float64{0, 0}))
}

func TestClusterMinimality(t *testing.T) {
	fps := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"A": fp(1, []float64{1, 0}, 0.5),
		"B": fp(1, []float64{0, 1}, 0.5),
	}
	res := Cluster(fps, Config{CosineThreshold: 0.85, MinValidAgents: 3})
	require.True(t, len(res.ValidAgents) == 0 || len(res.ValidAgents) >= 3)
}
