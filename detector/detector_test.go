package detector

import (
	"testing"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/clusterer"
	"github.com/logos-42/MultiAgentOracle-sub000/commitreveal"
	"github.com/logos-42/MultiAgentOracle-sub000/fingerprint"
	"github.com/logos-42/MultiAgentOracle-sub000/spectral"
	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	return Config{
		TimingZThreshold:        2.5,
		MinSpectralEntropy:      0.6,
		MaxSpectralEntropy:      0.9,
		HomogeneityThreshold:    0.95,
		MinModelDiversity:       3,
		CollusionHashSimilarity: 0.9,
		CollusionTimeWindow:     time.Second,
		CosineThreshold:         0.85,
	}
}

func TestHashMismatchRecord(t *testing.T) {
	records := Detect(nil, nil, map[causalprobe.AgentID]bool{"a": true}, nil, nil, nil, nil, nil, defaultConfig())
	require.Len(t, records, 1)
	require.Equal(t, HashMismatch, records[0].Behavior)
	require.Equal(t, 1.0, records[0].Confidence)
}

func TestSybilFlagsFiveSharedIdentifiers(t *testing.T) {
	meta := map[causalprobe.AgentID]AgentMeta{
		"a": {ExternalNetworkID: "ip1"},
		"b": {ExternalNetworkID: "ip1"},
		"c": {ExternalNetworkID: "ip1"},
		"d": {ExternalNetworkID: "ip1"},
		"e": {ExternalNetworkID: "ip1"},
	}
	records := Detect(nil, nil, nil, nil, nil, meta, nil, nil, defaultConfig())
	require.Len(t, records, 5)
	for _, r := range records {
		require.Equal(t, SybilAttack, r.Behavior)
		require.InDelta(t, 1.0, r.Confidence, 1e-9)
	}
}

func TestSybilNotFlaggedBelowThreeSharers(t *testing.T) {
	meta := map[causalprobe.AgentID]AgentMeta{
		"a": {ExternalNetworkID: "ip1"},
		"b": {ExternalNetworkID: "ip1"},
	}
	records := Detect(nil, nil, nil, nil, nil, meta, nil, nil, defaultConfig())
	require.Empty(t, records)
}

func TestTimingAnomaly(t *testing.T) {
	history := make([]float64, 20)
	for i := range history {
		history[i] = 1.0 // mean=1, sd=0 -> skip, use a nonzero-sd sample instead
	}
	history[0] = 1.5
	history[1] = 0.5
	meta := map[causalprobe.AgentID]AgentMeta{"a": {ResponseTimes: history}}
	now := map[causalprobe.AgentID]float64{"a": 100.0} // wildly off
	records := Detect(nil, nil, nil, nil, now, meta, nil, nil, defaultConfig())
	require.Len(t, records, 1)
	require.Equal(t, TimingAnomaly, records[0].Behavior)
}

func TestCollusionDetectedOnSimilarHashesCloseTimestamps(t *testing.T) {
	now := time.Now()
	var hashA, hashB [32]byte
	for i := range hashA {
		hashA[i] = byte(i)
		hashB[i] = byte(i)
	}
	hashB[0] ^= 0x01 // one bit different out of 256 -> similarity ~0.996

	commitments := map[causalprobe.AgentID]commitreveal.Commitment{
		"a": {AgentID: "a", Hash: hashA, Timestamp: now},
		"b": {AgentID: "b", Hash: hashB, Timestamp: now.Add(10 * time.Millisecond)},
	}
	records := Detect(commitments, nil, nil, nil, nil, nil, nil, nil, defaultConfig())
	require.Len(t, records, 2)
	require.Equal(t, Collusion, records[0].Behavior)
}

func TestHomogeneityCohortFlag(t *testing.T) {
	fp := func(entropy float64, eigen []float64) fingerprint.CausalFingerprint {
		return fingerprint.CausalFingerprint{
			DeltaResponse:    []float64{1, 0},
			SpectralFeatures: spectral.Fingerprint{SpectralEntropy: entropy, Eigenvalues: eigen},
		}
	}
	fps := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"a": fp(0.7, []float64{5, 4, 3}),
		"b": fp(0.7, []float64{5, 4, 3}),
		"c": fp(0.7, []float64{5, 4, 3}),
	}
	meta := map[causalprobe.AgentID]AgentMeta{
		"a": {ModelClass: "gpt"}, "b": {ModelClass: "gpt"}, "c": {ModelClass: "gpt"},
	}
	records := Detect(nil, nil, nil, nil, nil, meta, fps, nil, defaultConfig())

	foundCohort := false
	for _, r := range records {
		if r.Behavior == ModelHomogeneityCohort {
			foundCohort = true
		}
	}
	require.True(t, foundCohort)
}

func TestLogicalInconsistency(t *testing.T) {
	fps := map[causalprobe.AgentID]fingerprint.CausalFingerprint{
		"a": {DeltaResponse: []float64{1, 1}},
		"b": {DeltaResponse: []float64{1, 1}},
		"c": {DeltaResponse: []float64{-1, -1}},
	}
	result := clusterer.Result{
		ValidAgents: []causalprobe.AgentID{"a", "b"},
		Outliers:    []causalprobe.AgentID{"c"},
	}
	records := Detect(nil, nil, nil, nil, nil, nil, fps, &result, defaultConfig())
	require.Len(t, records, 1)
	require.Equal(t, LogicalInconsistency, records[0].Behavior)
	require.Equal(t, causalprobe.AgentID("c"), records[0].AgentID)
}

func TestExcludedFromValid(t *testing.T) {
	records := []MaliciousNodeRecord{
		{AgentID: "a", Behavior: HashMismatch, Confidence: 1},
		{AgentID: "s", Behavior: SybilAttack, Confidence: 1},
	}
	require.True(t, ExcludedFromValid(records, "a"))
	require.True(t, ExcludedFromValid(records, "s"))
	require.False(t, ExcludedFromValid(records, "b"))
}
