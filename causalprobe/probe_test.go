package causalprobe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	responses map[string]NumericResponse
	errs      map[string]error
	calls     []string
}

func (f *fakeProvider) Query(ctx context.Context, agent AgentID, prompt string) (NumericResponse, error) {
	key := string(agent) + "|" + prompt
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return NumericResponse{}, err
	}
	return f.responses[key], nil
}

func scenarioFixture() Scenario {
	return Scenario{
		ID:             "s1",
		BaselinePrompt: "base",
		PerturbedPromptTemplate: func(delta []float64) string {
			return "perturbed"
		},
		GroundTruthHint: 42,
	}
}

func TestProbeHappyPath(t *testing.T) {
	fp := &fakeProvider{responses: map[string]NumericResponse{
		"a|base":      {Outcome: OutcomeOK, Value: 100},
		"a|perturbed": {Outcome: OutcomeOK, Value: 105},
	}}
	p := New(fp, ProductionMode, nil)
	pairs := p.Run(context.Background(), scenarioFixture(), []float64{1, 0, 0, 0, 0}, []AgentID{"a"})
	require.Len(t, pairs, 1)
	require.Equal(t, 100.0, pairs[0].Baseline)
	require.Equal(t, 105.0, pairs[0].Perturbed)
	require.False(t, pairs[0].Degraded)

	// Strictly sequential per agent: baseline query precedes perturbed.
	require.Equal(t, []string{"a|base", "a|perturbed"}, fp.calls)
}

func TestProbeDegradesOnMalformedProduction(t *testing.T) {
	fp := &fakeProvider{responses: map[string]NumericResponse{
		"a|base": {Outcome: OutcomeOK, Value: 100},
	}, errs: map[string]error{
		"a|perturbed": ErrMalformed,
	}}
	p := New(fp, ProductionMode, nil)
	pairs := p.Run(context.Background(), scenarioFixture(), []float64{1, 0, 0, 0, 0}, []AgentID{"a"})
	require.True(t, pairs[0].Degraded)
	require.Equal(t, 100.0, pairs[0].Perturbed) // falls back to base prediction
}

func TestProbeDegradesOnMalformedTestMode(t *testing.T) {
	fp := &fakeProvider{errs: map[string]error{
		"a|base":      ErrMalformed,
		"a|perturbed": ErrMalformed,
	}}
	p := New(fp, TestMode, nil)
	pairs := p.Run(context.Background(), scenarioFixture(), []float64{1, 0, 0, 0, 0}, []AgentID{"a"})
	require.True(t, pairs[0].Degraded)
	require.Equal(t, 42.0, pairs[0].Baseline)
	require.Equal(t, 42.0, pairs[0].Perturbed)
}

func TestSampleInterventionBoundedAndReproducible(t *testing.T) {
	seed := []byte("round-seed")
	d1 := SampleIntervention(seed, 5, 2.0)
	d2 := SampleIntervention(seed, 5, 2.0)
	require.Equal(t, d1, d2)
	require.Len(t, d1, 5)
	for _, v := range d1 {
		require.GreaterOrEqual(t, v, -2.0)
		require.LessOrEqual(t, v, 2.0)
	}

	d3 := SampleIntervention([]byte("other-seed"), 5, 2.0)
	require.NotEqual(t, d1, d3)
}
