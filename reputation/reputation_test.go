package reputation

import (
	"testing"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/config"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Parameters {
	return config.DefaultParameters()
}

func TestRegisterAndGet(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	r, err := u.Get("a")
	require.NoError(t, err)
	require.Equal(t, 500.0, r.CausalCredit)
	require.Equal(t, TierCompetent, r.Tier)
	require.True(t, r.Active)
}

func TestRegisterTwiceFails(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))
	err := u.Register("a", now)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestGetUnregisteredFails(t *testing.T) {
	u := New(testConfig(), nil, nil)
	_, err := u.Get("ghost")
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestCreditBoundsClampedBothDirections(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	require.NoError(t, u.ApplyReward("a", 10000, now))
	r, _ := u.Get("a")
	require.Equal(t, 1000.0, r.CausalCredit)

	require.NoError(t, u.ApplyPenalty("a", Malicious, now))
	require.NoError(t, u.ApplyPenalty("a", Malicious, now))
	require.NoError(t, u.ApplyPenalty("a", Malicious, now))
	require.NoError(t, u.ApplyPenalty("a", Malicious, now))
	require.NoError(t, u.ApplyPenalty("a", Malicious, now))
	require.NoError(t, u.ApplyPenalty("a", Malicious, now))
	r, _ = u.Get("a")
	require.GreaterOrEqual(t, r.CausalCredit, 0.0)
}

func TestApplyLogicalConsistencyRewardsNonOutlier(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	require.NoError(t, u.ApplyLogicalConsistency("a", 0.95, false, now))
	r, _ := u.Get("a")
	require.Greater(t, r.CausalCredit, 500.0)
	require.Equal(t, 0, r.OutlierCount)
}

func TestApplyLogicalConsistencyPenalizesOutlier(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	require.NoError(t, u.ApplyLogicalConsistency("a", 0.2, true, now))
	r, _ := u.Get("a")
	require.Less(t, r.CausalCredit, 500.0)
	require.Equal(t, 1, r.OutlierCount)
}

func TestApplySpectralConsistencyBands(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	require.NoError(t, u.ApplySpectralConsistency("a", 0.95, now))
	r, _ := u.Get("a")
	require.Greater(t, r.CausalCredit, 500.0)
	require.Equal(t, 0.95, r.FingerprintStability)

	require.NoError(t, u.ApplySpectralConsistency("a", 0.3, now))
	r, _ = u.Get("a")
	require.Less(t, r.CausalCredit, 520.0)
}

func TestApplyDecayIsIdempotentWithinSameInstant(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	later := now.Add(48 * time.Hour)
	u.ApplyDecay(later)
	r1, _ := u.Get("a")

	// Calling decay again at the exact same instant must be a no-op
	// since days-since-last-update is now 0.
	u.ApplyDecay(later)
	r2, _ := u.Get("a")

	require.Equal(t, r1.CausalCredit, r2.CausalCredit)
}

func TestApplyDecayReducesCreditOverTime(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	u.ApplyDecay(now.Add(100 * 24 * time.Hour))
	r, _ := u.Get("a")
	require.Less(t, r.CausalCredit, 500.0)
	require.GreaterOrEqual(t, r.CausalCredit, 0.0)
}

func TestCleanupInactiveRemovesOldInactiveRecords(t *testing.T) {
	u := New(testConfig(), nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))
	require.NoError(t, u.Deactivate("a"))

	removed := u.CleanupInactive(time.Hour, now.Add(2*time.Hour))
	require.Equal(t, 1, removed)

	_, err := u.Get("a")
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestHistoryIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHistoryLen = 3
	u := New(cfg, nil, nil)
	now := time.Now()
	require.NoError(t, u.Register("a", now))

	for i := 0; i < 10; i++ {
		require.NoError(t, u.ApplyReward("a", 1, now))
	}
	r, _ := u.Get("a")
	require.Len(t, r.History, 3)
}

func TestTierBoundariesMonotonic(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, TierUntrusted, tierFor(-1, cfg.TierBoundaries))
	require.Equal(t, TierUntrusted, tierFor(0, cfg.TierBoundaries))
	require.Equal(t, TierNovice, tierFor(100, cfg.TierBoundaries))
	require.Equal(t, TierOracle, tierFor(900, cfg.TierBoundaries))
	require.Equal(t, TierOracle, tierFor(1000, cfg.TierBoundaries))
}
