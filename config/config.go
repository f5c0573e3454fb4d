// Package config centralizes the deployment-wide constants every
// participant in a consensus round must agree on (spec.md §6). It is
// constructor-injected everywhere; nothing in this repository reads
// an environment variable or file at call time.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel validation errors. Each is wrapped with the offending
// value at the call site via fmt.Errorf("%w: ...", Err...).
var (
	ErrInvalidDimensionality = errors.New("invalid dimensionality")
	ErrInvalidEigenCount     = errors.New("invalid eigenvalue count")
	ErrInvalidThreshold      = errors.New("threshold must be in [0,1]")
	ErrInvalidMinValidAgents = errors.New("min valid agents must be >= 1")
	ErrInvalidDeadline       = errors.New("deadline must be positive")
	ErrInvalidScale          = errors.New("fixed-point scale must be positive")
	ErrInvalidCreditBounds   = errors.New("credit bounds invalid")
	ErrInvalidTierBoundaries = errors.New("tier boundaries must be strictly increasing")
)

// Parameters is the full set of deployment-wide constants referenced
// by spec.md §6. Every field here MUST be identical across all
// participants in a consensus round.
type Parameters struct {
	// Causal probe / fingerprint dimensionality.
	Dimensionality int     // D
	InterventionBound float64 // a, interventions drawn from [-a, +a]

	// Spectral analyzer.
	EigenCount        int // K
	EigenCountClaimed int // K', claimed eigenvalues in PublicInputs
	HistoryWindow     int // N, max rounds retained per agent

	// Fixed-point codec.
	Scale int64 // S

	// Commit-reveal coordinator.
	CommitDeadline     time.Duration // Δ_c
	RevealDeadline     time.Duration // Δ_r, measured from commit close
	MaliciousThreshold float64       // participation floor, default 0.80

	// Consensus clusterer.
	CosineThreshold float64 // τ, default 0.85
	MinValidAgents  int     // default 3
	OutlierThreshold float64

	// Malicious-behavior detector.
	TimingZThreshold      float64 // default 2.5
	MinSpectralEntropy    float64 // default 0.6
	MaxSpectralEntropy    float64 // default 0.9
	HomogeneityThreshold  float64 // default 0.95
	MinModelDiversity     int     // default 3
	CollusionHashSimilarity float64 // default 0.9
	CollusionTimeWindow   time.Duration // default 1s

	// Reputation updater.
	InitialCredit    float64 // default 500
	MinCredit        float64 // default 0
	MaxCredit        float64 // default 1000
	RewardMultiplier float64 // default 1.0
	PenaltyMultiplier float64 // default 1.0
	DecayRatePerDay  float64 // default small, e.g. 0.01
	TierBoundaries   [7]float64 // 8 tiers, boundaries at 100,300,500,600,700,800,900
	MaxHistoryLen    int        // bounded update history, default 100

	// Round driver.
	ProbeTimeout time.Duration // default 30s
	MaxRetries   int           // default 3
}

// Verify checks internal consistency of a Parameters value. It does
// not check cross-process agreement; that is the hosting
// application's responsibility.
func (p Parameters) Verify() error {
	if p.Dimensionality <= 0 {
		return fmt.Errorf("%w: D=%d", ErrInvalidDimensionality, p.Dimensionality)
	}
	if p.EigenCount <= 0 {
		return fmt.Errorf("%w: K=%d", ErrInvalidEigenCount, p.EigenCount)
	}
	if p.EigenCountClaimed <= 0 || p.EigenCountClaimed > p.EigenCount {
		return fmt.Errorf("%w: K'=%d, K=%d", ErrInvalidEigenCount, p.EigenCountClaimed, p.EigenCount)
	}
	if p.Scale <= 0 {
		return fmt.Errorf("%w: S=%d", ErrInvalidScale, p.Scale)
	}
	if p.CosineThreshold < 0 || p.CosineThreshold > 1 {
		return fmt.Errorf("%w: cosine_threshold=%f", ErrInvalidThreshold, p.CosineThreshold)
	}
	if p.MinValidAgents < 1 {
		return fmt.Errorf("%w: min_valid_agents=%d", ErrInvalidMinValidAgents, p.MinValidAgents)
	}
	if p.CommitDeadline <= 0 || p.RevealDeadline <= 0 {
		return fmt.Errorf("%w: commit=%s reveal=%s", ErrInvalidDeadline, p.CommitDeadline, p.RevealDeadline)
	}
	if p.MinCredit >= p.MaxCredit || p.InitialCredit < p.MinCredit || p.InitialCredit > p.MaxCredit {
		return fmt.Errorf("%w: min=%f max=%f initial=%f", ErrInvalidCreditBounds, p.MinCredit, p.MaxCredit, p.InitialCredit)
	}
	for i := 1; i < len(p.TierBoundaries); i++ {
		if p.TierBoundaries[i] <= p.TierBoundaries[i-1] {
			return fmt.Errorf("%w: boundaries=%v", ErrInvalidTierBoundaries, p.TierBoundaries)
		}
	}
	return nil
}

// DefaultParameters returns the defaults named throughout spec.md
// (D=5, K=8, K'=3, τ=0.85, min_valid_agents=3, and so on).
func DefaultParameters() Parameters {
	return Parameters{
		Dimensionality:    5,
		InterventionBound: 1.0,

		EigenCount:        8,
		EigenCountClaimed: 3,
		HistoryWindow:     50,

		Scale: 1_000_000,

		CommitDeadline:     30 * time.Second,
		RevealDeadline:     30 * time.Second,
		MaliciousThreshold: 0.80,

		CosineThreshold:  0.85,
		MinValidAgents:   3,
		OutlierThreshold: 0.85,

		TimingZThreshold:        2.5,
		MinSpectralEntropy:      0.6,
		MaxSpectralEntropy:      0.9,
		HomogeneityThreshold:    0.95,
		MinModelDiversity:       3,
		CollusionHashSimilarity: 0.9,
		CollusionTimeWindow:     1 * time.Second,

		InitialCredit:     500,
		MinCredit:         0,
		MaxCredit:         1000,
		RewardMultiplier:  1.0,
		PenaltyMultiplier: 1.0,
		DecayRatePerDay:   0.01,
		TierBoundaries:    [7]float64{100, 300, 500, 600, 700, 800, 900},
		MaxHistoryLen:     100,

		ProbeTimeout: 30 * time.Second,
		MaxRetries:   3,
	}
}
