// Package reputation implements the Reputation Updater: a
// single-writer, many-reader map from agent DID to ReputationRecord,
// applying credit deltas, decay, and tier transitions
// (spec.md §4.9).
package reputation

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/config"
	"github.com/logos-42/MultiAgentOracle-sub000/logging"
	"github.com/logos-42/MultiAgentOracle-sub000/spectral"
)

// Sentinel errors (spec.md §7).
var (
	ErrNotRegistered    = errors.New("reputation: agent not registered")
	ErrAlreadyRegistered = errors.New("reputation: agent already registered")
)

// Tier is one of the eight named reputation bands.
type Tier int

const (
	TierUntrusted Tier = iota
	TierNovice
	TierApprentice
	TierCompetent
	TierProficient
	TierExpert
	TierMaster
	TierOracle
)

func (t Tier) String() string {
	switch t {
	case TierUntrusted:
		return "untrusted"
	case TierNovice:
		return "novice"
	case TierApprentice:
		return "apprentice"
	case TierCompetent:
		return "competent"
	case TierProficient:
		return "proficient"
	case TierExpert:
		return "expert"
	case TierMaster:
		return "master"
	case TierOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// tierFor derives the tier deterministically from credit per the
// boundaries {100,300,500,600,700,800,900}.
func tierFor(credit float64, boundaries [7]float64) Tier {
	tier := TierUntrusted
	for i, b := range boundaries {
		if credit >= b {
			tier = Tier(i + 1)
		}
	}
	return tier
}

// UpdateEntry is one bounded-history record of a mutation.
type UpdateEntry struct {
	Timestamp time.Time
	Op        string
	Delta     float64
	Resulting float64
}

// Record is the Reputation Record R_i of spec.md §3.
type Record struct {
	AgentDID            causalprobe.AgentID
	CausalCredit        float64
	OutlierCount        int
	FingerprintStability float64
	GlobalFingerprint   spectral.Fingerprint
	Tier                Tier
	TotalTasks          int
	SuccessfulTasks     int
	LastUpdated         time.Time
	Active              bool
	History             []UpdateEntry
}

// Updater owns the map of agent DID to Record, serialized by a single
// writer (one mutex) with many concurrent readers via RLock.
type Updater struct {
	mu      sync.RWMutex
	records map[causalprobe.AgentID]*Record
	cfg     config.Parameters
	log     logging.Logger
	onDelta func(op string, delta float64)
}

// New constructs an empty Updater bound to cfg.
func New(cfg config.Parameters, log logging.Logger, onDelta func(op string, delta float64)) *Updater {
	if log == nil {
		log = logging.Default()
	}
	if onDelta == nil {
		onDelta = func(string, float64) {}
	}
	return &Updater{
		records: make(map[causalprobe.AgentID]*Record),
		cfg:     cfg,
		log:     log,
		onDelta: onDelta,
	}
}

// Register creates a fresh record with causal_credit = initial_credit.
func (u *Updater) Register(agent causalprobe.AgentID, now time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.records[agent]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, agent)
	}
	u.records[agent] = &Record{
		AgentDID:     agent,
		CausalCredit: u.cfg.InitialCredit,
		Tier:         tierFor(u.cfg.InitialCredit, u.cfg.TierBoundaries),
		Active:       true,
		LastUpdated:  now,
	}
	return nil
}

// Get returns a copy of the record for agent.
func (u *Updater) Get(agent causalprobe.AgentID) (Record, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	r, ok := u.records[agent]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotRegistered, agent)
	}
	return *r, nil
}

func (u *Updater) mutate(agent causalprobe.AgentID, now time.Time, op string, delta float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.records[agent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, agent)
	}
	if math.IsNaN(delta) {
		u.log.Warn("reputation: NaN delta treated as no-op", "agent", agent, "op", op)
		return nil
	}

	next := r.CausalCredit + delta
	if next < u.cfg.MinCredit {
		next = u.cfg.MinCredit
	}
	if next > u.cfg.MaxCredit {
		next = u.cfg.MaxCredit
	}
	r.CausalCredit = next
	r.Tier = tierFor(next, u.cfg.TierBoundaries)
	r.LastUpdated = now

	r.History = append(r.History, UpdateEntry{Timestamp: now, Op: op, Delta: delta, Resulting: next})
	if len(r.History) > u.cfg.MaxHistoryLen {
		r.History = r.History[len(r.History)-u.cfg.MaxHistoryLen:]
	}

	u.onDelta(op, delta)
	return nil
}

// ApplyLogicalConsistency implements spec.md §4.9's clustering-based
// delta: reward when not an outlier, penalty when one.
func (u *Updater) ApplyLogicalConsistency(agent causalprobe.AgentID, cosineSimilarity float64, isOutlier bool, now time.Time) error {
	tau := u.cfg.CosineThreshold
	var delta float64
	if !isOutlier {
		delta = 50 * math.Max(0, cosineSimilarity-tau) * u.cfg.RewardMultiplier
	} else {
		delta = -50 * math.Max(0, tau-cosineSimilarity) * u.cfg.PenaltyMultiplier
		if err := u.incrementOutlierCount(agent); err != nil {
			return err
		}
	}
	return u.mutate(agent, now, "logical_consistency", delta)
}

func (u *Updater) incrementOutlierCount(agent causalprobe.AgentID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.records[agent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, agent)
	}
	r.OutlierCount++
	return nil
}

// ApplySpectralConsistency implements spec.md §4.9's stability-score
// delta table.
func (u *Updater) ApplySpectralConsistency(agent causalprobe.AgentID, score float64, now time.Time) error {
	var base float64
	switch {
	case score > 0.9:
		base = 20
	case score > 0.8:
		base = 10
	case score < 0.5:
		base = -20
	default:
		base = 0
	}
	delta := base * u.cfg.RewardMultiplier
	if base < 0 {
		delta = base * u.cfg.PenaltyMultiplier
	}

	u.mu.Lock()
	if r, ok := u.records[agent]; ok {
		r.FingerprintStability = clamp01(score)
	}
	u.mu.Unlock()

	return u.mutate(agent, now, "spectral_consistency", delta)
}

// ApplyHomogeneityEvent implements spec.md §4.9's homogeneity penalty.
func (u *Updater) ApplyHomogeneityEvent(agent causalprobe.AgentID, penaltyApplied bool, now time.Time) error {
	delta := 0.0
	if penaltyApplied {
		delta = -100 * u.cfg.PenaltyMultiplier
	}
	return u.mutate(agent, now, "homogeneity_event", delta)
}

// Severity is the closed set of penalty severities (spec.md §4.9).
type Severity int

const (
	Minor Severity = iota
	Moderate
	Severe
	Malicious
)

func (s Severity) baseValue() float64 {
	switch s {
	case Minor:
		return 10
	case Moderate:
		return 50
	case Severe:
		return 100
	case Malicious:
		return 200
	default:
		return 0
	}
}

// ApplyPenalty applies a severity-scaled penalty.
func (u *Updater) ApplyPenalty(agent causalprobe.AgentID, severity Severity, now time.Time) error {
	delta := -severity.baseValue() * u.cfg.PenaltyMultiplier
	return u.mutate(agent, now, "penalty", delta)
}

// ApplyReward applies a flat reward.
func (u *Updater) ApplyReward(agent causalprobe.AgentID, amount float64, now time.Time) error {
	delta := amount * u.cfg.RewardMultiplier
	return u.mutate(agent, now, "reward", delta)
}

// UpdateGlobalFingerprint applies an exponential moving average
// (α=0.1) to the agent's running global fingerprint.
func (u *Updater) UpdateGlobalFingerprint(agent causalprobe.AgentID, newFeatures spectral.Fingerprint) error {
	const alpha = 0.1
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.records[agent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, agent)
	}

	if len(r.GlobalFingerprint.Eigenvalues) == 0 {
		r.GlobalFingerprint = newFeatures
		return nil
	}

	ema := make([]float64, len(newFeatures.Eigenvalues))
	for i := range ema {
		old := 0.0
		if i < len(r.GlobalFingerprint.Eigenvalues) {
			old = r.GlobalFingerprint.Eigenvalues[i]
		}
		ema[i] = alpha*newFeatures.Eigenvalues[i] + (1-alpha)*old
	}
	r.GlobalFingerprint = spectral.Fingerprint{
		Eigenvalues:     ema,
		SpectralRadius:  alpha*newFeatures.SpectralRadius + (1-alpha)*r.GlobalFingerprint.SpectralRadius,
		Trace:           alpha*newFeatures.Trace + (1-alpha)*r.GlobalFingerprint.Trace,
		EffectiveRank:   newFeatures.EffectiveRank,
		SpectralEntropy: alpha*newFeatures.SpectralEntropy + (1-alpha)*r.GlobalFingerprint.SpectralEntropy,
		Timestamp:       newFeatures.Timestamp,
	}
	return nil
}

// ApplyDecay applies the per-day credit decay to every active record,
// floored at 0 delta below a 0.1 minimum-step threshold so repeated
// same-second calls are idempotent (spec.md §8's "idempotent decay
// step" property).
func (u *Updater) ApplyDecay(now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for agent, r := range u.records {
		if !r.Active {
			continue
		}
		days := now.Sub(r.LastUpdated).Hours() / 24
		if days <= 0 {
			continue
		}
		delta := -r.CausalCredit * u.cfg.DecayRatePerDay * days
		if math.Abs(delta) < 0.1 {
			continue
		}
		next := r.CausalCredit + delta
		if next < u.cfg.MinCredit {
			next = u.cfg.MinCredit
		}
		r.CausalCredit = next
		r.Tier = tierFor(next, u.cfg.TierBoundaries)
		r.LastUpdated = now
		r.History = append(r.History, UpdateEntry{Timestamp: now, Op: "decay", Delta: delta, Resulting: next})
		if len(r.History) > u.cfg.MaxHistoryLen {
			r.History = r.History[len(r.History)-u.cfg.MaxHistoryLen:]
		}
		u.onDelta("decay", delta)
		u.log.Debug("reputation decay applied", "agent", agent, "delta", delta)
	}
}

// CleanupInactive removes records whose Active flag is false and
// whose LastUpdated predates now - maxIdle.
func (u *Updater) CleanupInactive(maxIdle time.Duration, now time.Time) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	removed := 0
	for agent, r := range u.records {
		if !r.Active && now.Sub(r.LastUpdated) > maxIdle {
			delete(u.records, agent)
			removed++
		}
	}
	return removed
}

// Deactivate marks a record inactive (idle-period bookkeeping is the
// caller's responsibility; this just flips the flag).
func (u *Updater) Deactivate(agent causalprobe.AgentID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.records[agent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, agent)
	}
	r.Active = false
	return nil
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
