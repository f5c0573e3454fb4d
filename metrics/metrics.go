// Package metrics wraps prometheus collectors used by the Round
// Driver and Reputation Updater. It follows the same thin-Registerer
// shape as the teacher's consensus metrics package.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and histograms emitted by one engine
// instance. Zero value is not usable; construct via New.
type Metrics struct {
	Registry prometheus.Registerer

	RoundsFinalized  prometheus.Counter
	RoundsFailed     *prometheus.CounterVec
	RevealLatency    prometheus.Histogram
	ClusterQuality   prometheus.Histogram
	CreditDeltas     *prometheus.HistogramVec
	MaliciousFlagged *prometheus.CounterVec
}

// New constructs and registers all collectors against reg. reg may be
// prometheus.NewRegistry() for isolated tests or
// prometheus.DefaultRegisterer in a host process.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Registry: reg,
		RoundsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cfce",
			Name:      "rounds_finalized_total",
			Help:      "Number of consensus rounds that reached Finalised.",
		}),
		RoundsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cfce",
			Name:      "rounds_failed_total",
			Help:      "Number of consensus rounds that reached Failed, by reason.",
		}, []string{"reason"}),
		RevealLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cfce",
			Name:      "reveal_latency_seconds",
			Help:      "Time between commit acceptance and reveal acceptance.",
			Buckets:   prometheus.DefBuckets,
		}),
		ClusterQuality: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cfce",
			Name:      "cluster_quality",
			Help:      "Mean pairwise cosine similarity within the consensus cluster.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		CreditDeltas: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cfce",
			Name:      "reputation_credit_delta",
			Help:      "Per-operation reputation credit deltas, by operation kind.",
			Buckets:   prometheus.LinearBuckets(-200, 20, 21),
		}, []string{"op"}),
		MaliciousFlagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cfce",
			Name:      "malicious_behavior_flagged_total",
			Help:      "Malicious-behavior records emitted, by behavior kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{
		m.RoundsFinalized, m.RoundsFailed, m.RevealLatency,
		m.ClusterQuality, m.CreditDeltas, m.MaliciousFlagged,
	}
	for _, c := range collectors {
		if err := m.Registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
