// Package fingerprint combines a fresh causal response Δy with the
// agent's historical spectral features into the CausalFingerprint
// submitted for consensus (spec.md §4.4).
package fingerprint

import (
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/spectral"
)

// CausalFingerprint F_i is the record submitted for consensus by
// agent i (spec.md §3). Immutable once created.
type CausalFingerprint struct {
	AgentID          causalprobe.AgentID
	BasePrediction   float64
	DeltaResponse    []float64 // Δy, length D
	SpectralFeatures spectral.Fingerprint
	Perturbation     []float64 // δ, echoed
	Confidence       float64   // self-reported, in [0,1]
	RoundTimestamp   time.Time
}

// HistoryWindow is the bounded, append-only response history H_i for
// one agent (spec.md §3): up to N rounds of Δy vectors, oldest
// entries evicted by window size.
type HistoryWindow struct {
	maxRounds int
	rows      [][]float64
}

// NewHistoryWindow constructs an empty window retaining at most
// maxRounds entries.
func NewHistoryWindow(maxRounds int) *HistoryWindow {
	if maxRounds <= 0 {
		maxRounds = 1
	}
	return &HistoryWindow{maxRounds: maxRounds}
}

// Append adds a new Δy row, evicting the oldest row if the window is
// full.
func (h *HistoryWindow) Append(deltaY []float64) {
	row := make([]float64, len(deltaY))
	copy(row, deltaY)
	h.rows = append(h.rows, row)
	if len(h.rows) > h.maxRounds {
		h.rows = h.rows[len(h.rows)-h.maxRounds:]
	}
}

// Snapshot returns a defensive copy of the current history rows,
// suitable for handing to the Spectral Analyzer.
func (h *HistoryWindow) Snapshot() [][]float64 {
	snap := make([][]float64, len(h.rows))
	for i, row := range h.rows {
		cp := make([]float64, len(row))
		copy(cp, row)
		snap[i] = cp
	}
	return snap
}

// Len reports the number of rows currently retained.
func (h *HistoryWindow) Len() int {
	return len(h.rows)
}
