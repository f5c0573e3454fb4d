// Package spectral extracts the eigenvalue-based "logical skeleton"
// fingerprint from an agent's recent causal-response history
// (spec.md §4.2). The analyzer is pure: it holds no state between
// calls, and callers pass the history snapshot they want analyzed.
package spectral

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Fingerprint is the per-agent spectral summary σ_i of spec.md §3.
type Fingerprint struct {
	Eigenvalues      []float64 // length K, descending |λ|, zero-padded
	SpectralRadius   float64   // max|λ|, >= 0
	Trace            float64   // Σλ
	EffectiveRank    int       // count of |λ| > 0.01*SpectralRadius
	SpectralEntropy  float64   // in [0, log2(K)]
	Timestamp        time.Time
}

const (
	maxPowerIterations = 100
	convergenceEps     = 1e-10
)

// Analyze computes σ_i from a response history matrix with N rows
// (rounds) and M columns (response dimensionality). k is the number
// of eigenvalues to extract (K in spec.md, typically 8); if k exceeds
// M the result is zero-padded.
//
// Per spec.md §4.2: if N < 3 or M < 1, the zero fingerprint is
// returned with no error.
func Analyze(history [][]float64, k int, now time.Time) Fingerprint {
	n := len(history)
	m := 0
	if n > 0 {
		m = len(history[0])
	}

	if n < 3 || m < 1 {
		return zeroFingerprint(k, now)
	}

	cov := sampleCovariance(history, n, m)
	eigen := topEigenvalues(cov, m, k)

	return assemble(eigen, k, now)
}

func zeroFingerprint(k int, now time.Time) Fingerprint {
	return Fingerprint{
		Eigenvalues:     make([]float64, k),
		SpectralRadius:  0,
		Trace:           0,
		EffectiveRank:   0,
		SpectralEntropy: 0,
		Timestamp:       now,
	}
}

// sampleCovariance builds the MxM sample covariance matrix of the
// N-row history, dividing by N-1.
func sampleCovariance(history [][]float64, n, m int) *mat.SymDense {
	means := make([]float64, m)
	for _, row := range history {
		for j := 0; j < m && j < len(row); j++ {
			means[j] += row[j]
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	cov := mat.NewSymDense(m, nil)
	for a := 0; a < m; a++ {
		for b := a; b < m; b++ {
			var sum float64
			for _, row := range history {
				var va, vb float64
				if a < len(row) {
					va = row[a] - means[a]
				}
				if b < len(row) {
					vb = row[b] - means[b]
				}
				sum += va * vb
			}
			cov.SetSym(a, b, sum/float64(n-1))
		}
	}
	return cov
}

// topEigenvalues extracts up to k dominant eigenvalues of the m x m
// symmetric matrix cov via deflated power iteration, as mandated by
// spec.md §4.2 (rather than a black-box decomposition, so the
// iteration cap and convergence threshold stay auditable).
func topEigenvalues(cov *mat.SymDense, m, k int) []float64 {
	working := mat.NewSymDense(m, nil)
	working.CopySym(cov)

	eigen := make([]float64, 0, k)
	count := k
	if count > m {
		count = m
	}

	for i := 0; i < count; i++ {
		lambda, vec, ok := powerIterate(working, m)
		if !ok {
			break
		}
		eigen = append(eigen, lambda)

		// Deflate: A' = A - lambda * v v^T
		deflated := mat.NewSymDense(m, nil)
		for a := 0; a < m; a++ {
			for b := a; b < m; b++ {
				deflated.SetSym(a, b, working.At(a, b)-lambda*vec[a]*vec[b])
			}
		}
		working = deflated
	}

	// Descending by magnitude; zero-pad to k.
	sort.Slice(eigen, func(i, j int) bool {
		return math.Abs(eigen[i]) > math.Abs(eigen[j])
	})
	for len(eigen) < k {
		eigen = append(eigen, 0)
	}
	return eigen
}

// powerIterate returns the dominant eigenvalue/eigenvector pair of a
// symmetric matrix via the power method, ℓ²-normalized, bounded by
// maxPowerIterations and convergenceEps.
func powerIterate(a *mat.SymDense, m int) (float64, []float64, bool) {
	if m == 0 {
		return 0, nil, false
	}
	v := make([]float64, m)
	for i := range v {
		v[i] = 1.0 / math.Sqrt(float64(m))
	}

	var lambda float64
	for iter := 0; iter < maxPowerIterations; iter++ {
		next := make([]float64, m)
		for i := 0; i < m; i++ {
			var sum float64
			for j := 0; j < m; j++ {
				sum += a.At(i, j) * v[j]
			}
			next[i] = sum
		}

		norm := l2Norm(next)
		if norm == 0 {
			return 0, v, true
		}
		for i := range next {
			next[i] /= norm
		}

		newLambda := rayleighQuotient(a, next, m)
		diff := 0.0
		for i := range next {
			d := next[i] - v[i]
			diff += d * d
		}
		v = next
		lambda = newLambda
		if diff < convergenceEps {
			break
		}
	}
	return clampFinite(lambda), v, true
}

func rayleighQuotient(a *mat.SymDense, v []float64, m int) float64 {
	var num float64
	for i := 0; i < m; i++ {
		var sum float64
		for j := 0; j < m; j++ {
			sum += a.At(i, j) * v[j]
		}
		num += v[i] * sum
	}
	return num
}

func l2Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func clampFinite(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if math.IsInf(x, 1) {
		return math.MaxFloat64
	}
	if math.IsInf(x, -1) {
		return -math.MaxFloat64
	}
	return x
}

func assemble(eigen []float64, k int, now time.Time) Fingerprint {
	radius := 0.0
	trace := 0.0
	absSum := 0.0
	for _, lambda := range eigen {
		lambda = clampFinite(lambda)
		if math.Abs(lambda) > radius {
			radius = math.Abs(lambda)
		}
		trace += lambda
		absSum += math.Abs(lambda)
	}

	rank := 0
	for _, lambda := range eigen {
		if math.Abs(lambda) > 0.01*radius {
			rank++
		}
	}

	entropy := 0.0
	if absSum > 0 {
		for _, lambda := range eigen {
			p := math.Abs(lambda) / absSum
			if p > 0 {
				entropy -= p * math.Log2(p)
			}
		}
	}

	return Fingerprint{
		Eigenvalues:     eigen,
		SpectralRadius:  radius,
		Trace:           trace,
		EffectiveRank:   rank,
		SpectralEntropy: clampFinite(entropy),
		Timestamp:       now,
	}
}

// MaxEntropy returns the theoretical entropy upper bound log2(k) used
// by the entropy-bounds testable property in spec.md §8.
func MaxEntropy(k int) float64 {
	if k <= 0 {
		return 0
	}
	return math.Log2(float64(k))
}
