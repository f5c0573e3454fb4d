// Package zkproof binds a revealed causal fingerprint to a
// zero-knowledge proof of knowledge over its private inputs,
// attesting the six public fields without disclosing the flattened
// response history, covariance, or eigenvectors behind them
// (spec.md §4.8).
//
// The circuit itself is an explicit Open Question in spec.md §9. This
// implementation fixes a concrete scheme: a two-generator Pedersen
// commitment on the BN254 G1 group to (blinding, private-input
// digest), opened via a Fiat-Shamir Okamoto proof of knowledge whose
// challenge is hashed over the commitment and the six public fields,
// so any change to a public field invalidates the proof.
package zkproof

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Sentinel errors (spec.md §7).
var (
	ErrInvalidInputs        = errors.New("zkproof: invalid inputs")
	ErrProofGenerationFailed = errors.New("zkproof: proof generation failed")
)

// PublicInputs are the six fields bound by every proof (spec.md §3).
type PublicInputs struct {
	Delta                    []float64 // δ, length D
	DeltaY                   []float64 // Δy, length D
	ClaimedEigenvalues       []float64 // first K' eigenvalues
	SpectralRadius           float64
	SpectralEntropy          float64
	CosineSimilarityToGlobal float64
}

// Equal reports whether p and o carry the same public inputs,
// comparing field by field rather than relying on a struct hash
// (spec.md §4.8's binding property requires exactly this).
func (p PublicInputs) Equal(o PublicInputs) bool {
	if !floatSliceEqual(p.Delta, o.Delta) {
		return false
	}
	if !floatSliceEqual(p.DeltaY, o.DeltaY) {
		return false
	}
	if !floatSliceEqual(p.ClaimedEigenvalues, o.ClaimedEigenvalues) {
		return false
	}
	return p.SpectralRadius == o.SpectralRadius &&
		p.SpectralEntropy == o.SpectralEntropy &&
		p.CosineSimilarityToGlobal == o.CosineSimilarityToGlobal
}

func floatSliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p PublicInputs) canonicalBytes() []byte {
	var buf bytes.Buffer
	writeVec := func(v []float64) {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		for _, x := range v {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
			buf.Write(b[:])
		}
	}
	writeVec(p.Delta)
	writeVec(p.DeltaY)
	writeVec(p.ClaimedEigenvalues)
	writeVec([]float64{p.SpectralRadius, p.SpectralEntropy, p.CosineSimilarityToGlobal})
	return buf.Bytes()
}

func (p PublicInputs) hash() [32]byte {
	return sha256.Sum256(p.canonicalBytes())
}

// PrivateInputs are the prover-only data the proof attests knowledge
// of without revealing: the flattened response history, the derived
// covariance, and the top eigenvectors (spec.md §4.8).
type PrivateInputs struct {
	FlattenedHistory []float64
	Covariance       []float64 // row-major, flattened
	Eigenvectors     []float64 // row-major, flattened
}

func (p PrivateInputs) digest() [32]byte {
	var buf bytes.Buffer
	for _, v := range [][]float64{p.FlattenedHistory, p.Covariance, p.Eigenvectors} {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		for _, x := range v {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
			buf.Write(b[:])
		}
	}
	return sha256.Sum256(buf.Bytes())
}

// Proof is the opaque byte-serializable attestation produced by
// GenerateProof. Its length is fixed per the two BN254 G1 points and
// two scalar responses it carries.
type Proof struct {
	Commitment   bn254.G1Affine
	Nonce        bn254.G1Affine
	ResponseR    fr.Element
	ResponseM    fr.Element
	PublicInputs PublicInputs
}

// Bytes serializes the opaque proof body — commitment, nonce, and
// both Okamoto responses — as the fixed-length byte string spec.md
// §3 calls π_i. The embedded PublicInputs are hashed separately
// (PublicInputsHash) rather than folded in here, since callers that
// digest "concatenated π_i" (spec.md §6) bind the proof body, not the
// already-public inputs it attests.
func (p Proof) Bytes() []byte {
	c := p.Commitment.Bytes()
	n := p.Nonce.Bytes()
	r := p.ResponseR.Bytes()
	m := p.ResponseM.Bytes()
	out := make([]byte, 0, len(c)+len(n)+len(r)+len(m))
	out = append(out, c[:]...)
	out = append(out, n[:]...)
	out = append(out, r[:]...)
	out = append(out, m[:]...)
	return out
}

var (
	baseG bn254.G1Affine
	baseH bn254.G1Affine
	gensInit bool
)

// generators lazily derives the two nothing-up-my-sleeve BN254 G1
// generators the commitment scheme is defined over: G is the curve's
// standard generator, H is an independent point obtained by hashing a
// fixed domain-separation string onto the curve, so no one knows the
// discrete log of H with respect to G.
func generators() (bn254.G1Affine, bn254.G1Affine, error) {
	if gensInit {
		return baseG, baseH, nil
	}
	_, _, g1Aff, _ := bn254.Generators()
	h, err := bn254.HashToG1([]byte("cfce/zkproof/pedersen-generator-h"), []byte("CFCE-BN254-G1_XMD:SHA-256_SVDW_RO_"))
	if err != nil {
		return bn254.G1Affine{}, bn254.G1Affine{}, fmt.Errorf("zkproof: deriving generator H: %w", err)
	}
	baseG, baseH = g1Aff, h
	gensInit = true
	return baseG, baseH, nil
}

func addG1(a, b bn254.G1Affine) bn254.G1Affine {
	var aj, bj, rj bn254.G1Jac
	aj.FromAffine(&a)
	bj.FromAffine(&b)
	rj.Set(&aj).AddAssign(&bj)
	var r bn254.G1Affine
	r.FromJacobian(&rj)
	return r
}

func scalarMulG1(p bn254.G1Affine, s fr.Element) bn254.G1Affine {
	var scalar big.Int
	s.BigInt(&scalar)
	var r bn254.G1Affine
	r.ScalarMultiplication(&p, &scalar)
	return r
}

func scalarFromBytes(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// GenerateProof produces a proof of knowledge binding pub to priv. It
// MAY be expensive; callers on the hot path should treat it as a
// suspending operation (spec.md §5).
func GenerateProof(priv PrivateInputs, pub PublicInputs) (Proof, error) {
	if len(pub.Delta) == 0 || len(pub.DeltaY) == 0 || len(pub.ClaimedEigenvalues) == 0 {
		return Proof{}, fmt.Errorf("%w: empty public input vector", ErrInvalidInputs)
	}
	if len(pub.Delta) != len(pub.DeltaY) {
		return Proof{}, fmt.Errorf("%w: delta/deltaY length mismatch %d!=%d", ErrInvalidInputs, len(pub.Delta), len(pub.DeltaY))
	}

	g, h, err := generators()
	if err != nil {
		return Proof{}, fmt.Errorf("%w: %v", ErrProofGenerationFailed, err)
	}

	var r, m fr.Element
	if _, err := r.SetRandom(); err != nil {
		return Proof{}, fmt.Errorf("%w: sampling blinding: %v", ErrProofGenerationFailed, err)
	}
	digest := priv.digest()
	m = scalarFromBytes(digest[:])

	commitment := addG1(scalarMulG1(g, r), scalarMulG1(h, m))

	var k1, k2 fr.Element
	if _, err := k1.SetRandom(); err != nil {
		return Proof{}, fmt.Errorf("%w: sampling nonce: %v", ErrProofGenerationFailed, err)
	}
	if _, err := k2.SetRandom(); err != nil {
		return Proof{}, fmt.Errorf("%w: sampling nonce: %v", ErrProofGenerationFailed, err)
	}
	nonce := addG1(scalarMulG1(g, k1), scalarMulG1(h, k2))

	challenge := fiatShamirChallenge(commitment, nonce, pub)

	var cr, cm, s1, s2 fr.Element
	cr.Mul(&challenge, &r)
	s1.Add(&k1, &cr)
	cm.Mul(&challenge, &m)
	s2.Add(&k2, &cm)

	return Proof{
		Commitment:   commitment,
		Nonce:        nonce,
		ResponseR:    s1,
		ResponseM:    s2,
		PublicInputs: pub,
	}, nil
}

// VerifyProof checks the Okamoto proof of knowledge and the binding
// of proof's embedded public inputs to pub, comparing field by field.
// It returns false rather than erroring on a well-formed but invalid
// proof; it only errors on malformed input (spec.md §4.8).
func VerifyProof(proof Proof, pub PublicInputs) (bool, error) {
	if len(pub.Delta) == 0 {
		return false, fmt.Errorf("%w: empty public inputs", ErrInvalidInputs)
	}
	if !proof.PublicInputs.Equal(pub) {
		return false, nil
	}

	g, h, err := generators()
	if err != nil {
		return false, fmt.Errorf("zkproof: deriving generators: %w", err)
	}

	challenge := fiatShamirChallenge(proof.Commitment, proof.Nonce, pub)

	lhs := addG1(scalarMulG1(g, proof.ResponseR), scalarMulG1(h, proof.ResponseM))
	rhs := addG1(proof.Nonce, scalarMulG1(proof.Commitment, challenge))

	return lhs.Equal(&rhs), nil
}

// PublicInputsHash exposes the canonical SHA-256 digest of pub. The
// ledger's proof-digest field is computed from Proof.Bytes and does
// not include it, and it is never itself the binding check (see
// PublicInputs.Equal).
func PublicInputsHash(pub PublicInputs) [32]byte {
	return pub.hash()
}

func fiatShamirChallenge(commitment, nonce bn254.G1Affine, pub PublicInputs) fr.Element {
	h := sha256.New()
	cBytes := commitment.Bytes()
	nBytes := nonce.Bytes()
	h.Write(cBytes[:])
	h.Write(nBytes[:])
	h.Write(pub.canonicalBytes())
	digest := h.Sum(nil)
	return scalarFromBytes(digest)
}
