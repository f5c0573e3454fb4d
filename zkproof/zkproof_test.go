package zkproof

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePublicInputs() PublicInputs {
	return PublicInputs{
		Delta:                    []float64{0.1, -0.2, 0.3},
		DeltaY:                   []float64{1.1, 0.9, 2.0},
		ClaimedEigenvalues:       []float64{5.0, 2.0, 0.5},
		SpectralRadius:           5.0,
		SpectralEntropy:          0.72,
		CosineSimilarityToGlobal: 0.93,
	}
}

func samplePrivateInputs() PrivateInputs {
	return PrivateInputs{
		FlattenedHistory: []float64{1, 2, 3, 4, 5, 6},
		Covariance:       []float64{1, 0, 0, 1},
		Eigenvectors:     []float64{1, 0, 0, 1},
	}
}

func TestGenerateAndVerifyRoundTrip(t *testing.T) {
	pub := samplePublicInputs()
	proof, err := GenerateProof(samplePrivateInputs(), pub)
	require.NoError(t, err)

	ok, err := VerifyProof(proof, pub)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyFailsOnTamperedPublicInputs(t *testing.T) {
	pub := samplePublicInputs()
	proof, err := GenerateProof(samplePrivateInputs(), pub)
	require.NoError(t, err)

	tampered := pub
	tampered.SpectralRadius = 999
	ok, err := VerifyProof(proof, tampered)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyFailsOnForgedResponse(t *testing.T) {
	pub := samplePublicInputs()
	proof, err := GenerateProof(samplePrivateInputs(), pub)
	require.NoError(t, err)

	proof.ResponseR.SetOne()
	ok, err := VerifyProof(proof, pub)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGenerateProofRejectsEmptyInputs(t *testing.T) {
	pub := PublicInputs{}
	_, err := GenerateProof(samplePrivateInputs(), pub)
	require.ErrorIs(t, err, ErrInvalidInputs)
}

func TestGenerateProofRejectsMismatchedLengths(t *testing.T) {
	pub := samplePublicInputs()
	pub.DeltaY = pub.DeltaY[:1]
	_, err := GenerateProof(samplePrivateInputs(), pub)
	require.ErrorIs(t, err, ErrInvalidInputs)
}

func TestVerifyRejectsEmptyPublicInputs(t *testing.T) {
	pub := samplePublicInputs()
	proof, err := GenerateProof(samplePrivateInputs(), pub)
	require.NoError(t, err)

	_, err = VerifyProof(proof, PublicInputs{})
	require.ErrorIs(t, err, ErrInvalidInputs)
}

func TestPublicInputsEqualFieldByField(t *testing.T) {
	a := samplePublicInputs()
	b := samplePublicInputs()
	require.True(t, a.Equal(b))

	b.ClaimedEigenvalues = append([]float64(nil), b.ClaimedEigenvalues...)
	b.ClaimedEigenvalues[0] += 1e-9
	require.False(t, a.Equal(b))
}

func TestPublicInputsHashDeterministic(t *testing.T) {
	a := samplePublicInputs()
	b := samplePublicInputs()
	require.Equal(t, PublicInputsHash(a), PublicInputsHash(b))
}

func TestDifferentPrivateInputsProduceVerifiableButDistinctProofs(t *testing.T) {
	pub := samplePublicInputs()
	priv1 := samplePrivateInputs()
	priv2 := samplePrivateInputs()
	priv2.FlattenedHistory[0] = 999

	proof1, err := GenerateProof(priv1, pub)
	require.NoError(t, err)
	proof2, err := GenerateProof(priv2, pub)
	require.NoError(t, err)

	ok1, err := VerifyProof(proof1, pub)
	require.NoError(t, err)
	require.True(t, ok1)

	ok2, err := VerifyProof(proof2, pub)
	require.NoError(t, err)
	require.True(t, ok2)

	require.NotEqual(t, proof1.Commitment, proof2.Commitment)
}
