package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	const scale = 1_000_000

	n, err := Encode(1.234567, scale)
	require.NoError(t, err)
	require.Equal(t, int64(1_234_567), n)
	require.InDelta(t, 1.234567, Decode(n, scale), 1e-9)

	n, err = Encode(-0.000001, scale)
	require.NoError(t, err)
	require.Equal(t, int64(-1), n)
	require.InDelta(t, -0.000001, Decode(n, scale), 1e-9)
}

func TestRoundTripProperty(t *testing.T) {
	const scale = 1_000_000
	values := []float64{0, 1, -1, 100.5, -100.5, 1e9, -1e9, 0.0000005}
	for _, x := range values {
		if math.Abs(x)*scale > math.MaxInt64 {
			continue
		}
		n, err := Encode(x, scale)
		require.NoError(t, err)
		require.InDelta(t, x, Decode(n, scale), 1.0/scale+1e-9)
	}
}

func TestEncodeOverflow(t *testing.T) {
	_, err := Encode(1e20, 1_000_000)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestFingerprintSlotsRoundTrip(t *testing.T) {
	eigen := []float64{5, 4, 3, 2, 1, 0, 0, 0}
	slots, err := EncodeFingerprintSlots(eigen, 5.0, 15.0, 5, 1.5, 8, 1_000_000)
	require.NoError(t, err)

	gotEigen, radius, trace, rank, entropy := DecodeFingerprintSlots(slots, 8, 1_000_000)
	require.Len(t, gotEigen, 8)
	for i := range eigen {
		require.InDelta(t, eigen[i], gotEigen[i], 1e-6)
	}
	require.InDelta(t, 5.0, radius, 1e-6)
	require.InDelta(t, 15.0, trace, 1e-6)
	require.Equal(t, 5, rank)
	require.InDelta(t, 1.5, entropy, 1e-2)
}

// TestFingerprintSlotsNormativeOffsets pins the summary slots to
// K..K+3 (spec.md §4.1), not a fixed 12..15: for K=8 that's slots
// 8-11, so a second implementation decoding per the spec's layout
// must land on the same slots this encoder wrote.
func TestFingerprintSlotsNormativeOffsets(t *testing.T) {
	eigen := []float64{5, 4, 3, 2, 1, 0, 0, 0}
	slots, err := EncodeFingerprintSlots(eigen, 5.0, 15.0, 5, 1.5, 8, 1_000_000)
	require.NoError(t, err)

	require.Equal(t, int64(5_000_000), slots[8])  // spectral_radius at K
	require.Equal(t, int64(15_000_000), slots[9]) // trace at K+1
	require.Equal(t, int64(5), slots[10])         // rank at K+2
	require.Equal(t, int64(150), slots[11])       // entropy*100 at K+3
	require.Equal(t, int64(0), slots[12])         // untouched beyond K+3
}

func TestFingerprintSlotsEntropyClamped(t *testing.T) {
	slots, err := EncodeFingerprintSlots(nil, 0, 0, 0, 999, 0, 1_000_000)
	require.NoError(t, err)
	_, _, _, _, entropy := DecodeFingerprintSlots(slots, 0, 1_000_000)
	require.InDelta(t, 100.0, entropy, 1e-2)
}
