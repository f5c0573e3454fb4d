package commitreveal

import (
	"encoding/binary"
	"math"
)

// EncodeI64Vector serializes a vector of scaled i64 features as a
// length-prefixed little-endian sequence, per the deployment-wide
// canonical encoding of spec.md §6.
func EncodeI64Vector(values []int64) []byte {
	buf := make([]byte, 4+8*len(values))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(values)))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[4+8*i:4+8*i+8], uint64(v))
	}
	return buf
}

// EncodeFloat64Vector serializes a vector of IEEE-754 doubles as a
// length-prefixed little-endian sequence.
func EncodeFloat64Vector(values []float64) []byte {
	buf := make([]byte, 4+8*len(values))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(values)))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[4+8*i:4+8*i+8], math.Float64bits(v))
	}
	return buf
}

// EncodeIdentifier serializes a UTF-8 identifier as a length-prefixed
// byte string.
func EncodeIdentifier(id string) []byte {
	b := []byte(id)
	buf := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(b)))
	copy(buf[4:], b)
	return buf
}

// ResponseData is the canonical payload an agent commits to: its
// base prediction and Δy vector. Serialize produces the
// deployment-wide canonical binary encoding that is hashed in the
// commitment and echoed at reveal.
type ResponseData struct {
	BasePrediction float64
	DeltaResponse  []float64
}

// Serialize returns the canonical byte encoding of r.
func (r ResponseData) Serialize() []byte {
	out := EncodeFloat64Vector([]float64{r.BasePrediction})
	out = append(out, EncodeFloat64Vector(r.DeltaResponse)...)
	return out
}
