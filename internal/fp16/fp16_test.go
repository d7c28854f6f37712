package fp16

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	vec := []float32{1, -1, 0, 0.5, -0.5, 3.14159}
	b := ToBytes(vec)
	require.Len(t, b, len(vec)*BytesPerElement)

	got, err := FromBytes(b)
	require.NoError(t, err)
	require.Len(t, got, len(vec))
	for i, v := range vec {
		assert.InDelta(t, v, got[i], 1e-2)
	}
}

func TestFromBytesRejectsOddLength(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineIdenticalVectors(t *testing.T) {
	vec := []float32{0.3, 0.4, 0.5, -0.1}
	b := ToBytes(vec)
	score, ok := CosineBytes(b, b)
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-2)
}

func TestCosineOrthogonalVectors(t *testing.T) {
	a := ToBytes([]float32{1, 0})
	b := ToBytes([]float32{0, 1})
	score, ok := CosineBytes(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.0, score, 1e-2)
}

func TestCosineAntiparallelVectors(t *testing.T) {
	a := ToBytes([]float32{1, 2, 3})
	b := ToBytes([]float32{-1, -2, -3})
	score, ok := CosineBytes(a, b)
	require.True(t, ok)
	assert.InDelta(t, -1.0, score, 1e-2)
}

func TestCosineMismatchedLengthsDropsCandidate(t *testing.T) {
	a := ToBytes([]float32{1, 2, 3})
	b := ToBytes([]float32{1, 2})
	_, ok := CosineBytes(a, b)
	assert.False(t, ok)
}

func TestCosineZeroVectorIsZero(t *testing.T) {
	a := ToBytes([]float32{0, 0, 0})
	b := ToBytes([]float32{1, 2, 3})
	score, ok := CosineBytes(a, b)
	require.True(t, ok)
	assert.Equal(t, float32(0), score)
}
