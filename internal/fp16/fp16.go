// Package fp16 packs and unpacks embedding vectors as little-endian IEEE
// 754 half-precision floats, the wire format §3.1 specifies for
// CacheEntry.embedding.
package fp16

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// BytesPerElement is the size in bytes of one packed f16 lane.
const BytesPerElement = 2

// ToBytes packs vec as little-endian f16, 2 bytes per element.
func ToBytes(vec []float32) []byte {
	out := make([]byte, len(vec)*BytesPerElement)
	for i, v := range vec {
		bits := float16.Fromfloat32(v).Bits()
		binary.LittleEndian.PutUint16(out[i*2:], bits)
	}
	return out
}

// FromBytes unpacks a little-endian f16 byte slice into float32 lanes. It
// rejects byte lengths that are not a multiple of BytesPerElement.
func FromBytes(b []byte) ([]float32, error) {
	if len(b)%BytesPerElement != 0 {
		return nil, fmt.Errorf("fp16: byte length %d is not a multiple of %d", len(b), BytesPerElement)
	}
	n := len(b) / BytesPerElement
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint16(b[i*2:])
		out[i] = float16.Frombits(bits).Float32()
	}
	return out, nil
}

// CosineBytes computes cosine similarity between a packed f16 query and a
// packed f16 candidate, lifting both to float32 lane-wise. It returns 0 and
// false when the byte lengths mismatch (the caller should treat this as a
// dropped candidate, not a hard error).
func CosineBytes(query, candidate []byte) (float32, bool) {
	if len(query) != len(candidate) || len(query) == 0 {
		return 0, false
	}
	if len(query)%BytesPerElement != 0 {
		return 0, false
	}
	n := len(query) / BytesPerElement
	var dot, normA, normB float32
	for i := 0; i < n; i++ {
		av := float16.Frombits(binary.LittleEndian.Uint16(query[i*2:])).Float32()
		bv := float16.Frombits(binary.LittleEndian.Uint16(candidate[i*2:])).Float32()
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	return cosineFromSums(dot, normA, normB), true
}

func cosineFromSums(dot, normASq, normBSq float32) float32 {
	if normASq == 0 || normBSq == 0 {
		return 0
	}
	return dot / (sqrt32(normASq) * sqrt32(normBSq))
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
