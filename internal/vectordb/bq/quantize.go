// Package bq implements binary quantization for the vector index adapter:
// one bit per dimension, Hamming-distance comparable, plus the oversampled
// rescore configuration that sits in front of it (spec §4.5).
package bq

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// MaxHamming is the sentinel distance returned for length-mismatched
// inputs (spec §8.1).
const MaxHamming = int(^uint32(0) >> 1)

// Quantize compresses a full-precision vector to one bit per lane: bit i is
// set iff v[i] > 0. The result is ceil(len(v)/8) bytes.
func Quantize(v []float32) []byte {
	bs := bitset.New(uint(len(v)))
	for i, x := range v {
		if x > 0 {
			bs.Set(uint(i))
		}
	}
	return pack(bs, len(v))
}

func pack(bs *bitset.BitSet, dim int) []byte {
	out := make([]byte, BytesLen(dim))
	for i := 0; i < dim; i++ {
		if bs.Test(uint(i)) {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// BytesLen returns the packed byte length for a vector of the given
// dimension: ceil(dim/8).
func BytesLen(dim int) int {
	return (dim + 7) / 8
}

// Hamming returns the popcount of the element-wise XOR of a and b. Inputs
// of unequal length return MaxHamming rather than panicking or guessing.
func Hamming(a, b []byte) int {
	if len(a) != len(b) {
		return MaxHamming
	}
	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist
}
