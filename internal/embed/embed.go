// Package embed provides the Embedder capability: a deterministic stub
// suitable for tests and a seam for wiring in a real model later.
package embed

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/ccheney/reflex/internal/capability"
)

// DefaultDimension is the stub embedder's output width when none is
// configured.
const DefaultDimension = 256

// Stub is a deterministic, hash-seeded embedder. It requires no model
// files and is the mandatory fallback for the core's test surface (spec
// §6.3): same text in, same vector out, always.
type Stub struct {
	dim int
}

// NewStub builds a Stub with the given output dimension. A non-positive
// dimension falls back to DefaultDimension.
func NewStub(dim int) *Stub {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Stub{dim: dim}
}

// Dimension reports the fixed output width.
func (s *Stub) Dimension() int { return s.dim }

// IsStub always reports true for Stub.
func (s *Stub) IsStub() bool { return true }

// Embed hashes text to a 64-bit seed, drives a 64-bit linear congruential
// generator to fill dim lanes in [-1, 1], then L2-normalizes the result.
func (s *Stub) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	embedding := make([]float32, s.dim)
	for i := range embedding {
		state = state*6364136223846793005 + 1
		lane := (float32(state>>32) / float32(math.MaxUint32)) * 2.0 - 1.0
		embedding[i] = lane
	}

	var sumSq float32
	for _, v := range embedding {
		sumSq += v * v
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}

	return embedding, nil
}

var _ capability.Embedder = (*Stub)(nil)
