// Package rerank provides the Reranker capability: a deterministic,
// token-overlap stub suitable for tests and a seam for a real
// cross-encoder model.
package rerank

import (
	"context"
	"math"
	"strings"

	"github.com/ccheney/reflex/internal/capability"
)

// DefaultThreshold is the L3 verification gate's default cutoff; a score
// must be strictly greater than this to verify (spec §4.7).
const DefaultThreshold = 0.70

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {}, "must": {}, "shall": {},
	"can": {}, "need": {}, "dare": {}, "ought": {}, "used": {}, "to": {}, "of": {}, "in": {},
	"for": {}, "on": {}, "with": {}, "at": {}, "by": {}, "from": {}, "as": {}, "into": {},
	"through": {}, "during": {}, "before": {}, "after": {}, "above": {}, "below": {}, "between": {},
	"under": {}, "again": {}, "further": {}, "then": {}, "once": {}, "here": {}, "there": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "all": {}, "each": {}, "few": {}, "more": {},
	"most": {}, "other": {}, "some": {}, "such": {}, "no": {}, "nor": {}, "not": {}, "only": {},
	"own": {}, "same": {}, "so": {}, "than": {}, "too": {}, "very": {}, "just": {}, "and": {},
	"but": {}, "if": {}, "or": {}, "because": {}, "until": {}, "while": {}, "what": {}, "which": {},
	"who": {}, "whom": {}, "this": {}, "that": {}, "these": {}, "those": {}, "am": {}, "it": {},
	"its": {},
}

// Stub is a deterministic reranker with no model dependency: it scores a
// query/candidate pair by blending recall and Jaccard overlap of their
// stop-word-filtered lowercased word sets, squashed through a logistic
// curve into [0, 1].
type Stub struct {
	threshold float32
}

// NewStub builds a Stub with the given verification threshold. A
// non-positive threshold falls back to DefaultThreshold.
func NewStub(threshold float32) *Stub {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Stub{threshold: threshold}
}

// IsStub always reports true for Stub.
func (s *Stub) IsStub() bool { return true }

// Threshold returns the configured verification cutoff.
func (s *Stub) Threshold() float32 { return s.threshold }

// Score returns the placeholder token-overlap score for the pair.
func (s *Stub) Score(_ context.Context, query, candidateText string) (float32, error) {
	return computePlaceholderScore(query, candidateText), nil
}

func wordSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func computePlaceholderScore(query, candidate string) float32 {
	queryWords := wordSet(query)
	candidateWords := wordSet(candidate)

	if len(queryWords) == 0 {
		shorter, longer := len(query), len(candidate)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if longer == 0 {
			longer = 1
		}
		return (float32(shorter) / float32(longer)) * 0.3
	}

	matches := 0
	for w := range queryWords {
		if _, ok := candidateWords[w]; ok {
			matches++
		}
	}
	recall := float32(matches) / float32(len(queryWords))

	union := len(queryWords)
	for w := range candidateWords {
		if _, ok := queryWords[w]; !ok {
			union++
		}
	}
	var jaccard float32
	if union > 0 {
		jaccard = float32(matches) / float32(union)
	}

	base := 0.6*recall + 0.4*jaccard
	normalized := float32(1.0 / (1.0 + math.Exp(float64(-8.0*(base-0.5)))))

	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

var _ capability.Reranker = (*Stub)(nil)
