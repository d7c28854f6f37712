// Package scoring implements the L3 cross-encoder verifier: the gate that
// decides whether an L2 semantic hit is trustworthy enough to return
// (spec §4.7).
package scoring

import (
	"context"
	"sort"

	"github.com/ccheney/reflex/internal/capability"
	reflexerrors "github.com/ccheney/reflex/internal/errors"
)

// Candidate is an L2 survivor handed to the verifier: its payload text
// (the L2/L3 coupling spec §4.7 documents — payload_blob must carry the
// semantic text, not an opaque response) plus the upstream score hint
// that got it this far.
type Candidate struct {
	PointID   uint64
	Payload   []byte
	ScoreHint float32
}

// Outcome is the tagged result of Verify (spec §3.1 VerificationResult).
type Outcome int

const (
	// OutcomeVerified means the top-scoring candidate strictly exceeded
	// the threshold.
	OutcomeVerified Outcome = iota
	// OutcomeRejected means candidates were scored but none passed.
	OutcomeRejected
	// OutcomeNoCandidates means the input candidate list was empty.
	OutcomeNoCandidates
)

// VerificationResult carries the outcome and its associated score.
// TopScore is meaningful for Verified and Rejected; zero for
// NoCandidates.
type VerificationResult struct {
	Outcome  Outcome
	TopScore float32
}

// Status maps a VerificationResult to the wire status it produces once
// the caller folds it back into a lookup response (SPEC_FULL.md C.1):
// Verified -> HIT_L3_VERIFIED, everything else -> MISS.
func (r VerificationResult) Status() string {
	if r.Outcome == OutcomeVerified {
		return "HIT_L3_VERIFIED"
	}
	return "MISS"
}

// Verifier scores a small candidate set with a cross-encoder-shaped
// Reranker and gates on a strict threshold (spec Invariant 7).
type Verifier struct {
	reranker  capability.Reranker
	threshold float32
}

// New builds a Verifier. threshold is the strict cutoff a top score must
// exceed to verify.
func New(reranker capability.Reranker, threshold float32) *Verifier {
	return &Verifier{reranker: reranker, threshold: threshold}
}

// Threshold returns the configured verification cutoff.
func (v *Verifier) Threshold() float32 { return v.threshold }

type scored struct {
	candidate Candidate
	score     float32
}

// Verify scores every candidate's payload (as UTF-8, lossily decoded) as
// the comparison text against query, sorts descending stable on ties,
// and gates the top score against the threshold. It returns the winning
// candidate's PointID so the caller can reconcile it with the original
// entry.
func (v *Verifier) Verify(ctx context.Context, query string, candidates []Candidate) (*Candidate, VerificationResult, error) {
	if len(candidates) == 0 {
		return nil, VerificationResult{Outcome: OutcomeNoCandidates}, nil
	}

	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s, err := v.reranker.Score(ctx, query, string(c.Payload))
		if err != nil {
			return nil, VerificationResult{}, reflexerrors.RerankerFailed("scoring: reranker failed", err)
		}
		results = append(results, scored{candidate: c, score: s})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	top := results[0]

	if top.score > v.threshold {
		return &top.candidate, VerificationResult{Outcome: OutcomeVerified, TopScore: top.score}, nil
	}
	return nil, VerificationResult{Outcome: OutcomeRejected, TopScore: top.score}, nil
}
