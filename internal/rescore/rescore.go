// Package rescore implements full-precision cosine rescoring of ANN
// candidates: the client-side correction for binary quantization's recall
// loss (spec §4.4).
package rescore

import (
	"log/slog"
	"sort"

	reflexerrors "github.com/ccheney/reflex/internal/errors"
	"github.com/ccheney/reflex/internal/fp16"
)

// Candidate is a loaded cache entry awaiting rescoring. It carries only
// the bytes the rescorer and a later L3 pass need, decoupled from how the
// entry was decoded (mmap'd L1 handle or a StorageLoader round trip).
type Candidate struct {
	PointID     uint64
	TenantID    uint64
	ContextHash uint64
	Embedding   []byte // packed little-endian f16
	Payload     []byte
	// BQScore is the optional upstream ANN score, carried through for
	// ScoredCandidate.BQScore but not used in rescoring itself.
	BQScore *float32
}

// ScoredCandidate is a rescored candidate, sorted best-first by Score.
type ScoredCandidate struct {
	PointID     uint64
	TenantID    uint64
	ContextHash uint64
	Payload     []byte
	Score       float32
	BQScore     *float32
}

// Rescorer computes full-precision cosine similarity between a packed f16
// query and each candidate's stored embedding, then sorts and truncates.
type Rescorer struct {
	log                *slog.Logger
	validateDimensions bool
}

// New builds a Rescorer. validateDimensions controls whether a candidate
// whose embedding length differs from the query's is dropped by an explicit
// dimension check (true), or by fp16.CosineBytes's own length check (false).
// Both paths log a warning for the dropped candidate.
func New(log *slog.Logger, validateDimensions bool) *Rescorer {
	if log == nil {
		log = slog.Default()
	}
	return &Rescorer{log: log, validateDimensions: validateDimensions}
}

// Rescore scores every candidate against queryF16 (packed little-endian
// f16), drops any that are missing an embedding or whose dimension
// mismatches, and sorts descending, stable on ties.
func (r *Rescorer) Rescore(queryF16 []byte, candidates []Candidate) ([]ScoredCandidate, error) {
	if len(queryF16)%fp16.BytesPerElement != 0 {
		return nil, reflexerrors.New(reflexerrors.ErrCodeInvalidQueryDimension,
			"rescore: query byte length is not a multiple of the f16 element size", nil)
	}
	if len(candidates) == 0 {
		return nil, reflexerrors.NoCandidates("rescore: no candidates to score")
	}

	out := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			r.log.Warn("rescore: candidate has no embedding, dropping", "point_id", c.PointID)
			continue
		}
		if r.validateDimensions && len(c.Embedding) != len(queryF16) {
			r.log.Warn("rescore: candidate embedding dimension mismatch, dropping",
				"point_id", c.PointID, "query_bytes", len(queryF16), "candidate_bytes", len(c.Embedding))
			continue
		}

		score, ok := fp16.CosineBytes(queryF16, c.Embedding)
		if !ok {
			r.log.Warn("rescore: candidate embedding length mismatch, dropping", "point_id", c.PointID)
			continue
		}

		out = append(out, ScoredCandidate{
			PointID:     c.PointID,
			TenantID:    c.TenantID,
			ContextHash: c.ContextHash,
			Payload:     c.Payload,
			Score:       score,
			BQScore:     c.BQScore,
		})
	}

	if len(out) == 0 {
		return nil, reflexerrors.NoCandidates("rescore: all candidates dropped")
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// TopK truncates scored to at most k entries.
func TopK(scored []ScoredCandidate, k int) []ScoredCandidate {
	if k <= 0 || len(scored) <= k {
		return scored
	}
	return scored[:k]
}
