// Package tiered implements the orchestrator that sits on top of L1 and L2:
// probe the exact cache first, fall back to semantic search, and leave L3
// verification to the caller (spec §4.8).
package tiered

import (
	"context"

	reflexerrors "github.com/ccheney/reflex/internal/errors"
	"github.com/ccheney/reflex/internal/hashing"
	"github.com/ccheney/reflex/internal/l1"
	"github.com/ccheney/reflex/internal/l2"
	"github.com/ccheney/reflex/internal/mmapstore"
)

// Kind tags which tier a LookupResult came from.
type Kind int

const (
	// KindHitL1 means the exact cache answered without touching L2.
	KindHitL1 Kind = iota
	// KindHitL2 means L1 missed but L2 returned a non-empty candidate
	// list; the caller still owes it an L3 verification pass.
	KindHitL2
	// KindMiss means neither tier produced a usable candidate.
	KindMiss
)

// LookupResult is the sum type over HitL1/HitL2/Miss (spec §3.1
// TieredLookupResult). L1 is set for KindHitL1, L2 for KindHitL2, and
// neither for KindMiss.
type LookupResult struct {
	Kind Kind
	L1   *l1.LookupResult
	L2   *l2.LookupResult
}

// Status is the four-variant wire status a caller reports once it has
// folded L3 verification (if any) into a tiered lookup (spec §4.9).
type Status int

const (
	StatusHitL1Exact Status = iota
	StatusHitL2Semantic
	StatusHitL3Verified
	StatusMiss
)

// String returns the fixed wire encoding for s (spec §6.2).
func (s Status) String() string {
	switch s {
	case StatusHitL1Exact:
		return "HIT_L1_EXACT"
	case StatusHitL2Semantic:
		return "HIT_L2_SEMANTIC"
	case StatusHitL3Verified:
		return "HIT_L3_VERIFIED"
	default:
		return "MISS"
	}
}

// IsHit reports true for every status but Miss.
func (s Status) IsHit() bool { return s != StatusMiss }

// Engine wires the exact (L1) and semantic (L2) tiers together. It holds
// no L3 verifier: cross-encoder verification depends on the gateway's
// query text and is performed by the caller on top of a HitL2 result
// (spec §4.8 step 3).
type Engine struct {
	l1 *l1.Cache
	l2 *l2.Cache
}

// New builds an Engine over an already-constructed L1 cache and L2
// semantic cache.
func New(l1Cache *l1.Cache, l2Cache *l2.Cache) *Engine {
	return &Engine{l1: l1Cache, l2: l2Cache}
}

// Lookup probes L1 first; any hit returns immediately. On an L1 miss it
// falls through to L2.search. A NoCandidates error from L2 becomes a
// Miss, not a failure; an L2 result with an empty candidate list is also
// folded into Miss defensively (spec §4.6 guarantees this never happens,
// but the engine does not trust that blindly). Any other L2 error is
// surfaced to the caller unchanged.
func (e *Engine) Lookup(ctx context.Context, exactFP hashing.Fingerprint, semanticQuery string, tenant uint64) (*LookupResult, error) {
	if hit, ok := e.l1.Lookup(tenant, exactFP); ok {
		return &LookupResult{Kind: KindHitL1, L1: hit}, nil
	}

	result, err := e.l2.Search(ctx, semanticQuery, tenant)
	if err != nil {
		if reflexerrors.IsNoCandidates(err) {
			return &LookupResult{Kind: KindMiss}, nil
		}
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return &LookupResult{Kind: KindMiss}, nil
	}
	return &LookupResult{Kind: KindHitL2, L2: result}, nil
}

// InsertL1 stores handle under (tenant, fp) in the exact cache. It is
// synchronous and always succeeds (spec §4.3's contract is infallible).
func (e *Engine) InsertL1(tenant uint64, fp hashing.Fingerprint, handle *mmapstore.Handle) {
	e.l1.Insert(tenant, fp, handle)
}

// IndexL2 embeds and upserts semanticText into the vector index under the
// deterministic point id for (tenant, contextHash). The upsert itself
// uses eventual consistency at the adapter layer; IndexL2 awaits only the
// adapter call returning, not downstream replication (spec §4.5/§4.8).
func (e *Engine) IndexL2(ctx context.Context, semanticText string, tenant, contextHash uint64, storageKey string, timestamp int64) (uint64, error) {
	return e.l2.Index(ctx, semanticText, tenant, contextHash, storageKey, timestamp)
}

// InsertBoth is the convenience path used by the write side of the
// gateway: insert into L1 synchronously, then index into L2. A failure to
// publish into L2 does not roll back the L1 insert — L1 is always
// best-effort — but the error is returned to the caller (spec §4.8).
func (e *Engine) InsertBoth(ctx context.Context, fp hashing.Fingerprint, tenant uint64, handle *mmapstore.Handle, semanticText string, contextHash uint64, storageKey string, timestamp int64) (uint64, error) {
	e.InsertL1(tenant, fp, handle)
	return e.IndexL2(ctx, semanticText, tenant, contextHash, storageKey, timestamp)
}
