// Package l2 implements the semantic cache tier: embed the query, search a
// binary-quantized ANN index, fan out to durable storage for the matching
// entries, and rescore at full precision (spec §4.5/§4.6).
package l2

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ccheney/reflex/internal/capability"
	"github.com/ccheney/reflex/internal/config"
	reflexerrors "github.com/ccheney/reflex/internal/errors"
	"github.com/ccheney/reflex/internal/fp16"
	"github.com/ccheney/reflex/internal/logging"
	"github.com/ccheney/reflex/internal/rescore"
	"github.com/ccheney/reflex/internal/vectordb"
)

// Cache is the L2 semantic tier: an embedder, an ANN-backed vector index, a
// durable storage loader, and a full-precision rescorer, wired together
// under a single L2Config (spec §6.3/§6.4).
type Cache struct {
	embedder capability.Embedder
	index    capability.VectorIndex
	loader   capability.StorageLoader
	rescorer *rescore.Rescorer
	cfg      config.L2Config
	log      *slog.Logger
}

// New builds an L2 Cache. cfg must already have passed Validate (the
// caller is expected to construct it via config.Default/config.Load).
func New(embedder capability.Embedder, index capability.VectorIndex, loader capability.StorageLoader, cfg config.L2Config, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		embedder: embedder,
		index:    index,
		loader:   loader,
		rescorer: rescore.New(logging.WithComponent(log, "rescore"), cfg.ValidateDimensions),
		cfg:      cfg,
		log:      logging.WithComponent(log, "l2"),
	}
}

// LookupResult is the outcome of a semantic search: the rescored,
// tenant-scoped candidates in descending score order, truncated to
// top_k_final, plus bookkeeping for the caller (the tiered engine hands
// these straight to the L3 verifier).
type LookupResult struct {
	Candidates        []rescore.ScoredCandidate
	BQCandidatesCount int
}

// Search embeds semanticText, runs a binary-quantized ANN search scoped to
// tenant, loads the surviving candidates from durable storage, and
// rescores them at full precision (spec §4.6 lookup algorithm). It returns
// the NoCandidates sentinel error when the ANN search or the rescore pass
// leaves nothing standing; the tiered engine treats that as a Miss rather
// than a hard failure.
func (c *Cache) Search(ctx context.Context, semanticText string, tenant uint64) (*LookupResult, error) {
	queryVec, err := c.embedder.Embed(ctx, semanticText)
	if err != nil {
		return nil, reflexerrors.EmbeddingFailed("l2: embed query", err)
	}

	limit := c.cfg.BQ.ClampLimit(c.cfg.TopKBQ)
	hits, err := c.index.SearchBQ(ctx, c.cfg.CollectionName, queryVec, int(limit), tenant)
	if err != nil {
		return nil, reflexerrors.New(reflexerrors.ErrCodeVectorDbSearchFailed, "l2: ann search", err)
	}
	if len(hits) == 0 {
		return nil, reflexerrors.NoCandidates("l2: ann search returned no candidates")
	}

	candidates, err := c.loadCandidates(ctx, hits, tenant)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, reflexerrors.NoCandidates("l2: no ann hits resolved to a stored entry")
	}

	queryF16 := fp16.ToBytes(queryVec)
	scored, err := c.rescorer.Rescore(queryF16, candidates)
	if err != nil {
		return nil, err
	}

	return &LookupResult{
		Candidates:        rescore.TopK(scored, c.cfg.TopKFinal),
		BQCandidatesCount: len(hits),
	}, nil
}

// loadCandidates fans out StorageLoader.Load across every ANN hit
// concurrently (grounded on the bm25/vector fan-out in the package this
// module's search engine was adapted from) and drops hits that resolve to
// nothing or fail the loader's own tenant check.
func (c *Cache) loadCandidates(ctx context.Context, hits []capability.SearchResult, tenant uint64) ([]rescore.Candidate, error) {
	loaded := make([]*capability.CacheEntry, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			entry, err := c.loader.Load(gctx, hit.StorageKey, tenant)
			if err != nil {
				return err
			}
			loaded[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, reflexerrors.New(reflexerrors.ErrCodeStorageIO, "l2: fan-out candidate load", err)
	}

	out := make([]rescore.Candidate, 0, len(hits))
	for i, hit := range hits {
		entry := loaded[i]
		if entry == nil {
			c.log.Warn("l2: ann hit did not resolve to a stored entry, dropping", "point_id", hit.ID)
			continue
		}
		score := hit.Score
		out = append(out, rescore.Candidate{
			PointID:     hit.ID,
			TenantID:    entry.TenantID,
			ContextHash: entry.ContextHash,
			Embedding:   entry.Embedding,
			Payload:     entry.Payload,
			BQScore:     &score,
		})
	}
	return out, nil
}

// Index embeds semanticText and upserts it into the vector index under the
// deterministic point id derived from (tenant, contextHash), so re-indexing
// the same context replaces the prior point rather than duplicating it
// (spec Invariant 4). The upsert is issued with eventual consistency, but
// Index itself is synchronous: it returns only after the upsert (and at
// most one retry of a retryable failure) has finished (SPEC_FULL.md C.7).
func (c *Cache) Index(ctx context.Context, semanticText string, tenant, contextHash uint64, storageKey string, timestamp int64) (uint64, error) {
	vec, err := c.embedder.Embed(ctx, semanticText)
	if err != nil {
		return 0, reflexerrors.EmbeddingFailed("l2: embed index text", err)
	}

	pointID := vectordb.GeneratePointID(tenant, contextHash)
	point := capability.VectorPoint{
		ID:          pointID,
		Vector:      vec,
		TenantID:    tenant,
		ContextHash: contextHash,
		Timestamp:   timestamp,
		StorageKey:  storageKey,
	}

	retryCfg := reflexerrors.SingleRetryConfig()
	retryCfg.OnRetry = func(_ int, err error) {
		c.log.Warn("l2: upsert failed, retrying once", "point_id", pointID, "err", err)
	}
	err = reflexerrors.Retry(ctx, retryCfg, func() error {
		return c.index.Upsert(ctx, c.cfg.CollectionName, []capability.VectorPoint{point}, capability.ConsistencyEventual)
	})
	if err != nil {
		return 0, reflexerrors.New(reflexerrors.ErrCodeVectorDbUpsertFailed, "l2: upsert point", err)
	}
	return pointID, nil
}
