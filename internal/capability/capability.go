// Package capability defines the boundary interfaces the tiered cache
// consumes: embedding, reranking, vector search, and durable storage. It
// holds no implementations — see internal/embed, internal/rerank,
// internal/vectordb, and internal/storage for concrete and stub backends.
package capability

import "context"

// Embedder turns text into a fixed-dimension embedding vector. Real
// implementations call out to a model; the deterministic stub in
// internal/embed is mandatory test-surface equivalent (spec §6.3).
//
// Embed must be deterministic for a given input under a fixed model: same
// text in, same vector out, every time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension reports the fixed output width D.
	Dimension() int
	// IsStub reports whether this is the deterministic placeholder rather
	// than a real model-backed implementation.
	IsStub() bool
}

// Reranker scores how well a candidate answers a query, in [0, 1]. The
// deterministic stub in internal/rerank is a token-overlap heuristic; real
// implementations wrap a cross-encoder model.
type Reranker interface {
	Score(ctx context.Context, query, candidateText string) (float32, error)
	IsStub() bool
}

// WriteConsistency mirrors the tunable write-acknowledgment level exposed
// by vector index backends (spec §6.3).
type WriteConsistency int

const (
	// ConsistencyEventual does not wait for the write to be durable before
	// returning; used by the fire-and-forget index path.
	ConsistencyEventual WriteConsistency = iota
	// ConsistencyMajority waits for a quorum of replicas.
	ConsistencyMajority
)

// VectorPoint is a single point upserted into a VectorIndex collection.
type VectorPoint struct {
	ID          uint64
	Vector      []float32
	TenantID    uint64
	ContextHash uint64
	Timestamp   int64
	StorageKey  string
}

// SearchResult is a single binary-quantized ANN search hit, carrying enough
// metadata for the L2 cache to load and rescore the candidate without a
// second round trip (spec §6.3).
type SearchResult struct {
	ID          uint64
	Score       float32
	TenantID    uint64
	ContextHash uint64
	Timestamp   int64
	StorageKey  string
}

// VectorIndex is the binary-quantized ANN search and upsert capability
// fronting an external vector database.
type VectorIndex interface {
	// EnsureCollection creates the named collection with the given vector
	// dimension if it does not already exist. Idempotent.
	EnsureCollection(ctx context.Context, name string, dim int) error
	// Upsert writes points into collection under the given consistency
	// level.
	Upsert(ctx context.Context, collection string, points []VectorPoint, consistency WriteConsistency) error
	// SearchBQ runs a binary-quantized ANN search scoped to tenantFilter,
	// returning up to limit hits in score-descending order.
	SearchBQ(ctx context.Context, collection string, query []float32, limit int, tenantFilter uint64) ([]SearchResult, error)
	// IsReady reports whether the backend is reachable and usable.
	IsReady(ctx context.Context) error
}

// CacheEntry is the capability-level view of a stored entry; kept separate
// from mmapstore.CacheEntry so this package does not import the on-disk
// codec.
type CacheEntry struct {
	TenantID    uint64
	ContextHash uint64
	Timestamp   int64
	Embedding   []byte
	Payload     []byte
}

// StorageLoader reads durable entries back by key, and is expected to
// validate tenant ownership before returning a hit (spec §6.3).
type StorageLoader interface {
	// Load returns (nil, nil) when the key does not exist or belongs to a
	// different tenant than tenant.
	Load(ctx context.Context, storageKey string, tenant uint64) (*CacheEntry, error)
}

// StorageWriter durably persists bytes under storageKey. Write returns only
// an error, no handle. Write must reject any key containing path-traversal
// components.
type StorageWriter interface {
	Write(ctx context.Context, storageKey string, data []byte) error
}
