// Package mock provides a deterministic, in-memory VectorIndex for tests:
// real cosine ranking over stored float32 vectors, no network, and the
// "poison the lock" hook spec §5 calls for (SPEC_FULL.md C.3).
package mock

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ccheney/reflex/internal/capability"
	reflexerrors "github.com/ccheney/reflex/internal/errors"
)

type collection struct {
	dim    int
	points map[uint64]capability.VectorPoint
}

// Client is a map-backed capability.VectorIndex. Safe for concurrent use.
type Client struct {
	mu          sync.RWMutex
	collections map[string]*collection
	poisoned    bool
}

// New returns an empty mock client.
func New() *Client {
	return &Client{collections: make(map[string]*collection)}
}

// PoisonLock flips the client into a permanently failing state: every
// subsequent call returns an error wrapping the literal message "lock
// poisoned", matching the real adapter's contract for a poisoned lock
// (spec §5).
func (c *Client) PoisonLock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poisoned = true
}

func (c *Client) checkPoison() error {
	if c.poisoned {
		return reflexerrors.New(reflexerrors.ErrCodeVectorDbSearchFailed, "lock poisoned", nil)
	}
	return nil
}

// EnsureCollection idempotently records the collection's vector dimension.
func (c *Client) EnsureCollection(_ context.Context, name string, dim int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkPoison(); err != nil {
		return err
	}
	if _, ok := c.collections[name]; ok {
		return nil
	}
	c.collections[name] = &collection{dim: dim, points: make(map[uint64]capability.VectorPoint)}
	return nil
}

// Upsert writes points into collection, replacing any existing point at
// the same id. Consistency is accepted but has no observable effect on
// this in-memory backend: every write is immediately visible.
func (c *Client) Upsert(_ context.Context, name string, points []capability.VectorPoint, _ capability.WriteConsistency) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkPoison(); err != nil {
		return err
	}
	col, ok := c.collections[name]
	if !ok {
		col = &collection{points: make(map[uint64]capability.VectorPoint)}
		c.collections[name] = col
	}
	for _, p := range points {
		col.points[p.ID] = p
	}
	return nil
}

// SearchBQ ranks every point in collection belonging to tenantFilter by
// cosine similarity to query and returns up to limit hits, best first.
// The mock ranks on the full-precision vector rather than a quantized
// representation; it exists to exercise the L2/tiered control flow, not
// to model BQ recall loss.
func (c *Client) SearchBQ(_ context.Context, name string, query []float32, limit int, tenantFilter uint64) ([]capability.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkPoison(); err != nil {
		return nil, err
	}
	col, ok := c.collections[name]
	if !ok {
		return nil, nil
	}

	results := make([]capability.SearchResult, 0, len(col.points))
	for _, p := range col.points {
		if p.TenantID != tenantFilter {
			continue
		}
		score := cosine(query, p.Vector)
		results = append(results, capability.SearchResult{
			ID:          p.ID,
			Score:       score,
			TenantID:    p.TenantID,
			ContextHash: p.ContextHash,
			Timestamp:   p.Timestamp,
			StorageKey:  p.StorageKey,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// IsReady always succeeds unless the lock has been poisoned.
func (c *Client) IsReady(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkPoison()
}

// Len reports how many points are stored in the named collection (0 if it
// does not exist), for test assertions.
func (c *Client) Len(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.collections[name]
	if !ok {
		return 0
	}
	return len(col.points)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt32(normA) * sqrt32(normB))
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

var _ capability.VectorIndex = (*Client)(nil)
