// Package l1 implements the bounded, tenant-scoped exact-match cache: a
// map from (tenant, fingerprint) straight to a zero-copy mmap handle.
package l1

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ccheney/reflex/internal/hashing"
	"github.com/ccheney/reflex/internal/mmapstore"
)

// DefaultCapacity is the external L1 capacity used when none is configured
// (spec §4.3/§6.4).
const DefaultCapacity = 10_000

// Key identifies one L1 slot. Tenant is folded into the key so two tenants
// sharing a fingerprint never collide.
type Key struct {
	Tenant      uint64
	Fingerprint hashing.Fingerprint
}

// LookupResult is returned on an L1 hit: the handle plus the fingerprint it
// was stored under.
type LookupResult struct {
	Handle      *mmapstore.Handle
	Fingerprint hashing.Fingerprint
}

// Cache is the bounded, concurrency-safe exact cache. Lookup takes no
// exclusive lock; Insert is wait-free with respect to unrelated keys. Both
// properties come directly from the underlying hashicorp/golang-lru/v2
// implementation, which shards its locking internally.
type Cache struct {
	lru *lru.Cache[Key, *mmapstore.Handle]
}

// New builds a Cache with the given capacity. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, _ := lru.NewWithEvict(capacity, onEvict)
	return &Cache{lru: c}
}

// onEvict closes the handle falling out of the cache so its mapping's
// refcount is released once no other clone holds it.
func onEvict(_ Key, handle *mmapstore.Handle) {
	_ = handle.Close()
}

// Insert stores handle under (tenant, fp), evicting the least-recently-used
// entry if the cache is at capacity. The caller's handle is retained by
// reference (not cloned); callers that need to keep using their own handle
// should pass handle.Clone().
func (c *Cache) Insert(tenant uint64, fp hashing.Fingerprint, handle *mmapstore.Handle) {
	c.lru.Add(Key{Tenant: tenant, Fingerprint: fp}, handle)
}

// Lookup returns a caller-owned clone of the handle stored for (tenant,
// fp), if any. The clone keeps the mapping alive even if a concurrent
// eviction drops the cache's own reference; callers must Close it when
// done.
func (c *Cache) Lookup(tenant uint64, fp hashing.Fingerprint) (*LookupResult, bool) {
	h, ok := c.lru.Get(Key{Tenant: tenant, Fingerprint: fp})
	if !ok {
		return nil, false
	}
	return &LookupResult{Handle: h.Clone(), Fingerprint: fp}, true
}

// Contains reports presence without affecting recency.
func (c *Cache) Contains(tenant uint64, fp hashing.Fingerprint) bool {
	return c.lru.Contains(Key{Tenant: tenant, Fingerprint: fp})
}

// Remove evicts (tenant, fp) if present and returns a caller-owned handle.
func (c *Cache) Remove(tenant uint64, fp hashing.Fingerprint) (*mmapstore.Handle, bool) {
	key := Key{Tenant: tenant, Fingerprint: fp}
	h, ok := c.lru.Peek(key)
	if !ok {
		return nil, false
	}
	owned := h.Clone()
	c.lru.Remove(key) // triggers onEvict, releasing the cache's own reference
	return owned, true
}

// Clear evicts every entry, closing their handles.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// IsEmpty reports whether the cache holds no entries.
func (c *Cache) IsEmpty() bool {
	return c.Len() == 0
}

// RunPendingMaintenance is a no-op hook kept for parity with the contract:
// hashicorp/golang-lru/v2 evicts synchronously on Add, so there is never
// deferred maintenance to flush. Exposed so callers written against the
// async-eviction contract compile unchanged.
func (c *Cache) RunPendingMaintenance() {}
