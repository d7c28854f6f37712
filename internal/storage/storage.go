// Package storage implements the StorageLoader/StorageWriter capability
// contracts on top of internal/mmapstore's content-addressed file store.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ccheney/reflex/internal/capability"
	"github.com/ccheney/reflex/internal/mmapstore"
)

// SanitizeKey re-exports mmapstore's component-walking key sanitizer under
// the name this package's contract is documented against (spec §4.1/C.6).
// The enforcement itself lives in mmapstore, the layer that actually
// touches the filesystem; this is the name callers and tests reach for.
func SanitizeKey(key string) (string, error) {
	return mmapstore.SanitizeKey(key)
}

// Key returns the canonical on-disk storage key for a tenant/fingerprint
// pair: "{tenant_id}/{fingerprint_hex_16}.bin" (spec §6.5, Open Question
// resolution in SPEC_FULL.md C.7).
func Key(tenantID uint64, fingerprintHex16 string) string {
	return fmt.Sprintf("%d/%s.bin", tenantID, fingerprintHex16)
}

// Loader implements capability.StorageLoader over an mmapstore.Store.
type Loader struct {
	store *mmapstore.Store
	log   *slog.Logger
}

// NewLoader builds a Loader rooted at the given mmapstore.Store.
func NewLoader(store *mmapstore.Store, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{store: store, log: log}
}

// Load opens storageKey and returns its decoded entry, or (nil, nil) if the
// key does not exist or belongs to a different tenant.
func (l *Loader) Load(_ context.Context, storageKey string, tenant uint64) (*capability.CacheEntry, error) {
	h, err := l.store.OpenKey(storageKey)
	if err != nil {
		l.log.Debug("storage load miss", "key", storageKey, "err", err)
		return nil, nil //nolint:nilerr // missing file is a silent miss, not a failure (spec §4.6 step 4)
	}
	defer h.Close()

	archived, err := h.AccessArchived()
	if err != nil {
		l.log.Warn("storage entry failed validation", "key", storageKey, "err", err)
		return nil, nil
	}

	if archived.TenantID() != tenant {
		l.log.Warn("storage entry tenant mismatch, dropping candidate",
			"key", storageKey, "want_tenant", tenant, "got_tenant", archived.TenantID())
		return nil, nil
	}

	owned := archived.ToCacheEntry()
	return &capability.CacheEntry{
		TenantID:    owned.TenantID,
		ContextHash: owned.ContextHash,
		Timestamp:   owned.Timestamp,
		Embedding:   owned.Embedding,
		Payload:     owned.Payload,
	}, nil
}

// Writer implements capability.StorageWriter over an mmapstore.Store.
type Writer struct {
	store *mmapstore.Store
}

// NewWriter builds a Writer rooted at the given mmapstore.Store.
func NewWriter(store *mmapstore.Store) *Writer {
	return &Writer{store: store}
}

// Write durably persists data under storageKey. storageKey is sanitized by
// the underlying store; a path-traversal attempt is rejected.
func (w *Writer) Write(_ context.Context, storageKey string, data []byte) error {
	h, err := w.store.Write(storageKey, data)
	if err != nil {
		return err
	}
	return h.Close()
}

// EncodeEntry builds the on-disk byte representation for a capability-level
// cache entry, suitable for passing to Writer.Write.
func EncodeEntry(e capability.CacheEntry) []byte {
	return mmapstore.Encode(mmapstore.CacheEntry{
		TenantID:    e.TenantID,
		ContextHash: e.ContextHash,
		Timestamp:   e.Timestamp,
		Embedding:   e.Embedding,
		Payload:     e.Payload,
	})
}

var (
	_ capability.StorageLoader = (*Loader)(nil)
	_ capability.StorageWriter = (*Writer)(nil)
)
