package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccheney/reflex/internal/capability"
	"github.com/ccheney/reflex/internal/mmapstore"
)

func newTestLoaderWriter(t *testing.T) (*Loader, *Writer) {
	t.Helper()
	store := mmapstore.NewStore(t.TempDir())
	return NewLoader(store, nil), NewWriter(store)
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "42/abc123.bin", Key(42, "abc123"))
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	loader, writer := newTestLoaderWriter(t)
	ctx := context.Background()

	entry := capability.CacheEntry{
		TenantID:    7,
		ContextHash: 99,
		Timestamp:   123456,
		Embedding:   []byte{9, 9, 9, 9},
		Payload:     []byte("the answer is 42"),
	}
	key := Key(entry.TenantID, "deadbeefcafebabe")

	require.NoError(t, writer.Write(ctx, key, EncodeEntry(entry)))

	loaded, err := loader.Load(ctx, key, entry.TenantID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entry.ContextHash, loaded.ContextHash)
	assert.Equal(t, entry.Payload, loaded.Payload)
}

func TestLoadMissingKeyIsSilentMiss(t *testing.T) {
	loader, _ := newTestLoaderWriter(t)
	loaded, err := loader.Load(context.Background(), "7/nope.bin", 7)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadTenantMismatchDropsCandidate(t *testing.T) {
	loader, writer := newTestLoaderWriter(t)
	ctx := context.Background()

	entry := capability.CacheEntry{TenantID: 1, ContextHash: 1, Payload: []byte("x")}
	key := Key(1, "feedfacefeedface")
	require.NoError(t, writer.Write(ctx, key, EncodeEntry(entry)))

	loaded, err := loader.Load(ctx, key, 2)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestWriteRejectsPathTraversal(t *testing.T) {
	_, writer := newTestLoaderWriter(t)
	err := writer.Write(context.Background(), "../escape.bin", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, mmapstore.ErrInvalidKey)
}
