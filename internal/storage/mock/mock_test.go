package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccheney/reflex/internal/capability"
	"github.com/ccheney/reflex/internal/mmapstore"
)

func TestMockStoreWriteLoadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	entry := mmapstore.CacheEntry{TenantID: 3, ContextHash: 5, Payload: []byte("hi")}
	require.NoError(t, s.Write(ctx, "3/k.bin", mmapstore.Encode(entry)))

	got, err := s.Load(ctx, "3/k.bin", 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.ContextHash, got.ContextHash)
	assert.Equal(t, entry.Payload, got.Payload)
}

func TestMockStoreTenantMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "k", mmapstore.Encode(mmapstore.CacheEntry{TenantID: 1})))

	got, err := s.Load(ctx, "k", 2)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMockStoreMissingKey(t *testing.T) {
	s := New()
	got, err := s.Load(context.Background(), "nope", 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

var _ capability.StorageLoader = (*Store)(nil)
var _ capability.StorageWriter = (*Store)(nil)
