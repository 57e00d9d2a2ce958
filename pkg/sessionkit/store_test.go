package sessionkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))
	v, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok", v)

	require.NoError(t, store.Remove(ctx, KeyToken))
	_, ok, err = store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent key is fine.
	require.NoError(t, store.Remove(ctx, KeyToken))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "store.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyToken, "tok-durable"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"id":"1"}`))
	require.NoError(t, store.Remove(ctx, KeyUser))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	v, ok, err := reopened.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-durable", v)

	_, ok, err = reopened.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRemoveMissingKey(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	assert.NoError(t, store.Remove(context.Background(), "nothing"))
}

func TestLoadSessionValidatesStoredRole(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"id":"9","role":"owner"}`))

	_, _, _, err := loadSession(ctx, store)
	assert.Error(t, err)
}

func TestLoadSessionRejectsMalformedStamp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"id":"1","role":"user"}`))
	require.NoError(t, store.Set(ctx, KeySessionStamp, "not-a-number"))

	_, _, _, err := loadSession(ctx, store)
	assert.Error(t, err)
}

func TestLoadDelegationRejectsMalformedStamp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, saveDelegation(ctx, store, domain.DelegationRecord{
		OriginalUser:  rootIdentity(),
		OriginalToken: "tok-root",
		Stamp:         7,
	}))
	require.NoError(t, store.Set(ctx, KeyDelegationStamp, "garbage"))

	_, _, err := loadDelegation(ctx, store)
	assert.Error(t, err)
}

func TestLoadSessionAbsentWhenPartiallyWritten(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyToken, "tok"))

	_, _, ok, err := loadSession(ctx, store)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveLoadDelegationRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := domain.DelegationRecord{
		OriginalUser:  rootIdentity(),
		OriginalToken: "tok-root",
		Stamp:         42,
	}
	require.NoError(t, saveDelegation(ctx, store, in))

	out, ok, err := loadDelegation(ctx, store)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.OriginalUser, out.OriginalUser)
	assert.Equal(t, "tok-root", out.OriginalToken)
	assert.Equal(t, int64(42), out.Stamp)

	require.NoError(t, clearDelegation(ctx, store))
	_, ok, err = loadDelegation(ctx, store)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadDelegationIgnoresFlagWithoutRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyIsImpersonating, "true"))

	_, ok, err := loadDelegation(ctx, store)
	require.NoError(t, err)
	assert.False(t, ok)
}
