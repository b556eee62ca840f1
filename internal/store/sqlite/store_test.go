package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fans3-backend/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "chat_addr_1", "0xAA"))
	v, ok, err := st.Get(ctx, "chat_addr_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xAA", v)

	// Upsert.
	require.NoError(t, st.Set(ctx, "chat_addr_1", "0xBB"))
	v, _, err = st.Get(ctx, "chat_addr_1")
	require.NoError(t, err)
	assert.Equal(t, "0xBB", v)

	require.NoError(t, st.Delete(ctx, "chat_addr_1"))
	_, ok, err = st.Get(ctx, "chat_addr_1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, st.Delete(ctx, "chat_addr_1"))
}

func TestScanOrderAndDirection(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"c", "a", "d", "b"} {
		require.NoError(t, st.Set(ctx, k, k))
	}

	var forward []string
	require.NoError(t, st.Scan(ctx, "b", false, func(key, _ string) (bool, error) {
		forward = append(forward, key)
		return true, nil
	}))
	assert.Equal(t, []string{"b", "c", "d"}, forward)

	var backward []string
	require.NoError(t, st.Scan(ctx, "c", true, func(key, _ string) (bool, error) {
		backward = append(backward, key)
		return true, nil
	}))
	assert.Equal(t, []string{"c", "b", "a"}, backward)
}

func TestScanPaginatesPastBatchSize(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	total := scanBatch + scanBatch/2
	for i := 0; i < total; i++ {
		require.NoError(t, st.Set(ctx, fmt.Sprintf("key_%06d", i), "v"))
	}

	count := 0
	require.NoError(t, st.Scan(ctx, "key_", false, func(key, _ string) (bool, error) {
		assert.Equal(t, fmt.Sprintf("key_%06d", count), key)
		count++
		return true, nil
	}))
	assert.Equal(t, total, count)
}

func TestScanPrefixOverSqlite(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.UserAddressKey(1), "0xAA"))
	require.NoError(t, st.Set(ctx, store.UserAddressKey(2), "0xBB"))
	require.NoError(t, st.Set(ctx, store.ChatLinkKey(1), "https://t.me/+x"))

	var keys []string
	require.NoError(t, store.ScanPrefix(ctx, st, store.PrefixUserAddress, func(key, _ string) (bool, error) {
		keys = append(keys, key)
		return true, nil
	}))
	assert.Equal(t, []string{store.UserAddressKey(1), store.UserAddressKey(2)}, keys)
}
