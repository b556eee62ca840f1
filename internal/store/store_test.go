package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fans3-backend/internal/store"
	"fans3-backend/internal/store/memory"
)

func TestScanPrefixStopsAtBoundary(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	// chat_info_ sorts between chat_addr_ and chat_link_; a scan over one
	// prefix must never leak entries from a neighbouring one.
	entries := map[string]string{
		store.ChatAddressKey(1): "0xAA",
		store.ChatAddressKey(2): "0xBB",
		store.ChatInfoKey(1):    `{"id":1}`,
		store.ChatLinkKey(1):    "https://t.me/+x",
	}
	for k, v := range entries {
		require.NoError(t, st.Set(ctx, k, v))
	}

	var keys []string
	err := store.ScanPrefix(ctx, st, store.PrefixChatAddress, func(key, _ string) (bool, error) {
		keys = append(keys, key)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{store.ChatAddressKey(1), store.ChatAddressKey(2)}, keys)
}

func TestScanPrefixEmpty(t *testing.T) {
	st := memory.New()
	err := store.ScanPrefix(context.Background(), st, store.PrefixUserAddress, func(string, string) (bool, error) {
		t.Fatal("callback must not run for an empty prefix")
		return false, nil
	})
	assert.NoError(t, err)
}

func TestAddressChatsPrefixIsolatesAddresses(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	// An address that is a prefix of another must not pick up the longer
	// address's entries; the trailing separator in the key guards this.
	short := "0xAB"
	long := "0xABCD"
	require.NoError(t, st.Set(ctx, store.AddressChatKey(short, 1), "1"))
	require.NoError(t, st.Set(ctx, store.AddressChatKey(long, 2), "2"))

	var keys []string
	err := store.ScanPrefix(ctx, st, store.AddressChatsPrefix(short), func(key, _ string) (bool, error) {
		keys = append(keys, key)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{store.AddressChatKey(short, 1)}, keys)
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "chat_addr_-100", store.ChatAddressKey(-100))
	assert.Equal(t, "user_addr_42", store.UserAddressKey(42))
	assert.Equal(t, "addr_chat_0xAA_7", store.AddressChatKey("0xAA", 7))
	assert.Equal(t, "chat_info_7", store.ChatInfoKey(7))
	assert.Equal(t, "chat_link_7", store.ChatLinkKey(7))
}
