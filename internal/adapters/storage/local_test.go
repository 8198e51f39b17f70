package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()

	store, err := NewLocalStore(LocalStoreParams{
		Root:    t.TempDir(),
		BaseURL: "http://localhost:8080/media/",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return store
}

func TestLocalStorePutAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	url, err := store.Put(ctx, "auctions/abc/photo.png", []byte("image bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/auctions/abc/photo.png", url)

	data, err := os.ReadFile(filepath.Join(store.root, "auctions", "abc", "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)

	require.NoError(t, store.Delete(ctx, "auctions/abc/photo.png"))
	_, err = os.Stat(filepath.Join(store.root, "auctions", "abc", "photo.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreDeleteMissingIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never/stored.png"))
}
