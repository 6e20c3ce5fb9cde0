package snapshot

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStorage_Write(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	err = storage.Write(ctx, "test-key", []byte("original"))
	require.NoError(t, err)
	err = storage.Write(ctx, "test-key", []byte("updated"))
	require.NoError(t, err)

	data, err := storage.Read(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), data)
}

func TestFilesystemStorage_Write_InvalidKey(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "a/b", `a\b`, ".."} {
		assert.Error(t, storage.Write(ctx, key, []byte("x")), key)
	}
}

func TestFilesystemStorage_Read_NotFound(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Read(ctx, "nonexistent-key")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestFilesystemStorage_ListSnapshots(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{snapshotKey("0001"), snapshotKey("0003"), snapshotKey("0002"), objectKey([]byte("1")), BlobMarkerKey} {
		require.NoError(t, storage.Write(ctx, key, []byte(key)))
	}

	keys, err := storage.List(ctx, BlobSnapshotPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{snapshotKey("0003"), snapshotKey("0002"), snapshotKey("0001")}, keys)

	keys, err = storage.List(ctx, BlobSnapshotPrefix+"0009")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFilesystemStorage_DeleteWorkFile(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	key := workKey("tenants/acme/users.json")

	require.NoError(t, storage.Write(ctx, key, []byte(`{}`)))
	require.NoError(t, storage.Delete(ctx, key))

	_, err = storage.Read(ctx, key)
	assert.True(t, os.IsNotExist(err))

	// idempotent
	require.NoError(t, storage.Delete(ctx, key))
}

func TestFilesystemStorage_ConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = storage.Write(ctx, "concurrent-key", []byte("data"))
			_, _ = storage.Read(ctx, "concurrent-key")
			_, _ = storage.List(ctx, "concurrent-")
		}()
	}
	wg.Wait()

	data, err := storage.Read(ctx, "concurrent-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}
