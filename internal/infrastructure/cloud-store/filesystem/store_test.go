package cloudfs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/keeper/internal/core/ports"
	cloudfs "github.com/vulpemventures/keeper/internal/infrastructure/cloud-store/filesystem"
)

var ctx = context.Background()

func TestStore(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	store := newTestStore(t, rootDir, "account1")
	defer store.Close()

	require.NoError(t, store.Ping(ctx))

	exists, err := store.Exists(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, store.Sync(ctx, "backups/addr1.json"))

	require.NoError(t, store.Mkdir(ctx, "backups"))
	require.NoError(t, store.Write(ctx, "backups/addr1.json", []byte("v1")))
	require.NoError(t, store.Write(ctx, "backups/addr1.json", []byte("v2")))

	exists, err = store.Exists(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.True(t, exists)

	data, err := store.Read(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), data)

	// Files land in the account namespace, no temp file is left behind.
	entries, err := os.ReadDir(filepath.Join(rootDir, "account1", "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "addr1.json", entries[0].Name())
}

func TestStoreNamespaces(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	store1 := newTestStore(t, rootDir, "account1")
	store2 := newTestStore(t, rootDir, "account2")

	require.NoError(t, store1.Write(ctx, "backups/addr1.json", []byte("v1")))

	exists, err := store2.Exists(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.False(t, exists)

	// Paths can't escape the namespace.
	require.NoError(t, store2.Write(ctx, "../account1/backups/addr1.json", []byte("evil")))
	data, err := store1.Read(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)
}

func TestStoreConcurrentWrites(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, t.TempDir(), "account1")
	payloads := [][]byte{[]byte("first payload"), []byte("second payload")}

	wg := &sync.WaitGroup{}
	chErrs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chErrs <- store.Write(ctx, "backups/addr1.json", payloads[i%2])
		}(i)
	}
	wg.Wait()
	close(chErrs)
	for err := range chErrs {
		require.NoError(t, err)
	}

	data, err := store.Read(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.Contains(t, payloads, data)
}

func TestStoreCanceledWrite(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, t.TempDir(), "account1")
	require.NoError(t, store.Write(ctx, "backups/addr1.json", []byte("v1")))

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(
		t, store.Write(canceledCtx, "backups/addr1.json", []byte("v2")),
		context.Canceled,
	)

	data, err := store.Read(ctx, "backups/addr1.json")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)
}

func TestNewStoreFactory(t *testing.T) {
	t.Parallel()

	factory, err := cloudfs.NewStoreFactory("")
	require.ErrorIs(t, err, cloudfs.ErrMissingRootDir)
	require.Nil(t, factory)

	factory, err = cloudfs.NewStoreFactory(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, cloudfs.ProviderName, factory.Provider())

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		store, err := factory.NewStore(ctx, &ports.CloudCredential{AccountID: id})
		require.ErrorIs(t, err, cloudfs.ErrInvalidAccountID)
		require.Nil(t, store)
	}
}

func newTestStore(
	t *testing.T, rootDir, accountID string,
) ports.CloudObjectStore {
	factory, err := cloudfs.NewStoreFactory(rootDir)
	require.NoError(t, err)

	store, err := factory.NewStore(ctx, &ports.CloudCredential{AccountID: accountID})
	require.NoError(t, err)
	return store
}
