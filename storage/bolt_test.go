package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/devadigapratham/printd/axis"
	"github.com/devadigapratham/printd/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBolt(t *testing.T, path string) *BoltStore {
	t.Helper()
	store, err := OpenBolt(path)
	require.NoError(t, err)
	return store
}

func TestBoltStoreContract(t *testing.T) {
	store := openTestBolt(t, filepath.Join(t.TempDir(), "settings.db"))
	t.Cleanup(func() { _ = store.Close() })
	storagetest.RunStoreContract(t, store)
}

func TestBoltStoreRequiresPath(t *testing.T) {
	_, err := OpenBolt("  ")
	assert.Error(t, err)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	s := axis.Settings{ReferenceSpeed: 80, ReferenceAccelDecel: 900, ReferenceJerk: 10}

	store := openTestBolt(t, path)
	require.NoError(t, store.Save(context.Background(), axis.Y, s))
	require.NoError(t, store.Close())

	store = openTestBolt(t, path)
	defer store.Close()
	got, err := store.Load(context.Background(), axis.Y)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestBoltStoreNilClose(t *testing.T) {
	var store *BoltStore
	assert.NoError(t, store.Close())
}
