package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/devadigapratham/printd/axis"
	"github.com/devadigapratham/printd/storage/storagetest"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := newTestRedis(t)
	storagetest.RunStoreContract(t, store)
}

func TestRedisStorePrefix(t *testing.T) {
	store, mr := newTestRedis(t, WithPrefix("bench:"))
	s := axis.Settings{ReferenceSpeed: 5, ReferenceAccelDecel: 6, ReferenceJerk: 7}

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Save(context.Background(), axis.X, s))
	assert.True(t, mr.Exists("bench:x:settings"))
}

func TestRedisStoreCorruptValue(t *testing.T) {
	store, mr := newTestRedis(t)
	require.NoError(t, mr.Set("printd:axis:z:settings", "garbage"))

	_, err := store.Load(context.Background(), axis.Z)
	require.Error(t, err)
	assert.NotErrorIs(t, err, axis.ErrNotStored)
}

func TestRedisStoreServerDown(t *testing.T) {
	store, mr := newTestRedis(t)
	mr.Close()

	err := store.Save(context.Background(), axis.X, axis.Settings{ReferenceSpeed: 1, ReferenceAccelDecel: 1})
	assert.Error(t, err)
}
