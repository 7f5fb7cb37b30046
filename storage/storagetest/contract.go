// Package storagetest holds the behavior every axis settings store must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/devadigapratham/printd/axis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract exercises store through the axis.Store interface.
// The store must start empty.
func RunStoreContract(t *testing.T, store axis.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing_entry", func(t *testing.T) {
		for _, id := range axis.IDs() {
			_, err := store.Load(ctx, id)
			assert.ErrorIs(t, err, axis.ErrNotStored)
		}
	})

	t.Run("save_and_load", func(t *testing.T) {
		x := axis.Settings{ReferenceSpeed: 150, ReferenceAccelDecel: 3000, ReferenceJerk: 0}
		require.NoError(t, store.Save(ctx, axis.X, x))

		got, err := store.Load(ctx, axis.X)
		require.NoError(t, err)
		assert.Equal(t, x, got)

		_, err = store.Load(ctx, axis.Y)
		assert.ErrorIs(t, err, axis.ErrNotStored)
	})

	t.Run("overwrite_keeps_other_axes", func(t *testing.T) {
		y := axis.Settings{ReferenceSpeed: 1.5, ReferenceAccelDecel: 2.25, ReferenceJerk: 1e5}
		require.NoError(t, store.Save(ctx, axis.Y, y))

		x2 := axis.Settings{ReferenceSpeed: 12, ReferenceAccelDecel: 34, ReferenceJerk: 56}
		require.NoError(t, store.Save(ctx, axis.X, x2))

		got, err := store.Load(ctx, axis.X)
		require.NoError(t, err)
		assert.Equal(t, x2, got)

		got, err = store.Load(ctx, axis.Y)
		require.NoError(t, err)
		assert.Equal(t, y, got)
	})
}
