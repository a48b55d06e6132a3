// Package storetest holds test-only helpers for inspecting and resetting
// a store.Backend. It is never imported by production code — keeping it
// a separate, never-imported package is a stronger guarantee of that than
// a build tag would be, since nothing under pkg/store or its callers can
// accidentally pull it in through a normal import.
package storetest

import (
	"context"
	"testing"

	"github.com/cuemby/mailcore/pkg/bitmap"
	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/store"
	"github.com/stretchr/testify/require"
)

// AssertBitmapSet fails the test unless documentID is set in the bitmap
// block addressed by key (with key.BlockNum overwritten to the block
// documentID falls into).
func AssertBitmapSet(t *testing.T, backend store.Backend, key keys.BitmapKey, documentID uint32) {
	t.Helper()
	key.BlockNum = bitmap.BlockNum(documentID)

	var block bitmap.Block
	err := backend.View(context.Background(), func(tx store.Tx) error {
		v, err := tx.Get(key.Serialize())
		if err != nil {
			return err
		}
		block = bitmap.NewBlock(v)
		return nil
	})
	require.NoError(t, err)
	require.True(t, block.IsSet(documentID), "expected document id %d set in bitmap", documentID)
}

// AssertBitmapClear fails the test if documentID is set in the bitmap
// block addressed by key, or if the key is simply absent (which also
// counts as clear).
func AssertBitmapClear(t *testing.T, backend store.Backend, key keys.BitmapKey, documentID uint32) {
	t.Helper()
	key.BlockNum = bitmap.BlockNum(documentID)

	var block bitmap.Block
	err := backend.View(context.Background(), func(tx store.Tx) error {
		v, err := tx.Get(key.Serialize())
		if err != nil {
			if err == mailcore.ErrNotFound {
				return nil
			}
			return err
		}
		block = bitmap.NewBlock(v)
		return nil
	})
	require.NoError(t, err)
	require.False(t, block.IsSet(documentID), "expected document id %d clear in bitmap", documentID)
}

// Destroy deletes every key from backend, mirroring the test_mode
// destroy() reset the original allocator exposes for isolating test
// cases from one another.
func Destroy(ctx context.Context, backend store.Backend) error {
	var keysToDelete [][]byte
	err := backend.View(ctx, func(tx store.Tx) error {
		cur, err := tx.Cursor(nil)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			keysToDelete = append(keysToDelete, append([]byte(nil), cur.Key()...))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return backend.Update(ctx, func(tx store.Tx) error {
		for _, k := range keysToDelete {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
