package store_test

import (
	"context"
	"testing"

	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/store"
	"github.com/cuemby/mailcore/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) store.Backend {
	t.Helper()
	backend, err := store.OpenBoltBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestWriter_SetThenGetValue(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())

	key := keys.ValueKey{AccountID: 1, Collection: 1, DocumentID: 1, Family: 1, Field: 1}
	batch := (&store.Batch{}).Append(store.SetValue{Key: key, Data: []byte("hello")})

	require.NoError(t, w.Write(context.Background(), *batch))

	var got []byte
	err := backend.View(context.Background(), func(tx store.Tx) error {
		v, err := tx.Get(key.Serialize())
		got = v
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestWriter_ClearValue(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())
	key := keys.ValueKey{AccountID: 1, Collection: 1, DocumentID: 1, Family: 1, Field: 1}

	require.NoError(t, w.Write(context.Background(), *(&store.Batch{}).Append(store.SetValue{Key: key, Data: []byte("x")})))
	require.NoError(t, w.Write(context.Background(), *(&store.Batch{}).Append(store.ClearValue{Key: key})))

	err := backend.View(context.Background(), func(tx store.Tx) error {
		_, err := tx.Get(key.Serialize())
		return err
	})
	assert.ErrorIs(t, err, mailcore.ErrNotFound)
}

func TestWriter_AssertValue_MismatchFailsImmediately(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())
	key := keys.ValueKey{AccountID: 1, Collection: 1, DocumentID: 1, Family: 1, Field: 1}

	require.NoError(t, w.Write(context.Background(), *(&store.Batch{}).Append(store.SetValue{Key: key, Data: []byte("a")})))

	batch := (&store.Batch{}).Append(
		store.AssertValue{Key: key, Expected: []byte("b")},
		store.SetValue{Key: key, Data: []byte("c")},
	)
	err := w.Write(context.Background(), *batch)
	assert.ErrorIs(t, err, mailcore.ErrAssertionFailed)

	// the SetValue in the same batch must not have applied
	var got []byte
	_ = backend.View(context.Background(), func(tx store.Tx) error {
		v, err := tx.Get(key.Serialize())
		got = v
		return err
	})
	assert.Equal(t, []byte("a"), got)
}

func TestWriter_AssertValue_AbsentKeyAlwaysFails(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())
	key := keys.ValueKey{AccountID: 1, Collection: 1, DocumentID: 1, Family: 1, Field: 1}

	batch := (&store.Batch{}).Append(
		store.AssertValue{Key: key, Expected: nil},
		store.SetValue{Key: key, Data: []byte("created")},
	)
	err := w.Write(context.Background(), *batch)
	assert.ErrorIs(t, err, mailcore.ErrAssertionFailed)

	// the SetValue in the same batch must not have applied
	err = backend.View(context.Background(), func(tx store.Tx) error {
		_, err := tx.Get(key.Serialize())
		return err
	})
	assert.ErrorIs(t, err, mailcore.ErrNotFound)
}

func TestWriter_SetBitmap_ThenClear(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())

	bk := keys.DocumentIDsBitmapKey(1, 1, 0)
	require.NoError(t, w.Write(context.Background(), *(&store.Batch{}).Append(store.SetBitmap{Key: bk, DocumentID: 5})))
	storetest.AssertBitmapSet(t, backend, bk, 5)

	require.NoError(t, w.Write(context.Background(), *(&store.Batch{}).Append(store.ClearBitmap{Key: bk, DocumentID: 5})))
	storetest.AssertBitmapClear(t, backend, bk, 5)
}

func TestWriter_SetBitmap_MultipleDocumentsSameBlock(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())
	bk := keys.DocumentIDsBitmapKey(1, 1, 0)

	batch := (&store.Batch{}).Append(
		store.SetBitmap{Key: bk, DocumentID: 1},
		store.SetBitmap{Key: bk, DocumentID: 2},
		store.SetBitmap{Key: bk, DocumentID: 3},
	)
	require.NoError(t, w.Write(context.Background(), *batch))

	storetest.AssertBitmapSet(t, backend, bk, 1)
	storetest.AssertBitmapSet(t, backend, bk, 2)
	storetest.AssertBitmapSet(t, backend, bk, 3)
}

func TestWriter_SetAclRoundTrip(t *testing.T) {
	backend := newTestBackend(t)
	w := store.NewWriter(backend, store.TestConfig())
	ak := keys.AclKey{GrantAccountID: 1, ToAccountID: 2, ToCollection: 1, ToDocumentID: 0}

	require.NoError(t, w.Write(context.Background(), *(&store.Batch{}).Append(store.SetAcl{Key: ak, Grants: 0x5})))

	var got uint64
	err := backend.View(context.Background(), func(tx store.Tx) error {
		v, err := tx.Get(ak.Serialize())
		if err != nil {
			return err
		}
		got = store.DecodeGrants(v)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x5), got)
}
