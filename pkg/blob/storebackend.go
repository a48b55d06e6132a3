package blob

import (
	"context"

	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/store"
)

// StoreBackend stores blobs as ordinary rows in the same store.Backend
// used for values, indexes and bitmaps, under the dedicated blob
// subspace. This is the in-cluster blob backend: every node sharing the
// same store.Backend sees the same blobs without any separate service.
type StoreBackend struct {
	backend store.Backend
}

// NewStoreBackend builds a StoreBackend over an existing store.Backend.
func NewStoreBackend(backend store.Backend) *StoreBackend {
	return &StoreBackend{backend: backend}
}

func (b *StoreBackend) Name() string { return "store" }

func (b *StoreBackend) Get(ctx context.Context, hash string) ([]byte, error) {
	var data []byte
	err := b.backend.View(ctx, func(tx store.Tx) error {
		v, err := tx.Get(keys.BlobKey{Hash: hash}.Serialize())
		if err != nil {
			return err
		}
		data = v
		return nil
	})
	return data, err
}

func (b *StoreBackend) Put(ctx context.Context, hash string, data []byte) error {
	return b.backend.Update(ctx, func(tx store.Tx) error {
		return tx.Set(keys.BlobKey{Hash: hash}.Serialize(), data)
	})
}

func (b *StoreBackend) Delete(ctx context.Context, hash string) error {
	return b.backend.Update(ctx, func(tx store.Tx) error {
		return tx.Delete(keys.BlobKey{Hash: hash}.Serialize())
	})
}
