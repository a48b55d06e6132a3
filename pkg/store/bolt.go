package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/mailcore/pkg/log"
	"github.com/cuemby/mailcore/pkg/mailcore"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("mailcore")

// BoltBackend implements Backend on top of a single bbolt database file.
// bbolt serializes all Update calls against each other and against
// running Views, so BoltBackend never itself returns
// mailcore.ErrWriteConflict — concurrent writers simply queue.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBoltBackend opens (creating if necessary) a bbolt database under
// dataDir/mailcore.db and ensures the single key-value bucket exists.
func OpenBoltBackend(dataDir string) (*BoltBackend, error) {
	dbPath := filepath.Join(dataDir, "mailcore.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create bucket: %w", err)
	}

	log.WithBackend("bolt").Info().Str("path", dbPath).Msg("opened store backend")
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{bucket: btx.Bucket(bucketName)})
	})
}

func (b *BoltBackend) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{bucket: btx.Bucket(bucketName)})
	})
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}

type boltTx struct {
	bucket *bolt.Bucket
}

func (t *boltTx) Get(key []byte) ([]byte, error) {
	v := t.bucket.Get(key)
	if v == nil {
		return nil, mailcore.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *boltTx) Set(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *boltTx) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

func (t *boltTx) MergeOr(key, delta []byte) error {
	return t.merge(key, delta, func(a, b byte) byte { return a | b })
}

func (t *boltTx) MergeXor(key, delta []byte) error {
	return t.merge(key, delta, func(a, b byte) byte { return a ^ b })
}

func (t *boltTx) merge(key, delta []byte, op func(a, b byte) byte) error {
	existing := t.bucket.Get(key)
	out := make([]byte, len(delta))
	for i := range delta {
		var cur byte
		if i < len(existing) {
			cur = existing[i]
		}
		out[i] = op(cur, delta[i])
	}
	return t.bucket.Put(key, out)
}

func (t *boltTx) Cursor(prefix []byte) (Cursor, error) {
	// bbolt cursors are single-directional and live only for the
	// transaction's lifetime; snapshot matching keys up front so callers
	// can hold the Cursor across other bucket mutations within the same
	// transaction without bbolt's iteration invariants being violated.
	c := t.bucket.Cursor()
	var keys, values [][]byte
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
		values = append(values, append([]byte(nil), v...))
	}
	return &sliceCursor{keys: keys, values: values, idx: -1}, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

type sliceCursor struct {
	keys, values [][]byte
	idx          int
}

func (c *sliceCursor) Next() bool {
	c.idx++
	return c.idx < len(c.keys)
}

func (c *sliceCursor) Key() []byte   { return c.keys[c.idx] }
func (c *sliceCursor) Value() []byte { return c.values[c.idx] }
func (c *sliceCursor) Close() error  { return nil }
