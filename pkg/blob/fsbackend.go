package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/mailcore/pkg/mailcore"
)

// FSBackend stores blobs as individual files under a root directory,
// sharded two levels deep by the first four hex characters of the hash
// (the same directory-sharding scheme used by git's object store) to
// keep any single directory from accumulating too many entries.
type FSBackend struct {
	root string
}

// NewFSBackend builds an FSBackend rooted at dir, creating it if
// necessary.
func NewFSBackend(dir string) (*FSBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("blob: fs backend: %w", err)
	}
	return &FSBackend{root: dir}, nil
}

func (b *FSBackend) Name() string { return "fs" }

func (b *FSBackend) path(hash string) string {
	if len(hash) < 4 {
		return filepath.Join(b.root, hash)
	}
	return filepath.Join(b.root, hash[0:2], hash[2:4], hash)
}

func (b *FSBackend) Get(_ context.Context, hash string) ([]byte, error) {
	data, err := os.ReadFile(b.path(hash))
	if os.IsNotExist(err) {
		return nil, mailcore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *FSBackend) Put(_ context.Context, hash string, data []byte) error {
	p := b.path(hash)
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0600)
}

func (b *FSBackend) Delete(_ context.Context, hash string) error {
	err := os.Remove(b.path(hash))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
