// Package blob implements the compressed blob store facade: a pluggable
// Backend for raw byte storage, and a pluggable compression Algo applied
// uniformly by Store regardless of which Backend is in use.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cuemby/mailcore/pkg/metrics"
)

// Backend stores and retrieves raw, already-framed blob bytes addressed
// by content hash. Implementations never see compression — Store applies
// it uniformly above any Backend.
type Backend interface {
	Get(ctx context.Context, hash string) ([]byte, error)
	Put(ctx context.Context, hash string, data []byte) error
	Delete(ctx context.Context, hash string) error
}

// Store is the blob store facade: it hashes, compresses and frames data
// before handing it to a Backend, and reverses that on read.
type Store struct {
	backend Backend
	algo    Algo
}

// New builds a Store over backend using algo to compress new blobs.
// Reads detect their own framing regardless of algo, so changing algo on
// an existing Store does not strand previously written blobs.
func New(backend Backend, algo Algo) *Store {
	return &Store{backend: backend, algo: algo}
}

// Hash returns the content address PutBlob would use for data, without
// storing it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PutBlob stores data, returning its content hash. Storing the same bytes
// twice returns the same hash and overwrites the existing (identical)
// stored bytes, which is harmless and keeps Put idempotent.
func (s *Store) PutBlob(ctx context.Context, data []byte) (string, error) {
	timer := metrics.NewTimer()
	hash := Hash(data)

	framed, err := compress(s.algo, data)
	if err != nil {
		return "", err
	}
	if err := s.backend.Put(ctx, hash, framed); err != nil {
		return "", fmt.Errorf("blob: put %s: %w", hash, err)
	}

	if len(data) > 0 {
		metrics.BlobCompressionRatio.Observe(float64(len(framed)) / float64(len(data)))
	}
	metrics.BlobBytesTotal.WithLabelValues("write").Add(float64(len(data)))
	timer.ObserveDurationVec(metrics.BlobOperationDuration, "put", backendName(s.backend))
	return hash, nil
}

// GetBlob retrieves the blob addressed by hash, decompressing it
// transparently, and returns the byte range [start, end). A zero end
// means "through the end of the blob". An end past the decompressed
// blob's length is clamped to it; a negative start, or a start past the
// (clamped) end, is an error.
func (s *Store) GetBlob(ctx context.Context, hash string, start, end int) ([]byte, error) {
	timer := metrics.NewTimer()
	raw, err := s.backend.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", hash, err)
	}

	data, err := decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", hash, err)
	}

	metrics.BlobBytesTotal.WithLabelValues("read").Add(float64(len(data)))
	timer.ObserveDurationVec(metrics.BlobOperationDuration, "get", backendName(s.backend))

	if end == 0 || end > len(data) {
		end = len(data)
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("blob: invalid range [%d,%d) for blob of length %d", start, end, len(data))
	}
	return data[start:end], nil
}

// DeleteBlob removes the blob addressed by hash. Deleting an absent hash
// is not an error.
func (s *Store) DeleteBlob(ctx context.Context, hash string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BlobOperationDuration, "delete", backendName(s.backend))
	return s.backend.Delete(ctx, hash)
}

type namedBackend interface {
	Name() string
}

func backendName(b Backend) string {
	if nb, ok := b.(namedBackend); ok {
		return nb.Name()
	}
	return "unknown"
}
