// Package store implements a transactional key-value writer over an
// ordered-key store, plus the document-id allocator and change-id counter
// built on top of it.
//
// A Backend is a capability object selected once at construction time
// (BoltBackend today); every higher-level type in this package — Writer,
// Allocator — talks only to the Backend interface, so the retry-driven
// commit loop is backend-agnostic even though the only shipped backend
// (bbolt) never itself produces a write conflict, since bbolt already
// serializes writers. A future distributed backend that does produce
// ErrWriteConflict would drop in without changing Writer.
package store

import "context"

// Backend is an ordered key-value store supporting read-only and
// read-write transactions.
type Backend interface {
	// View runs fn in a read-only transaction. Concurrent Views never
	// block each other or a concurrent Update.
	View(ctx context.Context, fn func(Tx) error) error

	// Update runs fn in a read-write transaction. fn's writes are
	// durable only if fn returns nil and Update itself returns nil.
	// Update may return mailcore.ErrWriteConflict if a concurrent writer
	// invalidated fn's read set; callers that can safely retry fn should
	// do so.
	Update(ctx context.Context, fn func(Tx) error) error

	// Close releases the backend's resources. Further calls to View or
	// Update fail; BoltBackend reports bbolt's closed-database error, not
	// mailcore.ErrClosed.
	Close() error
}

// Tx is a single read or read-write transaction against a Backend.
type Tx interface {
	// Get returns the value stored at key, or mailcore.ErrNotFound if
	// key is absent.
	Get(key []byte) ([]byte, error)

	// Set stores value at key, creating or overwriting it.
	Set(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// MergeOr bitwise-ORs delta into the value stored at key, treating
	// an absent key as all-zero. This is the merge a backend applies in
	// place of FoundationDB's atomic BitOr mutation.
	MergeOr(key, delta []byte) error

	// MergeXor bitwise-XORs delta into the value stored at key, treating
	// an absent key as all-zero. This is the merge a backend applies in
	// place of FoundationDB's atomic BitXor mutation.
	MergeXor(key, delta []byte) error

	// Cursor returns a Cursor over every key sharing prefix, in
	// ascending byte order.
	Cursor(prefix []byte) (Cursor, error)
}

// Cursor iterates over a range of keys in ascending order. Callers must
// call Close when finished with a cursor returned from Tx.Cursor.
type Cursor interface {
	// Next advances the cursor and reports whether a key is available.
	Next() bool
	// Key returns the current key. Only valid after a Next that
	// returned true.
	Key() []byte
	// Value returns the current value. Only valid after a Next that
	// returned true.
	Value() []byte
	// Close releases the cursor's resources.
	Close() error
}
