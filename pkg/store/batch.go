package store

import "github.com/cuemby/mailcore/pkg/keys"

// Operation is one step of a Batch. The concrete types below are the only
// implementations.
type Operation interface {
	isOperation()
}

// SetValue stores Data at Key, overwriting any existing value.
type SetValue struct {
	Key  keys.ValueKey
	Data []byte
}

// ClearValue removes the value at Key.
type ClearValue struct {
	Key keys.ValueKey
}

// AssertValue requires that the value currently stored at Key equal
// Expected before the rest of the batch is applied. An absent key always
// fails the assertion, regardless of Expected. A mismatch fails the
// whole batch immediately with mailcore.ErrAssertionFailed — it is never
// retried, since the caller's precondition was simply false, not
// invalidated by a concurrent writer.
type AssertValue struct {
	Key      keys.ValueKey
	Expected []byte
}

// SetIndex adds an index row, empty-valued, so its presence alone encodes
// membership.
type SetIndex struct {
	Key keys.IndexKey
}

// ClearIndex removes an index row.
type ClearIndex struct {
	Key keys.IndexKey
}

// SetBitmap marks DocumentID present in the bitmap addressed by Key's
// (account, collection, family, field, key_bytes) — Key.BlockNum is
// overwritten with the block DocumentID falls into.
type SetBitmap struct {
	Key        keys.BitmapKey
	DocumentID uint32
}

// ClearBitmap removes DocumentID from the bitmap addressed by Key by
// XOR-merging its bit into the stored block, so DocumentID must currently
// be set: clearing an id that is not set marks it present instead.
type ClearBitmap struct {
	Key        keys.BitmapKey
	DocumentID uint32
}

// SetAcl stores a grants bitmap for a single (grant_account, to_account,
// to_collection, to_document) tuple.
type SetAcl struct {
	Key    keys.AclKey
	Grants uint64
}

// ClearAcl removes an ACL grant row entirely.
type ClearAcl struct {
	Key keys.AclKey
}

// AppendLog writes a change-log row.
type AppendLog struct {
	Key  keys.LogKey
	Data []byte
}

func (SetValue) isOperation()   {}
func (ClearValue) isOperation() {}
func (AssertValue) isOperation() {}
func (SetIndex) isOperation()   {}
func (ClearIndex) isOperation() {}
func (SetBitmap) isOperation()  {}
func (ClearBitmap) isOperation() {}
func (SetAcl) isOperation()    {}
func (ClearAcl) isOperation()  {}
func (AppendLog) isOperation() {}

// Batch is a list of operations applied atomically by Writer.Write: either
// every operation is committed, or (on AssertValue mismatch, or after the
// retry budget is exhausted) none are.
type Batch struct {
	Ops []Operation
}

// Append adds ops to the batch and returns it, for fluent construction.
func (b *Batch) Append(ops ...Operation) *Batch {
	b.Ops = append(b.Ops, ops...)
	return b
}
