/*
Package store implements the transactional key-value writer, the
document-id allocator and the change-id counter that sit underneath the
blob and acl packages.

	┌──────────────────────── STORE ────────────────────────────┐
	│                                                            │
	│   Writer.Write(batch)                                     │
	│       │                                                    │
	│       ▼                                                    │
	│   accumulate bitmap deltas (once, survives retries)       │
	│       │                                                    │
	│       ▼                                                    │
	│   ┌─ retry loop ──────────────────────────────────────┐   │
	│   │ Backend.Update(tx => applyBatch(tx, batch, deltas))│   │
	│   │   AssertValue mismatch  -> fail immediately        │   │
	│   │   ErrWriteConflict      -> retry (budget-bounded)  │   │
	│   │   otherwise             -> return                  │   │
	│   └────────────────────────────────────────────────────┘   │
	│                                                            │
	│   Allocator.AssignDocumentID / AssignChangeID              │
	│       reservation rows in the index subspace, separate     │
	│       from the document-ids presence bitmap itself         │
	└────────────────────────────────────────────────────────────┘

BoltBackend is the only shipped Backend. Because bbolt serializes all
writers against each other, it never itself produces ErrWriteConflict —
the retry loop exists so a future backend that can (one backed by an
optimistic-concurrency store) plugs in without Writer or Allocator
changing.
*/
package store
