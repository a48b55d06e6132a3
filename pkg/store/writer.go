package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/mailcore/pkg/bitmap"
	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/metrics"
)

// Writer commits Batches to a Backend, retrying on write conflicts up to
// its Config's budget.
type Writer struct {
	backend Backend
	cfg     Config
}

// NewWriter builds a Writer over backend using cfg's retry budget.
func NewWriter(backend Backend, cfg Config) *Writer {
	return &Writer{backend: backend, cfg: cfg}
}

// bitmapDelta accumulates every SetBitmap/ClearBitmap operation touching
// the same block into a single merged OR mask and a single merged XOR
// mask, computed once before the retry loop starts so a retried attempt
// re-applies the exact same merge rather than recomputing it from
// scratch (which matters once a batch is built from caller-chosen, not
// necessarily idempotent, document ids).
type bitmapDelta struct {
	key     keys.BitmapKey
	orMask  bitmap.Block
	xorMask bitmap.Block
	hasOr   bool
	hasXor  bool
}

func accumulateBitmaps(ops []Operation) map[string]*bitmapDelta {
	deltas := make(map[string]*bitmapDelta)

	resolve := func(k keys.BitmapKey, documentID uint32) *bitmapDelta {
		k.BlockNum = bitmap.BlockNum(documentID)
		id := string(k.Serialize())
		d, ok := deltas[id]
		if !ok {
			d = &bitmapDelta{key: k}
			deltas[id] = d
		}
		return d
	}

	for _, op := range ops {
		switch o := op.(type) {
		case SetBitmap:
			d := resolve(o.Key, o.DocumentID)
			d.orMask.Set(o.DocumentID)
			d.hasOr = true
		case ClearBitmap:
			d := resolve(o.Key, o.DocumentID)
			d.xorMask.Set(o.DocumentID)
			d.hasXor = true
		}
	}
	return deltas
}

// Write commits batch, retrying on a retryable write conflict until
// either it succeeds, an AssertValue fails (returned immediately, never
// retried), or the Config's attempt/time budget is exhausted.
func (w *Writer) Write(ctx context.Context, batch Batch) error {
	start := time.Now()
	deltas := accumulateBitmaps(batch.Ops)

	attempts := 0
	for {
		attempts++
		err := w.backend.Update(ctx, func(tx Tx) error {
			return applyBatch(tx, batch, deltas)
		})
		if err == nil {
			metrics.CommitAttemptsTotal.WithLabelValues("success").Inc()
			metrics.CommitRetries.Observe(float64(attempts - 1))
			metrics.WriteLatency.Observe(time.Since(start).Seconds())
			return nil
		}

		if errors.Is(err, mailcore.ErrAssertionFailed) {
			metrics.CommitAttemptsTotal.WithLabelValues("assertion_failed").Inc()
			return err
		}
		if !errors.Is(err, mailcore.ErrWriteConflict) {
			metrics.CommitAttemptsTotal.WithLabelValues("error").Inc()
			return err
		}

		if attempts >= w.cfg.MaxCommitAttempts {
			metrics.CommitAttemptsTotal.WithLabelValues("attempts_exceeded").Inc()
			return fmt.Errorf("%w: after %d attempts", mailcore.ErrCommitAttemptsExceeded, attempts)
		}
		if elapsed := time.Since(start); elapsed >= w.cfg.MaxCommitTime {
			metrics.CommitAttemptsTotal.WithLabelValues("time_exceeded").Inc()
			return fmt.Errorf("%w: after %s", mailcore.ErrCommitTimeExceeded, elapsed)
		}
		// retry
	}
}

func applyBatch(tx Tx, batch Batch, deltas map[string]*bitmapDelta) error {
	for _, op := range batch.Ops {
		switch o := op.(type) {
		case AssertValue:
			current, err := tx.Get(o.Key.Serialize())
			if errors.Is(err, mailcore.ErrNotFound) {
				return fmt.Errorf("%w: key absent", mailcore.ErrAssertionFailed)
			}
			if err != nil {
				return err
			}
			if o.Expected == nil || string(current) != string(o.Expected) {
				return fmt.Errorf("%w: stored value does not match", mailcore.ErrAssertionFailed)
			}
		case SetValue:
			if err := tx.Set(o.Key.Serialize(), o.Data); err != nil {
				return err
			}
		case ClearValue:
			if err := tx.Delete(o.Key.Serialize()); err != nil {
				return err
			}
		case SetIndex:
			if err := tx.Set(o.Key.Serialize(), []byte{}); err != nil {
				return err
			}
		case ClearIndex:
			if err := tx.Delete(o.Key.Serialize()); err != nil {
				return err
			}
		case SetAcl:
			if err := tx.Set(o.Key.Serialize(), EncodeGrants(o.Grants)); err != nil {
				return err
			}
		case ClearAcl:
			if err := tx.Delete(o.Key.Serialize()); err != nil {
				return err
			}
		case AppendLog:
			if err := tx.Set(o.Key.Serialize(), o.Data); err != nil {
				return err
			}
		case SetBitmap, ClearBitmap:
			// applied in the merged pass below
		}
	}

	for _, d := range deltas {
		key := d.key.Serialize()
		if d.hasOr {
			if err := tx.MergeOr(key, d.orMask.Bytes()); err != nil {
				return err
			}
		}
		if d.hasXor {
			if err := tx.MergeXor(key, d.xorMask.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeGrants encodes an ACL grants bitmap for storage. Exposed so the
// acl engine, which mutates grant rows directly against a Backend rather
// than through a Batch, writes the same wire format SetAcl does.
func EncodeGrants(grants uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(grants >> (8 * i))
	}
	return buf
}

// DecodeGrants decodes an ACL grants bitmap previously written with
// SetAcl. Readers outside this package (the acl engine) use it to
// interpret values read back from the store.
func DecodeGrants(b []byte) uint64 {
	var v uint64
	for i := 0; i < len(b) && i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
