package store

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cuemby/mailcore/pkg/bitmap"
	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/metrics"
)

// reservationField marks index rows used as document-id reservations —
// distinct from both the document-ids presence bitmap (which only gains
// a bit once the caller's own batch actually creates the record) and any
// real secondary index field.
const reservationField = 0xfe

// Allocator reserves document ids and hands out change ids, both backed
// by the same Backend the Writer commits batches to.
type Allocator struct {
	backend Backend
	cfg     Config
}

// NewAllocator builds an Allocator over backend using cfg's reservation
// expiry.
func NewAllocator(backend Backend, cfg Config) *Allocator {
	return &Allocator{backend: backend, cfg: cfg}
}

func reservationKey(accountID uint32, collection uint8, documentID uint32) keys.IndexKey {
	return keys.IndexKey{
		AccountID:  accountID,
		Collection: collection,
		Field:      reservationField,
		DocumentID: documentID,
	}
}

// AssignDocumentID reserves a document id for (accountID, collection).
// Candidates are, in order of preference: an expired reservation row
// reclaimed at random (so concurrent allocators racing for reclaim don't
// all pick the same id), or else the lowest id not currently present in
// the document-ids bitmap and not under an active reservation.
//
// AssignDocumentID only reserves the id — the caller's own Write batch
// must still mark it present via SetBitmap on the document-ids bitmap
// key (keys.DocumentIDsBitmapKey) as part of creating the record,
// exactly as assign_document_id never itself writes the record.
func (a *Allocator) AssignDocumentID(ctx context.Context, accountID uint32, collection uint8) (uint32, error) {
	var assigned uint32
	attempts := 0

	for {
		attempts++
		err := a.backend.Update(ctx, func(tx Tx) error {
			now := time.Now()

			reserved := make(map[uint32]bool)
			var expired []uint32

			prefix := (keys.IndexKey{AccountID: accountID, Collection: collection, Field: reservationField}).Serialize()
			// trim the trailing fixed document_id width the empty-KeyBytes
			// serialization still carries, leaving the shared row prefix.
			prefix = prefix[:len(prefix)-4]

			cur, err := tx.Cursor(prefix)
			if err != nil {
				return err
			}
			defer cur.Close()
			for cur.Next() {
				ik, err := keys.DeserializeIndexKey(cur.Key())
				if err != nil {
					continue
				}
				expiry := decodeExpiry(cur.Value())
				if expiry.Before(now) {
					expired = append(expired, ik.DocumentID)
				} else {
					reserved[ik.DocumentID] = true
				}
			}

			var candidate uint32
			if len(expired) > 0 {
				idx, rerr := randIndex(len(expired))
				if rerr != nil {
					return rerr
				}
				candidate = expired[idx]
				metrics.AllocatorReservationsExpired.Inc()
			} else {
				id, found, berr := a.nextFreeDocumentID(tx, accountID, collection, reserved)
				if berr != nil {
					return berr
				}
				if !found {
					return mailcore.ErrNoReservationAvailable
				}
				candidate = id
			}

			rk := reservationKey(accountID, collection, candidate)
			existing, err := tx.Get(rk.Serialize())
			if err != nil && !errors.Is(err, mailcore.ErrNotFound) {
				return err
			}
			if err == nil && decodeExpiry(existing).After(now) {
				// lost a race to reserve the same id: collision, retry
				metrics.AllocatorCollisions.Inc()
				return mailcore.ErrWriteConflict
			}

			if err := tx.Set(rk.Serialize(), encodeExpiry(now.Add(a.cfg.ReservationExpiry))); err != nil {
				return err
			}

			assigned = candidate
			return nil
		})

		if err == nil {
			return assigned, nil
		}
		if !errors.Is(err, mailcore.ErrWriteConflict) || attempts >= a.cfg.MaxAttemptsOrDefault() {
			return 0, err
		}
	}
}

// MaxAttemptsOrDefault returns cfg.MaxCommitAttempts, defaulting to 10
// when unset, so Allocator can share a Config with Writer.
func (cfg Config) MaxAttemptsOrDefault() int {
	if cfg.MaxCommitAttempts <= 0 {
		return 10
	}
	return cfg.MaxCommitAttempts
}

func (a *Allocator) nextFreeDocumentID(tx Tx, accountID uint32, collection uint8, reserved map[uint32]bool) (uint32, bool, error) {
	prefix := keys.DocumentIDsBitmapKey(accountID, collection, 0).BitmapPrefix()
	cur, err := tx.Cursor(prefix)
	if err != nil {
		return 0, false, err
	}
	defer cur.Close()

	var maxBlock uint32
	seenBlock := false
	for cur.Next() {
		bk, err := keys.DeserializeBitmapKey(cur.Key())
		if err != nil {
			continue
		}
		seenBlock = true
		if bk.BlockNum > maxBlock {
			maxBlock = bk.BlockNum
		}
		block := bitmap.NewBlock(cur.Value())
		if id, ok := nextFreeInBlock(block, bk.BlockNum, reserved); ok {
			return id, true, nil
		}
	}

	next := uint32(0)
	if seenBlock {
		next = (maxBlock + 1) * bitmap.BitsPerBlock
	}
	for reserved[next] {
		next++
	}
	return next, true, nil
}

func nextFreeInBlock(block bitmap.Block, blockNum uint32, reserved map[uint32]bool) (uint32, bool) {
	for {
		id, ok := block.NextClear(blockNum)
		if !ok {
			return 0, false
		}
		if !reserved[id] {
			return id, true
		}
		block.Set(id) // treat as occupied for the remainder of this scan
	}
}

// AssignChangeID returns the next change id for accountID: 0 on the
// account's first call, and the stored counter plus one thereafter. The
// new value is persisted before it is returned.
func (a *Allocator) AssignChangeID(ctx context.Context, accountID uint32) (uint64, error) {
	var next uint64
	key := keys.CounterKey{AccountID: accountID}.Serialize()

	err := a.backend.Update(ctx, func(tx Tx) error {
		current, err := tx.Get(key)
		if errors.Is(err, mailcore.ErrNotFound) {
			next = 0
		} else if err != nil {
			return err
		} else {
			next = decodeChangeID(current) + 1
		}
		return tx.Set(key, encodeChangeID(next))
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeExpiry(b []byte) time.Time {
	if len(b) < 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}

func encodeChangeID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func decodeChangeID(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func randIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("store: randIndex: n must be positive")
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
