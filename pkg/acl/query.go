package acl

import (
	"context"
	"encoding/binary"
	"errors"
	"sort"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/cuemby/mailcore/pkg/bitmap"
	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/metrics"
	"github.com/cuemby/mailcore/pkg/store"
)

// Collection identifiers this package needs to cross-reference mailbox
// membership with message access. Callers using the full collection
// catalog elsewhere should keep these in sync with it.
const (
	CollectionMailbox uint8 = 1
	CollectionMessage uint8 = 2
)

// FieldMailboxIDs is the message index field recording which mailboxes a
// message belongs to, one index row per (message, mailbox) pair.
const FieldMailboxIDs uint8 = 1

// SharedDocuments returns the document ids in (toAccountID, toCollection)
// that any of token's principals (its own account and its groups) can
// access via check, through an explicit ACL grant.
func (e *Engine) SharedDocuments(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, check Grant) (*roaring.Bitmap, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AclResolutionDuration)

	result := roaring.New()
	err := e.backend.View(ctx, func(tx store.Tx) error {
		for _, grantAccountID := range token.principals() {
			prefix := aclGrantPrefix(grantAccountID, toAccountID, toCollection)
			cur, err := tx.Cursor(prefix)
			if err != nil {
				return err
			}
			for cur.Next() {
				if store.DecodeGrants(cur.Value())&uint64(check) == 0 {
					continue
				}
				full, err := keys.DeserializeAclKey(cur.Key())
				if err != nil {
					continue
				}
				result.Add(full.ToDocumentID)
			}
			cur.Close()
		}
		return nil
	})
	return result, err
}

// OwnedOrSharedDocuments returns every document id in (toAccountID,
// toCollection) token can access: the full collection if token is a
// member of toAccountID, otherwise the documents shared with it.
func (e *Engine) OwnedOrSharedDocuments(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, check Grant) (*roaring.Bitmap, error) {
	if token.IsMember(toAccountID) {
		return e.allDocumentIDs(ctx, toAccountID, toCollection)
	}
	return e.SharedDocuments(ctx, token, toAccountID, toCollection, check)
}

// SharedMessages returns the message document ids in toAccountID whose
// containing mailbox is shared with token via check.
func (e *Engine) SharedMessages(ctx context.Context, token AccessToken, toAccountID uint32, check Grant) (*roaring.Bitmap, error) {
	mailboxes, err := e.SharedDocuments(ctx, token, toAccountID, CollectionMailbox, check)
	if err != nil {
		return nil, err
	}
	result := roaring.New()
	if mailboxes.IsEmpty() {
		return result, nil
	}

	err = e.backend.View(ctx, func(tx store.Tx) error {
		it := mailboxes.Iterator()
		for it.HasNext() {
			mailboxID := it.Next()
			prefix := mailboxIndexPrefix(toAccountID, mailboxID)
			cur, err := tx.Cursor(prefix)
			if err != nil {
				return err
			}
			for cur.Next() {
				full, err := keys.DeserializeIndexKey(cur.Key())
				if err != nil {
					continue
				}
				result.Add(full.DocumentID)
			}
			cur.Close()
		}
		return nil
	})
	return result, err
}

// OwnedOrSharedMessages returns every message document id in toAccountID
// token can access: every message if token is a member of toAccountID,
// otherwise the messages in mailboxes shared with it.
func (e *Engine) OwnedOrSharedMessages(ctx context.Context, token AccessToken, toAccountID uint32, check Grant) (*roaring.Bitmap, error) {
	if token.IsMember(toAccountID) {
		return e.allDocumentIDs(ctx, toAccountID, CollectionMessage)
	}
	return e.SharedMessages(ctx, token, toAccountID, check)
}

// HasAccessToDocument reports whether any of token's principals hold
// check over the single document (toAccountID, toCollection,
// toDocumentID).
func (e *Engine) HasAccessToDocument(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, toDocumentID uint32, check Grant) (bool, error) {
	var has bool
	err := e.backend.View(ctx, func(tx store.Tx) error {
		for _, grantAccountID := range token.principals() {
			ak := keys.AclKey{GrantAccountID: grantAccountID, ToAccountID: toAccountID, ToCollection: toCollection, ToDocumentID: toDocumentID}
			v, err := tx.Get(ak.Serialize())
			if errors.Is(err, mailcore.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if store.DecodeGrants(v)&uint64(check) != 0 {
				has = true
				return nil
			}
		}
		return nil
	})
	return has, err
}

// EffectiveAcl returns every grant currently held over (toAccountID,
// toCollection, toDocumentID), ordered by grant account id.
func (e *Engine) EffectiveAcl(ctx context.Context, toAccountID uint32, toCollection uint8, toDocumentID uint32) ([]AclGrant, error) {
	var result []AclGrant
	err := e.backend.View(ctx, func(tx store.Tx) error {
		cur, err := tx.Cursor([]byte{byte(keys.SubspaceAcl)})
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			k, err := keys.DeserializeAclKey(cur.Key())
			if err != nil {
				continue
			}
			if k.ToAccountID != toAccountID || k.ToCollection != toCollection || k.ToDocumentID != toDocumentID {
				continue
			}
			result = append(result, AclGrant{AccountID: k.GrantAccountID, Grants: Grant(store.DecodeGrants(cur.Value()))})
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].AccountID < result[j].AccountID })
	return result, err
}

func (e *Engine) allDocumentIDs(ctx context.Context, accountID uint32, collection uint8) (*roaring.Bitmap, error) {
	result := roaring.New()
	err := e.backend.View(ctx, func(tx store.Tx) error {
		prefix := keys.DocumentIDsBitmapKey(accountID, collection, 0).BitmapPrefix()
		cur, err := tx.Cursor(prefix)
		if err != nil {
			return err
		}
		defer cur.Close()
		for cur.Next() {
			bk, err := keys.DeserializeBitmapKey(cur.Key())
			if err != nil {
				continue
			}
			block := bitmap.NewBlock(cur.Value())
			for i := uint32(0); i < bitmap.BitsPerBlock; i++ {
				docID := bk.BlockNum*bitmap.BitsPerBlock + i
				if block.IsSet(docID) {
					result.Add(docID)
				}
			}
		}
		return nil
	})
	return result, err
}

// aclGrantPrefix returns the byte prefix shared by every document a
// single grant account shared over (toAccountID, toCollection).
func aclGrantPrefix(grantAccountID, toAccountID uint32, toCollection uint8) []byte {
	full := keys.AclKey{GrantAccountID: grantAccountID, ToAccountID: toAccountID, ToCollection: toCollection}.Serialize()
	return full[:len(full)-4] // drop the trailing to_document_id
}

func mailboxIndexPrefix(accountID uint32, mailboxID uint32) []byte {
	keyBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(keyBytes, mailboxID)
	full := keys.IndexKey{AccountID: accountID, Collection: CollectionMessage, Field: FieldMailboxIDs, KeyBytes: keyBytes}.Serialize()
	return full[:len(full)-4] // drop the trailing document_id
}
