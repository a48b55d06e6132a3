// Package keys implements the binary key codec shared by every store
// subspace: fixed-width integer fields encoded big-endian so that byte
// order agrees with numeric order, grouped behind a single-byte subspace
// prefix per key family.
package keys

import (
	"encoding/binary"
	"fmt"
)

// Subspace identifies the key family a byte string belongs to. Keys from
// different subspaces never share a prefix, so a range scan bounded to one
// subspace can never cross into another.
type Subspace byte

const (
	SubspaceValues Subspace = 0x00
	SubspaceIndex  Subspace = 0x01
	SubspaceBitmap Subspace = 0x02
	SubspaceAcl    Subspace = 0x03
	SubspaceLog    Subspace = 0x04
	SubspaceBlob   Subspace = 0x05
)

// reserved family/field markers used by the document-id presence bitmap,
// which has no associated index field.
const (
	documentIDsFamily = 0xff
	documentIDsField  = 0xff
)

// ValueKey addresses a single stored property.
//
// Wire layout: subspace(1) account_id(4) collection(1) document_id(4)
// family(1) field(1) — 12 bytes, fully fixed width.
type ValueKey struct {
	AccountID  uint32
	Collection uint8
	DocumentID uint32
	Family     uint8
	Field      uint8
}

func (k ValueKey) Serialize() []byte {
	buf := make([]byte, 12)
	buf[0] = byte(SubspaceValues)
	binary.BigEndian.PutUint32(buf[1:5], k.AccountID)
	buf[5] = k.Collection
	binary.BigEndian.PutUint32(buf[6:10], k.DocumentID)
	buf[10] = k.Family
	buf[11] = k.Field
	return buf
}

func DeserializeValueKey(b []byte) (ValueKey, error) {
	if len(b) != 12 || Subspace(b[0]) != SubspaceValues {
		return ValueKey{}, fmt.Errorf("keys: invalid ValueKey encoding (len=%d)", len(b))
	}
	return ValueKey{
		AccountID:  binary.BigEndian.Uint32(b[1:5]),
		Collection: b[5],
		DocumentID: binary.BigEndian.Uint32(b[6:10]),
		Family:     b[10],
		Field:      b[11],
	}, nil
}

// CounterKey addresses the per-account change-id counter. It lives in the
// values subspace alongside ValueKey but at a distinct, shorter width, so
// the two never collide as exact byte strings.
//
// Wire layout: subspace(1) account_id(4) — 5 bytes.
type CounterKey struct {
	AccountID uint32
}

func (k CounterKey) Serialize() []byte {
	buf := make([]byte, 5)
	buf[0] = byte(SubspaceValues)
	binary.BigEndian.PutUint32(buf[1:5], k.AccountID)
	return buf
}

func DeserializeCounterKey(b []byte) (CounterKey, error) {
	if len(b) != 5 || Subspace(b[0]) != SubspaceValues {
		return CounterKey{}, fmt.Errorf("keys: invalid CounterKey encoding (len=%d)", len(b))
	}
	return CounterKey{AccountID: binary.BigEndian.Uint32(b[1:5])}, nil
}

// IndexKey addresses a secondary-index row. Its trailing document_id is
// fixed width but the key bytes preceding it are variable length, so
// deserialization slices the trailer from the tail rather than the head.
//
// Wire layout: subspace(1) account_id(4) collection(1) field(1)
// key_bytes(var) document_id(4).
type IndexKey struct {
	AccountID  uint32
	Collection uint8
	Field      uint8
	KeyBytes   []byte
	DocumentID uint32
}

func (k IndexKey) Serialize() []byte {
	buf := make([]byte, 0, 7+len(k.KeyBytes)+4)
	buf = append(buf, byte(SubspaceIndex))
	buf = binary.BigEndian.AppendUint32(buf, k.AccountID)
	buf = append(buf, k.Collection, k.Field)
	buf = append(buf, k.KeyBytes...)
	buf = binary.BigEndian.AppendUint32(buf, k.DocumentID)
	return buf
}

func DeserializeIndexKey(b []byte) (IndexKey, error) {
	const head = 7 // subspace + account_id + collection + field
	const tail = 4 // document_id
	if len(b) < head+tail || Subspace(b[0]) != SubspaceIndex {
		return IndexKey{}, fmt.Errorf("keys: invalid IndexKey encoding (len=%d)", len(b))
	}
	keyBytes := append([]byte(nil), b[head:len(b)-tail]...)
	return IndexKey{
		AccountID:  binary.BigEndian.Uint32(b[1:5]),
		Collection: b[5],
		Field:      b[6],
		KeyBytes:   keyBytes,
		DocumentID: binary.BigEndian.Uint32(b[len(b)-tail:]),
	}, nil
}

// BitmapKey addresses one 1024-document block of a dense bitmap: either a
// per-(collection,family,field,value) index bitmap, or the document-id
// presence bitmap for a collection via DocumentIDsBitmapKey.
//
// Wire layout: subspace(1) account_id(4) collection(1) family(1) field(1)
// key_bytes(var) block_num(4).
type BitmapKey struct {
	AccountID  uint32
	Collection uint8
	Family     uint8
	Field      uint8
	KeyBytes   []byte
	BlockNum   uint32
}

// DocumentIDsBitmapKey builds the BitmapKey for the presence bitmap
// tracking which document ids are allocated within a collection.
func DocumentIDsBitmapKey(accountID uint32, collection uint8, blockNum uint32) BitmapKey {
	return BitmapKey{
		AccountID:  accountID,
		Collection: collection,
		Family:     documentIDsFamily,
		Field:      documentIDsField,
		BlockNum:   blockNum,
	}
}

// IsDocumentIDs reports whether k addresses the document-id presence
// bitmap rather than a field index bitmap.
func (k BitmapKey) IsDocumentIDs() bool {
	return k.Family == documentIDsFamily && k.Field == documentIDsField && len(k.KeyBytes) == 0
}

func (k BitmapKey) Serialize() []byte {
	buf := make([]byte, 0, 8+len(k.KeyBytes)+4)
	buf = append(buf, byte(SubspaceBitmap))
	buf = binary.BigEndian.AppendUint32(buf, k.AccountID)
	buf = append(buf, k.Collection, k.Family, k.Field)
	buf = append(buf, k.KeyBytes...)
	buf = binary.BigEndian.AppendUint32(buf, k.BlockNum)
	return buf
}

func DeserializeBitmapKey(b []byte) (BitmapKey, error) {
	const head = 8 // subspace + account_id + collection + family + field
	const tail = 4 // block_num
	if len(b) < head+tail || Subspace(b[0]) != SubspaceBitmap {
		return BitmapKey{}, fmt.Errorf("keys: invalid BitmapKey encoding (len=%d)", len(b))
	}
	keyBytes := append([]byte(nil), b[head:len(b)-tail]...)
	return BitmapKey{
		AccountID:  binary.BigEndian.Uint32(b[1:5]),
		Collection: b[5],
		Family:     b[6],
		Field:      b[7],
		KeyBytes:   keyBytes,
		BlockNum:   binary.BigEndian.Uint32(b[len(b)-tail:]),
	}, nil
}

// BitmapPrefix returns the byte prefix shared by every block of the same
// (account, collection, family, field, key_bytes) bitmap, suitable as a
// bbolt cursor Seek prefix when scanning all blocks.
func (k BitmapKey) BitmapPrefix() []byte {
	buf := make([]byte, 0, 8+len(k.KeyBytes))
	buf = append(buf, byte(SubspaceBitmap))
	buf = binary.BigEndian.AppendUint32(buf, k.AccountID)
	buf = append(buf, k.Collection, k.Family, k.Field)
	buf = append(buf, k.KeyBytes...)
	return buf
}

// AclKey addresses one ACL grant row: the permissions grant_account_id
// holds over to_account_id/to_collection/to_document_id.
//
// Wire layout: subspace(1) grant_account_id(4) to_account_id(4)
// to_collection(1) to_document_id(4) — 14 bytes, fully fixed width.
type AclKey struct {
	GrantAccountID uint32
	ToAccountID    uint32
	ToCollection   uint8
	ToDocumentID   uint32
}

func (k AclKey) Serialize() []byte {
	buf := make([]byte, 14)
	buf[0] = byte(SubspaceAcl)
	binary.BigEndian.PutUint32(buf[1:5], k.GrantAccountID)
	binary.BigEndian.PutUint32(buf[5:9], k.ToAccountID)
	buf[9] = k.ToCollection
	binary.BigEndian.PutUint32(buf[10:14], k.ToDocumentID)
	return buf
}

func DeserializeAclKey(b []byte) (AclKey, error) {
	if len(b) != 14 || Subspace(b[0]) != SubspaceAcl {
		return AclKey{}, fmt.Errorf("keys: invalid AclKey encoding (len=%d)", len(b))
	}
	return AclKey{
		GrantAccountID: binary.BigEndian.Uint32(b[1:5]),
		ToAccountID:    binary.BigEndian.Uint32(b[5:9]),
		ToCollection:   b[9],
		ToDocumentID:   binary.BigEndian.Uint32(b[10:14]),
	}, nil
}

// AclPrefix returns the byte prefix shared by every grant a single account
// holds, suitable for a cursor scan of "everything account_id has granted".
func AclPrefix(grantAccountID uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(SubspaceAcl)
	binary.BigEndian.PutUint32(buf[1:5], grantAccountID)
	return buf
}

// LogKey addresses a change-log row recording a mutation at change_id for
// replication/sync consumers.
//
// Wire layout: subspace(1) account_id(4) collection(1) change_id(8) — 14
// bytes, fully fixed width.
type LogKey struct {
	AccountID  uint32
	Collection uint8
	ChangeID   uint64
}

func (k LogKey) Serialize() []byte {
	buf := make([]byte, 14)
	buf[0] = byte(SubspaceLog)
	binary.BigEndian.PutUint32(buf[1:5], k.AccountID)
	buf[5] = k.Collection
	binary.BigEndian.PutUint64(buf[6:14], k.ChangeID)
	return buf
}

func DeserializeLogKey(b []byte) (LogKey, error) {
	if len(b) != 14 || Subspace(b[0]) != SubspaceLog {
		return LogKey{}, fmt.Errorf("keys: invalid LogKey encoding (len=%d)", len(b))
	}
	return LogKey{
		AccountID:  binary.BigEndian.Uint32(b[1:5]),
		Collection: b[5],
		ChangeID:   binary.BigEndian.Uint64(b[6:14]),
	}, nil
}

// BlobKey addresses a content-addressed blob by its hash. Unlike the
// other key types, a blob has no owning account: its hash alone is the
// store's deduplication key, shared across every account that references
// it via a ValueKey pointing at the same hash.
//
// Wire layout: subspace(1) hash(var).
type BlobKey struct {
	Hash string
}

func (k BlobKey) Serialize() []byte {
	buf := make([]byte, 0, 1+len(k.Hash))
	buf = append(buf, byte(SubspaceBlob))
	buf = append(buf, []byte(k.Hash)...)
	return buf
}

func DeserializeBlobKey(b []byte) (BlobKey, error) {
	if len(b) < 1 || Subspace(b[0]) != SubspaceBlob {
		return BlobKey{}, fmt.Errorf("keys: invalid BlobKey encoding (len=%d)", len(b))
	}
	return BlobKey{Hash: string(b[1:])}, nil
}
