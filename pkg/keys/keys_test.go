package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKey_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  ValueKey
	}{
		{"zero", ValueKey{}},
		{"typical", ValueKey{AccountID: 42, Collection: 7, DocumentID: 1009, Family: 2, Field: 3}},
		{"max fields", ValueKey{AccountID: 0xffffffff, Collection: 0xff, DocumentID: 0xffffffff, Family: 0xff, Field: 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeserializeValueKey(tt.key.Serialize())
			require.NoError(t, err)
			assert.Equal(t, tt.key, got)
		})
	}
}

func TestValueKey_SortOrder(t *testing.T) {
	lower := ValueKey{AccountID: 1, Collection: 1, DocumentID: 1, Family: 0, Field: 0}
	higher := ValueKey{AccountID: 1, Collection: 1, DocumentID: 2, Family: 0, Field: 0}

	assert.Less(t, string(lower.Serialize()), string(higher.Serialize()))
}

func TestCounterKey_RoundTrip(t *testing.T) {
	k := CounterKey{AccountID: 99}
	got, err := DeserializeCounterKey(k.Serialize())
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestCounterKey_DistinctFromValueKey(t *testing.T) {
	counter := CounterKey{AccountID: 1}
	value := ValueKey{AccountID: 1}
	assert.NotEqual(t, counter.Serialize(), value.Serialize())
	assert.Len(t, counter.Serialize(), 5)
	assert.Len(t, value.Serialize(), 12)
}

func TestIndexKey_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  IndexKey
	}{
		{"empty key bytes", IndexKey{AccountID: 1, Collection: 1, Field: 1, KeyBytes: nil, DocumentID: 5}},
		{"short key bytes", IndexKey{AccountID: 1, Collection: 2, Field: 3, KeyBytes: []byte("inbox"), DocumentID: 100}},
		{"binary key bytes", IndexKey{AccountID: 1, Collection: 2, Field: 3, KeyBytes: []byte{0x00, 0xff, 0x10}, DocumentID: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeserializeIndexKey(tt.key.Serialize())
			require.NoError(t, err)
			assert.Equal(t, tt.key.AccountID, got.AccountID)
			assert.Equal(t, tt.key.Collection, got.Collection)
			assert.Equal(t, tt.key.Field, got.Field)
			assert.Equal(t, tt.key.DocumentID, got.DocumentID)
			if len(tt.key.KeyBytes) == 0 {
				assert.Empty(t, got.KeyBytes)
			} else {
				assert.Equal(t, tt.key.KeyBytes, got.KeyBytes)
			}
		})
	}
}

func TestIndexKey_SortOrderWithinSameKeyBytesLength(t *testing.T) {
	a := IndexKey{AccountID: 1, Collection: 1, Field: 1, KeyBytes: []byte("aaa"), DocumentID: 1}
	b := IndexKey{AccountID: 1, Collection: 1, Field: 1, KeyBytes: []byte("aab"), DocumentID: 1}
	assert.Less(t, string(a.Serialize()), string(b.Serialize()))
}

func TestBitmapKey_RoundTrip(t *testing.T) {
	k := BitmapKey{AccountID: 3, Collection: 9, Family: 1, Field: 2, KeyBytes: []byte("mailbox"), BlockNum: 7}
	got, err := DeserializeBitmapKey(k.Serialize())
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestBitmapKey_DocumentIDs(t *testing.T) {
	k := DocumentIDsBitmapKey(3, 9, 2)
	assert.True(t, k.IsDocumentIDs())

	got, err := DeserializeBitmapKey(k.Serialize())
	require.NoError(t, err)
	assert.True(t, got.IsDocumentIDs())
	assert.Equal(t, uint32(2), got.BlockNum)
}

func TestBitmapKey_PrefixSharedAcrossBlocks(t *testing.T) {
	block0 := DocumentIDsBitmapKey(3, 9, 0)
	block1 := DocumentIDsBitmapKey(3, 9, 1)

	assert.Equal(t, block0.BitmapPrefix(), block1.BitmapPrefix())

	other := DocumentIDsBitmapKey(3, 10, 0)
	assert.NotEqual(t, block0.BitmapPrefix(), other.BitmapPrefix())
}

func TestAclKey_RoundTrip(t *testing.T) {
	k := AclKey{GrantAccountID: 1, ToAccountID: 2, ToCollection: 3, ToDocumentID: 4}
	got, err := DeserializeAclKey(k.Serialize())
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestAclKey_PrefixMatchesAllGrantsByAccount(t *testing.T) {
	grant := uint32(7)
	a := AclKey{GrantAccountID: grant, ToAccountID: 1, ToCollection: 0, ToDocumentID: 0}
	b := AclKey{GrantAccountID: grant, ToAccountID: 2, ToCollection: 0, ToDocumentID: 0}

	prefix := AclPrefix(grant)
	assert.True(t, hasPrefix(a.Serialize(), prefix))
	assert.True(t, hasPrefix(b.Serialize(), prefix))
	assert.False(t, hasPrefix(AclKey{GrantAccountID: grant + 1}.Serialize(), prefix))
}

func TestLogKey_RoundTrip(t *testing.T) {
	k := LogKey{AccountID: 1, Collection: 2, ChangeID: 18446744073709551615}
	got, err := DeserializeLogKey(k.Serialize())
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestLogKey_SortOrderByChangeID(t *testing.T) {
	lower := LogKey{AccountID: 1, Collection: 1, ChangeID: 1}
	higher := LogKey{AccountID: 1, Collection: 1, ChangeID: 2}
	assert.Less(t, string(lower.Serialize()), string(higher.Serialize()))
}

func TestBlobKey_RoundTrip(t *testing.T) {
	k := BlobKey{Hash: "deadbeefcafef00d"}
	got, err := DeserializeBlobKey(k.Serialize())
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestDeserialize_RejectsWrongSubspace(t *testing.T) {
	v := ValueKey{AccountID: 1}.Serialize()
	_, err := DeserializeAclKey(v)
	assert.Error(t, err)
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
