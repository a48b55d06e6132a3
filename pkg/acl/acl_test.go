package acl_test

import (
	"context"
	"testing"

	"github.com/cuemby/mailcore/pkg/acl"
	"github.com/cuemby/mailcore/pkg/acl/directorytest"
	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/notifier"
	"github.com/cuemby/mailcore/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accountOwner  uint32 = 1
	accountReader uint32 = 2
	accountOther  uint32 = 3
)

func newTestEngine(t *testing.T) (*acl.Engine, store.Backend) {
	t.Helper()
	backend, err := store.OpenBoltBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	dir := directorytest.New(map[string]uint32{
		"reader": accountReader,
		"other":  accountOther,
	})
	return acl.New(backend, dir, nil), backend
}

func ownerToken() acl.AccessToken  { return acl.AccessToken{PrimaryID: accountOwner} }
func readerToken() acl.AccessToken { return acl.AccessToken{PrimaryID: accountReader} }
func otherToken() acl.AccessToken  { return acl.AccessToken{PrimaryID: accountOther} }

func TestEngine_SharedDocuments(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 10, map[string]acl.Grant{
		"reader": acl.GrantRead,
	}))
	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 11, map[string]acl.Grant{
		"reader": acl.GrantModify,
	}))

	shared, err := e.SharedDocuments(ctx, readerToken(), accountOwner, acl.CollectionMailbox, acl.GrantRead)
	require.NoError(t, err)
	assert.True(t, shared.Contains(10))
	assert.False(t, shared.Contains(11))

	none, err := e.SharedDocuments(ctx, otherToken(), accountOwner, acl.CollectionMailbox, acl.GrantRead)
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())
}

func TestEngine_OwnedOrSharedDocuments_OwnerSeesEverything(t *testing.T) {
	e, backend := newTestEngine(t)
	ctx := context.Background()

	w := store.NewWriter(backend, store.TestConfig())
	bk := keys.DocumentIDsBitmapKey(accountOwner, acl.CollectionMailbox, 0)
	require.NoError(t, w.Write(ctx, *(&store.Batch{}).Append(
		store.SetBitmap{Key: bk, DocumentID: 1},
		store.SetBitmap{Key: bk, DocumentID: 2},
	)))

	owned, err := e.OwnedOrSharedDocuments(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, acl.GrantRead)
	require.NoError(t, err)
	assert.True(t, owned.Contains(1))
	assert.True(t, owned.Contains(2))

	shared, err := e.OwnedOrSharedDocuments(ctx, otherToken(), accountOwner, acl.CollectionMailbox, acl.GrantRead)
	require.NoError(t, err)
	assert.True(t, shared.IsEmpty())
}

func TestEngine_HasAccessToDocument(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 5, map[string]acl.Grant{
		"reader": acl.GrantRead | acl.GrantModify,
	}))

	has, err := e.HasAccessToDocument(ctx, readerToken(), accountOwner, acl.CollectionMailbox, 5, acl.GrantModify)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = e.HasAccessToDocument(ctx, readerToken(), accountOwner, acl.CollectionMailbox, 5, acl.GrantDelete)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = e.HasAccessToDocument(ctx, otherToken(), accountOwner, acl.CollectionMailbox, 5, acl.GrantRead)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestEngine_AclSet_ForbiddenWithoutAdminister(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	err := e.AclSet(ctx, otherToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"other": acl.GrantRead,
	})
	require.Error(t, err)
	var aclErr *mailcore.AclError
	require.ErrorAs(t, err, &aclErr)
	assert.Equal(t, mailcore.AclForbidden, aclErr.Kind)
}

func TestEngine_AclSet_AdministerGrantDelegatesRights(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"reader": acl.GrantAdminister,
	}))

	err := e.AclSet(ctx, readerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"reader": acl.GrantAdminister,
		"other":  acl.GrantRead,
	})
	require.NoError(t, err)

	grants, err := e.EffectiveAcl(ctx, accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	require.Len(t, grants, 2)
}

func TestEngine_AclPatch_AddRemoveReplace(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.AclPatch(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, acl.Patch{
		AccountName: "reader",
		Grants:      acl.GrantRead,
	}))
	grants, err := e.EffectiveAcl(ctx, accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, acl.GrantRead, grants[0].Grants)

	require.NoError(t, e.AclPatch(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, acl.Patch{
		AccountName: "reader",
		Grants:      acl.GrantModify,
		Op:          acl.AddOp(),
	}))
	grants, err = e.EffectiveAcl(ctx, accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	assert.Equal(t, acl.GrantRead|acl.GrantModify, grants[0].Grants)

	require.NoError(t, e.AclPatch(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, acl.Patch{
		AccountName: "reader",
		Grants:      acl.GrantRead,
		Op:          acl.RemoveOp(),
	}))
	grants, err = e.EffectiveAcl(ctx, accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	assert.Equal(t, acl.GrantModify, grants[0].Grants)

	require.NoError(t, e.AclPatch(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, acl.Patch{
		AccountName: "reader",
		Grants:      0,
	}))
	grants, err = e.EffectiveAcl(ctx, accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestEngine_AclPatch_UnknownPrincipalIsInvalidProperties(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	err := e.AclPatch(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, acl.Patch{
		AccountName: "nobody",
		Grants:      acl.GrantRead,
	})
	require.Error(t, err)
	var aclErr *mailcore.AclError
	require.ErrorAs(t, err, &aclErr)
	assert.Equal(t, mailcore.AclInvalidProperties, aclErr.Kind)
}

func TestEngine_AclPatch_DirectoryUnavailableIsForbidden(t *testing.T) {
	backend, err := store.OpenBoltBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	e := acl.New(backend, directorytest.Unavailable{}, nil)
	ctx := context.Background()

	err = e.AclPatch(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, acl.Patch{
		AccountName: "reader",
		Grants:      acl.GrantRead,
	})
	require.Error(t, err)
	var aclErr *mailcore.AclError
	require.ErrorAs(t, err, &aclErr)
	assert.Equal(t, mailcore.AclForbidden, aclErr.Kind)
}

func TestEngine_AclGet_InvisibleToUnprivilegedCaller(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"reader": acl.GrantRead,
	}))

	grants, err := e.AclGet(ctx, otherToken(), accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	assert.Nil(t, grants)

	grants, err = e.AclGet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1)
	require.NoError(t, err)
	require.Len(t, grants, 1)
}

func TestEngine_RefreshAcls_NotifiesOnlyChangedPrincipals(t *testing.T) {
	backend, err := store.OpenBoltBackend(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	n := notifier.New()
	n.Start()
	t.Cleanup(n.Stop)

	e := acl.New(backend, directorytest.New(map[string]uint32{"reader": accountReader, "other": accountOther}), n)
	ctx := context.Background()

	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"reader": acl.GrantRead,
	}))
	assert.Equal(t, uint64(1), n.Revision(accountReader))

	// changing reader's grant bits must bump its revision again, same as
	// adding "other" bumps "other" for the first time.
	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"reader": acl.GrantRead | acl.GrantModify,
		"other":  acl.GrantRead,
	}))
	assert.Equal(t, uint64(2), n.Revision(accountReader))
	assert.Equal(t, uint64(1), n.Revision(accountOther))

	// re-applying the exact same grants notifies no one.
	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{
		"reader": acl.GrantRead | acl.GrantModify,
		"other":  acl.GrantRead,
	}))
	assert.Equal(t, uint64(2), n.Revision(accountReader))
	assert.Equal(t, uint64(1), n.Revision(accountOther))

	require.NoError(t, e.AclSet(ctx, ownerToken(), accountOwner, acl.CollectionMailbox, 1, map[string]acl.Grant{}))
	assert.Equal(t, uint64(3), n.Revision(accountReader))
	assert.Equal(t, uint64(2), n.Revision(accountOther))
}
