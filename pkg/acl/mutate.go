package acl

import (
	"context"
	"fmt"

	"github.com/cuemby/mailcore/pkg/keys"
	"github.com/cuemby/mailcore/pkg/log"
	"github.com/cuemby/mailcore/pkg/mailcore"
	"github.com/cuemby/mailcore/pkg/metrics"
	"github.com/cuemby/mailcore/pkg/notifier"
	"github.com/cuemby/mailcore/pkg/store"
)

// canAdminister reports whether token may change the ACL of
// (toAccountID, toCollection, toDocumentID): it must own the object or
// hold GrantAdminister over it through an existing grant.
func (e *Engine) canAdminister(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, toDocumentID uint32) (bool, error) {
	if token.IsMember(toAccountID) {
		return true, nil
	}
	return e.HasAccessToDocument(ctx, token, toAccountID, toCollection, toDocumentID, GrantAdminister)
}

// AclSet replaces the full set of grants held over (toAccountID,
// toCollection, toDocumentID) with grants, a map from grant principal
// name to the permissions it should hold. Each name is resolved to an
// account id through the Engine's Directory before anything is written;
// an account absent from grants loses any row it previously held. The
// caller identified by token must own the object or already hold
// GrantAdminister over it.
func (e *Engine) AclSet(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, toDocumentID uint32, grants map[string]Grant) error {
	ok, err := e.canAdminister(ctx, token, toAccountID, toCollection, toDocumentID)
	if err != nil {
		return err
	}
	if !ok {
		return mailcore.NewAclForbidden(fmt.Sprintf("account %d cannot administer this object", token.PrimaryID))
	}

	resolved := make(map[uint32]Grant, len(grants))
	for name, grant := range grants {
		id, err := resolvePrincipal(ctx, e.directory, name)
		if err != nil {
			return err
		}
		resolved[id] = grant
	}

	before, err := e.EffectiveAcl(ctx, toAccountID, toCollection, toDocumentID)
	if err != nil {
		return err
	}

	err = e.backend.Update(ctx, func(tx store.Tx) error {
		for _, g := range before {
			if _, keep := resolved[g.AccountID]; !keep {
				if err := tx.Delete(keys.AclKey{GrantAccountID: g.AccountID, ToAccountID: toAccountID, ToCollection: toCollection, ToDocumentID: toDocumentID}.Serialize()); err != nil {
					return err
				}
			}
		}
		for accountID, grant := range resolved {
			if grant == 0 {
				continue
			}
			ak := keys.AclKey{GrantAccountID: accountID, ToAccountID: toAccountID, ToCollection: toCollection, ToDocumentID: toDocumentID}
			if err := tx.Set(ak.Serialize(), store.EncodeGrants(uint64(grant))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	after := make([]AclGrant, 0, len(resolved))
	for accountID, grant := range resolved {
		if grant != 0 {
			after = append(after, AclGrant{AccountID: accountID, Grants: grant})
		}
	}
	e.refreshAcls(ctx, toAccountID, before, after)
	return nil
}

// AclPatch applies one incremental change to an object's ACL: patch.Op
// nil replaces or deletes the named account's row, true adds
// patch.Grants to its existing row, false removes patch.Grants from it.
// The account name is resolved through the Engine's Directory.
func (e *Engine) AclPatch(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, toDocumentID uint32, patch Patch) error {
	ok, err := e.canAdminister(ctx, token, toAccountID, toCollection, toDocumentID)
	if err != nil {
		return err
	}
	if !ok {
		return mailcore.NewAclForbidden(fmt.Sprintf("account %d cannot administer this object", token.PrimaryID))
	}

	grantAccountID, err := resolvePrincipal(ctx, e.directory, patch.AccountName)
	if err != nil {
		return err
	}

	before, err := e.EffectiveAcl(ctx, toAccountID, toCollection, toDocumentID)
	if err != nil {
		return err
	}
	var existing Grant
	for _, g := range before {
		if g.AccountID == grantAccountID {
			existing = g.Grants
			break
		}
	}

	var next Grant
	switch {
	case patch.Op == nil:
		next = patch.Grants
	case *patch.Op:
		next = existing | patch.Grants
	default:
		next = existing &^ patch.Grants
	}

	ak := keys.AclKey{GrantAccountID: grantAccountID, ToAccountID: toAccountID, ToCollection: toCollection, ToDocumentID: toDocumentID}
	err = e.backend.Update(ctx, func(tx store.Tx) error {
		if next == 0 {
			return tx.Delete(ak.Serialize())
		}
		return tx.Set(ak.Serialize(), store.EncodeGrants(uint64(next)))
	})
	if err != nil {
		return err
	}

	after := make([]AclGrant, 0, len(before)+1)
	for _, g := range before {
		if g.AccountID != grantAccountID {
			after = append(after, g)
		}
	}
	if next != 0 {
		after = append(after, AclGrant{AccountID: grantAccountID, Grants: next})
	}
	e.refreshAcls(ctx, toAccountID, before, after)
	return nil
}

// AclGet returns the effective ACL of an object visible to token, or nil
// with no error if token is not privileged to see it — an invisible
// property reads as absent, not as a failure.
func (e *Engine) AclGet(ctx context.Context, token AccessToken, toAccountID uint32, toCollection uint8, toDocumentID uint32) ([]AclGrant, error) {
	ok, err := e.canAdminister(ctx, token, toAccountID, toCollection, toDocumentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.EffectiveAcl(ctx, toAccountID, toCollection, toDocumentID)
}

// refreshAcls notifies every account whose effective grant over the
// object changed between before and after: newly granted accounts,
// accounts that lost their grant entirely, and accounts whose grant bits
// differ between the two sets.
func (e *Engine) refreshAcls(ctx context.Context, toAccountID uint32, before, after []AclGrant) {
	beforeGrants := make(map[uint32]Grant, len(before))
	for _, g := range before {
		beforeGrants[g.AccountID] = g.Grants
	}
	afterGrants := make(map[uint32]Grant, len(after))
	for _, g := range after {
		afterGrants[g.AccountID] = g.Grants
	}

	var changed []uint32
	for id, grants := range beforeGrants {
		if afterGrants[id] != grants {
			changed = append(changed, id)
		}
	}
	for id, grants := range afterGrants {
		if _, ok := beforeGrants[id]; !ok && grants != 0 {
			changed = append(changed, id)
		}
	}
	if len(changed) == 0 {
		return
	}

	metrics.AclRefreshesTotal.Inc()
	log.WithAccountID(toAccountID).Debug().Int("changed_principals", len(changed)).Msg("refreshing acls")
	if e.notifier != nil {
		e.notifier.Notify(notifier.ReasonAcl, changed...)
	}
}
