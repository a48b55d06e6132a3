// Package acl implements the access-control engine: resolving which
// documents and messages an account can see through its own ownership or
// another account's grants, and mutating those grants via acl_set /
// acl_patch.
package acl

import (
	"github.com/cuemby/mailcore/pkg/notifier"
	"github.com/cuemby/mailcore/pkg/store"
)

// Grant is a bitmask of permissions one account can hold over another
// account's object.
type Grant uint64

const (
	GrantRead Grant = 1 << iota
	GrantModify
	GrantDelete
	GrantReadItems
	GrantAddItems
	GrantModifyItems
	GrantRemoveItems
	GrantCreateChild
	GrantAdminister
	GrantSubmit
)

// AccessToken identifies the caller of an acl query: its own account id
// plus every group it belongs to. Grants held by any of those accounts
// apply to the token as a whole.
type AccessToken struct {
	PrimaryID uint32
	MemberOf  []uint32
}

// IsMember reports whether accountID is the token's own account or one of
// its groups.
func (t AccessToken) IsMember(accountID uint32) bool {
	if t.PrimaryID == accountID {
		return true
	}
	for _, id := range t.MemberOf {
		if id == accountID {
			return true
		}
	}
	return false
}

// principals returns the token's own account followed by its groups, the
// set of account ids whose grants apply to this token.
func (t AccessToken) principals() []uint32 {
	return append([]uint32{t.PrimaryID}, t.MemberOf...)
}

// AclGrant is one row of an object's effective ACL: the permissions
// AccountID holds over it.
type AclGrant struct {
	AccountID uint32
	Grants    Grant
}

// Patch describes one requested change to an object's ACL, as resolved
// from a caller-supplied property name to an account id by a Directory.
// Op nil means replace (Grants != 0) or delete (Grants == 0) the
// account's row entirely; Op true means add Grants to the account's
// existing row; Op false means remove Grants from it.
type Patch struct {
	AccountName string
	Grants      Grant
	Op          *bool
}

// Engine resolves and mutates ACLs over a store.Backend, notifying a
// notifier.Notifier whenever a mutation changes an object's effective
// permissions.
type Engine struct {
	backend   store.Backend
	directory Directory
	notifier  *notifier.Notifier
}

// New builds an Engine over backend, resolving principal names through
// directory and publishing revision bumps through notif.
func New(backend store.Backend, directory Directory, notif *notifier.Notifier) *Engine {
	return &Engine{backend: backend, directory: directory, notifier: notif}
}
