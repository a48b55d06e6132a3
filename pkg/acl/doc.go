// Package acl resolves and mutates access grants between accounts.
//
//	query.go   AccessToken-scoped reads: shared/owned document and
//	           message sets, single-document checks, effective ACLs.
//	mutate.go  acl_set / acl_patch / acl_get, gated on ownership or an
//	           existing GrantAdminister grant, notifying on change.
//
// Grants are stored one row per (grant account, target account, target
// collection, target document) under keys.SubspaceAcl, ordered by grant
// account first so "everything account X has shared" is a single prefix
// scan. Looking an object up the other way — "who can see this
// document" — has no matching key orientation, so EffectiveAcl falls
// back to a linear scan of the whole Acl subspace filtered in Go. That
// is the accepted cost of keeping a single key orientation rather than
// maintaining a second reverse index purely for administration reads,
// which are rare compared to the share-scoped queries above.
package acl
