package acl

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/mailcore/pkg/mailcore"
)

// ErrDirectoryUnavailable distinguishes a transient failure to reach the
// directory service from a name that the directory service looked up and
// could not find. ResolveID implementations should wrap this sentinel
// (errors.Is must succeed) when the failure is transient; any other error
// is treated as "name does not resolve to a principal". acl_set and
// acl_patch report the two cases differently: Forbidden for the former,
// InvalidProperties for the latter.
var ErrDirectoryUnavailable = errors.New("acl: directory unavailable")

// Directory resolves a principal name (an account or group name) to its
// numeric account id. acl_set/acl_patch requests arrive addressed by
// name; ACL rows are stored addressed by id.
type Directory interface {
	ResolveID(ctx context.Context, name string) (uint32, error)
}

// resolvePrincipal resolves name through directory, translating its error
// into the AclError kind acl_set/acl_patch are required to report: a
// transient directory failure is Forbidden (the request might succeed on
// retry), an unresolvable name is InvalidProperties.
func resolvePrincipal(ctx context.Context, directory Directory, name string) (uint32, error) {
	id, err := directory.ResolveID(ctx, name)
	if err == nil {
		return id, nil
	}
	if errors.Is(err, ErrDirectoryUnavailable) {
		return 0, mailcore.NewAclForbidden(fmt.Sprintf("directory unavailable resolving %q: %s", name, err))
	}
	return 0, mailcore.NewAclInvalidProperties(name, err.Error())
}

// AddOp returns an add Patch.Op.
func AddOp() *bool {
	v := true
	return &v
}

// RemoveOp returns a remove Patch.Op.
func RemoveOp() *bool {
	v := false
	return &v
}
