// Package directorytest provides an in-memory acl.Directory for tests.
package directorytest

import (
	"context"
	"fmt"

	"github.com/cuemby/mailcore/pkg/acl"
)

// InMemory resolves principal names from a fixed map, for use wherever a
// test needs an acl.Directory without a real directory service.
type InMemory struct {
	byName map[string]uint32
}

// New builds an InMemory directory from name -> account id pairs.
func New(byName map[string]uint32) *InMemory {
	return &InMemory{byName: byName}
}

func (d *InMemory) ResolveID(_ context.Context, name string) (uint32, error) {
	id, ok := d.byName[name]
	if !ok {
		return 0, fmt.Errorf("directorytest: unknown principal %q", name)
	}
	return id, nil
}

// Unavailable is an acl.Directory that always fails as if the directory
// service itself could not be reached, for exercising the
// AclForbidden-on-transient-failure path distinct from an unknown name.
type Unavailable struct{}

func (Unavailable) ResolveID(_ context.Context, name string) (uint32, error) {
	return 0, fmt.Errorf("directorytest: directory unreachable: %w", acl.ErrDirectoryUnavailable)
}
