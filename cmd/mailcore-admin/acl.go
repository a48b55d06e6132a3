package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cuemby/mailcore/pkg/acl"
	"github.com/cuemby/mailcore/pkg/store"
	"github.com/spf13/cobra"
)

// numericDirectory resolves principal names addressed directly as
// decimal account ids, since this CLI operates on a bare store with no
// directory service of its own to resolve human-readable names against.
type numericDirectory struct{}

func (numericDirectory) ResolveID(_ context.Context, name string) (uint32, error) {
	id, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("principal %q is not a numeric account id: %w", name, err)
	}
	return uint32(id), nil
}

var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Inspect and mutate object ACLs",
}

var aclGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the effective ACL of an object",
	RunE: func(cmd *cobra.Command, args []string) error {
		toAccount, _ := cmd.Flags().GetUint32("to-account")
		toCollection, _ := cmd.Flags().GetUint8("to-collection")
		toDocument, _ := cmd.Flags().GetUint32("to-document")

		backend, err := store.OpenBoltBackend(dataDir(cmd))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer backend.Close()

		engine := acl.New(backend, numericDirectory{}, nil)
		grants, err := engine.EffectiveAcl(context.Background(), toAccount, toCollection, toDocument)
		if err != nil {
			return fmt.Errorf("effective acl: %w", err)
		}

		if len(grants) == 0 {
			fmt.Println("no grants")
			return nil
		}
		for _, g := range grants {
			fmt.Printf("account %d: %s\n", g.AccountID, describeGrant(g.Grants))
		}
		return nil
	},
}

var aclSetCmd = &cobra.Command{
	Use:   "set ACCOUNT_ID=GRANTS [ACCOUNT_ID=GRANTS ...]",
	Short: "Replace the full ACL of an object. GRANTS is a comma-separated list of read,modify,delete,read-items,add-items,modify-items,remove-items,create-child,administer,submit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toAccount, _ := cmd.Flags().GetUint32("to-account")
		toCollection, _ := cmd.Flags().GetUint8("to-collection")
		toDocument, _ := cmd.Flags().GetUint32("to-document")
		asAccount, _ := cmd.Flags().GetUint32("as-account")

		grants := make(map[string]acl.Grant, len(args))
		for _, pair := range args {
			name, grant, err := parseGrantPair(pair)
			if err != nil {
				return err
			}
			grants[name] = grant
		}

		backend, err := store.OpenBoltBackend(dataDir(cmd))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer backend.Close()

		engine := acl.New(backend, numericDirectory{}, nil)
		token := acl.AccessToken{PrimaryID: asAccount}
		if err := engine.AclSet(context.Background(), token, toAccount, toCollection, toDocument, grants); err != nil {
			return fmt.Errorf("acl set: %w", err)
		}

		fmt.Printf("acl updated for account=%d collection=%d document=%d\n", toAccount, toCollection, toDocument)
		return nil
	},
}

func init() {
	aclCmd.AddCommand(aclGetCmd)
	aclCmd.AddCommand(aclSetCmd)

	for _, cmd := range []*cobra.Command{aclGetCmd, aclSetCmd} {
		cmd.Flags().Uint32("to-account", 0, "Target object's owning account id")
		cmd.Flags().Uint8("to-collection", 0, "Target object's collection id")
		cmd.Flags().Uint32("to-document", 0, "Target object's document id")
	}
	aclSetCmd.Flags().Uint32("as-account", 0, "Account id the request is authorized as (must own the object or hold administer)")
}

// parseGrantPair splits one ACCOUNT_ID=GRANTS argument, leaving the
// account id side as a bare name for the Engine's Directory to resolve
// (numericDirectory accepts a decimal string directly).
func parseGrantPair(pair string) (string, acl.Grant, error) {
	idx := -1
	for i, r := range pair {
		if r == '=' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", 0, fmt.Errorf("invalid ACCOUNT_ID=GRANTS pair %q", pair)
	}
	grant, err := parseGrants(pair[idx+1:])
	if err != nil {
		return "", 0, err
	}
	return pair[:idx], grant, nil
}

func parseGrants(s string) (acl.Grant, error) {
	var grant acl.Grant
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			name := s[start:i]
			start = i + 1
			if name == "" {
				continue
			}
			bit, ok := grantByName[name]
			if !ok {
				return 0, fmt.Errorf("unknown grant %q", name)
			}
			grant |= bit
		}
	}
	return grant, nil
}

var grantByName = map[string]acl.Grant{
	"read":         acl.GrantRead,
	"modify":       acl.GrantModify,
	"delete":       acl.GrantDelete,
	"read-items":   acl.GrantReadItems,
	"add-items":    acl.GrantAddItems,
	"modify-items": acl.GrantModifyItems,
	"remove-items": acl.GrantRemoveItems,
	"create-child": acl.GrantCreateChild,
	"administer":   acl.GrantAdminister,
	"submit":       acl.GrantSubmit,
}

func describeGrant(g acl.Grant) string {
	var names []string
	for name, bit := range grantByName {
		if g&bit != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += "," + n
	}
	return out
}
