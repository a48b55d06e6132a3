package main

import (
	"context"
	"fmt"

	"github.com/cuemby/mailcore/pkg/store"
	"github.com/spf13/cobra"
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Reserve document ids and change ids against a store",
}

var allocateDocumentIDCmd = &cobra.Command{
	Use:   "document-id",
	Short: "Reserve the next free document id for an account/collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetUint32("account")
		collection, _ := cmd.Flags().GetUint8("collection")

		backend, err := store.OpenBoltBackend(dataDir(cmd))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer backend.Close()

		alloc := store.NewAllocator(backend, store.DefaultConfig())
		id, err := alloc.AssignDocumentID(context.Background(), accountID, collection)
		if err != nil {
			return fmt.Errorf("assign document id: %w", err)
		}

		fmt.Printf("reserved document id %d (account=%d collection=%d)\n", id, accountID, collection)
		fmt.Println("note: the reservation does not itself mark the id present — the caller's write batch must still SetBitmap it.")
		return nil
	},
}

var allocateChangeIDCmd = &cobra.Command{
	Use:   "change-id",
	Short: "Assign the next change id for an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetUint32("account")

		backend, err := store.OpenBoltBackend(dataDir(cmd))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer backend.Close()

		alloc := store.NewAllocator(backend, store.DefaultConfig())
		id, err := alloc.AssignChangeID(context.Background(), accountID)
		if err != nil {
			return fmt.Errorf("assign change id: %w", err)
		}

		fmt.Printf("change id %d (account=%d)\n", id, accountID)
		return nil
	},
}

func init() {
	allocateCmd.AddCommand(allocateDocumentIDCmd)
	allocateCmd.AddCommand(allocateChangeIDCmd)

	allocateDocumentIDCmd.Flags().Uint32("account", 0, "Account id")
	allocateDocumentIDCmd.Flags().Uint8("collection", 0, "Collection id")
	allocateDocumentIDCmd.MarkFlagRequired("account")

	allocateChangeIDCmd.Flags().Uint32("account", 0, "Account id")
	allocateChangeIDCmd.MarkFlagRequired("account")
}
