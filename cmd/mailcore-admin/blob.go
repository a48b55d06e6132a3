package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/mailcore/pkg/blob"
	"github.com/spf13/cobra"
)

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Put and get content-addressed blobs against the FS backend",
}

var blobPutCmd = &cobra.Command{
	Use:   "put FILE",
	Short: "Compress and store a file, printing its content hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		algoName, _ := cmd.Flags().GetString("algo")
		algo, err := blob.ParseAlgo(algoName)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}

		backend, err := blob.NewFSBackend(filepath.Join(dataDir(cmd), "blobs"))
		if err != nil {
			return fmt.Errorf("open blob backend: %w", err)
		}

		s := blob.New(backend, algo)
		hash, err := s.PutBlob(context.Background(), data)
		if err != nil {
			return fmt.Errorf("put blob: %w", err)
		}

		fmt.Println(hash)
		return nil
	},
}

var blobGetCmd = &cobra.Command{
	Use:   "get HASH",
	Short: "Fetch a blob by hash and write it to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := blob.NewFSBackend(filepath.Join(dataDir(cmd), "blobs"))
		if err != nil {
			return fmt.Errorf("open blob backend: %w", err)
		}

		s := blob.New(backend, blob.None)
		data, err := s.GetBlob(context.Background(), args[0], 0, 0)
		if err != nil {
			return fmt.Errorf("get blob: %w", err)
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	blobCmd.AddCommand(blobPutCmd)
	blobCmd.AddCommand(blobGetCmd)

	blobPutCmd.Flags().String("algo", "lz4", "Compression algorithm: lz4 or none")
}
