package main

import (
	"fmt"
	"os"

	"github.com/cuemby/mailcore/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "mailcore-admin",
	Short:   "Inspect and operate a mailcore store directly against its data directory",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("mailcore-admin %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("data-dir", "./mailcore-data", "Bolt data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(aclCmd)
	rootCmd.AddCommand(blobCmd)
	rootCmd.AddCommand(metricsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func dataDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("data-dir")
	return dir
}
