package main

import (
	"fmt"
	"os"

	"github.com/cuemby/aaesync/pkg/log"
	"github.com/spf13/cobra"
)

var (
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
	Use:     "aaesync",
	Short:   "Full-sync anti-entropy coordinator",
	Version: Version,
	Long: `aaesync drives periodic cross-cluster reconciliation between a
local and a remote key-value cluster: once per day it schedules a fixed
number of slices of work, and at each slice boundary triggers a
Merkle-tree-style exchange and requeues locally-dominant keys for
re-replication.`,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("aaesync version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("control-addr", "127.0.0.1:7070", "Address of a running coordinator's control API")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(setSinkCmd)
	rootCmd.AddCommand(setSourceCmd)
	rootCmd.AddCommand(setAllSyncCmd)
	rootCmd.AddCommand(setBucketSyncCmd)
	rootCmd.AddCommand(processWorkItemCmd)
	rootCmd.AddCommand(statusCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}
