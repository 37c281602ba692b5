package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the mpscload command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mpscload",
		Short: "mpscload - load generator for multi-producer/single-consumer channels",
		Long: `mpscload pushes messages from many concurrent producers through a single
channel and verifies that the consumer receives every message exactly once,
in per-producer order.

The channel is kept in memory, or spooled to a memory-mapped file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(newRunCmd())

	return rootCmd
}
