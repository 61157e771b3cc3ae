// Command antman is a streaming nucleotide-sequence identification daemon:
// it watches a directory for new read files, sketches each read, and
// queries a pre-built BIGSI reference index to report which references
// are present. This binary is a thin cobra shell around internal/config,
// internal/bigsi, internal/sketch and internal/daemon; all core logic
// lives in those packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "antman",
		Short:         "streaming nucleotide-sequence identification daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "antman.config.json", "path to the antman config file")

	root.AddCommand(
		newSketchCmd(),
		newSetCmd(),
		newInfoCmd(),
		newShrinkCmd(),
		newStopCmd(),
	)
	return root
}
