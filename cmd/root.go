package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orchestratord",
	Short: "orchestratord runs the audio session orchestrator daemon",
	Long: `orchestratord manages per-guild Player state against a pool of
audio worker nodes: it dials the configured nodes, serves an admin/ops
HTTP surface, and relays gateway voice packets into player bindings.`,
	RunE: runServer,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
