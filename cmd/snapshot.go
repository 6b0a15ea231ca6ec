package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryxu-xo/euralink/config"
	"github.com/ryxu-xo/euralink/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manual ops drills against the persisted player-state snapshot",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Connect to the configured nodes and save their current player state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		orch, _ := buildOrchestrator(cfg)
		defer orch.Shutdown()

		fileStore := store.NewFileStore(args[0])
		if err := orch.SavePlayersState(fileStore); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Printf("saved player state to %s\n", args[0])
		return nil
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Restore player bindings from a saved snapshot onto the configured nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		orch, _ := buildOrchestrator(cfg)
		defer orch.Shutdown()

		fileStore := store.NewFileStore(args[0])
		if err := orch.LoadPlayersState(fileStore, cfg.DefaultRegion); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		fmt.Printf("restored %d player(s) from %s\n", len(orch.Players()), args[0])
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd)
	rootCmd.AddCommand(snapshotCmd)
}
