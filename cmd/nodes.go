package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryxu-xo/euralink/config"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Connect to the configured nodes and print their health-scored ordering",
	Long: `Dials every node named in NODE_URLS, waits briefly for each to
report Ready, then prints the pool's leastUsed() selection order. This is
a debug/ops tool; it is not part of the orchestrator's core contracts.`,
	RunE: runNodes,
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}

func runNodes(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if len(cfg.Nodes) == 0 {
		fmt.Println("no nodes configured (set NODE_URLS)")
		return nil
	}

	orch, _ := buildOrchestrator(cfg)
	defer orch.Shutdown()

	fmt.Printf("waiting up to 5s for %d node(s) to report ready...\n", len(cfg.Nodes))
	time.Sleep(5 * time.Second)

	fmt.Printf("%-16s %-10s %-8s %-8s %s\n", "NAME", "STATE", "SCORE", "PLAYERS", "REGIONS")
	for _, pn := range orch.Pool().LeastUsed() {
		n, ok := orch.Node(pn.Name())
		if !ok {
			continue
		}
		fmt.Printf("%-16s %-10s %-8.3f %-8d %v\n",
			n.Name(), n.State().String(), n.Score(), n.Stats().Players(), n.Regions())
	}
	return nil
}
