package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/codewatch/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No scans recorded.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %s  %s -> %s  triggered=%d proposed=%d unchanged=%d\n",
				shortID(e.ID), e.CreatedAt,
				shortRefDisplay(e.BaseRef), shortRefDisplay(e.TargetRef),
				e.TriggerCount, e.ProposalCount, e.UnchangedCount)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Print a recorded scan's update document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Get(args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry.Doc)
	},
}

var historyPruneKeep int

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Prune(historyPruneKeep)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d scan(s)\n", n)
		return nil
	},
}

// openHistory opens the current repository's history database.
func openHistory() (*history.Store, error) {
	ctx, err := newCmdContext()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(ctx.configDir(), 0o755); err != nil {
		return nil, err
	}
	return history.Open(ctx.configDir())
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of scans to list")
	historyPruneCmd.Flags().IntVar(&historyPruneKeep, "keep", 20, "Number of scans to keep")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
