package cmd

import (
	"fmt"

	"github.com/anthropics/codewatch/internal/subs"
	"github.com/spf13/cobra"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List subscriptions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}

		file, err := ctx.store.Load()
		if err != nil {
			return err
		}

		fmt.Printf("Baseline: %s\n\n", shortRefDisplay(file.Repo.BaselineRef))

		shown := 0
		for _, sub := range file.Subscriptions {
			if !sub.Active && !listAll {
				continue
			}
			fmt.Println(formatSubscription(sub))
			shown++
		}

		if shown == 0 {
			fmt.Println("No subscriptions. Add one with 'cw add <location>'.")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include paused subscriptions")
	rootCmd.AddCommand(listCmd)
}

// formatSubscription renders one subscription line for listings.
func formatSubscription(sub subs.Subscription) string {
	location := fmt.Sprintf("%s:%d", sub.Path, sub.StartLine)
	if sub.EndLine != sub.StartLine {
		location = fmt.Sprintf("%s:%d-%d", sub.Path, sub.StartLine, sub.EndLine)
	}

	mode := "lines"
	if sub.Semantic != nil {
		mode = fmt.Sprintf("%s %s", sub.Semantic.Kind, sub.Semantic.Qualname)
		if sub.Semantic.IncludeMembers {
			mode += " [members]"
		}
	}

	status := "active"
	if !sub.Active {
		status = "paused"
	}

	label := ""
	if sub.Label != "" {
		label = fmt.Sprintf(" [%s]", sub.Label)
	}

	return fmt.Sprintf("%s  %-40s %s%s (%s)", shortID(sub.ID), location, mode, label, status)
}
