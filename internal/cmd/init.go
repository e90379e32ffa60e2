package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize codewatch in the current repository",
	Long: `Creates .codewatch/subscriptions.json anchored at the current HEAD.
The baseline ref is the commit scans compare against until 'cw apply'
advances it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}

		head, err := ctx.repo.Head()
		if err != nil {
			return err
		}

		file, err := ctx.store.Init(head, initForce)
		if err != nil {
			return err
		}

		fmt.Printf("Initialized codewatch at %s\n", ctx.store.Path())
		fmt.Printf("Baseline: %s\n", shortRefDisplay(file.Repo.BaselineRef))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config")
	rootCmd.AddCommand(initCmd)
}

// shortRefDisplay truncates a commit id for display.
func shortRefDisplay(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}
