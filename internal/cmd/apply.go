package cmd

import (
	"fmt"

	"github.com/anthropics/codewatch/internal/report"
	"github.com/anthropics/codewatch/internal/update"
	"github.com/spf13/cobra"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply <update-doc.json>",
	Short: "Apply relocation proposals from an update document",
	Long: `Applies the proposals of an update document produced by 'cw scan --out'.

Each proposal moves a subscription to its new location, re-snapshots its
anchor, and refreshes container baselines. When at least one proposal
applied and the target is a commit, the stored baseline ref advances to
it; a working-tree target leaves the baseline as it is and is reported as
a warning. Problems with individual proposals
become warnings; they never abort the rest of the document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newCmdContext()
		if err != nil {
			return err
		}

		doc, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}
		if doc.SchemaVersion != report.DocSchemaVersion {
			return fmt.Errorf("unsupported update document schema version %d", doc.SchemaVersion)
		}

		updater := update.NewUpdater(ctx.store, ctx.repo)
		result, err := updater.Apply(doc, applyDryRun)
		if err != nil {
			return err
		}

		for _, warning := range result.Warnings {
			logger.Warn(warning)
		}

		if applyDryRun {
			fmt.Printf("Dry run: %d proposal(s) would apply\n", len(result.Applied))
			return nil
		}

		fmt.Printf("Applied %d proposal(s)\n", len(result.Applied))
		for _, id := range result.Applied {
			fmt.Printf("  %s\n", shortID(id))
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Validate without writing")
	rootCmd.AddCommand(applyCmd)
}
