package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/codewatch/internal/config"
	"github.com/anthropics/codewatch/internal/detect"
	"github.com/anthropics/codewatch/internal/gitrepo"
	"github.com/anthropics/codewatch/internal/history"
	"github.com/anthropics/codewatch/internal/project"
	"github.com/anthropics/codewatch/internal/report"
	"github.com/anthropics/codewatch/internal/subs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	scanBase          string
	scanTarget        string
	scanOut           string
	scanMarkdown      string
	scanJSON          bool
	scanFailOnTrigger bool
	scanNoSave        bool
	scanAllProjects   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan subscriptions for changes",
	Long: `Scans every active subscription between the baseline ref and a target.

By default the target is the working tree ("WORKING"). Pass --target to
compare against a commit, and --base to override the stored baseline.

Each subscription lands in one of three buckets:
  triggered  the watched code was semantically affected
  proposed   the code merely moved (rename, line shift, cross-file move)
  unchanged  nothing relevant happened

Proposals can be written to an update document with --out and applied
later with 'cw apply'. With --all, every registered project is scanned
(each repository still has a single scanner).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanAllProjects {
			return scanAll()
		}

		ctx, err := newCmdContext()
		if err != nil {
			return err
		}

		result, err := runScan(ctx, "")
		if err != nil {
			return err
		}

		if (scanFailOnTrigger || ctx.config.Scan.FailOnTrigger) && len(result.Triggers) > 0 {
			return fmt.Errorf("%w: %d subscription(s) triggered", errTriggersFound, len(result.Triggers))
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanBase, "base", "", "Base ref (default: stored baseline)")
	scanCmd.Flags().StringVar(&scanTarget, "target", "", "Target ref (default: working tree)")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Write the JSON update document to this path")
	scanCmd.Flags().StringVar(&scanMarkdown, "md", "", "Write a Markdown report to this path")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the update document to stdout")
	scanCmd.Flags().BoolVar(&scanFailOnTrigger, "fail-on-trigger", false, "Exit with code 2 when triggers are found")
	scanCmd.Flags().BoolVar(&scanNoSave, "no-save", false, "Skip recording the scan in history")
	scanCmd.Flags().BoolVar(&scanAllProjects, "all", false, "Scan every registered project")
	rootCmd.AddCommand(scanCmd)
}

// runScan scans one repository and handles output and history. The label
// prefixes printed output when scanning multiple projects.
func runScan(ctx *cmdContext, label string) (*detect.ScanResult, error) {
	file, err := ctx.store.Load()
	if err != nil {
		return nil, err
	}

	baseRef := scanBase
	if baseRef == "" {
		baseRef = file.Repo.BaselineRef
	}

	detector := detect.NewDetector(ctx.repo)
	detector.Exclude = ctx.config.Excluded
	result, err := detector.Scan(file.Subscriptions, baseRef, scanTarget)
	if err != nil {
		return nil, err
	}

	doc := report.BuildUpdateDoc(result)

	if !scanNoSave {
		if err := saveHistory(ctx, doc, len(result.Unchanged)); err != nil {
			logger.Warn("could not record scan history", "err", err)
		}
	}

	if scanOut != "" {
		if err := report.WriteJSON(doc, scanOut); err != nil {
			return nil, err
		}
		logger.Debug("wrote update document", "path", scanOut)
	}
	if scanMarkdown != "" {
		if err := report.WriteMarkdown(result, scanMarkdown); err != nil {
			return nil, err
		}
	}

	if scanJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return result, nil
	}

	printScanSummary(result, label)
	return result, nil
}

// printScanSummary renders the human-readable scan outcome.
func printScanSummary(result *detect.ScanResult, label string) {
	prefix := ""
	if label != "" {
		prefix = label + ": "
	}

	fmt.Printf("%sScanned %s -> %s\n", prefix,
		shortRefDisplay(result.BaseRef), shortRefDisplay(result.TargetRef))
	fmt.Printf("%s  triggered: %d, proposed: %d, unchanged: %d\n",
		prefix, len(result.Triggers), len(result.Proposals), len(result.Unchanged))

	for _, t := range result.Triggers {
		line := fmt.Sprintf("%s  ! %s %s:%d-%d (%s)", prefix,
			shortID(t.SubscriptionID), t.Path, t.StartLine, t.EndLine, joinReasons(t.Reasons))
		if t.Subscription.Label != "" {
			line += " [" + t.Subscription.Label + "]"
		}
		fmt.Println(line)
	}

	for _, p := range result.Proposals {
		fmt.Printf("%s  > %s %s:%d-%d -> %s:%d-%d (%s, %s)\n", prefix,
			shortID(p.SubscriptionID), p.OldPath, p.OldStart, p.OldEnd,
			p.NewPath, p.NewStart, p.NewEnd, joinReasons(p.Reasons), p.Confidence)
	}
}

// saveHistory records the scan and prunes old entries per config.
func saveHistory(ctx *cmdContext, doc *report.UpdateDoc, unchanged int) error {
	if err := os.MkdirAll(ctx.configDir(), 0o755); err != nil {
		return err
	}
	store, err := history.Open(ctx.configDir())
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.SaveScan("", doc, unchanged); err != nil {
		return err
	}
	_, err = store.Prune(ctx.config.History.Keep)
	return err
}

// scanAll fans out over every registered project. Each repository is
// still scanned by exactly one goroutine.
func scanAll() error {
	if scanOut != "" || scanMarkdown != "" || scanJSON {
		return fmt.Errorf("--out, --md, and --json cannot be combined with --all")
	}

	projects, err := listProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		return fmt.Errorf("no projects registered; add one with 'cw projects add'")
	}

	var mu sync.Mutex
	triggered := 0

	var g errgroup.Group
	// The indexers behind the detector are a process-wide cache that must
	// not be used from more than one goroutine at a time.
	g.SetLimit(1)

	for _, proj := range projects {
		g.Go(func() error {
			repo := gitrepo.New(proj.Path)
			root, err := repo.Root()
			if err != nil {
				return fmt.Errorf("%s: %w", proj.Name, err)
			}

			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("%s: %w", proj.Name, err)
			}

			ctx := &cmdContext{repo: repo, root: root, store: subs.NewStore(root), config: cfg}
			result, err := runScan(ctx, proj.Name)
			if err != nil {
				return fmt.Errorf("%s: %w", proj.Name, err)
			}

			mu.Lock()
			triggered += len(result.Triggers)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if scanFailOnTrigger && triggered > 0 {
		return fmt.Errorf("%w: %d subscription(s) triggered", errTriggersFound, triggered)
	}
	return nil
}

// listProjects opens the user-scope registry.
func listProjects() ([]project.Project, error) {
	store, err := project.NewStore("")
	if err != nil {
		return nil, err
	}
	return store.List()
}

// joinReasons renders a reason list.
func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
