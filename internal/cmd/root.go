// Package cmd contains all CLI commands for cw.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the current version of cw.
	Version = "0.1.0"

	// Global flags.
	verbose bool
	workDir string
)

// errTriggersFound makes scans exit with code 2 under --fail-on-trigger.
var errTriggersFound = errors.New("triggers found")

// logger is the CLI-wide structured logger. The core packages return
// errors; only the command layer logs.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
})

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cw",
	Short: "Subscribe to code regions and detect when they change",
	Long: `cw watches regions of source code inside a git repository and reports,
between two commits (or a commit and the working tree), whether each
subscription was semantically affected, merely relocated, or unchanged.

Subscriptions come in two modes: line-based (a byte-exact range in a file)
and semantic (a named class, method, field, or variable located by content
fingerprints, so it survives renames and moves). Container subscriptions
track every direct member of a class, interface, or enum as an aggregate.

Typical workflow:
  cw init                                  # anchor subscriptions at HEAD
  cw add src/config.py:12-14 --label=retries
  cw add "src/models.py::class:User" --members
  cw scan                                  # compare baseline to working tree
  cw scan --target HEAD --out updates.json
  cw apply updates.json                    # accept relocation proposals

Exit codes: 0 success, 1 error, 2 when --fail-on-trigger found triggers.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errTriggersFound) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "Run as if started in this directory")

	cobra.OnInitialize(func() {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	})
}
