package cmd

import (
	"github.com/anthropics/codewatch/internal/mcpserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve codewatch operations over MCP (stdio)",
	Long: `Starts an MCP server on stdio exposing cw_list, cw_scan, and cw_apply,
so agents can watch and update subscriptions without the CLI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := mcpserver.New(workDir)
		if err != nil {
			return err
		}
		logger.Debug("serving MCP on stdio")
		return s.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
