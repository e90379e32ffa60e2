// Package mcpserver exposes codewatch operations over the Model Context
// Protocol, so agents can list subscriptions, run scans, and apply update
// documents without shelling out to the CLI.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/anthropics/codewatch/internal/detect"
	"github.com/anthropics/codewatch/internal/gitrepo"
	"github.com/anthropics/codewatch/internal/report"
	"github.com/anthropics/codewatch/internal/subs"
	"github.com/anthropics/codewatch/internal/update"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with codewatch-specific functionality.
type Server struct {
	mcpServer *server.MCPServer
	repo      *gitrepo.Repo
	store     *subs.Store
}

// New creates an MCP server for the repository containing startDir.
func New(startDir string) (*Server, error) {
	repo := gitrepo.New(startDir)
	root, err := repo.Root()
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"codewatch",
			"1.0.0",
			server.WithToolCapabilities(false),
		),
		repo:  repo,
		store: subs.NewStore(root),
	}

	s.registerListTool()
	s.registerScanTool()
	s.registerApplyTool()
	return s, nil
}

// ServeStdio starts the server on the stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// registerListTool registers the cw_list tool.
func (s *Server) registerListTool() {
	tool := mcp.NewTool("cw_list",
		mcp.WithDescription("List code subscriptions and the baseline ref they are anchored to."),
		mcp.WithBoolean("include_paused",
			mcp.Description("Include paused subscriptions"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleList)
}

// registerScanTool registers the cw_scan tool.
func (s *Server) registerScanTool() {
	tool := mcp.NewTool("cw_scan",
		mcp.WithDescription("Scan subscriptions for changes between the baseline and a target ref. Returns the JSON update document."),
		mcp.WithString("base",
			mcp.Description("Base ref (default: stored baseline)"),
		),
		mcp.WithString("target",
			mcp.Description("Target ref (default: working tree)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleScan)
}

// registerApplyTool registers the cw_apply tool.
func (s *Server) registerApplyTool() {
	tool := mcp.NewTool("cw_apply",
		mcp.WithDescription("Apply an update document's relocation proposals to the subscriptions."),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("The JSON update document, as produced by cw_scan"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Validate without writing"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleApply)
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	includePaused, _ := args["include_paused"].(bool)

	file, err := s.store.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	subscriptions := file.Subscriptions
	if !includePaused {
		var active []subs.Subscription
		for _, sub := range subscriptions {
			if sub.Active {
				active = append(active, sub)
			}
		}
		subscriptions = active
	}

	return jsonResult(map[string]any{
		"baseline_ref":  file.Repo.BaselineRef,
		"subscriptions": subscriptions,
	})
}

func (s *Server) handleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	base, _ := args["base"].(string)
	target, _ := args["target"].(string)

	file, err := s.store.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if base == "" {
		base = file.Repo.BaselineRef
	}

	detector := detect.NewDetector(s.repo)
	result, err := detector.Scan(file.Subscriptions, base, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(report.BuildUpdateDoc(result))
}

func (s *Server) handleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	document, _ := args["document"].(string)
	dryRun, _ := args["dry_run"].(bool)

	if document == "" {
		return mcp.NewToolResultError("document parameter is required"), nil
	}

	var doc report.UpdateDoc
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return mcp.NewToolResultError("invalid update document: " + err.Error()), nil
	}

	updater := update.NewUpdater(s.store, s.repo)
	result, err := updater.Apply(&doc, dryRun)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"applied":  result.Applied,
		"warnings": result.Warnings,
		"dry_run":  result.DryRun,
	})
}

// jsonResult marshals a value into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
