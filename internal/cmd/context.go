package cmd

import (
	"path/filepath"
	"strings"

	"github.com/anthropics/codewatch/internal/config"
	"github.com/anthropics/codewatch/internal/gitrepo"
	"github.com/anthropics/codewatch/internal/subs"
)

// cmdContext bundles the per-invocation collaborators most commands need.
type cmdContext struct {
	repo   *gitrepo.Repo
	root   string
	store  *subs.Store
	config *config.Config
}

// newCmdContext resolves the repository from the working directory and
// opens its subscription store and config.
func newCmdContext() (*cmdContext, error) {
	repo := gitrepo.New(workDir)
	root, err := repo.Root()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	return &cmdContext{
		repo:   repo,
		root:   root,
		store:  subs.NewStore(root),
		config: cfg,
	}, nil
}

// configDir returns the repository's .codewatch directory.
func (c *cmdContext) configDir() string {
	return filepath.Join(c.root, subs.ConfigDirName)
}

// joinLines joins file lines back into source text.
func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// shortID truncates a subscription id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
