// Package gitrepo wraps the git invocations codewatch depends on.
//
// All operations run against a repository root resolved once from a start
// directory. An empty target ref means the working tree: diffs compare
// against the on-disk files and reads come straight from disk.
package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repo executes git operations for one repository.
type Repo struct {
	startDir string
	root     string
}

// New creates a Repo that resolves its root lazily from startDir.
func New(startDir string) *Repo {
	return &Repo{startDir: startDir}
}

// Root returns the repository root directory, resolving it on first use.
func (r *Repo) Root() (string, error) {
	if r.root != "" {
		return r.root, nil
	}

	out, err := r.runIn(r.startDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", &NotAGitRepoError{Path: r.startDir}
	}
	r.root = strings.TrimSpace(out)
	return r.root, nil
}

// Head returns the current HEAD commit hash.
func (r *Repo) Head() (string, error) {
	return r.ResolveRef("HEAD")
}

// ResolveRef resolves a git ref to a full commit hash.
func (r *Repo) ResolveRef(ref string) (string, error) {
	out, err := r.run("rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ShowFile returns a file's content at a ref as newline-stripped lines.
func (r *Repo) ShowFile(ref, path string) ([]string, error) {
	path = NormalizePath(path)
	root, err := r.Root()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("git", "show", ref+":"+path)
	cmd.Dir = root
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "does not exist") || strings.Contains(msg, "exists on disk") {
			return nil, &FileNotFoundAtRefError{Path: path, Ref: ref}
		}
		return nil, &GitError{Command: "git show " + ref + ":" + path, Stderr: msg}
	}

	return splitLines(string(out)), nil
}

// ReadWorkingFile returns a working-tree file's content as lines.
func (r *Repo) ReadWorkingFile(path string) ([]string, error) {
	root, err := r.Root()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(NormalizePath(path))))
	if err != nil {
		return nil, err
	}
	return splitLines(string(data)), nil
}

// ListFiles returns the tracked paths at a ref.
func (r *Repo) ListFiles(ref string) ([]string, error) {
	out, err := r.run("ls-tree", "-r", "--name-only", ref)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			paths = append(paths, NormalizePath(line))
		}
	}
	return paths, nil
}

// DiffPatch returns the unified diff between two refs with zero context
// and rename detection. An empty target compares against the working tree.
func (r *Repo) DiffPatch(base, target string) (string, error) {
	args := []string{"diff", "-U0", "--find-renames", base}
	if target != "" {
		args = append(args, target)
	}
	return r.run(args...)
}

// DiffNameStatus returns the name-status diff between two refs with rename
// detection. An empty target compares against the working tree.
func (r *Repo) DiffNameStatus(base, target string) (string, error) {
	args := []string{"diff", "--name-status", "-M", "--find-renames", base}
	if target != "" {
		args = append(args, target)
	}
	return r.run(args...)
}

// FileLineCount returns the number of lines in a file at a ref.
func (r *Repo) FileLineCount(ref, path string) (int, error) {
	lines, err := r.ShowFile(ref, path)
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

// RelativePath converts a path to a repo-relative POSIX path. Paths
// outside the repository are returned normalized but unchanged.
func (r *Repo) RelativePath(absPath string) (string, error) {
	root, err := r.Root()
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(absPath)
	if err != nil {
		return NormalizePath(absPath), nil
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return NormalizePath(abs), nil
	}
	return NormalizePath(rel), nil
}

// run executes git at the repository root.
func (r *Repo) run(args ...string) (string, error) {
	root, err := r.Root()
	if err != nil {
		return "", err
	}
	return r.runIn(root, args...)
}

// runIn executes git in a specific directory.
func (r *Repo) runIn(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", &GitError{
			Command: "git " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
		}
	}
	return string(out), nil
}

// NormalizePath normalizes a path to POSIX style (forward slashes).
func NormalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// splitLines splits content into lines with the trailing newline removed,
// preserving interior empty lines.
func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
