package gitrepo

import "fmt"

// NotAGitRepoError is returned when the start directory is not inside a
// git repository.
type NotAGitRepoError struct {
	Path string
}

// Error implements the error interface.
func (e *NotAGitRepoError) Error() string {
	return fmt.Sprintf("not a git repository: %s", e.Path)
}

// GitError is returned when a git command fails; it carries the failing
// command and its stderr verbatim.
type GitError struct {
	Command string
	Stderr  string
}

// Error implements the error interface.
func (e *GitError) Error() string {
	return fmt.Sprintf("git command failed: %s\n%s", e.Command, e.Stderr)
}

// FileNotFoundAtRefError is returned when a file does not exist at the
// requested ref.
type FileNotFoundAtRefError struct {
	Path string
	Ref  string
}

// Error implements the error interface.
func (e *FileNotFoundAtRefError) Error() string {
	return fmt.Sprintf("file %q not found at ref %q", e.Path, e.Ref)
}
