package gitrepo

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// initTestRepo creates a git repository with one committed file and
// returns the repo plus the first commit's hash.
func initTestRepo(t *testing.T) (*Repo, string) {
	t.Helper()

	dir := t.TempDir()
	git(t, dir, "init")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "user.name", "Test")

	writeFile(t, dir, "test.txt", "line 1\nline 2\nline 3\nline 4\nline 5\n")
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-m", "initial")

	repo := New(dir)
	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	return repo, head
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveRef(t *testing.T) {
	repo, head := initTestRepo(t)

	if len(head) != 40 {
		t.Errorf("head = %q, want full 40-char hash", head)
	}

	resolved, err := repo.ResolveRef("HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != head {
		t.Errorf("HEAD resolved to %q, want %q", resolved, head)
	}

	if _, err := repo.ResolveRef("no-such-ref"); err == nil {
		t.Error("expected error for unknown ref")
	}
}

func TestShowFile(t *testing.T) {
	repo, head := initTestRepo(t)

	lines, err := repo.ShowFile(head, "test.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 || lines[0] != "line 1" || lines[4] != "line 5" {
		t.Errorf("lines = %v", lines)
	}

	_, err = repo.ShowFile(head, "missing.txt")
	var notFound *FileNotFoundAtRefError
	if !errors.As(err, &notFound) {
		t.Errorf("expected FileNotFoundAtRefError, got %T: %v", err, err)
	}
}

func TestDiffPatchAndNameStatus(t *testing.T) {
	repo, first := initTestRepo(t)
	root, err := repo.Root()
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "test.txt", "line 1 changed\nline 2\nline 3\nline 4\nline 5\n")
	git(t, root, "commit", "-am", "change line 1")

	patch, err := repo.DiffPatch(first, "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(patch, "diff --git") || !strings.Contains(patch, "@@ -1 +1 @@") {
		t.Errorf("zero-context patch missing expected hunk header:\n%s", patch)
	}

	nameStatus, err := repo.DiffNameStatus(first, "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(nameStatus, "M\ttest.txt") {
		t.Errorf("name-status = %q", nameStatus)
	}
}

func TestDiffAgainstWorkingTree(t *testing.T) {
	repo, first := initTestRepo(t)
	root, err := repo.Root()
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "test.txt", "line 1\nline 2\nline 3\nline 4\nline 5\nline 6\n")

	patch, err := repo.DiffPatch(first, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(patch, "+line 6") {
		t.Errorf("working-tree diff missing uncommitted change:\n%s", patch)
	}
}

func TestRenameDetection(t *testing.T) {
	repo, first := initTestRepo(t)
	root, err := repo.Root()
	if err != nil {
		t.Fatal(err)
	}

	git(t, root, "mv", "test.txt", "renamed.txt")
	git(t, root, "commit", "-m", "rename")

	nameStatus, err := repo.DiffNameStatus(first, "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(nameStatus, "R100\ttest.txt\trenamed.txt") {
		t.Errorf("rename not detected: %q", nameStatus)
	}
}

func TestListFiles(t *testing.T) {
	repo, head := initTestRepo(t)

	files, err := repo.ListFiles(head)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "test.txt" {
		t.Errorf("files = %v", files)
	}
}

func TestNotAGitRepo(t *testing.T) {
	repo := New(t.TempDir())
	_, err := repo.Root()
	var notRepo *NotAGitRepoError
	if !errors.As(err, &notRepo) {
		t.Errorf("expected NotAGitRepoError, got %T", err)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("a/b/../c"); got != "a/c" {
		t.Errorf("NormalizePath = %q", got)
	}
}
