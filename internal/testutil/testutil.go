// Package testutil provides shared test helpers for wikis, databases and git repositories.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/wikifeed/internal/index"
	"github.com/starford/wikifeed/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "wikifeed-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWiki creates a temporary wiki directory populated with files and
// returns it with a storage.Provider rooted there.
func TestWiki(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// Git runs a git command in dir and returns trimmed stdout.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// InitRepo creates a git repository on branch main.
func InitRepo(t *testing.T, dir string) {
	t.Helper()
	Git(t, dir, "init", "-q")
	Git(t, dir, "checkout", "-q", "-B", "main")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "user.name", "Test")
}

// Commit writes files into dir and commits them.
func Commit(t *testing.T, dir, msg string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	Git(t, dir, "add", "-A")
	Git(t, dir, "commit", "-q", "-m", msg)
}

// ClonedWiki sets up a bare remote, an upstream working copy with one
// commit, and a clone of the remote. New commits pushed from upstream can
// be pulled into clone.
func ClonedWiki(t *testing.T, files map[string]string) (upstream, clone string) {
	t.Helper()
	RequireGit(t)
	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	upstream = filepath.Join(root, "upstream")
	clone = filepath.Join(root, "clone")

	Git(t, root, "init", "-q", "--bare", remote)
	Git(t, remote, "symbolic-ref", "HEAD", "refs/heads/main")

	if err := os.MkdirAll(upstream, 0o755); err != nil {
		t.Fatal(err)
	}
	InitRepo(t, upstream)
	Commit(t, upstream, "initial", files)
	Git(t, upstream, "remote", "add", "origin", remote)
	Git(t, upstream, "push", "-q", "origin", "main")

	Git(t, root, "clone", "-q", remote, clone)
	Git(t, clone, "config", "user.email", "test@example.com")
	Git(t, clone, "config", "user.name", "Test")
	Git(t, clone, "config", "pull.ff", "only")
	return upstream, clone
}

// PushCommit commits files in upstream and pushes them to origin.
func PushCommit(t *testing.T, upstream, msg string, files map[string]string) {
	t.Helper()
	Commit(t, upstream, msg, files)
	Git(t, upstream, "push", "-q", "origin", "main")
}
