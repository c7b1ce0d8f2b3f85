package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempWiki(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store
}

func TestRead(t *testing.T) {
	s := tempWiki(t, map[string]string{"Home.md": "# Home\nWelcome.\n"})
	got, err := s.Read("Home.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Home\nWelcome.\n" {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRead_Missing(t *testing.T) {
	s := tempWiki(t, nil)
	_, err := s.Read("nope.md")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestList_TopLevelMarkdownOnly(t *testing.T) {
	s := tempWiki(t, map[string]string{
		"b.md":       "b",
		"a.md":       "a",
		"sub/c.md":   "nested",
		"readme.txt": "not md",
	})
	if err := os.Mkdir(filepath.Join(s.Root(), "dir.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(items), items)
	}
	if items[0].Path != "a.md" || items[1].Path != "b.md" {
		t.Errorf("paths = %q, %q; want sorted a.md, b.md", items[0].Path, items[1].Path)
	}
	if items[0].Checksum == "" || items[0].UpdatedAt.IsZero() {
		t.Errorf("expected checksum and mod time, got %+v", items[0])
	}
}

func TestList_KeepsUnreadablePage(t *testing.T) {
	s := tempWiki(t, map[string]string{"Home.md": "# Home\n"})
	if err := os.Symlink(filepath.Join(s.Root(), "missing.txt"), filepath.Join(s.Root(), "Broken.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(items), items)
	}
	if items[0].Path != "Broken.md" || items[0].Checksum != "" {
		t.Errorf("broken entry = %+v, want listed without checksum", items[0])
	}
	if items[1].Path != "Home.md" || items[1].Checksum == "" {
		t.Errorf("home entry = %+v", items[1])
	}
}

func TestStat(t *testing.T) {
	s := tempWiki(t, map[string]string{"x.md": "hello"})
	info, err := s.Stat("x.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, want 5", info.Size())
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWiki(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := s.Stat(p); err == nil {
			t.Errorf("expected stat error for path %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "wikifeed-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
