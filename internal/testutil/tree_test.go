package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTree(t *testing.T) {
	dir := t.TempDir()

	WriteTree(t, dir, map[string]string{
		"top.md":          "top",
		"nested/deep.yml": "key: value",
	})

	if got := ReadFile(t, dir, "top.md"); got != "top" {
		t.Errorf("top.md = %q, want %q", got, "top")
	}
	if got := ReadFile(t, dir, "nested/deep.yml"); got != "key: value" {
		t.Errorf("nested/deep.yml = %q, want %q", got, "key: value")
	}

	info, err := os.Stat(filepath.Join(dir, "nested"))
	if err != nil || !info.IsDir() {
		t.Errorf("nested directory not created: %v", err)
	}
}

func TestWriteTree_EmptySet(t *testing.T) {
	dir := t.TempDir()
	WriteTree(t, dir, nil)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty tree produced %d entries", len(entries))
	}
}
