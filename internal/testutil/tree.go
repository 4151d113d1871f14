// Package testutil provides fixtures for testing component trees in
// isolation. Every helper works under t.TempDir so tests never touch a
// real installation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree materializes a file tree under dir. Keys are
// slash-separated relative paths; parent directories are created as
// needed. The cleanup is handled by t.TempDir, so callers don't need
// to remove anything.
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create fixture directory %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture file %s: %v", path, err)
		}
	}
}

// ReadFile returns the content of a file inside a fixture tree,
// failing the test if it cannot be read.
func ReadFile(t *testing.T, dir, rel string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("failed to read fixture file %s: %v", rel, err)
	}
	return string(data)
}
