package sync

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andersonfelipev/aios-core/internal/testutil"
)

// writeFile is a test helper that creates a file with parent directories.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	testutil.WriteTree(t, root, map[string]string{rel: content})
}

// readFile is a test helper that reads a file's content.
func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	return testutil.ReadFile(t, root, rel)
}

func TestPlan_AddIntoEmptyDestination(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "file.md", "content")

	changes, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	want := ChangeRecord{Kind: ChangeAdd, Path: "file.md"}
	if changes[0] != want {
		t.Errorf("change = %+v, want %+v", changes[0], want)
	}
}

func TestPlan_UpdateForExistingFile(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "file.md", "new content")
	writeFile(t, dest, "file.md", "old content")

	changes, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	want := ChangeRecord{Kind: ChangeUpdate, Path: "file.md"}
	if changes[0] != want {
		t.Errorf("change = %+v, want %+v", changes[0], want)
	}
}

func TestPlan_SortedByRelativePath(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "zebra.md", "z")
	writeFile(t, source, "agents/dev.md", "d")
	writeFile(t, source, "agents/architect.md", "a")
	writeFile(t, source, "middle.md", "m")

	changes, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	wantOrder := []string{"agents/architect.md", "agents/dev.md", "middle.md", "zebra.md"}
	if len(changes) != len(wantOrder) {
		t.Fatalf("got %d changes, want %d", len(changes), len(wantOrder))
	}
	for i, rel := range wantOrder {
		if changes[i].Path != rel {
			t.Errorf("changes[%d].Path = %q, want %q", i, changes[i].Path, rel)
		}
	}
}

func TestPlan_IgnoresDestinationOnlyFiles(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "shared.md", "s")
	writeFile(t, dest, "user-notes.md", "mine")
	writeFile(t, dest, "local/scratch.md", "mine too")

	changes, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(changes) != 1 || changes[0].Path != "shared.md" {
		t.Errorf("changes = %+v, want only shared.md", changes)
	}
}

func TestPlan_DoesNotTouchDestination(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "file.md", "new")
	writeFile(t, source, "nested/other.md", "new")
	writeFile(t, dest, "file.md", "old")

	if _, err := Plan(source, dest); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if got := readFile(t, dest, "file.md"); got != "old" {
		t.Errorf("destination file changed during simulate: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "nested")); !os.IsNotExist(err) {
		t.Error("simulate created directories in the destination")
	}
}

func TestApply_WritesAddsAndUpdates(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "file.md", "new content")
	writeFile(t, source, "agents/dev.md", "agent")
	writeFile(t, dest, "file.md", "old content")
	writeFile(t, dest, "user-notes.md", "mine")

	changes, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if err := Apply(source, dest, changes); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := readFile(t, dest, "file.md"); got != "new content" {
		t.Errorf("updated file = %q, want %q", got, "new content")
	}
	if got := readFile(t, dest, "agents/dev.md"); got != "agent" {
		t.Errorf("added file = %q, want %q", got, "agent")
	}
	// Destination-only files are never deleted.
	if got := readFile(t, dest, "user-notes.md"); got != "mine" {
		t.Errorf("destination-only file = %q, want untouched", got)
	}
}

func TestApply_PlanMatchesApplyChanges(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "add-me.md", "a")
	writeFile(t, source, "update-me.md", "new")
	writeFile(t, dest, "update-me.md", "old")

	simulated, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if err := Apply(source, dest, simulated); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// Re-planning after apply classifies everything as an update.
	after, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() after apply error = %v", err)
	}
	if len(after) != len(simulated) {
		t.Fatalf("plan size changed after apply: %d != %d", len(after), len(simulated))
	}
	for _, c := range after {
		if c.Kind != ChangeUpdate {
			t.Errorf("%s classified as %s after apply, want update", c.Path, c.Kind)
		}
	}
}

func TestApply_FailureLeavesEarlierWrites(t *testing.T) {
	source := t.TempDir()
	dest := t.TempDir()
	writeFile(t, source, "a-first.md", "first")
	writeFile(t, source, "b-missing.md", "gone")

	changes, err := Plan(source, dest)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	// Remove a source file between plan and apply to force a read failure.
	if err := os.Remove(filepath.Join(source, "b-missing.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	err = Apply(source, dest, changes)
	if err == nil {
		t.Fatal("Apply() succeeded, want error")
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("error type = %T, want *SyncError", err)
	}
	if syncErr.Op != "read" || syncErr.Path != "b-missing.md" {
		t.Errorf("SyncError = %+v, want read failure on b-missing.md", syncErr)
	}

	// The file copied before the failure stays written.
	if got := readFile(t, dest, "a-first.md"); got != "first" {
		t.Errorf("earlier write lost: %q", got)
	}
}

func TestChangeKindString(t *testing.T) {
	if ChangeAdd.String() != "add" {
		t.Errorf("ChangeAdd.String() = %q", ChangeAdd.String())
	}
	if ChangeUpdate.String() != "update" {
		t.Errorf("ChangeUpdate.String() = %q", ChangeUpdate.String())
	}
}
