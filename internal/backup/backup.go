// Package backup snapshots the installed tree before a destructive
// apply and manages the snapshot's lifecycle.
//
// A backup is a plain directory copy, sibling to the installed tree,
// named "<treeName>.backup-<timestamp>". No automated restore exists:
// on failure the path is surfaced to the operator as the manual
// recovery point.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// manifestName is the backup manifest file written inside each snapshot.
	manifestName = ".aios-backup.json"

	// timestampLayout is the UTC stamp embedded in backup directory names.
	timestampLayout = "20060102T150405"
)

// Common backup errors
var (
	ErrMissingSource = errors.New("backup source directory does not exist")
)

// Outcome describes how the guarded operation ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

// Policy controls what happens to a backup after a successful apply.
type Policy int

const (
	// PolicyRetain leaves the backup on disk and reports its path.
	// This is the default: disk is cheap, lost customizations are not.
	PolicyRetain Policy = iota

	// PolicyDiscard removes the backup after a verified success.
	PolicyDiscard
)

// String returns the string representation of a Policy.
func (p Policy) String() string {
	switch p {
	case PolicyRetain:
		return "retain"
	case PolicyDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Backup represents one point-in-time copy of the installed tree.
type Backup struct {
	Path      string    `json:"-"`
	Manifest  Manifest  `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// Manifest is the metadata journal written inside each backup.
// Schema version 1.
type Manifest struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"` // UUID for unique identification
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot copies the installed tree at dir into a timestamped sibling
// directory and journals a manifest inside it. The copy is plain file
// content; permissions and symlinks are not preserved beyond regular
// file copying.
func Snapshot(dir string) (*Backup, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingSource
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backup source %s is not a directory", dir)
	}

	now := time.Now().UTC()
	backupPath := fmt.Sprintf("%s.backup-%s", filepath.Clean(dir), now.Format(timestampLayout))

	if err := copyTree(dir, backupPath); err != nil {
		// Remove the partial copy; a half backup is worse than none
		// because it looks like a recovery point.
		os.RemoveAll(backupPath)
		return nil, fmt.Errorf("copy tree: %w", err)
	}

	b := &Backup{
		Path:      backupPath,
		CreatedAt: now,
		Manifest: Manifest{
			Version:   1,
			ID:        uuid.New().String(),
			Source:    dir,
			CreatedAt: now,
		},
	}

	if err := writeManifest(backupPath, b.Manifest); err != nil {
		os.RemoveAll(backupPath)
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return b, nil
}

// Finalize resolves a backup's lifecycle after the guarded operation.
// On success with PolicyDiscard the backup is removed; on success with
// PolicyRetain, or on any failure, it stays on disk as the recovery
// point.
func Finalize(b *Backup, outcome Outcome, policy Policy) error {
	if b == nil {
		return nil
	}

	if outcome == OutcomeSuccess && policy == PolicyDiscard {
		if err := os.RemoveAll(b.Path); err != nil {
			return fmt.Errorf("discard backup: %w", err)
		}
	}

	return nil
}

// Prune removes the oldest backups of treeName under parentDir,
// keeping the newest keep entries. Returns how many were removed.
// Backup names embed a sortable UTC timestamp, so lexical order is
// creation order.
func Prune(parentDir, treeName string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	entries, err := os.ReadDir(parentDir)
	if err != nil {
		return 0, fmt.Errorf("read backup parent: %w", err)
	}

	prefix := treeName + ".backup-"
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		// A matching name alone is not proof of ownership; only
		// directories carrying a readable manifest are prunable.
		if _, err := ReadManifest(filepath.Join(parentDir, entry.Name())); err != nil {
			continue
		}
		backups = append(backups, entry.Name())
	}

	if len(backups) <= keep {
		return 0, nil
	}

	sort.Strings(backups)
	doomed := backups[:len(backups)-keep]

	removed := 0
	for _, name := range doomed {
		if err := os.RemoveAll(filepath.Join(parentDir, name)); err != nil {
			return removed, fmt.Errorf("remove old backup %s: %w", name, err)
		}
		removed++
	}

	return removed, nil
}

// ReadManifest loads the manifest journaled inside a backup directory.
func ReadManifest(backupPath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(backupPath, manifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}

// writeManifest journals the manifest atomically inside the backup.
// Uses write-then-rename pattern for atomicity.
func writeManifest(backupPath string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	finalPath := filepath.Join(backupPath, manifestName)
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temporary manifest: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename manifest: %w", err)
	}

	return nil
}

// copyTree recursively copies every regular file under src into dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		return copyFile(path, target)
	})
}

// copyFile copies a single file's content.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}

	return out.Close()
}
