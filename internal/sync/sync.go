// Package sync provides recursive directory synchronization from an
// incoming tree into an installed tree.
//
// Synchronization is additive only: every file under the source is
// classified as an Add or an Update against the destination, and apply
// copies full file contents over. Files that exist only in the
// destination are never visited, reported, or deleted. This surprises
// users expecting a mirror sync, so it bears repeating: nothing is
// ever removed from the destination.
package sync

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ChangeKind classifies a planned file operation.
type ChangeKind int

const (
	// ChangeAdd means the file does not exist in the destination yet.
	ChangeAdd ChangeKind = iota

	// ChangeUpdate means a file already exists at the same relative path.
	ChangeUpdate
)

// String returns the string representation of a ChangeKind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// ChangeRecord describes one file difference between the incoming tree
// and the installed tree. Path is relative to the tree root and
// slash-separated regardless of platform.
type ChangeRecord struct {
	Kind ChangeKind
	Path string
}

// SyncError reports an I/O failure during an apply. Files written
// before the failure remain written; recovery is the caller's backup.
type SyncError struct {
	Op   string // "read", "write", or "mkdir"
	Path string // relative path of the file being processed
	Err  error
}

// Error returns the error message.
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Plan walks the source tree and classifies every file against the
// destination without touching either. Records are sorted by relative
// path, so the same pair of trees always yields the same plan.
//
// Applying the returned records against the same destination snapshot
// produces exactly these changes; Plan is the simulate mode of the
// synchronizer.
func Plan(source, dest string) ([]ChangeRecord, error) {
	var changes []ChangeRecord

	err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &SyncError{Op: "read", Path: relOrSelf(source, path), Err: err}
		}
		if d.IsDir() {
			// Checkout metadata is not part of the component tree.
			if d.Name() == ".git" && path != source {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return &SyncError{Op: "read", Path: path, Err: err}
		}
		rel = filepath.ToSlash(rel)

		kind := ChangeAdd
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err == nil {
			kind = ChangeUpdate
		}

		changes = append(changes, ChangeRecord{Kind: kind, Path: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})

	return changes, nil
}

// Apply copies the files named by changes from source into dest,
// creating parent directories as needed. Adds create files, updates
// overwrite them; either way the full byte content is written.
//
// The first failure aborts the whole call. There is no rollback here:
// files already copied stay copied, and the caller's backup is the
// recovery point.
func Apply(source, dest string, changes []ChangeRecord) error {
	for _, change := range changes {
		srcPath := filepath.Join(source, filepath.FromSlash(change.Path))
		dstPath := filepath.Join(dest, filepath.FromSlash(change.Path))

		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			return &SyncError{Op: "mkdir", Path: change.Path, Err: err}
		}
		if serr := copyFile(srcPath, dstPath); serr != nil {
			return serr.withPath(change.Path)
		}
	}

	return nil
}

// withPath returns a copy of the error with the relative path filled in.
func (e *SyncError) withPath(rel string) *SyncError {
	return &SyncError{Op: e.Op, Path: rel, Err: e.Err}
}

// copyFile copies the full content of src to dst, truncating dst if it
// exists.
func copyFile(src, dst string) *SyncError {
	in, err := os.Open(src)
	if err != nil {
		return &SyncError{Op: "read", Err: err}
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return &SyncError{Op: "write", Err: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &SyncError{Op: "write", Err: err}
	}

	if err := out.Close(); err != nil {
		return &SyncError{Op: "write", Err: err}
	}

	return nil
}

// relOrSelf returns path relative to root, or path itself when the
// relation cannot be computed.
func relOrSelf(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
