// Package fetch acquires the incoming component tree from a remote
// git repository.
//
// The engine only depends on the Fetcher contract: give it a target
// repository and branch, get back a local directory holding a full
// checkout, or a *FetchError with actionable hints. How retrieval
// happens is this package's private business.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Common fetch errors
var (
	ErrEmptyRepo   = errors.New("repository identifier cannot be empty")
	ErrEmptyBranch = errors.New("branch name cannot be empty")
)

// Target identifies the remote tree to fetch.
type Target struct {
	Repo   string // URL, SSH address, or owner/name shorthand
	Branch string
}

// FetchError reports a failed acquisition of the remote tree. Any
// partial workspace has already been cleaned up when this is returned.
type FetchError struct {
	Target Target
	Err    error
}

// Error returns the error message.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s@%s: %v", e.Target.Repo, e.Target.Branch, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Hints returns actionable suggestions for the operator.
func (e *FetchError) Hints() []string {
	return []string{
		fmt.Sprintf("check that the repository %q exists and you can access it", e.Target.Repo),
		fmt.Sprintf("check that the branch %q exists on the remote", e.Target.Branch),
		"check your network connection and credentials",
	}
}

// Fetcher is the interface for acquiring a remote tree.
// Following Go best practices: accept interfaces, return structs.
type Fetcher interface {
	// Fetch obtains a local checkout of the target and returns its
	// directory. The caller owns the directory and must remove it.
	Fetch(ctx context.Context, target Target) (string, error)
}

// GitFetcher implements Fetcher using go-git shallow clones.
type GitFetcher struct {
	tempDir string // parent for checkout workspaces ("" = system default)
}

// NewGitFetcher creates a new git-backed fetcher.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{}
}

// NewGitFetcherIn creates a fetcher that places its checkout
// workspaces under dir. Used by tests to keep everything in a temp root.
func NewGitFetcherIn(dir string) *GitFetcher {
	return &GitFetcher{tempDir: dir}
}

// Fetch clones the target branch into a fresh temporary workspace and
// returns its path. Clones are shallow and single-branch; the engine
// only needs the tree at the tip, never history.
func (f *GitFetcher) Fetch(ctx context.Context, target Target) (string, error) {
	if target.Repo == "" {
		return "", &FetchError{Target: target, Err: ErrEmptyRepo}
	}
	if target.Branch == "" {
		return "", &FetchError{Target: target, Err: ErrEmptyBranch}
	}

	workspace, err := os.MkdirTemp(f.tempDir, "aios-update-*")
	if err != nil {
		return "", fmt.Errorf("create fetch workspace: %w", err)
	}

	_, err = gogit.PlainCloneContext(ctx, workspace, false, &gogit.CloneOptions{
		URL:           ResolveURL(target.Repo),
		ReferenceName: plumbing.NewBranchReferenceName(target.Branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		// Never leak a partial workspace.
		os.RemoveAll(workspace)
		return "", &FetchError{Target: target, Err: err}
	}

	return workspace, nil
}

// ResolveURL expands an owner/name shorthand to an HTTPS GitHub URL.
// Full URLs (https, http, git, ssh schemes), SSH addresses, and local
// paths pass through verbatim.
func ResolveURL(repo string) string {
	if strings.Contains(repo, "://") {
		return repo
	}
	if strings.HasPrefix(repo, "git@") {
		return repo
	}
	if strings.HasPrefix(repo, "/") || strings.HasPrefix(repo, ".") || strings.HasPrefix(repo, "~") {
		return repo
	}
	// owner/name shorthand: exactly one separator, no path-ish parts.
	parts := strings.Split(repo, "/")
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return fmt.Sprintf("https://github.com/%s/%s.git", parts[0], strings.TrimSuffix(parts[1], ".git"))
	}
	return repo
}
