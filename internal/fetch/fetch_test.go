package fetch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		repo string
		want string
	}{
		{"https url verbatim", "https://gitlab.com/team/aios.git", "https://gitlab.com/team/aios.git"},
		{"http url verbatim", "http://internal.example/repo.git", "http://internal.example/repo.git"},
		{"ssh address verbatim", "git@github.com:team/aios.git", "git@github.com:team/aios.git"},
		{"absolute path verbatim", "/srv/git/aios", "/srv/git/aios"},
		{"relative path verbatim", "./local-repo", "./local-repo"},
		{"shorthand expands", "team/aios-core", "https://github.com/team/aios-core.git"},
		{"shorthand with .git", "team/aios-core.git", "https://github.com/team/aios-core.git"},
		{"deep path stays verbatim", "a/b/c", "a/b/c"},
		{"bare name stays verbatim", "aios-core", "aios-core"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.repo); got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.repo, got, tt.want)
			}
		})
	}
}

func TestFetch_EmptyTarget(t *testing.T) {
	f := NewGitFetcher()
	ctx := context.Background()

	_, err := f.Fetch(ctx, Target{Repo: "", Branch: "main"})
	if !errors.Is(err, ErrEmptyRepo) {
		t.Errorf("Fetch with empty repo: error = %v, want ErrEmptyRepo", err)
	}

	_, err = f.Fetch(ctx, Target{Repo: "team/aios", Branch: ""})
	if !errors.Is(err, ErrEmptyBranch) {
		t.Errorf("Fetch with empty branch: error = %v, want ErrEmptyBranch", err)
	}
}

func TestFetch_FailureCleansUpWorkspace(t *testing.T) {
	parent := t.TempDir()
	f := NewGitFetcherIn(parent)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := f.Fetch(ctx, Target{Repo: filepath.Join(t.TempDir(), "does-not-exist"), Branch: "main"})
	if err == nil {
		t.Fatal("Fetch() succeeded against a nonexistent repository")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if len(fetchErr.Hints()) == 0 {
		t.Error("FetchError has no hints")
	}

	// The partial workspace must not be left behind.
	entries, readErr := os.ReadDir(parent)
	if readErr != nil {
		t.Fatalf("read workspace parent: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("workspace parent not empty after failed fetch: %v", entries)
	}
}

func TestFetch_LocalRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	upstream := t.TempDir()
	makeUpstreamRepo(t, upstream, "main", map[string]string{
		"core-config.yaml": "version: \"2.0.0\"\n",
		"agents/dev.md":    "# dev agent\n",
	})

	parent := t.TempDir()
	f := NewGitFetcherIn(parent)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dir, err := f.Fetch(ctx, Target{Repo: upstream, Branch: "main"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer os.RemoveAll(dir)

	data, err := os.ReadFile(filepath.Join(dir, "core-config.yaml"))
	if err != nil {
		t.Fatalf("checkout missing config: %v", err)
	}
	if string(data) != "version: \"2.0.0\"\n" {
		t.Errorf("checked out config = %q", data)
	}

	if _, err := os.Stat(filepath.Join(dir, "agents", "dev.md")); err != nil {
		t.Errorf("checkout missing nested file: %v", err)
	}
}

func TestFetch_BranchNotFound(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in test environment")
	}

	upstream := t.TempDir()
	makeUpstreamRepo(t, upstream, "main", map[string]string{"f.md": "x\n"})

	f := NewGitFetcherIn(t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := f.Fetch(ctx, Target{Repo: upstream, Branch: "no-such-branch"})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *FetchError for missing branch", err)
	}
}

// makeUpstreamRepo creates a git repository with one commit on the
// given branch containing the provided files.
func makeUpstreamRepo(t *testing.T, dir, branch string, files map[string]string) {
	t.Helper()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	})
	if err != nil {
		t.Fatalf("init upstream repo: %v", err)
	}

	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	for rel := range files {
		if _, err := worktree.Add(filepath.FromSlash(rel)); err != nil {
			t.Fatalf("stage %s: %v", rel, err)
		}
	}

	_, err = worktree.Commit("seed upstream", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}
