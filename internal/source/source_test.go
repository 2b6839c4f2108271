package source

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// fakeGit scripts git command output keyed by the subcommand.
type fakeGit struct {
	remote    string
	remoteErr error
	branch    string
	cloned    []string
}

func (f *fakeGit) RunGit(dir string, args ...string) (string, error) {
	switch args[0] {
	case "clone":
		f.cloned = append(f.cloned, strings.Join(args, " "))
		return "", nil
	case "remote":
		return f.remote, f.remoteErr
	case "rev-parse":
		return f.branch, nil
	}
	return "", nil
}

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	git := &fakeGit{remote: "git@github.com:acme/widgets.git", branch: "develop"}

	repo, err := Resolve(git, dir, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if repo.Path != dir {
		t.Errorf("Path = %q, want %q", repo.Path, dir)
	}
	if repo.Owner != "acme" || repo.Name != "widgets" {
		t.Errorf("identity = %s/%s, want acme/widgets", repo.Owner, repo.Name)
	}
	if repo.Branch != "develop" {
		t.Errorf("Branch = %q, want develop", repo.Branch)
	}
	if len(git.cloned) != 0 {
		t.Errorf("local path should not clone, got %v", git.cloned)
	}
}

func TestResolveHTTPSRemote(t *testing.T) {
	dir := t.TempDir()
	git := &fakeGit{remote: "https://github.com/acme/widgets"}

	repo, err := Resolve(git, dir, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if repo.Owner != "acme" || repo.Name != "widgets" {
		t.Errorf("identity = %s/%s, want acme/widgets", repo.Owner, repo.Name)
	}
}

func TestResolveURLClones(t *testing.T) {
	cloneDir := filepath.Join(t.TempDir(), "clones")
	git := &fakeGit{remote: "https://github.com/acme/widgets.git", branch: "main"}

	repo, err := Resolve(git, "https://github.com/acme/widgets.git", cloneDir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(git.cloned) != 1 {
		t.Fatalf("cloned %d times, want 1", len(git.cloned))
	}
	want := filepath.Join(cloneDir, "widgets")
	if repo.Path != want {
		t.Errorf("Path = %q, want %q", repo.Path, want)
	}
}

func TestResolveMissingPath(t *testing.T) {
	if _, err := Resolve(&fakeGit{}, filepath.Join(t.TempDir(), "nope"), t.TempDir()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

var errFake = errors.New("no remote configured")

func TestNoRemoteUsesDirName(t *testing.T) {
	dir := t.TempDir()
	git := &fakeGit{remote: "", remoteErr: errFake}

	repo, err := Resolve(git, dir, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if repo.Owner != "" {
		t.Errorf("Owner = %q, want empty without a remote", repo.Owner)
	}
	if repo.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want %q", repo.Name, filepath.Base(dir))
	}
}
