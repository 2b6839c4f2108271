// Package source resolves the repository a run documents: a local path is
// used in place, a git URL is cloned. The canonical owner/repo identity is
// derived from the origin remote and drives link normalization later.
package source

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// GitRunner provides git command execution. Interface for testing.
type GitRunner interface {
	RunGit(dir string, args ...string) (string, error)
}

// ExecRunner runs git via exec.
type ExecRunner struct{}

func (r *ExecRunner) RunGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Repo is a resolved repository.
type Repo struct {
	Path   string
	Owner  string
	Name   string
	Branch string
}

// remoteRe matches both https and ssh GitHub remotes.
var remoteRe = regexp.MustCompile(`github\.com[:/]([^/\s]+)/([^/\s]+?)(?:\.git)?$`)

// isURL reports whether arg is a git URL rather than a local path.
func isURL(arg string) bool {
	return strings.HasPrefix(arg, "https://") ||
		strings.HasPrefix(arg, "http://") ||
		strings.HasPrefix(arg, "git@") ||
		strings.HasPrefix(arg, "ssh://")
}

// Resolve turns a repo path-or-URL into a local checkout with a canonical
// identity. URLs are cloned (depth 1) under cloneDir.
func Resolve(git GitRunner, arg, cloneDir string) (*Repo, error) {
	var path string
	if isURL(arg) {
		name := strings.TrimSuffix(filepath.Base(arg), ".git")
		path = filepath.Join(cloneDir, name)
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("clone target %s already exists", path)
		}
		if err := os.MkdirAll(cloneDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", cloneDir, err)
		}
		if _, err := git.RunGit("", "clone", "--depth", "1", arg, path); err != nil {
			return nil, fmt.Errorf("clone %s: %w", arg, err)
		}
	} else {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve path %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("repository path %s: %w", arg, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("repository path %s is not a directory", arg)
		}
		path = abs
	}

	repo := &Repo{Path: path, Branch: "main"}
	repo.Owner, repo.Name = identity(git, path)
	if repo.Name == "" {
		repo.Name = filepath.Base(path)
	}

	if branch, err := git.RunGit(path, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && branch != "" && branch != "HEAD" {
		repo.Branch = branch
	}

	return repo, nil
}

// identity derives owner/name from the origin remote. A repository without a
// GitHub remote gets an empty identity; link normalization is then skipped.
func identity(git GitRunner, path string) (owner, name string) {
	url, err := git.RunGit(path, "remote", "get-url", "origin")
	if err != nil {
		return "", ""
	}
	m := remoteRe.FindStringSubmatch(url)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}
