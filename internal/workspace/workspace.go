// Package workspace manages the shared working tree that agents and the
// orchestrator communicate through. The tree is the only channel between
// them: agents write artifacts under planning/, the orchestrator reads them,
// and post-processing consumes the result into build/.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a rooted artifact tree with the fixed layout the pipeline
// protocol expects.
type Workspace struct {
	root string
}

// New returns a Workspace rooted at dir. The directory is not created until
// Init is called.
func New(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Init creates the planning directory skeleton.
func (w *Workspace) Init() error {
	for _, dir := range []string{w.PlanningDir(), w.FanoutDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// PlanningDir is where agents write all generation artifacts.
func (w *Workspace) PlanningDir() string {
	return filepath.Join(w.root, "planning")
}

// FanoutDir is the directory subagents write component docs into, one
// subdirectory per component. SubagentWaiter watches it.
func (w *Workspace) FanoutDir() string {
	return filepath.Join(w.root, "planning", "docs")
}

// BuildDir is deleted and recreated on every post-process run.
func (w *Workspace) BuildDir() string {
	return filepath.Join(w.root, "build")
}

// BuildDocsDir holds the processed copy of the documentation.
func (w *Workspace) BuildDocsDir() string {
	return filepath.Join(w.root, "build", "docs")
}

// SiteDir is the static-site output. It is a sibling of BuildDocsDir, never
// nested inside it: the site builder errors on a site_dir under docs_dir.
func (w *Workspace) SiteDir() string {
	return filepath.Join(w.root, "build", "site")
}

// OverviewPath is the free-form narrative overview, a gating artifact.
func (w *Workspace) OverviewPath() string {
	return filepath.Join(w.PlanningDir(), "overview.md")
}

// ManifestPath is the component manifest table, a gating artifact.
func (w *Workspace) ManifestPath() string {
	return filepath.Join(w.PlanningDir(), "component_manifest.md")
}

// AllocationPath is the task allocation plan with total_tasks frontmatter.
func (w *Workspace) AllocationPath() string {
	return filepath.Join(w.PlanningDir(), "task_allocation.md")
}

// DocTreePath is the doc-tree structure JSON.
func (w *Workspace) DocTreePath() string {
	return filepath.Join(w.PlanningDir(), "doc_tree.json")
}

// IndexPath is the final navigation entry point.
func (w *Workspace) IndexPath() string {
	return filepath.Join(w.PlanningDir(), "index.md")
}

// ResetBuild deletes and recreates the build tree. Post-processing never
// merges incrementally, so stale build output cannot survive a rerun.
func (w *Workspace) ResetBuild() error {
	if err := os.RemoveAll(w.BuildDir()); err != nil {
		return fmt.Errorf("remove build dir: %w", err)
	}
	if err := os.MkdirAll(w.BuildDocsDir(), 0o755); err != nil {
		return fmt.Errorf("mkdir build docs dir: %w", err)
	}
	return nil
}

// Exists reports whether the given path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CountFanout returns the number of immediate subdirectories under dir and
// the number of files within those subdirectories. Both counts are 0 if dir
// does not exist yet — the fan-out may simply not have started.
func CountFanout(dir string) (dirs int, files int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirs++
		sub, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, s := range sub {
			if !s.IsDir() {
				files++
			}
		}
	}
	return dirs, files
}
