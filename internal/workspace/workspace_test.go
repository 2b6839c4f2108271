package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCreatesLayout(t *testing.T) {
	w := New(t.TempDir())
	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, dir := range []string{w.PlanningDir(), w.FanoutDir()} {
		if !Exists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}

func TestResetBuildClearsStaleOutput(t *testing.T) {
	w := New(t.TempDir())
	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	stale := filepath.Join(w.BuildDocsDir(), "old.md")
	if err := WriteAtomic(stale, []byte("stale")); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	if err := w.ResetBuild(); err != nil {
		t.Fatalf("ResetBuild: %v", err)
	}
	if Exists(stale) {
		t.Error("stale file survived ResetBuild")
	}
	if !Exists(w.BuildDocsDir()) {
		t.Error("build docs dir missing after ResetBuild")
	}
}

func TestSiteDirDisjointFromDocs(t *testing.T) {
	w := New(t.TempDir())
	rel, err := filepath.Rel(w.BuildDocsDir(), w.SiteDir())
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if !strings.HasPrefix(rel, "..") {
		t.Errorf("site dir %s is nested inside docs dir %s", w.SiteDir(), w.BuildDocsDir())
	}
}

func TestCountFanout(t *testing.T) {
	dir := t.TempDir()

	if d, f := CountFanout(filepath.Join(dir, "missing")); d != 0 || f != 0 {
		t.Errorf("missing dir: dirs=%d files=%d, want 0, 0", d, f)
	}

	// Two component dirs with three files total, plus a stray top-level file
	// that must not count as a component.
	for _, p := range []string{"auth/index.md", "auth/architecture.md", "core/index.md"} {
		full := filepath.Join(dir, p)
		if err := WriteAtomic(full, []byte("x")); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	d, f := CountFanout(dir)
	if d != 2 {
		t.Errorf("dirs = %d, want 2", d)
	}
	if f != 3 {
		t.Errorf("files = %d, want 3", f)
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	if err := WriteAtomic(filepath.Join(src, "a", "b.md"), []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "a", "b.md"))
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("copied content = %q", data)
	}

	// Source untouched.
	if _, err := os.Stat(filepath.Join(src, "a", "b.md")); err != nil {
		t.Errorf("source file missing after copy: %v", err)
	}
}

func TestRunStoreLifecycle(t *testing.T) {
	s := NewRunStore(t.TempDir())

	rec, err := s.Create("20260827-120000", "/src/repo", "claude-sonnet-4-5", "/tmp/ws")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Status != "in_progress" {
		t.Errorf("Status = %q, want in_progress", rec.Status)
	}

	if _, err := s.Create("20260827-120000", "/src/repo", "m", "/tmp/ws"); err == nil {
		t.Error("expected error creating duplicate run")
	}

	err = s.Update("20260827-120000", func(r *RunRecord) {
		r.Steps["overview"] = StepRecord{Success: true}
		r.Status = "completed"
		r.Success = true
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Get("20260827-120000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Steps["overview"].Success {
		t.Error("step record not persisted")
	}
	if got.Status != "completed" {
		t.Errorf("Status = %q, want completed", got.Status)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("List returned %d runs, want 1", len(runs))
	}
}
