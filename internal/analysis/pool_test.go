package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lucasnoah/docfactory/internal/agent"
)

// fakeInvoker writes the output file named in the prompt unless the task's
// repo path is marked to fail, and tracks peak concurrency.
type fakeInvoker struct {
	mu      sync.Mutex
	active  int
	peak    int
	failFor string
}

func (f *fakeInvoker) Invoke(ctx context.Context, req agent.Request) (*agent.Result, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if req.Workdir == f.failFor {
		return &agent.Result{Success: false, Stderr: "agent crashed"}, nil
	}

	// The analyze prompt names the output path; extract and honour it the
	// way a real agent would.
	for _, line := range strings.Split(req.Prompt, "\n") {
		if strings.Contains(line, "write your findings to ") {
			path := strings.TrimSuffix(strings.TrimSpace(line[strings.Index(line, "write your findings to ")+len("write your findings to "):]), ".")
			os.MkdirAll(filepath.Dir(path), 0o755)
			os.WriteFile(path, []byte("findings for "+filepath.Base(req.Workdir)), 0o644)
		}
	}
	return &agent.Result{Success: true}, nil
}

func TestPoolRunsAllTasksAndMerges(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "analysis")
	inv := &fakeInvoker{}
	pool := NewPool(inv, outDir, 4)

	tasks := []Task{
		{Name: "billing", RepoPath: filepath.Join(t.TempDir(), "billing"), Focus: "events"},
		{Name: "auth", RepoPath: filepath.Join(t.TempDir(), "auth"), Focus: "events"},
		{Name: "gateway", RepoPath: filepath.Join(t.TempDir(), "gateway"), Focus: "events"},
	}
	report, err := pool.Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	for _, r := range report.Results {
		if !r.Success {
			t.Errorf("task %s failed: %s", r.Name, r.Detail)
		}
	}

	merged, err := os.ReadFile(report.MergedPath)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	for _, name := range []string{"## billing", "## auth", "## gateway"} {
		if !strings.Contains(string(merged), name) {
			t.Errorf("merged report missing %q", name)
		}
	}
	// Merge order is task order, not completion order.
	if strings.Index(string(merged), "## billing") > strings.Index(string(merged), "## auth") {
		t.Error("merged sections out of task order")
	}
}

func TestPoolIsolatesTaskFailure(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "analysis")
	failing := filepath.Join(t.TempDir(), "broken")
	inv := &fakeInvoker{failFor: failing}
	pool := NewPool(inv, outDir, 2)

	report, err := pool.Run(context.Background(), []Task{
		{Name: "ok", RepoPath: filepath.Join(t.TempDir(), "ok")},
		{Name: "broken", RepoPath: failing},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Results[0].Success {
		t.Error("healthy task reported failure")
	}
	if report.Results[1].Success {
		t.Error("broken task reported success")
	}
	merged, _ := os.ReadFile(report.MergedPath)
	if !strings.Contains(string(merged), "Analysis failed") {
		t.Error("merged report should note the failed task")
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "analysis")
	inv := &fakeInvoker{}
	pool := NewPool(inv, outDir, 2)

	var tasks []Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, Task{Name: string(rune('a' + i)), RepoPath: t.TempDir()})
	}
	if _, err := pool.Run(context.Background(), tasks); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if inv.peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", inv.peak)
	}
}

func TestPoolClampsWorkers(t *testing.T) {
	if p := NewPool(&fakeInvoker{}, t.TempDir(), 100); p.workers != MaxWorkers {
		t.Errorf("workers = %d, want %d", p.workers, MaxWorkers)
	}
	if p := NewPool(&fakeInvoker{}, t.TempDir(), 0); p.workers != 1 {
		t.Errorf("workers = %d, want 1", p.workers)
	}
}
