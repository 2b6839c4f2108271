package step

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lucasnoah/docfactory/internal/agent"
)

// fakeInvoker returns scripted results and can create files on the Nth call,
// simulating an agent that only produces its artifacts on a later attempt.
type fakeInvoker struct {
	calls       int
	createOn    int // create files when calls == createOn (1-based); 0 = never
	createFiles []string
	err         error
	result      agent.Result
}

func (f *fakeInvoker) Invoke(ctx context.Context, req agent.Request) (*agent.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.createOn > 0 && f.calls == f.createOn {
		for _, path := range f.createFiles {
			os.MkdirAll(filepath.Dir(path), 0o755)
			os.WriteFile(path, []byte("content"), 0o644)
		}
	}
	res := f.result
	return &res, nil
}

func newTestExecutor(inv Invoker, dir string) *Executor {
	e := NewExecutor(inv, dir)
	e.SetSleep(func(time.Duration) {})
	return e
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	dir := t.TempDir()
	expected := filepath.Join(dir, "planning", "overview.md")
	inv := &fakeInvoker{createOn: 1, createFiles: []string{expected}}

	res, err := newTestExecutor(inv, dir).Execute(context.Background(), Step{
		Name:          "overview",
		ExpectedFiles: []string{expected},
		MaxRetries:    2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Partial {
		t.Errorf("Success=%v Partial=%v, want true/false", res.Success, res.Partial)
	}
	if inv.calls != 1 {
		t.Errorf("calls = %d, want 1", inv.calls)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestExecuteRetriesUntilFilesAppear(t *testing.T) {
	dir := t.TempDir()
	expected := filepath.Join(dir, "planning", "manifest.md")
	inv := &fakeInvoker{createOn: 3, createFiles: []string{expected}}

	slept := 0
	e := NewExecutor(inv, dir)
	e.SetSleep(func(time.Duration) { slept++ })

	res, err := e.Execute(context.Background(), Step{
		Name:          "manifest",
		ExpectedFiles: []string{expected},
		MaxRetries:    3,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Error("Success = false after files appeared")
	}
	if inv.calls != 3 {
		t.Errorf("calls = %d, want 3", inv.calls)
	}
	if slept != 2 {
		t.Errorf("slept %d times, want 2", slept)
	}
}

func TestExecutePartialSuccessAfterExhaustion(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.md")
	absent := filepath.Join(dir, "b.md")
	inv := &fakeInvoker{createOn: 1, createFiles: []string{present}}

	res, err := newTestExecutor(inv, dir).Execute(context.Background(), Step{
		Name:          "partial",
		ExpectedFiles: []string{present, absent},
		MaxRetries:    1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || !res.Partial {
		t.Errorf("Success=%v Partial=%v, want true/true", res.Success, res.Partial)
	}
	if len(res.MissingFiles) != 1 || res.MissingFiles[0] != absent {
		t.Errorf("MissingFiles = %v, want [%s]", res.MissingFiles, absent)
	}
	if inv.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + 1 retry)", inv.calls)
	}
}

func TestExecuteFailureWhenNothingProduced(t *testing.T) {
	dir := t.TempDir()
	absent := filepath.Join(dir, "never.md")
	inv := &fakeInvoker{}

	res, err := newTestExecutor(inv, dir).Execute(context.Background(), Step{
		Name:          "doomed",
		ExpectedFiles: []string{absent},
		MaxRetries:    2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success || res.Partial {
		t.Errorf("Success=%v Partial=%v, want false/false", res.Success, res.Partial)
	}
	if len(res.MissingFiles) != 1 {
		t.Errorf("MissingFiles = %v", res.MissingFiles)
	}
	if inv.calls != 3 {
		t.Errorf("calls = %d, want 3", inv.calls)
	}
}

func TestExecuteFatalInvokerError(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("agent binary not found")}
	_, err := newTestExecutor(inv, t.TempDir()).Execute(context.Background(), Step{Name: "x"})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestExcerptPrefersLastTextEvent(t *testing.T) {
	dir := t.TempDir()
	expected := filepath.Join(dir, "out.md")
	inv := &fakeInvoker{
		createOn:    1,
		createFiles: []string{expected},
		result: agent.Result{
			Success:   true,
			RawOutput: `{"type":"text","text":"first"}` + "\n",
			Events: []agent.Event{
				{Type: "text", Text: "first"},
				{Type: "tool", Tool: "Write"},
				{Type: "text", Text: "done writing overview"},
			},
		},
	}

	res, err := newTestExecutor(inv, dir).Execute(context.Background(), Step{
		Name:          "overview",
		ExpectedFiles: []string{expected},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Excerpt != "done writing overview" {
		t.Errorf("Excerpt = %q", res.Excerpt)
	}
}
