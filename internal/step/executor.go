// Package step wraps a single agent invocation with a file-based validation
// contract and a bounded retry loop. The agent's exit status is advisory;
// what decides a step's outcome is which of its expected artifacts exist
// afterwards.
package step

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lucasnoah/docfactory/internal/agent"
	"github.com/lucasnoah/docfactory/internal/workspace"
)

// DefaultBackoff is the pause between retries of the same invocation.
// Retries are idempotent by construction: agents are told to overwrite
// their outputs, not append.
const DefaultBackoff = 3 * time.Second

const excerptLen = 400

// Step describes one pipeline step.
type Step struct {
	Name          string
	Role          string
	Prompt        string
	Context       string
	ExpectedFiles []string
	MaxRetries    int
}

// Result is the outcome of executing a step.
type Result struct {
	Name         string
	Success      bool
	Partial      bool
	Excerpt      string
	MissingFiles []string
	Attempts     int
	Discarded    int
	Duration     time.Duration
	RawOutput    string
}

// Invoker is the subset of agent.Invoker the executor needs.
type Invoker interface {
	Invoke(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// Executor runs steps against a working directory.
type Executor struct {
	invoker  Invoker
	workdir  string
	backoff  time.Duration
	sleep    func(time.Duration)
	progress io.Writer
}

// NewExecutor creates an Executor. workdir is the shared workspace root the
// agent runs in.
func NewExecutor(invoker Invoker, workdir string) *Executor {
	return &Executor{
		invoker: invoker,
		workdir: workdir,
		backoff: DefaultBackoff,
		sleep:   time.Sleep,
	}
}

// SetBackoff overrides the retry backoff (for testing).
func (e *Executor) SetBackoff(d time.Duration) {
	e.backoff = d
}

// SetSleep overrides the sleep function (for testing).
func (e *Executor) SetSleep(fn func(time.Duration)) {
	e.sleep = fn
}

// SetProgress sets a writer for live progress output.
func (e *Executor) SetProgress(w io.Writer) {
	e.progress = w
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.progress != nil {
		fmt.Fprintf(e.progress, "  → "+format+"\n", args...)
	}
}

// Execute invokes the agent for a step, validates its expected files, and
// retries the same invocation while any are missing and retries remain.
// After exhausting retries the step succeeds as partial if at least one
// expected file exists. A returned error means the invocation itself could
// not run (missing binary) — that is fatal for the whole pipeline.
func (e *Executor) Execute(ctx context.Context, s Step) (*Result, error) {
	start := time.Now()
	result := &Result{Name: s.Name}

	for attempt := 0; ; attempt++ {
		result.Attempts = attempt + 1
		e.logf("step %s: attempt %d/%d", s.Name, attempt+1, s.MaxRetries+1)

		res, err := e.invoker.Invoke(ctx, agent.Request{
			Role:    s.Role,
			Prompt:  s.Prompt,
			Workdir: e.workdir,
			Context: s.Context,
		})
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		result.RawOutput = res.RawOutput
		result.Excerpt = excerpt(res)
		result.Discarded = res.Discarded

		missing := missingFiles(s.ExpectedFiles)
		if len(missing) == 0 {
			result.Success = true
			result.Duration = time.Since(start)
			e.logf("step %s: all %d expected files present", s.Name, len(s.ExpectedFiles))
			return result, nil
		}

		if attempt >= s.MaxRetries {
			result.MissingFiles = missing
			existing := len(s.ExpectedFiles) - len(missing)
			// Degraded output beats failing the whole run for one missing
			// artifact: downstream steps can proceed with partial coverage.
			if existing > 0 {
				result.Success = true
				result.Partial = true
				e.logf("step %s: partial success (%d/%d files)", s.Name, existing, len(s.ExpectedFiles))
			} else {
				e.logf("step %s: failed, no expected files produced", s.Name)
			}
			result.Duration = time.Since(start)
			return result, nil
		}

		e.logf("step %s: %d files missing, retrying in %s", s.Name, len(missing), e.backoff)
		e.sleep(e.backoff)

		if ctx.Err() != nil {
			result.MissingFiles = missing
			result.Duration = time.Since(start)
			return result, nil
		}
	}
}

// missingFiles returns the expected paths that do not exist yet.
func missingFiles(expected []string) []string {
	var missing []string
	for _, path := range expected {
		if !workspace.Exists(path) {
			missing = append(missing, path)
		}
	}
	return missing
}

// excerpt condenses an agent result into a short human-readable string,
// preferring the last text event over raw stream output.
func excerpt(res *agent.Result) string {
	for i := len(res.Events) - 1; i >= 0; i-- {
		if res.Events[i].Type == "text" && strings.TrimSpace(res.Events[i].Text) != "" {
			return truncate(strings.TrimSpace(res.Events[i].Text))
		}
	}
	return truncate(strings.TrimSpace(res.RawOutput))
}

func truncate(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen] + "…"
}
