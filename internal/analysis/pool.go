// Package analysis fans independent read-only repository analyses out over a
// small bounded worker pool. Unlike the generation fan-out — which agents
// spawn themselves and the waiter can only observe — this pool is scheduled
// by this process: each task writes its own namespaced output file and
// results are merged only after every task has finished.
package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lucasnoah/docfactory/internal/agent"
	"github.com/lucasnoah/docfactory/internal/prompt"
	"github.com/lucasnoah/docfactory/internal/workspace"
)

// MaxWorkers caps the pool regardless of configuration.
const MaxWorkers = 8

// Task is one repository to analyze.
type Task struct {
	Name     string
	RepoPath string
	Focus    string
}

// TaskResult is the outcome of one analysis task.
type TaskResult struct {
	Name       string
	OutputPath string
	Success    bool
	Detail     string
}

// Report aggregates a pool run.
type Report struct {
	Results    []TaskResult
	MergedPath string
}

// Invoker is the subset of agent.Invoker the pool needs.
type Invoker interface {
	Invoke(ctx context.Context, req agent.Request) (*agent.Result, error)
}

// Pool runs analysis tasks with bounded parallelism.
type Pool struct {
	invoker  Invoker
	workers  int
	outDir   string
	progress io.Writer
}

// NewPool creates a Pool writing outputs under outDir. workers is clamped to
// [1, MaxWorkers].
func NewPool(invoker Invoker, outDir string, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &Pool{invoker: invoker, workers: workers, outDir: outDir}
}

// SetProgress sets a writer for live progress output.
func (p *Pool) SetProgress(w io.Writer) {
	p.progress = w
}

func (p *Pool) logf(format string, args ...interface{}) {
	if p.progress != nil {
		fmt.Fprintf(p.progress, "  → "+format+"\n", args...)
	}
}

// Run executes all tasks and merges the per-task outputs into a single
// report file. Task failures are recorded per-task, never abort the pool.
func (p *Pool) Run(ctx context.Context, tasks []Task) (*Report, error) {
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", p.outDir, err)
	}

	results := make([]TaskResult, len(tasks))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.runTask(ctx, task)
		}(i, task)
	}
	wg.Wait()

	merged, err := p.merge(results)
	if err != nil {
		return nil, err
	}
	return &Report{Results: results, MergedPath: merged}, nil
}

// runTask invokes the agent for one repository and validates its output
// file.
func (p *Pool) runTask(ctx context.Context, task Task) TaskResult {
	outPath := filepath.Join(p.outDir, task.Name+".md")
	result := TaskResult{Name: task.Name, OutputPath: outPath}

	tmpl, err := prompt.Load("analyze.md", "")
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	rendered, err := prompt.Render(tmpl, prompt.Vars{
		"repo_path":   task.RepoPath,
		"output_path": outPath,
		"focus":       task.Focus,
	})
	if err != nil {
		result.Detail = err.Error()
		return result
	}

	p.logf("analyzing %s", task.Name)
	res, err := p.invoker.Invoke(ctx, agent.Request{
		Role:    "analyst",
		Prompt:  rendered,
		Workdir: task.RepoPath,
	})
	if err != nil {
		result.Detail = err.Error()
		return result
	}

	if !workspace.Exists(outPath) {
		result.Detail = "no output file produced"
		if res.Stderr != "" {
			result.Detail = res.Stderr
		}
		return result
	}
	result.Success = true
	return result
}

// merge concatenates successful task outputs, in task order, into
// analysis.md.
func (p *Pool) merge(results []TaskResult) (string, error) {
	var sb strings.Builder
	sb.WriteString("# Cross-Repository Analysis\n")

	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(&sb, "\n## %s\n\n_Analysis failed: %s_\n", r.Name, r.Detail)
			continue
		}
		data, err := os.ReadFile(r.OutputPath)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", r.OutputPath, err)
		}
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", r.Name, strings.TrimSpace(string(data)))
	}

	path := filepath.Join(p.outDir, "analysis.md")
	if err := workspace.WriteAtomic(path, []byte(sb.String())); err != nil {
		return "", err
	}
	return path, nil
}
