// Package orchestrator sequences the documentation pipeline: a fixed series
// of agent steps, the fan-out wait, and post-processing. Individual step
// failures degrade the run; only gating artifacts and a fan-out that never
// started abort it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lucasnoah/docfactory/internal/config"
	"github.com/lucasnoah/docfactory/internal/db"
	"github.com/lucasnoah/docfactory/internal/manifest"
	"github.com/lucasnoah/docfactory/internal/postprocess"
	"github.com/lucasnoah/docfactory/internal/prompt"
	"github.com/lucasnoah/docfactory/internal/source"
	"github.com/lucasnoah/docfactory/internal/step"
	"github.com/lucasnoah/docfactory/internal/waiter"
	"github.com/lucasnoah/docfactory/internal/workspace"
)

// ErrGatingArtifact reports that an artifact every later step depends on was
// never created. Continuing would fail each remaining step for the same root
// cause.
var ErrGatingArtifact = errors.New("gating artifact missing")

// PipelineRun is the aggregated outcome of one pipeline execution. It is
// mutated by each step and immutable once Run returns.
type PipelineRun struct {
	ID          string
	RepoPath    string
	Model       string
	Steps       map[string]*step.Result
	OutputPaths map[string]string
	Errors      []string
	Success     bool
	Wait        *waiter.Result
	Processing  *postprocess.ProcessingResult

	// Components is the parsed manifest table; MissingComponents are the
	// manifest entries the fan-out never produced a directory for.
	Components        []manifest.Component
	MissingComponents []string
}

// stepSpec declares one pipeline step: its prompt template, the files that
// must exist afterwards, and whether their absence gates the rest of the run.
type stepSpec struct {
	name     string
	role     string
	template string
	expected []string
	gating   bool
}

// Orchestrator wires the pipeline components together.
type Orchestrator struct {
	cfg       *config.Config
	ws        *workspace.Workspace
	repo      *source.Repo
	exec      *step.Executor
	wait      *waiter.Waiter
	store     *workspace.RunStore
	log       *db.DB
	processor *postprocess.Processor
	progress  io.Writer
}

// New creates an Orchestrator. processor may be nil to skip post-processing;
// log may be nil to skip event logging.
func New(
	cfg *config.Config,
	ws *workspace.Workspace,
	repo *source.Repo,
	exec *step.Executor,
	wait *waiter.Waiter,
	store *workspace.RunStore,
	log *db.DB,
	processor *postprocess.Processor,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		ws:        ws,
		repo:      repo,
		exec:      exec,
		wait:      wait,
		store:     store,
		log:       log,
		processor: processor,
	}
}

// SetProgress sets a writer for live progress output.
func (o *Orchestrator) SetProgress(w io.Writer) {
	o.progress = w
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, format+"\n", args...)
	}
}

func (o *Orchestrator) logEvent(runID, stepName, event, detail string) {
	if o.log != nil {
		_ = o.log.LogRunEvent(runID, stepName, event, detail)
	}
}

// steps returns the fixed pipeline sequence. Order is part of the filesystem
// protocol: each step reads what earlier steps wrote.
func (o *Orchestrator) steps() []stepSpec {
	return []stepSpec{
		{name: "overview", role: "architect", template: "overview.md", expected: []string{o.ws.OverviewPath()}, gating: true},
		{name: "manifest", role: "architect", template: "manifest.md", expected: []string{o.ws.ManifestPath()}, gating: true},
		{name: "allocation", role: "planner", template: "allocation.md", expected: []string{o.ws.AllocationPath()}},
		{name: "structure", role: "planner", template: "structure.md", expected: []string{o.ws.DocTreePath()}},
		// The generate step's own exit is meaningless: completion of the
		// fan-out it spawns is inferred by the waiter afterwards.
		{name: "generate", role: "writer", template: "generate.md"},
		{name: "index", role: "writer", template: "index.md", expected: []string{o.ws.IndexPath()}},
	}
}

// Run executes the full pipeline and returns the aggregated result. The
// returned error is non-nil only for aborts: a gating artifact that never
// appeared, a fan-out that never started, or an agent that could not be
// invoked at all. Degraded runs return a result with Success=false and no
// error.
func (o *Orchestrator) Run(ctx context.Context) (*PipelineRun, error) {
	run := &PipelineRun{
		ID:          workspace.NewRunID(),
		RepoPath:    o.repo.Path,
		Model:       o.cfg.Agent.Model,
		Steps:       make(map[string]*step.Result),
		OutputPaths: make(map[string]string),
	}

	if err := o.ws.Init(); err != nil {
		return run, fmt.Errorf("init workspace: %w", err)
	}
	if _, err := o.store.Create(run.ID, o.repo.Path, run.Model, o.ws.Root()); err != nil {
		return run, fmt.Errorf("create run record: %w", err)
	}
	o.logEvent(run.ID, "", "created", o.repo.Path)

	for _, spec := range o.steps() {
		if ctx.Err() != nil {
			o.finish(run, "failed")
			return run, ctx.Err()
		}

		res, err := o.runStep(ctx, run, spec)
		if err != nil {
			// Invocation impossible (missing binary): nothing downstream
			// can run either.
			run.Errors = append(run.Errors, err.Error())
			o.finish(run, "failed")
			return run, err
		}

		if spec.gating && !res.Success {
			msg := fmt.Sprintf("%s never created", spec.expected[0])
			run.Errors = append(run.Errors, msg)
			o.logEvent(run.ID, spec.name, "gating_failed", msg)
			o.finish(run, "failed")
			return run, fmt.Errorf("step %s: %w: %s", spec.name, ErrGatingArtifact, msg)
		}
		if spec.name == "manifest" {
			o.loadComponents(run)
		}
		if !res.Success {
			run.Errors = append(run.Errors, fmt.Sprintf("step %s failed: %d expected files missing", spec.name, len(res.MissingFiles)))
		}

		if spec.name == "generate" {
			if err := o.awaitFanout(ctx, run); err != nil {
				o.finish(run, "failed")
				return run, err
			}
		}
	}

	if o.processor != nil {
		proc, err := o.processor.Run(ctx)
		run.Processing = proc
		if err != nil {
			run.Errors = append(run.Errors, fmt.Sprintf("post-process: %v", err))
		} else {
			run.Errors = append(run.Errors, proc.Errors...)
			run.OutputPaths["site"] = o.ws.SiteDir()
		}
		run.OutputPaths["docs"] = o.ws.BuildDocsDir()
	}

	run.Success = o.evaluate(run)
	if run.Success {
		o.finish(run, "completed")
	} else {
		o.finish(run, "failed")
	}
	return run, nil
}

// loadComponents parses the manifest table the gating check just validated.
// The component list drives the generate prompt and the fan-out coverage
// check; an unparsable table degrades both to count-only behaviour.
func (o *Orchestrator) loadComponents(run *PipelineRun) {
	data, err := os.ReadFile(o.ws.ManifestPath())
	if err != nil {
		return
	}
	run.Components = manifest.ParseComponents(string(data))
	o.logf("manifest lists %d components", len(run.Components))
	o.logEvent(run.ID, "manifest", "components_parsed", strconv.Itoa(len(run.Components)))
}

// stepContext returns extra prompt context for a step. The generate step gets
// the parsed component list so subagents work from the validated table, not
// from a re-reading of the manifest prose.
func (o *Orchestrator) stepContext(name string, run *PipelineRun) string {
	if name != "generate" || len(run.Components) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Components to document, one subagent each:\n")
	for _, c := range run.Components {
		fmt.Fprintf(&sb, "- %s (%s) -> %s\n", c.ID, c.Path, c.OutputPath)
	}
	return sb.String()
}

// runStep renders the step prompt, executes it, and records the outcome.
func (o *Orchestrator) runStep(ctx context.Context, run *PipelineRun, spec stepSpec) (*step.Result, error) {
	tmpl, err := prompt.Load(spec.template, o.ws.Root())
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", spec.name, err)
	}
	rendered, err := prompt.Render(tmpl, prompt.Vars{
		"repo_path":    o.repo.Path,
		"planning_dir": o.ws.PlanningDir(),
		"owner":        o.repo.Owner,
		"repo":         o.repo.Name,
		"branch":       o.repo.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", spec.name, err)
	}
	_ = o.store.SavePrompt(run.ID, spec.name, rendered)

	o.logf("step %s", spec.name)
	o.logEvent(run.ID, spec.name, "step_started", "")

	res, err := o.exec.Execute(ctx, step.Step{
		Name:          spec.name,
		Role:          spec.role,
		Prompt:        rendered,
		Context:       o.stepContext(spec.name, run),
		ExpectedFiles: spec.expected,
		MaxRetries:    o.cfg.Pipeline.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	run.Steps[spec.name] = res
	if len(spec.expected) > 0 {
		run.OutputPaths[spec.name] = spec.expected[0]
	}

	_ = o.store.SaveOutput(run.ID, spec.name, res.RawOutput)
	_ = o.store.Update(run.ID, func(r *workspace.RunRecord) {
		r.Steps[spec.name] = workspace.StepRecord{
			Success:      res.Success,
			Partial:      res.Partial,
			MissingFiles: res.MissingFiles,
			Excerpt:      res.Excerpt,
			Duration:     res.Duration.String(),
		}
	})
	if o.log != nil {
		_ = o.log.LogStepRun(db.StepRun{
			RunID:      run.ID,
			Step:       spec.name,
			Attempts:   res.Attempts,
			Success:    res.Success,
			Partial:    res.Partial,
			Missing:    len(res.MissingFiles),
			Discarded:  res.Discarded,
			DurationMs: int(res.Duration.Milliseconds()),
		})
	}
	o.logEvent(run.ID, spec.name, "step_finished", outcomeString(res))
	return res, nil
}

// awaitFanout parses the expected component count and waits for the
// agent-spawned fan-out to produce it.
func (o *Orchestrator) awaitFanout(ctx context.Context, run *PipelineRun) error {
	expected := o.expectedTasks(run)
	o.logf("waiting for fan-out (%d components expected)", expected)
	o.logEvent(run.ID, "generate", "fanout_wait_started", fmt.Sprintf("expected=%d", expected))

	res, err := o.wait.Wait(ctx, expected)
	run.Wait = res
	o.logEvent(run.ID, "generate", "fanout_"+string(res.State), fmt.Sprintf("%d/%d", res.Dirs, res.Expected))

	if errors.Is(err, waiter.ErrFanoutNeverStarted) {
		// Structural failure: the spawning agent never spawned anything, so
		// retrying the parent step would reproduce it.
		run.Errors = append(run.Errors, "fan-out never started: no component output appeared")
		return fmt.Errorf("step generate: %w", err)
	}
	if err != nil {
		return err
	}

	if !res.Success {
		run.Errors = append(run.Errors, fmt.Sprintf("fan-out timed out with no output after %s", res.Elapsed))
	} else if res.State != waiter.Succeeded {
		// Partial coverage is accepted; note it on the generate step.
		if sr, ok := run.Steps["generate"]; ok {
			sr.Partial = true
		}
	}

	if missing := o.missingComponents(run); len(missing) > 0 {
		run.MissingComponents = missing
		o.logf("components without output: %s", strings.Join(missing, ", "))
		o.logEvent(run.ID, "generate", "components_missing", strings.Join(missing, ","))
	}
	return nil
}

// missingComponents names the manifest components the fan-out produced no
// directory for. The count-based waiter cannot tell which half of a partial
// fan-out is missing; the manifest can.
func (o *Orchestrator) missingComponents(run *PipelineRun) []string {
	if len(run.Components) == 0 {
		return nil
	}
	entries, err := os.ReadDir(o.ws.FanoutDir())
	if err != nil {
		return nil
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			present[e.Name()] = true
		}
	}

	var missing []string
	for _, c := range run.Components {
		if !present[c.ID] {
			missing = append(missing, c.ID)
		}
	}
	return missing
}

// expectedTasks reads total_tasks from the allocation plan, falling back to
// the configured conservative default when the plan is unparsable.
func (o *Orchestrator) expectedTasks(run *PipelineRun) int {
	fallback := o.cfg.Pipeline.FallbackTasks

	data, err := os.ReadFile(o.ws.AllocationPath())
	if err != nil {
		o.logf("allocation plan unreadable, assuming %d tasks", fallback)
		o.logEvent(run.ID, "allocation", "fallback_expected_count", fmt.Sprintf("%d", fallback))
		return fallback
	}

	n, ok := manifest.ParseTotalTasks(string(data), fallback)
	if !ok {
		o.logf("allocation plan unparsable, assuming %d tasks", fallback)
		o.logEvent(run.ID, "allocation", "fallback_expected_count", fmt.Sprintf("%d", fallback))
	}
	return n
}

// evaluate decides overall success: every step succeeded (partials count),
// the wait succeeded, and post-processing reported no errors.
func (o *Orchestrator) evaluate(run *PipelineRun) bool {
	if len(run.Errors) > 0 {
		return false
	}
	for _, res := range run.Steps {
		if !res.Success {
			return false
		}
	}
	if run.Wait != nil && !run.Wait.Success {
		return false
	}
	if run.Processing != nil && !run.Processing.Success() {
		return false
	}
	return true
}

// finish persists the terminal run state.
func (o *Orchestrator) finish(run *PipelineRun, status string) {
	_ = o.store.Update(run.ID, func(r *workspace.RunRecord) {
		r.Status = status
		r.Success = status == "completed"
		r.Errors = run.Errors
		for name, path := range run.OutputPaths {
			r.OutputPaths[name] = path
		}
	})
	o.logEvent(run.ID, "", status, "")
}

func outcomeString(res *step.Result) string {
	switch {
	case res.Success && res.Partial:
		return "partial"
	case res.Success:
		return "success"
	default:
		return "fail"
	}
}
