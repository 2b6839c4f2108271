// Package agent invokes the external documentation agent one prompt at a
// time. The agent may spawn its own sub-invocations and write files anywhere
// under the working directory; none of that is visible here. The process
// result is therefore only one signal among several — the filesystem is the
// authoritative one.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// maxLine bounds a single stdout event line. Agent tool results can be large.
const maxLine = 1 << 20

// Request describes one agent invocation.
type Request struct {
	Role    string
	Prompt  string
	Workdir string
	Context string // optional extra context appended to the prompt
}

// Result is the normalized outcome of one invocation.
type Result struct {
	Success   bool
	RawOutput string
	Stderr    string
	Events    []Event
	Discarded int // stdout lines that did not decode as events
	Dropped   int // events not delivered to the channel under backpressure
	TimedOut  bool
	ExitCode  int
}

// ProcessRunner abstracts launching the agent process. Interface for testing.
type ProcessRunner interface {
	Run(ctx context.Context, dir, name string, args []string, onLine func(string)) (stderr string, exitCode int, err error)
}

// ExecRunner implements ProcessRunner with os/exec, streaming stdout
// line-by-line.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir, name string, args []string, onLine func(string)) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", -1, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", -1, err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	// Scanner errors (e.g. oversized line) are not fatal: the stream is
	// best-effort and the process exit code still arrives below.

	err = cmd.Wait()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return stderrBuf.String(), -1, err
		}
	}
	return stderrBuf.String(), exitCode, nil
}

// Invoker runs the external agent binary.
type Invoker struct {
	binary   string
	model    string
	timeout  time.Duration
	runner   ProcessRunner
	events   chan<- Event // optional; delivery is non-blocking
	progress io.Writer
}

// New creates an Invoker for the given binary and model.
func New(binary, model string, timeout time.Duration) *Invoker {
	return &Invoker{
		binary:  binary,
		model:   model,
		timeout: timeout,
		runner:  &ExecRunner{},
	}
}

// SetRunner overrides the process runner (for testing).
func (inv *Invoker) SetRunner(r ProcessRunner) {
	inv.runner = r
}

// SetEvents attaches a channel that receives decoded events as they stream.
// Sends never block: events the consumer cannot keep up with are dropped and
// counted in the result.
func (inv *Invoker) SetEvents(ch chan<- Event) {
	inv.events = ch
}

// SetProgress sets a writer for live progress output.
func (inv *Invoker) SetProgress(w io.Writer) {
	inv.progress = w
}

func (inv *Invoker) logf(format string, args ...interface{}) {
	if inv.progress != nil {
		fmt.Fprintf(inv.progress, "  → "+format+"\n", args...)
	}
}

// CheckBinary verifies the agent binary is on PATH. Missing binary is fatal
// for the whole run, so callers surface this before doing anything else.
func (inv *Invoker) CheckBinary() error {
	if _, err := exec.LookPath(inv.binary); err != nil {
		return fmt.Errorf("agent binary %q not found: %w", inv.binary, err)
	}
	return nil
}

// Invoke runs the agent once. A returned error means the invocation could
// not be attempted at all (binary missing, pipe failure); agent failures —
// non-zero exit, timeout — come back in the Result with Success=false.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := inv.CheckBinary(); err != nil {
		return nil, err
	}
	return inv.invoke(ctx, req)
}

func (inv *Invoker) invoke(ctx context.Context, req Request) (*Result, error) {
	prompt := req.Prompt
	if req.Context != "" {
		prompt = prompt + "\n\n## Additional Context\n" + req.Context
	}

	args := []string{
		"--print",
		"--model", inv.model,
		"--output-format", "stream-json",
	}
	if req.Role != "" {
		args = append(args, "--append-system-prompt", req.Role)
	}
	args = append(args, "--", prompt)

	runCtx := ctx
	var cancel context.CancelFunc
	if inv.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	res := &Result{}
	var raw strings.Builder

	inv.logf("invoking %s (model %s, role %q)", inv.binary, inv.model, req.Role)
	start := time.Now()

	stderr, exitCode, err := inv.runner.Run(runCtx, req.Workdir, inv.binary, args, func(line string) {
		raw.WriteString(line)
		raw.WriteByte('\n')

		ev, ok := DecodeEvent([]byte(line))
		if !ok {
			res.Discarded++
			return
		}
		res.Events = append(res.Events, ev)
		if inv.events != nil {
			select {
			case inv.events <- ev:
			default:
				res.Dropped++
			}
		}
	})

	res.RawOutput = raw.String()
	res.Stderr = stderr
	res.ExitCode = exitCode

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("agent binary %q not found: %w", inv.binary, err)
		}
		if runCtx.Err() != nil {
			// Killed after exceeding the timeout; partial stdout is retained.
			res.TimedOut = true
			inv.logf("agent timed out after %s", time.Since(start).Round(time.Second))
			return res, nil
		}
		return nil, fmt.Errorf("run agent: %w", err)
	}

	if runCtx.Err() != nil {
		res.TimedOut = true
		inv.logf("agent timed out after %s", time.Since(start).Round(time.Second))
		return res, nil
	}

	res.Success = exitCode == 0
	inv.logf("agent exited %d in %s (%d events, %d discarded lines)",
		exitCode, time.Since(start).Round(time.Second), len(res.Events), res.Discarded)
	return res, nil
}
