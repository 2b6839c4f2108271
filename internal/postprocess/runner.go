package postprocess

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ToolRunner abstracts the external renderer/builder CLIs. Interface for
// testing.
type ToolRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (output string, exitCode int, err error)
}

// ExecToolRunner shells out with a timeout per invocation.
type ExecToolRunner struct {
	Timeout time.Duration
}

func (e *ExecToolRunner) Run(ctx context.Context, dir, name string, args ...string) (string, int, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), -1, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), 0, nil
}
