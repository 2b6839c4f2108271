// Package waiter infers completion of agent-spawned fan-out work purely from
// the growth of file and directory counts under a watched path. The fan-out
// runs entirely outside this process: there is no done signal, no pid, no
// channel — only a filesystem view that is treated as a monotonically
// non-decreasing approximation, never as transactional truth.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lucasnoah/docfactory/internal/workspace"
)

// ErrFanoutNeverStarted reports that no subagent output ever appeared. It is
// distinguished from an ordinary timeout because retrying the parent step is
// pointless when the spawning agent never attempted to spawn anything.
var ErrFanoutNeverStarted = errors.New("fan-out produced no output before early-failure threshold")

// State is the terminal state of a wait.
type State string

const (
	Succeeded        State = "succeeded"
	SucceededPartial State = "succeeded_partial"
	NoOutputFailure  State = "no_output_failure"
	TimedOut         State = "timed_out"
)

// Result describes how a wait ended.
type Result struct {
	State    State
	Success  bool
	Expected int
	Dirs     int
	Files    int
	Elapsed  time.Duration
	Ticks    int
}

// Prober reports fan-out progress. Interface for testing.
type Prober interface {
	Counts() (dirs, files int)
}

// DirProber probes a directory on the real filesystem.
type DirProber struct {
	Dir string
}

func (p *DirProber) Counts() (int, int) {
	return workspace.CountFanout(p.Dir)
}

// Config holds the wait thresholds.
type Config struct {
	Poll       time.Duration // interval between probes
	EarlyFail  time.Duration // give up if nothing appeared by then
	StallTicks int           // unchanged ticks before accepting a partial result
	Timeout    time.Duration // overall bound
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Poll:       10 * time.Second,
		EarlyFail:  45 * time.Second,
		StallTicks: 9,
		Timeout:    600 * time.Second,
	}
}

// Waiter polls a Prober until one of the terminal conditions is met.
type Waiter struct {
	prober   Prober
	cfg      Config
	sleep    func(time.Duration)
	progress io.Writer
}

// New creates a Waiter.
func New(prober Prober, cfg Config) *Waiter {
	return &Waiter{
		prober: prober,
		cfg:    cfg,
		sleep:  time.Sleep,
	}
}

// SetSleep overrides the inter-tick sleep (for testing).
func (w *Waiter) SetSleep(fn func(time.Duration)) {
	w.sleep = fn
}

// SetProgress sets a writer for live progress output.
func (w *Waiter) SetProgress(out io.Writer) {
	w.progress = out
}

func (w *Waiter) logf(format string, args ...interface{}) {
	if w.progress != nil {
		fmt.Fprintf(w.progress, "  → "+format+"\n", args...)
	}
}

// Wait polls until the fan-out succeeds, stalls at an acceptable fraction,
// demonstrably never started, or times out. expected below 1 is clamped to 1.
// Elapsed time is accounted in poll intervals, so the decision sequence is a
// pure function of the observed counts.
//
// NoOutputFailure is returned as ErrFanoutNeverStarted: the caller must treat
// it as fatal, not as a retryable step failure.
func (w *Waiter) Wait(ctx context.Context, expected int) (*Result, error) {
	if expected < 1 {
		expected = 1
	}
	partialFloor := (expected + 1) / 2

	var (
		elapsed       time.Duration
		ticks         int
		prevDirs      = -1
		prevFiles     = -1
		stable        int
		stalledLogged bool
	)

	for {
		dirs, files := w.prober.Counts()
		res := &Result{Expected: expected, Dirs: dirs, Files: files, Elapsed: elapsed, Ticks: ticks}

		// 1. Full completion wins immediately.
		if dirs >= expected {
			res.State = Succeeded
			res.Success = true
			w.logf("fan-out complete: %d/%d components", dirs, expected)
			return res, nil
		}

		// 2. Nothing ever appeared: structural failure, not slowness.
		if elapsed > w.cfg.EarlyFail && dirs == 0 {
			res.State = NoOutputFailure
			w.logf("no fan-out output after %s", elapsed)
			return res, ErrFanoutNeverStarted
		}

		// 3./4. Stability bookkeeping.
		if dirs == prevDirs && files == prevFiles {
			stable++
			if stable >= w.cfg.StallTicks {
				if dirs >= partialFloor {
					// Accept what exists; half the fan-out is enough to
					// proceed with degraded coverage.
					res.State = SucceededPartial
					res.Success = true
					w.logf("fan-out stalled at %d/%d components (%d%%), accepting partial result",
						dirs, expected, dirs*100/expected)
					return res, nil
				}
				if !stalledLogged {
					w.logf("fan-out stalled at %d/%d components, below partial floor %d; continuing to wait",
						dirs, expected, partialFloor)
					stalledLogged = true
				}
			}
		} else {
			if prevDirs >= 0 {
				w.logf("fan-out progress: %d/%d components, %d files", dirs, expected, files)
			}
			stable = 0
			stalledLogged = false
		}
		prevDirs, prevFiles = dirs, files

		// 5. Global timeout: best-effort partial result if anything exists.
		if elapsed >= w.cfg.Timeout {
			res.State = TimedOut
			res.Success = dirs > 0
			w.logf("fan-out wait timed out at %s with %d/%d components", elapsed, dirs, expected)
			return res, nil
		}

		w.sleep(w.cfg.Poll)
		elapsed += w.cfg.Poll
		ticks++

		if ctx.Err() != nil {
			res.State = TimedOut
			res.Success = dirs > 0
			res.Elapsed = elapsed
			res.Ticks = ticks
			return res, ctx.Err()
		}
	}
}
