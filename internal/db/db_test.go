package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestRunEventsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	if err := d.LogRunEvent("run-1", "overview", "step_started", ""); err != nil {
		t.Fatalf("LogRunEvent: %v", err)
	}
	if err := d.LogRunEvent("run-1", "generate", "fanout_partial", "5/10"); err != nil {
		t.Fatalf("LogRunEvent: %v", err)
	}
	if err := d.LogRunEvent("run-2", "", "created", ""); err != nil {
		t.Fatalf("LogRunEvent: %v", err)
	}

	events, err := d.GetRunEvents("run-1")
	if err != nil {
		t.Fatalf("GetRunEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != "step_started" || events[1].Detail != "5/10" {
		t.Errorf("events = %+v", events)
	}
}

func TestStepRunsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	err := d.LogStepRun(StepRun{
		RunID: "run-1", Step: "manifest", Attempts: 2,
		Success: true, Partial: true, Missing: 1, Discarded: 4, DurationMs: 1200,
	})
	if err != nil {
		t.Fatalf("LogStepRun: %v", err)
	}

	steps, err := d.GetStepRuns("run-1")
	if err != nil {
		t.Fatalf("GetStepRuns: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("got %d step runs, want 1", len(steps))
	}
	s := steps[0]
	if !s.Success || !s.Partial || s.Missing != 1 || s.Discarded != 4 || s.Attempts != 2 {
		t.Errorf("step run = %+v", s)
	}
}

func TestGetRunEventsEmpty(t *testing.T) {
	d := openTestDB(t)
	events, err := d.GetRunEvents("nope")
	if err != nil {
		t.Fatalf("GetRunEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}
