package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lucasnoah/docfactory/internal/agent"
	"github.com/lucasnoah/docfactory/internal/db"
)

func TestPrintStepHistory(t *testing.T) {
	buf := new(bytes.Buffer)
	printStepHistory(buf, []db.StepRun{
		{RunID: "r1", Step: "overview", Attempts: 1, Success: true, DurationMs: 1200, CreatedAt: "2026-08-27 10:00:00"},
		{RunID: "r1", Step: "manifest", Attempts: 3, Success: true, Partial: true, Missing: 1, Discarded: 4, DurationMs: 9000, CreatedAt: "2026-08-27 10:01:00"},
		{RunID: "r1", Step: "index", Attempts: 3, DurationMs: 500, CreatedAt: "2026-08-27 10:02:00"},
	})

	out := buf.String()
	for _, want := range []string{
		"History:",
		"overview",
		"3 attempt(s)",
		"partial",
		"4 discarded lines",
		"failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
	// Clean executions carry no discard note.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "overview") && strings.Contains(line, "discarded") {
			t.Errorf("overview line should not mention discards: %s", line)
		}
	}
}

func TestPrintStepHistoryEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	printStepHistory(buf, nil)
	if buf.Len() != 0 {
		t.Errorf("empty history produced output: %q", buf.String())
	}
}

func TestStreamEvents(t *testing.T) {
	buf := new(bytes.Buffer)
	events := make(chan agent.Event, 4)
	done := streamEvents(buf, events)

	events <- agent.Event{Type: "tool", Tool: "Write"}
	events <- agent.Event{Type: "text", Text: "thinking out loud"}
	events <- agent.Event{Type: "error", Err: "rate limited"}
	close(events)
	<-done

	out := buf.String()
	if !strings.Contains(out, "tool: Write") {
		t.Errorf("tool event not printed:\n%s", out)
	}
	if !strings.Contains(out, "agent error: rate limited") {
		t.Errorf("error event not printed:\n%s", out)
	}
	// Narration text is noise at this level; progress lines cover it.
	if strings.Contains(out, "thinking out loud") {
		t.Errorf("text event should not be printed:\n%s", out)
	}
}
