package db

import (
	"fmt"
)

// RunEvent is one row of the run event log.
type RunEvent struct {
	RunID     string
	Step      string
	Event     string
	Detail    string
	CreatedAt string
}

// StepRun is one recorded step execution.
type StepRun struct {
	RunID      string
	Step       string
	Attempts   int
	Success    bool
	Partial    bool
	Missing    int
	Discarded  int
	DurationMs int
	CreatedAt  string
}

// LogRunEvent appends an event to the run log.
func (d *DB) LogRunEvent(runID, step, event, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run_id, step, event, detail) VALUES (?, ?, ?, ?)`,
		runID, step, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// LogStepRun records a completed step execution.
func (d *DB) LogStepRun(sr StepRun) error {
	_, err := d.conn.Exec(
		`INSERT INTO step_runs (run_id, step, attempts, success, partial, missing, discarded, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.RunID, sr.Step, sr.Attempts, sr.Success, sr.Partial, sr.Missing, sr.Discarded, sr.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("log step run: %w", err)
	}
	return nil
}

// GetRunEvents returns all events for a run in insertion order.
func (d *DB) GetRunEvents(runID string) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, step, event, detail, created_at FROM run_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		if err := rows.Scan(&e.RunID, &e.Step, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetStepRuns returns all step executions for a run in insertion order.
func (d *DB) GetStepRuns(runID string) ([]StepRun, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, step, attempts, success, partial, missing, discarded, duration_ms, created_at
		 FROM step_runs WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query step runs: %w", err)
	}
	defer rows.Close()

	var steps []StepRun
	for rows.Next() {
		var s StepRun
		if err := rows.Scan(&s.RunID, &s.Step, &s.Attempts, &s.Success, &s.Partial, &s.Missing, &s.Discarded, &s.DurationMs, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step run: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
