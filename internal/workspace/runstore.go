package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunRecord is the persisted state of one generation run.
type RunRecord struct {
	ID          string                `json:"id"`
	Repo        string                `json:"repo"`
	Model       string                `json:"model"`
	Workspace   string                `json:"workspace"`
	Status      string                `json:"status"` // "in_progress", "completed", "failed"
	Success     bool                  `json:"success"`
	Steps       map[string]StepRecord `json:"steps"`
	OutputPaths map[string]string     `json:"output_paths"`
	Errors      []string              `json:"errors"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

// StepRecord is the persisted outcome of one pipeline step.
type StepRecord struct {
	Success      bool     `json:"success"`
	Partial      bool     `json:"partial"`
	MissingFiles []string `json:"missing_files,omitempty"`
	Excerpt      string   `json:"excerpt,omitempty"`
	Duration     string   `json:"duration,omitempty"`
}

// RunStore persists run records on disk, one directory per run.
type RunStore struct {
	baseDir string
}

// NewRunStore creates a RunStore rooted at baseDir.
func NewRunStore(baseDir string) *RunStore {
	return &RunStore{baseDir: baseDir}
}

// DefaultRunStore returns a RunStore at ~/.docfactory/runs, creating the
// directory if needed.
func DefaultRunStore() (*RunStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".docfactory", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &RunStore{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *RunStore) BaseDir() string {
	return s.baseDir
}

func (s *RunStore) runDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *RunStore) runPath(id string) string {
	return filepath.Join(s.runDir(id), "run.json")
}

// NewRunID returns a timestamp-based run identifier.
func NewRunID() string {
	return time.Now().UTC().Format("20060102-150405")
}

// Create initialises a new run record on disk.
func (s *RunStore) Create(id, repo, model, workspaceDir string) (*RunRecord, error) {
	if Exists(s.runDir(id)) {
		return nil, fmt.Errorf("run %s already exists", id)
	}
	if err := os.MkdirAll(s.runDir(id), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir run dir: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	rec := &RunRecord{
		ID:          id,
		Repo:        repo,
		Model:       model,
		Workspace:   workspaceDir,
		Status:      "in_progress",
		Steps:       make(map[string]StepRecord),
		OutputPaths: make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := WriteJSON(s.runPath(id), rec); err != nil {
		return nil, fmt.Errorf("write run.json: %w", err)
	}
	return rec, nil
}

// Get reads the run record for id.
func (s *RunStore) Get(id string) (*RunRecord, error) {
	var rec RunRecord
	if err := ReadJSON(s.runPath(id), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, err
	}
	return &rec, nil
}

// Update performs a read-modify-write of the run record.
func (s *RunStore) Update(id string, fn func(*RunRecord)) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	fn(rec)
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return WriteJSON(s.runPath(id), rec)
}

// List returns all run records, newest first.
func (s *RunStore) List() ([]RunRecord, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var runs []RunRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		runs = append(runs, *rec)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

// SavePrompt persists the rendered prompt sent to the agent for a step, so a
// run can be replayed or inspected afterwards.
func (s *RunStore) SavePrompt(id, step, prompt string) error {
	path := filepath.Join(s.runDir(id), "prompts", step+".md")
	return WriteAtomic(path, []byte(prompt))
}

// SaveOutput persists the raw agent output for a step.
func (s *RunStore) SaveOutput(id, step, output string) error {
	path := filepath.Join(s.runDir(id), "output", step+".log")
	return WriteAtomic(path, []byte(output))
}
