package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/trellisdev/trellis/internal/task"
)

// TaskState records how a dispatched task ended.
type TaskState string

const (
	StateDone   TaskState = "done"
	StateFailed TaskState = "failed"
)

// TaskResult captures the outcome of one dispatched task.
type TaskResult struct {
	ID         task.ID   `json:"id"`
	Name       string    `json:"name"`
	State      TaskState `json:"state"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Report is the persisted snapshot of a whole run.
type Report struct {
	RunID      string       `json:"run_id"`
	Workspace  string       `json:"workspace,omitempty"`
	Results    []TaskResult `json:"results"`
	Stranded   []task.ID    `json:"stranded,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Failed returns the results of tasks that ended in failure.
func (r Report) Failed() []TaskResult {
	var failed []TaskResult
	for _, result := range r.Results {
		if result.State == StateFailed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Succeeded reports whether every task was dispatched and finished cleanly.
func (r Report) Succeeded() bool {
	return len(r.Failed()) == 0 && len(r.Stranded) == 0
}

// ErrReportNotFound is returned when no persisted report exists for a run id.
var ErrReportNotFound = errors.New("runner: report not found")

// Store persists run reports as JSON files under a runs directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the report to <dir>/<run-id>.json and returns the path.
func (s *Store) Save(report Report) (string, error) {
	if report.RunID == "" {
		return "", fmt.Errorf("runner: report requires a run id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, report.RunID+".json")
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the persisted report for a run id if present.
func (s *Store) Load(runID string) (Report, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, runID+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, ErrReportNotFound
		}
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, err
	}
	return report, nil
}
