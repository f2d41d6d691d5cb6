package engine

import dagerrors "github.com/stevehiehn/maintain/internal/errors"

// Task statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusDryRun  = "dry-run"
	StatusExplain = "explain"
)

// Report is the structured output of a plan execution. Results are in task
// order and stop at the task that failed.
type Report struct {
	RunID     string              `json:"run_id"`
	Plan      string              `json:"plan"`
	Success   bool                `json:"success"`
	Summary   string              `json:"summary,omitempty"` // success marker; empty unless every task succeeded
	Results   []TaskResult        `json:"results"`
	Failure   *dagerrors.RunError `json:"failure,omitempty"`
	Artifacts []string            `json:"artifacts,omitempty"`
}

// TaskResult describes the outcome of a single task.
type TaskResult struct {
	Task        string   `json:"task"` // name and arguments as sent to the console
	Name        string   `json:"name"`
	Args        []string `json:"args,omitempty"`
	Status      string   `json:"status"`
	Output      string   `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Description string   `json:"description,omitempty"` // for explain/dry-run
	DryRunInfo  string   `json:"dry_run_info,omitempty"`
}

// Names lists the task names in report order.
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.Results))
	for _, tr := range r.Results {
		names = append(names, tr.Name)
	}
	return names
}

// Succeeded counts results with StatusSuccess.
func (r *Report) Succeeded() int {
	n := 0
	for _, tr := range r.Results {
		if tr.Status == StatusSuccess {
			n++
		}
	}
	return n
}
