package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// Store manages artifact storage for a run.
type Store struct {
	RunID   string
	BaseDir string // <workDir>/.maintain/runs/<run_id>
}

// New creates a store for a given run ID, rooted at workDir.
func New(runID, workDir string) (*Store, error) {
	base := filepath.Join(workDir, ".maintain", "runs", runID)
	if err := os.MkdirAll(filepath.Join(base, "tasks"), 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{RunID: runID, BaseDir: base}, nil
}

// TaskOutputPath returns the file that holds the output of the index-th task.
func (s *Store) TaskOutputPath(index int, name string) string {
	return filepath.Join(s.BaseDir, "tasks", fmt.Sprintf("%02d-%s.out", index+1, fileSafe(name)))
}

// WriteTaskOutput writes the console output of one task. Empty output still
// produces a file so the directory mirrors the executed tasks.
func (s *Store) WriteTaskOutput(index int, name, output string) error {
	return os.WriteFile(s.TaskOutputPath(index, name), []byte(output), 0o644)
}

// WriteResult writes the final report JSON.
func (s *Store) WriteResult(result any) error {
	data, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.BaseDir, "report.json"), data, 0o644)
}

// ReadResult decodes report.json into v.
func (s *Store) ReadResult(v any) error {
	data, err := os.ReadFile(filepath.Join(s.BaseDir, "report.json"))
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, v)
}

var unsafeChars = strings.NewReplacer(":", "_", "/", "_", "\\", "_", " ", "_")

func fileSafe(name string) string {
	return unsafeChars.Replace(name)
}
