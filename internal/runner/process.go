package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
)

// Result holds the output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string // stdout and stderr in arrival order
	ExitCode int
	Err      error // set when the process could not be started
}

// Process describes a process to run. Env is used verbatim; a nil Env gives the
// child an empty environment rather than inheriting ours.
type Process struct {
	Argv []string
	Dir  string
	Env  []string
}

// Run executes p and captures its output.
func Run(ctx context.Context, p Process) *Result {
	if len(p.Argv) == 0 {
		return &Result{ExitCode: -1, Err: errors.New("empty command")}
	}
	cmd := exec.CommandContext(ctx, p.Argv[0], p.Argv[1:]...)
	cmd.Dir = p.Dir
	cmd.Env = p.Env
	if cmd.Env == nil {
		cmd.Env = []string{}
	}

	var stdout, stderr bytes.Buffer
	combined := &lockedBuffer{}
	cmd.Stdout = io.MultiWriter(&stdout, combined)
	cmd.Stderr = io.MultiWriter(&stderr, combined)

	res := &Result{}
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = err
		}
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Combined = combined.String()
	return res
}

// lockedBuffer serializes writes from the stdout and stderr copy goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
