package engine

import (
	"io"

	"github.com/google/uuid"

	"github.com/stevehiehn/maintain/internal/template"
)

// RunContext holds state for a plan execution.
type RunContext struct {
	RunID   string
	WorkDir string // artifacts are written below WorkDir; empty disables them
	Inputs  map[string]string
	TmplCtx *template.Context
	Approve bool      // allow destructive tasks
	Stream  io.Writer // receives each task's output as soon as it completes
	Prompt  string    // shown before each task, e.g. "php artisan"
}

// NewRunContext creates a new execution context.
func NewRunContext(workDir string, inputs map[string]string, approve bool) *RunContext {
	if inputs == nil {
		inputs = map[string]string{}
	}
	return &RunContext{
		RunID:   uuid.New().String(),
		WorkDir: workDir,
		Inputs:  inputs,
		TmplCtx: &template.Context{Inputs: inputs},
		Approve: approve,
		Stream:  io.Discard,
	}
}

func (rc *RunContext) stream() io.Writer {
	if rc.Stream == nil {
		return io.Discard
	}
	return rc.Stream
}
