package plan

import (
	"fmt"
	"strings"

	dagerrors "github.com/stevehiehn/maintain/internal/errors"
	"github.com/stevehiehn/maintain/internal/template"
)

// Validate checks a plan for structural correctness. Required inputs are
// checked only when providedInputs is non-nil, e.g. not in validate-only mode.
func Validate(p *Plan, providedInputs map[string]string) error {
	if providedInputs != nil {
		for name, inp := range p.Inputs {
			if !inp.Required {
				continue
			}
			if _, ok := providedInputs[name]; !ok && inp.Default == "" {
				return &dagerrors.RunError{
					Type:    dagerrors.ValidationError,
					Message: fmt.Sprintf("missing required input %q", name),
					Hint:    fmt.Sprintf("Provide --input %s=<value>", name),
				}
			}
		}
	}

	for i, t := range p.Tasks {
		if err := CheckTaskName(i, t); err != nil {
			return err
		}
		for _, arg := range t.Args {
			for _, ref := range template.InputRefs(arg) {
				if _, ok := p.Inputs[ref]; !ok {
					return &dagerrors.RunError{
						Type:    dagerrors.ValidationError,
						Task:    t.Name,
						Message: fmt.Sprintf("task references unknown input %q", ref),
					}
				}
			}
		}
	}
	return nil
}

// CheckTaskName rejects a task at index i whose name is empty or contains
// whitespace.
func CheckTaskName(i int, t Task) error {
	if t.Name == "" {
		return &dagerrors.RunError{
			Type:    dagerrors.ValidationError,
			Message: fmt.Sprintf("task at index %d has no name", i),
		}
	}
	if strings.ContainsAny(t.Name, " \t\n") {
		return &dagerrors.RunError{
			Type:    dagerrors.ValidationError,
			Task:    t.Name,
			Message: "task name contains whitespace",
			Hint:    "Put arguments under args, or use the scalar form \"name --flag\"",
		}
	}
	return nil
}

// CheckApproval rejects plans that contain destructive tasks unless approve is set.
func CheckApproval(p *Plan, approve bool) error {
	if approve {
		return nil
	}
	for _, t := range p.Tasks {
		if t.Destructive {
			return dagerrors.NewPreconditionError(t.String(),
				"task is destructive and --approve was not set",
				"Re-run with --approve to allow destructive tasks")
		}
	}
	return nil
}
