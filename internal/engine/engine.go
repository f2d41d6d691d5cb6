package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stevehiehn/maintain/internal/app"
	"github.com/stevehiehn/maintain/internal/artifact"
	dagerrors "github.com/stevehiehn/maintain/internal/errors"
	"github.com/stevehiehn/maintain/internal/plan"
	"github.com/stevehiehn/maintain/internal/template"
)

// Mode controls execution behavior.
type Mode int

const (
	ModeExplain Mode = iota
	ModeDryRun
	ModeRun
)

func (m Mode) String() string {
	switch m {
	case ModeExplain:
		return "explain"
	case ModeDryRun:
		return "dry-run"
	case ModeRun:
		return "run"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// RunTasks executes tasks in order against h. It is Execute in ModeRun for an
// unnamed plan.
func RunTasks(ctx context.Context, tasks []plan.Task, h app.Handle, rc *RunContext) (*Report, error) {
	return Execute(ctx, &plan.Plan{Name: "tasks", Tasks: tasks}, h, rc, ModeRun)
}

// Execute runs a plan in the given mode. h is only used in ModeRun.
//
// In ModeRun tasks run strictly one after another. The first task whose
// invocation fails ends the run: its result is recorded as failed, no later
// task is started, and the returned error is a FATAL_OPERATION_FAILURE. The
// report is returned alongside that error. Errors detected before the first
// task starts (task names, templates, approval) are returned without a report.
func Execute(ctx context.Context, p *plan.Plan, h app.Handle, rc *RunContext, mode Mode) (*Report, error) {
	resolved, err := resolveTasks(p.Tasks, rc)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   rc.RunID,
		Plan:    p.Name,
		Results: make([]TaskResult, 0, len(resolved)),
	}

	switch mode {
	case ModeExplain, ModeDryRun:
		for i, t := range resolved {
			report.Results = append(report.Results, describeTask(p.Tasks[i], t, rc, mode))
		}
		report.Success = true
		return report, nil
	case ModeRun:
	default:
		return nil, fmt.Errorf("unknown mode %v", mode)
	}

	if h == nil {
		return nil, fmt.Errorf("no application handle")
	}
	if err := plan.CheckApproval(p, rc.Approve); err != nil {
		return nil, err
	}

	var store *artifact.Store
	if rc.WorkDir != "" {
		store, err = artifact.New(rc.RunID, rc.WorkDir)
		if err != nil {
			return nil, err
		}
		report.Artifacts = []string{store.BaseDir}
	}

	w := rc.stream()
	logger := log.With().Str("run_id", rc.RunID).Str("plan", p.Name).Logger()
	logger.Info().Int("tasks", len(resolved)).Msg("Run started")
	fmt.Fprintln(w, p.BannerOrDefault())

	for i, t := range resolved {
		fmt.Fprintf(w, "\n> %s\n", header(rc.Prompt, t))

		start := time.Now()
		out, execErr := h.Execute(ctx, t.Name, t.Args)
		elapsed := time.Since(start).Round(time.Millisecond)

		writeOutput(w, out)
		tr := TaskResult{
			Task:     t.String(),
			Name:     t.Name,
			Args:     t.Args,
			Status:   StatusSuccess,
			Output:   out,
			Duration: elapsed.String(),
		}
		if store != nil {
			if err := store.WriteTaskOutput(i, t.Name, out); err != nil {
				logger.Warn().Err(err).Str("task", t.String()).Msg("Writing task output failed")
			}
		}

		if execErr != nil {
			tr.Status = StatusFailed
			tr.Error = execErr.Error()
			report.Results = append(report.Results, tr)

			failure := dagerrors.NewOperationFailure(t.String(), execErr)
			report.Failure = failure
			fmt.Fprintf(w, "\n✗ %s failed: %s\n", t.String(), execErr)
			logger.Error().Err(execErr).Str("task", t.String()).Dur("duration", elapsed).Msg("Task failed, aborting run")
			writeReport(store, report)
			return report, failure
		}

		report.Results = append(report.Results, tr)
		logger.Info().Str("task", t.String()).Dur("duration", elapsed).Msg("Task completed")
	}

	report.Success = true
	report.Summary = p.DoneOrDefault()
	fmt.Fprintf(w, "\n✅ %s\n", report.Summary)
	logger.Info().Msg("Run completed")
	writeReport(store, report)
	return report, nil
}

// resolveTasks substitutes inputs into every task's arguments up front so a
// bad reference cannot surface halfway through a run.
func resolveTasks(tasks []plan.Task, rc *RunContext) ([]plan.Task, error) {
	out := make([]plan.Task, 0, len(tasks))
	for i, t := range tasks {
		if err := plan.CheckTaskName(i, t); err != nil {
			return nil, err
		}
		args, err := template.ResolveAll(t.Args, rc.TmplCtx)
		if err != nil {
			return nil, fmt.Errorf("resolving arguments for task %q: %w", t.Name, err)
		}
		out = append(out, plan.Task{Name: t.Name, Args: args, Description: t.Description, Destructive: t.Destructive})
	}
	return out, nil
}

func describeTask(orig, t plan.Task, rc *RunContext, mode Mode) TaskResult {
	tr := TaskResult{
		Task:        t.String(),
		Name:        t.Name,
		Args:        t.Args,
		Description: orig.Description,
	}
	if mode == ModeExplain {
		tr.Status = StatusExplain
		return tr
	}
	tr.Status = StatusDryRun
	tr.DryRunInfo = "Would run: " + header(rc.Prompt, t)
	if t.Destructive && !rc.Approve {
		tr.DryRunInfo += " (destructive, requires --approve)"
	}
	return tr
}

func header(prompt string, t plan.Task) string {
	if prompt == "" {
		return t.String()
	}
	return prompt + " " + t.String()
}

func writeOutput(w io.Writer, out string) {
	if out == "" {
		return
	}
	io.WriteString(w, out)
	if !strings.HasSuffix(out, "\n") {
		io.WriteString(w, "\n")
	}
}

func writeReport(store *artifact.Store, report *Report) {
	if store == nil {
		return
	}
	if err := store.WriteResult(report); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Writing report failed")
	}
}
