package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/engine"
	"github.com/stevehiehn/maintain/internal/plan"
)

var (
	execCommand string
	execApprove bool
)

var execCmd = &cobra.Command{
	Use:   "exec <task> [task...]",
	Short: "Run tasks given on the command line, e.g. exec config:clear \"migrate --force\"",
	Long: `Run tasks given on the command line, in order.

A task prefixed with "!" is destructive and needs --approve, e.g.
  maintain exec --approve config:clear "!migrate:fresh --force"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &plan.Plan{Name: "exec", App: plan.App{Command: strings.Fields(execCommand)}}
		for _, a := range args {
			p.Tasks = append(p.Tasks, execTask(a))
		}
		if err := plan.Validate(p, map[string]string{}); err != nil {
			return err
		}
		h, err := settings.NewConsole(p.App, appDir)
		if err != nil {
			return err
		}

		rc := engine.NewRunContext("", nil, execApprove)
		rc.Prompt = h.Prompt()
		if !jsonOutput {
			rc.Stream = cmd.OutOrStdout()
		}
		report, runErr := engine.RunTasks(cmd.Context(), p.Tasks, h, rc)
		if report != nil && jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		}
		if runErr != nil {
			return fmt.Errorf("exec: %w", runErr)
		}
		return nil
	},
}

// execTask parses a command-line task; a leading "!" marks it destructive.
func execTask(arg string) plan.Task {
	arg = strings.TrimSpace(arg)
	destructive := strings.HasPrefix(arg, "!")
	t := plan.ParseTask(strings.TrimPrefix(arg, "!"))
	t.Destructive = destructive
	return t
}

func init() {
	execCmd.Flags().StringVar(&execCommand, "command", "", `Console command prefix (default "php artisan")`)
	execCmd.Flags().BoolVar(&execApprove, "approve", false, "Allow destructive tasks")
	rootCmd.AddCommand(execCmd)
}
