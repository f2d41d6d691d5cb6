package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/engine"
	"github.com/stevehiehn/maintain/internal/plan"
)

var (
	runInputs    []string
	runApprove   bool
	runArtifacts bool
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Execute a maintenance plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, inputs, err := loadPlan(args[0], runInputs)
		if err != nil {
			return err
		}
		if err := plan.CheckApproval(p, runApprove); err != nil {
			return err
		}
		h, err := settings.NewConsole(p.App, appDir)
		if err != nil {
			return err
		}

		rc := engine.NewRunContext(workDir(runArtifacts), inputs, runApprove)
		rc.Prompt = h.Prompt()
		if !jsonOutput {
			rc.Stream = cmd.OutOrStdout()
		}

		report, runErr := engine.Execute(cmd.Context(), p, h, rc, engine.ModeRun)
		if report == nil {
			return runErr
		}
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			return runErr
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nRun ID: %s\n", report.RunID)
		return runErr
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Input values (key=value)")
	runCmd.Flags().BoolVar(&runApprove, "approve", false, "Allow destructive tasks")
	runCmd.Flags().BoolVar(&runArtifacts, "artifacts", true, "Write task output and report.json under .maintain/runs")
	rootCmd.AddCommand(runCmd)
}
