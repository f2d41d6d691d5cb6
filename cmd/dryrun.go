package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/engine"
)

var dryRunInputs []string

var dryRunCmd = &cobra.Command{
	Use:   "dry-run <plan.yaml>",
	Short: "Show what would be executed without running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, inputs, err := loadPlan(args[0], dryRunInputs)
		if err != nil {
			return err
		}

		rc := engine.NewRunContext("", inputs, false)
		rc.Prompt = strings.Join(p.App.CommandOrDefault(), " ")
		report, err := engine.Execute(cmd.Context(), p, nil, rc, engine.ModeDryRun)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dry-run: %s\n\n", p.Name)
		printTaskList(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	dryRunCmd.Flags().StringArrayVar(&dryRunInputs, "input", nil, "Input values (key=value)")
	rootCmd.AddCommand(dryRunCmd)
}
