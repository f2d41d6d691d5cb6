package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/engine"
)

var explainInputs []string

var explainCmd = &cobra.Command{
	Use:   "explain <plan.yaml>",
	Short: "Show resolved plan tasks without executing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, inputs, err := loadPlan(args[0], explainInputs)
		if err != nil {
			return err
		}

		rc := engine.NewRunContext("", inputs, false)
		report, err := engine.Execute(cmd.Context(), p, nil, rc, engine.ModeExplain)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), report)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Plan: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(w, "  %s\n", p.Description)
		}
		fmt.Fprintf(w, "  Console: %v\n", p.App.CommandOrDefault())
		for k, v := range p.App.Env {
			fmt.Fprintf(w, "  Env: %s=%s\n", k, v)
		}
		fmt.Fprintln(w)
		printTaskList(w, report)
		return nil
	},
}

func init() {
	explainCmd.Flags().StringArrayVar(&explainInputs, "input", nil, "Input values (key=value)")
	rootCmd.AddCommand(explainCmd)
}
