package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Validate a plan file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.LoadFile(args[0])
		if err == nil {
			err = plan.Validate(p, nil)
		}
		if err != nil {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{"valid": false, "error": err.Error()})
			}
			return fmt.Errorf("validation failed: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"valid": true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Plan is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
