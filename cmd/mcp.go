package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/mcp"
)

var mcpPlansDir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, _ := os.Getwd()
		s := mcp.NewServer(mcp.Options{
			WorkDir:   wd,
			PlansDir:  mcpPlansDir,
			NewHandle: settings.Factory(appDir),
		})
		return s.Serve(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpPlansDir, "plans", "", "Directory of plans to expose as tools")
	rootCmd.AddCommand(mcpCmd)
}
