package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/server"
)

var (
	serveAddr      string
	servePlansDir  string
	serveArtifacts bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run plans over HTTP, streaming plain-text output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := server.New(server.Config{
			Addr:     serveAddr,
			PlansDir: servePlansDir,
			WorkDir:  workDir(serveArtifacts),
			AppDir:   appDir,
			Settings: settings,
		})
		return s.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().StringVar(&servePlansDir, "plans", "plans", "Directory of plan files")
	serveCmd.Flags().BoolVar(&serveArtifacts, "artifacts", true, "Write task output and report.json under .maintain/runs")
	rootCmd.AddCommand(serveCmd)
}
