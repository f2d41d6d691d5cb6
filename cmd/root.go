package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stevehiehn/maintain/internal/config"
)

var (
	jsonOutput bool
	logLevel   string
	appDir     string

	settings config.Settings
)

var rootCmd = &cobra.Command{
	Use:           "maintain",
	Short:         "Ordered maintenance-task runner for application consoles",
	Long:          "maintain — run YAML task lists (cache clears, config rebuilds, migrations) against an application console, in order, stopping at the first failure.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(nil)
		if err != nil {
			return fmt.Errorf("reading %s: %w", config.EnvLogLevel, err)
		}
		lvl := settings.LogLevel
		if cmd.Flags().Changed("log-level") {
			if lvl, err = zerolog.ParseLevel(logLevel); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
		}
		setupLogging(lvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&appDir, "app-dir", "", "Application directory (overrides the plan and "+config.EnvAppDir+")")
}

func setupLogging(lvl zerolog.Level) {
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
