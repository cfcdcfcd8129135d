// Package cmd provides the CLI commands for pantry.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pantry/internal/config"
	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/logging"
	"github.com/Aman-CERP/pantry/internal/profiling"
	"github.com/Aman-CERP/pantry/pkg/version"
)

// Global flags
var (
	debugMode      bool
	configPath     string
	loggingCleanup func()

	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the pantry CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pantry",
		Short: "Searchable index of a recipe collection",
		Long: `Pantry indexes a directory of markdown recipes and serves them over
HTTP with full-text search, category and tag facets.

The index lives in memory and follows the recipe directory as files
are added, edited and removed.

Run 'pantry serve' to start the web interface.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("pantry version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the rotating log file")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (merged over the user config)")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file on exit")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newImportCmd())

	return cmd
}

// startProfilingAndLogging starts any requested profiles and installs the
// process logger. --debug writes JSON to the rotating log file only, so
// stdout and stderr stay free for MCP clients. Otherwise warnings and
// errors go to stderr.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profile = s
	}

	cfg := logging.Config{Level: "warn", Stderr: true}
	if debugMode {
		cfg = logging.DebugConfig()
		cfg.Stderr = false
	}

	cleanup, err := logging.Install(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Info("debug_logging_enabled",
			slog.String("log_file", cfg.FilePath),
			slog.String("version", version.Short()))
	}
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// loadConfig loads the effective configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
	}
	return err
}
