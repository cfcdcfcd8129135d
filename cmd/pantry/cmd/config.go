package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/pantry/internal/config"
	"github.com/Aman-CERP/pantry/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/pantry/config.yaml)
  3. The file given with --config
  4. Environment variables (PANTRY_*)
  5. Command line flags`,
		Example: `  # Create user config with defaults
  pantry config init

  # Show effective configuration
  pantry config show

  # Print user config file path
  pantry config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file with every setting at its default.

With --force an existing file is backed up, then rewritten with your
settings kept and any new settings added at their defaults.`,
		Example: `  pantry config init
  pantry config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing configuration (a backup is kept)")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Example: `  pantry config show
  pantry config show --json
  pantry config show --source defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.KeyValue("Location", path)
			out.Newline()
			out.Status("", "Use --force to upgrade it with new defaults (your settings are kept)")
			return nil
		}
		return runConfigUpgrade(out, path)
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	out.Success("Created user configuration")
	out.KeyValue("Location", path)
	out.Newline()
	out.Status("", "Next steps:")
	out.Status("", "  1. Set index.recipe_dir to your recipe collection")
	out.Status("", "  2. Run 'pantry config show' to verify")
	return nil
}

// runConfigUpgrade backs up the existing file and rewrites it over the
// current defaults.
func runConfigUpgrade(out *output.Writer, path string) error {
	existing, err := config.LoadUserConfig()
	if err != nil {
		return err
	}

	backupPath, err := config.BackupFile(path)
	if err != nil {
		return err
	}

	if err := existing.WriteYAML(path); err != nil {
		return err
	}

	out.Success("Configuration upgraded")
	out.KeyValue("Location", path)
	if backupPath != "" {
		out.KeyValue("Backup", backupPath)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var (
		cfg *config.Config
		err error
	)

	switch source {
	case "merged":
		cfg, err = loadConfig()
	case "user":
		cfg, err = config.LoadUserConfig()
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("unknown source %q (use merged, user or defaults)", source)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
