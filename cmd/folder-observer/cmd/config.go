package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ickyicky/folder-observer/configs"
	"github.com/ickyicky/folder-observer/internal/config"
	oerrors "github.com/ickyicky/folder-observer/internal/errors"
	"github.com/ickyicky/folder-observer/internal/output"
)

func newConfigCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/folder-observer/config.yaml)
  3. The file given with --config
  4. Environment variables (FOLDER_OBSERVER_*)
  5. Command-line flags`,
		Example: `  # Create the user config with defaults
  folder-observer config init

  # Show the effective configuration
  folder-observer config show

  # Print the user config path
  folder-observer config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(o))
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long: `Write a commented configuration file with every setting at its default.

With --force an existing file is backed up, then rewritten with its own
values kept and any new settings added at their defaults.`,
		Example: `  folder-observer config init
  folder-observer config init --path ./observer.yaml
  folder-observer config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.GetUserConfigPath()
			}
			return runConfigInit(cmd, config.ExpandHome(path), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and upgrade an existing file")
	cmd.Flags().StringVar(&path, "path", "", "File to write (default: user config)")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout())
	cfg := config.NewConfig()

	if fileExists(path) {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("", "Location: %s", path)
			out.Status("", "Use --force to upgrade it with new defaults (keeps your settings)")
			return nil
		}

		backupPath, err := config.BackupFile(path)
		if err != nil {
			return oerrors.ConfigError("failed to back up config", err)
		}
		if err := cfg.LoadYAML(path); err != nil {
			return err
		}
		if err := cfg.WriteYAML(path); err != nil {
			return oerrors.ConfigError("failed to write config", err)
		}

		out.Success("Configuration upgraded")
		out.Statusf("", "Location: %s", path)
		out.Statusf("", "Backup:   %s", backupPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return oerrors.ConfigError("failed to create config directory", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return oerrors.ConfigError("failed to write config", err)
	}
	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	return nil
}

func newConfigShowCmd(o *options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [source]",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, files, environment
variables and flags, with paths resolved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig(cmd, args)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if !config.UserConfigExists() {
				path += " (not created)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var (
		path string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore a configuration backup",
		Long: `Restore a backup made by 'config init --force'. Without an argument
the newest backup is restored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.GetUserConfigPath()
			}
			path = config.ExpandHome(path)
			out := output.New(cmd.OutOrStdout())

			backups, err := config.ListBackups(path)
			if err != nil {
				return err
			}
			if list {
				for _, b := range backups {
					out.Status("", b)
				}
				return nil
			}

			var backup string
			switch {
			case len(args) == 1:
				backup = config.ExpandHome(args[0])
			case len(backups) > 0:
				backup = backups[0]
			default:
				return oerrors.New(oerrors.ErrCodeConfigNotFound, "no backups of "+path, nil)
			}

			if err := config.RestoreBackup(backup, path); err != nil {
				return err
			}
			out.Successf("Restored %s", backup)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Config file (default: user config)")
	cmd.Flags().BoolVar(&list, "list", false, "List backups, newest first")

	return cmd
}
