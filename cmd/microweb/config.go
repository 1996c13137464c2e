package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/microweb/internal/config"
	"github.com/muurk/microweb/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

// Config init flags
var (
	configInitPath  string
	configInitForce bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Example: `  # Write ./microweb.yaml
  microweb config init

  # Write the per-user file, replacing any existing one
  microweb config init --path ~/.config/microweb/config.yaml --force`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("configuration", path,
			ui.Param{Key: "Port", Value: fmt.Sprint(cfg.Server.Port)},
			ui.Param{Key: "Web root", Value: cfg.Server.WebRoot},
			ui.Param{Key: "Doc path", Value: cfg.Server.DocPath},
			ui.Param{Key: "Timeouts", Value: fmt.Sprintf("read %s, write %s, request %s",
				cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.RequestTimeout)},
			ui.Param{Key: "Poll", Value: cfg.Server.PollInterval.String()},
			ui.Param{Key: "mDNS", Value: fmt.Sprintf("%v (%s)", cfg.MDNS.Enabled, cfg.MDNS.Instance)},
			ui.Param{Key: "Settings", Value: cfg.Device.SettingsFile},
			ui.Param{Key: "Log level", Value: cfg.LogLevel},
		)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "microweb.yaml", "Where to write the file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file without asking")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitPath); err == nil && !configInitForce {
		if !ui.IsTerminal() {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configInitPath)
		}
		if !ui.ConfirmOverwrite(cmd.InOrStdin(), cmd.OutOrStdout(), configInitPath,
			"All settings in the file will be reset to their defaults") {
			return nil
		}
	}

	if err := config.Default().Save(configInitPath); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintResult(
		ui.NewSuccessResult("Configuration written",
			ui.Param{Key: "Path", Value: configInitPath},
			ui.Param{Key: "Next", Value: "microweb serve --config " + configInitPath},
		))
	return nil
}
