package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fumiya-kume/repaircoord/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repaircoord configuration",
	Long: `Manage repaircoord configuration settings.

Configuration files are searched in the following order:
  1. $REPAIRCOORD_CONFIG (if set)
  2. ./.repaircoord.yaml
  3. ~/.repaircoord.yaml
  4. ~/.config/repaircoord/config.yaml

Use subcommands to view, create, or validate configuration.`,
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration settings, including defaults and overrides.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
		return err
	},
}

// configValidateCmd validates the configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration file for syntax and semantic errors.

With --strict, settings that are legal but probably unintended are reported
as warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		strict, err := cmd.Flags().GetBool("strict")
		if err != nil {
			return fmt.Errorf("failed to get strict flag: %w", err)
		}

		level := config.ValidationLevelBasic
		if strict {
			level = config.ValidationLevelStrict
		}
		result := config.NewConfigValidator(level).ValidateConfig(cfg)

		out := cmd.OutOrStdout()
		for _, warning := range result.Warnings {
			fmt.Fprintf(out, "Warning: %s\n", warning)
		}
		if result.HasErrors() {
			return fmt.Errorf("configuration validation failed: %w", result.Errors[0])
		}

		fmt.Fprintln(out, "Configuration is valid ✓")
		return nil
	},
}

// configInitCmd initializes a new configuration file
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a new configuration file",
	Long: `Initialize a new configuration file with default settings.

If no path is provided, creates config in ~/.config/repaircoord/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var configPath string
		if len(args) > 0 {
			configPath = args[0]
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return fmt.Errorf("failed to get force flag: %w", err)
		}

		written, err := config.CreateDefaultConfig(configPath, force)
		if err != nil {
			if _, statErr := os.Stat(written); statErr == nil && !force {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", written)
			}
			return fmt.Errorf("failed to create configuration file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", written)
		return nil
	},
}

// configPathCmd shows the path to the configuration file
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  "Display the path to the configuration file that would be used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfgFile != "" {
			fmt.Fprintln(out, cfgFile)
			return nil
		}

		for _, path := range config.GetConfigPaths() {
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, path)
				return nil
			}
		}

		fmt.Fprintf(out, "%s (would be created)\n", config.DefaultConfigPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolP("force", "f", false, "overwrite existing configuration file")
	configValidateCmd.Flags().Bool("strict", false, "also report likely mistakes as warnings")
}
