package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/repaircoord/pkg/config"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

var (
	cfgFile    string
	debug      bool
	jsonOutput bool

	appConfig     *config.Config
	appConfigPath string
	appConfigErr  error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "repaircoord",
	Short: "Coordinate repair-process analyzers and reconcile their advice",
	Long: `repaircoord runs a set of specialised analyzers over a relationship repair
process and merges what they report.

It:
- Fans an analysis context out to every applicable analyzer concurrently
- Tolerates analyzer failures and timeouts, marking results as degraded
- Synthesizes one assessment and reconciles conflicting recommendations
- Routes asynchronous events, handling critical ones immediately
- Monitors analyzer health`,
	Version:      version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.repaircoord.yaml or ~/.config/repaircoord/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")
}

// initConfig loads the configuration and sets up the global logger. A broken
// configuration falls back to defaults; commands that depend on it report the
// error through loadedConfig.
func initConfig() {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.LoadConfig()
	appConfigErr = err
	if err != nil {
		cfg = config.DefaultConfig()
	}
	appConfigPath = loader.GetConfigPath()

	if debug {
		cfg.Logging.Level = "debug"
	}
	if logLevel, err := rootCmd.PersistentFlags().GetString("log-level"); err == nil && logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile, err := rootCmd.PersistentFlags().GetString("log-file"); err == nil && logFile != "" {
		cfg.Logging.File = logFile
	}
	appConfig = cfg

	globalLogger, err := logger.New(cfg.ToLoggerConfig())
	if err != nil {
		if debug {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logger: %v\n", err)
		}
		globalLogger = logger.NewDefault()
	}
	logger.SetGlobalLogger(globalLogger)
}

// loadedConfig returns the configuration or the error that prevented loading it
func loadedConfig() (*config.Config, error) {
	if appConfigErr != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", appConfigErr)
	}
	return appConfig, nil
}
