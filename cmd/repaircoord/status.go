package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fumiya-kume/repaircoord/pkg/config"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
	"github.com/fumiya-kume/repaircoord/pkg/ui"
)

// statusCmd reports agent health
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent health and coordinator status",
	Long: `Initialize the agents, run a health check and print the result.

With --watch a live dashboard refreshes on the configured interval and the
configuration file is reloaded whenever it changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		watch, err := cmd.Flags().GetBool("watch")
		if err != nil {
			return fmt.Errorf("failed to get watch flag: %w", err)
		}

		rt, err := newSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.close()

		if watch {
			return runDashboard(cmd, rt)
		}

		status := rt.coordinator.GetSystemStatus(cmd.Context())
		return printResult(cmd, status, func() string {
			var b strings.Builder
			b.WriteString(rt.renderer.RenderReadiness(rt.readiness))
			fmt.Fprintf(&b, "\n\nCoordinations: %d completed, %d failed, %d in progress • queue %d • log %d",
				status.Coordinations[coordination.StatusCompleted],
				status.Coordinations[coordination.StatusFailed],
				status.Coordinations[coordination.StatusInProgress],
				status.QueueLength,
				status.CommunicationLogSize)
			return b.String()
		})
	},
}

// runDashboard runs the bubbletea dashboard with health monitoring, critical
// alerts and configuration hot reload wired in
func runDashboard(cmd *cobra.Command, rt *session) error {
	ctx := cmd.Context()
	log := logger.GetLogger().WithPrefix("status")

	dashboard := ui.NewDashboard(ctx, rt.coordinator, ui.ThemeByName(rt.cfg.UI.Theme), rt.cfg.UI.RefreshInterval)
	program := tea.NewProgram(dashboard, tea.WithAltScreen(), tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))

	alerter := ui.NewAlerter(ui.DefaultAlertConfig())
	alerter.SetEnabled(rt.cfg.UI.Alerts)
	rt.coordinator.Router().SetHooks(alerter.CriticalEvent, func(record coordination.EventRecord) {
		program.Send(ui.EventProcessedMsg{Record: record})
	})

	rt.coordinator.StartMonitoring(ctx)

	if appConfigPath != "" {
		watcher := config.NewWatcher(appConfigPath, rt.cfg)
		watcher.OnChange(func(oldConfig, newConfig *config.Config) error {
			settings, err := newConfig.ToSettings()
			if err != nil {
				return err
			}
			rt.coordinator.UpdateSettings(settings)
			alerter.SetEnabled(newConfig.UI.Alerts)
			program.Send(ui.ConfigReloadedMsg{Version: watcher.Version()})
			return nil
		})
		if err := watcher.Start(); err != nil {
			log.Warn("Configuration hot reload unavailable (error: %v)", err)
		} else {
			defer func() {
				if err := watcher.Stop(); err != nil {
					log.Warn("Failed to stop configuration watcher (error: %v)", err)
				}
			}()
		}
	}

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("watch", "w", false, "live dashboard with configuration hot reload")
}
