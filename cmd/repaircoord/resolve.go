package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
	"github.com/fumiya-kume/repaircoord/pkg/ui"
)

// resolveCmd reconciles recommendations supplied directly by the user
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Reconcile conflicting agent recommendations",
	Long: `Reconcile recommendations keyed by agent name, without running any agent.

  emotional_analyzer:
    - category: safety
      priority: critical
      action: Pause direct contact
  mediation_analyzer:
    - category: safety
      priority: medium
      action: Schedule a joint session

Examples:
  repaircoord resolve -f recommendations.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		file, err := cmd.Flags().GetString("file")
		if err != nil {
			return fmt.Errorf("failed to get file flag: %w", err)
		}

		recommendations := map[agents.AgentName][]agents.Recommendation{}
		if err := readYAMLFile(cmd, file, &recommendations); err != nil {
			return err
		}
		for agent, recs := range recommendations {
			for i := range recs {
				if recs[i].Source == "" {
					recs[i].Source = agent
				}
			}
		}

		settings, err := cfg.ToSettings()
		if err != nil {
			return err
		}
		resolution := coordination.NewCoordinator(settings).ResolveAgentConflicts(recommendations)

		renderer := ui.NewRenderer(ui.ThemeByName(cfg.UI.Theme), ui.DefaultWidth)
		return printResult(cmd, resolution, func() string { return renderer.RenderResolution(resolution) })
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringP("file", "f", "", "recommendations YAML file keyed by agent (- for stdin)")
}
