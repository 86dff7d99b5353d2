package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// analyzeCmd runs one coordinated analysis
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a repair process with every applicable agent",
	Long: `Analyze a repair process described by a YAML context file.

The context is a free-form map. Well-known fields include contract,
communications, statement, parties, process_id, milestones,
completed_milestones, days_since_update and the priority flags emergency,
safety_concern, escalation_risk, approaching_deadline and
optimization_opportunity.

Examples:
  repaircoord analyze -f context.yaml
  cat context.yaml | repaircoord analyze -f - --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		file, err := cmd.Flags().GetString("file")
		if err != nil {
			return fmt.Errorf("failed to get file flag: %w", err)
		}
		actx, err := readContext(cmd, file)
		if err != nil {
			return err
		}

		rt, err := newSession(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.close()

		result, analyzeErr := rt.coordinator.AnalyzeRepairProcess(cmd.Context(), actx)
		if result != nil {
			if err := printResult(cmd, result, func() string { return rt.renderer.RenderCoordination(result) }); err != nil {
				return err
			}
		}
		if analyzeErr != nil {
			return fmt.Errorf("analysis failed: %w", analyzeErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("file", "f", "", "analysis context YAML file (- for stdin)")
}
