package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// interveneCmd plans an intervention for one process
var interveneCmd = &cobra.Command{
	Use:   "intervene",
	Short: "Plan an intervention for a repair process",
	Long: `Analyze the current state of a process and plan the next actions.

Earlier snapshots of the same process can be replayed with --previous so that
risks which keep coming back escalate the intervention.

Examples:
  repaircoord intervene -f today.yaml --process p-42
  repaircoord intervene -f today.yaml --process p-42 --previous last-week.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		file, err := cmd.Flags().GetString("file")
		if err != nil {
			return fmt.Errorf("failed to get file flag: %w", err)
		}
		processID, err := cmd.Flags().GetString("process")
		if err != nil {
			return fmt.Errorf("failed to get process flag: %w", err)
		}
		previous, err := cmd.Flags().GetStringSlice("previous")
		if err != nil {
			return fmt.Errorf("failed to get previous flag: %w", err)
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

		for _, path := range previous {
			prior, err := readContext(cmd, path)
			if err != nil {
				return err
			}
			prior[agents.FieldProcessID] = processID
			if _, err := rt.coordinator.AnalyzeRepairProcess(cmd.Context(), prior); err != nil {
				return fmt.Errorf("failed to replay %s: %w", path, err)
			}
		}

		intervention, err := rt.coordinator.CoordinateIntervention(cmd.Context(), processID, actx)
		if err != nil {
			return fmt.Errorf("intervention failed: %w", err)
		}
		return printResult(cmd, intervention, func() string { return rt.renderer.RenderIntervention(intervention) })
	},
}

func init() {
	rootCmd.AddCommand(interveneCmd)
	interveneCmd.Flags().StringP("file", "f", "", "current analysis context YAML file (- for stdin)")
	interveneCmd.Flags().StringP("process", "p", "", "process id")
	interveneCmd.Flags().StringSlice("previous", nil, "earlier context files for the same process, oldest first")
}
