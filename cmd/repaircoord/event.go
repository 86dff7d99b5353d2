package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
	"github.com/fumiya-kume/repaircoord/pkg/ui"
)

// eventRun is the JSON shape printed by the event command
type eventRun struct {
	Responses []*coordination.EventResponse `json:"responses"`
	Processed []coordination.EventRecord    `json:"processed"`
}

// eventCmd submits events to the router and waits for the queue to drain
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Route events to the relevant agents",
	Long: `Submit a list of events from a YAML file.

Critical events are handled immediately and return their immediate actions;
everything else is queued and processed in order.

Each event has a type, a category and an optional payload:

  - type: immediate_safety
    category: safety
    payload:
      statement: "I don't feel safe"

Examples:
  repaircoord event -f events.yaml
  repaircoord event -f events.yaml --no-alert --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		file, err := cmd.Flags().GetString("file")
		if err != nil {
			return fmt.Errorf("failed to get file flag: %w", err)
		}
		noAlert, err := cmd.Flags().GetBool("no-alert")
		if err != nil {
			return fmt.Errorf("failed to get no-alert flag: %w", err)
		}

		var events []agents.Event
		if err := readYAMLFile(cmd, file, &events); err != nil {
			return err
		}

		var mu sync.Mutex
		run := eventRun{Responses: make([]*coordination.EventResponse, 0, len(events))}
		onProcessed := func(record coordination.EventRecord) {
			mu.Lock()
			defer mu.Unlock()
			run.Processed = append(run.Processed, record)
		}
		var onCritical func(coordination.EventRecord)
		if cfg.UI.Alerts && !noAlert {
			onCritical = ui.NewAlerter(ui.DefaultAlertConfig()).CriticalEvent
		}

		rt, err := newSession(cmd.Context(), cfg, coordination.WithEventHooks(onCritical, onProcessed))
		if err != nil {
			return err
		}
		defer rt.close()

		for _, event := range events {
			resp, err := rt.coordinator.HandleEvent(cmd.Context(), event)
			if err != nil {
				return fmt.Errorf("failed to submit %s event: %w", event.Type, err)
			}
			run.Responses = append(run.Responses, resp)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), shutdownTimeout)
		defer cancel()
		if err := rt.coordinator.Router().WaitIdle(ctx); err != nil {
			return fmt.Errorf("event queue did not drain: %w", err)
		}

		mu.Lock()
		defer mu.Unlock()
		return printResult(cmd, run, func() string {
			var b strings.Builder
			for i, resp := range run.Responses {
				b.WriteString(rt.renderer.RenderEventResponse(events[i], resp))
				b.WriteString("\n")
			}
			for _, record := range run.Processed {
				b.WriteString("\n")
				b.WriteString(rt.renderer.RenderEventRecord(record))
				b.WriteString("\n")
			}
			return strings.TrimRight(b.String(), "\n")
		})
	},
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.Flags().StringP("file", "f", "", "events YAML file (- for stdin)")
	eventCmd.Flags().Bool("no-alert", false, "do not sound an alert for critical events")
}
