package analyzers

import (
	"context"
	"fmt"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

const staleAfterDays = 14

// ProgressAnalyzer tracks milestone completion and staleness of a repair process
type ProgressAnalyzer struct{}

func NewProgressAnalyzer() *ProgressAnalyzer {
	return &ProgressAnalyzer{}
}

func (a *ProgressAnalyzer) Name() agents.AgentName {
	return agents.ProgressAnalyzer
}

func (a *ProgressAnalyzer) Applies(actx agents.AnalysisContext) bool {
	return actx.Has(agents.FieldProcessID)
}

func (a *ProgressAnalyzer) Analyze(ctx context.Context, actx agents.AnalysisContext) (*agents.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := actx.Int(agents.FieldMilestones, 0)
	done := actx.Int(agents.FieldCompleted, 0)
	idle := actx.Int(agents.FieldDaysSince, 0)

	completion := 0.0
	if total > 0 {
		completion = round2(clamp01(float64(done) / float64(total)))
	}
	freshness := round2(clamp01(1 - float64(idle)/float64(2*staleAfterDays)))

	confidence := 0.5
	if total > 0 {
		confidence = 0.8
	}

	report := &agents.Report{
		Agent:      a.Name(),
		Summary:    fmt.Sprintf("%d of %d milestones complete", done, total),
		Scores:     map[string]float64{"completion": completion, "freshness": freshness},
		Confidence: confidence,
		Data: map[string]any{
			"process_id": actx.String(agents.FieldProcessID),
			"status":     actx.String(agents.FieldStatus),
		},
	}

	report.Findings = append(report.Findings, agents.Finding{
		Statement:  fmt.Sprintf("Process is %.0f%% complete", completion*100),
		Confidence: confidence,
	})

	switch {
	case idle > staleAfterDays:
		report.RiskFactors = append(report.RiskFactors, agents.RiskFactor{
			Factor:      "stalled_process",
			Severity:    agents.PriorityHigh,
			Source:      a.Name(),
			Description: fmt.Sprintf("No update for %d days", idle),
		})
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "follow_up", agents.PriorityHigh,
			"Schedule a progress check-in this week", "The process has stalled."))
	case total > 0 && done >= total:
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "follow_up", agents.PriorityLow,
			"Plan a closure conversation", "All milestones are complete."))
	default:
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "follow_up", agents.PriorityMedium,
			"Schedule a progress check-in", ""))
	}

	return report, nil
}

func (a *ProgressAnalyzer) RespondToEvent(ctx context.Context, event agents.Event) (*agents.Report, error) {
	var extra []agents.Recommendation
	switch event.Type {
	case "milestone_reached":
		extra = append(extra, recommendation(a.Name(), "follow_up", agents.PriorityLow,
			"Acknowledge the milestone with both parties", ""))
	case "deadline_approaching":
		extra = append(extra, recommendation(a.Name(), "follow_up", agents.PriorityHigh,
			"Confirm readiness for the upcoming deadline", ""))
	}
	return respondWith(ctx, a, a.Analyze, event, extra)
}
