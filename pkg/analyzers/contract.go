package analyzers

import (
	"context"
	"fmt"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

var (
	specificityTerms    = []string{"will", "specifically", "each", "every", "exactly", "by"}
	timeBoundTerms      = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "week", "weekly", "month", "monthly", "day", "daily", "deadline", "until", "before"}
	measurabilityTerms  = []string{"times", "hours", "minutes", "once", "twice", "percent", "at least", "no more than"}
	accountabilityTerms = []string{"if i", "check in", "report", "review", "accountable", "responsible", "witness", "consequence"}
)

// ContractAnalyzer scores a repair agreement for concreteness
type ContractAnalyzer struct{}

func NewContractAnalyzer() *ContractAnalyzer {
	return &ContractAnalyzer{}
}

func (a *ContractAnalyzer) Name() agents.AgentName {
	return agents.ContractAnalyzer
}

func (a *ContractAnalyzer) Applies(actx agents.AnalysisContext) bool {
	return actx.Has(agents.FieldContract)
}

func (a *ContractAnalyzer) Analyze(ctx context.Context, actx agents.AnalysisContext) (*agents.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contract := actx.String(agents.FieldContract)
	if contract == "" {
		return nil, errors.ValidationError("contract text is empty")
	}

	scores := map[string]float64{
		"specificity":    round2(saturate(countTerms(contract, specificityTerms), 3)),
		"time_bound":     round2(saturate(countTerms(contract, timeBoundTerms), 2)),
		"measurability":  round2(saturate(countTerms(contract, measurabilityTerms), 2)),
		"accountability": round2(saturate(countTerms(contract, accountabilityTerms), 2)),
	}
	overall := round2(mean(scores["specificity"], scores["time_bound"], scores["measurability"], scores["accountability"]))
	scores["overall"] = overall

	confidence := confidenceFor(len(words(contract)))
	report := &agents.Report{
		Agent:      a.Name(),
		Summary:    fmt.Sprintf("Contract quality %.0f%%", overall*100),
		Scores:     scores,
		Confidence: confidence,
		Data:       map[string]any{"overall_score": overall},
	}

	report.Findings = append(report.Findings, agents.Finding{
		Statement:  fmt.Sprintf("Contract scores %.2f overall for concreteness", overall),
		Confidence: confidence,
	})

	if scores["time_bound"] < 0.5 {
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "contract_clarity", agents.PriorityHigh,
			"Add explicit deadlines to each commitment", "Commitments without dates cannot be checked."))
	}
	if scores["measurability"] < 0.5 {
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "contract_clarity", agents.PriorityMedium,
			"Make each commitment measurable", "State how often or how much."))
	}
	if scores["accountability"] < 0.5 {
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "follow_up", agents.PriorityMedium,
			"Agree on a check-in schedule", "Name who reviews progress and when."))
	}

	if overall < 0.25 {
		report.RiskFactors = append(report.RiskFactors, agents.RiskFactor{
			Factor:      "vague_commitments",
			Severity:    agents.PriorityHigh,
			Source:      a.Name(),
			Description: "The agreement has almost no verifiable commitments",
		})
	}

	return report, nil
}

func (a *ContractAnalyzer) RespondToEvent(ctx context.Context, event agents.Event) (*agents.Report, error) {
	var extra []agents.Recommendation
	if event.Type == "deadline_approaching" {
		extra = append(extra, recommendation(a.Name(), "contract_clarity", agents.PriorityHigh,
			"Confirm the upcoming commitment is still realistic", "A deadline is close."))
	}
	return respondWith(ctx, a, a.Analyze, event, extra)
}
