package analyzers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/llm"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

const dominanceThreshold = 0.6

// MediationAnalyzer looks at the balance between parties and proposes a strategy.
// With an LLM client it also drafts an opening statement.
type MediationAnalyzer struct {
	client     llm.Client
	llmTimeout time.Duration
	logger     *logger.Logger
}

// NewMediationAnalyzer creates the analyzer; client may be nil
func NewMediationAnalyzer(client llm.Client) *MediationAnalyzer {
	return &MediationAnalyzer{
		client:     client,
		llmTimeout: 20 * time.Second,
		logger:     logger.GetLogger().WithPrefix("mediation"),
	}
}

func (a *MediationAnalyzer) Name() agents.AgentName {
	return agents.MediationAnalyzer
}

func (a *MediationAnalyzer) Applies(actx agents.AnalysisContext) bool {
	return len(actx.Parties()) > 1
}

func (a *MediationAnalyzer) Analyze(ctx context.Context, actx agents.AnalysisContext) (*agents.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parties := actx.Parties()
	if len(parties) < 2 {
		return nil, fmt.Errorf("mediation needs at least two parties, got %d", len(parties))
	}

	share := speakingShare(parties, actx.Communications())
	dominant, top := "", 0.0
	for _, p := range parties {
		if share[p] > top {
			dominant, top = p, share[p]
		}
	}

	balance := round2(1 - top)
	if top == 0 {
		balance = 1
	}
	scores := map[string]float64{"balance": balance, "parties": float64(len(parties))}

	comms := actx.Communications()
	confidence := round2(clamp01(0.3 + 0.1*float64(len(comms))))
	report := &agents.Report{
		Agent:      a.Name(),
		Summary:    fmt.Sprintf("%d parties, balance %.2f", len(parties), balance),
		Scores:     scores,
		Confidence: confidence,
		Data:       map[string]any{"speaking_share": share},
	}

	if top > dominanceThreshold && len(comms) > 0 {
		report.Findings = append(report.Findings, agents.Finding{
			Statement:  fmt.Sprintf("%s dominates the conversation (%.0f%% of messages)", dominant, top*100),
			Confidence: confidence,
		})
		report.RiskFactors = append(report.RiskFactors, agents.RiskFactor{
			Factor:      "power_imbalance",
			Severity:    agents.PriorityHigh,
			Source:      a.Name(),
			Description: dominant + " dominates the exchange",
		})
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "mediation_strategy", agents.PriorityHigh,
			"Use structured turn-taking", "One party speaks for most of the exchange."))
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "communication", agents.PriorityMedium,
			"Summarize each exchange in shared language", "Keeps the quieter party's view on the record."))
	} else {
		report.Findings = append(report.Findings, agents.Finding{
			Statement:  "Parties contribute evenly",
			Confidence: confidence,
		})
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "mediation_strategy", agents.PriorityLow,
			"Continue with facilitated dialogue", ""))
	}

	if opening := a.openingStatement(ctx, parties, actx); opening != "" {
		report.Data["opening_statement"] = opening
	}

	return report, nil
}

// speakingShare returns each party's fraction of attributed messages
func speakingShare(parties []string, comms []agents.Communication) map[string]float64 {
	counts := make(map[string]int, len(parties))
	total := 0
	for _, c := range comms {
		for _, p := range parties {
			if strings.EqualFold(strings.TrimSpace(c.Speaker), p) {
				counts[p]++
				total++
				break
			}
		}
	}

	share := make(map[string]float64, len(parties))
	for _, p := range parties {
		if total > 0 {
			share[p] = round2(float64(counts[p]) / float64(total))
		} else {
			share[p] = 0
		}
	}
	return share
}

func (a *MediationAnalyzer) openingStatement(ctx context.Context, parties []string, actx agents.AnalysisContext) string {
	sorted := append([]string(nil), parties...)
	sort.Strings(sorted)
	fallback := fmt.Sprintf("Welcome, %s. Each of you will have uninterrupted time to speak.", strings.Join(sorted, " and "))

	if a.client == nil {
		return fallback
	}

	llmCtx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a neutral mediator. Reply with a two-sentence opening statement."},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Parties: %s\nContext: %s", strings.Join(sorted, ", "), strings.Join(actx.Texts(), " | "))},
	}
	resp, err := a.client.MakeRequest(llmCtx, messages, llm.Options{MaxTokens: 200})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		a.logger.Debug("Opening statement generation failed, using template (error: %v)", err)
		return fallback
	}
	return strings.TrimSpace(resp.Content)
}

func (a *MediationAnalyzer) RespondToEvent(ctx context.Context, event agents.Event) (*agents.Report, error) {
	var extra []agents.Recommendation
	switch event.Type {
	case "communication_breakdown":
		extra = append(extra, recommendation(a.Name(), "mediation_strategy", agents.PriorityHigh,
			"Schedule a facilitated session", "Direct communication has broken down."))
	case "feedback_received":
		extra = append(extra, recommendation(a.Name(), "mediation_strategy", agents.PriorityLow,
			"Review feedback at the next session", ""))
	}
	return respondWith(ctx, a, a.Analyze, event, extra)
}
