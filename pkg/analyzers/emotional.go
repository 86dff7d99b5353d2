package analyzers

import (
	"context"
	"fmt"
	"strings"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

var (
	sincerityTerms = []string{"sorry", "apologize", "apologise", "regret", "i was wrong", "my fault", "i understand", "thank you", "appreciate", "responsibility"}
	hostilityTerms = []string{"hate", "stupid", "ridiculous", "always", "never", "shut up", "idiot", "whatever", "your fault", "blame"}
	defensiveTerms = []string{"but", "if you", "just", "only", "you made me", "not my", "i didn't mean"}
	threatTerms    = []string{"hurt you", "kill", "threaten", "threat", "unsafe", "afraid of", "violence", "weapon", "make you pay"}
)

// EmotionalAnalyzer reads tone from statements and communications
type EmotionalAnalyzer struct{}

func NewEmotionalAnalyzer() *EmotionalAnalyzer {
	return &EmotionalAnalyzer{}
}

func (a *EmotionalAnalyzer) Name() agents.AgentName {
	return agents.EmotionalAnalyzer
}

func (a *EmotionalAnalyzer) Applies(actx agents.AnalysisContext) bool {
	return actx.Has(agents.FieldCommunications) || actx.Has(agents.FieldStatement)
}

func (a *EmotionalAnalyzer) Analyze(ctx context.Context, actx agents.AnalysisContext) (*agents.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := actx.Texts()
	if len(texts) == 0 {
		return nil, errors.ValidationError("no statement or communications to read")
	}
	corpus := strings.Join(texts, "\n")
	wordCount := len(words(corpus))

	scores := map[string]float64{
		"sincerity":     round2(saturate(countTerms(corpus, sincerityTerms), 3)),
		"hostility":     round2(saturate(countTerms(corpus, hostilityTerms), 3)),
		"defensiveness": round2(saturate(countTerms(corpus, defensiveTerms), 3)),
	}
	threats := matchedTerms(corpus, threatTerms)

	confidence := confidenceFor(wordCount)
	report := &agents.Report{
		Agent:      a.Name(),
		Scores:     scores,
		Confidence: confidence,
		Data:       map[string]any{"messages": len(texts)},
	}
	report.Summary = fmt.Sprintf("Sincerity %.2f, hostility %.2f", scores["sincerity"], scores["hostility"])

	report.Findings = append(report.Findings, agents.Finding{
		Statement:  fmt.Sprintf("Dominant tone is %s", dominantTone(scores)),
		Confidence: confidence,
	})

	if len(threats) > 0 {
		report.RiskFactors = append(report.RiskFactors, agents.RiskFactor{
			Factor:      "safety_threat",
			Severity:    agents.PriorityCritical,
			Source:      a.Name(),
			Description: "Threatening language: " + strings.Join(threats, ", "),
		})
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "safety", agents.PriorityCritical,
			"Pause direct contact and involve a safety professional", "Threatening language was detected."))
		report.Data["threat_detected"] = true
	}

	if scores["hostility"] >= 0.5 {
		report.RiskFactors = append(report.RiskFactors, agents.RiskFactor{
			Factor:      "emotional_escalation",
			Severity:    agents.PriorityHigh,
			Source:      a.Name(),
			Description: "Hostile language dominates the exchange",
		})
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "communication", agents.PriorityHigh,
			"Introduce a cooling-off period before further contact", "Hostility is high."))
	} else if scores["defensiveness"] >= 0.34 {
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "communication", agents.PriorityMedium,
			"Restate the apology without qualifiers", "Qualifiers such as \"but\" weaken the apology."))
	}

	if scores["sincerity"] < 0.34 {
		report.Recommendations = append(report.Recommendations, recommendation(a.Name(), "acknowledgement", agents.PriorityMedium,
			"Name the harm explicitly", "The statement does not acknowledge what happened."))
	}

	return report, nil
}

func dominantTone(scores map[string]float64) string {
	tone, best := "neutral", 0.0
	for _, name := range []string{"sincerity", "hostility", "defensiveness"} {
		if scores[name] > best {
			tone, best = name, scores[name]
		}
	}
	return tone
}

func (a *EmotionalAnalyzer) RespondToEvent(ctx context.Context, event agents.Event) (*agents.Report, error) {
	var extra []agents.Recommendation
	switch event.Type {
	case "emotional_escalation":
		extra = append(extra, recommendation(a.Name(), "communication", agents.PriorityHigh,
			"Introduce a cooling-off period before further contact", "Escalation reported."))
	case "communication_breakdown":
		extra = append(extra, recommendation(a.Name(), "communication", agents.PriorityHigh,
			"Switch to written, moderated exchanges", "Direct communication has broken down."))
	}
	return respondWith(ctx, a, a.Analyze, event, extra)
}
