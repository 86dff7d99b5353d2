package coordination

import (
	"fmt"
	"sort"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// Insight is one statement lifted out of an agent report
type Insight struct {
	Agent      agents.AgentName `json:"agent"`
	Statement  string           `json:"statement"`
	Confidence float64          `json:"confidence"`
}

// Assessment levels, from worst to best
const (
	AssessmentCritical         = "critical"
	AssessmentAtRisk           = "at_risk"
	AssessmentNeedsAttention   = "needs_attention"
	AssessmentOnTrack          = "on_track"
	AssessmentInsufficientData = "insufficient_data"
)

// Consensus is the unified view over every successful agent report
type Consensus struct {
	OverallAssessment string              `json:"overall_assessment"`
	KeyInsights       []Insight           `json:"key_insights"`
	RiskFactors       []agents.RiskFactor `json:"risk_factors"`
	Confidence        float64             `json:"confidence"`
	AgentCount        int                 `json:"agent_count"`
}

func (c Consensus) clone() Consensus {
	c.KeyInsights = append([]Insight(nil), c.KeyInsights...)
	c.RiskFactors = append([]agents.RiskFactor(nil), c.RiskFactors...)
	return c
}

// extractor maps one report to insights and risk factors without re-scoring it
type extractor func(report *agents.Report) ([]Insight, []agents.RiskFactor)

var extractors = map[agents.AgentName]extractor{
	agents.ContractAnalyzer:  scoreExtractor("overall", "Contract quality score: %.2f"),
	agents.EmotionalAnalyzer: scoreExtractor("sincerity", "Apology sincerity: %.2f"),
	agents.MediationAnalyzer: scoreExtractor("balance", "Conversation balance: %.2f"),
	agents.ProgressAnalyzer:  scoreExtractor("completion", "Milestone completion: %.2f"),
}

// scoreExtractor surfaces one headline score ahead of the report's own findings
func scoreExtractor(score, format string) extractor {
	return func(report *agents.Report) ([]Insight, []agents.RiskFactor) {
		insights, risks := defaultExtractor(report)
		if v, ok := report.Score(score); ok {
			headline := Insight{Agent: report.Agent, Statement: fmt.Sprintf(format, v), Confidence: report.Confidence}
			insights = append([]Insight{headline}, insights...)
		}
		return insights, risks
	}
}

func defaultExtractor(report *agents.Report) ([]Insight, []agents.RiskFactor) {
	insights := make([]Insight, 0, len(report.Findings))
	for _, f := range report.Findings {
		confidence := f.Confidence
		if confidence == 0 {
			confidence = report.Confidence
		}
		insights = append(insights, Insight{Agent: report.Agent, Statement: f.Statement, Confidence: confidence})
	}

	risks := make([]agents.RiskFactor, 0, len(report.RiskFactors))
	for _, r := range report.RiskFactors {
		if r.Source == "" {
			r.Source = report.Agent
		}
		if !r.Severity.Valid() {
			r.Severity = agents.PriorityMedium
		}
		risks = append(risks, r)
	}
	return insights, risks
}

// Synthesize merges agent reports into one consensus. The output depends only on
// the contents of results, never on the order agents finished in.
func Synthesize(results map[agents.AgentName]*agents.Report) Consensus {
	names := make([]agents.AgentName, 0, len(results))
	for name, report := range results {
		if report != nil {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	consensus := Consensus{
		KeyInsights: []Insight{},
		RiskFactors: []agents.RiskFactor{},
		AgentCount:  len(names),
	}

	for _, name := range names {
		report := results[name]
		if report.Agent == "" {
			report = report.Clone()
			report.Agent = name
		}

		extract, ok := extractors[name]
		if !ok {
			extract = defaultExtractor
		}
		insights, risks := extract(report)
		consensus.KeyInsights = append(consensus.KeyInsights, insights...)
		consensus.RiskFactors = append(consensus.RiskFactors, risks...)
	}

	sort.SliceStable(consensus.RiskFactors, func(i, j int) bool {
		return consensus.RiskFactors[i].Severity.Rank() > consensus.RiskFactors[j].Severity.Rank()
	})

	var sum float64
	var n int
	for _, insight := range consensus.KeyInsights {
		if insight.Confidence != 0 {
			sum += insight.Confidence
			n++
		}
	}
	if n > 0 {
		consensus.Confidence = sum / float64(n)
	}

	consensus.OverallAssessment = assess(consensus)
	return consensus
}

func assess(c Consensus) string {
	if c.AgentCount == 0 {
		return AssessmentInsufficientData
	}
	if len(c.RiskFactors) == 0 {
		return AssessmentOnTrack
	}
	// risk factors are sorted most severe first
	switch c.RiskFactors[0].Severity {
	case agents.PriorityCritical:
		return AssessmentCritical
	case agents.PriorityHigh:
		return AssessmentAtRisk
	default:
		return AssessmentNeedsAttention
	}
}
