// Package analyzers provides the reference heuristic agents: contract quality,
// emotional tone, multi-party mediation and progress tracking. Each one is a
// keyword scorer; none of them call out to other agents.
package analyzers

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

var wordPattern = regexp.MustCompile(`[a-z0-9']+`)

func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// countTerms counts how many of terms occur in text. Multi-word terms match as phrases.
func countTerms(text string, terms []string) int {
	lower := " " + strings.Join(words(text), " ") + " "
	n := 0
	for _, term := range terms {
		n += strings.Count(lower, " "+term+" ")
	}
	return n
}

func matchedTerms(text string, terms []string) []string {
	lower := " " + strings.Join(words(text), " ") + " "
	var out []string
	for _, term := range terms {
		if strings.Contains(lower, " "+term+" ") {
			out = append(out, term)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// saturate maps a hit count to 0..1, reaching 1 at full hits
func saturate(hits, full int) float64 {
	if full <= 0 {
		return 0
	}
	return clamp01(float64(hits) / float64(full))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values ...float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// confidenceFor grows with the amount of text available, capped at 0.95
func confidenceFor(wordCount int) float64 {
	return round2(math.Min(0.95, 0.4+float64(wordCount)/100))
}

func recommendation(source agents.AgentName, category string, priority agents.Priority, action, details string) agents.Recommendation {
	return agents.Recommendation{
		Category: category,
		Priority: priority,
		Action:   action,
		Details:  details,
		Source:   source,
	}
}

// analyzeFunc is the shape shared by every analyzer's Analyze method
type analyzeFunc func(ctx context.Context, actx agents.AnalysisContext) (*agents.Report, error)

// respondWith analyzes the event payload when it carries what the analyzer needs
// and adds the event-specific recommendations.
func respondWith(ctx context.Context, a agents.Analyzer, analyze analyzeFunc, event agents.Event, extra []agents.Recommendation) (*agents.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	actx := agents.EventContext(event)
	report := &agents.Report{
		Agent:      a.Name(),
		Summary:    "Responded to " + event.Type,
		Confidence: 0.5,
	}

	if a.Applies(actx) {
		analyzed, err := analyze(ctx, actx)
		if err != nil {
			return nil, err
		}
		report = analyzed
	}

	report.Recommendations = append(report.Recommendations, extra...)
	if report.Data == nil {
		report.Data = map[string]any{}
	}
	report.Data["event_type"] = event.Type
	return report, nil
}
