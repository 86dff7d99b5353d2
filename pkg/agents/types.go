// Package agents defines the contracts shared by every analyzer taking part in a
// repair-process coordination: the analysis context handed to each agent, the report
// an agent produces, the registry that owns agent instances, the communication log
// that records every call, and the health monitor built on top of both.
package agents

import (
	"context"
	"fmt"
	"strings"
)

// AgentName uniquely identifies an agent
type AgentName string

// Names of the agents the system expects by default
const (
	ContractAnalyzer  AgentName = "contract_analyzer"
	EmotionalAnalyzer AgentName = "emotional_analyzer"
	MediationAnalyzer AgentName = "mediation_analyzer"
	ProgressAnalyzer  AgentName = "progress_analyzer"

	// CoordinatorSource marks recommendations produced by the coordinator itself
	CoordinatorSource AgentName = "coordinator"
)

// DefaultExpectedAgents returns the agents a fully provisioned system runs
func DefaultExpectedAgents() []AgentName {
	return []AgentName{ContractAnalyzer, EmotionalAnalyzer, MediationAnalyzer, ProgressAnalyzer}
}

// Operations recorded in the communication log
const (
	OperationAnalyze     = "analyze"
	OperationRespond     = "respond_to_event"
	OperationHealthCheck = "health_check"
	OperationInstantiate = "instantiate"
)

// Priority ranks recommendations, coordinations, events and conflict severities.
// The numeric value is the rank: critical=4 > high=3 > medium=2 > low=1.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// AllPriorities lists every valid priority from highest to lowest
func AllPriorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the four defined levels
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Rank returns the sort weight; unknown priorities rank below low
func (p Priority) Rank() int {
	if !p.Valid() {
		return 0
	}
	return int(p)
}

// ParsePriority parses critical, high, medium or low
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Recommendation is a piece of guidance emitted by an agent or by the coordinator
type Recommendation struct {
	Category       string             `json:"category" yaml:"category"`
	Priority       Priority           `json:"priority" yaml:"priority"`
	Action         string             `json:"action" yaml:"action"`
	Details        string             `json:"details,omitempty" yaml:"details,omitempty"`
	Parameters     map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Source         AgentName          `json:"source" yaml:"source"`
	Supporters     []AgentName        `json:"supporters,omitempty" yaml:"supporters,omitempty"`
	CoordinationID string             `json:"coordination_id,omitempty" yaml:"coordination_id,omitempty"`
}

// RecommendationKey is the deduplication identity of a recommendation
type RecommendationKey struct {
	Action   string
	Category string
}

// Key returns the (action, category) identity, compared case-insensitively
func (r Recommendation) Key() RecommendationKey {
	return RecommendationKey{
		Action:   strings.ToLower(strings.TrimSpace(r.Action)),
		Category: strings.ToLower(strings.TrimSpace(r.Category)),
	}
}

// Clone returns a deep copy
func (r Recommendation) Clone() Recommendation {
	out := r
	if r.Parameters != nil {
		out.Parameters = make(map[string]float64, len(r.Parameters))
		for k, v := range r.Parameters {
			out.Parameters[k] = v
		}
	}
	if r.Supporters != nil {
		out.Supporters = append([]AgentName(nil), r.Supporters...)
	}
	return out
}

// Finding is a single observation with the agent's confidence in it (0..1)
type Finding struct {
	Statement  string  `json:"statement" yaml:"statement"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// RiskFactor is a risk an agent wants surfaced in the unified assessment
type RiskFactor struct {
	Factor      string    `json:"factor" yaml:"factor"`
	Severity    Priority  `json:"severity" yaml:"severity"`
	Source      AgentName `json:"source" yaml:"source"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Report is the payload an agent returns for one invocation
type Report struct {
	Agent           AgentName          `json:"agent"`
	Summary         string             `json:"summary,omitempty"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	Findings        []Finding          `json:"findings,omitempty"`
	RiskFactors     []RiskFactor       `json:"risk_factors,omitempty"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`
	Confidence      float64            `json:"confidence"`
	Data            map[string]any     `json:"data,omitempty"`
}

// Score returns a named score and whether it was reported
func (r *Report) Score(name string) (float64, bool) {
	if r == nil || r.Scores == nil {
		return 0, false
	}
	v, ok := r.Scores[name]
	return v, ok
}

// Clone returns a deep copy so stored reports are never shared with agents
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	if r.Scores != nil {
		out.Scores = make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			out.Scores[k] = v
		}
	}
	out.Findings = append([]Finding(nil), r.Findings...)
	out.RiskFactors = append([]RiskFactor(nil), r.RiskFactors...)
	if r.Recommendations != nil {
		out.Recommendations = make([]Recommendation, len(r.Recommendations))
		for i, rec := range r.Recommendations {
			out.Recommendations[i] = rec.Clone()
		}
	}
	if r.Data != nil {
		out.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			out.Data[k] = v
		}
	}
	return &out
}

// Event is an asynchronous signal routed to the agents relevant to its category
type Event struct {
	Type     string         `json:"type" yaml:"type"`
	Category string         `json:"category" yaml:"category"`
	Payload  map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Analyzer is the capability every agent provides
type Analyzer interface {
	// Name returns the unique agent name
	Name() AgentName

	// Applies reports whether the context carries the fields this agent needs
	Applies(actx AnalysisContext) bool

	// Analyze scores the context. Failures must be returned, not panicked.
	Analyze(ctx context.Context, actx AnalysisContext) (*Report, error)
}

// EventResponder is implemented by agents that react to routed events directly.
// Agents without it are invoked through Analyze over the event payload.
type EventResponder interface {
	RespondToEvent(ctx context.Context, event Event) (*Report, error)
}

// HealthChecker is implemented by agents that can report their own responsiveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Factory lazily constructs an agent during initialization
type Factory func() (Analyzer, error)
