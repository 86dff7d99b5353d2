package coordination

import (
	"slices"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// Settings holds every tunable the coordinator, reconciler and event router read
type Settings struct {
	AgentTimeout             time.Duration
	MaxConcurrentAgents      int
	CommunicationLogCapacity int
	HealthCheckInterval      time.Duration
	HealthCheckTimeout       time.Duration
	ExpectedAgents           []agents.AgentName

	// Conflict resolution
	TrustWeights      map[agents.AgentName]float64
	ExpertAuthorities map[string]agents.AgentName
	SafetyCategories  []string
	CategorySeverity  map[string]agents.Priority

	// Event routing
	EventPriorities  map[string]agents.Priority
	EventRoutes      map[string][]agents.AgentName
	ImmediateActions map[string][]string
}

// DefaultImmediateAction is used for critical event types without a configured action list
const DefaultImmediateAction = "Escalate to a human mediator immediately"

// DefaultSettings returns the built-in tuning
func DefaultSettings() Settings {
	return Settings{
		AgentTimeout:             agents.DefaultAgentTimeout,
		MaxConcurrentAgents:      4,
		CommunicationLogCapacity: agents.DefaultLogCapacity,
		HealthCheckInterval:      agents.DefaultHealthCheckInterval,
		HealthCheckTimeout:       agents.DefaultHealthCheckTimeout,
		ExpectedAgents:           agents.DefaultExpectedAgents(),
		TrustWeights: map[agents.AgentName]float64{
			agents.ContractAnalyzer:  1.0,
			agents.EmotionalAnalyzer: 1.2,
			agents.MediationAnalyzer: 1.5,
			agents.ProgressAnalyzer:  0.8,
		},
		ExpertAuthorities: map[string]agents.AgentName{
			"safety":             agents.EmotionalAnalyzer,
			"contract_clarity":   agents.ContractAnalyzer,
			"mediation_strategy": agents.MediationAnalyzer,
			"follow_up":          agents.ProgressAnalyzer,
		},
		SafetyCategories: []string{"safety"},
		CategorySeverity: map[string]agents.Priority{},
		EventPriorities: map[string]agents.Priority{
			"immediate_safety":        agents.PriorityCritical,
			"safety_concern":          agents.PriorityCritical,
			"emotional_escalation":    agents.PriorityHigh,
			"deadline_approaching":    agents.PriorityHigh,
			"communication_breakdown": agents.PriorityHigh,
			"progress_update":         agents.PriorityMedium,
			"feedback_received":       agents.PriorityMedium,
			"milestone_reached":       agents.PriorityLow,
		},
		EventRoutes: map[string][]agents.AgentName{
			"emotional":     {agents.EmotionalAnalyzer, agents.MediationAnalyzer},
			"communication": {agents.EmotionalAnalyzer, agents.MediationAnalyzer},
			"safety":        {agents.EmotionalAnalyzer, agents.MediationAnalyzer},
			"contract":      {agents.ContractAnalyzer},
			"progress":      {agents.ProgressAnalyzer},
		},
		ImmediateActions: map[string][]string{
			"immediate_safety": {
				"Pause all direct contact between parties",
				"Notify the assigned safety professional",
				"Share crisis resources with the affected party",
			},
			"safety_concern": {
				"Pause direct contact",
				"Escalate to a human mediator for review",
			},
		},
	}
}

// TrustWeight returns the configured weight for agent, defaulting to 1.0
func (s Settings) TrustWeight(agent agents.AgentName) float64 {
	if w, ok := s.TrustWeights[agent]; ok {
		return w
	}
	return 1.0
}

// IsSafetyCategory reports whether category is safety-relevant
func (s Settings) IsSafetyCategory(category string) bool {
	for _, c := range s.SafetyCategories {
		if normalize(c) == normalize(category) {
			return true
		}
	}
	return false
}

// Authority returns the expert agent for category
func (s Settings) Authority(category string) (agents.AgentName, bool) {
	agent, ok := s.ExpertAuthorities[normalize(category)]
	return agent, ok
}

// SeverityOverride returns a configured severity for category
func (s Settings) SeverityOverride(category string) (agents.Priority, bool) {
	p, ok := s.CategorySeverity[normalize(category)]
	if !ok || !p.Valid() {
		return 0, false
	}
	return p, true
}

// Normalized returns a copy whose category keys are trimmed and lower-cased.
// Keys that collapse onto the same category keep the value of the first key in
// sorted order.
func (s Settings) Normalized() Settings {
	out := s
	out.ExpertAuthorities = normalizeKeys(s.ExpertAuthorities)
	out.CategorySeverity = normalizeKeys(s.CategorySeverity)
	out.EventRoutes = make(map[string][]agents.AgentName, len(s.EventRoutes))
	for k, names := range normalizeKeys(s.EventRoutes) {
		out.EventRoutes[k] = append([]agents.AgentName(nil), names...)
	}
	out.SafetyCategories = make([]string, 0, len(s.SafetyCategories))
	for _, c := range s.SafetyCategories {
		if c = normalize(c); c != "" && !slices.Contains(out.SafetyCategories, c) {
			out.SafetyCategories = append(out.SafetyCategories, c)
		}
	}
	return out
}

func normalizeKeys[V any](m map[string]V) map[string]V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make(map[string]V, len(m))
	for _, k := range keys {
		nk := normalize(k)
		if _, taken := out[nk]; !taken {
			out[nk] = m[k]
		}
	}
	return out
}

// EventPriority classifies an event type; unmapped types are low
func (s Settings) EventPriority(eventType string) agents.Priority {
	if p, ok := s.EventPriorities[eventType]; ok && p.Valid() {
		return p
	}
	return agents.PriorityLow
}

// ImmediateActionsFor returns the fixed action list for a critical event type
func (s Settings) ImmediateActionsFor(eventType string) []string {
	if actions, ok := s.ImmediateActions[eventType]; ok && len(actions) > 0 {
		return append([]string(nil), actions...)
	}
	return []string{DefaultImmediateAction}
}
