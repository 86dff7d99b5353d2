// Package coordination runs analyzers over a shared context, merges their reports,
// reconciles conflicting recommendations and routes asynchronous events.
package coordination

import (
	"fmt"
	"strings"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// Status of a coordination. It only moves forward out of in_progress.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ConflictType distinguishes agent failures from recommendation disagreements
type ConflictType string

const (
	ConflictAgentFailure   ConflictType = "agent_failure"
	ConflictRecommendation ConflictType = "recommendation"
)

// Conflict is either a failed agent call or a disagreement between agents
type Conflict struct {
	ID                       string                  `json:"id"`
	Type                     ConflictType            `json:"type"`
	Category                 string                  `json:"category,omitempty"`
	Severity                 agents.Priority         `json:"severity"`
	Agent                    agents.AgentName        `json:"agent,omitempty"`
	Message                  string                  `json:"message,omitempty"`
	CompetingRecommendations []agents.Recommendation `json:"competing_recommendations,omitempty"`
}

// Coordination is one end-to-end analysis run
type Coordination struct {
	ID              string                              `json:"id"`
	ProcessID       string                              `json:"process_id,omitempty"`
	StartTime       time.Time                           `json:"start_time"`
	EndTime         time.Time                           `json:"end_time,omitempty"`
	Context         agents.AnalysisContext              `json:"context"`
	AgentResults    map[agents.AgentName]*agents.Report `json:"agent_results"`
	Applicable      []agents.AgentName                  `json:"applicable_agents"`
	Conflicts       []Conflict                          `json:"conflicts,omitempty"`
	Consensus       *Consensus                          `json:"consensus,omitempty"`
	Resolution      *Resolution                         `json:"resolution,omitempty"`
	Recommendations []agents.Recommendation             `json:"recommendations"`
	Priority        agents.Priority                     `json:"priority"`
	Status          Status                              `json:"status"`
	Degraded        bool                                `json:"degraded"`
	Error           string                              `json:"error,omitempty"`
}

func newCoordination(id string, actx agents.AnalysisContext, now time.Time) *Coordination {
	return &Coordination{
		ID:           id,
		ProcessID:    actx.String(agents.FieldProcessID),
		StartTime:    now,
		Context:      actx.Clone(),
		AgentResults: make(map[agents.AgentName]*agents.Report),
		Priority:     ClassifyPriority(actx),
		Status:       StatusInProgress,
	}
}

// Terminal reports whether the coordination has left in_progress
func (c *Coordination) Terminal() bool {
	return c.Status != StatusInProgress
}

func (c *Coordination) complete(now time.Time) error {
	if c.Terminal() {
		return fmt.Errorf("coordination %s is already %s", c.ID, c.Status)
	}
	c.Status = StatusCompleted
	c.EndTime = now
	return nil
}

func (c *Coordination) fail(now time.Time, cause error) error {
	if c.Terminal() {
		return fmt.Errorf("coordination %s is already %s", c.ID, c.Status)
	}
	c.Status = StatusFailed
	c.EndTime = now
	if cause != nil {
		c.Error = cause.Error()
	}
	return nil
}

// Duration is the wall time of a terminal coordination
func (c *Coordination) Duration() time.Duration {
	if c.EndTime.IsZero() {
		return 0
	}
	return c.EndTime.Sub(c.StartTime)
}

// FailedAgents lists agents whose call failed, in conflict order
func (c *Coordination) FailedAgents() []agents.AgentName {
	var out []agents.AgentName
	for _, conflict := range c.Conflicts {
		if conflict.Type == ConflictAgentFailure {
			out = append(out, conflict.Agent)
		}
	}
	return out
}

// Clone returns a copy that shares nothing mutable with c
func (c *Coordination) Clone() *Coordination {
	if c == nil {
		return nil
	}
	out := *c
	out.Context = c.Context.Clone()

	out.AgentResults = make(map[agents.AgentName]*agents.Report, len(c.AgentResults))
	for name, report := range c.AgentResults {
		out.AgentResults[name] = report.Clone()
	}
	out.Applicable = append([]agents.AgentName(nil), c.Applicable...)

	if c.Conflicts != nil {
		out.Conflicts = make([]Conflict, len(c.Conflicts))
		for i, conflict := range c.Conflicts {
			out.Conflicts[i] = conflict.clone()
		}
	}
	if c.Consensus != nil {
		consensus := c.Consensus.clone()
		out.Consensus = &consensus
	}
	out.Resolution = c.Resolution.Clone()
	out.Recommendations = cloneRecommendations(c.Recommendations)
	return &out
}

func (c Conflict) clone() Conflict {
	c.CompetingRecommendations = cloneRecommendations(c.CompetingRecommendations)
	return c
}

func cloneRecommendations(recs []agents.Recommendation) []agents.Recommendation {
	if recs == nil {
		return nil
	}
	out := make([]agents.Recommendation, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

// Priority flags recognized in an analysis context
const (
	FlagEmergency               = "emergency"
	FlagSafetyConcern           = "safety_concern"
	FlagEscalationRisk          = "escalation_risk"
	FlagApproachingDeadline     = "approaching_deadline"
	FlagOptimizationOpportunity = "optimization_opportunity"
)

// ClassifyPriority derives a coordination's priority from context flags
func ClassifyPriority(actx agents.AnalysisContext) agents.Priority {
	switch {
	case actx.Bool(FlagEmergency) || actx.Bool(FlagSafetyConcern):
		return agents.PriorityCritical
	case actx.Bool(FlagEscalationRisk) || actx.Bool(FlagApproachingDeadline):
		return agents.PriorityHigh
	case actx.Bool(FlagOptimizationOpportunity):
		return agents.PriorityMedium
	default:
		return agents.PriorityLow
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
