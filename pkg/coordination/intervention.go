package coordination

import (
	"context"
	"sort"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

// maxRoutineActions caps the action list when nothing is urgent
const maxRoutineActions = 3

// Intervention is the set of actions planned for a process after a fresh analysis
type Intervention struct {
	ID                     string                  `json:"id"`
	ProcessID              string                  `json:"process_id"`
	CoordinationID         string                  `json:"coordination_id"`
	PreviousCoordinationID string                  `json:"previous_coordination_id,omitempty"`
	Priority               agents.Priority         `json:"priority"`
	Actions                []agents.Recommendation `json:"actions"`
	RecurringRisks         []string                `json:"recurring_risks,omitempty"`
	Escalate               bool                    `json:"escalate"`
	CreatedAt              time.Time               `json:"created_at"`
}

// CoordinateIntervention analyzes actx for processID and plans the next actions.
// Risks that were already present in the process's previous coordination make
// the intervention escalate.
func (c *Coordinator) CoordinateIntervention(ctx context.Context, processID string, actx agents.AnalysisContext) (*Intervention, error) {
	if processID == "" {
		return nil, errors.ValidationError("process id is required for an intervention")
	}

	previous := c.latestCompleted(processID)

	input := actx.Clone()
	if input == nil {
		input = agents.AnalysisContext{}
	}
	input[agents.FieldProcessID] = processID

	coord, err := c.AnalyzeRepairProcess(ctx, input)
	if err != nil {
		return nil, err
	}

	intervention := &Intervention{
		ID:             c.ids(),
		ProcessID:      processID,
		CoordinationID: coord.ID,
		Priority:       coord.Priority,
		Actions:        selectActions(coord.Recommendations),
		CreatedAt:      c.clock.Now(),
	}
	for _, rec := range intervention.Actions {
		if rec.Priority > intervention.Priority {
			intervention.Priority = rec.Priority
		}
	}

	if previous != nil {
		intervention.PreviousCoordinationID = previous.ID
		intervention.RecurringRisks = recurringRisks(previous, coord)
	}
	intervention.Escalate = intervention.Priority == agents.PriorityCritical || len(intervention.RecurringRisks) > 0

	c.logger.Info("Intervention planned (id: %s, process_id: %s, actions: %d, escalate: %t)",
		intervention.ID, processID, len(intervention.Actions), intervention.Escalate)
	return intervention, nil
}

func (c *Coordinator) latestCompleted(processID string) *Coordination {
	records := c.store.ListByProcess(processID)
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Status == StatusCompleted {
			return records[i]
		}
	}
	return nil
}

// selectActions keeps every high or critical recommendation, or the first few
// when none are urgent. recs is already sorted by priority.
func selectActions(recs []agents.Recommendation) []agents.Recommendation {
	var urgent []agents.Recommendation
	for _, rec := range recs {
		if rec.Priority.Rank() >= agents.PriorityHigh.Rank() {
			urgent = append(urgent, rec.Clone())
		}
	}
	if len(urgent) > 0 {
		return urgent
	}

	n := len(recs)
	if n > maxRoutineActions {
		n = maxRoutineActions
	}
	return cloneRecommendations(recs[:n])
}

func riskNames(c *Coordination) map[string]bool {
	names := make(map[string]bool)
	if c == nil || c.Consensus == nil {
		return names
	}
	for _, risk := range c.Consensus.RiskFactors {
		names[normalize(risk.Factor)] = true
	}
	return names
}

func recurringRisks(previous, current *Coordination) []string {
	before := riskNames(previous)
	var out []string
	for name := range riskNames(current) {
		if before[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
