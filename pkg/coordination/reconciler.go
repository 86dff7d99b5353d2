package coordination

import (
	"sort"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// Resolution is the result of reconciling recommendations from several agents
type Resolution struct {
	ResolutionMethod map[string]Strategy     `json:"resolution_method"`
	FinalDecisions   map[string]Decision     `json:"final_decisions"`
	Conflicts        []Conflict              `json:"conflicts"`
	Consensus        []agents.Recommendation `json:"consensus"`
}

// Clone returns a deep copy
func (r *Resolution) Clone() *Resolution {
	if r == nil {
		return nil
	}
	out := &Resolution{
		ResolutionMethod: make(map[string]Strategy, len(r.ResolutionMethod)),
		FinalDecisions:   make(map[string]Decision, len(r.FinalDecisions)),
		Consensus:        cloneRecommendations(r.Consensus),
	}
	for k, v := range r.ResolutionMethod {
		out.ResolutionMethod[k] = v
	}
	for k, v := range r.FinalDecisions {
		v.Winner = v.Winner.Clone()
		out.FinalDecisions[k] = v
	}
	if r.Conflicts != nil {
		out.Conflicts = make([]Conflict, len(r.Conflicts))
		for i, c := range r.Conflicts {
			out.Conflicts[i] = c.clone()
		}
	}
	return out
}

// Reconciler detects and resolves disagreements between agents
type Reconciler struct {
	settings Settings
}

// NewReconciler creates a reconciler using the conflict settings
func NewReconciler(settings Settings) *Reconciler {
	return &Reconciler{settings: settings.Normalized()}
}

// ConflictID is the deterministic id of the conflict over category
func ConflictID(category string) string {
	category = normalize(category)
	if category == "" {
		category = "uncategorized"
	}
	return "conflict_" + category
}

// Severity classifies a conflict: a configured category override wins, then
// safety categories are critical, otherwise the highest competing priority.
func (r *Reconciler) Severity(category string, competing []agents.Recommendation) agents.Priority {
	if p, ok := r.settings.SeverityOverride(category); ok {
		return p
	}
	if r.settings.IsSafetyCategory(category) {
		return agents.PriorityCritical
	}
	severity := agents.PriorityLow
	for _, rec := range competing {
		if rec.Priority.Rank() > severity.Rank() {
			severity = rec.Priority
		}
	}
	return severity
}

// Resolve finds categories where two or more agents give different guidance,
// settles each one with the strategy its severity selects and returns the
// reconciled recommendation list. Agents are read in name order, so the same
// input always produces the same result.
func (r *Reconciler) Resolve(perAgent map[agents.AgentName][]agents.Recommendation) *Resolution {
	names := make([]agents.AgentName, 0, len(perAgent))
	for name := range perAgent {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var flat []agents.Recommendation
	for _, name := range names {
		for _, rec := range perAgent[name] {
			rec = rec.Clone()
			if rec.Source == "" {
				rec.Source = name
			}
			if !rec.Priority.Valid() {
				rec.Priority = agents.PriorityLow
			}
			flat = append(flat, rec)
		}
	}

	var categories []string
	groups := make(map[string][]agents.Recommendation)
	for _, rec := range flat {
		category := normalize(rec.Category)
		if _, ok := groups[category]; !ok {
			categories = append(categories, category)
		}
		groups[category] = append(groups[category], rec)
	}

	resolution := &Resolution{
		ResolutionMethod: make(map[string]Strategy),
		FinalDecisions:   make(map[string]Decision),
		Conflicts:        []Conflict{},
	}

	winners := make(map[string]agents.Recommendation)
	for _, category := range categories {
		group := groups[category]
		if !disagree(group) {
			continue
		}

		conflict := Conflict{
			ID:                       ConflictID(category),
			Type:                     ConflictRecommendation,
			Category:                 category,
			Severity:                 r.Severity(category, group),
			CompetingRecommendations: cloneRecommendations(group),
		}
		decision := resolve(conflict, r.settings)

		resolution.Conflicts = append(resolution.Conflicts, conflict)
		resolution.ResolutionMethod[conflict.ID] = decision.Strategy
		resolution.FinalDecisions[conflict.ID] = decision
		winners[category] = decision.Winner
	}

	var reconciled []agents.Recommendation
	placed := make(map[string]bool)
	for _, rec := range flat {
		category := normalize(rec.Category)
		winner, conflicted := winners[category]
		if !conflicted {
			reconciled = append(reconciled, rec)
			continue
		}
		if !placed[category] {
			placed[category] = true
			reconciled = append(reconciled, winner.Clone())
		}
	}

	resolution.Consensus = Finalize(reconciled)
	return resolution
}

// disagree reports whether at least two agents gave at least two different actions
func disagree(group []agents.Recommendation) bool {
	agentSet := make(map[agents.AgentName]bool)
	actionSet := make(map[string]bool)
	for _, rec := range group {
		agentSet[rec.Source] = true
		actionSet[rec.Key().Action] = true
	}
	return len(agentSet) >= 2 && len(actionSet) >= 2
}

// Finalize concatenates the lists, drops duplicate (action, category) pairs and
// stable-sorts by descending priority. The first occurrence of a duplicate is
// kept, raised to the highest priority among its duplicates and credited with
// every agent that proposed it.
func Finalize(lists ...[]agents.Recommendation) []agents.Recommendation {
	out := []agents.Recommendation{}
	index := make(map[agents.RecommendationKey]int)

	for _, list := range lists {
		for _, rec := range list {
			key := rec.Key()
			i, dup := index[key]
			if !dup {
				index[key] = len(out)
				out = append(out, rec.Clone())
				continue
			}

			kept := &out[i]
			if rec.Priority.Rank() > kept.Priority.Rank() {
				kept.Priority = rec.Priority
			}
			if rec.Source != kept.Source || len(rec.Supporters) > 0 {
				kept.Supporters = mergeSupporters(kept, rec)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}

func mergeSupporters(kept *agents.Recommendation, dup agents.Recommendation) []agents.AgentName {
	seen := make(map[agents.AgentName]bool)
	var out []agents.AgentName
	add := func(names ...agents.AgentName) {
		for _, n := range names {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(kept.Source)
	add(kept.Supporters...)
	add(dup.Source)
	add(dup.Supporters...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
