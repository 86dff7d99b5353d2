package coordination

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// Strategy names a conflict resolution method
type Strategy string

const (
	StrategyExpertOverride    Strategy = "expert_override"
	StrategyWeightedVoting    Strategy = "weighted_voting"
	StrategyConsensusBuilding Strategy = "consensus_building"
	StrategyCompromise        Strategy = "compromise"
)

// StrategyFor maps a conflict severity to its strategy. Unknown severities are
// treated as low.
func StrategyFor(severity agents.Priority) Strategy {
	switch severity {
	case agents.PriorityCritical:
		return StrategyExpertOverride
	case agents.PriorityHigh:
		return StrategyWeightedVoting
	case agents.PriorityMedium:
		return StrategyConsensusBuilding
	default:
		return StrategyCompromise
	}
}

// Decision is the outcome of resolving one conflict
type Decision struct {
	ConflictID string                `json:"conflict_id"`
	Strategy   Strategy              `json:"strategy"`
	Winner     agents.Recommendation `json:"winner"`
	Score      float64               `json:"score,omitempty"`
	Rationale  string                `json:"rationale"`
}

type resolver func(conflict Conflict, settings Settings) Decision

var strategyTable = map[Strategy]resolver{
	StrategyExpertOverride:    expertOverride,
	StrategyWeightedVoting:    weightedVoting,
	StrategyConsensusBuilding: consensusBuilding,
	StrategyCompromise:        compromise,
}

func resolve(conflict Conflict, settings Settings) Decision {
	strategy := StrategyFor(conflict.Severity)
	decision := strategyTable[strategy](conflict, settings)
	decision.ConflictID = conflict.ID
	decision.Strategy = strategy
	return decision
}

// firstByPriority returns the index of the highest-priority recommendation,
// the earliest one on ties
func firstByPriority(recs []agents.Recommendation) int {
	best := 0
	for i := 1; i < len(recs); i++ {
		if recs[i].Priority.Rank() > recs[best].Priority.Rank() {
			best = i
		}
	}
	return best
}

func sources(recs []agents.Recommendation) []agents.AgentName {
	seen := make(map[agents.AgentName]bool)
	var out []agents.AgentName
	for _, r := range recs {
		if !seen[r.Source] {
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func maxPriority(recs []agents.Recommendation) agents.Priority {
	return recs[firstByPriority(recs)].Priority
}

func expertOverride(conflict Conflict, settings Settings) Decision {
	recs := conflict.CompetingRecommendations
	authority, ok := settings.Authority(conflict.Category)

	if ok {
		var fromAuthority []agents.Recommendation
		for _, r := range recs {
			if r.Source == authority {
				fromAuthority = append(fromAuthority, r)
			}
		}
		if len(fromAuthority) > 0 {
			winner := fromAuthority[firstByPriority(fromAuthority)].Clone()
			winner.Priority = maxPriority(recs)
			return Decision{
				Winner:    winner,
				Rationale: fmt.Sprintf("%s is the designated authority for %s", authority, conflict.Category),
			}
		}
	}

	winner := recs[firstByPriority(recs)].Clone()
	return Decision{
		Winner:    winner,
		Rationale: fmt.Sprintf("no authority for %s responded; highest priority recommendation from %s wins", conflict.Category, winner.Source),
	}
}

func weightedVoting(conflict Conflict, settings Settings) Decision {
	recs := conflict.CompetingRecommendations

	type ballot struct {
		first    int
		weight   float64
		priority agents.Priority
		voters   map[agents.AgentName]bool
		members  []agents.Recommendation
	}
	var order []agents.RecommendationKey
	ballots := make(map[agents.RecommendationKey]*ballot)

	for i, r := range recs {
		key := r.Key()
		b, ok := ballots[key]
		if !ok {
			b = &ballot{first: i, voters: make(map[agents.AgentName]bool)}
			ballots[key] = b
			order = append(order, key)
		}
		if !b.voters[r.Source] {
			b.voters[r.Source] = true
			b.weight += settings.TrustWeight(r.Source)
		}
		if r.Priority.Rank() > b.priority.Rank() {
			b.priority = r.Priority
		}
		b.members = append(b.members, r)
	}

	var best *ballot
	for _, key := range order {
		b := ballots[key]
		switch {
		case best == nil:
			best = b
		case b.weight > best.weight:
			best = b
		case b.weight == best.weight && b.priority.Rank() > best.priority.Rank():
			best = b
		}
	}

	winner := recs[best.first].Clone()
	winner.Priority = best.priority
	winner.Supporters = sources(best.members)
	return Decision{
		Winner:    winner,
		Score:     best.weight,
		Rationale: fmt.Sprintf("%q received the highest trust-weighted support (%.2f)", winner.Action, best.weight),
	}
}

var stopWords = map[string]bool{
	"the": true, "and": true, "with": true, "for": true, "each": true, "before": true, "after": true,
	"from": true, "into": true, "this": true, "that": true, "your": true, "their": true, "more": true,
}

func significantTokens(r agents.Recommendation) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range []string{r.Action, r.Details} {
		for _, w := range strings.FieldsFunc(strings.ToLower(field), func(c rune) bool {
			return !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '-'
		}) {
			if len(w) >= 4 && !stopWords[w] {
				tokens[w] = true
			}
		}
	}
	return tokens
}

func overlaps(a, b map[string]bool) bool {
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}

// consensusBuilding merges recommendations that share significant terms until no
// further merge is possible, then adopts the largest merged group.
func consensusBuilding(conflict Conflict, _ Settings) Decision {
	recs := conflict.CompetingRecommendations

	type cluster struct {
		members []int
		tokens  map[string]bool
	}
	clusters := make([]*cluster, len(recs))
	for i, r := range recs {
		clusters[i] = &cluster{members: []int{i}, tokens: significantTokens(r)}
	}

	for merged := true; merged; {
		merged = false
		for i := 0; i < len(clusters) && !merged; i++ {
			for j := i + 1; j < len(clusters); j++ {
				if !overlaps(clusters[i].tokens, clusters[j].tokens) {
					continue
				}
				clusters[i].members = append(clusters[i].members, clusters[j].members...)
				for t := range clusters[j].tokens {
					clusters[i].tokens[t] = true
				}
				clusters = append(clusters[:j], clusters[j+1:]...)
				merged = true
				break
			}
		}
	}

	var best *cluster
	for _, c := range clusters {
		if len(c.members) < 2 {
			continue
		}
		if best == nil || len(c.members) > len(best.members) {
			best = c
		}
	}

	if best == nil {
		winner := recs[firstByPriority(recs)].Clone()
		return Decision{
			Winner:    winner,
			Rationale: "no overlapping guidance to merge; highest priority recommendation wins",
		}
	}

	sort.Ints(best.members)
	members := make([]agents.Recommendation, 0, len(best.members))
	for _, idx := range best.members {
		members = append(members, recs[idx])
	}

	winner := members[firstByPriority(members)].Clone()
	winner.Supporters = sources(members)

	var merged []string
	seen := map[agents.RecommendationKey]bool{winner.Key(): true}
	for _, m := range members {
		if !seen[m.Key()] {
			seen[m.Key()] = true
			merged = append(merged, m.Action)
		}
	}
	if len(merged) > 0 {
		detail := "Also covers: " + strings.Join(merged, "; ")
		if winner.Details != "" {
			detail = winner.Details + " " + detail
		}
		winner.Details = detail
	}

	return Decision{
		Winner:    winner,
		Score:     float64(len(members)),
		Rationale: fmt.Sprintf("merged %d overlapping recommendations", len(members)),
	}
}

// compromise averages numeric parameters shared by every competing
// recommendation; without any it falls back to priority order.
func compromise(conflict Conflict, _ Settings) Decision {
	recs := conflict.CompetingRecommendations
	base := recs[firstByPriority(recs)].Clone()

	common := make(map[string]bool)
	for k := range recs[0].Parameters {
		common[k] = true
	}
	for _, r := range recs[1:] {
		for k := range common {
			if _, ok := r.Parameters[k]; !ok {
				delete(common, k)
			}
		}
	}

	if len(common) == 0 {
		return Decision{
			Winner:    base,
			Rationale: "no shared numeric fields; first recommendation by priority wins",
		}
	}

	keys := make([]string, 0, len(common))
	for k := range common {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make(map[string]float64, len(base.Parameters))
	for k, v := range base.Parameters {
		params[k] = v
	}
	for _, k := range keys {
		var sum float64
		for _, r := range recs {
			sum += r.Parameters[k]
		}
		params[k] = sum / float64(len(recs))
	}

	base.Parameters = params
	base.Supporters = sources(recs)
	return Decision{
		Winner:    base,
		Rationale: "averaged shared fields: " + strings.Join(keys, ", "),
	}
}
