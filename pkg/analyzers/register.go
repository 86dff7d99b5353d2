package analyzers

import (
	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/llm"
)

// RegisterDefaults registers factories for the four reference analyzers,
// skipping any name listed in disabled.
func RegisterDefaults(registry *agents.Registry, client llm.Client, disabled ...agents.AgentName) error {
	skip := make(map[agents.AgentName]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}

	factories := map[agents.AgentName]agents.Factory{
		agents.ContractAnalyzer:  func() (agents.Analyzer, error) { return NewContractAnalyzer(), nil },
		agents.EmotionalAnalyzer: func() (agents.Analyzer, error) { return NewEmotionalAnalyzer(), nil },
		agents.MediationAnalyzer: func() (agents.Analyzer, error) { return NewMediationAnalyzer(client), nil },
		agents.ProgressAnalyzer:  func() (agents.Analyzer, error) { return NewProgressAnalyzer(), nil },
	}

	for _, name := range agents.DefaultExpectedAgents() {
		if skip[name] {
			continue
		}
		if err := registry.RegisterFactory(name, factories[name]); err != nil {
			return err
		}
	}
	return nil
}
