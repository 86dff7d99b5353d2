package agents

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fumiya-kume/repaircoord/pkg/errors"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// AgentStatus is the initialization outcome reported per expected agent
type AgentStatus string

const (
	AgentStatusReady       AgentStatus = "ready"
	AgentStatusUnavailable AgentStatus = "unavailable"
	AgentStatusFailed      AgentStatus = "failed"
)

// Registry maps agent names to instances or lazy factories
type Registry struct {
	agents    map[AgentName]Analyzer
	factories map[AgentName]Factory
	mu        sync.RWMutex
	logger    *logger.Logger
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		agents:    make(map[AgentName]Analyzer),
		factories: make(map[AgentName]Factory),
		logger:    logger.GetLogger().WithPrefix("registry"),
	}
}

// Register adds an agent instance under its own name
func (r *Registry) Register(agent Analyzer) error {
	if agent == nil {
		return errors.ValidationError("cannot register a nil agent")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := agent.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %s already registered", name)
	}

	r.agents[name] = agent
	r.logger.Info("Agent registered (agent: %s)", name)
	return nil
}

// RegisterFactory adds a factory that is invoked by Instantiate
func (r *Registry) RegisterFactory(name AgentName, factory Factory) error {
	if factory == nil {
		return errors.ValidationError("cannot register a nil factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("factory for agent %s already registered", name)
	}

	r.factories[name] = factory
	r.logger.Info("Agent factory registered (agent: %s)", name)
	return nil
}

// Get returns the live instance for name
func (r *Registry) Get(name AgentName) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Has reports whether name has a live instance
func (r *Registry) Has(name AgentName) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the live agent names in sorted order
func (r *Registry) Names() []AgentName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]AgentName, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sortNames(names)
	return names
}

// Agents returns the live instances in name order
func (r *Registry) Agents() []Analyzer {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Analyzer, 0, len(names))
	for _, name := range names {
		out = append(out, r.agents[name])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Instantiate builds every factory-backed agent not yet live and reports a
// status for each expected agent. Missing or failing agents produce an error
// string but never abort instantiation of the others.
func (r *Registry) Instantiate(expected []AgentName) (map[AgentName]AgentStatus, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []string

	factoryNames := make([]AgentName, 0, len(r.factories))
	for name := range r.factories {
		factoryNames = append(factoryNames, name)
	}
	sortNames(factoryNames)

	failed := make(map[AgentName]bool)
	for _, name := range factoryNames {
		if _, live := r.agents[name]; live {
			continue
		}
		agent, err := r.build(name, r.factories[name])
		if err != nil {
			failed[name] = true
			errs = append(errs, errors.AgentExecutionError(string(name), err).Error())
			r.logger.Warn("Agent factory failed (agent: %s, error: %v)", name, err)
			continue
		}
		r.agents[name] = agent
		r.logger.Info("Agent instantiated (agent: %s)", name)
	}

	statuses := make(map[AgentName]AgentStatus, len(expected))
	for _, name := range expected {
		switch {
		case r.agents[name] != nil:
			statuses[name] = AgentStatusReady
		case failed[name]:
			statuses[name] = AgentStatusFailed
		default:
			statuses[name] = AgentStatusUnavailable
			errs = append(errs, errors.AgentUnavailableError(string(name)).Error())
			r.logger.Warn("Expected agent not registered (agent: %s)", name)
		}
	}

	for name := range r.agents {
		if _, ok := statuses[name]; !ok {
			statuses[name] = AgentStatusReady
		}
	}

	return statuses, errs
}

func (r *Registry) build(name AgentName, factory Factory) (agent Analyzer, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory panicked: %v", rec)
		}
	}()

	agent, err = factory()
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, fmt.Errorf("factory returned nil")
	}
	if agent.Name() != name {
		return nil, fmt.Errorf("factory for %s produced agent %s", name, agent.Name())
	}
	return agent, nil
}

func sortNames(names []AgentName) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}
