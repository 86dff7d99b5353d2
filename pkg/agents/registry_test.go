package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAgent implements Analyzer and HealthChecker for testing
type stubAgent struct {
	name      AgentName
	report    *Report
	err       error
	healthErr error
	panicMsg  string
	block     bool
}

func newStubAgent(name AgentName) *stubAgent {
	return &stubAgent{
		name:   name,
		report: &Report{Agent: name, Confidence: 0.8},
	}
}

func (s *stubAgent) Name() AgentName { return s.name }

func (s *stubAgent) Applies(AnalysisContext) bool { return true }

func (s *stubAgent) Analyze(ctx context.Context, _ AnalysisContext) (*Report, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.block {
		select {} // ignores ctx on purpose
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.report.Clone(), nil
}

func (s *stubAgent) HealthCheck(context.Context) error {
	return s.healthErr
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newStubAgent(ContractAnalyzer)))
	require.NoError(t, r.Register(newStubAgent(EmotionalAnalyzer)))

	err := r.Register(newStubAgent(ContractAnalyzer))
	assert.Error(t, err)
	assert.Error(t, r.Register(nil))

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has(ContractAnalyzer))
	assert.False(t, r.Has(ProgressAnalyzer))
	assert.Equal(t, []AgentName{ContractAnalyzer, EmotionalAnalyzer}, r.Names())
}

func TestRegistryInstantiate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubAgent(ContractAnalyzer)))
	require.NoError(t, r.RegisterFactory(EmotionalAnalyzer, func() (Analyzer, error) {
		return newStubAgent(EmotionalAnalyzer), nil
	}))
	require.NoError(t, r.RegisterFactory(MediationAnalyzer, func() (Analyzer, error) {
		return nil, fmt.Errorf("missing lexicon")
	}))

	statuses, errs := r.Instantiate(DefaultExpectedAgents())

	assert.Equal(t, AgentStatusReady, statuses[ContractAnalyzer])
	assert.Equal(t, AgentStatusReady, statuses[EmotionalAnalyzer])
	assert.Equal(t, AgentStatusFailed, statuses[MediationAnalyzer])
	assert.Equal(t, AgentStatusUnavailable, statuses[ProgressAnalyzer])

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "mediation_analyzer")
	assert.Contains(t, errs[1], "progress_analyzer")
	assert.True(t, r.Has(EmotionalAnalyzer))
}

func TestRegistryInstantiateRejectsMismatchedFactory(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterFactory(ContractAnalyzer, func() (Analyzer, error) {
		return newStubAgent(ProgressAnalyzer), nil
	}))
	require.NoError(t, r.RegisterFactory(ProgressAnalyzer, func() (Analyzer, error) {
		panic("boom")
	}))

	statuses, errs := r.Instantiate([]AgentName{ContractAnalyzer, ProgressAnalyzer})

	assert.Equal(t, AgentStatusFailed, statuses[ContractAnalyzer])
	assert.Equal(t, AgentStatusFailed, statuses[ProgressAnalyzer])
	assert.Len(t, errs, 2)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryAgentsInNameOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []AgentName{ProgressAnalyzer, ContractAnalyzer, MediationAnalyzer} {
		require.NoError(t, r.Register(newStubAgent(name)))
	}

	var got []AgentName
	for _, a := range r.Agents() {
		got = append(got, a.Name())
	}
	assert.Equal(t, []AgentName{ContractAnalyzer, MediationAnalyzer, ProgressAnalyzer}, got)
}
