package coordination

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// fakeAgent is a configurable analyzer. It only applies when every field in
// requires is present in the context.
type fakeAgent struct {
	name     agents.AgentName
	requires []string
	applies  func(agents.AnalysisContext) bool
	recs     []agents.Recommendation
	risks    []agents.RiskFactor
	scores   map[string]float64
	err      error
	panicMsg string
	hang     bool
	delay    time.Duration
	finished func(agents.AgentName)
	release  chan struct{}
	started  chan struct{}
	calls    atomic.Int32

	mu   sync.Mutex
	seen []string
}

func newFakeAgent(name agents.AgentName, requires ...string) *fakeAgent {
	return &fakeAgent{name: name, requires: requires}
}

func (f *fakeAgent) Name() agents.AgentName { return f.name }

func (f *fakeAgent) Applies(actx agents.AnalysisContext) bool {
	if f.applies != nil {
		return f.applies(actx)
	}
	for _, field := range f.requires {
		if !actx.Has(field) {
			return false
		}
	}
	return true
}

func (f *fakeAgent) Analyze(ctx context.Context, actx agents.AnalysisContext) (*agents.Report, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.seen = append(f.seen, actx.String("event_type"))
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.hang {
		time.Sleep(time.Second) // ignores ctx
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.finished != nil {
		defer f.finished(f.name)
	}
	if f.err != nil {
		return nil, f.err
	}

	recs := make([]agents.Recommendation, len(f.recs))
	for i, r := range f.recs {
		recs[i] = r.Clone()
	}
	return &agents.Report{
		Agent:           f.name,
		Scores:          f.scores,
		Findings:        []agents.Finding{{Statement: fmt.Sprintf("%s looked at the process", f.name), Confidence: 0.8}},
		RiskFactors:     append([]agents.RiskFactor(nil), f.risks...),
		Recommendations: recs,
		Confidence:      0.8,
	}, nil
}

func (f *fakeAgent) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func rec(source agents.AgentName, category string, priority agents.Priority, action string) agents.Recommendation {
	return agents.Recommendation{Category: category, Priority: priority, Action: action, Source: source}
}

// sequentialIDs returns ids prefix-1, prefix-2, ...
func sequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.AgentTimeout = 2 * time.Second
	return s
}

func newTestRegistry(agentList ...agents.Analyzer) *agents.Registry {
	r := agents.NewRegistry()
	for _, a := range agentList {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

// fullRegistry registers the four expected agents with realistic applicability
func fullRegistry() (*agents.Registry, map[agents.AgentName]*fakeAgent) {
	contract := newFakeAgent(agents.ContractAnalyzer, agents.FieldContract)
	emotional := newFakeAgent(agents.EmotionalAnalyzer, agents.FieldCommunications)
	mediation := newFakeAgent(agents.MediationAnalyzer)
	mediation.applies = func(actx agents.AnalysisContext) bool { return len(actx.Parties()) > 1 }
	progress := newFakeAgent(agents.ProgressAnalyzer, agents.FieldProcessID)

	byName := map[agents.AgentName]*fakeAgent{
		contract.name:  contract,
		emotional.name: emotional,
		mediation.name: mediation,
		progress.name:  progress,
	}
	return newTestRegistry(contract, emotional, mediation, progress), byName
}

func fullContext() agents.AnalysisContext {
	return agents.AnalysisContext{
		agents.FieldContract:       "Alex will call Sam every Friday by 6pm.",
		agents.FieldCommunications: []any{"I am sorry for missing the meeting."},
		agents.FieldParties:        []any{"alex", "sam"},
		agents.FieldProcessID:      "proc-1",
	}
}
