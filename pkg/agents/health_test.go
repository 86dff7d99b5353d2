package agents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/repaircoord/pkg/clock"
)

func TestOverallStatusFor(t *testing.T) {
	assert.Equal(t, SystemOperational, OverallStatusFor(0))
	assert.Equal(t, SystemDegraded, OverallStatusFor(1))
	assert.Equal(t, SystemDegraded, OverallStatusFor(2))
	assert.Equal(t, SystemCritical, OverallStatusFor(3))
	assert.Equal(t, SystemCritical, OverallStatusFor(4))
}

func registryWith(t *testing.T, names ...AgentName) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range names {
		require.NoError(t, r.Register(newStubAgent(name)))
	}
	return r
}

func TestPerformHealthCheckCountsMissingAgents(t *testing.T) {
	tests := []struct {
		name       string
		registered []AgentName
		want       SystemState
	}{
		{"all present", DefaultExpectedAgents(), SystemOperational},
		{"one missing", DefaultExpectedAgents()[:3], SystemDegraded},
		{"two missing", DefaultExpectedAgents()[:2], SystemDegraded},
		{"three missing", DefaultExpectedAgents()[:1], SystemCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthMonitor(registryWith(t, tt.registered...), NewCommunicationLog(10), DefaultExpectedAgents())
			snap := hm.PerformHealthCheck(context.Background())

			assert.Equal(t, tt.want, snap.OverallStatus)
			assert.Len(t, snap.PerAgent, 4)
			assert.Len(t, snap.Unavailable, 4-len(tt.registered))
		})
	}
}

func TestPerformHealthCheckUsesLogAndProbe(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	registry := registryWith(t, ContractAnalyzer)
	sick := newStubAgent(EmotionalAnalyzer)
	sick.healthErr = fmt.Errorf("model not loaded")
	require.NoError(t, registry.Register(sick))

	log := NewCommunicationLog(10)
	log.Record(LogEntry{Agent: ContractAnalyzer, Duration: 40 * time.Millisecond, Success: true, Timestamp: clk.Now()})

	hm := NewHealthMonitorWithClock(registry, log, []AgentName{ContractAnalyzer, EmotionalAnalyzer}, clk)
	snap := hm.PerformHealthCheck(context.Background())

	contract := snap.PerAgent[ContractAnalyzer]
	assert.Equal(t, AgentOperational, contract.Status)
	assert.Equal(t, 1.0, contract.SuccessRate)
	assert.Equal(t, 40*time.Millisecond, contract.AvgLatency)
	assert.Equal(t, clk.Now(), contract.LastActivity)

	emotional := snap.PerAgent[EmotionalAnalyzer]
	assert.Equal(t, AgentUnresponsive, emotional.Status)
	assert.Contains(t, emotional.Error, "model not loaded")
	assert.Equal(t, SystemDegraded, snap.OverallStatus)

	latest, ok := hm.Latest()
	require.True(t, ok)
	assert.Equal(t, snap.CheckedAt, latest.CheckedAt)
}

func TestHealthMonitorLoopWithFakeClock(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	registry := registryWith(t, DefaultExpectedAgents()...)
	hm := NewHealthMonitorWithClock(registry, NewCommunicationLog(10), DefaultExpectedAgents(), clk)
	hm.SetInterval(30 * time.Second)

	hm.Start(context.Background())
	defer hm.Stop()

	require.Eventually(t, func() bool {
		_, ok := hm.Latest()
		return ok
	}, time.Second, time.Millisecond)

	first, _ := hm.Latest()
	clk.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		latest, _ := hm.Latest()
		return latest.CheckedAt.After(first.CheckedAt)
	}, time.Second, time.Millisecond)

	hm.Stop()
	hm.Stop()
}
