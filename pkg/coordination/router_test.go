package coordination

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/clock"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

type recordSink struct {
	mu      sync.Mutex
	records []EventRecord
}

func (s *recordSink) add(r EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *recordSink) all() []EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EventRecord(nil), s.records...)
}

func newTestRouter(t *testing.T, registry *agents.Registry) (*EventRouter, *recordSink, *recordSink) {
	t.Helper()

	critical, processed := &recordSink{}, &recordSink{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	router := NewEventRouter(RouterConfig{
		Settings:    testSettings(),
		Invoker:     agents.NewInvoker(agents.NewCommunicationLog(0), clk, time.Second),
		Clock:       clk,
		IDs:         sequentialIDs("evt"),
		OnCritical:  critical.add,
		OnProcessed: processed.add,
	})
	router.SetSource(registry)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = router.Close(ctx)
	})
	return router, critical, processed
}

func waitIdle(t *testing.T, r *EventRouter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx))
}

func TestRouterCriticalEventsBypassQueue(t *testing.T) {
	emotional := newFakeAgent(agents.EmotionalAnalyzer)
	router, critical, _ := newTestRouter(t, newTestRegistry(emotional))

	resp, err := router.Submit(agents.Event{Type: "immediate_safety", Category: "safety"})
	require.NoError(t, err)

	assert.Equal(t, ResponseHandled, resp.Status)
	assert.Equal(t, agents.PriorityCritical, resp.Priority)
	assert.Len(t, resp.ImmediateActions, 3)
	assert.Equal(t, "evt-1", resp.EventID)
	assert.Zero(t, resp.QueuePosition)
	assert.Equal(t, 0, router.QueueLength())
	assert.False(t, router.Draining())

	records := critical.all()
	require.Len(t, records, 1)
	assert.Equal(t, EventCompleted, records[0].Status)
	assert.Equal(t, int32(0), emotional.calls.Load())
}

func TestRouterCriticalWithoutConfiguredActions(t *testing.T) {
	settings := testSettings()
	settings.EventPriorities["fire_alarm"] = agents.PriorityCritical

	router, _, _ := newTestRouter(t, newTestRegistry())
	router.UpdateSettings(settings)

	resp, err := router.Submit(agents.Event{Type: "fire_alarm"})
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultImmediateAction}, resp.ImmediateActions)
}

func TestRouterProcessesInFIFOOrder(t *testing.T) {
	progress := newFakeAgent(agents.ProgressAnalyzer)
	progress.recs = []agents.Recommendation{rec("", "follow_up", agents.PriorityMedium, "Schedule a check-in")}
	router, _, processed := newTestRouter(t, newTestRegistry(progress))

	types := []string{"progress_update", "milestone_reached", "feedback_received", "progress_update"}
	for i, typ := range types {
		resp, err := router.Submit(agents.Event{Type: typ, Category: "progress"})
		require.NoError(t, err)
		assert.Equal(t, ResponseQueued, resp.Status)
		assert.Equal(t, fmt.Sprintf("evt-%d", i+1), resp.EventID)
	}
	waitIdle(t, router)

	assert.Equal(t, types, progress.eventTypes())

	records := processed.all()
	require.Len(t, records, len(types))
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("evt-%d", i+1), r.ID)
		assert.Equal(t, EventCompleted, r.Status)
		assert.Equal(t, []agents.AgentName{agents.ProgressAnalyzer}, r.InvolvedAgents)
		require.NotNil(t, r.CoordinatedAction)
		require.NotNil(t, r.CoordinatedAction.Primary)
		assert.Equal(t, "Schedule a check-in", r.CoordinatedAction.Primary.Action)
	}
	assert.Equal(t, agents.PriorityLow, records[1].Priority)
}

func TestRouterSingleDrainWhileBusy(t *testing.T) {
	progress := newFakeAgent(agents.ProgressAnalyzer)
	progress.started = make(chan struct{}, 8)
	progress.release = make(chan struct{})
	router, _, processed := newTestRouter(t, newTestRegistry(progress))

	_, err := router.Submit(agents.Event{Type: "progress_update", Category: "progress"})
	require.NoError(t, err)
	<-progress.started

	second, err := router.Submit(agents.Event{Type: "progress_update", Category: "progress"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.QueuePosition)
	assert.Equal(t, 1, router.QueueLength())
	assert.True(t, router.Draining())

	resp, err := router.Submit(agents.Event{Type: "safety_concern"})
	require.NoError(t, err)
	assert.Equal(t, ResponseHandled, resp.Status)
	assert.Equal(t, 1, router.QueueLength())

	close(progress.release)
	waitIdle(t, router)

	assert.Equal(t, 0, router.QueueLength())
	assert.False(t, router.Draining())
	assert.Len(t, processed.all(), 2)
	assert.Equal(t, int32(2), progress.calls.Load())
}

func TestRouterRoutesByCategory(t *testing.T) {
	reg := newTestRegistry(
		newFakeAgent(agents.ContractAnalyzer),
		newFakeAgent(agents.EmotionalAnalyzer),
		newFakeAgent(agents.MediationAnalyzer),
	)
	router, _, _ := newTestRouter(t, reg)

	assert.Equal(t, []agents.AgentName{agents.EmotionalAnalyzer, agents.MediationAnalyzer}, router.Route("Emotional"))
	assert.Equal(t, []agents.AgentName{agents.ContractAnalyzer}, router.Route("contract"))
	assert.Equal(t, reg.Names(), router.Route("something_new"))

	assert.Equal(t, agents.PriorityHigh, router.Classify("emotional_escalation"))
	assert.Equal(t, agents.PriorityLow, router.Classify("never_seen"))
}

func TestRouterRoutesAreCaseInsensitiveAndStable(t *testing.T) {
	settings := testSettings()
	settings.EventRoutes = map[string][]agents.AgentName{
		"Repair ":  {agents.ContractAnalyzer},
		"repair":   {agents.ProgressAnalyzer},
		"Progress": {agents.ProgressAnalyzer},
	}

	router, _, _ := newTestRouter(t, newTestRegistry(newFakeAgent(agents.ContractAnalyzer), newFakeAgent(agents.ProgressAnalyzer)))
	for i := 0; i < 50; i++ {
		router.UpdateSettings(settings)
		assert.Equal(t, []agents.AgentName{agents.ContractAnalyzer}, router.Route("REPAIR"))
		assert.Equal(t, []agents.AgentName{agents.ProgressAnalyzer}, router.Route("progress"))
	}
}

func TestRouterToleratesAgentFailures(t *testing.T) {
	emotional := newFakeAgent(agents.EmotionalAnalyzer)
	emotional.recs = []agents.Recommendation{rec("", "communication", agents.PriorityHigh, "Cool off")}
	mediation := newFakeAgent(agents.MediationAnalyzer)
	mediation.err = fmt.Errorf("model offline")

	router, _, processed := newTestRouter(t, newTestRegistry(emotional, mediation))

	_, err := router.Submit(agents.Event{Type: "emotional_escalation", Category: "emotional"})
	require.NoError(t, err)
	waitIdle(t, router)

	records := processed.all()
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, EventCompleted, r.Status)
	assert.Contains(t, r.Responses, agents.EmotionalAnalyzer)
	assert.Contains(t, r.Errors[agents.MediationAnalyzer], "model offline")
	assert.Equal(t, "Cool off", r.CoordinatedAction.Primary.Action)
}

func TestRouterFailsEventWithoutResponses(t *testing.T) {
	router, _, processed := newTestRouter(t, newTestRegistry(newFakeAgent(agents.EmotionalAnalyzer)))

	_, err := router.Submit(agents.Event{Type: "deadline_approaching", Category: "contract"})
	require.NoError(t, err)
	waitIdle(t, router)

	records := processed.all()
	require.Len(t, records, 1)
	assert.Equal(t, EventFailed, records[0].Status)
	assert.Nil(t, records[0].CoordinatedAction)
	assert.Contains(t, records[0].Errors[agents.ContractAnalyzer], "not registered")
}

func TestRouterRejectsInvalidAndClosed(t *testing.T) {
	router, _, _ := newTestRouter(t, newTestRegistry())

	_, err := router.Submit(agents.Event{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	require.NoError(t, router.Close(context.Background()))
	_, err = router.Submit(agents.Event{Type: "progress_update"})
	assert.Error(t, err)
}

func TestRouterWaitIdleHonoursContext(t *testing.T) {
	progress := newFakeAgent(agents.ProgressAnalyzer)
	progress.started = make(chan struct{}, 1)
	progress.release = make(chan struct{})
	router, _, _ := newTestRouter(t, newTestRegistry(progress))
	defer close(progress.release)

	_, err := router.Submit(agents.Event{Type: "progress_update", Category: "progress"})
	require.NoError(t, err)
	<-progress.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, router.WaitIdle(ctx), context.DeadlineExceeded)
}
