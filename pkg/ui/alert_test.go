package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
)

func criticalRecord() coordination.EventRecord {
	return coordination.EventRecord{
		ID:               "evt-1",
		Event:            agents.Event{Type: "immediate_safety", Category: "safety"},
		Priority:         agents.PriorityCritical,
		ImmediateActions: []string{"Pause all direct contact between parties"},
		Status:           coordination.EventCompleted,
	}
}

func TestDefaultAlertConfig(t *testing.T) {
	config := DefaultAlertConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, 880, config.Frequency)
	assert.Equal(t, 250*time.Millisecond, config.Duration)
	assert.Equal(t, 2, config.Repeats)
	assert.True(t, config.Notify)
	assert.Zero(t, TestAlertConfig().BeepDelay)
}

func TestAlerterCriticalEvent(t *testing.T) {
	config := TestAlertConfig()
	fake := &FakeBeepProvider{}
	alerter := NewAlerterWithProvider(config, fake)

	alerter.CriticalEvent(criticalRecord())
	fake.WaitForCalls(3) // two beeps and one notification

	calls, notifications := fake.Snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, float64(config.Frequency), calls[0].Frequency)
	assert.Equal(t, int(config.Duration.Milliseconds()), calls[0].Duration)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0], "immediate_safety (safety)")
	assert.Contains(t, notifications[0], "Pause all direct contact between parties")
}

func TestAlerterWithoutNotification(t *testing.T) {
	config := TestAlertConfig()
	config.Notify = false
	config.Repeats = 1
	fake := &FakeBeepProvider{}

	NewAlerterWithProvider(config, fake).CriticalEvent(criticalRecord())
	fake.WaitForCalls(1)

	calls, notifications := fake.Snapshot()
	assert.Len(t, calls, 1)
	assert.Empty(t, notifications)
}

func TestAlerterDisabled(t *testing.T) {
	fake := &FakeBeepProvider{}
	alerter := NewAlerterWithProvider(TestAlertConfig(), fake)

	assert.True(t, alerter.IsEnabled())
	alerter.SetEnabled(false)
	assert.False(t, alerter.IsEnabled())

	alerter.CriticalEvent(criticalRecord())
	time.Sleep(20 * time.Millisecond)

	calls, notifications := fake.Snapshot()
	assert.Empty(t, calls)
	assert.Empty(t, notifications)
}

func TestAlerterAsRouterHook(t *testing.T) {
	fake := &FakeBeepProvider{}
	alerter := NewAlerterWithProvider(TestAlertConfig(), fake)

	var hook func(coordination.EventRecord) = alerter.CriticalEvent
	hook(criticalRecord())
	fake.WaitForCalls(3)

	calls, _ := fake.Snapshot()
	assert.Len(t, calls, 2)
}
