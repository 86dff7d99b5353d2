package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

func TestThemeByName(t *testing.T) {
	assert.Equal(t, "light", ThemeByName("light").Name)
	assert.Equal(t, "dark", ThemeByName("dark").Name)
	assert.Equal(t, "dark", ThemeByName("unknown").Name)
}

func TestThemesDiffer(t *testing.T) {
	dark := NewDarkTheme()
	light := NewLightTheme()

	assert.NotEqual(t, dark.Background, light.Background)
	assert.NotEqual(t, dark.Text, light.Text)
	assert.Equal(t, dark.Error, dark.Styles.StatusError.GetForeground())
}

func TestPriorityStyle(t *testing.T) {
	theme := NewDarkTheme()

	assert.Equal(t, theme.Error, theme.PriorityStyle(agents.PriorityCritical).GetForeground())
	assert.Equal(t, theme.Warning, theme.PriorityStyle(agents.PriorityHigh).GetForeground())
	assert.Equal(t, theme.Info, theme.PriorityStyle(agents.PriorityMedium).GetForeground())
	assert.Equal(t, theme.TextMuted, theme.PriorityStyle(agents.PriorityLow).GetForeground())
}

func TestStateStyles(t *testing.T) {
	theme := NewLightTheme()

	assert.Equal(t, theme.Success, theme.AgentStateStyle(agents.AgentOperational).GetForeground())
	assert.Equal(t, theme.Warning, theme.AgentStateStyle(agents.AgentUnresponsive).GetForeground())
	assert.Equal(t, theme.Error, theme.AgentStateStyle(agents.AgentUnavailable).GetForeground())

	assert.Equal(t, theme.Success, theme.SystemStateStyle(agents.SystemOperational).GetForeground())
	assert.Equal(t, theme.Warning, theme.SystemStateStyle(agents.SystemDegraded).GetForeground())
	assert.Equal(t, theme.Error, theme.SystemStateStyle(agents.SystemCritical).GetForeground())
}

func TestAgentStateIcon(t *testing.T) {
	assert.Equal(t, "✓", AgentStateIcon(agents.AgentOperational))
	assert.Equal(t, "⏳", AgentStateIcon(agents.AgentUnresponsive))
	assert.Equal(t, "✗", AgentStateIcon(agents.AgentUnavailable))
	assert.Equal(t, "○", AgentStateIcon(agents.AgentState("other")))
}
