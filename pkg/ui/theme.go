package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
)

// Theme defines colors and styles for terminal output
type Theme struct {
	Name string

	// Primary colors
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// Text colors
	Text      lipgloss.Color
	TextMuted lipgloss.Color

	// Border colors
	Border      lipgloss.Color
	BorderFocus lipgloss.Color

	Styles ThemeStyles
}

// ThemeStyles contains pre-configured lipgloss styles
type ThemeStyles struct {
	// Layout styles
	Title   lipgloss.Style
	Section lipgloss.Style
	Footer  lipgloss.Style
	Panel   lipgloss.Style
	Alert   lipgloss.Style

	// Status styles
	StatusInfo    lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style

	// Typography
	Bold   lipgloss.Style
	Italic lipgloss.Style
	Muted  lipgloss.Style
	Code   lipgloss.Style
}

// NewDarkTheme creates a dark theme
func NewDarkTheme() Theme {
	theme := Theme{
		Name:       "dark",
		Primary:    lipgloss.Color("#7c3aed"), // Purple
		Secondary:  lipgloss.Color("#10b981"), // Green
		Accent:     lipgloss.Color("#f59e0b"), // Amber
		Background: lipgloss.Color("#1f2937"),
		Surface:    lipgloss.Color("#374151"),

		Success: lipgloss.Color("#10b981"),
		Warning: lipgloss.Color("#f59e0b"),
		Error:   lipgloss.Color("#ef4444"),
		Info:    lipgloss.Color("#3b82f6"),

		Text:      lipgloss.Color("#f9fafb"),
		TextMuted: lipgloss.Color("#9ca3af"),

		Border:      lipgloss.Color("#4b5563"),
		BorderFocus: lipgloss.Color("#7c3aed"),
	}

	theme.Styles = createThemeStyles(theme)
	return theme
}

// NewLightTheme creates a light theme
func NewLightTheme() Theme {
	theme := Theme{
		Name:       "light",
		Primary:    lipgloss.Color("#5b21b6"),
		Secondary:  lipgloss.Color("#059669"),
		Accent:     lipgloss.Color("#d97706"),
		Background: lipgloss.Color("#ffffff"),
		Surface:    lipgloss.Color("#f9fafb"),

		Success: lipgloss.Color("#059669"),
		Warning: lipgloss.Color("#d97706"),
		Error:   lipgloss.Color("#dc2626"),
		Info:    lipgloss.Color("#2563eb"),

		Text:      lipgloss.Color("#111827"),
		TextMuted: lipgloss.Color("#6b7280"),

		Border:      lipgloss.Color("#d1d5db"),
		BorderFocus: lipgloss.Color("#5b21b6"),
	}

	theme.Styles = createThemeStyles(theme)
	return theme
}

// ThemeByName returns the light theme for "light" and the dark theme otherwise
func ThemeByName(name string) Theme {
	if name == "light" {
		return NewLightTheme()
	}
	return NewDarkTheme()
}

func createThemeStyles(theme Theme) ThemeStyles {
	return ThemeStyles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary).
			Margin(0, 0, 1, 0),

		Section: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary).
			Margin(1, 0, 0, 0),

		Footer: lipgloss.NewStyle().
			Foreground(theme.TextMuted).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			Foreground(theme.Text).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Alert: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Error).
			Padding(0, 1).
			Border(lipgloss.ThickBorder()).
			BorderForeground(theme.Error),

		StatusInfo: lipgloss.NewStyle().
			Foreground(theme.Info).
			Bold(true),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(theme.Success).
			Bold(true),

		StatusWarning: lipgloss.NewStyle().
			Foreground(theme.Warning).
			Bold(true),

		StatusError: lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true),

		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		Italic: lipgloss.NewStyle().
			Italic(true).
			Foreground(theme.TextMuted),

		Muted: lipgloss.NewStyle().
			Foreground(theme.TextMuted),

		Code: lipgloss.NewStyle().
			Foreground(theme.Accent),
	}
}

// PriorityStyle returns the style used for a priority or severity label
func (t Theme) PriorityStyle(p agents.Priority) lipgloss.Style {
	switch p {
	case agents.PriorityCritical:
		return t.Styles.StatusError
	case agents.PriorityHigh:
		return t.Styles.StatusWarning
	case agents.PriorityMedium:
		return t.Styles.StatusInfo
	default:
		return t.Styles.Muted
	}
}

// AgentStateStyle returns the style for a single agent's availability
func (t Theme) AgentStateStyle(state agents.AgentState) lipgloss.Style {
	switch state {
	case agents.AgentOperational:
		return t.Styles.StatusSuccess
	case agents.AgentUnresponsive:
		return t.Styles.StatusWarning
	default:
		return t.Styles.StatusError
	}
}

// SystemStateStyle returns the style for the aggregate health
func (t Theme) SystemStateStyle(state agents.SystemState) lipgloss.Style {
	switch state {
	case agents.SystemOperational:
		return t.Styles.StatusSuccess
	case agents.SystemDegraded:
		return t.Styles.StatusWarning
	default:
		return t.Styles.StatusError
	}
}

// AgentStateIcon returns an icon for an agent's availability
func AgentStateIcon(state agents.AgentState) string {
	switch state {
	case agents.AgentOperational:
		return "✓"
	case agents.AgentUnresponsive:
		return "⏳"
	case agents.AgentUnavailable:
		return "✗"
	default:
		return "○"
	}
}
