// Package ui renders coordination results and runs the live status dashboard
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
)

// maxRecentEvents bounds the event list shown under the agent table
const maxRecentEvents = 5

// StatusSource supplies the dashboard with fresh system status
type StatusSource interface {
	GetSystemStatus(ctx context.Context) coordination.SystemStatus
}

// StatusMsg carries a freshly fetched system status
type StatusMsg struct {
	Status coordination.SystemStatus
}

// ConfigReloadedMsg is sent when the configuration file was hot reloaded
type ConfigReloadedMsg struct {
	Version int
}

// EventProcessedMsg is sent when the router finishes an event
type EventProcessedMsg struct {
	Record coordination.EventRecord
}

type tickMsg time.Time

// Dashboard is the bubbletea model behind `status --watch`
type Dashboard struct {
	ctx      context.Context
	source   StatusSource
	theme    Theme
	interval time.Duration

	table    table.Model
	progress progress.Model

	status        coordination.SystemStatus
	hasStatus     bool
	refreshes     int
	events        []coordination.EventRecord
	configVersion int

	width  int
	height int
}

// NewDashboard creates a dashboard polling source every interval
func NewDashboard(ctx context.Context, source StatusSource, theme Theme, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	columns := []table.Column{
		{Title: "Agent", Width: 24},
		{Title: "Status", Width: 14},
		{Title: "Calls", Width: 7},
		{Title: "Success", Width: 9},
		{Title: "Latency", Width: 9},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(len(agents.DefaultExpectedAgents())+1),
		table.WithFocused(false),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.Foreground(theme.Text).Bold(false)
	t.SetStyles(styles)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Dashboard{
		ctx:      ctx,
		source:   source,
		theme:    theme,
		interval: interval,
		table:    t,
		progress: bar,
		width:    DefaultWidth,
		height:   24,
	}
}

// Init implements tea.Model
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.fetch(), d.tick())
}

// Update implements tea.Model
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		case "r":
			return d, d.fetch()
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.progress.Width = min(40, max(10, msg.Width/3))

	case StatusMsg:
		d.status = msg.Status
		d.hasStatus = true
		d.refreshes++
		d.table.SetRows(d.rows())

	case tickMsg:
		return d, tea.Batch(d.fetch(), d.tick())

	case ConfigReloadedMsg:
		d.configVersion = msg.Version

	case EventProcessedMsg:
		d.events = append(d.events, msg.Record)
		if len(d.events) > maxRecentEvents {
			d.events = d.events[len(d.events)-maxRecentEvents:]
		}
	}

	return d, nil
}

// View implements tea.Model
func (d *Dashboard) View() string {
	sections := []string{d.theme.Styles.Title.Render("repaircoord status")}

	if !d.hasStatus {
		sections = append(sections, d.theme.Styles.Muted.Render("Waiting for first health check..."))
	} else {
		health := d.status.Health
		overall := d.theme.SystemStateStyle(health.OverallStatus).Render(strings.ToUpper(string(health.OverallStatus)))
		sections = append(sections,
			fmt.Sprintf("System %s  %s", overall, d.progress.ViewAs(d.operationalRatio())),
			d.theme.Styles.Muted.Render(fmt.Sprintf("in progress %d • completed %d • failed %d • queue %d • log %d",
				d.status.Coordinations[coordination.StatusInProgress],
				d.status.Coordinations[coordination.StatusCompleted],
				d.status.Coordinations[coordination.StatusFailed],
				d.status.QueueLength,
				d.status.CommunicationLogSize)),
			d.table.View(),
		)
	}

	if len(d.events) > 0 {
		lines := []string{d.theme.Styles.Section.Render("Recent events")}
		for i := len(d.events) - 1; i >= 0; i-- {
			record := d.events[i]
			style := d.theme.Styles.StatusSuccess
			if record.Status == coordination.EventFailed {
				style = d.theme.Styles.StatusError
			}
			lines = append(lines, fmt.Sprintf("  %s %s %s", style.Render(string(record.Status)),
				record.Event.Type, d.theme.Styles.Muted.Render(record.Event.Category)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	footer := "r: refresh • q: quit"
	if d.configVersion > 0 {
		footer = fmt.Sprintf("config v%d • %s", d.configVersion, footer)
	}
	sections = append(sections, d.theme.Styles.Footer.Render(footer))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Refreshes counts status updates received
func (d *Dashboard) Refreshes() int {
	return d.refreshes
}

func (d *Dashboard) fetch() tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Status: d.source.GetSystemStatus(d.ctx)}
	}
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) rows() []table.Row {
	perAgent := d.status.Health.PerAgent
	rows := make([]table.Row, 0, len(perAgent))
	for _, name := range sortedAgents(perAgent) {
		health := perAgent[name]
		rows = append(rows, table.Row{
			AgentStateIcon(health.Status) + " " + DisplayName(string(name)),
			string(health.Status),
			fmt.Sprintf("%d", health.Calls),
			fmt.Sprintf("%.0f%%", health.SuccessRate*100),
			formatDuration(health.AvgLatency),
		})
	}
	return rows
}

func (d *Dashboard) operationalRatio() float64 {
	perAgent := d.status.Health.PerAgent
	if len(perAgent) == 0 {
		return 0
	}
	up := 0
	for _, health := range perAgent {
		if health.Status == agents.AgentOperational {
			up++
		}
	}
	return float64(up) / float64(len(perAgent))
}
