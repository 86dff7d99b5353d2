package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
)

// DefaultWidth is used when the terminal width is unknown
const DefaultWidth = 100

// DisplayName turns identifiers such as "emotional_analyzer" into "Emotional Analyzer"
func DisplayName(id string) string {
	if id == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

// Renderer formats coordination results for the terminal
type Renderer struct {
	theme Theme
	width int
}

// NewRenderer creates a renderer. A non-positive width falls back to DefaultWidth.
func NewRenderer(theme Theme, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{theme: theme, width: width}
}

// RenderCoordination renders a full analysis report
func (r *Renderer) RenderCoordination(c *coordination.Coordination) string {
	if c == nil {
		return r.theme.Styles.Muted.Render("No coordination")
	}

	var b strings.Builder
	b.WriteString(r.theme.Styles.Title.Render("Coordination " + c.ID))
	b.WriteString("\n")

	status := string(c.Status)
	statusStyle := r.theme.Styles.StatusSuccess
	switch {
	case c.Status == coordination.StatusFailed:
		statusStyle = r.theme.Styles.StatusError
	case c.Degraded:
		status += " (degraded)"
		statusStyle = r.theme.Styles.StatusWarning
	}

	r.field(&b, "Status", statusStyle.Render(status))
	if c.ProcessID != "" {
		r.field(&b, "Process", c.ProcessID)
	}
	r.field(&b, "Priority", r.priority(c.Priority))
	if !c.EndTime.IsZero() {
		r.field(&b, "Duration", formatDuration(c.EndTime.Sub(c.StartTime)))
	}
	if c.Error != "" {
		r.field(&b, "Error", r.theme.Styles.StatusError.Render(c.Error))
	}

	if c.Consensus != nil {
		b.WriteString(r.section("Assessment"))
		r.field(&b, "Overall", DisplayName(c.Consensus.OverallAssessment))
		r.field(&b, "Confidence", fmt.Sprintf("%.0f%%", c.Consensus.Confidence*100))
		r.field(&b, "Agents", fmt.Sprintf("%d of %d", c.Consensus.AgentCount, len(c.Applicable)))
		for _, insight := range c.Consensus.KeyInsights {
			fmt.Fprintf(&b, "  • %s %s\n", insight.Statement,
				r.theme.Styles.Muted.Render("("+DisplayName(string(insight.Agent))+")"))
		}
		if len(c.Consensus.RiskFactors) > 0 {
			b.WriteString(r.section("Risk factors"))
			for _, risk := range c.Consensus.RiskFactors {
				fmt.Fprintf(&b, "  %s %s %s\n", r.priority(risk.Severity), risk.Factor,
					r.theme.Styles.Muted.Render("("+DisplayName(string(risk.Source))+")"))
			}
		}
	}

	if len(c.Conflicts) > 0 {
		b.WriteString(r.section("Conflicts"))
		for _, conflict := range c.Conflicts {
			label := conflict.ID
			if conflict.Type == coordination.ConflictAgentFailure {
				label = DisplayName(string(conflict.Agent)) + " failed: " + conflict.Message
			}
			fmt.Fprintf(&b, "  %s %s\n", r.priority(conflict.Severity), label)
		}
	}

	b.WriteString(r.section("Recommendations"))
	b.WriteString(r.recommendations(c.Recommendations))

	return r.theme.Styles.Panel.Width(r.width).Render(strings.TrimRight(b.String(), "\n"))
}

// RenderResolution renders a conflict resolution
func (r *Renderer) RenderResolution(res *coordination.Resolution) string {
	var b strings.Builder
	b.WriteString(r.theme.Styles.Title.Render("Conflict resolution"))
	b.WriteString("\n")

	if res == nil || len(res.Conflicts) == 0 {
		b.WriteString(r.theme.Styles.Muted.Render("No conflicts between agents"))
		b.WriteString("\n")
	}
	if res != nil {
		for _, conflict := range res.Conflicts {
			decision := res.FinalDecisions[conflict.ID]
			fmt.Fprintf(&b, "%s %s via %s\n", r.priority(conflict.Severity),
				DisplayName(conflict.Category), r.theme.Styles.Code.Render(string(res.ResolutionMethod[conflict.ID])))
			fmt.Fprintf(&b, "  → %s %s\n", decision.Winner.Action,
				r.theme.Styles.Muted.Render("("+decision.Rationale+")"))
		}
		b.WriteString(r.section("Consensus"))
		b.WriteString(r.recommendations(res.Consensus))
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderHealth renders a health snapshot, agents in name order
func (r *Renderer) RenderHealth(h agents.HealthSnapshot) string {
	var b strings.Builder
	b.WriteString(r.theme.Styles.Title.Render("Agent health"))
	b.WriteString("\n")
	r.field(&b, "Overall", r.theme.SystemStateStyle(h.OverallStatus).Render(string(h.OverallStatus)))
	if !h.CheckedAt.IsZero() {
		r.field(&b, "Checked", h.CheckedAt.Format(time.RFC3339))
	}

	for _, name := range sortedAgents(h.PerAgent) {
		health := h.PerAgent[name]
		line := fmt.Sprintf("%s %-20s %s", AgentStateIcon(health.Status), DisplayName(string(name)),
			r.theme.AgentStateStyle(health.Status).Render(string(health.Status)))
		if health.Calls > 0 {
			line += r.theme.Styles.Muted.Render(fmt.Sprintf("  %d calls, %.0f%% ok, avg %s",
				health.Calls, health.SuccessRate*100, formatDuration(health.AvgLatency)))
		}
		if health.Error != "" {
			line += "  " + r.theme.Styles.StatusError.Render(health.Error)
		}
		b.WriteString("  " + line + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// RenderReadiness renders the outcome of agent initialization
func (r *Renderer) RenderReadiness(report coordination.ReadinessReport) string {
	var b strings.Builder
	ready := r.theme.Styles.StatusSuccess.Render("ready")
	if !report.SystemReady {
		ready = r.theme.Styles.StatusWarning.Render("not ready")
	}
	r.field(&b, "System", ready)
	for _, msg := range report.Errors {
		b.WriteString("  " + r.theme.Styles.StatusError.Render(msg) + "\n")
	}
	b.WriteString(r.RenderHealth(report.Health))
	return b.String()
}

// RenderIntervention renders a planned intervention
func (r *Renderer) RenderIntervention(in *coordination.Intervention) string {
	if in == nil {
		return r.theme.Styles.Muted.Render("No intervention")
	}

	var b strings.Builder
	title := "Intervention for " + in.ProcessID
	if in.Escalate {
		b.WriteString(r.theme.Styles.Alert.Render("ESCALATE: " + title))
	} else {
		b.WriteString(r.theme.Styles.Title.Render(title))
	}
	b.WriteString("\n")

	r.field(&b, "Priority", r.priority(in.Priority))
	r.field(&b, "Coordination", in.CoordinationID)
	if in.PreviousCoordinationID != "" {
		r.field(&b, "Previous", in.PreviousCoordinationID)
	}
	if len(in.RecurringRisks) > 0 {
		r.field(&b, "Recurring", strings.Join(in.RecurringRisks, ", "))
	}

	b.WriteString(r.section("Actions"))
	b.WriteString(r.recommendations(in.Actions))
	return strings.TrimRight(b.String(), "\n")
}

// RenderEventResponse renders the synchronous reply to one submitted event
func (r *Renderer) RenderEventResponse(event agents.Event, resp *coordination.EventResponse) string {
	if resp == nil {
		return ""
	}
	line := fmt.Sprintf("%s %s → %s", r.priority(resp.Priority), event.Type, resp.Status)
	if resp.Status == coordination.ResponseQueued {
		line += r.theme.Styles.Muted.Render(fmt.Sprintf(" (position %d)", resp.QueuePosition))
	}
	for _, action := range resp.ImmediateActions {
		line += "\n  ! " + r.theme.Styles.StatusError.Render(action)
	}
	return line
}

// RenderEventRecord renders a finished event
func (r *Renderer) RenderEventRecord(record coordination.EventRecord) string {
	var b strings.Builder
	statusStyle := r.theme.Styles.StatusSuccess
	if record.Status == coordination.EventFailed {
		statusStyle = r.theme.Styles.StatusError
	}
	fmt.Fprintf(&b, "%s %s %s\n", record.Event.Type, r.theme.Styles.Muted.Render(record.ID),
		statusStyle.Render(string(record.Status)))

	for _, name := range record.InvolvedAgents {
		if msg, failed := record.Errors[name]; failed {
			fmt.Fprintf(&b, "  ✗ %s: %s\n", DisplayName(string(name)), msg)
		} else if _, ok := record.Responses[name]; ok {
			fmt.Fprintf(&b, "  ✓ %s\n", DisplayName(string(name)))
		}
	}
	if record.CoordinatedAction != nil && record.CoordinatedAction.Primary != nil {
		fmt.Fprintf(&b, "  → %s\n", record.CoordinatedAction.Primary.Action)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) recommendations(recs []agents.Recommendation) string {
	if len(recs) == 0 {
		return "  " + r.theme.Styles.Muted.Render("none") + "\n"
	}
	var b strings.Builder
	for i, rec := range recs {
		source := DisplayName(string(rec.Source))
		if len(rec.Supporters) > 1 {
			source = fmt.Sprintf("%s +%d", source, len(rec.Supporters)-1)
		}
		fmt.Fprintf(&b, "  %d. %s %s %s\n", i+1, r.priority(rec.Priority), rec.Action,
			r.theme.Styles.Muted.Render("["+rec.Category+", "+source+"]"))
	}
	return b.String()
}

func (r *Renderer) priority(p agents.Priority) string {
	return r.theme.PriorityStyle(p).Render(strings.ToUpper(p.String()))
}

func (r *Renderer) section(title string) string {
	return r.theme.Styles.Section.Render(title) + "\n"
}

func (r *Renderer) field(b *strings.Builder, label, value string) {
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, r.theme.Styles.Bold.Width(14).Render(label+":"), value))
	b.WriteString("\n")
}

func sortedAgents[V any](m map[agents.AgentName]V) []agents.AgentName {
	names := make([]agents.AgentName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}
