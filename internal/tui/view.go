package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// Stage glyphs.
const (
	glyphDone      = "✓"
	glyphActive    = "●"
	glyphPending   = "○"
	glyphFailed    = "✗"
	glyphCancelled = "■"
)

var buttonLabels = map[string]string{
	ActionCancel: "Cancel search",
	ActionRetry:  "Try again",
	ActionClose:  "Close",
}

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Handle too small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderStages())
	sections = append(sections, m.renderProgress())
	if panel := m.renderNotice(); panel != "" {
		sections = append(sections, panel)
	}
	if buttons := m.renderButtons(); buttons != "" {
		sections = append(sections, buttons)
	}
	if len(m.eventLines) > 0 {
		sections = append(sections, m.renderDivider())
		sections = append(sections, m.renderEvents())
	}
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderFooter())

	content := strings.Join(sections, "\n")

	// Height() can cause clipping issues; let content determine size
	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderTooSmall renders a message when the terminal is too small.
func (m model) renderTooSmall() string {
	return fmt.Sprintf("Terminal too small (%dx%d). Need %dx%d minimum.",
		m.width, m.height, minWidth, minHeight)
}

// renderHeader renders the title with run status, and the query below it.
func (m model) renderHeader() string {
	w := safeWidth(m.width - 4) // Account for container borders

	title := styles.Title.Render("Planning search")
	status := m.renderStatus()
	titleLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", max(1, w-lipgloss.Width(title)-lipgloss.Width(status))),
		status,
	)

	query := m.query
	if query == "" {
		query = "(no query)"
	}
	queryLine := styles.Query.Render(events.Truncate(query, w))

	return titleLine + "\n" + queryLine
}

// renderStatus renders the run phase label.
func (m model) renderStatus() string {
	s := m.state
	switch {
	case s.Error != nil:
		return styles.Error.Render("failed")
	case s.IsCancelled:
		return styles.Warning.Render("cancelled")
	case s.IsComplete:
		return styles.Done.Render("complete")
	case s.IsAnimating:
		return styles.Active.Render(fmt.Sprintf("stage %d/%d", s.CurrentStage, stages.Total()))
	default:
		return styles.Meta.Render("idle")
	}
}

// renderDivider renders a horizontal divider line.
func (m model) renderDivider() string {
	return styles.Divider.Render(strings.Repeat("─", safeWidth(m.width-4)))
}

// renderStages renders every stage with its glyph, and the sub-steps of the
// current one.
func (m model) renderStages() string {
	var lines []string
	for _, st := range stages.All() {
		glyph, style := m.stageGlyph(st.ID)
		lines = append(lines, fmt.Sprintf("%s %s", glyph, style.Render(st.Title)))

		if st.ID != m.state.CurrentStage || !m.state.IsAnimating {
			continue
		}
		lines = append(lines, "    "+styles.Meta.Render(st.Description))
		for _, sub := range st.SubSteps {
			lines = append(lines, "    "+m.renderSubStep(sub))
		}
	}
	return strings.Join(lines, "\n")
}

// stageGlyph picks the glyph and title style for stage id.
func (m model) stageGlyph(id int) (string, lipgloss.Style) {
	s := m.state
	current := id == s.CurrentStage

	switch {
	case s.IsComplete || id < s.CurrentStage:
		return styles.Done.Render(glyphDone), styles.Done
	case current && s.Error != nil:
		return styles.Error.Render(glyphFailed), styles.Error
	case current && s.IsCancelled:
		return styles.Warning.Render(glyphCancelled), styles.Warning
	case current && s.IsAnimating:
		if m.reduced {
			return styles.Active.Render(glyphActive), styles.Active
		}
		return m.spinner.View(), styles.Active
	default:
		return styles.Pending.Render(glyphPending), styles.Pending
	}
}

// renderSubStep renders a sub-step line, appending its dynamic value once
// one has been reported.
func (m model) renderSubStep(sub stages.SubStep) string {
	text := styles.SubStep.Render("· " + sub.Text)
	if sub.DynamicValue == "" {
		return text
	}
	if v, ok := m.state.Value(sub.DynamicValue); ok {
		return text + ": " + styles.Value.Render(formatValue(v))
	}
	return text
}

// formatValue prints whole numbers without decimals.
func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// renderProgress renders the progress bar with its percentage. With reduced
// motion the bar jumps straight to the value instead of animating.
func (m model) renderProgress() string {
	pct := store.Progress(m.state)
	var bar string
	if m.reduced {
		bar = m.progress.ViewAs(pct / 100)
	} else {
		bar = m.progress.View()
	}
	return bar + " " + styles.Meta.Render(fmt.Sprintf("%3.0f%%", pct))
}

// renderNotice renders the error panel or the slow-response messages.
func (m model) renderNotice() string {
	w := safeWidth(m.width - 4)

	if err := m.state.Error; err != nil {
		lines := []string{styles.Error.Render(events.Truncate(err.UserMessage, w))}
		if err.Retryable {
			lines = append(lines, styles.Hint.Render("Press r to try again."))
		}
		return strings.Join(lines, "\n")
	}

	if !m.state.IsAnimating {
		return ""
	}

	var lines []string
	if m.slow.ShowRotatingMessage && m.slow.Message != "" {
		lines = append(lines, styles.Rotating.Render(events.Truncate(m.slow.Message, w)))
	}
	if m.slow.ShowWarning {
		lines = append(lines, styles.Warning.Render("This is taking longer than usual."))
	}
	if m.slow.EnhancedCancel {
		lines = append(lines, styles.Hint.Render("You can cancel and refine your search."))
	}
	return strings.Join(lines, "\n")
}

// renderButtons renders the visible actions, highlighting the focused one.
func (m model) renderButtons() string {
	ids := m.visibleActions()
	if len(ids) == 0 {
		return ""
	}

	focused := m.focus.focusedID()
	buttons := make([]string, 0, len(ids))
	for _, id := range ids {
		style := styles.Button
		if id == focused {
			style = styles.ButtonFocused
		}
		buttons = append(buttons, style.Render(buttonLabels[id]))
	}
	return strings.Join(buttons, "  ")
}

// renderEvents renders the newest event log lines.
func (m model) renderEvents() string {
	w := safeWidth(m.width - 4)
	start := max(0, len(m.eventLines)-eventLogRows)

	lines := make([]string, 0, eventLogRows)
	for _, el := range m.eventLines[start:] {
		lines = append(lines, m.renderEventLine(el, w))
	}
	return strings.Join(lines, "\n")
}

// renderEventLine renders a single event line with timestamp.
func (m model) renderEventLine(el eventLine, maxWidth int) string {
	timestamp := el.Time.Format("15:04:05")
	text := events.Truncate(el.Text, max(1, maxWidth-len(timestamp)-1))
	return styles.Meta.Render(timestamp) + " " + el.Style.Render(text)
}

// renderFooter renders the key help line.
func (m model) renderFooter() string {
	var help string
	switch {
	case m.state.IsAnimating:
		help = "c: cancel  tab: focus  enter: select  q: quit"
	case m.state.Error != nil && m.state.Error.Retryable:
		help = "r: retry  tab: focus  enter: select  q: quit"
	default:
		help = "tab: focus  enter: select  q: quit"
	}
	return styles.Footer.Render(help)
}

// safeWidth ensures width is at least 1 to prevent rendering issues.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

// StyleForEvent returns the appropriate style for an event type.
func StyleForEvent(event events.Event) lipgloss.Style {
	if event == nil {
		return styles.EventAnalytics
	}

	switch e := event.(type) {
	case *events.StateChangedEvent:
		switch e.To {
		case events.PhaseError:
			return styles.Error
		case events.PhaseCancelled:
			return styles.Warning
		}
		return styles.EventLifecycle
	case *events.StageReachedEvent:
		return styles.EventLifecycle
	case *events.SlowResponseEvent:
		return styles.EventSlow
	case *events.ErrorEvent:
		return styles.Error
	default:
		return styles.EventAnalytics
	}
}
