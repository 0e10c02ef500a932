package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

const (
	// trimEventLines is the number of lines to remove when the log exceeds max.
	trimEventLines = 50
)

// channelClosedMsg signals that the state channel was closed.
type channelClosedMsg struct{}

// waitForState creates a command that waits for the next store snapshot.
// Returns channelClosedMsg if the channel is closed.
func waitForState(ch <-chan store.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return stateMsg(s)
	}
}

// waitForEvent creates a command that waits for the next router event.
// A closed channel ends the event log quietly.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{event}
	}
}

// waitForSlow creates a command that waits for the next slow-response state.
func waitForSlow(ch <-chan slowresponse.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return slowMsg(s)
	}
}

// refreshAfter redraws once the focus trap has moved focus.
func refreshAfter() tea.Cmd {
	return tea.Tick(a11y.DefaultSettleDelay+10*time.Millisecond, func(_ time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(progressWidth, safeWidth(m.width-8))
		return m, nil

	case stateMsg:
		cmd := m.handleState(store.State(msg))
		return m, tea.Batch(cmd, waitForState(m.states))

	case channelClosedMsg:
		// State channel closed - clean exit
		slog.Info("store watch closed, exiting TUI")
		return m, tea.Quit

	case slowMsg:
		m.slow = slowresponse.State(msg)
		var cmd tea.Cmd
		if m.syncActions() {
			cmd = refreshAfter()
		}
		return m, tea.Batch(cmd, waitForSlow(m.slowChan))

	case eventMsg:
		m.handleEvent(msg.Event)
		return m, waitForEvent(m.eventChan)

	case spinner.TickMsg:
		if !m.state.IsAnimating || m.reduced {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case refreshMsg:
		return m, nil

	default:
		return m, nil
	}
}

// handleState applies a store snapshot and returns the animation commands it
// needs.
func (m *model) handleState(s store.State) tea.Cmd {
	m.state = s
	m.reduced = m.motion.ReducedMotion()

	var cmds []tea.Cmd
	if m.syncActions() {
		cmds = append(cmds, refreshAfter())
	}
	if !m.reduced {
		cmds = append(cmds, m.progress.SetPercent(store.Progress(s)/100))
		if s.IsAnimating && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
	}
	return tea.Batch(cmds...)
}

// handleEvent appends an event to the log, trimming the oldest lines.
func (m *model) handleEvent(event events.Event) {
	text := events.Format(event)
	if text == "" {
		return
	}
	m.eventLines = append(m.eventLines, eventLine{
		Time:  event.Timestamp(),
		Text:  text,
		Style: StyleForEvent(event),
	})
	if len(m.eventLines) > maxEventLines {
		m.eventLines = m.eventLines[trimEventLines:]
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "c", "esc":
		m.cancel()
		return m, nil

	case "r":
		m.retry()
		return m, nil

	case "tab":
		m.trap.HandleTab(false)
		return m, nil

	case "shift+tab":
		m.trap.HandleTab(true)
		return m, nil

	case "enter", " ":
		return m.activate()

	default:
		return m, nil
	}
}

func (m model) cancel() {
	if m.state.IsAnimating && m.onCancel != nil {
		m.onCancel()
	}
}

func (m model) retry() {
	if err := m.state.Error; err != nil && err.Retryable && m.onRetry != nil {
		m.onRetry()
	}
}

// activate runs the focused button.
func (m model) activate() (tea.Model, tea.Cmd) {
	switch m.focus.focusedID() {
	case ActionCancel:
		m.cancel()
	case ActionRetry:
		m.retry()
	case ActionClose:
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit
	}
	return m, nil
}
