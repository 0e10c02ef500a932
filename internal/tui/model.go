package tui

import (
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// Action identifiers for focusable buttons.
const (
	ActionCancel = "cancel"
	ActionRetry  = "retry"
	ActionClose  = "close"
)

// action is a focusable button.
type action string

func (a action) FocusID() string { return string(a) }

// focusState is shared by every copy of the model; the focus trap moves
// focus from its own timer goroutine.
type focusState struct {
	mu      sync.Mutex
	actions []a11y.Element
	focused a11y.Element
}

func (f *focusState) FocusableElements() []a11y.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.actions)
}

func (f *focusState) Focused() a11y.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

func (f *focusState) Focus(el a11y.Element) {
	f.mu.Lock()
	f.focused = el
	f.mu.Unlock()
}

// setActions replaces the visible buttons and clears focus from one that
// disappeared.
func (f *focusState) setActions(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = f.actions[:0]
	for _, id := range ids {
		f.actions = append(f.actions, action(id))
	}
	if f.focused != nil && !slices.Contains(ids, f.focused.FocusID()) {
		f.focused = nil
	}
}

func (f *focusState) focusedID() string {
	if el := f.Focused(); el != nil {
		return el.FocusID()
	}
	return ""
}

// eventLine represents a formatted event for display.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// Layout size constants.
const (
	minWidth      = 50
	minHeight     = 14
	maxEventLines = 200
	eventLogRows  = 4
	progressWidth = 48
)

// model is the bubbletea model for the TUI.
type model struct {
	// Sources
	states    <-chan store.State
	eventChan <-chan events.Event
	slowChan  <-chan slowresponse.State
	motion    a11y.MotionSource

	// State
	state   store.State
	slow    slowresponse.State
	query   string
	reduced bool

	// Widgets
	spinner  spinner.Model
	spinning bool
	progress progress.Model

	// Event log
	eventLines []eventLine

	// Accessibility
	focus *focusState
	trap  *a11y.FocusTrap

	// UI state
	width  int
	height int

	// Callbacks
	onCancel func()
	onRetry  func()
	onQuit   func()
}

type modelConfig struct {
	states     <-chan store.State
	eventChan  <-chan events.Event
	slowChan   <-chan slowresponse.State
	initial    store.State
	motion     a11y.MotionSource
	query      string
	focusClock scheduler.Clock
	onCancel   func()
	onRetry    func()
	onQuit     func()
}

// stateMsg carries a store snapshot.
type stateMsg store.State

// slowMsg carries slow-response view state.
type slowMsg slowresponse.State

// eventMsg wraps an event for the bubbletea message system.
type eventMsg struct{ events.Event }

// refreshMsg forces a redraw, used after the focus trap settles.
type refreshMsg struct{}

// newModel creates a new model with the given configuration.
func newModel(cfg modelConfig) model {
	motion := cfg.motion
	if motion == nil {
		motion = a11y.StaticMotion(false)
	}
	clock := cfg.focusClock
	if clock == nil {
		clock = scheduler.Real()
	}

	focus := &focusState{}
	m := model{
		states:    cfg.states,
		eventChan: cfg.eventChan,
		slowChan:  cfg.slowChan,
		motion:    motion,
		state:     cfg.initial,
		query:     cfg.query,
		reduced:   motion.ReducedMotion(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Active)),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth), progress.WithoutPercentage()),
		focus:     focus,
		trap:      a11y.NewFocusTrap(focus, focus, a11y.WithFocusClock(clock)),
		onCancel:  cfg.onCancel,
		onRetry:   cfg.onRetry,
		onQuit:    cfg.onQuit,
	}
	m.syncActions()
	return m
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.states),
		waitForEvent(m.eventChan),
		waitForSlow(m.slowChan),
	)
}

// Update, handleKey and the message helpers are implemented in update.go
// View is implemented in view.go

// visibleActions lists the buttons the current state offers, in tab order.
func (m model) visibleActions() []string {
	var ids []string
	if m.state.IsAnimating && m.slow.ShowCancel {
		ids = append(ids, ActionCancel)
	}
	if err := m.state.Error; err != nil && err.Retryable {
		ids = append(ids, ActionRetry)
	}
	if m.state.Terminal() {
		ids = append(ids, ActionClose)
	}
	return ids
}

// syncActions updates the focusable set and engages the focus trap while
// any button is visible. It reports whether the trap was just activated.
func (m *model) syncActions() bool {
	ids := m.visibleActions()
	m.focus.setActions(ids)

	switch {
	case len(ids) > 0 && !m.trap.Active():
		m.trap.Activate()
		return true
	case len(ids) == 0 && m.trap.Active():
		m.trap.Deactivate()
		m.focus.Focus(nil)
	}
	return false
}
