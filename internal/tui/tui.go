// Package tui renders the search progress animation in a terminal using
// bubbletea, with a line-per-event fallback for non-interactive output.
package tui

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// stateBuffer is the store watch buffer; the view only needs the latest
// state, so drops under load are harmless.
const stateBuffer = 64

// TUI is the terminal renderer for one animation store.
type TUI struct {
	store      *store.Store
	eventChan  <-chan events.Event
	slowChan   <-chan slowresponse.State
	motion     a11y.MotionSource
	query      string
	focusClock scheduler.Clock
	out        io.Writer
	forcePlain bool

	onCancel func()
	onRetry  func()
	onQuit   func()
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a TUI rendering st.
func New(st *store.Store, opts ...Option) *TUI {
	t := &TUI{
		store:      st,
		motion:     a11y.StaticMotion(false),
		focusClock: scheduler.Real(),
		out:        os.Stdout,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithEvents sets the router subscription shown in the event log and used
// by the plain fallback.
func WithEvents(ch <-chan events.Event) Option {
	return func(t *TUI) {
		t.eventChan = ch
	}
}

// WithSlowResponse sets the channel carrying slow-response view state.
func WithSlowResponse(ch <-chan slowresponse.State) Option {
	return func(t *TUI) {
		t.slowChan = ch
	}
}

// WithMotion sets the reduced-motion source. Reduced motion freezes the
// spinner and the progress bar animation.
func WithMotion(src a11y.MotionSource) Option {
	return func(t *TUI) {
		if src != nil {
			t.motion = src
		}
	}
}

// WithQuery sets the query shown in the header.
func WithQuery(q string) Option {
	return func(t *TUI) {
		t.query = q
	}
}

// WithFocusClock sets the clock driving the focus trap's settle delay.
func WithFocusClock(c scheduler.Clock) Option {
	return func(t *TUI) {
		if c != nil {
			t.focusClock = c
		}
	}
}

// WithOutput sets where the plain fallback writes.
func WithOutput(w io.Writer) Option {
	return func(t *TUI) {
		if w != nil {
			t.out = w
		}
	}
}

// WithPlain forces the line-per-event fallback.
func WithPlain(plain bool) Option {
	return func(t *TUI) {
		t.forcePlain = plain
	}
}

// WithOnCancel sets the callback invoked when the user cancels the search.
func WithOnCancel(fn func()) Option {
	return func(t *TUI) {
		t.onCancel = fn
	}
}

// WithOnRetry sets the callback invoked when the user retries a failed search.
func WithOnRetry(fn func()) Option {
	return func(t *TUI) {
		t.onRetry = fn
	}
}

// WithOnQuit sets the callback invoked when the user presses 'q'.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// Run renders until the user quits or ctx is cancelled. Without a usable
// terminal it falls back to plain line output.
func (t *TUI) Run(ctx context.Context) error {
	if t.forcePlain || !isTerminal() || terminalTooSmall() {
		return t.runSimple(ctx)
	}

	states, stop := t.store.Watch(stateBuffer)
	defer stop()

	m := t.newModel(states)
	defer m.trap.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (t *TUI) newModel(states <-chan store.State) model {
	return newModel(modelConfig{
		states:     states,
		eventChan:  t.eventChan,
		slowChan:   t.slowChan,
		initial:    t.store.Snapshot(),
		motion:     t.motion,
		query:      t.query,
		focusClock: t.focusClock,
		onCancel:   t.onCancel,
		onRetry:    t.onRetry,
		onQuit:     t.onQuit,
	})
}
