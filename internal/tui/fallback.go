package tui

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// terminalSize returns the current terminal width and height.
// Returns 0, 0 if the terminal size cannot be determined.
func terminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// terminalTooSmall returns true if the terminal is below the minimum size.
func terminalTooSmall() bool {
	width, height := terminalSize()
	return width < minWidth || height < minHeight
}

// runSimple provides line-by-line output for non-interactive environments.
// With an event subscription it prints every formatted event and returns
// after the run's terminal state change. Without one it prints store
// transitions. It also returns when ctx is done or the source closes.
func (t *TUI) runSimple(ctx context.Context) error {
	if t.eventChan != nil {
		return t.printEvents(ctx)
	}
	return t.printStates(ctx)
}

func (t *TUI) printEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-t.eventChan:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintln(t.out, events.FormatWithTimestamp(event)); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			if sc, ok := event.(*events.StateChangedEvent); ok && events.IsTerminalPhase(sc.To) {
				return nil
			}
		}
	}
}

func (t *TUI) printStates(ctx context.Context) error {
	states, stop := t.store.Watch(stateBuffer)
	defer stop()

	var prev store.State
	if s := t.store.Snapshot(); s.Terminal() {
		return t.printState(prev, s)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-states:
			if !ok {
				return nil
			}
			if err := t.printState(prev, s); err != nil {
				return err
			}
			prev = s
			if s.Terminal() {
				return nil
			}
		}
	}
}

// printState writes one line per visible change between snapshots.
func (t *TUI) printState(prev, next store.State) error {
	var line string
	switch {
	case next.Error != nil:
		line = "failed: " + next.Error.UserMessage
	case next.IsCancelled:
		line = "cancelled"
	case next.IsComplete:
		line = "complete (100%)"
	case next.IsAnimating && next.CurrentStage != prev.CurrentStage:
		st, _ := stages.GetStageByID(next.CurrentStage)
		line = fmt.Sprintf("stage %d/%d: %s (%.0f%%)", next.CurrentStage, stages.Total(), st.Title, store.Progress(next))
	default:
		return nil
	}
	if _, err := fmt.Fprintln(t.out, line); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
