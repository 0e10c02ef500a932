package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

func TestTerminalSize_ReturnsInts(t *testing.T) {
	// May return 0,0 if not a terminal
	width, height := terminalSize()
	if width < 0 || height < 0 {
		t.Errorf("terminalSize returned negative values: %d, %d", width, height)
	}
}

func TestTerminalTooSmall_ReturnsBool(t *testing.T) {
	_ = terminalTooSmall()
}

// runAsync runs the plain fallback and returns a channel with its result.
func runAsync(ctx context.Context, tui *TUI) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- tui.runSimple(ctx)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runSimple returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runSimple did not exit")
	}
}

func TestRunSimple_ExitsOnChannelClose(t *testing.T) {
	eventChan := make(chan events.Event)
	tui := New(store.New(), WithEvents(eventChan), WithOutput(&bytes.Buffer{}))

	done := runAsync(context.Background(), tui)
	close(eventChan)

	waitDone(t, done)
}

func TestRunSimple_ExitsOnContextDone(t *testing.T) {
	tui := New(store.New(), WithEvents(make(chan events.Event)), WithOutput(&bytes.Buffer{}))
	ctx, cancel := context.WithCancel(context.Background())

	done := runAsync(ctx, tui)
	cancel()

	waitDone(t, done)
}

func TestRunSimple_PrintsEventsUntilTerminal(t *testing.T) {
	eventChan := make(chan events.Event, 4)
	var out bytes.Buffer
	tui := New(store.New(), WithEvents(eventChan), WithOutput(&out))

	eventChan <- &events.StateChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventStateChanged),
		Run:       1, From: events.PhaseIdle, To: events.PhaseRunning,
	}
	eventChan <- &events.StageReachedEvent{
		BaseEvent: events.NewControllerEvent(events.EventStageReached),
		Run:       1, Stage: 1, Title: "Understanding Your Query",
	}
	eventChan <- &events.StateChangedEvent{
		BaseEvent: events.NewControllerEvent(events.EventStateChanged),
		Run:       1, From: events.PhaseRunning, To: events.PhaseComplete, Stage: 5, ElapsedMs: 2500,
	}
	eventChan <- &events.StageReachedEvent{
		BaseEvent: events.NewControllerEvent(events.EventStageReached),
		Run:       2, Stage: 1, Title: "never printed",
	}

	waitDone(t, runAsync(context.Background(), tui))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "run 1: idle -> running") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[2], "running -> complete at stage 5 (2500ms)") {
		t.Errorf("line 2 = %q", lines[2])
	}
	if !strings.HasPrefix(lines[1], "[") {
		t.Errorf("line 1 = %q, want timestamp prefix", lines[1])
	}
}

func TestRunSimple_PrintsStoreTransitions(t *testing.T) {
	st := store.New()
	var out bytes.Buffer
	tui := New(st, WithOutput(&out))

	done := runAsync(context.Background(), tui)

	// Wait for the watch to register before driving the store.
	time.Sleep(20 * time.Millisecond)
	st.Start()
	st.ProgressToNextStage()
	st.SetError(animerr.New(animerr.KindTimeout, "deadline"))

	waitDone(t, done)

	want := []string{
		"stage 1/5: Understanding Your Query (0%)",
		"stage 2/5: Searching Database (20%)",
		"failed: The search took too long to respond. Please try again.",
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunSimple_AlreadyTerminal(t *testing.T) {
	st := store.New()
	st.Start()
	st.CancelAnimation()
	var out bytes.Buffer

	waitDone(t, runAsync(context.Background(), New(st, WithOutput(&out))))

	if got := strings.TrimSpace(out.String()); got != "cancelled" {
		t.Errorf("output = %q, want cancelled", got)
	}
}
