package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

func TestView_Loading(t *testing.T) {
	m := newModel(modelConfig{})
	defer m.trap.Close()

	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestView_TooSmall(t *testing.T) {
	m, _ := testModel(t, store.New())
	m.width = 40
	m.height = 10

	got := m.View()
	if !strings.Contains(got, "Terminal too small (40x10)") {
		t.Errorf("View() = %q", got)
	}
}

func TestView_Idle(t *testing.T) {
	m, _ := testModel(t, store.New())

	view := m.View()

	for _, want := range []string{"Planning search", "extensions in Camden", "idle", "0%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	for _, st := range stages.All() {
		if !strings.Contains(view, st.Title) {
			t.Errorf("view missing stage %q", st.Title)
		}
	}
	if strings.Contains(view, buttonLabels[ActionClose]) {
		t.Error("idle view should not show buttons")
	}
}

func TestView_AnimatingShowsSubStepsAndValues(t *testing.T) {
	st := store.New()
	st.Start()
	st.ProgressToNextStage()
	st.UpdateDynamicValue(stages.KeyApplicationsFound, 1234)
	m, _ := testModel(t, st)

	view := m.View()

	if !strings.Contains(view, "stage 2/5") {
		t.Error("status should show the current stage")
	}
	if !strings.Contains(view, "Querying planning records") {
		t.Error("current stage sub-steps missing")
	}
	if !strings.Contains(view, "Matching applications found: 1234") {
		t.Error("dynamic value not substituted")
	}
	if strings.Contains(view, "Computing semantic similarity") {
		t.Error("sub-steps of later stages should be hidden")
	}
	if !strings.Contains(view, glyphDone) || !strings.Contains(view, glyphPending) {
		t.Error("done and pending glyphs expected")
	}
	if !strings.Contains(view, "20%") {
		t.Error("progress should start from the previous checkpoint")
	}
}

func TestView_ReducedMotionUsesStaticGlyph(t *testing.T) {
	st := store.New()
	st.Start()
	m := newModel(modelConfig{initial: st.Snapshot(), motion: a11y.StaticMotion(true)})
	defer m.trap.Close()
	m.width, m.height = 100, 40

	if !strings.Contains(m.View(), glyphActive) {
		t.Error("reduced motion should render the static active glyph")
	}
}

func TestView_TerminalStates(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*store.Store)
		want   []string
	}{
		{
			name:   "complete",
			finish: func(s *store.Store) { s.CompleteAnimation() },
			want:   []string{"complete", "100%", buttonLabels[ActionClose]},
		},
		{
			name:   "cancelled",
			finish: func(s *store.Store) { s.CancelAnimation() },
			want:   []string{"cancelled", glyphCancelled, buttonLabels[ActionClose]},
		},
		{
			name:   "retryable error",
			finish: func(s *store.Store) { s.SetError(animerr.New(animerr.KindTimeout, "deadline")) },
			want: []string{
				"failed", glyphFailed,
				"The search took too long to respond.",
				"Press r to try again.",
				buttonLabels[ActionRetry],
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.New()
			st.Start()
			tt.finish(st)
			m, _ := testModel(t, st)

			view := m.View()
			for _, want := range tt.want {
				if !strings.Contains(view, want) {
					t.Errorf("view missing %q", want)
				}
			}
		})
	}
}

func TestView_ErrorHidesInternalMessage(t *testing.T) {
	st := store.New()
	st.Start()
	st.SetError(animerr.New(animerr.KindServer, "upstream 502 from pgbouncer"))
	m, _ := testModel(t, st)

	if strings.Contains(m.View(), "pgbouncer") {
		t.Error("diagnostic message should not be shown to the user")
	}
}

func TestView_SlowResponseNotices(t *testing.T) {
	st := store.New()
	st.Start()
	m, _ := testModel(t, st)
	m.slow = slowresponse.State{
		ShowRotatingMessage: true,
		Message:             slowresponse.Messages[0],
		ShowCancel:          true,
		ShowWarning:         true,
		EnhancedCancel:      true,
	}

	view := m.View()

	for _, want := range []string{
		slowresponse.Messages[0],
		"taking longer than usual",
		"cancel and refine",
		buttonLabels[ActionCancel],
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_SlowNoticesHiddenAfterRun(t *testing.T) {
	st := store.New()
	st.Start()
	st.CompleteAnimation()
	m, _ := testModel(t, st)
	m.slow = slowresponse.State{ShowWarning: true}

	if strings.Contains(m.View(), "taking longer than usual") {
		t.Error("slow notices should not outlive the run")
	}
}

func TestRenderButtons_HighlightsFocused(t *testing.T) {
	st := store.New()
	st.Start()
	st.SetError(animerr.New(animerr.KindConnection, "refused"))
	m, _ := testModel(t, st)

	m.focus.Focus(action(ActionClose))
	got := m.renderButtons()

	want := styles.Button.Render(buttonLabels[ActionRetry]) + "  " + styles.ButtonFocused.Render(buttonLabels[ActionClose])
	if got != want {
		t.Errorf("renderButtons() = %q, want %q", got, want)
	}
}

func TestRenderEvents_ShowsNewestRows(t *testing.T) {
	m, _ := testModel(t, store.New())
	for i := 1; i <= eventLogRows+2; i++ {
		m.handleEvent(&events.StageReachedEvent{
			BaseEvent: events.NewControllerEvent(events.EventStageReached),
			Stage:     i,
			Title:     strings.Repeat("x", i),
		})
	}

	got := m.renderEvents()

	if n := strings.Count(got, "\n") + 1; n != eventLogRows {
		t.Errorf("rows = %d, want %d", n, eventLogRows)
	}
	if strings.Contains(got, "stage 1:") || !strings.Contains(got, "stage 6:") {
		t.Errorf("renderEvents() = %q, want the newest rows", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{
		0:     "0",
		1234:  "1234",
		94.27: "94.3",
		0.5:   "0.5",
	}
	for in, want := range tests {
		if got := formatValue(in); got != want {
			t.Errorf("formatValue(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeWidth(t *testing.T) {
	tests := []struct{ in, want int }{{-5, 1}, {0, 1}, {1, 1}, {80, 80}}
	for _, tt := range tests {
		if got := safeWidth(tt.in); got != tt.want {
			t.Errorf("safeWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStyleForEvent(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  string
	}{
		{"nil", nil, "analytics"},
		{"running", &events.StateChangedEvent{To: events.PhaseRunning}, "lifecycle"},
		{"error phase", &events.StateChangedEvent{To: events.PhaseError}, "error"},
		{"cancelled", &events.StateChangedEvent{To: events.PhaseCancelled}, "warning"},
		{"stage", &events.StageReachedEvent{}, "lifecycle"},
		{"slow", &events.SlowResponseEvent{}, "slow"},
		{"error event", &events.ErrorEvent{}, "error"},
		{"analytics", &events.AnalyticsEvent{}, "analytics"},
	}
	named := map[string]lipgloss.Style{
		"analytics": styles.EventAnalytics,
		"lifecycle": styles.EventLifecycle,
		"error":     styles.Error,
		"warning":   styles.Warning,
		"slow":      styles.EventSlow,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StyleForEvent(tt.event).GetForeground()
			if want := named[tt.want].GetForeground(); got != want {
				t.Errorf("StyleForEvent() foreground = %v, want %s (%v)", got, tt.want, want)
			}
		})
	}
}
