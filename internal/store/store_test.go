package store

import (
	"sync"
	"testing"

	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
)

func TestNew_RestState(t *testing.T) {
	s := New().Snapshot()
	if s.CurrentStage != 0 || s.IsAnimating || s.Terminal() || len(s.DynamicValues) != 0 {
		t.Errorf("new store not at rest: %+v", s)
	}
}

func TestStart(t *testing.T) {
	st := New()
	st.UpdateDynamicValue(stages.KeyApplicationsFound, 1)

	run := st.Start()
	s := st.Snapshot()

	if run != 1 || s.Run != 1 {
		t.Errorf("run = %d / %d, want 1", run, s.Run)
	}
	if s.CurrentStage != 1 || !s.IsAnimating {
		t.Errorf("after Start: %+v", s)
	}
	if len(s.DynamicValues) != 0 {
		t.Errorf("Start kept dynamic values: %v", s.DynamicValues)
	}

	st.SetError(animerr.New(animerr.KindServer, "500"))
	if run2 := st.Start(); run2 != 2 {
		t.Errorf("second run = %d, want 2", run2)
	}
	if s := st.Snapshot(); s.Error != nil || !s.IsAnimating || s.CurrentStage != 1 {
		t.Errorf("restart did not clear: %+v", s)
	}
}

func TestProgressToNextStage_Monotonic(t *testing.T) {
	st := New()
	if st.ProgressToNextStage() {
		t.Fatal("advanced while not animating")
	}

	st.Start()
	last := st.Snapshot().CurrentStage
	for range 20 {
		st.ProgressToNextStage()
		cur := st.Snapshot().CurrentStage
		if cur < last || cur > last+1 {
			t.Fatalf("stage moved %d -> %d", last, cur)
		}
		if cur > stages.Total() {
			t.Fatalf("stage %d exceeds total", cur)
		}
		last = cur
	}
	if last != stages.Total() {
		t.Errorf("final stage = %d, want %d", last, stages.Total())
	}
}

func TestTerminalExclusivity(t *testing.T) {
	tests := []struct {
		name     string
		terminal func(*Store) bool
	}{
		{"complete", (*Store).CompleteAnimation},
		{"cancel", (*Store).CancelAnimation},
		{"error", func(s *Store) bool { return s.SetError(animerr.New(animerr.KindTimeout, "")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New()
			st.Start()
			st.ProgressToNextStage()

			if !tt.terminal(st) {
				t.Fatal("terminal transition reported no change")
			}
			if tt.terminal(st) {
				t.Error("terminal transition not idempotent")
			}

			before := st.Snapshot()
			st.ProgressToNextStage()
			st.CompleteAnimation()
			st.CancelAnimation()
			st.SetError(animerr.New(animerr.KindServer, ""))
			after := st.Snapshot()

			if after.CurrentStage != before.CurrentStage {
				t.Errorf("stage moved after terminal: %d -> %d", before.CurrentStage, after.CurrentStage)
			}
			n := 0
			for _, b := range []bool{after.IsComplete, after.IsCancelled, after.Error != nil} {
				if b {
					n++
				}
			}
			if n != 1 {
				t.Errorf("%d terminal conditions set: %+v", n, after)
			}
			if after.IsAnimating {
				t.Error("still animating after terminal")
			}
		})
	}
}

func TestTerminalRequiresRunning(t *testing.T) {
	st := New()
	if st.CompleteAnimation() || st.CancelAnimation() || st.SetError(animerr.New(animerr.KindUnknown, "")) {
		t.Error("terminal transition applied at rest")
	}
	if st.SetError(nil) {
		t.Error("nil error applied")
	}
}

func TestResetAnimation(t *testing.T) {
	st := New()
	if st.ResetAnimation() {
		t.Error("reset at rest reported a change")
	}

	st.Start()
	st.ProgressToNextStage()
	st.UpdateDynamicValue("x", 1)
	st.CancelAnimation()

	if !st.ResetAnimation() {
		t.Fatal("reset reported no change")
	}
	s := st.Snapshot()
	if s.CurrentStage != 0 || s.IsAnimating || s.Terminal() || len(s.DynamicValues) != 0 {
		t.Errorf("not at rest after reset: %+v", s)
	}
	if s.Run != 1 {
		t.Errorf("reset dropped run counter: %d", s.Run)
	}
}

func TestUpdateDynamicValue(t *testing.T) {
	st := New()
	st.Start()
	st.ProgressToNextStage()
	before := st.Snapshot()

	if !st.UpdateDynamicValue(stages.KeyApplicationsFound, 4821) {
		t.Fatal("update reported no change")
	}
	if st.UpdateDynamicValue(stages.KeyApplicationsFound, 4821) {
		t.Error("identical update reported a change")
	}

	after := st.Snapshot()
	if v, ok := after.Value(stages.KeyApplicationsFound); !ok || v != 4821 {
		t.Errorf("applicationsFound = %v, %v", v, ok)
	}
	if after.CurrentStage != before.CurrentStage || after.IsAnimating != before.IsAnimating ||
		after.IsComplete != before.IsComplete || after.IsCancelled != before.IsCancelled {
		t.Errorf("dynamic value changed flags: %+v -> %+v", before, after)
	}

	// Allowed at rest too.
	rest := New()
	rest.UpdateDynamicValue(stages.KeyTopMatchScore, 0.93)
	if v, _ := rest.Snapshot().Value(stages.KeyTopMatchScore); v != 0.93 {
		t.Errorf("topMatchScore = %v", v)
	}
}

func TestRunScopedTransitions(t *testing.T) {
	st := New()
	old := st.Start()
	cur := st.Start()

	if st.ProgressRun(old) {
		t.Error("stale run advanced the store")
	}
	if !st.ProgressRun(cur) {
		t.Error("current run did not advance")
	}
	if st.CompleteRun(old) {
		t.Error("stale run completed the store")
	}
	if !st.CompleteRun(cur) {
		t.Error("current run did not complete")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	st := New()
	st.UpdateDynamicValue("k", 1)

	s := st.Snapshot()
	s.DynamicValues["k"] = 99

	if v, _ := st.Snapshot().Value("k"); v != 1 {
		t.Errorf("snapshot aliased store map: %v", v)
	}
}

func TestSubscribe(t *testing.T) {
	st := New()
	var calls []State
	unsub := st.Subscribe(func(_, next State) { calls = append(calls, next) })

	st.Start()
	st.ProgressToNextStage()
	st.CompleteAnimation()
	st.CompleteAnimation() // no-op, no notification

	if len(calls) != 3 {
		t.Fatalf("got %d notifications, want 3", len(calls))
	}
	if !calls[2].IsComplete {
		t.Error("last notification is not the completion")
	}

	unsub()
	unsub()
	st.Start()
	if len(calls) != 3 {
		t.Error("notified after unsubscribe")
	}
}

func TestSubscribe_NestedMutationDeliveredInOrder(t *testing.T) {
	st := New()

	restarted := false
	st.Subscribe(func(_, next State) {
		if next.IsComplete && next.Run == 1 && !restarted {
			restarted = true
			st.Start()
		}
	})

	type seen struct {
		run      uint64
		complete bool
	}
	var got []seen
	st.Subscribe(func(_, next State) {
		got = append(got, seen{next.Run, next.IsComplete})
	})

	st.Start()
	st.CompleteAnimation()

	want := []seen{{1, false}, {1, true}, {2, false}}
	if len(got) != len(want) {
		t.Fatalf("got %d notifications %+v, want %+v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if s := st.Snapshot(); s.Run != 2 || !s.IsAnimating {
		t.Errorf("state after nested restart = %+v", s)
	}
}

func TestSubscribe_PanickingListenerDoesNotStallDelivery(t *testing.T) {
	st := New()
	unsub := st.Subscribe(func(State, State) { panic("listener failure") })

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the listener panic to propagate")
			}
		}()
		st.Start()
	}()
	unsub()

	var calls int
	st.Subscribe(func(State, State) { calls++ })
	st.CompleteAnimation()
	if calls != 1 {
		t.Errorf("got %d notifications after a panicking listener, want 1", calls)
	}
}

func TestSelect(t *testing.T) {
	st := New()

	var stageChanges [][2]int
	Select(st, CurrentStage, func(prev, next int) {
		stageChanges = append(stageChanges, [2]int{prev, next})
	})
	animating := 0
	Select(st, IsAnimating, func(_, _ bool) { animating++ })

	st.Start()
	st.UpdateDynamicValue("k", 1)
	st.UpdateDynamicValue("k", 2)
	st.ProgressToNextStage()
	st.CompleteAnimation()

	want := [][2]int{{0, 1}, {1, 2}}
	if len(stageChanges) != len(want) {
		t.Fatalf("stage changes = %v, want %v", stageChanges, want)
	}
	for i := range want {
		if stageChanges[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, stageChanges[i], want[i])
		}
	}
	if animating != 2 {
		t.Errorf("isAnimating changes = %d, want 2", animating)
	}
}

func TestProgressSelector(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  float64
	}{
		{"rest", State{}, 0},
		{"stage 1", State{CurrentStage: 1, IsAnimating: true}, 0},
		{"stage 3", State{CurrentStage: 3, IsAnimating: true}, 50},
		{"complete", State{CurrentStage: 5, IsComplete: true}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.state); got != tt.want {
				t.Errorf("Progress = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	st := New()
	ch, cancel := st.Watch(8)

	st.Start()
	st.ProgressToNextStage()

	first := <-ch
	second := <-ch
	if first.CurrentStage != 1 || second.CurrentStage != 2 {
		t.Errorf("watched stages %d, %d", first.CurrentStage, second.CurrentStage)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel not closed after cancel")
	}
	st.ProgressToNextStage()
}

func TestWatch_DropsWhenFull(t *testing.T) {
	st := New()
	ch, cancel := st.Watch(1)
	defer cancel()

	st.Start()
	st.ProgressToNextStage()
	st.ProgressToNextStage()

	if got := (<-ch).CurrentStage; got != 1 {
		t.Errorf("buffered state stage = %d, want 1", got)
	}
	select {
	case s := <-ch:
		t.Errorf("unexpected extra state %+v", s)
	default:
	}
}

func TestConcurrentMutation(t *testing.T) {
	st := New()
	st.Start()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 50 {
				st.ProgressToNextStage()
				st.UpdateDynamicValue("k", float64(i))
				_ = st.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if got := st.Snapshot().CurrentStage; got != stages.Total() {
		t.Errorf("stage = %d, want %d", got, stages.Total())
	}
}
