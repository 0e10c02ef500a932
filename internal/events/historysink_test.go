package events

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func runHistory(t *testing.T, path string, evs ...Event) *HistorySink {
	t.Helper()

	sink := NewHistorySink(path)
	sink.SetMinDelay(0)
	ch := make(chan Event, len(evs))
	if err := sink.Start(context.Background(), ch); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	return sink
}

func TestNewHistorySink(t *testing.T) {
	sink := NewHistorySink("/tmp/history.json")
	h := sink.History()
	if h.Version != CurrentHistoryVersion {
		t.Errorf("Version = %d, want %d", h.Version, CurrentHistoryVersion)
	}
	if h.ErrorsByType == nil {
		t.Error("ErrorsByType is nil")
	}
}

func TestHistorySinkCountsOutcomes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	completed := newStateEvent(1, PhaseRunning, PhaseComplete)
	completed.Accelerated = true
	failed := newStateEvent(2, PhaseRunning, PhaseError)
	failed.ErrorType = "timeout"
	failed.Stage = 2
	failed.ElapsedMs = 4100

	sink := runHistory(t, path,
		newStateEvent(1, PhaseIdle, PhaseRunning),
		completed,
		newStateEvent(2, PhaseIdle, PhaseRunning),
		failed,
		newStateEvent(3, PhaseIdle, PhaseRunning),
		newStateEvent(3, PhaseRunning, PhaseCancelled),
		&StageReachedEvent{BaseEvent: NewControllerEvent(EventStageReached), Stage: 2},
	)

	h := sink.History()
	if h.Runs != 3 || h.Completed != 1 || h.Failed != 1 || h.Cancelled != 1 {
		t.Errorf("counts = runs %d complete %d failed %d cancelled %d",
			h.Runs, h.Completed, h.Failed, h.Cancelled)
	}
	if h.Accelerated != 1 {
		t.Errorf("Accelerated = %d, want 1", h.Accelerated)
	}
	if h.ErrorsByType["timeout"] != 1 {
		t.Errorf("ErrorsByType = %v", h.ErrorsByType)
	}
	if h.LastRun == nil || h.LastRun.Run != 3 || h.LastRun.Outcome != PhaseCancelled {
		t.Errorf("LastRun = %+v", h.LastRun)
	}

	onDisk, err := ReadHistory(path)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if onDisk.Runs != 3 || onDisk.LastRun == nil {
		t.Errorf("persisted history = %+v", onDisk)
	}
}

func TestHistorySinkCountsAccelerationAtRunEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	// Run 1 is accelerated once the response time is known mid-run.
	done := newStateEvent(1, PhaseRunning, PhaseComplete)
	done.Accelerated = true
	done.SpeedFactor = 1.25
	// A stale flag on the start transition does not count.
	start2 := newStateEvent(2, PhaseIdle, PhaseRunning)
	start2.Accelerated = true

	sink := runHistory(t, path,
		newStateEvent(1, PhaseIdle, PhaseRunning),
		done,
		start2,
		newStateEvent(2, PhaseRunning, PhaseCancelled),
	)

	h := sink.History()
	if h.Accelerated != 1 {
		t.Errorf("Accelerated = %d, want 1", h.Accelerated)
	}
	if h.LastRun == nil || h.LastRun.Accelerated {
		t.Errorf("LastRun = %+v, want the unaccelerated cancelled run", h.LastRun)
	}
}

func TestHistorySinkReloadsOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	runHistory(t, path,
		newStateEvent(1, PhaseIdle, PhaseRunning),
		newStateEvent(1, PhaseRunning, PhaseComplete),
	)
	sink := runHistory(t, path,
		newStateEvent(2, PhaseIdle, PhaseRunning),
		newStateEvent(2, PhaseRunning, PhaseComplete),
	)

	if h := sink.History(); h.Runs != 2 || h.Completed != 2 {
		t.Errorf("after reload: runs %d completed %d, want 2/2", h.Runs, h.Completed)
	}
}

func TestHistorySinkRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	sink := runHistory(t, path, newStateEvent(1, PhaseIdle, PhaseRunning))

	if h := sink.History(); h.Runs != 1 {
		t.Errorf("Runs = %d, want 1", h.Runs)
	}
	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Errorf("corrupt file not backed up: %v", err)
	}
}

func TestHistorySinkDiscardsOldVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "runs": 40}`), 0644); err != nil {
		t.Fatal(err)
	}

	sink := runHistory(t, path)
	if h := sink.History(); h.Runs != 0 {
		t.Errorf("Runs = %d, want fresh history", h.Runs)
	}
}

func TestReadHistoryMissing(t *testing.T) {
	_, err := ReadHistory(filepath.Join(t.TempDir(), "nope.json"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
