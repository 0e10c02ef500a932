package a11y

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

func TestParsePreference(t *testing.T) {
	tests := map[string]bool{
		"reduce":        true,
		" Reduced\n":    true,
		"TRUE":          true,
		"1":             true,
		"yes":           true,
		"on":            true,
		"":              false,
		"no-preference": false,
		"0":             false,
		"false":         false,
	}
	for in, want := range tests {
		if got := ParsePreference(in); got != want {
			t.Errorf("ParsePreference(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTimingsFor(t *testing.T) {
	tests := []struct {
		name   string
		src    MotionSource
		mobile bool
		want   timing.AnimationTimings
	}{
		{"nil source", nil, false, timing.Default()},
		{"full motion desktop", StaticMotion(false), false, timing.Default()},
		{"full motion mobile", StaticMotion(false), true, timing.Mobile()},
		{"reduced motion", StaticMotion(true), true, timing.ReducedMotion()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TimingsFor(tt.src, tt.mobile)
			if got.TotalDuration != tt.want.TotalDuration || got.SubStepStagger != tt.want.SubStepStagger {
				t.Errorf("got total %v stagger %v, want %v / %v",
					got.TotalDuration, got.SubStepStagger, tt.want.TotalDuration, tt.want.SubStepStagger)
			}
		})
	}
}

func TestMotionPreference_Env(t *testing.T) {
	t.Setenv(EnvReducedMotion, "reduce")
	p := NewMotionPreference("")
	if !p.ReducedMotion() {
		t.Error("env preference ignored")
	}

	t.Setenv(EnvReducedMotion, "")
	if NewMotionPreference("").ReducedMotion() {
		t.Error("empty env reported reduced motion")
	}
}

func TestMotionPreference_FileAtConstruction(t *testing.T) {
	t.Setenv(EnvReducedMotion, "")
	path := filepath.Join(t.TempDir(), "motion")
	if err := os.WriteFile(path, []byte("reduce\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !NewMotionPreference(path).ReducedMotion() {
		t.Error("file preference ignored")
	}
}

func TestMotionPreference_SetNotifiesOnChange(t *testing.T) {
	t.Setenv(EnvReducedMotion, "")
	p := NewMotionPreference("")

	var got []bool
	unsub := p.Subscribe(func(r bool) { got = append(got, r) })

	p.Set(true)
	p.Set(true)
	if r := p.Toggle(); r || p.ReducedMotion() {
		t.Error("Toggle did not switch back to full motion")
	}
	unsub()
	p.Set(true)

	if !slices.Equal(got, []bool{true, false}) {
		t.Errorf("notifications = %v, want [true false]", got)
	}
}

func TestMotionPreference_WatchesFile(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Setenv(EnvReducedMotion, "")

	path := filepath.Join(t.TempDir(), "prefs", "motion")
	p := NewMotionPreference(path, WithDebounce(10*time.Millisecond))

	changes := make(chan bool, 4)
	p.Subscribe(func(r bool) { changes <- r })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	if err := os.WriteFile(path, []byte("reduce"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-changes:
		if !r {
			t.Error("expected reduced motion after write")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("file change not observed")
	}

	if err := os.WriteFile(path, []byte("no-preference"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-changes:
		if r {
			t.Error("expected full motion after second write")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("second file change not observed")
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStaticMotion(t *testing.T) {
	var src MotionSource = StaticMotion(true)
	if !src.ReducedMotion() {
		t.Error("StaticMotion(true) not reduced")
	}
	src.Subscribe(func(bool) { t.Error("static source notified") })()
}

type button string

func (b button) FocusID() string { return string(b) }

type fakeContainer struct {
	mu  sync.Mutex
	els []Element
}

func (c *fakeContainer) FocusableElements() []Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.els)
}

func (c *fakeContainer) set(els ...Element) {
	c.mu.Lock()
	c.els = els
	c.mu.Unlock()
}

type fakeFocuser struct {
	focused Element
	history []string
}

func (f *fakeFocuser) Focused() Element { return f.focused }

func (f *fakeFocuser) Focus(el Element) {
	f.focused = el
	f.history = append(f.history, el.FocusID())
}

func newTrap(t *testing.T) (*FocusTrap, *fakeContainer, *fakeFocuser, *scheduler.FakeClock) {
	t.Helper()
	clock := scheduler.NewFakeClock(time.Unix(0, 0))
	c := &fakeContainer{}
	c.set(button("cancel"), button("details"))
	f := &fakeFocuser{focused: button("search-box")}
	trap := NewFocusTrap(c, f, WithFocusClock(clock))
	t.Cleanup(trap.Close)
	return trap, c, f, clock
}

func TestFocusTrap_ActivateFocusesFirstAfterSettle(t *testing.T) {
	trap, _, f, clock := newTrap(t)

	trap.Activate()
	clock.Advance(99 * time.Millisecond)
	if f.focused.FocusID() != "search-box" {
		t.Fatalf("focus moved before settle delay: %s", f.focused.FocusID())
	}

	clock.Advance(time.Millisecond)
	if f.focused.FocusID() != "cancel" {
		t.Errorf("focused %s, want cancel", f.focused.FocusID())
	}
}

func TestFocusTrap_TabWraps(t *testing.T) {
	trap, c, f, clock := newTrap(t)
	trap.Activate()
	clock.Advance(DefaultSettleDelay)

	tests := []struct {
		shift bool
		want  string
	}{
		{false, "details"},
		{false, "cancel"},
		{true, "details"},
		{true, "cancel"},
	}
	for i, tt := range tests {
		if !trap.HandleTab(tt.shift) {
			t.Fatalf("press %d not consumed", i)
		}
		if got := f.focused.FocusID(); got != tt.want {
			t.Errorf("press %d (shift=%v): focused %s, want %s", i, tt.shift, got, tt.want)
		}
	}

	// Elements are re-read on every press.
	c.set(button("cancel"), button("retry"), button("details"))
	trap.HandleTab(false)
	if got := f.focused.FocusID(); got != "retry" {
		t.Errorf("after set change focused %s, want retry", got)
	}
}

func TestFocusTrap_DeactivateRestoresFocus(t *testing.T) {
	trap, _, f, clock := newTrap(t)

	trap.Activate()
	clock.Advance(DefaultSettleDelay)
	trap.HandleTab(false)
	trap.Deactivate()

	if got := f.focused.FocusID(); got != "search-box" {
		t.Errorf("focus restored to %s, want search-box", got)
	}
	if trap.HandleTab(false) {
		t.Error("inactive trap consumed tab")
	}
}

func TestFocusTrap_DeactivateBeforeSettleCancelsFocus(t *testing.T) {
	trap, _, f, clock := newTrap(t)

	trap.Activate()
	trap.Deactivate()
	clock.Advance(time.Second)

	if !slices.Equal(f.history, []string{"search-box"}) {
		t.Errorf("focus history = %v, want only the restore", f.history)
	}
}

func TestFocusTrap_EmptyContainer(t *testing.T) {
	trap, c, f, clock := newTrap(t)
	c.set()

	trap.Activate()
	clock.Advance(DefaultSettleDelay)
	if !trap.HandleTab(false) {
		t.Error("active trap should consume tab even when empty")
	}
	if len(f.history) != 0 {
		t.Errorf("focus moved with no elements: %v", f.history)
	}
}
