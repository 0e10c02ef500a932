package a11y

import (
	"sync"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
)

// DefaultSettleDelay is how long Activate waits before moving focus, so the
// dialog has been drawn.
const DefaultSettleDelay = 100 * time.Millisecond

// Element is something that can hold focus.
type Element interface {
	FocusID() string
}

// Container lists the focusable elements currently inside the trap.
type Container interface {
	FocusableElements() []Element
}

// Focuser reads and moves focus.
type Focuser interface {
	Focused() Element
	Focus(Element)
}

// FocusTrap keeps keyboard focus cycling inside a container while it is
// active and restores the previous focus when released.
type FocusTrap struct {
	container Container
	focuser   Focuser
	group     *scheduler.Group
	settle    time.Duration

	mu       sync.Mutex
	active   bool
	previous Element
}

// FocusOption configures a FocusTrap.
type FocusOption func(*FocusTrap)

// WithFocusClock sets the clock used for the settle delay.
func WithFocusClock(c scheduler.Clock) FocusOption {
	return func(f *FocusTrap) { f.group = scheduler.NewGroup(c) }
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) FocusOption {
	return func(f *FocusTrap) { f.settle = d }
}

// NewFocusTrap creates an inactive trap over container.
func NewFocusTrap(container Container, focuser Focuser, opts ...FocusOption) *FocusTrap {
	f := &FocusTrap{
		container: container,
		focuser:   focuser,
		settle:    DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.group == nil {
		f.group = scheduler.NewGroup(scheduler.Real())
	}
	return f
}

// Activate remembers the current focus and, after the settle delay, focuses
// the first focusable element. Activating an active trap does nothing.
func (f *FocusTrap) Activate() {
	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return
	}
	f.active = true
	f.previous = f.focuser.Focused()
	f.mu.Unlock()

	f.group.After(f.settle, f.focusFirst)
}

func (f *FocusTrap) focusFirst() {
	f.mu.Lock()
	active := f.active
	f.mu.Unlock()
	if !active {
		return
	}

	if els := f.container.FocusableElements(); len(els) > 0 {
		f.focuser.Focus(els[0])
	}
}

// Deactivate cancels a pending initial focus and restores the element that
// was focused before Activate.
func (f *FocusTrap) Deactivate() {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	f.active = false
	previous := f.previous
	f.previous = nil
	f.mu.Unlock()

	f.group.CancelAll()
	if previous != nil {
		f.focuser.Focus(previous)
	}
}

// Active reports whether the trap is engaged.
func (f *FocusTrap) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// HandleTab moves focus to the next element, or the previous one when shift
// is held, wrapping at both ends. The focusable set is re-read on every
// press. It reports whether the key was consumed, which is true whenever the
// trap is active.
func (f *FocusTrap) HandleTab(shift bool) bool {
	if !f.Active() {
		return false
	}

	els := f.container.FocusableElements()
	if len(els) == 0 {
		return true
	}

	idx := -1
	if cur := f.focuser.Focused(); cur != nil {
		for i, el := range els {
			if el.FocusID() == cur.FocusID() {
				idx = i
				break
			}
		}
	}

	var next int
	switch {
	case idx < 0 && shift:
		next = len(els) - 1
	case idx < 0:
		next = 0
	case shift:
		next = (idx - 1 + len(els)) % len(els)
	default:
		next = (idx + 1) % len(els)
	}

	f.focuser.Focus(els[next])
	return true
}

// Close releases the trap's timers without restoring focus.
func (f *FocusTrap) Close() {
	f.group.Close()
}
