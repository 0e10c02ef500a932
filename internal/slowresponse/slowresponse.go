// Package slowresponse escalates the progress display when a search runs
// long: rotating reassurance messages while the database stage is held,
// then a cancel affordance, a "taking longer" warning and finally an
// enhanced cancel prompt.
package slowresponse

import (
	"log/slog"
	"sync"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// RotationStage is the only stage during which messages rotate.
const RotationStage = 2

// Trigger names carried by events.SlowResponseEvent.
const (
	TriggerRotate         = "rotate"
	TriggerShowCancel     = "show_cancel"
	TriggerWarning        = "warning"
	TriggerEnhancedCancel = "enhanced_cancel"
)

// Messages is the rotation list, shown in order and wrapping around.
var Messages = []string{
	"Searching through thousands of planning applications...",
	"Checking records across UK local authorities...",
	"Matching your query against application descriptions...",
	"Large result sets take a little longer to gather...",
	"Almost there, pulling together the best matches...",
}

// Thresholds are measured from the start of a run.
type Thresholds struct {
	RotateAfter         time.Duration `yaml:"rotate_after" mapstructure:"rotate_after"`
	RotateEvery         time.Duration `yaml:"rotate_every" mapstructure:"rotate_every"`
	ShowCancelAfter     time.Duration `yaml:"show_cancel_after" mapstructure:"show_cancel_after"`
	WarningAfter        time.Duration `yaml:"warning_after" mapstructure:"warning_after"`
	EnhancedCancelAfter time.Duration `yaml:"enhanced_cancel_after" mapstructure:"enhanced_cancel_after"`
}

// DefaultThresholds returns 5s/2s/8s/10s/15s.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RotateAfter:         5 * time.Second,
		RotateEvery:         2 * time.Second,
		ShowCancelAfter:     8 * time.Second,
		WarningAfter:        10 * time.Second,
		EnhancedCancelAfter: 15 * time.Second,
	}
}

// State is what a renderer shows for the current run.
type State struct {
	ShowRotatingMessage bool   `json:"show_rotating_message"`
	Message             string `json:"message,omitempty"`
	MessageIndex        int    `json:"message_index"`
	ShowCancel          bool   `json:"show_cancel"`
	ShowWarning         bool   `json:"show_warning"`
	EnhancedCancel      bool   `json:"enhanced_cancel"`
}

// Handler watches a store and maintains State for the running animation.
type Handler struct {
	store      *store.Store
	group      *scheduler.Group
	router     *events.Router
	logger     *slog.Logger
	thresholds Thresholds
	messages   []string
	onChange   func(State)

	mu        sync.Mutex
	state     State
	run       uint64
	startedAt time.Time
	stage     int
	rotateDue bool
	rotateID  scheduler.ID
	unsub     func()
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock for the escalation timers.
func WithClock(c scheduler.Clock) Option {
	return func(h *Handler) { h.group = scheduler.NewGroup(c) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithThresholds overrides DefaultThresholds.
func WithThresholds(t Thresholds) Option {
	return func(h *Handler) { h.thresholds = t }
}

// WithMessages overrides the rotation list. An empty list is ignored.
func WithMessages(msgs []string) Option {
	return func(h *Handler) {
		if len(msgs) > 0 {
			h.messages = append([]string(nil), msgs...)
		}
	}
}

// WithOnChange registers a callback for every State change.
func WithOnChange(fn func(State)) Option {
	return func(h *Handler) { h.onChange = fn }
}

// WithRouter publishes a SlowResponseEvent for every trigger.
func WithRouter(r *events.Router) Option {
	return func(h *Handler) { h.router = r }
}

// New creates a Handler observing st. If st is already animating the
// triggers are armed immediately.
func New(st *store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:      st,
		logger:     slog.Default(),
		thresholds: DefaultThresholds(),
		messages:   Messages,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.group == nil {
		h.group = scheduler.NewGroup(scheduler.Real())
	}

	h.unsub = st.Subscribe(h.onStateChange)
	if snap := st.Snapshot(); snap.IsAnimating {
		h.arm(snap)
	}
	return h
}

func (h *Handler) onStateChange(prev, next store.State) {
	switch {
	case next.IsAnimating && (!prev.IsAnimating || prev.Run != next.Run):
		h.arm(next)
	case !next.IsAnimating && prev.IsAnimating:
		h.disarm()
	case next.IsAnimating && next.CurrentStage != prev.CurrentStage:
		h.stageChanged(next.CurrentStage)
	}
}

// arm clears any previous run and schedules the escalation triggers.
func (h *Handler) arm(s store.State) {
	h.group.CancelAll()

	h.mu.Lock()
	h.run = s.Run
	h.startedAt = h.group.Clock().Now()
	h.stage = s.CurrentStage
	h.rotateDue = false
	h.rotateID = 0
	h.state = State{}
	h.mu.Unlock()

	t := h.thresholds
	h.group.After(t.RotateAfter, h.rotateThresholdReached)
	h.group.After(t.ShowCancelAfter, func() {
		h.set(TriggerShowCancel, func(st *State) { st.ShowCancel = true })
	})
	h.group.After(t.WarningAfter, func() {
		h.set(TriggerWarning, func(st *State) { st.ShowWarning = true })
	})
	h.group.After(t.EnhancedCancelAfter, func() {
		h.set(TriggerEnhancedCancel, func(st *State) { st.EnhancedCancel = true })
	})

	h.notify(State{})
}

// disarm cancels every trigger and resets the view state.
func (h *Handler) disarm() {
	h.group.CancelAll()

	h.mu.Lock()
	changed := h.state != State{}
	h.state = State{}
	h.rotateDue = false
	h.rotateID = 0
	h.mu.Unlock()

	if changed {
		h.notify(State{})
	}
}

func (h *Handler) rotateThresholdReached() {
	h.mu.Lock()
	h.rotateDue = true
	atStage := h.stage == RotationStage
	h.mu.Unlock()

	if atStage {
		h.startRotation()
	}
}

func (h *Handler) stageChanged(stage int) {
	h.mu.Lock()
	h.stage = stage
	due := h.rotateDue
	rotating := h.rotateID != 0
	h.mu.Unlock()

	switch {
	case stage == RotationStage && due && !rotating:
		h.startRotation()
	case stage != RotationStage && rotating:
		h.stopRotation()
	}
}

func (h *Handler) startRotation() {
	id := h.group.Every(h.thresholds.RotateEvery, h.rotate)

	h.mu.Lock()
	h.rotateID = id
	h.mu.Unlock()

	h.set(TriggerRotate, func(st *State) {
		st.ShowRotatingMessage = true
		st.MessageIndex = 0
		st.Message = h.messages[0]
	})
}

func (h *Handler) rotate() {
	h.mu.Lock()
	atStage := h.stage == RotationStage
	h.mu.Unlock()

	if !atStage {
		h.stopRotation()
		return
	}
	h.set("", func(st *State) {
		st.MessageIndex = (st.MessageIndex + 1) % len(h.messages)
		st.Message = h.messages[st.MessageIndex]
	})
}

func (h *Handler) stopRotation() {
	h.mu.Lock()
	id := h.rotateID
	h.rotateID = 0
	h.mu.Unlock()

	h.group.Cancel(id)
	h.set("", func(st *State) {
		st.ShowRotatingMessage = false
		st.Message = ""
	})
}

// set applies mutate, notifies and, for named triggers, logs and emits.
func (h *Handler) set(trigger string, mutate func(*State)) {
	h.mu.Lock()
	before := h.state
	mutate(&h.state)
	after := h.state
	elapsed := h.group.Clock().Now().Sub(h.startedAt)
	h.mu.Unlock()

	if trigger != "" {
		h.logger.Info("slow response escalation",
			"trigger", trigger,
			"elapsed", elapsed,
			"message", after.Message)
		if h.router != nil {
			h.router.Emit(&events.SlowResponseEvent{
				BaseEvent: events.NewEvent(events.EventSlowResponse, events.SourceSlowResponse),
				Trigger:   trigger,
				Message:   after.Message,
				ElapsedMs: elapsed.Milliseconds(),
			})
		}
	}
	if after != before {
		h.notify(after)
	}
}

func (h *Handler) notify(s State) {
	if h.onChange != nil {
		h.onChange(s)
	}
}

// State returns the current view state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Pending returns the number of armed triggers, rotation included.
func (h *Handler) Pending() int {
	return h.group.Pending()
}

// Close stops observing the store and drops every timer.
func (h *Handler) Close() {
	h.mu.Lock()
	unsub := h.unsub
	h.unsub = nil
	h.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	h.group.Close()
}
