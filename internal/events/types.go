// Package events defines the event taxonomy of the search animation and the
// router that carries events from the controller and analytics hook to
// sinks (log file, run history, metrics, renderers).
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

// Event types.
const (
	// Run lifecycle
	EventStateChanged EventType = "animation.state_changed"
	EventStageReached EventType = "animation.stage_reached"

	// Slow-response escalation
	EventSlowResponse EventType = "animation.slow_response"

	// Analytics hook output
	EventAnalytics EventType = "analytics"

	// Error events
	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceController   = "controller"
	SourceSlowResponse = "slowresponse"
	SourceAnalytics    = "analytics"
	SourceInternal     = "searchanim"
)

// Phases carried by StateChangedEvent.
const (
	PhaseIdle      = "idle"
	PhaseRunning   = "running"
	PhaseComplete  = "complete"
	PhaseCancelled = "cancelled"
	PhaseError     = "error"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// StateChangedEvent is emitted when a run changes phase.
type StateChangedEvent struct {
	BaseEvent
	Run         uint64  `json:"run"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Stage       int     `json:"stage"`
	ElapsedMs   int64   `json:"elapsed_ms"`
	Accelerated bool    `json:"accelerated,omitempty"`
	SpeedFactor float64 `json:"speed_factor,omitempty"`
	ErrorType   string  `json:"error_type,omitempty"`
}

// StageReachedEvent is emitted each time a run enters a stage.
type StageReachedEvent struct {
	BaseEvent
	Run       uint64 `json:"run"`
	Stage     int    `json:"stage"`
	Title     string `json:"title"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// SlowResponseEvent is emitted when a slow-response threshold is crossed.
type SlowResponseEvent struct {
	BaseEvent
	Trigger   string `json:"trigger"`
	Message   string `json:"message,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// AnalyticsEvent carries one analytics hook event.
type AnalyticsEvent struct {
	BaseEvent
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for failures outside a run's own error state, such
// as a sink that can not persist.
type ErrorEvent struct {
	BaseEvent
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Context  map[string]string `json:"context,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewControllerEvent creates a BaseEvent with the controller as the source.
func NewControllerEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceController)
}

// IsTerminalPhase reports whether phase ends a run.
func IsTerminalPhase(phase string) bool {
	switch phase {
	case PhaseComplete, PhaseCancelled, PhaseError:
		return true
	}
	return false
}
