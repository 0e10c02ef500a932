package analytics

import (
	"context"
	"log/slog"
	"maps"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
)

// Sink receives analytics events. Track must not block; its result is
// never consumed.
type Sink interface {
	Track(name string, payload map[string]any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, payload map[string]any)

// Track calls f.
func (f SinkFunc) Track(name string, payload map[string]any) { f(name, payload) }

// NopSink discards everything.
type NopSink struct{}

// Track does nothing.
func (NopSink) Track(string, map[string]any) {}

// SlogSink writes each event as a structured log record.
type SlogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Track logs name with payload as attributes.
func (s SlogSink) Track(name string, payload map[string]any) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, 2*len(payload)+2)
	args = append(args, "event", name)
	for k, v := range payload {
		args = append(args, k, v)
	}
	logger.Log(context.Background(), s.Level, "analytics", args...)
}

// RouterSink publishes each event as an events.AnalyticsEvent.
type RouterSink struct {
	Router *events.Router
}

// Track emits to the router. A nil router discards.
func (s RouterSink) Track(name string, payload map[string]any) {
	if s.Router == nil {
		return
	}
	s.Router.Emit(&events.AnalyticsEvent{
		BaseEvent: events.NewEvent(events.EventAnalytics, events.SourceAnalytics),
		Name:      name,
		Payload:   maps.Clone(payload),
	})
}

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

// Track forwards to every non-nil sink.
func (m MultiSink) Track(name string, payload map[string]any) {
	for _, s := range m {
		if s != nil {
			s.Track(name, payload)
		}
	}
}
