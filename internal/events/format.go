package events

import (
	"fmt"
	"sort"
	"strings"
)

const maxMessageLength = 120

// Format converts an event to a one-line human-readable string.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *StateChangedEvent:
		return formatStateChanged(e)
	case *StageReachedEvent:
		return fmt.Sprintf("stage %d: %s (+%dms)", e.Stage, e.Title, e.ElapsedMs)
	case *SlowResponseEvent:
		return formatSlowResponse(e)
	case *AnalyticsEvent:
		return formatAnalytics(e)
	case *ErrorEvent:
		return fmt.Sprintf("[%s] %s", e.Severity, Truncate(e.Message, maxMessageLength))
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a clock prefix.
func FormatWithTimestamp(event Event) string {
	if event == nil {
		return ""
	}
	ts := event.Timestamp().Format("15:04:05.000")
	detail := Format(event)
	if detail == "" {
		return fmt.Sprintf("[%s] %s", ts, event.Type())
	}
	return fmt.Sprintf("[%s] %s", ts, detail)
}

func formatStateChanged(e *StateChangedEvent) string {
	s := fmt.Sprintf("run %d: %s -> %s", e.Run, e.From, e.To)
	switch e.To {
	case PhaseRunning:
		if e.Accelerated {
			s += fmt.Sprintf(" (accelerated x%.2f)", e.SpeedFactor)
		}
	case PhaseError:
		s += fmt.Sprintf(" at stage %d (%s, %dms)", e.Stage, e.ErrorType, e.ElapsedMs)
	case PhaseComplete, PhaseCancelled:
		s += fmt.Sprintf(" at stage %d (%dms)", e.Stage, e.ElapsedMs)
	}
	return s
}

func formatSlowResponse(e *SlowResponseEvent) string {
	if e.Message != "" {
		return fmt.Sprintf("slow response: %s %q", e.Trigger, Truncate(e.Message, maxMessageLength))
	}
	return fmt.Sprintf("slow response: %s (+%dms)", e.Trigger, e.ElapsedMs)
}

func formatAnalytics(e *AnalyticsEvent) string {
	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		if k == "query" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("analytics: ")
	b.WriteString(e.Name)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Payload[k])
	}
	return b.String()
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
