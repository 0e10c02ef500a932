package events

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
)

type eventEnvelope struct {
	Type EventType `json:"type"`
}

// ParseEvent decodes one JSON line written by LogSink into a typed Event.
// Unknown event types return nil with no error.
func ParseEvent(line []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, err
	}

	var ev Event
	switch envelope.Type {
	case EventStateChanged:
		ev = &StateChangedEvent{}
	case EventStageReached:
		ev = &StageReachedEvent{}
	case EventSlowResponse:
		ev = &SlowResponseEvent{}
	case EventAnalytics:
		ev = &AnalyticsEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		slog.Debug("unknown event type", "type", envelope.Type)
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadLog parses every line of an event log, skipping blank, malformed and
// unknown lines. It returns at most the last limit events; limit <= 0 means
// no limit.
func ReadLog(r io.Reader, limit int) ([]Event, error) {
	var out []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			slog.Debug("skipping malformed event line", "error", err)
			continue
		}
		if ev == nil {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) > limit {
			out = out[1:]
		}
	}
	return out, scanner.Err()
}

// RunOf returns the run token carried by an event, or 0.
func RunOf(ev Event) uint64 {
	switch e := ev.(type) {
	case *StateChangedEvent:
		return e.Run
	case *StageReachedEvent:
		return e.Run
	}
	return 0
}
