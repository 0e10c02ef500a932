// Package testutil holds shared fixtures for package and command tests.
package testutil

import (
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
)

// FixtureTime is the timestamp carried by every fixture event.
var FixtureTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StateChanged builds a controller lifecycle event.
func StateChanged(run uint64, from, to string, elapsedMs int64) *events.StateChangedEvent {
	base := events.NewControllerEvent(events.EventStateChanged)
	base.Time = FixtureTime
	return &events.StateChangedEvent{
		BaseEvent: base,
		Run:       run,
		From:      from,
		To:        to,
		ElapsedMs: elapsedMs,
	}
}

// Failed builds a running to error transition at stage.
func Failed(run uint64, stage int, errorType string, elapsedMs int64) *events.StateChangedEvent {
	e := StateChanged(run, events.PhaseRunning, events.PhaseError, elapsedMs)
	e.Stage = stage
	e.ErrorType = errorType
	return e
}

// StageReached builds a stage entry event.
func StageReached(run uint64, stage int, title string) *events.StageReachedEvent {
	base := events.NewControllerEvent(events.EventStageReached)
	base.Time = FixtureTime
	return &events.StageReachedEvent{
		BaseEvent: base,
		Run:       run,
		Stage:     stage,
		Title:     title,
	}
}

// Sample event log lines as written by the rotating log sink.

// SampleRunStarted is an accelerated run starting.
var SampleRunStarted = `{"type":"animation.state_changed","timestamp":"2024-01-15T10:30:00Z","source":"controller","run":1,"from":"idle","to":"running","stage":1,"elapsed_ms":0,"accelerated":true,"speed_factor":1.25}`

// SampleStageReached is the database stage being entered.
var SampleStageReached = `{"type":"animation.stage_reached","timestamp":"2024-01-15T10:30:00.72Z","source":"controller","run":1,"stage":2,"title":"Searching Database","elapsed_ms":720}`

// SampleRunCompleted is the same run finishing.
var SampleRunCompleted = `{"type":"animation.state_changed","timestamp":"2024-01-15T10:30:03.68Z","source":"controller","run":1,"from":"running","to":"complete","stage":5,"elapsed_ms":3680,"accelerated":true,"speed_factor":1.25}`

// SampleEventLog joins the sample lines with a malformed one in between.
var SampleEventLog = SampleRunStarted + "\n" + SampleStageReached + "\nnot json\n" + SampleRunCompleted + "\n"
