// Package analytics is the instrumentation hook of the search animation.
// A Tracker turns run lifecycle and user actions into a fixed vocabulary
// of events with a consistent payload and hands them to a Sink.
package analytics

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// Event names.
const (
	EventStarted             = "search_animation_started"
	EventStageReached        = "search_animation_stage_reached"
	EventCompleted           = "search_animation_completed"
	EventCancelled           = "search_animation_cancelled"
	EventError               = "search_animation_error"
	EventCancelButtonClicked = "search_animation_cancel_button_clicked"
	EventRetry               = "search_animation_retry"
	EventErrorActionClicked  = "search_animation_error_action_clicked"
	EventUpgradeCTAClicked   = "search_animation_upgrade_cta_clicked"
	EventPerformance         = "search_animation_performance"
)

// Payload keys present on every event.
const (
	KeyQuery      = "query"
	KeySearchType = "search_type"
	KeyElapsedMs  = "elapsed_ms"
	KeyRunID      = "run_id"
)

// SearchType tags the kind of search being animated.
type SearchType string

// Search types.
const (
	SearchSemantic SearchType = "semantic"
	SearchKeyword  SearchType = "keyword"
	SearchHybrid   SearchType = "hybrid"
)

// ParseSearchType converts a case-insensitive name to a SearchType.
func ParseSearchType(s string) (SearchType, error) {
	switch t := SearchType(strings.ToLower(strings.TrimSpace(s))); t {
	case SearchSemantic, SearchKeyword, SearchHybrid:
		return t, nil
	}
	return "", fmt.Errorf("unknown search type %q (want semantic, keyword or hybrid)", s)
}

// Performance describes how a run's animation related to the real search.
type Performance struct {
	ActualResponse time.Duration
	Animation      time.Duration
	Accelerated    bool
	SpeedFactor    float64
}

// Tracker emits analytics events for one search surface. Started and
// completed fire at most once per run, and each stage is reported once per
// run. A run begins at TrackStarted and ends at completion, cancellation or
// error.
type Tracker struct {
	sink       Sink
	query      string
	searchType SearchType
	clock      scheduler.Clock
	logger     *slog.Logger
	newID      func() string

	mu         sync.Mutex
	runID      string
	startedAt  time.Time
	started    bool
	ended      bool
	stagesSeen map[int]bool
	attempts   int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used for elapsed_ms.
func WithClock(c scheduler.Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(fn func() string) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// New creates a Tracker. A nil sink discards events.
func New(sink Sink, query string, searchType SearchType, opts ...Option) *Tracker {
	if sink == nil {
		sink = NopSink{}
	}
	t := &Tracker{
		sink:       sink,
		query:      query,
		searchType: searchType,
		clock:      scheduler.Real(),
		logger:     slog.Default(),
		newID:      uuid.NewString,
		stagesSeen: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RunID returns the id of the current run, or "" before the first start.
func (t *Tracker) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// TrackStarted begins a new run unless one is already in progress.
func (t *Tracker) TrackStarted() {
	t.mu.Lock()
	if t.started && !t.ended {
		t.mu.Unlock()
		return
	}
	t.runID = t.newID()
	t.startedAt = t.clock.Now()
	t.started = true
	t.ended = false
	clear(t.stagesSeen)
	payload := t.payloadLocked(nil)
	t.mu.Unlock()

	t.sink.Track(EventStarted, payload)
}

// TrackStageReached reports stage once per run.
func (t *Tracker) TrackStageReached(stage int) {
	t.mu.Lock()
	if !t.started || t.ended || t.stagesSeen[stage] {
		t.mu.Unlock()
		return
	}
	t.stagesSeen[stage] = true
	extra := map[string]any{"stage": stage}
	if s, ok := stages.GetStageByID(stage); ok {
		extra["stage_title"] = s.Title
	}
	payload := t.payloadLocked(extra)
	t.mu.Unlock()

	t.sink.Track(EventStageReached, payload)
}

// TrackCompleted ends the run as completed.
func (t *Tracker) TrackCompleted() {
	t.end(EventCompleted, nil)
}

// TrackCancelled ends the run as cancelled at stage.
func (t *Tracker) TrackCancelled(stage int) {
	t.end(EventCancelled, map[string]any{"stage": stage})
}

// TrackError ends the run as failed.
func (t *Tracker) TrackError(err *animerr.AnimationError, stage int) {
	extra := map[string]any{"stage": stage}
	if err != nil {
		extra["error_type"] = string(err.Type)
		extra["error_message"] = err.Message
		extra["retryable"] = err.Retryable
	}
	t.end(EventError, extra)
}

func (t *Tracker) end(name string, extra map[string]any) {
	t.mu.Lock()
	if !t.started || t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	payload := t.payloadLocked(extra)
	t.mu.Unlock()

	t.sink.Track(name, payload)
}

// abandon ends the current run without an event, for runs that were reset
// rather than finished.
func (t *Tracker) abandon() {
	t.mu.Lock()
	t.ended = true
	t.mu.Unlock()
}

// TrackCancelButtonClicked reports the user pressing cancel.
func (t *Tracker) TrackCancelButtonClicked(stage int) {
	t.emit(EventCancelButtonClicked, map[string]any{"stage": stage})
}

// TrackRetry reports a retry and returns its attempt number, starting at 1.
func (t *Tracker) TrackRetry(errType animerr.Kind) int {
	t.mu.Lock()
	t.attempts++
	attempt := t.attempts
	payload := t.payloadLocked(map[string]any{"attempt": attempt, "error_type": string(errType)})
	t.mu.Unlock()

	t.sink.Track(EventRetry, payload)
	return attempt
}

// TrackErrorAction reports a click on an error panel action.
func (t *Tracker) TrackErrorAction(action string, errType animerr.Kind) {
	t.emit(EventErrorActionClicked, map[string]any{"action": action, "error_type": string(errType)})
}

// TrackUpgradeCTA reports a click on the upgrade prompt.
func (t *Tracker) TrackUpgradeCTA(location string) {
	t.emit(EventUpgradeCTAClicked, map[string]any{"location": location})
}

// TrackPerformance reports how the animation compared to the real search.
func (t *Tracker) TrackPerformance(p Performance) {
	t.emit(EventPerformance, map[string]any{
		"actual_response_ms": p.ActualResponse.Milliseconds(),
		"animation_ms":       p.Animation.Milliseconds(),
		"accelerated":        p.Accelerated,
		"speed_factor":       p.SpeedFactor,
	})
}

func (t *Tracker) emit(name string, extra map[string]any) {
	t.mu.Lock()
	payload := t.payloadLocked(extra)
	t.mu.Unlock()

	t.sink.Track(name, payload)
}

func (t *Tracker) payloadLocked(extra map[string]any) map[string]any {
	p := make(map[string]any, len(extra)+4)
	maps.Copy(p, extra)
	p[KeyQuery] = t.query
	p[KeySearchType] = string(t.searchType)
	p[KeyRunID] = t.runID
	var elapsed int64
	if t.started {
		elapsed = t.clock.Now().Sub(t.startedAt).Milliseconds()
	}
	p[KeyElapsedMs] = elapsed
	return p
}

// Attach derives lifecycle events from st: a new animating run starts a
// tracker run, each stage entered is reported, and terminal transitions
// end it. Transitions of any run other than the latest one started are
// ignored. It returns a function that detaches.
func (t *Tracker) Attach(st *store.Store) (detach func()) {
	var current uint64
	return st.Subscribe(func(prev, next store.State) {
		if next.IsAnimating && (!prev.IsAnimating || prev.Run != next.Run) && next.Run > current {
			current = next.Run
			t.abandon()
			t.TrackStarted()
		}
		if next.Run != current {
			t.logger.Debug("analytics ignored stale transition", "run", next.Run, "current", current)
			return
		}
		if next.IsAnimating && next.CurrentStage != prev.CurrentStage && next.CurrentStage > 0 {
			t.TrackStageReached(next.CurrentStage)
		}
		switch {
		case next.IsComplete && !prev.IsComplete:
			t.TrackCompleted()
		case next.IsCancelled && !prev.IsCancelled:
			t.TrackCancelled(next.CurrentStage)
		case next.Error != nil && prev.Error == nil:
			t.TrackError(next.Error, next.CurrentStage)
		}
		t.logger.Debug("analytics observed transition", "run", next.Run, "stage", next.CurrentStage)
	})
}
