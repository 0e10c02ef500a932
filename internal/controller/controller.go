// Package controller drives the animation store through the stage script
// on a timer schedule, applying acceleration and owning every timer it
// creates.
package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

// HoldStage is the stage an awaiting run parks on until Resolve.
const HoldStage = 2

// Controller runs the animation for one store.
type Controller struct {
	store  *store.Store
	clock  scheduler.Clock
	group  *scheduler.Group
	router *events.Router
	logger *slog.Logger
	motion a11y.MotionSource

	base       timing.AnimationTimings
	policy     timing.Policy
	accelerate bool
	await      bool
	estimated  time.Duration // reserved

	onComplete func()
	onCancel   func()
	onError    func(*animerr.AnimationError)

	mu             sync.Mutex
	actualResponse time.Duration
	run            uint64
	schedule       timing.AcceleratedTimings
	startedAt      time.Time
	enteredAt      time.Time
	resolved       bool
	completedRun   uint64
	failedRun      uint64
	closed         bool
	unsubs         []func()
}

// New creates a Controller over st. Without options it uses the real
// clock, the default timing set and acceleration on.
func New(st *store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:          st,
		clock:          scheduler.Real(),
		logger:         slog.Default(),
		base:           timing.Default(),
		policy:         timing.DefaultPolicy(),
		accelerate:     true,
		actualResponse: timing.UnknownResponseTime,
		onComplete:     func() {},
		onCancel:       func() {},
		onError:        func(*animerr.AnimationError) {},
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.base.StageDurations) != stages.Total() {
		c.logger.Warn("timing set does not match stage count, using defaults",
			"stages", stages.Total(),
			"durations", len(c.base.StageDurations))
		c.base = timing.Default()
	}

	c.group = scheduler.NewGroup(c.clock)
	c.schedule = timing.AcceleratedTimings{
		StageDurations: append([]time.Duration(nil), c.base.StageDurations...),
		TotalDuration:  c.base.TotalDuration,
		SpeedFactor:    1.0,
	}

	c.unsubs = append(c.unsubs, st.Subscribe(c.onStateChange))
	if c.motion != nil {
		c.unsubs = append(c.unsubs, c.motion.Subscribe(func(reduced bool) {
			c.logger.Info("reduced motion preference changed, applies from next run",
				"reduced_motion", reduced)
		}))
	}
	return c
}

// Start begins a fresh run: the store is reset and started and one timer
// is armed per stage boundary. Any previous run's timers are dropped.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.group.CancelAll()
	c.store.ResetAnimation()

	c.mu.Lock()
	response := c.actualResponse
	if c.await {
		response = timing.UnknownResponseTime
	}
	c.schedule = c.computeLocked(response)
	c.startedAt = c.clock.Now()
	c.enteredAt = c.startedAt
	c.resolved = false
	sched := c.schedule
	c.mu.Unlock()

	run := c.store.Start()

	c.mu.Lock()
	c.run = run
	c.mu.Unlock()

	last := stages.Total()
	if c.await {
		last = HoldStage - 1
	}
	c.scheduleBoundaries(run, 1, sched.StageDurations[0], sched.StageDurations, last)

	c.logger.Info("animation started",
		"run", run,
		"total", sched.TotalDuration,
		"accelerated", sched.IsAccelerated,
		"speed_factor", sched.SpeedFactor,
		"await_response", c.await)
}

// Cancel stops the current run. onCancel runs only if a running animation
// was actually cancelled. Safe to call at any time.
func (c *Controller) Cancel() {
	c.group.CancelAll()
	if c.store.CancelAnimation() {
		c.onCancel()
	}
}

// Fail ends the current run with err.
func (c *Controller) Fail(err *animerr.AnimationError) bool {
	return c.store.SetError(err)
}

// UpdateDynamicValue passes a live figure through to the store.
func (c *Controller) UpdateDynamicValue(key string, value float64) bool {
	return c.store.UpdateDynamicValue(key, value)
}

// SetActualResponseTime updates the acceleration input for the next Start.
func (c *Controller) SetActualResponseTime(d time.Duration) {
	c.mu.Lock()
	c.actualResponse = d
	c.mu.Unlock()
}

// Resolve reports the real backend response time. In await mode it
// releases the held run: the schedule is recomputed with acceleration and
// the remaining stages are armed from the current one. Otherwise it only
// records the response time for the next Start.
func (c *Controller) Resolve(responseTime time.Duration) {
	c.mu.Lock()
	c.actualResponse = responseTime
	if !c.await || c.resolved || c.closed {
		c.mu.Unlock()
		return
	}

	snap := c.store.Snapshot()
	if !snap.IsAnimating || snap.Run != c.run {
		c.mu.Unlock()
		return
	}

	c.resolved = true
	c.schedule = c.computeLocked(responseTime)
	sched := c.schedule
	run := c.run
	stage := snap.CurrentStage
	inStage := c.clock.Now().Sub(c.enteredAt)
	c.mu.Unlock()

	remaining := max(sched.StageDurations[stage-1]-inStage, 0)

	c.group.CancelAll()
	c.scheduleBoundaries(run, stage, remaining, sched.StageDurations, stages.Total())

	c.logger.Info("response resolved",
		"run", run,
		"response_time", responseTime,
		"stage", stage,
		"accelerated", sched.IsAccelerated,
		"speed_factor", sched.SpeedFactor)
}

// computeLocked picks the schedule for a run. Reduced motion replaces the
// base durations and disables acceleration.
func (c *Controller) computeLocked(response time.Duration) timing.AcceleratedTimings {
	base := c.base.StageDurations
	enabled := c.accelerate
	if c.reducedMotion() {
		base = timing.ReducedMotion().StageDurations
		enabled = false
	}
	return c.policy.Accelerate(base, response, enabled)
}

func (c *Controller) reducedMotion() bool {
	return c.motion != nil && c.motion.ReducedMotion()
}

// scheduleBoundaries arms the end of stage `from` after firstDelay, then
// the end of every following stage up to `last` at cumulative offsets. The
// end of the final stage completes the run; earlier ends advance it.
func (c *Controller) scheduleBoundaries(run uint64, from int, firstDelay time.Duration, durations []time.Duration, last int) {
	total := stages.Total()
	at := firstDelay
	for s := from; s <= last; s++ {
		if s > from {
			at += durations[s-1]
		}
		if s < total {
			c.group.After(at, func() { c.store.ProgressRun(run) })
		} else {
			c.group.After(at, func() { c.store.CompleteRun(run) })
		}
	}
}

// onStateChange is the store subscription carrying the controller's
// reactive effects.
func (c *Controller) onStateChange(prev, next store.State) {
	if next.CurrentStage != prev.CurrentStage && next.IsAnimating {
		c.mu.Lock()
		c.enteredAt = c.clock.Now()
		c.mu.Unlock()
		c.stageReached(next)
	}

	if from, to := phaseOf(prev), phaseOf(next); from != to {
		c.phaseChanged(next, from, to)
	}

	switch {
	case next.IsComplete && !prev.IsComplete:
		c.stopTimers(next.Run)
		if c.latch(&c.completedRun, next.Run) {
			c.onComplete()
		}

	case next.IsCancelled && !prev.IsCancelled:
		c.stopTimers(next.Run)

	case next.Error != nil && prev.Error == nil:
		c.stopTimers(next.Run)
		if c.latch(&c.failedRun, next.Run) {
			c.onError(next.Error)
		}
	}
}

// stopTimers drops the stage timers once run has ended. Timers belong to the
// latest run, so the end of an earlier one leaves them armed.
func (c *Controller) stopTimers(run uint64) {
	c.mu.Lock()
	current := c.run
	c.mu.Unlock()
	if run != current {
		c.logger.Debug("ignoring end of superseded run", "run", run, "current", current)
		return
	}
	c.group.CancelAll()
}

// latch records run in *slot and reports whether it was not already there.
func (c *Controller) latch(slot *uint64, run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *slot == run {
		return false
	}
	*slot = run
	return true
}

func (c *Controller) stageReached(s store.State) {
	stage, ok := stages.GetStageByID(s.CurrentStage)
	if !ok {
		return
	}
	elapsed := c.elapsed()
	c.logger.Debug("stage reached", "run", s.Run, "stage", stage.ID, "title", stage.Title, "elapsed", elapsed)
	c.emit(&events.StageReachedEvent{
		BaseEvent: events.NewControllerEvent(events.EventStageReached),
		Run:       s.Run,
		Stage:     stage.ID,
		Title:     stage.Title,
		ElapsedMs: elapsed.Milliseconds(),
	})
}

func (c *Controller) phaseChanged(s store.State, from, to string) {
	c.mu.Lock()
	sched := c.schedule
	c.mu.Unlock()

	ev := &events.StateChangedEvent{
		BaseEvent:   events.NewControllerEvent(events.EventStateChanged),
		Run:         s.Run,
		From:        from,
		To:          to,
		Stage:       s.CurrentStage,
		ElapsedMs:   c.elapsed().Milliseconds(),
		Accelerated: sched.IsAccelerated,
		SpeedFactor: sched.SpeedFactor,
	}
	if s.Error != nil {
		ev.ErrorType = string(s.Error.Type)
	}

	switch to {
	case events.PhaseError:
		c.logger.Warn("animation failed", "run", s.Run, "stage", s.CurrentStage, "error", s.Error)
	case events.PhaseComplete, events.PhaseCancelled:
		c.logger.Info("animation "+to, "run", s.Run, "stage", s.CurrentStage, "elapsed_ms", ev.ElapsedMs)
	}
	c.emit(ev)
}

func phaseOf(s store.State) string {
	switch {
	case s.Error != nil:
		return events.PhaseError
	case s.IsCancelled:
		return events.PhaseCancelled
	case s.IsComplete:
		return events.PhaseComplete
	case s.IsAnimating:
		return events.PhaseRunning
	default:
		return events.PhaseIdle
	}
}

func (c *Controller) elapsed() time.Duration {
	c.mu.Lock()
	started := c.startedAt
	c.mu.Unlock()
	if started.IsZero() {
		return 0
	}
	return c.clock.Now().Sub(started)
}

// emit sends an event to the router if available.
func (c *Controller) emit(event events.Event) {
	if c.router != nil {
		c.router.Emit(event)
	}
}

// Close unsubscribes from the store and drops every pending timer. The
// controller can not be restarted afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.group.Close()
}

// Snapshot returns the store's current state.
func (c *Controller) Snapshot() store.State { return c.store.Snapshot() }

// CurrentStage returns the active stage id, 0 at rest.
func (c *Controller) CurrentStage() int { return c.store.Snapshot().CurrentStage }

// IsAnimating reports whether a run is in progress.
func (c *Controller) IsAnimating() bool { return c.store.Snapshot().IsAnimating }

// IsComplete reports whether the last run completed.
func (c *Controller) IsComplete() bool { return c.store.Snapshot().IsComplete }

// IsCancelled reports whether the last run was cancelled.
func (c *Controller) IsCancelled() bool { return c.store.Snapshot().IsCancelled }

// Error returns the last run's error, if any.
func (c *Controller) Error() *animerr.AnimationError { return c.store.Snapshot().Error }

// IsAccelerated reports whether the current schedule is compressed.
func (c *Controller) IsAccelerated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.IsAccelerated
}

// SpeedFactor returns original total / current total.
func (c *Controller) SpeedFactor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.SpeedFactor
}

// Timings returns the schedule of the current run.
func (c *Controller) Timings() timing.AcceleratedTimings {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.schedule
	t.StageDurations = append([]time.Duration(nil), t.StageDurations...)
	return t
}

// Elapsed returns the time since the current run started.
func (c *Controller) Elapsed() time.Duration { return c.elapsed() }

// EstimatedDuration returns the caller's estimate given at construction.
func (c *Controller) EstimatedDuration() time.Duration { return c.estimated }

// Pending returns the number of armed stage timers.
func (c *Controller) Pending() int { return c.group.Pending() }
