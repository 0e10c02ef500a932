package controller

import (
	"log/slog"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock driving stage timers.
func WithClock(clock scheduler.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnComplete sets the callback run once when a run completes.
func WithOnComplete(fn func()) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onComplete = fn
		}
	}
}

// WithOnCancel sets the callback run once when Cancel stops a run.
func WithOnCancel(fn func()) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onCancel = fn
		}
	}
}

// WithOnError sets the callback run once when a run fails.
func WithOnError(fn func(*animerr.AnimationError)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// WithEstimatedDuration records the caller's estimate of the search
// duration. It is kept for API compatibility and does not affect timing.
func WithEstimatedDuration(d time.Duration) Option {
	return func(c *Controller) { c.estimated = d }
}

// WithActualResponseTime sets the measured backend response time used for
// acceleration.
func WithActualResponseTime(d time.Duration) Option {
	return func(c *Controller) { c.actualResponse = d }
}

// WithAcceleration turns response-time acceleration on or off.
func WithAcceleration(enabled bool) Option {
	return func(c *Controller) { c.accelerate = enabled }
}

// WithTimings sets the base timing set. The stage count must match the
// stage script; otherwise the default set is kept.
func WithTimings(t timing.AnimationTimings) Option {
	return func(c *Controller) { c.base = t }
}

// WithPolicy sets the acceleration parameters.
func WithPolicy(p timing.Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithMotion sets the reduced-motion source.
func WithMotion(src a11y.MotionSource) Option {
	return func(c *Controller) { c.motion = src }
}

// WithRouter publishes lifecycle events to router.
func WithRouter(router *events.Router) Option {
	return func(c *Controller) { c.router = router }
}

// WithAwaitResponse makes each run hold at HoldStage until Resolve reports
// the real backend response.
func WithAwaitResponse() Option {
	return func(c *Controller) { c.await = true }
}
