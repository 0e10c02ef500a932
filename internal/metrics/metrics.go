// Package metrics exports animation events as Prometheus metrics. The
// Collector is an events.Sink with its own registry, so it never touches
// the global default registry.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
)

// Outcome labels for run durations.
const (
	OutcomeComplete  = events.PhaseComplete
	OutcomeCancelled = events.PhaseCancelled
	OutcomeError     = events.PhaseError
)

// Collector consumes router events and updates its metrics.
type Collector struct {
	registry     *prometheus.Registry
	eventsTotal  *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	activeRuns   prometheus.Gauge
	stageReached *prometheus.CounterVec

	mu     sync.Mutex
	active map[uint64]bool
	done   chan struct{}
}

// NewCollector creates a Collector with every metric registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchanim_events_total",
				Help: "Total number of animation events by event name",
			},
			[]string{"event"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "searchanim_run_duration_seconds",
				Help:    "Wall time from run start to its terminal state",
				Buckets: []float64{0.5, 1, 2, 2.5, 3, 4, 5, 8, 10, 15, 30},
			},
			[]string{"outcome"},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "searchanim_active_runs",
				Help: "Number of runs currently animating",
			},
		),
		stageReached: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searchanim_stage_reached_total",
				Help: "Total number of times each stage was entered",
			},
			[]string{"stage"},
		),
		active: make(map[uint64]bool),
		done:   make(chan struct{}),
	}
	c.registry.MustRegister(c.eventsTotal, c.runDuration, c.activeRuns, c.stageReached)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Start consumes events until ctx is cancelled or the channel closes.
func (c *Collector) Start(ctx context.Context, ch <-chan events.Event) error {
	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				c.Observe(ev)
			}
		}
	}()
	return nil
}

// Stop waits for the consuming goroutine to exit.
func (c *Collector) Stop() error {
	<-c.done
	return nil
}

// Observe records a single event. It is exported so callers without a
// router can feed the collector directly.
func (c *Collector) Observe(ev events.Event) {
	switch e := ev.(type) {
	case *events.AnalyticsEvent:
		c.eventsTotal.WithLabelValues(e.Name).Inc()
		return
	case *events.StageReachedEvent:
		c.stageReached.WithLabelValues(strconv.Itoa(e.Stage)).Inc()
	case *events.StateChangedEvent:
		c.stateChanged(e)
	}
	c.eventsTotal.WithLabelValues(string(ev.Type())).Inc()
}

func (c *Collector) stateChanged(e *events.StateChangedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case e.To == events.PhaseRunning:
		if !c.active[e.Run] {
			c.active[e.Run] = true
			c.activeRuns.Inc()
		}
	case events.IsTerminalPhase(e.To):
		if c.active[e.Run] {
			delete(c.active, e.Run)
			c.activeRuns.Dec()
		}
		c.runDuration.WithLabelValues(e.To).Observe(float64(e.ElapsedMs) / 1000)
	case e.To == events.PhaseIdle:
		// A reset abandons the run without an outcome.
		if c.active[e.Run] {
			delete(c.active, e.Run)
			c.activeRuns.Dec()
		}
	}
}
