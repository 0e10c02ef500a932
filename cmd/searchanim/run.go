package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/a11y"
	"github.com/udohsolomon/planning-explorer-sub006/internal/analytics"
	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/backend"
	"github.com/udohsolomon/planning-explorer-sub006/internal/config"
	"github.com/udohsolomon/planning-explorer-sub006/internal/controller"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/metrics"
	"github.com/udohsolomon/planning-explorer-sub006/internal/shutdown"
	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
	"github.com/udohsolomon/planning-explorer-sub006/internal/tui"
)

const (
	// shutdownTimeout bounds hook execution after a signal.
	shutdownTimeout = 5 * time.Second

	// uiEventBuffer is the router subscription size for the renderer.
	uiEventBuffer = 500

	// slowStateBuffer holds slow-response updates for the renderer.
	slowStateBuffer = 16
)

// runOptions are the per-invocation inputs of the run command.
type runOptions struct {
	Query        string
	SearchType   analytics.SearchType
	Latency      time.Duration
	ResponseTime time.Duration // timing.UnknownResponseTime when not given
	Fail         animerr.Kind
	TUI          bool
	Backend      searcher // defaults to a backend.Simulator
}

// runSearch animates one search until it ends (plain output) or the user
// quits (TUI), then tears every component down. A run that ends in error
// is reported as an error, as is a search that fails after the animation
// has already completed.
func runSearch(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger, level slog.Leveler, out io.Writer) error {
	if opts.TUI {
		logResult, err := SetupTUILogger(cfg.Paths.DebugLog, level, cfg.LogRotation)
		if err != nil {
			return err
		}
		defer func() { _ = logResult.Close() }()
		logger = logResult.Logger
		slog.SetDefault(logger)
	}

	logger.Info("searchanim starting",
		"version", version,
		"query", opts.Query,
		"search_type", opts.SearchType,
		"event_log", cfg.Paths.EventLog,
		"history", cfg.Paths.History,
		"tui", opts.TUI,
	)

	msgs, err := cfg.LoadMessages()
	if err != nil {
		return err
	}

	// Create event router
	router := events.NewRouter(events.DefaultBufferSize)
	router.SetLogger(logger)

	// Subscribe the renderer before anything can emit.
	uiEvents := router.SubscribeBuffered(uiEventBuffer)

	// Sinks drain their subscriptions when the router closes, so their
	// context only ends once they have been stopped.
	sinkCtx, sinkCancel := context.WithCancel(context.Background())
	defer sinkCancel()

	sinks, err := startSinks(sinkCtx, cfg, router)
	if err != nil {
		router.Close()
		return err
	}
	stopSinks := func() {
		router.Close()
		for _, s := range sinks {
			if err := s.Stop(); err != nil {
				logger.Warn("sink stop failed", "error", err)
			}
		}
	}

	var collector *metrics.Collector
	for _, s := range sinks {
		if c, ok := s.(*metrics.Collector); ok {
			collector = c
		}
	}
	stopMetrics := func() {}
	if collector != nil {
		stopMetrics, err = serveMetrics(cfg.Metrics.Addr, collector, logger)
		if err != nil {
			stopSinks()
			return err
		}
	}

	motion, stopMotion := motionSource(ctx, cfg, logger)

	st := store.New()

	ctrlOpts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithRouter(router),
		controller.WithPolicy(cfg.Timing.Policy()),
		controller.WithAcceleration(cfg.Timing.Acceleration),
		controller.WithTimings(a11y.TimingsFor(motion, cfg.Timing.Mobile)),
		controller.WithMotion(motion),
	}
	if opts.ResponseTime != timing.UnknownResponseTime {
		ctrlOpts = append(ctrlOpts, controller.WithActualResponseTime(opts.ResponseTime))
	}
	if cfg.Timing.AwaitResponse {
		ctrlOpts = append(ctrlOpts, controller.WithAwaitResponse())
	}
	ctrl := controller.New(st, ctrlOpts...)

	slowChan := make(chan slowresponse.State, slowStateBuffer)
	slow := slowresponse.New(st,
		slowresponse.WithLogger(logger),
		slowresponse.WithThresholds(cfg.SlowResponse.Thresholds()),
		slowresponse.WithMessages(msgs),
		slowresponse.WithRouter(router),
		slowresponse.WithOnChange(func(s slowresponse.State) {
			select {
			case slowChan <- s:
			default:
				logger.Debug("slow-response update dropped")
			}
		}),
	)

	tracker := analytics.New(analyticsSink(cfg, router, logger), opts.Query, opts.SearchType,
		analytics.WithLogger(logger))
	detach := tracker.Attach(st)

	be := opts.Backend
	if be == nil {
		be = &backend.Simulator{Latency: opts.Latency, Fail: opts.Fail}
	}
	sess := &session{
		query:   opts.Query,
		store:   st,
		ctrl:    ctrl,
		tracker: tracker,
		backend: be,
		router:  router,
		logger:  logger,
	}

	ui := tui.New(st,
		tui.WithEvents(uiEvents),
		tui.WithSlowResponse(slowChan),
		tui.WithMotion(motion),
		tui.WithQuery(opts.Query),
		tui.WithOutput(out),
		tui.WithPlain(!opts.TUI),
		tui.WithOnCancel(sess.cancel),
		tui.WithOnRetry(sess.retry),
		tui.WithOnQuit(sess.stopSearch),
	)

	runErr := shutdown.Run(ctx, logger, shutdownTimeout,
		func(runCtx context.Context) error {
			sess.ctx = runCtx
			sess.begin()
			if err := ui.Run(runCtx); err != nil {
				return err
			}
			// Plain output stops once the animation ends, which may be
			// before the search behind it has answered.
			if !opts.TUI {
				sess.wait(runCtx)
			}
			return nil
		},
		func(context.Context) error {
			sess.cancel()
			return nil
		},
	)

	// Tear down in dependency order: producers first, then the router and
	// its sinks.
	sess.close()
	slow.Close()
	ctrl.Close()
	detach()
	stopMotion()
	stopMetrics()
	stopSinks()

	if runErr != nil {
		return runErr
	}

	final := st.Snapshot()
	logger.Info("searchanim finished",
		"run", final.Run,
		"complete", final.IsComplete,
		"cancelled", final.IsCancelled,
		"dropped_events", router.Dropped())

	if final.Error != nil {
		return fmt.Errorf("search failed: %w", final.Error)
	}
	if ae := sess.failed(); ae != nil {
		return fmt.Errorf("search failed after the animation ended: %w", ae)
	}
	return nil
}

// startSinks subscribes and starts the event log, the run history and,
// when enabled, the metrics collector. On failure every sink already
// started is stopped.
func startSinks(ctx context.Context, cfg *config.Config, router *events.Router) ([]events.Sink, error) {
	rotation := events.Rotation{
		MaxSizeMB:  cfg.LogRotation.MaxSizeMB,
		MaxBackups: cfg.LogRotation.MaxBackups,
		MaxAgeDays: cfg.LogRotation.MaxAgeDays,
		Compress:   cfg.LogRotation.Compress,
	}

	type namedSink struct {
		name string
		sink events.Sink
		ch   <-chan events.Event
	}
	planned := []namedSink{
		{"log", events.NewRotatingLogSink(cfg.Paths.EventLog, rotation), router.Subscribe()},
		{"history", events.NewHistorySink(cfg.Paths.History), router.SubscribeBuffered(events.HistoryBufferSize)},
	}
	if cfg.Metrics.Enabled {
		planned = append(planned, namedSink{"metrics", metrics.NewCollector(), router.Subscribe()})
	}

	var started []events.Sink
	for _, p := range planned {
		if err := p.sink.Start(ctx, p.ch); err != nil {
			router.Close()
			for _, s := range started {
				_ = s.Stop()
			}
			return nil, fmt.Errorf("start %s sink: %w", p.name, err)
		}
		started = append(started, p.sink)
	}
	return started, nil
}

// serveMetrics exposes the collector on addr until the returned stop
// function is called. The listener is bound before returning so address
// errors surface immediately.
func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}

// motionSource picks the reduced-motion source: forced by config, or the
// environment plus an optional watched preference file.
func motionSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a11y.MotionSource, func()) {
	if cfg.Motion.ReducedMotion {
		return a11y.StaticMotion(true), func() {}
	}

	pref := a11y.NewMotionPreference(cfg.Motion.PreferenceFile,
		a11y.WithPreferenceLogger(logger),
		a11y.WithDebounce(cfg.Motion.Debounce),
	)
	if err := pref.Start(ctx); err != nil {
		logger.Warn("motion preference watch disabled", "path", cfg.Motion.PreferenceFile, "error", err)
	}
	return pref, func() { _ = pref.Stop() }
}

// analyticsSink builds the configured analytics destination.
func analyticsSink(cfg *config.Config, router *events.Router, logger *slog.Logger) analytics.Sink {
	if !cfg.Analytics.Enabled {
		return analytics.NopSink{}
	}
	switch cfg.Analytics.Sink {
	case config.SinkRouter:
		return analytics.RouterSink{Router: router}
	case config.SinkNone:
		return analytics.NopSink{}
	default:
		return analytics.MultiSink{
			analytics.SlogSink{Logger: logger},
			analytics.RouterSink{Router: router},
		}
	}
}
