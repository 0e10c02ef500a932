package main

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/udohsolomon/planning-explorer-sub006/internal/analytics"
	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/backend"
	"github.com/udohsolomon/planning-explorer-sub006/internal/controller"
	"github.com/udohsolomon/planning-explorer-sub006/internal/events"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
	"github.com/udohsolomon/planning-explorer-sub006/internal/store"
)

// searcher is the backend the animation waits on.
type searcher interface {
	Search(ctx context.Context, query string) (backend.Result, error)
}

// session pairs one animation with the searches it stands in front of.
// Each attempt starts the animation and a search; the search result feeds
// the sub-step figures and releases a held run. The outcome of the latest
// attempt's search is kept even when it arrives after the animation ended.
type session struct {
	ctx     context.Context
	query   string
	store   *store.Store
	ctrl    *controller.Controller
	tracker *analytics.Tracker
	backend searcher
	router  *events.Router
	logger  *slog.Logger

	mu           sync.Mutex
	cancelSearch context.CancelFunc
	attempt      uint64
	failure      *animerr.AnimationError
	wg           sync.WaitGroup
}

// begin starts a new attempt, abandoning any search still in flight.
func (s *session) begin() {
	s.mu.Lock()
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelSearch = cancel
	s.attempt++
	attempt := s.attempt
	s.failure = nil
	s.mu.Unlock()

	s.ctrl.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.search(ctx, attempt)
	}()
}

func (s *session) search(ctx context.Context, attempt uint64) {
	res, err := s.backend.Search(ctx, s.query)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			s.logger.Debug("search abandoned", "query", s.query)
			return
		}
		ae := animerr.FromError(err)
		s.logger.Warn("search failed",
			"query", s.query,
			"error_type", ae.Type,
			"error", err)
		if !s.recordFailure(attempt, ae) {
			return
		}
		if !s.ctrl.Fail(ae) {
			s.reportLateFailure(ae)
		}
		return
	}

	s.logger.Info("search returned",
		"query", s.query,
		"count", res.Count,
		"response_time", res.ResponseTime)

	s.ctrl.UpdateDynamicValue(stages.KeyApplicationsFound, float64(res.Count))
	s.ctrl.UpdateDynamicValue(stages.KeyAuthoritiesCovered, float64(res.Authorities))
	s.ctrl.UpdateDynamicValue(stages.KeyTopMatchScore, math.Round(res.TopScore*100))
	s.ctrl.Resolve(res.ResponseTime)

	sched := s.ctrl.Timings()
	s.tracker.TrackPerformance(analytics.Performance{
		ActualResponse: res.ResponseTime,
		Animation:      sched.TotalDuration,
		Accelerated:    sched.IsAccelerated,
		SpeedFactor:    sched.SpeedFactor,
	})
}

// recordFailure keeps ae as the session's outcome if attempt is still the
// latest one.
func (s *session) recordFailure(attempt uint64, ae *animerr.AnimationError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt != s.attempt {
		return false
	}
	s.failure = ae
	return true
}

// reportLateFailure records a failure that arrived after the animation had
// already ended, so the store no longer reflects it.
func (s *session) reportLateFailure(ae *animerr.AnimationError) {
	s.logger.Warn("search failed after the animation ended",
		"query", s.query,
		"error_type", ae.Type)
	if s.router == nil {
		return
	}
	s.router.Emit(&events.ErrorEvent{
		BaseEvent: events.NewEvent(events.EventError, events.SourceInternal),
		Message:   "search failed after the animation ended: " + ae.Error(),
		Severity:  events.SeverityError,
		Context: map[string]string{
			"error_type": string(ae.Type),
			"query":      s.query,
		},
	})
}

// failed returns the latest attempt's search failure, or nil.
func (s *session) failed() *animerr.AnimationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// wait blocks until the search in flight returns or ctx is done, in which
// case the search is abandoned.
func (s *session) wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.stopSearch()
		<-done
	}
}

// cancel is the user's cancel action.
func (s *session) cancel() {
	snap := s.store.Snapshot()
	if !snap.IsAnimating {
		return
	}
	s.tracker.TrackCancelButtonClicked(snap.CurrentStage)
	s.stopSearch()
	s.ctrl.Cancel()
}

// retry restarts after a retryable failure.
func (s *session) retry() {
	err := s.store.Snapshot().Error
	if err == nil || !err.Retryable {
		return
	}
	attempt := s.tracker.TrackRetry(err.Type)
	s.tracker.TrackErrorAction("retry", err.Type)
	s.logger.Info("retrying search", "attempt", attempt, "error_type", err.Type)
	s.begin()
}

func (s *session) stopSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
}

// close abandons the search in flight and waits for it to return.
func (s *session) close() {
	s.stopSearch()
	s.wg.Wait()
}
