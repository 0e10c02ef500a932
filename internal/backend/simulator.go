// Package backend simulates the search API that the animation waits on, so
// the CLI can demonstrate fast, slow and failing responses.
package backend

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
)

// Result is a completed search.
type Result struct {
	Query        string        `json:"query"`
	Count        int           `json:"count"`
	Authorities  int           `json:"authorities"`
	TopScore     float64       `json:"top_score"`
	ResponseTime time.Duration `json:"response_time"`
}

// Simulator answers searches after a fixed latency.
type Simulator struct {
	// Latency is how long Search blocks before answering.
	Latency time.Duration
	// Fail, when set, makes every search fail with that kind after Latency.
	Fail animerr.Kind
	// Now defaults to time.Now.
	Now func() time.Time
}

// Search waits Latency, honouring ctx, then returns a deterministic result
// for query or the configured failure.
func (s *Simulator) Search(ctx context.Context, query string) (Result, error) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Result{}, animerr.New(animerr.KindTimeout, "search deadline exceeded")
			}
			return Result{}, fmt.Errorf("search %q: %w", query, ctx.Err())
		case <-timer.C:
		}
	}

	elapsed := now().Sub(start)
	if s.Fail != "" {
		return Result{}, animerr.New(s.Fail, fmt.Sprintf("simulated %s failure after %v", s.Fail, elapsed.Round(time.Millisecond)))
	}

	if query == "" {
		return Result{}, animerr.New(animerr.KindNoResults, "empty query")
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	sum := h.Sum32()
	return Result{
		Query:        query,
		Count:        int(sum%4800) + 200,
		Authorities:  int(sum%300) + 20,
		TopScore:     0.7 + float64(sum%30)/100,
		ResponseTime: elapsed,
	}, nil
}
