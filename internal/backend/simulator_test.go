package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
)

func TestSearch_Deterministic(t *testing.T) {
	s := &Simulator{}
	a, err := s.Search(context.Background(), "loft conversions in Leeds")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.Search(context.Background(), "loft conversions in Leeds")
	if a.Count != b.Count || a.TopScore != b.TopScore {
		t.Errorf("results differ for the same query: %+v vs %+v", a, b)
	}
	if a.Count < 200 || a.TopScore < 0.7 || a.TopScore >= 1 {
		t.Errorf("result out of range: %+v", a)
	}
}

func TestSearch_Latency(t *testing.T) {
	s := &Simulator{Latency: 20 * time.Millisecond}
	res, err := s.Search(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if res.ResponseTime < 20*time.Millisecond {
		t.Errorf("response time %v shorter than latency", res.ResponseTime)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name string
		sim  *Simulator
		ctx  func() (context.Context, context.CancelFunc)
		want animerr.Kind
	}{
		{
			name: "configured failure",
			sim:  &Simulator{Fail: animerr.KindServer},
			ctx:  func() (context.Context, context.CancelFunc) { return context.Background(), func() {} },
			want: animerr.KindServer,
		},
		{
			name: "deadline",
			sim:  &Simulator{Latency: time.Hour},
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 10*time.Millisecond)
			},
			want: animerr.KindTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			_, err := tt.sim.Search(ctx, "q")
			var ae *animerr.AnimationError
			if !errors.As(err, &ae) {
				t.Fatalf("error %v is not an AnimationError", err)
			}
			if ae.Type != tt.want {
				t.Errorf("kind = %s, want %s", ae.Type, tt.want)
			}
		})
	}
}

func TestSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Simulator{Latency: time.Hour}).Search(ctx, "q")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := (&Simulator{}).Search(context.Background(), "")
	var ae *animerr.AnimationError
	if !errors.As(err, &ae) || ae.Type != animerr.KindNoResults {
		t.Errorf("err = %v, want no_results", err)
	}
}
