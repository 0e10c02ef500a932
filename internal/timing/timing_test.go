package timing

import (
	"math"
	"reflect"
	"slices"
	"testing"
	"time"
)

func TestVariants(t *testing.T) {
	d := Default()
	if d.TotalDuration != 4600*time.Millisecond {
		t.Errorf("Default total = %v, want 4.6s", d.TotalDuration)
	}
	if d.MinimumDuration != MinimumAnimationDuration {
		t.Errorf("Default minimum = %v, want %v", d.MinimumDuration, MinimumAnimationDuration)
	}

	m := Mobile()
	if m.TotalDuration >= d.TotalDuration {
		t.Errorf("Mobile total %v should be below desktop %v", m.TotalDuration, d.TotalDuration)
	}

	r := ReducedMotion()
	if r.SubStepStagger != 0 || r.IconReveal != 0 {
		t.Errorf("ReducedMotion keeps decorative timings: stagger %v, icon %v", r.SubStepStagger, r.IconReveal)
	}
	if r.TotalDuration > 500*time.Millisecond {
		t.Errorf("ReducedMotion total = %v, want <= 500ms", r.TotalDuration)
	}

	for name, v := range map[string]AnimationTimings{"default": d, "mobile": m, "reduced": r} {
		if len(v.StageDurations) != 5 {
			t.Errorf("%s has %d stage durations, want 5", name, len(v.StageDurations))
		}
	}
}

func TestVariantsAreIndependentCopies(t *testing.T) {
	a := Default()
	a.StageDurations[0] = time.Hour
	if got := Default().StageDurations[0]; got != 900*time.Millisecond {
		t.Errorf("Default stage 1 = %v after mutating a copy, want 900ms", got)
	}
}

func TestGetTimingConfig(t *testing.T) {
	tests := []struct {
		name          string
		mobile        bool
		reducedMotion bool
		want          AnimationTimings
	}{
		{"desktop", false, false, Default()},
		{"mobile", true, false, Mobile()},
		{"reduced motion", false, true, ReducedMotion()},
		{"reduced motion wins over mobile", true, true, ReducedMotion()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetTimingConfig(tt.mobile, tt.reducedMotion); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetTimingConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculateFastResponseDuration(t *testing.T) {
	tests := []struct {
		response time.Duration
		want     time.Duration
	}{
		{2000 * time.Millisecond, 4600 * time.Millisecond},
		{10 * time.Second, 4600 * time.Millisecond},
		{1200 * time.Millisecond, 3680 * time.Millisecond},
		{0, 3680 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := CalculateFastResponseDuration(tt.response); got != tt.want {
			t.Errorf("CalculateFastResponseDuration(%v) = %v, want %v", tt.response, got, tt.want)
		}
	}
}

func TestAccelerate_PassThrough(t *testing.T) {
	base := Default().StageDurations

	tests := []struct {
		name     string
		response time.Duration
		enabled  bool
	}{
		{"disabled", 100 * time.Millisecond, false},
		{"unknown response time", UnknownResponseTime, true},
		{"at threshold", FastResponseThreshold, true},
		{"slow response", 5 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accelerate(base, tt.response, tt.enabled)
			if got.IsAccelerated {
				t.Error("should not be accelerated")
			}
			if got.SpeedFactor != 1.0 {
				t.Errorf("SpeedFactor = %v, want 1", got.SpeedFactor)
			}
			if !slices.Equal(got.StageDurations, base) {
				t.Errorf("StageDurations = %v, want %v", got.StageDurations, base)
			}
			if got.TotalDuration != 4600*time.Millisecond {
				t.Errorf("TotalDuration = %v, want 4.6s", got.TotalDuration)
			}
		})
	}
}

func TestAccelerate_FastResponse(t *testing.T) {
	got := Accelerate(Default().StageDurations, 1200*time.Millisecond, true)

	if !got.IsAccelerated {
		t.Fatal("expected acceleration for a 1.2s response")
	}
	want := []time.Duration{
		720 * time.Millisecond,
		1200 * time.Millisecond,
		640 * time.Millisecond,
		640 * time.Millisecond,
		480 * time.Millisecond,
	}
	if !slices.Equal(got.StageDurations, want) {
		t.Errorf("StageDurations = %v, want %v", got.StageDurations, want)
	}
	if got.TotalDuration != 3680*time.Millisecond {
		t.Errorf("TotalDuration = %v, want 3.68s", got.TotalDuration)
	}
	if math.Abs(got.SpeedFactor-1.25) > 1e-9 {
		t.Errorf("SpeedFactor = %v, want 1.25", got.SpeedFactor)
	}
}

func TestAccelerate_RescalesToFloor(t *testing.T) {
	base := []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}

	got := Accelerate(base, 300*time.Millisecond, true)

	if !got.IsAccelerated {
		t.Fatal("expected acceleration")
	}
	if got.TotalDuration != MinimumAnimationDuration || Sum(got.StageDurations) != MinimumAnimationDuration {
		t.Errorf("total = %v, sum = %v, want both %v", got.TotalDuration, Sum(got.StageDurations), MinimumAnimationDuration)
	}
	if math.Abs(got.SpeedFactor-1.2) > 1e-9 {
		t.Errorf("SpeedFactor = %v, want 1.2", got.SpeedFactor)
	}
}

func TestAccelerate_UnevenRoundingKeepsExactFloor(t *testing.T) {
	base := []time.Duration{1001 * time.Millisecond, 1003 * time.Millisecond, 1007 * time.Millisecond}

	got := Accelerate(base, 0, true)

	if !got.IsAccelerated {
		t.Fatal("expected acceleration")
	}
	if sum := Sum(got.StageDurations); sum != MinimumAnimationDuration {
		t.Errorf("sum = %v, want %v", sum, MinimumAnimationDuration)
	}
}

func TestAccelerate_NeverSlowerThanBase(t *testing.T) {
	got := Accelerate(ReducedMotion().StageDurations, 100*time.Millisecond, true)

	if got.IsAccelerated {
		t.Error("a schedule already below the floor should not be accelerated")
	}
	if got.TotalDuration != ReducedMotion().TotalDuration {
		t.Errorf("TotalDuration = %v, want %v", got.TotalDuration, ReducedMotion().TotalDuration)
	}
}

func TestAccelerate_FloorProperty(t *testing.T) {
	base := Default().StageDurations
	for rt := time.Duration(0); rt < FastResponseThreshold; rt += 50 * time.Millisecond {
		got := Accelerate(base, rt, true)
		if got.TotalDuration < MinimumAnimationDuration {
			t.Fatalf("response %v produced total %v below floor", rt, got.TotalDuration)
		}
		if got.TotalDuration != Sum(got.StageDurations) {
			t.Fatalf("response %v: total %v != sum %v", rt, got.TotalDuration, Sum(got.StageDurations))
		}
	}
}

func TestPolicy_CustomValues(t *testing.T) {
	p := Policy{
		FastResponseThreshold: 500 * time.Millisecond,
		AccelerationFactor:    0.5,
		MinimumDisplay:        time.Second,
	}
	base := []time.Duration{2 * time.Second, 2 * time.Second}

	fast := p.Accelerate(base, 400*time.Millisecond, true)
	if !fast.IsAccelerated || fast.TotalDuration != 2*time.Second {
		t.Errorf("fast = %+v, want accelerated to 2s", fast)
	}

	if slow := p.Accelerate(base, 600*time.Millisecond, true); slow.IsAccelerated {
		t.Error("a response over the custom threshold should not accelerate")
	}
}
