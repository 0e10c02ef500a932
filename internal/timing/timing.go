// Package timing computes the per-stage duration schedule of the search
// progress animation: fixed device/motion variants plus response-time
// adaptive acceleration.
package timing

import (
	"math"
	"time"
)

// Acceleration defaults.
const (
	// FastResponseThreshold is the response time under which the schedule is compressed.
	FastResponseThreshold = 2000 * time.Millisecond
	// AccelerationFactor scales every stage of an accelerated schedule.
	AccelerationFactor = 0.8
	// MinimumAnimationDuration is the floor for the total duration of an
	// accelerated schedule. The same value is the default timing set's
	// minimum display duration.
	MinimumAnimationDuration = 2500 * time.Millisecond
)

// UnknownResponseTime marks a response time that has not been measured.
const UnknownResponseTime time.Duration = -1

// AnimationTimings is a complete duration schedule for one run.
type AnimationTimings struct {
	StageDurations  []time.Duration `json:"stage_durations"`
	TotalDuration   time.Duration   `json:"total_duration"`
	MinimumDuration time.Duration   `json:"minimum_duration"`
	SubStepStagger  time.Duration   `json:"sub_step_stagger"`
	IconReveal      time.Duration   `json:"icon_reveal"`
	TitleSlide      time.Duration   `json:"title_slide"`
	CheckmarkBounce time.Duration   `json:"checkmark_bounce"`
	ConnectionLine  time.Duration   `json:"connection_line"`
}

// AcceleratedTimings is the outcome of applying acceleration to a schedule.
type AcceleratedTimings struct {
	StageDurations []time.Duration `json:"stage_durations"`
	TotalDuration  time.Duration   `json:"total_duration"`
	IsAccelerated  bool            `json:"is_accelerated"`
	// SpeedFactor is original total / final total: 1.0 means unchanged,
	// values above 1 mean the run finishes that many times faster.
	SpeedFactor float64 `json:"speed_factor"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Default returns the desktop timing set.
func Default() AnimationTimings {
	return newTimings(
		[]time.Duration{ms(900), ms(1500), ms(800), ms(800), ms(600)},
		MinimumAnimationDuration, ms(150), ms(300), ms(250), ms(400), ms(500),
	)
}

// Mobile returns the shortened timing set used on small devices.
func Mobile() AnimationTimings {
	return newTimings(
		[]time.Duration{ms(700), ms(1200), ms(600), ms(600), ms(500)},
		ms(2000), ms(100), ms(200), ms(200), ms(300), ms(400),
	)
}

// ReducedMotion returns the near-instant timing set used when the user
// prefers reduced motion: no stagger, no micro-animations.
func ReducedMotion() AnimationTimings {
	return newTimings(
		[]time.Duration{ms(100), ms(100), ms(100), ms(100), ms(100)},
		0, 0, 0, 0, 0, 0,
	)
}

func newTimings(stages []time.Duration, minimum, stagger, icon, title, check, line time.Duration) AnimationTimings {
	return AnimationTimings{
		StageDurations:  stages,
		TotalDuration:   Sum(stages),
		MinimumDuration: minimum,
		SubStepStagger:  stagger,
		IconReveal:      icon,
		TitleSlide:      title,
		CheckmarkBounce: check,
		ConnectionLine:  line,
	}
}

// GetTimingConfig selects the timing set for a device class and motion
// preference. Reduced motion takes priority over mobile.
func GetTimingConfig(isMobile, reducedMotion bool) AnimationTimings {
	switch {
	case reducedMotion:
		return ReducedMotion()
	case isMobile:
		return Mobile()
	default:
		return Default()
	}
}

// CalculateFastResponseDuration returns the total animation duration for a
// measured API response time using the default timing set.
func CalculateFastResponseDuration(apiResponseTime time.Duration) time.Duration {
	total := Default().TotalDuration
	if apiResponseTime >= FastResponseThreshold {
		return total
	}
	return max(scale(total, AccelerationFactor), MinimumAnimationDuration)
}

// Sum adds up a list of durations.
func Sum(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}

// Policy holds the acceleration parameters.
type Policy struct {
	FastResponseThreshold time.Duration `yaml:"fast_response_threshold" mapstructure:"fast_response_threshold"`
	AccelerationFactor    float64       `yaml:"acceleration_factor" mapstructure:"acceleration_factor"`
	MinimumDisplay        time.Duration `yaml:"minimum_display" mapstructure:"minimum_display"`
}

// DefaultPolicy returns the standard acceleration parameters.
func DefaultPolicy() Policy {
	return Policy{
		FastResponseThreshold: FastResponseThreshold,
		AccelerationFactor:    AccelerationFactor,
		MinimumDisplay:        MinimumAnimationDuration,
	}
}

// Accelerate applies DefaultPolicy to base.
func Accelerate(base []time.Duration, actualResponseTime time.Duration, enabled bool) AcceleratedTimings {
	return DefaultPolicy().Accelerate(base, actualResponseTime, enabled)
}

// Accelerate compresses base when the real response was fast.
//
// Disabled, unknown (negative) or slow responses pass base through with a
// speed factor of 1. Otherwise every stage is scaled by AccelerationFactor;
// if that total falls below the floor, the result is scaled back up so the
// total equals the floor exactly. The floor never exceeds the original
// total, so acceleration can not make a run slower.
func (p Policy) Accelerate(base []time.Duration, actualResponseTime time.Duration, enabled bool) AcceleratedTimings {
	original := Sum(base)
	if !enabled || actualResponseTime < 0 || actualResponseTime >= p.FastResponseThreshold || original <= 0 {
		return passThrough(base)
	}

	factor := p.AccelerationFactor
	if factor <= 0 || factor > 1 {
		factor = AccelerationFactor
	}

	out := make([]time.Duration, len(base))
	for i, d := range base {
		out[i] = scale(d, factor)
	}

	floor := min(p.MinimumDisplay, original)
	if total := Sum(out); total < floor {
		if total == 0 {
			out[len(out)-1] = floor
		} else {
			up := float64(floor) / float64(total)
			for i, d := range out {
				out[i] = scale(d, up)
			}
			// Rounding remainder goes to the last stage so the total is exact.
			out[len(out)-1] += floor - Sum(out)
		}
	}

	final := Sum(out)
	if final >= original {
		return passThrough(base)
	}

	return AcceleratedTimings{
		StageDurations: out,
		TotalDuration:  final,
		IsAccelerated:  true,
		SpeedFactor:    float64(original) / float64(final),
	}
}

func passThrough(base []time.Duration) AcceleratedTimings {
	return AcceleratedTimings{
		StageDurations: append([]time.Duration(nil), base...),
		TotalDuration:  Sum(base),
		SpeedFactor:    1.0,
	}
}

// scale multiplies d by f, rounded to whole milliseconds.
func scale(d time.Duration, f float64) time.Duration {
	msec := math.Round(float64(d) / float64(time.Millisecond) * f)
	return time.Duration(msec) * time.Millisecond
}
