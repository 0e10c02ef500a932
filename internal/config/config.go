// Package config provides configuration types and defaults for searchanim.
package config

import (
	"fmt"
	"time"

	"github.com/udohsolomon/planning-explorer-sub006/internal/analytics"
	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

// Config holds all configuration for searchanim.
type Config struct {
	Timing       TimingConfig       `yaml:"timing" mapstructure:"timing"`
	SlowResponse SlowResponseConfig `yaml:"slow_response" mapstructure:"slow_response"`
	Analytics    AnalyticsConfig    `yaml:"analytics" mapstructure:"analytics"`
	Motion       MotionConfig       `yaml:"motion" mapstructure:"motion"`
	Paths        PathsConfig        `yaml:"paths" mapstructure:"paths"`
	LogRotation  LogRotationConfig  `yaml:"log_rotation" mapstructure:"log_rotation"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// TimingConfig holds schedule selection and acceleration settings.
type TimingConfig struct {
	Acceleration          bool          `yaml:"acceleration" mapstructure:"acceleration"`
	FastResponseThreshold time.Duration `yaml:"fast_response_threshold" mapstructure:"fast_response_threshold"`
	AccelerationFactor    float64       `yaml:"acceleration_factor" mapstructure:"acceleration_factor"`
	MinimumDisplay        time.Duration `yaml:"minimum_display" mapstructure:"minimum_display"`
	Mobile                bool          `yaml:"mobile" mapstructure:"mobile"`                 // Use the shortened mobile schedule
	AwaitResponse         bool          `yaml:"await_response" mapstructure:"await_response"` // Hold at the database stage until the search returns
}

// Policy returns the acceleration parameters.
func (t TimingConfig) Policy() timing.Policy {
	return timing.Policy{
		FastResponseThreshold: t.FastResponseThreshold,
		AccelerationFactor:    t.AccelerationFactor,
		MinimumDisplay:        t.MinimumDisplay,
	}
}

// SlowResponseConfig holds escalation thresholds for long searches.
type SlowResponseConfig struct {
	RotateAfter         time.Duration `yaml:"rotate_after" mapstructure:"rotate_after"`
	RotateEvery         time.Duration `yaml:"rotate_every" mapstructure:"rotate_every"`
	ShowCancelAfter     time.Duration `yaml:"show_cancel_after" mapstructure:"show_cancel_after"`
	WarningAfter        time.Duration `yaml:"warning_after" mapstructure:"warning_after"`
	EnhancedCancelAfter time.Duration `yaml:"enhanced_cancel_after" mapstructure:"enhanced_cancel_after"`
	Messages            []string      `yaml:"messages" mapstructure:"messages"`
	MessagesFile        string        `yaml:"messages_file" mapstructure:"messages_file"` // One message per line (takes priority over Messages)
}

// Thresholds converts the config to slowresponse thresholds.
func (s SlowResponseConfig) Thresholds() slowresponse.Thresholds {
	return slowresponse.Thresholds{
		RotateAfter:         s.RotateAfter,
		RotateEvery:         s.RotateEvery,
		ShowCancelAfter:     s.ShowCancelAfter,
		WarningAfter:        s.WarningAfter,
		EnhancedCancelAfter: s.EnhancedCancelAfter,
	}
}

// Analytics sink names.
const (
	SinkSlog   = "slog"
	SinkRouter = "router"
	SinkNone   = "none"
)

// AnalyticsConfig holds analytics hook settings.
type AnalyticsConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Sink       string `yaml:"sink" mapstructure:"sink"`               // "slog", "router" or "none"
	SearchType string `yaml:"search_type" mapstructure:"search_type"` // Default search type tag
}

// MotionConfig holds reduced-motion settings.
type MotionConfig struct {
	ReducedMotion  bool          `yaml:"reduced_motion" mapstructure:"reduced_motion"`   // Force reduced motion regardless of the environment
	PreferenceFile string        `yaml:"preference_file" mapstructure:"preference_file"` // Watched for live changes when set
	Debounce       time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// PathsConfig holds file paths for the event log, run history and debug log.
type PathsConfig struct {
	EventLog string `yaml:"event_log" mapstructure:"event_log"`
	History  string `yaml:"history" mapstructure:"history"`
	DebugLog string `yaml:"debug_log" mapstructure:"debug_log"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the event log and the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// Default returns a Config with the standard animation behaviour.
func Default() *Config {
	policy := timing.DefaultPolicy()
	thresholds := slowresponse.DefaultThresholds()
	return &Config{
		Timing: TimingConfig{
			Acceleration:          true,
			FastResponseThreshold: policy.FastResponseThreshold,
			AccelerationFactor:    policy.AccelerationFactor,
			MinimumDisplay:        policy.MinimumDisplay,
		},
		SlowResponse: SlowResponseConfig{
			RotateAfter:         thresholds.RotateAfter,
			RotateEvery:         thresholds.RotateEvery,
			ShowCancelAfter:     thresholds.ShowCancelAfter,
			WarningAfter:        thresholds.WarningAfter,
			EnhancedCancelAfter: thresholds.EnhancedCancelAfter,
			Messages:            []string{},
		},
		Analytics: AnalyticsConfig{
			Enabled:    true,
			Sink:       SinkSlog,
			SearchType: string(analytics.SearchSemantic),
		},
		Motion: MotionConfig{
			Debounce: 50 * time.Millisecond,
		},
		Paths: PathsConfig{
			EventLog: ".searchanim/events.log",
			History:  ".searchanim/history.json",
			DebugLog: ".searchanim/debug.log",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Compress:   false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Validate reports the first setting that can not drive an animation.
func (c *Config) Validate() error {
	if f := c.Timing.AccelerationFactor; f <= 0 || f > 1 {
		return fmt.Errorf("timing.acceleration_factor must be in (0, 1], got %v", f)
	}
	if c.Timing.MinimumDisplay < 0 || c.Timing.FastResponseThreshold < 0 {
		return fmt.Errorf("timing durations must not be negative")
	}
	if c.SlowResponse.RotateEvery <= 0 {
		return fmt.Errorf("slow_response.rotate_every must be positive, got %v", c.SlowResponse.RotateEvery)
	}
	switch c.Analytics.Sink {
	case SinkSlog, SinkRouter, SinkNone:
	default:
		return fmt.Errorf("analytics.sink must be slog, router or none, got %q", c.Analytics.Sink)
	}
	if _, err := analytics.ParseSearchType(c.Analytics.SearchType); err != nil {
		return fmt.Errorf("analytics.search_type: %w", err)
	}
	return nil
}
