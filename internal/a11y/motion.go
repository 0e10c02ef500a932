// Package a11y carries the accessibility concerns of the search animation:
// the reduced-motion preference and the focus trap around the progress
// dialog.
package a11y

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/udohsolomon/planning-explorer-sub006/internal/scheduler"
	"github.com/udohsolomon/planning-explorer-sub006/internal/timing"
)

// EnvReducedMotion is the environment variable consulted for the platform
// reduced-motion preference.
const EnvReducedMotion = "PREFERS_REDUCED_MOTION"

// MotionSource reports whether the user prefers reduced motion.
type MotionSource interface {
	ReducedMotion() bool
	// Subscribe registers fn for live changes of the preference.
	Subscribe(fn func(reduced bool)) (unsubscribe func())
}

// StaticMotion is a MotionSource that never changes.
type StaticMotion bool

// ReducedMotion implements MotionSource.
func (m StaticMotion) ReducedMotion() bool { return bool(m) }

// Subscribe implements MotionSource. The callback is never called.
func (StaticMotion) Subscribe(func(bool)) func() { return func() {} }

// TimingsFor picks the timing set for the current motion preference.
// A nil source means full motion.
func TimingsFor(src MotionSource, isMobile bool) timing.AnimationTimings {
	reduced := src != nil && src.ReducedMotion()
	return timing.GetTimingConfig(isMobile, reduced)
}

// ParsePreference interprets a preference value. "reduce", "reduced",
// "true", "yes", "on" and "1" mean reduced motion.
func ParsePreference(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reduce", "reduced", "true", "yes", "on", "1":
		return true
	}
	return false
}

// DefaultDebounce is how long file changes settle before being re-read.
const DefaultDebounce = 50 * time.Millisecond

// MotionPreference combines the PREFERS_REDUCED_MOTION environment variable
// with an optional preference file. While started, the file is watched and
// subscribers are told when the combined preference flips. Either source
// asking for reduced motion wins.
type MotionPreference struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	group    *scheduler.Group

	mu          sync.Mutex
	envReduced  bool
	fileReduced bool
	override    *bool
	listeners   map[int]func(bool)
	nextID      int

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// PreferenceOption configures a MotionPreference.
type PreferenceOption func(*MotionPreference)

// WithPreferenceLogger sets the logger.
func WithPreferenceLogger(logger *slog.Logger) PreferenceOption {
	return func(p *MotionPreference) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDebounce sets the settle delay for file changes.
func WithDebounce(d time.Duration) PreferenceOption {
	return func(p *MotionPreference) { p.debounce = d }
}

// WithPreferenceClock sets the clock used for debouncing.
func WithPreferenceClock(c scheduler.Clock) PreferenceOption {
	return func(p *MotionPreference) { p.group = scheduler.NewGroup(c) }
}

// NewMotionPreference reads the environment and, if path is non-empty, the
// preference file.
func NewMotionPreference(path string, opts ...PreferenceOption) *MotionPreference {
	p := &MotionPreference{
		path:       path,
		logger:     slog.Default(),
		debounce:   DefaultDebounce,
		envReduced: ParsePreference(os.Getenv(EnvReducedMotion)),
		listeners:  make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.group == nil {
		p.group = scheduler.NewGroup(scheduler.Real())
	}

	if path != "" {
		if reduced, err := readPreferenceFile(path); err == nil {
			p.fileReduced = reduced
		} else if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to read motion preference", "path", path, "error", err)
		}
	}
	return p
}

// ReducedMotion implements MotionSource.
func (p *MotionPreference) ReducedMotion() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reducedLocked()
}

func (p *MotionPreference) reducedLocked() bool {
	if p.override != nil {
		return *p.override
	}
	return p.envReduced || p.fileReduced
}

// Subscribe implements MotionSource.
func (p *MotionPreference) Subscribe(fn func(bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Set forces the preference, taking priority over environment and file.
func (p *MotionPreference) Set(reduced bool) {
	p.apply(func() { p.override = &reduced })
}

// Toggle flips the effective preference and returns the new value.
func (p *MotionPreference) Toggle() bool {
	reduced := !p.ReducedMotion()
	p.Set(reduced)
	return reduced
}

// apply runs mutate under the lock and notifies subscribers if the
// effective preference changed.
func (p *MotionPreference) apply(mutate func()) {
	p.mu.Lock()
	before := p.reducedLocked()
	mutate()
	after := p.reducedLocked()
	var fns []func(bool)
	if before != after {
		for _, fn := range p.listeners {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	if before != after {
		p.logger.Info("motion preference changed", "reduced_motion", after)
	}
	for _, fn := range fns {
		fn(after)
	}
}

// Start watches the preference file until Stop or ctx is done. Without a
// path it does nothing.
func (p *MotionPreference) Start(ctx context.Context) error {
	if p.path == "" {
		return nil
	}
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("motion preference watcher already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.running.Store(false)
		return fmt.Errorf("create file watcher: %w", err)
	}

	// The file may not exist yet, so watch its directory.
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = fsWatcher.Close()
		p.running.Store(false)
		return fmt.Errorf("create preference directory: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		p.running.Store(false)
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Debug("watching motion preference", "path", p.path)
	go p.run(ctx, fsWatcher)
	return nil
}

func (p *MotionPreference) run(ctx context.Context, fsWatcher *fsnotify.Watcher) {
	defer func() {
		_ = fsWatcher.Close()
		p.group.CancelAll()
		p.running.Store(false)
		close(p.done)
	}()

	target := filepath.Base(p.path)
	var pending scheduler.ID

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				p.group.Cancel(pending)
				pending = p.group.After(p.debounce, p.reload)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("motion preference watcher error", "error", err)
		}
	}
}

func (p *MotionPreference) reload() {
	reduced, err := readPreferenceFile(p.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("failed to reload motion preference", "path", p.path, "error", err)
		return
	}
	p.apply(func() { p.fileReduced = reduced })
}

// Stop ends the file watch and waits for it to exit.
func (p *MotionPreference) Stop() error {
	if !p.running.Load() || p.cancel == nil {
		return nil
	}
	p.cancel()
	<-p.done
	return nil
}

func readPreferenceFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return ParsePreference(string(data)), nil
}
