package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryBufferSize is the recommended buffer size for history sink
// subscriptions.
const HistoryBufferSize = 1000

// CurrentHistoryVersion is the history file format version.
const CurrentHistoryVersion = 1

// RunRecord summarises one finished run.
type RunRecord struct {
	Run         uint64    `json:"run"`
	Outcome     string    `json:"outcome"`
	Stage       int       `json:"stage"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Accelerated bool      `json:"accelerated,omitempty"`
	SpeedFactor float64   `json:"speed_factor,omitempty"`
	ErrorType   string    `json:"error_type,omitempty"`
	EndedAt     time.Time `json:"ended_at"`
}

// History is the persisted run summary.
type History struct {
	Version      int            `json:"version"`
	Runs         int            `json:"runs"`
	Completed    int            `json:"completed"`
	Cancelled    int            `json:"cancelled"`
	Failed       int            `json:"failed"`
	Accelerated  int            `json:"accelerated"`
	ErrorsByType map[string]int `json:"errors_by_type"`
	LastRun      *RunRecord     `json:"last_run,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DefaultMinSaveDelay is the minimum time between saves.
const DefaultMinSaveDelay = 5 * time.Second

// HistorySink keeps a run summary in a JSON file. Saves are throttled
// except when a run ends.
type HistorySink struct {
	path     string
	history  *History
	dirty    bool
	mu       sync.Mutex
	done     chan struct{}
	lastSave time.Time
	minDelay time.Duration
}

// NewHistorySink creates a HistorySink persisting to path.
func NewHistorySink(path string) *HistorySink {
	return &HistorySink{
		path:     path,
		history:  newHistory(),
		done:     make(chan struct{}),
		minDelay: DefaultMinSaveDelay,
	}
}

func newHistory() *History {
	return &History{
		Version:      CurrentHistoryVersion,
		ErrorsByType: make(map[string]int),
	}
}

// Start loads any existing history and begins processing events.
func (s *HistorySink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load history: %w", err)
	}

	go s.run(ctx, events)
	return nil
}

func (s *HistorySink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.flushIfDirty()
			return
		case event, ok := <-events:
			if !ok {
				s.flushIfDirty()
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *HistorySink) handleEvent(event Event) {
	e, ok := event.(*StateChangedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history
	switch e.To {
	case PhaseRunning:
		h.Runs++
		s.dirty = true

	case PhaseComplete, PhaseCancelled, PhaseError:
		switch e.To {
		case PhaseComplete:
			h.Completed++
		case PhaseCancelled:
			h.Cancelled++
		case PhaseError:
			h.Failed++
			if e.ErrorType != "" {
				h.ErrorsByType[e.ErrorType]++
			}
		}
		// A run's schedule may be accelerated after it starts, so the
		// flag is settled only once it ends.
		if e.Accelerated {
			h.Accelerated++
		}
		h.LastRun = &RunRecord{
			Run:         e.Run,
			Outcome:     e.To,
			Stage:       e.Stage,
			ElapsedMs:   e.ElapsedMs,
			Accelerated: e.Accelerated,
			SpeedFactor: e.SpeedFactor,
			ErrorType:   e.ErrorType,
			EndedAt:     e.Timestamp(),
		}
		s.dirty = true
		s.saveUnlocked()
		return
	}

	if s.dirty && time.Since(s.lastSave) >= s.minDelay {
		s.saveUnlocked()
	}
}

func (s *HistorySink) saveUnlocked() {
	s.history.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		slog.Error("history sink: marshal failed", "error", err)
		return
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		slog.Error("history sink: write failed", "path", tmpPath, "error", err)
		return
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		slog.Error("history sink: rename failed", "path", s.path, "error", err)
		return
	}

	s.dirty = false
	s.lastSave = time.Now()
}

func (s *HistorySink) flushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.saveUnlocked()
	}
}

// Stop waits for the processing goroutine, which flushes on exit.
func (s *HistorySink) Stop() error {
	<-s.done
	return nil
}

// Load reads the history file. A corrupt or incompatible file is moved
// aside and replaced by an empty history.
func (s *HistorySink) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		s.discardUnlocked("history file corrupted", "error", err)
		return nil
	}
	if h.Version != CurrentHistoryVersion {
		s.discardUnlocked("incompatible history version",
			"file_version", h.Version,
			"current_version", CurrentHistoryVersion)
		return nil
	}
	if h.ErrorsByType == nil {
		h.ErrorsByType = make(map[string]int)
	}

	s.history = &h
	return nil
}

func (s *HistorySink) discardUnlocked(msg string, args ...any) {
	args = append(args, "path", s.path)
	if err := os.Rename(s.path, s.path+".backup"); err != nil {
		slog.Warn(msg+", failed to backup", append(args, "backup_error", err)...)
	} else {
		slog.Warn(msg+", backed up and starting fresh", args...)
	}
	s.history = newHistory()
}

// History returns a copy of the current summary.
func (s *HistorySink) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := *s.history
	h.ErrorsByType = maps.Clone(s.history.ErrorsByType)
	if s.history.LastRun != nil {
		last := *s.history.LastRun
		h.LastRun = &last
	}
	return h
}

// Path returns the history file path.
func (s *HistorySink) Path() string {
	return s.path
}

// SetMinDelay sets the minimum delay between throttled saves.
func (s *HistorySink) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}

// ReadHistory loads a history file without starting a sink.
func ReadHistory(path string) (History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return History{}, err
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return History{}, fmt.Errorf("parse history %s: %w", path, err)
	}
	if h.ErrorsByType == nil {
		h.ErrorsByType = make(map[string]int)
	}
	return h, nil
}
