package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// Rotation configures size-based rotation of the event log.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotation keeps five 10MB files for a week.
func DefaultRotation() Rotation {
	return Rotation{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 7}
}

// LogSink writes events as JSON lines to a rotating file.
type LogSink struct {
	path     string
	rotation Rotation
	writer   *lumberjack.Logger
	encoder  *json.Encoder
	mu       sync.Mutex
	done     chan struct{}
}

// NewLogSink creates a LogSink writing to path with DefaultRotation.
func NewLogSink(path string) *LogSink {
	return NewRotatingLogSink(path, DefaultRotation())
}

// NewRotatingLogSink creates a LogSink with explicit rotation settings.
func NewRotatingLogSink(path string, rotation Rotation) *LogSink {
	return &LogSink{
		path:     path,
		rotation: rotation,
		done:     make(chan struct{}),
	}
}

// Start opens the log and processes events until ctx is cancelled or the
// channel is closed.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   s.path,
		MaxSize:    s.rotation.MaxSizeMB,
		MaxBackups: s.rotation.MaxBackups,
		MaxAge:     s.rotation.MaxAgeDays,
		Compress:   s.rotation.Compress,
	}

	s.mu.Lock()
	s.writer = w
	s.encoder = json.NewEncoder(w)
	s.mu.Unlock()

	go s.run(ctx, events)
	return nil
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(event)
		}
	}
}

func (s *LogSink) write(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return
	}
	if err := s.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "log sink: failed to write event: %v\n", err)
	}
}

// Stop waits for the processing goroutine and closes the file.
func (s *LogSink) Stop() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	s.encoder = nil
	return err
}

// Path returns the log file path.
func (s *LogSink) Path() string {
	return s.path
}
