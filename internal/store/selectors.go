package store

import (
	"log/slog"
	"sync"

	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
)

// CurrentStage projects the active stage id.
func CurrentStage(s State) int { return s.CurrentStage }

// IsAnimating projects the running flag.
func IsAnimating(s State) bool { return s.IsAnimating }

// Progress projects overall progress in [0,100]. A running stage reports
// the checkpoint it started from; a completed run reports 100.
func Progress(s State) float64 {
	if s.IsComplete {
		return 100
	}
	stage, ok := stages.GetStageByID(s.CurrentStage)
	if !ok {
		return 0
	}
	return stages.CalculateProgress(s.CurrentStage, 0, len(stage.SubSteps))
}

// Select subscribes fn to a projection of the state. fn runs only when the
// projected value changes.
func Select[T comparable](s *Store, selector func(State) T, fn func(prev, next T)) (unsubscribe func()) {
	return s.Subscribe(func(prev, next State) {
		p, n := selector(prev), selector(next)
		if p != n {
			fn(p, n)
		}
	})
}

// Watch returns a channel receiving every new state. Sends never block the
// store: when the buffer is full the state is dropped and logged. cancel
// unsubscribes and closes the channel.
func (s *Store) Watch(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan State, buffer)
	var mu sync.Mutex
	closed := false

	unsub := s.Subscribe(func(_, next State) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- next:
		default:
			slog.Warn("state watcher full, dropping update",
				"run", next.Run,
				"stage", next.CurrentStage)
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsub()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel
}
