// Package store holds the observable state of the search progress animation.
package store

import (
	"maps"
	"sync"

	"github.com/udohsolomon/planning-explorer-sub006/internal/animerr"
	"github.com/udohsolomon/planning-explorer-sub006/internal/stages"
)

// State is a snapshot of the animation.
type State struct {
	// Run identifies the current start generation. It increases on every
	// Start and lets timer callbacks detect that they belong to an older run.
	Run           uint64                  `json:"run"`
	CurrentStage  int                     `json:"current_stage"`
	IsAnimating   bool                    `json:"is_animating"`
	IsComplete    bool                    `json:"is_complete"`
	IsCancelled   bool                    `json:"is_cancelled"`
	Error         *animerr.AnimationError `json:"error,omitempty"`
	DynamicValues map[string]float64      `json:"dynamic_values,omitempty"`
}

// Terminal reports whether the run has ended by completion, cancellation
// or error.
func (s State) Terminal() bool {
	return s.IsComplete || s.IsCancelled || s.Error != nil
}

// Value returns a dynamic value and whether it has been set.
func (s State) Value(key string) (float64, bool) {
	v, ok := s.DynamicValues[key]
	return v, ok
}

func (s State) clone() State {
	s.DynamicValues = maps.Clone(s.DynamicValues)
	return s
}

// Listener observes state transitions.
type Listener func(prev, next State)

// Store is the animation state container. It is safe for concurrent use.
// Listeners run synchronously after the lock has been released, in
// registration order. Notifications are delivered in mutation order: a
// mutation made while another is being delivered, from a listener or from
// another goroutine, is queued and delivered by the goroutine already
// delivering once the current round has finished.
type Store struct {
	mu         sync.Mutex
	state      State
	listeners  []*listenerEntry
	pending    []notification
	delivering bool
}

type listenerEntry struct {
	fn Listener
}

// notification is one transition waiting to be delivered.
type notification struct {
	prev, next State
	listeners  []*listenerEntry
}

// New returns a store in the rest state.
func New() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every state change. The returned function
// removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	e := &listenerEntry{fn: fn}

	s.mu.Lock()
	s.listeners = append(s.listeners, e)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, other := range s.listeners {
				if other == e {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// update applies mutate under the lock and, if it reported a change,
// queues the transition for delivery. The outermost caller drains the
// queue.
func (s *Store) update(mutate func(st *State) bool) bool {
	s.mu.Lock()
	prev := s.state.clone()
	if !mutate(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, notification{
		prev:      prev,
		next:      s.state.clone(),
		listeners: append([]*listenerEntry(nil), s.listeners...),
	})
	if s.delivering {
		s.mu.Unlock()
		return true
	}
	s.delivering = true
	s.mu.Unlock()

	s.drain()
	return true
}

// drain delivers queued transitions until none remain. A panicking
// listener drops the rest of the queue so later mutations still deliver.
func (s *Store) drain() {
	done := false
	defer func() {
		if !done {
			s.mu.Lock()
			s.pending = nil
			s.delivering = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.delivering = false
			s.mu.Unlock()
			done = true
			return
		}
		n := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, l := range n.listeners {
			l.fn(n.prev.clone(), n.next.clone())
		}
	}
}

// Start begins a new run at stage 1 and returns its run token. Terminal
// flags, the error and dynamic values are cleared.
func (s *Store) Start() uint64 {
	var run uint64
	s.update(func(st *State) bool {
		run = st.Run + 1
		*st = State{Run: run, CurrentStage: 1, IsAnimating: true}
		return true
	})
	return run
}

// ProgressToNextStage advances one stage. It does nothing unless the
// animation is running and below the last stage.
func (s *Store) ProgressToNextStage() bool {
	return s.update(advance)
}

// ProgressRun is ProgressToNextStage restricted to the given run.
func (s *Store) ProgressRun(run uint64) bool {
	return s.update(func(st *State) bool {
		return st.Run == run && advance(st)
	})
}

func advance(st *State) bool {
	if !st.IsAnimating || st.Terminal() || st.CurrentStage >= stages.Total() {
		return false
	}
	st.CurrentStage++
	return true
}

// CompleteAnimation ends a running animation successfully.
func (s *Store) CompleteAnimation() bool {
	return s.update(complete)
}

// CompleteRun is CompleteAnimation restricted to the given run.
func (s *Store) CompleteRun(run uint64) bool {
	return s.update(func(st *State) bool {
		return st.Run == run && complete(st)
	})
}

func complete(st *State) bool {
	if !st.IsAnimating || st.Terminal() {
		return false
	}
	st.IsAnimating = false
	st.IsComplete = true
	return true
}

// CancelAnimation stops a running animation as cancelled.
func (s *Store) CancelAnimation() bool {
	return s.update(func(st *State) bool {
		if !st.IsAnimating || st.Terminal() {
			return false
		}
		st.IsAnimating = false
		st.IsCancelled = true
		return true
	})
}

// SetError stops a running animation with err. A nil err is ignored.
func (s *Store) SetError(err *animerr.AnimationError) bool {
	if err == nil {
		return false
	}
	return s.update(func(st *State) bool {
		if !st.IsAnimating || st.Terminal() {
			return false
		}
		st.IsAnimating = false
		st.Error = err
		return true
	})
}

// ResetAnimation returns to the rest state. The run counter is kept.
func (s *Store) ResetAnimation() bool {
	return s.update(func(st *State) bool {
		rest := State{Run: st.Run}
		if st.CurrentStage == rest.CurrentStage && !st.IsAnimating && !st.Terminal() && len(st.DynamicValues) == 0 {
			return false
		}
		*st = rest
		return true
	})
}

// UpdateDynamicValue sets a dynamic value. Stage and flags are untouched.
func (s *Store) UpdateDynamicValue(key string, value float64) bool {
	return s.update(func(st *State) bool {
		if old, ok := st.DynamicValues[key]; ok && old == value {
			return false
		}
		if st.DynamicValues == nil {
			st.DynamicValues = make(map[string]float64)
		}
		st.DynamicValues[key] = value
		return true
	})
}
