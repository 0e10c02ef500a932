package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// ID identifies a scheduled callback within a Group. The zero ID is never
// issued.
type ID uint64

// Group owns a set of scheduled callbacks. It keeps a single clock timer
// armed for its earliest deadline and runs due callbacks one at a time in
// (deadline, registration) order, so callbacks of one group never overlap.
//
// Callbacks may call any Group method, including CancelAll and Close.
type Group struct {
	clock Clock

	// running serialises dispatch; mu guards everything else. Callbacks run
	// with running held and mu released.
	running sync.Mutex
	mu      sync.Mutex

	queue   entryQueue
	byID    map[ID]*entry
	nextID  ID
	seq     uint64
	timer   Timer
	armedAt time.Time
	armGen  uint64
	closed  bool
}

type entry struct {
	id       ID
	at       time.Time
	seq      uint64
	interval time.Duration
	fn       func()
	index    int
}

// NewGroup creates an empty group on clock. A nil clock means Real().
func NewGroup(clock Clock) *Group {
	if clock == nil {
		clock = Real()
	}
	return &Group{
		clock: clock,
		byID:  make(map[ID]*entry),
	}
}

// Clock returns the group's clock.
func (g *Group) Clock() Clock { return g.clock }

// After schedules fn to run once after d. It returns 0 if the group is closed.
func (g *Group) After(d time.Duration, fn func()) ID {
	return g.add(d, 0, fn)
}

// Every schedules fn to run every interval, first after one interval.
// It returns 0 if the group is closed or interval is not positive.
func (g *Group) Every(interval time.Duration, fn func()) ID {
	if interval <= 0 {
		return 0
	}
	return g.add(interval, interval, fn)
}

func (g *Group) add(d, interval time.Duration, fn func()) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0
	}

	g.nextID++
	g.seq++
	e := &entry{
		id:       g.nextID,
		at:       g.clock.Now().Add(max(d, 0)),
		seq:      g.seq,
		interval: interval,
		fn:       fn,
	}
	heap.Push(&g.queue, e)
	g.byID[e.id] = e
	g.rearmLocked()
	return e.id
}

// Cancel removes a scheduled callback. It reports whether it was pending.
func (g *Group) Cancel(id ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&g.queue, e.index)
	delete(g.byID, id)
	g.rearmLocked()
	return true
}

// CancelAll removes every scheduled callback and returns how many there were.
func (g *Group) CancelAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clearLocked()
}

// Pending returns the number of scheduled callbacks.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// Close cancels everything and rejects further scheduling. It does not wait
// for a callback that is already running.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
	g.closed = true
}

func (g *Group) clearLocked() int {
	n := len(g.queue)
	g.queue = nil
	clear(g.byID)
	g.disarmLocked()
	return n
}

func (g *Group) disarmLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.armGen++
}

// rearmLocked makes sure exactly one clock timer is armed for the earliest
// deadline.
func (g *Group) rearmLocked() {
	if len(g.queue) == 0 {
		g.disarmLocked()
		return
	}

	earliest := g.queue[0].at
	if g.timer != nil && g.armedAt.Equal(earliest) {
		return
	}
	g.disarmLocked()

	gen := g.armGen
	g.armedAt = earliest
	g.timer = g.clock.AfterFunc(earliest.Sub(g.clock.Now()), func() { g.fire(gen) })
}

func (g *Group) fire(gen uint64) {
	g.mu.Lock()
	if gen == g.armGen {
		g.timer = nil
	}
	g.mu.Unlock()

	g.dispatch()
}

func (g *Group) dispatch() {
	g.running.Lock()
	defer g.running.Unlock()

	for {
		g.mu.Lock()
		if g.closed || len(g.queue) == 0 {
			g.mu.Unlock()
			return
		}

		now := g.clock.Now()
		e := g.queue[0]
		if e.at.After(now) {
			g.rearmLocked()
			g.mu.Unlock()
			return
		}

		heap.Pop(&g.queue)
		if e.interval > 0 {
			next := e.at.Add(e.interval)
			if !next.After(now) {
				next = now.Add(e.interval)
			}
			g.seq++
			e.at, e.seq = next, g.seq
			heap.Push(&g.queue, e)
		} else {
			delete(g.byID, e.id)
		}
		fn := e.fn
		g.mu.Unlock()

		fn()
	}
}

type entryQueue []*entry

func (q entryQueue) Len() int { return len(q) }

func (q entryQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q entryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *entryQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *entryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
