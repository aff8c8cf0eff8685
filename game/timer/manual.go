package timer

import (
	"sort"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Manual is a Scheduler driven by a virtual clock. Actions only run from
// within Advance, on the goroutine that called it.
type Manual struct {
	mu      deadlock.Mutex
	now     time.Time
	seq     int
	pending []*manualHandle
}

var _ Scheduler = (*Manual)(nil)

// NewManual creates a virtual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualHandle struct {
	m     *Manual
	due   time.Time
	seq   int
	fn    func()
	state int
}

// AfterFunc schedules fn to run once the virtual clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	h := &manualHandle{m: m, due: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, h)
	return h
}

func (h *manualHandle) Stop() bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if h.state != statePending {
		return false
	}
	h.state = stateStopped
	h.m.remove(h)
	return true
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of actions that have neither run nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the clock forward by d, running every action that falls due
// in due-time order. Actions scheduled while advancing run in the same call
// if they fall due before the target time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		next.state = stateFired
		m.remove(next)
		m.mu.Unlock()

		next.fn()
	}
}

// nextDue returns the earliest pending action due at or before target.
// Caller must hold m.mu.
func (m *Manual) nextDue(target time.Time) *manualHandle {
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.due.Equal(b.due) {
			return a.seq < b.seq
		}
		return a.due.Before(b.due)
	})
	if m.pending[0].due.After(target) {
		return nil
	}
	return m.pending[0]
}

// remove drops h from the pending list. Caller must hold m.mu.
func (m *Manual) remove(h *manualHandle) {
	for i, p := range m.pending {
		if p == h {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
