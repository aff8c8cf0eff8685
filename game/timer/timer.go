package timer

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

const (
	statePending = iota
	stateFired
	stateStopped
)

// Handle is a scheduled one-shot action.
type Handle interface {
	// Stop cancels the action. It returns true if the call prevented the
	// action from running, false if it already ran or was already stopped.
	Stop() bool
}

// Scheduler schedules one-shot actions.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

// NewScheduler returns a Scheduler backed by wall-clock timers.
func NewScheduler() Scheduler {
	return wallScheduler{}
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	h := &wallHandle{fn: fn}
	h.mu.Lock()
	h.t = time.AfterFunc(d, h.fire)
	h.mu.Unlock()
	return h
}

type wallHandle struct {
	mu    deadlock.Mutex
	t     *time.Timer
	fn    func()
	state int
}

// fire claims the handle before running fn so a concurrent Stop either
// wins (fn never runs) or loses (Stop returns false).
func (h *wallHandle) fire() {
	h.mu.Lock()
	if h.state != statePending {
		h.mu.Unlock()
		return
	}
	h.state = stateFired
	h.mu.Unlock()

	h.fn()
}

func (h *wallHandle) Stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != statePending {
		return false
	}
	h.state = stateStopped
	h.t.Stop()
	return true
}
