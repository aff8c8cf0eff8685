// Package timer provides the one-shot delayed-callback primitive used by the
// Simon Says game for turn deadlines and sequence pacing.
//
// Core Types:
//
// Scheduler schedules a function to run once after a delay and returns a
// Handle that can cancel it. Two implementations are provided:
//   - NewScheduler: backed by the runtime's time.AfterFunc
//   - NewManual: a virtual clock that only moves when Advance is called,
//     used by tests to drive timeouts and playback deterministically
//
// Cancellation:
//
// Once Stop has been called on a Handle its function never runs, even if
// the underlying runtime timer already fired and the callback is queued
// behind the caller. Stop reports whether this call is the one that
// prevented the run.
//
// Usage:
//
//	sched := timer.NewScheduler()
//	h := sched.AfterFunc(10*time.Second, onDeadline)
//	...
//	h.Stop()
package timer
