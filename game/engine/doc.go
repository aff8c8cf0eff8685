// Package engine provides the core game logic for Simon Says.
//
// The engine package implements the game session state machine:
//   - Sequence generation and extension, one random board per level
//   - Player input validation against the sequence
//   - A hard per-turn deadline driven by an injected timer.Scheduler
//   - Safe transitions between states under concurrent callers
//
// Core Types:
//
// Session owns the sequence, the current State and the player's progress
// through the sequence. It is created once per process and reset by
// StartNewGame. InputResult is the outcome of a single SubmitInput call.
//
// States:
//
//	IDLE ──StartNewGame──▶ SHOWING ──BeginPlayerTurn──▶ PLAYER_TURN
//	                          ▲                            │
//	                          └──NextLevel── IDLE ◀──last correct input
//	                                                       │
//	                       GAME_OVER ◀──wrong input or deadline expiry
//
// Usage:
//
//	sess := engine.NewSession(timer.NewScheduler())
//	sess.OnTimeout(func(gameID string, level int) { ... })
//
//	if !sess.StartNewGame(registry.ConnectedIDs()) {
//		// no boards connected
//	}
//	// show sess.Sequence() to the player, then:
//	sess.BeginPlayerTurn()
//
//	switch sess.SubmitInput(boardID) {
//	case engine.LevelComplete:
//		sess.NextLevel()
//	case engine.Wrong:
//		// game over
//	}
//
// Concurrency:
//
// All methods are safe for concurrent use. The timeout callback registered
// with OnTimeout is invoked outside the session lock, at most once per turn,
// and never after the turn has already ended by input.
package engine
