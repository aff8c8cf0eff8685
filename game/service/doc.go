// Package service provides the orchestration layer for Simon Says.
//
// The service package implements:
//   - Sequence playback: pacing the "show the sequence" phase as a series
//     of scheduled steps, then opening the player's turn
//   - Event bridging: routing hardware triggers into the game session and
//     turning the outcomes into observer notifications
//   - The level-advance loop: level complete, pause, next level, show again
//
// Core Interfaces:
//
// GameService is the surface used by the transports (HTTP, WebSocket, MCP).
// Publisher is the narrow fire-and-forget sink the orchestrator broadcasts
// through; the websocket hub implements it.
//
// Architecture:
//
// The service layer sits between the transports and the engine. Every
// inbound event, playback step, level pause and timeout notification is
// handled under one orchestrator lock, so outcomes are computed and
// published in arrival order. Nothing blocks while holding it: delays are
// scheduled on a timer.Scheduler instead of slept.
//
// Usage:
//
//	sess := engine.NewSession(sched)
//	orch := service.NewOrchestrator(sess, boards, sched, hub)
//
//	// board hit arrives from the transport
//	res, err := orch.Trigger(ctx, service.TriggerEvent{ChipID: "9072791"})
//
//	// user pressed Start in the browser
//	_, err = orch.StartGame(ctx)
//
// Cancellation:
//
// Each game start bumps an epoch. Pending playback steps and level pauses
// carry the epoch they were scheduled under and do nothing once it is stale.
package service
