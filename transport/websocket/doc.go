// Package websocket provides the observer transport for Simon Says.
//
// The websocket package implements:
//   - Fan-out of game events to every connected browser
//   - The board roster sent to each observer on connect
//   - The start_game command sent by the browser's Start button
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine; the Hub's Run loop owns the client set.
//
// Message Protocol:
//
// Every frame is a JSON object {"event": name, "data": payload}.
//   - Outgoing: update_boards, new_message, show_flash, game_update
//   - Incoming: {"event": "start_game"}
//
// Hub implements service.Publisher. Publish never blocks; when the queue is
// full the event is dropped and logged.
//
// Usage:
//
//	hub := websocket.NewHub(
//		websocket.WithRoster(orch.Roster),
//		websocket.WithStartHandler(startFn),
//	)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
package websocket
