// Package api provides the HTTP server for Simon Says.
//
// The api package implements:
//   - The hardware endpoint the trigger boards post to
//   - REST endpoints for starting and inspecting the game
//   - Board listing, simulated presses and disconnects
//   - WebSocket upgrade for browser observers
//   - The MCP endpoint and static UI files
//
// Endpoints:
//
// Hardware:
//   - POST /data - Board hit, body {"chipId": 9072791, "distance": 12.5}
//
// Game:
//   - GET /api/game - Current state, level and game over reason
//   - POST /api/game/start - Start a new game with the connected boards
//
// Boards:
//   - GET /api/boards - Known boards and whether they are connected
//   - POST /api/boards/{id}/trigger - Simulated press of a board
//   - DELETE /api/boards/{id} - Mark a board disconnected
//
// Other:
//   - GET /api/health - Health check
//   - GET /ws - Observer WebSocket
//   - POST /mcp - MCP JSON-RPC endpoint, when configured
//   - GET / - Static UI files
//
// /data keeps the response shape the board firmware expects:
// {"status": "success", ...} or {"status": "error", "message": ...} with
// 400 for non-JSON bodies. Unknown boards get 200 with "Ignored unknown
// board". All other endpoints answer errors as {"error": message}.
//
// Status Codes:
//   - 200: Success
//   - 400: Invalid request
//   - 404: Unknown board
//   - 409: A player turn is in progress
//   - 412: No boards connected
//   - 500: Server error
package api
