// Package mcp provides a Model Context Protocol server for Simon Says.
//
// The server is a thin client of the REST API: every tool is one HTTP
// call, and the response is rendered as text for the agent.
//
// MCP Tools:
//   - start_game: Start a new game with the connected boards
//   - game_status: Current state, level, progress and game over reason
//   - list_boards: Known boards with color and connection status
//   - trigger_board: Simulated press on a board
//   - game_instructions: Rules and turn flow
//
// Transport Modes:
//   - Stdio: ServeStdio, used by the mcp command
//   - HTTP: HTTPHandler, mounted at POST /mcp by the serve command
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:5000")
//	router.Handle("/mcp", client.HTTPHandler())
package mcp
