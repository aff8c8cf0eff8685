package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/simonsays/game/engine"
	"github.com/wricardo/simonsays/game/registry"
	"github.com/wricardo/simonsays/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Simon Says",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Simon Says - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
The server flashes a growing sequence of colored boards. Repeat it by
pressing the boards in the same order before the turn timer runs out.

AVAILABLE TOOLS:
- start_game: Start a new game with the connected boards
- game_status: Get the current state, level and game over reason
- list_boards: List known boards, their colors and connection status
- trigger_board: Simulate a press on a board
- game_instructions: Get the rules and the turn flow

NOTE: Presses are only checked during PLAYER_TURN. Call game_status to wait for it.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start a new game using every connected board. Refused while a player turn is in progress.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStartGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_status",
		Description: "Get the current game state, level, input progress and game over reason",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_boards",
		Description: "List known boards with their colors and whether they are connected",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListBoards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "trigger_board",
		Description: "Simulate a press on a board, as if the player hit it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"board_id": map[string]interface{}{
					"type":        "string",
					"description": "Chip id of the board to press",
				},
				"distance": map[string]interface{}{
					"type":        "number",
					"description": "Reported sensor distance in cm (optional)",
				},
			},
			Required: []string{"board_id"},
		},
	}, c.handleTriggerBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game and how a turn proceeds",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages posted to it.
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no response.
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// ServeStdio serves the MCP protocol on stdin/stdout until EOF.
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.StartResult
	if err := c.apiCall(ctx, "POST", "/api/game/start", nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStartResult(&result)), nil
}

func (c *Client) handleGameStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status service.GameStatus
	if err := c.apiCall(ctx, "GET", "/api/game", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameStatus(&status)), nil
}

func (c *Client) handleListBoards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count     int              `json:"count"`
		Connected int              `json:"connected"`
		Boards    []registry.Board `json:"boards"`
	}
	if err := c.apiCall(ctx, "GET", "/api/boards", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoards(response.Boards)), nil
}

func (c *Client) handleTriggerBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	boardID, _ := args["board_id"].(string)
	if strings.TrimSpace(boardID) == "" {
		return mcp.NewToolResultError("board_id is required"), nil
	}

	body := map[string]interface{}{}
	if distance, ok := args["distance"].(float64); ok {
		body["distance"] = distance
	}

	var result service.TriggerResult
	path := fmt.Sprintf("/api/boards/%s/trigger", url.PathEscape(boardID))
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTriggerResult(boardID, &result)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `SIMON SAYS - RULES

SETUP:
Each physical board has a fixed color. A board becomes available once it
has reported at least one hit to the server. Only connected boards are used.

TURN FLOW:
1. start_game draws one random board: level 1.
2. SHOWING: the server flashes the sequence, one board per second.
3. PLAYER_TURN: press the boards in the same order. The whole sequence
   must be entered before the turn timer expires (10 seconds by default).
4. Each correct press reports CORRECT. The last correct press reports
   LEVEL_COMPLETE; after a short pause one more board is appended and the
   longer sequence is shown.

GAME OVER:
- wrong_input: a press did not match the sequence
- timeout: the turn timer expired
- no_boards: every board disconnected before the next level

NOTES:
- Presses outside PLAYER_TURN are reported as INVALID and ignored.
- start_game is refused during PLAYER_TURN. It restarts a game that is
  showing or over.
- The same board may appear several times in a sequence, even twice in a row.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatStartResult(result *service.StartResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s started\n", result.GameID)
	fmt.Fprintf(&b, "State: %s | Level: %d\n", result.State, result.Level)
	fmt.Fprintf(&b, "Boards in play: %s", strings.Join(result.Boards, ", "))
	return b.String()
}

func formatGameStatus(status *service.GameStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s | Level: %d\n", status.State, status.Level)
	if status.GameID != "" {
		fmt.Fprintf(&b, "Game: %s\n", status.GameID)
	}
	switch status.State {
	case engine.PlayerTurn:
		fmt.Fprintf(&b, "Progress: %d/%d presses\n", status.InputIndex, status.Level)
	case engine.GameOver:
		fmt.Fprintf(&b, "Game over: %s\n", status.Reason)
	}
	fmt.Fprintf(&b, "Connected boards: %d", status.ConnectedBoards)
	return b.String()
}

func formatBoards(boards []registry.Board) string {
	if len(boards) == 0 {
		return "No boards configured"
	}

	var b strings.Builder
	b.WriteString("Boards:\n")
	for _, board := range boards {
		status := "waiting"
		if board.Connected {
			status = "connected"
		}
		fmt.Fprintf(&b, "  %s  %-7s %s\n", board.ID, board.Color, status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTriggerResult(boardID string, result *service.TriggerResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pressed %s: %s\n", boardID, result.Result)
	if result.FirstContact {
		b.WriteString("Board connected\n")
	}
	fmt.Fprintf(&b, "State: %s | Level: %d", result.State, result.Level)
	return b.String()
}
