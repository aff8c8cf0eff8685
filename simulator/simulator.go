package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/simonsays/transport/discovery"
)

// ErrRejected is returned when the server answers a hit with an error.
var ErrRejected = errors.New("hit rejected")

// Client posts board hits to a game server.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithHTTPClient replaces the HTTP client used for hits.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address hits are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Discover waits for the server beacon on group and returns the server's
// base URL, assuming it listens on port.
func Discover(ctx context.Context, group, message, port string) (string, error) {
	addr, err := discovery.Listen(ctx, group, message)
	if err != nil {
		return "", fmt.Errorf("discover server: %w", err)
	}
	return "http://" + net.JoinHostPort(addr.IP.String(), port), nil
}

// HitResponse is the server's answer to a hit.
type HitResponse struct {
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	ReceivedData map[string]any `json:"received_data,omitempty"`
}

// Ignored reports whether the server did not recognise the board.
func (r *HitResponse) Ignored() bool {
	return r.Message == "Ignored unknown board"
}

// Press reports one hit from chipID, with the payload the firmware sends.
func (c *Client) Press(ctx context.Context, chipID string, distance float64) (*HitResponse, error) {
	body, err := json.Marshal(map[string]any{"chipId": chipID, "distance": distance})
	if err != nil {
		return nil, fmt.Errorf("marshal hit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post hit: %w", err)
	}
	defer resp.Body.Close()

	var hit HitResponse
	if err := json.NewDecoder(resp.Body).Decode(&hit); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || hit.Status == "error" {
		return &hit, fmt.Errorf("%w: %s", ErrRejected, hit.Message)
	}

	c.log.Debug().Str("board", chipID).Str("status", hit.Status).Msg("hit sent")
	return &hit, nil
}

// Connect presses each board once so the server registers it.
func (c *Client) Connect(ctx context.Context, chipIDs []string) error {
	for _, id := range chipIDs {
		hit, err := c.Press(ctx, id, 0)
		if err != nil {
			return fmt.Errorf("connect %s: %w", id, err)
		}
		if hit.Ignored() {
			c.log.Warn().Str("board", id).Msg("server does not know this board")
		}
	}
	return nil
}

// Event is one observer event as seen by the autoplayer.
type Event struct {
	Name   string
	Status string
	Level  int
	ChipID string
	Reason string
	Roster map[string]string
}

// AutoplayOptions controls Autoplay.
type AutoplayOptions struct {
	// Start sends start_game once connected.
	Start bool
	// PressDelay is the pause before each press.
	PressDelay time.Duration
	// MaxLevel, when positive, makes the player press a wrong board on that
	// level so the game ends.
	MaxLevel int
	// OnEvent is called for every event received.
	OnEvent func(Event)
}

// Result is how an autoplayed game ended.
type Result struct {
	Level  int
	Reason string
}

type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wirePayload struct {
	Status string `json:"status"`
	Level  int    `json:"level"`
	Reason string `json:"reason"`
	ChipID string `json:"chipId"`
}

// Autoplay follows the observer stream and plays until the game is over or
// ctx is done.
func (c *Client) Autoplay(ctx context.Context, opts AutoplayOptions) (*Result, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if opts.Start {
		if err := conn.WriteJSON(map[string]string{"event": "start_game"}); err != nil {
			return nil, fmt.Errorf("send start_game: %w", err)
		}
	}

	var (
		roster   map[string]string
		sequence []string
	)
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read event: %w", err)
		}

		ev := Event{Name: msg.Event}
		if msg.Event == "update_boards" {
			json.Unmarshal(msg.Data, &roster)
			ev.Roster = roster
		} else {
			var p wirePayload
			json.Unmarshal(msg.Data, &p)
			ev.Status, ev.Level, ev.Reason, ev.ChipID = p.Status, p.Level, p.Reason, p.ChipID
		}
		if opts.OnEvent != nil {
			opts.OnEvent(ev)
		}

		switch {
		case msg.Event == "show_flash":
			sequence = append(sequence, ev.ChipID)

		case msg.Event != "game_update":

		case ev.Status == "SHOWING":
			sequence = sequence[:0]

		case ev.Status == "PLAYER_TURN":
			presses := append([]string(nil), sequence...)
			if opts.MaxLevel > 0 && ev.Level >= opts.MaxLevel && len(presses) > 0 {
				if wrong, ok := otherBoard(roster, presses[0]); ok {
					presses = []string{wrong}
				}
			}
			if err := c.pressAll(ctx, presses, opts.PressDelay); err != nil {
				return nil, err
			}

		case ev.Status == "GAME_OVER":
			return &Result{Level: ev.Level, Reason: ev.Reason}, nil
		}
	}
}

func (c *Client) pressAll(ctx context.Context, ids []string, delay time.Duration) error {
	for _, id := range ids {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if _, err := c.Press(ctx, id, 0); err != nil {
			return err
		}
	}
	return nil
}

// otherBoard picks a board from roster that is not id.
func otherBoard(roster map[string]string, id string) (string, bool) {
	ids := make([]string, 0, len(roster))
	for other := range roster {
		if other != id {
			ids = append(ids, other)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Strings(ids)
	return ids[0], true
}
