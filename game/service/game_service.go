package service

import (
	"context"
	"errors"

	"github.com/wricardo/simonsays/game/registry"
)

var (
	ErrNoBoards       = errors.New("no boards connected")
	ErrGameInProgress = errors.New("game already in progress")
	ErrMissingBoardID = errors.New("missing board id")
)

// GameService defines all game-related operations
type GameService interface {
	// Game lifecycle
	StartGame(ctx context.Context) (*StartResult, error)
	Status(ctx context.Context) (*GameStatus, error)

	// Hardware events
	Trigger(ctx context.Context, event TriggerEvent) (*TriggerResult, error)

	// Boards
	Boards(ctx context.Context) ([]registry.Board, error)
	DisconnectBoard(ctx context.Context, boardID string) error
	Roster() map[string]string
}

// Publisher delivers named events to every observer. Implementations must
// not block.
type Publisher interface {
	Publish(topic string, payload any)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(topic string, payload any)

// Publish calls f.
func (f PublisherFunc) Publish(topic string, payload any) {
	f(topic, payload)
}
