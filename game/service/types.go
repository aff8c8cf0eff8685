package service

import (
	"time"

	"github.com/wricardo/simonsays/game/engine"
)

// Observer topics.
const (
	TopicRoster     = "update_boards"
	TopicTrigger    = "new_message"
	TopicShowFlash  = "show_flash"
	TopicGameUpdate = "game_update"
)

// Statuses carried by TopicGameUpdate.
const (
	StatusShowing       = "SHOWING"
	StatusPlayerTurn    = "PLAYER_TURN"
	StatusCorrectInput  = "CORRECT_INPUT"
	StatusLevelComplete = "LEVEL_COMPLETE"
	StatusGameOver      = "GAME_OVER"
)

// Pacing controls the delays of sequence playback and level advance.
type Pacing struct {
	// PreShow is the pause after the SHOWING notice before the first flash.
	PreShow time.Duration
	// Step is the time each flashed board holds before the next one.
	Step time.Duration
	// LevelPause is the pause between a completed level and the next one.
	LevelPause time.Duration
}

// DefaultPacing matches the timing the browser animations are built for.
func DefaultPacing() Pacing {
	return Pacing{
		PreShow:    1500 * time.Millisecond,
		Step:       time.Second,
		LevelPause: 2500 * time.Millisecond,
	}
}

// TriggerEvent is a single hit reported by a board.
type TriggerEvent struct {
	ChipID   string  `json:"chipId"`
	Distance float64 `json:"distance"`
}

// TriggerResult describes how a trigger was handled.
type TriggerResult struct {
	Ignored      bool               `json:"ignored"`
	FirstContact bool               `json:"first_contact,omitempty"`
	Result       engine.InputResult `json:"result"`
	State        engine.State       `json:"state"`
	Level        int                `json:"level"`
}

// StartResult describes a freshly started game.
type StartResult struct {
	GameID string       `json:"game_id"`
	Level  int          `json:"level"`
	State  engine.State `json:"state"`
	Boards []string     `json:"boards"`
}

// GameStatus is a read-only view of the game for observers and tools.
type GameStatus struct {
	GameID          string                `json:"game_id,omitempty"`
	State           engine.State          `json:"state"`
	Level           int                   `json:"level"`
	InputIndex      int                   `json:"input_index"`
	Reason          engine.GameOverReason `json:"reason,omitempty"`
	ConnectedBoards int                   `json:"connected_boards"`
	Busy            bool                  `json:"busy"`
}

// GameUpdate is the payload of TopicGameUpdate.
type GameUpdate struct {
	Status string `json:"status"`
	Level  int    `json:"level,omitempty"`
	Reason string `json:"reason,omitempty"`
	GameID string `json:"game_id,omitempty"`
}

// ShowFlash is the payload of TopicShowFlash.
type ShowFlash struct {
	ChipID string `json:"chipId"`
	Step   int    `json:"step"`
}
