package engine

import (
	"fmt"
	"time"
)

const (
	// DefaultTurnTimeout is the time a player has to enter the whole sequence.
	DefaultTurnTimeout = 10 * time.Second
)

// State is the session's position in the game lifecycle.
type State int

const (
	Idle State = iota
	Showing
	PlayerTurn
	GameOver
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Showing:
		return "SHOWING"
	case PlayerTurn:
		return "PLAYER_TURN"
	case GameOver:
		return "GAME_OVER"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state using its wire name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a wire name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Showing, PlayerTurn, GameOver} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// InputResult is the outcome of a SubmitInput call.
type InputResult int

const (
	// Invalid means the input arrived outside a player turn and was ignored.
	Invalid InputResult = iota
	// Correct means the input matched and more inputs are expected.
	Correct
	// LevelComplete means the input matched the final element of the sequence.
	LevelComplete
	// Wrong means the input did not match and the game is over.
	Wrong
)

func (r InputResult) String() string {
	switch r {
	case Invalid:
		return "INVALID"
	case Correct:
		return "CORRECT"
	case LevelComplete:
		return "LEVEL_COMPLETE"
	case Wrong:
		return "WRONG"
	default:
		return fmt.Sprintf("InputResult(%d)", int(r))
	}
}

// MarshalText encodes the result using its wire name.
func (r InputResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a wire name produced by MarshalText.
func (r *InputResult) UnmarshalText(text []byte) error {
	for _, res := range []InputResult{Invalid, Correct, LevelComplete, Wrong} {
		if res.String() == string(text) {
			*r = res
			return nil
		}
	}
	return fmt.Errorf("unknown input result %q", text)
}

// GameOverReason records why a session reached GameOver.
type GameOverReason string

const (
	ReasonNone       GameOverReason = ""
	ReasonWrongInput GameOverReason = "wrong_input"
	ReasonTimeout    GameOverReason = "timeout"
	ReasonNoBoards   GameOverReason = "no_boards"
)

// Snapshot is a consistent read of the session's fields.
type Snapshot struct {
	GameID     string         `json:"game_id"`
	State      State          `json:"state"`
	Level      int            `json:"level"`
	InputIndex int            `json:"input_index"`
	Sequence   []string       `json:"sequence"`
	Reason     GameOverReason `json:"reason,omitempty"`
}
