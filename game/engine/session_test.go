package engine

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/simonsays/game/timer"
)

var testBoards = []string{"A", "B", "C", "D"}

func newTestSession(t *testing.T) (*Session, *timer.Manual) {
	t.Helper()
	clock := timer.NewManual(time.Unix(0, 0))
	sess := NewSession(clock,
		WithRand(rand.New(rand.NewSource(1))),
		WithLogger(zerolog.Nop()),
	)
	return sess, clock
}

// playerTurnWith puts the session in PlayerTurn with a fixed sequence.
func playerTurnWith(t *testing.T, sess *Session, seq ...string) {
	t.Helper()
	require.True(t, sess.StartNewGame(seq))
	sess.mu.Lock()
	sess.sequence = append([]string(nil), seq...)
	sess.mu.Unlock()
	sess.BeginPlayerTurn()
	require.Equal(t, PlayerTurn, sess.CurrentState())
}

func TestNewSession(t *testing.T) {
	sess, _ := newTestSession(t)

	assert.Equal(t, Idle, sess.CurrentState())
	assert.Equal(t, 0, sess.CurrentLevel())
	assert.Empty(t, sess.Sequence())
	assert.Equal(t, DefaultTurnTimeout, sess.turnTimeout)
}

func TestSession_StartNewGame(t *testing.T) {
	t.Run("draws level one from the pool", func(t *testing.T) {
		sess, _ := newTestSession(t)

		require.True(t, sess.StartNewGame(testBoards))

		seq := sess.Sequence()
		require.Len(t, seq, 1)
		assert.Contains(t, testBoards, seq[0])
		assert.Equal(t, Showing, sess.CurrentState())
		assert.Equal(t, 1, sess.CurrentLevel())
		assert.NotEmpty(t, sess.GameID())
	})

	t.Run("empty pool fails without mutation", func(t *testing.T) {
		sess, _ := newTestSession(t)

		assert.False(t, sess.StartNewGame(nil))
		assert.Equal(t, Idle, sess.CurrentState())
		assert.Empty(t, sess.Sequence())
		assert.Empty(t, sess.GameID())
	})

	t.Run("refused during player turn", func(t *testing.T) {
		sess, clock := newTestSession(t)
		playerTurnWith(t, sess, "A", "B")
		before := sess.Snapshot()

		assert.False(t, sess.StartNewGame(testBoards))
		assert.Equal(t, before, sess.Snapshot())
		assert.Equal(t, 1, clock.Pending(), "turn deadline must stay armed")
	})

	t.Run("resets after game over", func(t *testing.T) {
		sess, _ := newTestSession(t)
		playerTurnWith(t, sess, "A", "B", "C")
		require.Equal(t, Wrong, sess.SubmitInput("D"))
		firstID := sess.GameID()

		require.True(t, sess.StartNewGame(testBoards))
		assert.Equal(t, 1, sess.CurrentLevel())
		assert.Equal(t, Showing, sess.CurrentState())
		assert.NotEqual(t, firstID, sess.GameID())
		assert.Equal(t, ReasonNone, sess.Snapshot().Reason)
	})

	t.Run("resets while showing and cancels nothing stale", func(t *testing.T) {
		sess, clock := newTestSession(t)
		require.True(t, sess.StartNewGame(testBoards))
		sess.NextLevel()
		require.Equal(t, 2, sess.CurrentLevel())

		require.True(t, sess.StartNewGame(testBoards))
		assert.Equal(t, 1, sess.CurrentLevel())
		assert.Equal(t, 0, clock.Pending())
	})
}

func TestSession_NextLevel(t *testing.T) {
	sess, _ := newTestSession(t)
	require.True(t, sess.StartNewGame(testBoards))

	for level := 2; level <= 20; level++ {
		prev := sess.Sequence()
		sess.NextLevel()
		seq := sess.Sequence()

		require.Len(t, seq, level)
		assert.Equal(t, prev, seq[:len(prev)], "existing elements must not change")
		assert.Contains(t, testBoards, seq[len(seq)-1])
		assert.Equal(t, 0, sess.InputIndex())
		assert.Equal(t, Showing, sess.CurrentState())
	}
}

func TestSession_NextLevelAllowsRepeats(t *testing.T) {
	sess, _ := newTestSession(t)
	require.True(t, sess.StartNewGame([]string{"only"}))
	sess.NextLevel()
	sess.NextLevel()

	assert.Equal(t, []string{"only", "only", "only"}, sess.Sequence())
}

func TestSession_NextLevelIgnoredDuringTurn(t *testing.T) {
	sess, _ := newTestSession(t)
	playerTurnWith(t, sess, "A", "B")
	require.Equal(t, Correct, sess.SubmitInput("A"))

	sess.NextLevel()

	assert.Equal(t, 2, sess.CurrentLevel())
	assert.Equal(t, 1, sess.InputIndex())
	assert.Equal(t, PlayerTurn, sess.CurrentState())
}

func TestSession_NextLevelEmptyPool(t *testing.T) {
	sess, _ := newTestSession(t)
	require.True(t, sess.StartNewGame([]string{"A"}))
	require.True(t, sess.RemoveBoard("A"))

	sess.NextLevel()

	assert.Equal(t, GameOver, sess.CurrentState())
	assert.Equal(t, ReasonNoBoards, sess.Snapshot().Reason)
	assert.Equal(t, 1, sess.CurrentLevel())
}

func TestSession_BeginPlayerTurn(t *testing.T) {
	t.Run("arms deadline from showing", func(t *testing.T) {
		sess, clock := newTestSession(t)
		require.True(t, sess.StartNewGame(testBoards))

		sess.BeginPlayerTurn()

		assert.Equal(t, PlayerTurn, sess.CurrentState())
		assert.Equal(t, 0, sess.InputIndex())
		assert.Equal(t, 1, clock.Pending())
	})

	t.Run("ignored outside showing", func(t *testing.T) {
		sess, clock := newTestSession(t)

		sess.BeginPlayerTurn()

		assert.Equal(t, Idle, sess.CurrentState())
		assert.Equal(t, 0, clock.Pending())
	})
}

func TestSession_SubmitInput(t *testing.T) {
	t.Run("prefix in order", func(t *testing.T) {
		sess, clock := newTestSession(t)
		playerTurnWith(t, sess, "A", "B", "C")

		assert.Equal(t, Correct, sess.SubmitInput("A"))
		assert.Equal(t, 1, clock.Pending(), "correct input leaves the deadline alone")
		assert.Equal(t, Correct, sess.SubmitInput("B"))
		assert.Equal(t, LevelComplete, sess.SubmitInput("C"))

		assert.Equal(t, Idle, sess.CurrentState())
		assert.Equal(t, 0, clock.Pending(), "level complete cancels the deadline")
	})

	t.Run("level complete then next level", func(t *testing.T) {
		sess, _ := newTestSession(t)
		playerTurnWith(t, sess, "A", "B")

		require.Equal(t, Correct, sess.SubmitInput("A"))
		require.Equal(t, LevelComplete, sess.SubmitInput("B"))
		sess.NextLevel()

		seq := sess.Sequence()
		require.Len(t, seq, 3)
		assert.Equal(t, []string{"A", "B"}, seq[:2])
	})

	t.Run("wrong at first slot", func(t *testing.T) {
		sess, clock := newTestSession(t)
		playerTurnWith(t, sess, "A", "B")

		assert.Equal(t, Wrong, sess.SubmitInput("C"))
		assert.Equal(t, GameOver, sess.CurrentState())
		assert.Equal(t, ReasonWrongInput, sess.Snapshot().Reason)
		assert.Equal(t, 0, clock.Pending())
	})

	t.Run("wrong after correct inputs", func(t *testing.T) {
		for wrongAt := 0; wrongAt < 4; wrongAt++ {
			sess, _ := newTestSession(t)
			seq := []string{"A", "B", "C", "D"}
			playerTurnWith(t, sess, seq...)

			for i := 0; i < wrongAt; i++ {
				require.Equal(t, Correct, sess.SubmitInput(seq[i]))
			}
			assert.Equal(t, Wrong, sess.SubmitInput("X"), "wrong at index %d", wrongAt)
			assert.Equal(t, GameOver, sess.CurrentState())
		}
	})

	t.Run("invalid outside player turn never mutates", func(t *testing.T) {
		sess, _ := newTestSession(t)
		assert.Equal(t, Invalid, sess.SubmitInput("A"))

		require.True(t, sess.StartNewGame(testBoards))
		before := sess.Snapshot()
		assert.Equal(t, Invalid, sess.SubmitInput(before.Sequence[0]))
		assert.Equal(t, before, sess.Snapshot())
	})

	t.Run("repeated input is evaluated against current index", func(t *testing.T) {
		sess, _ := newTestSession(t)
		playerTurnWith(t, sess, "A", "A", "B")

		assert.Equal(t, Correct, sess.SubmitInput("A"))
		assert.Equal(t, Correct, sess.SubmitInput("A"))
		assert.Equal(t, Wrong, sess.SubmitInput("A"))
	})
}

func TestSession_Timeout(t *testing.T) {
	t.Run("deadline expiry ends the game once", func(t *testing.T) {
		sess, clock := newTestSession(t)
		var levels []int
		sess.OnTimeout(func(_ string, level int) { levels = append(levels, level) })
		playerTurnWith(t, sess, "A", "B")

		clock.Advance(DefaultTurnTimeout - time.Millisecond)
		require.Equal(t, PlayerTurn, sess.CurrentState())

		clock.Advance(time.Millisecond)
		assert.Equal(t, GameOver, sess.CurrentState())
		assert.Equal(t, ReasonTimeout, sess.Snapshot().Reason)
		assert.Equal(t, []int{2}, levels)

		sess.HandleTimeout()
		assert.Equal(t, []int{2}, levels, "second timeout must be a no-op")
	})

	t.Run("correct inputs do not extend the deadline", func(t *testing.T) {
		sess, clock := newTestSession(t)
		playerTurnWith(t, sess, "A", "B")

		clock.Advance(5 * time.Second)
		require.Equal(t, Correct, sess.SubmitInput("A"))
		clock.Advance(5 * time.Second)

		assert.Equal(t, GameOver, sess.CurrentState())
	})

	t.Run("completed turn never times out", func(t *testing.T) {
		sess, clock := newTestSession(t)
		fired := false
		sess.OnTimeout(func(string, int) { fired = true })
		playerTurnWith(t, sess, "A")

		require.Equal(t, LevelComplete, sess.SubmitInput("A"))
		clock.Advance(time.Minute)

		assert.False(t, fired)
		assert.Equal(t, Idle, sess.CurrentState())
	})

	t.Run("manual timeout outside turn is a no-op", func(t *testing.T) {
		sess, _ := newTestSession(t)
		fired := false
		sess.OnTimeout(func(string, int) { fired = true })
		require.True(t, sess.StartNewGame(testBoards))

		sess.HandleTimeout()

		assert.False(t, fired)
		assert.Equal(t, Showing, sess.CurrentState())
	})

	t.Run("stale deadline from earlier turn is ignored", func(t *testing.T) {
		sess, _ := newTestSession(t)
		playerTurnWith(t, sess, "A")

		staleTurn := sess.turn
		require.Equal(t, LevelComplete, sess.SubmitInput("A"))
		sess.NextLevel()
		sess.BeginPlayerTurn()

		sess.expire(staleTurn)
		assert.Equal(t, PlayerTurn, sess.CurrentState())
	})

	t.Run("custom timeout", func(t *testing.T) {
		clock := timer.NewManual(time.Unix(0, 0))
		sess := NewSession(clock, WithTurnTimeout(3*time.Second), WithLogger(zerolog.Nop()))
		require.True(t, sess.StartNewGame(testBoards))
		sess.BeginPlayerTurn()

		clock.Advance(3 * time.Second)
		assert.Equal(t, GameOver, sess.CurrentState())
	})
}

func TestSession_DeadlineArmedOnlyInPlayerTurn(t *testing.T) {
	sess, _ := newTestSession(t)
	check := func() {
		t.Helper()
		sess.mu.Lock()
		defer sess.mu.Unlock()
		assert.Equal(t, sess.state == PlayerTurn, sess.deadline != nil, "state %s", sess.state)
		assert.True(t, sess.inputIndex >= 0 && sess.inputIndex <= len(sess.sequence))
	}

	check()
	require.True(t, sess.StartNewGame([]string{"A"}))
	check()
	sess.BeginPlayerTurn()
	check()
	sess.SubmitInput("A")
	check()
	sess.NextLevel()
	check()
	sess.BeginPlayerTurn()
	check()
	sess.SubmitInput("B")
	check()
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Idle:       "IDLE",
		Showing:    "SHOWING",
		PlayerTurn: "PLAYER_TURN",
		GameOver:   "GAME_OVER",
		State(9):   "State(9)",
	}
	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}

	text, err := LevelComplete.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "LEVEL_COMPLETE", string(text))
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	in := Snapshot{GameID: "g", State: PlayerTurn, Level: 3, Sequence: []string{"A", "B", "C"}, Reason: ReasonNone}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"PLAYER_TURN"`)

	var out Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	var st State
	assert.Error(t, st.UnmarshalText([]byte("PAUSED")))
	var res InputResult
	require.NoError(t, res.UnmarshalText([]byte("WRONG")))
	assert.Equal(t, Wrong, res)
}
