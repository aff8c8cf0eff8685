package engine

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"github.com/wricardo/simonsays/game/timer"
)

// Session is the Simon Says state machine. The zero value is not usable;
// create one with NewSession.
type Session struct {
	mu deadlock.Mutex

	sched       timer.Scheduler
	rng         *rand.Rand
	log         zerolog.Logger
	turnTimeout time.Duration
	onTimeout   func(gameID string, level int)

	gameID     string
	state      State
	reason     GameOverReason
	pool       []string
	sequence   []string
	inputIndex int

	// deadline is non-nil exactly while state == PlayerTurn.
	deadline timer.Handle
	// turn identifies the armed deadline so a stale expiry is ignored.
	turn uint64
}

// Option configures a Session.
type Option func(*Session)

// WithTurnTimeout sets the per-turn deadline.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.turnTimeout = d
		}
	}
}

// WithRand sets the random source used to draw new sequence elements.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// NewSession creates an idle session that schedules turn deadlines on sched.
func NewSession(sched timer.Scheduler, opts ...Option) *Session {
	s := &Session{
		sched:       sched,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		log:         log.Logger,
		turnTimeout: DefaultTurnTimeout,
		state:       Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// OnTimeout registers the function invoked when a turn deadline ends the
// game. It receives the id of the game that ended and the level reached.
func (s *Session) OnTimeout(fn func(gameID string, level int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTimeout = fn
}

// StartNewGame resets the session and draws level 1 from boards. It returns
// false without changing anything if boards is empty or a player turn is in
// progress.
func (s *Session) StartNewGame(boards []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(boards) == 0 {
		s.log.Warn().Msg("cannot start game, no boards are available")
		return false
	}
	if s.state == PlayerTurn {
		s.log.Info().Msg("ignoring start request, player turn in progress")
		return false
	}

	s.cancelDeadline()
	s.pool = append([]string(nil), boards...)
	s.sequence = s.sequence[:0]
	s.inputIndex = 0
	s.reason = ReasonNone
	s.state = Idle
	s.gameID = uuid.NewString()

	s.log.Info().Str("game_id", s.gameID).Strs("boards", s.pool).Msg("starting new game")
	s.nextLevel()
	return true
}

// NextLevel appends one randomly drawn board to the sequence and enters
// Showing. It is a no-op during a player turn or after the game is over.
// If no boards remain in the pool the session moves to GameOver.
func (s *Session) NextLevel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == PlayerTurn || s.state == GameOver {
		s.log.Debug().Stringer("state", s.state).Msg("ignoring level advance")
		return
	}
	s.nextLevel()
}

func (s *Session) nextLevel() {
	s.cancelDeadline()

	if len(s.pool) == 0 {
		s.log.Warn().Msg("cannot advance to next level, no boards available")
		s.state = GameOver
		s.reason = ReasonNoBoards
		return
	}

	// Repeats are allowed, including the same board twice in a row.
	s.sequence = append(s.sequence, s.pool[s.rng.Intn(len(s.pool))])
	s.inputIndex = 0
	s.state = Showing

	s.log.Info().Int("level", len(s.sequence)).Strs("sequence", s.sequence).Msg("advancing to level")
}

// BeginPlayerTurn opens input and arms the turn deadline. It only acts
// while the sequence is being shown.
func (s *Session) BeginPlayerTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Showing {
		s.log.Debug().Stringer("state", s.state).Msg("ignoring player turn start")
		return
	}

	s.cancelDeadline()
	s.state = PlayerTurn
	s.inputIndex = 0
	s.turn++
	turn := s.turn
	s.deadline = s.sched.AfterFunc(s.turnTimeout, func() { s.expire(turn) })

	s.log.Info().Dur("timeout", s.turnTimeout).Msg("player turn started")
}

// SubmitInput checks boardID against the next expected element.
func (s *Session) SubmitInput(boardID string) InputResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != PlayerTurn {
		s.log.Debug().Str("board", boardID).Stringer("state", s.state).Msg("ignoring input")
		return Invalid
	}

	expected := s.sequence[s.inputIndex]
	if boardID != expected {
		s.log.Info().Str("board", boardID).Str("expected", expected).Msg("wrong input")
		s.cancelDeadline()
		s.state = GameOver
		s.reason = ReasonWrongInput
		return Wrong
	}

	s.inputIndex++
	if s.inputIndex == len(s.sequence) {
		s.log.Info().Int("level", len(s.sequence)).Msg("level complete")
		s.cancelDeadline()
		s.state = Idle
		return LevelComplete
	}

	s.log.Debug().Str("board", boardID).Int("index", s.inputIndex).Msg("correct input")
	return Correct
}

// HandleTimeout ends the current turn as a timeout. It is a no-op unless a
// player turn is in progress.
func (s *Session) HandleTimeout() {
	s.mu.Lock()
	if s.state != PlayerTurn {
		s.mu.Unlock()
		return
	}
	s.cancelDeadline()
	s.timeoutLocked()
}

// expire is the deadline callback for the given turn.
func (s *Session) expire(turn uint64) {
	s.mu.Lock()
	if turn != s.turn || s.state != PlayerTurn {
		// The turn ended before the deadline callback got the lock.
		s.mu.Unlock()
		return
	}
	s.deadline = nil
	s.timeoutLocked()
}

// timeoutLocked moves to GameOver, releases s.mu and notifies. Caller must
// hold s.mu.
func (s *Session) timeoutLocked() {
	s.state = GameOver
	s.reason = ReasonTimeout
	level := len(s.sequence)
	gameID := s.gameID
	notify := s.onTimeout
	s.mu.Unlock()

	s.log.Info().Str("game_id", gameID).Int("level", level).Msg("player timed out")
	if notify != nil {
		notify(gameID, level)
	}
}

// RemoveBoard drops boardID from the pool used to draw new levels. Elements
// already in the sequence are kept.
func (s *Session) RemoveBoard(boardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.pool {
		if id == boardID {
			s.pool = append(s.pool[:i], s.pool[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) cancelDeadline() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
}

// CurrentLevel returns the sequence length.
func (s *Session) CurrentLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequence)
}

// CurrentState returns the session state.
func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sequence returns a copy of the current sequence.
func (s *Session) Sequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sequence...)
}

// InputIndex returns how many elements the player has entered this turn.
func (s *Session) InputIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputIndex
}

// GameID returns the id assigned by the last successful StartNewGame.
func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

// Snapshot returns all observable fields read under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		GameID:     s.gameID,
		State:      s.state,
		Level:      len(s.sequence),
		InputIndex: s.inputIndex,
		Sequence:   append([]string(nil), s.sequence...),
		Reason:     s.reason,
	}
}
