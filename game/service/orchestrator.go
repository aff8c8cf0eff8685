package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"github.com/wricardo/simonsays/game/engine"
	"github.com/wricardo/simonsays/game/registry"
	"github.com/wricardo/simonsays/game/timer"
)

// Orchestrator implements GameService on top of one engine.Session.
type Orchestrator struct {
	mu deadlock.Mutex

	session *engine.Session
	boards  *registry.Registry
	sched   timer.Scheduler
	pub     Publisher
	pacing  Pacing
	log     zerolog.Logger

	// epoch changes on every game start; scheduled work from an older
	// epoch is dropped.
	epoch   uint64
	pending timer.Handle
}

var _ GameService = (*Orchestrator)(nil)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPacing overrides the playback and level-advance delays.
func WithPacing(p Pacing) OrchestratorOption {
	return func(o *Orchestrator) {
		o.pacing = p
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// playback is one pass over the sequence being shown.
type playback struct {
	epoch uint64
	steps []string
	next  int
}

// NewOrchestrator wires the session's timeout notification to pub and
// returns a ready orchestrator.
func NewOrchestrator(sess *engine.Session, boards *registry.Registry, sched timer.Scheduler, pub Publisher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session: sess,
		boards:  boards,
		sched:   sched,
		pub:     pub,
		pacing:  DefaultPacing(),
		log:     log.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With().Str("component", "orchestrator").Logger()

	sess.OnTimeout(o.handleTimeout)
	return o
}

// StartGame resets the session with the currently connected boards and
// starts showing level 1.
func (o *Orchestrator) StartGame(ctx context.Context) (*StartResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ids := o.boards.ConnectedIDs()
	if len(ids) == 0 {
		return nil, ErrNoBoards
	}
	if !o.session.StartNewGame(ids) {
		if o.session.CurrentState() == engine.PlayerTurn {
			return nil, ErrGameInProgress
		}
		return nil, ErrNoBoards
	}

	o.cancelPending()
	o.epoch++
	o.showSequence()

	snap := o.session.Snapshot()
	o.log.Info().Str("game_id", snap.GameID).Int("boards", len(ids)).Msg("game started")
	return &StartResult{
		GameID: snap.GameID,
		Level:  snap.Level,
		State:  snap.State,
		Boards: ids,
	}, nil
}

// Trigger handles a hit from a board. Unknown boards are ignored without
// any notification.
func (o *Orchestrator) Trigger(ctx context.Context, event TriggerEvent) (*TriggerResult, error) {
	if event.ChipID == "" {
		return nil, ErrMissingBoardID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	first, known := o.boards.Register(event.ChipID)
	if !known {
		o.log.Debug().Str("board", event.ChipID).Msg("ignoring data from unknown board")
		return &TriggerResult{Ignored: true}, nil
	}
	if first {
		color, _ := o.boards.Color(event.ChipID)
		o.log.Info().Str("board", event.ChipID).Str("color", color).Msg("known board connected")
		o.pub.Publish(TopicRoster, o.boards.Roster())
	}

	o.log.Debug().Str("board", event.ChipID).Float64("distance", event.Distance).Msg("trigger")
	o.pub.Publish(TopicTrigger, event)

	result := o.session.SubmitInput(event.ChipID)
	snap := o.session.Snapshot()

	switch result {
	case engine.Correct:
		o.pub.Publish(TopicGameUpdate, GameUpdate{Status: StatusCorrectInput, Level: snap.Level, GameID: snap.GameID})

	case engine.LevelComplete:
		o.pub.Publish(TopicGameUpdate, GameUpdate{Status: StatusLevelComplete, Level: snap.Level, GameID: snap.GameID})
		epoch := o.epoch
		o.pending = o.sched.AfterFunc(o.pacing.LevelPause, func() { o.advance(epoch) })

	case engine.Wrong:
		o.pub.Publish(TopicGameUpdate, GameUpdate{
			Status: StatusGameOver,
			Level:  snap.Level,
			Reason: string(engine.ReasonWrongInput),
			GameID: snap.GameID,
		})
	}

	return &TriggerResult{
		FirstContact: first,
		Result:       result,
		State:        snap.State,
		Level:        snap.Level,
	}, nil
}

// Status returns the current game status.
func (o *Orchestrator) Status(ctx context.Context) (*GameStatus, error) {
	o.mu.Lock()
	busy := o.pending != nil
	o.mu.Unlock()

	snap := o.session.Snapshot()
	return &GameStatus{
		GameID:          snap.GameID,
		State:           snap.State,
		Level:           snap.Level,
		InputIndex:      snap.InputIndex,
		Reason:          snap.Reason,
		ConnectedBoards: o.boards.Count(),
		Busy:            busy,
	}, nil
}

// Boards lists every known board and whether it is connected.
func (o *Orchestrator) Boards(ctx context.Context) ([]registry.Board, error) {
	return o.boards.List(), nil
}

// DisconnectBoard marks a board as gone. It is skipped by any playback in
// progress and never drawn for later levels of the current game.
func (o *Orchestrator) DisconnectBoard(ctx context.Context, boardID string) error {
	if boardID == "" {
		return ErrMissingBoardID
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.boards.Disconnect(boardID); err != nil {
		return err
	}
	o.session.RemoveBoard(boardID)

	o.log.Info().Str("board", boardID).Msg("board disconnected")
	o.pub.Publish(TopicRoster, o.boards.Roster())
	return nil
}

// Roster returns the connected boards as id -> color.
func (o *Orchestrator) Roster() map[string]string {
	return o.boards.Roster()
}

// Close abandons any scheduled playback or level advance.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelPending()
	o.epoch++
}

// showSequence announces the level and schedules the first playback step.
// Caller must hold o.mu.
func (o *Orchestrator) showSequence() {
	snap := o.session.Snapshot()
	o.log.Info().Int("level", snap.Level).Msg("showing sequence")
	o.pub.Publish(TopicGameUpdate, GameUpdate{Status: StatusShowing, Level: snap.Level, GameID: snap.GameID})

	pb := &playback{epoch: o.epoch, steps: snap.Sequence}
	o.pending = o.sched.AfterFunc(o.pacing.PreShow, func() { o.step(pb) })
}

// step flashes the next connected board in pb, or opens the player's turn
// once every step has been shown.
func (o *Orchestrator) step(pb *playback) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if pb.epoch != o.epoch {
		return
	}
	o.pending = nil

	for pb.next < len(pb.steps) {
		id := pb.steps[pb.next]
		pb.next++
		if !o.boards.IsConnected(id) {
			o.log.Debug().Str("board", id).Msg("skipping disconnected board")
			continue
		}
		o.pub.Publish(TopicShowFlash, ShowFlash{ChipID: id, Step: pb.next})
		o.pending = o.sched.AfterFunc(o.pacing.Step, func() { o.step(pb) })
		return
	}

	o.session.BeginPlayerTurn()
	snap := o.session.Snapshot()
	if snap.State != engine.PlayerTurn {
		o.log.Warn().Stringer("state", snap.State).Msg("playback finished outside showing state")
		return
	}
	o.log.Info().Int("level", snap.Level).Msg("player turn has started")
	o.pub.Publish(TopicGameUpdate, GameUpdate{Status: StatusPlayerTurn, Level: snap.Level, GameID: snap.GameID})
}

// advance runs after the level-complete pause.
func (o *Orchestrator) advance(epoch uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if epoch != o.epoch {
		return
	}
	o.pending = nil

	o.session.NextLevel()
	snap := o.session.Snapshot()
	if snap.State == engine.GameOver {
		o.pub.Publish(TopicGameUpdate, GameUpdate{
			Status: StatusGameOver,
			Level:  snap.Level,
			Reason: string(snap.Reason),
			GameID: snap.GameID,
		})
		return
	}
	o.showSequence()
}

// handleTimeout is the session's timeout notification.
func (o *Orchestrator) handleTimeout(gameID string, level int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gameID != o.session.GameID() {
		// A new game started between expiry and this notification.
		return
	}
	o.log.Info().Int("level", level).Msg("player timed out")
	o.pub.Publish(TopicGameUpdate, GameUpdate{
		Status: StatusGameOver,
		Level:  level,
		Reason: string(engine.ReasonTimeout),
		GameID: gameID,
	})
}

// cancelPending stops the scheduled playback step or level advance.
// Caller must hold o.mu.
func (o *Orchestrator) cancelPending() {
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
}
