// Package match runs games between two strategies on one board: single games,
// batches with alternating start player, and the batch report.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
)

var (
	ErrNotReady         = errors.New("match: both players must be set")
	ErrInvalidGameCount = errors.New("match: game count must be at least 1")
	ErrInvalidSwitch    = errors.New("match: switch interval must be at least 1")
	// ErrStrategyFailed wraps any strategy error that aborts a game, and
	// reports a Play call that did not add exactly one move for its player.
	ErrStrategyFailed = errors.New("match: strategy failed")
)

// Controller owns the board and the two seats. It is not safe for concurrent use.
type Controller struct {
	board   *core.Board
	players [2]strategy.Strategy
	start   core.Player
	phase   Phase
	observe func(core.Outcome)
	logger  zerolog.Logger
}

func NewController(g core.Geometry, logger zerolog.Logger) (*Controller, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		board:  core.NewBoardFromGeometry(g),
		start:  core.Player1,
		phase:  PhaseIdle,
		logger: logger.With().Str("component", "match_controller").Logger(),
	}, nil
}

func (c *Controller) Board() *core.Board { return c.board }
func (c *Controller) Phase() Phase        { return c.phase }
func (c *Controller) StartPlayer() core.Player {
	return c.start
}

func (c *Controller) transition(target Phase) {
	if c.phase == target {
		return
	}
	if !c.phase.CanTransitionTo(target) {
		// Only reachable through a controller bug.
		panic(fmt.Sprintf("match: invalid transition from %s to %s", c.phase, target))
	}
	c.logger.Debug().Str("from_phase", c.phase.String()).Str("to_phase", target.String()).Msg("Phase transition")
	c.phase = target
}

func (c *Controller) settle() {
	if c.players[0] != nil && c.players[1] != nil {
		c.transition(PhaseReady)
	} else {
		c.transition(PhaseIdle)
	}
}

// SetPlayer initializes s for seat id and installs it, closing any strategy
// it replaces. If Init fails the seat is left empty.
func (c *Controller) SetPlayer(id core.Player, s strategy.Strategy) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidPlayer, id)
	}
	slot := &c.players[id-1]
	if old := *slot; old != nil {
		if err := old.Close(); err != nil {
			c.logger.Warn().Err(err).Str("player", id.String()).Msg("Failed to close replaced strategy")
		}
		*slot = nil
	}

	if s != nil {
		if err := s.Init(c.board.Geometry(), id); err != nil {
			c.settle()
			return fmt.Errorf("initializing player %s: %w", id, err)
		}
		*slot = s
	}
	c.settle()
	return nil
}

// SetObserver registers f to be called with the outcome of every completed game.
func (c *Controller) SetObserver(f func(core.Outcome)) {
	c.observe = f
}

// SetStartPlayer chooses who moves first in the next game.
func (c *Controller) SetStartPlayer(p core.Player) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidPlayer, p)
	}
	c.start = p
	return nil
}

// Ready reports whether both seats are bound.
func (c *Controller) Ready() bool {
	return c.phase.CanStartGame()
}

// PlayGame plays one game from an empty board and reports its outcome to
// both players.
func (c *Controller) PlayGame(ctx context.Context) (core.Outcome, error) {
	if !c.Ready() {
		return core.Running, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return core.Running, err
	}

	gameID := uuid.New().String()
	logger := c.logger.With().Str("game_id", gameID).Logger()
	c.transition(PhaseInGame)
	startTime := time.Now()

	c.board.Reset()
	for _, p := range c.players {
		p.NotifyStartPlayer(c.start)
	}

	mover := c.start
	for c.board.State() == core.Running {
		if err := c.move(mover); err != nil {
			c.transition(PhaseReady)
			logger.Error().Err(err).Str("player", mover.String()).Int("move", c.board.MoveCount()).Msg("Game aborted")
			return core.Running, err
		}
		mover = mover.Opponent()
	}

	outcome := c.board.State()
	for _, p := range c.players {
		p.Outcome(c.board, outcome)
	}
	c.transition(PhaseScored)
	if c.observe != nil {
		c.observe(outcome)
	}

	logger.Debug().
		Str("start_player", c.start.String()).
		Str("outcome", outcome.String()).
		Int("moves", c.board.MoveCount()).
		Dur("duration", time.Since(startTime)).
		Msg("Game finished")
	return outcome, nil
}

func (c *Controller) move(p core.Player) error {
	before := c.board.MoveCount()
	if err := c.players[p-1].Play(c.board); err != nil {
		return fmt.Errorf("%w: player %s: %w", ErrStrategyFailed, p, err)
	}
	if c.board.MoveCount() != before+1 {
		return fmt.Errorf("%w: player %s made %d moves", ErrStrategyFailed, p, c.board.MoveCount()-before)
	}
	last, _ := c.board.LastMove()
	if owner := c.board.Cell(last.Col, last.Row); owner != p {
		return fmt.Errorf("%w: player %s placed a stone for %s", ErrStrategyFailed, p, owner)
	}
	return nil
}

// PlayMany plays n games, handing the first move to the other player every
// switchEvery games. The configured start player opens the first block and is
// restored on return. When ctx is cancelled between games the partial tally is
// returned with ctx's error.
func (c *Controller) PlayMany(ctx context.Context, n, switchEvery int) (Tally, error) {
	var tally Tally
	if n < 1 {
		return tally, fmt.Errorf("%w: %d", ErrInvalidGameCount, n)
	}
	if switchEvery < 1 {
		return tally, fmt.Errorf("%w: %d", ErrInvalidSwitch, switchEvery)
	}
	if !c.Ready() {
		return tally, ErrNotReady
	}

	first := c.start
	defer func() { c.start = first }()
	startTime := time.Now()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			c.logger.Warn().Int("completed", tally.Games).Int("requested", n).Msg("Match cancelled")
			return tally, err
		}

		c.start = first
		if (i/switchEvery)%2 == 1 {
			c.start = first.Opponent()
		}

		outcome, err := c.PlayGame(ctx)
		if err != nil {
			return tally, err
		}
		tally.Record(outcome)
	}

	c.logger.Info().
		Int("games", tally.Games).
		Int("player1_wins", tally.Player1Wins).
		Int("draws", tally.Draws).
		Int("player2_wins", tally.Player2Wins).
		Dur("duration", time.Since(startTime)).
		Msg("Match finished")
	return tally, nil
}

// Close closes both strategies and empties the seats.
func (c *Controller) Close() error {
	var errs []error
	for i, p := range c.players {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing player %s: %w", core.Player(i+1), err))
		}
		c.players[i] = nil
	}
	c.settle()
	return errors.Join(errs...)
}
