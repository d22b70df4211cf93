package search

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
)

// Strategy plays the engine's best move every turn. It keeps no state across games.
type Strategy struct {
	strategy.Seat
	engine *Engine
	logger zerolog.Logger
}

var _ strategy.Strategy = (*Strategy)(nil)

func NewStrategy(engine *Engine, logger zerolog.Logger) *Strategy {
	return &Strategy{
		engine: engine,
		logger: logger.With().Str("component", "search_strategy").Logger(),
	}
}

func (s *Strategy) Init(g core.Geometry, id core.Player) error {
	if err := s.Bind(g, id); err != nil {
		return err
	}
	s.logger = s.logger.With().Int("player", int(id)).Logger()
	return nil
}

func (s *Strategy) NotifyStartPlayer(core.Player) {}

func (s *Strategy) Play(b *core.Board) error {
	if err := s.CheckPlayable(b); err != nil {
		return err
	}
	col, err := s.engine.BestMove(b, s.ID())
	if err != nil {
		return err
	}
	if !b.Play(s.ID(), col) {
		return fmt.Errorf("%w: search chose column %d", core.ErrIllegalMove, col)
	}
	s.logger.Debug().Int("column", col).Msg("Played searched move")
	return nil
}

func (s *Strategy) Outcome(*core.Board, core.Outcome) {}

func (s *Strategy) Close() error { return nil }
