// Package strategy defines the interface every agent implements so the match
// controller can drive heterogeneous players through one game loop.
package strategy

import (
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

var (
	ErrNotInitialized = errors.New("strategy not initialized")
	ErrNoLegalMove    = errors.New("no legal move available")
)

// Strategy is a player bound to one seat for the lifetime of a match.
type Strategy interface {
	// Init binds the strategy to a board geometry and player id. It may fail,
	// for example when persisted state does not match the geometry.
	Init(g core.Geometry, id core.Player) error

	// NotifyStartPlayer is called before every game with the player who moves first.
	NotifyStartPlayer(start core.Player)

	// Play applies exactly one legal move for the bound player.
	Play(b *core.Board) error

	// Outcome is called once per completed game. Implementations must leave the
	// board's playable state unchanged.
	Outcome(b *core.Board, o core.Outcome)

	// Close releases resources and persists any learned state.
	Close() error
}

// Seat holds the binding every strategy needs. Embed it to get ID and Initialized.
type Seat struct {
	id          core.Player
	geometry    core.Geometry
	initialized bool
}

// Bind validates and records the seat assignment.
func (s *Seat) Bind(g core.Geometry, id core.Player) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", core.ErrInvalidPlayer, id)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	s.id = id
	s.geometry = g
	s.initialized = true
	return nil
}

// Unbind clears the seat, for strategies whose Init fails after Bind.
func (s *Seat) Unbind() { *s = Seat{} }

func (s *Seat) ID() core.Player { return s.id }
func (s *Seat) Geometry() core.Geometry { return s.geometry }
func (s *Seat) Initialized() bool { return s.initialized }

// CheckPlayable returns an error when the seat is unbound, b offers no legal
// column, or the game on b is already decided.
func (s *Seat) CheckPlayable(b *core.Board) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if len(b.LegalColumns()) == 0 {
		return ErrNoLegalMove
	}
	if b.State().IsTerminal() {
		return core.ErrGameOver
	}
	return nil
}
