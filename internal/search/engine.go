// Package search implements a bounded-depth minimax player. Every legal root move
// is evaluated on its own cloned board by a bounded pool of goroutines.
package search

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// WinScore is the terminal value of a won position before the depth discount.
const WinScore = 1e6

const DefaultDepth = 4

// ErrNoLegalMoves means the engine was asked to move on a position with no open
// column. A running game always has one, so this indicates a caller bug.
var ErrNoLegalMoves = errors.New("search: no legal root moves")

type Option func(e *Engine)

func WithDepth(depth int) Option {
	return func(e *Engine) {
		if depth >= 0 {
			e.depth = depth
		}
	}
}

// WithWorkers bounds how many root branches are searched concurrently.
func WithWorkers(workers int) Option {
	return func(e *Engine) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "search_engine").Logger()
	}
}

// Engine is safe for concurrent use; it holds no per-search state.
type Engine struct {
	depth   int
	workers int
	weights Weights
	logger  zerolog.Logger
}

func NewEngine(options ...Option) *Engine {
	e := &Engine{ // Default values
		depth:   DefaultDepth,
		workers: runtime.GOMAXPROCS(0),
		weights: DefaultWeights(),
		logger:  zerolog.Nop(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Depth is the number of plies searched after the root move.
func (e *Engine) Depth() int { return e.depth }

// ScoredMove is the minimax value of playing Col from the root position.
type ScoredMove struct {
	Col   int
	Score float64
}

// Evaluate scores every legal root column for p, in increasing column order.
// All branches complete before it returns.
func (e *Engine) Evaluate(b *core.Board, p core.Player) ([]ScoredMove, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidPlayer, p)
	}
	cols := b.LegalColumns()
	if len(cols) == 0 {
		return nil, ErrNoLegalMoves
	}

	start := time.Now()
	scored := make([]ScoredMove, len(cols))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, col := range cols {
		branch := b.Clone()
		g.Go(func() error {
			if !branch.Play(p, col) {
				return fmt.Errorf("%w: column %d", core.ErrIllegalMove, col)
			}
			scored[i] = ScoredMove{Col: col, Score: e.minimax(branch, p, p.Opponent(), 1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if e.logger.GetLevel() <= zerolog.DebugLevel {
		scores := make([]float64, len(scored))
		for i, s := range scored {
			scores[i] = s.Score
		}
		e.logger.Debug().
			Int("player", int(p)).
			Int("depth", e.depth).
			Ints("columns", cols).
			Floats64("scores", scores).
			Dur("elapsed", time.Since(start)).
			Msg("Evaluated root moves")
	}
	return scored, nil
}

// BestMove returns the highest scoring column. Ties go to the lowest column index.
func (e *Engine) BestMove(b *core.Board, p core.Player) (int, error) {
	scored, err := e.Evaluate(b, p)
	if err != nil {
		return -1, err
	}
	return pickBest(scored), nil
}

func pickBest(scored []ScoredMove) int {
	best := scored[0]
	for _, s := range scored[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best.Col
}

// minimax values the position from root's point of view. depth is the number of
// plies applied since the root position, so odd depths have the opponent to move
// (minimising) and even depths have root to move (maximising).
func (e *Engine) minimax(b *core.Board, root, mover core.Player, depth int) float64 {
	switch o := b.State(); o {
	case core.Running:
	case core.Draw:
		return 0
	default:
		discounted := WinScore - float64(depth)
		if winner, _ := o.Winner(); winner == root {
			return discounted
		}
		return -discounted
	}
	if depth > e.depth {
		return e.weights.Evaluate(b, root)
	}

	minimizing := depth%2 == 1
	best := math.Inf(-1)
	if minimizing {
		best = math.Inf(1)
	}
	for col := 0; col < b.Width(); col++ {
		if !b.Play(mover, col) {
			continue
		}
		v := e.minimax(b, root, mover.Opponent(), depth+1)
		b.Undo()
		if (minimizing && v < best) || (!minimizing && v > best) {
			best = v
		}
	}
	return best
}
