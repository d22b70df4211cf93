package core

import (
	"fmt"
	"strconv"
)

// Player identifies the owner of a cell. Empty marks an unoccupied cell.
type Player int8

const (
	Empty   Player = 0
	Player1 Player = 1
	Player2 Player = 2
)

// Valid reports whether p is a seated player.
func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Opponent returns the other seated player. Empty maps to Empty.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return Empty
	}
}

// Glyph is the single-character rendering used by the plain board printer.
func (p Player) Glyph() byte {
	switch p {
	case Player1:
		return 'X'
	case Player2:
		return 'O'
	default:
		return '.'
	}
}

func (p Player) String() string {
	if p == Empty {
		return "empty"
	}
	return "player" + strconv.Itoa(int(p))
}

// ParsePlayer converts 1 or 2 into a Player.
func ParsePlayer(id int) (Player, error) {
	p := Player(id)
	if !p.Valid() {
		return Empty, fmt.Errorf("%w: %d", ErrInvalidPlayer, id)
	}
	return p, nil
}

// Outcome is the result of Board.State: Running, Draw, or a win for a player.
type Outcome int8

const (
	Draw    Outcome = -1
	Running Outcome = 0
)

// Win returns the outcome in which p has completed a line.
func Win(p Player) Outcome { return Outcome(p) }

// Winner returns the winning player, if any.
func (o Outcome) Winner() (Player, bool) {
	p := Player(o)
	return p, p.Valid()
}

func (o Outcome) IsTerminal() bool { return o != Running }

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Draw:
		return "draw"
	}
	if p, ok := o.Winner(); ok {
		return p.String() + " wins"
	}
	return fmt.Sprintf("Unknown(%d)", int8(o))
}

// Geometry describes a board shape and its win rule.
type Geometry struct {
	Width     int
	Height    int
	WinLength int
}

// Validate checks that a board with this geometry can be built and won.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, g.Width, g.Height)
	}
	if g.WinLength < 2 || (g.WinLength > g.Width && g.WinLength > g.Height) {
		return fmt.Errorf("%w: win length %d on %dx%d", ErrInvalidGeometry, g.WinLength, g.Width, g.Height)
	}
	return nil
}

func (g Geometry) Cells() int { return g.Width * g.Height }

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d/%d", g.Width, g.Height, g.WinLength)
}
