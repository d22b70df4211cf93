// Package console plays connect-N in a terminal: a styled board renderer and
// a strategy that reads the human player's column from an input stream.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// ANSI palette indices for the stones.
const (
	colorPlayer1 = "1" // red
	colorPlayer2 = "3" // yellow
	colorEmpty   = "8" // gray
	colorLast    = "6" // cyan highlight for the last move
)

// Renderer draws boards with termenv styles. The color profile is detected
// from the writer unless overridden with termenv.WithProfile.
type Renderer struct {
	out *termenv.Output
}

func NewRenderer(w io.Writer, opts ...termenv.OutputOption) *Renderer {
	return &Renderer{out: termenv.NewOutput(w, opts...)}
}

func (r *Renderer) glyph(b *core.Board, x, y int) string {
	p := b.Cell(x, y)
	s := r.out.String(string(p.Glyph()))
	switch p {
	case core.Player1:
		s = s.Foreground(r.out.Color(colorPlayer1)).Bold()
	case core.Player2:
		s = s.Foreground(r.out.Color(colorPlayer2)).Bold()
	default:
		return s.Foreground(r.out.Color(colorEmpty)).String()
	}
	if last, ok := b.LastMove(); ok && last.Col == x && last.Row == y {
		s = s.Background(r.out.Color(colorLast))
	}
	return s.String()
}

// Board returns the board with a column index header, top row first.
func (r *Renderer) Board(b *core.Board) string {
	var sb strings.Builder
	sb.Grow((b.Width()*4 + 2) * (b.Height() + 1))

	var header strings.Builder
	for x := 0; x < b.Width(); x++ {
		fmt.Fprintf(&header, "  %-2d", x)
	}
	sb.WriteString(strings.TrimRight(header.String(), " "))
	sb.WriteByte('\n')

	for y := 0; y < b.Height(); y++ {
		sb.WriteByte('|')
		for x := 0; x < b.Width(); x++ {
			sb.WriteByte(' ')
			sb.WriteString(r.glyph(b, x, y))
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Render writes the board followed by a blank line.
func (r *Renderer) Render(b *core.Board) error {
	_, err := fmt.Fprintf(r.out, "%s\n", r.Board(b))
	return err
}

// Outcome renders the final board and announces the result.
func (r *Renderer) Outcome(b *core.Board, o core.Outcome) error {
	if err := r.Render(b); err != nil {
		return err
	}
	if winner, ok := o.Winner(); ok {
		_, err := fmt.Fprintf(r.out, "Player %c won the game!\n", winner.Glyph())
		return err
	}
	_, err := fmt.Fprintln(r.out, "Draw!")
	return err
}
