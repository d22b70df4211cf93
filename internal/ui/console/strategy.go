package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
)

// ErrInputClosed is returned by Play when the input stream ends before a
// legal column was entered.
var ErrInputClosed = errors.New("console input closed")

const prompt = "Enter column (starting at 0): "

// Strategy seats a human at the terminal.
type Strategy struct {
	strategy.Seat
	in       *bufio.Reader
	out      io.Writer
	renderer *Renderer
	logger   zerolog.Logger
}

var _ strategy.Strategy = (*Strategy)(nil)

func NewStrategy(in io.Reader, out io.Writer, renderer *Renderer, logger zerolog.Logger) *Strategy {
	return &Strategy{
		in:       bufio.NewReader(in),
		out:      out,
		renderer: renderer,
		logger:   logger.With().Str("component", "console_strategy").Logger(),
	}
}

func (s *Strategy) Init(g core.Geometry, id core.Player) error {
	return s.Bind(g, id)
}

func (s *Strategy) NotifyStartPlayer(start core.Player) {
	if start == s.ID() {
		fmt.Fprintf(s.out, "You are %c and move first.\n\n", s.ID().Glyph())
	} else {
		fmt.Fprintf(s.out, "You are %c and move second.\n\n", s.ID().Glyph())
	}
}

// Play shows the board and prompts until a legal column is entered.
func (s *Strategy) Play(b *core.Board) error {
	if err := s.CheckPlayable(b); err != nil {
		return err
	}
	if err := s.renderer.Render(b); err != nil {
		return err
	}

	for {
		fmt.Fprint(s.out, prompt)
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return ErrInputClosed
			}
			return fmt.Errorf("reading column: %w", err)
		}

		col, perr := strconv.Atoi(strings.TrimSpace(line))
		if perr != nil {
			fmt.Fprintln(s.out, "Input not valid, try again!")
			continue
		}
		if !b.IsValidPlay(col) {
			fmt.Fprintln(s.out, "No possible move! Try again!")
			continue
		}

		fmt.Fprintln(s.out)
		if !b.Play(s.ID(), col) {
			return fmt.Errorf("%w: column %d", core.ErrIllegalMove, col)
		}
		s.logger.Debug().Int("column", col).Msg("Human played")
		return nil
	}
}

func (s *Strategy) Outcome(b *core.Board, o core.Outcome) {
	if err := s.renderer.Outcome(b, o); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to print outcome")
	}
}

func (s *Strategy) Close() error { return nil }
