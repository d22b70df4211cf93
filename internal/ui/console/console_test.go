package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
)

func plainRenderer(buf *bytes.Buffer) *Renderer {
	return NewRenderer(buf, termenv.WithProfile(termenv.Ascii))
}

func TestRenderer_Board(t *testing.T) {
	board := core.NewBoard(3, 2)
	require.True(t, board.Play(core.Player1, 0))
	require.True(t, board.Play(core.Player2, 2))

	var buf bytes.Buffer
	got := plainRenderer(&buf).Board(board)

	assert.Equal(t, "  0   1   2\n| . | . | . |\n| X | . | O |\n", got)
}

func TestRenderer_Outcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome core.Outcome
		want    string
	}{
		{"x wins", core.Win(core.Player1), "Player X won the game!\n"},
		{"o wins", core.Win(core.Player2), "Player O won the game!\n"},
		{"draw", core.Draw, "Draw!\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, plainRenderer(&buf).Outcome(core.NewBoard(2, 2), tt.outcome))
			assert.True(t, strings.HasSuffix(buf.String(), tt.want), buf.String())
		})
	}
}

func TestRenderer_ColorProfileStylesStones(t *testing.T) {
	board := core.NewBoard(2, 1)
	require.True(t, board.Play(core.Player1, 0))

	var buf bytes.Buffer
	got := NewRenderer(&buf, termenv.WithProfile(termenv.ANSI)).Board(board)
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, "X")
}

func newConsole(input string) (*Strategy, *bytes.Buffer) {
	var out bytes.Buffer
	s := NewStrategy(strings.NewReader(input), &out, plainRenderer(&out), zerolog.Nop())
	return s, &out
}

func TestStrategy_RetriesUntilLegal(t *testing.T) {
	board, err := core.FromRows([]string{
		"X..",
		"O..",
	})
	require.NoError(t, err)

	s, out := newConsole("abc\n0\n9\n-1\n2\n")
	require.NoError(t, s.Init(board.Geometry(), core.Player1))
	require.NoError(t, s.Play(board))

	last, ok := board.LastMove()
	require.True(t, ok)
	assert.Equal(t, core.Move{Col: 2, Row: 1}, last)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Input not valid, try again!"))
	assert.Equal(t, 3, strings.Count(text, "No possible move! Try again!"))
	assert.Equal(t, 5, strings.Count(text, prompt))
}

func TestStrategy_AcceptsFinalLineWithoutNewline(t *testing.T) {
	board := core.NewBoard(4, 4)
	s, _ := newConsole(" 3 ")
	require.NoError(t, s.Init(board.Geometry(), core.Player2))
	require.NoError(t, s.Play(board))
	assert.Equal(t, core.Player2, board.Cell(3, 3))
}

func TestStrategy_EOFIsAnError(t *testing.T) {
	board := core.NewBoard(4, 4)
	s, _ := newConsole("x\n")
	require.NoError(t, s.Init(board.Geometry(), core.Player1))

	assert.ErrorIs(t, s.Play(board), ErrInputClosed)
	assert.Zero(t, board.MoveCount())
}

func TestStrategy_RequiresInit(t *testing.T) {
	s, _ := newConsole("0\n")
	assert.ErrorIs(t, s.Play(core.NewBoard(4, 4)), strategy.ErrNotInitialized)
}

func TestStrategy_OutcomePrintsResult(t *testing.T) {
	s, out := newConsole("")
	require.NoError(t, s.Init(core.Geometry{Width: 4, Height: 4, WinLength: 4}, core.Player1))
	s.NotifyStartPlayer(core.Player2)
	s.Outcome(core.NewBoard(4, 4), core.Draw)

	assert.Contains(t, out.String(), "You are X and move second.")
	assert.True(t, strings.HasSuffix(out.String(), "Draw!\n"))
}
