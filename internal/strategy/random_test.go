package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

func TestRandom_RequiresInit(t *testing.T) {
	r := NewRandom(1)
	err := r.Play(core.NewBoard(7, 6))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRandom_InitRejectsBadSeat(t *testing.T) {
	r := NewRandom(1)
	assert.ErrorIs(t, r.Init(core.Geometry{Width: 7, Height: 6, WinLength: 4}, core.Empty), core.ErrInvalidPlayer)
	assert.ErrorIs(t, r.Init(core.Geometry{Width: 0, Height: 6, WinLength: 4}, core.Player1), core.ErrInvalidGeometry)
	assert.False(t, r.Initialized())
}

func TestRandom_SingleLegalColumn(t *testing.T) {
	rows := []string{
		"XOXO.OX",
		"OXOXOXO",
		"OXOXOXO",
		"XOXOXOX",
		"XOXOXOX",
		"OXOXOXO",
	}
	for seed := uint64(0); seed < 20; seed++ {
		board, err := core.FromRows(rows)
		require.NoError(t, err)

		r := NewRandom(seed)
		require.NoError(t, r.Init(board.Geometry(), core.Player1))
		require.NoError(t, r.Play(board))

		last, ok := board.LastMove()
		require.True(t, ok)
		assert.Equal(t, 4, last.Col, "seed %d", seed)
		assert.True(t, board.IsFull())
	}
}

func TestRandom_FullBoard(t *testing.T) {
	board, err := core.FromRows([]string{"XO", "OX"})
	require.NoError(t, err)

	r := NewRandom(3)
	require.NoError(t, r.Init(core.Geometry{Width: 2, Height: 2, WinLength: 2}, core.Player2))
	assert.ErrorIs(t, r.Play(board), ErrNoLegalMove)
}

func TestRandom_PlaysOneMove(t *testing.T) {
	board := core.NewBoard(7, 6)
	r := NewRandom(11)
	require.NoError(t, r.Init(board.Geometry(), core.Player2))

	for i := 1; i <= 10; i++ {
		require.NoError(t, r.Play(board))
		assert.Equal(t, i, board.MoveCount())
		last, _ := board.LastMove()
		assert.Equal(t, core.Player2, board.Cell(last.Col, last.Row))
	}
}

func TestRandom_DecidedGame(t *testing.T) {
	board, err := core.FromRows([]string{
		".......",
		".......",
		"X......",
		"X......",
		"XO.....",
		"XOO....",
	})
	require.NoError(t, err)
	require.Equal(t, core.Win(core.Player1), board.State())

	r := NewRandom(5)
	require.NoError(t, r.Init(board.Geometry(), core.Player2))
	assert.ErrorIs(t, r.Play(board), core.ErrGameOver)
	assert.Equal(t, 7, board.MoveCount())
}
