package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// StandardGeometry is the classic 7x6 connect-four board.
var StandardGeometry = core.Geometry{Width: 7, Height: 6, WinLength: core.DefaultWinLength}

// CreateTestBoard parses rows (top row first, X/O/.) into a board, failing
// the test if the position is not reachable by legal drops.
func CreateTestBoard(t testing.TB, rows ...string) *core.Board {
	t.Helper()
	b, err := core.FromRows(rows)
	require.NoError(t, err)
	return b
}

// CreateTestBoardN is CreateTestBoard with a win length other than four.
func CreateTestBoardN(t testing.TB, winLength int, rows ...string) *core.Board {
	t.Helper()
	b, err := core.FromRows(rows, core.WithWinLength(winLength))
	require.NoError(t, err)
	return b
}
