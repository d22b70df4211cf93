package match

import (
	"fmt"
	"io"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// Tally counts the results of a batch of games.
type Tally struct {
	Player1Wins int
	Draws       int
	Player2Wins int
	Games       int
}

// Record adds one finished game. A Running outcome is not counted.
func (t *Tally) Record(o core.Outcome) {
	switch winner, ok := o.Winner(); {
	case ok && winner == core.Player1:
		t.Player1Wins++
	case ok && winner == core.Player2:
		t.Player2Wins++
	case o == core.Draw:
		t.Draws++
	default:
		return
	}
	t.Games++
}

// Wins returns the number of games won by p.
func (t Tally) Wins(p core.Player) int {
	switch p {
	case core.Player1:
		return t.Player1Wins
	case core.Player2:
		return t.Player2Wins
	default:
		return 0
	}
}

// Percent returns count as a percentage of the games played.
func (t Tally) Percent(count int) float64 {
	if t.Games == 0 {
		return 0
	}
	return float64(count) / float64(t.Games) * 100
}

// WriteSummary prints the batch report.
func (t Tally) WriteSummary(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"---------------------------------\n"+
			"Results:\n"+
			"Player X wins: %6.2f%% (%d/%d)\n"+
			"Draws:         %6.2f%% (%d/%d)\n"+
			"Player O wins: %6.2f%% (%d/%d)\n",
		t.Percent(t.Player1Wins), t.Player1Wins, t.Games,
		t.Percent(t.Draws), t.Draws, t.Games,
		t.Percent(t.Player2Wins), t.Player2Wins, t.Games,
	)
	return err
}
