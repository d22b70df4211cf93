package search

import "github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"

// Weights combine the static features of a non-terminal leaf into one score.
type Weights struct {
	Two      float64 // per open end of a run of two
	Three    float64 // per open end of a run of three or more that has not won
	Mobility float64 // per empty cell touching one of the player's stones
}

func DefaultWeights() Weights {
	return Weights{Two: 1, Three: 5, Mobility: 0.1}
}

// right, down, down-right, down-left
var directions = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}

// Evaluate scores b for p. Positive values favour p.
func (w Weights) Evaluate(b *core.Board, p core.Player) float64 {
	return w.playerScore(b, p) - w.playerScore(b, p.Opponent())
}

func (w Weights) playerScore(b *core.Board, p core.Player) float64 {
	n := b.WinLength()
	score := 0.0
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			switch b.Cell(x, y) {
			case p:
				for _, d := range directions {
					length, open := runAt(b, x, y, d[0], d[1], p)
					switch {
					case length == 0 || length >= n || open == 0:
					case length >= 3:
						score += w.Three * float64(open)
					case length == 2:
						score += w.Two * float64(open)
					}
				}
			case core.Empty:
				if touches(b, x, y, p) {
					score += w.Mobility
				}
			}
		}
	}
	return score
}

// runAt measures the run of p starting at (x, y) in direction (dx, dy) and counts
// its empty ends. Cells that continue a run from behind report length 0 so every
// run is counted once.
func runAt(b *core.Board, x, y, dx, dy int, p core.Player) (length, open int) {
	if b.InBounds(x-dx, y-dy) && b.Cell(x-dx, y-dy) == p {
		return 0, 0
	}
	for b.InBounds(x+dx*length, y+dy*length) && b.Cell(x+dx*length, y+dy*length) == p {
		length++
	}
	if b.InBounds(x-dx, y-dy) && b.Cell(x-dx, y-dy) == core.Empty {
		open++
	}
	ex, ey := x+dx*length, y+dy*length
	if b.InBounds(ex, ey) && b.Cell(ex, ey) == core.Empty {
		open++
	}
	return length, open
}

func touches(b *core.Board, x, y int, p core.Player) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && b.Cell(x+dx, y+dy) == p {
				return true
			}
		}
	}
	return false
}
