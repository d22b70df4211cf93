package learning

import (
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// Encoder turns a board into the network input vector from one player's
// perspective. Layout, for a W×H board:
//
//	[0, 2WH)       two values per cell in row-major order: ownership
//	               (+1 self, -1 opponent, 0 empty) and reachability
//	               (1 if the cell is empty and a drop would land there)
//	[2WH, 2WH+W)   per column: +1 if self wins by dropping there, -1 if the
//	               opponent would, 0 otherwise
//	2WH+W          +1 if self started the game, -1 otherwise
type Encoder struct {
	width  int
	height int
}

func NewEncoder(g core.Geometry) *Encoder {
	return &Encoder{width: g.Width, height: g.Height}
}

// Size returns the length of every encoded vector.
func (e *Encoder) Size() int {
	return 2*e.width*e.height + e.width + 1
}

// Encode writes the features for self into a new slice. The column features
// are found by playing and undoing on b, which is left exactly as it was.
func (e *Encoder) Encode(b *core.Board, self core.Player, selfStarted bool) []float64 {
	out := make([]float64, e.Size())
	opp := self.Opponent()

	for idx, c := range b.Cells() {
		i := 2 * idx
		switch c {
		case self:
			out[i] = 1
		case opp:
			out[i] = -1
		default:
			x, y := idx%e.width, idx/e.width
			if y == e.height-1 || b.Cell(x, y+1) != core.Empty {
				out[i+1] = 1
			}
		}
	}

	i := 2 * e.width * e.height

	for x := 0; x < e.width; x++ {
		out[i+x] = e.threat(b, self, x)
	}
	i += e.width

	if selfStarted {
		out[i] = 1
	} else {
		out[i] = -1
	}
	return out
}

func (e *Encoder) threat(b *core.Board, self core.Player, col int) float64 {
	if !b.Play(self, col) {
		return 0
	}
	won := b.State() == core.Win(self)
	b.Undo()
	if won {
		return 1
	}

	opp := self.Opponent()
	b.Play(opp, col)
	lost := b.State() == core.Win(opp)
	b.Undo()
	if lost {
		return -1
	}
	return 0
}
