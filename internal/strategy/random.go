package strategy

import (
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// Random picks a uniformly random column, retrying until the board accepts it.
type Random struct {
	Seat
	rng *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Init(g core.Geometry, id core.Player) error {
	return r.Bind(g, id)
}

func (r *Random) NotifyStartPlayer(core.Player) {}

// Play terminates because CheckPlayable guarantees at least one open column.
func (r *Random) Play(b *core.Board) error {
	if err := r.CheckPlayable(b); err != nil {
		return err
	}
	col := r.rng.Intn(b.Width())
	for !b.Play(r.ID(), col) {
		col = r.rng.Intn(b.Width())
	}
	return nil
}

func (r *Random) Outcome(*core.Board, core.Outcome) {}

func (r *Random) Close() error { return nil }
