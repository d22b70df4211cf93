package learning

import (
	"fmt"
	"math"
)

// Schedule decays a value by half every HalfLife games, never dropping below
// Floor. It depends only on the games-played count, so a reloaded agent
// continues exactly where it stopped.
type Schedule struct {
	Start    float64
	Floor    float64
	HalfLife float64
}

// At returns the scheduled value after games completed games.
func (s Schedule) At(games uint64) float64 {
	v := s.Start * math.Exp2(-float64(games)/s.HalfLife)
	return math.Max(s.Floor, v)
}

func (s Schedule) Validate(name string) error {
	if s.Floor < 0 || s.Start < s.Floor {
		return fmt.Errorf("%w: %s schedule needs 0 <= floor <= start, got floor %g start %g", ErrInvalidConfig, name, s.Floor, s.Start)
	}
	if s.HalfLife <= 0 {
		return fmt.Errorf("%w: %s half-life must be positive, got %g", ErrInvalidConfig, name, s.HalfLife)
	}
	return nil
}
