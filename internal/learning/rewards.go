package learning

import (
	"fmt"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// RewardConfig holds the reward values. They are training targets for sigmoid
// outputs, so each must lie in [0, 1].
type RewardConfig struct {
	Win     float64
	Loss    float64
	Draw    float64
	Step    float64 // every non-terminal move
	Illegal float64 // choosing a full or out-of-range column
}

// DefaultRewardConfig returns the default reward configuration
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		Win:     1.0,
		Loss:    0.0,
		Draw:    0.5,
		Step:    0.5,
		Illegal: 0.45,
	}
}

// Validate checks every reward lies in the sigmoid output range.
func (r RewardConfig) Validate() error {
	for name, v := range map[string]float64{
		"win": r.Win, "loss": r.Loss, "draw": r.Draw, "step": r.Step, "illegal": r.Illegal,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s reward %g outside [0,1]", ErrInvalidConfig, name, v)
		}
	}
	return nil
}

// Terminal maps a finished game's outcome to the reward for self. A running
// outcome gets the step reward.
func (r RewardConfig) Terminal(o core.Outcome, self core.Player) float64 {
	if o == core.Draw {
		return r.Draw
	}
	winner, ok := o.Winner()
	switch {
	case !ok:
		return r.Step
	case winner == self:
		return r.Win
	default:
		return r.Loss
	}
}
