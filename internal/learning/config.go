package learning

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid learning configuration")
	// ErrIncompatibleState is returned by Init when persisted state was trained
	// for a different board or network shape.
	ErrIncompatibleState = errors.New("incompatible agent state")
)

// DefaultName prefixes the state key of agents that are not given a name.
const DefaultName = "learner"

// Config holds the learner's hyperparameters.
type Config struct {
	Name string

	// HiddenLayers are the hidden layer sizes. When empty the network uses
	// two hidden layers of 2·W·H and W·H neurons.
	HiddenLayers []int

	Gamma          float64
	Blend          float64 // weight of the bootstrapped value against the immediate reward
	BatchSize      int
	BufferCapacity int
	Momentum       float64

	Exploration  Schedule
	LearningRate Schedule
	Rewards      RewardConfig

	// Fixed agents never train, explore or persist.
	Fixed bool
	Seed  uint64
}

// DefaultConfig returns the default learner configuration
func DefaultConfig() Config {
	return Config{
		Name:           DefaultName,
		Gamma:          0.99,
		Blend:          0.9,
		BatchSize:      16,
		BufferCapacity: 10000,
		Momentum:       0.05,
		Exploration:    Schedule{Start: 0.5, Floor: 0.05, HalfLife: 20000},
		LearningRate:   Schedule{Start: 0.1, Floor: 0.01, HalfLife: 10000},
		Rewards:        DefaultRewardConfig(),
	}
}

func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidConfig)
	}
	for _, h := range c.HiddenLayers {
		if h <= 0 {
			return fmt.Errorf("%w: hidden layer size %d", ErrInvalidConfig, h)
		}
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("%w: gamma %g outside [0,1]", ErrInvalidConfig, c.Gamma)
	}
	if c.Blend < 0 || c.Blend > 1 {
		return fmt.Errorf("%w: blend %g outside [0,1]", ErrInvalidConfig, c.Blend)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("%w: buffer capacity %d", ErrInvalidConfig, c.BufferCapacity)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("%w: momentum %g outside [0,1)", ErrInvalidConfig, c.Momentum)
	}
	if err := c.Exploration.Validate("exploration"); err != nil {
		return err
	}
	if c.Exploration.Start > 1 {
		return fmt.Errorf("%w: exploration start %g above 1", ErrInvalidConfig, c.Exploration.Start)
	}
	if err := c.LearningRate.Validate("learning rate"); err != nil {
		return err
	}
	return c.Rewards.Validate()
}
