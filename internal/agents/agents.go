// Package agents maps configured player kinds to strategy implementations so
// the match controller and CLI only deal with strategy.Strategy.
package agents

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/config"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/experience"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/learning"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/search"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/ui/console"
)

var ErrUnknownKind = errors.New("unknown player kind")

// Kind identifies a strategy implementation.
type Kind int

const (
	KindRandom Kind = iota
	KindConsole
	KindSearch
	KindLearning
	KindLearningFixed
)

var kindNames = map[Kind]string{
	KindRandom:        "random",
	KindConsole:       "console",
	KindSearch:        "search",
	KindLearning:      "learning",
	KindLearningFixed: "learning-fixed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindRandom, KindConsole, KindSearch, KindLearning, KindLearningFixed}
}

// ParseKind accepts the names printed by String, case-insensitively. "human"
// is accepted as an alias for console.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "human" {
		return KindConsole, nil
	}
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Deps carries what the strategies need from the outside world.
type Deps struct {
	Config config.Config
	Logger zerolog.Logger
	In     io.Reader
	Out    io.Writer

	// Store overrides the state store built from learning.state_dir.
	Store experience.StateStore

	// Seed seeds random and learning strategies. Zero draws one from frand.
	Seed uint64
}

// ResolveSeed returns seed, or a fresh random seed when it is zero.
func ResolveSeed(seed uint64) uint64 {
	for seed == 0 {
		seed = frand.Uint64n(math.MaxUint64)
	}
	return seed
}

// New builds an uninitialized strategy of the given kind.
func New(kind Kind, deps Deps) (strategy.Strategy, error) {
	seed := ResolveSeed(deps.Seed)
	logger := deps.Logger.With().Str("kind", kind.String()).Logger()

	switch kind {
	case KindRandom:
		return strategy.NewRandom(seed), nil
	case KindConsole:
		if deps.In == nil || deps.Out == nil {
			return nil, fmt.Errorf("console player needs an input and an output stream")
		}
		return console.NewStrategy(deps.In, deps.Out, console.NewRenderer(deps.Out), logger), nil
	case KindSearch:
		return search.NewStrategy(NewEngine(deps.Config.Search, logger), logger), nil
	case KindLearning, KindLearningFixed:
		store := deps.Store
		if store == nil {
			var err error
			store, err = experience.NewStateStore(deps.Config.Learning.StateDir, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to open state store: %w", err)
			}
		}
		cfg := LearningConfig(deps.Config.Learning, kind == KindLearningFixed, seed)
		return learning.NewAgent(cfg, store, logger), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// NewEngine builds a search engine from the search section.
func NewEngine(c config.SearchConfig, logger zerolog.Logger) *search.Engine {
	opts := []search.Option{
		search.WithDepth(c.Depth),
		search.WithWeights(search.Weights{
			Two:      c.Weights.Two,
			Three:    c.Weights.Three,
			Mobility: c.Weights.Mobility,
		}),
		search.WithLogger(logger),
	}
	if c.Workers > 0 {
		opts = append(opts, search.WithWorkers(c.Workers))
	}
	return search.NewEngine(opts...)
}

// LearningConfig converts the learning section to the learner's own config.
func LearningConfig(c config.LearningConfig, fixed bool, seed uint64) learning.Config {
	return learning.Config{
		Name:           c.Name,
		HiddenLayers:   append([]int(nil), c.HiddenLayers...),
		Gamma:          c.Gamma,
		Blend:          c.Blend,
		BatchSize:      c.BatchSize,
		BufferCapacity: c.BufferCapacity,
		Momentum:       c.Momentum,
		Exploration:    learning.Schedule(c.Exploration),
		LearningRate:   learning.Schedule(c.LearningRate),
		Rewards:        learning.RewardConfig(c.Rewards),
		Fixed:          fixed,
		Seed:           seed,
	}
}
