// Package learning implements an online double-Q learner with experience
// replay. A feed-forward network scores every column; the agent plays
// epsilon-greedily and trains after each of its own moves.
package learning

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/experience"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/learning/nn"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
)

// step is the agent's last move, waiting for the position after the
// opponent's reply (or the game's end) to become a transition.
type step struct {
	state  []float64
	action int
}

// Agent is the learning strategy.
type Agent struct {
	strategy.Seat
	cfg    Config
	store  experience.StateStore
	logger zerolog.Logger
	rng    *rand.Rand

	encoder *Encoder
	online  *nn.Network
	target  *nn.Network
	buffer  *experience.Buffer

	gamesPlayed  uint64
	exploration  float64
	learningRate float64

	selfStarted bool
	pending     *step
	lastTarget  float64
	closed      bool
}

var _ strategy.Strategy = (*Agent)(nil)

// NewAgent creates an uninitialized learner. A nil store disables persistence.
func NewAgent(cfg Config, store experience.StateStore, logger zerolog.Logger) *Agent {
	if store == nil {
		store = &experience.NullStore{}
	}
	return &Agent{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "learning_agent").Str("name", cfg.Name).Bool("fixed", cfg.Fixed).Logger(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (a *Agent) key() string {
	g := a.Geometry()
	return experience.StateKey(a.cfg.Name, g.Width, g.Height)
}

// Init binds the seat and loads persisted state for this board size, starting
// from a fresh network when none exists. Malformed or mismatched state fails.
func (a *Agent) Init(g core.Geometry, id core.Player) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if err := a.Bind(g, id); err != nil {
		return err
	}
	if err := a.load(); err != nil {
		a.Unbind()
		a.online, a.target, a.buffer = nil, nil, nil
		return err
	}

	a.logger = a.logger.With().Int("player", int(id)).Logger()
	a.closed = false
	a.pending = nil
	a.updateSchedules()

	a.logger.Info().
		Uint64("games_played", a.gamesPlayed).
		Int("buffered", a.buffer.Size()).
		Ints("layers", a.online.Sizes()).
		Float64("exploration", a.exploration).
		Float64("learning_rate", a.learningRate).
		Msg("Learning agent initialized")
	return nil
}

func (a *Agent) load() error {
	g := a.Geometry()
	a.encoder = NewEncoder(g)
	a.buffer = experience.NewBuffer(a.cfg.BufferCapacity, a.logger)
	a.gamesPlayed = 0

	state, err := a.store.Load(a.key())
	if errors.Is(err, experience.ErrStateNotFound) {
		a.online, err = nn.New(a.layout(), a.rng)
		if err != nil {
			return err
		}
		a.target = a.online.Clone()
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", a.key(), err)
	}

	if state.Width != g.Width || state.Height != g.Height {
		return fmt.Errorf("%w: state is for %dx%d, board is %dx%d",
			ErrIncompatibleState, state.Width, state.Height, g.Width, g.Height)
	}
	online := &nn.Network{}
	if err := online.UnmarshalBinary(state.Network); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleState, err)
	}
	if online.Inputs() != a.encoder.Size() || online.Outputs() != g.Width {
		return fmt.Errorf("%w: network maps %d inputs to %d outputs, want %d to %d",
			ErrIncompatibleState, online.Inputs(), online.Outputs(), a.encoder.Size(), g.Width)
	}
	for i, t := range state.Transitions {
		if len(t.State) != a.encoder.Size() || len(t.NextState) != a.encoder.Size() || t.Action < 0 || t.Action >= g.Width {
			return fmt.Errorf("%w: transition %d does not fit the board", ErrIncompatibleState, i)
		}
	}

	a.online = online
	a.target = online.Clone()
	a.buffer.AddBatch(state.Transitions)
	a.gamesPlayed = state.GamesPlayed
	return nil
}

func (a *Agent) layout() []int {
	g := a.Geometry()
	hidden := a.cfg.HiddenLayers
	if len(hidden) == 0 {
		hidden = []int{2 * g.Cells(), g.Cells()}
	}
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, a.encoder.Size())
	sizes = append(sizes, hidden...)
	return append(sizes, g.Width)
}

func (a *Agent) updateSchedules() {
	if a.cfg.Fixed {
		a.exploration = 0
	} else {
		a.exploration = a.cfg.Exploration.At(a.gamesPlayed)
	}
	a.learningRate = a.cfg.LearningRate.At(a.gamesPlayed)
}

func (a *Agent) NotifyStartPlayer(start core.Player) {
	a.selfStarted = start == a.ID()
	a.pending = nil
}

// Play chooses a column epsilon-greedily. In learning mode an illegal choice
// is trained toward the illegal reward and replaced by a random legal column.
func (a *Agent) Play(b *core.Board) error {
	if err := a.CheckPlayable(b); err != nil {
		return err
	}

	state := a.encoder.Encode(b, a.ID(), a.selfStarted)
	if a.pending != nil && !a.cfg.Fixed {
		t := experience.Transition{
			State:     a.pending.state,
			Action:    a.pending.action,
			Reward:    a.cfg.Rewards.Step,
			NextState: state,
		}
		a.buffer.Add(t)
		if err := a.learn(t); err != nil {
			return err
		}
	}
	a.pending = nil

	q, err := a.online.Predict(state)
	if err != nil {
		return err
	}
	col := argmax(q)
	if a.exploration > 0 && a.rng.Float64() < a.exploration {
		col = a.rng.Intn(b.Width())
	}

	if !b.IsValidPlay(col) {
		legal := b.LegalColumns()
		if a.cfg.Fixed {
			col = bestLegal(q, legal)
		} else {
			q[col] = a.cfg.Rewards.Illegal
			if _, err := a.online.Train([]nn.Sample{{Input: state, Target: q}}, a.learningRate, a.cfg.Momentum); err != nil {
				return err
			}
			col = legal[a.rng.Intn(len(legal))]
		}
	}

	if !b.Play(a.ID(), col) {
		return fmt.Errorf("%w: column %d", core.ErrIllegalMove, col)
	}
	if !a.cfg.Fixed {
		a.pending = &step{state: state, action: col}
	}
	return nil
}

// learn trains the online network on t plus a replay batch, with targets
// bootstrapped from the target network.
func (a *Agent) learn(t experience.Transition) error {
	batch, err := a.buffer.Sample(a.cfg.BatchSize, a.rng)
	if err != nil {
		return err
	}

	samples := make([]nn.Sample, 0, len(batch)+1)
	for _, tr := range append([]experience.Transition{t}, batch...) {
		s, err := a.sample(tr)
		if err != nil {
			return err
		}
		samples = append(samples, s)
	}
	a.lastTarget = samples[0].Target[t.Action]

	_, err = a.online.Train(samples, a.learningRate, a.cfg.Momentum)
	return err
}

func (a *Agent) sample(t experience.Transition) (nn.Sample, error) {
	q, err := a.online.Predict(t.State)
	if err != nil {
		return nn.Sample{}, err
	}
	target, err := a.bootstrap(t)
	if err != nil {
		return nn.Sample{}, err
	}
	q[t.Action] = target
	return nn.Sample{Input: t.State, Target: q}, nil
}

// bootstrap blends the immediate reward with the target network's best value
// for the next state.
func (a *Agent) bootstrap(t experience.Transition) (float64, error) {
	next, err := a.target.Predict(t.NextState)
	if err != nil {
		return 0, fmt.Errorf("bootstrapping action %d: %w", t.Action, err)
	}
	return (1-a.cfg.Blend)*t.Reward + a.cfg.Blend*a.cfg.Gamma*next[argmax(next)], nil
}

// Outcome trains the final move toward the literal terminal reward, then
// synchronizes the target network and advances the schedules.
func (a *Agent) Outcome(b *core.Board, o core.Outcome) {
	if !a.Initialized() || a.cfg.Fixed {
		a.pending = nil
		return
	}

	if a.pending != nil {
		reward := a.cfg.Rewards.Terminal(o, a.ID())
		q, err := a.online.Predict(a.pending.state)
		if err == nil {
			q[a.pending.action] = reward
			_, err = a.online.Train([]nn.Sample{{Input: a.pending.state, Target: q}}, a.learningRate, a.cfg.Momentum)
		}
		if err != nil {
			a.logger.Error().Err(err).Msg("Failed to train terminal transition")
		}
		a.lastTarget = reward
		a.pending = nil
	}

	if err := a.target.CopyFrom(a.online); err != nil {
		a.logger.Error().Err(err).Msg("Failed to synchronize target network")
	}
	a.gamesPlayed++
	a.updateSchedules()

	a.logger.Debug().
		Str("outcome", o.String()).
		Uint64("games_played", a.gamesPlayed).
		Float64("exploration", a.exploration).
		Float64("learning_rate", a.learningRate).
		Msg("Game finished")
}

// Close persists the network, game counter and replay buffer. Fixed agents
// and agents whose Init failed have nothing to save.
func (a *Agent) Close() error {
	if !a.Initialized() || a.cfg.Fixed || a.closed {
		return nil
	}
	a.closed = true

	network, err := a.online.MarshalBinary()
	if err != nil {
		return err
	}
	g := a.Geometry()
	state := &experience.AgentState{
		Width:       g.Width,
		Height:      g.Height,
		GamesPlayed: a.gamesPlayed,
		Network:     network,
		Transitions: a.buffer.All(),
	}
	if err := a.store.Save(a.key(), state); err != nil {
		return fmt.Errorf("saving %s: %w", a.key(), err)
	}

	stats := a.buffer.Stats()
	a.logger.Info().
		Uint64("games_played", a.gamesPlayed).
		Int("buffered", stats.CurrentSize).
		Int("buffer_capacity", stats.Capacity).
		Int64("transitions_added", stats.TotalAdded).
		Int64("transitions_dropped", stats.TotalDropped).
		Float64("buffer_utilization_pct", stats.UtilizationPct).
		Msg("Learning agent saved")
	return nil
}

// GamesPlayed returns the number of completed training games, including those
// loaded from persisted state.
func (a *Agent) GamesPlayed() uint64 { return a.gamesPlayed }

func (a *Agent) Exploration() float64  { return a.exploration }
func (a *Agent) LearningRate() float64 { return a.learningRate }

// LastTarget is the training target used for the most recently trained move.
func (a *Agent) LastTarget() float64 { return a.lastTarget }

// Buffered returns the number of transitions in the replay buffer.
func (a *Agent) Buffered() int {
	if a.buffer == nil {
		return 0
	}
	return a.buffer.Size()
}

// argmax returns the first index of the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func bestLegal(q []float64, legal []int) int {
	best := legal[0]
	for _, col := range legal[1:] {
		if q[col] > q[best] {
			best = col
		}
	}
	return best
}
