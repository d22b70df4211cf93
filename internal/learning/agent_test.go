package learning

import (
	"os"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/experience"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/learning/nn"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/strategy"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/testutil"
)

func greedyConfig() Config {
	cfg := DefaultConfig()
	cfg.HiddenLayers = []int{12}
	cfg.BatchSize = 4
	cfg.BufferCapacity = 64
	cfg.Exploration = Schedule{Start: 0, Floor: 0, HalfLife: 1}
	cfg.Seed = 3
	return cfg
}

// oneMoveFromWin is a 3x3 connect-3 position where X's only legal column wins.
func oneMoveFromWin(t *testing.T) *core.Board {
	t.Helper()
	b := testutil.CreateTestBoardN(t, 3,
		"OX.",
		"XOX",
		"OOX",
	)
	require.Equal(t, core.Running, b.State())
	require.Equal(t, []int{2}, b.LegalColumns())
	return b
}

func TestAgent_RequiresInit(t *testing.T) {
	a := NewAgent(greedyConfig(), nil, zerolog.Nop())
	assert.ErrorIs(t, a.Play(core.NewBoard(7, 6)), strategy.ErrNotInitialized)
	assert.NoError(t, a.Close())
}

func TestAgent_TerminalTargetIsExactWinReward(t *testing.T) {
	cfg := greedyConfig()
	cfg.Rewards.Win = 0.97
	a := NewAgent(cfg, nil, zerolog.New(zerolog.NewTestWriter(t)))
	board := oneMoveFromWin(t)
	require.NoError(t, a.Init(board.Geometry(), core.Player1))

	a.NotifyStartPlayer(core.Player1)
	require.NoError(t, a.Play(board))
	require.Equal(t, core.Win(core.Player1), board.State())

	a.Outcome(board, board.State())

	assert.Equal(t, 0.97, a.LastTarget())
	assert.Equal(t, uint64(1), a.GamesPlayed())

	input := a.encoder.Encode(oneMoveFromWin(t), core.Player1, true)
	online, err := a.online.Predict(input)
	require.NoError(t, err)
	target, err := a.target.Predict(input)
	require.NoError(t, err)
	assert.Equal(t, online, target, "target network is synchronized after the game")
}

func TestAgent_TerminalTargetIsExactLossReward(t *testing.T) {
	a := NewAgent(greedyConfig(), nil, zerolog.Nop())
	board := oneMoveFromWin(t)
	require.NoError(t, a.Init(board.Geometry(), core.Player1))

	a.NotifyStartPlayer(core.Player1)
	require.NoError(t, a.Play(board))
	a.Outcome(board, core.Win(core.Player2))

	assert.Equal(t, DefaultRewardConfig().Loss, a.LastTarget())
}

func TestAgent_OutcomeDoesNotChangeBoard(t *testing.T) {
	a := NewAgent(greedyConfig(), nil, zerolog.Nop())
	board := oneMoveFromWin(t)
	require.NoError(t, a.Init(board.Geometry(), core.Player1))
	a.NotifyStartPlayer(core.Player1)
	require.NoError(t, a.Play(board))
	before := board.Clone()

	a.Outcome(board, board.State())

	assert.Equal(t, before.Cells(), board.Cells())
	assert.Equal(t, before.Moves(), board.Moves())
}

func TestAgent_BootstrapTargetUsesTargetNetwork(t *testing.T) {
	cfg := greedyConfig()
	a := NewAgent(cfg, nil, zerolog.Nop())
	g := core.Geometry{Width: 5, Height: 4, WinLength: 4}
	require.NoError(t, a.Init(g, core.Player1))

	board := core.NewBoardFromGeometry(g)
	a.NotifyStartPlayer(core.Player1)
	require.NoError(t, a.Play(board))
	require.True(t, board.Play(core.Player2, 0))
	next := a.encoder.Encode(board, core.Player1, true)

	// Pull the online network away from the target so the two disagree.
	_, err := a.online.Train([]nn.Sample{{Input: next, Target: make([]float64, g.Width)}}, 0.5, 0)
	require.NoError(t, err)
	fromTarget, err := a.target.Predict(next)
	require.NoError(t, err)
	fromOnline, err := a.online.Predict(next)
	require.NoError(t, err)
	require.NotEqual(t, slices.Max(fromTarget), slices.Max(fromOnline))

	require.NoError(t, a.Play(board))

	want := (1-cfg.Blend)*cfg.Rewards.Step + cfg.Blend*cfg.Gamma*slices.Max(fromTarget)
	assert.InDelta(t, want, a.LastTarget(), 1e-12)
	assert.Equal(t, 1, a.Buffered())
}

func TestAgent_BootstrapReportsTargetErrors(t *testing.T) {
	a := NewAgent(greedyConfig(), nil, zerolog.Nop())
	require.NoError(t, a.Init(core.Geometry{Width: 5, Height: 4, WinLength: 4}, core.Player1))

	state := make([]float64, a.encoder.Size())
	bad := experience.Transition{State: state, Action: 1, Reward: 0.5, NextState: state[:3]}
	a.buffer.Add(bad)

	assert.ErrorIs(t, a.learn(bad), nn.ErrShapeMismatch)
}

func TestAgent_IllegalChoiceTrainsTowardIllegalReward(t *testing.T) {
	cfg := greedyConfig()
	cfg.Exploration = Schedule{Start: 1, Floor: 1, HalfLife: 1}
	cfg.Rewards.Illegal = 0
	a := NewAgent(cfg, nil, zerolog.Nop())
	require.NoError(t, a.Init(oneMoveFromWin(t).Geometry(), core.Player1))
	require.Equal(t, 1.0, a.Exploration())

	trained := 0
	for i := 0; i < 30 && trained == 0; i++ {
		board := oneMoveFromWin(t)
		moves := board.MoveCount()
		a.NotifyStartPlayer(core.Player1)
		input := a.encoder.Encode(board, core.Player1, true)
		before, err := a.online.Predict(input)
		require.NoError(t, err)

		require.NoError(t, a.Play(board))

		require.Equal(t, moves+1, board.MoveCount())
		last, ok := board.LastMove()
		require.True(t, ok)
		require.Equal(t, 2, last.Col)
		require.Equal(t, core.Player1, board.Cell(last.Col, last.Row))

		after, err := a.online.Predict(input)
		require.NoError(t, err)
		if slices.Equal(before, after) {
			// Explored the only legal column.
			continue
		}
		trained++
		// Columns 0 and 1 are full; the one that was picked moved toward zero.
		assert.Less(t, min(after[0]-before[0], after[1]-before[1]), 0.0)
	}
	assert.Equal(t, 1, trained)
}

// playGames pits the agent against a random opponent without a controller.
func playGames(t *testing.T, a *Agent, g core.Geometry, games int) {
	t.Helper()
	opp := strategy.NewRandom(77)
	require.NoError(t, opp.Init(g, a.ID().Opponent()))

	board := core.NewBoardFromGeometry(g)
	for i := 0; i < games; i++ {
		board.Reset()
		start := core.Player(1 + i%2)
		a.NotifyStartPlayer(start)
		opp.NotifyStartPlayer(start)

		turn := start
		for board.State() == core.Running {
			before := board.MoveCount()
			if turn == a.ID() {
				require.NoError(t, a.Play(board))
			} else {
				require.NoError(t, opp.Play(board))
			}
			require.Equal(t, before+1, board.MoveCount())
			turn = turn.Opponent()
		}
		a.Outcome(board, board.State())
		opp.Outcome(board, board.State())
	}
}

func TestAgent_LearnsAndFillsReplayBuffer(t *testing.T) {
	cfg := greedyConfig()
	cfg.Exploration = Schedule{Start: 0.5, Floor: 0.1, HalfLife: 4}
	cfg.LearningRate = Schedule{Start: 0.2, Floor: 0.05, HalfLife: 4}
	a := NewAgent(cfg, nil, zerolog.Nop())
	g := core.Geometry{Width: 5, Height: 4, WinLength: 4}
	require.NoError(t, a.Init(g, core.Player2))

	playGames(t, a, g, 20)

	assert.Equal(t, uint64(20), a.GamesPlayed())
	assert.Greater(t, a.Buffered(), 0)
	assert.LessOrEqual(t, a.Buffered(), cfg.BufferCapacity)
	assert.InDelta(t, cfg.Exploration.At(20), a.Exploration(), 1e-12)
	assert.InDelta(t, cfg.LearningRate.At(20), a.LearningRate(), 1e-12)
	assert.Less(t, a.Exploration(), cfg.Exploration.Start)
}

func TestAgent_FixedModeNeverMutates(t *testing.T) {
	cfg := greedyConfig()
	cfg.Fixed = true
	cfg.Exploration = Schedule{Start: 1, Floor: 1, HalfLife: 1}
	store, err := experience.NewFileStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	a := NewAgent(cfg, store, zerolog.Nop())
	g := core.Geometry{Width: 5, Height: 4, WinLength: 4}
	require.NoError(t, a.Init(g, core.Player1))
	before, err := a.online.MarshalBinary()
	require.NoError(t, err)

	playGames(t, a, g, 10)

	after, err := a.online.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, a.Buffered())
	assert.Zero(t, a.GamesPlayed())
	assert.Zero(t, a.Exploration())

	require.NoError(t, a.Close())
	assert.Zero(t, store.Stats().TotalWritten)
}

func TestAgent_FixedModeIsDeterministic(t *testing.T) {
	cfg := greedyConfig()
	cfg.Fixed = true
	g := core.Geometry{Width: 7, Height: 6, WinLength: 4}

	moves := make([][]core.Move, 2)
	for i := range moves {
		a := NewAgent(cfg, nil, zerolog.Nop())
		require.NoError(t, a.Init(g, core.Player1))
		board := core.NewBoardFromGeometry(g)
		a.NotifyStartPlayer(core.Player1)
		for j := 0; j < 3; j++ {
			require.NoError(t, a.Play(board))
			require.True(t, board.Play(core.Player2, 0) || board.Play(core.Player2, 1))
		}
		moves[i] = board.Moves()
	}
	assert.Equal(t, moves[0], moves[1])
}

func TestAgent_FixedModeFallsBackToBestLegalColumn(t *testing.T) {
	cfg := greedyConfig()
	cfg.Fixed = true
	a := NewAgent(cfg, nil, zerolog.Nop())
	board := oneMoveFromWin(t)
	require.NoError(t, a.Init(board.Geometry(), core.Player1))

	require.NoError(t, a.Play(board))
	last, ok := board.LastMove()
	require.True(t, ok)
	assert.Equal(t, 2, last.Col)
}

func TestAgent_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	store, err := experience.NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	g := core.Geometry{Width: 5, Height: 4, WinLength: 4}

	first := NewAgent(greedyConfig(), store, zerolog.Nop())
	require.NoError(t, first.Init(g, core.Player1))
	playGames(t, first, g, 5)
	require.NoError(t, first.Close())
	require.NoError(t, first.Close(), "second close is a no-op")
	assert.Equal(t, int64(1), store.Stats().TotalWritten)

	_, err = os.Stat(store.Path("learner-5x4"))
	require.NoError(t, err)

	second := NewAgent(greedyConfig(), store, zerolog.Nop())
	require.NoError(t, second.Init(g, core.Player2))
	assert.Equal(t, first.GamesPlayed(), second.GamesPlayed())
	assert.Equal(t, first.Buffered(), second.Buffered())
	assert.Equal(t, first.Exploration(), second.Exploration())
	assert.Equal(t, first.LearningRate(), second.LearningRate())

	input := make([]float64, NewEncoder(g).Size())
	want, err := first.online.Predict(input)
	require.NoError(t, err)
	got, err := second.online.Predict(input)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAgent_InitRejectsMalformedState(t *testing.T) {
	store, err := experience.NewFileStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path("learner-7x6"), []byte("12\n{}"), 0644))

	a := NewAgent(greedyConfig(), store, zerolog.Nop())
	err = a.Init(core.Geometry{Width: 7, Height: 6, WinLength: 4}, core.Player1)
	assert.ErrorIs(t, err, experience.ErrMalformedState)
	assert.False(t, a.Initialized())
	assert.NoError(t, a.Close())
	assert.Zero(t, store.Stats().TotalWritten)
}

func TestAgent_InitRejectsMismatchedState(t *testing.T) {
	store, err := experience.NewFileStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	wrongGeometry := &experience.AgentState{Width: 6, Height: 6, Network: []byte{}}
	require.NoError(t, store.Save("learner-7x6", wrongGeometry))

	a := NewAgent(greedyConfig(), store, zerolog.Nop())
	err = a.Init(core.Geometry{Width: 7, Height: 6, WinLength: 4}, core.Player1)
	assert.ErrorIs(t, err, ErrIncompatibleState)

	// A network trained for 5x4 stored under the 7x6 key.
	trained := NewAgent(greedyConfig(), nil, zerolog.Nop())
	require.NoError(t, trained.Init(core.Geometry{Width: 5, Height: 4, WinLength: 4}, core.Player1))
	network, err := trained.online.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, store.Save("learner-7x6", &experience.AgentState{Width: 7, Height: 6, Network: network}))

	err = a.Init(core.Geometry{Width: 7, Height: 6, WinLength: 4}, core.Player1)
	assert.ErrorIs(t, err, ErrIncompatibleState)
	assert.False(t, a.Initialized())
}

func TestAgent_InitRejectsInvalidConfig(t *testing.T) {
	cfg := greedyConfig()
	cfg.Gamma = 2
	a := NewAgent(cfg, nil, zerolog.Nop())
	assert.ErrorIs(t, a.Init(core.Geometry{Width: 7, Height: 6, WinLength: 4}, core.Player1), ErrInvalidConfig)
}
