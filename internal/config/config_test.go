package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), "config.yaml", `
board:
  width: 9
  height: 7
  win_length: 5
match:
  games: 250
  switch_every: 10
  player1: search
  player2: learning
search:
  depth: 2
  weights:
    three: 8
learning:
  hidden_layers: [64, 32]
  rewards:
    illegal: 0.4
`)

	l, err := Load(configFile)
	require.NoError(t, err)
	c := l.Config()

	assert.Equal(t, core.Geometry{Width: 9, Height: 7, WinLength: 5}, c.Board.Geometry())
	assert.Equal(t, 250, c.Match.Games)
	assert.Equal(t, 10, c.Match.SwitchEvery)
	assert.Equal(t, "search", c.Match.Player1)
	assert.Equal(t, "learning", c.Match.Player2)
	assert.Equal(t, 2, c.Search.Depth)
	assert.Equal(t, 8.0, c.Search.Weights.Three)
	assert.Equal(t, 1.0, c.Search.Weights.Two, "unset keys keep defaults")
	assert.Equal(t, []int{64, 32}, c.Learning.HiddenLayers)
	assert.Equal(t, 0.4, c.Learning.Rewards.Illegal)
	assert.Equal(t, 1.0, c.Learning.Rewards.Win)
	assert.Equal(t, configFile, l.ConfigFilePath())
}

func TestLoadWithDefaults(t *testing.T) {
	l, err := Load("/non/existent/path/config.yaml")
	require.NoError(t, err)
	c := l.Config()

	assert.Equal(t, core.Geometry{Width: 7, Height: 6, WinLength: 4}, c.Board.Geometry())
	assert.Equal(t, 1000, c.Match.Games)
	assert.Equal(t, 1, c.Match.SwitchEvery)
	assert.Equal(t, "random", c.Match.Player1)
	assert.Equal(t, 4, c.Search.Depth)
	assert.Equal(t, 0.99, c.Learning.Gamma)
	assert.Equal(t, 20000.0, c.Learning.Exploration.HalfLife)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "console", c.Logging.Format)
	assert.Empty(t, c.Learning.HiddenLayers)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), "config.yaml", "board: [unclosed\n")
	_, err := Load(configFile)
	assert.Error(t, err)
}

func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("CONNECTN_BOARD_WIDTH", "8")
	t.Setenv("CONNECTN_MATCH_PLAYER2", "search")
	t.Setenv("CONNECTN_MATCH_SEED", "42")

	l, err := Load("/non/existent/path/config.yaml")
	require.NoError(t, err)
	c := l.Config()

	assert.Equal(t, 8, c.Board.Width)
	assert.Equal(t, "search", c.Match.Player2)
	assert.Equal(t, uint64(42), c.Match.Seed)
}

func TestSet(t *testing.T) {
	l, err := Load("/non/existent/path/config.yaml")
	require.NoError(t, err)

	require.NoError(t, l.Set("match.games", 35))
	require.NoError(t, l.Set("logging.level", "debug"))
	assert.Equal(t, 35, l.Config().Match.Games)
	assert.Equal(t, "debug", l.Config().Logging.Level)

	err = l.Set("match.games", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 35, l.Config().Match.Games, "a rejected change keeps the last valid config")
}

func TestConfigReturnsCopy(t *testing.T) {
	l, err := Load("/non/existent/path/config.yaml")
	require.NoError(t, err)
	require.NoError(t, l.Set("learning.hidden_layers", []int{8}))

	c := l.Config()
	c.Learning.HiddenLayers[0] = 99
	c.Board.Width = 3

	assert.Equal(t, []int{8}, l.Config().Learning.HiddenLayers)
	assert.Equal(t, 7, l.Config().Board.Width)
}

func TestMergeEnvironment(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "config.yaml", `
match:
  games: 100
logging:
  level: info
`)
	writeConfig(t, dir, "config.prod.yaml", `
match:
  games: 5000
logging:
  format: json
`)

	l, err := Load(base)
	require.NoError(t, err)

	require.NoError(t, l.MergeEnvironment(""))
	require.NoError(t, l.MergeEnvironment("staging"), "missing overlay is ignored")
	require.NoError(t, l.MergeEnvironment("prod"))

	c := l.Config()
	assert.Equal(t, 5000, c.Match.Games)      // Overridden
	assert.Equal(t, "json", c.Logging.Format) // New value
	assert.Equal(t, "info", c.Logging.Level)  // Kept
}

func TestWatch(t *testing.T) {
	l, err := Load("/non/existent/path/config.yaml")
	require.NoError(t, err)
	assert.ErrorIs(t, l.Watch(nil), ErrNoConfigFile)

	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "logging:\n  level: info\n")
	l, err = Load(path)
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, l.Watch(func(c Config, err error) {
		calls.Add(1)
	}))

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "config.yaml", "logging:\n  level: debug\n")

	require.Eventually(t, func() bool {
		return l.Config().Logging.Level == "debug"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Positive(t, calls.Load())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		l, err := Load("/non/existent/path/config.yaml")
		require.NoError(t, err)
		c := l.Config()
		return &c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Board.Width = 0 }},
		{"unwinnable", func(c *Config) { c.Board.WinLength = 9 }},
		{"no games", func(c *Config) { c.Match.Games = 0 }},
		{"no switch", func(c *Config) { c.Match.SwitchEvery = 0 }},
		{"missing player", func(c *Config) { c.Match.Player2 = "" }},
		{"negative depth", func(c *Config) { c.Search.Depth = -1 }},
		{"negative workers", func(c *Config) { c.Search.Workers = -2 }},
		{"name with path", func(c *Config) { c.Learning.Name = "../x" }},
		{"zero capacity", func(c *Config) { c.Learning.BufferCapacity = 0 }},
		{"zero half-life", func(c *Config) { c.Learning.LearningRate.HalfLife = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	require.NoError(t, Validate(valid()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, Validate(c), ErrInvalidConfig)
		})
	}
}
