package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

// EnvPrefix is prepended to every environment override, e.g. CONNECTN_BOARD_WIDTH.
const EnvPrefix = "CONNECTN"

var (
	// ErrInvalidConfig wraps every validation failure
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfigFile is returned by Watch when only defaults and environment are in use
	ErrNoConfigFile = errors.New("no config file loaded")
)

// Config holds all configuration for the application
type Config struct {
	Board    BoardConfig    `mapstructure:"board"`
	Match    MatchConfig    `mapstructure:"match"`
	Search   SearchConfig   `mapstructure:"search"`
	Learning LearningConfig `mapstructure:"learning"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BoardConfig holds the board geometry
type BoardConfig struct {
	Width     int `mapstructure:"width"`
	Height    int `mapstructure:"height"`
	WinLength int `mapstructure:"win_length"`
}

// Geometry converts the board section to a core.Geometry.
func (b BoardConfig) Geometry() core.Geometry {
	return core.Geometry{Width: b.Width, Height: b.Height, WinLength: b.WinLength}
}

// MatchConfig holds batch settings and the strategy kind for each seat
type MatchConfig struct {
	Games       int    `mapstructure:"games"`
	SwitchEvery int    `mapstructure:"switch_every"`
	Player1     string `mapstructure:"player1"`
	Player2     string `mapstructure:"player2"`
	Seed        uint64 `mapstructure:"seed"` // 0 draws a fresh seed per run
}

// SearchConfig holds minimax settings
type SearchConfig struct {
	Depth   int           `mapstructure:"depth"`
	Workers int           `mapstructure:"workers"` // 0 uses GOMAXPROCS
	Weights WeightsConfig `mapstructure:"weights"`
}

// WeightsConfig holds the heuristic weights
type WeightsConfig struct {
	Two      float64 `mapstructure:"two"`
	Three    float64 `mapstructure:"three"`
	Mobility float64 `mapstructure:"mobility"`
}

// LearningConfig holds the double-Q learner's hyperparameters
type LearningConfig struct {
	Name           string         `mapstructure:"name"`
	StateDir       string         `mapstructure:"state_dir"` // empty disables persistence
	HiddenLayers   []int          `mapstructure:"hidden_layers"`
	Gamma          float64        `mapstructure:"gamma"`
	Blend          float64        `mapstructure:"blend"`
	BatchSize      int            `mapstructure:"batch_size"`
	BufferCapacity int            `mapstructure:"buffer_capacity"`
	Momentum       float64        `mapstructure:"momentum"`
	Exploration    ScheduleConfig `mapstructure:"exploration"`
	LearningRate   ScheduleConfig `mapstructure:"learning_rate"`
	Rewards        RewardsConfig  `mapstructure:"rewards"`
}

// ScheduleConfig holds a half-life decay schedule
type ScheduleConfig struct {
	Start    float64 `mapstructure:"start"`
	Floor    float64 `mapstructure:"floor"`
	HalfLife float64 `mapstructure:"half_life"`
}

// RewardsConfig holds reward values in [0,1]
type RewardsConfig struct {
	Win     float64 `mapstructure:"win"`
	Loss    float64 `mapstructure:"loss"`
	Draw    float64 `mapstructure:"draw"`
	Step    float64 `mapstructure:"step"`
	Illegal float64 `mapstructure:"illegal"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("board.width", 7)
	v.SetDefault("board.height", 6)
	v.SetDefault("board.win_length", core.DefaultWinLength)

	v.SetDefault("match.games", 1000)
	v.SetDefault("match.switch_every", 1)
	v.SetDefault("match.player1", "random")
	v.SetDefault("match.player2", "random")
	v.SetDefault("match.seed", 0)

	v.SetDefault("search.depth", 4)
	v.SetDefault("search.workers", 0)
	v.SetDefault("search.weights.two", 1.0)
	v.SetDefault("search.weights.three", 5.0)
	v.SetDefault("search.weights.mobility", 0.1)

	v.SetDefault("learning.name", "learner")
	v.SetDefault("learning.state_dir", "state")
	v.SetDefault("learning.hidden_layers", []int{})
	v.SetDefault("learning.gamma", 0.99)
	v.SetDefault("learning.blend", 0.9)
	v.SetDefault("learning.batch_size", 16)
	v.SetDefault("learning.buffer_capacity", 10000)
	v.SetDefault("learning.momentum", 0.05)
	v.SetDefault("learning.exploration.start", 0.5)
	v.SetDefault("learning.exploration.floor", 0.05)
	v.SetDefault("learning.exploration.half_life", 20000.0)
	v.SetDefault("learning.learning_rate.start", 0.1)
	v.SetDefault("learning.learning_rate.floor", 0.01)
	v.SetDefault("learning.learning_rate.half_life", 10000.0)
	v.SetDefault("learning.rewards.win", 1.0)
	v.SetDefault("learning.rewards.loss", 0.0)
	v.SetDefault("learning.rewards.draw", 0.5)
	v.SetDefault("learning.rewards.step", 0.5)
	v.SetDefault("learning.rewards.illegal", 0.45)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Loader owns a viper instance and the last successfully validated Config.
type Loader struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg *Config
}

// Load reads defaults, then the config file, then CONNECTN_* environment
// overrides. With an empty path the usual locations are searched and a
// missing file is not an error; a named file that does not exist is also
// tolerated, but one that fails to parse is not.
func Load(configPath string) (*Loader, error) {
	v := viper.New()

	// Set defaults before loading any config
	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/connectn")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case configPath != "" && errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	l := &Loader{v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) reload() error {
	cfg, err := l.decode()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return nil
}

// Config returns a copy of the current configuration.
func (l *Loader) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := *l.cfg
	c.Learning.HiddenLayers = append([]int(nil), l.cfg.Learning.HiddenLayers...)
	return c
}

// Viper returns the viper instance for advanced usage
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFilePath returns the path of the loaded config file
func (l *Loader) ConfigFilePath() string {
	return l.v.ConfigFileUsed()
}

// Set overrides a single key at runtime, as a CLI flag would.
func (l *Loader) Set(key string, value interface{}) error {
	l.v.Set(key, value)
	return l.reload()
}

// MergeEnvironment overlays config.<env>.yaml from the loaded file's
// directory (or the working directory). A missing overlay is ignored.
func (l *Loader) MergeEnvironment(env string) error {
	if env == "" {
		return nil
	}

	dir := "."
	if used := l.v.ConfigFileUsed(); used != "" {
		dir = filepath.Dir(used)
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))

	overlay := viper.New()
	overlay.SetConfigFile(envFile)
	if err := overlay.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading environment config %s: %w", envFile, err)
	}
	if err := l.v.MergeConfigMap(overlay.AllSettings()); err != nil {
		return fmt.Errorf("error merging environment config %s: %w", envFile, err)
	}
	return l.reload()
}

// Watch re-reads the config file whenever it changes. onChange receives the
// new configuration, or the error that kept it from being applied; in that
// case the previous configuration stays current.
func (l *Loader) Watch(onChange func(Config, error)) error {
	if l.v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		err := l.reload()
		if onChange != nil {
			onChange(l.Config(), err)
		}
	})
	l.v.WatchConfig()
	return nil
}

// Validate validates the configuration values
func Validate(c *Config) error {
	if err := c.Board.Geometry().Validate(); err != nil {
		return fmt.Errorf("%w: board: %v", ErrInvalidConfig, err)
	}

	if c.Match.Games < 1 {
		return fmt.Errorf("%w: match.games must be at least 1", ErrInvalidConfig)
	}
	if c.Match.SwitchEvery < 1 {
		return fmt.Errorf("%w: match.switch_every must be at least 1", ErrInvalidConfig)
	}
	if c.Match.Player1 == "" || c.Match.Player2 == "" {
		return fmt.Errorf("%w: match.player1 and match.player2 must be set", ErrInvalidConfig)
	}

	if c.Search.Depth < 0 {
		return fmt.Errorf("%w: search.depth must be non-negative", ErrInvalidConfig)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("%w: search.workers must be non-negative", ErrInvalidConfig)
	}

	if c.Learning.Name == "" || c.Learning.Name != filepath.Base(c.Learning.Name) {
		return fmt.Errorf("%w: learning.name must be a plain file name", ErrInvalidConfig)
	}
	if c.Learning.BufferCapacity <= 0 {
		return fmt.Errorf("%w: learning.buffer_capacity must be positive", ErrInvalidConfig)
	}
	if c.Learning.BatchSize < 0 {
		return fmt.Errorf("%w: learning.batch_size must be non-negative", ErrInvalidConfig)
	}
	if c.Learning.Exploration.HalfLife <= 0 || c.Learning.LearningRate.HalfLife <= 0 {
		return fmt.Errorf("%w: learning half-lives must be positive", ErrInvalidConfig)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}
