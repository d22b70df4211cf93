package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/agents"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/config"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/experience"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/match"
	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/monitoring"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	games := flag.Int("games", -1, "Number of games to play (-1 to use config default)")
	switchEvery := flag.Int("switch-every", -1, "Hand the first move to the other player every N games (-1 to use config default)")
	p1 := flag.String("p1", "", "Player X: random, console, search, learning, learning-fixed (empty to use config default)")
	p2 := flag.String("p2", "", "Player O: random, console, search, learning, learning-fixed (empty to use config default)")
	width := flag.Int("width", -1, "Board width (-1 to use config default)")
	height := flag.Int("height", -1, "Board height (-1 to use config default)")
	winLength := flag.Int("win-length", -1, "Stones in a row needed to win (-1 to use config default)")
	depth := flag.Int("depth", -1, "Search depth in plies (-1 to use config default)")
	seed := flag.Uint64("seed", 0, "Random seed (0 to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	cpuProfile := flag.String("cpuprofile", "", "Write a CPU profile into this directory")
	progress := flag.Duration("progress", 0, "Log match progress at this interval (0 disables)")
	flag.Parse()

	// Initialize configuration
	loader, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize config")
		return 1
	}
	if err := loader.MergeEnvironment(os.Getenv("APP_ENV")); err != nil {
		log.Error().Err(err).Msg("Failed to load environment config")
		return 1
	}

	overrides := []struct {
		key   string
		set   bool
		value interface{}
	}{
		{"match.games", *games != -1, *games},
		{"match.switch_every", *switchEvery != -1, *switchEvery},
		{"match.player1", *p1 != "", *p1},
		{"match.player2", *p2 != "", *p2},
		{"board.width", *width != -1, *width},
		{"board.height", *height != -1, *height},
		{"board.win_length", *winLength != -1, *winLength},
		{"search.depth", *depth != -1, *depth},
		{"match.seed", *seed != 0, *seed},
		{"logging.level", *logLevel != "", *logLevel},
	}
	for _, o := range overrides {
		if !o.set {
			continue
		}
		if err := loader.Set(o.key, o.value); err != nil {
			log.Error().Err(err).Str("key", o.key).Msg("Invalid command line flag")
			return 1
		}
	}

	cfg := loader.Config()
	logger := setupLogging(cfg.Logging.Level, cfg.Logging.Format)

	err = loader.Watch(func(c config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring invalid config change")
			return
		}
		level, _ := zerolog.ParseLevel(c.Logging.Level)
		zerolog.SetGlobalLevel(level)
		logger.Info().Str("level", level.String()).Msg("Config reloaded")
	})
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		logger.Warn().Err(err).Msg("Config hot reload disabled")
	}

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller, err := newController(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to set up match")
		return 1
	}

	status := 0
	defer func() {
		if err := controller.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close players")
		}
	}()

	if *progress > 0 {
		monitor := monitoring.NewProgressMonitor(cfg.Match.Games, *progress, logger)
		controller.SetObserver(monitor.Observe)
		monitor.Start()
		defer monitor.Stop()
	}

	logger.Info().
		Str("player1", cfg.Match.Player1).
		Str("player2", cfg.Match.Player2).
		Int("width", cfg.Board.Width).
		Int("height", cfg.Board.Height).
		Int("win_length", cfg.Board.WinLength).
		Int("games", cfg.Match.Games).
		Msg("Starting match")

	tally, err := controller.PlayMany(ctx, cfg.Match.Games, cfg.Match.SwitchEvery)
	if tally.Games > 0 {
		if werr := tally.WriteSummary(os.Stdout); werr != nil {
			logger.Error().Err(werr).Msg("Failed to write summary")
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn().Int("completed", tally.Games).Msg("Match interrupted")
		status = 130
	case err != nil:
		logger.Error().Err(err).Int("completed", tally.Games).Msg("Match failed")
		status = 1
	}
	return status
}

// newController seats both configured players. Learning players share one
// state store.
func newController(cfg config.Config, logger zerolog.Logger) (*match.Controller, error) {
	controller, err := match.NewController(cfg.Board.Geometry(), logger)
	if err != nil {
		return nil, err
	}

	store, err := experience.NewStateStore(cfg.Learning.StateDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	seed := agents.ResolveSeed(cfg.Match.Seed)
	logger.Debug().Uint64("seed", seed).Msg("Seeding players")

	seats := []struct {
		id   core.Player
		kind string
	}{
		{core.Player1, cfg.Match.Player1},
		{core.Player2, cfg.Match.Player2},
	}
	for i, seat := range seats {
		kind, err := agents.ParseKind(seat.kind)
		if err != nil {
			return nil, closeOnError(controller, logger, err)
		}
		s, err := agents.New(kind, agents.Deps{
			Config: cfg,
			Logger: logger.With().Str("player", seat.id.String()).Logger(),
			In:     os.Stdin,
			Out:    os.Stdout,
			Store:  store,
			Seed:   seed + uint64(i),
		})
		if err != nil {
			return nil, closeOnError(controller, logger, err)
		}
		if err := controller.SetPlayer(seat.id, s); err != nil {
			return nil, closeOnError(controller, logger, err)
		}
	}
	return controller, nil
}

// closeOnError releases players seated before setup failed and returns err.
func closeOnError(controller *match.Controller, logger zerolog.Logger, err error) error {
	if cerr := controller.Close(); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to close players")
	}
	return err
}

func setupLogging(level, format string) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Check if we're in production
	if format == "json" || os.Getenv("APP_ENV") == "production" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Pretty console output for development; stdout belongs to the board
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
	return log.Logger
}
