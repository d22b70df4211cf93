// Package monitoring reports progress and goroutine usage while a long match
// runs. The game loop records results; a background ticker logs them.
package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/ConnectNReinforcementLearning/internal/game/core"
)

const DefaultInterval = 10 * time.Second

// ProgressMonitor tracks completed games and goroutine counts
type ProgressMonitor struct {
	mu        sync.RWMutex
	total     int
	completed int
	results   map[core.Outcome]int
	started   time.Time

	baseline int
	current  int
	peak     int

	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewProgressMonitor creates a monitor for a match of total games. A
// non-positive interval uses DefaultInterval.
func NewProgressMonitor(total int, interval time.Duration, logger zerolog.Logger) *ProgressMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	baseline := runtime.NumGoroutine()
	return &ProgressMonitor{
		total:    total,
		results:  make(map[core.Outcome]int),
		baseline: baseline,
		current:  baseline,
		peak:     baseline,
		interval: interval,
		logger:   logger.With().Str("component", "progress_monitor").Logger(),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins periodic reporting
func (pm *ProgressMonitor) Start() {
	pm.mu.Lock()
	pm.started = time.Now()
	pm.mu.Unlock()

	go pm.monitor()
	pm.logger.Info().
		Int("games", pm.total).
		Int("baseline_goroutines", pm.baseline).
		Msg("Started progress monitoring")
}

// Stop ends reporting and logs a final report. It is safe to call more than once.
func (pm *ProgressMonitor) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
		<-pm.doneChan
		pm.report()
	})
}

func (pm *ProgressMonitor) monitor() {
	defer close(pm.doneChan)

	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pm.report()
		case <-pm.stopChan:
			return
		}
	}
}

// Observe records one finished game. It is called from the game loop.
func (pm *ProgressMonitor) Observe(o core.Outcome) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.completed++
	pm.results[o]++
	pm.sampleGoroutines()
}

// sampleGoroutines expects pm.mu to be held.
func (pm *ProgressMonitor) sampleGoroutines() {
	pm.current = runtime.NumGoroutine()
	if pm.current > pm.peak {
		pm.peak = pm.current
	}
}

func (pm *ProgressMonitor) report() {
	m := pm.Metrics()
	pm.logger.Info().
		Int("completed", m.Completed).
		Int("total", m.Total).
		Float64("percent", m.Percent()).
		Float64("games_per_sec", m.GamesPerSecond()).
		Int("player1_wins", m.Player1Wins).
		Int("draws", m.Draws).
		Int("player2_wins", m.Player2Wins).
		Int("goroutines", m.Goroutines).
		Int("peak_goroutines", m.PeakGoroutines).
		Msg("Match progress")
}

// Metrics returns a snapshot of the monitor's counters
func (pm *ProgressMonitor) Metrics() ProgressMetrics {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.sampleGoroutines()

	var elapsed time.Duration
	if !pm.started.IsZero() {
		elapsed = time.Since(pm.started)
	}
	return ProgressMetrics{
		Total:          pm.total,
		Completed:      pm.completed,
		Player1Wins:    pm.results[core.Win(core.Player1)],
		Draws:          pm.results[core.Draw],
		Player2Wins:    pm.results[core.Win(core.Player2)],
		Elapsed:        elapsed,
		Goroutines:     pm.current,
		BaseGoroutines: pm.baseline,
		PeakGoroutines: pm.peak,
	}
}

// ProgressMetrics contains match progress statistics
type ProgressMetrics struct {
	Total          int           `json:"total"`
	Completed      int           `json:"completed"`
	Player1Wins    int           `json:"player1_wins"`
	Draws          int           `json:"draws"`
	Player2Wins    int           `json:"player2_wins"`
	Elapsed        time.Duration `json:"elapsed"`
	Goroutines     int           `json:"goroutines"`
	BaseGoroutines int           `json:"base_goroutines"`
	PeakGoroutines int           `json:"peak_goroutines"`
}

func (m ProgressMetrics) Percent() float64 {
	if m.Total <= 0 {
		return 0
	}
	return float64(m.Completed) / float64(m.Total) * 100
}

func (m ProgressMetrics) GamesPerSecond() float64 {
	if m.Elapsed <= 0 {
		return 0
	}
	return float64(m.Completed) / m.Elapsed.Seconds()
}
