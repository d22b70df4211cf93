package testutil

import (
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// NewTestRNG creates a deterministic random number generator for tests
func NewTestRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NopLogger returns a no-op logger for tests
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// TestLogger routes log output through t.Log, so it only shows for failing
// or verbose tests.
func TestLogger(t testing.TB) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}
