package experience

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrStateNotFound is returned when no state has been persisted under a key
	ErrStateNotFound = errors.New("agent state not found")
	// ErrMalformedState is returned when a persisted blob cannot be decoded
	ErrMalformedState = errors.New("malformed agent state")
	// ErrInvalidKey is returned for keys that are empty or would escape the store directory
	ErrInvalidKey = errors.New("invalid state key")
)

// StateFileExt is appended to every key by the file store.
const StateFileExt = ".state"

// StateKey names the state of an agent trained on a given board size.
func StateKey(name string, width, height int) string {
	return fmt.Sprintf("%s-%dx%d", name, width, height)
}

// StateStore loads and saves agent state blobs by key.
type StateStore interface {
	// Load returns ErrStateNotFound if nothing was saved under key
	Load(key string) (*AgentState, error)

	// Save replaces whatever was stored under key
	Save(key string, state *AgentState) error

	// Stats returns persistence statistics
	Stats() PersistenceStats
}

// PersistenceStats contains statistics about persistence operations
type PersistenceStats struct {
	TotalWritten  int64
	TotalRead     int64
	BytesWritten  int64
	BytesRead     int64
	WriteErrors   int64
	ReadErrors    int64
	LastWriteTime time.Time
	LastReadTime  time.Time
}

// NewStateStore returns a file store rooted at dir, or a NullStore when dir is empty.
func NewStateStore(dir string, logger zerolog.Logger) (StateStore, error) {
	if dir == "" {
		return &NullStore{}, nil
	}
	return NewFileStore(dir, logger)
}

// FileStore keeps one file per key under a base directory. Writes go to a
// temporary file that is renamed over the target, so a crash never leaves a
// truncated blob behind.
type FileStore struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	stats PersistenceStats
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileStore{
		dir:    dir,
		logger: logger.With().Str("component", "state_store").Logger(),
	}, nil
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+StateFileExt)
}

func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Load reads and decodes the blob stored under key.
func (s *FileStore) Load(key string) (*AgentState, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, path)
		}
		s.stats.ReadErrors++
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state := &AgentState{}
	if err := state.UnmarshalBinary(data); err != nil {
		s.stats.ReadErrors++
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	s.stats.TotalRead++
	s.stats.BytesRead += int64(len(data))
	s.stats.LastReadTime = time.Now()

	s.logger.Debug().
		Str("file", path).
		Uint64("games_played", state.GamesPlayed).
		Int("transitions", len(state.Transitions)).
		Msg("Loaded agent state")

	return state, nil
}

// Save encodes state and atomically replaces the file for key.
func (s *FileStore) Save(key string, state *AgentState) error {
	if err := validKey(key); err != nil {
		return err
	}

	data, err := state.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode agent state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	if err := writeFileAtomic(path, data); err != nil {
		s.stats.WriteErrors++
		return err
	}

	s.stats.TotalWritten++
	s.stats.BytesWritten += int64(len(data))
	s.stats.LastWriteTime = time.Now()

	s.logger.Info().
		Str("file", path).
		Int("bytes", len(data)).
		Uint64("games_played", state.GamesPlayed).
		Msg("Saved agent state")

	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Stats returns persistence statistics
func (s *FileStore) Stats() PersistenceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// NullStore never finds anything and discards saves.
type NullStore struct{}

func (n *NullStore) Load(key string) (*AgentState, error) {
	return nil, fmt.Errorf("%w: %s", ErrStateNotFound, key)
}

func (n *NullStore) Save(key string, state *AgentState) error {
	return nil
}

func (n *NullStore) Stats() PersistenceStats {
	return PersistenceStats{}
}
