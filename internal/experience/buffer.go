package experience

import (
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// DefaultCapacity is used when a buffer is created with a non-positive capacity.
const DefaultCapacity = 10000

var (
	// ErrEmptyBuffer is returned when sampling from a buffer with no transitions
	ErrEmptyBuffer = errors.New("replay buffer is empty")
)

// Transition is one observed step of a learning agent: the encoded state before
// the move, the chosen column, the immediate reward and the encoded state after
// the opponent replied.
type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
}

// Buffer is a fixed-capacity FIFO ring of transitions. When full, adding a
// transition evicts the oldest one.
//
// Buffer is not safe for concurrent use; a learning agent owns its buffer and
// drives it from the sequential game loop.
type Buffer struct {
	items    []Transition
	capacity int
	size     int
	head     int // next write position

	totalAdded   int64
	totalDropped int64

	logger zerolog.Logger
}

// NewBuffer creates a replay buffer holding at most capacity transitions.
func NewBuffer(capacity int, logger zerolog.Logger) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Buffer{
		items:    make([]Transition, capacity),
		capacity: capacity,
		logger:   logger.With().Str("component", "replay_buffer").Logger(),
	}
}

// Add appends a transition, dropping the oldest one if the buffer is full.
func (b *Buffer) Add(t Transition) {
	if b.size >= b.capacity {
		b.totalDropped++
		if b.totalDropped%int64(b.capacity) == 1 {
			b.logger.Debug().
				Int64("dropped_total", b.totalDropped).
				Msg("Buffer full, dropping oldest transitions")
		}
	} else {
		b.size++
	}

	b.items[b.head] = t
	b.head = (b.head + 1) % b.capacity
	b.totalAdded++
}

// AddBatch appends transitions in order.
func (b *Buffer) AddBatch(ts []Transition) {
	for _, t := range ts {
		b.Add(t)
	}
}

// tail is the index of the oldest stored transition.
func (b *Buffer) tail() int {
	return (b.head - b.size + b.capacity) % b.capacity
}

// At returns the i-th stored transition, 0 being the oldest.
func (b *Buffer) At(i int) (Transition, bool) {
	if i < 0 || i >= b.size {
		return Transition{}, false
	}
	return b.items[(b.tail()+i)%b.capacity], true
}

// All returns the stored transitions from oldest to newest without removing them.
func (b *Buffer) All() []Transition {
	result := make([]Transition, b.size)
	for i := range result {
		result[i], _ = b.At(i)
	}
	return result
}

// Sample draws n transitions uniformly at random with replacement.
func (b *Buffer) Sample(n int, rng *rand.Rand) ([]Transition, error) {
	if b.size == 0 {
		return nil, ErrEmptyBuffer
	}
	if n <= 0 {
		return nil, nil
	}

	result := make([]Transition, n)
	tail := b.tail()
	for i := range result {
		result[i] = b.items[(tail+rng.Intn(b.size))%b.capacity]
	}
	return result, nil
}

// Size returns the current number of transitions in the buffer
func (b *Buffer) Size() int {
	return b.size
}

// Stats returns buffer statistics
func (b *Buffer) Stats() BufferStats {
	return BufferStats{
		CurrentSize:    b.size,
		Capacity:       b.capacity,
		TotalAdded:     b.totalAdded,
		TotalDropped:   b.totalDropped,
		UtilizationPct: float64(b.size) / float64(b.capacity) * 100,
	}
}

// BufferStats contains buffer statistics
type BufferStats struct {
	CurrentSize    int
	Capacity       int
	TotalAdded     int64
	TotalDropped   int64
	UtilizationPct float64
}
