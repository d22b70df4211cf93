// Package nn is a small fully connected sigmoid network trained with
// stochastic gradient descent and momentum. The learning agent treats it as an
// opaque function approximator: inputs in, one value in [0,1] per output out.
package nn

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/rand"
)

var (
	// ErrInvalidLayout is returned for layer sizes that cannot form a network
	ErrInvalidLayout = errors.New("invalid network layout")
	// ErrShapeMismatch is returned when an input, target or peer network has the wrong size
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrMalformedNetwork is returned when a network blob cannot be decoded
	ErrMalformedNetwork = errors.New("malformed network blob")
)

// Sample is one supervised training pair.
type Sample struct {
	Input  []float64
	Target []float64
}

// Network is a multilayer perceptron. Each layer's weights are stored row per
// output neuron, with the bias as the last entry of the row.
//
// A Network keeps scratch activations between calls and is not safe for
// concurrent use.
type Network struct {
	sizes    []int
	weights  [][]float64
	velocity [][]float64

	acts   [][]float64
	deltas [][]float64
}

// New creates a network with the given layer sizes (input first, output last)
// and weights drawn uniformly from ±1/sqrt(fan-in).
func New(sizes []int, rng *rand.Rand) (*Network, error) {
	n, err := newEmpty(sizes)
	if err != nil {
		return nil, err
	}
	for l, w := range n.weights {
		limit := 1 / math.Sqrt(float64(sizes[l]+1))
		for i := range w {
			w[i] = (2*rng.Float64() - 1) * limit
		}
	}
	return n, nil
}

func newEmpty(sizes []int) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least input and output layers, got %d", ErrInvalidLayout, len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("%w: layer %d has size %d", ErrInvalidLayout, i, s)
		}
	}

	n := &Network{
		sizes:    append([]int(nil), sizes...),
		weights:  make([][]float64, len(sizes)-1),
		velocity: make([][]float64, len(sizes)-1),
		acts:     make([][]float64, len(sizes)),
		deltas:   make([][]float64, len(sizes)),
	}
	for l := 0; l < len(sizes)-1; l++ {
		n.weights[l] = make([]float64, (sizes[l]+1)*sizes[l+1])
		n.velocity[l] = make([]float64, len(n.weights[l]))
	}
	for l, s := range sizes {
		n.acts[l] = make([]float64, s)
		n.deltas[l] = make([]float64, s)
	}
	return n, nil
}

// Sizes returns a copy of the layer sizes.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Inputs returns the input layer size.
func (n *Network) Inputs() int { return n.sizes[0] }

// Outputs returns the output layer size.
func (n *Network) Outputs() int { return n.sizes[len(n.sizes)-1] }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (n *Network) forward(input []float64) {
	copy(n.acts[0], input)
	for l, w := range n.weights {
		in, out := n.acts[l], n.acts[l+1]
		stride := len(in) + 1
		for j := range out {
			row := w[j*stride : (j+1)*stride]
			sum := row[len(in)]
			for i, a := range in {
				sum += row[i] * a
			}
			out[j] = sigmoid(sum)
		}
	}
}

// Predict runs the network on input and returns a fresh output slice.
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != n.Inputs() {
		return nil, fmt.Errorf("%w: input has %d values, want %d", ErrShapeMismatch, len(input), n.Inputs())
	}
	n.forward(input)
	return append([]float64(nil), n.acts[len(n.acts)-1]...), nil
}

// Train runs one pass of per-sample gradient descent over samples and returns
// the mean squared error measured before each update.
func (n *Network) Train(samples []Sample, rate, momentum float64) (float64, error) {
	for i, s := range samples {
		if len(s.Input) != n.Inputs() || len(s.Target) != n.Outputs() {
			return 0, fmt.Errorf("%w: sample %d has %d inputs and %d targets, want %d and %d",
				ErrShapeMismatch, i, len(s.Input), len(s.Target), n.Inputs(), n.Outputs())
		}
	}
	if len(samples) == 0 {
		return 0, nil
	}

	var sse float64
	for _, s := range samples {
		sse += n.step(s, rate, momentum)
	}
	return sse / float64(len(samples)*n.Outputs()), nil
}

func (n *Network) step(s Sample, rate, momentum float64) float64 {
	n.forward(s.Input)

	last := len(n.sizes) - 1
	var sse float64
	for j, o := range n.acts[last] {
		diff := s.Target[j] - o
		sse += diff * diff
		n.deltas[last][j] = diff * o * (1 - o)
	}

	for l := last - 1; l >= 1; l-- {
		w := n.weights[l]
		stride := n.sizes[l] + 1
		for i, a := range n.acts[l] {
			var sum float64
			for j, d := range n.deltas[l+1] {
				sum += w[j*stride+i] * d
			}
			n.deltas[l][i] = sum * a * (1 - a)
		}
	}

	for l, w := range n.weights {
		in := n.acts[l]
		v := n.velocity[l]
		stride := len(in) + 1
		for j, d := range n.deltas[l+1] {
			base := j * stride
			for i, a := range in {
				v[base+i] = rate*d*a + momentum*v[base+i]
				w[base+i] += v[base+i]
			}
			v[base+len(in)] = rate*d + momentum*v[base+len(in)]
			w[base+len(in)] += v[base+len(in)]
		}
	}
	return sse
}

// CopyFrom overwrites n's weights with other's. Momentum state is reset.
func (n *Network) CopyFrom(other *Network) error {
	if !slices.Equal(n.sizes, other.sizes) {
		return fmt.Errorf("%w: layouts %v and %v", ErrShapeMismatch, n.sizes, other.sizes)
	}
	for l := range n.weights {
		copy(n.weights[l], other.weights[l])
		clear(n.velocity[l])
	}
	return nil
}

// Clone returns an independent copy with the same weights.
func (n *Network) Clone() *Network {
	c, _ := newEmpty(n.sizes)
	for l := range n.weights {
		copy(c.weights[l], n.weights[l])
		copy(c.velocity[l], n.velocity[l])
	}
	return c
}
