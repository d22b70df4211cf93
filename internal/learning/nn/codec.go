package nn

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldSizes  protowire.Number = 1 // packed varints
	fieldLayer  protowire.Number = 2 // packed doubles, one per weight layer
	maxNeurons                   = 1 << 20
)

// MarshalBinary encodes the layer sizes and weights in protobuf wire format.
// Momentum state is not persisted.
func (n *Network) MarshalBinary() ([]byte, error) {
	var sizes []byte
	for _, s := range n.sizes {
		sizes = protowire.AppendVarint(sizes, uint64(s))
	}

	var b []byte
	b = protowire.AppendTag(b, fieldSizes, protowire.BytesType)
	b = protowire.AppendBytes(b, sizes)
	for _, w := range n.weights {
		packed := make([]byte, 0, 8*len(w))
		for _, v := range w {
			packed = protowire.AppendFixed64(packed, math.Float64bits(v))
		}
		b = protowire.AppendTag(b, fieldLayer, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b, nil
}

// UnmarshalBinary replaces n with the network encoded in data.
func (n *Network) UnmarshalBinary(data []byte) error {
	var sizes []int
	var layers [][]byte

	for len(data) > 0 {
		num, typ, m := protowire.ConsumeTag(data)
		if m < 0 {
			return malformed(m)
		}
		data = data[m:]

		if typ != protowire.BytesType || (num != fieldSizes && num != fieldLayer) {
			m = protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return malformed(m)
			}
			data = data[m:]
			continue
		}

		v, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return malformed(m)
		}
		data = data[m:]

		if num == fieldLayer {
			layers = append(layers, v)
			continue
		}
		for len(v) > 0 {
			s, k := protowire.ConsumeVarint(v)
			if k < 0 {
				return malformed(k)
			}
			if s == 0 || s > maxNeurons {
				return fmt.Errorf("%w: layer size %d", ErrMalformedNetwork, s)
			}
			v = v[k:]
			sizes = append(sizes, int(s))
		}
	}

	if len(sizes) < 2 || len(layers) != len(sizes)-1 {
		return fmt.Errorf("%w: %d weight layers for %d layer sizes", ErrMalformedNetwork, len(layers), len(sizes))
	}
	// Lengths are checked before newEmpty allocates anything.
	for l, packed := range layers {
		if want := 8 * (sizes[l] + 1) * sizes[l+1]; len(packed) != want {
			return fmt.Errorf("%w: layer %d has %d bytes, want %d", ErrMalformedNetwork, l, len(packed), want)
		}
	}

	decoded, err := newEmpty(sizes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedNetwork, err)
	}
	for l, packed := range layers {
		w := decoded.weights[l]
		for i := range w {
			bits, k := protowire.ConsumeFixed64(packed)
			if k < 0 {
				return malformed(k)
			}
			packed = packed[k:]
			w[i] = math.Float64frombits(bits)
		}
	}

	*n = *decoded
	return nil
}

func malformed(code int) error {
	return fmt.Errorf("%w: %v", ErrMalformedNetwork, protowire.ParseError(code))
}
