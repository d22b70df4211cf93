package experience

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// StateVersion is written into every agent state blob.
const StateVersion = 1

// Field numbers of the agent state message.
const (
	fieldVersion     protowire.Number = 1
	fieldWidth       protowire.Number = 2
	fieldHeight      protowire.Number = 3
	fieldGamesPlayed protowire.Number = 4
	fieldNetwork     protowire.Number = 5
	fieldTransition  protowire.Number = 6
)

// Field numbers of the nested transition message.
const (
	fieldTState     protowire.Number = 1
	fieldTAction    protowire.Number = 2
	fieldTReward    protowire.Number = 3
	fieldTNextState protowire.Number = 4
)

// AgentState is what a learning agent carries between runs: the board geometry
// it was trained for, its game counter, the opaque network blob and the replay
// buffer contents.
type AgentState struct {
	Width       int
	Height      int
	GamesPlayed uint64
	Network     []byte
	Transitions []Transition
}

// MarshalBinary encodes the state in protobuf wire format.
func (s *AgentState) MarshalBinary() ([]byte, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: geometry %dx%d", ErrMalformedState, s.Width, s.Height)
	}

	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, StateVersion)
	b = protowire.AppendTag(b, fieldWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Width))
	b = protowire.AppendTag(b, fieldHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Height))
	b = protowire.AppendTag(b, fieldGamesPlayed, protowire.VarintType)
	b = protowire.AppendVarint(b, s.GamesPlayed)
	b = protowire.AppendTag(b, fieldNetwork, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Network)

	for _, t := range s.Transitions {
		if t.Action < 0 {
			return nil, fmt.Errorf("%w: negative action %d", ErrMalformedState, t.Action)
		}
		b = protowire.AppendTag(b, fieldTransition, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalTransition(t))
	}
	return b, nil
}

// UnmarshalBinary decodes a blob written by MarshalBinary. Unknown fields are
// skipped; a missing or different version is rejected.
func (s *AgentState) UnmarshalBinary(data []byte) error {
	*s = AgentState{}
	var version uint64

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseErr(n)
		}
		data = data[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldVersion || num == fieldWidth || num == fieldHeight || num == fieldGamesPlayed):
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return parseErr(n)
			}
			data = data[n:]
			switch num {
			case fieldVersion:
				version = v
			case fieldWidth:
				s.Width = int(v)
			case fieldHeight:
				s.Height = int(v)
			case fieldGamesPlayed:
				s.GamesPlayed = v
			}
		case typ == protowire.BytesType && num == fieldNetwork:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return parseErr(n)
			}
			data = data[n:]
			s.Network = append([]byte(nil), v...)
		case typ == protowire.BytesType && num == fieldTransition:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return parseErr(n)
			}
			data = data[n:]
			t, err := unmarshalTransition(v)
			if err != nil {
				return err
			}
			s.Transitions = append(s.Transitions, t)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return parseErr(n)
			}
			data = data[n:]
		}
	}

	if version != StateVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrMalformedState, version, StateVersion)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: geometry %dx%d", ErrMalformedState, s.Width, s.Height)
	}
	return nil
}

func marshalTransition(t Transition) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTState, protowire.BytesType)
	b = protowire.AppendBytes(b, packFloats(t.State))
	b = protowire.AppendTag(b, fieldTAction, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Action))
	b = protowire.AppendTag(b, fieldTReward, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(t.Reward))
	b = protowire.AppendTag(b, fieldTNextState, protowire.BytesType)
	b = protowire.AppendBytes(b, packFloats(t.NextState))
	return b
}

func unmarshalTransition(data []byte) (Transition, error) {
	var t Transition
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return t, parseErr(n)
		}
		data = data[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldTState || num == fieldTNextState):
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, parseErr(n)
			}
			data = data[n:]
			floats, err := unpackFloats(v)
			if err != nil {
				return t, err
			}
			if num == fieldTState {
				t.State = floats
			} else {
				t.NextState = floats
			}
		case typ == protowire.VarintType && num == fieldTAction:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, parseErr(n)
			}
			data = data[n:]
			t.Action = int(v)
		case typ == protowire.Fixed64Type && num == fieldTReward:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return t, parseErr(n)
			}
			data = data[n:]
			t.Reward = math.Float64frombits(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return t, parseErr(n)
			}
			data = data[n:]
		}
	}
	return t, nil
}

// packFloats lays out values as consecutive little-endian fixed64 words, the
// same layout protobuf uses for packed repeated doubles.
func packFloats(values []float64) []byte {
	b := make([]byte, 0, 8*len(values))
	for _, v := range values {
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	return b
}

func unpackFloats(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: packed doubles of %d bytes", ErrMalformedState, len(data))
	}
	values := make([]float64, 0, len(data)/8)
	for len(data) > 0 {
		v, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return nil, parseErr(n)
		}
		data = data[n:]
		values = append(values, math.Float64frombits(v))
	}
	return values, nil
}

func parseErr(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedState, protowire.ParseError(n))
}
