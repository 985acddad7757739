package types

import (
	"encoding/json"
	"fmt"
)

// Composition is an item's full trait selection: one variant index per
// category index. Compositions are owned by the calling service; the engine
// only reads and returns them.
//
// Composition marshals to a JSON array of numbers rather than the base64
// string encoding/json uses for byte slices.
type Composition []uint8

// Clone returns a copy of c that shares no memory with it.
func (c Composition) Clone() Composition {
	if c == nil {
		return nil
	}
	return append(make(Composition, 0, len(c)), c...)
}

// MarshalJSON implements json.Marshaler.
func (c Composition) MarshalJSON() ([]byte, error) {
	return marshalByteList(c)
}

// UnmarshalJSON implements json.Unmarshaler. Values outside 0-255 fail with
// ErrInvalidComposition.
func (c *Composition) UnmarshalJSON(data []byte) error {
	out, err := unmarshalByteList(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidComposition, err)
	}
	*c = out
	return nil
}

// Indices is a list of single-byte indices, such as the categories skipped
// during rolling. It marshals like Composition.
type Indices []uint8

// MarshalJSON implements json.Marshaler.
func (x Indices) MarshalJSON() ([]byte, error) {
	return marshalByteList(x)
}

// UnmarshalJSON implements json.Unmarshaler.
func (x *Indices) UnmarshalJSON(data []byte) error {
	out, err := unmarshalByteList(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	*x = out
	return nil
}

func marshalByteList(b []uint8) ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func unmarshalByteList(data []byte) ([]uint8, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, err
	}
	if ints == nil {
		return nil, nil
	}
	out := make([]uint8, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("value %d at position %d is out of byte range", v, i)
		}
		out[i] = uint8(v)
	}
	return out, nil
}
