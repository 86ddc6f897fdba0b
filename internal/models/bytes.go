package models

import (
	"encoding/json"
	"fmt"
)

// ByteArray marshals as a JSON array of integers instead of base64, the
// format used for iv and salt in persisted records.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	if ints == nil {
		*b = nil
		return nil
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value out of range at %d: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
