// Package msgpack wraps the MessagePack codec used for tickets and Airport
// action payloads.
package msgpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Decode deserializes MessagePack data into v, which must be a pointer.
//
// Example:
//
//	var req struct {
//	    Schema string `msgpack:"schema"`
//	    Table  string `msgpack:"table"`
//	}
//	err := msgpack.Decode(body, &req)
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty MessagePack data")
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	return nil
}

// Encode serializes v into MessagePack format.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	return data, nil
}

// DecodeOptional is Decode for payloads that may be empty, in which case v
// is left untouched.
func DecodeOptional(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return Decode(data, v)
}
