package serialize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/hugr-lab/airport-solr/internal/msgpack"
)

// Content encodes v as MessagePack, compresses it and wraps the result in
// the two-element array the Airport extension expects.
func Content(v any) ([]byte, error) {
	raw, err := msgpack.Encode(v)
	if err != nil {
		return nil, err
	}
	compressed, err := Compress(raw)
	if err != nil {
		return nil, err
	}
	// Encoded as an array, not a map.
	return msgpack.Encode([]any{uint32(len(raw)), string(compressed)})
}

// ContentWithHash is Content plus the hex SHA-256 of the result, used to
// let clients cache schema contents.
func ContentWithHash(v any) (content []byte, hash string, err error) {
	content, err = Content(v)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(content)
	return content, hex.EncodeToString(sum[:]), nil
}

// DecodeContent reverses Content into v.
func DecodeContent(content []byte, v any) error {
	var wrapper []any
	if err := msgpack.Decode(content, &wrapper); err != nil {
		return err
	}
	if len(wrapper) != 2 {
		return fmt.Errorf("expected [length, data], got %d elements", len(wrapper))
	}
	var compressed []byte
	switch d := wrapper[1].(type) {
	case string:
		compressed = []byte(d)
	case []byte:
		compressed = d
	default:
		return fmt.Errorf("unexpected data element %T", wrapper[1])
	}
	raw, err := Decompress(compressed)
	if err != nil {
		return err
	}
	return msgpack.Decode(raw, v)
}
