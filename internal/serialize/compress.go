// Package serialize builds the compressed payloads of the Airport catalog
// actions: MessagePack values compressed with ZStandard and wrapped as
// [uncompressed length, compressed bytes].
package serialize

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	encoderErr  error

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

// Compress compresses data with ZStandard at the default level.
// Safe for concurrent use.
func Compress(data []byte) ([]byte, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	if encoderErr != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", encoderErr)
	}
	if len(data) == 0 {
		return []byte{}, nil
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress reverses Compress.
func Decompress(compressed []byte) ([]byte, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	if decoderErr != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", decoderErr)
	}
	if len(compressed) == 0 {
		return []byte{}, nil
	}
	out, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}
