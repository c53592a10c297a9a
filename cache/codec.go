package cache

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/vmihailenco/msgpack/v5"
)

// Cached payloads carry a one-byte framing header so the decoder knows
// whether the msgpack body was compressed.
const (
	frameRaw byte = 0
	frameS2  byte = 1
)

// Codec serializes cached values with msgpack, transparently compressing
// payloads above the threshold with s2. Threshold <= 0 disables compression.
type Codec struct {
	CompressAbove int
}

// Encode serializes v into a framed payload
func (c Codec) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}

	body := buf.Bytes()
	if c.CompressAbove > 0 && len(body) > c.CompressAbove {
		compressed := s2.Encode(nil, body)
		if len(compressed) < len(body) {
			return append([]byte{frameS2}, compressed...), nil
		}
	}
	return append([]byte{frameRaw}, body...), nil
}

// Decode deserializes a framed payload into v
func (c Codec) Decode(data []byte, v interface{}) error {
	if len(data) < 1 {
		return fmt.Errorf("cache payload too short")
	}

	body := data[1:]
	switch data[0] {
	case frameRaw:
	case frameS2:
		decoded, err := s2.Decode(nil, body)
		if err != nil {
			return fmt.Errorf("failed to decompress cache payload: %w", err)
		}
		body = decoded
	default:
		return fmt.Errorf("unknown cache frame marker: %d", data[0])
	}

	dec := msgpack.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}
