package cache

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codecFixture struct {
	Name  string `msgpack:"name"`
	Body  string `msgpack:"body"`
	Views int64  `msgpack:"views"`
}

func TestCodec_RoundTrip(t *testing.T) {
	c := Codec{}

	in := codecFixture{Name: "post", Body: "hello", Views: 42}
	data, err := c.Encode(&in)
	require.NoError(t, err)
	assert.Equal(t, byte(frameRaw), data[0], "small payload should use the raw frame")

	var out codecFixture
	require.NoError(t, c.Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestCodec_CompressesLargePayloads(t *testing.T) {
	c := Codec{CompressAbove: 256}

	in := codecFixture{Name: "post", Body: strings.Repeat("lorem ipsum ", 500)}
	data, err := c.Encode(&in)
	require.NoError(t, err)
	require.Equal(t, byte(frameS2), data[0], "expected compressed frame")
	assert.Less(t, len(data), 6000, "repetitive payload should compress well")

	var out codecFixture
	require.NoError(t, c.Decode(data, &out))
	assert.Equal(t, in.Body, out.Body)
}

func TestCodec_CompressionDisabled(t *testing.T) {
	c := Codec{CompressAbove: 0}

	in := codecFixture{Body: strings.Repeat("lorem ipsum ", 500)}
	data, err := c.Encode(&in)
	require.NoError(t, err)
	assert.Equal(t, byte(frameRaw), data[0], "threshold 0 disables compression")
}

func TestCodec_RejectsMalformedPayloads(t *testing.T) {
	c := Codec{}

	assert.Error(t, c.Decode(nil, &codecFixture{}), "empty payload")
	assert.Error(t, c.Decode([]byte{99, 0, 0}, &codecFixture{}), "unknown frame marker")
	corrupt := append([]byte{frameS2}, bytes.Repeat([]byte{0xFF}, 8)...)
	assert.Error(t, c.Decode(corrupt, &codecFixture{}), "corrupt compressed body")
}
