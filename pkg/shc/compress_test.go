package shc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressRoundTrip(t *testing.T) {
	t.Run("Round trips JSON text", func(t *testing.T) {
		payload := `{"iss":"https://example.org/shc","nbf":1620000000}`
		compressed, err := Compress(payload)
		assert.NoError(t, err)
		assert.NotEmpty(t, compressed)

		inflated, err := Decompress(compressed)
		assert.NoError(t, err)
		assert.Equal(t, payload, inflated)
	})

	t.Run("Compression shrinks repetitive payloads", func(t *testing.T) {
		payload := `{"entry":[{"resource":{"resourceType":"Immunization"}},{"resource":{"resourceType":"Immunization"}}]}`
		compressed, err := Compress(payload)
		assert.NoError(t, err)
		assert.Less(t, len(compressed), len(payload))
	})

	t.Run("Output carries no zlib wrapper", func(t *testing.T) {
		compressed, err := Compress(`{"a":1}`)
		assert.NoError(t, err)
		// 0x78 is the zlib CMF byte for deflate with a 32k window
		assert.NotEqual(t, byte(0x78), compressed[0])
	})
}

func TestDecompressMalformed(t *testing.T) {
	t.Run("Garbage bytes", func(t *testing.T) {
		_, err := Decompress([]byte{0xde, 0xad, 0xbe, 0xef})
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("Truncated stream", func(t *testing.T) {
		compressed, err := Compress(`{"iss":"https://example.org/shc"}`)
		assert.NoError(t, err)

		_, err = Decompress(compressed[:len(compressed)/2])
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("Inflates but is not UTF-8", func(t *testing.T) {
		compressed, err := Compress(string([]byte{0xff, 0xfe, 0x01}))
		assert.NoError(t, err)

		_, err = Decompress(compressed)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}
