package shc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericCodec(t *testing.T) {
	t.Run("Round trips the token alphabet", func(t *testing.T) {
		token := "abcXYZ019-_."
		digits, err := numericEncode(token)
		assert.NoError(t, err)
		assert.Len(t, digits, 2*len(token))

		decoded, err := numericDecode(digits)
		assert.NoError(t, err)
		assert.Equal(t, token, decoded)
	})

	t.Run("Known mapping", func(t *testing.T) {
		// '-' is ASCII 45, the bottom of the window
		digits, err := numericEncode("-X")
		assert.NoError(t, err)
		assert.Equal(t, "0043", digits)
	})

	t.Run("Character below the window", func(t *testing.T) {
		_, err := numericEncode("a b")
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedChunk)
	})

	t.Run("Odd digit count", func(t *testing.T) {
		_, err := numericDecode("123")
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedChunk)
	})

	t.Run("Non-digit group", func(t *testing.T) {
		_, err := numericDecode("12a4")
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedChunk)
	})
}

func TestSplit(t *testing.T) {
	t.Run("Single chunk uses bare prefix", func(t *testing.T) {
		chunks, err := Split("abc.def", 100)
		assert.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, 1, chunks[0].Index)
		assert.Equal(t, 1, chunks[0].Total)
		assert.True(t, strings.HasPrefix(chunks[0].String(), ChunkPrefix))
		assert.NotContains(t, chunks[0].String()[len(ChunkPrefix):], "/")
	})

	t.Run("Boundary produces exactly one then exactly two chunks", func(t *testing.T) {
		maxChars := 40
		token := strings.Repeat("a", maxChars/2)

		chunks, err := Split(token, maxChars)
		assert.NoError(t, err)
		assert.Len(t, chunks, 1)
		assert.Len(t, chunks[0].NumericBody, maxChars)

		chunks, err = Split(token+"a", maxChars)
		assert.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("Multi chunk prefixes carry index and total", func(t *testing.T) {
		token := strings.Repeat("abc.", 30)
		chunks, err := Split(token, 50)
		assert.NoError(t, err)
		require.Greater(t, len(chunks), 1)

		for i, chunk := range chunks {
			assert.Equal(t, i+1, chunk.Index)
			assert.Equal(t, len(chunks), chunk.Total)
			assert.LessOrEqual(t, len(chunk.NumericBody), 50)
			expectedPrefix := fmt.Sprintf("%s%d/%d/", ChunkPrefix, i+1, len(chunks))
			assert.True(t, strings.HasPrefix(chunk.String(), expectedPrefix))
		}
	})

	t.Run("Chunks reassemble to the original token", func(t *testing.T) {
		token := strings.Repeat("xYz-._", 40)
		chunks, err := Split(token, 60)
		assert.NoError(t, err)

		recovered, err := Reassemble(chunks)
		assert.NoError(t, err)
		assert.Equal(t, token, recovered)
	})

	t.Run("Empty token", func(t *testing.T) {
		_, err := Split("", 100)
		assert.Error(t, err)
	})

	t.Run("Character outside the alphabet", func(t *testing.T) {
		_, err := Split("abc def", 100)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedChunk)
	})
}

func TestParseChunk(t *testing.T) {
	t.Run("Bare single chunk form", func(t *testing.T) {
		chunk, err := ParseChunk("shc:/5676290952")
		assert.NoError(t, err)
		assert.Equal(t, 1, chunk.Index)
		assert.Equal(t, 1, chunk.Total)
		assert.Equal(t, "5676290952", chunk.NumericBody)
	})

	t.Run("Indexed multi chunk form", func(t *testing.T) {
		chunk, err := ParseChunk("shc:/2/3/5676290952")
		assert.NoError(t, err)
		assert.Equal(t, 2, chunk.Index)
		assert.Equal(t, 3, chunk.Total)
		assert.Equal(t, "5676290952", chunk.NumericBody)
	})

	t.Run("Render and parse round trip", func(t *testing.T) {
		for _, chunk := range []QRChunk{
			{Index: 1, Total: 1, NumericBody: "001122"},
			{Index: 3, Total: 7, NumericBody: "998877"},
		} {
			parsed, err := ParseChunk(chunk.String())
			assert.NoError(t, err)
			assert.Equal(t, chunk, *parsed)
		}
	})

	t.Run("Bad payloads", func(t *testing.T) {
		for _, payload := range []string{
			"",
			"https://example.org",
			"shc:/",
			"shc:/1/2",
			"shc:/x/2/1234",
			"shc:/1/y/1234",
			"shc:/1/2/",
		} {
			_, err := ParseChunk(payload)
			assert.Error(t, err, "payload: %q", payload)
			assert.ErrorIs(t, err, ErrMalformedChunk)
		}
	})
}

// testToken builds a non-periodic token so distinct chunks never share a body.
func testToken(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_."
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}

func TestReassemble(t *testing.T) {
	mustSplit := func(t *testing.T, token string, maxChars int) []QRChunk {
		chunks, err := Split(token, maxChars)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 2)
		return chunks
	}

	t.Run("Order independence across permutations", func(t *testing.T) {
		token := testToken(160)
		chunks := mustSplit(t, token, 80)
		require.Len(t, chunks, 4)

		permute(chunks, func(perm []QRChunk) {
			recovered, err := Reassemble(perm)
			assert.NoError(t, err)
			assert.Equal(t, token, recovered)
		})
	})

	t.Run("Missing chunk", func(t *testing.T) {
		chunks := mustSplit(t, testToken(160), 80)
		_, err := Reassemble(chunks[1:])
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
		assert.True(t, IsRecoverable(err))
	})

	t.Run("Duplicate chunk with identical body is tolerated", func(t *testing.T) {
		token := testToken(160)
		chunks := mustSplit(t, token, 80)
		recovered, err := Reassemble(append(chunks, chunks[0]))
		assert.NoError(t, err)
		assert.Equal(t, token, recovered)
	})

	t.Run("Duplicate index with conflicting body", func(t *testing.T) {
		chunks := mustSplit(t, testToken(160), 80)
		conflicting := chunks[0]
		conflicting.NumericBody = chunks[1].NumericBody
		_, err := Reassemble(append(chunks, conflicting))
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
	})

	t.Run("Disagreeing totals", func(t *testing.T) {
		chunks := mustSplit(t, testToken(160), 80)
		chunks[1].Total++
		_, err := Reassemble(chunks)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
	})

	t.Run("Index out of range", func(t *testing.T) {
		chunks := mustSplit(t, testToken(160), 80)
		chunks[0].Index = chunks[0].Total + 1
		_, err := Reassemble(chunks)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
	})

	t.Run("Empty set", func(t *testing.T) {
		_, err := Reassemble(nil)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
	})
}

// permute calls fn with every permutation of chunks.
func permute(chunks []QRChunk, fn func([]QRChunk)) {
	var recurse func(k int)
	recurse = func(k int) {
		if k == len(chunks) {
			perm := make([]QRChunk, len(chunks))
			copy(perm, chunks)
			fn(perm)
			return
		}
		for i := k; i < len(chunks); i++ {
			chunks[k], chunks[i] = chunks[i], chunks[k]
			recurse(k + 1)
			chunks[k], chunks[i] = chunks[i], chunks[k]
		}
	}
	recurse(0)
}
