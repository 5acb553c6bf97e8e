package shc

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticResolver(key *ecdsa.PrivateKey) KeyResolver {
	return KeyResolverFunc(func(_ string) (gocrypto.PublicKey, error) {
		return key.Public(), nil
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Run("Single chunk", func(t *testing.T) {
		key := knownTestKey(t)
		original := testCredential()

		payloads, err := Encode(original, key, "test-kid", MaxQRChunkChars, ES256)
		assert.NoError(t, err)
		require.Len(t, payloads, 1)

		decoded, err := Decode(payloads, staticResolver(key), ES256)
		assert.NoError(t, err)
		assert.Equal(t, original.Issuer, decoded.Issuer)
		assert.Equal(t, original.IssuedAt, decoded.IssuedAt)
		assert.Equal(t, original.Types, decoded.Types)
		assert.JSONEq(t, string(original.FHIRBundle), string(decoded.FHIRBundle))
	})

	t.Run("Multi chunk with shuffled arrival order", func(t *testing.T) {
		key := knownTestKey(t)
		original := testCredential()

		// a small chunk budget forces multiple symbols
		payloads, err := Encode(original, key, "test-kid", 200, ES256)
		assert.NoError(t, err)
		require.Greater(t, len(payloads), 1)

		shuffled := make([]string, 0, len(payloads))
		for i := len(payloads) - 1; i >= 0; i-- {
			shuffled = append(shuffled, payloads[i])
		}

		decoded, err := Decode(shuffled, staticResolver(key), ES256)
		assert.NoError(t, err)
		assert.Equal(t, original.Issuer, decoded.Issuer)
		assert.JSONEq(t, string(original.FHIRBundle), string(decoded.FHIRBundle))
	})

	t.Run("Missing chunk is recoverable", func(t *testing.T) {
		key := knownTestKey(t)
		payloads, err := Encode(testCredential(), key, "test-kid", 200, ES256)
		require.NoError(t, err)
		require.Greater(t, len(payloads), 1)

		_, err = Decode(payloads[1:], staticResolver(key), ES256)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
		assert.True(t, IsRecoverable(err))
	})
}

func TestDecodeTamperDetection(t *testing.T) {
	key := knownTestKey(t)
	payloads, err := Encode(testCredential(), key, "test-kid", MaxQRChunkChars, ES256)
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	// flip every digit of the numeric body in turn; no mutation may decode
	body := payloads[0][len(ChunkPrefix):]
	for i := 0; i < len(body); i++ {
		flipped := byte('0')
		if body[i] == '0' {
			flipped = '1'
		}
		mutated := ChunkPrefix + body[:i] + string(flipped) + body[i+1:]
		if mutated == payloads[0] {
			continue
		}

		decoded, err := Decode([]string{mutated}, staticResolver(key), ES256)
		assert.Error(t, err, "mutation at digit %d decoded successfully", i)
		assert.Nil(t, decoded)
		assert.False(t, IsRecoverable(err))
	}
}

func TestDecodeFailures(t *testing.T) {
	key := knownTestKey(t)

	t.Run("No payloads", func(t *testing.T) {
		_, err := Decode(nil, staticResolver(key), ES256)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrChunkCountMismatch)
	})

	t.Run("Nil resolver", func(t *testing.T) {
		payloads, err := Encode(testCredential(), key, "test-kid", MaxQRChunkChars, ES256)
		require.NoError(t, err)
		_, err = Decode(payloads, nil, ES256)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "resolver cannot be nil")
	})

	t.Run("Resolver failure", func(t *testing.T) {
		payloads, err := Encode(testCredential(), key, "test-kid", MaxQRChunkChars, ES256)
		require.NoError(t, err)

		failing := KeyResolverFunc(func(kid string) (gocrypto.PublicKey, error) {
			return nil, assert.AnError
		})
		_, err = Decode(payloads, failing, ES256)
		assert.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Wrong verification key", func(t *testing.T) {
		payloads, err := Encode(testCredential(), key, "test-kid", MaxQRChunkChars, ES256)
		require.NoError(t, err)

		otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		_, err = Decode(payloads, staticResolver(otherKey), ES256)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
		assert.False(t, IsRecoverable(err))
	})

	t.Run("Token without three segments", func(t *testing.T) {
		chunks, err := Split("not-a-jws", 100)
		require.NoError(t, err)

		_, err = Decode([]string{chunks[0].String()}, staticResolver(key), ES256)
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestKnownScenario(t *testing.T) {
	key := knownTestKey(t)
	cred := testCredential()

	payloads, err := Encode(cred, key, "test-kid", MaxQRChunkChars, ES256)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.True(t, strings.HasPrefix(payloads[0], "shc:/"))

	// recover the token and inspect the header segment
	chunk, err := ParseChunk(payloads[0])
	require.NoError(t, err)
	token, err := Reassemble([]QRChunk{*chunk})
	require.NoError(t, err)

	envelope, err := ParseCompact(token)
	require.NoError(t, err)

	headerBytes, err := base64.RawURLEncoding.DecodeString(envelope.HeaderB64)
	require.NoError(t, err)
	var header map[string]any
	require.NoError(t, json.Unmarshal(headerBytes, &header))
	assert.Equal(t, "ES256", header["alg"])
	assert.Equal(t, "DEF", header["zip"])
	assert.Equal(t, "test-kid", header["kid"])

	// decoding with the matching public key reproduces the bundle exactly
	decoded, err := Decode(payloads, staticResolver(key), ES256)
	require.NoError(t, err)
	assert.Equal(t, testBundle, string(decoded.FHIRBundle))
	assert.Equal(t, int64(1620000000), decoded.IssuedAt.Unix())
	assert.Equal(t, []string{HealthCardType}, decoded.Types)
}
