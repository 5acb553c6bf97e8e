package shc

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Header carries the protected JWS header fields a health card token uses.
type Header struct {
	Algorithm   string `json:"alg"`
	Compression string `json:"zip,omitempty"`
	KeyID       string `json:"kid,omitempty"`
}

// SignedEnvelope is a compact JWS: three unpadded base64url segments. The
// canonical token is the dot-joined concatenation of the segments, and the
// signature covers the ASCII bytes of header and payload segments exactly as
// they appear on the wire, not the decoded JSON.
type SignedEnvelope struct {
	HeaderB64    string
	PayloadB64   string
	SignatureB64 string
}

// Compact renders the canonical three-segment token.
func (e SignedEnvelope) Compact() string {
	return e.HeaderB64 + "." + e.PayloadB64 + "." + e.SignatureB64
}

// signingInput is the byte string the signature is computed over.
func (e SignedEnvelope) signingInput() []byte {
	return []byte(e.HeaderB64 + "." + e.PayloadB64)
}

// ParseHeader decodes the protected header segment.
func (e SignedEnvelope) ParseHeader() (*Header, error) {
	headerBytes, err := base64.RawURLEncoding.DecodeString(e.HeaderB64)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedToken, "decoding header segment: %s", err)
	}
	var header Header
	if err = json.Unmarshal(headerBytes, &header); err != nil {
		return nil, errors.Wrapf(ErrMalformedToken, "unmarshalling header: %s", err)
	}
	return &header, nil
}

// ParseCompact splits a compact token into its envelope form, failing with
// ErrMalformedToken unless it has exactly three non-empty segments.
func ParseCompact(token string) (*SignedEnvelope, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.Wrapf(ErrMalformedToken, "expected 3 segments, got %d", len(parts))
	}
	for _, part := range parts {
		if part == "" {
			return nil, errors.Wrap(ErrMalformedToken, "token contains an empty segment")
		}
	}
	return &SignedEnvelope{
		HeaderB64:    parts[0],
		PayloadB64:   parts[1],
		SignatureB64: parts[2],
	}, nil
}

// Sign builds a signed envelope over the given payload bytes. The signature
// is the fixed-width concatenation of the ECDSA r and s components, each
// zero-padded to the curve's byte width. The verifier contract mandates this
// encoding, so the widths are enforced here rather than left to the crypto
// primitive's default output.
func Sign(header Header, payload []byte, key gocrypto.PrivateKey, alg Algorithm) (*SignedEnvelope, error) {
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.Wrapf(ErrSigningKey, "expected an EC private key, got %T", key)
	}
	if ecKey.Curve != alg.Curve {
		return nil, errors.Wrapf(ErrSigningKey, "expected curve %s, got %s", alg.Curve.Params().Name, ecKey.Curve.Params().Name)
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling header")
	}

	envelope := SignedEnvelope{
		HeaderB64:  base64.RawURLEncoding.EncodeToString(headerBytes),
		PayloadB64: base64.RawURLEncoding.EncodeToString(payload),
	}

	hasher := alg.Hash.New()
	hasher.Write(envelope.signingInput())
	digest := hasher.Sum(nil)

	r, s, err := ecdsa.Sign(rand.Reader, ecKey, digest)
	if err != nil {
		return nil, errors.Wrapf(ErrSigningKey, "signing digest: %s", err)
	}

	size := alg.CurveByteSize()
	signature := make([]byte, 2*size)
	r.FillBytes(signature[:size])
	s.FillBytes(signature[size:])
	envelope.SignatureB64 = base64.RawURLEncoding.EncodeToString(signature)
	return &envelope, nil
}

// Verify recomputes the signing input from the envelope's header and payload
// segments and checks the signature against the given public key, returning
// the decoded payload bytes on success. A key that is not an EC key on the
// algorithm's curve is treated as an algorithm mismatch rather than a
// verification failure.
func Verify(envelope SignedEnvelope, key gocrypto.PublicKey, alg Algorithm) ([]byte, error) {
	header, err := envelope.ParseHeader()
	if err != nil {
		return nil, err
	}
	if header.Algorithm != alg.Name {
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "header names %q, expected %q", header.Algorithm, alg.Name)
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "expected an EC public key, got %T", key)
	}
	if ecKey.Curve != alg.Curve {
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "expected curve %s, got %s", alg.Curve.Params().Name, ecKey.Curve.Params().Name)
	}

	signature, err := base64.RawURLEncoding.DecodeString(envelope.SignatureB64)
	if err != nil {
		return nil, errors.Wrapf(ErrSignatureInvalid, "decoding signature segment: %s", err)
	}
	size := alg.CurveByteSize()
	if len(signature) != 2*size {
		return nil, errors.Wrapf(ErrSignatureInvalid, "expected a %d byte signature, got %d", 2*size, len(signature))
	}
	r := new(big.Int).SetBytes(signature[:size])
	s := new(big.Int).SetBytes(signature[size:])

	hasher := alg.Hash.New()
	hasher.Write(envelope.signingInput())
	digest := hasher.Sum(nil)

	if !ecdsa.Verify(ecKey, digest, r, s) {
		return nil, errors.Wrap(ErrSignatureInvalid, "signature does not match signing input")
	}

	payload, err := base64.RawURLEncoding.DecodeString(envelope.PayloadB64)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedToken, "decoding payload segment: %s", err)
	}
	return payload, nil
}
