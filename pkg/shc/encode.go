package shc

import (
	gocrypto "crypto"

	"github.com/pkg/errors"
)

// EncodeToken runs the credential through payload construction, compression,
// and signing, producing the compact token without QR chunking. Useful when
// the token is transported as text rather than as QR symbols.
func EncodeToken(cred Credential, key gocrypto.PrivateKey, keyID string, alg Algorithm) (string, error) {
	payload, err := BuildPayloadJSON(cred)
	if err != nil {
		return "", errors.Wrap(err, "building credential payload")
	}
	compressed, err := Compress(string(payload))
	if err != nil {
		return "", errors.Wrap(err, "compressing credential payload")
	}
	header := Header{
		Algorithm:   alg.Name,
		Compression: CompressionDeflate,
		KeyID:       keyID,
	}
	envelope, err := Sign(header, compressed, key, alg)
	if err != nil {
		return "", errors.Wrap(err, "signing credential payload")
	}
	return envelope.Compact(), nil
}

// Encode is the full encode pipeline: credential codec, compressor, compact
// signer, QR chunk codec. The returned strings are the literal payloads to
// render as QR symbols, prefix included, in index order.
func Encode(cred Credential, key gocrypto.PrivateKey, keyID string, maxChars int, alg Algorithm) ([]string, error) {
	token, err := EncodeToken(cred, key, keyID, alg)
	if err != nil {
		return nil, err
	}
	chunks, err := Split(token, maxChars)
	if err != nil {
		return nil, errors.Wrap(err, "splitting token into chunks")
	}
	payloads := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		payloads = append(payloads, chunk.String())
	}
	return payloads, nil
}
