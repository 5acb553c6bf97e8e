package shc

import "github.com/pkg/errors"

// Error kinds surfaced by the pipeline. Callers match them with errors.Is;
// every error returned from this package wraps exactly one of these, so a
// failed decode can always be classified.
var (
	// ErrSigningKey indicates the supplied private key cannot be used with
	// the configured algorithm.
	ErrSigningKey = errors.New("signing key is not usable")

	// ErrSignatureInvalid indicates signature verification failed. This is
	// always fatal to the call; retrying cannot change a cryptographic fact.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrUnsupportedAlgorithm indicates the token header names an algorithm
	// other than the negotiated one, or the resolved key does not match it.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrMalformedPayload indicates the payload could not be decompressed or
	// did not contain the expected credential JSON.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrMalformedToken indicates the compact token does not have the
	// expected three-segment structure.
	ErrMalformedToken = errors.New("malformed token")

	// ErrMalformedChunk indicates a QR chunk's prefix or numeric body could
	// not be parsed.
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrChunkCountMismatch indicates the chunk set is incomplete or
	// internally inconsistent. Unlike the other kinds, this is recoverable
	// by scanning additional QR symbols.
	ErrChunkCountMismatch = errors.New("chunk count mismatch")
)

// IsRecoverable reports whether a decode failure can be fixed by supplying
// more chunks, as opposed to a structural or cryptographic failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrChunkCountMismatch)
}
