package shc

import (
	gocrypto "crypto"

	"github.com/pkg/errors"
)

// KeyResolver maps a token header's key identifier to the issuer's public
// key. Resolution against an issuer's published key set, including any
// network fetch or caching, is the resolver's own concern; the pipeline only
// calls it with an already-parsed kid.
type KeyResolver interface {
	ResolveKey(kid string) (gocrypto.PublicKey, error)
}

// KeyResolverFunc adapts a function to the KeyResolver interface.
type KeyResolverFunc func(kid string) (gocrypto.PublicKey, error)

func (f KeyResolverFunc) ResolveKey(kid string) (gocrypto.PublicKey, error) {
	return f(kid)
}

// DecodeToken verifies a compact token and parses the credential out of it.
// Every stage failure aborts the decode; a partially-decoded credential is
// never returned.
func DecodeToken(token string, resolver KeyResolver, alg Algorithm) (*Credential, error) {
	if resolver == nil {
		return nil, errors.New("key resolver cannot be nil")
	}
	envelope, err := ParseCompact(token)
	if err != nil {
		return nil, err
	}
	header, err := envelope.ParseHeader()
	if err != nil {
		return nil, err
	}

	publicKey, err := resolver.ResolveKey(header.KeyID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving key for kid %q", header.KeyID)
	}

	payload, err := Verify(*envelope, publicKey, alg)
	if err != nil {
		return nil, err
	}

	payloadJSON := string(payload)
	if header.Compression == CompressionDeflate {
		if payloadJSON, err = Decompress(payload); err != nil {
			return nil, err
		}
	}
	return ParsePayloadJSON([]byte(payloadJSON))
}

// Decode is the full decode pipeline: parse each scanned payload into a
// chunk, reassemble the compact token, then verify and extract the
// credential. The chunk collection may arrive in any order.
func Decode(chunkPayloads []string, resolver KeyResolver, alg Algorithm) (*Credential, error) {
	if len(chunkPayloads) == 0 {
		return nil, errors.Wrap(ErrChunkCountMismatch, "no chunk payloads provided")
	}
	chunks := make([]QRChunk, 0, len(chunkPayloads))
	for _, payload := range chunkPayloads {
		chunk, err := ParseChunk(payload)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	token, err := Reassemble(chunks)
	if err != nil {
		return nil, err
	}
	return DecodeToken(token, resolver, alg)
}
