// Package keyset handles the issuer side and verifier side of health card
// key distribution: publishing an issuer's signing keys as a JWK set at the
// well-known location, and resolving a token's kid back to a public key.
package keyset

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"encoding/base64"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"github.com/healthwallet/shc-service/pkg/shc"
)

// WellKnownJWKSPath is where verifiers expect an issuer's key set, relative
// to the issuer URI carried in the credential's iss claim.
const WellKnownJWKSPath = "/.well-known/jwks.json"

// Thumbprint computes the key identifier for a health card signing key: the
// unpadded base64url encoding of the key's RFC 7638 SHA-256 JWK thumbprint.
func Thumbprint(key *ecdsa.PublicKey) (string, error) {
	jwkKey, err := jwk.FromRaw(key)
	if err != nil {
		return "", errors.Wrap(err, "converting key to JWK")
	}
	digest, err := jwkKey.Thumbprint(gocrypto.SHA256)
	if err != nil {
		return "", errors.Wrap(err, "computing JWK thumbprint")
	}
	return base64.RawURLEncoding.EncodeToString(digest), nil
}

// Publish builds the public JWK set an issuer serves at the well-known
// location. Each key is annotated with its thumbprint kid, the ES256
// algorithm, and signature use, which is the shape verifiers expect.
func Publish(keys ...*ecdsa.PrivateKey) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, key := range keys {
		if key == nil {
			return nil, errors.New("cannot publish a nil key")
		}
		if key.Curve != shc.ES256.Curve {
			return nil, errors.Errorf("cannot publish a %s key in an ES256 key set", key.Curve.Params().Name)
		}
		public, err := jwk.FromRaw(&key.PublicKey)
		if err != nil {
			return nil, errors.Wrap(err, "converting public key to JWK")
		}
		kid, err := Thumbprint(&key.PublicKey)
		if err != nil {
			return nil, err
		}
		if err = public.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, errors.Wrap(err, "setting kid")
		}
		if err = public.Set(jwk.AlgorithmKey, jwa.ES256); err != nil {
			return nil, errors.Wrap(err, "setting alg")
		}
		if err = public.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return nil, errors.Wrap(err, "setting use")
		}
		if err = set.AddKey(public); err != nil {
			return nil, errors.Wrap(err, "adding key to set")
		}
	}
	return set, nil
}

// StaticResolver resolves key identifiers against an in-memory JWK set.
type StaticResolver struct {
	set jwk.Set
}

// NewStaticResolver creates a StaticResolver over the given key set.
func NewStaticResolver(set jwk.Set) (*StaticResolver, error) {
	if set == nil {
		return nil, errors.New("key set cannot be nil")
	}
	return &StaticResolver{set: set}, nil
}

// ResolveKey looks up the kid in the set and returns the EC public key.
func (r StaticResolver) ResolveKey(kid string) (gocrypto.PublicKey, error) {
	return keyFromSet(r.set, kid)
}

// MultiResolver tries a sequence of resolvers in order, returning the first
// successful resolution. Useful when a verifier trusts several issuers.
type MultiResolver struct {
	resolvers []shc.KeyResolver
}

// NewMultiResolver creates a MultiResolver over the given resolvers.
func NewMultiResolver(resolvers ...shc.KeyResolver) (*MultiResolver, error) {
	if len(resolvers) == 0 {
		return nil, errors.New("at least one resolver is required")
	}
	return &MultiResolver{resolvers: resolvers}, nil
}

// ResolveKey returns the first resolver's answer for the kid, or the last
// error when none can resolve it.
func (r MultiResolver) ResolveKey(kid string) (gocrypto.PublicKey, error) {
	var lastErr error
	for _, resolver := range r.resolvers {
		key, err := resolver.ResolveKey(kid)
		if err == nil {
			return key, nil
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "no resolver could resolve kid %q", kid)
}

func keyFromSet(set jwk.Set, kid string) (gocrypto.PublicKey, error) {
	jwkKey, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, errors.Errorf("key set does not contain kid %q", kid)
	}
	var publicKey ecdsa.PublicKey
	if err := jwkKey.Raw(&publicKey); err != nil {
		return nil, errors.Wrapf(err, "kid %q is not an EC public key", kid)
	}
	return &publicKey, nil
}
