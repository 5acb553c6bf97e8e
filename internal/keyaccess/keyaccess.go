package keyaccess

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"github.com/healthwallet/shc-service/pkg/shc"
)

// HealthCardSigner wraps an issuer's signing key and key identifier,
// producing QR-ready health card payloads and verifying them back.
type HealthCardSigner struct {
	KeyID string
	key   *ecdsa.PrivateKey
}

// NewHealthCardSigner creates a HealthCardSigner from a key id and private key.
func NewHealthCardSigner(kid string, key gocrypto.PrivateKey) (*HealthCardSigner, error) {
	if kid == "" {
		return nil, errors.New("kid cannot be empty")
	}
	if key == nil {
		return nil, errors.New("key cannot be nil")
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("health cards require an EC private key, got %T", key)
	}
	if ecKey.Curve != shc.ES256.Curve {
		return nil, errors.Errorf("health cards require a %s key, got %s", shc.ES256.Curve.Params().Name, ecKey.Curve.Params().Name)
	}
	return &HealthCardSigner{KeyID: kid, key: ecKey}, nil
}

// SignCredential encodes the credential into QR payload strings.
func (s HealthCardSigner) SignCredential(cred shc.Credential, maxChars int) ([]string, error) {
	payloads, err := shc.Encode(cred, s.key, s.KeyID, maxChars, shc.ES256)
	if err != nil {
		return nil, errors.Wrap(err, "encoding credential")
	}
	return payloads, nil
}

// SignCredentialToken encodes the credential into a compact token without chunking.
func (s HealthCardSigner) SignCredentialToken(cred shc.Credential) (string, error) {
	token, err := shc.EncodeToken(cred, s.key, s.KeyID, shc.ES256)
	if err != nil {
		return "", errors.Wrap(err, "encoding credential token")
	}
	return token, nil
}

// PublicKey returns the verification half of the signing key.
func (s HealthCardSigner) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// GenerateSigningKey creates a new P-256 signing key.
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generating P-256 key")
	}
	return key, nil
}

// LoadSigningKey reads a signing key from a PEM or JWK file.
func LoadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading key file: %s", path)
	}
	key, err := ParseSigningKey(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing key file: %s", path)
	}
	return key, nil
}

// ParseSigningKey parses a P-256 private key from PEM (SEC1 or PKCS#8) or
// from a JSON-encoded JWK.
func ParseSigningKey(data []byte) (*ecdsa.PrivateKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		return parsePEMKey(block)
	}

	jwkKey, err := jwk.ParseKey(data)
	if err != nil {
		return nil, errors.Wrap(err, "data is neither PEM nor a JWK")
	}
	var ecKey ecdsa.PrivateKey
	if err = jwkKey.Raw(&ecKey); err != nil {
		return nil, errors.Wrap(err, "JWK does not contain an EC private key")
	}
	if ecKey.Curve != elliptic.P256() {
		return nil, errors.Errorf("expected a P-256 key, got %s", ecKey.Curve.Params().Name)
	}
	return &ecKey, nil
}

func parsePEMKey(block *pem.Block) (*ecdsa.PrivateKey, error) {
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parsing PEM block")
	}
	ecKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("PEM block contains a %T, not an EC private key", parsed)
	}
	if ecKey.Curve != elliptic.P256() {
		return nil, errors.Errorf("expected a P-256 key, got %s", ecKey.Curve.Params().Name)
	}
	return ecKey, nil
}
