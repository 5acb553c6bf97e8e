// Package shc implements the SMART Health Card encode/decode pipeline: a
// signed health record becomes a compact JWS over a DEFLATE-compressed
// payload, which is then split into one or more numeric-mode QR payloads,
// and back again with signature and decompression checks on the way in.
package shc

import (
	gocrypto "crypto"
	"crypto/elliptic"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	// HealthCardType is the base verifiable credential type every health card must carry.
	HealthCardType = "https://smarthealth.cards#health-card"

	// CompressionDeflate is the JWS "zip" header value for raw DEFLATE compression.
	CompressionDeflate = "DEF"

	// MaxQRChunkChars is the protocol convention for the maximum number of
	// numeric-mode characters carried by a single QR symbol.
	MaxQRChunkChars = 1195

	// DefaultFHIRVersion is the FHIR release health cards are issued against.
	DefaultFHIRVersion = "4.0.1"
)

// Algorithm describes a signing suite for health card tokens. Modeled as a
// value rather than a hidden constant so the pipeline does not need to be
// restructured if another suite is ever negotiated.
type Algorithm struct {
	// Name is the JOSE "alg" header value.
	Name string

	Curve elliptic.Curve
	Hash  gocrypto.Hash
}

// ES256 is ECDSA over P-256 with SHA-256, the only suite the health card
// protocol currently permits.
var ES256 = Algorithm{
	Name:  "ES256",
	Curve: elliptic.P256(),
	Hash:  gocrypto.SHA256,
}

// CurveByteSize returns the byte width of the curve's field, which is the
// width each of the signature's r and s components is zero-padded to.
func (a Algorithm) CurveByteSize() int {
	return (a.Curve.Params().BitSize + 7) / 8
}

// Credential is the health record claim set carried by a health card.
type Credential struct {
	// Issuer is the URI of the issuing organization. Verifiers locate the
	// issuer's published key set relative to this URI.
	Issuer string

	// IssuedAt becomes the token's nbf claim, truncated to whole seconds.
	IssuedAt time.Time

	// Types is the ordered credential type list. It must be non-empty and
	// include HealthCardType.
	Types []string

	FHIRVersion string

	// FHIRBundle is the FHIR bundle JSON, embedded in the payload as a raw
	// JSON value rather than an escaped string.
	FHIRBundle json.RawMessage
}

// IsValid checks the structural invariants of a credential before it is
// signed. The clinical content of the FHIR bundle is not validated here.
func (c Credential) IsValid() error {
	if c.Issuer == "" {
		return errors.New("credential issuer cannot be empty")
	}
	if len(c.Types) == 0 {
		return errors.New("credential must have at least one type")
	}
	if !c.HasType(HealthCardType) {
		return errors.Errorf("credential types must include %s", HealthCardType)
	}
	if c.FHIRVersion == "" {
		return errors.New("credential fhir version cannot be empty")
	}
	if len(c.FHIRBundle) == 0 || !json.Valid(c.FHIRBundle) {
		return errors.New("credential fhir bundle is not valid JSON")
	}
	return nil
}

// HasType returns true if the credential's type list contains the given type.
func (c Credential) HasType(credType string) bool {
	for _, t := range c.Types {
		if t == credType {
			return true
		}
	}
	return false
}
