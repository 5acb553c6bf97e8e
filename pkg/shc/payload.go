package shc

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// payloadClaims is the wire shape of the credential payload. Key names and
// nesting are fixed by the verifier contract; field order is not significant.
type payloadClaims struct {
	Issuer    string  `json:"iss"`
	NotBefore int64   `json:"nbf"`
	VC        vcClaim `json:"vc"`
}

type vcClaim struct {
	Type              []string          `json:"type"`
	CredentialSubject credentialSubject `json:"credentialSubject"`
}

type credentialSubject struct {
	FHIRVersion string          `json:"fhirVersion"`
	FHIRBundle  json.RawMessage `json:"fhirBundle"`
}

// BuildPayloadJSON assembles the credential JSON envelope that is compressed
// and signed. The nbf claim is the issuance instant truncated, not rounded,
// to whole seconds, and the FHIR bundle is embedded as a JSON value.
func BuildPayloadJSON(cred Credential) ([]byte, error) {
	if err := cred.IsValid(); err != nil {
		return nil, errors.Wrap(err, "invalid credential")
	}
	claims := payloadClaims{
		Issuer:    cred.Issuer,
		NotBefore: cred.IssuedAt.Unix(),
		VC: vcClaim{
			Type: cred.Types,
			CredentialSubject: credentialSubject{
				FHIRVersion: cred.FHIRVersion,
				FHIRBundle:  cred.FHIRBundle,
			},
		},
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling credential payload")
	}
	return payload, nil
}

// ParsePayloadJSON is the inverse of BuildPayloadJSON. It fails with
// ErrMalformedPayload when a required key is absent or has the wrong type.
func ParsePayloadJSON(payload []byte) (*Credential, error) {
	var claims payloadClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "unmarshalling credential payload: %s", err)
	}
	if claims.Issuer == "" {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is missing iss claim")
	}
	if claims.NotBefore == 0 {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is missing nbf claim")
	}
	if len(claims.VC.Type) == 0 {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is missing vc.type")
	}
	if claims.VC.CredentialSubject.FHIRVersion == "" {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is missing vc.credentialSubject.fhirVersion")
	}
	if len(claims.VC.CredentialSubject.FHIRBundle) == 0 {
		return nil, errors.Wrap(ErrMalformedPayload, "payload is missing vc.credentialSubject.fhirBundle")
	}
	return &Credential{
		Issuer:      claims.Issuer,
		IssuedAt:    time.Unix(claims.NotBefore, 0).UTC(),
		Types:       claims.VC.Type,
		FHIRVersion: claims.VC.CredentialSubject.FHIRVersion,
		FHIRBundle:  claims.VC.CredentialSubject.FHIRBundle,
	}, nil
}
