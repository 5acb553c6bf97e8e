package healthcard

import (
	"github.com/goccy/go-json"

	"github.com/healthwallet/shc-service/pkg/shc"
)

type IssueHealthCardRequest struct {
	// Types is the ordered credential type list. When empty, the base
	// health card type is applied.
	Types []string

	// FHIRVersion defaults to the service's configured version.
	FHIRVersion string

	// FHIRBundle is the FHIR bundle JSON to embed in the card.
	FHIRBundle json.RawMessage
}

type IssueHealthCardResponse struct {
	// QRPayloads are the literal strings to render as QR symbols, in order.
	QRPayloads []string

	// Token is the compact token the QR payloads encode.
	Token string

	// Credential echoes the claims that were signed.
	Credential shc.Credential
}

type VerifyHealthCardRequest struct {
	// QRPayloads is the scanned chunk collection, in any order.
	QRPayloads []string
}

type VerifyHealthCardResponse struct {
	// Verified is true when the card's signature checks out.
	Verified bool

	// Reason explains a failed verification in terms safe to return to the
	// caller, e.g. an invalid signature or an untrusted issuer key.
	Reason string

	// Credential is the recovered claim set; nil unless Verified.
	Credential *shc.Credential
}
