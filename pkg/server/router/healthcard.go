package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/healthwallet/shc-service/pkg/server/framework"
	svcframework "github.com/healthwallet/shc-service/pkg/service/framework"
	"github.com/healthwallet/shc-service/pkg/service/healthcard"
	"github.com/healthwallet/shc-service/pkg/shc"
)

type HealthCardRouter struct {
	service *healthcard.Service
}

func NewHealthCardRouter(s svcframework.Service) (*HealthCardRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	healthCardService, ok := s.(*healthcard.Service)
	if !ok {
		return nil, fmt.Errorf("could not create health card router with service type: %s", s.Type())
	}
	return &HealthCardRouter{service: healthCardService}, nil
}

type IssueHealthCardRequest struct {
	// The verifiable credential type list for the card. When absent, the base
	// health card type is applied.
	CredentialTypes []string `json:"credentialTypes,omitempty"`

	// The FHIR release the bundle conforms to, e.g. "4.0.1". Defaults to the
	// service's configured version.
	FhirVersion string `json:"fhirVersion,omitempty"`

	// The FHIR bundle to embed in the card, as a JSON object.
	FhirBundle json.RawMessage `json:"fhirBundle" validate:"required"`
}

func (r IssueHealthCardRequest) toServiceRequest() healthcard.IssueHealthCardRequest {
	return healthcard.IssueHealthCardRequest{
		Types:       r.CredentialTypes,
		FHIRVersion: r.FhirVersion,
		FHIRBundle:  r.FhirBundle,
	}
}

type IssueHealthCardResponse struct {
	// The literal strings to render as QR symbols, in order.
	QRPayloads []string `json:"qrPayloads"`

	// The compact token the QR payloads encode.
	Token string `json:"token"`

	// The issuer URI placed in the card.
	Issuer string `json:"issuer"`

	// The card's not-before time, encoded according to RFC3339.
	IssuedAt string `json:"issuedAt"`
}

// IssueHealthCard godoc
//
//	@Summary		Issue Health Card
//	@Description	Signs a FHIR bundle into a SMART Health Card and returns its QR payloads
//	@Tags			HealthCardAPI
//	@Accept			json
//	@Produce		json
//	@Param			request	body		IssueHealthCardRequest	true	"request body"
//	@Success		201		{object}	IssueHealthCardResponse
//	@Failure		400		{string}	string	"Bad request"
//	@Failure		500		{string}	string	"Internal server error"
//	@Router			/v1/healthcards [put]
func (hcr *HealthCardRouter) IssueHealthCard(c *gin.Context) {
	var request IssueHealthCardRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid issue health card request", http.StatusBadRequest)
		return
	}

	issued, err := hcr.service.IssueHealthCard(c, request.toServiceRequest())
	if err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not issue health card", http.StatusInternalServerError)
		return
	}

	resp := IssueHealthCardResponse{
		QRPayloads: issued.QRPayloads,
		Token:      issued.Token,
		Issuer:     issued.Credential.Issuer,
		IssuedAt:   issued.Credential.IssuedAt.UTC().Format(time.RFC3339),
	}
	framework.Respond(c, resp, http.StatusCreated)
}

type VerifyHealthCardRequest struct {
	// The scanned QR payload strings, in any order.
	QRPayloads []string `json:"qrPayloads" validate:"required"`
}

type VerifyHealthCardResponse struct {
	// Whether the card's signature checks out.
	Verified bool `json:"verified"`

	// Why verification failed, when it did.
	Reason string `json:"reason,omitempty"`

	// The verified card's claims. Only set when Verified is true.
	Issuer      string          `json:"issuer,omitempty"`
	IssuedAt    string          `json:"issuedAt,omitempty"`
	FhirVersion string          `json:"fhirVersion,omitempty"`
	FhirBundle  json.RawMessage `json:"fhirBundle,omitempty"`
}

// VerifyHealthCard godoc
//
//	@Summary		Verify Health Card
//	@Description	Reassembles scanned QR payloads into a SMART Health Card and verifies its signature.
//	@Description	Malformed or incomplete payloads are a 400; a well-formed card that fails its checks
//	@Description	comes back with verified set to false.
//	@Tags			HealthCardAPI
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyHealthCardRequest	true	"request body"
//	@Success		200		{object}	VerifyHealthCardResponse
//	@Failure		400		{string}	string	"Bad request"
//	@Failure		500		{string}	string	"Internal server error"
//	@Router			/v1/healthcards/verification [put]
func (hcr *HealthCardRouter) VerifyHealthCard(c *gin.Context) {
	var request VerifyHealthCardRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid verify health card request", http.StatusBadRequest)
		return
	}

	verified, err := hcr.service.VerifyHealthCard(c, healthcard.VerifyHealthCardRequest{QRPayloads: request.QRPayloads})
	if err != nil {
		if shc.IsRecoverable(err) {
			framework.LoggingRespondErrWithMsg(c, err, "incomplete chunk set, re-submit with all chunks", http.StatusBadRequest)
			return
		}
		framework.LoggingRespondErrWithMsg(c, err, "could not verify health card", http.StatusBadRequest)
		return
	}

	resp := VerifyHealthCardResponse{
		Verified: verified.Verified,
		Reason:   verified.Reason,
	}
	if verified.Credential != nil {
		resp.Issuer = verified.Credential.Issuer
		resp.IssuedAt = verified.Credential.IssuedAt.UTC().Format(time.RFC3339)
		resp.FhirVersion = verified.Credential.FHIRVersion
		resp.FhirBundle = verified.Credential.FHIRBundle
	}
	framework.Respond(c, resp, http.StatusOK)
}
