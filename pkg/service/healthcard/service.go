package healthcard

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/healthwallet/shc-service/config"
	"github.com/healthwallet/shc-service/internal/keyaccess"
	"github.com/healthwallet/shc-service/internal/util"
	"github.com/healthwallet/shc-service/pkg/keyset"
	"github.com/healthwallet/shc-service/pkg/service/framework"
	"github.com/healthwallet/shc-service/pkg/shc"
)

// Service issues and verifies SMART Health Cards on behalf of a single
// configured issuer. Verification additionally trusts the key sets of any
// configured third-party issuers.
type Service struct {
	config config.HealthCardServiceConfig

	signer   *keyaccess.HealthCardSigner
	keySet   jwk.Set
	resolver shc.KeyResolver

	// Clock is swapped for a mock in tests.
	Clock clock.Clock
}

func (s Service) Type() framework.Type {
	return framework.HealthCard
}

func (s Service) Status() framework.Status {
	if s.signer == nil || s.resolver == nil {
		return framework.Status{
			Status:  framework.StatusNotReady,
			Message: "no signing key configured",
		}
	}
	return framework.Status{Status: framework.StatusReady}
}

func (s Service) Config() config.HealthCardServiceConfig {
	return s.config
}

func NewHealthCardService(config config.HealthCardServiceConfig) (*Service, error) {
	if config.Issuer == "" {
		return nil, util.LoggingNewError("health card service requires an issuer")
	}

	key, err := loadOrGenerateKey(config.KeyPath)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not prepare signing key")
	}
	kid, err := keyset.Thumbprint(&key.PublicKey)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not compute key id")
	}
	signer, err := keyaccess.NewHealthCardSigner(kid, key)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not create signer")
	}
	set, err := keyset.Publish(key)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not build key set")
	}

	resolver, err := buildResolver(set, config.TrustedIssuers)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not build key resolver")
	}

	service := Service{
		config:   config,
		signer:   signer,
		keySet:   set,
		resolver: resolver,
		Clock:    clock.New(),
	}
	if !service.Status().IsReady() {
		return nil, fmt.Errorf("health card service is not ready: %s", service.Status().Message)
	}
	return &service, nil
}

// KeySet returns the public JWK set served at the well-known location.
func (s Service) KeySet() jwk.Set {
	return s.keySet
}

// IssueHealthCard signs the request's FHIR bundle into a health card and
// returns the QR payload strings along with the underlying compact token.
func (s Service) IssueHealthCard(ctx context.Context, request IssueHealthCardRequest) (*IssueHealthCardResponse, error) {
	logrus.Debugf("issuing health card: %s", util.SanitizeLog(s.config.Issuer))

	if len(request.FHIRBundle) == 0 {
		return nil, util.LoggingNewError("issue request missing fhir bundle")
	}
	if !json.Valid(request.FHIRBundle) {
		return nil, util.LoggingNewError("issue request fhir bundle is not valid JSON")
	}

	credential := shc.Credential{
		Issuer:      s.config.Issuer,
		IssuedAt:    s.Clock.Now(),
		Types:       request.Types,
		FHIRVersion: request.FHIRVersion,
		FHIRBundle:  request.FHIRBundle,
	}
	if len(credential.Types) == 0 {
		credential.Types = []string{shc.HealthCardType}
	}
	if credential.FHIRVersion == "" {
		credential.FHIRVersion = s.fhirVersion()
	}
	if err := credential.IsValid(); err != nil {
		return nil, util.LoggingErrorMsg(err, "invalid credential")
	}

	token, err := s.signer.SignCredentialToken(credential)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not sign credential")
	}
	payloads, err := s.signer.SignCredential(credential, s.maxChunkChars())
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not encode credential")
	}

	return &IssueHealthCardResponse{
		QRPayloads: payloads,
		Token:      token,
		Credential: credential,
	}, nil
}

// VerifyHealthCard reassembles the scanned QR payloads and verifies the
// recovered token. Malformed input is an error; a well-formed card that fails
// its cryptographic checks comes back unverified with a reason.
func (s Service) VerifyHealthCard(ctx context.Context, request VerifyHealthCardRequest) (*VerifyHealthCardResponse, error) {
	if len(request.QRPayloads) == 0 {
		return nil, util.LoggingNewError("verify request missing qr payloads")
	}

	credential, err := shc.Decode(request.QRPayloads, s.resolver, shc.ES256)
	if err != nil {
		if reason, ok := verificationFailure(err); ok {
			logrus.WithError(err).Debug("health card failed verification")
			return &VerifyHealthCardResponse{Verified: false, Reason: reason}, nil
		}
		return nil, util.LoggingErrorMsg(err, "could not decode health card")
	}

	return &VerifyHealthCardResponse{Verified: true, Credential: credential}, nil
}

func (s Service) maxChunkChars() int {
	if s.config.MaxChunkChars > 0 {
		return s.config.MaxChunkChars
	}
	return shc.MaxQRChunkChars
}

func (s Service) fhirVersion() string {
	if s.config.FHIRVersion != "" {
		return s.config.FHIRVersion
	}
	return shc.DefaultFHIRVersion
}

// verificationFailure maps decode errors that mean "this card is not to be
// trusted" to a caller-safe reason. Structural errors fall through and are
// surfaced as hard errors instead.
func verificationFailure(err error) (string, bool) {
	switch {
	case errors.Is(err, shc.ErrSignatureInvalid):
		return "signature is invalid", true
	case errors.Is(err, shc.ErrUnsupportedAlgorithm):
		return "token algorithm is not supported", true
	case errors.Is(err, shc.ErrMalformedToken),
		errors.Is(err, shc.ErrMalformedPayload),
		errors.Is(err, shc.ErrMalformedChunk),
		errors.Is(err, shc.ErrChunkCountMismatch):
		return "", false
	}
	// anything else came out of key resolution
	return "signing key could not be resolved", true
}

func buildResolver(own jwk.Set, trustedIssuers []string) (shc.KeyResolver, error) {
	static, err := keyset.NewStaticResolver(own)
	if err != nil {
		return nil, err
	}
	resolvers := []shc.KeyResolver{static}
	for _, issuer := range trustedIssuers {
		remote, err := keyset.NewHTTPResolver(issuer)
		if err != nil {
			return nil, errors.Wrapf(err, "building resolver for issuer %s", issuer)
		}
		resolvers = append(resolvers, remote)
	}
	return keyset.NewMultiResolver(resolvers...)
}

func loadOrGenerateKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		logrus.Warn("no key path configured, generating an ephemeral signing key")
		return keyaccess.GenerateSigningKey()
	}
	return keyaccess.LoadSigningKey(path)
}
