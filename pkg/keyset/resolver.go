package keyset

import (
	gocrypto "crypto"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/healthwallet/shc-service/internal/util"
)

const (
	defaultFetchTimeout  = 10 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	defaultMaxRetries    = 2
)

// HTTPResolver fetches an issuer's published key set over HTTPS and resolves
// kids against it. The fetch happens per call and nothing is cached or
// mutated, so a resolver can be shared between concurrent decodes. Transient
// network failures are retried with a constant backoff; a failed signature
// check never is.
type HTTPResolver struct {
	jwksURL    string
	client     *http.Client
	interval   time.Duration
	maxRetries uint64
}

// Option customizes an HTTPResolver.
type Option func(*HTTPResolver)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *HTTPResolver) {
		r.client = client
	}
}

// WithRetries sets the retry interval and the retry budget for JWKS fetches.
func WithRetries(interval time.Duration, maxRetries uint64) Option {
	return func(r *HTTPResolver) {
		r.interval = interval
		r.maxRetries = maxRetries
	}
}

// NewHTTPResolver creates a resolver for the given issuer URI. The key set
// URL is the issuer URI with the well-known JWKS path appended.
func NewHTTPResolver(issuer string, opts ...Option) (*HTTPResolver, error) {
	if issuer == "" {
		return nil, errors.New("issuer cannot be empty")
	}
	resolver := &HTTPResolver{
		jwksURL:    strings.TrimSuffix(issuer, "/") + WellKnownJWKSPath,
		client:     &http.Client{Timeout: defaultFetchTimeout},
		interval:   defaultRetryInterval,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver, nil
}

// ResolveKey fetches the issuer's key set and looks up the kid.
func (r HTTPResolver) ResolveKey(kid string) (gocrypto.PublicKey, error) {
	set, err := r.fetchKeySet()
	if err != nil {
		return nil, util.LoggingErrorMsgf(err, "fetching key set from %s", r.jwksURL)
	}
	return keyFromSet(set, kid)
}

func (r HTTPResolver) fetchKeySet() (jwk.Set, error) {
	var set jwk.Set
	fetch := func() error {
		resp, err := r.client.Get(r.jwksURL)
		if err != nil {
			return errors.Wrap(err, "requesting key set")
		}
		defer resp.Body.Close()

		if !util.Is2xxResponse(resp.StatusCode) {
			return errors.Errorf("key set endpoint returned status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "reading key set response")
		}
		if set, err = jwk.Parse(body); err != nil {
			return errors.Wrap(err, "parsing key set")
		}
		return nil
	}

	notify := func(err error, d time.Duration) {
		logrus.WithError(err).Debugf("retrying key set fetch in %s", d)
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(r.interval), r.maxRetries)
	if err := backoff.RetryNotify(fetch, policy, notify); err != nil {
		return nil, err
	}
	return set, nil
}
