package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthwallet/shc-service/config"
	"github.com/healthwallet/shc-service/pkg/server/router"
	svcframework "github.com/healthwallet/shc-service/pkg/service/framework"
	"github.com/healthwallet/shc-service/pkg/service/healthcard"
)

const testBundleJSON = `{"resourceType":"Bundle","type":"collection","entry":[]}`

func TestHealthCheckAPI(t *testing.T) {
	w := httptest.NewRecorder()
	c := newRequestContext(w, httptest.NewRequest(http.MethodGet, "https://shc-service.com/health", nil))

	router.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp router.GetHealthCheckResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, router.HealthOK, resp.Status)
}

func TestReadinessAPI(t *testing.T) {
	service := testHealthCardService(t)

	w := httptest.NewRecorder()
	c := newRequestContext(w, httptest.NewRequest(http.MethodGet, "https://shc-service.com/readiness", nil))

	handler := router.Readiness([]svcframework.Service{service})
	handler(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp router.GetReadinessResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.True(t, resp.Status.IsReady())
	assert.True(t, resp.ServiceStatuses[svcframework.HealthCard].IsReady())
}

func TestWellKnownAPI(t *testing.T) {
	service := testHealthCardService(t)
	wellKnownRouter, err := router.NewWellKnownRouter(service)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c := newRequestContext(w, httptest.NewRequest(http.MethodGet, "https://shc-service.com/.well-known/jwks.json", nil))

	wellKnownRouter.GetKeySet(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Keys []map[string]any `json:"keys"`
	}
	err = json.NewDecoder(w.Body).Decode(&resp)
	assert.NoError(t, err)
	require.Len(t, resp.Keys, 1)
	assert.Equal(t, "ES256", resp.Keys[0]["alg"])
	assert.Equal(t, "sig", resp.Keys[0]["use"])
	assert.NotEmpty(t, resp.Keys[0]["kid"])
}

func TestHealthCardAPI(t *testing.T) {
	t.Run("Test Issue Health Card", func(tt *testing.T) {
		healthCardRouter := testHealthCardRouter(tt)

		// missing required field: fhirBundle
		badRequestValue := newRequestValue(tt, router.IssueHealthCardRequest{FhirVersion: "4.0.1"})
		w := httptest.NewRecorder()
		c := newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards", badRequestValue))
		healthCardRouter.IssueHealthCard(c)
		assert.Equal(tt, http.StatusBadRequest, w.Code)
		assert.Contains(tt, w.Body.String(), "invalid issue health card request")

		// good request
		requestValue := newRequestValue(tt, router.IssueHealthCardRequest{FhirBundle: json.RawMessage(testBundleJSON)})
		w = httptest.NewRecorder()
		c = newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards", requestValue))
		healthCardRouter.IssueHealthCard(c)
		assert.Equal(tt, http.StatusCreated, w.Code)

		var resp router.IssueHealthCardResponse
		err := json.NewDecoder(w.Body).Decode(&resp)
		assert.NoError(tt, err)
		assert.NotEmpty(tt, resp.Token)
		require.NotEmpty(tt, resp.QRPayloads)
		assert.True(tt, strings.HasPrefix(resp.QRPayloads[0], "shc:/"))
	})

	t.Run("Test Verify Health Card", func(tt *testing.T) {
		healthCardRouter := testHealthCardRouter(tt)
		issued := issueTestHealthCard(tt, healthCardRouter)

		// round trip the issued payloads
		requestValue := newRequestValue(tt, router.VerifyHealthCardRequest{QRPayloads: issued.QRPayloads})
		w := httptest.NewRecorder()
		c := newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards/verification", requestValue))
		healthCardRouter.VerifyHealthCard(c)
		assert.Equal(tt, http.StatusOK, w.Code)

		var resp router.VerifyHealthCardResponse
		err := json.NewDecoder(w.Body).Decode(&resp)
		assert.NoError(tt, err)
		assert.True(tt, resp.Verified)
		assert.Empty(tt, resp.Reason)
		assert.JSONEq(tt, testBundleJSON, string(resp.FhirBundle))

		// missing required field: qrPayloads
		badRequestValue := newRequestValue(tt, router.VerifyHealthCardRequest{})
		w = httptest.NewRecorder()
		c = newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards/verification", badRequestValue))
		healthCardRouter.VerifyHealthCard(c)
		assert.Equal(tt, http.StatusBadRequest, w.Code)
		assert.Contains(tt, w.Body.String(), "invalid verify health card request")

		// malformed payload
		malformedValue := newRequestValue(tt, router.VerifyHealthCardRequest{QRPayloads: []string{"shc:/12345x"}})
		w = httptest.NewRecorder()
		c = newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards/verification", malformedValue))
		healthCardRouter.VerifyHealthCard(c)
		assert.Equal(tt, http.StatusBadRequest, w.Code)
		assert.Contains(tt, w.Body.String(), "could not verify health card")
	})

	t.Run("Test Verify Incomplete Chunk Set", func(tt *testing.T) {
		service := testHealthCardServiceWithChunking(tt)
		healthCardRouter, err := router.NewHealthCardRouter(service)
		require.NoError(tt, err)

		issued := issueTestHealthCard(tt, healthCardRouter)
		require.Greater(tt, len(issued.QRPayloads), 1)

		requestValue := newRequestValue(tt, router.VerifyHealthCardRequest{QRPayloads: issued.QRPayloads[:1]})
		w := httptest.NewRecorder()
		c := newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards/verification", requestValue))
		healthCardRouter.VerifyHealthCard(c)
		assert.Equal(tt, http.StatusBadRequest, w.Code)
		assert.Contains(tt, w.Body.String(), "incomplete chunk set")
	})
}

func issueTestHealthCard(t *testing.T, healthCardRouter *router.HealthCardRouter) router.IssueHealthCardResponse {
	t.Helper()
	requestValue := newRequestValue(t, router.IssueHealthCardRequest{FhirBundle: json.RawMessage(testBundleJSON)})
	w := httptest.NewRecorder()
	c := newRequestContext(w, httptest.NewRequest(http.MethodPut, "https://shc-service.com/v1/healthcards", requestValue))
	healthCardRouter.IssueHealthCard(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp router.IssueHealthCardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func testHealthCardService(t *testing.T) *healthcard.Service {
	t.Helper()
	service, err := healthcard.NewHealthCardService(config.HealthCardServiceConfig{
		BaseServiceConfig: &config.BaseServiceConfig{Name: "healthcard"},
		Issuer:            "https://shc-service.com",
	})
	require.NoError(t, err)
	return service
}

// testHealthCardServiceWithChunking uses a small chunk budget so issued cards
// span multiple QR symbols.
func testHealthCardServiceWithChunking(t *testing.T) *healthcard.Service {
	t.Helper()
	service, err := healthcard.NewHealthCardService(config.HealthCardServiceConfig{
		BaseServiceConfig: &config.BaseServiceConfig{Name: "healthcard"},
		Issuer:            "https://shc-service.com",
		MaxChunkChars:     500,
	})
	require.NoError(t, err)
	return service
}

func testHealthCardRouter(t *testing.T) *router.HealthCardRouter {
	t.Helper()
	healthCardRouter, err := router.NewHealthCardRouter(testHealthCardService(t))
	require.NoError(t, err)
	return healthCardRouter
}

func newRequestValue(t *testing.T, data any) io.Reader {
	t.Helper()
	dataBytes, err := json.Marshal(data)
	require.NoError(t, err)
	require.NotEmpty(t, dataBytes)
	return strings.NewReader(string(dataBytes))
}

func newRequestContext(w http.ResponseWriter, req *http.Request) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}
