package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/healthwallet/shc-service/pkg/server/framework"
	svcframework "github.com/healthwallet/shc-service/pkg/service/framework"
	"github.com/healthwallet/shc-service/pkg/service/healthcard"
)

type WellKnownRouter struct {
	service *healthcard.Service
}

func NewWellKnownRouter(s svcframework.Service) (*WellKnownRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	healthCardService, ok := s.(*healthcard.Service)
	if !ok {
		return nil, errors.Errorf("could not create well-known router with service type: %s", s.Type())
	}
	return &WellKnownRouter{service: healthCardService}, nil
}

// GetKeySet godoc
//
//	@Summary		Issuer Key Set
//	@Description	Serves the issuer's public signing keys as a JWK set. Verifiers resolve
//	@Description	a card's kid against this document.
//	@Tags			WellKnownAPI
//	@Produce		json
//	@Success		200	{object}	any
//	@Router			/.well-known/jwks.json [get]
func (wkr *WellKnownRouter) GetKeySet(c *gin.Context) {
	framework.Respond(c, wkr.service.KeySet(), http.StatusOK)
}
