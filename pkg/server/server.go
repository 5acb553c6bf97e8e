// Package server contains the full set of handler functions and routes
// supported by the http api
package server

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/healthwallet/shc-service/config"
	"github.com/healthwallet/shc-service/internal/util"
	"github.com/healthwallet/shc-service/pkg/keyset"
	"github.com/healthwallet/shc-service/pkg/server/framework"
	"github.com/healthwallet/shc-service/pkg/server/middleware"
	"github.com/healthwallet/shc-service/pkg/server/router"
	"github.com/healthwallet/shc-service/pkg/service"
	svcframework "github.com/healthwallet/shc-service/pkg/service/framework"
	"github.com/healthwallet/shc-service/pkg/service/healthcard"
)

const (
	HealthPrefix      = "/health"
	ReadinessPrefix   = "/readiness"
	V1Prefix          = "/v1"
	HealthCardsPrefix = "/healthcards"
	VerificationPath  = "/verification"
)

// SHCServer exposes all dependencies needed to run a http server and all its services
type SHCServer struct {
	*config.ServerConfig
	*service.SHCService
	*framework.Server
}

// NewSHCServer does two things: instantiates all services and registers their HTTP bindings
func NewSHCServer(shutdown chan os.Signal, cfg config.SHCServiceConfig) (*SHCServer, error) {
	// creates an HTTP server from the framework, and wraps it to extend it for the SHC service
	engine := setUpEngine(cfg.Server, shutdown)
	httpServer := framework.NewServer(cfg.Server, engine, shutdown)
	shcService, err := service.InstantiateSHCService(cfg.Services)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate shc service")
	}

	// service-level routers
	engine.GET(HealthPrefix, router.Health)
	engine.GET(ReadinessPrefix, router.Readiness(shcService.GetServices()))

	if err = WellKnownAPI(engine, shcService.HealthCard); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate WellKnown API")
	}

	// register all v1 routers
	v1 := engine.Group(V1Prefix)
	if err = HealthCardAPI(v1, shcService.HealthCard, httpServer); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate HealthCard API")
	}

	return &SHCServer{
		Server:       httpServer,
		SHCService:   shcService,
		ServerConfig: &cfg.Server,
	}, nil
}

// setUpEngine creates the gin engine and sets up the middleware based on config
func setUpEngine(cfg config.ServerConfig, shutdown chan os.Signal) *gin.Engine {
	middlewares := gin.HandlersChain{
		gin.Recovery(),
		middleware.Errors(shutdown),
		middleware.Logger(logrus.StandardLogger()),
		middleware.Metrics(),
	}
	if cfg.EnableAllowAllCORS {
		middlewares = append(middlewares, middleware.CORS())
	}

	// set up engine and middleware
	engine := gin.New()
	engine.Use(middlewares...)

	switch cfg.Environment {
	case config.EnvironmentDev:
		gin.SetMode(gin.DebugMode)
	case config.EnvironmentTest:
		gin.SetMode(gin.TestMode)
	case config.EnvironmentProd:
		gin.SetMode(gin.ReleaseMode)
	}
	return engine
}

// HealthCardAPI registers all HTTP routes for the Health Card Service
func HealthCardAPI(rg *gin.RouterGroup, service svcframework.Service, srv *framework.Server) (err error) {
	healthCardRouter, err := router.NewHealthCardRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating health card router")
	}

	healthCardAPI := rg.Group(HealthCardsPrefix)
	healthCardAPI.PUT("", srv.TracedHandler(HealthCardsPrefix, healthCardRouter.IssueHealthCard))
	healthCardAPI.PUT(VerificationPath, srv.TracedHandler(HealthCardsPrefix+VerificationPath, healthCardRouter.VerifyHealthCard))

	config.SetServicePath(svcframework.HealthCard, HealthCardsPrefix)
	return nil
}

// WellKnownAPI registers the issuer's published key set at the location
// verifiers expect to find it.
func WellKnownAPI(engine *gin.Engine, service *healthcard.Service) error {
	wellKnownRouter, err := router.NewWellKnownRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating well-known router")
	}

	engine.GET(keyset.WellKnownJWKSPath, wellKnownRouter.GetKeySet)
	return nil
}
