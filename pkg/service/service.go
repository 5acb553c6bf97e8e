package service

import (
	"fmt"

	"github.com/healthwallet/shc-service/config"
	"github.com/healthwallet/shc-service/internal/util"
	"github.com/healthwallet/shc-service/pkg/service/framework"
	"github.com/healthwallet/shc-service/pkg/service/healthcard"
)

// SHCService represents all services and their dependencies independent of transport
type SHCService struct {
	HealthCard *healthcard.Service
}

// InstantiateSHCService creates a new instance of the SHC service which instantiates all services and their
// dependencies independent of transport.
func InstantiateSHCService(config config.ServicesConfig) (*SHCService, error) {
	if err := validateServiceConfig(config); err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate SHC service, invalid config")
	}
	service, err := instantiateServices(config)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the shc service")
	}
	return service, nil
}

func validateServiceConfig(config config.ServicesConfig) error {
	if config.HealthCardConfig.IsEmpty() {
		return fmt.Errorf("%s no config provided", framework.HealthCard)
	}
	return nil
}

// instantiateServices begins all instantiates and their dependencies
func instantiateServices(config config.ServicesConfig) (*SHCService, error) {
	healthCardService, err := healthcard.NewHealthCardService(config.HealthCardConfig)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "could not instantiate the health card service")
	}
	return &SHCService{HealthCard: healthCardService}, nil
}

// GetServices returns the service instances as the generic framework type, for readiness reporting.
func (s *SHCService) GetServices() []framework.Service {
	return []framework.Service{s.HealthCard}
}
