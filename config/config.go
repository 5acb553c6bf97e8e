package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfigPath = "config/config.toml"
	ConfigFileName    = "config.toml"
	ServiceName       = "shc-service"
	ConfigExtension   = ".toml"

	DefaultIssuer          = "http://localhost:8080"
	DefaultServiceEndpoint = "http://localhost:8080"

	EnvironmentDev  = "dev"
	EnvironmentTest = "test"
	EnvironmentProd = "prod"

	ConfigPathKey = "CONFIG_PATH"
)

type SHCServiceConfig struct {
	conf.Version
	Server   ServerConfig   `toml:"server"`
	Services ServicesConfig `toml:"services"`
}

// ServerConfig represents configurable properties for the HTTP server
type ServerConfig struct {
	Environment        string        `toml:"env" conf:"default:dev"`
	APIHost            string        `toml:"api_host" conf:"default:0.0.0.0:8080"`
	JagerHost          string        `toml:"jager_host" conf:"http://jaeger:14268/api/traces"`
	JagerEnabled       bool          `toml:"jager_enabled" conf:"default:false"`
	ReadTimeout        time.Duration `toml:"read_timeout" conf:"default:5s"`
	WriteTimeout       time.Duration `toml:"write_timeout" conf:"default:5s"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout" conf:"default:5s"`
	LogLocation        string        `toml:"log_location" conf:"default:log"`
	LogLevel           string        `toml:"log_level" conf:"default:debug"`
	EnableAllowAllCORS bool          `toml:"enable_allow_all_cors" conf:"default:false"`
}

// ServicesConfig represents configurable properties for the components of the SHC Service
type ServicesConfig struct {
	ServiceEndpoint string `toml:"service_endpoint"`

	HealthCardConfig HealthCardServiceConfig `toml:"healthcard,omitempty"`
}

// BaseServiceConfig represents configurable properties for a specific component of the SHC Service
type BaseServiceConfig struct {
	Name            string `toml:"name"`
	ServiceEndpoint string `toml:"service_endpoint"`
}

type HealthCardServiceConfig struct {
	*BaseServiceConfig

	// Issuer is the URI placed in the iss claim of every issued card, and
	// the base URL verifiers use to find this issuer's published key set.
	Issuer string `toml:"issuer"`

	// KeyPath points at the issuer's P-256 signing key (PEM or JWK). When
	// empty an ephemeral key is generated at startup, which is only useful
	// for development.
	KeyPath string `toml:"key_path"`

	// MaxChunkChars caps the numeric characters carried by one QR symbol.
	// Zero means the protocol convention of 1195.
	MaxChunkChars int `toml:"max_chunk_chars"`

	// FHIRVersion is applied to issue requests that do not carry their own.
	FHIRVersion string `toml:"fhir_version"`

	// TrustedIssuers lists issuer URIs whose published key sets this
	// service will resolve against when verifying third-party cards, in
	// addition to its own keys.
	TrustedIssuers []string `toml:"trusted_issuers"`
}

func (h *HealthCardServiceConfig) IsEmpty() bool {
	if h == nil {
		return true
	}
	return reflect.DeepEqual(h, &HealthCardServiceConfig{})
}

// LoadConfig attempts to load a TOML config file from the given path, and coerce it into our object model.
// Before loading, defaults are applied on certain properties, which are overwritten if specified in the TOML file.
func LoadConfig(path string) (*SHCServiceConfig, error) {
	// an optional .env file may carry flag values for local development
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	// no path, load default config
	defaultConfig := false
	if path == "" {
		logrus.Info("no config path provided, loading default config...")
		defaultConfig = true
	} else if filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	// create the config object
	var config SHCServiceConfig

	// parse and apply defaults
	if err := conf.Parse(os.Args[1:], ServiceName, &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)

			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}

			fmt.Println(version)
			return nil, nil
		}

		return nil, errors.Wrap(err, "parsing config")
	}

	if defaultConfig {
		config.Services = ServicesConfig{
			ServiceEndpoint: DefaultServiceEndpoint,
			HealthCardConfig: HealthCardServiceConfig{
				BaseServiceConfig: &BaseServiceConfig{Name: "healthcard", ServiceEndpoint: DefaultServiceEndpoint},
				Issuer:            DefaultIssuer,
			},
		}
	} else {
		// load from TOML file
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}

		// apply defaults if not included in toml file
		if config.Services.HealthCardConfig.BaseServiceConfig == nil {
			config.Services.HealthCardConfig.BaseServiceConfig = &BaseServiceConfig{Name: "healthcard"}
		}
		if config.Services.HealthCardConfig.BaseServiceConfig.ServiceEndpoint == "" {
			config.Services.HealthCardConfig.BaseServiceConfig.ServiceEndpoint = config.Services.ServiceEndpoint
		}
		if config.Services.HealthCardConfig.Issuer == "" {
			config.Services.HealthCardConfig.Issuer = config.Services.ServiceEndpoint
		}
	}

	return &config, nil
}
