package config

import (
	"errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"strings"
	"time"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	SessionStorageMemory = "memory"
	SessionStorageRedis  = "redis"
)

var (
	ErrUnknownStorageDriver  = errors.New("unknown storage driver (expected 'postgres' or 'memory')")
	ErrMissingPostgresDSN    = errors.New("the postgres storage driver requires ASSETDESK_POSTGRES_DSN")
	ErrUnknownSessionStorage = errors.New("unknown session storage (expected 'memory' or 'redis')")
	ErrMissingRedisAddress   = errors.New("the redis session storage requires ASSETDESK_REDIS_ADDRESS")
	ErrMissingOIDCProvider   = errors.New("ASSETDESK_OIDC_PROVIDER_URL and ASSETDESK_OIDC_CLIENT_ID are required")
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"prod"`

	ListenAddress string `split_words:"true" default:":8080"`
	BaseAddress   string `split_words:"true" default:"http://localhost:8080"`
	AllowedOrigin string `split_words:"true" default:"*"`

	StorageDriver        string        `split_words:"true" default:"postgres"`
	StorageCacheLifetime time.Duration `split_words:"true" default:"5m"`
	PostgresDSN          string        `split_words:"true"`

	SessionStorage       string        `split_words:"true" default:"memory"`
	SessionLifetime      time.Duration `split_words:"true" default:"168h"`
	SessionRefreshLeeway time.Duration `split_words:"true" default:"1m"`
	RedisAddress         string        `split_words:"true"`
	RedisPassword        string        `split_words:"true"`
	RedisDB              int           `split_words:"true" default:"0"`

	OIDCProviderURL  string `envconfig:"OIDC_PROVIDER_URL"`
	OIDCClientID     string `envconfig:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `envconfig:"OIDC_CLIENT_SECRET"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("assetdesk", config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the settings required by the selected drivers are present
func (config *Config) Validate() error {
	switch config.StorageDriver {
	case StorageDriverPostgres:
		if config.PostgresDSN == "" {
			return ErrMissingPostgresDSN
		}
	case StorageDriverMemory:
	default:
		return ErrUnknownStorageDriver
	}

	switch config.SessionStorage {
	case SessionStorageRedis:
		if config.RedisAddress == "" {
			return ErrMissingRedisAddress
		}
	case SessionStorageMemory:
	default:
		return ErrUnknownSessionStorage
	}

	if config.OIDCProviderURL == "" || config.OIDCClientID == "" {
		return ErrMissingOIDCProvider
	}
	return nil
}

// IsEnvProduction reports whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.ToLower(config.Environment) == "prod"
}

// IsSecure reports whether the application is served over HTTPS and cookies should be marked as secure
func (config *Config) IsSecure() bool {
	return strings.HasPrefix(strings.ToLower(config.BaseAddress), "https://")
}
