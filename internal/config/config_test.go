package config

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("ASSETDESK_STORAGE_DRIVER", "memory")
	t.Setenv("ASSETDESK_OIDC_PROVIDER_URL", "https://id.example.com")
	t.Setenv("ASSETDESK_OIDC_CLIENT_ID", "assetdesk")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, SessionStorageMemory, cfg.SessionStorage)
	require.Equal(t, 168*time.Hour, cfg.SessionLifetime)
	require.Equal(t, time.Minute, cfg.SessionRefreshLeeway)
	require.True(t, cfg.IsEnvProduction())
	require.False(t, cfg.IsSecure())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ASSETDESK_ENVIRONMENT", "dev")
	t.Setenv("ASSETDESK_BASE_ADDRESS", "https://assets.example.com")
	t.Setenv("ASSETDESK_SESSION_STORAGE", "redis")
	t.Setenv("ASSETDESK_REDIS_ADDRESS", "127.0.0.1:6379")
	t.Setenv("ASSETDESK_SESSION_REFRESH_LEEWAY", "30s")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.False(t, cfg.IsEnvProduction())
	require.True(t, cfg.IsSecure())
	require.Equal(t, "127.0.0.1:6379", cfg.RedisAddress)
	require.Equal(t, 30*time.Second, cfg.SessionRefreshLeeway)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      Config
		expected error
	}{
		{
			name:     "postgres without dsn",
			cfg:      Config{StorageDriver: StorageDriverPostgres, SessionStorage: SessionStorageMemory, OIDCProviderURL: "x", OIDCClientID: "y"},
			expected: ErrMissingPostgresDSN,
		},
		{
			name:     "unknown storage driver",
			cfg:      Config{StorageDriver: "sqlite", SessionStorage: SessionStorageMemory, OIDCProviderURL: "x", OIDCClientID: "y"},
			expected: ErrUnknownStorageDriver,
		},
		{
			name:     "redis without address",
			cfg:      Config{StorageDriver: StorageDriverMemory, SessionStorage: SessionStorageRedis, OIDCProviderURL: "x", OIDCClientID: "y"},
			expected: ErrMissingRedisAddress,
		},
		{
			name:     "unknown session storage",
			cfg:      Config{StorageDriver: StorageDriverMemory, SessionStorage: "file", OIDCProviderURL: "x", OIDCClientID: "y"},
			expected: ErrUnknownSessionStorage,
		},
		{
			name:     "missing oidc provider",
			cfg:      Config{StorageDriver: StorageDriverMemory, SessionStorage: SessionStorageMemory},
			expected: ErrMissingOIDCProvider,
		},
		{
			name: "valid",
			cfg:  Config{StorageDriver: StorageDriverPostgres, PostgresDSN: "postgres://", SessionStorage: SessionStorageMemory, OIDCProviderURL: "x", OIDCClientID: "y"},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.cfg.Validate()
			if testCase.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, testCase.expected)
		})
	}
}
