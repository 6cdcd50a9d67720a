package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("ONRAMP_API_BASE_URL", "https://api.onramp.money")
	t.Setenv("ONRAMP_API_KEY", "key")
	t.Setenv("ONRAMP_API_SECRET", "secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, LockBackendMemory, cfg.LockBackend)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 55*time.Second, cfg.LockTTL)
	assert.Equal(t, "kycgate.audit", cfg.Kafka.AuditTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsSandbox())
	assert.Empty(t, cfg.Warnings())
	assert.Equal(t, "default", cfg.Bootstrap.TenantName)
	assert.Empty(t, cfg.Bootstrap.APIKey)
}

func TestFromEnv_ReportsEveryMissingVariable(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ONRAMP_API_BASE_URL", "")
	t.Setenv("ONRAMP_API_KEY", "")
	t.Setenv("ONRAMP_API_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	for _, name := range []string{"ENVIRONMENT", "ONRAMP_API_BASE_URL", "ONRAMP_API_KEY", "ONRAMP_API_SECRET"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestFromEnv_RejectsUnknownEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "staging")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENVIRONMENT")
}

func TestFromEnv_LockBackendNeedsItsStore(t *testing.T) {
	setRequired(t)
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestFromEnv_LockTTLCoversProviderCalls(t *testing.T) {
	t.Run("derived from the provider timeout", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOCK_BACKEND", "redis")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("PROVIDER_TIMEOUT", "30s")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 100*time.Second, cfg.LockTTL)
	})

	t.Run("explicit lease shorter than three provider calls", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOCK_BACKEND", "redis")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("PROVIDER_TIMEOUT", "30s")
		t.Setenv("LOCK_TTL", "60s")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LOCK_TTL")
	})

	t.Run("ignored by backends without a lease", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOCK_TTL", "1s")

		_, err := FromEnv()
		require.NoError(t, err)
	})
}

func TestFromEnv_ParsesLists(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestSandboxWarnings(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "sandbox")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsSandbox())
	assert.Len(t, cfg.Warnings(), 2, "non-test host adds a second warning")

	cfg.Provider.BaseURL = ProviderTestBaseURL + "/"
	assert.Len(t, cfg.Warnings(), 1)
}
