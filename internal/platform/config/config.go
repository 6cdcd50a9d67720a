package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment selects provider behavior and whether sandbox-only operations are allowed.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvSandbox     Environment = "sandbox"
)

// ProviderTestBaseURL is the provider's test host, expected in sandbox mode.
const ProviderTestBaseURL = "https://api-test.onramp.money"

// Lock backends for per-user serialization of StartVerification.
const (
	LockBackendMemory   = "memory"
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment Environment
	LockBackend string
	// LockTTL is the lease of a Redis verification lock. Nothing renews it, so it
	// has to outlast a whole StartVerification; see MinLockTTL.
	LockTTL  time.Duration
	LogLevel string

	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
	Bootstrap BootstrapConfig
}

// DatabaseConfig is empty URL when stores run in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderConfig holds the external verification service credentials.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Secret  string
	Timeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// BootstrapConfig seeds one tenant with a known API key at startup. Mostly
// useful with in-memory stores, where tenants do not survive restarts.
type BootstrapConfig struct {
	TenantName string
	APIKey     string
}

type TracingConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// IsSandbox reports whether administrative status overrides are allowed.
func (s Server) IsSandbox() bool {
	return s.Environment == EnvSandbox
}

// StartVerification makes at most this many sequential provider calls before it
// persists: register, re-register with the existing id, fetch status.
const providerCallsPerStart = 3

const lockPersistHeadroom = 10 * time.Second

// MinLockTTL is the longest a StartVerification can hold its lock when every
// provider call runs to the timeout.
func (s Server) MinLockTTL() time.Duration {
	return providerCallsPerStart*s.Provider.Timeout + lockPersistHeadroom
}

// Warnings lists non-fatal configuration concerns worth logging at startup.
func (s Server) Warnings() []string {
	if !s.IsSandbox() {
		return nil
	}
	warnings := []string{"running in sandbox mode: administrative status overrides are enabled"}
	if strings.TrimRight(s.Provider.BaseURL, "/") != ProviderTestBaseURL {
		warnings = append(warnings, fmt.Sprintf("sandbox mode with non-test provider base URL %q", s.Provider.BaseURL))
	}
	return warnings
}

// FromEnv builds a Server config from environment variables so main stays lean.
// The returned error lists every missing or invalid variable.
func FromEnv() (Server, error) {
	var missing, invalid []string

	cfg := Server{
		Addr:        getEnvString("KYCGATE_ADDR", ":8000"),
		Environment: Environment(os.Getenv("ENVIRONMENT")),
		LockBackend: getEnvString("LOCK_BACKEND", LockBackendMemory),
		LogLevel:    getEnvString("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Provider: ProviderConfig{
			BaseURL: os.Getenv("ONRAMP_API_BASE_URL"),
			APIKey:  os.Getenv("ONRAMP_API_KEY"),
			Secret:  os.Getenv("ONRAMP_API_SECRET"),
			Timeout: getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnvString("KAFKA_AUDIT_TOPIC", "kycgate.audit"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  getEnvString("OTEL_SERVICE_NAME", "kycgate"),
		},
		Bootstrap: BootstrapConfig{
			TenantName: getEnvString("BOOTSTRAP_TENANT_NAME", "default"),
			APIKey:     os.Getenv("BOOTSTRAP_API_KEY"),
		},
	}

	cfg.LockTTL = getEnvDuration("LOCK_TTL", cfg.MinLockTTL())

	switch cfg.Environment {
	case "":
		missing = append(missing, "ENVIRONMENT")
	case EnvDevelopment, EnvProduction, EnvSandbox:
	default:
		invalid = append(invalid, "ENVIRONMENT (must be development, production or sandbox)")
	}
	if cfg.Provider.BaseURL == "" {
		missing = append(missing, "ONRAMP_API_BASE_URL")
	}
	if cfg.Provider.APIKey == "" {
		missing = append(missing, "ONRAMP_API_KEY")
	}
	if cfg.Provider.Secret == "" {
		missing = append(missing, "ONRAMP_API_SECRET")
	}

	switch cfg.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if cfg.Redis.URL == "" {
			invalid = append(invalid, "LOCK_BACKEND=redis requires REDIS_URL")
		}
		if cfg.LockTTL < cfg.MinLockTTL() {
			invalid = append(invalid, fmt.Sprintf("LOCK_TTL %s is shorter than %s (3 x PROVIDER_TIMEOUT + %s)",
				cfg.LockTTL, cfg.MinLockTTL(), lockPersistHeadroom))
		}
	case LockBackendPostgres:
		if cfg.Database.URL == "" {
			invalid = append(invalid, "LOCK_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		invalid = append(invalid, "LOCK_BACKEND (must be memory, redis or postgres)")
	}
	if cfg.RateLimit.PerMinute < 0 || cfg.RateLimit.Burst < 0 {
		invalid = append(invalid, "RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must not be negative")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, fmt.Sprintf("required environment variables are not set: %v", missing))
		}
		if len(invalid) > 0 {
			parts = append(parts, fmt.Sprintf("invalid environment variables: %v", invalid))
		}
		return Server{}, fmt.Errorf("%s", strings.Join(parts, "; "))
	}
	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
