package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "kycgate/internal/http"
	identityhandler "kycgate/internal/identity/handler"
	identityservice "kycgate/internal/identity/service"
	identitystore "kycgate/internal/identity/store"
	kychandler "kycgate/internal/kyc/handler"
	"kycgate/internal/kyc/lock"
	kycmetrics "kycgate/internal/kyc/metrics"
	"kycgate/internal/kyc/providers/onramp"
	kycservice "kycgate/internal/kyc/service"
	kycstore "kycgate/internal/kyc/store"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/database"
	"kycgate/internal/platform/httpserver"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/metrics"
	platformredis "kycgate/internal/platform/redis"
	"kycgate/internal/platform/tracing"
	ratelimitmetrics "kycgate/internal/ratelimit/metrics"
	ratelimitmw "kycgate/internal/ratelimit/middleware"
	ratelimitmodels "kycgate/internal/ratelimit/models"
	"kycgate/internal/ratelimit/store/bucket"
	"kycgate/internal/tenant"
	tenantmetrics "kycgate/internal/tenant/metrics"
	tenantservice "kycgate/internal/tenant/service"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/publisher"
	kafkastore "kycgate/pkg/platform/audit/store/kafka"
	auditmemory "kycgate/pkg/platform/audit/store/memory"
	"kycgate/pkg/platform/circuit"
	txcontext "kycgate/pkg/platform/tx"
)

// sessionStore is the union of what the kyc and identity services need from
// the session store.
type sessionStore interface {
	kycservice.SessionStore
	identityservice.SessionCreator
}

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 5 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	shutdownTracing, err := tracing.Init(ctx, log, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName, string(cfg.Environment))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	checks := map[string]httpapi.ReadinessCheck{}

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["database"] = func(ctx context.Context) error { return database.Ping(ctx, db, pingTimeout) }
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = rdb.Health
		log.Info("redis connected")
	}

	auditStore, closeAudit, err := openAuditStore(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(1024),
	)
	defer auditPublisher.Close()

	locker, closeLocker, err := buildLocker(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tenants, err := tenant.NewService(tenant.NewStore(db),
		tenantservice.WithLogger(log),
		tenantservice.WithAuditPublisher(auditPublisher),
		tenantservice.WithMetrics(tenantmetrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("build tenant service: %w", err)
	}
	if cfg.Bootstrap.APIKey != "" {
		t, err := tenants.EnsureTenant(ctx, cfg.Bootstrap.TenantName, cfg.Bootstrap.APIKey)
		if err != nil {
			return fmt.Errorf("bootstrap tenant: %w", err)
		}
		log.Info("bootstrap tenant ready", "tenant_id", t.ID, "tenant_name", t.Name)
	}

	var (
		sessions sessionStore
		users    identityservice.UserStore
	)
	identityOpts := []identityservice.Option{
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(auditPublisher),
	}
	if db != nil {
		sessions = kycstore.NewPostgres(db)
		users = identitystore.NewPostgres(db)
		identityOpts = append(identityOpts, identityservice.WithStoreTx(txcontext.NewRunner(db)))
	} else {
		sessions = kycstore.NewInMemory()
		users = identitystore.NewInMemory()
	}
	identity, err := identityservice.New(users, sessions, identityOpts...)
	if err != nil {
		return fmt.Errorf("build identity service: %w", err)
	}

	provider := onramp.New(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Secret, cfg.Provider.Timeout)
	kyc, err := kycservice.New(sessions, identity, provider,
		kycservice.WithLogger(log),
		kycservice.WithAuditPublisher(auditPublisher),
		kycservice.WithMetrics(kycmetrics.New(reg)),
		kycservice.WithLocker(locker),
		kycservice.WithSandbox(cfg.IsSandbox()),
	)
	if err != nil {
		return fmt.Errorf("build kyc service: %w", err)
	}

	limit := ratelimitmodels.Limit{PerMinute: cfg.RateLimit.PerMinute, Burst: cfg.RateLimit.Burst}
	limiterOpts := []ratelimitmw.Option{
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithBreaker(circuit.New("ratelimit")),
	}
	if rdb != nil {
		limiterOpts = append(limiterOpts, ratelimitmw.WithPrimary(bucket.NewRedis(rdb.Client)))
	}
	limiter := ratelimitmw.New(bucket.New(), limit, log, limiterOpts...)

	router := httpapi.NewRouter(httpapi.Config{
		Logger:        log,
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
		Authenticator: tenants,
		RateLimit:     limiter.RateLimitTenant(),
		Handlers: []httpapi.Registrar{
			identityhandler.New(identity, log),
			kychandler.New(kyc, identity, log),
			tenant.NewHandler(tenants, log),
		},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting kycgate",
			"addr", cfg.Addr,
			"environment", cfg.Environment,
			"lock_backend", cfg.LockBackend,
			"persistent", db != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// openDatabase returns nil when no DATABASE_URL is configured; stores then run in memory.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	if cfg.URL == "" {
		log.Info("DATABASE_URL not set, using in-memory stores")
		return nil, nil
	}
	db, err := database.Open(cfg.URL, database.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, pingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := database.RunMigrations(cfg.URL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database connected, migrations applied")
	return db, nil
}

func openAuditStore(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Brokers) == 0 {
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}
	store, err := kafkastore.New(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureTopic(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	return store, store.Close, nil
}

func buildLocker(ctx context.Context, cfg config.Server, rdb *platformredis.Client, log *slog.Logger) (lock.Locker, func(), error) {
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		log.Info("verification locks held in redis", "ttl", cfg.LockTTL)
		return lock.NewRedis(rdb.Client, lock.WithTTL(cfg.LockTTL), lock.WithRedisLogger(log)), func() {}, nil
	case config.LockBackendPostgres:
		pool, err := lock.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open lock pool: %w", err)
		}
		return lock.NewPostgres(pool, log), pool.Close, nil
	default:
		return lock.NewMemory(), func() {}, nil
	}
}
