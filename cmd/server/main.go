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

	"dlvery/internal/auth/device"
	authhandler "dlvery/internal/auth/handler"
	"dlvery/internal/auth/lockout"
	authmetrics "dlvery/internal/auth/metrics"
	authservice "dlvery/internal/auth/service"
	"dlvery/internal/auth/store/profile"
	"dlvery/internal/auth/store/revocation"
	userstore "dlvery/internal/auth/store/user"
	"dlvery/internal/auth/token"
	"dlvery/internal/delivery/events"
	deliveryhandler "dlvery/internal/delivery/handler"
	deliverymetrics "dlvery/internal/delivery/metrics"
	deliveryservice "dlvery/internal/delivery/service"
	deliverystore "dlvery/internal/delivery/store"
	inventoryhandler "dlvery/internal/inventory/handler"
	inventorymetrics "dlvery/internal/inventory/metrics"
	inventoryservice "dlvery/internal/inventory/service"
	inventorystore "dlvery/internal/inventory/store"
	"dlvery/internal/platform/config"
	"dlvery/internal/platform/httpserver"
	"dlvery/internal/platform/kafka"
	"dlvery/internal/platform/logger"
	"dlvery/internal/platform/metrics"
	"dlvery/internal/platform/middleware"
	"dlvery/internal/platform/postgres"
	redisclient "dlvery/internal/platform/redis"
	sigstore "dlvery/internal/signature/store"
	httptransport "dlvery/internal/transport/http"
	"dlvery/pkg/platform/circuit"
)

const (
	tokenAudience       = "dlvery-api"
	startupTimeout      = 15 * time.Second
	shutdownTimeout     = 10 * time.Second
	revocationPurgeTick = 15 * time.Minute
)

// infra holds the optional backends. Nil fields mean the in-memory fallback is used.
type infra struct {
	db       *sql.DB
	redis    *redisclient.Client
	producer *kafka.Producer
	minio    *sigstore.MinioStore
}

func (i *infra) close() {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	backends, err := connect(startCtx, cfg, log)
	cancel()
	if err != nil {
		return err
	}
	defer backends.close()

	httpMetrics := metrics.New()

	trl, revocations := buildRevocationList(backends)
	users := buildUserStore(backends)
	lockouts, err := buildLockout(backends, cfg.Auth, log)
	if err != nil {
		return fmt.Errorf("init login lockout: %w", err)
	}
	jwtService := token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, tokenAudience)

	auth, err := authservice.New(users, trl, jwtService,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithTokenTTL(cfg.Auth.TokenTTL),
		authservice.WithBcryptCost(cfg.Auth.BcryptCost),
		authservice.WithLockout(lockouts),
		authservice.WithDeviceService(device.NewService(cfg.Auth.DeviceFingerprint)),
		authservice.WithProfileStore(buildProfileStore(backends)),
	)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	deliveries, err := deliveryservice.New(buildDeliveryStore(backends), buildSignatureStore(backends),
		deliveryservice.WithLogger(log),
		deliveryservice.WithMetrics(deliverymetrics.New()),
		deliveryservice.WithEventPublisher(buildPublisher(backends, cfg.Kafka, log)),
	)
	if err != nil {
		return fmt.Errorf("init delivery service: %w", err)
	}

	inventory, err := inventoryservice.New(buildInventoryStore(backends), deliveries, auth,
		inventoryservice.WithLogger(log),
		inventoryservice.WithMetrics(inventorymetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("init inventory service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        httpMetrics,
		RequestTimeout: cfg.RequestTimeout,
		Tokens:         token.NewJWTServiceAdapter(jwtService),
		Revocations:    revocations,
		Auth:           authhandler.New(auth, log),
		Deliveries:     deliveryhandler.New(deliveries, log),
		Inventory:      inventoryhandler.New(inventory, log),
		HealthChecks:   healthChecks(backends),
	})

	if pg, ok := trl.(*revocation.PostgresTRL); ok {
		go purgeRevocations(ctx, pg, log)
	}

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting dlvery", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
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

// connect opens every configured backend. An unset endpoint is not an error;
// a configured one that cannot be reached is.
func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	b := &infra{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		b.db = db
		if err := postgres.Migrate(ctx, db,
			deliverystore.Schema,
			userstore.Schema,
			profile.Schema,
			revocation.Schema,
			inventorystore.Schema,
		); err != nil {
			b.close()
			return nil, err
		}
		log.Info("postgres connected")
	}

	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		b.close()
		return nil, err
	}
	if client != nil {
		b.redis = client
		log.Info("redis connected")
	}

	if cfg.Minio.Endpoint != "" {
		store, err := sigstore.NewMinio(ctx, sigstore.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Bucket:    cfg.Minio.Bucket,
		})
		if err != nil {
			b.close()
			return nil, err
		}
		b.minio = store
		log.Info("minio connected", "bucket", cfg.Minio.Bucket)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, kafka.WithLogger(log))
		if err != nil {
			b.close()
			return nil, err
		}
		b.producer = producer
		if err := producer.EnsureTopics(ctx, 3, 1, cfg.Kafka.StatusTopic); err != nil {
			b.close()
			return nil, err
		}
		log.Info("kafka connected", "topic", cfg.Kafka.StatusTopic)
	}
	return b, nil
}

func buildUserStore(b *infra) authservice.UserStore {
	if b.db != nil {
		return userstore.NewPostgres(b.db)
	}
	return userstore.New()
}

func buildProfileStore(b *infra) authservice.ProfileStore {
	if b.db != nil {
		return profile.NewPostgres(b.db)
	}
	return profile.New()
}

// revocationList is what both the auth service and RequireAuth need.
type revocationList interface {
	authservice.RevocationList
	middleware.TokenRevocationChecker
}

func buildRevocationList(b *infra) (authservice.RevocationList, middleware.TokenRevocationChecker) {
	var trl revocationList
	switch {
	case b.redis != nil:
		trl = revocation.NewRedisTRL(b.redis.Client)
	case b.db != nil:
		trl = revocation.NewPostgresTRL(b.db, time.Now)
	default:
		trl = revocation.NewInMemoryTRL(time.Now)
	}
	return trl, trl
}

func buildLockout(b *infra, cfg config.AuthConfig, log *slog.Logger) (*lockout.Service, error) {
	var store lockout.Store = lockout.NewInMemoryStore(time.Now)
	if b.redis != nil {
		store = lockout.NewRedisStore(b.redis.Client)
	}
	return lockout.New(store,
		lockout.WithLogger(log),
		lockout.WithPolicy(lockout.Policy{
			MaxAttempts:  cfg.LoginMaxAttempts,
			Window:       cfg.LoginWindow,
			LockDuration: cfg.LoginLockDuration,
		}),
	)
}

func buildDeliveryStore(b *infra) deliveryservice.Store {
	if b.db != nil {
		return deliverystore.NewPostgres(b.db)
	}
	return deliverystore.NewInMemory()
}

func buildInventoryStore(b *infra) inventoryservice.Store {
	if b.db != nil {
		return inventorystore.NewPostgres(b.db)
	}
	return inventorystore.NewInMemory()
}

func buildSignatureStore(b *infra) deliveryservice.SignatureStore {
	if b.minio != nil {
		return b.minio
	}
	return sigstore.NewInMemory()
}

func buildPublisher(b *infra, cfg config.KafkaConfig, log *slog.Logger) deliveryservice.EventPublisher {
	fallback := events.NewInMemoryPublisher(log)
	if b.producer == nil {
		return fallback
	}
	breaker := circuit.New("kafka-status-events", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
	return events.NewGuardedPublisher(events.NewKafkaPublisher(b.producer, cfg.StatusTopic), fallback, breaker, log)
}

func healthChecks(b *infra) map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if b.db != nil {
		checks["postgres"] = b.db.PingContext
	}
	if b.redis != nil {
		checks["redis"] = b.redis.Health
	}
	if b.producer != nil {
		checks["kafka"] = b.producer.Ping
	}
	return checks
}

func purgeRevocations(ctx context.Context, trl *revocation.PostgresTRL, log *slog.Logger) {
	ticker := time.NewTicker(revocationPurgeTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := trl.PurgeExpired(ctx)
			if err != nil {
				log.Warn("failed to purge expired revocations", "error", err)
				continue
			}
			if n > 0 {
				log.Info("purged expired revocations", "count", n)
			}
		}
	}
}
