package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fluxgate-io/fluxgate/internal/audit"
	"github.com/fluxgate-io/fluxgate/internal/connectors"
	"github.com/fluxgate-io/fluxgate/internal/delivery"
	"github.com/fluxgate-io/fluxgate/internal/dlq"
	"github.com/fluxgate-io/fluxgate/internal/gateway"
	"github.com/fluxgate-io/fluxgate/internal/idempotency"
	"github.com/fluxgate-io/fluxgate/internal/metrics"
	"github.com/fluxgate-io/fluxgate/internal/normalizer"
	"github.com/fluxgate-io/fluxgate/internal/policy"
	"github.com/fluxgate-io/fluxgate/internal/schema"
	"github.com/fluxgate-io/fluxgate/internal/server"
	"github.com/fluxgate-io/fluxgate/internal/syncer"
	"github.com/fluxgate-io/fluxgate/internal/translator"
	"github.com/fluxgate-io/fluxgate/internal/trust"
	"github.com/fluxgate-io/fluxgate/internal/vault"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fluxgate gateway service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, asyncHandler := logging.NewAsync(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
		cfg.Logging.QueueSize,
	)
	logger = logger.With(logging.Service("fluxgate"))
	logging.SetDefault(logger)
	defer asyncHandler.Stop()

	logger.Info("starting fluxgate",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"dlq_backend", cfg.DLQ.Backend,
		"vault_backend", cfg.Vault.Backend,
	)

	ctx := context.Background()

	if cfg.DLQ.Backend == "postgres" || cfg.Vault.Backend == "postgres" {
		if err := runMigrations(cfg.Database.Postgres.ConnString(), logger); err != nil {
			return err
		}
	}

	// Storage ports
	var dlqStore dlq.Store
	switch cfg.DLQ.Backend {
	case "postgres":
		store, err := dlq.NewPostgresStore(ctx, cfg.Database.Postgres.ConnString())
		if err != nil {
			return fmt.Errorf("connect dlq store: %w", err)
		}
		defer store.Close()
		dlqStore = store
	default:
		logger.Warn("using in-memory dead-letter store (development only)")
		dlqStore = dlq.NewMemoryStore()
	}

	var vaultStore vault.Store
	switch cfg.Vault.Backend {
	case "postgres":
		store, err := vault.NewPostgresStore(ctx, cfg.Database.Postgres.ConnString())
		if err != nil {
			return fmt.Errorf("connect vault store: %w", err)
		}
		defer store.Close()
		vaultStore = store
	default:
		logger.Warn("using in-memory vault store (development only)")
		vaultStore = vault.NewMemoryStore()
	}
	credVault := vault.New(cfg.Vault.Key, vaultStore, logger)

	// Idempotency wrapper
	var wrapper idempotency.Wrapper
	switch cfg.Idem.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		wrapper = idempotency.NewRedisWrapper(client, cfg.Idem.TTL)
	default:
		wrapper = idempotency.NewMemoryWrapper(cfg.Idem.TTL)
	}

	// Policy profiles
	profiles, err := policy.LoadProfiles(cfg.Policy.ProfilesPath)
	if err != nil {
		logger.Warn("could not load policy profiles, all events pass through unfiltered",
			"path", cfg.Policy.ProfilesPath,
			logging.Error(err),
		)
		profiles = policy.Profiles{}
	}

	// Pipeline stages
	trustClient := trust.NewClient(cfg.Trust.URL, cfg.Trust.Timeout)
	normSvc := normalizer.NewService(normalizer.DefaultRegistry(), trustClient, logger)
	engine := policy.NewEngine(profiles, logger)
	trans := translator.New(profiles.AppLocale, logger)
	sink := delivery.NewClient(cfg.Sink.URL, cfg.Sink.Timeout)
	deliverySvc := delivery.NewService(sink, cfg.Delivery.MaxAttempts, cfg.Delivery.BaseInterval, logger)
	chain := gateway.NewChain(normSvc, engine, trans, deliverySvc, cfg.Sink.Apps, logger)

	var signer *audit.Signer
	if cfg.Audit.SigningKey != "" {
		signer = audit.NewSigner(cfg.Audit.SigningKey)
	}

	var publisher gateway.OutcomePublisher
	if cfg.NATS.Enabled {
		p, err := audit.NewPublisher(cfg.NATS.URL, logger)
		if err != nil {
			logger.Warn("could not connect to NATS, outcome feed disabled", logging.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	collector := metrics.NewCollector(cfg.Metrics.Window)
	gw := gateway.New(trustClient, chain, wrapper, dlqStore, signer, publisher, collector, logger)

	// Connector sync
	conns := make([]connectors.Connector, 0, len(cfg.Sync.Providers))
	for provider, baseURL := range cfg.Sync.Providers {
		conns = append(conns, connectors.NewHTTPConnector(provider, baseURL, cfg.Sync.Timeout))
	}
	registry := connectors.NewRegistry(conns...)
	orchestrator := syncer.New(credVault, registry, chain, cfg.Sync.BatchSize, cfg.Sync.ProviderRateRPS, logger)

	// Background replay
	replayer := dlq.NewReplayer(dlqStore, deliverySvc, cfg.DLQ.ReplayInterval, cfg.DLQ.ReplayBatch, logger)
	replayCtx, stopReplay := context.WithCancel(ctx)
	defer stopReplay()
	go replayer.Run(replayCtx)

	// HTTP server
	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("compile input schemas: %w", err)
	}
	handler := server.NewHandler(gw, orchestrator, validator, dlqStore, replayer, collector, logger)
	auth := server.NewAuthenticator(cfg.Auth.JWTSecret)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("api authentication disabled: no jwt secret configured")
	}
	router := server.NewRouter(handler, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("fluxgate listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopReplay()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// runMigrations applies the SQL migrations before any postgres-backed store
// connects.
func runMigrations(connString string, logger *logging.Logger) error {
	logger.Info("running database migrations")

	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		logger.Warn("could not read migration version", logging.Error(err))
		return nil
	}
	logger.Info("database migration complete", "version", version, "dirty", dirty)
	return nil
}
