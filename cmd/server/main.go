package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/keyreg/internal/application"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/internal/domain/repository"
	"github.com/turtacn/keyreg/internal/domain/service"
	"github.com/turtacn/keyreg/internal/infrastructure/audit"
	"github.com/turtacn/keyreg/internal/infrastructure/consumers"
	"github.com/turtacn/keyreg/internal/infrastructure/monitoring"
	"github.com/turtacn/keyreg/internal/infrastructure/persistence/memory"
	redisstore "github.com/turtacn/keyreg/internal/infrastructure/persistence/redis"
	"github.com/turtacn/keyreg/internal/infrastructure/scheduler"
	"github.com/turtacn/keyreg/internal/interfaces/http/handlers"
	"github.com/turtacn/keyreg/internal/interfaces/http/router"
	"github.com/turtacn/keyreg/pkg/logger"
)

// configFileEnv names an explicit config file; unset searches the default paths.
const configFileEnv = "KEYREG_CONFIG_FILE"

func main() {
	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	loader := config.NewLoader(os.Getenv(configFileEnv), startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	loader.Watch(func(next *config.Config) {
		appLogger.SetLevel(next.Log.Level)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal(context.Background(), "Server exited with error", err)
	}
	appLogger.Info(context.Background(), "Server exited")
}

func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	checks := map[string]handlers.HealthCheck{}
	var closers []func() error

	// Confirmation token store
	var tokens repository.ConfirmationRepository
	switch cfg.Bulk.TokenStore {
	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.Redis, appLogger)
		if err != nil {
			return err
		}
		closers = append(closers, client.Close)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		tokens = redisstore.NewConfirmationStore(client, cfg.Redis.KeyPrefix)
	default:
		tokens = memory.NewConfirmationStore(time.Minute)
	}

	// Audit store
	var events repository.AuditEventRepository
	switch cfg.Audit.Store {
	case "sqlite", "postgres":
		db, err := audit.OpenDatabase(cfg.Audit)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		closers = append(closers, sqlDB.Close)
		checks["audit_db"] = sqlDB.PingContext
		store, err := audit.NewGormAuditStore(db)
		if err != nil {
			return err
		}
		events = store
	default:
		events = memory.NewAuditStore()
	}

	var publisher service.EventPublisher = service.NoopPublisher{}
	if cfg.Kafka.Enabled && cfg.Kafka.LifecycleTopic != "" {
		kp := audit.NewKafkaPublisher(cfg.Kafka, appLogger)
		closers = append(closers, kp.Close)
		publisher = kp
	}

	keys := memory.NewKeyStore()
	opts := []application.Option{application.WithTracer(tracing.Tracer())}

	keyRegistry := application.NewKeyRegistryService(keys, events, publisher, metrics, appLogger, opts...)
	bulk := application.NewBulkCoordinator(keyRegistry, tokens, events, cfg.Bulk, metrics, appLogger, opts...)
	auditLog := application.NewAuditQueryService(events, metrics, appLogger, opts...)
	selections := application.NewSelectionRegistry(keys, cfg.Selection.IdleTTL)

	r := router.NewRouter(cfg, appLogger, router.Handlers{
		Health:     handlers.NewHealthHandler(checks, appLogger),
		Keys:       handlers.NewKeyHandler(keyRegistry, appLogger),
		Bulk:       handlers.NewBulkHandler(bulk, selections, appLogger),
		Selections: handlers.NewSelectionHandler(selections, keyRegistry, appLogger),
		Audit:      handlers.NewAuditHandler(auditLog, appLogger),
	}, metrics, registry, tracing.Tracer())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(r.Start)
	g.Go(func() error {
		scheduler.NewExpiryScheduler(keyRegistry, cfg.Lifecycle.ExpiryInterval, appLogger).Run(gctx)
		return nil
	})
	if cfg.Kafka.Enabled && cfg.Kafka.AuditTopic != "" {
		consumer := consumers.NewAuditIngestConsumer(cfg.Kafka, events, appLogger)
		closers = append(closers, consumer.Close)
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		appLogger.Info(shutdownCtx, "Shutting down")
		if err := r.Stop(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "HTTP server shutdown failed", err)
		}
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "Tracing shutdown failed", err)
		}
		return nil
	})

	err = g.Wait()
	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i](); cerr != nil {
			appLogger.Warn(context.Background(), "Failed to release resource", logger.Err(cerr))
		}
	}
	return err
}
