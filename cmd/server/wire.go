package main

import (
	"context"
	"fmt"

	"github.com/supplytrace/backend/internal/application/escrow"
	appevent "github.com/supplytrace/backend/internal/application/event"
	appidentity "github.com/supplytrace/backend/internal/application/identity"
	appledger "github.com/supplytrace/backend/internal/application/ledger"
	appproduct "github.com/supplytrace/backend/internal/application/product"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/cache"
	"github.com/supplytrace/backend/internal/infrastructure/config"
	"github.com/supplytrace/backend/internal/infrastructure/event"
	"github.com/supplytrace/backend/internal/infrastructure/logger"
	"github.com/supplytrace/backend/internal/infrastructure/oracle"
	"github.com/supplytrace/backend/internal/infrastructure/persistence"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/memory"
	"github.com/supplytrace/backend/internal/infrastructure/storage"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"github.com/supplytrace/backend/internal/interfaces/http/handler"
	"go.uber.org/zap"
)

// backend is one storage implementation with the scopes every service needs
type backend struct {
	shipments appshipment.TransactionScope
	products  appproduct.TransactionScope
	escrows   escrow.TransactionScope
	roles     appidentity.TransactionScope
	ledgers   appledger.TransactionScope
	gate      identity.AccessGate

	// set only for the database store
	outbox    *event.GormOutboxRepository
	processor *event.OutboxProcessor

	checks map[string]handler.HealthCheck
	close  func() error
}

// openBackend builds the memory or database store. Events reach bus after
// commit (memory) or through the outbox processor (database).
func openBackend(cfg *config.Config, bus *event.InMemoryEventBus, serializer *event.EventSerializer, log *zap.Logger) (*backend, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore(memory.WithPublisher(bus), memory.WithLogger(log))
		log.Warn("Using in-memory store, state is lost on restart")
		return &backend{
			shipments: memory.NewShipmentScope(store),
			products:  memory.NewProductScope(store),
			escrows:   memory.NewEscrowScope(store),
			roles:     memory.NewIdentityScope(store),
			ledgers:   memory.NewLedgerScope(store),
			gate:      store,
			checks:    map[string]handler.HealthCheck{},
			close:     func() error { return nil },
		}, nil
	}

	opts := []persistence.DatabaseOption{
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))),
	}
	if cfg.Telemetry.DBTraceEnabled {
		tracingCfg := telemetry.DefaultDBTracingConfig()
		tracingCfg.Enabled = true
		tracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Database.Driver == config.DriverSQLite {
			tracingCfg.DBSystem = "sqlite"
		}
		opts = append(opts, persistence.WithTracing(telemetry.NewDBTracingPlugin(tracingCfg, log)))
	}

	db, err := persistence.NewDatabase(&cfg.Database, opts...)
	if err != nil {
		return nil, err
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	store := persistence.NewStore(db.DB, serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
	}, log)

	return &backend{
		shipments: persistence.NewShipmentScope(store),
		products:  persistence.NewProductScope(store),
		escrows:   persistence.NewEscrowScope(store),
		roles:     persistence.NewIdentityScope(store),
		ledgers:   persistence.NewLedgerScope(store),
		gate:      store,
		outbox:    outboxRepo,
		processor: processor,
		checks: map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		close: db.Close,
	}, nil
}

// services holds the application layer
type services struct {
	registry   *appshipment.RegistryService
	verifier   *appshipment.VerifierService
	upkeep     *appshipment.UpkeepService
	assembler  *appproduct.AssemblerService
	provenance *appproduct.ProvenanceService
	escrows    *escrow.EscrowService
	roles      *appidentity.RoleService
	ledger     *appledger.LedgerService
	outbox     *appevent.OutboxService
}

func newDispatcher(cfg config.OracleConfig, log *zap.Logger) (shipment.VerificationDispatcher, error) {
	if cfg.Mode == config.OracleModeHTTP {
		d, err := oracle.NewHTTPDispatcher(cfg.Endpoint, cfg.Timeout, log)
		if err != nil {
			return nil, err
		}
		log.Info("Dispatching verification requests", zap.String("endpoint", cfg.Endpoint))
		return d, nil
	}
	log.Warn("Using in-memory oracle dispatcher, requests are not sent anywhere")
	return oracle.NewMemoryDispatcher(), nil
}

func newServices(cfg *config.Config, b *backend, metrics *telemetry.BusinessMetrics, log *zap.Logger) (*services, error) {
	dispatcher, err := newDispatcher(cfg.Oracle, log)
	if err != nil {
		return nil, fmt.Errorf("oracle dispatcher: %w", err)
	}

	s := &services{
		registry: appshipment.NewRegistryService(b.shipments, b.gate, log),
		verifier: appshipment.NewVerifierService(b.shipments, dispatcher, appshipment.VerifierConfig{
			Source:         cfg.Oracle.Source,
			SubscriptionID: cfg.Oracle.SubscriptionID,
			GasLimit:       cfg.Oracle.GasLimit,
			RoutingID:      cfg.Oracle.RoutingID,
		}, log),
		assembler:  appproduct.NewAssemblerService(b.products, b.gate, log),
		provenance: appproduct.NewProvenanceService(b.products),
		escrows:    escrow.NewEscrowService(b.escrows, log),
		roles:      appidentity.NewRoleService(b.roles, b.gate, log),
		ledger:     appledger.NewLedgerService(b.ledgers, b.gate, log),
	}
	s.upkeep = appshipment.NewUpkeepService(b.shipments, s.verifier, log)
	if b.outbox != nil {
		s.outbox = appevent.NewOutboxService(b.outbox, log)
	}

	if metrics != nil {
		s.registry.SetBusinessMetrics(metrics)
		s.verifier.SetBusinessMetrics(metrics)
		s.assembler.SetBusinessMetrics(metrics)
		s.escrows.SetBusinessMetrics(metrics)
	}
	return s, nil
}

// subscribe wires the event consumers. Each consumer is idempotent so outbox
// redelivery does not archive or forward twice.
func subscribe(ctx context.Context, cfg *config.Config, bus *event.InMemoryEventBus, s *services, serializer *event.EventSerializer, log *zap.Logger) (func(), error) {
	idem, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.Redis.AllowFallback, log)
	if err != nil {
		return nil, err
	}
	idemOpts := []event.IdempotentHandlerOption{}
	if cfg.Event.IdempotencyTTL > 0 {
		idemOpts = append(idemOpts, event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}))
	}

	var uploader event.ObjectUploader
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			_ = idem.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			_ = idem.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		uploader = s3
		log.Info("Provenance archive on S3", zap.String("bucket", s3.GetBucket()))
	} else {
		uploader = storage.NewMemoryObjectStorage()
	}
	archiver := event.NewProvenanceArchiver(s.provenance, uploader, cfg.Storage.ProvenancePrefix, log)
	bus.Subscribe(event.NewIdempotentHandler("provenance-archiver", archiver, idem, log, idemOpts...))

	closers := []func(){func() { _ = idem.Close() }}
	if cfg.Event.KafkaEnabled {
		client, err := event.NewKafkaClient(ctx, cfg.Event.KafkaBrokers, cfg.Event.KafkaClientID)
		if err != nil {
			_ = idem.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		if err := event.EnsureTopic(ctx, client, cfg.Event.KafkaTopic, 3, 1); err != nil {
			log.Warn("Could not ensure kafka topic", zap.String("topic", cfg.Event.KafkaTopic), zap.Error(err))
		}
		forwarder := event.NewKafkaForwarder(client, cfg.Event.KafkaTopic, serializer, log)
		bus.Subscribe(event.NewIdempotentHandler("kafka-forwarder", forwarder, idem, log, idemOpts...))
		closers = append(closers, client.Close)
		log.Info("Forwarding events to kafka", zap.String("topic", cfg.Event.KafkaTopic))
	}

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
