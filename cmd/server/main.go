package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/infrastructure/auth"
	"github.com/supplytrace/backend/internal/infrastructure/config"
	"github.com/supplytrace/backend/internal/infrastructure/event"
	"github.com/supplytrace/backend/internal/infrastructure/logger"
	"github.com/supplytrace/backend/internal/infrastructure/oracle"
	"github.com/supplytrace/backend/internal/infrastructure/scheduler"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"github.com/supplytrace/backend/internal/interfaces/http/handler"
	"github.com/supplytrace/backend/internal/interfaces/http/middleware"
	"github.com/supplytrace/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for the given account UUID and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg.JWT, *issueToken); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	log, err := logger.NewForEnvironment(cfg.App.Env, cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

// printToken writes a bearer token for account to stdout
func printToken(cfg config.JWTConfig, account string) error {
	id, err := uuid.Parse(account)
	if err != nil {
		return fmt.Errorf("invalid account %q: %w", account, err)
	}
	token, expiresAt, err := auth.NewJWTService(cfg).IssueToken(id)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "expires at", expiresAt.Format(time.RFC3339))
	return nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting supplytrace",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.HTTP.Port),
		zap.String("database", cfg.Database.Driver),
	)

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	defer shutdownTelemetry(tracer, meters, log)

	var businessMetrics *telemetry.BusinessMetrics
	if meters.IsEnabled() {
		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:  meters.Meter("supplytrace/business"),
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("business metrics: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	serializer := event.NewRegisteredSerializer()
	bus := event.NewInMemoryEventBus(log)

	b, err := openBackend(cfg, bus, serializer, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			log.Error("Error closing store", zap.Error(err))
		}
	}()

	svc, err := newServices(cfg, b, businessMetrics, log)
	if err != nil {
		return err
	}
	closeConsumers, err := subscribe(ctx, cfg, bus, svc, serializer, log)
	if err != nil {
		return err
	}
	defer closeConsumers()

	if cfg.Access.BootstrapAdmin != "" {
		admin, err := uuid.Parse(cfg.Access.BootstrapAdmin)
		if err != nil {
			return fmt.Errorf("access.bootstrap_admin: %w", err)
		}
		if err := svc.roles.BootstrapAdmin(ctx, admin); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer func() { _ = bus.Stop(context.Background()) }()

	if b.processor != nil && cfg.Event.ProcessorEnabled {
		if err := b.processor.Start(ctx); err != nil {
			return fmt.Errorf("outbox processor: %w", err)
		}
		defer func() {
			if err := b.processor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
	}

	runner := scheduler.NewUpkeepRunner(svc.upkeep, scheduler.UpkeepRunnerConfig{
		Enabled:            cfg.Upkeep.Enabled,
		Interval:           cfg.Upkeep.Interval,
		MaxPerformsPerTick: cfg.Upkeep.MaxPerformsPerTick,
	}, scheduler.NewUpkeepMetrics(registry), log)
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("upkeep runner: %w", err)
	}
	defer func() {
		if err := runner.Stop(context.Background()); err != nil {
			log.Error("Error stopping upkeep runner", zap.Error(err))
		}
	}()

	engine, err := newEngine(cfg, b, svc, meters, registry, serviceName, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newEngine(cfg *config.Config, b *backend, svc *services, meters *telemetry.MeterProvider, registry *prometheus.Registry, serviceName string, log *zap.Logger) (*gin.Engine, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(middleware.HTTPMetricsConfig{MeterProvider: meters, Registerer: registry})
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins

	// request id first so every later middleware can log it
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(serviceName, cfg.Telemetry.Enabled),
		middleware.SpanEnricher(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.SpanErrorMarker(),
	)

	signer := oracle.NewCallbackSigner(cfg.Oracle.CallbackSecret)
	if !signer.Enabled() {
		log.Warn("Oracle callback secret not set, callbacks are accepted unsigned")
	}

	h := router.Handlers{
		Shipment:     handler.NewShipmentHandler(svc.registry),
		Verification: handler.NewVerificationHandler(svc.upkeep, svc.verifier, signer),
		Product:      handler.NewProductHandler(svc.assembler, svc.provenance),
		Escrow:       handler.NewEscrowHandler(svc.escrows),
		Role:         handler.NewRoleHandler(svc.roles),
		Ledger:       handler.NewLedgerHandler(svc.ledger),
		System:       handler.NewSystemHandler(cfg.App.Name, version, b.checks),
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}
	if svc.outbox != nil {
		h.Outbox = handler.NewOutboxHandler(svc.outbox)
	}

	router.Setup(engine, h, router.Guards{
		Auth: middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			JWTService: auth.NewJWTService(cfg.JWT),
			Logger:     log,
		}),
		Admin: middleware.RequireRole(middleware.RoleConfig{Gate: b.gate, Logger: log}, identity.RoleAdmin),
	})
	return engine, nil
}

func shutdownTelemetry(tracer *telemetry.TracerProvider, meters *telemetry.MeterProvider, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := meters.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
}
