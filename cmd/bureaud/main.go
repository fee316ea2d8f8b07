package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bibbank/bureau-service/internal/application/usecase"
	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/infrastructure/config"
	"github.com/bibbank/bureau-service/internal/infrastructure/kafka"
	pgRepo "github.com/bibbank/bureau-service/internal/infrastructure/persistence/postgres"
	"github.com/bibbank/bureau-service/internal/infrastructure/session"
	grpcPresentation "github.com/bibbank/bureau-service/internal/presentation/grpc"
	"github.com/bibbank/bureau-service/internal/presentation/rest"
	"github.com/bibbank/bureau-service/pkg/auth"
	pkgkafka "github.com/bibbank/bureau-service/pkg/kafka"
	"github.com/bibbank/bureau-service/pkg/observability"
	pkgpostgres "github.com/bibbank/bureau-service/pkg/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bureau-service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting bureau-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"stub_bureaus", cfg.UseStubBureaus,
	)

	// Tracing and metrics.
	tp, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush
	}

	mp, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = mp.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush
	metrics, err := observability.NewBureauMetrics(mp.Meter(cfg.ServiceName))
	if err != nil {
		return fmt.Errorf("init bureau metrics: %w", err)
	}

	// Database connection and schema.
	dbCfg := pkgpostgres.Config{
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Database:        cfg.DB.Name,
		SSLMode:         cfg.DB.SSLMode,
		ApplicationName: cfg.ServiceName,
		MaxConns:        cfg.DB.MaxConns,
	}
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := pkgpostgres.NewPool(dbCtx, dbCfg)
	dbCancel()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := pgRepo.Migrations.Up(dbCfg.DSN()); err != nil {
		return err
	}

	records := pgRepo.NewCreditRecordRepo(pool)
	lenders := pgRepo.NewLenderRepo(pool)
	reportCache := pgRepo.NewReportCacheRepo(pool)

	checks := []rest.ReadinessCheck{{
		Name:  "postgres",
		Check: func(ctx context.Context) error { return pkgpostgres.HealthCheck(ctx, pool) },
	}}

	// Session store.
	var sessions port.SessionStore
	if cfg.Redis.Addr != "" {
		client := session.NewRedisClient(session.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func(c *redis.Client) { _ = c.Close() }(client)
		store := session.NewRedisStore(client, "bureau:session", cfg.Redis.SessionTTL)
		sessions = store
		checks = append(checks, rest.ReadinessCheck{Name: "redis", Check: store.Ping})
		logger.Info("bureau sessions stored in redis", "addr", cfg.Redis.Addr)
	} else {
		sessions = session.NewMemoryStore(cfg.Redis.SessionTTL)
		logger.Warn("REDIS_ADDR not set, bureau sessions are kept in memory")
	}

	// Event publishing. The consent poll handler is bound after the use
	// cases exist because the poller publishes through the same publisher.
	var pollHandler *kafka.ConsentPollHandler
	handle := func(ctx context.Context, msg pkgkafka.Message) error {
		return pollHandler.Handle(ctx, msg)
	}

	var (
		publisher port.EventPublisher
		consumer  *pkgkafka.Consumer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := pkgkafka.Config{
			Brokers:       cfg.Kafka.Brokers,
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
			TLS:           cfg.Kafka.TLS,
			SASLEnabled:   cfg.Kafka.SASLEnabled,
			SASLMechanism: cfg.Kafka.SASLMechanism,
			SASLUsername:  cfg.Kafka.SASLUsername,
			SASLPassword:  cfg.Kafka.SASLPassword,
		}
		producer, err := pkgkafka.NewProducer(kafkaCfg)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer producer.Close()
		publisher = kafka.NewKafkaEventPublisher(producer, cfg.Kafka.Topic, logger)

		consumer, err = pkgkafka.NewConsumer(kafkaCfg, cfg.Kafka.Topic, handle, logger,
			pkgkafka.WithWorkers(cfg.Kafka.PollingWorkers))
		if err != nil {
			return fmt.Errorf("create kafka consumer: %w", err)
		}
		defer consumer.Close()
	} else {
		dispatcher := kafka.NewLocalDispatcher(handle, cfg.Kafka.PollingWorkers, logger,
			kafka.WithEventTypes(event.TypePollingStarted))
		defer dispatcher.Close()
		publisher = dispatcher
		logger.Warn("KAFKA_BROKERS not set, consent polling runs in-process")
	}

	// Domain services and upstreams.
	normalizer := service.NewProfileNormalizer(service.NewObligationExtractor())
	ranking := service.NewLenderRankingEngine(cfg.RankingPolicy())
	up := buildUpstreams(cfg, normalizer, logger)
	rawArchive, err := buildArchive(ctx, cfg.Archive, logger)
	if err != nil {
		return err
	}

	// Use cases.
	pipeline := usecase.NewBureauPipeline(up.primary, up.secondary, normalizer, publisher, metrics, logger)
	matchUC := usecase.NewMatchLendersUseCase(lenders, records, ranking, logger)
	recorder := usecase.NewProfileRecorder(matchUC, records, rawArchive, logger)
	fetchUC := usecase.NewFetchCreditProfileUseCase(pipeline, sessions, publisher, logger)
	assessUC := usecase.NewAssessEligibilityUseCase(fetchUC, recorder, logger)
	verifyUC := usecase.NewVerifyConsentOTPUseCase(pipeline, up.primary, sessions, publisher, recorder, logger)
	pollUC := usecase.NewPollConsentUseCase(pipeline, up.primary, sessions, publisher, recorder,
		usecase.PollPolicy{Attempts: cfg.Polling.Attempts, Interval: cfg.Polling.Interval},
		metrics, logger)
	resolveUC := usecase.NewResolveIdentityUseCase(up.identity, logger)
	phoneUC := usecase.NewPhoneConsentUseCase(up.otp, resolveUC, assessUC, logger)
	reportUC := usecase.NewGenerateCreditReportUseCase(reportCache, records, up.reports, cfg.ReportCacheTTL, metrics, logger)

	pollHandler = kafka.NewConsentPollHandler(pollUC, logger)

	// JWT validation: public key preferred, shared secret as fallback.
	jwtSvc, err := buildValidator(cfg.Auth)
	if err != nil {
		return err
	}

	// gRPC server.
	grpcServer, err := grpcPresentation.NewServer(
		grpcPresentation.NewBureauHandler(grpcPresentation.UseCases{
			Assess:  assessUC,
			Verify:  verifyUC,
			Poll:    pollUC,
			Lenders: matchUC,
			Report:  reportUC,
		}, logger),
		grpcPresentation.ServerConfig{
			ServiceName: cfg.ServiceName,
			TLSCertFile: cfg.GRPCTLSCertFile,
			TLSKeyFile:  cfg.GRPCTLSKeyFile,
			Reflection:  cfg.GRPCReflection,
		},
		jwtSvc, logger,
	)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	// HTTP server.
	router := rest.NewRouter(rest.RouterConfig{
		UseCases: rest.UseCases{
			Assess:  assessUC,
			Verify:  verifyUC,
			Poll:    pollUC,
			Lenders: matchUC,
			Report:  reportUC,
			Phone:   phoneUC,
		},
		Health:    rest.NewHealthHandler(cfg.ServiceName, checks...),
		Metrics:   metricsHandler,
		Validator: jwtSvc,
		Logger:    logger,
	})
	pollBudget := time.Duration(cfg.Polling.Attempts)*cfg.Polling.Interval + 30*time.Second
	httpServer := rest.NewServer(cfg.HTTPAddr(), router.Handler(), pollBudget, logger)

	// Start servers and the consent poll consumer.
	errCh := make(chan error, 3)
	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Serve(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	if consumer != nil {
		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("consent poll consumer error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", "error", runErr)
	}

	// Graceful shutdown.
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("bureau-service stopped")
	return runErr
}

func buildValidator(cfg config.AuthConfig) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{Issuer: cfg.Issuer}
	switch {
	case cfg.PublicKeyPEM != "":
		jwtCfg.PublicKeyPEM = cfg.PublicKeyPEM
	case cfg.PublicKeyFile != "":
		keyData, err := auth.LoadKeyFromFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load JWT public key file: %w", err)
		}
		jwtCfg.PublicKeyPEM = string(keyData)
	case cfg.Secret != "":
		jwtCfg.Secret = cfg.Secret
	default:
		return nil, errors.New("one of JWT_PUBLIC_KEY, JWT_PUBLIC_KEY_FILE or JWT_SECRET is required")
	}
	svc, err := auth.NewJWTService(jwtCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize JWT service: %w", err)
	}
	return svc, nil
}
