package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/aradsms/crm_services/internal/crm_service/adapters/dedupe"
	"github.com/aradsms/crm_services/internal/crm_service/adapters/suggestion"
	"github.com/aradsms/crm_services/internal/crm_service/app"
	"github.com/aradsms/crm_services/internal/crm_service/domain"
	"github.com/aradsms/crm_services/internal/crm_service/repository/memory"
	"github.com/aradsms/crm_services/internal/crm_service/repository/postgres"
	"github.com/aradsms/crm_services/internal/platform/config"
	"github.com/aradsms/crm_services/internal/platform/database"
	"github.com/aradsms/crm_services/internal/platform/logger"
	"github.com/aradsms/crm_services/internal/platform/messagebroker"
	"github.com/aradsms/crm_services/internal/public_api_service/middleware"
	httptransport "github.com/aradsms/crm_services/internal/public_api_service/transport/http"
)

const (
	serviceName     = "crm_service"
	shutdownTimeout = 15 * time.Second

	ingestionQueueGroup = "crm-ingestion-workers"
	receiptQueueGroup   = "crm-receipt-workers"
)

type repositories struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	segments  domain.SegmentRepository
	campaigns domain.CampaignRepository
	logs      domain.CommunicationLogRepository
	close     func()
}

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("CRM service starting...",
		"http_port", cfg.HTTPPort, "storage_driver", cfg.StorageDriver, "ingestion_mode", cfg.IngestionMode)

	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(mainCtx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer repos.close()

	// NATS is optional: without it queued ingestion degrades to direct writes
	// and receipts only arrive over HTTP.
	var natsClient *messagebroker.NatsClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Warn("NATS unavailable, continuing without queue", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			appLogger.Info("Successfully connected to NATS")
		}
	}

	deduper := newDeduper(mainCtx, cfg, appLogger)

	direct := app.NewDirectIngestor(repos.customers, repos.orders, appLogger)
	var ingestor app.Ingestor = direct
	if cfg.IngestionMode == config.IngestionQueued {
		if natsClient == nil {
			appLogger.Warn("INGESTION_MODE=queued but NATS is not connected; using direct ingestion")
		} else {
			ingestor = app.NewQueuedIngestor(direct, natsClient, deduper, appLogger)
		}
	}

	buffer := app.NewReceiptBuffer()
	intake := app.NewReceiptIntake(buffer, appLogger)
	reconciler := app.NewReconciler(buffer, repos.logs, appLogger)
	dispatcher := app.NewDispatcher(repos.campaigns, repos.segments, repos.customers, repos.logs,
		app.RandomOutcome(cfg.DispatchSuccessRate), appLogger)

	var generator app.TextGenerator
	if cfg.SuggestionServiceURL != "" {
		generator = suggestion.NewHTTPGenerator(appLogger, cfg.SuggestionServiceURL, cfg.SuggestionAPIKey, cfg.SuggestionTimeout, nil)
	}

	validate := validator.New()
	handlers := httptransport.Handlers{
		Customers:   httptransport.NewCustomerHandler(ingestor, repos.customers, appLogger, validate),
		Segments:    httptransport.NewSegmentHandler(app.NewSegmentService(repos.segments, repos.customers, appLogger), appLogger, validate),
		Campaigns:   httptransport.NewCampaignHandler(app.NewCampaignService(repos.campaigns, repos.segments, repos.logs, appLogger), dispatcher, appLogger, validate),
		Receipts:    httptransport.NewReceiptHandler(intake, appLogger, validate),
		Suggestions: httptransport.NewSuggestionHandler(app.NewSuggestionService(generator, appLogger), appLogger, validate),
		Auth:        httptransport.NewAuthHandler(appLogger),
	}

	var authMW httptransport.Middleware
	if cfg.AuthEnabled {
		authMW = middleware.AuthMiddleware(middleware.NewTokenValidator(cfg.JWTSecret), appLogger)
	} else {
		appLogger.Warn("Authentication disabled; API routes are open")
	}
	router := httptransport.NewRouter(handlers, authMW, middleware.VendorKeyMiddleware(cfg.ReceiptAPIKeyHash, appLogger))

	g, groupCtx := errgroup.WithContext(mainCtx)

	if natsClient != nil {
		if cfg.IngestionMode == config.IngestionQueued {
			consumer := app.NewIngestionConsumer(direct, deduper, appLogger)
			if err := consumer.Start(groupCtx, natsClient, ingestionQueueGroup); err != nil {
				appLogger.Error("Failed to start ingestion consumer", "error", err)
				os.Exit(1)
			}
		}
		if err := app.NewReceiptConsumer(intake, appLogger).Start(groupCtx, natsClient, receiptQueueGroup); err != nil {
			appLogger.Error("Failed to start receipt consumer", "error", err)
			os.Exit(1)
		}
	}

	g.Go(func() error {
		err := reconciler.Run(groupCtx, cfg.ReconcileInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.GRPCHealthPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen grpc health on %s: %w", addr, err)
		}
		appLogger.Info("gRPC health server listening", "address", addr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc health server: %w", err)
		}
		return nil
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		appLogger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutting down servers...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
		}

		// Receipts still buffered get one last chance before exit.
		if _, err := reconciler.RunOnce(ctx); err != nil {
			appLogger.Error("Final reconciliation failed", "error", err, "pending", buffer.Len())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("CRM service stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("CRM service shut down.")
}

func openRepositories(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repositories, error) {
	if cfg.StorageDriver == config.StorageMemory {
		s := memory.NewStore()
		log.Info("Using in-memory record store")
		return &repositories{
			customers: memory.NewCustomerRepository(s),
			orders:    memory.NewOrderRepository(s),
			segments:  memory.NewSegmentRepository(s),
			campaigns: memory.NewCampaignRepository(s),
			logs:      memory.NewCommunicationLogRepository(s),
			close:     func() {},
		}, nil
	}

	pool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to PostgreSQL database")
	return &repositories{
		customers: postgres.NewPgCustomerRepository(pool, log),
		orders:    postgres.NewPgOrderRepository(pool, log),
		segments:  postgres.NewPgSegmentRepository(pool, log),
		campaigns: postgres.NewPgCampaignRepository(pool, log),
		logs:      postgres.NewPgCommunicationLogRepository(pool, log),
		close:     pool.Close,
	}, nil
}

// newDeduper prefers Redis so reservations survive a restart; it falls back to process memory.
func newDeduper(ctx context.Context, cfg *config.Config, log *slog.Logger) app.Deduper {
	if cfg.RedisAddr == "" {
		return dedupe.NewMemoryDeduper(dedupe.DefaultTTL)
	}
	rd := dedupe.NewRedisDeduper(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, dedupe.DefaultTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rd.Ping(pingCtx); err != nil {
		log.Warn("Redis unavailable, using in-memory ingestion dedupe", "addr", cfg.RedisAddr, "error", err)
		_ = rd.Close()
		return dedupe.NewMemoryDeduper(dedupe.DefaultTTL)
	}
	log.Info("Using Redis ingestion dedupe", "addr", cfg.RedisAddr)
	return rd
}
