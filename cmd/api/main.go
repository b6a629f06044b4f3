package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rcavanagh/orderdesk-backend/api/routes"
	"github.com/rcavanagh/orderdesk-backend/internal/ledger"
	"github.com/rcavanagh/orderdesk-backend/internal/orders"
	squarewebhook "github.com/rcavanagh/orderdesk-backend/internal/webhooks/square"
	"github.com/rcavanagh/orderdesk-backend/pkg/config"
	"github.com/rcavanagh/orderdesk-backend/pkg/db"
	"github.com/rcavanagh/orderdesk-backend/pkg/logger"
	"github.com/rcavanagh/orderdesk-backend/pkg/metrics"
	"github.com/rcavanagh/orderdesk-backend/pkg/migrate"
	"github.com/rcavanagh/orderdesk-backend/pkg/outbox"
	"github.com/rcavanagh/orderdesk-backend/pkg/redis"
	"github.com/rcavanagh/orderdesk-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	verifier, err := ledger.NewVerifier(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment verifier", err)
		os.Exit(1)
	}

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	legacyAdapter, err := ledger.NewLegacyAdapter(ledgerRepo, ledger.NewLegacyRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create legacy adapter", err)
		os.Exit(1)
	}

	approvalCodes, err := ledger.NewApprovalCodeStore(redisClient, cfg.ApprovalCode)
	if err != nil {
		logg.Error(context.Background(), "failed to create approval code store", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:              ledgerRepo,
		Orders:            orders.NewRepository(dbClient.DB()),
		Audit:             ledger.NewAuditRecorder(dbClient.DB()),
		Sequences:         ledger.NewSequenceAllocator(),
		Verifier:          verifier,
		Legacy:            legacyAdapter,
		TransactionRunner: dbClient,
		Outbox:            outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		ApprovalCodes:     approvalCodes,
		Metrics:           ledgerMetrics,
		Flags:             cfg.FeatureFlags,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	webhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Ledger: ledgerService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := squarewebhook.NewIdempotencyGuard(redisClient, cfg.Square.WebhookTTL, "square-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			ledgerService,
			squareClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
