package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcavanagh/orderdesk-backend/api/controllers"
	webhookcontrollers "github.com/rcavanagh/orderdesk-backend/api/controllers/webhooks"
	"github.com/rcavanagh/orderdesk-backend/api/middleware"
	"github.com/rcavanagh/orderdesk-backend/internal/ledger"
	squarewebhook "github.com/rcavanagh/orderdesk-backend/internal/webhooks/square"
	"github.com/rcavanagh/orderdesk-backend/pkg/config"
	"github.com/rcavanagh/orderdesk-backend/pkg/db"
	"github.com/rcavanagh/orderdesk-backend/pkg/logger"
	"github.com/rcavanagh/orderdesk-backend/pkg/redis"
	"github.com/rcavanagh/orderdesk-backend/pkg/square"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *redis.Client,
	metricsRegistry *prometheus.Registry,
	ledgerService ledger.Service,
	squareClient *square.Client,
	webhookService *squarewebhook.Service,
	webhookGuard *squarewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	apiPolicy := middleware.NewRateLimitPolicy(
		"api",
		cfg.RateLimit.APIWindow,
		cfg.RateLimit.APIIPLimit,
		cfg.RateLimit.APIUserLimit,
	)
	approvalPolicy := middleware.NewRateLimitPolicy(
		"approval-code",
		cfg.RateLimit.ApprovalWindow,
		cfg.RateLimit.ApprovalIPLimit,
		cfg.RateLimit.ApprovalUserLimit,
	)

	readyHandler := controllers.HealthReady(cfg, database, nil)
	if redisClient != nil {
		readyHandler = controllers.HealthReady(cfg, database, redisClient)
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", readyHandler)
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(webhookService, squareClient, webhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Use(middleware.RateLimit(apiPolicy, redisClient, logg))
		}

		r.Route("/orders/{orderId}/ledger", func(r chi.Router) {
			r.Post("/entries", controllers.CreateLedgerEntry(ledgerService, logg))
			r.Get("/entries", controllers.ListLedgerEntries(ledgerService, logg))
			r.Get("/summary", controllers.GetLedgerSummary(ledgerService, logg))
			r.Get("/audit", controllers.LedgerOrderAudit(ledgerService, logg))
			r.With(middleware.RequireRole(ledger.RoleAdmin, logg)).
				Post("/repair", controllers.RepairLedger(ledgerService, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/entries", controllers.QueryLedgerEntries(ledgerService, logg))
			r.With(middleware.RequireRole(ledger.RoleAdmin, logg)).
				Post("/repair", controllers.RepairAllLedgers(ledgerService, logg))

			r.Route("/entries/{entryId}", func(r chi.Router) {
				r.Get("/", controllers.GetLedgerEntry(ledgerService, logg))
				r.Get("/audit", controllers.LedgerEntryAudit(ledgerService, logg))
				r.Post("/verify", controllers.VerifyLedgerEntry(ledgerService, logg))
				r.Post("/approve", controllers.ApproveLedgerEntry(ledgerService, logg))
				r.Post("/reject", controllers.RejectLedgerEntry(ledgerService, logg))
				r.Post("/void", controllers.VoidLedgerEntry(ledgerService, logg))
				r.With(
					middleware.RequireRole(ledger.RoleAdmin, logg),
					middleware.RateLimit(approvalPolicy, redisClient, logg),
				).Post("/approval-code", controllers.IssueLedgerApprovalCode(ledgerService, logg))
			})
		})
	})

	return r
}
