package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	LedgerHandler      *accounting.Handler
	BankingHandler     *banking.Handler
	ARHandler          *ar.Handler
	IntegrationHandler *integration.Handler
	JobHandler         *jobs.Handler
	Idempotency        IdempotencyStore
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireTenant)
		if params.LedgerHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(Idempotent(params.Idempotency, "ledger", params.Logger))
				params.LedgerHandler.MountRoutes(r)
			})
		}
		if params.BankingHandler != nil {
			r.Route("/banking", func(r chi.Router) {
				r.Use(Idempotent(params.Idempotency, "banking", params.Logger))
				params.BankingHandler.MountRoutes(r)
			})
		}
		if params.ARHandler != nil {
			r.Route("/ar", func(r chi.Router) {
				r.Use(Idempotent(params.Idempotency, "ar", params.Logger))
				params.ARHandler.MountRoutes(r)
			})
		}
		if params.IntegrationHandler != nil {
			r.Route("/integration", params.IntegrationHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
