package accounting

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

// Handler wires the general ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	accounts *accounts.Handler
	journals *journals.Handler
	reports  *reports.Handler
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, accountSvc *accounts.Service, journalSvc *journals.Service, reportSvc *reports.Service) *Handler {
	return &Handler{
		logger:   logger,
		accounts: accounts.NewHandler(logger, accountSvc),
		journals: journals.NewHandler(logger, journalSvc),
		reports:  reports.NewHandler(logger, reportSvc),
	}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Route("/accounts", h.accounts.MountRoutes)
		r.Route("/journals", h.journals.MountRoutes)
		r.Route("/reports", h.reports.MountRoutes)
	})
}
