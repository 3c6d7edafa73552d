package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/profit-loss", h.ProfitAndLoss)
	r.Get("/trial-balance", h.TrialBalance)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		httpx.RespondError(w, err, httpx.SharedErrors)
		return
	}
	view, err := h.service.BalanceSheet(r.Context(), tenant)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)))
		httpx.RespondError(w, err, httpx.SharedErrors)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		httpx.RespondError(w, err, httpx.SharedErrors)
		return
	}
	from, err := dateParam(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.ProfitAndLoss(r.Context(), tenant, from, to)
	if err != nil {
		h.logger.Error("profit and loss", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)))
		httpx.RespondError(w, err, httpx.SharedErrors)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		httpx.RespondError(w, err, httpx.SharedErrors)
		return
	}
	view, err := h.service.TrialBalance(r.Context(), tenant)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)))
		httpx.RespondError(w, err, httpx.SharedErrors)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func dateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, httpx.ErrValidation
	}
	return &t, nil
}
