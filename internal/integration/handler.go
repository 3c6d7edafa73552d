package integration

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler accepts operational events over HTTP.
type Handler struct {
	logger *slog.Logger
	hooks  *Hooks
}

func NewHandler(logger *slog.Logger, hooks *Hooks) *Handler {
	return &Handler{logger: logger, hooks: hooks}
}

// MountRoutes registers integration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/pos-sales", h.posSale)
}

type posSaleRequest struct {
	SaleID string          `json:"sale_id" validate:"required,max=80"`
	Number string          `json:"number" validate:"max=40"`
	SoldAt string          `json:"sold_at" validate:"required,datetime=2006-01-02"`
	Net    decimal.Decimal `json:"net"`
	Tax    decimal.Decimal `json:"tax"`
}

func (h *Handler) posSale(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req posSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	soldAt, err := time.Parse(time.DateOnly, req.SoldAt)
	if err != nil {
		h.fail(w, httpx.ErrValidation)
		return
	}
	err = h.hooks.HandlePOSSale(r.Context(), tenant, POSSaleEvent{
		SaleID: req.SaleID, Number: req.Number, SoldAt: soldAt, Net: req.Net, Tax: req.Tax,
	})
	if err != nil {
		h.logger.Error("post pos sale", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)), slog.String("sale_id", req.SaleID))
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, httpx.SharedErrors, ledgershared.HTTPStatus)
}
