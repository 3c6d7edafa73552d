package ar

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler manages AR endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers AR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices/open", h.listOpen)
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Post("/invoices/{id}/payments", h.registerPayment)
	r.Get("/aging", h.aging)
}

type createInvoiceRequest struct {
	Number        string          `json:"number" validate:"required,max=40"`
	DisplayNumber string          `json:"display_number" validate:"max=40"`
	PartyName     string          `json:"party_name" validate:"required,max=200"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	Net           decimal.Decimal `json:"net"`
	Tax           decimal.Decimal `json:"tax"`
	Service       bool            `json:"service"`
	IssuedAt      string          `json:"issued_at" validate:"omitempty,datetime=2006-01-02"`
	DueAt         string          `json:"due_at" validate:"omitempty,datetime=2006-01-02"`
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    string          `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Reference string          `json:"reference" validate:"max=80"`
}

type invoiceResponse struct {
	Invoice
	Outstanding decimal.Decimal `json:"outstanding"`
}

func toResponse(inv Invoice) invoiceResponse {
	return invoiceResponse{Invoice: inv, Outstanding: inv.Outstanding()}
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	invoices, err := h.service.ListOpen(r.Context(), tenant)
	if err != nil {
		h.logger.Error("list open invoices", slog.Any("error", err))
		h.fail(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), tenant, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), tenant, CreateInvoiceInput{
		Number:        req.Number,
		DisplayNumber: req.DisplayNumber,
		PartyName:     req.PartyName,
		Currency:      req.Currency,
		Net:           req.Net,
		Tax:           req.Tax,
		Service:       req.Service,
		IssuedAt:      parseDay(req.IssuedAt),
		DueAt:         parseDay(req.DueAt),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	inv, payment, err := h.service.RegisterPayment(r.Context(), tenant, PaymentInput{
		InvoiceID: id,
		Amount:    req.Amount,
		PaidAt:    parseDay(req.PaidAt),
		Reference: req.Reference,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoice": toResponse(inv), "payment": payment})
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	bucket, err := h.service.CalculateAging(r.Context(), tenant, parseDay(r.URL.Query().Get("as_of")))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bucket)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, httpx.SharedErrors, HTTPStatus)
}

// HTTPStatus maps AR errors for httpx.RespondError.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrDuplicateNumber), errors.Is(err, ErrOverpayment):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity, "Invalid Amount"
	}
	return 0, ""
}

// parseDay reads a YYYY-MM-DD value already checked by the validator; empty
// input yields the zero time.
func parseDay(raw string) time.Time {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
