package banking

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler serves statement imports and reconciliation.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers banking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/statements", h.importStatement)
	r.Post("/statements/parse", h.parseStatement)
	r.Get("/statements/{id}/transactions", h.listTransactions)
	r.Get("/transactions/{id}/suggestions", h.suggestions)
	r.Post("/transactions/{id}/accept", h.accept)
}

type acceptRequest struct {
	InvoiceID int64 `json:"invoice_id" validate:"required,gt=0"`
	UserID    int64 `json:"user_id" validate:"gte=0"`
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	raw, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = r.Header.Get("X-Filename")
	}
	result, err := h.service.ImportStatement(r.Context(), tenant, filename, raw)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) parseStatement(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	raw, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	statements, err := h.service.ParseOnly(r.Context(), tenant, raw)
	if err != nil {
		h.logger.Error("parse statement", slog.Any("error", err))
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"statements": statements})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
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
	txs, err := h.service.ListTransactions(r.Context(), tenant, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if txs == nil {
		txs = []StoredTransaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
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
	suggestions, err := h.service.SuggestForTransaction(r.Context(), tenant, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
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
	var req acceptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	result, err := h.service.AcceptMatch(r.Context(), tenant, AcceptInput{
		TransactionID: id,
		InvoiceID:     req.InvoiceID,
		AcceptedBy:    req.UserID,
	})
	if err != nil {
		h.logger.Warn("accept match", slog.Any("error", err), slog.Int64("transaction_id", id))
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.service.MaxStatementBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httpx.ErrTooLarge
		}
		return nil, err
	}
	return raw, nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, httpx.SharedErrors, HTTPStatus, ar.HTTPStatus, ledgershared.HTTPStatus)
}

// HTTPStatus maps banking errors for httpx.RespondError.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrStatementAlreadyImported):
		return http.StatusConflict, "Statement Already Imported"
	case errors.Is(err, ErrAlreadyReconciled), errors.Is(err, ErrNothingOutstanding):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrStatementNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrNoStatements), errors.Is(err, ErrEmptyFile):
		return http.StatusUnprocessableEntity, "Unreadable Statement"
	}
	return 0, ""
}
