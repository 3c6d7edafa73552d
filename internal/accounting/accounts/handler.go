package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler serves the chart-of-accounts endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the account routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/bootstrap", h.Bootstrap)
	r.Get("/by-code/{code}", h.LookupByCode)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

type createRequest struct {
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=120"`
	Kind     string `json:"kind" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	accounts, err := h.service.List(r.Context(), tenant)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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
	account, err := h.service.Get(r.Context(), tenant, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.Create(r.Context(), tenant, CreateInput{
		Code: req.Code, Name: req.Name, Kind: kind, Currency: req.Currency,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.Delete(r.Context(), tenant, id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LookupByCode resolves a code to its account id.
func (h *Handler) LookupByCode(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	code := chi.URLParam(r, "code")
	id, err := h.service.LookupByCode(r.Context(), tenant, code)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"code": code, "account_id": id})
}

// Bootstrap creates the standard chart for the request tenant.
func (h *Handler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	ids, err := h.service.EnsureStandardAccounts(r.Context(), tenant)
	if err != nil {
		h.logger.Error("bootstrap accounts", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)))
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": ids})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, httpx.SharedErrors, ledgershared.HTTPStatus)
}
