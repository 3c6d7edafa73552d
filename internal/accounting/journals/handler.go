package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type lineRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=255"`
}

type referenceRequest struct {
	Type          string `json:"type" validate:"required,max=50"`
	ID            string `json:"id" validate:"required,max=100"`
	DisplayNumber string `json:"display_number" validate:"max=100"`
}

type postRequest struct {
	Date        string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string            `json:"description" validate:"max=255"`
	Reference   *referenceRequest `json:"reference" validate:"omitempty"`
	Lines       []lineRequest     `json:"lines" validate:"dive"`
}

type reverseRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	filter := ListFilter{}
	q := r.URL.Query()
	if filter.From, err = parseDateParam(q.Get("from")); err != nil {
		h.fail(w, err)
		return
	}
	if filter.To, err = parseDateParam(q.Get("to")); err != nil {
		h.fail(w, err)
		return
	}
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil {
			h.fail(w, httpx.ErrValidation)
			return
		}
	}
	entries, err := h.service.List(r.Context(), tenant, filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, httpx.ErrValidation)
		return
	}
	entry, err := h.service.Get(r.Context(), tenant, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	input := PostingInput{Description: req.Description}
	if req.Date != "" {
		input.Date, _ = time.Parse(dateLayout, req.Date)
	}
	if req.Reference != nil {
		input.Reference = &Reference{Type: req.Reference.Type, ID: req.Reference.ID, DisplayNumber: req.Reference.DisplayNumber}
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	entry, err := h.service.PostJournal(r.Context(), tenant, input)
	if err != nil {
		if !ledgershared.IsValidation(err) {
			h.logger.Error("post journal", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)))
		}
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	tenant, err := httpx.Tenant(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, httpx.ErrValidation)
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	input := ReverseInput{EntryID: id, Description: req.Description}
	if req.Date != "" {
		date, _ := time.Parse(dateLayout, req.Date)
		input.Date = &date
	}
	entry, err := h.service.ReverseJournal(r.Context(), tenant, input)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, httpx.SharedErrors, ledgershared.HTTPStatus)
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, httpx.ErrValidation
	}
	return &t, nil
}
