package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Tenant returns the tenant the middleware attached to r.
func Tenant(r *http.Request) (shared.TenantID, error) {
	tenant, ok := shared.TenantFromContext(r.Context())
	if !ok {
		return 0, shared.ErrTenantRequired
	}
	return tenant, nil
}

// IDParam parses a positive int64 chi URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrValidation
	}
	return id, nil
}

// SharedErrors maps the cross-module sentinels of package shared.
func SharedErrors(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrTenantRequired), errors.Is(err, shared.ErrTenantInvalid):
		return http.StatusBadRequest, "Tenant Required"
	case errors.Is(err, shared.ErrIdempotencyKeyInvalid):
		return http.StatusBadRequest, "Invalid Idempotency Key"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict, "Duplicate Request"
	}
	return 0, ""
}
