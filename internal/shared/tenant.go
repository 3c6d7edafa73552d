package shared

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TenantID identifies an isolated customer ledger.
type TenantID int64

// Valid reports whether the id can scope ledger data.
func (t TenantID) Valid() bool {
	return t > 0
}

func (t TenantID) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// ParseTenantID converts a header or path value into a TenantID.
func ParseTenantID(raw string) (TenantID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrTenantRequired
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrTenantInvalid, raw)
	}
	tenant := TenantID(id)
	if !tenant.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrTenantInvalid, raw)
	}
	return tenant, nil
}

type tenantContextKey struct{}

// ContextWithTenant stores the request tenant in context. Only the HTTP edge
// reads it back; core services receive the tenant as an argument.
func ContextWithTenant(ctx context.Context, tenant TenantID) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext extracts the tenant stored by the tenant middleware.
func TenantFromContext(ctx context.Context) (TenantID, bool) {
	tenant, ok := ctx.Value(tenantContextKey{}).(TenantID)
	return tenant, ok && tenant.Valid()
}
