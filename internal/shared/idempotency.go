package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

const maxIdempotencyKey = 120

var (
	// ErrIdempotencyConflict indicates the key was already claimed for this tenant and module.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
	// ErrIdempotencyKeyInvalid indicates an empty or oversized key.
	ErrIdempotencyKeyInvalid = errors.New("idempotency key invalid")
)

// IdempotencyStore claims request keys in idempotency_keys. A key is scoped
// to (tenant, module) so two modules may reuse the same client key.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, now: time.Now}
}

// CheckAndInsert claims key. It returns ErrIdempotencyConflict when an earlier
// request holds it.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, tenant TenantID, key, module string) error {
	if err := checkIdempotencyArgs(tenant, key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (tenant_id, key, module, created_at) VALUES ($1, $2, $3, $4)`,
		int64(tenant), key, module, s.now().UTC())
	if db.IsUniqueViolation(err, "") {
		return ErrIdempotencyConflict
	}
	return err
}

// Delete releases a claimed key after the guarded request failed.
func (s *IdempotencyStore) Delete(ctx context.Context, tenant TenantID, key, module string) error {
	if err := checkIdempotencyArgs(tenant, key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE tenant_id=$1 AND module=$2 AND key=$3`, int64(tenant), module, key)
	return err
}

func checkIdempotencyArgs(tenant TenantID, key, module string) error {
	if !tenant.Valid() {
		return ErrTenantRequired
	}
	if key == "" || len(key) > maxIdempotencyKey {
		return fmt.Errorf("%w: length %d", ErrIdempotencyKeyInvalid, len(key))
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	return nil
}
