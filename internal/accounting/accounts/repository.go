package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Repository persists the chart of accounts. It never writes balances.
type Repository interface {
	FindByCode(ctx context.Context, tenant shared.TenantID, code string) (Account, error)
	FindByID(ctx context.Context, tenant shared.TenantID, id int64) (Account, error)
	// EnsureSystemAccount creates the template when absent and returns the
	// stored row. created is false when another caller inserted it first.
	EnsureSystemAccount(ctx context.Context, tenant shared.TenantID, tmpl Template, currency string) (account Account, created bool, err error)
	List(ctx context.Context, tenant shared.TenantID) ([]Account, error)
	Create(ctx context.Context, tenant shared.TenantID, in CreateInput) (Account, error)
	Delete(ctx context.Context, tenant shared.TenantID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, tenant_id, code, name, kind, currency, balance, is_system, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Kind, &a.Currency, &a.Balance, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ledgershared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) FindByCode(ctx context.Context, tenant shared.TenantID, code string) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND code=$2`, int64(tenant), code))
}

func (r *repository) FindByID(ctx context.Context, tenant shared.TenantID, id int64) (Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, int64(tenant), id))
}

// EnsureSystemAccount runs the insert and the read as separate statements so a
// concurrent bootstrap that won the insert is visible to the read.
func (r *repository) EnsureSystemAccount(ctx context.Context, tenant shared.TenantID, tmpl Template, currency string) (Account, bool, error) {
	cmd, err := r.pool.Exec(ctx, `INSERT INTO accounts (tenant_id, code, name, kind, currency, balance, is_system)
VALUES ($1,$2,$3,$4,$5,0,TRUE)
ON CONFLICT (tenant_id, code) DO NOTHING`, int64(tenant), tmpl.Code, tmpl.Name, string(tmpl.Kind), currency)
	if err != nil {
		return Account{}, false, err
	}
	account, err := r.FindByCode(ctx, tenant, tmpl.Code)
	if err != nil {
		return Account{}, false, err
	}
	return account, cmd.RowsAffected() == 1, nil
}

func (r *repository) List(ctx context.Context, tenant shared.TenantID) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 ORDER BY code`, int64(tenant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Create(ctx context.Context, tenant shared.TenantID, in CreateInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, kind, currency, balance, is_system)
VALUES ($1,$2,$3,$4,$5,0,FALSE) RETURNING `+accountColumns, int64(tenant), in.Code, in.Name, string(in.Kind), in.Currency)
	account, err := scanAccount(row)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Account{}, ledgershared.ErrDuplicateAccount
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) Delete(ctx context.Context, tenant shared.TenantID, id int64) error {
	account, err := r.FindByID(ctx, tenant, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return ledgershared.ErrSystemAccount
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM accounts WHERE tenant_id=$1 AND id=$2 AND NOT is_system`, int64(tenant), id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ledgershared.ErrAccountInUse
		}
		return err
	}
	return nil
}
