package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Repository reads the data reports are built from.
type Repository interface {
	AccountBalances(ctx context.Context, tenant shared.TenantID) ([]AccountBalance, error)
	Movements(ctx context.Context, tenant shared.TenantID, from, to *time.Time) ([]Movement, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) AccountBalances(ctx context.Context, tenant shared.TenantID) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, kind, balance FROM accounts WHERE tenant_id=$1 ORDER BY code`, int64(tenant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var (
			row  AccountBalance
			kind string
		)
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &kind, &row.Balance); err != nil {
			return nil, err
		}
		row.Kind = accounts.Kind(kind)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) Movements(ctx context.Context, tenant shared.TenantID, from, to *time.Time) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.kind, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM accounts a
JOIN journal_lines l ON l.account_id = a.id AND l.tenant_id = a.tenant_id
JOIN journal_entries e ON e.id = l.entry_id
WHERE a.tenant_id=$1 AND a.kind IN ('REVENUE','EXPENSE')
  AND ($2::date IS NULL OR e.entry_date >= $2)
  AND ($3::date IS NULL OR e.entry_date <= $3)
GROUP BY a.id, a.code, a.name, a.kind
ORDER BY a.code`, int64(tenant), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var (
			m    Movement
			kind string
		)
		if err := rows.Scan(&m.AccountID, &m.Code, &m.Name, &kind, &m.Debit, &m.Credit); err != nil {
			return nil, err
		}
		m.Kind = accounts.Kind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}
