package ar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RepositoryPort defines data access methods for AR.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, tenant shared.TenantID, input CreateInvoiceInput) (Invoice, error)
	GetInvoice(ctx context.Context, tenant shared.TenantID, id int64) (Invoice, error)
	ListOpen(ctx context.Context, tenant shared.TenantID) ([]Invoice, error)
	// ApplyPayment increments paid and records the payment in one transaction.
	ApplyPayment(ctx context.Context, tenant shared.TenantID, input PaymentInput) (Invoice, Payment, error)
}

// Repository provides PostgreSQL backed persistence for AR.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, tenant_id, number, display_number, party_name, currency, total, paid, status, issued_at, due_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Number, &inv.DisplayNumber, &inv.PartyName, &inv.Currency,
		&inv.Total, &inv.Paid, &inv.Status, &inv.IssuedAt, &inv.DueAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// CreateInvoice inserts a new open invoice.
func (r *Repository) CreateInvoice(ctx context.Context, tenant shared.TenantID, input CreateInvoiceInput) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `INSERT INTO ar_invoices (
	tenant_id, number, display_number, party_name, currency, total, paid, status, issued_at, due_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, 0, 'OPEN', $7, $8, NOW(), NOW())
RETURNING `+invoiceColumns,
		int64(tenant), input.Number, input.DisplayNumber, input.PartyName, input.Currency,
		input.Net.Add(input.Tax), input.IssuedAt, input.DueAt))
	if db.IsUniqueViolation(err, "") {
		return Invoice{}, ErrDuplicateNumber
	}
	return inv, err
}

// GetInvoice loads one invoice of the tenant.
func (r *Repository) GetInvoice(ctx context.Context, tenant shared.TenantID, id int64) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE tenant_id=$1 AND id=$2`, int64(tenant), id))
}

// ListOpen returns invoices with an outstanding amount, oldest due first.
func (r *Repository) ListOpen(ctx context.Context, tenant shared.TenantID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices
WHERE tenant_id=$1 AND status <> 'PAID' AND total > paid
ORDER BY due_at, id`, int64(tenant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// ApplyPayment adds the amount with a single guarded UPDATE so concurrent
// payments can never push paid above total.
func (r *Repository) ApplyPayment(ctx context.Context, tenant shared.TenantID, input PaymentInput) (Invoice, Payment, error) {
	var (
		inv     Invoice
		payment Payment
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		inv, err = scanInvoice(tx.QueryRow(ctx, `UPDATE ar_invoices
SET paid = paid + $3,
    status = CASE WHEN paid + $3 >= total THEN 'PAID' ELSE 'PARTIAL' END,
    updated_at = NOW()
WHERE tenant_id=$1 AND id=$2 AND paid + $3 <= total
RETURNING `+invoiceColumns, int64(tenant), input.InvoiceID, input.Amount))
		if errors.Is(err, ErrNotFound) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ar_invoices WHERE tenant_id=$1 AND id=$2)`, int64(tenant), input.InvoiceID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return ErrOverpayment
			}
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var ref *string
		if input.Reference != "" {
			ref = &input.Reference
		}
		payment = Payment{InvoiceID: input.InvoiceID, Amount: input.Amount, PaidAt: input.PaidAt, Reference: input.Reference}
		return tx.QueryRow(ctx, `INSERT INTO ar_payments (tenant_id, invoice_id, amount, paid_at, reference, created_at)
VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`, int64(tenant), input.InvoiceID, input.Amount, input.PaidAt, ref).Scan(&payment.ID)
	})
	if err != nil {
		return Invoice{}, Payment{}, err
	}
	return inv, payment, nil
}
