package banking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const uniqueImportFingerprint = "uq_bank_imports_fingerprint"

// Repository persists imported statements and their reconciliation state.
type Repository interface {
	// SaveImport stores the import with all statements and lines atomically.
	SaveImport(ctx context.Context, imp Import, statements []mt940.Statement) ([]StoredStatement, error)
	ListTransactions(ctx context.Context, tenant shared.TenantID, statementID int64) ([]StoredTransaction, error)
	GetTransaction(ctx context.Context, tenant shared.TenantID, id int64) (StoredTransaction, error)
	// MarkReconciled flips an unreconciled transaction; it returns
	// ErrAlreadyReconciled when another caller got there first.
	MarkReconciled(ctx context.Context, tenant shared.TenantID, id, invoiceID int64, at time.Time) error
	ClearReconciled(ctx context.Context, tenant shared.TenantID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) SaveImport(ctx context.Context, imp Import, statements []mt940.Statement) ([]StoredStatement, error) {
	stored := make([]StoredStatement, 0, len(statements))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO bank_imports (id, tenant_id, filename, fingerprint, mode, skipped_lines, imported_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			imp.ID, int64(imp.TenantID), imp.Filename, imp.Fingerprint, string(imp.Mode), imp.SkippedLines, imp.ImportedAt)
		if db.IsUniqueViolation(err, uniqueImportFingerprint) {
			return ErrStatementAlreadyImported
		}
		if err != nil {
			return err
		}
		for _, st := range statements {
			row := StoredStatement{
				ImportID:         imp.ID,
				Reference:        st.Reference,
				AccountNumber:    st.AccountNumber,
				Currency:         st.Currency,
				SequenceNumber:   st.SequenceNumber,
				OpeningBalance:   st.OpeningBalance,
				ClosingBalance:   st.ClosingBalance,
				StatementDate:    st.StatementDate,
				TransactionCount: len(st.Transactions),
			}
			err := tx.QueryRow(ctx, `INSERT INTO bank_statements (
	tenant_id, import_id, reference, account_number, currency, sequence_number,
	opening_balance, closing_balance, statement_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
				int64(imp.TenantID), imp.ID, st.Reference, st.AccountNumber, st.Currency, st.SequenceNumber,
				st.OpeningBalance, st.ClosingBalance, nullDate(st.StatementDate)).Scan(&row.ID)
			if err != nil {
				return err
			}
			if err := insertTransactions(ctx, tx, imp.TenantID, row.ID, st.Transactions); err != nil {
				return err
			}
			stored = append(stored, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func insertTransactions(ctx context.Context, tx pgx.Tx, tenant shared.TenantID, statementID int64, lines []mt940.Transaction) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range lines {
		batch.Queue(`INSERT INTO bank_transactions (
	tenant_id, statement_id, booked_on, value_date, amount, description, counterparty_account,
	counterparty_name, reference, bank_reference, transaction_code, raw_text
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			int64(tenant), statementID, t.Date, t.ValueDate, t.Amount, t.Description, t.CounterpartyAccount,
			t.CounterpartyName, t.Reference, t.BankReference, t.TransactionCode, t.RawText)
	}
	return tx.SendBatch(ctx, batch).Close()
}

const transactionColumns = `id, statement_id, booked_on, value_date, amount, description, counterparty_account,
counterparty_name, reference, bank_reference, transaction_code, raw_text, reconciled, invoice_id, reconciled_at`

func scanTransaction(row pgx.Row) (StoredTransaction, error) {
	var t StoredTransaction
	err := row.Scan(&t.ID, &t.StatementID, &t.Date, &t.ValueDate, &t.Amount, &t.Description, &t.CounterpartyAccount,
		&t.CounterpartyName, &t.Reference, &t.BankReference, &t.TransactionCode, &t.RawText,
		&t.Reconciled, &t.InvoiceID, &t.ReconciledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredTransaction{}, ErrTransactionNotFound
	}
	return t, err
}

func (r *repository) ListTransactions(ctx context.Context, tenant shared.TenantID, statementID int64) ([]StoredTransaction, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bank_statements WHERE tenant_id=$1 AND id=$2)`, int64(tenant), statementID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStatementNotFound
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM bank_transactions
WHERE tenant_id=$1 AND statement_id=$2 ORDER BY id`, int64(tenant), statementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) GetTransaction(ctx context.Context, tenant shared.TenantID, id int64) (StoredTransaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM bank_transactions WHERE tenant_id=$1 AND id=$2`, int64(tenant), id))
}

func (r *repository) MarkReconciled(ctx context.Context, tenant shared.TenantID, id, invoiceID int64, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE bank_transactions SET reconciled = TRUE, invoice_id = $3, reconciled_at = $4
WHERE tenant_id=$1 AND id=$2 AND reconciled = FALSE`, int64(tenant), id, nullID(invoiceID), at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetTransaction(ctx, tenant, id); err != nil {
			return err
		}
		return ErrAlreadyReconciled
	}
	return nil
}

func (r *repository) ClearReconciled(ctx context.Context, tenant shared.TenantID, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE bank_transactions SET reconciled = FALSE, invoice_id = NULL, reconciled_at = NULL
WHERE tenant_id=$1 AND id=$2`, int64(tenant), id)
	return err
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}
