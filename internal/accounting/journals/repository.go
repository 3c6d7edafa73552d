package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const uniqueEntryReference = "uq_journal_entries_reference"

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, tenant shared.TenantID, filter ListFilter) ([]JournalEntry, error)
	Get(ctx context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the statements of a posting transaction.
type TxRepository interface {
	// ResolveAccounts returns every id that belongs to tenant.
	ResolveAccounts(ctx context.Context, tenant shared.TenantID, ids []int64) (map[int64]AccountRef, error)
	// NextSequence atomically increments and returns the tenant's counter.
	NextSequence(ctx context.Context, tenant shared.TenantID) (int64, error)
	InsertEntry(ctx context.Context, entry *JournalEntry) error
	InsertLines(ctx context.Context, entry *JournalEntry) error
	// AddBalance applies delta with a single atomic increment.
	AddBalance(ctx context.Context, tenant shared.TenantID, accountID int64, delta decimal.Decimal) error
	GetEntry(ctx context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

func (r *repository) List(ctx context.Context, tenant shared.TenantID, filter ListFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE tenant_id=$1 AND ($2::date IS NULL OR entry_date >= $2) AND ($3::date IS NULL OR entry_date <= $3)
ORDER BY sequence DESC LIMIT $4`, int64(tenant), filter.From, filter.To, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error) {
	return (&txRepository{q: r.pool}).GetEntry(ctx, tenant, id)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepository struct {
	q querier
}

func (r *txRepository) ResolveAccounts(ctx context.Context, tenant shared.TenantID, ids []int64) (map[int64]AccountRef, error) {
	rows, err := r.q.Query(ctx, `SELECT id, code, name, kind FROM accounts WHERE tenant_id=$1 AND id = ANY($2)`, int64(tenant), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make(map[int64]AccountRef, len(ids))
	for rows.Next() {
		var (
			id   int64
			ref  AccountRef
			kind string
		)
		if err := rows.Scan(&id, &ref.Code, &ref.Name, &kind); err != nil {
			return nil, err
		}
		ref.Kind = accounts.Kind(kind)
		refs[id] = ref
	}
	return refs, rows.Err()
}

func (r *txRepository) NextSequence(ctx context.Context, tenant shared.TenantID) (int64, error) {
	var seq int64
	err := r.q.QueryRow(ctx, `INSERT INTO journal_sequences (tenant_id, last_value) VALUES ($1, 1)
ON CONFLICT (tenant_id) DO UPDATE SET last_value = journal_sequences.last_value + 1
RETURNING last_value`, int64(tenant)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("accounting: next journal sequence: %w", err)
	}
	return seq, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry *JournalEntry) error {
	var refType, refID, refDisplay *string
	if entry.Reference != nil {
		refType, refID, refDisplay = &entry.Reference.Type, &entry.Reference.ID, nullString(entry.Reference.DisplayNumber)
	}
	err := r.q.QueryRow(ctx, `INSERT INTO journal_entries
(id, tenant_id, sequence, number, entry_date, description, reference_type, reference_id, reference_display, total_debit, total_credit, posted_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING created_at`,
		entry.ID, int64(entry.TenantID), entry.Sequence, entry.Number, entry.Date, entry.Description,
		refType, refID, refDisplay, entry.TotalDebit, entry.TotalCredit, nullInt(entry.PostedBy)).Scan(&entry.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueEntryReference) {
			return ledgershared.ErrReferenceAlreadyPosted
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertLines(ctx context.Context, entry *JournalEntry) error {
	for i := range entry.Lines {
		line := &entry.Lines[i]
		line.EntryID = entry.ID
		err := r.q.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, tenant_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, entry.ID, int64(entry.TenantID), line.AccountID, line.Debit, line.Credit, line.Description).Scan(&line.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) AddBalance(ctx context.Context, tenant shared.TenantID, accountID int64, delta decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx, `UPDATE accounts SET balance = balance + $3, updated_at = NOW() WHERE tenant_id=$1 AND id=$2`, int64(tenant), accountID, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledgershared.NewValidationError(ledgershared.KindUnknownAccount, "account %d", accountID)
	}
	return nil
}

func (r *txRepository) GetEntry(ctx context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, int64(tenant), id))
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := r.q.Query(ctx, `SELECT l.id, l.entry_id, l.account_id, a.code, a.name, l.debit, l.credit, l.description
FROM journal_lines l JOIN accounts a ON a.id = l.account_id
WHERE l.tenant_id=$1 AND l.entry_id=$2 ORDER BY l.id ASC`, int64(tenant), id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.AccountCode, &line.AccountName, &line.Debit, &line.Credit, &line.Description); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

const entryColumns = `id, tenant_id, sequence, number, entry_date, description, reference_type, reference_id, reference_display, total_debit, total_credit, posted_by, created_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e                          JournalEntry
		refType, refID, refDisplay *string
		postedBy                   *int64
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.Sequence, &e.Number, &e.Date, &e.Description, &refType, &refID, &refDisplay, &e.TotalDebit, &e.TotalCredit, &postedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ledgershared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	if refType != nil && refID != nil {
		e.Reference = &Reference{Type: *refType, ID: *refID}
		if refDisplay != nil {
			e.Reference.DisplayNumber = *refDisplay
		}
	}
	if postedBy != nil {
		e.PostedBy = *postedBy
	}
	e.Date = e.Date.UTC()
	return e, nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullString(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
