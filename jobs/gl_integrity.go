package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Finding kinds reported by the integrity check.
const (
	FindingUnbalanced = "unbalanced"
	FindingBalance    = "balance"
)

var integrityTolerance = decimal.RequireFromString("0.01")

// EntryTotals are the summed lines of one posted entry.
type EntryTotals struct {
	EntryID string
	Number  string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// AccountTotals pairs an account's stored balance with its posted movements.
type AccountTotals struct {
	AccountID int64
	Code      string
	Kind      accounts.Kind
	Balance   decimal.Decimal
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// IntegrityStore reads the aggregates the check compares.
type IntegrityStore interface {
	Tenants(ctx context.Context) ([]shared.TenantID, error)
	EntryTotals(ctx context.Context, tenant shared.TenantID) ([]EntryTotals, error)
	AccountTotals(ctx context.Context, tenant shared.TenantID) ([]AccountTotals, error)
}

// IntegrityFinding describes one mismatch.
type IntegrityFinding struct {
	TenantID shared.TenantID `json:"tenant_id"`
	Kind     string          `json:"kind"`
	Subject  string          `json:"subject"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

// IntegrityReport is the outcome of one run.
type IntegrityReport struct {
	Tenants  int                `json:"tenants"`
	Findings []IntegrityFinding `json:"findings"`
}

// GLIntegrityJob verifies that every posting balances and that stored account
// balances equal the sum of their postings. It only reports; reports never read
// from it.
type GLIntegrityJob struct {
	Store       IntegrityStore
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
}

// NewGLIntegrityJob initialises the integrity handler.
func NewGLIntegrityJob(store IntegrityStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLIntegrityJob{Store: store, Logger: logger, Metrics: metrics, Concurrency: 4}
}

// Handle executes the integrity check for the task payload.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("gl integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tenants := make([]shared.TenantID, 0, len(payload.TenantIDs))
	for _, id := range payload.TenantIDs {
		tenants = append(tenants, shared.TenantID(id))
	}
	_, err := j.Run(ctx, tenants)
	return err
}

// Run checks the given tenants, or all tenants when none are given.
func (j *GLIntegrityJob) Run(ctx context.Context, tenants []shared.TenantID) (report IntegrityReport, err error) {
	if j == nil || j.Store == nil {
		return IntegrityReport{}, errors.New("gl integrity: handler not configured")
	}
	tracker := j.Metrics.Track(TaskGLIntegrity)
	defer func() {
		err = tracker.End(err)
	}()

	if len(tenants) == 0 {
		tenants, err = j.Store.Tenants(ctx)
		if err != nil {
			return IntegrityReport{}, err
		}
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	limit := j.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, tenant := range tenants {
		g.Go(func() error {
			findings, err := j.checkTenant(gctx, tenant)
			if err != nil {
				return fmt.Errorf("gl integrity: tenant %d: %w", tenant, err)
			}
			mu.Lock()
			report.Findings = append(report.Findings, findings...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		j.Logger.Error("gl integrity check failed", slog.Any("error", err))
		return IntegrityReport{}, err
	}
	report.Tenants = len(tenants)
	j.Logger.Info("GL integrity check executed",
		slog.String("job", TaskGLIntegrity),
		slog.Int("tenants", report.Tenants),
		slog.Int("findings", len(report.Findings)),
	)
	return report, nil
}

func (j *GLIntegrityJob) checkTenant(ctx context.Context, tenant shared.TenantID) ([]IntegrityFinding, error) {
	entries, err := j.Store.EntryTotals(ctx, tenant)
	if err != nil {
		return nil, err
	}
	totals, err := j.Store.AccountTotals(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var findings []IntegrityFinding
	unbalanced := 0
	for _, e := range entries {
		if e.Debit.Sub(e.Credit).Abs().GreaterThan(integrityTolerance) {
			unbalanced++
			findings = append(findings, IntegrityFinding{
				TenantID: tenant, Kind: FindingUnbalanced, Subject: e.Number, Expected: e.Debit, Actual: e.Credit,
			})
		}
	}
	drifted := 0
	for _, a := range totals {
		posted := a.Kind.Delta(a.Debit, a.Credit)
		if !posted.Equal(a.Balance) {
			drifted++
			findings = append(findings, IntegrityFinding{
				TenantID: tenant, Kind: FindingBalance, Subject: a.Code, Expected: posted, Actual: a.Balance,
			})
		}
	}
	for _, f := range findings {
		j.Logger.Warn("ledger integrity mismatch",
			slog.Int64("tenant_id", int64(tenant)),
			slog.String("kind", f.Kind),
			slog.String("subject", f.Subject),
			slog.String("expected", f.Expected.String()),
			slog.String("actual", f.Actual.String()),
		)
	}
	j.Metrics.AddIntegrityMismatches(FindingUnbalanced, int64(tenant), unbalanced)
	j.Metrics.AddIntegrityMismatches(FindingBalance, int64(tenant), drifted)
	return findings, nil
}

type integrityStore struct {
	pool *pgxpool.Pool
}

// NewIntegrityStore returns the pgx backed IntegrityStore.
func NewIntegrityStore(pool *pgxpool.Pool) IntegrityStore {
	return &integrityStore{pool: pool}
}

func (s *integrityStore) Tenants(ctx context.Context) ([]shared.TenantID, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM accounts ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.TenantID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, shared.TenantID(id))
	}
	return out, rows.Err()
}

func (s *integrityStore) EntryTotals(ctx context.Context, tenant shared.TenantID) ([]EntryTotals, error) {
	rows, err := s.pool.Query(ctx, `SELECT e.id::text, e.number, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_entries e
LEFT JOIN journal_lines l ON l.entry_id = e.id AND l.tenant_id = e.tenant_id
WHERE e.tenant_id = $1
GROUP BY e.id, e.number
ORDER BY e.number`, int64(tenant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntryTotals
	for rows.Next() {
		var e EntryTotals
		if err := rows.Scan(&e.EntryID, &e.Number, &e.Debit, &e.Credit); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *integrityStore) AccountTotals(ctx context.Context, tenant shared.TenantID) ([]AccountTotals, error) {
	rows, err := s.pool.Query(ctx, `SELECT a.id, a.code, a.kind, a.balance, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id AND l.tenant_id = a.tenant_id
WHERE a.tenant_id = $1
GROUP BY a.id, a.code, a.kind, a.balance
ORDER BY a.code`, int64(tenant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountTotals
	for rows.Next() {
		var a AccountTotals
		if err := rows.Scan(&a.AccountID, &a.Code, &a.Kind, &a.Balance, &a.Debit, &a.Credit); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
