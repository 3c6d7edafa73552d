// Package banking imports MT940 statements and turns confirmed reconciliation
// matches into ledger postings.
package banking

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking/reconcile"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// DefaultMaxStatementBytes bounds an uploaded statement file.
const DefaultMaxStatementBytes = 5 << 20

// InvoicePort is the receivables view the reconciliation flow needs.
type InvoicePort interface {
	ListOpen(ctx context.Context, tenant shared.TenantID) ([]ar.Invoice, error)
	Get(ctx context.Context, tenant shared.TenantID, id int64) (ar.Invoice, error)
	RegisterPayment(ctx context.Context, tenant shared.TenantID, input ar.PaymentInput) (ar.Invoice, ar.Payment, error)
}

// LedgerPort posts settled bank lines.
type LedgerPort interface {
	HandleBankReceipt(ctx context.Context, tenant shared.TenantID, evt integration.BankReceiptEvent) error
}

// MetricsPort records import outcomes.
type MetricsPort interface {
	ObserveStatementImport(mode string, transactions, skipped int)
}

// Config tunes the service.
type Config struct {
	MaxStatementBytes int64
	Tolerance         decimal.Decimal
}

// Service coordinates statement imports and reconciliation.
type Service struct {
	repo     Repository
	invoices InvoicePort
	ledger   LedgerPort
	metrics  MetricsPort
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the service. metrics may be nil.
func NewService(repo Repository, invoices InvoicePort, ledger LedgerPort, metrics MetricsPort, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxStatementBytes <= 0 {
		cfg.MaxStatementBytes = DefaultMaxStatementBytes
	}
	if !cfg.Tolerance.IsPositive() {
		cfg.Tolerance = reconcile.DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invoices: invoices, ledger: ledger, metrics: metrics, cfg: cfg, logger: logger, now: time.Now}
}

// MaxStatementBytes exposes the configured upload limit.
func (s *Service) MaxStatementBytes() int64 {
	return s.cfg.MaxStatementBytes
}

// Fingerprint identifies statement content independent of the file name.
func Fingerprint(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ImportStatement parses and stores a statement file. Importing identical
// content twice for a tenant fails with ErrStatementAlreadyImported.
func (s *Service) ImportStatement(ctx context.Context, tenant shared.TenantID, filename string, raw []byte) (ImportResult, error) {
	if !tenant.Valid() {
		return ImportResult{}, shared.ErrTenantRequired
	}
	if len(raw) == 0 {
		return ImportResult{}, ErrEmptyFile
	}
	if int64(len(raw)) > s.cfg.MaxStatementBytes {
		return ImportResult{}, fmt.Errorf("%w: statement exceeds %d bytes", httpx.ErrTooLarge, s.cfg.MaxStatementBytes)
	}
	statements, grammarErr := mt940.ParseDetailed(raw)
	if len(statements) == 0 {
		return ImportResult{}, ErrNoStatements
	}
	imp := Import{
		ID:          uuid.New(),
		TenantID:    tenant,
		Filename:    filename,
		Fingerprint: Fingerprint(raw),
		Mode:        statements[0].Mode,
		ImportedAt:  s.now().UTC(),
	}
	for _, st := range statements {
		imp.SkippedLines += st.SkippedLines
	}
	stored, err := s.repo.SaveImport(ctx, imp, statements)
	if err != nil {
		if !errors.Is(err, ErrStatementAlreadyImported) {
			s.logger.Error("save statement import", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)), slog.String("filename", filename))
		}
		return ImportResult{}, err
	}
	result := ImportResult{
		Import:       imp,
		Statements:   stored,
		Transactions: mt940.TransactionCount(statements),
	}
	if grammarErr != nil {
		result.GrammarError = grammarErr.Error()
	}
	if s.metrics != nil {
		s.metrics.ObserveStatementImport(string(imp.Mode), result.Transactions, imp.SkippedLines)
	}
	s.logger.Info("statement imported",
		slog.Int64("tenant_id", int64(tenant)),
		slog.String("import_id", imp.ID.String()),
		slog.String("filename", filename),
		slog.String("mode", string(imp.Mode)),
		slog.Int("statements", len(stored)),
		slog.Int("transactions", result.Transactions),
		slog.Int("skipped_lines", imp.SkippedLines),
	)
	return result, nil
}

// ParseOnly parses a statement and attaches suggestions without storing it.
func (s *Service) ParseOnly(ctx context.Context, tenant shared.TenantID, raw []byte) ([]ParsedStatement, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	if int64(len(raw)) > s.cfg.MaxStatementBytes {
		return nil, fmt.Errorf("%w: statement exceeds %d bytes", httpx.ErrTooLarge, s.cfg.MaxStatementBytes)
	}
	candidates, err := s.openInvoices(ctx, tenant)
	if err != nil {
		return nil, err
	}
	statements := mt940.Parse(raw)
	out := make([]ParsedStatement, 0, len(statements))
	for _, st := range statements {
		parsed := ParsedStatement{Statement: st, Transactions: make([]ParsedTransaction, 0, len(st.Transactions))}
		for _, tx := range st.Transactions {
			parsed.Transactions = append(parsed.Transactions, ParsedTransaction{
				Transaction: tx,
				Suggestions: reconcile.SuggestMatches(tx, candidates, s.cfg.Tolerance),
			})
		}
		out = append(out, parsed)
	}
	return out, nil
}

// ListTransactions returns the lines of a stored statement.
func (s *Service) ListTransactions(ctx context.Context, tenant shared.TenantID, statementID int64) ([]StoredTransaction, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListTransactions(ctx, tenant, statementID)
}

// SuggestForTransaction ranks the tenant's open invoices for a stored line.
func (s *Service) SuggestForTransaction(ctx context.Context, tenant shared.TenantID, transactionID int64) ([]reconcile.Suggestion, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	tx, err := s.repo.GetTransaction(ctx, tenant, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Reconciled {
		return []reconcile.Suggestion{}, nil
	}
	candidates, err := s.openInvoices(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return reconcile.SuggestMatches(tx.Transaction, candidates, s.cfg.Tolerance), nil
}

// AcceptMatch applies a confirmed suggestion. Money in settles the invoice up
// to its outstanding amount; money out is posted as the mirror entry and
// leaves the invoice untouched.
func (s *Service) AcceptMatch(ctx context.Context, tenant shared.TenantID, input AcceptInput) (AcceptResult, error) {
	if !tenant.Valid() {
		return AcceptResult{}, shared.ErrTenantRequired
	}
	tx, err := s.repo.GetTransaction(ctx, tenant, input.TransactionID)
	if err != nil {
		return AcceptResult{}, err
	}
	if tx.Reconciled {
		return AcceptResult{}, ErrAlreadyReconciled
	}
	invoice, err := s.invoices.Get(ctx, tenant, input.InvoiceID)
	if err != nil {
		return AcceptResult{}, err
	}
	applied := decimal.Zero
	if tx.IsCredit() {
		outstanding := invoice.Outstanding()
		if !outstanding.IsPositive() {
			return AcceptResult{}, ErrNothingOutstanding
		}
		applied = decimal.Min(tx.Amount, outstanding)
	}

	evt := integration.BankReceiptEvent{
		TransactionID: tx.ID,
		BookedAt:      tx.Date,
		Amount:        tx.Amount,
		InvoiceNumber: invoiceNumber(invoice),
		Description:   tx.Description,
	}
	if err := s.ledger.HandleBankReceipt(ctx, tenant, evt); err != nil {
		return AcceptResult{}, err
	}
	at := s.now().UTC()
	if err := s.repo.MarkReconciled(ctx, tenant, tx.ID, invoice.ID, at); err != nil {
		return AcceptResult{}, err
	}
	if applied.IsPositive() {
		invoice, _, err = s.invoices.RegisterPayment(ctx, tenant, ar.PaymentInput{
			InvoiceID: invoice.ID,
			Amount:    applied,
			PaidAt:    tx.Date,
			Reference: fmt.Sprintf("%s:%d", integration.ReferenceBankTransaction, tx.ID),
		})
		if err != nil {
			if clearErr := s.repo.ClearReconciled(ctx, tenant, tx.ID); clearErr != nil {
				s.logger.Error("clear reconciliation", slog.Any("error", clearErr), slog.Int64("transaction_id", tx.ID))
			}
			return AcceptResult{}, err
		}
	}
	tx.Reconciled = true
	tx.InvoiceID = &invoice.ID
	tx.ReconciledAt = &at
	s.logger.Info("bank transaction reconciled",
		slog.Int64("tenant_id", int64(tenant)),
		slog.Int64("transaction_id", tx.ID),
		slog.Int64("invoice_id", invoice.ID),
		slog.Int64("accepted_by", input.AcceptedBy),
		slog.String("applied", applied.StringFixed(2)),
	)
	return AcceptResult{Transaction: tx, Invoice: invoice, Applied: applied}, nil
}

func (s *Service) openInvoices(ctx context.Context, tenant shared.TenantID) ([]reconcile.Invoice, error) {
	if s.invoices == nil {
		return nil, nil
	}
	open, err := s.invoices.ListOpen(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return toCandidates(open), nil
}

func toCandidates(invoices []ar.Invoice) []reconcile.Invoice {
	out := make([]reconcile.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, reconcile.Invoice{
			ID:            inv.ID,
			Number:        inv.Number,
			DisplayNumber: inv.DisplayNumber,
			PartyName:     inv.PartyName,
			Amount:        inv.Total,
			Outstanding:   inv.Outstanding(),
		})
	}
	return out
}

func invoiceNumber(inv ar.Invoice) string {
	if inv.DisplayNumber != "" {
		return inv.DisplayNumber
	}
	return inv.Number
}
