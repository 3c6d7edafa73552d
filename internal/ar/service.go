package ar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// LedgerPort books issued invoices in the general ledger.
type LedgerPort interface {
	HandleInvoiceIssued(ctx context.Context, tenant shared.TenantID, evt integration.InvoiceIssuedEvent) error
}

// Service handles AR business logic.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerPort
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance. ledger may be nil, in which case
// invoices are recorded without a posting.
func NewService(repo RepositoryPort, ledger LedgerPort, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledger, currency: currency, logger: logger, now: time.Now}
}

// CreateInvoice records an invoice and posts its receivable.
func (s *Service) CreateInvoice(ctx context.Context, tenant shared.TenantID, input CreateInvoiceInput) (Invoice, error) {
	if !tenant.Valid() {
		return Invoice{}, shared.ErrTenantRequired
	}
	input.Number = strings.TrimSpace(input.Number)
	input.PartyName = strings.TrimSpace(input.PartyName)
	if input.Number == "" {
		return Invoice{}, fmt.Errorf("%w: invoice number required", ErrInvalidInput)
	}
	if input.PartyName == "" {
		return Invoice{}, fmt.Errorf("%w: party name required", ErrInvalidInput)
	}
	if input.Net.IsNegative() || input.Tax.IsNegative() || !input.Net.Add(input.Tax).IsPositive() {
		return Invoice{}, ErrInvalidAmount
	}
	if input.Currency == "" {
		input.Currency = s.currency
	}
	input.Currency = strings.ToUpper(input.Currency)
	if input.IssuedAt.IsZero() {
		input.IssuedAt = s.now()
	}
	if input.DueAt.IsZero() {
		input.DueAt = input.IssuedAt.AddDate(0, 0, 30)
	}
	inv, err := s.repo.CreateInvoice(ctx, tenant, input)
	if err != nil {
		return Invoice{}, err
	}
	if s.ledger != nil {
		evt := integration.InvoiceIssuedEvent{
			InvoiceID: inv.ID,
			Number:    inv.Number,
			IssuedAt:  inv.IssuedAt,
			Net:       input.Net,
			Tax:       input.Tax,
			Service:   input.Service,
		}
		if err := s.ledger.HandleInvoiceIssued(ctx, tenant, evt); err != nil {
			s.logger.Error("post invoice", slog.Any("error", err), slog.Int64("tenant_id", int64(tenant)), slog.String("number", inv.Number))
			return inv, err
		}
	}
	return inv, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, tenant shared.TenantID, id int64) (Invoice, error) {
	if !tenant.Valid() {
		return Invoice{}, shared.ErrTenantRequired
	}
	return s.repo.GetInvoice(ctx, tenant, id)
}

// ListOpen returns the tenant's invoices that still have an outstanding amount.
func (s *Service) ListOpen(ctx context.Context, tenant shared.TenantID) ([]Invoice, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListOpen(ctx, tenant)
}

// RegisterPayment applies a payment atomically; the invoice turns PAID once
// nothing is outstanding.
func (s *Service) RegisterPayment(ctx context.Context, tenant shared.TenantID, input PaymentInput) (Invoice, Payment, error) {
	if !tenant.Valid() {
		return Invoice{}, Payment{}, shared.ErrTenantRequired
	}
	if input.InvoiceID <= 0 {
		return Invoice{}, Payment{}, fmt.Errorf("%w: invoice id required", ErrInvalidInput)
	}
	if !input.Amount.IsPositive() {
		return Invoice{}, Payment{}, ErrInvalidAmount
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = s.now()
	}
	return s.repo.ApplyPayment(ctx, tenant, input)
}

// CalculateAging groups outstanding amounts by due date buckets.
func (s *Service) CalculateAging(ctx context.Context, tenant shared.TenantID, asOf time.Time) (AgingBucket, error) {
	invoices, err := s.ListOpen(ctx, tenant)
	if err != nil {
		return AgingBucket{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	var bucket AgingBucket
	for _, inv := range invoices {
		if inv.Status == StatusPaid {
			continue
		}
		outstanding := inv.Outstanding()
		days := int(asOf.Sub(inv.DueAt).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(outstanding)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(outstanding)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(outstanding)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(outstanding)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(outstanding)
		}
	}
	return bucket, nil
}
