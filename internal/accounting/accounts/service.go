package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// DefaultCurrency is used when the service is built without one.
const DefaultCurrency = "EUR"

// Service is the chart-of-accounts store.
type Service struct {
	repo     Repository
	currency string
	logger   *slog.Logger
}

// NewService constructs the store. currency applies to bootstrapped accounts.
func NewService(repo Repository, currency string, logger *slog.Logger) *Service {
	if currency == "" {
		currency = DefaultCurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, currency: strings.ToUpper(currency), logger: logger}
}

// EnsureStandardAccounts bootstraps the standard chart for tenant and returns
// the code to account id mapping. Calling it again returns the same mapping.
func (s *Service) EnsureStandardAccounts(ctx context.Context, tenant shared.TenantID) (map[string]int64, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	chart := StandardChart()
	ids := make(map[string]int64, len(chart))
	created := 0
	for _, tmpl := range chart {
		account, err := s.repo.FindByCode(ctx, tenant, tmpl.Code)
		if errors.Is(err, ledgershared.ErrAccountNotFound) {
			var inserted bool
			account, inserted, err = s.repo.EnsureSystemAccount(ctx, tenant, tmpl, s.currency)
			if inserted {
				created++
			}
		}
		if err != nil {
			return nil, fmt.Errorf("accounting: ensure account %s: %w", tmpl.Code, err)
		}
		ids[tmpl.Code] = account.ID
	}
	if created > 0 {
		s.logger.Info("standard accounts bootstrapped", slog.Int64("tenant_id", int64(tenant)), slog.Int("created", created))
	}
	return ids, nil
}

// LookupByCode resolves an account code to its id within tenant.
func (s *Service) LookupByCode(ctx context.Context, tenant shared.TenantID, code string) (int64, error) {
	if !tenant.Valid() {
		return 0, shared.ErrTenantRequired
	}
	account, err := s.repo.FindByCode(ctx, tenant, strings.TrimSpace(code))
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

// List returns the tenant's chart ordered by code.
func (s *Service) List(ctx context.Context, tenant shared.TenantID) ([]Account, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.List(ctx, tenant)
}

// Get returns one account of tenant.
func (s *Service) Get(ctx context.Context, tenant shared.TenantID, id int64) (Account, error) {
	if !tenant.Valid() {
		return Account{}, shared.ErrTenantRequired
	}
	return s.repo.FindByID(ctx, tenant, id)
}

// Create adds a non-system account with a zero balance.
func (s *Service) Create(ctx context.Context, tenant shared.TenantID, in CreateInput) (Account, error) {
	if !tenant.Valid() {
		return Account{}, shared.ErrTenantRequired
	}
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return Account{}, errors.New("accounting: account code and name required")
	}
	if !in.Kind.Valid() {
		return Account{}, fmt.Errorf("accounting: unknown account kind %q", in.Kind)
	}
	if in.Currency == "" {
		in.Currency = s.currency
	}
	in.Currency = strings.ToUpper(in.Currency)
	return s.repo.Create(ctx, tenant, in)
}

// Delete removes a non-system account without postings.
func (s *Service) Delete(ctx context.Context, tenant shared.TenantID, id int64) error {
	if !tenant.Valid() {
		return shared.ErrTenantRequired
	}
	return s.repo.Delete(ctx, tenant, id)
}
