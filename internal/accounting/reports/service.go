package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Service builds ledger reports from the balances the posting engine keeps.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// BalanceSheet groups every account of tenant by kind.
func (s *Service) BalanceSheet(ctx context.Context, tenant shared.TenantID) (BalanceSheetView, error) {
	var view BalanceSheetView
	err := s.cached(ctx, tenant, &view, func(ctx context.Context) (any, error) {
		balances, err := s.repo.AccountBalances(ctx, tenant)
		if err != nil {
			return nil, err
		}
		return BalanceSheetView{TenantID: tenant, GeneratedAt: s.now().UTC(), Report: BuildBalanceSheet(balances)}, nil
	}, "balance_sheet")
	return view, err
}

// ProfitAndLoss reports revenue and expense. Without a range it uses the
// stored balances; with a range it uses the movements posted in it.
func (s *Service) ProfitAndLoss(ctx context.Context, tenant shared.TenantID, from, to *time.Time) (ProfitAndLossView, error) {
	var view ProfitAndLossView
	err := s.cached(ctx, tenant, &view, func(ctx context.Context) (any, error) {
		var balances []AccountBalance
		if from == nil && to == nil {
			all, err := s.repo.AccountBalances(ctx, tenant)
			if err != nil {
				return nil, err
			}
			balances = all
		} else {
			movements, err := s.repo.Movements(ctx, tenant, from, to)
			if err != nil {
				return nil, err
			}
			balances = MovementBalances(movements)
		}
		return ProfitAndLossView{TenantID: tenant, From: from, To: to, GeneratedAt: s.now().UTC(), Report: BuildProfitAndLoss(balances)}, nil
	}, "profit_loss", dateToken(from), dateToken(to))
	return view, err
}

// TrialBalance lists every account of tenant in debit/credit columns.
func (s *Service) TrialBalance(ctx context.Context, tenant shared.TenantID) (TrialBalanceView, error) {
	var view TrialBalanceView
	err := s.cached(ctx, tenant, &view, func(ctx context.Context) (any, error) {
		balances, err := s.repo.AccountBalances(ctx, tenant)
		if err != nil {
			return nil, err
		}
		return TrialBalanceView{TenantID: tenant, GeneratedAt: s.now().UTC(), Report: BuildTrialBalance(balances)}, nil
	}, "trial_balance")
	return view, err
}

func (s *Service) cached(ctx context.Context, tenant shared.TenantID, dest any, build func(context.Context) (any, error), parts ...string) error {
	if !tenant.Valid() {
		return shared.ErrTenantRequired
	}
	key, err := s.cache.BuildKey(ctx, tenant, parts...)
	if err != nil {
		return fmt.Errorf("reports: cache key: %w", err)
	}
	value, err, _ := singleflightBuild(ctx, key, func(ctx context.Context) (any, error) {
		var out any
		if err := s.cache.FetchJSON(ctx, key, &out, build); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	return roundTrip(value, dest)
}

func dateToken(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
