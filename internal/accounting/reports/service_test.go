package reports

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type stubRepo struct {
	mu        sync.Mutex
	balances  []AccountBalance
	movements []Movement
	calls     atomic.Int32
	moveCalls atomic.Int32
}

func (r *stubRepo) AccountBalances(_ context.Context, _ shared.TenantID) ([]AccountBalance, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AccountBalance(nil), r.balances...), nil
}

func (r *stubRepo) Movements(_ context.Context, _ shared.TenantID, _, _ *time.Time) ([]Movement, error) {
	r.moveCalls.Add(1)
	return r.movements, nil
}

func (r *stubRepo) setRevenue(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.balances {
		if r.balances[i].Kind == accounts.KindRevenue {
			r.balances[i].Balance = dec(v)
		}
	}
}

func newCachedService(t *testing.T) (*Service, *stubRepo, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &stubRepo{balances: []AccountBalance{
		{AccountID: 1, Code: "1100", Name: "Bank", Kind: accounts.KindAsset, Balance: dec("100")},
		{AccountID: 2, Code: "8000", Name: "Sales", Kind: accounts.KindRevenue, Balance: dec("100")},
	}}
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache), repo, cache
}

func TestBalanceSheetIsCachedUntilBump(t *testing.T) {
	svc, repo, cache := newCachedService(t)
	ctx := context.Background()

	first, err := svc.BalanceSheet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "100", first.Report.Assets.Total.String())

	repo.setRevenue("150")
	_, err = svc.BalanceSheet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.calls.Load())

	require.NoError(t, cache.Bump(ctx, 1))
	again, err := svc.BalanceSheet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.calls.Load())
	assert.Equal(t, "150", again.Report.NetIncome.String())
}

func TestCacheVersionsArePerTenant(t *testing.T) {
	_, _, cache := newCachedService(t)
	ctx := context.Background()

	require.NoError(t, cache.Bump(ctx, 1))
	require.NoError(t, cache.Bump(ctx, 1))
	v1, err := cache.Version(ctx, 1)
	require.NoError(t, err)
	v2, err := cache.Version(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v1)
	assert.Equal(t, int64(1), v2)

	key, err := cache.BuildKey(ctx, 2, "trial_balance")
	require.NoError(t, err)
	assert.Equal(t, "ledger:tenant:2:reports:trial_balance:v1", key)
}

func TestProfitAndLossUsesMovementsWhenFiltered(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	repo.movements = []Movement{{AccountID: 2, Code: "8000", Kind: accounts.KindRevenue, Debit: dec("0"), Credit: dec("40")}}
	ctx := context.Background()

	all, err := svc.ProfitAndLoss(ctx, 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "100", all.Report.NetIncome.String())

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	month, err := svc.ProfitAndLoss(ctx, 1, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, "40", month.Report.NetIncome.String())
	assert.Equal(t, int32(1), repo.moveCalls.Load())
}

func TestReportsWithoutRedis(t *testing.T) {
	repo := &stubRepo{balances: []AccountBalance{{Code: "1000", Kind: accounts.KindAsset, Balance: dec("5")}}}
	svc := NewService(repo, nil)
	view, err := svc.TrialBalance(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "5", view.Report.TotalDebit.String())

	_, err = svc.TrialBalance(context.Background(), 0)
	assert.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestSubscribeReceivesBumps(t *testing.T) {
	_, _, cache := newCachedService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan shared.TenantID, 1)
	require.NoError(t, cache.Subscribe(ctx, func(tenant shared.TenantID, _ int64) { got <- tenant }))
	require.NoError(t, cache.Bump(ctx, 9))

	select {
	case tenant := <-got:
		assert.Equal(t, shared.TenantID(9), tenant)
	case <-time.After(2 * time.Second):
		t.Fatal("bump not received")
	}
}
