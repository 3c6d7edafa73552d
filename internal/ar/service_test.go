package ar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type memoryARRepo struct {
	mu            sync.Mutex
	invoices      map[int64]*Invoice
	payments      []Payment
	nextInvoiceID int64
}

func newMemoryARRepo() *memoryARRepo {
	return &memoryARRepo{invoices: make(map[int64]*Invoice)}
}

func (r *memoryARRepo) CreateInvoice(_ context.Context, tenant shared.TenantID, input CreateInvoiceInput) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.TenantID == tenant && inv.Number == input.Number {
			return Invoice{}, ErrDuplicateNumber
		}
	}
	r.nextInvoiceID++
	inv := &Invoice{
		ID:            r.nextInvoiceID,
		TenantID:      tenant,
		Number:        input.Number,
		DisplayNumber: input.DisplayNumber,
		PartyName:     input.PartyName,
		Currency:      input.Currency,
		Total:         input.Net.Add(input.Tax),
		Status:        StatusOpen,
		IssuedAt:      input.IssuedAt,
		DueAt:         input.DueAt,
	}
	r.invoices[inv.ID] = inv
	return *inv, nil
}

func (r *memoryARRepo) GetInvoice(_ context.Context, tenant shared.TenantID, id int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenant {
		return Invoice{}, ErrNotFound
	}
	return *inv, nil
}

func (r *memoryARRepo) ListOpen(_ context.Context, tenant shared.TenantID) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for id := int64(1); id <= r.nextInvoiceID; id++ {
		inv, ok := r.invoices[id]
		if ok && inv.TenantID == tenant && inv.Outstanding().IsPositive() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memoryARRepo) ApplyPayment(_ context.Context, tenant shared.TenantID, input PaymentInput) (Invoice, Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[input.InvoiceID]
	if !ok || inv.TenantID != tenant {
		return Invoice{}, Payment{}, ErrNotFound
	}
	if inv.Paid.Add(input.Amount).GreaterThan(inv.Total) {
		return Invoice{}, Payment{}, ErrOverpayment
	}
	inv.Paid = inv.Paid.Add(input.Amount)
	inv.Status = StatusPartial
	if inv.Paid.GreaterThanOrEqual(inv.Total) {
		inv.Status = StatusPaid
	}
	payment := Payment{ID: int64(len(r.payments) + 1), InvoiceID: inv.ID, Amount: input.Amount, PaidAt: input.PaidAt, Reference: input.Reference}
	r.payments = append(r.payments, payment)
	return *inv, payment, nil
}

type recordingLedger struct {
	events []integration.InvoiceIssuedEvent
	err    error
}

func (l *recordingLedger) HandleInvoiceIssued(_ context.Context, _ shared.TenantID, evt integration.InvoiceIssuedEvent) error {
	l.events = append(l.events, evt)
	return l.err
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestCreateInvoicePostsReceivable(t *testing.T) {
	ledger := &recordingLedger{}
	svc := NewService(newMemoryARRepo(), ledger, "EUR", nil)
	issued := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceInput{
		Number: " INV-1 ", PartyName: "Acme", Net: dec("100"), Tax: dec("21"), IssuedAt: issued,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-1", inv.Number)
	assert.Equal(t, "EUR", inv.Currency)
	assert.True(t, inv.Total.Equal(dec("121")))
	assert.Equal(t, issued.AddDate(0, 0, 30), inv.DueAt)

	require.Len(t, ledger.events, 1)
	assert.Equal(t, inv.ID, ledger.events[0].InvoiceID)
	assert.True(t, ledger.events[0].Tax.Equal(dec("21")))
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc := NewService(newMemoryARRepo(), nil, "EUR", nil)
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, 0, CreateInvoiceInput{})
	assert.ErrorIs(t, err, shared.ErrTenantRequired)
	_, err = svc.CreateInvoice(ctx, 1, CreateInvoiceInput{PartyName: "x", Net: dec("1")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateInvoice(ctx, 1, CreateInvoiceInput{Number: "A", PartyName: "x"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.CreateInvoice(ctx, 1, CreateInvoiceInput{Number: "A", PartyName: "x", Net: dec("10"), Tax: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateInvoice(ctx, 1, CreateInvoiceInput{Number: "A", PartyName: "x", Net: dec("10")})
	require.NoError(t, err)
	_, err = svc.CreateInvoice(ctx, 1, CreateInvoiceInput{Number: "A", PartyName: "y", Net: dec("10")})
	assert.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestCreateInvoiceSurfacesLedgerFailure(t *testing.T) {
	ledger := &recordingLedger{err: errors.New("ledger down")}
	svc := NewService(newMemoryARRepo(), ledger, "EUR", nil)
	inv, err := svc.CreateInvoice(context.Background(), 1, CreateInvoiceInput{Number: "A", PartyName: "x", Net: dec("10")})
	require.Error(t, err)
	assert.NotZero(t, inv.ID)
}

func TestRegisterPaymentSettlesInvoice(t *testing.T) {
	svc := NewService(newMemoryARRepo(), nil, "EUR", nil)
	ctx := context.Background()
	inv, err := svc.CreateInvoice(ctx, 1, CreateInvoiceInput{Number: "A", PartyName: "x", Net: dec("100")})
	require.NoError(t, err)

	updated, _, err := svc.RegisterPayment(ctx, 1, PaymentInput{InvoiceID: inv.ID, Amount: dec("40")})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, updated.Status)
	assert.True(t, updated.Outstanding().Equal(dec("60")))

	_, _, err = svc.RegisterPayment(ctx, 1, PaymentInput{InvoiceID: inv.ID, Amount: dec("60.01")})
	assert.ErrorIs(t, err, ErrOverpayment)

	updated, payment, err := svc.RegisterPayment(ctx, 1, PaymentInput{InvoiceID: inv.ID, Amount: dec("60"), Reference: "bank_transaction:9"})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, updated.Status)
	assert.Equal(t, "bank_transaction:9", payment.Reference)
	assert.False(t, payment.PaidAt.IsZero())

	open, err := svc.ListOpen(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, _, err = svc.RegisterPayment(ctx, 2, PaymentInput{InvoiceID: inv.ID, Amount: dec("1")})
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = svc.RegisterPayment(ctx, 1, PaymentInput{InvoiceID: inv.ID, Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCalculateAgingBuckets(t *testing.T) {
	svc := NewService(newMemoryARRepo(), nil, "EUR", nil)
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	due := func(days int) time.Time { return asOf.AddDate(0, 0, -days) }

	cases := []struct {
		number string
		net    string
		days   int
	}{
		{"C", "10", -5},
		{"B30", "20", 15},
		{"B60", "30", 45},
		{"B90", "40", 75},
		{"B120", "50", 200},
	}
	for _, tc := range cases {
		_, err := svc.CreateInvoice(ctx, 1, CreateInvoiceInput{
			Number: tc.number, PartyName: "x", Net: dec(tc.net), IssuedAt: due(tc.days).AddDate(0, 0, -30), DueAt: due(tc.days),
		})
		require.NoError(t, err)
	}
	_, _, err := svc.RegisterPayment(ctx, 1, PaymentInput{InvoiceID: 2, Amount: dec("5")})
	require.NoError(t, err)

	bucket, err := svc.CalculateAging(ctx, 1, asOf)
	require.NoError(t, err)
	assert.True(t, bucket.Current.Equal(dec("10")))
	assert.True(t, bucket.Bucket30.Equal(dec("15")))
	assert.True(t, bucket.Bucket60.Equal(dec("30")))
	assert.True(t, bucket.Bucket90.Equal(dec("40")))
	assert.True(t, bucket.Bucket120.Equal(dec("50")))
}
