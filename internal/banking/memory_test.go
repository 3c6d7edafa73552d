package banking

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type memoryRepo struct {
	mu           sync.Mutex
	fingerprints map[string]bool
	statements   map[int64]shared.TenantID
	txs          map[int64]*StoredTransaction
	owners       map[int64]shared.TenantID
	nextStmt     int64
	nextTx       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		fingerprints: map[string]bool{},
		statements:   map[int64]shared.TenantID{},
		txs:          map[int64]*StoredTransaction{},
		owners:       map[int64]shared.TenantID{},
	}
}

func (r *memoryRepo) SaveImport(_ context.Context, imp Import, statements []mt940.Statement) ([]StoredStatement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := imp.TenantID.String() + ":" + imp.Fingerprint
	if r.fingerprints[key] {
		return nil, ErrStatementAlreadyImported
	}
	r.fingerprints[key] = true
	var out []StoredStatement
	for _, st := range statements {
		r.nextStmt++
		r.statements[r.nextStmt] = imp.TenantID
		for _, t := range st.Transactions {
			r.nextTx++
			r.txs[r.nextTx] = &StoredTransaction{ID: r.nextTx, StatementID: r.nextStmt, Transaction: t}
			r.owners[r.nextTx] = imp.TenantID
		}
		out = append(out, StoredStatement{ID: r.nextStmt, ImportID: imp.ID, Reference: st.Reference, TransactionCount: len(st.Transactions)})
	}
	return out, nil
}

func (r *memoryRepo) ListTransactions(_ context.Context, tenant shared.TenantID, statementID int64) ([]StoredTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.statements[statementID]; !ok || owner != tenant {
		return nil, ErrStatementNotFound
	}
	var out []StoredTransaction
	for id := int64(1); id <= r.nextTx; id++ {
		if t, ok := r.txs[id]; ok && t.StatementID == statementID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetTransaction(_ context.Context, tenant shared.TenantID, id int64) (StoredTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || r.owners[id] != tenant {
		return StoredTransaction{}, ErrTransactionNotFound
	}
	return *t, nil
}

func (r *memoryRepo) MarkReconciled(_ context.Context, tenant shared.TenantID, id, invoiceID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || r.owners[id] != tenant {
		return ErrTransactionNotFound
	}
	if t.Reconciled {
		return ErrAlreadyReconciled
	}
	t.Reconciled = true
	t.InvoiceID = &invoiceID
	t.ReconciledAt = &at
	return nil
}

func (r *memoryRepo) ClearReconciled(_ context.Context, tenant shared.TenantID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.txs[id]; ok && r.owners[id] == tenant {
		t.Reconciled, t.InvoiceID, t.ReconciledAt = false, nil, nil
	}
	return nil
}

type fakeInvoices struct {
	mu       sync.Mutex
	invoices []ar.Invoice
	payments []ar.PaymentInput
}

func (f *fakeInvoices) ListOpen(_ context.Context, tenant shared.TenantID) ([]ar.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ar.Invoice
	for _, inv := range f.invoices {
		if inv.TenantID == tenant && inv.Outstanding().IsPositive() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvoices) Get(_ context.Context, tenant shared.TenantID, id int64) (ar.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.ID == id && inv.TenantID == tenant {
			return inv, nil
		}
	}
	return ar.Invoice{}, ar.ErrNotFound
}

func (f *fakeInvoices) RegisterPayment(_ context.Context, tenant shared.TenantID, input ar.PaymentInput) (ar.Invoice, ar.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, inv := range f.invoices {
		if inv.ID != input.InvoiceID || inv.TenantID != tenant {
			continue
		}
		if inv.Paid.Add(input.Amount).GreaterThan(inv.Total) {
			return ar.Invoice{}, ar.Payment{}, ar.ErrOverpayment
		}
		inv.Paid = inv.Paid.Add(input.Amount)
		if inv.Outstanding().IsZero() {
			inv.Status = ar.StatusPaid
		}
		f.invoices[i] = inv
		f.payments = append(f.payments, input)
		return inv, ar.Payment{InvoiceID: inv.ID, Amount: input.Amount}, nil
	}
	return ar.Invoice{}, ar.Payment{}, ar.ErrNotFound
}

type fakeLedger struct {
	mu     sync.Mutex
	events []integration.BankReceiptEvent
}

func (f *fakeLedger) HandleBankReceipt(_ context.Context, _ shared.TenantID, evt integration.BankReceiptEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

type fakeMetrics struct {
	mode         string
	transactions int
	skipped      int
}

func (f *fakeMetrics) ObserveStatementImport(mode string, transactions, skipped int) {
	f.mode, f.transactions, f.skipped = mode, transactions, skipped
}
