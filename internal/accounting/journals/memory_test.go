package journals

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type memAccount struct {
	tenant  shared.TenantID
	kind    accounts.Kind
	code    string
	name    string
	balance decimal.Decimal
}

type memState struct {
	accounts map[int64]memAccount
	seq      map[shared.TenantID]int64
	entries  map[uuid.UUID]JournalEntry
	refs     map[string]uuid.UUID
}

func (s memState) clone() memState {
	out := memState{
		accounts: make(map[int64]memAccount, len(s.accounts)),
		seq:      make(map[shared.TenantID]int64, len(s.seq)),
		entries:  make(map[uuid.UUID]JournalEntry, len(s.entries)),
		refs:     make(map[string]uuid.UUID, len(s.refs)),
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.refs {
		out.refs[k] = v
	}
	return out
}

// memoryRepo serialises transactions and commits a copy of the state only
// when fn succeeds, which gives the same all-or-nothing outcome as Postgres.
type memoryRepo struct {
	mu          sync.Mutex
	state       memState
	nextAccount int64
	failBalance int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memState{
		accounts: map[int64]memAccount{},
		seq:      map[shared.TenantID]int64{},
		entries:  map[uuid.UUID]JournalEntry{},
		refs:     map[string]uuid.UUID{},
	}}
}

func (m *memoryRepo) addAccount(tenant shared.TenantID, code string, kind accounts.Kind) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAccount++
	name := code
	for _, tmpl := range accounts.StandardChart() {
		if tmpl.Code == code {
			name = tmpl.Name
		}
	}
	m.state.accounts[m.nextAccount] = memAccount{tenant: tenant, kind: kind, code: code, name: name}
	return m.nextAccount
}

func (m *memoryRepo) balance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.accounts[id].balance
}

func (m *memoryRepo) sequence(tenant shared.TenantID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.seq[tenant]
}

func (m *memoryRepo) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.entries)
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(ctx, &memoryTx{state: work, failBalance: m.failBalance}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memoryRepo) List(_ context.Context, tenant shared.TenantID, filter ListFilter) ([]JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []JournalEntry
	for _, e := range m.state.entries {
		if e.TenantID != tenant {
			continue
		}
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Date.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memoryTx{state: m.state}).GetEntry(context.Background(), tenant, id)
}

type memoryTx struct {
	state       memState
	failBalance int64
}

func (t *memoryTx) ResolveAccounts(_ context.Context, tenant shared.TenantID, ids []int64) (map[int64]AccountRef, error) {
	out := make(map[int64]AccountRef)
	for _, id := range ids {
		if a, ok := t.state.accounts[id]; ok && a.tenant == tenant {
			out[id] = AccountRef{Code: a.code, Name: a.name, Kind: a.kind}
		}
	}
	return out, nil
}

func (t *memoryTx) NextSequence(_ context.Context, tenant shared.TenantID) (int64, error) {
	t.state.seq[tenant]++
	return t.state.seq[tenant], nil
}

func (t *memoryTx) InsertEntry(_ context.Context, entry *JournalEntry) error {
	if entry.Reference != nil {
		key := entry.TenantID.String() + "|" + entry.Reference.Type + "|" + entry.Reference.ID
		if _, ok := t.state.refs[key]; ok {
			return ledgershared.ErrReferenceAlreadyPosted
		}
		t.state.refs[key] = entry.ID
	}
	entry.CreatedAt = time.Now()
	t.state.entries[entry.ID] = *entry
	return nil
}

func (t *memoryTx) InsertLines(_ context.Context, entry *JournalEntry) error {
	for i := range entry.Lines {
		entry.Lines[i].ID = int64(i + 1)
		entry.Lines[i].EntryID = entry.ID
	}
	t.state.entries[entry.ID] = *entry
	return nil
}

func (t *memoryTx) AddBalance(_ context.Context, tenant shared.TenantID, accountID int64, delta decimal.Decimal) error {
	if accountID == t.failBalance {
		return errors.New("connection reset")
	}
	a, ok := t.state.accounts[accountID]
	if !ok || a.tenant != tenant {
		return ledgershared.NewValidationError(ledgershared.KindUnknownAccount, "account %d", accountID)
	}
	a.balance = a.balance.Add(delta)
	t.state.accounts[accountID] = a
	return nil
}

func (t *memoryTx) GetEntry(_ context.Context, tenant shared.TenantID, id uuid.UUID) (JournalEntry, error) {
	e, ok := t.state.entries[id]
	if !ok || e.TenantID != tenant {
		return JournalEntry{}, ledgershared.ErrJournalNotFound
	}
	lines := make([]JournalLine, len(e.Lines))
	for i, line := range e.Lines {
		line.AccountCode = t.state.accounts[line.AccountID].code
		line.AccountName = t.state.accounts[line.AccountID].name
		lines[i] = line
	}
	e.Lines = lines
	return e, nil
}
