package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// ReferenceReversal marks entries created by ReverseJournal.
const ReferenceReversal = "journal_reversal"

// Reference ties an entry to the business event that caused it.
type Reference struct {
	Type          string `json:"type"`
	ID            string `json:"id"`
	DisplayNumber string `json:"display_number,omitempty"`
}

// JournalEntry is an immutable, balanced posting.
type JournalEntry struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    shared.TenantID `json:"tenant_id"`
	Number      string          `json:"number"`
	Sequence    int64           `json:"sequence"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reference   *Reference      `json:"reference,omitempty"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	PostedBy    int64           `json:"posted_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []JournalLine   `json:"lines,omitempty"`
}

// AccountRef is the part of an account a posting needs.
type AccountRef struct {
	Code string
	Name string
	Kind accounts.Kind
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID          int64           `json:"id"`
	EntryID     uuid.UUID       `json:"entry_id"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code,omitempty"`
	AccountName string          `json:"account_name,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// FormatNumber renders the human readable entry number, e.g. JP2024-00042.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("JP%d-%05d", year, seq)
}

// ListFilter narrows List by entry date, both bounds inclusive.
type ListFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
