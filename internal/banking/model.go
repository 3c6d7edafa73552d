package banking

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
	"github.com/odyssey-erp/odyssey-ledger/internal/banking/reconcile"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

var (
	// ErrStatementAlreadyImported indicates the same file was imported before.
	ErrStatementAlreadyImported = errors.New("banking: statement already imported")
	// ErrNoStatements indicates the file contained nothing recognisable.
	ErrNoStatements = errors.New("banking: no statements found")
	// ErrEmptyFile indicates an upload without content.
	ErrEmptyFile = errors.New("banking: empty statement file")
	// ErrTransactionNotFound indicates a missing bank transaction.
	ErrTransactionNotFound = errors.New("banking: transaction not found")
	// ErrStatementNotFound indicates a missing statement.
	ErrStatementNotFound = errors.New("banking: statement not found")
	// ErrAlreadyReconciled indicates the transaction was matched before.
	ErrAlreadyReconciled = errors.New("banking: transaction already reconciled")
	// ErrNothingOutstanding indicates the chosen invoice is already settled.
	ErrNothingOutstanding = errors.New("banking: invoice has nothing outstanding")
)

// Import is one uploaded statement file.
type Import struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     shared.TenantID `json:"tenant_id"`
	Filename     string          `json:"filename"`
	Fingerprint  string          `json:"fingerprint"`
	Mode         mt940.Mode      `json:"mode"`
	SkippedLines int             `json:"skipped_lines"`
	ImportedAt   time.Time       `json:"imported_at"`
}

// StoredStatement is a persisted statement of an import.
type StoredStatement struct {
	ID               int64           `json:"id"`
	ImportID         uuid.UUID       `json:"import_id"`
	Reference        string          `json:"reference"`
	AccountNumber    string          `json:"account_number"`
	Currency         string          `json:"currency"`
	SequenceNumber   string          `json:"sequence_number"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	StatementDate    time.Time       `json:"statement_date"`
	TransactionCount int             `json:"transaction_count"`
}

// StoredTransaction is a persisted statement line and its reconciliation state.
type StoredTransaction struct {
	ID          int64 `json:"id"`
	StatementID int64 `json:"statement_id"`
	mt940.Transaction
	Reconciled   bool       `json:"reconciled"`
	InvoiceID    *int64     `json:"invoice_id,omitempty"`
	ReconciledAt *time.Time `json:"reconciled_at,omitempty"`
}

// ImportResult summarises a successful import.
type ImportResult struct {
	Import       Import            `json:"import"`
	Statements   []StoredStatement `json:"statements"`
	Transactions int               `json:"transactions"`
	// GrammarError explains why the fallback reader was used.
	GrammarError string `json:"grammar_error,omitempty"`
}

// ParsedTransaction pairs a parsed line with its suggestions.
type ParsedTransaction struct {
	mt940.Transaction
	Suggestions []reconcile.Suggestion `json:"suggestions"`
}

// ParsedStatement is a statement parsed without persistence.
type ParsedStatement struct {
	mt940.Statement
	Transactions []ParsedTransaction `json:"transactions"`
}

// AcceptInput confirms a suggested match.
type AcceptInput struct {
	TransactionID int64
	InvoiceID     int64
	AcceptedBy    int64
}

// AcceptResult reports the state after a confirmed match.
type AcceptResult struct {
	Transaction StoredTransaction `json:"transaction"`
	Invoice     ar.Invoice        `json:"invoice"`
	Applied     decimal.Decimal   `json:"applied"`
}
