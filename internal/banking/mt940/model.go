// Package mt940 reads SWIFT MT940 customer statement files.
//
// Parse first applies a strict grammar. Exports that violate it are read again
// by a line scanner that keeps whatever transactions it can recognise.
package mt940

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode records which reader produced a statement.
type Mode string

const (
	ModeGrammar  Mode = "grammar"
	ModeFallback Mode = "fallback"
)

// Statement is one :20: ... :62: block of a statement file.
type Statement struct {
	Reference      string          `json:"reference" yaml:"reference"`
	AccountNumber  string          `json:"account_number" yaml:"account_number"`
	Currency       string          `json:"currency" yaml:"currency"`
	SequenceNumber string          `json:"sequence_number" yaml:"sequence_number"`
	OpeningBalance decimal.Decimal `json:"opening_balance" yaml:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance" yaml:"closing_balance"`
	StatementDate  time.Time       `json:"statement_date" yaml:"statement_date"`
	Transactions   []Transaction   `json:"transactions" yaml:"transactions"`
	Mode           Mode            `json:"mode" yaml:"mode"`
	// SkippedLines counts :61: records the fallback reader could not use.
	SkippedLines int `json:"skipped_lines" yaml:"skipped_lines"`
}

// Transaction is a :61: statement line with its :86: narrative. Amount is
// positive for credits (inflows) and negative for debits.
type Transaction struct {
	Date                time.Time       `json:"date" yaml:"date"`
	ValueDate           *time.Time      `json:"value_date,omitempty" yaml:"value_date,omitempty"`
	Amount              decimal.Decimal `json:"amount" yaml:"amount"`
	Description         string          `json:"description" yaml:"description"`
	CounterpartyAccount string          `json:"counterparty_account,omitempty" yaml:"counterparty_account,omitempty"`
	CounterpartyName    string          `json:"counterparty_name,omitempty" yaml:"counterparty_name,omitempty"`
	Reference           string          `json:"reference,omitempty" yaml:"reference,omitempty"`
	BankReference       string          `json:"bank_reference,omitempty" yaml:"bank_reference,omitempty"`
	TransactionCode     string          `json:"transaction_code,omitempty" yaml:"transaction_code,omitempty"`
	RawText             string          `json:"raw_text" yaml:"raw_text"`
}

// IsCredit reports whether money flowed into the account.
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// TransactionCount sums the transactions of all statements.
func TransactionCount(statements []Statement) int {
	n := 0
	for _, s := range statements {
		n += len(s.Transactions)
	}
	return n
}
