package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// BalanceTolerance is the largest debit/credit difference still accepted.
var BalanceTolerance = decimal.RequireFromString("0.01")

// amountScale matches the NUMERIC(20,2) amount columns.
const amountScale = 2

// PostingLineInput describes a journal line for posting request.
type PostingLineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date        time.Time
	Description string
	Reference   *Reference
	PostedBy    int64
	Lines       []PostingLineInput
}

// Totals sums the debit and credit columns.
func (in PostingInput) Totals() (debit, credit decimal.Decimal) {
	for _, line := range in.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Validate checks the structural rules that need no database access.
func (in PostingInput) Validate() error {
	if len(in.Lines) == 0 {
		return shared.NewValidationError(shared.KindNoLines, "")
	}
	for idx, line := range in.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.NewValidationError(shared.KindInvalidLine, "line %d has a negative amount", idx)
		}
		if !line.Debit.Equal(line.Debit.Round(amountScale)) || !line.Credit.Equal(line.Credit.Round(amountScale)) {
			return shared.NewValidationError(shared.KindInvalidLine, "line %d has more than %d decimals", idx, amountScale)
		}
	}
	debit, credit := in.Totals()
	if debit.Sub(credit).Abs().GreaterThan(BalanceTolerance) {
		return shared.NewValidationError(shared.KindUnbalanced, "debit %s credit %s", debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID     uuid.UUID
	Date        *time.Time
	Description string
	PostedBy    int64
}

func reverseLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}
