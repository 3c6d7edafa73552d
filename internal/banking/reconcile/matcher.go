// Package reconcile ranks open invoices against a bank transaction. It only
// suggests; a person confirms every match.
package reconcile

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
)

const (
	// MinConfidence is the lowest score a suggestion may have.
	MinConfidence = 30
	// MaxSuggestions caps the result of SuggestMatches.
	MaxSuggestions = 5

	maxConfidence = 100

	pointsExactAmount   = 50
	pointsAmountWithin1 = 40
	pointsAmountWithin5 = 20
	pointsNumber        = 30
	pointsCounterparty  = 20
	pointsNarrativeName = 15
)

// Reasons attached to suggestions.
const (
	ReasonExactAmount      = "exact amount match"
	ReasonAmountWithin1    = "amount within 1%"
	ReasonAmountWithin5    = "amount within 5%"
	ReasonInvoiceNumber    = "invoice number in narrative"
	ReasonCounterpartyName = "counterparty name match"
	ReasonNarrativeName    = "party name in narrative"
)

// DefaultTolerance is used when the caller passes zero.
var DefaultTolerance = decimal.RequireFromString("0.01")

var (
	onePercent  = decimal.RequireFromString("0.01")
	fivePercent = decimal.RequireFromString("0.05")
)

// Invoice is an open receivable as the matcher sees it.
type Invoice struct {
	ID            int64           `json:"id" yaml:"id"`
	Number        string          `json:"number" yaml:"number"`
	DisplayNumber string          `json:"display_number" yaml:"display_number"`
	PartyName     string          `json:"party_name" yaml:"party_name"`
	Amount        decimal.Decimal `json:"amount" yaml:"amount"`
	Outstanding   decimal.Decimal `json:"outstanding" yaml:"outstanding"`
}

// Suggestion is a ranked candidate invoice for a transaction.
type Suggestion struct {
	InvoiceID         int64           `json:"invoice_id" yaml:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number" yaml:"invoice_number"`
	InvoiceAmount     decimal.Decimal `json:"invoice_amount" yaml:"invoice_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount" yaml:"transaction_amount"`
	Confidence        int             `json:"confidence" yaml:"confidence"`
	MatchReasons      []string        `json:"match_reasons" yaml:"match_reasons"`
}

// SuggestMatches scores every invoice against tx and returns at most five
// suggestions with confidence of at least 30, highest first. Equal scores
// keep the order of invoices.
func SuggestMatches(tx mt940.Transaction, invoices []Invoice, tolerance decimal.Decimal) []Suggestion {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	narrative := strings.ToLower(strings.TrimSpace(tx.Description + " " + tx.Reference))
	counterparty := strings.ToLower(tx.CounterpartyName)
	paid := tx.Amount.Abs()

	suggestions := make([]Suggestion, 0, len(invoices))
	for _, inv := range invoices {
		score, reasons := scoreAmount(inv, paid, tolerance)
		if containsAny(narrative, inv.DisplayNumber, inv.Number) {
			score += pointsNumber
			reasons = append(reasons, ReasonInvoiceNumber)
		}
		party := strings.ToLower(strings.TrimSpace(inv.PartyName))
		switch {
		case party != "" && strings.Contains(counterparty, party):
			score += pointsCounterparty
			reasons = append(reasons, ReasonCounterpartyName)
		case party != "" && strings.Contains(narrative, party):
			score += pointsNarrativeName
			reasons = append(reasons, ReasonNarrativeName)
		}
		if score > maxConfidence {
			score = maxConfidence
		}
		if score < MinConfidence {
			continue
		}
		number := inv.DisplayNumber
		if number == "" {
			number = inv.Number
		}
		suggestions = append(suggestions, Suggestion{
			InvoiceID:         inv.ID,
			InvoiceNumber:     number,
			InvoiceAmount:     inv.Outstanding,
			TransactionAmount: tx.Amount,
			Confidence:        score,
			MatchReasons:      reasons,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

func scoreAmount(inv Invoice, paid, tolerance decimal.Decimal) (int, []string) {
	diff := inv.Outstanding.Sub(paid).Abs()
	base := inv.Amount
	if !base.IsPositive() {
		base = inv.Outstanding
	}
	switch {
	case diff.LessThanOrEqual(tolerance):
		return pointsExactAmount, []string{ReasonExactAmount}
	case base.IsPositive() && diff.LessThanOrEqual(base.Mul(onePercent)):
		return pointsAmountWithin1, []string{ReasonAmountWithin1}
	case base.IsPositive() && diff.LessThanOrEqual(base.Mul(fivePercent)):
		return pointsAmountWithin5, []string{ReasonAmountWithin5}
	}
	return 0, nil
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
