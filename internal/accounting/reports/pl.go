package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome decimal.Decimal      `json:"net_income"`
}

// BuildProfitAndLoss aggregates revenue and expense rows. Amounts are already
// signed with the account kind's convention, so both sections grow positive.
func BuildProfitAndLoss(balances []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range balances {
		row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Balance}
		switch acc.Kind {
		case accounts.KindRevenue:
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case accounts.KindExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}

// Movement is the debit/credit activity of one account within a date range.
type Movement struct {
	AccountID int64
	Code      string
	Name      string
	Kind      accounts.Kind
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// MovementBalances signs each movement with the same convention the posting
// engine applies to balances.
func MovementBalances(movements []Movement) []AccountBalance {
	out := make([]AccountBalance, 0, len(movements))
	for _, m := range movements {
		out = append(out, AccountBalance{
			AccountID: m.AccountID,
			Code:      m.Code,
			Name:      m.Name,
			Kind:      m.Kind,
			Balance:   m.Kind.Delta(m.Debit, m.Credit),
		})
	}
	return out
}
