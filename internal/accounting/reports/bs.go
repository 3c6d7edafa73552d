package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// NetIncome is the unclosed result of revenue and expense accounts.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	NetIncome                 decimal.Decimal     `json:"net_income"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	Balanced                  bool                `json:"balanced"`
}

// BuildBalanceSheet groups accounts by kind using their stored balance.
func BuildBalanceSheet(balances []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}
	var revenue, expense decimal.Decimal

	for _, acc := range balances {
		row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.Balance}
		switch acc.Kind {
		case accounts.KindAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case accounts.KindLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case accounts.KindEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case accounts.KindRevenue:
			revenue = revenue.Add(acc.Balance)
		case accounts.KindExpense:
			expense = expense.Add(acc.Balance)
		}
	}

	sortSection(&assets)
	sortSection(&liabilities)
	sortSection(&equity)

	netIncome := revenue.Sub(expense)
	total := liabilities.Total.Add(equity.Total).Add(netIncome)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		NetIncome:                 netIncome,
		TotalLiabilitiesAndEquity: total,
		Balanced:                  assets.Total.Sub(total).Abs().LessThanOrEqual(tolerance),
	}
}

func sortSection(s *BalanceSheetSection) {
	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].Code < s.Accounts[j].Code })
}
