package reports

import (
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// TrialBalanceView wraps the trial balance with request metadata.
type TrialBalanceView struct {
	TenantID    shared.TenantID `json:"tenant_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Report      TrialBalance    `json:"report"`
}

// ProfitAndLossView holds the P&L and the date filter it was built for.
type ProfitAndLossView struct {
	TenantID    shared.TenantID `json:"tenant_id"`
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	Report      ProfitAndLoss   `json:"report"`
}

// BalanceSheetView contains data for the balance sheet report.
type BalanceSheetView struct {
	TenantID    shared.TenantID `json:"tenant_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Report      BalanceSheet    `json:"report"`
}
