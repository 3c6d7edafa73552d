package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Kind enumerates CoA categories. The balance sign convention branches on it.
type Kind string

const (
	KindAsset     Kind = "ASSET"
	KindLiability Kind = "LIABILITY"
	KindEquity    Kind = "EQUITY"
	KindRevenue   Kind = "REVENUE"
	KindExpense   Kind = "EXPENSE"
)

// ParseKind normalises a user supplied kind.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("accounting: unknown account kind %q", raw)
	}
	return kind, nil
}

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAsset, KindLiability, KindEquity, KindRevenue, KindExpense:
		return true
	}
	return false
}

// DebitNormal is true for kinds whose balance grows with debits.
func (k Kind) DebitNormal() bool {
	return k == KindAsset || k == KindExpense
}

// Delta returns the balance change a debit/credit pair causes on an account of this kind.
func (k Kind) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	if k.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Account models a chart of accounts node with its running balance.
type Account struct {
	ID        int64           `json:"id"`
	TenantID  shared.TenantID `json:"tenant_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Kind      Kind            `json:"kind"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	IsSystem  bool            `json:"is_system"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateInput describes an account added by an explicit tenant action.
type CreateInput struct {
	Code     string
	Name     string
	Kind     Kind
	Currency string
}
