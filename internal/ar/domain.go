package ar

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// InvoiceStatus enumerates AR invoice statuses.
type InvoiceStatus string

const (
	StatusOpen    InvoiceStatus = "OPEN"
	StatusPartial InvoiceStatus = "PARTIAL"
	StatusPaid    InvoiceStatus = "PAID"
)

var (
	// ErrNotFound indicates the invoice does not exist for the tenant.
	ErrNotFound = errors.New("ar: invoice not found")
	// ErrDuplicateNumber indicates the tenant already issued the number.
	ErrDuplicateNumber = errors.New("ar: invoice number already exists")
	// ErrOverpayment indicates a payment larger than the outstanding amount.
	ErrOverpayment = errors.New("ar: payment exceeds outstanding amount")
	// ErrInvalidAmount indicates a non-positive money amount.
	ErrInvalidAmount = errors.New("ar: amount must be positive")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("ar: invalid input")
)

// Invoice is an issued customer invoice. Total includes tax.
type Invoice struct {
	ID            int64           `json:"id"`
	TenantID      shared.TenantID `json:"tenant_id"`
	Number        string          `json:"number"`
	DisplayNumber string          `json:"display_number,omitempty"`
	PartyName     string          `json:"party_name"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Status        InvoiceStatus   `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`
	DueAt         time.Time       `json:"due_at"`
}

// Outstanding is the amount still owed.
func (i Invoice) Outstanding() decimal.Decimal {
	return i.Total.Sub(i.Paid)
}

// Payment records money applied to an invoice.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Reference string          `json:"reference,omitempty"`
}

// CreateInvoiceInput describes a new invoice. Total is Net plus Tax.
type CreateInvoiceInput struct {
	Number        string
	DisplayNumber string
	PartyName     string
	Currency      string
	Net           decimal.Decimal
	Tax           decimal.Decimal
	Service       bool
	IssuedAt      time.Time
	DueAt         time.Time
}

// PaymentInput applies Amount to an invoice.
type PaymentInput struct {
	InvoiceID int64
	Amount    decimal.Decimal
	PaidAt    time.Time
	Reference string
}

// AgingBucket summarises outstanding totals by days past due.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}
