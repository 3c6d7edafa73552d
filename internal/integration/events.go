package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference types stamped on postings created from operational events.
const (
	ReferenceInvoice         = "ar_invoice"
	ReferencePOSSale         = "pos_sale"
	ReferenceBankTransaction = "bank_transaction"
)

// InvoiceIssuedEvent is raised when a customer invoice becomes receivable.
type InvoiceIssuedEvent struct {
	InvoiceID int64
	Number    string
	IssuedAt  time.Time
	Net       decimal.Decimal
	Tax       decimal.Decimal
	// Service books the revenue on the service revenue account instead of sales.
	Service bool
}

// POSSaleEvent is raised for a settled point-of-sale ticket.
type POSSaleEvent struct {
	SaleID string
	Number string
	SoldAt time.Time
	Net    decimal.Decimal
	Tax    decimal.Decimal
}

// BankReceiptEvent is a reconciled bank transaction. Amount is signed: positive
// for money received, negative for money paid out.
type BankReceiptEvent struct {
	TransactionID int64
	BookedAt      time.Time
	Amount        decimal.Decimal
	InvoiceNumber string
	Description   string
}
