package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	ledgershared "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Ledger exposes journal posting operations required by integrations.
type Ledger interface {
	PostJournal(ctx context.Context, tenant shared.TenantID, input journals.PostingInput) (journals.JournalEntry, error)
}

// AccountResolver maps standard chart codes to tenant account ids.
type AccountResolver interface {
	LookupByCode(ctx context.Context, tenant shared.TenantID, code string) (int64, error)
	EnsureStandardAccounts(ctx context.Context, tenant shared.TenantID) (map[string]int64, error)
}

// Hooks wires domain events from operational modules into the general ledger.
type Hooks struct {
	ledger   Ledger
	accounts AccountResolver
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, resolver AccountResolver) *Hooks {
	return &Hooks{ledger: ledger, accounts: resolver}
}

// resolveAccounts looks every code up, bootstrapping the standard chart once
// when a tenant posts before anyone created it.
func (h *Hooks) resolveAccounts(ctx context.Context, tenant shared.TenantID, codes ...string) (map[string]int64, error) {
	ids := make(map[string]int64, len(codes))
	var chart map[string]int64
	for _, code := range codes {
		id, err := h.accounts.LookupByCode(ctx, tenant, code)
		if errors.Is(err, ledgershared.ErrAccountNotFound) {
			if chart == nil {
				chart, err = h.accounts.EnsureStandardAccounts(ctx, tenant)
				if err != nil {
					return nil, err
				}
			}
			var ok bool
			if id, ok = chart[code]; !ok {
				return nil, fmt.Errorf("integration: account %s: %w", code, ledgershared.ErrAccountNotFound)
			}
			err = nil
		}
		if err != nil {
			return nil, err
		}
		ids[code] = id
	}
	return ids, nil
}

func (h *Hooks) post(ctx context.Context, tenant shared.TenantID, input journals.PostingInput) error {
	if input.Reference == nil || input.Reference.ID == "" {
		return errors.New("integration: source reference required")
	}
	_, err := h.ledger.PostJournal(ctx, tenant, input)
	if errors.Is(err, ledgershared.ErrReferenceAlreadyPosted) {
		return nil
	}
	return err
}

// HandleInvoiceIssued books the receivable: debit receivables with the gross
// amount, credit revenue with the net amount and VAT payable with the tax.
func (h *Hooks) HandleInvoiceIssued(ctx context.Context, tenant shared.TenantID, evt InvoiceIssuedEvent) error {
	if h == nil || h.ledger == nil || h.accounts == nil {
		return nil
	}
	if evt.IssuedAt.IsZero() {
		return errors.New("integration: invoice issue date required")
	}
	net, tax := round2(evt.Net), round2(evt.Tax)
	gross := net.Add(tax)
	if !gross.IsPositive() {
		return nil
	}
	revenueCode := accounts.CodeSalesRevenue
	if evt.Service {
		revenueCode = accounts.CodeServiceRevenue
	}
	ids, err := h.resolveAccounts(ctx, tenant, accounts.CodeReceivables, revenueCode, accounts.CodeVATPayable)
	if err != nil {
		return err
	}
	lines := []journals.PostingLineInput{
		{AccountID: ids[accounts.CodeReceivables], Debit: gross, Description: "Receivable"},
	}
	lines = appendCredit(lines, ids[revenueCode], net, "Revenue")
	lines = appendCredit(lines, ids[accounts.CodeVATPayable], tax, "VAT")
	return h.post(ctx, tenant, journals.PostingInput{
		Date:        evt.IssuedAt,
		Description: fmt.Sprintf("Invoice %s", evt.Number),
		Reference: &journals.Reference{
			Type:          ReferenceInvoice,
			ID:            strconv.FormatInt(evt.InvoiceID, 10),
			DisplayNumber: evt.Number,
		},
		Lines: lines,
	})
}

// HandlePOSSale books a cash sale: debit cash, credit sales revenue and VAT.
func (h *Hooks) HandlePOSSale(ctx context.Context, tenant shared.TenantID, evt POSSaleEvent) error {
	if h == nil || h.ledger == nil || h.accounts == nil {
		return nil
	}
	if evt.SaleID == "" {
		return errors.New("integration: sale id required")
	}
	if evt.SoldAt.IsZero() {
		return errors.New("integration: sale date required")
	}
	net, tax := round2(evt.Net), round2(evt.Tax)
	gross := net.Add(tax)
	if !gross.IsPositive() {
		return nil
	}
	ids, err := h.resolveAccounts(ctx, tenant, accounts.CodeCash, accounts.CodeSalesRevenue, accounts.CodeVATPayable)
	if err != nil {
		return err
	}
	lines := []journals.PostingLineInput{
		{AccountID: ids[accounts.CodeCash], Debit: gross, Description: "Cash"},
	}
	lines = appendCredit(lines, ids[accounts.CodeSalesRevenue], net, "Revenue")
	lines = appendCredit(lines, ids[accounts.CodeVATPayable], tax, "VAT")
	number := evt.Number
	if number == "" {
		number = evt.SaleID
	}
	return h.post(ctx, tenant, journals.PostingInput{
		Date:        evt.SoldAt,
		Description: fmt.Sprintf("POS sale %s", number),
		Reference: &journals.Reference{
			Type:          ReferencePOSSale,
			ID:            sourceID(tenant, ReferencePOSSale, evt.SaleID),
			DisplayNumber: number,
		},
		Lines: lines,
	})
}

// HandleBankReceipt settles receivables from a reconciled bank line. Money in
// debits bank and credits receivables; money out is the mirror image.
func (h *Hooks) HandleBankReceipt(ctx context.Context, tenant shared.TenantID, evt BankReceiptEvent) error {
	if h == nil || h.ledger == nil || h.accounts == nil {
		return nil
	}
	if evt.TransactionID <= 0 {
		return errors.New("integration: bank transaction id required")
	}
	if evt.BookedAt.IsZero() {
		return errors.New("integration: booking date required")
	}
	amount := round2(evt.Amount)
	if amount.IsZero() {
		return nil
	}
	ids, err := h.resolveAccounts(ctx, tenant, accounts.CodeBank, accounts.CodeReceivables)
	if err != nil {
		return err
	}
	bank, receivables := ids[accounts.CodeBank], ids[accounts.CodeReceivables]
	abs := amount.Abs()
	lines := []journals.PostingLineInput{
		{AccountID: bank, Debit: abs},
		{AccountID: receivables, Credit: abs},
	}
	if amount.IsNegative() {
		lines = []journals.PostingLineInput{
			{AccountID: receivables, Debit: abs},
			{AccountID: bank, Credit: abs},
		}
	}
	desc := evt.Description
	if evt.InvoiceNumber != "" {
		desc = fmt.Sprintf("Bank settlement %s", evt.InvoiceNumber)
	}
	if desc == "" {
		desc = fmt.Sprintf("Bank transaction %d", evt.TransactionID)
	}
	return h.post(ctx, tenant, journals.PostingInput{
		Date:        evt.BookedAt,
		Description: desc,
		Reference: &journals.Reference{
			Type:          ReferenceBankTransaction,
			ID:            strconv.FormatInt(evt.TransactionID, 10),
			DisplayNumber: evt.InvoiceNumber,
		},
		Lines: lines,
	})
}

func appendCredit(lines []journals.PostingLineInput, accountID int64, amount decimal.Decimal, desc string) []journals.PostingLineInput {
	if amount.IsZero() {
		return lines
	}
	return append(lines, journals.PostingLineInput{AccountID: accountID, Credit: amount, Description: desc})
}
