package mt940

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseError describes why a statement violates the MT940 grammar.
type ParseError struct {
	Line   int
	Tag    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("mt940: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("mt940: line %d: :%s: %s", e.Line, e.Tag, e.Reason)
}

var (
	tagLine      = regexp.MustCompile(`^:(\d{2}[A-Z]?):(.*)$`)
	blockBody    = regexp.MustCompile(`(?s)\{4:\s*\n(.*?)\n-\}`)
	balanceField = regexp.MustCompile(`^([CD])(\d{6})([A-Z]{3})(\d{1,15},\d{0,2})$`)
	// value date, entry date, mark, funds code, amount, type, customer ref,
	// bank ref, supplementary details.
	statementLine = regexp.MustCompile(`^(\d{6})(\d{4})?(RC|RD|C|D)([A-Z])?(\d{1,15},\d{0,2})([NSF][A-Z0-9]{3})([^\n]{1,16}?)(?://([^\n]{1,16}))?(?:\n([^\n]{1,34}))?$`)
)

type field struct {
	tag   string
	value string
	line  int
}

// ParseStrict reads text as MT940 and fails on the first grammar violation.
func ParseStrict(text string) ([]Statement, error) {
	fields, err := tokenize(unwrapBlocks(text))
	if err != nil {
		return nil, err
	}
	var (
		statements []Statement
		cur        *Statement
		seen       map[string]bool
		startLine  int
	)
	finish := func() error {
		if cur == nil {
			return nil
		}
		for _, tag := range []string{"25", "60", "62"} {
			if !seen[tag] {
				return &ParseError{Line: startLine, Tag: "20", Reason: "statement without :" + tag + ":"}
			}
		}
		if cur.SequenceNumber == "" {
			cur.SequenceNumber = cur.Reference
		}
		cur.Mode = ModeGrammar
		statements = append(statements, *cur)
		return nil
	}
	for _, f := range fields {
		if f.tag == "20" {
			if err := finish(); err != nil {
				return nil, err
			}
			value := strings.TrimSpace(f.value)
			if value == "" || len(value) > 16 {
				return nil, &ParseError{Line: f.line, Tag: f.tag, Reason: "reference must be 1-16 characters"}
			}
			cur = &Statement{Reference: value}
			seen = map[string]bool{}
			startLine = f.line
			continue
		}
		if cur == nil {
			return nil, &ParseError{Line: f.line, Tag: f.tag, Reason: "field before :20:"}
		}
		if err := applyField(cur, seen, f); err != nil {
			return nil, err
		}
	}
	if err := finish(); err != nil {
		return nil, err
	}
	if len(statements) == 0 {
		return nil, &ParseError{Line: 1, Reason: "no statement found"}
	}
	return statements, nil
}

func applyField(cur *Statement, seen map[string]bool, f field) error {
	switch f.tag {
	case "25":
		value := strings.TrimSpace(f.value)
		if value == "" || len(value) > 35 {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "account must be 1-35 characters"}
		}
		cur.AccountNumber = value
		seen["25"] = true
	case "28C", "28":
		cur.SequenceNumber = strings.TrimSpace(f.value)
	case "60F", "60M":
		if seen["60"] {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "duplicate opening balance"}
		}
		mark, _, currency, amount, err := parseBalance(f)
		if err != nil {
			return err
		}
		cur.OpeningBalance = signed(mark, amount)
		cur.Currency = currency
		seen["60"] = true
	case "61":
		if !seen["60"] || seen["62"] {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "statement line outside opening and closing balance"}
		}
		tx, err := parseStatementLine(f)
		if err != nil {
			return err
		}
		cur.Transactions = append(cur.Transactions, tx)
	case "86":
		if seen["62"] {
			// information to account owner at statement level
			return nil
		}
		n := len(cur.Transactions)
		if n == 0 {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "narrative without statement line"}
		}
		tx := &cur.Transactions[n-1]
		if strings.Contains(tx.RawText, "\n:86:") {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "second narrative for one statement line"}
		}
		tx.Description = joinNarrative(f.value)
		tx.RawText += "\n:86:" + f.value
	case "62F", "62M":
		if !seen["60"] {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "closing balance before opening balance"}
		}
		mark, date, currency, amount, err := parseBalance(f)
		if err != nil {
			return err
		}
		if currency != cur.Currency {
			return &ParseError{Line: f.line, Tag: f.tag, Reason: "currency differs from opening balance"}
		}
		cur.ClosingBalance = signed(mark, amount)
		cur.StatementDate = date
		seen["62"] = true
	}
	return nil
}

func parseBalance(f field) (mark string, date time.Time, currency string, amount decimal.Decimal, err error) {
	m := balanceField.FindStringSubmatch(strings.TrimSpace(f.value))
	if m == nil {
		return "", time.Time{}, "", decimal.Decimal{}, &ParseError{Line: f.line, Tag: f.tag, Reason: "malformed balance"}
	}
	if date, err = parseDate(m[2]); err != nil {
		return "", time.Time{}, "", decimal.Decimal{}, &ParseError{Line: f.line, Tag: f.tag, Reason: err.Error()}
	}
	if amount, err = parseAmount(m[4]); err != nil {
		return "", time.Time{}, "", decimal.Decimal{}, &ParseError{Line: f.line, Tag: f.tag, Reason: err.Error()}
	}
	return m[1], date, m[3], amount, nil
}

func parseStatementLine(f field) (Transaction, error) {
	m := statementLine.FindStringSubmatch(strings.TrimRight(f.value, " \n"))
	if m == nil {
		return Transaction{}, &ParseError{Line: f.line, Tag: f.tag, Reason: "malformed statement line"}
	}
	valueDate, err := parseDate(m[1])
	if err != nil {
		return Transaction{}, &ParseError{Line: f.line, Tag: f.tag, Reason: err.Error()}
	}
	date := valueDate
	if m[2] != "" {
		if date, err = entryDate(valueDate, m[2]); err != nil {
			return Transaction{}, &ParseError{Line: f.line, Tag: f.tag, Reason: err.Error()}
		}
	}
	amount, err := parseAmount(m[5])
	if err != nil {
		return Transaction{}, &ParseError{Line: f.line, Tag: f.tag, Reason: err.Error()}
	}
	tx := Transaction{
		Date:            date,
		ValueDate:       &valueDate,
		Amount:          signed(m[3], amount),
		TransactionCode: m[6],
		BankReference:   strings.TrimSpace(m[8]),
		RawText:         ":61:" + f.value,
	}
	if ref := strings.TrimSpace(m[7]); ref != "NONREF" {
		tx.Reference = ref
	}
	if details := strings.TrimSpace(m[9]); details != "" {
		tx.Description = details
	}
	return tx, nil
}

// unwrapBlocks returns the text blocks of SWIFT FIN envelopes, or text
// unchanged when it carries none.
func unwrapBlocks(text string) string {
	bodies := blockBody.FindAllStringSubmatch(text, -1)
	if len(bodies) == 0 {
		return text
	}
	parts := make([]string, 0, len(bodies))
	for _, b := range bodies {
		parts = append(parts, b[1])
	}
	return strings.Join(parts, "\n")
}

func tokenize(text string) ([]field, error) {
	var fields []field
	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" || trimmed == "-" {
			continue
		}
		if m := tagLine.FindStringSubmatch(trimmed); m != nil {
			fields = append(fields, field{tag: m[1], value: m[2], line: lineNo})
			continue
		}
		if len(fields) == 0 {
			return nil, &ParseError{Line: lineNo, Reason: "content before first field"}
		}
		last := &fields[len(fields)-1]
		last.value += "\n" + trimmed
	}
	return fields, nil
}

// joinNarrative folds the 65 character lines of a :86: field into one line.
func joinNarrative(value string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(value, "\n", " ")), " ")
}
