package mt940

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	looseTag     = regexp.MustCompile(`^:(\d{2}[A-Z]?):(.*)$`)
	looseBalance = regexp.MustCompile(`^([CD])(\d{6})?([A-Z]{3})?\s*(\d+(?:[.,]\d*)?)`)
	looseLine    = regexp.MustCompile(`^(\d{6})(\d{4})?(RC|RD|C|D)[A-Z]?(\d+(?:[.,]\d*)?)(.*)$`)
	looseType    = regexp.MustCompile(`^([NSF][A-Z0-9]{3})(.*)$`)
)

// ParseFallback scans text line by line and keeps every statement line it can
// read. Records it cannot read are counted in Statement.SkippedLines.
func ParseFallback(text string) []Statement {
	s := &scanner{}
	for _, line := range strings.Split(text, "\n") {
		s.line(strings.TrimRight(line, " \t"))
	}
	s.flush()
	return s.statements
}

type scanner struct {
	statements []Statement
	cur        *Statement
	tx         *Transaction
	narrative  bool
}

func (s *scanner) ensure() *Statement {
	if s.cur == nil {
		s.cur = &Statement{Mode: ModeFallback}
	}
	return s.cur
}

func (s *scanner) flush() {
	if s.cur != nil {
		s.statements = append(s.statements, *s.cur)
	}
	s.cur, s.tx, s.narrative = nil, nil, false
}

func (s *scanner) line(line string) {
	m := looseTag.FindStringSubmatch(line)
	if m == nil {
		if endOfMessage(line) {
			s.narrative = false
			return
		}
		if s.narrative && s.tx != nil && line != "" {
			s.tx.Description = strings.TrimSpace(s.tx.Description + " " + strings.TrimSpace(line))
			s.tx.RawText += "\n" + line
		}
		return
	}
	tag, value := m[1], strings.TrimSpace(m[2])
	s.narrative = false
	if tag != "61" && tag != "86" {
		s.tx = nil
	}
	switch tag {
	case "20":
		s.flush()
		s.cur = &Statement{Mode: ModeFallback, Reference: value, SequenceNumber: value}
	case "25":
		s.ensure().AccountNumber = value
	case "28C", "28":
		s.ensure().SequenceNumber = value
	case "60F", "60M":
		if b, ok := looseBalanceOf(value); ok {
			st := s.ensure()
			st.OpeningBalance = b.amount
			if b.currency != "" {
				st.Currency = b.currency
			}
		}
	case "62F", "62M":
		if b, ok := looseBalanceOf(value); ok {
			st := s.ensure()
			st.ClosingBalance = b.amount
			if b.currency != "" && st.Currency == "" {
				st.Currency = b.currency
			}
			if !b.date.IsZero() {
				st.StatementDate = b.date
			}
		}
	case "61":
		st := s.ensure()
		tx, ok := looseStatementLine(value)
		if !ok {
			st.SkippedLines++
			s.tx = nil
			return
		}
		tx.RawText = line
		st.Transactions = append(st.Transactions, tx)
		s.tx = &st.Transactions[len(st.Transactions)-1]
	case "86":
		if s.tx != nil {
			s.tx.Description = strings.TrimSpace(s.tx.Description + " " + value)
			s.tx.RawText += "\n" + line
			s.narrative = true
		}
	}
}

// endOfMessage reports the block terminator. Narrative lines may start with
// a dash themselves.
func endOfMessage(line string) bool {
	return line == "-" || strings.HasPrefix(line, "-}")
}

type looseBal struct {
	amount   decimal.Decimal
	currency string
	date     time.Time
}

func looseBalanceOf(value string) (looseBal, bool) {
	m := looseBalance.FindStringSubmatch(value)
	if m == nil {
		return looseBal{}, false
	}
	amount, err := parseAmount(m[4])
	if err != nil {
		return looseBal{}, false
	}
	b := looseBal{amount: signed(m[1], amount), currency: m[3]}
	if m[2] != "" {
		if date, err := parseDate(m[2]); err == nil {
			b.date = date
		}
	}
	return b, true
}

func looseStatementLine(value string) (Transaction, bool) {
	m := looseLine.FindStringSubmatch(value)
	if m == nil {
		return Transaction{}, false
	}
	valueDate, err := parseDate(m[1])
	if err != nil {
		return Transaction{}, false
	}
	amount, err := parseAmount(m[4])
	if err != nil {
		return Transaction{}, false
	}
	tx := Transaction{Date: valueDate, ValueDate: &valueDate, Amount: signed(m[3], amount)}
	if m[2] != "" {
		if date, err := entryDate(valueDate, m[2]); err == nil {
			tx.Date = date
		}
	}
	rest := strings.TrimSpace(m[5])
	if t := looseType.FindStringSubmatch(rest); t != nil {
		tx.TransactionCode = t[1]
		rest = t[2]
	}
	ref, bankRef, _ := strings.Cut(rest, "//")
	if ref = strings.TrimSpace(ref); ref != "NONREF" {
		tx.Reference = ref
	}
	tx.BankReference = strings.TrimSpace(bankRef)
	return tx, true
}
