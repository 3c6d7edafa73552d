package mt940

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

const wellFormed = `:20:STMT240315
:25:NL91ABNA0417164300
:28C:00042/001
:60F:C240314EUR1000,00
:61:2403150315C150,00NTRFINV-2024-003//BANKREF1
:86:PAYMENT INV-2024-003 NAME:J SMITH
:61:240315D25,50NMSCNONREF
:86:CARD PAYMENT COFFEE
 BAR AMSTERDAM
:62F:C240315EUR1124,50
`

func TestParseWellFormedStatement(t *testing.T) {
	statements := Parse([]byte(wellFormed))
	require.Len(t, statements, 1)
	st := statements[0]

	assert.Equal(t, ModeGrammar, st.Mode)
	assert.Equal(t, "STMT240315", st.Reference)
	assert.Equal(t, "NL91ABNA0417164300", st.AccountNumber)
	assert.Equal(t, "00042/001", st.SequenceNumber)
	assert.Equal(t, "EUR", st.Currency)
	assert.Equal(t, "1000", st.OpeningBalance.String())
	assert.Equal(t, "1124.5", st.ClosingBalance.String())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), st.StatementDate)
	assert.Zero(t, st.SkippedLines)

	require.Len(t, st.Transactions, 2)
	in := st.Transactions[0]
	assert.Equal(t, "150", in.Amount.String())
	assert.True(t, in.IsCredit())
	assert.Equal(t, "INV-2024-003", in.Reference)
	assert.Equal(t, "BANKREF1", in.BankReference)
	assert.Equal(t, "NTRF", in.TransactionCode)
	assert.Equal(t, "PAYMENT INV-2024-003 NAME:J SMITH", in.Description)
	assert.Equal(t, "J SMITH", in.CounterpartyName)
	require.NotNil(t, in.ValueDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *in.ValueDate)

	out := st.Transactions[1]
	assert.Equal(t, "-25.5", out.Amount.String())
	assert.Empty(t, out.Reference)
	assert.Equal(t, "CARD PAYMENT COFFEE BAR AMSTERDAM", out.Description)
	assert.Contains(t, out.RawText, ":61:240315D25,50NMSCNONREF")
}

func TestParseStripsSwiftEnvelope(t *testing.T) {
	raw := "{1:F01ABNANL2AXXXX0000000000}{2:I940ABNANL2AXXXXN}{4:\r\n" +
		strings.ReplaceAll(strings.TrimSuffix(wellFormed, "\n"), "\n", "\r\n") +
		"\r\n-}"
	statements, err := ParseDetailed([]byte(raw))
	require.NoError(t, err)
	require.Len(t, statements, 1)
	assert.Len(t, statements[0].Transactions, 2)
	assert.Equal(t, ModeGrammar, statements[0].Mode)
}

func TestParseMultipleStatements(t *testing.T) {
	second := strings.ReplaceAll(wellFormed, "STMT240315", "STMT240316")
	statements := Parse([]byte(wellFormed + second))
	require.Len(t, statements, 2)
	assert.Equal(t, "STMT240316", statements[1].Reference)
}

func TestParseFallsBackOnGrammarViolation(t *testing.T) {
	raw := `EXPORT FROM ONLINE BANKING
:61:240315D150,00NTRFNONREF
:86:PAYMENT INV-2024-003 NAME:J SMITH
`
	statements, err := ParseDetailed([]byte(raw))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)

	require.Len(t, statements, 1)
	st := statements[0]
	assert.Equal(t, ModeFallback, st.Mode)
	require.Len(t, st.Transactions, 1)
	tx := st.Transactions[0]
	assert.Equal(t, "-150", tx.Amount.String())
	assert.Equal(t, "PAYMENT INV-2024-003 NAME:J SMITH", tx.Description)
	assert.Equal(t, "J SMITH", tx.CounterpartyName)
}

func TestFallbackCountsSkippedLines(t *testing.T) {
	raw := `:20:REF1
:25:DE89370400440532013000
:60F:C240101EUR0,00
:61:GARBAGE
:86:IGNORED NARRATIVE
:61:240102C10,NTRFNONREF
:86:FIRST
continued here
:61:2401XXC5,00NTRF
:62F:C240102EUR10,00
`
	statements := Parse([]byte(raw))
	require.Len(t, statements, 1)
	st := statements[0]
	assert.Equal(t, ModeFallback, st.Mode)
	assert.Equal(t, 2, st.SkippedLines)
	require.Len(t, st.Transactions, 1)
	assert.Equal(t, "10", st.Transactions[0].Amount.String())
	assert.Equal(t, "FIRST continued here", st.Transactions[0].Description)
	assert.Equal(t, "REF1", st.SequenceNumber)
	assert.Equal(t, "10", st.ClosingBalance.String())
}

func TestFallbackKeepsNarrativeLinesStartingWithDash(t *testing.T) {
	raw := `:20:REF2
:61:240102C10,00NTRFNONREF
:86:PAYMENT INV-1
-2024-003 NAME:J SMITH
-
after terminator
`
	statements := ParseFallback(raw)
	require.Len(t, statements, 1)
	require.Len(t, statements[0].Transactions, 1)
	tx := statements[0].Transactions[0]
	assert.Equal(t, "PAYMENT INV-1 -2024-003 NAME:J SMITH", tx.Description)
	assert.NotContains(t, tx.RawText, "after terminator")
}

func TestFallbackSequenceFromTag28C(t *testing.T) {
	raw := ":20:REF9\n:28C:7/1\n:61:240102C1,00NTRF\n:86:\n:86:X\n"
	statements := ParseFallback(raw)
	require.Len(t, statements, 1)
	assert.Equal(t, "7/1", statements[0].SequenceNumber)
	assert.Equal(t, "REF9", statements[0].Reference)
}

func TestSignConvention(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{":61:240102C10,00NTRFNONREF", "10"},
		{":61:240102D10,00NTRFNONREF", "-10"},
		{":61:240102RC10,00NTRFNONREF", "-10"},
		{":61:240102RD10,00NTRFNONREF", "10"},
	}
	for _, tc := range cases {
		strict := ":20:R\n:25:A\n:60F:C240101EUR0,00\n" + tc.line + "\n:62F:C240102EUR0,00\n"
		st, err := ParseStrict(strict)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, st[0].Transactions[0].Amount.String(), "strict %s", tc.line)

		loose := ParseFallback(tc.line + "\n")
		assert.Equal(t, tc.want, loose[0].Transactions[0].Amount.String(), "fallback %s", tc.line)
	}
}

func TestParseDecodesLatin1(t *testing.T) {
	raw := []byte(":20:R\n:25:A\n:60F:C240101EUR0,00\n:61:240102C1,00NTRFNONREF\n:86:CAF\xe9 M\xfcLLER\n:62F:C240102EUR1,00\n")
	statements := Parse(raw)
	require.Len(t, statements, 1)
	assert.Equal(t, "CAFé MüLLER", statements[0].Transactions[0].Description)
}

func TestDecodeNormalisesInput(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Decode([]byte("\xef\xbb\xbfa\r\nb\rc")))
}

func TestParseEmptyInput(t *testing.T) {
	statements := Parse(nil)
	require.NotNil(t, statements)
	assert.Empty(t, statements)
}

func TestStrictRejections(t *testing.T) {
	cases := map[string]string{
		"missing account":      ":20:R\n:60F:C240101EUR0,00\n:62F:C240102EUR0,00\n",
		"missing closing":      ":20:R\n:25:A\n:60F:C240101EUR0,00\n",
		"bad balance":          ":20:R\n:25:A\n:60F:C240101EUR0.00\n:62F:C240102EUR0,00\n",
		"bad statement line":   ":20:R\n:25:A\n:60F:C240101EUR0,00\n:61:2401XX\n:62F:C240102EUR0,00\n",
		"currency mismatch":    ":20:R\n:25:A\n:60F:C240101EUR0,00\n:62F:C240102USD0,00\n",
		"narrative first":      ":20:R\n:25:A\n:60F:C240101EUR0,00\n:86:X\n:62F:C240102EUR0,00\n",
		"field before 20":      ":25:A\n:20:R\n",
		"invalid calendar day": ":20:R\n:25:A\n:60F:C240231EUR0,00\n:62F:C240102EUR0,00\n",
	}
	for name, text := range cases {
		_, err := ParseStrict(text)
		assert.Error(t, err, name)
	}
}

func TestEntryDateAcrossYearBoundary(t *testing.T) {
	st, err := ParseStrict(":20:R\n:25:A\n:60F:C241231EUR0,00\n:61:2412310102C1,00NTRFNONREF\n:62F:C250102EUR1,00\n")
	require.NoError(t, err)
	tx := st[0].Transactions[0]
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *tx.ValueDate)
}

func TestEnrich(t *testing.T) {
	tx := Transaction{Description: "/EREF/RE-77/IBAN/DE89370400440532013000/NAME/Muster GmbH/REMI/Invoice RE-77"}
	Enrich(&tx)
	assert.Equal(t, "DE89370400440532013000", tx.CounterpartyAccount)
	assert.Equal(t, "Muster GmbH", tx.CounterpartyName)

	tx = Transaction{Description: "REF AB12CDEF NAME:ACME BV IBAN:NL91ABNA0417164300", CounterpartyName: "Kept"}
	Enrich(&tx)
	assert.Equal(t, "NL91ABNA0417164300", tx.CounterpartyAccount)
	assert.Equal(t, "Kept", tx.CounterpartyName)

	tx = Transaction{Description: "NAME:ACME BV IBAN:NL91ABNA0417164300"}
	Enrich(&tx)
	assert.Equal(t, "ACME BV", tx.CounterpartyName)

	tx = Transaction{Description: "CASH DEPOSIT"}
	Enrich(&tx)
	assert.Empty(t, tx.CounterpartyAccount)
	assert.Empty(t, tx.CounterpartyName)
}
