package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking/mt940"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

const sampleStatement = `:20:STMT240315
:25:NL91ABNA0417164300
:28C:00042/001
:60F:C240314EUR1000,00
:61:2403150315C150,00NTRFINV-2024-003//BANKREF1
:86:PAYMENT INV-2024-003 NAME:J SMITH
:61:240315D25,50NMSCNONREF
:86:CARD PAYMENT COFFEE
:62F:C240315EUR1124,50
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseJSON(t *testing.T) {
	out, err := run(t, "parse", writeFile(t, "stmt.sta", sampleStatement))
	require.NoError(t, err)

	var statements []mt940.Statement
	require.NoError(t, json.Unmarshal([]byte(out), &statements))
	require.Len(t, statements, 1)
	assert.Equal(t, mt940.ModeGrammar, statements[0].Mode)
	require.Len(t, statements[0].Transactions, 2)
	assert.Equal(t, "150", statements[0].Transactions[0].Amount.String())
}

func TestParseYAML(t *testing.T) {
	out, err := run(t, "parse", writeFile(t, "stmt.sta", sampleStatement), "--output", "yaml")
	require.NoError(t, err)

	var statements []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &statements))
	require.Len(t, statements, 1)
	assert.Equal(t, "STMT240315", statements[0]["reference"])
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "parse", writeFile(t, "stmt.sta", sampleStatement), "--output", "xml")
	require.Error(t, err)
}

func TestSuggestAgainstInvoiceFile(t *testing.T) {
	invoices := writeFile(t, "open.yaml", `invoices:
  - id: 7
    number: INV-2024-003
    party_name: J Smith
    amount: "150.00"
  - id: 8
    number: INV-2024-009
    amount: "999.00"
`)
	out, err := run(t, "suggest", writeFile(t, "stmt.sta", sampleStatement), "--invoices", invoices)
	require.NoError(t, err)

	var result []transactionSuggestions
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result, 2)
	require.NotEmpty(t, result[0].Suggestions)
	assert.Equal(t, int64(7), result[0].Suggestions[0].InvoiceID)
	assert.GreaterOrEqual(t, result[0].Suggestions[0].Confidence, 30)
	assert.Empty(t, result[1].Suggestions)
}

func TestBootstrapRequiresTenant(t *testing.T) {
	_, err := run(t, "bootstrap", "--tenant", "0")
	require.ErrorIs(t, err, errTenantFlag)
}

type fakeQueue struct {
	payloads []jobs.StatementImportPayload
	closed   bool
}

func (f *fakeQueue) EnqueueStatementImport(_ context.Context, payload jobs.StatementImportPayload) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeQueue) Close() error {
	f.closed = true
	return nil
}

func TestImportQueuesStatement(t *testing.T) {
	queue := &fakeQueue{}
	orig := newStatementQueue
	newStatementQueue = func(string) (statementQueue, error) { return queue, nil }
	t.Cleanup(func() { newStatementQueue = orig })
	t.Setenv("ODYSSEY_ENV_FILE", "")

	out, err := run(t, "import", writeFile(t, "march.sta", sampleStatement), "--tenant", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "queued march.sta for tenant 4")

	require.Len(t, queue.payloads, 1)
	assert.Equal(t, int64(4), queue.payloads[0].TenantID)
	assert.Equal(t, "march.sta", queue.payloads[0].Filename)
	assert.Equal(t, sampleStatement, string(queue.payloads[0].Content))
	assert.True(t, queue.closed)
}
