package banking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if tenant, err := shared.ParseTenantID(req.Header.Get("X-Tenant-ID")); err == nil {
				req = req.WithContext(shared.ContextWithTenant(req.Context(), tenant))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/banking", NewHandler(nil, svc).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, tenant, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerImportTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f.svc)

	rec := do(t, router, http.MethodPost, "/banking/statements?filename=a.sta", "1", statementFile)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "a.sta", result.Import.Filename)
	assert.Equal(t, 2, result.Transactions)

	rec = do(t, router, http.MethodPost, "/banking/statements", "1", statementFile)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandlerRequiresTenant(t *testing.T) {
	router := newTestRouter(newFixture(t).svc)
	rec := do(t, router, http.MethodPost, "/banking/statements", "", statementFile)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRejectsOversizedUpload(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, &fakeLedger{}, nil, Config{MaxStatementBytes: 32}, nil)
	rec := do(t, newTestRouter(svc), http.MethodPost, "/banking/statements", "1", statementFile)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandlerSuggestAndAccept(t *testing.T) {
	f := newFixture(t, smithInvoice("150"))
	router := newTestRouter(f.svc)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/banking/statements", "1", statementFile).Code)

	rec := do(t, router, http.MethodGet, "/banking/transactions/1/suggestions", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confidence":100`)

	rec = do(t, router, http.MethodPost, "/banking/transactions/1/accept", "1", `{"invoice_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/banking/transactions/1/accept", "1", `{"invoice_id":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/banking/transactions/1/accept", "1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/banking/transactions/99/suggestions", "1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerParseOnly(t *testing.T) {
	router := newTestRouter(newFixture(t, smithInvoice("150")).svc)
	rec := do(t, router, http.MethodPost, "/banking/statements/parse", "1", statementFile)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Statements []ParsedStatement `json:"statements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Statements, 1)
	assert.Len(t, body.Statements[0].Transactions, 2)
}
