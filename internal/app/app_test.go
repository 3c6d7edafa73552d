package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ODYSSEY_ENV_FILE", "")
	t.Setenv("LEDGER_CURRENCY", "EUR")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.LedgerCurrency)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, int64(5<<20), cfg.StatementMaxBytes)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.DBAutoMigrate)

	tol, err := cfg.Tolerance()
	require.NoError(t, err)
	assert.True(t, tol.Equal(decimal.RequireFromString("0.01")))
}

func TestLoadConfigRejectsBadTolerance(t *testing.T) {
	t.Setenv("ODYSSEY_ENV_FILE", "")
	t.Setenv("RECONCILE_TOLERANCE", "-1")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	assert.True(t, InTestMode())
}

func TestRequireTenant(t *testing.T) {
	var seen shared.TenantID
	h := RequireTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.TenantFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledger/accounts", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, "Tenant Required", problem.Title)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ledger/accounts", nil)
	req.Header.Set(TenantHeader, "abc")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ledger/accounts", nil)
	req.Header.Set(TenantHeader, "42")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, shared.TenantID(42), seen)
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) id(tenant shared.TenantID, key, module string) string {
	return tenant.String() + ":" + module + ":" + key
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, tenant shared.TenantID, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	id := m.id(tenant, key, module)
	if m.keys[id] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[id] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, tenant shared.TenantID, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, m.id(tenant, key, module))
	return nil
}

func TestIdempotentRejectsReplay(t *testing.T) {
	store := &memoryIdempotency{}
	calls := 0
	status := http.StatusCreated
	r := chi.NewRouter()
	r.Use(RequireTenant)
	r.Use(Idempotent(store, "ledger", testLogger()))
	r.Post("/journals", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	})

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/journals", strings.NewReader("{}"))
		req.Header.Set(TenantHeader, "7")
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send("k-1"))
	assert.Equal(t, http.StatusConflict, send("k-1"))
	assert.Equal(t, 1, calls)

	// Requests without a key are never deduplicated.
	assert.Equal(t, http.StatusCreated, send(""))
	assert.Equal(t, http.StatusCreated, send(""))
	assert.Equal(t, 3, calls)

	// A failed request releases its key.
	status = http.StatusUnprocessableEntity
	assert.Equal(t, http.StatusUnprocessableEntity, send("k-2"))
	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, send("k-2"))
}

func TestRouterHealth(t *testing.T) {
	handler := NewRouter(RouterParams{Logger: testLogger(), Config: &Config{RateLimitPerMinute: 1000}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLoggerJSON(t *testing.T) {
	var buf strings.Builder
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})
	logger.Debug("hidden")
	logger.Info("posted", slog.Int64("tenant_id", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &line))
	assert.Equal(t, "posted", line["msg"])
	assert.Equal(t, "production", line["env"])
	assert.EqualValues(t, 3, line["tenant_id"])
}
