package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appinventory "github.com/hospital/pharmacy/internal/application/inventory"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/infrastructure/config"
	"github.com/hospital/pharmacy/internal/infrastructure/lock"
	"github.com/hospital/pharmacy/internal/infrastructure/logger"
	"github.com/hospital/pharmacy/internal/infrastructure/persistence"
	"github.com/hospital/pharmacy/internal/interfaces/http/dto"
	"github.com/hospital/pharmacy/internal/interfaces/http/middleware"
	"github.com/hospital/pharmacy/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decodeAs[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func assertDec(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: persistence.DriverSQLite})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zaptest.NewLogger(t)
	clock := func() time.Time { return testNow }
	numbering := apptrade.DefaultNumbering()
	numbering.Location = time.UTC
	scope := persistence.NewGormTransactionScope(db.DB)
	locker := lock.NewLocalLocker(config.LockConfig{RetryCount: 2, RetryDelay: time.Millisecond})

	drafts := apptrade.NewDraftService(persistence.NewGormDraftRepository(db.DB), log)
	commits := apptrade.NewCommitService(scope, numbering, log)
	sales := apptrade.NewDispenseService(scope, persistence.NewGormDispenseRepository(db.DB), numbering, log)
	returns := apptrade.NewReturnService(scope, persistence.NewGormReturnRepository(db.DB), numbering, log)
	drafts.SetClock(clock)
	commits.SetClock(clock)
	sales.SetClock(clock)
	returns.SetClock(clock)
	commits.SetLocker(locker)
	returns.SetLocker(locker)

	engine := gin.New()
	engine.Use(logger.GinMiddleware(zap.NewNop()))
	r := router.NewRouter(engine)
	Handlers{
		Drafts:    NewDraftHandler(drafts, commits),
		Sales:     NewSaleHandler(sales),
		Returns:   NewReturnHandler(returns),
		Inventory: NewInventoryHandler(appinventory.NewInventoryService(persistence.NewGormInventoryItemRepository(db.DB))),
	}.Register(r)
	r.Setup()
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-test")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

var paracetamolInvoice = map[string]any{
	"supplier_name":  "Acme Pharma",
	"invoice_number": "INV-1",
	"lines": []map[string]any{{
		"name":           "Paracetamol",
		"units_per_pack": "10",
		"packs":          "5",
		"buy_per_pack":   "50",
		"min_stock":      "100",
	}},
}

func TestPurchaseSaleReturnFlow(t *testing.T) {
	engine := newTestEngine(t)

	// Preview computes without storing
	w := do(t, engine, http.MethodPost, "/api/v1/drafts/preview", paracetamolInvoice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decodeAs[apptrade.InvoicePreview](t, w)
	assertDec(t, "250", preview.Data.TotalAmount)

	w = do(t, engine, http.MethodGet, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), decodeAs[[]apptrade.DraftResponse](t, w).Meta.Total)

	// Draft, then commit
	w = do(t, engine, http.MethodPost, "/api/v1/drafts", paracetamolInvoice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decodeAs[apptrade.DraftResponse](t, w).Data
	assert.Equal(t, 1, draft.Version)

	w = do(t, engine, http.MethodGet, "/api/v1/drafts/"+draft.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, engine, http.MethodPost, "/api/v1/drafts/"+draft.ID.String()+"/commit", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	committed := decodeAs[apptrade.CommitResult](t, w).Data
	assert.False(t, committed.Replayed)
	assert.Equal(t, "INV-1", committed.InvoiceNumber)

	w = do(t, engine, http.MethodPost, "/api/v1/drafts/"+draft.ID.String()+"/commit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replay := decodeAs[apptrade.CommitResult](t, w).Data
	assert.True(t, replay.Replayed)
	assert.Equal(t, committed.PurchaseID, replay.PurchaseID)

	// Inventory reflects the receipt
	w = do(t, engine, http.MethodGet, "/api/v1/inventory/paracetamol", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := decodeAs[appinventory.ItemResponse](t, w).Data
	assertDec(t, "50", item.OnHand)
	assertDec(t, "5", item.AvgCost)
	assert.True(t, item.BelowMinimum)

	w = do(t, engine, http.MethodGet, "/api/v1/inventory/"+item.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, engine, http.MethodGet, "/api/v1/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	low := decodeAs[[]appinventory.ItemResponse](t, w)
	require.Len(t, low.Data, 1)
	assert.Equal(t, item.ID, low.Data[0].ID)

	w = do(t, engine, http.MethodGet, "/api/v1/inventory?search=para&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeAs[[]appinventory.ItemResponse](t, w)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, 5, list.Meta.PageSize)

	// Sale
	w = do(t, engine, http.MethodPost, "/api/v1/sales", map[string]any{
		"payment_method": "cash",
		"lines": []map[string]any{{
			"name": "Paracetamol", "unit_price": "10", "quantity": "20",
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decodeAs[apptrade.SaleResult](t, w).Data
	assert.Equal(t, "B-260314-0001", sale.BillNumber)
	assertDec(t, "200", sale.Total)
	assertDec(t, "100", sale.Profit)

	w = do(t, engine, http.MethodGet, "/api/v1/sales/"+sale.BillNumber, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Customer return, replayed by idempotency key
	returnReq := map[string]any{
		"type":            "customer",
		"reference":       sale.BillNumber,
		"idempotency_key": "ret-1",
		"lines":           []map[string]any{{"name": "paracetamol", "quantity": "5"}},
	}
	w = do(t, engine, http.MethodPost, "/api/v1/returns", returnReq)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ret := decodeAs[apptrade.ReturnResult](t, w).Data
	assert.Equal(t, "RET-202603-0001", ret.ReturnNumber)
	assertDec(t, "50", ret.TotalValue)

	w = do(t, engine, http.MethodPost, "/api/v1/returns", returnReq)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeAs[apptrade.ReturnResult](t, w).Data.Replayed)

	w = do(t, engine, http.MethodGet, "/api/v1/returns/"+ret.ReturnID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, engine, http.MethodGet, "/api/v1/returns?reference="+sale.BillNumber, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeAs[[]apptrade.ReturnResult](t, w).Data, 1)

	w = do(t, engine, http.MethodGet, "/api/v1/inventory/paracetamol", nil)
	assertDec(t, "35", decodeAs[appinventory.ItemResponse](t, w).Data.OnHand)
}

func TestDraftEndpoints_Errors(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"commit with malformed id", http.MethodPost, "/api/v1/drafts/not-a-uuid/commit", nil, http.StatusBadRequest, dto.ErrCodeInvalidID},
		{"commit unknown draft", http.MethodPost, "/api/v1/drafts/8f1e1c52-6d3a-4a8e-9a3c-1d7f4b0a2c11/commit", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"get unknown draft", http.MethodGet, "/api/v1/drafts/8f1e1c52-6d3a-4a8e-9a3c-1d7f4b0a2c11", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid tax type", http.MethodPost, "/api/v1/drafts", map[string]any{"taxes": []map[string]any{{"type": "bogus"}}}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"sale without lines", http.MethodPost, "/api/v1/sales", map[string]any{"lines": []any{}}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown bill", http.MethodGet, "/api/v1/sales/B-260314-9999", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"return with bad type", http.MethodPost, "/api/v1/returns", map[string]any{"type": "gift", "lines": []map[string]any{{"name": "x", "quantity": "1"}}}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"return list without reference", http.MethodGet, "/api/v1/returns", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"customer return on unknown bill", http.MethodPost, "/api/v1/returns", map[string]any{"type": "customer", "reference": "B-000000-0001", "lines": []map[string]any{{"name": "x", "quantity": "1"}}}, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unknown item", http.MethodGet, "/api/v1/inventory/unobtainium", nil, http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, engine, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			env := decodeAs[json.RawMessage](t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, "req-test", env.Error.RequestID)
		})
	}
}

func TestDraftEndpoints_UpdateAndDelete(t *testing.T) {
	engine := newTestEngine(t)

	w := do(t, engine, http.MethodPost, "/api/v1/drafts", paracetamolInvoice)
	require.Equal(t, http.StatusCreated, w.Code)
	draft := decodeAs[apptrade.DraftResponse](t, w).Data
	path := "/api/v1/drafts/" + draft.ID.String()

	update := map[string]any{"supplier_name": "Beta Med", "invoice_number": "INV-9", "version": 1}
	w = do(t, engine, http.MethodPut, path, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeAs[apptrade.DraftResponse](t, w).Data
	assert.Equal(t, "Beta Med", updated.SupplierName)
	assert.Equal(t, 2, updated.Version)

	// Stale version
	w = do(t, engine, http.MethodPut, path, update)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeAs[json.RawMessage](t, w).Error.Code)

	w = do(t, engine, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, engine, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", shared.NewValidationError("quantity must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"not found", shared.NewNotFoundError("bill", "B-1"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"consistency", shared.NewConsistencyError("commit", "draft-1", errors.New("disk full")), http.StatusServiceUnavailable, dto.ErrCodeConsistencyFailure},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, dto.ErrCodeRequestTimeout},
		{"wrapped deadline", fmt.Errorf("begin transaction: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeRequestTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h BaseHandler
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decodeAs[json.RawMessage](t, w)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotContains(t, env.Error.Message, "disk full")
		})
	}
}

func TestSystemHandler(t *testing.T) {
	healthy := NewSystemHandler("pharmacy", "test").
		WithCheck("database", func(context.Context) error { return nil })
	broken := NewSystemHandler("pharmacy", "test").
		WithCheck("database", func(context.Context) error { return nil }).
		WithCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	engine := gin.New()
	engine.GET("/ping", healthy.Ping)
	engine.GET("/info", healthy.GetSystemInfo)
	engine.GET("/health", healthy.Health)
	engine.GET("/broken", broken.Health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decodeAs[PingResponse](t, w).Data.Message)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, "pharmacy", decodeAs[SystemInfoResponse](t, w).Data.Name)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeAs[HealthResponse](t, w).Data.Checks["database"])

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	report := decodeAs[HealthResponse](t, w)
	assert.Equal(t, "unavailable", report.Data.Status)
	assert.Equal(t, "connection refused", report.Data.Checks["redis"])
	assert.Equal(t, "ok", report.Data.Checks["database"])
}
