package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-service/config"
	"pos-service/internal/auth"
	"pos-service/internal/memstore"
	"pos-service/internal/models"
	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	admin  string
	staff  string
}

func newTestServer(t *testing.T, authCfg config.AuthConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	adminHash, err := auth.HashPassword("admin-pass")
	require.NoError(t, err)
	staffHash, err := auth.HashPassword("staff-pass")
	require.NoError(t, err)

	store := memstore.New()
	require.NoError(t, store.Init(ctx, []models.Operator{
		{Username: "admin", PasswordHash: adminHash, Role: models.RoleAdmin},
		{Username: "amar", PasswordHash: staffHash, Role: models.RoleStaff},
	}, nil))

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	reports := service.NewReportService(store, nil, time.Minute, time.UTC)
	svc := Services{
		Auth:    service.NewAuthService(store, tokens),
		Catalog: service.NewCatalogService(store, nil, time.Minute),
		Billing: service.NewBillingService(store, store, nil, reports, service.LenientCartPolicy{}, service.DefaultSequenceFormat),
		Refunds: service.NewRefundService(store, nil, reports, service.PermissivePolicy{}),
		Reports: reports,
		Store:   store,
	}

	router := gin.New()
	NewHandler(svc, authCfg).SetupRoutes(router, nil)

	s := &testServer{t: t, router: router}
	s.admin = s.login("admin", "admin-pass")
	s.staff = s.login("amar", "staff-pass")
	return s
}

func defaultAuthConfig() config.AuthConfig {
	return config.AuthConfig{LoginRatePerSecond: 100, LoginBurst: 100}
}

func (s *testServer) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp service.LoginResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func (s *testServer) createItem(code string, price string) models.Item {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/items", s.admin, gin.H{
		"code": code, "name": "Item " + code, "category": "Scoops", "price": price,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var item models.Item
	decode(s.t, w, &item)
	return item
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestAuthGates(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())

	w := s.do(http.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/items", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/me", s.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.Operator
	decode(t, w, &me)
	assert.Equal(t, "amar", me.Username)

	w = s.do(http.MethodGet, "/api/v1/bills", s.staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "FORBIDDEN", body["code"])

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "amar", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBillLifecycle(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())
	item := s.createItem("SC-001", "40")

	w := s.do(http.MethodPost, "/api/v1/bills", s.staff, gin.H{
		"customer_name": "Riya",
		"items":         []gin.H{{"item_id": item.ID, "quantity": 3}, {"code": "XX-999", "quantity": 1}},
	}, "Idempotency-Key", "till-1-0001")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bill models.Bill
	decode(t, w, &bill)
	assert.Equal(t, "IL00001", bill.SeqCode)
	assert.Equal(t, "120", bill.TotalAmount.String())
	require.Len(t, bill.Lines, 1)
	require.NotNil(t, bill.OperatorName)
	assert.Equal(t, "amar", *bill.OperatorName)

	w = s.do(http.MethodPost, "/api/v1/bills", s.staff, gin.H{
		"customer_name": "Riya",
		"items":         []gin.H{{"item_id": item.ID, "quantity": 3}, {"code": "XX-999", "quantity": 1}},
	}, "Idempotency-Key", "till-1-0001")
	require.Equal(t, http.StatusCreated, w.Code)
	var again models.Bill
	decode(t, w, &again)
	assert.Equal(t, bill.ID, again.ID)

	w = s.do(http.MethodPost, "/api/v1/bills", s.staff, gin.H{
		"items": []gin.H{{"item_id": item.ID, "quantity": 1}},
	}, "Idempotency-Key", "till-1-0001")
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var reused map[string]interface{}
	decode(t, w, &reused)
	assert.Equal(t, "DUPLICATE_REQUEST", reused["code"])

	w = s.do(http.MethodGet, "/api/v1/bills", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]interface{}
	decode(t, w, &listed)
	require.Len(t, listed, 1)
	assert.NotContains(t, listed[0], "lines")

	w = s.do(http.MethodGet, "/api/v1/bills/by-seq/il00001", s.staff, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	refundPath := "/api/v1/bills/1/lines/" + jsonNumber(bill.Lines[0].ID) + "/refund"
	w = s.do(http.MethodPost, refundPath, s.staff, gin.H{"qty": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, refundPath, s.admin, gin.H{"qty": 5})
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict map[string]interface{}
	decode(t, w, &conflict)
	assert.Equal(t, "INSUFFICIENT_QUANTITY", conflict["code"])
	assert.EqualValues(t, 3, conflict["available"])

	w = s.do(http.MethodPost, refundPath, s.admin, gin.H{"qty": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, refundPath, s.admin, gin.H{"qty": 1, "note": "melted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &bill)
	assert.Equal(t, "80", bill.TotalAmount.String())
	assert.Contains(t, bill.Note, "melted")

	w = s.do(http.MethodPost, "/api/v1/bills/1/status", s.admin, gin.H{"status": "PAID"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/bills/1/status", s.admin, gin.H{"status": "cancelled", "note": "customer left"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &bill)
	assert.Equal(t, models.BillStatusCancelled, bill.Status)

	w = s.do(http.MethodGet, "/api/v1/bills/1/history", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history models.BillHistory
	decode(t, w, &history)
	assert.Len(t, history.Transitions, 1)
	assert.Len(t, history.Refunds, 1)

	w = s.do(http.MethodGet, "/api/v1/reports/sales?type=daily&date="+time.Now().UTC().Format("2006-01-02"), s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.SalesReport
	decode(t, w, &report)
	assert.Zero(t, report.BillCount)
}

func TestBillErrors(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())

	w := s.do(http.MethodGet, "/api/v1/bills/latest", s.staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "EMPTY_HISTORY", body["code"])

	w = s.do(http.MethodGet, "/api/v1/bills/abc", s.staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/bills/42", s.staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/bills", s.staff, gin.H{"items": []gin.H{{"code": "NOPE", "quantity": 1}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &body)
	assert.Equal(t, "EMPTY_BILL", body["code"])
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())
	item := s.createItem("sc-001", "40")
	assert.Equal(t, "SC-001", item.Code)

	w := s.do(http.MethodPost, "/api/v1/items", s.admin, gin.H{
		"code": "SC-001", "name": "Dup", "category": "Scoops", "price": "10",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/items/"+jsonNumber(item.ID)+"/price", s.admin, gin.H{"price": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/items/"+jsonNumber(item.ID)+"/price", s.admin, gin.H{"price": "55.5"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &item)
	assert.Equal(t, "55.50", item.Price.StringFixed(2))

	w = s.do(http.MethodPost, "/api/v1/bills", s.staff, gin.H{"items": []gin.H{{"item_id": item.ID, "quantity": 1}}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/items/"+jsonNumber(item.ID), s.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ITEM_IN_USE", body["code"])

	other := s.createItem("SC-002", "40")
	w = s.do(http.MethodDelete, "/api/v1/items/"+jsonNumber(other.ID), s.admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/items/categories", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories []string
	decode(t, w, &categories)
	assert.Equal(t, []string{"Scoops"}, categories)
}

func TestExportItemSales(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())

	w := s.do(http.MethodGet, "/api/v1/reports/items/export", s.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = s.do(http.MethodGet, "/api/v1/reports/items?start=2025-01-01", s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, config.AuthConfig{LoginRatePerSecond: 0.001, LoginBurst: 3})

	// two of the three tokens were spent by the fixture logins
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "amar", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "amar", "password": "staff-pass"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, defaultAuthConfig())

	w := s.do(http.MethodGet, "/health", "", nil, requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = s.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
