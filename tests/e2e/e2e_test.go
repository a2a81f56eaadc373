//go:build integration

package e2e

// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   - Tenant signup → login → full sale cycle (catalog, checkout, numbering)
//   - Insufficient stock rejected at checkout under the row lock
//   - Refund restores stock and flips the sale status
//   - Snapshot-vs-ledger verification endpoint
//   - Price check endpoint without auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retailpos/internal/config"
	"retailpos/internal/infra"
	"retailpos/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server     *httptest.Server
	token      string // admin JWT
	businessID string
	locationID string
	categoryID string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("retailpos_test"),
		tcPostgres.WithUsername("retailpos"),
		tcPostgres.WithPassword("retailpos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
		PDFStoragePath:     t.TempDir(),
		ReportCacheTTLMin:  5,
		PriceCacheTTLSec:   60,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL) // runs migrations
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	r := router.New(cfg, db, rdb, smtpCB)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	// Tenant signup (public endpoint)
	signupResp := do(t, srv, "POST", "/v1/businesses", jsonBody(t, map[string]any{
		"name":           "E2E Mart",
		"location_name":  "Main Branch",
		"admin_username": "admin@e2e.test",
		"admin_name":     "Admin E2E",
		"admin_password": "e2e-password-1",
	}), "")
	require.Equal(t, http.StatusCreated, signupResp.StatusCode)
	var business struct {
		ID        string `json:"id"`
		Locations []struct {
			ID string `json:"id"`
		} `json:"locations"`
	}
	decodeJSON(t, signupResp, &business)
	require.NotEmpty(t, business.ID)
	require.Len(t, business.Locations, 1)

	// Login as the bootstrapped admin
	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin@e2e.test", "password": "e2e-password-1"}), "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	env := &testEnv{
		server:     srv,
		token:      loginBody.AccessToken,
		businessID: business.ID,
		locationID: business.Locations[0].ID,
	}

	// One category for the catalog
	catResp := do(t, srv, "POST", "/v1/categories",
		jsonBody(t, map[string]any{"name": "Beverages"}), env.token)
	require.Equal(t, http.StatusCreated, catResp.StatusCode)
	var cat struct {
		ID string `json:"id"`
	}
	decodeJSON(t, catResp, &cat)
	env.categoryID = cat.ID

	return env
}

func (env *testEnv) createProduct(t *testing.T, name, barcode, price string, stock int) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/products", jsonBody(t, map[string]any{
		"sku":          "SKU-" + barcode,
		"barcode":      barcode,
		"name":         name,
		"category_id":  env.categoryID,
		"retail_price": price,
		"opening_stock": []map[string]any{
			{"location_id": env.locationID, "quantity": stock, "min_stock": 2},
		},
	}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &prod)
	require.NotEmpty(t, prod.ID)
	return prod.ID
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_FullSaleCycle(t *testing.T) {
	env := setupTestEnv(t)
	productID := env.createProduct(t, "Cola 500ml", "7890001000001", "2.50", 20)

	saleResp := do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"location_id": env.locationID,
		"items": []map[string]any{
			{"product_id": productID, "quantity": 3},
		},
		"payments": []map[string]any{
			{"method": "cash", "amount": "10.00"},
		},
	}), env.token)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID     string `json:"id"`
		Number string `json:"number"`
		Total  string `json:"total"`
		Change string `json:"change"`
		Status string `json:"status"`
	}
	decodeJSON(t, saleResp, &sale)
	assert.Equal(t, "completed", sale.Status)
	assert.Equal(t, time.Now().Format("20060102")+"-0001", sale.Number)
	assert.Equal(t, "7.5", sale.Total)
	assert.Equal(t, "2.5", sale.Change)

	// Second sale gets the next number.
	saleResp2 := do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"location_id": env.locationID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 1}},
		"payments":    []map[string]any{{"method": "cash", "amount": "2.50"}},
	}), env.token)
	require.Equal(t, http.StatusCreated, saleResp2.StatusCode)
	var sale2 struct {
		Number string `json:"number"`
	}
	decodeJSON(t, saleResp2, &sale2)
	assert.Equal(t, time.Now().Format("20060102")+"-0002", sale2.Number)

	// Today's sales listing includes both.
	listResp := do(t, env.server, "GET",
		fmt.Sprintf("/v1/sales?date=%s", time.Now().Format("2006-01-02")), nil, env.token)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var list struct {
		Total int64 `json:"total"`
	}
	decodeJSON(t, listResp, &list)
	assert.Equal(t, int64(2), list.Total)

	// Snapshot agrees with the replayed ledger: 20 - 3 - 1 = 16.
	verifyResp := do(t, env.server, "GET",
		fmt.Sprintf("/v1/stock/verify/%s?location_id=%s", productID, env.locationID), nil, env.token)
	require.Equal(t, http.StatusOK, verifyResp.StatusCode)
	var check struct {
		Snapshot int  `json:"snapshot"`
		Replayed int  `json:"replayed"`
		Match    bool `json:"match"`
	}
	decodeJSON(t, verifyResp, &check)
	assert.Equal(t, 16, check.Snapshot)
	assert.True(t, check.Match)
}

func TestE2E_InsufficientStockRejected(t *testing.T) {
	env := setupTestEnv(t)
	productID := env.createProduct(t, "Limited Water", "7890001000002", "1.00", 2)

	resp := do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"location_id": env.locationID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 5}},
		"payments":    []map[string]any{{"method": "cash", "amount": "5.00"}},
	}), env.token)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Stock untouched by the failed checkout.
	verifyResp := do(t, env.server, "GET",
		fmt.Sprintf("/v1/stock/verify/%s?location_id=%s", productID, env.locationID), nil, env.token)
	require.Equal(t, http.StatusOK, verifyResp.StatusCode)
	var check struct {
		Snapshot int `json:"snapshot"`
	}
	decodeJSON(t, verifyResp, &check)
	assert.Equal(t, 2, check.Snapshot)
}

func TestE2E_RefundRestoresStock(t *testing.T) {
	env := setupTestEnv(t)
	productID := env.createProduct(t, "Juice 1L", "7890001000003", "4.00", 10)

	saleResp := do(t, env.server, "POST", "/v1/sales", jsonBody(t, map[string]any{
		"location_id": env.locationID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 2}},
		"payments":    []map[string]any{{"method": "card", "amount": "8.00"}},
	}), env.token)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID    string `json:"id"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decodeJSON(t, saleResp, &sale)
	require.Len(t, sale.Items, 1)

	refundResp := do(t, env.server, "POST", "/v1/sales/"+sale.ID+"/refund", jsonBody(t, map[string]any{
		"items":  []map[string]any{{"sale_item_id": sale.Items[0].ID, "quantity": 1}},
		"reason": "damaged bottle",
	}), env.token)
	require.Equal(t, http.StatusOK, refundResp.StatusCode)
	var refunded struct {
		Status        string `json:"status"`
		RefundedTotal string `json:"refunded_total"`
	}
	decodeJSON(t, refundResp, &refunded)
	assert.Equal(t, "partial_refund", refunded.Status)
	assert.Equal(t, "4", refunded.RefundedTotal)

	verifyResp := do(t, env.server, "GET",
		fmt.Sprintf("/v1/stock/verify/%s?location_id=%s", productID, env.locationID), nil, env.token)
	require.Equal(t, http.StatusOK, verifyResp.StatusCode)
	var check struct {
		Snapshot int  `json:"snapshot"`
		Match    bool `json:"match"`
	}
	decodeJSON(t, verifyResp, &check)
	assert.Equal(t, 9, check.Snapshot)
	assert.True(t, check.Match)
}

func TestE2E_PriceCheckWithoutAuth(t *testing.T) {
	env := setupTestEnv(t)
	env.createProduct(t, "Snack Bar", "7890001000004", "1.75", 5)

	resp := do(t, env.server, "GET",
		fmt.Sprintf("/v1/price/7890001000004?business_id=%s", env.businessID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var price struct {
		Name        string `json:"name"`
		RetailPrice string `json:"retail_price"`
	}
	decodeJSON(t, resp, &price)
	assert.Equal(t, "Snack Bar", price.Name)
	assert.Equal(t, "1.75", price.RetailPrice)

	// Unknown barcode → 404
	missing := do(t, env.server, "GET",
		fmt.Sprintf("/v1/price/0000000000000?business_id=%s", env.businessID), nil, "")
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	missing.Body.Close()
}

func TestE2E_SubscriptionLimitBlocksCreation(t *testing.T) {
	env := setupTestEnv(t)

	// The free plan allows a single location; the bootstrap one uses it up.
	resp := do(t, env.server, "POST", "/v1/business/locations",
		jsonBody(t, map[string]any{"name": "Second Branch"}), env.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
