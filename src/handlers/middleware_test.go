package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"clob-engine/src/engine"
	"clob-engine/src/handlers"
	"clob-engine/src/metrics"
	"clob-engine/src/models"
	"clob-engine/src/routes"
)

// TestServiceUnavailableMaintenanceMode exercises the service-availability
// middleware in front of the new engine-backed handler.
func TestServiceUnavailableMaintenanceMode(t *testing.T) {
	os.Setenv("MAINTENANCE_MODE", "1")
	defer os.Unsetenv("MAINTENANCE_MODE")

	app, _ := setupTestServer(t)

	reqBody := map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"price":    "100.00",
		"quantity": "1.0000",
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var errorResp models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errorResp))
	require.NotEmpty(t, errorResp.Error)
}

func TestServiceUnavailableHealthCheckStillWorks(t *testing.T) {
	os.Setenv("MAINTENANCE_MODE", "1")
	defer os.Unsetenv("MAINTENANCE_MODE")

	app, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func setupTestServerWithRateLimit(t *testing.T) *fiber.App {
	t.Helper()
	os.Setenv("RATE_LIMIT_DISABLED", "0")
	defer os.Unsetenv("RATE_LIMIT_DISABLED")

	eng := engine.NewEngine(engine.Config{
		Symbols:         []engine.SymbolConfig{{Symbol: "BTC-USDT", PriceScale: 2, QuantityScale: 4}},
		RecentTradesCap: 100,
		DefaultDepth:    20,
	})
	orderHandler := handlers.NewOrderHandler(eng, metrics.New())
	app := fiber.New()
	routes.SetupRoutes(app, orderHandler)
	return app
}

func TestRateLimitHeadersPresent(t *testing.T) {
	app := setupTestServerWithRateLimit(t)

	reqBody := map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"price":    "100.00",
		"quantity": "1.0000",
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Window"))
}

func TestRateLimitExceeded(t *testing.T) {
	app := setupTestServerWithRateLimit(t)

	reqBody := map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"price":    "100.00",
		"quantity": "1.0000",
	}
	body, _ := json.Marshal(reqBody)

	rateLimited := false
	for i := 0; i < 101; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:12345"
		resp, err := app.Test(req)
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
			break
		}
	}
	require.True(t, rateLimited, "expected at least one request to be rate limited within the default window")
}

func TestHealthEndpointNotRateLimited(t *testing.T) {
	app := setupTestServerWithRateLimit(t)

	for i := 0; i < 150; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
