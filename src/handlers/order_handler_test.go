package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"clob-engine/src/engine"
	"clob-engine/src/handlers"
	"clob-engine/src/metrics"
	"clob-engine/src/models"
	"clob-engine/src/routes"
)

func setupTestServer(t *testing.T) (*fiber.App, *engine.MatchingEngine) {
	t.Helper()
	eng := engine.NewEngine(engine.Config{
		Symbols: []engine.SymbolConfig{
			{Symbol: "BTC-USDT", PriceScale: 2, QuantityScale: 4},
		},
		RecentTradesCap: 100,
		DefaultDepth:    20,
	})
	orderHandler := handlers.NewOrderHandler(eng, metrics.New())
	app := fiber.New()
	routes.SetupRoutes(app, orderHandler)
	return app, eng
}

func submitJSON(t *testing.T, app *fiber.App, body map[string]interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSubmitOrder_RestingLimit(t *testing.T) {
	app, _ := setupTestServer(t)

	resp := submitJSON(t, app, map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"price":    "50000.00",
		"quantity": "1.0000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out models.SubmitOrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)
	require.Equal(t, "new", out.Status)
	require.NotEmpty(t, out.OrderID)
}

func TestSubmitOrder_InvalidSideRejected(t *testing.T) {
	app, _ := setupTestServer(t)

	resp := submitJSON(t, app, map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "UP",
		"type":     "LIMIT",
		"price":    "50000.00",
		"quantity": "1.0000",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitOrder_UnknownSymbol(t *testing.T) {
	app, _ := setupTestServer(t)

	resp := submitJSON(t, app, map[string]interface{}{
		"symbol":   "DOGE-USDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"price":    "1.00",
		"quantity": "1.0000",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitOrder_FOKRejectionIsBusinessRejectionNot400(t *testing.T) {
	app, _ := setupTestServer(t)

	resp := submitJSON(t, app, map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "BUY",
		"type":     "FOK",
		"price":    "50000.00",
		"quantity": "1.0000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.SubmitOrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.False(t, out.Success)
	require.Equal(t, "rejected", out.Status)
}

func TestCancelOrder(t *testing.T) {
	app, _ := setupTestServer(t)

	resp := submitJSON(t, app, map[string]interface{}{
		"symbol":   "BTC-USDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"price":    "50000.00",
		"quantity": "1.0000",
	})
	var out models.SubmitOrderResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/orders/"+out.OrderID, nil)
	cancelResp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)

	req2 := httptest.NewRequest(http.MethodDelete, "/api/v1/orders/"+out.OrderID, nil)
	secondResp, err := app.Test(req2)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, secondResp.StatusCode)
}

func TestGetOrderBookAndBBO(t *testing.T) {
	app, _ := setupTestServer(t)

	submitJSON(t, app, map[string]interface{}{"symbol": "BTC-USDT", "side": "BUY", "type": "LIMIT", "price": "100.00", "quantity": "1.0000"})
	submitJSON(t, app, map[string]interface{}{"symbol": "BTC-USDT", "side": "SELL", "type": "LIMIT", "price": "101.00", "quantity": "1.0000"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orderbook/BTC-USDT", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var book models.OrderBookResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&book))
	require.Len(t, book.Bids, 1)
	require.Len(t, book.Asks, 1)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/bbo/BTC-USDT", nil)
	resp2, err := app.Test(req2)
	require.NoError(t, err)
	var bbo models.BBOResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&bbo))
	require.Equal(t, "100.00", bbo.Bid)
	require.Equal(t, "101.00", bbo.Ask)
	require.Equal(t, "1.00", bbo.Spread)
}

func TestGetOrderBook_UnknownSymbol(t *testing.T) {
	app, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orderbook/DOGE-USDT", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetTradesAndSymbols(t *testing.T) {
	app, _ := setupTestServer(t)

	submitJSON(t, app, map[string]interface{}{"symbol": "BTC-USDT", "side": "BUY", "type": "LIMIT", "price": "100.00", "quantity": "1.0000"})
	submitJSON(t, app, map[string]interface{}{"symbol": "BTC-USDT", "side": "SELL", "type": "MARKET", "quantity": "1.0000"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades?symbol=BTC-USDT", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	var trades models.TradesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trades))
	require.Len(t, trades.Trades, 1)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/symbols", nil)
	resp2, err := app.Test(req2)
	require.NoError(t, err)
	var symbols models.SymbolsResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&symbols))
	require.Equal(t, []string{"BTC-USDT"}, symbols.Symbols)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health models.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "healthy", health.Status)
}

func TestGetOrderStatus_NotFound(t *testing.T) {
	app, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/nonexistent", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
