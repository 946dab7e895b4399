package models

// Price and quantity fields are transmitted as decimal strings, never
// JSON numbers, to preserve exactness end to end (spec.md §6).

type SubmitOrderRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Price    string `json:"price"`    // required for LIMIT/IOC/FOK, ignored for MARKET
	Quantity string `json:"quantity"`
	OrderID  string `json:"order_id,omitempty"` // optional client idempotency key
}

type SubmitOrderResponse struct {
	Success           bool        `json:"success"`
	OrderID           string      `json:"order_id"`
	Status            string      `json:"status"`
	Message           string      `json:"message,omitempty"`
	FilledQuantity    string      `json:"filled_quantity,omitempty"`
	RemainingQuantity string      `json:"remaining_quantity,omitempty"`
	Trades            []TradeInfo `json:"trades,omitempty"`
}

type TradeInfo struct {
	TradeID   string `json:"trade_id"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

type CancelOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OrderBookResponse struct {
	Symbol    string           `json:"symbol"`
	Timestamp int64            `json:"timestamp"`
	Bids      []PriceLevelInfo `json:"bids"`
	Asks      []PriceLevelInfo `json:"asks"`
}

type PriceLevelInfo struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type BBOResponse struct {
	Symbol string `json:"symbol"`
	Bid    string `json:"bid,omitempty"`
	Ask    string `json:"ask,omitempty"`
	Spread string `json:"spread,omitempty"`
}

type OrderStatusResponse struct {
	OrderID           string `json:"order_id"`
	Symbol            string `json:"symbol"`
	Side              string `json:"side"`
	Type              string `json:"type"`
	Price             string `json:"price,omitempty"`
	Quantity          string `json:"quantity"`
	FilledQuantity    string `json:"filled_quantity"`
	RemainingQuantity string `json:"remaining_quantity"`
	Status            string `json:"status"`
	Timestamp         int64  `json:"timestamp"`
}

type TradesResponse struct {
	Trades []TradeInfo `json:"trades"`
}

type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	OrdersProcessed int64  `json:"orders_processed"`
}
