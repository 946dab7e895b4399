package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"clob-engine/src/engine"
	"clob-engine/src/metrics"
	"clob-engine/src/models"
)

// OrderHandler is the HTTP collaborator. It translates decimal-string
// DTOs to and from engine.OrderSpec/Order/Trade; every book mutation
// itself happens inside the engine, never here.
type OrderHandler struct {
	Engine    *engine.MatchingEngine
	Metrics   *metrics.Metrics
	StartTime time.Time
}

func NewOrderHandler(matcher *engine.MatchingEngine, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{
		Engine:    matcher,
		Metrics:   m,
		StartTime: time.Now(),
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	spec, err := parseOrderSpec(req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("symbol", req.Symbol).
			Str("side", req.Side).
			Str("type", req.Type).
			Str("ip", c.IP()).
			Msg("Invalid order request")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	log.Info().
		Str("symbol", spec.Symbol).
		Str("side", string(spec.Side)).
		Str("type", string(spec.Type)).
		Str("price", spec.Price.String()).
		Str("quantity", spec.Quantity.String()).
		Str("ip", c.IP()).
		Msg("Order submitted")

	h.Metrics.OrdersReceived.Inc()
	startTime := time.Now()

	order, trades, err := h.Engine.Submit(spec)

	h.Metrics.ObserveSubmit(startTime)

	if err != nil {
		h.Metrics.OrdersRejected.Inc()
		log.Warn().
			Err(err).
			Str("symbol", req.Symbol).
			Msg("Order submission failed")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.Metrics.OrdersInBook.Set(float64(h.Engine.OrderCount()))

	tradeInfos := make([]models.TradeInfo, 0, len(trades))
	for _, trade := range trades {
		tradeInfos = append(tradeInfos, models.TradeInfo{
			TradeID:   trade.TradeID,
			Price:     trade.Price.String(),
			Quantity:  trade.Quantity.String(),
			Timestamp: trade.Timestamp,
		})
	}
	if len(trades) > 0 {
		h.Metrics.TradesExecuted.Add(float64(len(trades)))
	}

	status := order.GetStatus()
	response := models.SubmitOrderResponse{
		Success:           status != engine.StatusRejected,
		OrderID:           order.ID,
		Status:            string(status),
		FilledQuantity:    order.FilledQuantity().String(),
		RemainingQuantity: order.RemainingQuantity().String(),
		Trades:            tradeInfos,
	}

	log.Info().
		Str("order_id", order.ID).
		Str("status", string(status)).
		Str("filled_quantity", response.FilledQuantity).
		Str("remaining_quantity", response.RemainingQuantity).
		Int("trades_count", len(trades)).
		Msg("Order processed")

	switch status {
	case engine.StatusRejected:
		h.Metrics.OrdersRejected.Inc()
		response.Message = "Order rejected: could not be filled"
		return c.Status(fiber.StatusOK).JSON(response)
	case engine.StatusCancelled:
		response.Message = "Order not resting: no liquidity available"
		return c.Status(fiber.StatusOK).JSON(response)
	case engine.StatusNew:
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case engine.StatusPartiallyFilled:
		h.Metrics.OrdersMatched.Inc()
		return c.Status(fiber.StatusAccepted).JSON(response)
	default: // filled
		h.Metrics.OrdersMatched.Inc()
		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func parseOrderSpec(req models.SubmitOrderRequest) (engine.OrderSpec, error) {
	if req.Symbol == "" {
		return engine.OrderSpec{}, &engine.ValidationError{Reason: "symbol is required"}
	}

	var side engine.OrderSide
	switch req.Side {
	case string(engine.SideBuy):
		side = engine.SideBuy
	case string(engine.SideSell):
		side = engine.SideSell
	default:
		return engine.OrderSpec{}, &engine.ValidationError{Reason: "side must be BUY or SELL"}
	}

	var orderType engine.OrderType
	switch req.Type {
	case string(engine.TypeMarket), string(engine.TypeLimit), string(engine.TypeIOC), string(engine.TypeFOK):
		orderType = engine.OrderType(req.Type)
	default:
		return engine.OrderSpec{}, &engine.ValidationError{Reason: "type must be MARKET, LIMIT, IOC, or FOK"}
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return engine.OrderSpec{}, &engine.ValidationError{Reason: "quantity must be a decimal string"}
	}

	var price decimal.Decimal
	if orderType != engine.TypeMarket {
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			return engine.OrderSpec{}, &engine.ValidationError{Reason: "price must be a decimal string for LIMIT, IOC, and FOK orders"}
		}
	}

	return engine.OrderSpec{
		ClientOrderID: req.OrderID,
		Symbol:        req.Symbol,
		Side:          side,
		Type:          orderType,
		Price:         price,
		Quantity:      quantity,
	}, nil
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	if !h.Engine.CancelByID(orderID) {
		log.Warn().
			Str("order_id", orderID).
			Str("ip", c.IP()).
			Msg("Cancel order: order not found or not resting")
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	h.Metrics.OrdersCancelled.Inc()
	h.Metrics.OrdersInBook.Set(float64(h.Engine.OrderCount()))

	log.Info().
		Str("order_id", orderID).
		Str("ip", c.IP()).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		Success: true,
		OrderID: orderID,
	})
}

func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")

	order, ok := h.Engine.GetOrder(orderID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	response := models.OrderStatusResponse{
		OrderID:           order.ID,
		Symbol:            order.Symbol,
		Side:              string(order.Side),
		Type:              string(order.Type),
		Quantity:          order.Quantity.String(),
		FilledQuantity:    order.FilledQuantity().String(),
		RemainingQuantity: order.RemainingQuantity().String(),
		Status:            string(order.GetStatus()),
		Timestamp:         order.Timestamp,
	}
	if order.Type != engine.TypeMarket {
		response.Price = order.Price.String()
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	depth := 0
	if depthStr := c.Query("depth"); depthStr != "" {
		if parsed, err := strconv.Atoi(depthStr); err == nil && parsed > 0 {
			depth = parsed
		}
	}

	snapshot, ok := h.Engine.OrderBookSnapshot(symbol, depth)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Unknown symbol",
		})
	}

	bids := make([]models.PriceLevelInfo, 0, len(snapshot.Bids))
	for _, level := range snapshot.Bids {
		bids = append(bids, models.PriceLevelInfo{
			Price:    level.Price.String(),
			Quantity: level.Quantity.String(),
		})
	}

	asks := make([]models.PriceLevelInfo, 0, len(snapshot.Asks))
	for _, level := range snapshot.Asks {
		asks = append(asks, models.PriceLevelInfo{
			Price:    level.Price.String(),
			Quantity: level.Quantity.String(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Symbol:    symbol,
		Timestamp: snapshot.Timestamp,
		Bids:      bids,
		Asks:      asks,
	})
}

func (h *OrderHandler) GetBBO(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	bid, hasBid, ask, hasAsk, ok := h.Engine.BBO(symbol)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Unknown symbol",
		})
	}

	sc, _ := h.Engine.SymbolScale(symbol)
	response := models.BBOResponse{Symbol: symbol}
	if hasBid {
		response.Bid = bid.StringFixed(sc.PriceScale)
	}
	if hasAsk {
		response.Ask = ask.StringFixed(sc.PriceScale)
	}
	if hasBid && hasAsk {
		response.Spread = ask.Sub(bid).StringFixed(sc.PriceScale)
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *OrderHandler) GetTrades(c *fiber.Ctx) error {
	symbol := c.Query("symbol")

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 1000 {
		limit = 1000
	}

	trades := h.Engine.RecentTrades(symbol, limit)
	infos := make([]models.TradeInfo, 0, len(trades))
	for _, trade := range trades {
		infos = append(infos, models.TradeInfo{
			TradeID:   trade.TradeID,
			Price:     trade.Price.String(),
			Quantity:  trade.Quantity.String(),
			Timestamp: trade.Timestamp,
		})
	}
	return c.Status(fiber.StatusOK).JSON(models.TradesResponse{Trades: infos})
}

func (h *OrderHandler) GetSymbols(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(models.SymbolsResponse{
		Symbols: h.Engine.Symbols(),
	})
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	uptime := time.Since(h.StartTime).Seconds()

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:          "healthy",
		UptimeSeconds:   int64(uptime),
		OrdersProcessed: int64(h.Engine.OrderCount()),
	})
}
