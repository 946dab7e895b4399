package engine

import (
	"sync"

	"github.com/shopspring/decimal"
)

// OrderSide is one of buy or sell.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType is one of the four supported order types. Their differing
// pre-check, resting policy, and price filter are decided in
// orderbook.go (OrderBook.Submit and matchLoop) rather than by per-type
// methods.
type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
	TypeIOC    OrderType = "IOC"
	TypeFOK    OrderType = "FOK"
)

// OrderStatus tracks an order through its lifecycle. Terminal states are
// Filled, Cancelled, and Rejected.
type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// Order is a client intent, immutable except for the residual quantity
// and status the engine manages while it lives.
type Order struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Price     decimal.Decimal // zero value for MARKET
	Quantity  decimal.Decimal
	Timestamp int64 // monotonic engine sequence, stamped on acceptance

	mu      sync.Mutex
	filled  decimal.Decimal
	status  OrderStatus
}

// NewOrder constructs an order in status "new" with zero fill.
func NewOrder(id, symbol string, side OrderSide, orderType OrderType, price, quantity decimal.Decimal, timestamp int64) *Order {
	return &Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Type:      orderType,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
		filled:    decimal.Zero,
		status:    StatusNew,
	}
}

// RemainingQuantity is Quantity - filled. Never negative.
func (o *Order) RemainingQuantity() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Quantity.Sub(o.filled)
}

func (o *Order) FilledQuantity() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filled
}

// Fill records an execution of qty against this order. It does not
// change status - callers decide the resulting status once the whole
// matching step (which may span several fills) is finished.
func (o *Order) Fill(qty decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filled = o.filled.Add(qty)
	if o.filled.GreaterThan(o.Quantity) {
		panic(&InvariantViolation{
			Reason: "order filled beyond its quantity",
			Detail: o.ID,
		})
	}
}

func (o *Order) GetStatus() OrderStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Order) SetStatus(status OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

// IsFilled reports whether the order has zero residual quantity.
func (o *Order) IsFilled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filled.Equal(o.Quantity)
}
