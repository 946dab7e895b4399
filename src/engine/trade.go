package engine

import "github.com/shopspring/decimal"

// Trade is an immutable record of one execution between a resting maker
// order and an incoming taker order, at the maker's price.
type Trade struct {
	TradeID       string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	MakerOrderID  string
	TakerOrderID  string
	AggressorSide OrderSide
	Timestamp     int64
}
