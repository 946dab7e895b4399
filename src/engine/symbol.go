package engine

// SymbolConfig is a registration record: a trading pair plus the fixed
// decimal scale its price and quantity are declared at. All arithmetic
// on a symbol's orders is exact to these scales; submissions that don't
// round-trip through them are rejected as scale violations.
type SymbolConfig struct {
	Symbol        string
	PriceScale    int32
	QuantityScale int32
}
