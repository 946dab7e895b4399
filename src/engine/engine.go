package engine

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config configures a MatchingEngine at construction. Symbols must be
// registered up front - spec.md ties book lifetime to the engine's own
// lifetime once a symbol exists, so there is no dynamic RegisterSymbol
// surfaced on the running engine, only at construction.
type Config struct {
	Symbols         []SymbolConfig
	RecentTradesCap int
	DefaultDepth    int
}

// OrderSpec is the client-facing intent handed to Submit, before the
// engine has assigned it an id and timestamp.
type OrderSpec struct {
	ClientOrderID string // optional idempotency key; empty means "generate one"
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Price         decimal.Decimal // ignored for MARKET
	Quantity      decimal.Decimal
}

// MatchingEngine is the only entry point for order submission and
// cancellation. It routes by symbol, assigns timestamps and ids,
// maintains the recent-trades tail, and publishes events - the four
// order-book pieces (matching, resting, snapshotting, cancellation)
// live entirely in OrderBook.
type MatchingEngine struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
	scale map[string]SymbolConfig

	sequence atomic.Int64

	recentTrades *recentTradesTail
	subscribers  *subscriberRegistry

	defaultDepth int

	idMu    sync.Mutex
	seenIDs map[string]string // order id -> symbol, engine-wide for dedup and id->symbol lookup
}

// NewEngine constructs a MatchingEngine with a book pre-created for
// every configured symbol.
func NewEngine(cfg Config) *MatchingEngine {
	depth := cfg.DefaultDepth
	if depth <= 0 {
		depth = 20
	}

	e := &MatchingEngine{
		books:        make(map[string]*OrderBook),
		scale:        make(map[string]SymbolConfig),
		recentTrades: newRecentTradesTail(cfg.RecentTradesCap),
		subscribers:  newSubscriberRegistry(),
		defaultDepth: depth,
		seenIDs:      make(map[string]string),
	}

	for _, sc := range cfg.Symbols {
		e.scale[sc.Symbol] = sc
		e.books[sc.Symbol] = NewOrderBook(sc.Symbol, sc.PriceScale, sc.QuantityScale, depth, e.nextTimestamp, e.settle)
	}

	return e
}

func (e *MatchingEngine) nextTimestamp() int64 {
	return e.sequence.Add(1)
}

// settle is the callback every OrderBook invokes, while its own mutex is
// still held, once a mutation is complete.
func (e *MatchingEngine) settle(trades []*Trade, snapshot BookSnapshot) {
	e.recentTrades.append(trades)
	e.subscribers.publish(trades, snapshot)
}

func (e *MatchingEngine) bookFor(symbol string) (*OrderBook, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	book, ok := e.books[symbol]
	return book, ok
}

func validateSpec(spec OrderSpec, scale SymbolConfig) error {
	if spec.Side != SideBuy && spec.Side != SideSell {
		return &ValidationError{Reason: "side must be BUY or SELL"}
	}
	switch spec.Type {
	case TypeMarket, TypeLimit, TypeIOC, TypeFOK:
	default:
		return &ValidationError{Reason: "type must be MARKET, LIMIT, IOC, or FOK"}
	}
	if spec.Quantity.Sign() <= 0 {
		return &ValidationError{Reason: "quantity must be positive"}
	}
	if !matchesScale(spec.Quantity, scale.QuantityScale) {
		return &ValidationError{Reason: "quantity violates the symbol's declared scale"}
	}
	if spec.Type == TypeMarket {
		return nil
	}
	if spec.Price.Sign() <= 0 {
		return &ValidationError{Reason: "price is required and must be positive for LIMIT, IOC, and FOK orders"}
	}
	if !matchesScale(spec.Price, scale.PriceScale) {
		return &ValidationError{Reason: "price violates the symbol's declared scale"}
	}
	return nil
}

func matchesScale(d decimal.Decimal, scale int32) bool {
	return d.Round(scale).Equal(d)
}

// Submit validates spec, assigns an id and timestamp, dispatches to the
// symbol's book, appends any resulting trades to the tail, and publishes
// events to subscribers.
func (e *MatchingEngine) Submit(spec OrderSpec) (*Order, []*Trade, error) {
	e.mu.RLock()
	scale, known := e.scale[spec.Symbol]
	book := e.books[spec.Symbol]
	e.mu.RUnlock()

	if !known {
		return nil, nil, &ValidationError{Reason: "unknown symbol " + spec.Symbol}
	}
	if err := validateSpec(spec, scale); err != nil {
		return nil, nil, err
	}

	id, err := e.reserveID(spec.ClientOrderID, spec.Symbol)
	if err != nil {
		return nil, nil, err
	}

	order := NewOrder(id, spec.Symbol, spec.Side, spec.Type, spec.Price, spec.Quantity, e.nextTimestamp())

	_, trades, err := book.Submit(order)
	if err != nil {
		e.releaseID(id)
		return nil, nil, err
	}

	return order, trades, nil
}

func (e *MatchingEngine) reserveID(clientID, symbol string) (string, error) {
	e.idMu.Lock()
	defer e.idMu.Unlock()

	if clientID != "" {
		if _, exists := e.seenIDs[clientID]; exists {
			return "", &ValidationError{Reason: "duplicate order id"}
		}
		e.seenIDs[clientID] = symbol
		return clientID, nil
	}

	id := uuid.New().String()
	e.seenIDs[id] = symbol
	return id, nil
}

func (e *MatchingEngine) releaseID(id string) {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	delete(e.seenIDs, id)
}

// symbolOf resolves the symbol an order id belongs to, for HTTP
// endpoints that only carry an order id (no symbol) - the teacher's
// original `/orders/:id` surface.
func (e *MatchingEngine) symbolOf(orderID string) (string, bool) {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	symbol, ok := e.seenIDs[orderID]
	return symbol, ok
}

// GetOrder resolves an order's symbol via the engine-wide id index and
// returns it if still resting.
func (e *MatchingEngine) GetOrder(orderID string) (*Order, bool) {
	symbol, ok := e.symbolOf(orderID)
	if !ok {
		return nil, false
	}
	book, ok := e.bookFor(symbol)
	if !ok {
		return nil, false
	}
	return book.GetOrder(orderID)
}

// Cancel removes a resting order by id from the named symbol's book.
func (e *MatchingEngine) Cancel(symbol, orderID string) bool {
	book, ok := e.bookFor(symbol)
	if !ok {
		return false
	}
	return book.Cancel(orderID)
}

// CancelByID resolves the symbol from the engine-wide id index first,
// for callers (the HTTP collaborator) that only have an order id.
func (e *MatchingEngine) CancelByID(orderID string) bool {
	symbol, ok := e.symbolOf(orderID)
	if !ok {
		return false
	}
	return e.Cancel(symbol, orderID)
}

// OrderBookSnapshot returns the top depth aggregated levels for symbol.
func (e *MatchingEngine) OrderBookSnapshot(symbol string, depth int) (BookSnapshot, bool) {
	book, ok := e.bookFor(symbol)
	if !ok {
		return BookSnapshot{}, false
	}
	if depth <= 0 {
		depth = e.defaultDepth
	}
	return book.Snapshot(depth), true
}

// BBO returns the best bid and best ask for symbol.
func (e *MatchingEngine) BBO(symbol string) (bid decimal.Decimal, hasBid bool, ask decimal.Decimal, hasAsk bool, ok bool) {
	book, found := e.bookFor(symbol)
	if !found {
		return decimal.Zero, false, decimal.Zero, false, false
	}
	bid, hasBid = book.BestBid()
	ask, hasAsk = book.BestAsk()
	return bid, hasBid, ask, hasAsk, true
}

// RecentTrades filters the bounded tail, most recent last.
func (e *MatchingEngine) RecentTrades(symbol string, limit int) []*Trade {
	if limit <= 0 {
		limit = 100
	}
	return e.recentTrades.query(symbol, limit)
}

// Symbols returns the registered trading pairs in sorted order.
func (e *MatchingEngine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	symbols := make([]string, 0, len(e.books))
	for symbol := range e.books {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// SymbolScale exposes a registered symbol's declared scales, used by
// the HTTP collaborator to render decimal strings at the right
// precision.
func (e *MatchingEngine) SymbolScale(symbol string) (SymbolConfig, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sc, ok := e.scale[symbol]
	return sc, ok
}

// OrderCount sums resting orders across every book, for health checks.
func (e *MatchingEngine) OrderCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := 0
	for _, book := range e.books {
		total += book.OrderCount()
	}
	return total
}

// EngineSnapshot is a consistent, copy-on-read view of the whole engine:
// every book's top-of-book levels, the recent trades tail, and the
// registered symbols. It exists for an external persistence
// collaborator to serialize; the engine itself never performs I/O.
type EngineSnapshot struct {
	Symbols      []string
	Books        map[string]BookSnapshot
	RecentTrades []*Trade
}

// Snapshot copies out a point-in-time view of every book. Each book is
// locked only long enough to copy its own aggregated levels, so the
// result is consistent per-symbol but not across symbols - matching
// the engine's no-cross-symbol-ordering guarantee.
func (e *MatchingEngine) Snapshot() EngineSnapshot {
	e.mu.RLock()
	books := make(map[string]*OrderBook, len(e.books))
	for symbol, book := range e.books {
		books[symbol] = book
	}
	e.mu.RUnlock()

	out := EngineSnapshot{
		Symbols: e.Symbols(),
		Books:   make(map[string]BookSnapshot, len(books)),
	}
	for symbol, book := range books {
		out.Books[symbol] = book.Snapshot(e.defaultDepth)
	}
	out.RecentTrades = e.recentTrades.query("", e.recentTrades.cap)
	return out
}

// Subscribe registers sink to receive Trade and BookSnapshot events.
func (e *MatchingEngine) Subscribe(sink EventSink) Subscription {
	return e.subscribers.subscribe(sink)
}

// Unsubscribe detaches a previously registered sink.
func (e *MatchingEngine) Unsubscribe(sub Subscription) {
	e.subscribers.unsubscribe(sub)
}
