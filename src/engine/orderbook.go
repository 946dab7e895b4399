package engine

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// bidItem sorts descending: Less reports the higher price as "less" so
// that btree.Ascend() visits the best bid (highest price) first.
type bidItem struct{ level *PriceLevel }

func (a *bidItem) Less(than btree.Item) bool {
	return a.level.Price.GreaterThan(than.(*bidItem).level.Price)
}

// askItem sorts ascending: Less is the natural order, so Ascend() visits
// the best ask (lowest price) first.
type askItem struct{ level *PriceLevel }

func (a *askItem) Less(than btree.Item) bool {
	return a.level.Price.LessThan(than.(*askItem).level.Price)
}

// location is the by_id index entry: a non-owning handle into whichever
// level currently holds the order. It is never a reference cycle with
// Order - the level owns the queue node, this struct just remembers
// where it is.
type location struct {
	side  OrderSide
	price decimal.Decimal
	elem  *list.Element
	level *PriceLevel
}

// LevelView is one aggregated (price, quantity) row of a snapshot.
type LevelView struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// BookSnapshot is the top N aggregated levels per side, published after
// every mutation.
type BookSnapshot struct {
	Symbol    string
	Timestamp int64
	Bids      []LevelView
	Asks      []LevelView
}

// OrderBook holds both sides of one symbol and is the sole matching
// target for that symbol. All mutation is serialized under mu; readers
// take a short-lived hold of mu to copy out an aggregated view rather
// than exposing internal structures.
type OrderBook struct {
	Symbol        string
	PriceScale    int32
	QuantityScale int32

	mu   sync.Mutex
	bids *btree.BTree
	asks *btree.BTree
	byID map[string]*location

	defaultDepth int
	settle       func(trades []*Trade, snapshot BookSnapshot)
	timestampFn  func() int64
}

// NewOrderBook constructs an empty book. settle is invoked once per
// Submit/Cancel call, while mu is still held, so that per-symbol event
// ordering falls directly out of mutex serialization (spec: "holding the
// guard across fan-out if sinks are non-blocking").
func NewOrderBook(symbol string, priceScale, quantityScale int32, defaultDepth int, timestampFn func() int64, settle func([]*Trade, BookSnapshot)) *OrderBook {
	return &OrderBook{
		Symbol:        symbol,
		PriceScale:    priceScale,
		QuantityScale: quantityScale,
		bids:          btree.New(32),
		asks:          btree.New(32),
		byID:          make(map[string]*location),
		defaultDepth:  defaultDepth,
		settle:        settle,
		timestampFn:   timestampFn,
	}
}

func crosses(side OrderSide, limit, makerPrice decimal.Decimal) bool {
	if side == SideBuy {
		return makerPrice.LessThanOrEqual(limit)
	}
	return makerPrice.GreaterThanOrEqual(limit)
}

func (b *OrderBook) treeFor(side OrderSide) *btree.BTree {
	if side == SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) levelOf(item btree.Item) *PriceLevel {
	switch v := item.(type) {
	case *bidItem:
		return v.level
	case *askItem:
		return v.level
	}
	return nil
}

func (b *OrderBook) findLevel(side OrderSide, price decimal.Decimal) *PriceLevel {
	tree := b.treeFor(side)
	var probe btree.Item
	if side == SideBuy {
		probe = &bidItem{level: &PriceLevel{Price: price}}
	} else {
		probe = &askItem{level: &PriceLevel{Price: price}}
	}
	item := tree.Get(probe)
	if item == nil {
		return nil
	}
	return b.levelOf(item)
}

func (b *OrderBook) getOrCreateLevel(side OrderSide, price decimal.Decimal) *PriceLevel {
	if level := b.findLevel(side, price); level != nil {
		return level
	}
	level := newPriceLevel(price)
	tree := b.treeFor(side)
	if side == SideBuy {
		tree.ReplaceOrInsert(&bidItem{level: level})
	} else {
		tree.ReplaceOrInsert(&askItem{level: level})
	}
	return level
}

func (b *OrderBook) deleteLevelIfEmpty(side OrderSide, level *PriceLevel) {
	if !level.IsEmpty() {
		return
	}
	tree := b.treeFor(side)
	if side == SideBuy {
		tree.Delete(&bidItem{level: level})
	} else {
		tree.Delete(&askItem{level: level})
	}
}

// bestOpposite returns the best resting level on the side opposite to
// side, i.e. the side a taker of that side would match against.
func (b *OrderBook) bestOpposite(side OrderSide) (*PriceLevel, bool) {
	tree := b.treeFor(side.Opposite())
	item := tree.Min()
	if item == nil {
		return nil, false
	}
	return b.levelOf(item), true
}

// tradableQuantity walks the opposite side in priority order and sums
// quantity while price still crosses order's limit, short-circuiting
// once required is reached. Used only by the FOK pre-check.
func (b *OrderBook) tradableQuantity(order *Order, required decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	tree := b.treeFor(order.Side.Opposite())
	tree.Ascend(func(item btree.Item) bool {
		level := b.levelOf(item)
		if !crosses(order.Side, order.Price, level.Price) {
			return false
		}
		total = total.Add(level.TotalQuantity())
		return total.LessThan(required)
	})
	return total
}

// rest inserts order at the back of its limit price level, creating the
// level if needed, and records the by_id handle.
func (b *OrderBook) rest(order *Order) {
	level := b.getOrCreateLevel(order.Side, order.Price)
	elem := level.Append(order)
	b.byID[order.ID] = &location{side: order.Side, price: order.Price, elem: elem, level: level}
}

// removeMakerFront pops the front (fully filled) maker of level and
// drops its by_id entry. The caller has already drained its remaining
// quantity to zero via DecrementTotal.
func (b *OrderBook) removeMakerFront(side OrderSide, level *PriceLevel) {
	maker := level.PeekFront()
	if maker == nil {
		return
	}
	level.RemoveFront()
	delete(b.byID, maker.ID)
	b.deleteLevelIfEmpty(side.Opposite(), level)
}

// matchLoop is the single decision table shared by all four order
// types: market has no price filter, the other three stop once the best
// opposite level no longer crosses the limit.
func (b *OrderBook) matchLoop(order *Order) []*Trade {
	var trades []*Trade

	for order.RemainingQuantity().IsPositive() {
		level, ok := b.bestOpposite(order.Side)
		if !ok {
			break
		}
		if order.Type != TypeMarket && !crosses(order.Side, order.Price, level.Price) {
			break
		}

		for order.RemainingQuantity().IsPositive() {
			maker := level.PeekFront()
			if maker == nil {
				break
			}

			makerRemaining := maker.RemainingQuantity()
			takerRemaining := order.RemainingQuantity()
			qty := decimal.Min(takerRemaining, makerRemaining)

			trade := &Trade{
				TradeID:       uuid.New().String(),
				Symbol:        b.Symbol,
				Price:         level.Price,
				Quantity:      qty,
				AggressorSide: order.Side,
				Timestamp:     b.timestampFn(),
			}
			trade.TakerOrderID = order.ID
			trade.MakerOrderID = maker.ID

			order.Fill(qty)
			maker.Fill(qty)
			level.DecrementTotal(qty)
			trades = append(trades, trade)

			if maker.RemainingQuantity().IsZero() {
				maker.SetStatus(StatusFilled)
				b.removeMakerFront(order.Side, level)
			} else {
				maker.SetStatus(StatusPartiallyFilled)
			}

			if level.IsEmpty() {
				break
			}
		}
	}

	return trades
}

// Submit is the OrderBook's single atomic mutation entry point: match
// against resting liquidity, rest any residual per the type's policy,
// and hand the result to settle before releasing the guard.
func (b *OrderBook) Submit(order *Order) (OrderStatus, []*Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.byID[order.ID]; exists {
		return "", nil, &ValidationError{Reason: "duplicate order id"}
	}

	if order.Type == TypeFOK {
		if b.tradableQuantity(order, order.Quantity).LessThan(order.Quantity) {
			order.SetStatus(StatusRejected)
			b.publish(nil)
			return StatusRejected, nil, nil
		}
	}

	trades := b.matchLoop(order)

	var status OrderStatus
	switch order.Type {
	case TypeLimit:
		if order.RemainingQuantity().IsPositive() {
			b.rest(order)
			if len(trades) > 0 {
				status = StatusPartiallyFilled
			} else {
				status = StatusNew
			}
		} else {
			status = StatusFilled
		}
	case TypeMarket, TypeIOC:
		switch {
		case order.RemainingQuantity().IsZero():
			status = StatusFilled
		case len(trades) == 0:
			status = StatusCancelled
		default:
			status = StatusPartiallyFilled
		}
	case TypeFOK:
		// tradableQuantity already guaranteed a full fill.
		status = StatusFilled
	}
	order.SetStatus(status)

	b.assertNotCrossed()
	b.publish(trades)

	return status, trades, nil
}

func (b *OrderBook) publish(trades []*Trade) {
	if b.settle == nil {
		return
	}
	b.settle(trades, b.snapshotLocked(b.defaultDepth))
}

// assertNotCrossed panics with an InvariantViolation if the book is
// crossed - this must be unreachable by construction and indicates a bug
// in the matching loop, not a runtime condition.
func (b *OrderBook) assertNotCrossed() {
	bid, hasBid := b.bestBidLocked()
	ask, hasAsk := b.bestAskLocked()
	if hasBid && hasAsk && bid.GreaterThanOrEqual(ask) {
		panic(&InvariantViolation{Reason: "crossed book", Detail: b.Symbol})
	}
}

// Cancel removes a resting order by id. Returns false if it is not
// currently resting (unknown id, or already terminal).
func (b *OrderBook) Cancel(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.byID[orderID]
	if !ok {
		return false
	}

	loc.level.Remove(loc.elem)
	delete(b.byID, orderID)
	b.deleteLevelIfEmpty(loc.side, loc.level)

	b.publish(nil)
	return true
}

func (b *OrderBook) bestBidLocked() (decimal.Decimal, bool) {
	item := b.bids.Min()
	if item == nil {
		return decimal.Zero, false
	}
	return item.(*bidItem).level.Price, true
}

func (b *OrderBook) bestAskLocked() (decimal.Decimal, bool) {
	item := b.asks.Min()
	if item == nil {
		return decimal.Zero, false
	}
	return item.(*askItem).level.Price, true
}

func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestBidLocked()
}

func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestAskLocked()
}

func (b *OrderBook) snapshotLocked(depth int) BookSnapshot {
	snap := BookSnapshot{Symbol: b.Symbol, Timestamp: time.Now().UnixMilli()}

	count := 0
	b.bids.Ascend(func(item btree.Item) bool {
		if count >= depth {
			return false
		}
		level := item.(*bidItem).level
		snap.Bids = append(snap.Bids, LevelView{Price: level.Price, Quantity: level.TotalQuantity()})
		count++
		return true
	})

	count = 0
	b.asks.Ascend(func(item btree.Item) bool {
		if count >= depth {
			return false
		}
		level := item.(*askItem).level
		snap.Asks = append(snap.Asks, LevelView{Price: level.Price, Quantity: level.TotalQuantity()})
		count++
		return true
	})

	return snap
}

// Snapshot returns the top depth aggregated levels per side.
func (b *OrderBook) Snapshot(depth int) BookSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(depth)
}

// OrderCount reports how many orders currently rest in this book, used
// by the health/metrics collaborators.
func (b *OrderBook) OrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byID)
}

// GetOrder returns a currently resting order by id. Like the teacher's
// original Orders map, an order is only queryable while it rests -
// once filled or cancelled it is gone.
func (b *OrderBook) GetOrder(orderID string) (*Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	loc, ok := b.byID[orderID]
	if !ok {
		return nil, false
	}
	return loc.elem.Value.(*Order), true
}
