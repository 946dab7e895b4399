package engine

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// PriceLevel is a FIFO queue of resting orders sharing one price on one
// side of a book. Removal by handle is O(1) because the queue is a
// doubly linked list; OrderBook's byID index hands back the *list.Element
// it stored at insertion time instead of walking the queue to find it.
type PriceLevel struct {
	Price  decimal.Decimal
	orders *list.List
	total  decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
		total:  decimal.Zero,
	}
}

// Append adds order to the back of the queue and returns a handle usable
// with Remove. It adds the order's current remaining quantity to the
// cached running total.
func (l *PriceLevel) Append(o *Order) *list.Element {
	e := l.orders.PushBack(o)
	l.total = l.total.Add(o.RemainingQuantity())
	return e
}

// PeekFront returns the maker candidate, or nil if the level is empty.
func (l *PriceLevel) PeekFront() *Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

// RemoveFront drops the front order from the queue. Callers are
// responsible for decrementing total (via DecrementTotal) for any
// quantity that order still carried - RemoveFront itself only performs
// the structural removal, since the matching loop drains total
// incrementally as fills happen.
func (l *PriceLevel) RemoveFront() {
	if front := l.orders.Front(); front != nil {
		l.orders.Remove(front)
	}
}

// Remove drops an arbitrary order referenced by handle, decrementing
// total by whatever quantity it still carried (used by cancellation;
// any earlier partial fills were already taken out of total by
// DecrementTotal, so only the remaining quantity is subtracted here).
func (l *PriceLevel) Remove(e *list.Element) {
	o := e.Value.(*Order)
	l.total = l.total.Sub(o.RemainingQuantity())
	l.orders.Remove(e)
}

// DecrementTotal is called by the matching loop each time a maker order
// at this level is filled for qty.
func (l *PriceLevel) DecrementTotal(qty decimal.Decimal) {
	l.total = l.total.Sub(qty)
}

func (l *PriceLevel) TotalQuantity() decimal.Decimal {
	return l.total
}

func (l *PriceLevel) IsEmpty() bool {
	return l.orders.Len() == 0
}

func (l *PriceLevel) Len() int {
	return l.orders.Len()
}
