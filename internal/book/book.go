// Package book implements a price-time-priority limit order book. It is
// a pure data structure: the exchange keeps one per instrument to match
// against, and every trader keeps per-instrument replicas that are
// rebuilt purely by replaying the exchange's update stream.
package book

import (
	"fmt"
	"time"

	"github.com/google/btree"
	"github.com/openoutcry/botrunner/internal/domain"
)

// Entry is a single order resting on the book. Quantity is the only
// mutable field and is deliberately excluded from the side orderings, so
// fills can reduce it in place without disturbing tree position.
type Entry struct {
	Instrument domain.InstrumentID
	Price      float64
	Quantity   int64
	OrderID    domain.OrderID
	Arrival    int64 // monotonic ns, stamped by the book at insert
	TraderID   domain.TraderID
	Side       domain.Side
}

// bidLess orders the bid side: price descending, then arrival ascending,
// then order id ascending. Min() is the best bid.
func bidLess(a, b *Entry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	return a.OrderID < b.OrderID
}

// askLess orders the ask side: price ascending, then arrival ascending,
// then order id ascending. Min() is the best ask.
func askLess(a, b *Entry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.Arrival != b.Arrival {
		return a.Arrival < b.Arrival
	}
	return a.OrderID < b.OrderID
}

// Book maintains the two sides for a single instrument using B-trees
// plus a secondary index for O(log n) cancel and fill by order id.
//
// A Book is not safe for concurrent use: each owner (an exchange cycle
// or a strategy worker) confines it to one goroutine.
type Book struct {
	instrument domain.InstrumentID
	bids       *btree.BTreeG[*Entry]
	asks       *btree.BTreeG[*Entry]
	index      map[domain.OrderID]*Entry

	epoch time.Time
	last  int64 // last issued arrival stamp
}

// New creates an empty book for the given instrument.
func New(instrument domain.InstrumentID) *Book {
	const degree = 32
	return &Book{
		instrument: instrument,
		bids:       btree.NewG[*Entry](degree, bidLess),
		asks:       btree.NewG[*Entry](degree, askLess),
		index:      make(map[domain.OrderID]*Entry),
		epoch:      time.Now(),
	}
}

// stamp returns a strictly increasing monotonic arrival time. The book,
// not the caller, stamps arrival so that time-priority ties resolve by
// local arrival order deterministically.
func (b *Book) stamp() int64 {
	now := time.Since(b.epoch).Nanoseconds()
	if now <= b.last {
		now = b.last + 1
	}
	b.last = now
	return now
}

func (b *Book) side(s domain.Side) *btree.BTreeG[*Entry] {
	if s == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

// Insert adds a new resting order. A duplicate order id means the
// exchange's id-allocation contract was violated; that is a programming
// invariant, so Insert fails loudly rather than corrupting the index.
func (b *Book) Insert(o domain.Order) {
	if _, ok := b.index[o.OrderID]; ok {
		panic(fmt.Sprintf("book: duplicate order id %d on instrument %d", o.OrderID, o.Instrument))
	}
	e := &Entry{
		Instrument: o.Instrument,
		Price:      o.Price,
		Quantity:   o.Quantity,
		OrderID:    o.OrderID,
		Arrival:    b.stamp(),
		TraderID:   o.TraderID,
		Side:       o.Side,
	}
	b.side(o.Side).ReplaceOrInsert(e)
	b.index[o.OrderID] = e
}

// Cancel removes a resting order. An unknown id returns
// domain.ErrOrderNotFound: cancels race with fills near completion, so
// this is a tolerated no-op rather than a fault.
func (b *Book) Cancel(id domain.OrderID) error {
	e, ok := b.index[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	delete(b.index, id)
	b.side(e.Side).Delete(e)
	return nil
}

// DecreaseQuantity reduces a resting order's quantity by a fill amount.
// It returns the new remaining quantity, 0 when the fill consumed the
// whole order (the entry is removed), or -1 when the id is unknown.
func (b *Book) DecreaseQuantity(id domain.OrderID, by int64) int64 {
	e, ok := b.index[id]
	if !ok {
		return -1
	}
	if by >= e.Quantity {
		delete(b.index, id)
		b.side(e.Side).Delete(e)
		return 0
	}
	e.Quantity -= by
	return e.Quantity
}

// BestPrice returns the price of the most aggressive resting order on a
// side, or 0 when the side is empty.
func (b *Book) BestPrice(s domain.Side) float64 {
	e, ok := b.side(s).Min()
	if !ok {
		return 0
	}
	return e.Price
}

// Best returns a copy of the most aggressive resting order on a side.
func (b *Book) Best(s domain.Side) (Entry, bool) {
	e, ok := b.side(s).Min()
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// MidPrice returns the average of the two best prices, or defaultTo when
// either side has no quote.
func (b *Book) MidPrice(defaultTo float64) float64 {
	bid := b.BestPrice(domain.SideBuy)
	ask := b.BestPrice(domain.SideSell)
	if bid == 0 || ask == 0 {
		return defaultTo
	}
	return 0.5 * (bid + ask)
}

// Spread returns best ask minus best bid, or 0 when either side is empty.
func (b *Book) Spread() float64 {
	bid := b.BestPrice(domain.SideBuy)
	ask := b.BestPrice(domain.SideSell)
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// QuoteSize returns the total resting quantity at the best price level
// on a side. The walk stops at the first price change, so cost is
// proportional to the number of orders at the top level only.
func (b *Book) QuoteSize(s domain.Side) int64 {
	best := b.BestPrice(s)
	if best == 0 {
		return 0
	}
	var total int64
	b.side(s).Ascend(func(e *Entry) bool {
		if e.Price != best {
			return false
		}
		total += e.Quantity
		return true
	})
	return total
}

// Resting returns a copy of the resting order with the given id.
func (b *Book) Resting(id domain.OrderID) (Entry, bool) {
	e, ok := b.index[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Walk iterates a side in priority order (best first). The callback
// returns true to continue, false to stop.
func (b *Book) Walk(s domain.Side, fn func(Entry) bool) {
	b.side(s).Ascend(func(e *Entry) bool {
		return fn(*e)
	})
}

// Len returns the number of resting orders on a side.
func (b *Book) Len(s domain.Side) int {
	return b.side(s).Len()
}
