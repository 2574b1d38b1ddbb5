package book

import (
	"sort"

	"github.com/tidwall/btree"

	"gungnir/internal/common"
)

// priceLevel holds the FIFO queue of resting orders at one exact price as a
// doubly-linked chain of arena handles. volume is the aggregate remaining
// size at this price.
type priceLevel struct {
	price  int64
	head   handle
	tail   handle
	orders int
	volume int64
}

type levels = btree.BTreeG[*priceLevel]

// Fill is one maker consumed (fully or partially) by an incoming order
// during a matching pass. The trade price is always the maker's resting
// price. MakerBudget carries the maker's reserved worst price so settlement
// can release the right reservation.
type Fill struct {
	MakerID     common.OrderID
	MakerUID    common.UserID
	MakerBudget int64
	Price       int64
	Size        int64
	MakerDone   bool
}

// Book is the per-symbol order book: two btrees of price levels, bids
// sorted best (highest) first and asks best (lowest) first, over a shared
// order arena, with an id index for O(1) cancel and move.
type Book struct {
	symbol common.SymbolID
	arena  arena
	bids   *levels
	asks   *levels
	index  map[common.OrderID]handle
}

func New(symbol common.SymbolID) *Book {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &Book{
		symbol: symbol,
		bids:   bids,
		asks:   asks,
		index:  make(map[common.OrderID]handle),
	}
}

func (b *Book) Symbol() common.SymbolID { return b.symbol }

// Contains reports whether an order id is resting in this book.
func (b *Book) Contains(id common.OrderID) bool {
	_, ok := b.index[id]
	return ok
}

// Get returns a copy of a resting order.
func (b *Book) Get(id common.OrderID) (common.Order, bool) {
	h, ok := b.index[id]
	if !ok {
		return common.Order{}, false
	}
	return *b.arena.order(h), true
}

func (b *Book) side(s common.Side) *levels {
	if s == common.Bid {
		return b.bids
	}
	return b.asks
}

// Insert rests an order at the tail of its price level's queue, creating the
// level if it does not exist. The order receives the lowest time priority at
// that price.
func (b *Book) Insert(o common.Order) {
	side := b.side(o.Side)
	level, ok := side.GetMut(&priceLevel{price: o.Price})
	if !ok {
		level = &priceLevel{price: o.Price, head: none, tail: none}
		side.Set(level)
	}
	h := b.arena.alloc(o)
	if level.tail == none {
		level.head = h
		level.tail = h
	} else {
		b.arena.slots[level.tail].next = h
		b.arena.slots[h].prev = level.tail
		level.tail = h
	}
	level.orders++
	level.volume += o.Remaining
	b.index[o.ID] = h
}

// Remove unlinks an order from its level (dropping the level when it
// empties) and returns the removed order.
func (b *Book) Remove(id common.OrderID) (common.Order, bool) {
	h, ok := b.index[id]
	if !ok {
		return common.Order{}, false
	}
	o := *b.arena.order(h)
	side := b.side(o.Side)
	level, ok := side.GetMut(&priceLevel{price: o.Price})
	if !ok {
		// An indexed order must sit on an existing level.
		panic("book: order indexed without a price level")
	}
	b.unlink(level, h)
	if level.orders == 0 {
		side.Delete(level)
	}
	return o, true
}

func (b *Book) unlink(level *priceLevel, h handle) {
	s := &b.arena.slots[h]
	if s.prev != none {
		b.arena.slots[s.prev].next = s.next
	} else {
		level.head = s.next
	}
	if s.next != none {
		b.arena.slots[s.next].prev = s.prev
	} else {
		level.tail = s.prev
	}
	level.orders--
	level.volume -= s.order.Remaining
	delete(b.index, s.order.ID)
	b.arena.release(h)
}

// Match walks the opposing side from best price outward while the taker has
// remaining size and the opposing best price satisfies the taker's limit.
// Within a level, resting orders are consumed strictly in arrival order. A
// fully consumed maker is removed; a partially consumed maker keeps its
// queue position. The taker's Remaining is decremented in place; the caller
// decides what happens to any remainder (rest for GTC, discard for IOC).
func (b *Book) Match(taker *common.Order) []Fill {
	opp := b.side(taker.Side.Opposite())
	crosses := func(p int64) bool { return p <= taker.Price }
	if taker.Side == common.Ask {
		crosses = func(p int64) bool { return p >= taker.Price }
	}

	var fills []Fill
	for taker.Remaining > 0 {
		level, ok := opp.MinMut()
		if !ok || !crosses(level.price) {
			break
		}
		for taker.Remaining > 0 && level.head != none {
			maker := b.arena.order(level.head)
			qty := min(taker.Remaining, maker.Remaining)
			taker.Remaining -= qty
			maker.Remaining -= qty
			level.volume -= qty

			fill := Fill{
				MakerID:     maker.ID,
				MakerUID:    maker.UID,
				MakerBudget: maker.Budget,
				Price:       level.price,
				Size:        qty,
			}
			if maker.Filled() {
				fill.MakerDone = true
				b.unlink(level, level.head)
			}
			fills = append(fills, fill)
		}
		if level.orders == 0 {
			opp.Delete(level)
		}
	}
	return fills
}

// OrdersOf returns copies of all resting orders owned by uid, sorted by
// order id so reports are reproducible.
func (b *Book) OrdersOf(uid common.UserID) []common.Order {
	var out []common.Order
	for _, h := range b.index {
		o := b.arena.order(h)
		if o.UID == uid {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BestBid returns the highest resting bid price.
func (b *Book) BestBid() (int64, bool) {
	level, ok := b.bids.Min()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// BestAsk returns the lowest resting ask price.
func (b *Book) BestAsk() (int64, bool) {
	level, ok := b.asks.Min()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// Depth aggregates up to maxLevels price levels per side into an L2
// snapshot, best prices first. maxLevels <= 0 means the whole book.
func (b *Book) Depth(maxLevels int) common.BookSnapshot {
	return common.BookSnapshot{
		Symbol: b.symbol,
		Bids:   ladder(b.bids, maxLevels),
		Asks:   ladder(b.asks, maxLevels),
	}
}

func ladder(side *levels, maxLevels int) []common.PriceVolume {
	var out []common.PriceVolume
	side.Scan(func(level *priceLevel) bool {
		out = append(out, common.PriceVolume{
			Price:  level.price,
			Volume: level.volume,
			Orders: level.orders,
		})
		return maxLevels <= 0 || len(out) < maxLevels
	})
	return out
}
