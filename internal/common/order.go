package common

import "fmt"

// Order is the book-resident state of one accepted order. Price is the
// current resting price in price steps; Budget is the worst price the owner
// reserved funds for (for bids this bounds later moves, for asks it simply
// mirrors Price). Remaining decreases on partial fills and reaches zero on a
// full fill.
type Order struct {
	ID        OrderID
	UID       UserID
	Symbol    SymbolID
	Side      Side
	Life      OrderLife
	Price     int64
	Budget    int64
	Size      int64
	Remaining int64
}

func (o Order) String() string {
	return fmt.Sprintf("order{id=%d uid=%d sym=%d %s %s %d@%d rem=%d}",
		o.ID, o.UID, o.Symbol, o.Side, o.Life, o.Size, o.Price, o.Remaining)
}

// Filled reports whether no size is left to match.
func (o *Order) Filled() bool {
	return o.Remaining == 0
}
