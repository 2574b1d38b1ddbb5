package common

import "fmt"

// Trade is one fill between an incoming (taker) order and a resting (maker)
// order, executed at the maker's resting price.
//
// Fees are charged per side of the market, not per aggression role: the bid
// side pays the taker-fee schedule (its reservation already includes it, so
// a buy can never be left unable to pay) and the ask side pays the maker-fee
// schedule out of its quote proceeds. Both amounts are quote currency units,
// already scaled by size.
type Trade struct {
	Symbol    SymbolID
	TakerID   OrderID
	TakerUID  UserID
	TakerSide Side
	MakerID   OrderID
	MakerUID  UserID
	Price     int64
	Size      int64
	BidFee    int64
	AskFee    int64
}

func (t Trade) String() string {
	return fmt.Sprintf("trade{sym=%d taker=%d maker=%d %d@%d fees=%d/%d}",
		t.Symbol, t.TakerID, t.MakerID, t.Size, t.Price, t.BidFee, t.AskFee)
}

// FeeOf returns the fee charged to the given side of this trade.
func (t Trade) FeeOf(side Side) int64 {
	if side == Bid {
		return t.BidFee
	}
	return t.AskFee
}
