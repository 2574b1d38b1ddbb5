// Package risk validates commands against the ledger, computes and holds
// reservations, and settles fills under the symbol's fee schedule. All state
// it touches lives in the ledger; it is only ever invoked from the single
// pipeline writer.
package risk

import (
	"errors"
	"fmt"

	"gungnir/internal/book"
	"gungnir/internal/common"
	"gungnir/internal/ledger"
)

type Engine struct {
	ledger *ledger.Ledger
}

func New(l *ledger.Ledger) *Engine {
	return &Engine{ledger: l}
}

// bidLotCost is the quote currency reserved per lot of a bid: the worst
// (budget) price the order may trade or move to, plus the taker fee the bid
// side is charged on every fill.
func bidLotCost(spec *common.SymbolSpec, budget int64) int64 {
	return budget*spec.QuoteScale + spec.TakerFee
}

func (e *Engine) OpenAccount(uid common.UserID) common.ResultCode {
	if err := e.ledger.Open(uid); err != nil {
		return resultOf(err)
	}
	return common.ResultSuccess
}

func (e *Engine) AdjustBalance(cmd common.AdjustBalance) common.ResultCode {
	acct, err := e.ledger.Account(cmd.UID)
	if err != nil {
		return resultOf(err)
	}
	if err := acct.Adjust(cmd.Currency, cmd.Amount, cmd.TxID); err != nil {
		return resultOf(err)
	}
	return common.ResultSuccess
}

// ReserveOrder earmarks the funds a new order may consume and returns the
// order's budget price (the bound used for later moves and for releasing the
// reservation). Nothing is mutated on rejection.
func (e *Engine) ReserveOrder(spec *common.SymbolSpec, cmd common.PlaceOrder) (int64, common.ResultCode) {
	acct, err := e.ledger.Account(cmd.UID)
	if err != nil {
		return 0, resultOf(err)
	}
	budget := cmd.Price
	if cmd.Side == common.Bid {
		if cmd.ReservePrice != 0 {
			budget = cmd.ReservePrice
		}
		if err := acct.Reserve(spec.Quote, bidLotCost(spec, budget)*cmd.Size); err != nil {
			return 0, resultOf(err)
		}
		return budget, common.ResultSuccess
	}
	if err := acct.Reserve(spec.Base, spec.BaseAmount(cmd.Size)); err != nil {
		return 0, resultOf(err)
	}
	return budget, common.ResultSuccess
}

// ValidateMove checks that the new price stays within the order's reserved
// budget. Asks reserve base currency, which is price-independent, so they
// may move freely; a bid may never move above its budget price.
func (e *Engine) ValidateMove(o common.Order, newPrice int64) common.ResultCode {
	if o.Side == common.Bid && newPrice > o.Budget {
		return common.ResultInvalidPriceMove
	}
	return common.ResultSuccess
}

// SettleFill moves funds for one fill: the buyer pays quote out of its
// reservation (any surplus over the maker price returns to available) and
// receives base; the seller pays base out of its reservation and receives
// quote net of its fee; both sides' fees accrue to the operator. The bid
// side is charged the taker-fee schedule — the exact amount its reservation
// set aside per lot — and the ask side the maker-fee schedule.
//
// Errors here are ledger invariant violations: validation reserved these
// funds when the orders entered the book, so settlement cannot legitimately
// fail. The caller must treat a non-nil error as fatal.
func (e *Engine) SettleFill(spec *common.SymbolSpec, taker *common.Order, fill book.Fill) (common.Trade, error) {
	trade := common.Trade{
		Symbol:    spec.ID,
		TakerID:   taker.ID,
		TakerUID:  taker.UID,
		TakerSide: taker.Side,
		MakerID:   fill.MakerID,
		MakerUID:  fill.MakerUID,
		Price:     fill.Price,
		Size:      fill.Size,
		BidFee:    spec.TakerFee * fill.Size,
		AskFee:    spec.MakerFee * fill.Size,
	}

	buyerFee, sellerFee := spec.TakerFee, spec.MakerFee
	var buyer, seller common.UserID
	var buyerBudget int64
	if taker.Side == common.Bid {
		buyer, seller = taker.UID, fill.MakerUID
		buyerBudget = taker.Budget
	} else {
		buyer, seller = fill.MakerUID, taker.UID
		buyerBudget = fill.MakerBudget
	}

	buyAcct, err := e.ledger.Account(buyer)
	if err != nil {
		return trade, fmt.Errorf("settle buyer %d: %w", buyer, err)
	}
	sellAcct, err := e.ledger.Account(seller)
	if err != nil {
		return trade, fmt.Errorf("settle seller %d: %w", seller, err)
	}

	debit := (fill.Price*spec.QuoteScale + buyerFee) * fill.Size
	release := bidLotCost(spec, buyerBudget) * fill.Size
	if err := buyAcct.Settle(spec.Quote, debit, release); err != nil {
		return trade, fmt.Errorf("settle buyer %d quote: %w", buyer, err)
	}
	buyAcct.Credit(spec.Base, spec.BaseAmount(fill.Size))

	base := spec.BaseAmount(fill.Size)
	if err := sellAcct.Settle(spec.Base, base, base); err != nil {
		return trade, fmt.Errorf("settle seller %d base: %w", seller, err)
	}
	sellAcct.Credit(spec.Quote, fill.Price*spec.QuoteScale*fill.Size-sellerFee*fill.Size)

	e.ledger.AccrueFee(spec.Quote, (buyerFee+sellerFee)*fill.Size)
	return trade, nil
}

// ReleaseRemainder frees the reservation held for size lots of an order that
// will not trade: an IOC remainder or a cancelled resting order.
func (e *Engine) ReleaseRemainder(spec *common.SymbolSpec, o common.Order, size int64) error {
	acct, err := e.ledger.Account(o.UID)
	if err != nil {
		return fmt.Errorf("release uid %d: %w", o.UID, err)
	}
	if o.Side == common.Bid {
		return acct.Release(spec.Quote, bidLotCost(spec, o.Budget)*size)
	}
	return acct.Release(spec.Base, spec.BaseAmount(size))
}

func resultOf(err error) common.ResultCode {
	switch {
	case errors.Is(err, ledger.ErrUnknownUser):
		return common.ResultUnknownUser
	case errors.Is(err, ledger.ErrDuplicateUser):
		return common.ResultDuplicateUser
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return common.ResultInsufficientFunds
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return common.ResultDuplicateTransaction
	default:
		return common.ResultMalformed
	}
}
