package common

import "errors"

var (
	ErrInvalidSize    = errors.New("order size must be positive")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrInvalidReserve = errors.New("reserve price below limit price")
	ErrEmptyBatch     = errors.New("empty symbol batch")
)

// Command is the discriminated union of everything a caller may ask the
// engine to do. Concrete command kinds are plain immutable value structs
// built through the New* factories below, which reject malformed field
// combinations before the command ever enters the pipeline.
type Command interface {
	isCommand()
}

// RegisterSymbols registers a batch of instrument specifications. The batch
// is atomic: one already-known symbol id rejects the whole batch.
type RegisterSymbols struct {
	Specs []SymbolSpec
}

// OpenAccount creates an empty account for uid.
type OpenAccount struct {
	UID UserID
}

// AdjustBalance applies a signed delta to one currency balance. TxID is the
// caller's idempotency token: a transaction id already applied for this uid
// is rejected without effect.
type AdjustBalance struct {
	UID      UserID
	Currency CurrencyID
	Amount   int64
	TxID     int64
}

// PlaceOrder submits a new order. ReservePrice is only meaningful for bids:
// it is the highest price the resting order may later be moved to without
// re-reserving funds; zero means the limit price itself is the bound.
type PlaceOrder struct {
	UID          UserID
	OrderID      OrderID
	Symbol       SymbolID
	Side         Side
	Life         OrderLife
	Price        int64
	Size         int64
	ReservePrice int64
}

// MoveOrder amends the price of a resting order.
type MoveOrder struct {
	UID      UserID
	OrderID  OrderID
	Symbol   SymbolID
	NewPrice int64
}

// CancelOrder removes a resting order and releases its remaining reservation.
type CancelOrder struct {
	UID     UserID
	OrderID OrderID
	Symbol  SymbolID
}

func (RegisterSymbols) isCommand() {}
func (OpenAccount) isCommand()     {}
func (AdjustBalance) isCommand()   {}
func (PlaceOrder) isCommand()      {}
func (MoveOrder) isCommand()       {}
func (CancelOrder) isCommand()     {}

func NewRegisterSymbols(specs ...SymbolSpec) (RegisterSymbols, error) {
	if len(specs) == 0 {
		return RegisterSymbols{}, ErrEmptyBatch
	}
	for _, s := range specs {
		if s.BaseScale <= 0 || s.QuoteScale <= 0 || s.TakerFee < 0 || s.MakerFee < 0 {
			return RegisterSymbols{}, ErrInvalidPrice
		}
	}
	return RegisterSymbols{Specs: specs}, nil
}

func NewOpenAccount(uid UserID) (OpenAccount, error) {
	return OpenAccount{UID: uid}, nil
}

func NewAdjustBalance(uid UserID, currency CurrencyID, amount, txID int64) (AdjustBalance, error) {
	return AdjustBalance{UID: uid, Currency: currency, Amount: amount, TxID: txID}, nil
}

func NewPlaceOrder(uid UserID, id OrderID, symbol SymbolID, side Side, life OrderLife, price, size, reservePrice int64) (PlaceOrder, error) {
	if size <= 0 {
		return PlaceOrder{}, ErrInvalidSize
	}
	if price <= 0 {
		return PlaceOrder{}, ErrInvalidPrice
	}
	if reservePrice != 0 && side == Bid && reservePrice < price {
		return PlaceOrder{}, ErrInvalidReserve
	}
	return PlaceOrder{
		UID:          uid,
		OrderID:      id,
		Symbol:       symbol,
		Side:         side,
		Life:         life,
		Price:        price,
		Size:         size,
		ReservePrice: reservePrice,
	}, nil
}

func NewMoveOrder(uid UserID, id OrderID, symbol SymbolID, newPrice int64) (MoveOrder, error) {
	if newPrice <= 0 {
		return MoveOrder{}, ErrInvalidPrice
	}
	return MoveOrder{UID: uid, OrderID: id, Symbol: symbol, NewPrice: newPrice}, nil
}

func NewCancelOrder(uid UserID, id OrderID, symbol SymbolID) (CancelOrder, error) {
	return CancelOrder{UID: uid, OrderID: id, Symbol: symbol}, nil
}
