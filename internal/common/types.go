package common

// Core identifier types. All of these are caller-supplied integers; the
// engine never mints ids of its own.
type (
	UserID     int64
	OrderID    int64
	SymbolID   int32
	CurrencyID int32
)

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "BID"
	}
	return "ASK"
}

// Opposite returns the matching side of the book for an incoming order.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

type OrderLife int

const (
	// GTC orders rest on the book until fully filled or cancelled.
	GTC OrderLife = iota
	// IOC orders match what they can immediately; any remainder is
	// discarded and never rests.
	IOC
)

func (l OrderLife) String() string {
	if l == GTC {
		return "GTC"
	}
	return "IOC"
}

// ResultCode is the outcome of one applied command. Every accepted command
// resolves to exactly one of these.
type ResultCode int

const (
	ResultSuccess ResultCode = iota
	ResultUnknownUser
	ResultDuplicateUser
	ResultUnknownSymbol
	ResultDuplicateSymbol
	ResultUnknownOrder
	ResultDuplicateOrder
	ResultInsufficientFunds
	ResultInvalidPriceMove
	ResultDuplicateTransaction
	ResultMalformed
	ResultShutdown
)

func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultUnknownUser:
		return "UNKNOWN_USER"
	case ResultDuplicateUser:
		return "DUPLICATE_USER"
	case ResultUnknownSymbol:
		return "UNKNOWN_SYMBOL"
	case ResultDuplicateSymbol:
		return "DUPLICATE_SYMBOL"
	case ResultUnknownOrder:
		return "UNKNOWN_ORDER"
	case ResultDuplicateOrder:
		return "DUPLICATE_ORDER"
	case ResultInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case ResultInvalidPriceMove:
		return "INVALID_PRICE_MOVE"
	case ResultDuplicateTransaction:
		return "DUPLICATE_TRANSACTION"
	case ResultMalformed:
		return "MALFORMED"
	case ResultShutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// Ok reports whether the command fully applied.
func (r ResultCode) Ok() bool {
	return r == ResultSuccess
}
