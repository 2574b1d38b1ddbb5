package common

type SymbolKind int

const (
	// CurrencyPair is a spot exchange pair: the base currency is traded
	// against the quote currency.
	CurrencyPair SymbolKind = iota
)

// SymbolSpec describes one traded instrument. Immutable once registered.
//
// Prices and sizes on the wire are integers: a size of N means N lots, a
// price of P means P price steps. The scale factors convert lots and steps
// into actual currency amounts:
//
//	base amount  = size  × BaseScale   (base currency units)
//	quote amount = price × QuoteScale  (quote currency units per lot)
//
// Fees are flat per-lot amounts in the quote currency, charged separately
// for the maker and taker roles of every trade.
type SymbolSpec struct {
	ID         SymbolID
	Kind       SymbolKind
	Base       CurrencyID
	Quote      CurrencyID
	BaseScale  int64
	QuoteScale int64
	TakerFee   int64
	MakerFee   int64
}

// QuoteAmount converts (price, size) into quote currency units, before fees.
func (s *SymbolSpec) QuoteAmount(price, size int64) int64 {
	return price * s.QuoteScale * size
}

// BaseAmount converts a size in lots into base currency units.
func (s *SymbolSpec) BaseAmount(size int64) int64 {
	return size * s.BaseScale
}
