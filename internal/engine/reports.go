package engine

import (
	"sort"

	"gungnir/internal/common"
	"gungnir/internal/ledger"
)

// Query is a read-only request evaluated at a specific position in the
// command sequence. Queries never mutate state: running the same query twice
// with no intervening commands yields identical results.
type Query interface {
	isQuery()
}

// SingleUserQuery reports one account's holdings and open orders.
type SingleUserQuery struct {
	UID common.UserID
}

// TotalBalanceQuery reports exchange-wide per-currency aggregates.
type TotalBalanceQuery struct{}

// DepthQuery reports the aggregated L2 ladder of one book.
type DepthQuery struct {
	Symbol    common.SymbolID
	MaxLevels int
}

func (SingleUserQuery) isQuery()   {}
func (TotalBalanceQuery) isQuery() {}
func (DepthQuery) isQuery()        {}

type SingleUserResult struct {
	Result    common.ResultCode
	UID       common.UserID
	Positions map[common.CurrencyID]ledger.Position
	Orders    []common.Order
}

type TotalBalanceResult struct {
	Result   common.ResultCode
	Balances map[common.CurrencyID]int64
	Reserved map[common.CurrencyID]int64
	Fees     map[common.CurrencyID]int64
}

type DepthResult struct {
	Result   common.ResultCode
	Snapshot common.BookSnapshot
}

// Execute evaluates a query against current state. It is called from the
// same ordered stream as commands so the snapshot it sees is exactly the
// state after every earlier command and before every later one.
func (c *Core) Execute(q Query) any {
	switch q := q.(type) {
	case SingleUserQuery:
		positions, err := c.ledger.Positions(q.UID)
		if err != nil {
			return SingleUserResult{Result: common.ResultUnknownUser, UID: q.UID}
		}
		var orders []common.Order
		for _, b := range c.books {
			orders = append(orders, b.OrdersOf(q.UID)...)
		}
		sort.Slice(orders, func(i, j int) bool {
			if orders[i].Symbol != orders[j].Symbol {
				return orders[i].Symbol < orders[j].Symbol
			}
			return orders[i].ID < orders[j].ID
		})
		return SingleUserResult{
			Result:    common.ResultSuccess,
			UID:       q.UID,
			Positions: positions,
			Orders:    orders,
		}
	case TotalBalanceQuery:
		balances, reserved, fees := c.ledger.Totals()
		return TotalBalanceResult{
			Result:   common.ResultSuccess,
			Balances: balances,
			Reserved: reserved,
			Fees:     fees,
		}
	case DepthQuery:
		b, ok := c.books[q.Symbol]
		if !ok {
			return DepthResult{Result: common.ResultUnknownSymbol}
		}
		return DepthResult{
			Result:   common.ResultSuccess,
			Snapshot: b.Depth(q.MaxLevels),
		}
	default:
		return nil
	}
}
