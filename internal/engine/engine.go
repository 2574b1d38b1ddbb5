// Package engine is the single-writer core of the exchange: it owns the
// symbol registry, the ledger and every order book, and applies one command
// at a time to completion. It has no goroutines and no I/O; ordering and
// hand-off live in the exchange package.
package engine

import (
	"fmt"

	"gungnir/internal/book"
	"gungnir/internal/common"
	"gungnir/internal/ledger"
	"gungnir/internal/risk"
)

type Core struct {
	registry *Registry
	ledger   *ledger.Ledger
	risk     *risk.Engine
	books    map[common.SymbolID]*book.Book
}

func New() *Core {
	l := ledger.New()
	return &Core{
		registry: NewRegistry(),
		ledger:   l,
		risk:     risk.New(l),
		books:    make(map[common.SymbolID]*book.Book),
	}
}

// Apply runs one command to completion and returns the events it produced,
// ending with exactly one CommandResult. A rejected command produces a
// Reject plus its CommandResult and no state change. A non-nil error is an
// internal invariant violation: state can no longer be trusted and the
// caller must stop applying further commands.
func (c *Core) Apply(seq uint64, cmd common.Command) ([]common.Event, error) {
	var (
		events []common.Event
		rc     common.ResultCode
		err    error
	)
	switch cmd := cmd.(type) {
	case common.RegisterSymbols:
		rc = c.registerSymbols(cmd)
	case common.OpenAccount:
		rc = c.risk.OpenAccount(cmd.UID)
	case common.AdjustBalance:
		rc = c.risk.AdjustBalance(cmd)
	case common.PlaceOrder:
		events, rc, err = c.placeOrder(seq, cmd)
	case common.MoveOrder:
		events, rc, err = c.moveOrder(seq, cmd)
	case common.CancelOrder:
		events, rc, err = c.cancelOrder(seq, cmd)
	default:
		rc = common.ResultMalformed
	}
	if err != nil {
		return events, err
	}
	if !rc.Ok() {
		events = append(events, common.Event{
			Kind:   common.EventReject,
			Seq:    seq,
			Reject: &common.Reject{Command: cmd, Reason: rc},
		})
	}
	events = append(events, common.Event{
		Kind:   common.EventCommandResult,
		Seq:    seq,
		Result: &common.CommandResult{Command: cmd, Result: rc},
	})
	return events, nil
}

func (c *Core) registerSymbols(cmd common.RegisterSymbols) common.ResultCode {
	if len(cmd.Specs) == 0 {
		return common.ResultMalformed
	}
	rc := c.registry.Add(cmd.Specs)
	if !rc.Ok() {
		return rc
	}
	for _, s := range cmd.Specs {
		c.books[s.ID] = book.New(s.ID)
	}
	return common.ResultSuccess
}

func (c *Core) placeOrder(seq uint64, cmd common.PlaceOrder) ([]common.Event, common.ResultCode, error) {
	spec, ok := c.registry.Get(cmd.Symbol)
	if !ok {
		return nil, common.ResultUnknownSymbol, nil
	}
	if cmd.Size <= 0 || cmd.Price <= 0 {
		return nil, common.ResultMalformed, nil
	}
	b := c.books[cmd.Symbol]
	if b.Contains(cmd.OrderID) {
		return nil, common.ResultDuplicateOrder, nil
	}

	budget, rc := c.risk.ReserveOrder(spec, cmd)
	if !rc.Ok() {
		return nil, rc, nil
	}

	taker := common.Order{
		ID:        cmd.OrderID,
		UID:       cmd.UID,
		Symbol:    cmd.Symbol,
		Side:      cmd.Side,
		Life:      cmd.Life,
		Price:     cmd.Price,
		Budget:    budget,
		Size:      cmd.Size,
		Remaining: cmd.Size,
	}

	events, err := c.runMatch(seq, spec, b, &taker)
	if err != nil {
		return events, rc, err
	}

	if taker.Remaining > 0 {
		if taker.Life == common.GTC {
			b.Insert(taker)
		} else {
			if err := c.risk.ReleaseRemainder(spec, taker, taker.Remaining); err != nil {
				return events, rc, err
			}
			events = append(events, common.Event{
				Kind: common.EventReduce,
				Seq:  seq,
				Reduce: &common.Reduce{
					Symbol:  spec.ID,
					OrderID: taker.ID,
					UID:     taker.UID,
					Size:    taker.Remaining,
					Reason:  common.ReduceIOCRemainder,
				},
			})
		}
	}
	return events, common.ResultSuccess, nil
}

func (c *Core) moveOrder(seq uint64, cmd common.MoveOrder) ([]common.Event, common.ResultCode, error) {
	spec, ok := c.registry.Get(cmd.Symbol)
	if !ok {
		return nil, common.ResultUnknownSymbol, nil
	}
	b := c.books[cmd.Symbol]
	o, ok := b.Get(cmd.OrderID)
	if !ok || o.UID != cmd.UID {
		return nil, common.ResultUnknownOrder, nil
	}
	if rc := c.risk.ValidateMove(o, cmd.NewPrice); !rc.Ok() {
		return nil, rc, nil
	}

	// Remove-then-reinsert: the order gives up its time priority, takes the
	// taker role for any cross the new price opens up, and any remainder
	// joins the tail of the new level's queue.
	b.Remove(o.ID)
	o.Price = cmd.NewPrice
	events, err := c.runMatch(seq, spec, b, &o)
	if err != nil {
		return events, common.ResultSuccess, err
	}
	if o.Remaining > 0 {
		b.Insert(o)
	}
	return events, common.ResultSuccess, nil
}

func (c *Core) cancelOrder(seq uint64, cmd common.CancelOrder) ([]common.Event, common.ResultCode, error) {
	spec, ok := c.registry.Get(cmd.Symbol)
	if !ok {
		return nil, common.ResultUnknownSymbol, nil
	}
	b := c.books[cmd.Symbol]
	o, ok := b.Get(cmd.OrderID)
	if !ok || o.UID != cmd.UID {
		return nil, common.ResultUnknownOrder, nil
	}
	b.Remove(o.ID)
	if err := c.risk.ReleaseRemainder(spec, o, o.Remaining); err != nil {
		return nil, common.ResultSuccess, err
	}
	events := []common.Event{{
		Kind: common.EventReduce,
		Seq:  seq,
		Reduce: &common.Reduce{
			Symbol:  spec.ID,
			OrderID: o.ID,
			UID:     o.UID,
			Size:    o.Remaining,
			Reason:  common.ReduceCancelled,
		},
	}}
	return events, common.ResultSuccess, nil
}

// runMatch executes one matching pass and settles every fill. Settlement
// failures are invariant violations and abort the pipeline.
func (c *Core) runMatch(seq uint64, spec *common.SymbolSpec, b *book.Book, taker *common.Order) ([]common.Event, error) {
	var events []common.Event
	for _, fill := range b.Match(taker) {
		trade, err := c.risk.SettleFill(spec, taker, fill)
		if err != nil {
			return events, fmt.Errorf("seq %d: %w", seq, err)
		}
		t := trade
		events = append(events, common.Event{Kind: common.EventTrade, Seq: seq, Trade: &t})
	}
	return events, nil
}
