package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/book"
	"gungnir/internal/common"
	"gungnir/internal/ledger"
)

const (
	xbt common.CurrencyID = 11
	ltc common.CurrencyID = 15
)

// testSpec mirrors the XBT/LTC pair: 1 lot = 1M base units, 1 price step =
// 10K quote units, fees 1900/700 quote units per lot.
func testSpec() *common.SymbolSpec {
	return &common.SymbolSpec{
		ID:         241,
		Kind:       common.CurrencyPair,
		Base:       xbt,
		Quote:      ltc,
		BaseScale:  1_000_000,
		QuoteScale: 10_000,
		TakerFee:   1900,
		MakerFee:   700,
	}
}

func newEngine(t *testing.T) (*Engine, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	e := New(l)
	require.Equal(t, common.ResultSuccess, e.OpenAccount(301))
	require.Equal(t, common.ResultSuccess, e.OpenAccount(302))
	return e, l
}

func deposit(t *testing.T, e *Engine, uid common.UserID, c common.CurrencyID, amount, txid int64) {
	t.Helper()
	require.Equal(t, common.ResultSuccess, e.AdjustBalance(common.AdjustBalance{
		UID: uid, Currency: c, Amount: amount, TxID: txid,
	}))
}

func TestOpenAccount(t *testing.T) {
	e, _ := newEngine(t)
	assert.Equal(t, common.ResultDuplicateUser, e.OpenAccount(301))
	assert.Equal(t, common.ResultSuccess, e.OpenAccount(303))
}

func TestAdjustBalance(t *testing.T) {
	e, l := newEngine(t)
	deposit(t, e, 301, ltc, 1000, 1)

	assert.Equal(t, common.ResultUnknownUser, e.AdjustBalance(common.AdjustBalance{UID: 999, Currency: ltc, Amount: 1, TxID: 2}))
	assert.Equal(t, common.ResultDuplicateTransaction, e.AdjustBalance(common.AdjustBalance{UID: 301, Currency: ltc, Amount: 1000, TxID: 1}))
	assert.Equal(t, common.ResultInsufficientFunds, e.AdjustBalance(common.AdjustBalance{UID: 301, Currency: ltc, Amount: -2000, TxID: 3}))

	acct, err := l.Account(301)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acct.Balance(ltc))
}

func TestReserveOrder_Bid(t *testing.T) {
	e, l := newEngine(t)
	spec := testSpec()
	deposit(t, e, 301, ltc, 2_000_000_000, 1)

	// Reserve at the reserve price, fee included: (15600*10000 + 1900) * 12.
	budget, rc := e.ReserveOrder(spec, common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid,
		Price: 15_400, Size: 12, ReservePrice: 15_600,
	})
	require.Equal(t, common.ResultSuccess, rc)
	assert.Equal(t, int64(15_600), budget)

	acct, err := l.Account(301)
	require.NoError(t, err)
	assert.Equal(t, int64(1_872_022_800), acct.Reserved(ltc))
	assert.Equal(t, int64(127_977_200), acct.Available(ltc))
}

func TestReserveOrder_BidWithoutReservePrice(t *testing.T) {
	e, l := newEngine(t)
	spec := testSpec()
	deposit(t, e, 301, ltc, 2_000_000_000, 1)

	budget, rc := e.ReserveOrder(spec, common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid,
		Price: 15_400, Size: 12,
	})
	require.Equal(t, common.ResultSuccess, rc)
	assert.Equal(t, int64(15_400), budget, "limit price bounds moves when no reserve price given")

	acct, err := l.Account(301)
	require.NoError(t, err)
	assert.Equal(t, int64((15_400*10_000+1900)*12), acct.Reserved(ltc))
}

func TestReserveOrder_Ask(t *testing.T) {
	e, l := newEngine(t)
	spec := testSpec()
	deposit(t, e, 302, xbt, 10_000_000, 1)

	_, rc := e.ReserveOrder(spec, common.PlaceOrder{
		UID: 302, OrderID: 5002, Symbol: 241, Side: common.Ask,
		Price: 15_250, Size: 10,
	})
	require.Equal(t, common.ResultSuccess, rc)

	acct, err := l.Account(302)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), acct.Reserved(xbt))
	assert.Zero(t, acct.Available(xbt))
}

func TestReserveOrder_InsufficientFunds(t *testing.T) {
	e, l := newEngine(t)
	spec := testSpec()
	deposit(t, e, 301, ltc, 1000, 1)

	_, rc := e.ReserveOrder(spec, common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid,
		Price: 15_400, Size: 12,
	})
	assert.Equal(t, common.ResultInsufficientFunds, rc)

	acct, err := l.Account(301)
	require.NoError(t, err)
	assert.Zero(t, acct.Reserved(ltc), "rejection must not leave a partial reservation")
}

func TestValidateMove(t *testing.T) {
	e, _ := newEngine(t)
	bid := common.Order{Side: common.Bid, Price: 15_400, Budget: 15_600}
	assert.Equal(t, common.ResultSuccess, e.ValidateMove(bid, 15_300))
	assert.Equal(t, common.ResultSuccess, e.ValidateMove(bid, 15_600))
	assert.Equal(t, common.ResultInvalidPriceMove, e.ValidateMove(bid, 15_601))

	// Ask reservations are in base currency, so any price is in budget.
	ask := common.Order{Side: common.Ask, Price: 15_250, Budget: 15_250}
	assert.Equal(t, common.ResultSuccess, e.ValidateMove(ask, 99_999))
}

func TestSettleFill(t *testing.T) {
	e, l := newEngine(t)
	spec := testSpec()
	deposit(t, e, 301, ltc, 2_000_000_000, 1)
	deposit(t, e, 302, xbt, 10_000_000, 2)

	// Resting bid for 12 lots, budget 15600; incoming ask takes 10 lots at
	// the bid's price.
	_, rc := e.ReserveOrder(spec, common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid,
		Price: 15_400, Size: 12, ReservePrice: 15_600,
	})
	require.True(t, rc.Ok())
	_, rc = e.ReserveOrder(spec, common.PlaceOrder{
		UID: 302, OrderID: 5002, Symbol: 241, Side: common.Ask,
		Price: 15_250, Size: 10,
	})
	require.True(t, rc.Ok())

	taker := common.Order{
		ID: 5002, UID: 302, Symbol: 241, Side: common.Ask, Life: common.IOC,
		Price: 15_250, Budget: 15_250, Size: 10,
	}
	trade, err := e.SettleFill(spec, &taker, book.Fill{
		MakerID: 5001, MakerUID: 301, MakerBudget: 15_600, Price: 15_400, Size: 10, MakerDone: false,
	})
	require.NoError(t, err)

	assert.Equal(t, common.Trade{
		Symbol: 241, TakerID: 5002, TakerUID: 302, TakerSide: common.Ask,
		MakerID: 5001, MakerUID: 301, Price: 15_400, Size: 10,
		BidFee: 19_000, AskFee: 7_000,
	}, trade)

	buyer, err := l.Account(301)
	require.NoError(t, err)
	// Paid (15400*10000 + 1900) * 10 out of the reservation; the surplus
	// reserved at 15600 returned to available.
	assert.Equal(t, int64(2_000_000_000-1_540_019_000), buyer.Balance(ltc))
	assert.Equal(t, int64((15_600*10_000+1900)*2), buyer.Reserved(ltc))
	assert.Equal(t, int64(10_000_000), buyer.Balance(xbt))

	seller, err := l.Account(302)
	require.NoError(t, err)
	assert.Zero(t, seller.Balance(xbt))
	assert.Zero(t, seller.Reserved(xbt))
	assert.Equal(t, int64(15_400*10_000*10-7_000), seller.Balance(ltc))

	assert.Equal(t, int64(26_000), l.Fees(ltc))
}

func TestReleaseRemainder(t *testing.T) {
	e, l := newEngine(t)
	spec := testSpec()
	deposit(t, e, 301, ltc, 2_000_000_000, 1)

	_, rc := e.ReserveOrder(spec, common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid,
		Price: 15_400, Size: 12, ReservePrice: 15_600,
	})
	require.True(t, rc.Ok())

	o := common.Order{
		ID: 5001, UID: 301, Symbol: 241, Side: common.Bid,
		Price: 15_400, Budget: 15_600, Size: 12, Remaining: 12,
	}
	require.NoError(t, e.ReleaseRemainder(spec, o, 12))

	acct, err := l.Account(301)
	require.NoError(t, err)
	assert.Zero(t, acct.Reserved(ltc))
	assert.Equal(t, int64(2_000_000_000), acct.Available(ltc))
}
