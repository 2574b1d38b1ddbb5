package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/common"
)

const (
	xbt common.CurrencyID = 11
	ltc common.CurrencyID = 15
)

func openAccount(t *testing.T, l *Ledger, uid common.UserID) *Account {
	t.Helper()
	require.NoError(t, l.Open(uid))
	acct, err := l.Account(uid)
	require.NoError(t, err)
	return acct
}

func TestOpen_RejectsDuplicate(t *testing.T) {
	l := New()
	assert.NoError(t, l.Open(301))
	assert.ErrorIs(t, l.Open(301), ErrDuplicateUser)

	_, err := l.Account(302)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestAdjust(t *testing.T) {
	l := New()
	acct := openAccount(t, l, 301)

	assert.NoError(t, acct.Adjust(ltc, 1000, 1))
	assert.Equal(t, int64(1000), acct.Balance(ltc))
	assert.Equal(t, int64(1000), acct.Available(ltc))

	// Withdrawals beyond the available balance are atomic rejects.
	assert.ErrorIs(t, acct.Adjust(ltc, -1500, 2), ErrInsufficientFunds)
	assert.Equal(t, int64(1000), acct.Balance(ltc))

	assert.NoError(t, acct.Adjust(ltc, -1000, 3))
	assert.Zero(t, acct.Balance(ltc))
}

func TestAdjust_DeduplicatesTransactionID(t *testing.T) {
	l := New()
	acct := openAccount(t, l, 301)

	assert.NoError(t, acct.Adjust(ltc, 500, 42))
	assert.ErrorIs(t, acct.Adjust(ltc, 500, 42), ErrDuplicateTransaction)
	assert.Equal(t, int64(500), acct.Balance(ltc), "replayed adjustment must not apply")

	// A rejected adjustment does not burn its transaction id.
	assert.ErrorIs(t, acct.Adjust(ltc, -900, 43), ErrInsufficientFunds)
	assert.NoError(t, acct.Adjust(ltc, -500, 43))
}

func TestReserveRelease(t *testing.T) {
	l := New()
	acct := openAccount(t, l, 301)
	require.NoError(t, acct.Adjust(ltc, 1000, 1))

	assert.NoError(t, acct.Reserve(ltc, 700))
	assert.Equal(t, int64(1000), acct.Balance(ltc))
	assert.Equal(t, int64(700), acct.Reserved(ltc))
	assert.Equal(t, int64(300), acct.Available(ltc))

	// Reserved funds are not spendable.
	assert.ErrorIs(t, acct.Reserve(ltc, 400), ErrInsufficientFunds)
	assert.ErrorIs(t, acct.Adjust(ltc, -400, 2), ErrInsufficientFunds)

	assert.NoError(t, acct.Release(ltc, 700))
	assert.Equal(t, int64(1000), acct.Available(ltc))

	// Over-release is an invariant violation, not a silent negative.
	assert.ErrorIs(t, acct.Release(ltc, 1), ErrInvariant)
}

func TestSettle(t *testing.T) {
	l := New()
	acct := openAccount(t, l, 301)
	require.NoError(t, acct.Adjust(ltc, 1000, 1))
	require.NoError(t, acct.Reserve(ltc, 700))

	// Debit less than the release: the surplus returns to available.
	assert.NoError(t, acct.Settle(ltc, 600, 700))
	assert.Equal(t, int64(400), acct.Balance(ltc))
	assert.Zero(t, acct.Reserved(ltc))

	assert.ErrorIs(t, acct.Settle(ltc, 100, 100), ErrInvariant)
}

func TestTotals(t *testing.T) {
	l := New()
	a := openAccount(t, l, 301)
	b := openAccount(t, l, 302)
	require.NoError(t, a.Adjust(ltc, 1000, 1))
	require.NoError(t, b.Adjust(ltc, 500, 1))
	require.NoError(t, b.Adjust(xbt, 900, 2))
	require.NoError(t, b.Reserve(xbt, 250))
	l.AccrueFee(ltc, 26)

	balances, reserved, fees := l.Totals()
	assert.Equal(t, int64(1500), balances[ltc])
	assert.Equal(t, int64(900), balances[xbt])
	assert.Equal(t, int64(250), reserved[xbt])
	assert.Equal(t, int64(26), fees[ltc])
	assert.Equal(t, int64(26), l.Fees(ltc))
}

func TestPositions(t *testing.T) {
	l := New()
	a := openAccount(t, l, 301)
	require.NoError(t, a.Adjust(ltc, 1000, 1))
	require.NoError(t, a.Reserve(ltc, 300))

	positions, err := l.Positions(301)
	assert.NoError(t, err)
	assert.Equal(t, map[common.CurrencyID]Position{
		ltc: {Balance: 1000, Reserved: 300},
	}, positions)

	_, err = l.Positions(999)
	assert.ErrorIs(t, err, ErrUnknownUser)
}
