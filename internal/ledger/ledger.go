// Package ledger tracks per-user, per-currency balances and reservations,
// plus the operator's collected fees. It is a pure data structure: the risk
// engine is the only caller and invokes it from the single pipeline writer.
//
// The holding invariant is available = balance - reserved >= 0. Validation
// failures surface as sentinel errors; a primitive that would drive either
// number negative outside validation indicates a broken invariant upstream
// and is returned as ErrInvariant so the pipeline can halt.
package ledger

import (
	"errors"

	"gungnir/internal/common"
)

var (
	ErrDuplicateUser        = errors.New("account already exists")
	ErrUnknownUser          = errors.New("account does not exist")
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrDuplicateTransaction = errors.New("transaction id already applied")
	ErrInvariant            = errors.New("ledger invariant violation")
)

// Account is one user's holdings across all currencies.
type Account struct {
	UID       common.UserID
	balances  map[common.CurrencyID]int64
	reserved  map[common.CurrencyID]int64
	appliedTx map[int64]struct{}
}

func (a *Account) Balance(c common.CurrencyID) int64  { return a.balances[c] }
func (a *Account) Reserved(c common.CurrencyID) int64 { return a.reserved[c] }

// Available is the spendable part of a balance: total minus reservations.
func (a *Account) Available(c common.CurrencyID) int64 {
	return a.balances[c] - a.reserved[c]
}

// Adjust applies a signed delta to one balance, all-or-nothing. The txID is
// the caller's idempotency token: a repeat of an already-applied id is
// rejected without effect.
func (a *Account) Adjust(c common.CurrencyID, amount, txID int64) error {
	if _, seen := a.appliedTx[txID]; seen {
		return ErrDuplicateTransaction
	}
	if a.balances[c]+amount-a.reserved[c] < 0 {
		return ErrInsufficientFunds
	}
	a.balances[c] += amount
	a.appliedTx[txID] = struct{}{}
	return nil
}

// Reserve earmarks amount of currency c for a resting order.
func (a *Account) Reserve(c common.CurrencyID, amount int64) error {
	if a.Available(c) < amount {
		return ErrInsufficientFunds
	}
	a.reserved[c] += amount
	return nil
}

// Release returns a previously earmarked amount to the available balance.
func (a *Account) Release(c common.CurrencyID, amount int64) error {
	if a.reserved[c] < amount {
		return ErrInvariant
	}
	a.reserved[c] -= amount
	return nil
}

// Settle consumes a fill on the paying side: debit leaves the balance while
// release frees the matching reservation. Any difference between the two
// returns to the available balance (e.g. a bid reserved at its budget price
// but filled at a better maker price).
func (a *Account) Settle(c common.CurrencyID, debit, release int64) error {
	if a.reserved[c] < release || a.balances[c] < debit {
		return ErrInvariant
	}
	a.balances[c] -= debit
	a.reserved[c] -= release
	return nil
}

// Credit adds proceeds of a fill to the receiving side.
func (a *Account) Credit(c common.CurrencyID, amount int64) {
	a.balances[c] += amount
}

// Ledger is the full account book plus the operator fee accumulator.
type Ledger struct {
	accounts map[common.UserID]*Account
	fees     map[common.CurrencyID]int64
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[common.UserID]*Account),
		fees:     make(map[common.CurrencyID]int64),
	}
}

func (l *Ledger) Open(uid common.UserID) error {
	if _, ok := l.accounts[uid]; ok {
		return ErrDuplicateUser
	}
	l.accounts[uid] = &Account{
		UID:       uid,
		balances:  make(map[common.CurrencyID]int64),
		reserved:  make(map[common.CurrencyID]int64),
		appliedTx: make(map[int64]struct{}),
	}
	return nil
}

func (l *Ledger) Account(uid common.UserID) (*Account, error) {
	a, ok := l.accounts[uid]
	if !ok {
		return nil, ErrUnknownUser
	}
	return a, nil
}

// AccrueFee routes a trade fee to the operator.
func (l *Ledger) AccrueFee(c common.CurrencyID, amount int64) {
	l.fees[c] += amount
}

func (l *Ledger) Fees(c common.CurrencyID) int64 { return l.fees[c] }

// Position is a point-in-time copy of one currency holding.
type Position struct {
	Balance  int64
	Reserved int64
}

// Positions snapshots one account's non-zero holdings.
func (l *Ledger) Positions(uid common.UserID) (map[common.CurrencyID]Position, error) {
	a, err := l.Account(uid)
	if err != nil {
		return nil, err
	}
	out := make(map[common.CurrencyID]Position)
	for c, bal := range a.balances {
		if bal != 0 || a.reserved[c] != 0 {
			out[c] = Position{Balance: bal, Reserved: a.reserved[c]}
		}
	}
	for c, res := range a.reserved {
		if _, ok := out[c]; !ok && res != 0 {
			out[c] = Position{Balance: a.balances[c], Reserved: res}
		}
	}
	return out, nil
}

// Totals aggregates balances, reservations and fees per currency across the
// whole exchange. The sum of balances plus fees per currency equals the net
// deposits in that currency; that equality is the conservation invariant.
func (l *Ledger) Totals() (balances, reserved, fees map[common.CurrencyID]int64) {
	balances = make(map[common.CurrencyID]int64)
	reserved = make(map[common.CurrencyID]int64)
	fees = make(map[common.CurrencyID]int64)
	for _, a := range l.accounts {
		for c, v := range a.balances {
			balances[c] += v
		}
		for c, v := range a.reserved {
			reserved[c] += v
		}
	}
	for c, v := range l.fees {
		fees[c] = v
	}
	return balances, reserved, fees
}
