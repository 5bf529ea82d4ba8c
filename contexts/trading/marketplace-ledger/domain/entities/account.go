package entities

import (
	"time"

	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"

	"github.com/shopspring/decimal"
)

// Account is a principal's spendable balance held by the ledger.
// Escrowed offer funds are not part of any account until refunded or paid out.
type Account struct {
	Principal string
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

func (a Account) Credit(amount decimal.Decimal, at time.Time) Account {
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = at.UTC()
	return a
}

func (a Account) Debit(amount decimal.Decimal, at time.Time) (Account, error) {
	if a.Balance.LessThan(amount) {
		return a, domainerrors.ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = at.UTC()
	return a, nil
}

// EscrowSummary reports funds held on behalf of pending offers.
type EscrowSummary struct {
	Total         decimal.Decimal
	PendingOffers int
}
