package services

import (
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"

	"github.com/shopspring/decimal"
)

// EvaluateListing enforces ownership, positive price and single active listing.
func EvaluateListing(asset entities.Asset, caller string, price decimal.Decimal, alreadyListed bool) error {
	if asset.Owner != caller {
		return domainerrors.ErrNotOwner
	}
	if alreadyListed {
		return domainerrors.ErrAlreadyListed
	}
	if !price.IsPositive() {
		return domainerrors.ErrInvalidPrice
	}
	return nil
}

// EvaluatePurchase requires the exact listing price. A seller may buy back
// their own listing; the payment nets out and the listing closes.
func EvaluatePurchase(listing entities.Listing, payment decimal.Decimal) error {
	if !payment.Equal(listing.Price) {
		return domainerrors.ErrWrongPayment
	}
	return nil
}

// EvaluateOffer requires a strictly higher amount than the pending best offer.
// Offers above the listing price are allowed.
func EvaluateOffer(listing entities.Listing, caller string, payment decimal.Decimal) error {
	if listing.Seller == caller {
		return domainerrors.ErrSelfTrade
	}
	if !payment.IsPositive() {
		return domainerrors.ErrOfferTooLow
	}
	if !payment.GreaterThan(listing.BestOfferAmount()) {
		return domainerrors.ErrOfferTooLow
	}
	return nil
}

func EvaluateAcceptance(listing entities.Listing, caller string) error {
	if listing.Seller != caller {
		return domainerrors.ErrNotSeller
	}
	if !listing.HasOffer() {
		return domainerrors.ErrNoOffer
	}
	return nil
}

// SpendableFor returns what caller can commit to a new offer on listing.
// A caller raising their own pending offer gets the refund counted first.
func SpendableFor(listing entities.Listing, caller string, balance decimal.Decimal) decimal.Decimal {
	if listing.BestOffer != nil && listing.BestOffer.Initiator == caller {
		return balance.Add(listing.BestOffer.Amount)
	}
	return balance
}
