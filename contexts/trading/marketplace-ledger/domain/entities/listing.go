package entities

import (
	"time"

	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"

	"github.com/shopspring/decimal"
)

// Offer is the escrowed bid occupying a listing's best-offer slot.
type Offer struct {
	Initiator string
	Amount    decimal.Decimal
	PlacedAt  time.Time
}

// Listing is an asset's for-sale state ("lot"). A listing exists only while
// the asset is for sale; it is deleted when the asset is bought or an offer
// is accepted.
type Listing struct {
	ListingID int64
	AssetID   int64
	Seller    string
	Price     decimal.Decimal
	BestOffer *Offer
	ListedAt  time.Time
}

func NewListing(listingID int64, asset Asset, price decimal.Decimal, listedAt time.Time) (Listing, error) {
	if !price.IsPositive() {
		return Listing{}, domainerrors.ErrInvalidPrice
	}
	return Listing{
		ListingID: listingID,
		AssetID:   asset.AssetID,
		Seller:    asset.Owner,
		Price:     price,
		ListedAt:  listedAt.UTC(),
	}, nil
}

func (l Listing) HasOffer() bool {
	return l.BestOffer != nil
}

// BestOfferAmount is zero when no offer is pending.
func (l Listing) BestOfferAmount() decimal.Decimal {
	if l.BestOffer == nil {
		return decimal.Zero
	}
	return l.BestOffer.Amount
}

func (l Listing) BestOfferInitiator() string {
	if l.BestOffer == nil {
		return ""
	}
	return l.BestOffer.Initiator
}

// WithOffer replaces the best offer. The receiver is left untouched.
func (l Listing) WithOffer(offer Offer) Listing {
	placed := offer
	placed.PlacedAt = offer.PlacedAt.UTC()
	l.BestOffer = &placed
	return l
}

// Clone detaches the best-offer pointer so callers cannot mutate stored state.
func (l Listing) Clone() Listing {
	if l.BestOffer != nil {
		offer := *l.BestOffer
		l.BestOffer = &offer
	}
	return l
}
