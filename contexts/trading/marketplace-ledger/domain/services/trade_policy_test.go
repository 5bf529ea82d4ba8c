package services

import (
	"errors"
	"testing"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"

	"github.com/shopspring/decimal"
)

func testListing(t *testing.T, price int64) entities.Listing {
	t.Helper()
	asset, err := entities.NewAsset(0, "seller", time.Now())
	if err != nil {
		t.Fatalf("new asset: %v", err)
	}
	listing, err := entities.NewListing(0, asset, decimal.NewFromInt(price), time.Now())
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	return listing
}

func TestEvaluateListingRules(t *testing.T) {
	asset, _ := entities.NewAsset(3, "owner", time.Now())

	if err := EvaluateListing(asset, "stranger", decimal.NewFromInt(1), false); !errors.Is(err, domainerrors.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := EvaluateListing(asset, "owner", decimal.NewFromInt(1), true); !errors.Is(err, domainerrors.ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
	if err := EvaluateListing(asset, "owner", decimal.Zero, false); !errors.Is(err, domainerrors.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if err := EvaluateListing(asset, "owner", decimal.NewFromInt(-4), false); !errors.Is(err, domainerrors.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for negative price, got %v", err)
	}
	if err := EvaluateListing(asset, "owner", decimal.NewFromInt(3), false); err != nil {
		t.Fatalf("expected valid listing, got %v", err)
	}
}

func TestEvaluatePurchaseRequiresExactPrice(t *testing.T) {
	listing := testListing(t, 3)

	if err := EvaluatePurchase(listing, decimal.NewFromInt(2)); !errors.Is(err, domainerrors.ErrWrongPayment) {
		t.Fatalf("expected ErrWrongPayment for underpayment, got %v", err)
	}
	if err := EvaluatePurchase(listing, decimal.NewFromInt(4)); !errors.Is(err, domainerrors.ErrWrongPayment) {
		t.Fatalf("expected ErrWrongPayment for overpayment, got %v", err)
	}
	if err := EvaluatePurchase(listing, decimal.RequireFromString("3.000")); err != nil {
		t.Fatalf("expected numerically equal payment to pass, got %v", err)
	}
}

func TestEvaluateOfferStrictlyHigher(t *testing.T) {
	listing := testListing(t, 1)

	if err := EvaluateOffer(listing, "bidder", decimal.Zero); !errors.Is(err, domainerrors.ErrOfferTooLow) {
		t.Fatalf("expected ErrOfferTooLow for zero first offer, got %v", err)
	}
	// offers above the listing price are accepted
	if err := EvaluateOffer(listing, "bidder", decimal.NewFromInt(5)); err != nil {
		t.Fatalf("expected first offer to pass, got %v", err)
	}

	listing = listing.WithOffer(entities.Offer{Initiator: "bidder", Amount: decimal.NewFromInt(5)})
	if err := EvaluateOffer(listing, "rival", decimal.NewFromInt(5)); !errors.Is(err, domainerrors.ErrOfferTooLow) {
		t.Fatalf("expected ErrOfferTooLow for equal offer, got %v", err)
	}
	if err := EvaluateOffer(listing, "rival", decimal.NewFromInt(6)); err != nil {
		t.Fatalf("expected higher offer to pass, got %v", err)
	}
	if err := EvaluateOffer(listing, "seller", decimal.NewFromInt(9)); !errors.Is(err, domainerrors.ErrSelfTrade) {
		t.Fatalf("expected ErrSelfTrade, got %v", err)
	}
}

func TestEvaluateAcceptance(t *testing.T) {
	listing := testListing(t, 1)

	if err := EvaluateAcceptance(listing, "seller"); !errors.Is(err, domainerrors.ErrNoOffer) {
		t.Fatalf("expected ErrNoOffer, got %v", err)
	}
	listing = listing.WithOffer(entities.Offer{Initiator: "bidder", Amount: decimal.NewFromInt(2)})
	if err := EvaluateAcceptance(listing, "bidder"); !errors.Is(err, domainerrors.ErrNotSeller) {
		t.Fatalf("expected ErrNotSeller, got %v", err)
	}
	if err := EvaluateAcceptance(listing, "seller"); err != nil {
		t.Fatalf("expected acceptance to pass, got %v", err)
	}
}

func TestSpendableForCountsOwnPendingOffer(t *testing.T) {
	listing := testListing(t, 10).WithOffer(entities.Offer{Initiator: "bidder", Amount: decimal.NewFromInt(4)})

	if got := SpendableFor(listing, "bidder", decimal.NewFromInt(1)); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 spendable, got %s", got)
	}
	if got := SpendableFor(listing, "rival", decimal.NewFromInt(1)); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1 spendable, got %s", got)
	}
}
