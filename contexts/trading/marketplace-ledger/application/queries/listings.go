package queries

import (
	"context"
	"log/slog"
	"strings"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"
)

type GetListingQuery struct {
	ListingID int64
}

type GetListingResult struct {
	Listing entities.Listing
}

type GetListingUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u GetListingUseCase) Execute(ctx context.Context, query GetListingQuery) (GetListingResult, error) {
	listing, err := u.Ledger.GetListing(ctx, query.ListingID)
	if err != nil {
		return GetListingResult{}, err
	}
	return GetListingResult{Listing: listing}, nil
}

type ListListingsBySellerQuery struct {
	Seller string
}

type ListListingsBySellerResult struct {
	Items []entities.Listing
}

type ListListingsBySellerUseCase struct {
	Ledger ports.LedgerReader
	Logger *slog.Logger
}

func (u ListListingsBySellerUseCase) Execute(ctx context.Context, query ListListingsBySellerQuery) (ListListingsBySellerResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(query.Seller) == "" {
		return ListListingsBySellerResult{}, domainerrors.ErrInvalidPrincipal
	}

	items, err := u.Ledger.ListListingsBySeller(ctx, query.Seller)
	if err != nil {
		logger.Error("list listings by seller failed",
			"event", "marketplace_list_listings_failed",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"seller", query.Seller,
			"error", err.Error(),
		)
		return ListListingsBySellerResult{}, err
	}
	return ListListingsBySellerResult{Items: items}, nil
}
