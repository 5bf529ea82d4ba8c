package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/domain/services"
	"bazaar/contexts/trading/marketplace-ledger/ports"

	"github.com/shopspring/decimal"
)

type ListAssetCommand struct {
	Caller         string
	AssetID        int64
	Price          decimal.Decimal
	IdempotencyKey string
}

type ListAssetResult struct {
	Listing  entities.Listing
	Replayed bool `json:"-"`
}

type ListAssetUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute puts an owned, unlisted asset up for sale at a fixed price.
func (u ListAssetUseCase) Execute(ctx context.Context, cmd ListAssetCommand) (ListAssetResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.Caller) == "" {
		return ListAssetResult{}, domainerrors.ErrInvalidPrincipal
	}
	now := resolveNow(u.Clock)
	requestHash := hashRequest("list_asset", cmd.Caller, strconv.FormatInt(cmd.AssetID, 10), cmd.Price.String())

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey, requestHash, now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *ListAssetResult) error {
			asset, err := tx.GetAsset(ctx, cmd.AssetID)
			if err != nil {
				return err
			}
			_, listed, err := tx.FindListingByAsset(ctx, cmd.AssetID)
			if err != nil {
				return err
			}
			if err := services.EvaluateListing(asset, cmd.Caller, cmd.Price, listed); err != nil {
				return err
			}

			listingID, err := tx.NextListingID(ctx)
			if err != nil {
				return err
			}
			listing, err := entities.NewListing(listingID, asset, cmd.Price, now)
			if err != nil {
				return err
			}
			if err := tx.PutListing(ctx, listing); err != nil {
				return err
			}
			out.Listing = listing
			return nil
		})
	if err != nil {
		logger.Warn("list asset rejected",
			"event", "marketplace_list_asset_rejected",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"caller", cmd.Caller,
			"asset_id", cmd.AssetID,
			"error", err.Error(),
		)
		return ListAssetResult{}, err
	}
	result.Replayed = replayed

	logger.Info("asset listed for sale",
		"event", "marketplace_asset_listed",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"asset_id", result.Listing.AssetID,
		"seller", result.Listing.Seller,
		"price", result.Listing.Price.String(),
	)
	return result, nil
}
