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
	contractsv1 "bazaar/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

type BuyAssetCommand struct {
	Caller         string
	ListingID      int64
	Payment        decimal.Decimal
	IdempotencyKey string
}

type BuyAssetResult struct {
	Listing  entities.Listing
	Asset    entities.Asset
	Refunded *entities.Offer
	Replayed bool `json:"-"`
}

type BuyAssetUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute runs the buy-now workflow in one ledger transaction:
// 1) validate listing, exact payment and buyer funds
// 2) refund the pending best offer, if any
// 3) pay the seller and hand the asset to the buyer
// 4) remove the listing and stage marketplace.active_sold.
func (u BuyAssetUseCase) Execute(ctx context.Context, cmd BuyAssetCommand) (BuyAssetResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.Caller) == "" {
		return BuyAssetResult{}, domainerrors.ErrInvalidPrincipal
	}
	now := resolveNow(u.Clock)
	requestHash := hashRequest("buy_asset", cmd.Caller, strconv.FormatInt(cmd.ListingID, 10), cmd.Payment.String())

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey, requestHash, now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *BuyAssetResult) error {
			listing, err := tx.GetListing(ctx, cmd.ListingID)
			if err != nil {
				return err
			}
			if err := services.EvaluatePurchase(listing, cmd.Payment); err != nil {
				return err
			}
			asset, err := tx.GetAsset(ctx, listing.AssetID)
			if err != nil {
				return err
			}
			if asset.Owner != listing.Seller {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			buyer, err := tx.GetAccount(ctx, cmd.Caller)
			if err != nil {
				return err
			}
			buyer, err = buyer.Debit(cmd.Payment, now)
			if err != nil {
				return err
			}

			// All preconditions hold; apply effects.
			if err := tx.PutAccount(ctx, buyer); err != nil {
				return err
			}
			if listing.HasOffer() {
				refunded := *listing.BestOffer
				if err := refundOffer(ctx, tx, refunded, now); err != nil {
					return err
				}
				out.Refunded = &refunded
			}
			if err := creditAccount(ctx, tx, listing.Seller, cmd.Payment, now); err != nil {
				return err
			}

			asset = asset.TransferTo(cmd.Caller, now)
			if err := tx.PutAsset(ctx, asset); err != nil {
				return err
			}
			if err := tx.DeleteListing(ctx, listing.ListingID); err != nil {
				return err
			}

			envelope, err := buildEnvelope(ctx, u.IDGenerator, contractsv1.EventTypeActiveSold, asset.AssetID,
				contractsv1.ActiveSoldData{
					ListingID: listing.ListingID,
					AssetID:   asset.AssetID,
					Buyer:     cmd.Caller,
					Seller:    listing.Seller,
					Price:     cmd.Payment.String(),
				}, now)
			if err != nil {
				return err
			}
			if err := tx.AppendOutbox(ctx, envelope); err != nil {
				return err
			}

			out.Listing = listing
			out.Asset = asset
			return nil
		})
	if err != nil {
		logger.Warn("buy asset rejected",
			"event", "marketplace_buy_rejected",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"caller", cmd.Caller,
			"listing_id", cmd.ListingID,
			"error", err.Error(),
		)
		return BuyAssetResult{}, err
	}
	result.Replayed = replayed

	logger.Info("asset sold",
		"event", "marketplace_active_sold",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"asset_id", result.Asset.AssetID,
		"buyer", cmd.Caller,
		"seller", result.Listing.Seller,
		"price", result.Listing.Price.String(),
		"offer_refunded", result.Refunded != nil,
	)
	return result, nil
}

// refundOffer releases an escrowed offer back to its initiator.
func refundOffer(ctx context.Context, tx ports.LedgerTx, offer entities.Offer, now time.Time) error {
	if err := tx.AdjustEscrow(ctx, offer.Amount.Neg()); err != nil {
		return err
	}
	return creditAccount(ctx, tx, offer.Initiator, offer.Amount, now)
}

func creditAccount(ctx context.Context, tx ports.LedgerTx, principal string, amount decimal.Decimal, now time.Time) error {
	account, err := tx.GetAccount(ctx, principal)
	if err != nil {
		return err
	}
	return tx.PutAccount(ctx, account.Credit(amount, now))
}
