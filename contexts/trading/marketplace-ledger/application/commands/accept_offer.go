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
)

type AcceptOfferCommand struct {
	Caller         string
	ListingID      int64
	IdempotencyKey string
}

type AcceptOfferResult struct {
	Listing  entities.Listing
	Asset    entities.Asset
	Accepted entities.Offer
	Replayed bool `json:"-"`
}

type AcceptOfferUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute settles the pending best offer: the escrowed amount goes to the
// seller (regardless of the listing price) and the asset to the offerer.
func (u AcceptOfferUseCase) Execute(ctx context.Context, cmd AcceptOfferCommand) (AcceptOfferResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.Caller) == "" {
		return AcceptOfferResult{}, domainerrors.ErrInvalidPrincipal
	}
	now := resolveNow(u.Clock)
	requestHash := hashRequest("accept_offer", cmd.Caller, strconv.FormatInt(cmd.ListingID, 10))

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey, requestHash, now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *AcceptOfferResult) error {
			listing, err := tx.GetListing(ctx, cmd.ListingID)
			if err != nil {
				return err
			}
			if err := services.EvaluateAcceptance(listing, cmd.Caller); err != nil {
				return err
			}
			asset, err := tx.GetAsset(ctx, listing.AssetID)
			if err != nil {
				return err
			}
			if asset.Owner != listing.Seller {
				return domainerrors.ErrRepositoryInvariantBroke
			}

			offer := *listing.BestOffer
			if err := tx.AdjustEscrow(ctx, offer.Amount.Neg()); err != nil {
				return err
			}
			if err := creditAccount(ctx, tx, listing.Seller, offer.Amount, now); err != nil {
				return err
			}
			asset = asset.TransferTo(offer.Initiator, now)
			if err := tx.PutAsset(ctx, asset); err != nil {
				return err
			}
			if err := tx.DeleteListing(ctx, listing.ListingID); err != nil {
				return err
			}

			envelope, err := buildEnvelope(ctx, u.IDGenerator, contractsv1.EventTypeOfferAccepted, asset.AssetID,
				contractsv1.OfferAcceptedData{
					ListingID: listing.ListingID,
					AssetID:   asset.AssetID,
					Buyer:     offer.Initiator,
					Seller:    listing.Seller,
					Amount:    offer.Amount.String(),
				}, now)
			if err != nil {
				return err
			}
			if err := tx.AppendOutbox(ctx, envelope); err != nil {
				return err
			}

			out.Listing = listing
			out.Asset = asset
			out.Accepted = offer
			return nil
		})
	if err != nil {
		logger.Warn("accept offer rejected",
			"event", "marketplace_accept_rejected",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"caller", cmd.Caller,
			"listing_id", cmd.ListingID,
			"error", err.Error(),
		)
		return AcceptOfferResult{}, err
	}
	result.Replayed = replayed

	logger.Info("offer accepted",
		"event", "marketplace_offer_accepted",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"asset_id", result.Asset.AssetID,
		"seller", result.Listing.Seller,
		"buyer", result.Accepted.Initiator,
		"amount", result.Accepted.Amount.String(),
	)
	return result, nil
}
