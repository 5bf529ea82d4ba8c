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

type MakeOfferCommand struct {
	Caller         string
	ListingID      int64
	Payment        decimal.Decimal
	IdempotencyKey string
}

type MakeOfferResult struct {
	Listing entities.Listing
	// Superseded is the previous best offer, refunded in full.
	Superseded *entities.Offer
	Replayed   bool `json:"-"`
}

type MakeOfferUseCase struct {
	Ledger         ports.LedgerRepository
	Clock          ports.Clock
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute escrows a strictly higher offer. The superseded offer is refunded
// inside the same transaction before the new amount is taken, so there is no
// point where both or neither are held.
func (u MakeOfferUseCase) Execute(ctx context.Context, cmd MakeOfferCommand) (MakeOfferResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.Caller) == "" {
		return MakeOfferResult{}, domainerrors.ErrInvalidPrincipal
	}
	now := resolveNow(u.Clock)
	requestHash := hashRequest("make_offer", cmd.Caller, strconv.FormatInt(cmd.ListingID, 10), cmd.Payment.String())

	result, replayed, err := withIdempotency(ctx, u.Ledger, cmd.IdempotencyKey, requestHash, now, u.IdempotencyTTL,
		func(ctx context.Context, tx ports.LedgerTx, out *MakeOfferResult) error {
			listing, err := tx.GetListing(ctx, cmd.ListingID)
			if err != nil {
				return err
			}
			if err := services.EvaluateOffer(listing, cmd.Caller, cmd.Payment); err != nil {
				return err
			}
			bidder, err := tx.GetAccount(ctx, cmd.Caller)
			if err != nil {
				return err
			}
			if services.SpendableFor(listing, cmd.Caller, bidder.Balance).LessThan(cmd.Payment) {
				return domainerrors.ErrInsufficientFunds
			}

			if listing.HasOffer() {
				superseded := *listing.BestOffer
				if err := refundOffer(ctx, tx, superseded, now); err != nil {
					return err
				}
				out.Superseded = &superseded
			}

			// Re-read: the refund may have credited the bidder.
			bidder, err = tx.GetAccount(ctx, cmd.Caller)
			if err != nil {
				return err
			}
			bidder, err = bidder.Debit(cmd.Payment, now)
			if err != nil {
				return err
			}
			if err := tx.PutAccount(ctx, bidder); err != nil {
				return err
			}
			if err := tx.AdjustEscrow(ctx, cmd.Payment); err != nil {
				return err
			}

			listing = listing.WithOffer(entities.Offer{
				Initiator: cmd.Caller,
				Amount:    cmd.Payment,
				PlacedAt:  now,
			})
			if err := tx.PutListing(ctx, listing); err != nil {
				return err
			}
			out.Listing = listing
			return nil
		})
	if err != nil {
		logger.Warn("make offer rejected",
			"event", "marketplace_offer_rejected",
			"module", "trading/marketplace-ledger",
			"layer", "application",
			"caller", cmd.Caller,
			"listing_id", cmd.ListingID,
			"error", err.Error(),
		)
		return MakeOfferResult{}, err
	}
	result.Replayed = replayed

	logger.Info("offer placed",
		"event", "marketplace_offer_placed",
		"module", "trading/marketplace-ledger",
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"initiator", cmd.Caller,
		"amount", cmd.Payment.String(),
		"superseded", result.Superseded != nil,
	)
	return result, nil
}
