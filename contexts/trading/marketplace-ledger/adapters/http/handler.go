package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/application/commands"
	"bazaar/contexts/trading/marketplace-ledger/application/queries"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	httptransport "bazaar/contexts/trading/marketplace-ledger/transport/http"

	"github.com/shopspring/decimal"
)

type Handler struct {
	CreateAsset       commands.CreateAssetUseCase
	ListAsset         commands.ListAssetUseCase
	BuyAsset          commands.BuyAssetUseCase
	MakeOffer         commands.MakeOfferUseCase
	AcceptOffer       commands.AcceptOfferUseCase
	Deposit           commands.DepositUseCase
	Withdraw          commands.WithdrawUseCase
	GetAsset          queries.GetAssetUseCase
	ListAssetsByOwner queries.ListAssetsByOwnerUseCase
	GetListing        queries.GetListingUseCase
	ListListings      queries.ListListingsBySellerUseCase
	GetAccount        queries.GetAccountUseCase
	GetEscrow         queries.GetEscrowUseCase
	Logger            *slog.Logger
}

// CreateAssetHandler godoc
// @Summary Create an asset
// @Description Registers a new asset owned by the caller.
// @Tags marketplace-ledger
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Success 201 {object} httptransport.CreateAssetResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/assets [post]
func (h Handler) CreateAssetHandler(ctx context.Context, userID string, idempotencyKey string) (httptransport.CreateAssetResponse, error) {
	result, err := h.CreateAsset.Execute(ctx, commands.CreateAssetCommand{
		Caller:         userID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.CreateAssetResponse{}, err
	}
	return httptransport.CreateAssetResponse{
		Item:     mapAsset(result.Asset),
		Replayed: result.Replayed,
	}, nil
}

// GetAssetHandler godoc
// @Summary Get an asset
// @Description Returns one asset with its current owner.
// @Tags marketplace-ledger
// @Produce json
// @Param asset_id path int true "Asset id"
// @Success 200 {object} httptransport.GetAssetResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/assets/{asset_id} [get]
func (h Handler) GetAssetHandler(ctx context.Context, assetID int64) (httptransport.GetAssetResponse, error) {
	result, err := h.GetAsset.Execute(ctx, queries.GetAssetQuery{AssetID: assetID})
	if err != nil {
		return httptransport.GetAssetResponse{}, err
	}
	return httptransport.GetAssetResponse{Item: mapAsset(result.Asset)}, nil
}

// ListAssetsByOwnerHandler godoc
// @Summary List an owner's assets
// @Description Returns assets owned by owner_id in acquisition order.
// @Tags marketplace-ledger
// @Produce json
// @Param owner_id path string true "Owner principal"
// @Success 200 {object} httptransport.ListAssetsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/owners/{owner_id}/assets [get]
func (h Handler) ListAssetsByOwnerHandler(ctx context.Context, owner string) (httptransport.ListAssetsResponse, error) {
	result, err := h.ListAssetsByOwner.Execute(ctx, queries.ListAssetsByOwnerQuery{Owner: owner})
	if err != nil {
		return httptransport.ListAssetsResponse{}, err
	}
	items := make([]httptransport.AssetDTO, 0, len(result.Items))
	for _, asset := range result.Items {
		items = append(items, mapAsset(asset))
	}
	return httptransport.ListAssetsResponse{Items: items}, nil
}

// ListAssetHandler godoc
// @Summary List an asset for sale
// @Description Creates a fixed-price listing for an asset the caller owns.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param asset_id path int true "Asset id"
// @Param request body httptransport.ListAssetRequest true "Listing payload"
// @Success 201 {object} httptransport.ListAssetResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/assets/{asset_id}/listings [post]
func (h Handler) ListAssetHandler(
	ctx context.Context,
	userID string,
	assetID int64,
	req httptransport.ListAssetRequest,
	idempotencyKey string,
) (httptransport.ListAssetResponse, error) {
	price, err := parseAmount(req.Price, domainerrors.ErrInvalidPrice)
	if err != nil {
		return httptransport.ListAssetResponse{}, err
	}
	result, err := h.ListAsset.Execute(ctx, commands.ListAssetCommand{
		Caller:         userID,
		AssetID:        assetID,
		Price:          price,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ListAssetResponse{}, err
	}
	return httptransport.ListAssetResponse{
		Item:     mapListing(result.Listing),
		Replayed: result.Replayed,
	}, nil
}

// GetListingHandler godoc
// @Summary Get a listing
// @Description Returns one active listing with its best offer.
// @Tags marketplace-ledger
// @Produce json
// @Param listing_id path int true "Listing id"
// @Success 200 {object} httptransport.GetListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{listing_id} [get]
func (h Handler) GetListingHandler(ctx context.Context, listingID int64) (httptransport.GetListingResponse, error) {
	result, err := h.GetListing.Execute(ctx, queries.GetListingQuery{ListingID: listingID})
	if err != nil {
		return httptransport.GetListingResponse{}, err
	}
	return httptransport.GetListingResponse{Item: mapListing(result.Listing)}, nil
}

// ListListingsBySellerHandler godoc
// @Summary List a seller's active listings
// @Tags marketplace-ledger
// @Produce json
// @Param seller_id path string true "Seller principal"
// @Success 200 {object} httptransport.ListListingsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/sellers/{seller_id}/listings [get]
func (h Handler) ListListingsBySellerHandler(ctx context.Context, seller string) (httptransport.ListListingsResponse, error) {
	result, err := h.ListListings.Execute(ctx, queries.ListListingsBySellerQuery{Seller: seller})
	if err != nil {
		return httptransport.ListListingsResponse{}, err
	}
	items := make([]httptransport.ListingDTO, 0, len(result.Items))
	for _, listing := range result.Items {
		items = append(items, mapListing(listing))
	}
	return httptransport.ListListingsResponse{Items: items}, nil
}

// BuyAssetHandler godoc
// @Summary Buy a listed asset
// @Description Pays exactly the listing price; any pending offer is refunded.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param listing_id path int true "Listing id"
// @Param request body httptransport.PaymentRequest true "Payment"
// @Success 200 {object} httptransport.BuyAssetResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{listing_id}/buy [post]
func (h Handler) BuyAssetHandler(
	ctx context.Context,
	userID string,
	listingID int64,
	req httptransport.PaymentRequest,
	idempotencyKey string,
) (httptransport.BuyAssetResponse, error) {
	payment, err := parseAmount(req.Payment, domainerrors.ErrInvalidAmount)
	if err != nil {
		return httptransport.BuyAssetResponse{}, err
	}
	result, err := h.BuyAsset.Execute(ctx, commands.BuyAssetCommand{
		Caller:         userID,
		ListingID:      listingID,
		Payment:        payment,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.BuyAssetResponse{}, err
	}
	return httptransport.BuyAssetResponse{
		ListingID:     result.Listing.ListingID,
		Asset:         mapAsset(result.Asset),
		Price:         result.Listing.Price.String(),
		RefundedOffer: mapOfferPtr(result.Refunded),
		Replayed:      result.Replayed,
	}, nil
}

// MakeOfferHandler godoc
// @Summary Place an offer
// @Description Escrows a bid strictly above the current best offer.
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param listing_id path int true "Listing id"
// @Param request body httptransport.PaymentRequest true "Offer amount"
// @Success 200 {object} httptransport.MakeOfferResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{listing_id}/offers [post]
func (h Handler) MakeOfferHandler(
	ctx context.Context,
	userID string,
	listingID int64,
	req httptransport.PaymentRequest,
	idempotencyKey string,
) (httptransport.MakeOfferResponse, error) {
	payment, err := parseAmount(req.Payment, domainerrors.ErrInvalidAmount)
	if err != nil {
		return httptransport.MakeOfferResponse{}, err
	}
	result, err := h.MakeOffer.Execute(ctx, commands.MakeOfferCommand{
		Caller:         userID,
		ListingID:      listingID,
		Payment:        payment,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.MakeOfferResponse{}, err
	}
	return httptransport.MakeOfferResponse{
		Item:            mapListing(result.Listing),
		SupersededOffer: mapOfferPtr(result.Superseded),
		Replayed:        result.Replayed,
	}, nil
}

// AcceptOfferHandler godoc
// @Summary Accept the best offer
// @Description Seller settles the listing at the escrowed offer amount.
// @Tags marketplace-ledger
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param listing_id path int true "Listing id"
// @Success 200 {object} httptransport.AcceptOfferResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/listings/{listing_id}/accept [post]
func (h Handler) AcceptOfferHandler(
	ctx context.Context,
	userID string,
	listingID int64,
	idempotencyKey string,
) (httptransport.AcceptOfferResponse, error) {
	result, err := h.AcceptOffer.Execute(ctx, commands.AcceptOfferCommand{
		Caller:         userID,
		ListingID:      listingID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.AcceptOfferResponse{}, err
	}
	return httptransport.AcceptOfferResponse{
		ListingID: result.Listing.ListingID,
		Asset:     mapAsset(result.Asset),
		Accepted:  mapOffer(result.Accepted),
		Replayed:  result.Replayed,
	}, nil
}

// DepositHandler godoc
// @Summary Deposit funds
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body httptransport.FundingRequest true "Amount"
// @Success 200 {object} httptransport.AccountResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/accounts/deposit [post]
func (h Handler) DepositHandler(
	ctx context.Context,
	userID string,
	req httptransport.FundingRequest,
	idempotencyKey string,
) (httptransport.AccountResponse, error) {
	amount, err := parseAmount(req.Amount, domainerrors.ErrInvalidAmount)
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	result, err := h.Deposit.Execute(ctx, commands.FundingCommand{
		Caller:         userID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return httptransport.AccountResponse{Item: mapAccount(result.Account), Replayed: result.Replayed}, nil
}

// WithdrawHandler godoc
// @Summary Withdraw funds
// @Tags marketplace-ledger
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller principal"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body httptransport.FundingRequest true "Amount"
// @Success 200 {object} httptransport.AccountResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/accounts/withdraw [post]
func (h Handler) WithdrawHandler(
	ctx context.Context,
	userID string,
	req httptransport.FundingRequest,
	idempotencyKey string,
) (httptransport.AccountResponse, error) {
	amount, err := parseAmount(req.Amount, domainerrors.ErrInvalidAmount)
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	result, err := h.Withdraw.Execute(ctx, commands.FundingCommand{
		Caller:         userID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return httptransport.AccountResponse{Item: mapAccount(result.Account), Replayed: result.Replayed}, nil
}

// GetAccountHandler godoc
// @Summary Get an account balance
// @Tags marketplace-ledger
// @Produce json
// @Param principal path string true "Principal"
// @Success 200 {object} httptransport.AccountResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/accounts/{principal} [get]
func (h Handler) GetAccountHandler(ctx context.Context, principal string) (httptransport.AccountResponse, error) {
	result, err := h.GetAccount.Execute(ctx, queries.GetAccountQuery{Principal: principal})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return httptransport.AccountResponse{Item: mapAccount(result.Account)}, nil
}

// GetEscrowHandler godoc
// @Summary Get escrow totals
// @Description Reports funds held for pending offers.
// @Tags marketplace-ledger
// @Produce json
// @Success 200 {object} httptransport.EscrowResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/marketplace/escrow [get]
func (h Handler) GetEscrowHandler(ctx context.Context) (httptransport.EscrowResponse, error) {
	result, err := h.GetEscrow.Execute(ctx)
	if err != nil {
		application.ResolveLogger(h.Logger).Error("escrow summary failed",
			"event", "http_escrow_summary_failed",
			"module", "trading/marketplace-ledger",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.EscrowResponse{}, err
	}
	return httptransport.EscrowResponse{
		Total:         result.Escrow.Total.String(),
		PendingOffers: result.Escrow.PendingOffers,
	}, nil
}

// parseAmount reads a decimal string; malformed input maps to invalid.
func parseAmount(raw string, invalid error) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, invalid
	}
	return value, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func mapAsset(asset entities.Asset) httptransport.AssetDTO {
	return httptransport.AssetDTO{
		AssetID:    asset.AssetID,
		Owner:      asset.Owner,
		CreatedAt:  formatTime(asset.CreatedAt),
		AcquiredAt: formatTime(asset.AcquiredAt),
	}
}

func mapOffer(offer entities.Offer) httptransport.OfferDTO {
	return httptransport.OfferDTO{
		Initiator: offer.Initiator,
		Amount:    offer.Amount.String(),
		PlacedAt:  formatTime(offer.PlacedAt),
	}
}

func mapOfferPtr(offer *entities.Offer) *httptransport.OfferDTO {
	if offer == nil {
		return nil
	}
	dto := mapOffer(*offer)
	return &dto
}

func mapListing(listing entities.Listing) httptransport.ListingDTO {
	return httptransport.ListingDTO{
		ListingID:          listing.ListingID,
		AssetID:            listing.AssetID,
		Seller:             listing.Seller,
		Price:              listing.Price.String(),
		BestOfferPrice:     listing.BestOfferAmount().String(),
		BestOfferInitiator: listing.BestOfferInitiator(),
		BestOffer:          mapOfferPtr(listing.BestOffer),
		ListedAt:           formatTime(listing.ListedAt),
	}
}

func mapAccount(account entities.Account) httptransport.AccountDTO {
	return httptransport.AccountDTO{
		Principal: account.Principal,
		Balance:   account.Balance.String(),
	}
}
