package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	marketplaceerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	marketplacehttp "bazaar/contexts/trading/marketplace-ledger/transport/http"
)

func writeMarketplaceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, marketplacehttp.ErrorResponse{Code: code, Message: message})
}

func writeMarketplaceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketplaceerrors.ErrNotFound):
		writeMarketplaceError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, marketplaceerrors.ErrNotOwner):
		writeMarketplaceError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, marketplaceerrors.ErrNotSeller):
		writeMarketplaceError(w, http.StatusForbidden, "not_seller", err.Error())
	case errors.Is(err, marketplaceerrors.ErrAlreadyListed):
		writeMarketplaceError(w, http.StatusConflict, "already_listed", err.Error())
	case errors.Is(err, marketplaceerrors.ErrOfferTooLow):
		writeMarketplaceError(w, http.StatusConflict, "offer_too_low", err.Error())
	case errors.Is(err, marketplaceerrors.ErrNoOffer):
		writeMarketplaceError(w, http.StatusConflict, "no_offer", err.Error())
	case errors.Is(err, marketplaceerrors.ErrSelfTrade):
		writeMarketplaceError(w, http.StatusConflict, "self_trade", err.Error())
	case errors.Is(err, marketplaceerrors.ErrIdempotencyKeyConflict):
		writeMarketplaceError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, marketplaceerrors.ErrInvalidPrice):
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_price", err.Error())
	case errors.Is(err, marketplaceerrors.ErrInvalidAmount):
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, marketplaceerrors.ErrInvalidPrincipal):
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_principal", err.Error())
	case errors.Is(err, marketplaceerrors.ErrWrongPayment):
		writeMarketplaceError(w, http.StatusUnprocessableEntity, "wrong_payment", err.Error())
	case errors.Is(err, marketplaceerrors.ErrInsufficientFunds):
		writeMarketplaceError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	default:
		writeMarketplaceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireMarketplaceUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeMarketplaceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func decodeMarketplaceJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func marketplacePathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 0 {
		writeMarketplaceError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	resp, err := s.marketplace.Handler.CreateAssetHandler(r.Context(), userID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := marketplacePathID(w, r, "asset_id")
	if !ok {
		return
	}
	resp, err := s.marketplace.Handler.GetAssetHandler(r.Context(), assetID)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAssetsByOwner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.marketplace.Handler.ListAssetsByOwnerHandler(r.Context(), r.PathValue("owner_id"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	assetID, ok := marketplacePathID(w, r, "asset_id")
	if !ok {
		return
	}
	var req marketplacehttp.ListAssetRequest
	if !decodeMarketplaceJSON(w, r, &req) {
		return
	}

	resp, err := s.marketplace.Handler.ListAssetHandler(
		r.Context(),
		userID,
		assetID,
		req,
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listingID, ok := marketplacePathID(w, r, "listing_id")
	if !ok {
		return
	}
	resp, err := s.marketplace.Handler.GetListingHandler(r.Context(), listingID)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListListingsBySeller(w http.ResponseWriter, r *http.Request) {
	resp, err := s.marketplace.Handler.ListListingsBySellerHandler(r.Context(), r.PathValue("seller_id"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuyAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	listingID, ok := marketplacePathID(w, r, "listing_id")
	if !ok {
		return
	}
	var req marketplacehttp.PaymentRequest
	if !decodeMarketplaceJSON(w, r, &req) {
		return
	}

	resp, err := s.marketplace.Handler.BuyAssetHandler(
		r.Context(),
		userID,
		listingID,
		req,
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMakeOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	listingID, ok := marketplacePathID(w, r, "listing_id")
	if !ok {
		return
	}
	var req marketplacehttp.PaymentRequest
	if !decodeMarketplaceJSON(w, r, &req) {
		return
	}

	resp, err := s.marketplace.Handler.MakeOfferHandler(
		r.Context(),
		userID,
		listingID,
		req,
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	listingID, ok := marketplacePathID(w, r, "listing_id")
	if !ok {
		return
	}
	resp, err := s.marketplace.Handler.AcceptOfferHandler(r.Context(), userID, listingID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	var req marketplacehttp.FundingRequest
	if !decodeMarketplaceJSON(w, r, &req) {
		return
	}
	resp, err := s.marketplace.Handler.DepositHandler(r.Context(), userID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireMarketplaceUser(w, r)
	if !ok {
		return
	}
	var req marketplacehttp.FundingRequest
	if !decodeMarketplaceJSON(w, r, &req) {
		return
	}
	resp, err := s.marketplace.Handler.WithdrawHandler(r.Context(), userID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	resp, err := s.marketplace.Handler.GetAccountHandler(r.Context(), r.PathValue("principal"))
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	resp, err := s.marketplace.Handler.GetEscrowHandler(r.Context())
	if err != nil {
		writeMarketplaceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
