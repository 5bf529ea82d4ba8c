package httptransport

// Amounts travel as decimal strings so no precision is lost in JSON.

type AssetDTO struct {
	AssetID    int64  `json:"asset_id"`
	Owner      string `json:"owner"`
	CreatedAt  string `json:"created_at"`
	AcquiredAt string `json:"acquired_at"`
}

type OfferDTO struct {
	Initiator string `json:"initiator"`
	Amount    string `json:"amount"`
	PlacedAt  string `json:"placed_at"`
}

// ListingDTO always carries best_offer_price ("0") and best_offer_initiator
// ("") so clients can read an empty offer without checking best_offer.
type ListingDTO struct {
	ListingID          int64     `json:"listing_id"`
	AssetID            int64     `json:"asset_id"`
	Seller             string    `json:"seller"`
	Price              string    `json:"price"`
	BestOfferPrice     string    `json:"best_offer_price"`
	BestOfferInitiator string    `json:"best_offer_initiator"`
	BestOffer          *OfferDTO `json:"best_offer,omitempty"`
	ListedAt           string    `json:"listed_at"`
}

type AccountDTO struct {
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
}

type CreateAssetResponse struct {
	Item     AssetDTO `json:"item"`
	Replayed bool     `json:"replayed,omitempty"`
}

type GetAssetResponse struct {
	Item AssetDTO `json:"item"`
}

type ListAssetsResponse struct {
	Items []AssetDTO `json:"items"`
}

type ListAssetRequest struct {
	Price string `json:"price"`
}

type ListAssetResponse struct {
	Item     ListingDTO `json:"item"`
	Replayed bool       `json:"replayed,omitempty"`
}

type GetListingResponse struct {
	Item ListingDTO `json:"item"`
}

type ListListingsResponse struct {
	Items []ListingDTO `json:"items"`
}

type PaymentRequest struct {
	Payment string `json:"payment"`
}

type BuyAssetResponse struct {
	ListingID     int64     `json:"listing_id"`
	Asset         AssetDTO  `json:"asset"`
	Price         string    `json:"price"`
	RefundedOffer *OfferDTO `json:"refunded_offer,omitempty"`
	Replayed      bool      `json:"replayed,omitempty"`
}

type MakeOfferResponse struct {
	Item            ListingDTO `json:"item"`
	SupersededOffer *OfferDTO  `json:"superseded_offer,omitempty"`
	Replayed        bool       `json:"replayed,omitempty"`
}

type AcceptOfferResponse struct {
	ListingID int64    `json:"listing_id"`
	Asset     AssetDTO `json:"asset"`
	Accepted  OfferDTO `json:"accepted"`
	Replayed  bool     `json:"replayed,omitempty"`
}

type FundingRequest struct {
	Amount string `json:"amount"`
}

type AccountResponse struct {
	Item     AccountDTO `json:"item"`
	Replayed bool       `json:"replayed,omitempty"`
}

type EscrowResponse struct {
	Total         string `json:"total"`
	PendingOffers int    `json:"pending_offers"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
