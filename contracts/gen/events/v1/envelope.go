package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical, versioned event envelope for cross-runtime use.
// This package is generated-contract-only and must stay backward compatible.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

const (
	// MarketplaceTopic carries every marketplace ledger notification.
	MarketplaceTopic = "marketplace.events"

	EventTypeActiveSold    = "marketplace.active_sold"
	EventTypeOfferAccepted = "marketplace.offer_accepted"
)

// ActiveSoldData is the payload of marketplace.active_sold.
// Amounts are base-unit decimal strings.
type ActiveSoldData struct {
	ListingID int64  `json:"listing_id"`
	AssetID   int64  `json:"asset_id"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
}

// OfferAcceptedData is the payload of marketplace.offer_accepted.
type OfferAcceptedData struct {
	ListingID int64  `json:"listing_id"`
	AssetID   int64  `json:"asset_id"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Amount    string `json:"amount"`
}
