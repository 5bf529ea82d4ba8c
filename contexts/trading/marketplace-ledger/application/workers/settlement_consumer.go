package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/ports"
	contractsv1 "bazaar/contracts/gen/events/v1"
)

const defaultSettlementConsumerGroup = "marketplace-settlement-audit-cg"

// SettlementConsumer writes an audit line for every settled trade seen on the
// marketplace topic. Redelivered events are skipped via the dedup store.
type SettlementConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

// settlement is the common shape of sale and acceptance payloads.
type settlement struct {
	ListingID int64
	AssetID   int64
	Buyer     string
	Seller    string
	Amount    string
}

func (c SettlementConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultSettlementConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, contractsv1.MarketplaceTopic, group, c.Handle)
}

func (c SettlementConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	trade, kind, err := decodeSettlement(event)
	if err != nil {
		return err
	}
	if kind == "" {
		return nil
	}

	if c.Dedup != nil {
		alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(c.dedupTTL()))
		if err != nil {
			logger.Error("settlement event dedupe failed",
				"event", "marketplace_settlement_dedupe_failed",
				"module", "trading/marketplace-ledger",
				"layer", "worker",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if alreadyProcessed {
			logger.Debug("settlement event already processed",
				"event", "marketplace_settlement_event_replayed",
				"module", "trading/marketplace-ledger",
				"layer", "worker",
				"event_id", event.EventID,
				"event_type", event.EventType,
			)
			return nil
		}
	}

	logger.Info("marketplace settlement recorded",
		"event", "marketplace_settlement_recorded",
		"module", "trading/marketplace-ledger",
		"layer", "worker",
		"event_id", event.EventID,
		"settlement", kind,
		"listing_id", trade.ListingID,
		"asset_id", trade.AssetID,
		"buyer", trade.Buyer,
		"seller", trade.Seller,
		"amount", trade.Amount,
	)
	return nil
}

// decodeSettlement returns an empty kind for event types it does not audit.
func decodeSettlement(event ports.EventEnvelope) (settlement, string, error) {
	switch event.EventType {
	case contractsv1.EventTypeActiveSold:
		var data contractsv1.ActiveSoldData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return settlement{}, "", fmt.Errorf("decode active sold payload: %w", err)
		}
		return settlement{
			ListingID: data.ListingID,
			AssetID:   data.AssetID,
			Buyer:     data.Buyer,
			Seller:    data.Seller,
			Amount:    data.Price,
		}, "sale", nil
	case contractsv1.EventTypeOfferAccepted:
		var data contractsv1.OfferAcceptedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return settlement{}, "", fmt.Errorf("decode offer accepted payload: %w", err)
		}
		return settlement{
			ListingID: data.ListingID,
			AssetID:   data.AssetID,
			Buyer:     data.Buyer,
			Seller:    data.Seller,
			Amount:    data.Amount,
		}, "offer_accepted", nil
	default:
		return settlement{}, "", nil
	}
}

func (c SettlementConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
