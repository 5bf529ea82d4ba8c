package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/ports"
)

const sourceService = "marketplace-ledger-service"

func buildEnvelope(
	ctx context.Context,
	ids ports.IDGenerator,
	eventType string,
	assetID int64,
	data any,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    1,
		PartitionKeyPath: "asset_id",
		PartitionKey:     strconv.FormatInt(assetID, 10),
		Data:             raw,
	}, nil
}
