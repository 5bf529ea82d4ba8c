package ports

import (
	"context"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	contractsv1 "bazaar/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

// LedgerReader serves queries. Reads observe the most recently committed
// transaction and never a partially applied one.
type LedgerReader interface {
	GetAsset(ctx context.Context, assetID int64) (entities.Asset, error)
	// ListAssetsByOwner returns assets in the order the owner acquired them.
	ListAssetsByOwner(ctx context.Context, owner string) ([]entities.Asset, error)
	GetListing(ctx context.Context, listingID int64) (entities.Listing, error)
	// ListListingsBySeller returns active listings in ascending listing id order.
	ListListingsBySeller(ctx context.Context, seller string) ([]entities.Listing, error)
	GetAccount(ctx context.Context, principal string) (entities.Account, error)
	GetEscrow(ctx context.Context) (entities.EscrowSummary, error)
}

// LedgerRepository owns the marketplace state and its transaction boundary.
type LedgerRepository interface {
	LedgerReader
	// WithinTransaction runs fn with exclusive access to the whole ledger.
	// Writes staged through tx become visible only if fn returns nil;
	// otherwise every write is discarded.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the write surface available inside one ledger transaction.
type LedgerTx interface {
	NextAssetID(ctx context.Context) (int64, error)
	NextListingID(ctx context.Context) (int64, error)

	GetAsset(ctx context.Context, assetID int64) (entities.Asset, error)
	PutAsset(ctx context.Context, asset entities.Asset) error

	GetListing(ctx context.Context, listingID int64) (entities.Listing, error)
	FindListingByAsset(ctx context.Context, assetID int64) (entities.Listing, bool, error)
	PutListing(ctx context.Context, listing entities.Listing) error
	DeleteListing(ctx context.Context, listingID int64) error

	GetAccount(ctx context.Context, principal string) (entities.Account, error)
	PutAccount(ctx context.Context, account entities.Account) error
	// AdjustEscrow adds delta (negative to release) to the held escrow total.
	AdjustEscrow(ctx context.Context, delta decimal.Decimal) error

	AppendOutbox(ctx context.Context, envelope EventEnvelope) error

	// GetRecord treats a record past its expiry as absent.
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutRecord(ctx context.Context, record IdempotencyRecord) error
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key             string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

// EventDedupStore guards consumers against redelivered events.
type EventDedupStore interface {
	// ReserveEvent claims eventID in one atomic step and reports whether it
	// was already claimed. A reused id with a different payload hash is an
	// ErrIdempotencyKeyConflict.
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxMessage is a row ready to relay from the ledger outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// LedgerSnapshot is a point-in-time copy of the whole ledger state.
type LedgerSnapshot struct {
	NextAssetID   int64
	NextListingID int64
	Assets        []entities.Asset
	// OwnerIndex preserves per-owner acquisition order.
	OwnerIndex map[string][]int64
	Listings   []entities.Listing
	Accounts   []entities.Account
	Escrow     decimal.Decimal
	// Outbox holds notifications committed but not yet relayed.
	Outbox      []OutboxMessage
	Idempotency []IdempotencyRecord
	TakenAt     time.Time
}

// SnapshotSource is implemented by ledgers that can be captured and restored.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (LedgerSnapshot, error)
	Restore(ctx context.Context, snapshot LedgerSnapshot) error
}

// SnapshotStore persists ledger snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot LedgerSnapshot) error
	LoadLatestSnapshot(ctx context.Context) (LedgerSnapshot, bool, error)
}
