package postgresadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	sequenceAsset   = "asset"
	sequenceListing = "listing"
	sequenceAcquire = "acquire"

	// ledgerLockKey serialises every ledger transaction across processes.
	ledgerLockKey int64 = 0x6d6b746c6467

	listingAssetConstraint = "marketplace_listings_asset_key"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the ledger tables and seeds the sequence and escrow rows.
func (r *Repository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&sequenceModel{},
		&escrowModel{},
		&assetModel{},
		&listingModel{},
		&accountModel{},
		&outboxModel{},
		&idempotencyModel{},
		&eventDedupModel{},
	); err != nil {
		return err
	}
	seeds := []sequenceModel{
		{Name: sequenceAsset, NextValue: 0},
		{Name: sequenceListing, NextValue: 0},
		{Name: sequenceAcquire, NextValue: 0},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seeds).Error; err != nil {
		return err
	}
	escrow := escrowModel{ID: 1, Total: decimal.Zero}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&escrow).Error; err != nil {
		return err
	}
	r.logger.Info("marketplace ledger schema ready",
		"event", "postgres_ledger_migrated",
		"module", "trading/marketplace-ledger",
		"layer", "adapter",
	)
	return nil
}

// WithinTransaction runs fn in one database transaction holding the ledger
// advisory lock, so concurrent requests across replicas apply one at a time.
func (r *Repository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Exec("SELECT pg_advisory_xact_lock(?)", ledgerLockKey).Error; err != nil {
			return err
		}
		return fn(ctx, &ledgerTx{db: db})
	})
}

func (r *Repository) GetAsset(ctx context.Context, assetID int64) (entities.Asset, error) {
	return getAsset(r.db.WithContext(ctx), assetID)
}

func (r *Repository) ListAssetsByOwner(ctx context.Context, owner string) ([]entities.Asset, error) {
	var rows []assetModel
	if err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("acquire_seq ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Asset, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetListing(ctx context.Context, listingID int64) (entities.Listing, error) {
	return getListing(r.db.WithContext(ctx), listingID)
}

func (r *Repository) ListListingsBySeller(ctx context.Context, seller string) ([]entities.Listing, error) {
	var rows []listingModel
	if err := r.db.WithContext(ctx).
		Where("seller = ?", seller).
		Order("listing_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Listing, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetAccount(ctx context.Context, principal string) (entities.Account, error) {
	return getAccount(r.db.WithContext(ctx), principal)
}

func (r *Repository) GetEscrow(ctx context.Context) (entities.EscrowSummary, error) {
	var summary entities.EscrowSummary
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var row escrowModel
		if err := db.Where("id = ?", 1).First(&row).Error; err != nil {
			return err
		}
		var pending int64
		if err := db.Model(&listingModel{}).
			Where("offer_initiator IS NOT NULL").
			Count(&pending).
			Error; err != nil {
			return err
		}
		summary = entities.EscrowSummary{Total: row.Total, PendingOffers: int(pending)}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return entities.EscrowSummary{}, err
	}
	return summary, nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}

	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", eventID).
		First(&existing).
		Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrIdempotencyKeyConflict
	}
	return true, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

// ledgerTx is bound to one gorm transaction; the advisory lock is already held.
type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) NextAssetID(_ context.Context) (int64, error) {
	return nextSequence(t.db, sequenceAsset)
}

func (t *ledgerTx) NextListingID(_ context.Context) (int64, error) {
	return nextSequence(t.db, sequenceListing)
}

func (t *ledgerTx) GetAsset(_ context.Context, assetID int64) (entities.Asset, error) {
	return getAsset(t.db, assetID)
}

func (t *ledgerTx) PutAsset(_ context.Context, asset entities.Asset) error {
	var existing assetModel
	err := t.db.Where("asset_id = ?", asset.AssetID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq, err := nextSequence(t.db, sequenceAcquire)
		if err != nil {
			return err
		}
		row := assetModelFromEntity(asset, seq)
		if err := t.db.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		return nil
	case err != nil:
		return err
	}

	seq := existing.AcquireSeq
	if existing.Owner != asset.Owner {
		seq, err = nextSequence(t.db, sequenceAcquire)
		if err != nil {
			return err
		}
	}
	row := assetModelFromEntity(asset, seq)
	return t.db.Save(&row).Error
}

func (t *ledgerTx) GetListing(_ context.Context, listingID int64) (entities.Listing, error) {
	return getListing(t.db, listingID)
}

func (t *ledgerTx) FindListingByAsset(_ context.Context, assetID int64) (entities.Listing, bool, error) {
	var row listingModel
	err := t.db.Where("asset_id = ?", assetID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Listing{}, false, nil
		}
		return entities.Listing{}, false, err
	}
	return row.toEntity(), true, nil
}

func (t *ledgerTx) PutListing(_ context.Context, listing entities.Listing) error {
	row := listingModelFromEntity(listing)
	err := t.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
	if err != nil {
		if isUniqueViolation(err) {
			if constraintName(err) == listingAssetConstraint {
				return domainerrors.ErrAlreadyListed
			}
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (t *ledgerTx) DeleteListing(_ context.Context, listingID int64) error {
	result := t.db.Where("listing_id = ?", listingID).Delete(&listingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrListingNotFound
	}
	return nil
}

func (t *ledgerTx) GetAccount(_ context.Context, principal string) (entities.Account, error) {
	return getAccount(t.db, principal)
}

func (t *ledgerTx) PutAccount(_ context.Context, account entities.Account) error {
	if account.Balance.IsNegative() {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	row := accountModel{
		Principal: account.Principal,
		Balance:   account.Balance,
		UpdatedAt: account.UpdatedAt.UTC(),
	}
	return t.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "principal"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (t *ledgerTx) AdjustEscrow(_ context.Context, delta decimal.Decimal) error {
	var total decimal.Decimal
	if err := t.db.
		Raw("UPDATE marketplace_escrow SET total = total + ? WHERE id = 1 RETURNING total", delta).
		Scan(&total).
		Error; err != nil {
		return err
	}
	if total.IsNegative() {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (t *ledgerTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if err := t.db.Omit("seq").Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (t *ledgerTx) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := t.db.Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return row.toPort(), true, nil
}

// PutRecord overwrites an expired row for the same key. The caller holds the
// ledger lock and has already checked for a live record.
func (t *ledgerTx) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             record.Key,
		RequestHash:     record.RequestHash,
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	return t.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
}

func nextSequence(db *gorm.DB, name string) (int64, error) {
	var value int64
	result := db.
		Raw("UPDATE marketplace_sequences SET next_value = next_value + 1 WHERE name = ? RETURNING next_value - 1", name).
		Scan(&value)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, domainerrors.ErrRepositoryInvariantBroke
	}
	return value, nil
}

func getAsset(db *gorm.DB, assetID int64) (entities.Asset, error) {
	var row assetModel
	err := db.Where("asset_id = ?", assetID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Asset{}, domainerrors.ErrAssetNotFound
		}
		return entities.Asset{}, err
	}
	return row.toEntity(), nil
}

func getListing(db *gorm.DB, listingID int64) (entities.Listing, error) {
	var row listingModel
	err := db.Where("listing_id = ?", listingID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Listing{}, domainerrors.ErrListingNotFound
		}
		return entities.Listing{}, err
	}
	return row.toEntity(), nil
}

// getAccount treats a missing row as a zero balance.
func getAccount(db *gorm.DB, principal string) (entities.Account, error) {
	var row accountModel
	err := db.Where("principal = ?", principal).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{Principal: principal, Balance: decimal.Zero}, nil
		}
		return entities.Account{}, err
	}
	return entities.Account{
		Principal: row.Principal,
		Balance:   row.Balance,
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

type sequenceModel struct {
	Name      string `gorm:"column:name;primaryKey"`
	NextValue int64  `gorm:"column:next_value;not null"`
}

func (sequenceModel) TableName() string {
	return "marketplace_sequences"
}

type escrowModel struct {
	ID    int             `gorm:"column:id;primaryKey"`
	Total decimal.Decimal `gorm:"column:total;type:numeric;not null"`
}

func (escrowModel) TableName() string {
	return "marketplace_escrow"
}

type assetModel struct {
	AssetID    int64     `gorm:"column:asset_id;primaryKey;autoIncrement:false"`
	Owner      string    `gorm:"column:owner;index:marketplace_assets_owner_idx,priority:1;not null"`
	AcquireSeq int64     `gorm:"column:acquire_seq;index:marketplace_assets_owner_idx,priority:2;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	AcquiredAt time.Time `gorm:"column:acquired_at"`
}

func (assetModel) TableName() string {
	return "marketplace_assets"
}

func assetModelFromEntity(asset entities.Asset, acquireSeq int64) assetModel {
	return assetModel{
		AssetID:    asset.AssetID,
		Owner:      asset.Owner,
		AcquireSeq: acquireSeq,
		CreatedAt:  asset.CreatedAt.UTC(),
		AcquiredAt: asset.AcquiredAt.UTC(),
	}
}

func (m assetModel) toEntity() entities.Asset {
	return entities.Asset{
		AssetID:    m.AssetID,
		Owner:      m.Owner,
		CreatedAt:  m.CreatedAt.UTC(),
		AcquiredAt: m.AcquiredAt.UTC(),
	}
}

type listingModel struct {
	ListingID      int64               `gorm:"column:listing_id;primaryKey;autoIncrement:false"`
	AssetID        int64               `gorm:"column:asset_id;uniqueIndex:marketplace_listings_asset_key;not null"`
	Seller         string              `gorm:"column:seller;index;not null"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric;not null"`
	OfferInitiator *string             `gorm:"column:offer_initiator"`
	OfferAmount    decimal.NullDecimal `gorm:"column:offer_amount;type:numeric"`
	OfferPlacedAt  *time.Time          `gorm:"column:offer_placed_at"`
	ListedAt       time.Time           `gorm:"column:listed_at"`
}

func (listingModel) TableName() string {
	return "marketplace_listings"
}

func listingModelFromEntity(listing entities.Listing) listingModel {
	row := listingModel{
		ListingID: listing.ListingID,
		AssetID:   listing.AssetID,
		Seller:    listing.Seller,
		Price:     listing.Price,
		ListedAt:  listing.ListedAt.UTC(),
	}
	if listing.BestOffer != nil {
		initiator := listing.BestOffer.Initiator
		placedAt := listing.BestOffer.PlacedAt.UTC()
		row.OfferInitiator = &initiator
		row.OfferAmount = decimal.NewNullDecimal(listing.BestOffer.Amount)
		row.OfferPlacedAt = &placedAt
	}
	return row
}

func (m listingModel) toEntity() entities.Listing {
	listing := entities.Listing{
		ListingID: m.ListingID,
		AssetID:   m.AssetID,
		Seller:    m.Seller,
		Price:     m.Price,
		ListedAt:  m.ListedAt.UTC(),
	}
	if m.OfferInitiator != nil && m.OfferAmount.Valid {
		offer := entities.Offer{
			Initiator: *m.OfferInitiator,
			Amount:    m.OfferAmount.Decimal,
		}
		if m.OfferPlacedAt != nil {
			offer.PlacedAt = m.OfferPlacedAt.UTC()
		}
		listing.BestOffer = &offer
	}
	return listing
}

type accountModel struct {
	Principal string          `gorm:"column:principal;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (accountModel) TableName() string {
	return "marketplace_accounts"
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "marketplace_idempotency"
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:             m.Key,
		RequestHash:     m.RequestHash,
		ResponsePayload: append([]byte(nil), m.ResponsePayload...),
		ExpiresAt:       m.ExpiresAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "marketplace_event_dedup"
}

type outboxModel struct {
	Seq          int64      `gorm:"column:seq;autoIncrement"`
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "marketplace_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
