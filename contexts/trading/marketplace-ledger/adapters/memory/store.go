package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	application "bazaar/contexts/trading/marketplace-ledger/application"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	domainerrors "bazaar/contexts/trading/marketplace-ledger/domain/errors"
	"bazaar/contexts/trading/marketplace-ledger/ports"

	"github.com/shopspring/decimal"
)

// Store is the in-memory marketplace ledger. One mutex guards the whole
// ledger: a transaction holds it exclusively from first read to commit, so
// mutating calls are totally ordered and each runs to completion.
type Store struct {
	mu             sync.RWMutex
	assets         map[int64]entities.Asset
	ownerIndex     map[string][]int64
	listings       map[int64]entities.Listing
	listingByAsset map[int64]int64
	accounts       map[string]entities.Account
	escrow         decimal.Decimal
	nextAssetID    int64
	nextListingID  int64

	outbox      map[string]ports.OutboxMessage
	outboxOrder []string
	outboxSent  map[string]time.Time
	idempotency map[string]ports.IdempotencyRecord
	eventDedup  map[string]ports.IdempotencyRecord

	sequence uint64
	logger   *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		assets:         make(map[int64]entities.Asset),
		ownerIndex:     make(map[string][]int64),
		listings:       make(map[int64]entities.Listing),
		listingByAsset: make(map[int64]int64),
		accounts:       make(map[string]entities.Account),
		escrow:         decimal.Zero,
		outbox:         make(map[string]ports.OutboxMessage),
		outboxOrder:    make([]string, 0),
		outboxSent:     make(map[string]time.Time),
		idempotency:    make(map[string]ports.IdempotencyRecord),
		eventDedup:     make(map[string]ports.IdempotencyRecord),
		logger:         application.ResolveLogger(logger),
	}
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newMemoryTx(s)
	if err := fn(ctx, tx); err != nil {
		s.logger.Debug("ledger transaction rolled back",
			"event", "memory_ledger_tx_rollback",
			"module", "trading/marketplace-ledger",
			"layer", "adapter",
			"error", err.Error(),
		)
		return err
	}
	s.commitLocked(tx)
	return nil
}

func (s *Store) GetAsset(_ context.Context, assetID int64) (entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return entities.Asset{}, domainerrors.ErrAssetNotFound
	}
	return asset, nil
}

func (s *Store) ListAssetsByOwner(_ context.Context, owner string) ([]entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.ownerIndex[owner]
	result := make([]entities.Asset, 0, len(ids))
	for _, id := range ids {
		asset, ok := s.assets[id]
		if !ok || asset.Owner != owner {
			return nil, domainerrors.ErrRepositoryInvariantBroke
		}
		result = append(result, asset)
	}
	return result, nil
}

func (s *Store) GetListing(_ context.Context, listingID int64) (entities.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return entities.Listing{}, domainerrors.ErrListingNotFound
	}
	return listing.Clone(), nil
}

func (s *Store) ListListingsBySeller(_ context.Context, seller string) ([]entities.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entities.Listing, 0)
	for _, listing := range s.listings {
		if listing.Seller == seller {
			result = append(result, listing.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ListingID < result[j].ListingID
	})
	return result, nil
}

func (s *Store) GetAccount(_ context.Context, principal string) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.accountLocked(principal), nil
}

func (s *Store) GetEscrow(_ context.Context) (entities.EscrowSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := 0
	for _, listing := range s.listings {
		if listing.HasOffer() {
			pending++
		}
	}
	return entities.EscrowSummary{Total: s.escrow, PendingOffers: pending}, nil
}

func (s *Store) accountLocked(principal string) entities.Account {
	if account, ok := s.accounts[principal]; ok {
		return account
	}
	return entities.Account{Principal: principal, Balance: decimal.Zero}
}

func (s *Store) commitLocked(tx *memoryTx) {
	s.nextAssetID = tx.nextAssetID
	s.nextListingID = tx.nextListingID

	assetIDs := make([]int64, 0, len(tx.assets))
	for id := range tx.assets {
		assetIDs = append(assetIDs, id)
	}
	sort.Slice(assetIDs, func(i, j int) bool { return assetIDs[i] < assetIDs[j] })
	for _, id := range assetIDs {
		next := tx.assets[id]
		if prev, existed := s.assets[id]; existed {
			if prev.Owner != next.Owner {
				s.ownerIndex[prev.Owner] = removeID(s.ownerIndex[prev.Owner], id)
				s.ownerIndex[next.Owner] = append(s.ownerIndex[next.Owner], id)
			}
		} else {
			s.ownerIndex[next.Owner] = append(s.ownerIndex[next.Owner], id)
		}
		s.assets[id] = next
	}

	for id, staged := range tx.listings {
		if staged == nil {
			if prev, ok := s.listings[id]; ok {
				delete(s.listingByAsset, prev.AssetID)
			}
			delete(s.listings, id)
			continue
		}
		s.listings[id] = staged.Clone()
		s.listingByAsset[staged.AssetID] = id
	}

	for principal, account := range tx.accounts {
		s.accounts[principal] = account
	}
	s.escrow = s.escrow.Add(tx.escrowDelta)

	for _, message := range tx.outbox {
		s.outbox[message.OutboxID] = message
		s.outboxOrder = append(s.outboxOrder, message.OutboxID)
	}
	for key, record := range tx.records {
		s.idempotency[key] = record
	}
}

func removeID(ids []int64, target int64) []int64 {
	filtered := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != target {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// memoryTx stages writes over the locked store. Nothing reaches the store
// until commitLocked runs.
type memoryTx struct {
	store         *Store
	nextAssetID   int64
	nextListingID int64
	assets        map[int64]entities.Asset
	// a nil entry marks a listing deleted in this transaction
	listings    map[int64]*entities.Listing
	accounts    map[string]entities.Account
	escrowDelta decimal.Decimal
	outbox      []ports.OutboxMessage
	records     map[string]ports.IdempotencyRecord
}

func newMemoryTx(s *Store) *memoryTx {
	return &memoryTx{
		store:         s,
		nextAssetID:   s.nextAssetID,
		nextListingID: s.nextListingID,
		assets:        make(map[int64]entities.Asset),
		listings:      make(map[int64]*entities.Listing),
		accounts:      make(map[string]entities.Account),
		escrowDelta:   decimal.Zero,
		records:       make(map[string]ports.IdempotencyRecord),
	}
}

func (t *memoryTx) NextAssetID(_ context.Context) (int64, error) {
	id := t.nextAssetID
	t.nextAssetID++
	return id, nil
}

func (t *memoryTx) NextListingID(_ context.Context) (int64, error) {
	id := t.nextListingID
	t.nextListingID++
	return id, nil
}

func (t *memoryTx) GetAsset(_ context.Context, assetID int64) (entities.Asset, error) {
	if asset, ok := t.assets[assetID]; ok {
		return asset, nil
	}
	asset, ok := t.store.assets[assetID]
	if !ok {
		return entities.Asset{}, domainerrors.ErrAssetNotFound
	}
	return asset, nil
}

func (t *memoryTx) PutAsset(_ context.Context, asset entities.Asset) error {
	if asset.AssetID < 0 || asset.AssetID >= t.nextAssetID {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	t.assets[asset.AssetID] = asset
	return nil
}

func (t *memoryTx) GetListing(_ context.Context, listingID int64) (entities.Listing, error) {
	if staged, ok := t.listings[listingID]; ok {
		if staged == nil {
			return entities.Listing{}, domainerrors.ErrListingNotFound
		}
		return staged.Clone(), nil
	}
	listing, ok := t.store.listings[listingID]
	if !ok {
		return entities.Listing{}, domainerrors.ErrListingNotFound
	}
	return listing.Clone(), nil
}

func (t *memoryTx) FindListingByAsset(ctx context.Context, assetID int64) (entities.Listing, bool, error) {
	for _, staged := range t.listings {
		if staged != nil && staged.AssetID == assetID {
			return staged.Clone(), true, nil
		}
	}
	listingID, ok := t.store.listingByAsset[assetID]
	if !ok {
		return entities.Listing{}, false, nil
	}
	listing, err := t.GetListing(ctx, listingID)
	if err != nil {
		// deleted earlier in this transaction
		return entities.Listing{}, false, nil
	}
	if listing.AssetID != assetID {
		return entities.Listing{}, false, nil
	}
	return listing, true, nil
}

func (t *memoryTx) PutListing(ctx context.Context, listing entities.Listing) error {
	if existing, found, err := t.FindListingByAsset(ctx, listing.AssetID); err != nil {
		return err
	} else if found && existing.ListingID != listing.ListingID {
		return domainerrors.ErrAlreadyListed
	}
	staged := listing.Clone()
	t.listings[listing.ListingID] = &staged
	return nil
}

func (t *memoryTx) DeleteListing(ctx context.Context, listingID int64) error {
	if _, err := t.GetListing(ctx, listingID); err != nil {
		return err
	}
	t.listings[listingID] = nil
	return nil
}

func (t *memoryTx) GetAccount(_ context.Context, principal string) (entities.Account, error) {
	if account, ok := t.accounts[principal]; ok {
		return account, nil
	}
	return t.store.accountLocked(principal), nil
}

func (t *memoryTx) PutAccount(_ context.Context, account entities.Account) error {
	if account.Balance.IsNegative() {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	t.accounts[account.Principal] = account
	return nil
}

func (t *memoryTx) AdjustEscrow(_ context.Context, delta decimal.Decimal) error {
	next := t.escrowDelta.Add(delta)
	if t.store.escrow.Add(next).IsNegative() {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	t.escrowDelta = next
	return nil
}

func (t *memoryTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	t.outbox = append(t.outbox, ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

func (t *memoryTx) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	record, ok := t.records[key]
	if !ok {
		record, ok = t.store.idempotency[key]
	}
	if !ok || recordExpired(record, now) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (t *memoryTx) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	if _, staged := t.records[record.Key]; staged {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	// An expired record is overwritten in place; the store never evicts.
	t.records[record.Key] = record
	return nil
}

func recordExpired(record ports.IdempotencyRecord, now time.Time) bool {
	return !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt)
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.eventDedup[eventID]; ok && !recordExpired(existing, time.Now()) {
		if existing.RequestHash != payloadHash {
			return false, domainerrors.ErrIdempotencyKeyConflict
		}
		return true, nil
	}
	s.eventDedup[eventID] = ports.IdempotencyRecord{
		Key:         eventID,
		RequestHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

// OutboxEvents returns every staged notification in commit order.
func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Store) Snapshot(_ context.Context) (ports.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := ports.LedgerSnapshot{
		NextAssetID:   s.nextAssetID,
		NextListingID: s.nextListingID,
		Assets:        make([]entities.Asset, 0, len(s.assets)),
		OwnerIndex:    make(map[string][]int64, len(s.ownerIndex)),
		Listings:      make([]entities.Listing, 0, len(s.listings)),
		Accounts:      make([]entities.Account, 0, len(s.accounts)),
		Escrow:        s.escrow,
		Outbox:        make([]ports.OutboxMessage, 0),
		Idempotency:   make([]ports.IdempotencyRecord, 0, len(s.idempotency)),
		TakenAt:       time.Now().UTC(),
	}
	for _, asset := range s.assets {
		snapshot.Assets = append(snapshot.Assets, asset)
	}
	sort.Slice(snapshot.Assets, func(i, j int) bool { return snapshot.Assets[i].AssetID < snapshot.Assets[j].AssetID })
	for owner, ids := range s.ownerIndex {
		if len(ids) == 0 {
			continue
		}
		snapshot.OwnerIndex[owner] = append([]int64(nil), ids...)
	}
	for _, listing := range s.listings {
		snapshot.Listings = append(snapshot.Listings, listing.Clone())
	}
	sort.Slice(snapshot.Listings, func(i, j int) bool { return snapshot.Listings[i].ListingID < snapshot.Listings[j].ListingID })
	for _, account := range s.accounts {
		snapshot.Accounts = append(snapshot.Accounts, account)
	}
	sort.Slice(snapshot.Accounts, func(i, j int) bool { return snapshot.Accounts[i].Principal < snapshot.Accounts[j].Principal })
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			snapshot.Outbox = append(snapshot.Outbox, msg)
		}
	}
	for _, record := range s.idempotency {
		if recordExpired(record, snapshot.TakenAt) {
			continue
		}
		snapshot.Idempotency = append(snapshot.Idempotency, record)
	}
	sort.Slice(snapshot.Idempotency, func(i, j int) bool { return snapshot.Idempotency[i].Key < snapshot.Idempotency[j].Key })
	return snapshot, nil
}

// Restore replaces the ledger state with snapshot after checking that the
// escrow total matches the pending offers it describes. Restored outbox
// messages are pending again and relay on the next tick.
func (s *Store) Restore(_ context.Context, snapshot ports.LedgerSnapshot) error {
	held := decimal.Zero
	for _, listing := range snapshot.Listings {
		held = held.Add(listing.BestOfferAmount())
	}
	if !held.Equal(snapshot.Escrow) {
		return fmt.Errorf("restore snapshot: escrow %s does not match pending offers %s: %w",
			snapshot.Escrow, held, domainerrors.ErrRepositoryInvariantBroke)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets = make(map[int64]entities.Asset, len(snapshot.Assets))
	for _, asset := range snapshot.Assets {
		s.assets[asset.AssetID] = asset
	}
	s.ownerIndex = make(map[string][]int64, len(snapshot.OwnerIndex))
	for owner, ids := range snapshot.OwnerIndex {
		s.ownerIndex[owner] = append([]int64(nil), ids...)
	}
	s.listings = make(map[int64]entities.Listing, len(snapshot.Listings))
	s.listingByAsset = make(map[int64]int64, len(snapshot.Listings))
	for _, listing := range snapshot.Listings {
		s.listings[listing.ListingID] = listing.Clone()
		s.listingByAsset[listing.AssetID] = listing.ListingID
	}
	s.accounts = make(map[string]entities.Account, len(snapshot.Accounts))
	for _, account := range snapshot.Accounts {
		s.accounts[account.Principal] = account
	}
	s.escrow = snapshot.Escrow
	s.outbox = make(map[string]ports.OutboxMessage, len(snapshot.Outbox))
	s.outboxOrder = make([]string, 0, len(snapshot.Outbox))
	s.outboxSent = make(map[string]time.Time)
	for _, msg := range snapshot.Outbox {
		s.outbox[msg.OutboxID] = msg
		s.outboxOrder = append(s.outboxOrder, msg.OutboxID)
	}
	s.idempotency = make(map[string]ports.IdempotencyRecord, len(snapshot.Idempotency))
	for _, record := range snapshot.Idempotency {
		s.idempotency[record.Key] = record
	}
	s.nextAssetID = snapshot.NextAssetID
	s.nextListingID = snapshot.NextListingID
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("mkt-%d", value), nil
}
