package sqliteadapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	"bazaar/contexts/trading/marketplace-ledger/ports"

	"github.com/shopspring/decimal"
)

func TestLoadLatestSnapshotEmpty(t *testing.T) {
	store, err := NewSnapshotStore(filepath.Join(t.TempDir(), "ledger.db"), nil)
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	defer store.Close()

	_, ok, err := store.LoadLatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if ok {
		t.Fatal("expected no snapshot in a fresh database")
	}
}

func TestSaveSnapshotKeepsNewestAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store, err := NewSnapshotStore(path, nil)
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	for i := int64(1); i <= 7; i++ {
		snapshot := ports.LedgerSnapshot{
			NextAssetID:   i,
			NextListingID: 1,
			Assets: []entities.Asset{
				{AssetID: 0, Owner: "alice", CreatedAt: now, AcquiredAt: now},
			},
			OwnerIndex: map[string][]int64{"alice": {0}},
			Listings: []entities.Listing{{
				ListingID: 0,
				AssetID:   0,
				Seller:    "alice",
				Price:     decimal.RequireFromString("12.50"),
				BestOffer: &entities.Offer{Initiator: "bob", Amount: decimal.RequireFromString("3.25"), PlacedAt: now},
				ListedAt:  now,
			}},
			Accounts: []entities.Account{{Principal: "bob", Balance: decimal.NewFromInt(i), UpdatedAt: now}},
			Escrow:   decimal.RequireFromString("3.25"),
			TakenAt:  now.Add(time.Duration(i) * time.Second),
		}
		if err := store.SaveSnapshot(ctx, snapshot); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewSnapshotStore(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	latest, ok, err := reopened.LoadLatestSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("expected snapshot, ok=%v err=%v", ok, err)
	}
	if latest.NextAssetID != 7 {
		t.Fatalf("expected newest snapshot, got next asset id %d", latest.NextAssetID)
	}
	if !latest.Escrow.Equal(decimal.RequireFromString("3.25")) {
		t.Fatalf("unexpected escrow %s", latest.Escrow)
	}
	if len(latest.Listings) != 1 || latest.Listings[0].BestOfferInitiator() != "bob" {
		t.Fatalf("unexpected listings %+v", latest.Listings)
	}
	if !latest.Listings[0].Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected price %s", latest.Listings[0].Price)
	}

	var count int
	if err := reopened.db.QueryRow(`SELECT COUNT(*) FROM ledger_snapshots`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != defaultRetain {
		t.Fatalf("expected %d retained snapshots, got %d", defaultRetain, count)
	}
}
