package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"bazaar/contexts/trading/marketplace-ledger/adapters/memory"
	"bazaar/contexts/trading/marketplace-ledger/domain/entities"
	"bazaar/contexts/trading/marketplace-ledger/ports"
	contractsv1 "bazaar/contracts/gen/events/v1"
)

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type memorySnapshots struct {
	saved []ports.LedgerSnapshot
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, snapshot ports.LedgerSnapshot) error {
	m.saved = append(m.saved, snapshot)
	return nil
}

func (m *memorySnapshots) LoadLatestSnapshot(_ context.Context) (ports.LedgerSnapshot, bool, error) {
	if len(m.saved) == 0 {
		return ports.LedgerSnapshot{}, false, nil
	}
	return m.saved[len(m.saved)-1], true, nil
}

func appendSoldEvent(t *testing.T, store *memory.Store, eventID string, listingID int64) {
	t.Helper()
	data, err := json.Marshal(contractsv1.ActiveSoldData{
		ListingID: listingID,
		AssetID:   listingID,
		Buyer:     "buyer",
		Seller:    "seller",
		Price:     "3",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	err = store.WithinTransaction(context.Background(), func(ctx context.Context, tx ports.LedgerTx) error {
		return tx.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:    eventID,
			EventType:  contractsv1.EventTypeActiveSold,
			OccurredAt: time.Now().UTC(),
			Data:       data,
		})
	})
	if err != nil {
		t.Fatalf("append outbox: %v", err)
	}
}

func TestOutboxRelayPublishesInCommitOrderAndMarksSent(t *testing.T) {
	store := memory.NewStore(slog.Default())
	appendSoldEvent(t, store, "evt-1", 0)
	appendSoldEvent(t, store, "evt-2", 1)

	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	if len(publisher.events) != 2 || publisher.events[0].EventID != "evt-1" || publisher.events[1].EventID != "evt-2" {
		t.Fatalf("unexpected publish order: %+v", publisher.events)
	}
	if publisher.topics[0] != contractsv1.MarketplaceTopic {
		t.Fatalf("expected default topic, got %s", publisher.topics[0])
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, got %d pending", len(pending))
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay failed: %v", err)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected no republish, got %d events", len(publisher.events))
	}
}

func TestOutboxRelayKeepsMessagesWhenPublishFails(t *testing.T) {
	store := memory.NewStore(slog.Default())
	appendSoldEvent(t, store, "evt-1", 0)

	relay := OutboxRelay{Outbox: store, Publisher: &recordingPublisher{err: errors.New("broker down")}}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish error")
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected message kept for retry, got %d", len(pending))
	}
}

func TestSnapshotWriterRestoresIntoFreshStore(t *testing.T) {
	ctx := context.Background()
	source := memory.NewStore(slog.Default())
	err := source.WithinTransaction(ctx, func(ctx context.Context, tx ports.LedgerTx) error {
		id, err := tx.NextAssetID(ctx)
		if err != nil {
			return err
		}
		asset, err := entities.NewAsset(id, "alice", time.Now())
		if err != nil {
			return err
		}
		return tx.PutAsset(ctx, asset)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	snapshots := &memorySnapshots{}
	if err := (SnapshotWriter{Source: source, Store: snapshots}).RunOnce(ctx); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	target := memory.NewStore(slog.Default())
	restored, err := SnapshotWriter{Source: target, Store: snapshots}.RestoreLatest(ctx)
	if err != nil || !restored {
		t.Fatalf("expected restore, got restored=%v err=%v", restored, err)
	}
	assets, err := target.ListAssetsByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(assets) != 1 || assets[0].AssetID != 0 {
		t.Fatalf("unexpected restored assets: %+v", assets)
	}
}

func TestSnapshotWriterRestoreWithoutSnapshot(t *testing.T) {
	store := memory.NewStore(slog.Default())
	restored, err := SnapshotWriter{Source: store, Store: &memorySnapshots{}}.RestoreLatest(context.Background())
	if err != nil || restored {
		t.Fatalf("expected nothing restored, got restored=%v err=%v", restored, err)
	}
}

func TestSettlementConsumerSkipsRedelivery(t *testing.T) {
	store := memory.NewStore(slog.Default())
	var logs bytes.Buffer
	consumer := SettlementConsumer{
		Dedup:  store,
		Clock:  store,
		Logger: slog.New(slog.NewJSONHandler(&logs, nil)),
	}
	data, _ := json.Marshal(contractsv1.OfferAcceptedData{ListingID: 2, AssetID: 1, Buyer: "bob", Seller: "alice", Amount: "7"})
	event := ports.EventEnvelope{EventID: "evt-9", EventType: contractsv1.EventTypeOfferAccepted, Data: data}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- consumer.Handle(context.Background(), event)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("delivery failed: %v", err)
		}
	}

	if got := strings.Count(logs.String(), "marketplace_settlement_recorded"); got != 1 {
		t.Fatalf("expected one settlement record for eight deliveries, got %d", got)
	}
	seen, err := store.ReserveEvent(context.Background(), "evt-9", hashPayload(data), store.Now().Add(time.Hour))
	if err != nil || !seen {
		t.Fatalf("expected event already reserved, seen=%v err=%v", seen, err)
	}
}

func TestSettlementConsumerRejectsMalformedPayload(t *testing.T) {
	consumer := SettlementConsumer{}
	event := ports.EventEnvelope{EventID: "evt-bad", EventType: contractsv1.EventTypeActiveSold, Data: []byte("{")}
	if err := consumer.Handle(context.Background(), event); err == nil {
		t.Fatalf("expected decode error")
	}
}
