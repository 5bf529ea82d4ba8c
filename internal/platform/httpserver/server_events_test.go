package httpserver

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	marketplaceledger "bazaar/contexts/trading/marketplace-ledger"
	contractsv1 "bazaar/contracts/gen/events/v1"
	"bazaar/contexts/trading/marketplace-ledger/ports"
	"bazaar/internal/platform/messaging"

	"github.com/gorilla/websocket"
)

func TestEventStreamForwardsFilteredEvents(t *testing.T) {
	bus, err := messaging.NewKafka(nil, slog.Default())
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	server := New(marketplaceledger.NewInMemoryModule(slog.Default()), bus, slog.Default(), ":0")
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") +
		"/v1/marketplace/events/stream?type=" + contractsv1.EventTypeActiveSold
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount(contractsv1.MarketplaceTopic) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx := context.Background()
	if err := bus.Publish(ctx, contractsv1.MarketplaceTopic, ports.EventEnvelope{
		EventID:   "evt-accepted",
		EventType: contractsv1.EventTypeOfferAccepted,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(ctx, contractsv1.MarketplaceTopic, ports.EventEnvelope{
		EventID:   "evt-sold",
		EventType: contractsv1.EventTypeActiveSold,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received ports.EventEnvelope
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("read: %v", err)
	}
	if received.EventID != "evt-sold" {
		t.Fatalf("expected filtered sold event, got %s", received.EventID)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for bus.SubscriberCount(contractsv1.MarketplaceTopic) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream subscription leaked after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
