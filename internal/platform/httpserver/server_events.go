package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	contractsv1 "bazaar/contracts/gen/events/v1"
	"bazaar/contexts/trading/marketplace-ledger/ports"

	"github.com/gorilla/websocket"
)

const eventStreamWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEventStream pushes committed marketplace events to a websocket client.
// ?type=marketplace.active_sold narrows the stream to one event type.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeMarketplaceError(w, http.StatusServiceUnavailable, "events_unavailable", "event stream is not configured")
		return
	}
	eventType := strings.TrimSpace(r.URL.Query().Get("type"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			"event", "event_stream_upgrade_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop only exists to notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = s.events.Subscribe(ctx, contractsv1.MarketplaceTopic, "event-stream", func(_ context.Context, event ports.EventEnvelope) error {
		if eventType != "" && event.EventType != eventType {
			return nil
		}
		_ = conn.SetWriteDeadline(time.Now().Add(eventStreamWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			cancel()
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("event stream subscribe failed",
			"event", "event_stream_subscribe_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		return
	}

	s.logger.Info("event stream opened",
		"event", "event_stream_opened",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"remote_addr", r.RemoteAddr,
		"event_type_filter", eventType,
	)
	<-ctx.Done()
	s.logger.Info("event stream closed",
		"event", "event_stream_closed",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"remote_addr", r.RemoteAddr,
	)
}
