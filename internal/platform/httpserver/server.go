package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	marketplaceledger "bazaar/contexts/trading/marketplace-ledger"
	"bazaar/contexts/trading/marketplace-ledger/ports"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	_ "bazaar/internal/platform/httpserver/docs"
)

const tracerName = "bazaar/internal/platform/httpserver"

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	marketplace marketplaceledger.Module
	events      ports.EventSubscriber
	tracer      trace.Tracer
	httpServer  *http.Server
}

// New builds the API server. events may be nil, in which case the event
// stream route answers 503.
func New(
	marketplace marketplaceledger.Module,
	events ports.EventSubscriber,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		marketplace: marketplace,
		events:      events,
		tracer:      otel.Tracer(tracerName),
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed mux, e.g. for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.route("POST /v1/marketplace/assets", s.handleCreateAsset)
	s.route("GET /v1/marketplace/assets/{asset_id}", s.handleGetAsset)
	s.route("GET /v1/marketplace/owners/{owner_id}/assets", s.handleListAssetsByOwner)
	s.route("POST /v1/marketplace/assets/{asset_id}/listings", s.handleListAsset)
	s.route("GET /v1/marketplace/listings/{listing_id}", s.handleGetListing)
	s.route("GET /v1/marketplace/sellers/{seller_id}/listings", s.handleListListingsBySeller)
	s.route("POST /v1/marketplace/listings/{listing_id}/buy", s.handleBuyAsset)
	s.route("POST /v1/marketplace/listings/{listing_id}/offers", s.handleMakeOffer)
	s.route("POST /v1/marketplace/listings/{listing_id}/accept", s.handleAcceptOffer)
	s.route("POST /v1/marketplace/accounts/deposit", s.handleDeposit)
	s.route("POST /v1/marketplace/accounts/withdraw", s.handleWithdraw)
	s.route("GET /v1/marketplace/accounts/{principal}", s.handleGetAccount)
	s.route("GET /v1/marketplace/escrow", s.handleGetEscrow)

	// Not traced: the span would last as long as the socket.
	s.mux.HandleFunc("GET /v1/marketplace/events/stream", s.handleEventStream)
}

// route registers handler wrapped in a server span named after pattern.
func (s *Server) route(pattern string, handler http.HandlerFunc) {
	s.mux.Handle(pattern, s.traced(pattern, handler))
}

func (s *Server) traced(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := s.tracer.Start(ctx, pattern,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", pattern),
			),
		)
		defer span.End()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", recorder.status))
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
