package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	marketplaceledger "bazaar/contexts/trading/marketplace-ledger"
	"bazaar/contexts/trading/marketplace-ledger/adapters/memory"
	postgresadapter "bazaar/contexts/trading/marketplace-ledger/adapters/postgres"
	sqliteadapter "bazaar/contexts/trading/marketplace-ledger/adapters/sqlite"
	workerapp "bazaar/contexts/trading/marketplace-ledger/application/workers"
	"bazaar/contexts/trading/marketplace-ledger/ports"
	contractsv1 "bazaar/contracts/gen/events/v1"
	"bazaar/internal/platform/config"
	"bazaar/internal/platform/db"
	"bazaar/internal/platform/httpserver"
	"bazaar/internal/platform/messaging"
	platformotel "bazaar/internal/platform/otel"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server       *httpserver.Server
	postgres     *db.Postgres
	snapshots    *sqliteadapter.SnapshotStore
	relay        *workerapp.OutboxRelay
	snapshotter  *workerapp.SnapshotWriter
	cfg          config.Config
	otelShutdown func(context.Context) error
	logger       *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	settlements  workerapp.SettlementConsumer
	pollInterval time.Duration
	otelShutdown func(context.Context) error
	logger       *slog.Logger
}

// ledgerBackend bundles the ports one storage choice provides.
type ledgerBackend struct {
	ledger   ports.LedgerRepository
	dedup    ports.EventDedupStore
	outbox   ports.OutboxRepository
	clock    ports.Clock
	memory   *memory.Store
	postgres *db.Postgres
}

func (b ledgerBackend) close() error {
	if b.postgres == nil {
		return nil
	}
	return b.postgres.Close()
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	otelShutdown, err := platformotel.Setup(ctx, platformotel.Settings{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	backend, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}

	module := marketplaceledger.NewModule(marketplaceledger.Dependencies{
		Ledger:         backend.ledger,
		Clock:          backend.clock,
		IDGenerator:    postgresadapter.UUIDGenerator{},
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = backend.close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	app := &APIApp{
		server:       httpserver.New(module, kafka, logger, normalizeAddr(cfg.HTTPPort)),
		postgres:     backend.postgres,
		cfg:          cfg,
		otelShutdown: otelShutdown,
		logger:       logger,
	}

	if cfg.APIOutboxRelay {
		app.relay = &workerapp.OutboxRelay{
			Outbox:    backend.outbox,
			Publisher: kafka,
			Clock:     backend.clock,
			Topic:     contractsv1.MarketplaceTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		}
	}

	if strings.TrimSpace(cfg.SnapshotPath) != "" {
		if backend.memory == nil {
			logger.Warn("snapshot path ignored for durable backend",
				"event", "bootstrap_snapshot_ignored",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"storage_backend", cfg.StorageBackend,
			)
		} else if err := app.attachSnapshots(ctx, backend.memory); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	return app, nil
}

func (a *APIApp) attachSnapshots(ctx context.Context, store *memory.Store) error {
	snapshots, err := sqliteadapter.NewSnapshotStore(a.cfg.SnapshotPath, a.logger)
	if err != nil {
		return err
	}
	a.snapshots = snapshots
	a.snapshotter = &workerapp.SnapshotWriter{
		Source: store,
		Store:  snapshots,
		Logger: a.logger,
	}
	if _, err := a.snapshotter.RestoreLatest(ctx); err != nil {
		return fmt.Errorf("restore ledger snapshot: %w", err)
	}
	return nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageBackend != config.StoragePostgres {
		return nil, errors.New("worker requires STORAGE_BACKEND=postgres; the memory ledger lives inside the api process")
	}

	otelShutdown, err := platformotel.Setup(ctx, platformotel.Settings{
		ServiceName: cfg.ServiceName + "-worker",
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	backend, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = backend.close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	return &WorkerApp{
		postgres: backend.postgres,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    backend.outbox,
			Publisher: kafka,
			Clock:     backend.clock,
			Topic:     contractsv1.MarketplaceTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		settlements: workerapp.SettlementConsumer{
			Subscriber: kafka,
			Dedup:      backend.dedup,
			Clock:      backend.clock,
			DedupTTL:   cfg.IdempotencyTTL,
			Logger:     logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		otelShutdown: otelShutdown,
		logger:       logger,
	}, nil
}

func buildBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (ledgerBackend, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN, db.DefaultPoolSettings(), logger)
		if err != nil {
			return ledgerBackend{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return ledgerBackend{}, fmt.Errorf("migrate ledger schema: %w", err)
		}
		return ledgerBackend{
			ledger:   repo,
			dedup:    repo,
			outbox:   repo,
			clock:    postgresadapter.SystemClock{},
			postgres: pg,
		}, nil
	default:
		store := memory.NewStore(logger)
		return ledgerBackend{
			ledger: store,
			dedup:  store,
			outbox: store,
			clock:  store,
			memory: store,
		}, nil
	}
}

// Run serves HTTP until ctx is cancelled, relaying the outbox and taking
// snapshots in the background.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"storage_backend", a.cfg.StorageBackend,
		"outbox_relay", a.relay != nil,
		"snapshots", a.snapshotter != nil,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Start()
	}()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.runBackground(loopCtx)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// Final flush so the newest committed state survives a restart.
	if a.relay != nil {
		if err := a.relay.RunOnce(shutdownCtx); err != nil {
			a.logBackgroundError("outbox_relay", err)
		}
	}
	if a.snapshotter != nil {
		if err := a.snapshotter.RunOnce(shutdownCtx); err != nil {
			a.logBackgroundError("snapshot", err)
		}
	}
	return nil
}

func (a *APIApp) runBackground(ctx context.Context) {
	relayTicker := time.NewTicker(a.cfg.OutboxPollInterval)
	defer relayTicker.Stop()

	var snapshotTick <-chan time.Time
	if a.snapshotter != nil {
		snapshotTicker := time.NewTicker(a.cfg.SnapshotInterval)
		defer snapshotTicker.Stop()
		snapshotTick = snapshotTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-relayTicker.C:
			if a.relay == nil {
				continue
			}
			if err := a.relay.RunOnce(ctx); err != nil {
				a.logBackgroundError("outbox_relay", err)
			}
		case <-snapshotTick:
			if err := a.snapshotter.RunOnce(ctx); err != nil {
				a.logBackgroundError("snapshot", err)
			}
		}
	}
}

func (a *APIApp) logBackgroundError(job string, err error) {
	a.logger.Error("background job failed",
		"event", "bootstrap_background_job_failed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"job", job,
		"error", err.Error(),
	)
}

func (a *APIApp) Close() error {
	var errs []error
	if a.snapshots != nil {
		errs = append(errs, a.snapshots.Close())
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(context.Background()))
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.settlements.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	if w.otelShutdown != nil {
		errs = append(errs, w.otelShutdown(context.Background()))
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
